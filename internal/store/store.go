// Package store is the optimistic synchronization engine for the household
// list. It owns the authoritative snapshot (last confirmed by the remote
// table), the working snapshot (what the UI renders) and the pending set.
//
// The store is not safe for concurrent use: it belongs to the UI event loop.
// Mutations patch the working snapshot synchronously and hand back an Op whose
// Run performs the remote write; Run may execute on any goroutine, but its
// result must be handed back to Settle on the event loop.
package store

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/robby/homestock/internal/domain"
	"github.com/robby/homestock/internal/remote"
)

var (
	// ErrItemNotFound indicates the requested item is not in the working snapshot.
	ErrItemNotFound = errors.New("item not found")
	// ErrNotPinned indicates a reorder was requested for an unpinned item.
	ErrNotPinned = errors.New("item is not pinned")
	// ErrNoNeighbor indicates a reorder past either end of the pinned section.
	ErrNoNeighbor = errors.New("no pinned neighbor in that direction")
	// ErrNoChange indicates a mutation that would not change anything.
	ErrNoChange = errors.New("nothing to change")
	// ErrNothingToMark indicates a bulk update with no known items.
	ErrNothingToMark = errors.New("no items to mark")
	// ErrEmptyName indicates a blank item name.
	ErrEmptyName = domain.ErrEmptyName
)

// User-visible failure messages.
const (
	MsgNetwork    = "Offline or can't reach server"
	MsgSaveFailed = "Couldn't save change — please try again"
)

// RollbackPolicy decides how much of the working snapshot a failed write
// reverts.
type RollbackPolicy int

const (
	// RollbackSnapshot reverts the whole working snapshot to the last
	// authoritative snapshot, discarding every in-flight optimistic patch.
	RollbackSnapshot RollbackPolicy = iota
	// RollbackOwnPatch reverts only the items the failed write touched,
	// restoring them from the authoritative snapshot.
	RollbackOwnPatch
)

// ParseRollbackPolicy maps a config value to a policy.
func ParseRollbackPolicy(s string) (RollbackPolicy, error) {
	switch s {
	case "", "snapshot":
		return RollbackSnapshot, nil
	case "patch":
		return RollbackOwnPatch, nil
	}
	return RollbackSnapshot, fmt.Errorf("unknown rollback policy %q (want snapshot or patch)", s)
}

func (p RollbackPolicy) String() string {
	if p == RollbackOwnPatch {
		return "patch"
	}
	return "snapshot"
}

// Notice is a user-visible message raised by the store.
type Notice struct {
	Message string
	Err     error
}

// Store manages the local copy of the household list.
type Store struct {
	table  remote.Table
	policy RollbackPolicy
	now    func() time.Time

	// Snapshots, both kept in display order
	authoritative []domain.Item
	working       []domain.Item

	// Item ID -> number of unsettled ops touching it
	pending map[string]int

	loading      bool
	opSeq        uint64
	fetchSeq     uint64
	appliedFetch uint64

	notices []Notice
}

// Option configures a Store.
type Option func(*Store)

// WithRollbackPolicy sets how failed writes are rolled back.
func WithRollbackPolicy(p RollbackPolicy) Option {
	return func(s *Store) { s.policy = p }
}

// WithClock overrides the time source used for updated_at.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates an empty store in the loading state.
func New(table remote.Table, opts ...Option) *Store {
	s := &Store{
		table:   table,
		now:     time.Now,
		pending: make(map[string]int),
		loading: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Policy returns the configured rollback policy.
func (s *Store) Policy() RollbackPolicy {
	return s.policy
}

// Loading reports whether the first successful fetch has yet to land.
func (s *Store) Loading() bool {
	return s.loading
}

// Items returns the working snapshot in display order.
func (s *Store) Items() []domain.Item {
	out := make([]domain.Item, len(s.working))
	copy(out, s.working)
	return out
}

// Authoritative returns the last snapshot confirmed by the remote table.
func (s *Store) Authoritative() []domain.Item {
	out := make([]domain.Item, len(s.authoritative))
	copy(out, s.authoritative)
	return out
}

// Groups returns the working snapshot partitioned into display buckets.
func (s *Store) Groups() domain.Groups {
	return domain.Group(s.working)
}

// ShoppingList returns the working items worth buying.
func (s *Store) ShoppingList() []domain.Item {
	return domain.ShoppingList(s.working)
}

// Get returns a working item by ID.
func (s *Store) Get(id string) (domain.Item, error) {
	idx := s.indexOf(id)
	if idx < 0 {
		return domain.Item{}, ErrItemNotFound
	}
	return s.working[idx], nil
}

// Pending reports whether id has an unsettled write.
func (s *Store) Pending(id string) bool {
	return s.pending[id] > 0
}

// PendingIDs returns the ids with unsettled writes, sorted.
func (s *Store) PendingIDs() []string {
	ids := make([]string, 0, len(s.pending))
	for id := range s.pending {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Notices drains the queued user-visible notices.
func (s *Store) Notices() []Notice {
	out := s.notices
	s.notices = nil
	return out
}

func (s *Store) notify(msg string, err error) {
	s.notices = append(s.notices, Notice{Message: msg, Err: err})
}

func (s *Store) indexOf(id string) int {
	for i := range s.working {
		if s.working[i].ID == id {
			return i
		}
	}
	return -1
}

// patch replaces matching working items via fn and restores display order.
func (s *Store) patch(fn func(item *domain.Item)) {
	next := make([]domain.Item, len(s.working))
	for i, item := range s.working {
		c := item.Clone()
		fn(&c)
		next[i] = c
	}
	s.working = domain.Sort(next)
}

func (s *Store) remove(id string) {
	next := make([]domain.Item, 0, len(s.working))
	for _, item := range s.working {
		if item.ID != id {
			next = append(next, item)
		}
	}
	s.working = next
}

// maxPinOrder returns the largest pin order among pinned working items,
// treating a missing order as 0.
func (s *Store) maxPinOrder() int64 {
	var max int64
	for _, item := range s.working {
		if !item.Pinned || item.PinOrder == nil {
			continue
		}
		if *item.PinOrder > max {
			max = *item.PinOrder
		}
	}
	return max
}

func (s *Store) maxCreatedOrder() int64 {
	var max int64
	for i, item := range s.working {
		if i == 0 || item.CreatedOrder > max {
			max = item.CreatedOrder
		}
	}
	return max
}
