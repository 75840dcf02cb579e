package store

import (
	"context"
	"fmt"

	"github.com/robby/homestock/internal/domain"
	"github.com/robby/homestock/internal/logging"
	"github.com/robby/homestock/internal/remote"
)

// OpKind names the mutation an Op performs.
type OpKind string

// Mutation kinds.
const (
	OpCycleState OpKind = "cycle_state"
	OpTogglePin  OpKind = "toggle_pin"
	OpAdd        OpKind = "add"
	OpDelete     OpKind = "delete"
	OpUpdate     OpKind = "update"
	OpMarkOK     OpKind = "mark_ok"
	OpMovePin    OpKind = "move_pin"
)

// Op is an in-flight mutation: the optimistic patch has been applied and the
// ids are pending. Run performs the remote write; Settle must then be called
// exactly once with its result.
type Op struct {
	Seq  uint64
	Kind OpKind
	IDs  []string // Items marked pending for the life of the op

	call    func(ctx context.Context) error
	patched bool // Whether the working snapshot was patched
	failMsg string
	settled bool
}

// Run performs the remote write. A panic in the remote call is returned as an
// error so the op can always be settled.
func (o *Op) Run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: remote call panicked: %v", o.Kind, r)
		}
	}()
	return o.call(ctx)
}

// begin registers a new op: applies the patch, marks ids pending.
func (s *Store) begin(kind OpKind, ids []string, patch func(), call func(ctx context.Context) error) *Op {
	s.opSeq++
	op := &Op{
		Seq:     s.opSeq,
		Kind:    kind,
		IDs:     ids,
		call:    call,
		failMsg: MsgSaveFailed,
	}
	if patch != nil {
		patch()
		op.patched = true
	}
	for _, id := range ids {
		s.pending[id]++
	}
	logging.Logger.Debug("op started", "seq", op.Seq, "kind", kind, "ids", ids)
	return op
}

// Settle records the outcome of op.Run. On failure the working snapshot is
// rolled back according to the store's policy and a notice is queued. The
// op's ids leave the pending set whatever the outcome. Settling an op twice
// is a no-op.
func (s *Store) Settle(op *Op, err error) {
	if op == nil || op.settled {
		return
	}
	op.settled = true
	defer s.release(op)

	if err == nil {
		logging.Logger.Debug("op settled", "seq", op.Seq, "kind", op.Kind)
		return
	}

	logging.Logger.Error("op failed", "seq", op.Seq, "kind", op.Kind, "ids", op.IDs, "error", err)
	if op.patched {
		s.rollback(op)
	}
	s.notify(op.failMsg, err)
}

func (s *Store) release(op *Op) {
	for _, id := range op.IDs {
		s.pending[id]--
		if s.pending[id] <= 0 {
			delete(s.pending, id)
		}
	}
}

func (s *Store) rollback(op *Op) {
	if s.policy == RollbackSnapshot {
		s.working = s.Authoritative()
		return
	}

	auth := make(map[string]domain.Item, len(s.authoritative))
	for _, item := range s.authoritative {
		auth[item.ID] = item
	}
	touched := make(map[string]bool, len(op.IDs))
	for _, id := range op.IDs {
		touched[id] = true
	}

	next := make([]domain.Item, 0, len(s.working)+len(op.IDs))
	for _, item := range s.working {
		if !touched[item.ID] {
			next = append(next, item)
		}
	}
	for _, id := range op.IDs {
		if item, ok := auth[id]; ok {
			next = append(next, item)
		}
	}
	s.working = domain.Sort(next)
}

// Do runs op and settles it synchronously. Used outside the UI loop, where
// nothing else can touch the store while the call is in flight.
func (s *Store) Do(ctx context.Context, op *Op) error {
	err := op.Run(ctx)
	s.Settle(op, err)
	return err
}

// CycleState advances an item's state, or sets it to target when given.
func (s *Store) CycleState(id string, target *domain.State) (*Op, error) {
	idx := s.indexOf(id)
	if idx < 0 {
		return nil, ErrItemNotFound
	}
	current := s.working[idx].State

	next := domain.NextState(current)
	if target != nil {
		if !target.Valid() {
			return nil, fmt.Errorf("invalid state %q", *target)
		}
		if *target == current {
			return nil, ErrNoChange
		}
		next = *target
	}

	now := s.now()
	return s.begin(OpCycleState, []string{id},
		func() {
			s.patch(func(item *domain.Item) {
				if item.ID == id {
					item.State = next
					item.UpdatedAt = now
				}
			})
		},
		func(ctx context.Context) error {
			return s.table.Update(ctx, id, remote.Fields{State: &next, UpdatedAt: now})
		},
	), nil
}

// TogglePin pins or unpins an item. A newly pinned item goes to the end of the
// pinned section.
func (s *Store) TogglePin(id string) (*Op, error) {
	idx := s.indexOf(id)
	if idx < 0 {
		return nil, ErrItemNotFound
	}

	pinned := !s.working[idx].Pinned
	var pinOrder *int64
	if pinned {
		o := s.maxPinOrder() + 1
		pinOrder = &o
	}

	now := s.now()
	fields := remote.Fields{Pinned: &pinned, PinOrder: pinOrder, ClearPinOrder: !pinned, UpdatedAt: now}
	return s.begin(OpTogglePin, []string{id},
		func() {
			s.patch(func(item *domain.Item) {
				if item.ID == id {
					item.Pinned = pinned
					item.PinOrder = pinOrder
					item.UpdatedAt = now
				}
			})
		},
		func(ctx context.Context) error {
			return s.table.Update(ctx, id, fields)
		},
	), nil
}

// AddItem inserts a new LOW item at the end of the insertion order. Nothing is
// patched locally: the item appears with the next refetch.
func (s *Store) AddItem(name string) (*Op, error) {
	name, err := domain.NormalizeName(name)
	if err != nil {
		return nil, err
	}

	item := domain.NewItem{
		Name:         name,
		State:        domain.StateLow,
		Pinned:       false,
		CreatedOrder: s.maxCreatedOrder() + 1,
	}
	op := s.begin(OpAdd, nil, nil, func(ctx context.Context) error {
		return s.table.Insert(ctx, item)
	})
	op.failMsg = MsgNetwork
	return op, nil
}

// DeleteItem removes an item.
func (s *Store) DeleteItem(id string) (*Op, error) {
	if s.indexOf(id) < 0 {
		return nil, ErrItemNotFound
	}
	return s.begin(OpDelete, []string{id},
		func() { s.remove(id) },
		func(ctx context.Context) error {
			return s.table.Delete(ctx, id)
		},
	), nil
}

// UpdateItem replaces an item's name and note. A blank note clears it.
func (s *Store) UpdateItem(id, name, note string) (*Op, error) {
	name, err := domain.NormalizeName(name)
	if err != nil {
		return nil, err
	}
	if s.indexOf(id) < 0 {
		return nil, ErrItemNotFound
	}

	n := domain.NormalizeNote(note)
	now := s.now()
	fields := remote.Fields{Name: &name, Note: n, ClearNote: n == nil, UpdatedAt: now}
	return s.begin(OpUpdate, []string{id},
		func() {
			s.patch(func(item *domain.Item) {
				if item.ID == id {
					item.Name = name
					item.Note = n
					item.UpdatedAt = now
				}
			})
		},
		func(ctx context.Context) error {
			return s.table.Update(ctx, id, fields)
		},
	), nil
}

// MarkAllOK sets every listed item to OK in one bulk write. Unknown and
// duplicate ids are dropped.
func (s *Store) MarkAllOK(ids []string) (*Op, error) {
	seen := make(map[string]bool, len(ids))
	var known []string
	for _, id := range ids {
		if seen[id] || s.indexOf(id) < 0 {
			continue
		}
		seen[id] = true
		known = append(known, id)
	}
	if len(known) == 0 {
		return nil, ErrNothingToMark
	}

	ok := domain.StateOK
	now := s.now()
	return s.begin(OpMarkOK, known,
		func() {
			s.patch(func(item *domain.Item) {
				if seen[item.ID] {
					item.State = ok
					item.UpdatedAt = now
				}
			})
		},
		func(ctx context.Context) error {
			return s.table.UpdateMany(ctx, known, remote.Fields{State: &ok, UpdatedAt: now})
		},
	), nil
}

// MarkBought closes a shopping trip: everything bought goes back to OK.
func (s *Store) MarkBought(ids []string) (*Op, error) {
	return s.MarkAllOK(ids)
}
