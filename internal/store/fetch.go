package store

import (
	"context"
	"fmt"

	"github.com/robby/homestock/internal/domain"
	"github.com/robby/homestock/internal/logging"
	"github.com/robby/homestock/internal/remote"
)

// Fetch is a full read of the remote table. Fetches are numbered so a result
// that lands after a newer one has already been applied is dropped.
type Fetch struct {
	Seq   uint64
	table remote.Table
}

// Run reads every row from the remote table.
func (f *Fetch) Run(ctx context.Context) (items []domain.Item, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("fetch: remote call panicked: %v", r)
		}
	}()
	return f.table.FetchAll(ctx)
}

// Refetch starts a full read. Call it at mount and on every change signal.
func (s *Store) Refetch() *Fetch {
	s.fetchSeq++
	return &Fetch{Seq: s.fetchSeq, table: s.table}
}

// ApplyFetch installs a fetch result. On success both snapshots are replaced
// by the sorted rows, superseding any optimistic state, and loading ends. On
// failure nothing is replaced and a notice is queued; loading stays on if no
// fetch has succeeded yet. Reports whether the snapshots were replaced.
func (s *Store) ApplyFetch(f *Fetch, items []domain.Item, err error) bool {
	if err != nil {
		logging.Logger.Error("fetch failed", "seq", f.Seq, "error", err)
		s.notify(MsgNetwork, err)
		return false
	}
	if f.Seq < s.appliedFetch {
		logging.Logger.Debug("stale fetch dropped", "seq", f.Seq, "applied", s.appliedFetch)
		return false
	}

	sorted := domain.Sort(items)
	s.authoritative = sorted
	s.working = s.Authoritative()
	s.appliedFetch = f.Seq
	s.loading = false

	logging.Logger.Debug("fetch applied", "seq", f.Seq, "items", len(sorted), "pending", len(s.pending))
	return true
}

// Load fetches and applies synchronously.
func (s *Store) Load(ctx context.Context) error {
	f := s.Refetch()
	items, err := f.Run(ctx)
	s.ApplyFetch(f, items, err)
	if err != nil {
		return fmt.Errorf("failed to fetch items: %w", err)
	}
	return nil
}

// Subscribe opens the remote change feed. Every signal means the snapshot
// may be stale and the caller should Refetch. The channel closes when ctx is
// done.
func (s *Store) Subscribe(ctx context.Context) (<-chan struct{}, error) {
	return s.table.Subscribe(ctx)
}
