// Package remote defines the contract of the table store that holds the
// household list. Implementations live in subpackages: gql talks to a Supabase
// project, local keeps the table in a SQLite file.
package remote

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robby/homestock/internal/domain"
)

// ErrNoFeed indicates a table was built without a change feed.
var ErrNoFeed = errors.New("no change feed configured")

// Feed delivers change signals for the collection.
type Feed interface {
	Subscribe(ctx context.Context) (<-chan struct{}, error)
}

// Table is the item collection as seen by the sync engine.
// Implementations must be safe for concurrent use.
type Table interface {
	// FetchAll reads every row, unfiltered and unordered.
	FetchAll(ctx context.Context) ([]domain.Item, error)
	// Insert creates a row; the store assigns the id.
	Insert(ctx context.Context, item domain.NewItem) error
	// Update applies a partial update to one row.
	Update(ctx context.Context, id string, f Fields) error
	// UpdateMany applies the same partial update to several rows.
	UpdateMany(ctx context.Context, ids []string, f Fields) error
	// Delete removes one row.
	Delete(ctx context.Context, id string) error
	// Feed.Subscribe returns a channel that receives a signal after any insert,
	// update or delete on the collection, from any client. Signals carry no
	// payload and may be coalesced. The channel is closed once ctx is done.
	Feed
}

// Fields is a partial item update. Nil pointers leave the column untouched;
// ClearPinOrder and ClearNote write NULL.
type Fields struct {
	Name          *string
	Note          *string
	ClearNote     bool
	State         *domain.State
	Pinned        *bool
	PinOrder      *int64
	ClearPinOrder bool
	UpdatedAt     time.Time
}

// Columns renders the update as a column -> value map using the table's
// snake_case column names. NULL writes appear as nil values.
func (f Fields) Columns() map[string]interface{} {
	cols := make(map[string]interface{})
	if f.Name != nil {
		cols["name"] = *f.Name
	}
	if f.Note != nil {
		cols["note"] = *f.Note
	} else if f.ClearNote {
		cols["note"] = nil
	}
	if f.State != nil {
		cols["state"] = string(*f.State)
	}
	if f.Pinned != nil {
		cols["pinned"] = *f.Pinned
	}
	if f.PinOrder != nil {
		cols["pin_order"] = *f.PinOrder
	} else if f.ClearPinOrder {
		cols["pin_order"] = nil
	}
	if !f.UpdatedAt.IsZero() {
		cols["updated_at"] = f.UpdatedAt.UTC().Format(time.RFC3339Nano)
	}
	return cols
}

// Broadcaster fans change signals out to subscribers. Backends without a
// native change feed use it to notify after their own writes.
type Broadcaster struct {
	mu   sync.Mutex
	list map[chan struct{}]struct{}
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{list: make(map[chan struct{}]struct{})}
}

// Subscribe registers a subscriber until ctx is done.
func (b *Broadcaster) Subscribe(ctx context.Context) <-chan struct{} {
	ch := make(chan struct{}, 1)
	b.mu.Lock()
	b.list[ch] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.list, ch)
		close(ch)
		b.mu.Unlock()
	}()
	return ch
}

// Notify signals every subscriber without blocking. A subscriber that has not
// drained its previous signal keeps just the one.
func (b *Broadcaster) Notify() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.list {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
