package store

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/robby/homestock/internal/domain"
	"github.com/robby/homestock/internal/remote"
)

// MovePinUp swaps a pinned item's order key with the pinned item above it.
func (s *Store) MovePinUp(id string) (*Op, error) {
	return s.movePin(id, -1)
}

// MovePinDown swaps a pinned item's order key with the pinned item below it.
func (s *Store) MovePinDown(id string) (*Op, error) {
	return s.movePin(id, 1)
}

// movePin swaps the pin_order keys of id and its neighbor in direction dir.
// Only the two keys change; the rest of the pinned section keeps its keys.
// Both keys are patched locally at once and both remote updates are issued
// concurrently; if either fails the whole op fails and is rolled back.
func (s *Store) movePin(id string, dir int) (*Op, error) {
	idx := s.indexOf(id)
	if idx < 0 {
		return nil, ErrItemNotFound
	}
	if !s.working[idx].HasPinOrder() {
		return nil, ErrNotPinned
	}

	// working is in display order, so pinned items with a key come first
	// and are already sorted by that key
	var pinned []domain.Item
	pos := -1
	for _, item := range s.working {
		if !item.HasPinOrder() {
			continue
		}
		if item.ID == id {
			pos = len(pinned)
		}
		pinned = append(pinned, item)
	}

	target := pos + dir
	if target < 0 || target >= len(pinned) {
		return nil, ErrNoNeighbor
	}

	self, other := pinned[pos], pinned[target]
	selfOrder, otherOrder := *other.PinOrder, *self.PinOrder
	now := s.now()

	return s.begin(OpMovePin, []string{self.ID, other.ID},
		func() {
			s.patch(func(item *domain.Item) {
				switch item.ID {
				case self.ID:
					o := selfOrder
					item.PinOrder = &o
					item.UpdatedAt = now
				case other.ID:
					o := otherOrder
					item.PinOrder = &o
					item.UpdatedAt = now
				}
			})
		},
		func(ctx context.Context) error {
			var g errgroup.Group
			g.Go(func() error {
				return s.table.Update(ctx, self.ID, remote.Fields{PinOrder: &selfOrder, UpdatedAt: now})
			})
			g.Go(func() error {
				return s.table.Update(ctx, other.ID, remote.Fields{PinOrder: &otherOrder, UpdatedAt: now})
			})
			return g.Wait()
		},
	), nil
}
