package domain

import (
	"errors"
	"sort"
	"strings"
)

// ErrEmptyName indicates a name that is blank after trimming.
var ErrEmptyName = errors.New("name is empty")

var stateCycle = map[State]State{
	StateOK:   StateLow,
	StateLow:  StateNeed,
	StateNeed: StateOK,
}

// NextState returns the state an item advances to when tapped.
// Unknown states map to OK.
func NextState(current State) State {
	if next, ok := stateCycle[current]; ok {
		return next
	}
	return StateOK
}

// Sort returns a new slice ordered for display: pinned items with an order
// key first by pin order, then everything else by created order. The sort is
// stable, so sorting an already sorted snapshot leaves it unchanged.
func Sort(items []Item) []Item {
	sorted := make([]Item, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return less(sorted[i], sorted[j])
	})
	return sorted
}

func less(a, b Item) bool {
	aPinned := a.HasPinOrder()
	bPinned := b.HasPinOrder()

	switch {
	case aPinned && bPinned:
		return *a.PinOrder < *b.PinOrder
	case aPinned:
		return true
	case bPinned:
		return false
	}
	return a.CreatedOrder < b.CreatedOrder
}

// Group partitions a sorted snapshot into display buckets in one pass.
// Pinned items land only in Pinned regardless of state; unpinned items with an
// unrecognised state land in OK.
func Group(sorted []Item) Groups {
	var g Groups
	for _, item := range sorted {
		if item.Pinned {
			g.Pinned = append(g.Pinned, item)
			continue
		}
		switch item.State {
		case StateNeed:
			g.Need = append(g.Need, item)
		case StateLow:
			g.Low = append(g.Low, item)
		default:
			g.OK = append(g.OK, item)
		}
	}
	return g
}

// ShoppingList returns the items worth buying: anything pinned, needed or low.
// Order follows the input.
func ShoppingList(sorted []Item) []Item {
	var out []Item
	for _, item := range sorted {
		if item.Pinned || item.State == StateNeed || item.State == StateLow {
			out = append(out, item)
		}
	}
	return out
}

// NormalizeName trims name and rejects it when nothing is left.
func NormalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrEmptyName
	}
	return name, nil
}

// NormalizeNote trims note; a blank note becomes nil.
func NormalizeNote(note string) *string {
	note = strings.TrimSpace(note)
	if note == "" {
		return nil
	}
	return &note
}
