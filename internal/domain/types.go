// Package domain defines the household inventory types and the pure ordering
// and grouping rules applied to them. Nothing here talks to the remote store.
package domain

import "time"

// State is the stock level of an item.
type State string

// Stock levels. The zero value is not a valid state.
const (
	StateNeed State = "NEED"
	StateLow  State = "LOW"
	StateOK   State = "OK"
)

// States lists the valid states in picker order.
var States = []State{StateNeed, StateLow, StateOK}

// Valid reports whether s is one of the known states.
func (s State) Valid() bool {
	switch s {
	case StateNeed, StateLow, StateOK:
		return true
	}
	return false
}

// Label returns the short display label for s.
func (s State) Label() string {
	switch s {
	case StateNeed:
		return "Need"
	case StateLow:
		return "Low"
	case StateOK:
		return "OK"
	}
	return string(s)
}

// Item is a single row of the household list.
type Item struct {
	ID           string    // Primary key, immutable once created
	Name         string    // Display name, non-empty after trimming
	Note         *string   // Optional note, nil or non-empty after trimming
	State        State     // Stock level
	Pinned       bool      // Pinned items render in their own section
	PinOrder     *int64    // Order among pinned items, nil when unpinned
	CreatedOrder int64     // Insertion order, never reused
	UpdatedAt    time.Time // Set on every mutating write
}

// HasPinOrder reports whether the item is pinned and carries an order key.
func (i Item) HasPinOrder() bool {
	return i.Pinned && i.PinOrder != nil
}

// Clone returns a deep copy of the item so callers can patch it without
// aliasing the optional fields of the original.
func (i Item) Clone() Item {
	c := i
	if i.Note != nil {
		n := *i.Note
		c.Note = &n
	}
	if i.PinOrder != nil {
		o := *i.PinOrder
		c.PinOrder = &o
	}
	return c
}

// NewItem is the payload for inserting an item.
type NewItem struct {
	Name         string
	State        State
	Pinned       bool
	CreatedOrder int64
}

// Groups is the four-bucket display partition of a sorted snapshot.
type Groups struct {
	Pinned []Item
	Need   []Item
	Low    []Item
	OK     []Item
}

// Bucket returns the items for a section key.
func (g Groups) Bucket(key SectionKey) []Item {
	switch key {
	case SectionPinned:
		return g.Pinned
	case SectionNeed:
		return g.Need
	case SectionLow:
		return g.Low
	case SectionOK:
		return g.OK
	}
	return nil
}

// Len returns the total number of items across buckets.
func (g Groups) Len() int {
	return len(g.Pinned) + len(g.Need) + len(g.Low) + len(g.OK)
}

// SectionKey identifies a display section.
type SectionKey string

// Section keys, one per bucket.
const (
	SectionPinned SectionKey = "pinned"
	SectionNeed   SectionKey = "need"
	SectionLow    SectionKey = "low"
	SectionOK     SectionKey = "ok"
)

// Section describes how a bucket is presented.
type Section struct {
	Key         SectionKey
	Label       string
	DefaultOpen bool
}

// Sections lists the dashboard sections in display order.
var Sections = []Section{
	{Key: SectionPinned, Label: "Pinned", DefaultOpen: true},
	{Key: SectionNeed, Label: "Need", DefaultOpen: true},
	{Key: SectionLow, Label: "Low", DefaultOpen: false},
	{Key: SectionOK, Label: "OK", DefaultOpen: false},
}
