// Package tui provides the Bubble Tea models for the homestock dashboard and
// shopping mode.
package tui

import (
	"time"

	"github.com/robby/homestock/internal/domain"
	"github.com/robby/homestock/internal/store"
)

// ErrorMsg is emitted when an error should replace the current screen.
type ErrorMsg struct {
	Err error
}

// QuitMsg is emitted when the user requests to quit.
type QuitMsg struct{}

// Messages flowing between commands, screens and the root model.
type (
	// opSettledMsg carries the result of an Op.Run back to the event loop.
	opSettledMsg struct {
		op  *store.Op
		err error
	}

	fetchedMsg struct {
		fetch *store.Fetch
		items []domain.Item
		err   error
	}

	subscribedMsg struct {
		ch  <-chan struct{}
		err error
	}

	// changedMsg is one signal from the change feed.
	changedMsg struct{}

	feedClosedMsg struct{}

	longPressMsg struct {
		itemID string
		token  uint64
		at     time.Time
	}

	toastMsg struct {
		text string
		err  bool
	}

	toastExpiredMsg struct {
		token uint64
	}

	refreshMsg struct{}

	openShoppingMsg struct{}

	closeShoppingMsg struct{}
)
