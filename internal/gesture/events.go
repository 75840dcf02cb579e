package gesture

import (
	"time"

	"github.com/robby/homestock/internal/domain"
)

// Event is an input to a Controller. Every timed event carries its own
// timestamp so the controller never reads a clock.
type Event interface {
	isEvent()
}

// TouchStart begins a new pointer stream on the row.
type TouchStart struct {
	X, Y float64
	At   time.Time
}

// TouchMove reports the pointer position during a stream.
type TouchMove struct {
	X, Y float64
	At   time.Time
}

// TouchEnd ends the current pointer stream.
type TouchEnd struct {
	At time.Time
}

// TimerFired is delivered when a timer armed by the controller elapses.
type TimerFired struct {
	Token uint64
	At    time.Time
}

// Tap is a discrete primary action (keyboard enter). It behaves like a
// touch stream with no movement.
type Tap struct {
	At time.Time
}

// Reveal toggles the delete affordance without a swipe.
type Reveal struct{}

// Close dismisses a revealed delete affordance.
type Close struct{}

// OpenPicker taps the state indicator.
type OpenPicker struct{}

// PickState selects a state in the open picker.
type PickState struct {
	State domain.State
	At    time.Time
}

// OutsideTap is a tap outside the open picker.
type OutsideTap struct{}

// StartEdit enters edit mode without a long press.
type StartEdit struct{}

// EditConfirm submits the edit fields.
type EditConfirm struct {
	Name string
	Note string
	At   time.Time
}

// EditCancel discards the edit.
type EditCancel struct {
	At time.Time
}

// TogglePin taps the pin button.
type TogglePin struct {
	At time.Time
}

// Delete taps the revealed delete button.
type Delete struct {
	At time.Time
}

// Reorder moves a pinned row up or down.
type Reorder struct {
	Up bool
	At time.Time
}

func (TouchStart) isEvent()  {}
func (TouchMove) isEvent()   {}
func (TouchEnd) isEvent()    {}
func (TimerFired) isEvent()  {}
func (Tap) isEvent()         {}
func (Reveal) isEvent()      {}
func (Close) isEvent()       {}
func (OpenPicker) isEvent()  {}
func (PickState) isEvent()   {}
func (OutsideTap) isEvent()  {}
func (StartEdit) isEvent()   {}
func (EditConfirm) isEvent() {}
func (EditCancel) isEvent()  {}
func (TogglePin) isEvent()   {}
func (Delete) isEvent()      {}
func (Reorder) isEvent()     {}

// IntentKind names the mutation a row asks for.
type IntentKind string

// Intent kinds, one per sync engine operation a row can trigger.
const (
	IntentCycleState IntentKind = "cycle_state"
	IntentSetState   IntentKind = "set_state"
	IntentTogglePin  IntentKind = "toggle_pin"
	IntentDelete     IntentKind = "delete"
	IntentUpdate     IntentKind = "update"
	IntentMoveUp     IntentKind = "move_up"
	IntentMoveDown   IntentKind = "move_down"
)

// Intent is a discrete request emitted by a row.
type Intent struct {
	Kind   IntentKind
	ItemID string
	State  domain.State // IntentSetState
	Name   string       // IntentUpdate, trimmed
	Note   *string      // IntentUpdate, nil when blank
}

// Timer asks the host to deliver TimerFired{Token} after the given delay.
// Timers are never cancelled explicitly: a fired token that is no longer
// current is ignored.
type Timer struct {
	Token uint64
	After time.Duration
}

// Result is what a single event produced.
type Result struct {
	Intent *Intent
	Timer  *Timer
}
