// Package gesture turns raw pointer and key events on a single list row into
// discrete intents. A Controller is a pure state machine: it never reads a
// clock and never starts a goroutine. Timers are requested through Result and
// delivered back as TimerFired events.
package gesture

import (
	"math"
	"strings"
	"time"

	"github.com/robby/homestock/internal/domain"
)

// Phase is the row's gesture state.
type Phase int

const (
	Idle Phase = iota
	Pressing
	Swiping
	Scrolling
	Open
	Editing
)

func (p Phase) String() string {
	switch p {
	case Pressing:
		return "pressing"
	case Swiping:
		return "swiping"
	case Scrolling:
		return "scrolling"
	case Open:
		return "open"
	case Editing:
		return "editing"
	}
	return "idle"
}

// Config holds the gesture thresholds.
type Config struct {
	LongPress    time.Duration
	Cooldown     time.Duration
	DeleteReveal float64
	Jitter       float64
}

// DefaultConfig returns the stock thresholds.
func DefaultConfig() Config {
	return Config{
		LongPress:    650 * time.Millisecond,
		Cooldown:     400 * time.Millisecond,
		DeleteReveal: 72,
		Jitter:       10,
	}
}

// action classes that share a cooldown window
type action int

const (
	actPick action = iota
	actEdit
	actPin
	actDelete
	actReorder
)

// View is the render state of a row.
type View struct {
	Item      domain.Item
	Phase     Phase
	Offset    float64
	Pressed   bool
	Open      bool
	Editing   bool
	Picking   bool
	DraftName string
	DraftNote string
}

// Controller tracks gestures for one row.
type Controller struct {
	cfg  Config
	item domain.Item

	phase   Phase
	picking bool

	// Pointer stream origin and the offset the stream started from
	originX, originY float64
	baseOffset       float64
	offset           float64
	wasOpen          bool

	// Current long-press token; 0 means none armed
	token     uint64
	lastToken uint64

	lastAction map[action]time.Time

	draftName string
	draftNote string
}

// New creates a controller for item. Zero thresholds fall back to defaults.
func New(item domain.Item, cfg Config) *Controller {
	def := DefaultConfig()
	if cfg.LongPress <= 0 {
		cfg.LongPress = def.LongPress
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = def.Cooldown
	}
	if cfg.DeleteReveal <= 0 {
		cfg.DeleteReveal = def.DeleteReveal
	}
	if cfg.Jitter <= 0 {
		cfg.Jitter = def.Jitter
	}
	c := &Controller{
		cfg:        cfg,
		lastAction: make(map[action]time.Time),
	}
	c.SetItem(item)
	return c
}

// Config returns the controller's thresholds.
func (c *Controller) Config() Config {
	return c.cfg
}

// SetItem refreshes the row's item. Drafts follow the item unless an edit is
// in progress.
func (c *Controller) SetItem(item domain.Item) {
	c.item = item.Clone()
	if c.phase != Editing {
		c.seedDrafts()
	}
}

// View returns the current render state.
func (c *Controller) View() View {
	return View{
		Item:      c.item,
		Phase:     c.phase,
		Offset:    c.offset,
		Pressed:   c.phase == Pressing || c.phase == Swiping,
		Open:      c.phase == Open,
		Editing:   c.phase == Editing,
		Picking:   c.picking,
		DraftName: c.draftName,
		DraftNote: c.draftNote,
	}
}

// Handle applies one event.
func (c *Controller) Handle(ev Event) Result {
	switch e := ev.(type) {
	case TouchStart:
		return c.touchStart(e)
	case TouchMove:
		c.touchMove(e)
	case TouchEnd:
		return c.touchEnd()
	case TimerFired:
		c.timerFired(e)
	case Tap:
		if c.phase == Editing || c.picking {
			return Result{}
		}
		c.cancelTimer()
		return c.tap()
	case Reveal:
		switch c.phase {
		case Idle:
			c.open()
		case Open:
			c.close()
		}
	case Close:
		if c.phase == Open {
			c.close()
		}
	case OpenPicker:
		if c.phase == Editing {
			return Result{}
		}
		c.cancelTimer()
		c.picking = true
	case OutsideTap:
		c.picking = false
	case PickState:
		return c.pickState(e)
	case StartEdit:
		if c.phase != Editing {
			c.startEdit()
		}
	case EditConfirm:
		return c.editConfirm(e)
	case EditCancel:
		if c.phase != Editing || !c.allow(actEdit, e.At) {
			return Result{}
		}
		c.phase = Idle
		c.seedDrafts()
	case TogglePin:
		if c.phase == Editing || !c.allow(actPin, e.At) {
			return Result{}
		}
		c.cancelTimer()
		return c.emit(Intent{Kind: IntentTogglePin})
	case Delete:
		if c.phase == Editing || !c.allow(actDelete, e.At) {
			return Result{}
		}
		c.cancelTimer()
		c.close()
		return c.emit(Intent{Kind: IntentDelete})
	case Reorder:
		if c.phase == Editing || !c.allow(actReorder, e.At) {
			return Result{}
		}
		c.cancelTimer()
		kind := IntentMoveDown
		if e.Up {
			kind = IntentMoveUp
		}
		return c.emit(Intent{Kind: kind})
	}
	return Result{}
}

func (c *Controller) touchStart(e TouchStart) Result {
	if c.phase == Editing || c.picking {
		return Result{}
	}
	c.wasOpen = c.phase == Open
	c.originX, c.originY = e.X, e.Y
	c.baseOffset = c.offset
	c.phase = Pressing

	// A revealed row has to be closed before it can be long-pressed
	if c.wasOpen {
		c.cancelTimer()
		return Result{}
	}
	c.lastToken++
	c.token = c.lastToken
	return Result{Timer: &Timer{Token: c.token, After: c.cfg.LongPress}}
}

func (c *Controller) touchMove(e TouchMove) {
	if c.phase != Pressing && c.phase != Swiping {
		return
	}
	dx, dy := e.X-c.originX, e.Y-c.originY
	adx, ady := math.Abs(dx), math.Abs(dy)

	// Movement inside the jitter box is noise
	if c.phase == Pressing && adx <= c.cfg.Jitter && ady <= c.cfg.Jitter {
		return
	}

	if ady > adx {
		c.cancelTimer()
		c.offset = 0
		c.phase = Scrolling
		return
	}

	if adx > c.cfg.Jitter {
		c.cancelTimer()
		c.phase = Swiping
	}
	if c.phase == Swiping {
		c.offset = clamp(c.baseOffset+dx, -c.cfg.DeleteReveal, 0)
	}
}

func (c *Controller) touchEnd() Result {
	switch c.phase {
	case Pressing:
		c.cancelTimer()
		if c.wasOpen {
			c.close()
			return Result{}
		}
		c.phase = Idle
		return c.tap()
	case Swiping:
		c.cancelTimer()
		if c.offset <= -c.cfg.DeleteReveal/2 {
			c.open()
		} else {
			c.close()
		}
	case Scrolling:
		c.close()
	}
	return Result{}
}

func (c *Controller) timerFired(e TimerFired) {
	if e.Token == 0 || e.Token != c.token || c.phase != Pressing {
		return
	}
	c.startEdit()
}

// tap cycles the state, or closes a revealed row.
func (c *Controller) tap() Result {
	if c.phase == Open {
		c.close()
		return Result{}
	}
	return c.emit(Intent{Kind: IntentCycleState})
}

func (c *Controller) pickState(e PickState) Result {
	if !c.picking {
		return Result{}
	}
	c.picking = false
	if e.State == c.item.State || !c.allow(actPick, e.At) {
		return Result{}
	}
	return c.emit(Intent{Kind: IntentSetState, State: e.State})
}

func (c *Controller) editConfirm(e EditConfirm) Result {
	if c.phase != Editing {
		return Result{}
	}
	c.draftName, c.draftNote = e.Name, e.Note

	name, err := domain.NormalizeName(e.Name)
	if err != nil {
		return Result{}
	}
	if !c.allow(actEdit, e.At) {
		return Result{}
	}
	c.phase = Idle
	return c.emit(Intent{Kind: IntentUpdate, Name: name, Note: domain.NormalizeNote(e.Note)})
}

func (c *Controller) startEdit() {
	c.cancelTimer()
	c.picking = false
	c.offset = 0
	c.phase = Editing
	c.seedDrafts()
}

func (c *Controller) open() {
	c.phase = Open
	c.offset = -c.cfg.DeleteReveal
}

func (c *Controller) close() {
	c.phase = Idle
	c.offset = 0
}

func (c *Controller) cancelTimer() {
	c.token = 0
}

// allow stamps the cooldown for a and reports whether it has elapsed.
func (c *Controller) allow(a action, at time.Time) bool {
	if last, ok := c.lastAction[a]; ok && at.Sub(last) < c.cfg.Cooldown {
		return false
	}
	c.lastAction[a] = at
	return true
}

func (c *Controller) emit(in Intent) Result {
	in.ItemID = c.item.ID
	return Result{Intent: &in}
}

func (c *Controller) seedDrafts() {
	c.draftName = c.item.Name
	c.draftNote = ""
	if c.item.Note != nil {
		c.draftNote = strings.TrimSpace(*c.item.Note)
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
