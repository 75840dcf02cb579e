package gesture

import (
	"testing"
	"time"

	"github.com/robby/homestock/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func at(ms int) time.Time {
	return t0.Add(time.Duration(ms) * time.Millisecond)
}

func strPtr(s string) *string { return &s }

func createTestController() *Controller {
	return New(domain.Item{
		ID:    "milk",
		Name:  "Milk",
		Note:  strPtr("2%"),
		State: domain.StateNeed,
	}, DefaultConfig())
}

// press starts a touch and returns the armed timer.
func press(t *testing.T, c *Controller, x, y float64, ms int) Timer {
	t.Helper()
	res := c.Handle(TouchStart{X: x, Y: y, At: at(ms)})
	require.NotNil(t, res.Timer)
	assert.Nil(t, res.Intent)
	assert.Equal(t, 650*time.Millisecond, res.Timer.After)
	return *res.Timer
}

func TestNew_DefaultsZeroConfig(t *testing.T) {
	c := New(domain.Item{ID: "a"}, Config{})
	assert.Equal(t, DefaultConfig(), c.Config())
}

func TestTap_CyclesState(t *testing.T) {
	c := createTestController()
	press(t, c, 100, 20, 0)

	res := c.Handle(TouchEnd{At: at(80)})
	require.NotNil(t, res.Intent)
	assert.Equal(t, IntentCycleState, res.Intent.Kind)
	assert.Equal(t, "milk", res.Intent.ItemID)
	assert.Equal(t, Idle, c.View().Phase)
}

func TestTap_JitterIsNotASwipe(t *testing.T) {
	c := createTestController()
	press(t, c, 100, 20, 0)
	c.Handle(TouchMove{X: 106, Y: 24, At: at(40)})
	assert.True(t, c.View().Pressed)
	assert.Equal(t, 0.0, c.View().Offset)

	res := c.Handle(TouchEnd{At: at(90)})
	require.NotNil(t, res.Intent)
	assert.Equal(t, IntentCycleState, res.Intent.Kind)
}

func TestSwipe_OpensPastHalfReveal(t *testing.T) {
	c := createTestController()
	press(t, c, 100, 20, 0)

	c.Handle(TouchMove{X: 40, Y: 22, At: at(50)})
	v := c.View()
	assert.Equal(t, Swiping, v.Phase)
	assert.Equal(t, -60.0, v.Offset)

	res := c.Handle(TouchEnd{At: at(100)})
	assert.Nil(t, res.Intent)
	v = c.View()
	assert.True(t, v.Open)
	assert.Equal(t, -72.0, v.Offset)
}

func TestSwipe_OffsetIsClamped(t *testing.T) {
	c := createTestController()
	press(t, c, 200, 20, 0)

	c.Handle(TouchMove{X: 0, Y: 20, At: at(50)})
	assert.Equal(t, -72.0, c.View().Offset)

	c.Handle(TouchMove{X: 260, Y: 20, At: at(60)})
	assert.Equal(t, 0.0, c.View().Offset)
}

func TestSwipe_ShortSwipeSnapsClosed(t *testing.T) {
	c := createTestController()
	press(t, c, 100, 20, 0)

	c.Handle(TouchMove{X: 70, Y: 20, At: at(50)})
	assert.Equal(t, -30.0, c.View().Offset)

	res := c.Handle(TouchEnd{At: at(100)})
	assert.Nil(t, res.Intent)
	assert.Equal(t, Idle, c.View().Phase)
	assert.Equal(t, 0.0, c.View().Offset)
}

func TestSwipe_ExactlyHalfOpens(t *testing.T) {
	c := createTestController()
	press(t, c, 100, 20, 0)
	c.Handle(TouchMove{X: 64, Y: 20, At: at(50)})
	c.Handle(TouchEnd{At: at(100)})
	assert.True(t, c.View().Open)
}

func TestSwipe_CancelsLongPress(t *testing.T) {
	c := createTestController()
	timer := press(t, c, 100, 20, 0)
	c.Handle(TouchMove{X: 50, Y: 20, At: at(100)})

	c.Handle(TimerFired{Token: timer.Token, At: at(650)})
	assert.False(t, c.View().Editing)
}

func TestTapWhileOpen_Closes(t *testing.T) {
	c := createTestController()
	press(t, c, 100, 20, 0)
	c.Handle(TouchMove{X: 20, Y: 20, At: at(50)})
	c.Handle(TouchEnd{At: at(100)})
	require.True(t, c.View().Open)

	res := c.Handle(TouchStart{X: 60, Y: 20, At: at(1000)})
	assert.Nil(t, res.Timer, "a revealed row does not arm a long press")
	res = c.Handle(TouchEnd{At: at(1050)})
	assert.Nil(t, res.Intent)
	assert.Equal(t, Idle, c.View().Phase)
	assert.Equal(t, 0.0, c.View().Offset)
}

func TestSwipeBackFromOpen_Closes(t *testing.T) {
	c := createTestController()
	c.Handle(Reveal{})
	require.True(t, c.View().Open)

	c.Handle(TouchStart{X: 50, Y: 20, At: at(0)})
	c.Handle(TouchMove{X: 100, Y: 20, At: at(40)})
	assert.Equal(t, -22.0, c.View().Offset)

	c.Handle(TouchEnd{At: at(80)})
	assert.False(t, c.View().Open)
	assert.Equal(t, 0.0, c.View().Offset)
}

func TestScroll_ResetsAndStopsTracking(t *testing.T) {
	c := createTestController()
	timer := press(t, c, 100, 20, 0)

	c.Handle(TouchMove{X: 95, Y: 60, At: at(50)})
	v := c.View()
	assert.Equal(t, Scrolling, v.Phase)
	assert.Equal(t, 0.0, v.Offset)

	// Tracking stays off for the rest of the stream
	c.Handle(TouchMove{X: 10, Y: 62, At: at(80)})
	assert.Equal(t, 0.0, c.View().Offset)

	// The timer was cancelled by the scroll
	c.Handle(TimerFired{Token: timer.Token, At: at(650)})
	assert.False(t, c.View().Editing)

	res := c.Handle(TouchEnd{At: at(700)})
	assert.Nil(t, res.Intent)
	assert.Equal(t, Idle, c.View().Phase)
}

func TestScroll_MidSwipe(t *testing.T) {
	c := createTestController()
	press(t, c, 100, 20, 0)
	c.Handle(TouchMove{X: 70, Y: 20, At: at(30)})
	require.Equal(t, Swiping, c.View().Phase)

	c.Handle(TouchMove{X: 90, Y: 80, At: at(60)})
	assert.Equal(t, Scrolling, c.View().Phase)
	assert.Equal(t, 0.0, c.View().Offset)
}

func TestLongPress_EntersEditing(t *testing.T) {
	c := createTestController()
	timer := press(t, c, 100, 20, 0)
	c.Handle(TouchMove{X: 103, Y: 18, At: at(300)})

	res := c.Handle(TimerFired{Token: timer.Token, At: at(650)})
	assert.Nil(t, res.Intent)

	v := c.View()
	assert.True(t, v.Editing)
	assert.Equal(t, "Milk", v.DraftName)
	assert.Equal(t, "2%", v.DraftNote)

	// Lifting the finger does not cycle the state
	res = c.Handle(TouchEnd{At: at(700)})
	assert.Nil(t, res.Intent)
	assert.True(t, c.View().Editing)
}

func TestLongPress_StaleTokenIgnored(t *testing.T) {
	c := createTestController()
	first := press(t, c, 100, 20, 0)
	c.Handle(TouchEnd{At: at(100)})

	second := press(t, c, 100, 20, 500)
	assert.NotEqual(t, first.Token, second.Token)

	// The first stream's timer lands during the second press
	res := c.Handle(TimerFired{Token: first.Token, At: at(650)})
	assert.Nil(t, res.Intent)
	assert.Equal(t, Pressing, c.View().Phase)

	c.Handle(TimerFired{Token: second.Token, At: at(1150)})
	assert.True(t, c.View().Editing)
}

func TestLongPress_TimerAfterTapIgnored(t *testing.T) {
	c := createTestController()
	timer := press(t, c, 100, 20, 0)
	c.Handle(TouchEnd{At: at(100)})

	c.Handle(TimerFired{Token: timer.Token, At: at(650)})
	assert.False(t, c.View().Editing)
	assert.Equal(t, Idle, c.View().Phase)
}

func TestLongPress_ActionSinceArmingCancels(t *testing.T) {
	c := createTestController()
	timer := press(t, c, 100, 20, 0)

	res := c.Handle(TogglePin{At: at(200)})
	require.NotNil(t, res.Intent)

	c.Handle(TimerFired{Token: timer.Token, At: at(650)})
	assert.False(t, c.View().Editing)
}

func TestLongPress_ReorderSinceArmingCancels(t *testing.T) {
	c := createTestController()
	timer := press(t, c, 100, 20, 0)

	res := c.Handle(Reorder{Up: true, At: at(100)})
	require.NotNil(t, res.Intent)
	assert.Equal(t, IntentMoveUp, res.Intent.Kind)

	res = c.Handle(TimerFired{Token: timer.Token, At: at(650)})
	assert.Nil(t, res.Intent)
	assert.NotEqual(t, Editing, c.View().Phase)
}

func TestEdit_Confirm(t *testing.T) {
	c := createTestController()
	c.Handle(StartEdit{})
	require.True(t, c.View().Editing)

	res := c.Handle(EditConfirm{Name: "  Oat milk ", Note: "   ", At: at(0)})
	require.NotNil(t, res.Intent)
	assert.Equal(t, IntentUpdate, res.Intent.Kind)
	assert.Equal(t, "Oat milk", res.Intent.Name)
	assert.Nil(t, res.Intent.Note)
	assert.False(t, c.View().Editing)
}

func TestEdit_ConfirmKeepsNote(t *testing.T) {
	c := createTestController()
	c.Handle(StartEdit{})

	res := c.Handle(EditConfirm{Name: "Milk", Note: " whole ", At: at(0)})
	require.NotNil(t, res.Intent)
	require.NotNil(t, res.Intent.Note)
	assert.Equal(t, "whole", *res.Intent.Note)
}

func TestEdit_BlankNameStaysEditing(t *testing.T) {
	c := createTestController()
	c.Handle(StartEdit{})

	res := c.Handle(EditConfirm{Name: "   ", Note: "x", At: at(0)})
	assert.Nil(t, res.Intent)
	v := c.View()
	assert.True(t, v.Editing)
	assert.Equal(t, "   ", v.DraftName)
	assert.Equal(t, "x", v.DraftNote)

	// The rejected confirm does not start a cooldown
	res = c.Handle(EditConfirm{Name: "Milk", At: at(50)})
	require.NotNil(t, res.Intent)
}

func TestEdit_CancelRestoresCurrentItem(t *testing.T) {
	c := createTestController()
	c.Handle(StartEdit{})
	c.Handle(EditConfirm{Name: "", Note: "scratch", At: at(0)})

	// The item changed remotely while editing
	c.SetItem(domain.Item{ID: "milk", Name: "Whole milk", State: domain.StateLow})
	assert.Equal(t, "", c.View().DraftName, "drafts are not clobbered mid-edit")

	res := c.Handle(EditCancel{At: at(100)})
	assert.Nil(t, res.Intent)
	v := c.View()
	assert.False(t, v.Editing)
	assert.Equal(t, "Whole milk", v.DraftName)
	assert.Equal(t, "", v.DraftNote)
}

func TestEdit_IgnoresRowActions(t *testing.T) {
	c := createTestController()
	c.Handle(StartEdit{})

	assert.Nil(t, c.Handle(Delete{At: at(0)}).Intent)
	assert.Nil(t, c.Handle(TogglePin{At: at(0)}).Intent)
	assert.Nil(t, c.Handle(Tap{At: at(0)}).Intent)
	assert.Nil(t, c.Handle(TouchStart{X: 1, Y: 1, At: at(0)}).Timer)
	assert.True(t, c.View().Editing)
}

func TestPicker(t *testing.T) {
	c := createTestController()
	c.Handle(OpenPicker{})
	require.True(t, c.View().Picking)

	res := c.Handle(PickState{State: domain.StateLow, At: at(0)})
	require.NotNil(t, res.Intent)
	assert.Equal(t, IntentSetState, res.Intent.Kind)
	assert.Equal(t, domain.StateLow, res.Intent.State)
	assert.False(t, c.View().Picking)
}

func TestPicker_CurrentStateEmitsNothing(t *testing.T) {
	c := createTestController()
	c.Handle(OpenPicker{})

	res := c.Handle(PickState{State: domain.StateNeed, At: at(0)})
	assert.Nil(t, res.Intent)
	assert.False(t, c.View().Picking)
}

func TestPicker_OutsideTapCloses(t *testing.T) {
	c := createTestController()
	c.Handle(OpenPicker{})
	c.Handle(OutsideTap{})
	assert.False(t, c.View().Picking)

	// A pick with the picker closed is ignored
	assert.Nil(t, c.Handle(PickState{State: domain.StateOK, At: at(0)}).Intent)
}

func TestCooldown_DuplicateDelete(t *testing.T) {
	c := createTestController()

	first := c.Handle(Delete{At: at(0)})
	second := c.Handle(Delete{At: at(150)})
	require.NotNil(t, first.Intent)
	assert.Equal(t, IntentDelete, first.Intent.Kind)
	assert.Nil(t, second.Intent)

	third := c.Handle(Delete{At: at(400)})
	assert.NotNil(t, third.Intent, "cooldown has elapsed")
}

func TestCooldown_IsPerActionClass(t *testing.T) {
	c := createTestController()

	assert.NotNil(t, c.Handle(TogglePin{At: at(0)}).Intent)
	assert.Nil(t, c.Handle(TogglePin{At: at(100)}).Intent)
	assert.NotNil(t, c.Handle(Reorder{Up: true, At: at(100)}).Intent)
	assert.NotNil(t, c.Handle(Delete{At: at(120)}).Intent)
}

func TestTap_NoCooldown(t *testing.T) {
	c := createTestController()
	assert.NotNil(t, c.Handle(Tap{At: at(0)}).Intent)
	assert.NotNil(t, c.Handle(Tap{At: at(300)}).Intent)
}

func TestReorder(t *testing.T) {
	c := createTestController()

	res := c.Handle(Reorder{Up: true, At: at(0)})
	require.NotNil(t, res.Intent)
	assert.Equal(t, IntentMoveUp, res.Intent.Kind)

	res = c.Handle(Reorder{Up: false, At: at(500)})
	require.NotNil(t, res.Intent)
	assert.Equal(t, IntentMoveDown, res.Intent.Kind)
}

func TestDelete_ClosesRevealedRow(t *testing.T) {
	c := createTestController()
	c.Handle(Reveal{})
	require.True(t, c.View().Open)

	res := c.Handle(Delete{At: at(0)})
	require.NotNil(t, res.Intent)
	assert.False(t, c.View().Open)
}

func TestRevealAndClose(t *testing.T) {
	c := createTestController()
	c.Handle(Reveal{})
	assert.Equal(t, -72.0, c.View().Offset)
	c.Handle(Close{})
	assert.Equal(t, Idle, c.View().Phase)
	c.Handle(Reveal{})
	c.Handle(Reveal{})
	assert.Equal(t, Idle, c.View().Phase)
}

func TestOneIntentPerTouchStream(t *testing.T) {
	// Each stream below must produce at most one intent, whatever its shape
	streams := map[string][]Event{
		"tap":        {TouchStart{X: 0, Y: 0, At: at(0)}, TouchEnd{At: at(50)}},
		"swipe":      {TouchStart{X: 100, Y: 0, At: at(0)}, TouchMove{X: 0, Y: 0, At: at(30)}, TouchEnd{At: at(60)}},
		"scroll":     {TouchStart{X: 0, Y: 0, At: at(0)}, TouchMove{X: 0, Y: 90, At: at(30)}, TouchEnd{At: at(60)}},
		"long press": {TouchStart{X: 0, Y: 0, At: at(0)}, TimerFired{Token: 1, At: at(650)}, TouchEnd{At: at(900)}},
		"wobble": {
			TouchStart{X: 50, Y: 50, At: at(0)},
			TouchMove{X: 30, Y: 52, At: at(20)},
			TouchMove{X: 60, Y: 49, At: at(40)},
			TouchMove{X: 55, Y: 51, At: at(60)},
			TouchEnd{At: at(80)},
		},
	}

	for name, events := range streams {
		t.Run(name, func(t *testing.T) {
			c := createTestController()
			intents := 0
			for _, ev := range events {
				if res := c.Handle(ev); res.Intent != nil {
					intents++
				}
			}
			assert.LessOrEqual(t, intents, 1)
		})
	}
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "editing", Editing.String())
	assert.Equal(t, "scrolling", Scrolling.String())
}
