package tui

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robby/homestock/internal/domain"
	"github.com/robby/homestock/internal/logging"
	"github.com/robby/homestock/internal/remote"
	"github.com/robby/homestock/internal/store"
)

var testNow = time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)

// fakeTable is an in-memory remote.Table that records writes.
type fakeTable struct {
	mu       sync.Mutex
	items    []domain.Item
	fetchErr error
	writeErr error

	inserts []domain.NewItem
	updates []string
	bulk    [][]string
	deletes []string
}

func (f *fakeTable) FetchAll(ctx context.Context) ([]domain.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	out := make([]domain.Item, len(f.items))
	for i, item := range f.items {
		out[i] = item.Clone()
	}
	return out, nil
}

func (f *fakeTable) Insert(ctx context.Context, item domain.NewItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.inserts = append(f.inserts, item)
	return nil
}

func (f *fakeTable) Update(ctx context.Context, id string, fields remote.Fields) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.updates = append(f.updates, id)
	return nil
}

func (f *fakeTable) UpdateMany(ctx context.Context, ids []string, fields remote.Fields) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.bulk = append(f.bulk, ids)
	return nil
}

func (f *fakeTable) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.deletes = append(f.deletes, id)
	return nil
}

func (f *fakeTable) Subscribe(ctx context.Context) (<-chan struct{}, error) {
	return nil, remote.ErrNoFeed
}

func pin(n int64) *int64 { return &n }

// createTestItems returns rows that sort and group as
// Pinned [rice tea], Need [milk], Low [salt], OK [eggs].
func createTestItems() []domain.Item {
	return []domain.Item{
		{ID: "milk", Name: "Milk", State: domain.StateNeed, CreatedOrder: 1},
		{ID: "eggs", Name: "Eggs", State: domain.StateOK, CreatedOrder: 2},
		{ID: "salt", Name: "Salt", State: domain.StateLow, CreatedOrder: 7},
		{ID: "rice", Name: "Rice", State: domain.StateOK, Pinned: true, PinOrder: pin(1), CreatedOrder: 3},
		{ID: "tea", Name: "Tea", State: domain.StateLow, Pinned: true, PinOrder: pin(3), CreatedOrder: 4},
	}
}

// createTestApp returns a sized app over a loaded store.
func createTestApp(t *testing.T, items []domain.Item) (AppModel, *fakeTable) {
	t.Helper()
	table := &fakeTable{items: items}
	s := store.New(table, store.WithClock(func() time.Time { return testNow }))
	require.NoError(t, s.Load(context.Background()))

	m := NewAppModel(context.Background(), s, Options{})
	m.dashboard.now = func() time.Time { return testNow }
	m = send(t, m, tea.WindowSizeMsg{Width: 80, Height: 25})
	return m, table
}

func update(t *testing.T, m AppModel, msg tea.Msg) (AppModel, tea.Cmd) {
	t.Helper()
	model, cmd := m.Update(msg)
	app, ok := model.(AppModel)
	require.True(t, ok)
	return app, cmd
}

// send applies msgs in order, discarding the commands they return.
func send(t *testing.T, m AppModel, msgs ...tea.Msg) AppModel {
	t.Helper()
	for _, msg := range msgs {
		m, _ = update(t, m, msg)
	}
	return m
}

// runCmd executes cmd and flattens batches. Only use it on commands that
// contain no ticks.
func runCmd(t *testing.T, cmd tea.Cmd) []tea.Msg {
	t.Helper()
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, runCmd(t, c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func keyPress(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "space":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func mouse(action tea.MouseAction, x, y int) tea.MouseMsg {
	return tea.MouseMsg{X: x, Y: y, Action: action, Button: tea.MouseButtonLeft}
}

// rowY returns the screen row of an item line.
func rowY(t *testing.T, m AppModel, id string) int {
	t.Helper()
	for i, l := range m.dashboard.lines {
		if l.kind == lineItem && l.itemID == id {
			return headerLines + i - m.dashboard.scroll
		}
	}
	t.Fatalf("no line for %s", id)
	return 0
}

// selectItem moves the cursor onto id.
func selectItem(t *testing.T, m AppModel, id string) AppModel {
	t.Helper()
	for i, l := range m.dashboard.lines {
		if l.kind == lineItem && l.itemID == id {
			m.dashboard.cursor = i
			return m
		}
	}
	t.Fatalf("no line for %s", id)
	return m
}

func mustGet(t *testing.T, m AppModel, id string) domain.Item {
	t.Helper()
	item, err := m.store.Get(id)
	require.NoError(t, err)
	return item
}

func lineSummary(lines []line) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		if l.kind == lineSection {
			out[i] = string(l.section.Key)
		} else {
			out[i] = l.itemID
		}
	}
	return out
}

func TestDashboard_Sections(t *testing.T) {
	m, _ := createTestApp(t, createTestItems())

	// Low and OK start collapsed
	assert.Equal(t, []string{"pinned", "rice", "tea", "need", "milk", "low", "ok"}, lineSummary(m.dashboard.lines))
	assert.Equal(t, 2, m.dashboard.lines[0].count)
	assert.Len(t, m.dashboard.rows, 5)

	view := m.View()
	assert.Contains(t, view, "Pinned (2)")
	assert.Contains(t, view, "Low (1)")
	assert.NotContains(t, view, "Salt")
}

func TestDashboard_ToggleSection(t *testing.T) {
	m, _ := createTestApp(t, createTestItems())

	m = send(t, m, keyPress("enter"))
	assert.Equal(t, []string{"pinned", "need", "milk", "low", "ok"}, lineSummary(m.dashboard.lines))

	// Open Low with the mouse
	m = send(t, m, mouse(tea.MouseActionPress, 4, headerLines+3))
	assert.Equal(t, []string{"pinned", "need", "milk", "low", "salt", "ok"}, lineSummary(m.dashboard.lines))
}

func TestDashboard_EmptySectionsHidden(t *testing.T) {
	m, _ := createTestApp(t, []domain.Item{
		{ID: "milk", Name: "Milk", State: domain.StateNeed, CreatedOrder: 1},
	})
	assert.Equal(t, []string{"need", "milk"}, lineSummary(m.dashboard.lines))
}

func TestDashboard_EmptyState(t *testing.T) {
	m, _ := createTestApp(t, nil)
	assert.Contains(t, m.View(), "No items yet. Add one below.")
}

func TestDashboard_LoadingUntilFirstFetch(t *testing.T) {
	table := &fakeTable{fetchErr: errors.New("offline")}
	s := store.New(table)
	m := NewAppModel(context.Background(), s, Options{})
	assert.Contains(t, m.View(), "Loading...")

	msgs := runCmd(t, m.run.refetch())
	m = send(t, m, msgs...)
	assert.Contains(t, m.View(), "Loading...")
	assert.Equal(t, store.MsgNetwork, m.toast)

	table.fetchErr = nil
	table.items = createTestItems()
	m = send(t, m, runCmd(t, m.run.refetch())...)
	assert.NotContains(t, m.View(), "Loading...")
	assert.Len(t, m.dashboard.rows, 5)
}

func TestDashboard_TapCyclesState(t *testing.T) {
	m, table := createTestApp(t, createTestItems())

	m, cmd := update(t, m, keyPress("j"))
	assert.Nil(t, cmd)
	m, cmd = update(t, m, keyPress("enter"))
	require.NotNil(t, cmd)

	// Applied before the write lands
	assert.Equal(t, domain.StateLow, mustGet(t, m, "rice").State)
	assert.True(t, m.store.Pending("rice"))

	m = send(t, m, runCmd(t, cmd)...)
	assert.False(t, m.store.Pending("rice"))
	assert.Equal(t, []string{"rice"}, table.updates)
	assert.Empty(t, m.toast)
}

func TestDashboard_PendingRowIgnoresStateChanges(t *testing.T) {
	m, table := createTestApp(t, createTestItems())
	m = selectItem(t, m, "rice")

	m, cmd := update(t, m, keyPress("enter"))
	require.NotNil(t, cmd)
	require.True(t, m.store.Pending("rice"))

	// Well past the cooldown but the first write has not settled
	m.dashboard.now = func() time.Time { return testNow.Add(500 * time.Millisecond) }
	m, second := update(t, m, keyPress("enter"))
	assert.Nil(t, second)
	assert.Equal(t, domain.StateLow, mustGet(t, m, "rice").State)

	m = send(t, m, keyPress("s"), keyPress("1"))
	assert.Equal(t, domain.StateLow, mustGet(t, m, "rice").State)

	m = send(t, m, runCmd(t, cmd)...)
	assert.False(t, m.store.Pending("rice"))
	assert.Equal(t, []string{"rice"}, table.updates)

	// Settled rows cycle again
	m, cmd = update(t, m, keyPress("enter"))
	require.NotNil(t, cmd)
	assert.Equal(t, domain.StateNeed, mustGet(t, m, "rice").State)
}

func TestDashboard_FailedWriteRollsBackWithToast(t *testing.T) {
	m, table := createTestApp(t, createTestItems())
	table.writeErr = errors.New("offline")

	m = selectItem(t, m, "rice")
	m, cmd := update(t, m, keyPress("enter"))
	assert.Equal(t, domain.StateLow, mustGet(t, m, "rice").State)

	m = send(t, m, runCmd(t, cmd)...)
	assert.Equal(t, domain.StateOK, mustGet(t, m, "rice").State)
	assert.Equal(t, store.MsgSaveFailed, m.toast)
	assert.True(t, m.toastErr)
	assert.Contains(t, m.View(), store.MsgSaveFailed)

	// Only the latest toast's timer clears it
	m = send(t, m, toastExpiredMsg{token: m.toastToken - 1})
	assert.NotEmpty(t, m.toast)
	m = send(t, m, toastExpiredMsg{token: m.toastToken})
	assert.Empty(t, m.toast)
}

func TestApp_FailedWriteLoggedOnce(t *testing.T) {
	var buf bytes.Buffer
	prev := logging.Logger
	logging.Logger = slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	t.Cleanup(func() { logging.Logger = prev })

	m, table := createTestApp(t, createTestItems())
	table.writeErr = errors.New("offline")

	m = selectItem(t, m, "rice")
	m, cmd := update(t, m, keyPress("enter"))
	send(t, m, runCmd(t, cmd)...)

	assert.Equal(t, 1, strings.Count(buf.String(), `"msg":"op failed"`))
}

func TestDashboard_AddBar(t *testing.T) {
	m, table := createTestApp(t, createTestItems())

	m = send(t, m, keyPress("a"))
	assert.Equal(t, focusAdd, m.dashboard.focus)

	m = send(t, m, keyPress("  Bread "))
	m, cmd := update(t, m, keyPress("enter"))
	require.NotNil(t, cmd)
	assert.Empty(t, m.dashboard.addInput.Value(), "clears after submit")

	m = send(t, m, runCmd(t, cmd)...)
	require.Len(t, table.inserts, 1)
	assert.Equal(t, domain.NewItem{Name: "Bread", State: domain.StateLow, CreatedOrder: 8}, table.inserts[0])

	// Blank input is ignored
	m.dashboard.addInput.SetValue("   ")
	m, cmd = update(t, m, keyPress("enter"))
	assert.Nil(t, cmd)
	assert.Len(t, table.inserts, 1)

	m = send(t, m, keyPress("esc"))
	assert.Equal(t, focusList, m.dashboard.focus)
}

func TestDashboard_EditForm(t *testing.T) {
	m, table := createTestApp(t, createTestItems())
	m = selectItem(t, m, "milk")

	m = send(t, m, keyPress("e"))
	require.Equal(t, focusEdit, m.dashboard.focus)
	assert.Equal(t, "milk", m.dashboard.editID)
	assert.Equal(t, "Milk", m.dashboard.nameInput.Value())
	assert.Equal(t, []string{"pinned", "rice", "tea", "need", "milk", "milk", "milk", "low", "ok"}, lineSummary(m.dashboard.lines))

	// Blank name keeps the form open
	m.dashboard.nameInput.SetValue("  ")
	m, cmd := update(t, m, keyPress("enter"))
	assert.Nil(t, cmd)
	assert.Equal(t, focusEdit, m.dashboard.focus)

	m.dashboard.nameInput.SetValue("Oat milk")
	m.dashboard.noteInput.SetValue("   ")
	m, cmd = update(t, m, keyPress("enter"))
	require.NotNil(t, cmd)
	assert.Equal(t, focusList, m.dashboard.focus)

	item := mustGet(t, m, "milk")
	assert.Equal(t, "Oat milk", item.Name)
	assert.Nil(t, item.Note)

	m = send(t, m, runCmd(t, cmd)...)
	assert.Equal(t, []string{"milk"}, table.updates)
	assert.Equal(t, []string{"pinned", "rice", "tea", "need", "milk", "low", "ok"}, lineSummary(m.dashboard.lines))
}

func TestDashboard_EditCancel(t *testing.T) {
	m, table := createTestApp(t, createTestItems())
	m = selectItem(t, m, "milk")

	m = send(t, m, keyPress("e"))
	m.dashboard.nameInput.SetValue("Something else")
	m, cmd := update(t, m, keyPress("esc"))
	assert.Nil(t, cmd)
	assert.Equal(t, focusList, m.dashboard.focus)
	assert.Equal(t, "Milk", mustGet(t, m, "milk").Name)
	assert.Empty(t, table.updates)
}

func TestDashboard_PickerSetsState(t *testing.T) {
	m, _ := createTestApp(t, createTestItems())
	m = selectItem(t, m, "milk")

	m = send(t, m, keyPress("s"))
	require.Equal(t, focusPicker, m.dashboard.focus)
	assert.Equal(t, 0, m.dashboard.pickIdx, "starts on the current state")

	// Picking the current state changes nothing
	m, cmd := update(t, m, keyPress("enter"))
	assert.Nil(t, cmd)
	assert.Equal(t, focusList, m.dashboard.focus)

	m = send(t, m, keyPress("s"))
	m, cmd = update(t, m, keyPress("3"))
	require.NotNil(t, cmd)
	assert.Equal(t, domain.StateOK, mustGet(t, m, "milk").State)
	assert.Equal(t, focusList, m.dashboard.focus)
}

func TestDashboard_PickerClosesOnOutsideTap(t *testing.T) {
	m, _ := createTestApp(t, createTestItems())

	// Clicking the badge opens the picker
	m = send(t, m, mouse(tea.MouseActionPress, cursorWidth+1, rowY(t, m, "milk")))
	require.Equal(t, focusPicker, m.dashboard.focus)
	assert.Equal(t, "milk", m.dashboard.pickID)

	m, cmd := update(t, m, mouse(tea.MouseActionPress, 60, headerLines))
	assert.Nil(t, cmd)
	assert.Equal(t, focusList, m.dashboard.focus)
	assert.Equal(t, domain.StateNeed, mustGet(t, m, "milk").State)
}

func TestDashboard_PickerMouseSelect(t *testing.T) {
	m, _ := createTestApp(t, createTestItems())
	m = send(t, m, mouse(tea.MouseActionPress, cursorWidth+1, rowY(t, m, "milk")))

	var low pickerSegment
	for _, seg := range pickerSegments() {
		if seg.state == domain.StateLow {
			low = seg
		}
	}
	m, cmd := update(t, m, mouse(tea.MouseActionPress, low.from, rowY(t, m, "milk")+1))
	require.NotNil(t, cmd)
	assert.Equal(t, domain.StateLow, mustGet(t, m, "milk").State)
}

func TestDashboard_SwipeRevealsDelete(t *testing.T) {
	m, table := createTestApp(t, createTestItems())
	y := rowY(t, m, "milk")

	m, cmd := update(t, m, mouse(tea.MouseActionPress, 50, y))
	assert.NotNil(t, cmd, "long press timer armed")
	m = send(t, m, mouse(tea.MouseActionMotion, 40, y))
	m, cmd = update(t, m, mouse(tea.MouseActionRelease, 40, y))
	assert.Nil(t, cmd)

	v := m.dashboard.rows["milk"].View()
	assert.True(t, v.Open)
	assert.Equal(t, -72.0, v.Offset)
	assert.Contains(t, m.View(), "Delete")

	m, cmd = update(t, m, keyPress("d"))
	require.NotNil(t, cmd)
	_, err := m.store.Get("milk")
	assert.ErrorIs(t, err, store.ErrItemNotFound)
	assert.NotContains(t, m.dashboard.rows, "milk")

	m = send(t, m, runCmd(t, cmd)...)
	assert.Equal(t, []string{"milk"}, table.deletes)
	assert.Empty(t, m.store.PendingIDs())
}

func TestDashboard_DeleteNeedsReveal(t *testing.T) {
	m, table := createTestApp(t, createTestItems())
	m = selectItem(t, m, "milk")

	m, cmd := update(t, m, keyPress("d"))
	assert.Nil(t, cmd)

	m = send(t, m, keyPress("x"))
	assert.True(t, m.dashboard.rows["milk"].View().Open)
	m, cmd = update(t, m, keyPress("d"))
	require.NotNil(t, cmd)
	runCmd(t, cmd)
	assert.Equal(t, []string{"milk"}, table.deletes)
}

func TestDashboard_VerticalDragIsScroll(t *testing.T) {
	m, _ := createTestApp(t, createTestItems())
	y := rowY(t, m, "milk")

	m = send(t, m,
		mouse(tea.MouseActionPress, 30, y),
		mouse(tea.MouseActionMotion, 30, y+2),
	)
	m, cmd := update(t, m, mouse(tea.MouseActionRelease, 30, y+2))
	assert.Nil(t, cmd)
	assert.Equal(t, domain.StateNeed, mustGet(t, m, "milk").State)
	assert.True(t, gestureIdle(m, "milk"))
}

func gestureIdle(m AppModel, id string) bool {
	v := m.dashboard.rows[id].View()
	return !v.Open && !v.Pressed && !v.Editing && v.Offset == 0
}

func TestDashboard_MouseTapCycles(t *testing.T) {
	m, _ := createTestApp(t, createTestItems())
	y := rowY(t, m, "rice")

	m = send(t, m, mouse(tea.MouseActionPress, 30, y))
	m, cmd := update(t, m, mouse(tea.MouseActionRelease, 30, y))
	require.NotNil(t, cmd)
	assert.Equal(t, domain.StateLow, mustGet(t, m, "rice").State)
}

func TestDashboard_LongPressOpensEditor(t *testing.T) {
	m, _ := createTestApp(t, createTestItems())
	y := rowY(t, m, "milk")

	m = send(t, m, mouse(tea.MouseActionPress, 30, y))
	assert.Equal(t, "milk", m.dashboard.pressID)

	m = send(t, m, longPressMsg{itemID: "milk", token: 99, at: testNow.Add(time.Second)})
	assert.Equal(t, focusList, m.dashboard.focus, "stale token")

	m = send(t, m, longPressMsg{itemID: "milk", token: 1, at: testNow.Add(650 * time.Millisecond)})
	require.Equal(t, focusEdit, m.dashboard.focus)
	assert.Equal(t, "milk", m.dashboard.editID)
	assert.Equal(t, "Milk", m.dashboard.nameInput.Value())
	assert.Empty(t, m.dashboard.pressID)

	// Releasing after the long press does not tap
	m, cmd := update(t, m, mouse(tea.MouseActionRelease, 30, y))
	assert.Nil(t, cmd)
	assert.Equal(t, domain.StateNeed, mustGet(t, m, "milk").State)
}

func TestDashboard_PinAndReorder(t *testing.T) {
	m, table := createTestApp(t, createTestItems())
	m = selectItem(t, m, "tea")

	m, cmd := update(t, m, keyPress("K"))
	require.NotNil(t, cmd)
	assert.Equal(t, []string{"pinned", "tea", "rice", "need", "milk", "low", "ok"}, lineSummary(m.dashboard.lines))
	assert.Equal(t, "tea", m.dashboard.lines[m.dashboard.cursor].itemID, "cursor follows the row")

	m = send(t, m, runCmd(t, cmd)...)
	assert.ElementsMatch(t, []string{"tea", "rice"}, table.updates)

	// Top row has nothing above it
	m.dashboard.now = func() time.Time { return testNow.Add(time.Second) }
	m, cmd = update(t, m, keyPress("K"))
	assert.Nil(t, cmd)

	m = selectItem(t, m, "milk")
	m, cmd = update(t, m, keyPress("p"))
	require.NotNil(t, cmd)
	milk := mustGet(t, m, "milk")
	assert.True(t, milk.Pinned)
	require.NotNil(t, milk.PinOrder)
	assert.Equal(t, int64(4), *milk.PinOrder)
}

func TestApp_ChangeFeed(t *testing.T) {
	m, _ := createTestApp(t, createTestItems())

	m, cmd := update(t, m, subscribedMsg{err: remote.ErrNoFeed})
	assert.Nil(t, cmd)
	assert.Nil(t, m.feed)

	ch := make(chan struct{}, 1)
	m, cmd = update(t, m, subscribedMsg{ch: ch})
	require.NotNil(t, cmd)

	ch <- struct{}{}
	assert.Equal(t, changedMsg{}, cmd())
	close(ch)
	assert.Equal(t, feedClosedMsg{}, cmd())

	m, cmd = update(t, m, changedMsg{})
	assert.NotNil(t, cmd)
	m = send(t, m, feedClosedMsg{})
	assert.Nil(t, m.feed)
}

func TestApp_FetchReplacesRows(t *testing.T) {
	m, table := createTestApp(t, createTestItems())

	table.items = append(table.items, domain.Item{ID: "bread", Name: "Bread", State: domain.StateNeed, CreatedOrder: 8})
	m = send(t, m, runCmd(t, m.run.refetch())...)

	assert.Contains(t, m.dashboard.rows, "bread")
	assert.Equal(t, []string{"pinned", "rice", "tea", "need", "milk", "bread", "low", "ok"}, lineSummary(m.dashboard.lines))

	// A fetch missing a row drops its controller
	table.items = table.items[1:]
	m = send(t, m, runCmd(t, m.run.refetch())...)
	assert.NotContains(t, m.dashboard.rows, "milk")
}

func TestApp_AddRefetchesOnSuccess(t *testing.T) {
	m, _ := createTestApp(t, createTestItems())

	op, err := m.store.AddItem("Bread")
	require.NoError(t, err)
	_, cmd := update(t, m, opSettledMsg{op: op})
	assert.NotNil(t, cmd)
}
