package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
	"github.com/pkg/browser"

	"github.com/robby/homestock/internal/domain"
	"github.com/robby/homestock/internal/gesture"
	"github.com/robby/homestock/internal/logging"
	"github.com/robby/homestock/internal/store"
)

// Layout constants
const (
	headerLines  = 2 // Title line + hint line
	footerLines  = 1 // Add bar
	cursorWidth  = 2 // "> " prefix
	badgeWidth   = 5
	pickerIndent = 4
	deleteLabel  = "Delete"
)

// errRowPending rejects a state change on a row with a write in flight.
var errRowPending = errors.New("row has a pending write")

// Options configures the dashboard.
type Options struct {
	Gesture       gesture.Config
	CellWidth     float64 // Gesture units per terminal column
	CellHeight    float64 // Gesture units per terminal row
	ToastDuration time.Duration
	DashboardURL  string
	Timeout       time.Duration // Per remote call, 0 for none
}

func (o Options) withDefaults() Options {
	if o.CellWidth <= 0 {
		o.CellWidth = 8
	}
	if o.CellHeight <= 0 {
		o.CellHeight = 16
	}
	if o.ToastDuration <= 0 {
		o.ToastDuration = 3 * time.Second
	}
	return o
}

type lineKind int

const (
	lineSection lineKind = iota
	lineItem
	linePicker
	lineEditName
	lineEditNote
)

// line is one rendered row of the accordion.
type line struct {
	kind    lineKind
	section domain.Section
	count   int
	itemID  string
}

// selectable reports whether the cursor may rest on l.
func (l line) selectable() bool {
	return l.kind == lineSection || l.kind == lineItem
}

type focus int

const (
	focusList focus = iota
	focusAdd
	focusEdit
	focusPicker
)

// DashboardModel is the accordion of stock sections with one gesture
// controller per row.
type DashboardModel struct {
	// Dependencies
	store *store.Store
	run   runner
	opts  Options
	now   func() time.Time

	// UI components
	keymap    KeyMap
	help      HelpModel
	spinner   spinner.Model
	addInput  textinput.Model
	nameInput textinput.Model
	noteInput textinput.Model

	// Row state
	rows     map[string]*gesture.Controller
	expanded map[domain.SectionKey]bool
	lines    []line

	// View state
	cursor   int
	scroll   int
	focus    focus
	editID   string // Row whose edit form is open
	pickID   string // Row whose state picker is open
	pickIdx  int
	pressID  string // Row receiving the current pointer stream
	width    int
	height   int
	showHelp bool
}

// NewDashboardModel creates a dashboard over s.
func NewDashboardModel(s *store.Store, r runner, opts Options) DashboardModel {
	opts = opts.withDefaults()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	add := textinput.New()
	add.Placeholder = "Add an item..."
	add.Prompt = "+ "
	add.PromptStyle = PromptStyle
	add.CharLimit = 120

	name := textinput.New()
	name.Prompt = "Name: "
	name.PromptStyle = PromptStyle
	name.CharLimit = 120

	note := textinput.New()
	note.Prompt = "Note: "
	note.PromptStyle = PromptStyle
	note.Placeholder = "optional"
	note.CharLimit = 240

	expanded := make(map[domain.SectionKey]bool, len(domain.Sections))
	for _, sec := range domain.Sections {
		expanded[sec.Key] = sec.DefaultOpen
	}

	m := DashboardModel{
		store:     s,
		run:       r,
		opts:      opts,
		now:       time.Now,
		keymap:    DefaultKeyMap(),
		help:      NewHelpModel(DefaultKeyMap()),
		spinner:   sp,
		addInput:  add,
		nameInput: name,
		noteInput: note,
		rows:      make(map[string]*gesture.Controller),
		expanded:  expanded,
	}
	m.refresh()
	return m
}

// Init starts the spinner.
func (m DashboardModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tea.WindowSize())
}

// Update handles messages
func (m DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.addInput.Width = msg.Width - 4
		(&m).adjustScroll()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case longPressMsg:
		if _, ok := m.rows[msg.itemID]; !ok {
			return m, nil
		}
		cmd := (&m).dispatch(msg.itemID, gesture.TimerFired{Token: msg.token, At: msg.at})
		return m, cmd

	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)
	}

	return m, nil
}

// handleKeyPress processes keyboard input
func (m DashboardModel) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keymap.ForceQuit) {
		return m, tea.Quit
	}

	// Help overlay
	if m.showHelp {
		if key.Matches(msg, m.keymap.Help, m.keymap.Quit, m.keymap.Cancel) {
			m.showHelp = false
		}
		return m, nil
	}

	switch m.focus {
	case focusAdd:
		return m.handleAddKey(msg)
	case focusEdit:
		return m.handleEditKey(msg)
	case focusPicker:
		return m.handlePickerKey(msg)
	}

	cur, hasLine := m.currentLine()
	onItem := hasLine && cur.kind == lineItem
	now := m.now()

	switch {
	case key.Matches(msg, m.keymap.Quit):
		return m, func() tea.Msg { return QuitMsg{} }
	case key.Matches(msg, m.keymap.Help):
		m.showHelp = true
	case key.Matches(msg, m.keymap.Up):
		(&m).moveCursor(-1)
	case key.Matches(msg, m.keymap.Down):
		(&m).moveCursor(1)
	case key.Matches(msg, m.keymap.Add):
		m.focus = focusAdd
		cmd := m.addInput.Focus()
		return m, cmd
	case key.Matches(msg, m.keymap.Shop):
		return m, func() tea.Msg { return openShoppingMsg{} }
	case key.Matches(msg, m.keymap.Refresh):
		return m, func() tea.Msg { return refreshMsg{} }
	case key.Matches(msg, m.keymap.Open):
		if m.opts.DashboardURL == "" {
			return m, toast("Set ui.dashboard_url to open the table", false)
		}
		if err := browser.OpenURL(m.opts.DashboardURL); err != nil {
			logging.Logger.Error("failed to open browser", "url", m.opts.DashboardURL, "error", err)
		}
	case key.Matches(msg, m.keymap.Tap):
		if hasLine && cur.kind == lineSection {
			(&m).toggleSection(cur.section.Key)
			return m, nil
		}
		if onItem {
			cmd := (&m).dispatch(cur.itemID, gesture.Tap{At: now})
			return m, cmd
		}
	case !onItem:
		return m, nil
	case key.Matches(msg, m.keymap.Pick):
		cmd := (&m).dispatch(cur.itemID, gesture.OpenPicker{})
		return m, cmd
	case key.Matches(msg, m.keymap.Edit):
		cmd := (&m).dispatch(cur.itemID, gesture.StartEdit{})
		return m, cmd
	case key.Matches(msg, m.keymap.Pin):
		cmd := (&m).dispatch(cur.itemID, gesture.TogglePin{At: now})
		return m, cmd
	case key.Matches(msg, m.keymap.Reveal):
		cmd := (&m).dispatch(cur.itemID, gesture.Reveal{})
		return m, cmd
	case key.Matches(msg, m.keymap.Delete):
		// Delete only acts on a revealed row
		if m.rows[cur.itemID].View().Open {
			cmd := (&m).dispatch(cur.itemID, gesture.Delete{At: now})
			return m, cmd
		}
	case key.Matches(msg, m.keymap.MoveUp):
		cmd := (&m).dispatch(cur.itemID, gesture.Reorder{Up: true, At: now})
		return m, cmd
	case key.Matches(msg, m.keymap.MoveDown):
		cmd := (&m).dispatch(cur.itemID, gesture.Reorder{Up: false, At: now})
		return m, cmd
	case key.Matches(msg, m.keymap.CloseRow):
		cmd := (&m).dispatch(cur.itemID, gesture.Close{})
		return m, cmd
	}

	return m, nil
}

func (m DashboardModel) handleAddKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.Confirm):
		op, err := m.store.AddItem(m.addInput.Value())
		if errors.Is(err, store.ErrEmptyName) {
			return m, nil
		}
		if err != nil {
			logging.Logger.Error("add rejected", "error", err)
			return m, nil
		}
		m.addInput.Reset()
		return m, m.run.run(op)
	case key.Matches(msg, m.keymap.Cancel):
		m.addInput.Blur()
		m.focus = focusList
		return m, nil
	}

	var cmd tea.Cmd
	m.addInput, cmd = m.addInput.Update(msg)
	return m, cmd
}

func (m DashboardModel) handleEditKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	now := m.now()
	switch {
	case key.Matches(msg, m.keymap.Cancel):
		cmd := (&m).dispatch(m.editID, gesture.EditCancel{At: now})
		return m, cmd
	case key.Matches(msg, m.keymap.Confirm):
		cmd := (&m).dispatch(m.editID, gesture.EditConfirm{
			Name: m.nameInput.Value(),
			Note: m.noteInput.Value(),
			At:   now,
		})
		return m, cmd
	case key.Matches(msg, m.keymap.NextField):
		if m.nameInput.Focused() {
			m.nameInput.Blur()
			cmd := m.noteInput.Focus()
			return m, cmd
		}
		m.noteInput.Blur()
		cmd := m.nameInput.Focus()
		return m, cmd
	}

	var cmd tea.Cmd
	if m.noteInput.Focused() {
		m.noteInput, cmd = m.noteInput.Update(msg)
	} else {
		m.nameInput, cmd = m.nameInput.Update(msg)
	}
	return m, cmd
}

func (m DashboardModel) handlePickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.Cancel):
		cmd := (&m).dispatch(m.pickID, gesture.OutsideTap{})
		return m, cmd
	case key.Matches(msg, m.keymap.PickLeft):
		if m.pickIdx > 0 {
			m.pickIdx--
		}
	case key.Matches(msg, m.keymap.PickRight):
		if m.pickIdx < len(domain.States)-1 {
			m.pickIdx++
		}
	case key.Matches(msg, m.keymap.Confirm):
		cmd := (&m).dispatch(m.pickID, gesture.PickState{State: domain.States[m.pickIdx], At: m.now()})
		return m, cmd
	case msg.Type == tea.KeyRunes && len(msg.Runes) == 1:
		idx := int(msg.Runes[0] - '1')
		if idx >= 0 && idx < len(domain.States) {
			cmd := (&m).dispatch(m.pickID, gesture.PickState{State: domain.States[idx], At: m.now()})
			return m, cmd
		}
	}
	return m, nil
}

// handleMouse maps pointer input to touch events. Cell coordinates are scaled
// to gesture units so thresholds behave the same at any font size.
func (m DashboardModel) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if m.showHelp || m.store.Loading() {
		return m, nil
	}
	now := m.now()

	switch msg.Action {
	case tea.MouseActionPress:
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			(&m).moveCursor(-1)
			return m, nil
		case tea.MouseButtonWheelDown:
			(&m).moveCursor(1)
			return m, nil
		case tea.MouseButtonLeft:
			return m.handlePress(msg, now)
		}

	case tea.MouseActionMotion:
		if m.pressID != "" {
			cmd := (&m).dispatch(m.pressID, gesture.TouchMove{
				X:  float64(msg.X) * m.opts.CellWidth,
				Y:  float64(msg.Y) * m.opts.CellHeight,
				At: now,
			})
			return m, cmd
		}

	case tea.MouseActionRelease:
		if m.pressID != "" {
			id := m.pressID
			m.pressID = ""
			cmd := (&m).dispatch(id, gesture.TouchEnd{At: now})
			return m, cmd
		}
	}
	return m, nil
}

func (m DashboardModel) handlePress(msg tea.MouseMsg, now time.Time) (tea.Model, tea.Cmd) {
	idx, onLine := m.lineAt(msg.Y)

	if m.focus == focusPicker {
		if onLine && m.lines[idx].kind == linePicker {
			if s, ok := pickerHit(msg.X); ok {
				cmd := (&m).dispatch(m.pickID, gesture.PickState{State: s, At: now})
				return m, cmd
			}
		}
		cmd := (&m).dispatch(m.pickID, gesture.OutsideTap{})
		return m, cmd
	}
	if m.focus == focusEdit {
		return m, nil
	}

	if msg.Y == m.addBarY() {
		m.focus = focusAdd
		cmd := m.addInput.Focus()
		return m, cmd
	}
	if m.focus == focusAdd {
		m.addInput.Blur()
		m.focus = focusList
	}
	if !onLine {
		return m, nil
	}

	l := m.lines[idx]
	switch l.kind {
	case lineSection:
		m.cursor = idx
		(&m).toggleSection(l.section.Key)
		return m, nil
	case lineItem:
		m.cursor = idx
		v := m.rows[l.itemID].View()
		switch {
		case v.Open && msg.X >= m.viewWidth()-m.revealCells():
			cmd := (&m).dispatch(l.itemID, gesture.Delete{At: now})
			return m, cmd
		case msg.X >= cursorWidth && msg.X < cursorWidth+badgeWidth:
			cmd := (&m).dispatch(l.itemID, gesture.OpenPicker{})
			return m, cmd
		}
		m.pressID = l.itemID
		cmd := (&m).dispatch(l.itemID, gesture.TouchStart{
			X:  float64(msg.X) * m.opts.CellWidth,
			Y:  float64(msg.Y) * m.opts.CellHeight,
			At: now,
		})
		return m, cmd
	}
	return m, nil
}

// dispatch feeds ev to the row's controller and turns the result into
// commands: a long-press tick and at most one store operation.
func (m *DashboardModel) dispatch(id string, ev gesture.Event) tea.Cmd {
	c, ok := m.rows[id]
	if !ok {
		return nil
	}
	res := c.Handle(ev)

	var cmds []tea.Cmd
	if res.Timer != nil {
		t := *res.Timer
		cmds = append(cmds, tea.Tick(t.After, func(at time.Time) tea.Msg {
			return longPressMsg{itemID: id, token: t.Token, at: at}
		}))
	}
	m.syncFocus(id)
	if res.Intent != nil {
		cmds = append(cmds, m.applyIntent(*res.Intent))
	}
	m.refresh()
	return tea.Batch(cmds...)
}

// applyIntent starts the store operation a row asked for. Rejected intents
// change nothing and raise no notice.
func (m *DashboardModel) applyIntent(in gesture.Intent) tea.Cmd {
	var (
		op  *store.Op
		err error
	)
	switch in.Kind {
	case gesture.IntentCycleState, gesture.IntentSetState:
		// The state badge is locked until the row's last write settles
		if m.store.Pending(in.ItemID) {
			err = errRowPending
			break
		}
		var target *domain.State
		if in.Kind == gesture.IntentSetState {
			target = &in.State
		}
		op, err = m.store.CycleState(in.ItemID, target)
	case gesture.IntentTogglePin:
		op, err = m.store.TogglePin(in.ItemID)
	case gesture.IntentDelete:
		op, err = m.store.DeleteItem(in.ItemID)
	case gesture.IntentUpdate:
		note := ""
		if in.Note != nil {
			note = *in.Note
		}
		op, err = m.store.UpdateItem(in.ItemID, in.Name, note)
	case gesture.IntentMoveUp:
		op, err = m.store.MovePinUp(in.ItemID)
	case gesture.IntentMoveDown:
		op, err = m.store.MovePinDown(in.ItemID)
	default:
		err = fmt.Errorf("unknown intent %q", in.Kind)
	}
	if err != nil {
		logging.Logger.Debug("intent rejected", "kind", in.Kind, "id", in.ItemID, "error", err)
		return nil
	}
	return m.run.run(op)
}

// syncFocus opens or closes the edit form and picker to match the row.
func (m *DashboardModel) syncFocus(id string) {
	v := m.rows[id].View()

	switch {
	case v.Editing && m.editID != id:
		if m.editID != "" {
			if prev, ok := m.rows[m.editID]; ok {
				prev.Handle(gesture.EditCancel{At: m.now()})
			}
		}
		m.editID = id
		m.focus = focusEdit
		m.pressID = ""
		m.nameInput.SetValue(v.DraftName)
		m.noteInput.SetValue(v.DraftNote)
		m.nameInput.CursorEnd()
		m.nameInput.Focus()
		m.noteInput.Blur()
		m.addInput.Blur()
	case !v.Editing && m.editID == id:
		m.editID = ""
		m.focus = focusList
		m.nameInput.Blur()
		m.noteInput.Blur()
	}

	switch {
	case v.Picking && m.pickID != id:
		m.pickID = id
		m.focus = focusPicker
		m.pickIdx = 0
		for i, s := range domain.States {
			if s == v.Item.State {
				m.pickIdx = i
			}
		}
	case !v.Picking && m.pickID == id:
		m.pickID = ""
		if m.focus == focusPicker {
			m.focus = focusList
		}
	}
}

// refresh brings the row controllers and lines in line with the working
// snapshot. Call it after anything that may have changed the store.
func (m *DashboardModel) refresh() {
	m.syncRows()
	m.rebuildLines()
}

func (m *DashboardModel) syncRows() {
	items := m.store.Items()
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		seen[item.ID] = true
		if c, ok := m.rows[item.ID]; ok {
			c.SetItem(item)
			continue
		}
		m.rows[item.ID] = gesture.New(item, m.opts.Gesture)
	}
	for id := range m.rows {
		if !seen[id] {
			delete(m.rows, id)
		}
	}

	// Drop focus held by rows that disappeared
	if m.editID != "" && !seen[m.editID] {
		m.editID = ""
		m.focus = focusList
	}
	if m.pickID != "" && !seen[m.pickID] {
		m.pickID = ""
		if m.focus == focusPicker {
			m.focus = focusList
		}
	}
	if !seen[m.pressID] {
		m.pressID = ""
	}
}

func (m *DashboardModel) rebuildLines() {
	prev, hadPrev := m.currentLine()

	groups := m.store.Groups()
	m.lines = m.lines[:0]
	for _, sec := range domain.Sections {
		items := groups.Bucket(sec.Key)
		if len(items) == 0 {
			continue
		}
		m.lines = append(m.lines, line{kind: lineSection, section: sec, count: len(items)})
		if !m.expanded[sec.Key] {
			continue
		}
		for _, item := range items {
			m.lines = append(m.lines, line{kind: lineItem, section: sec, itemID: item.ID})
			if item.ID == m.pickID {
				m.lines = append(m.lines, line{kind: linePicker, section: sec, itemID: item.ID})
			}
			if item.ID == m.editID {
				m.lines = append(m.lines,
					line{kind: lineEditName, section: sec, itemID: item.ID},
					line{kind: lineEditNote, section: sec, itemID: item.ID},
				)
			}
		}
	}

	// Keep the cursor on the same row or section when it moved
	if hadPrev {
		for i, l := range m.lines {
			if l.kind == prev.kind && l.itemID == prev.itemID && l.section.Key == prev.section.Key {
				m.cursor = i
				break
			}
			if prev.kind == lineItem && l.kind == lineItem && l.itemID == prev.itemID {
				m.cursor = i
				break
			}
		}
	}
	if m.cursor >= len(m.lines) {
		m.cursor = len(m.lines) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	for m.cursor > 0 && !m.lines[m.cursor].selectable() {
		m.cursor--
	}
	m.adjustScroll()
}

func (m *DashboardModel) toggleSection(key domain.SectionKey) {
	m.expanded[key] = !m.expanded[key]
	m.rebuildLines()
}

// moveCursor moves the selection by delta selectable lines.
func (m *DashboardModel) moveCursor(delta int) {
	step := 1
	if delta < 0 {
		step, delta = -1, -delta
	}
	for ; delta > 0; delta-- {
		next := m.cursor + step
		for next >= 0 && next < len(m.lines) && !m.lines[next].selectable() {
			next += step
		}
		if next < 0 || next >= len(m.lines) {
			break
		}
		m.cursor = next
	}
	m.adjustScroll()
}

// adjustScroll ensures the cursor and the form under it are visible.
func (m *DashboardModel) adjustScroll() {
	visible := m.contentHeight()
	last := m.cursor
	for last+1 < len(m.lines) && !m.lines[last+1].selectable() {
		last++
	}
	if m.cursor < m.scroll {
		m.scroll = m.cursor
	}
	if last >= m.scroll+visible {
		m.scroll = last - visible + 1
	}
	if limit := len(m.lines) - visible; m.scroll > limit {
		m.scroll = limit
	}
	if m.scroll < 0 {
		m.scroll = 0
	}
}

func (m DashboardModel) currentLine() (line, bool) {
	if m.cursor < 0 || m.cursor >= len(m.lines) {
		return line{}, false
	}
	return m.lines[m.cursor], true
}

// lineAt maps a screen row to a line index.
func (m DashboardModel) lineAt(y int) (int, bool) {
	if y < headerLines || y >= headerLines+m.contentHeight() {
		return 0, false
	}
	idx := y - headerLines + m.scroll
	if idx < 0 || idx >= len(m.lines) {
		return 0, false
	}
	return idx, true
}

func (m DashboardModel) viewWidth() int {
	if m.width == 0 {
		return 80
	}
	return m.width
}

func (m DashboardModel) viewHeight() int {
	if m.height == 0 {
		return 24
	}
	return m.height
}

func (m DashboardModel) contentHeight() int {
	h := m.viewHeight() - headerLines - footerLines
	if h < 3 {
		h = 3
	}
	return h
}

func (m DashboardModel) addBarY() int {
	return headerLines + m.contentHeight()
}

// revealCells is the width of a fully revealed delete button in columns.
func (m DashboardModel) revealCells() int {
	return int(m.opts.Gesture.DeleteReveal / m.opts.CellWidth)
}

// View renders the dashboard - fills the space it was given exactly
func (m DashboardModel) View() string {
	width := m.viewWidth()
	contentHeight := m.contentHeight()

	sections := []string{
		m.renderHeader(width),
		m.renderHints(width),
	}

	var content string
	switch {
	case m.showHelp:
		helpLines := strings.Split(m.help.View(width), "\n")
		if len(helpLines) > contentHeight {
			helpLines = helpLines[:contentHeight]
		}
		content = strings.Join(helpLines, "\n")
	case m.store.Loading():
		content = lipgloss.Place(width, contentHeight, lipgloss.Center, lipgloss.Center, m.spinner.View()+" Loading...")
	case len(m.lines) == 0:
		content = lipgloss.Place(width, contentHeight, lipgloss.Center, lipgloss.Center, dimStyle.Render("No items yet. Add one below."))
	default:
		content = m.renderLines(width, contentHeight)
	}
	sections = append(sections, lipgloss.NewStyle().Height(contentHeight).MaxHeight(contentHeight).Render(content))
	sections = append(sections, m.addInput.View())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderHeader renders the title on the left and sync status on the right
func (m DashboardModel) renderHeader(width int) string {
	title := "homestock"

	var statusParts []string
	if n := len(m.store.PendingIDs()); n > 0 {
		statusParts = append(statusParts, fmt.Sprintf("%s saving %d", m.spinner.View(), n))
	}
	statusParts = append(statusParts, fmt.Sprintf("%d items", len(m.rows)))
	statusParts = append(statusParts, "[b]shop [?]help")
	status := strings.Join(statusParts, " | ")

	padding := width - lipgloss.Width(title) - lipgloss.Width(status) - 1
	if padding < 1 {
		padding = 1
	}
	return TitleStyle.Render(title) + strings.Repeat(" ", padding) + dimStyle.Render(status)
}

func (m DashboardModel) renderHints(width int) string {
	var hints string
	switch m.focus {
	case focusAdd:
		hints = "enter:add esc:done"
	case focusEdit:
		hints = "enter:save tab:next field esc:cancel"
	case focusPicker:
		hints = "←/→:choose 1-3:pick enter:set esc:close"
	default:
		hints = "enter:cycle s:state e:edit p:pin x:delete K/J:reorder a:add"
	}
	return truncate.StringWithTail(HelpStyle.Render(hints), uint(width), "…")
}

func (m DashboardModel) renderLines(width, height int) string {
	end := m.scroll + height
	if end > len(m.lines) {
		end = len(m.lines)
	}
	out := make([]string, 0, end-m.scroll)
	for i := m.scroll; i < end; i++ {
		out = append(out, m.renderLine(m.lines[i], i == m.cursor && m.focus != focusAdd, width))
	}
	return strings.Join(out, "\n")
}

func (m DashboardModel) renderLine(l line, selected bool, width int) string {
	switch l.kind {
	case lineSection:
		arrow := "▸"
		if m.expanded[l.section.Key] {
			arrow = "▾"
		}
		text := fmt.Sprintf("%s %s (%d)", arrow, l.section.Label, l.count)
		if selected {
			return SelectedItemStyle.Render("> " + text)
		}
		return "  " + sectionHeaderStyle.Render(text)
	case lineItem:
		return m.renderRow(l.itemID, selected, width)
	case linePicker:
		return m.renderPicker()
	case lineEditName:
		return strings.Repeat(" ", pickerIndent) + m.nameInput.View()
	case lineEditNote:
		return strings.Repeat(" ", pickerIndent) + m.noteInput.View()
	}
	return ""
}

// renderRow draws one item, slid left by its swipe offset with the delete
// button filling the uncovered space.
func (m DashboardModel) renderRow(id string, selected bool, width int) string {
	c, ok := m.rows[id]
	if !ok {
		return ""
	}
	v := c.View()

	prefix := "  "
	switch {
	case v.Pressed:
		prefix = "• "
	case selected:
		prefix = "> "
	}

	pin := "  "
	if v.Item.Pinned {
		pin = pinStyle.Render("★ ")
	}

	name := v.Item.Name
	if selected {
		name = SelectedItemStyle.Render(name)
	} else {
		name = NormalItemStyle.Render(name)
	}

	body := stateBadge(v.Item.State) + " " + pin + name
	if v.Item.Note != nil {
		body += dimStyle.Render(" · " + *v.Item.Note)
	}
	if m.store.Pending(id) {
		body += " " + m.spinner.View()
	}

	reveal := int(-v.Offset / m.opts.CellWidth)
	avail := width - cursorWidth - reveal
	if avail < 1 {
		avail = 1
	}
	body = truncate.StringWithTail(body, uint(avail), "…")
	if pad := avail - lipgloss.Width(body); pad > 0 {
		body += strings.Repeat(" ", pad)
	}

	row := prefix + body
	if v.Pressed {
		row = pressedStyle.Render(row)
	}
	if reveal > 0 {
		row += deleteStyle.Width(reveal).Align(lipgloss.Center).Render(truncate.String(deleteLabel, uint(reveal)))
	}
	return row
}

// pickerSegment is the column span of one state in the picker line.
type pickerSegment struct {
	state    domain.State
	from, to int
}

func pickerSegments() []pickerSegment {
	segs := make([]pickerSegment, 0, len(domain.States))
	x := pickerIndent
	for _, s := range domain.States {
		w := lipgloss.Width(pickerStyle.Render(s.Label()))
		segs = append(segs, pickerSegment{state: s, from: x, to: x + w})
		x += w + 1
	}
	return segs
}

// pickerHit returns the state under column x of the picker line.
func pickerHit(x int) (domain.State, bool) {
	for _, seg := range pickerSegments() {
		if x >= seg.from && x < seg.to {
			return seg.state, true
		}
	}
	return "", false
}

func (m DashboardModel) renderPicker() string {
	parts := make([]string, 0, len(domain.States))
	for i, s := range domain.States {
		if i == m.pickIdx {
			parts = append(parts, pickerSelectedStyle.Render(s.Label()))
		} else {
			parts = append(parts, pickerStyle.Render(s.Label()))
		}
	}
	return strings.Repeat(" ", pickerIndent) + strings.Join(parts, " ")
}
