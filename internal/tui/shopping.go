package tui

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/robby/homestock/internal/domain"
	"github.com/robby/homestock/internal/logging"
	"github.com/robby/homestock/internal/store"
)

// shoppingItem wraps a domain.Item for use in bubbles/list.
type shoppingItem struct {
	item   domain.Item
	bought bool
}

func (i shoppingItem) FilterValue() string {
	return i.item.Name
}

// shoppingDelegate renders one line per item with its cart checkbox.
type shoppingDelegate struct{}

func (d shoppingDelegate) Height() int                             { return 1 }
func (d shoppingDelegate) Spacing() int                            { return 0 }
func (d shoppingDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }
func (d shoppingDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	i, ok := item.(shoppingItem)
	if !ok {
		return
	}

	check := "[ ]"
	if i.bought {
		check = "[x]"
	}
	str := fmt.Sprintf("%s %s %s", check, stateBadge(i.item.State), i.item.Name)

	if index == m.Index() {
		fmt.Fprint(w, SelectedItemStyle.Render("> "+str))
	} else {
		fmt.Fprint(w, NormalItemStyle.Render("  "+str))
	}
}

// ShoppingModel is a shopping trip over the items worth buying. Ticking items
// only changes the trip; finishing marks every ticked item OK in one write.
type ShoppingModel struct {
	store  *store.Store
	run    runner
	keymap ShoppingKeyMap
	help   HelpModel
	list   list.Model
	bought map[string]bool
	width  int
}

// NewShoppingModel starts a trip with nothing in the cart.
func NewShoppingModel(s *store.Store, r runner) ShoppingModel {
	l := list.New(nil, shoppingDelegate{}, 80, 20)
	l.Title = "Shopping"
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()
	l.Styles.Title = TitleStyle

	km := DefaultShoppingKeyMap()
	m := ShoppingModel{
		store:  s,
		run:    r,
		keymap: km,
		help:   NewHelpModel(km),
		list:   l,
		bought: make(map[string]bool),
	}
	m.refresh()
	return m
}

// Init initializes the model.
func (m ShoppingModel) Init() tea.Cmd {
	return nil
}

// Update handles messages and updates the model state.
func (m ShoppingModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.list.SetWidth(msg.Width)
		m.list.SetHeight(msg.Height - 2) // Header + help line
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keymap.Cancel):
			logging.Logger.Debug("shopping trip cancelled", "bought", len(m.bought))
			return m, func() tea.Msg { return closeShoppingMsg{} }
		case key.Matches(msg, m.keymap.Finish):
			return m.finish()
		case key.Matches(msg, m.keymap.Toggle):
			cmd := (&m).toggle()
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *ShoppingModel) toggle() tea.Cmd {
	i, ok := m.list.SelectedItem().(shoppingItem)
	if !ok {
		return nil
	}
	i.bought = !i.bought
	if i.bought {
		m.bought[i.item.ID] = true
	} else {
		delete(m.bought, i.item.ID)
	}
	return m.list.SetItem(m.list.Index(), i)
}

// finish writes the trip and returns to the dashboard.
func (m ShoppingModel) finish() (tea.Model, tea.Cmd) {
	done := func() tea.Msg { return closeShoppingMsg{} }

	ids := m.boughtIDs()
	op, err := m.store.MarkBought(ids)
	if errors.Is(err, store.ErrNothingToMark) {
		return m, done
	}
	if err != nil {
		logging.Logger.Error("finish trip rejected", "error", err)
		return m, done
	}

	text := fmt.Sprintf("Restocked %d items", len(op.IDs))
	if len(op.IDs) == 1 {
		text = "Restocked 1 item"
	}
	return m, tea.Batch(m.run.run(op), done, toast(text, false))
}

// boughtIDs returns the ticked items still on the list, in list order.
func (m ShoppingModel) boughtIDs() []string {
	var ids []string
	for _, li := range m.list.Items() {
		if i, ok := li.(shoppingItem); ok && i.bought {
			ids = append(ids, i.item.ID)
		}
	}
	return ids
}

// refresh reloads the list from the store, keeping ticks.
func (m *ShoppingModel) refresh() {
	items := m.store.ShoppingList()
	listItems := make([]list.Item, len(items))
	for i, item := range items {
		listItems[i] = shoppingItem{item: item, bought: m.bought[item.ID]}
	}
	m.list.SetItems(listItems)
}

// View renders the model.
func (m ShoppingModel) View() string {
	width := m.width
	if width == 0 {
		width = 80
	}

	items := m.list.Items()
	inCart := len(m.boughtIDs())
	header := shoppingModeStyle.Render("SHOPPING") + " " +
		dimStyle.Render(fmt.Sprintf("%d to buy, %d in cart", len(items)-inCart, inCart))

	var body string
	if len(items) == 0 {
		body = lipgloss.Place(width, m.list.Height(), lipgloss.Center, lipgloss.Center,
			dimStyle.Render("Nothing to shop for right now."))
	} else {
		body = m.list.View()
	}

	return strings.Join([]string{header, body, HelpStyle.Render(m.help.ShortView(width))}, "\n")
}
