package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all key bindings for the dashboard.
type KeyMap struct {
	// Navigation
	Up   key.Binding
	Down key.Binding

	// Row actions
	Tap       key.Binding
	Pick      key.Binding
	Edit      key.Binding
	Pin       key.Binding
	Reveal    key.Binding
	Delete    key.Binding
	MoveUp    key.Binding
	MoveDown  key.Binding
	CloseRow  key.Binding
	PickLeft  key.Binding
	PickRight key.Binding

	// Screen actions
	Add       key.Binding
	NextField key.Binding
	Shop      key.Binding
	Open      key.Binding
	Refresh   key.Binding
	Help      key.Binding
	Quit      key.Binding
	ForceQuit key.Binding
	Confirm   key.Binding
	Cancel    key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "previous row"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "next row"),
		),
		Tap: key.NewBinding(
			key.WithKeys("enter", " ", "space"),
			key.WithHelp("enter", "cycle state / fold section"),
		),
		Pick: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "pick state"),
		),
		Edit: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "edit name and note"),
		),
		Pin: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "pin / unpin"),
		),
		Reveal: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "reveal delete"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete revealed row"),
		),
		MoveUp: key.NewBinding(
			key.WithKeys("K", "shift+up"),
			key.WithHelp("K", "move pin up"),
		),
		MoveDown: key.NewBinding(
			key.WithKeys("J", "shift+down"),
			key.WithHelp("J", "move pin down"),
		),
		CloseRow: key.NewBinding(
			key.WithKeys("esc"),
		),
		PickLeft: key.NewBinding(
			key.WithKeys("left", "h"),
		),
		PickRight: key.NewBinding(
			key.WithKeys("right", "l"),
		),
		Add: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "add item"),
		),
		NextField: key.NewBinding(
			key.WithKeys("tab"),
		),
		Shop: key.NewBinding(
			key.WithKeys("b"),
			key.WithHelp("b", "shopping mode"),
		),
		Open: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "open table in browser"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		ForceQuit: key.NewBinding(
			key.WithKeys("ctrl+c"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("enter"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
		),
	}
}

// ShortHelp returns key bindings to be shown in the mini help view.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Quit}
}

// FullHelp returns key bindings for the expanded help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Tap, k.Pick},
		{k.Edit, k.Pin, k.Reveal, k.Delete},
		{k.MoveUp, k.MoveDown, k.Add, k.Shop},
		{k.Open, k.Refresh, k.Help, k.Quit},
	}
}

// ShoppingKeyMap defines the key bindings for shopping mode.
type ShoppingKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Toggle key.Binding
	Finish key.Binding
	Cancel key.Binding
}

// DefaultShoppingKeyMap returns the default shopping mode bindings.
func DefaultShoppingKeyMap() ShoppingKeyMap {
	return ShoppingKeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Toggle: key.NewBinding(
			key.WithKeys("enter", " ", "space"),
			key.WithHelp("space", "bought"),
		),
		Finish: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "finish trip"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc", "q"),
			key.WithHelp("esc", "cancel trip"),
		),
	}
}

// ShortHelp returns key bindings to be shown in the mini help view.
func (k ShoppingKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Finish, k.Cancel}
}

// FullHelp returns key bindings for the expanded help view.
func (k ShoppingKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Up, k.Down, k.Toggle, k.Finish, k.Cancel}}
}
