package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/robby/homestock/internal/logging"
	"github.com/robby/homestock/internal/remote"
	"github.com/robby/homestock/internal/store"
)

// toastLines is the height reserved under every screen for notices.
const toastLines = 1

// AppScreen represents the different screens in the application.
type AppScreen int

const (
	ScreenDashboard AppScreen = iota
	ScreenShopping
)

// AppModel is the root Bubble Tea model. It owns the store's event loop side:
// fetch and settle results, the change feed and toasts. Screens start
// operations; their results always come back through here.
type AppModel struct {
	// Dependencies
	store *store.Store
	run   runner
	opts  Options

	// Current state
	currentScreen AppScreen
	dashboard     DashboardModel
	shopping      ShoppingModel
	feed          <-chan struct{}
	err           error

	toast      string
	toastErr   bool
	toastToken uint64

	width  int
	height int
}

// NewAppModel creates the root model. Cancelling ctx closes the change feed
// and aborts in-flight remote calls.
func NewAppModel(ctx context.Context, s *store.Store, opts Options) AppModel {
	opts = opts.withDefaults()
	r := runner{store: s, ctx: ctx, timeout: opts.Timeout}
	return AppModel{
		store:         s,
		run:           r,
		opts:          opts,
		currentScreen: ScreenDashboard,
		dashboard:     NewDashboardModel(s, r, opts),
	}
}

// Init loads the list and subscribes to changes.
func (m AppModel) Init() tea.Cmd {
	return tea.Batch(
		m.dashboard.Init(),
		m.run.refetch(),
		m.run.subscribe(),
	)
}

// Update applies store results and delegates everything else to the current
// screen.
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		inner := tea.WindowSizeMsg{Width: msg.Width, Height: msg.Height - toastLines}
		dashboard, _ := m.dashboard.Update(inner)
		m.dashboard = dashboard.(DashboardModel)
		if m.currentScreen == ScreenShopping {
			shopping, _ := m.shopping.Update(inner)
			m.shopping = shopping.(ShoppingModel)
		}
		return m, nil

	case QuitMsg:
		return m, tea.Quit

	case ErrorMsg:
		m.err = msg.Err
		return m, nil

	case fetchedMsg:
		m.store.ApplyFetch(msg.fetch, msg.items, msg.err)
		cmd := (&m).afterStoreChange()
		return m, cmd

	case opSettledMsg:
		m.store.Settle(msg.op, msg.err)
		cmds := []tea.Cmd{(&m).afterStoreChange()}
		// Inserts are not patched locally
		if msg.err == nil && msg.op.Kind == store.OpAdd {
			cmds = append(cmds, m.run.refetch())
		}
		return m, tea.Batch(cmds...)

	case subscribedMsg:
		if msg.err != nil {
			if errors.Is(msg.err, remote.ErrNoFeed) {
				logging.Logger.Info("no change feed, press r to refresh")
			} else {
				logging.Logger.Error("failed to subscribe to changes", "error", msg.err)
			}
			return m, nil
		}
		m.feed = msg.ch
		return m, waitForChange(m.feed)

	case changedMsg:
		logging.Logger.Debug("change signal")
		return m, tea.Batch(m.run.refetch(), waitForChange(m.feed))

	case feedClosedMsg:
		logging.Logger.Debug("change feed closed")
		m.feed = nil
		return m, nil

	case refreshMsg:
		return m, m.run.refetch()

	case toastMsg:
		cmd := (&m).showToast(msg.text, msg.err)
		return m, cmd

	case toastExpiredMsg:
		if msg.token == m.toastToken {
			m.toast = ""
		}
		return m, nil

	case openShoppingMsg:
		m.currentScreen = ScreenShopping
		m.shopping = NewShoppingModel(m.store, m.run)
		if m.width > 0 {
			shopping, _ := m.shopping.Update(tea.WindowSizeMsg{Width: m.width, Height: m.height - toastLines})
			m.shopping = shopping.(ShoppingModel)
		}
		return m, m.shopping.Init()

	case closeShoppingMsg:
		m.currentScreen = ScreenDashboard
		(&m.dashboard).refresh()
		return m, nil
	}

	// Delegate to current screen's model
	var cmd tea.Cmd
	switch m.currentScreen {
	case ScreenShopping:
		var model tea.Model
		model, cmd = m.shopping.Update(msg)
		m.shopping = model.(ShoppingModel)
		// The dashboard spinner keeps ticking underneath
		if _, ok := msg.(tea.KeyMsg); !ok {
			dashboard, dcmd := m.dashboard.Update(msg)
			m.dashboard = dashboard.(DashboardModel)
			cmd = tea.Batch(cmd, dcmd)
		}
	default:
		var model tea.Model
		model, cmd = m.dashboard.Update(msg)
		m.dashboard = model.(DashboardModel)
	}
	return m, cmd
}

// afterStoreChange re-renders from the store and surfaces queued notices.
func (m *AppModel) afterStoreChange() tea.Cmd {
	m.dashboard.refresh()
	if m.currentScreen == ScreenShopping {
		m.shopping.refresh()
	}

	notices := m.store.Notices()
	if len(notices) == 0 {
		return nil
	}
	for _, n := range notices {
		logging.Logger.Warn("notice", "message", n.Message, "error", n.Err)
	}
	// Only the latest notice is shown
	return m.showToast(notices[len(notices)-1].Message, true)
}

// showToast replaces the current toast and schedules its dismissal.
func (m *AppModel) showToast(text string, isErr bool) tea.Cmd {
	m.toastToken++
	token := m.toastToken
	m.toast = text
	m.toastErr = isErr
	return tea.Tick(m.opts.ToastDuration, func(time.Time) tea.Msg {
		return toastExpiredMsg{token: token}
	})
}

// View renders the current screen with the toast line underneath.
func (m AppModel) View() string {
	if m.err != nil {
		return ErrorStyle.Render(fmt.Sprintf("Error: %v\n\nPress Ctrl+C to quit", m.err))
	}

	var screen string
	switch m.currentScreen {
	case ScreenShopping:
		screen = m.shopping.View()
	default:
		screen = m.dashboard.View()
	}

	toastLine := ""
	if m.toast != "" {
		if m.toastErr {
			toastLine = ErrorStyle.Render(m.toast)
		} else {
			toastLine = toastStyle.Render(m.toast)
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, screen, toastLine)
}
