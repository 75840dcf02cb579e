package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/robby/homestock/internal/store"
)

// runner turns store operations into commands. Remote calls happen inside the
// returned commands; their results come back as messages so the store is only
// touched from Update.
type runner struct {
	store   *store.Store
	ctx     context.Context
	timeout time.Duration
}

func (r runner) context() (context.Context, context.CancelFunc) {
	if r.timeout > 0 {
		return context.WithTimeout(r.ctx, r.timeout)
	}
	return context.WithCancel(r.ctx)
}

// run performs op's remote write.
func (r runner) run(op *store.Op) tea.Cmd {
	if op == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := r.context()
		defer cancel()
		return opSettledMsg{op: op, err: op.Run(ctx)}
	}
}

// refetch starts a numbered full read.
func (r runner) refetch() tea.Cmd {
	f := r.store.Refetch()
	return func() tea.Msg {
		ctx, cancel := r.context()
		defer cancel()
		items, err := f.Run(ctx)
		return fetchedMsg{fetch: f, items: items, err: err}
	}
}

// subscribe opens the change feed for the life of the runner's context.
func (r runner) subscribe() tea.Cmd {
	return func() tea.Msg {
		ch, err := r.store.Subscribe(r.ctx)
		return subscribedMsg{ch: ch, err: err}
	}
}

// waitForChange blocks until the feed signals. It must be re-armed after
// every changedMsg.
func waitForChange(ch <-chan struct{}) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return feedClosedMsg{}
		}
		return changedMsg{}
	}
}

func toast(text string, isErr bool) tea.Cmd {
	return func() tea.Msg {
		return toastMsg{text: text, err: isErr}
	}
}
