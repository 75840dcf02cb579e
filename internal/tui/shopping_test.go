package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robby/homestock/internal/domain"
)

func openShopping(t *testing.T, m AppModel) AppModel {
	t.Helper()
	m, _ = update(t, m, keyPress("b"))
	m = send(t, m, openShoppingMsg{})
	require.Equal(t, ScreenShopping, m.currentScreen)
	return m
}

func shoppingIDs(m ShoppingModel) []string {
	var ids []string
	for _, li := range m.list.Items() {
		ids = append(ids, li.(shoppingItem).item.ID)
	}
	return ids
}

func TestShopping_ListsItemsWorthBuying(t *testing.T) {
	m, _ := createTestApp(t, createTestItems())
	m = openShopping(t, m)

	assert.Equal(t, []string{"rice", "tea", "milk", "salt"}, shoppingIDs(m.shopping))
	view := m.View()
	assert.Contains(t, view, "SHOPPING")
	assert.Contains(t, view, "4 to buy, 0 in cart")
}

func TestShopping_FinishMarksBoughtOK(t *testing.T) {
	m, table := createTestApp(t, createTestItems())
	m = openShopping(t, m)

	m = send(t, m, keyPress("space"))
	m = send(t, m, keyPress("j"), keyPress("j"))
	m = send(t, m, keyPress("space"))
	assert.Equal(t, []string{"rice", "milk"}, m.shopping.boughtIDs())
	assert.Contains(t, m.View(), "2 to buy, 2 in cart")

	// Untick and tick again
	m = send(t, m, keyPress("space"), keyPress("space"))
	assert.Equal(t, []string{"rice", "milk"}, m.shopping.boughtIDs())

	m, cmd := update(t, m, keyPress("f"))
	require.NotNil(t, cmd)
	assert.Equal(t, domain.StateOK, mustGet(t, m, "milk").State)
	assert.Equal(t, domain.StateOK, mustGet(t, m, "rice").State)
	assert.True(t, m.store.Pending("milk"))

	m = send(t, m, runCmd(t, cmd)...)
	assert.Equal(t, ScreenDashboard, m.currentScreen)
	assert.Equal(t, [][]string{{"rice", "milk"}}, table.bulk)
	assert.Empty(t, m.store.PendingIDs())
	assert.Equal(t, "Restocked 2 items", m.toast)
	assert.False(t, m.toastErr)

	// Milk left the Need section
	assert.Equal(t, []string{"pinned", "rice", "tea", "low", "ok"}, lineSummary(m.dashboard.lines))
}

func TestShopping_FinishWithEmptyCart(t *testing.T) {
	m, table := createTestApp(t, createTestItems())
	m = openShopping(t, m)

	m, cmd := update(t, m, keyPress("f"))
	m = send(t, m, runCmd(t, cmd)...)
	assert.Equal(t, ScreenDashboard, m.currentScreen)
	assert.Empty(t, table.bulk)
}

func TestShopping_CancelDiscardsTrip(t *testing.T) {
	m, table := createTestApp(t, createTestItems())
	m = openShopping(t, m)

	m = send(t, m, keyPress("space"))
	m, cmd := update(t, m, keyPress("esc"))
	m = send(t, m, runCmd(t, cmd)...)

	assert.Equal(t, ScreenDashboard, m.currentScreen)
	assert.Empty(t, table.bulk)
	assert.Equal(t, domain.StateOK, mustGet(t, m, "rice").State)
	assert.Equal(t, domain.StateNeed, mustGet(t, m, "milk").State)

	// A new trip starts with an empty cart
	m = openShopping(t, m)
	assert.Empty(t, m.shopping.boughtIDs())
}

func TestShopping_EmptyState(t *testing.T) {
	m, _ := createTestApp(t, []domain.Item{
		{ID: "eggs", Name: "Eggs", State: domain.StateOK, CreatedOrder: 1},
	})
	m = openShopping(t, m)
	assert.Contains(t, m.View(), "Nothing to shop for right now.")
}

func TestShopping_KeepsTicksAcrossRefetch(t *testing.T) {
	m, table := createTestApp(t, createTestItems())
	m = openShopping(t, m)
	m = send(t, m, keyPress("space"))

	table.items = append(table.items, domain.Item{ID: "bread", Name: "Bread", State: domain.StateLow, CreatedOrder: 8})
	m = send(t, m, runCmd(t, m.run.refetch())...)

	assert.Equal(t, []string{"rice", "tea", "milk", "salt", "bread"}, shoppingIDs(m.shopping))
	assert.Equal(t, []string{"rice"}, m.shopping.boughtIDs())
}
