package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/grocery-sync/internal/domain/customer"
	"github.com/example/grocery-sync/internal/domain/delivery"
	"github.com/example/grocery-sync/internal/domain/inventory"
	"github.com/example/grocery-sync/internal/domain/order"
	"github.com/example/grocery-sync/internal/readmodel"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestQueryHandler() *Handler {
	h := NewHandler(readmodel.Seed(testNow))
	h.now = func() time.Time { return testNow }
	return h
}

// ============================================
// Pagination Tests
// ============================================

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	p := paginate(items, 2, 2)
	assert.Equal(t, []int{3, 4}, p.Items)
	assert.Equal(t, 5, p.Total)
	assert.Equal(t, 3, p.TotalPages)

	p = paginate(items, 9, 2)
	assert.Empty(t, p.Items)
	assert.Equal(t, 5, p.Total)

	p = paginate(items, 0, 0)
	assert.Equal(t, 1, p.Page)
	assert.Len(t, p.Items, 5)

	p = paginate(items, 1, 1000)
	assert.Equal(t, MaxPageSize, p.PageSize)
}

// ============================================
// Order Query Tests
// ============================================

func TestHandler_ListOrders_Filtered(t *testing.T) {
	h := newTestQueryHandler()

	all := h.ListOrders(order.Filter{}, 1, 20)
	assert.Equal(t, 4, all.Total)

	pending := h.ListOrders(order.Filter{Status: order.StatusPending}, 1, 20)
	require.Len(t, pending.Items, 1)
	assert.Equal(t, "ord_001", pending.Items[0].ID)

	byName := h.ListOrders(order.Filter{Search: "grace"}, 1, 20)
	assert.Equal(t, 2, byName.Total)

	from := testNow.Add(-3 * time.Hour)
	recent := h.ListOrders(order.Filter{DateFrom: &from}, 1, 20)
	assert.Equal(t, 2, recent.Total)
}

func TestHandler_CustomerOrders(t *testing.T) {
	h := newTestQueryHandler()

	page := h.CustomerOrders("cus_001", 1, 1)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	assert.Len(t, page.Items, 1)

	assert.Equal(t, 0, h.CustomerOrders("nobody", 1, 10).Total)
}

func TestHandler_Statistics(t *testing.T) {
	h := newTestQueryHandler()

	stats := h.Statistics()
	assert.Equal(t, 4, stats.TotalOrders)
	assert.Equal(t, 1, stats.PendingOrders)
	assert.Equal(t, 1, stats.CompletedOrders)
	assert.Equal(t, 0, stats.CancelledOrders)
	assert.Equal(t, 3, stats.TotalCustomers)
	assert.True(t, stats.TodayRevenue.IsPositive())
	assert.True(t, stats.AverageOrderValue.IsPositive())
}

// ============================================
// Other Query Tests
// ============================================

func TestHandler_ListProducts_LowStock(t *testing.T) {
	h := newTestQueryHandler()

	page := h.ListProducts(inventory.Filter{LowStock: true}, 1, 20)
	ids := make([]string, 0, len(page.Items))
	for _, p := range page.Items {
		ids = append(ids, p.ID)
	}
	assert.ElementsMatch(t, []string{"prd_002", "prd_004"}, ids)

	_, ok := h.GetProduct("prd_001")
	assert.True(t, ok)
	_, ok = h.GetProduct("missing")
	assert.False(t, ok)
}

func TestHandler_ListDeliveries(t *testing.T) {
	h := newTestQueryHandler()

	active := h.ListDeliveries(delivery.Filter{Status: delivery.StatusInTransit}, 1, 20)
	require.Len(t, active.Items, 1)
	assert.Equal(t, "del_001", active.Items[0].ID)

	byDriver := h.ListDeliveries(delivery.Filter{DriverID: "drv_001"}, 1, 20)
	assert.Equal(t, 2, byDriver.Total)
}

func TestHandler_Categories(t *testing.T) {
	h := newTestQueryHandler()

	assert.Equal(t, []inventory.Category{
		{Name: "bakery", ProductCount: 1},
		{Name: "dairy", ProductCount: 2},
		{Name: "pantry", ProductCount: 1},
		{Name: "produce", ProductCount: 2},
	}, h.Categories())
}

func TestHandler_Drivers(t *testing.T) {
	h := newTestQueryHandler()

	drivers := h.Drivers()
	require.Len(t, drivers, 2)
	assert.Equal(t, "Lena Ortiz", drivers[0].Name)
	assert.Equal(t, "Sam Carter", drivers[1].Name)
}

func TestHandler_ListCustomers(t *testing.T) {
	h := newTestQueryHandler()

	page := h.ListCustomers(customer.Filter{Status: "active"}, 1, 20)
	assert.Equal(t, 2, page.Total)

	c, ok := h.GetCustomer("cus_002")
	require.True(t, ok)
	addr, _ := c.DefaultAddress()
	assert.Equal(t, "addr_003", addr.ID)
}
