package readmodel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/grocery-sync/internal/domain/inventory"
	"github.com/example/grocery-sync/internal/domain/order"
)

func TestSeed_Consistent(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	d := Seed(now)

	orders := d.Orders()
	require.Len(t, orders, 4)
	assert.Equal(t, "ord_001", orders[0].ID, "newest first")

	for _, o := range orders {
		assert.True(t, o.Total.Equal(o.ComputeTotal()), o.ID)
		require.NotEmpty(t, o.StatusHistory, o.ID)
		assert.Equal(t, o.Status, o.StatusHistory[len(o.StatusHistory)-1].Status, o.ID)
	}

	ada, ok := d.Customer("cus_001")
	require.True(t, ok)
	assert.Equal(t, 2, ada.Metrics.TotalOrders)

	eggs, _ := d.Product("prd_002")
	assert.Equal(t, inventory.StockLow, eggs.StockStatus())
	bananas, _ := d.Product("prd_004")
	assert.Equal(t, inventory.StockOut, bananas.StockStatus())

	del, ok := d.Delivery("del_001")
	require.True(t, ok)
	assert.Equal(t, "ord_003", del.OrderID)
}

func TestDataset_UpdateIsIsolatedFromReads(t *testing.T) {
	d := Seed(time.Now())
	before, _ := d.Order("ord_001")

	require.NoError(t, d.Update(func(tb *Tables) error {
		o := tb.Orders["ord_001"]
		o.Status = order.StatusConfirmed
		tb.Orders["ord_001"] = o
		return nil
	}))

	after, _ := d.Order("ord_001")
	assert.Equal(t, order.StatusPending, before.Status)
	assert.Equal(t, order.StatusConfirmed, after.Status)
}

func TestTables_NextOrderNumber(t *testing.T) {
	d := NewDataset()
	var first, second string
	_ = d.Update(func(tb *Tables) error {
		first = tb.NextOrderNumber()
		second = tb.NextOrderNumber()
		return nil
	})
	assert.Equal(t, "ORD-00001", first)
	assert.Equal(t, "ORD-00002", second)
}
