package realtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/grocery-sync/internal/domain/delivery"
	"github.com/example/grocery-sync/internal/domain/inventory"
	"github.com/example/grocery-sync/internal/domain/order"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    Event
	}{
		{order.EventNewOrder, `{"order_id":"o1","order_number":"1001","customer_name":"John"}`,
			order.Created{OrderID: "o1", OrderNumber: "1001", CustomerName: "John"}},
		{order.EventOrderStatusChanged, `{"order_id":"o1","status":"ready"}`,
			order.StatusChanged{OrderID: "o1", Status: order.StatusReady}},
		{delivery.EventDeliveryStatusChanged, `{"delivery_id":"d1","status":"failed"}`,
			delivery.StatusChanged{DeliveryID: "d1", Status: delivery.StatusFailed}},
		{inventory.EventLowStockAlert, `{"product_id":"p1","name":"Milk","stock":2,"min_stock_level":5}`,
			inventory.LowStockAlert{ProductID: "p1", Name: "Milk", Stock: 2, MinStockLevel: 5}},
		{EventSystemAlert, `{"type":"warning","message":"maintenance"}`,
			SystemAlert{Severity: "warning", Message: "maintenance"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.name, []byte(tt.payload))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.name, got.EventName())
		})
	}
}

func TestDecode_Rejects(t *testing.T) {
	_, err := Decode("Unknown", []byte(`{}`))
	assert.ErrorIs(t, err, ErrUnknownEvent)

	_, err = Decode(order.EventNewOrder, []byte(`[`))
	assert.ErrorIs(t, err, ErrMalformedPayload)

	_, err = Decode(order.EventOrderStatusChanged, []byte(`{"status":"ready"}`))
	assert.ErrorIs(t, err, ErrMalformedPayload)

	_, err = Decode(EventSystemAlert, []byte(`{}`))
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestSchedule_RepeatsLastDelay(t *testing.T) {
	s := &schedule{delays: []time.Duration{2 * time.Second, 10 * time.Second, 30 * time.Second}}

	got := []time.Duration{}
	for i := 0; i < 5; i++ {
		got = append(got, s.NextBackOff())
	}
	assert.Equal(t, []time.Duration{2 * time.Second, 10 * time.Second, 30 * time.Second, 30 * time.Second, 30 * time.Second}, got)

	s.Reset()
	assert.Equal(t, 2*time.Second, s.NextBackOff())
}

func TestInvocation_StringArg(t *testing.T) {
	inv, err := NewInvocation(MethodJoinGroup, "tok", "client-1", "admins", 3)
	require.NoError(t, err)

	g, ok := inv.StringArg(0)
	assert.True(t, ok)
	assert.Equal(t, "admins", g)
	_, ok = inv.StringArg(1)
	assert.False(t, ok)
	_, ok = inv.StringArg(2)
	assert.False(t, ok)
}
