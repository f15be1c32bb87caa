package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/grocery-sync/internal/command"
	"github.com/example/grocery-sync/internal/domain/delivery"
	"github.com/example/grocery-sync/internal/domain/inventory"
	"github.com/example/grocery-sync/internal/domain/order"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{order.ErrOrderNotFound, http.StatusNotFound},
		{fmt.Errorf("wrapped: %w", command.ErrDriverNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: pending to delivered", order.ErrInvalidStatus), http.StatusConflict},
		{inventory.ErrInsufficientStock, http.StatusConflict},
		{delivery.ErrTerminalStatus, http.StatusConflict},
		{command.ErrMissingDriver, http.StatusBadRequest},
		{inventory.ErrMissingProductName, http.StatusBadRequest},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestPagination(t *testing.T) {
	page, size, err := pagination(httptest.NewRequest(http.MethodGet, "/orders", nil))
	require.NoError(t, err)
	assert.Equal(t, 1, page)
	assert.Equal(t, defaultPageSize, size)

	page, size, err = pagination(httptest.NewRequest(http.MethodGet, "/orders?page=3&limit=7", nil))
	require.NoError(t, err)
	assert.Equal(t, 3, page)
	assert.Equal(t, 7, size)

	_, _, err = pagination(httptest.NewRequest(http.MethodGet, "/orders?page=0", nil))
	assert.Error(t, err)
	_, _, err = pagination(httptest.NewRequest(http.MethodGet, "/orders?limit=abc", nil))
	assert.Error(t, err)
}

func TestFilters(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/orders?status=pending&search=ada&date_from=2024-05-01T00:00:00Z", nil)
	f, err := orderFilter(r)
	require.NoError(t, err)
	assert.Equal(t, order.StatusPending, f.Status)
	assert.Equal(t, "ada", f.Search)
	require.NotNil(t, f.DateFrom)
	assert.Nil(t, f.DateTo)

	_, err = orderFilter(httptest.NewRequest(http.MethodGet, "/orders?status=lost", nil))
	assert.ErrorIs(t, err, order.ErrUnknownStatus)
	_, err = orderFilter(httptest.NewRequest(http.MethodGet, "/orders?date_to=yesterday", nil))
	assert.Error(t, err)

	pf, err := productFilter(httptest.NewRequest(http.MethodGet, "/products?low_stock=true&category=Dairy", nil))
	require.NoError(t, err)
	assert.True(t, pf.LowStock)
	assert.Equal(t, "Dairy", pf.Category)
	_, err = productFilter(httptest.NewRequest(http.MethodGet, "/products?low_stock=maybe", nil))
	assert.Error(t, err)

	df, err := deliveryFilter(httptest.NewRequest(http.MethodGet, "/deliveries?date=2024-05-01&driver_id=drv_001", nil))
	require.NoError(t, err)
	require.NotNil(t, df.Date)
	assert.Equal(t, 1, df.Date.Day())
	assert.Equal(t, "drv_001", df.DriverID)
	_, err = deliveryFilter(httptest.NewRequest(http.MethodGet, "/deliveries?date=05/01/2024", nil))
	assert.Error(t, err)
}
