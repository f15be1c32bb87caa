package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/example/grocery-sync/internal/domain/delivery"
	"github.com/example/grocery-sync/internal/domain/inventory"
	"github.com/example/grocery-sync/internal/domain/order"
)

const defaultPageSize = 20

func pagination(r *http.Request) (page, size int, err error) {
	q := r.URL.Query()
	page, size = 1, defaultPageSize
	if v := q.Get("page"); v != "" {
		if page, err = strconv.Atoi(v); err != nil || page < 1 {
			return 0, 0, fmt.Errorf("invalid page %q", v)
		}
	}
	if v := q.Get("limit"); v != "" {
		if size, err = strconv.Atoi(v); err != nil || size < 1 {
			return 0, 0, fmt.Errorf("invalid limit %q", v)
		}
	}
	return page, size, nil
}

func parseTime(r *http.Request, key string) (*time.Time, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q", key, v)
	}
	return &t, nil
}

func orderFilter(r *http.Request) (order.Filter, error) {
	q := r.URL.Query()
	f := order.Filter{Status: order.Status(q.Get("status")), Search: q.Get("search")}
	if f.Status != "" && !f.Status.Valid() {
		return f, fmt.Errorf("%w: %s", order.ErrUnknownStatus, f.Status)
	}
	var err error
	if f.DateFrom, err = parseTime(r, "date_from"); err != nil {
		return f, err
	}
	if f.DateTo, err = parseTime(r, "date_to"); err != nil {
		return f, err
	}
	return f, nil
}

func productFilter(r *http.Request) (inventory.Filter, error) {
	q := r.URL.Query()
	f := inventory.Filter{Category: q.Get("category"), Search: q.Get("search")}
	if v := q.Get("low_stock"); v != "" {
		low, err := strconv.ParseBool(v)
		if err != nil {
			return f, fmt.Errorf("invalid low_stock %q", v)
		}
		f.LowStock = low
	}
	return f, nil
}

func deliveryFilter(r *http.Request) (delivery.Filter, error) {
	q := r.URL.Query()
	f := delivery.Filter{Status: delivery.Status(q.Get("status")), DriverID: q.Get("driver_id")}
	if f.Status != "" && !f.Status.Valid() {
		return f, fmt.Errorf("%w: %s", delivery.ErrUnknownStatus, f.Status)
	}
	if v := q.Get("date"); v != "" {
		d, err := time.Parse("2006-01-02", v)
		if err != nil {
			return f, fmt.Errorf("invalid date %q", v)
		}
		f.Date = &d
	}
	return f, nil
}
