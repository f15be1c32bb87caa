// Package query serves the development backend's reads: filtering,
// pagination and summary statistics over the dataset.
package query

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/grocery-sync/internal/domain/customer"
	"github.com/example/grocery-sync/internal/domain/delivery"
	"github.com/example/grocery-sync/internal/domain/inventory"
	"github.com/example/grocery-sync/internal/domain/order"
	"github.com/example/grocery-sync/internal/readmodel"
	"github.com/example/grocery-sync/internal/slice"
)

const MaxPageSize = 100

type Handler struct {
	data *readmodel.Dataset
	now  func() time.Time
}

func NewHandler(data *readmodel.Dataset) *Handler {
	return &Handler{data: data, now: time.Now}
}

// Orders

func (h *Handler) ListOrders(f order.Filter, page, pageSize int) slice.Page[order.Order] {
	return paginate(filter(h.data.Orders(), f.Matches), page, pageSize)
}

func (h *Handler) GetOrder(id string) (order.Order, bool) {
	return h.data.Order(id)
}

func (h *Handler) CustomerOrders(customerID string, page, pageSize int) slice.Page[order.Order] {
	return paginate(filter(h.data.Orders(), func(o order.Order) bool {
		return o.Customer.ID == customerID
	}), page, pageSize)
}

// Statistics summarises all orders. Revenue excludes cancelled orders;
// today is the calendar day of the handler's clock.
func (h *Handler) Statistics() order.Statistics {
	now := h.now()
	y, m, d := now.Date()

	var stats order.Statistics
	revenue := decimal.Zero
	billable := 0
	for _, o := range h.data.Orders() {
		stats.TotalOrders++
		switch o.Status {
		case order.StatusPending:
			stats.PendingOrders++
		case order.StatusDelivered:
			stats.CompletedOrders++
		case order.StatusCancelled:
			stats.CancelledOrders++
			continue
		}
		revenue = revenue.Add(o.Total)
		billable++
		if oy, om, od := o.CreatedAt.In(now.Location()).Date(); oy == y && om == m && od == d {
			stats.TodayRevenue = stats.TodayRevenue.Add(o.Total)
		}
	}
	if billable > 0 {
		stats.AverageOrderValue = revenue.Div(decimal.NewFromInt(int64(billable))).Round(2)
	}
	stats.TotalCustomers = len(h.data.Customers())
	return stats
}

// Products

func (h *Handler) ListProducts(f inventory.Filter, page, pageSize int) slice.Page[inventory.Product] {
	return paginate(filter(h.data.Products(), f.Matches), page, pageSize)
}

func (h *Handler) GetProduct(id string) (inventory.Product, bool) {
	return h.data.Product(id)
}

// Categories are derived from the products on hand, sorted by name.
func (h *Handler) Categories() []inventory.Category {
	counts := make(map[string]int)
	var names []string
	for _, p := range h.data.Products() {
		if p.Category == "" {
			continue
		}
		if _, ok := counts[p.Category]; !ok {
			names = append(names, p.Category)
		}
		counts[p.Category]++
	}
	sort.Strings(names)
	out := make([]inventory.Category, 0, len(names))
	for _, n := range names {
		out = append(out, inventory.Category{Name: n, ProductCount: counts[n]})
	}
	return out
}

// Deliveries

func (h *Handler) ListDeliveries(f delivery.Filter, page, pageSize int) slice.Page[delivery.Delivery] {
	return paginate(filter(h.data.Deliveries(), f.Matches), page, pageSize)
}

func (h *Handler) GetDelivery(id string) (delivery.Delivery, bool) {
	return h.data.Delivery(id)
}

func (h *Handler) Drivers() []delivery.Driver {
	return h.data.Drivers()
}

// Customers

func (h *Handler) ListCustomers(f customer.Filter, page, pageSize int) slice.Page[customer.Customer] {
	return paginate(filter(h.data.Customers(), f.Matches), page, pageSize)
}

func (h *Handler) GetCustomer(id string) (customer.Customer, bool) {
	return h.data.Customer(id)
}

func filter[T any](items []T, keep func(T) bool) []T {
	out := items[:0:0]
	for _, it := range items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out
}

// paginate cuts one page out of items. Pages are 1-based; a page past the
// end is empty but still reports the totals.
func paginate[T any](items []T, page, pageSize int) slice.Page[T] {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = slice.DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	total := len(items)
	start := (page - 1) * pageSize
	end := start + pageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	return slice.Page[T]{
		Items:      append(make([]T, 0, end-start), items[start:end]...),
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: (total + pageSize - 1) / pageSize,
	}
}
