package mocks

import (
	"context"
	"errors"
	"sync"

	"github.com/example/grocery-sync/internal/domain/customer"
	"github.com/example/grocery-sync/internal/domain/delivery"
	"github.com/example/grocery-sync/internal/domain/inventory"
	"github.com/example/grocery-sync/internal/domain/order"
	"github.com/example/grocery-sync/internal/slice"
)

var ErrNotFound = errors.New("mock: not found")

type Call struct {
	Method string
	ID     string
	Args   []any
}

// MockBackend records every call and answers from its configured fields.
type MockBackend struct {
	mu    sync.Mutex
	calls []Call

	Order      order.Order
	Product    inventory.Product
	Delivery   delivery.Delivery
	Customer   customer.Customer
	Stats      order.Statistics
	OrderPage  slice.Page[order.Order]
	Drivers    []delivery.Driver
	Categories []inventory.Category
	Err        error

	// AdjustHook runs inside AdjustStock before it returns.
	AdjustHook func()
}

func (m *MockBackend) record(method, id string, args ...any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Method: method, ID: id, Args: args})
	return m.Err
}

func (m *MockBackend) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

func (m *MockBackend) CallCount(method string) int {
	n := 0
	for _, c := range m.Calls() {
		if c.Method == method {
			n++
		}
	}
	return n
}

func (m *MockBackend) UpdateOrderStatus(_ context.Context, id string, status order.Status, note string) (order.Order, error) {
	if err := m.record("UpdateOrderStatus", id, status, note); err != nil {
		return order.Order{}, err
	}
	o := m.Order
	o.ID = id
	o.Status = status
	return o, nil
}

func (m *MockBackend) CancelOrder(_ context.Context, id, reason string) (order.Order, error) {
	if err := m.record("CancelOrder", id, reason); err != nil {
		return order.Order{}, err
	}
	o := m.Order
	o.ID = id
	o.Status = order.StatusCancelled
	return o, nil
}

func (m *MockBackend) AssignDelivery(_ context.Context, id, driverID string) (order.Order, error) {
	if err := m.record("AssignDelivery", id, driverID); err != nil {
		return order.Order{}, err
	}
	o := m.Order
	o.ID = id
	o.DriverID = driverID
	return o, nil
}

func (m *MockBackend) OrderStatistics(context.Context) (order.Statistics, error) {
	if err := m.record("OrderStatistics", ""); err != nil {
		return order.Statistics{}, err
	}
	return m.Stats, nil
}

func (m *MockBackend) UpdateProduct(_ context.Context, p inventory.Product) (inventory.Product, error) {
	if err := m.record("UpdateProduct", p.ID, p); err != nil {
		return inventory.Product{}, err
	}
	return p, nil
}

func (m *MockBackend) AdjustStock(_ context.Context, id string, adj inventory.Adjustment) (inventory.Product, error) {
	err := m.record("AdjustStock", id, adj)
	if m.AdjustHook != nil {
		m.AdjustHook()
	}
	if err != nil {
		return inventory.Product{}, err
	}
	p := m.Product
	p.ID = id
	return p, nil
}

func (m *MockBackend) UpdateDeliveryStatus(_ context.Context, id string, status delivery.Status, note string) (delivery.Delivery, error) {
	if err := m.record("UpdateDeliveryStatus", id, status, note); err != nil {
		return delivery.Delivery{}, err
	}
	d := m.Delivery
	d.ID = id
	d.Status = status
	return d, nil
}

func (m *MockBackend) GetCustomer(_ context.Context, id string) (customer.Customer, error) {
	if err := m.record("GetCustomer", id); err != nil {
		return customer.Customer{}, err
	}
	c := m.Customer
	c.ID = id
	return c, nil
}

func (m *MockBackend) CustomerOrders(_ context.Context, id string, page, pageSize int) (slice.Page[order.Order], error) {
	if err := m.record("CustomerOrders", id, page, pageSize); err != nil {
		return slice.Page[order.Order]{}, err
	}
	return m.OrderPage, nil
}

func (m *MockBackend) ListDrivers(context.Context) ([]delivery.Driver, error) {
	if err := m.record("ListDrivers", ""); err != nil {
		return nil, err
	}
	return m.Drivers, nil
}

func (m *MockBackend) ListCategories(context.Context) ([]inventory.Category, error) {
	if err := m.record("ListCategories", ""); err != nil {
		return nil, err
	}
	return m.Categories, nil
}

// StaticFetcher serves one fixed page and records the filters it saw.
type StaticFetcher[T slice.Entity, F any] struct {
	mu      sync.Mutex
	Items   []T
	Err     error
	filters []F
}

func (f *StaticFetcher[T, F]) List(_ context.Context, filter F, page, pageSize int) (slice.Page[T], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filters = append(f.filters, filter)
	if f.Err != nil {
		return slice.Page[T]{}, f.Err
	}
	return slice.Page[T]{Items: f.Items, Total: len(f.Items), Page: page, PageSize: pageSize, TotalPages: 1}, nil
}

func (f *StaticFetcher[T, F]) Get(_ context.Context, id string) (T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, it := range f.Items {
		if it.GetID() == id {
			return it, nil
		}
	}
	var zero T
	if f.Err != nil {
		return zero, f.Err
	}
	return zero, ErrNotFound
}

func (f *StaticFetcher[T, F]) Create(_ context.Context, entity T) (T, error) {
	return entity, f.Err
}

func (f *StaticFetcher[T, F]) SeenFilters() []F {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]F(nil), f.filters...)
}
