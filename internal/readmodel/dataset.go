// Package readmodel is the development backend's in-memory dataset.
package readmodel

import (
	"fmt"
	"sort"
	"sync"

	"github.com/example/grocery-sync/internal/domain/customer"
	"github.com/example/grocery-sync/internal/domain/delivery"
	"github.com/example/grocery-sync/internal/domain/inventory"
	"github.com/example/grocery-sync/internal/domain/order"
)

// Tables is the mutable view handed to Dataset.Update.
type Tables struct {
	Orders     map[string]order.Order
	Products   map[string]inventory.Product
	Deliveries map[string]delivery.Delivery
	Customers  map[string]customer.Customer
	Drivers    map[string]delivery.Driver

	orderSeq int
}

// NextOrderNumber hands out human-facing order numbers.
func (t *Tables) NextOrderNumber() string {
	t.orderSeq++
	return fmt.Sprintf("ORD-%05d", t.orderSeq)
}

// DeliveryForOrder finds the delivery attached to an order.
func (t *Tables) DeliveryForOrder(orderID string) (delivery.Delivery, bool) {
	for _, d := range t.Deliveries {
		if d.OrderID == orderID {
			return d, true
		}
	}
	return delivery.Delivery{}, false
}

// Dataset guards Tables with one lock. Reads return copies sorted newest
// first; writes go through Update so each mutation is atomic.
type Dataset struct {
	mu sync.RWMutex
	t  Tables
}

func NewDataset() *Dataset {
	return &Dataset{t: Tables{
		Orders:     make(map[string]order.Order),
		Products:   make(map[string]inventory.Product),
		Deliveries: make(map[string]delivery.Delivery),
		Customers:  make(map[string]customer.Customer),
		Drivers:    make(map[string]delivery.Driver),
	}}
}

// Update runs fn under the write lock.
func (d *Dataset) Update(fn func(t *Tables) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return fn(&d.t)
}

func (d *Dataset) Orders() []order.Order {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := values(d.t.Orders)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (d *Dataset) Order(id string) (order.Order, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	o, ok := d.t.Orders[id]
	return o, ok
}

func (d *Dataset) Products() []inventory.Product {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := values(d.t.Products)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (d *Dataset) Product(id string) (inventory.Product, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.t.Products[id]
	return p, ok
}

func (d *Dataset) Deliveries() []delivery.Delivery {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := values(d.t.Deliveries)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (d *Dataset) Delivery(id string) (delivery.Delivery, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	dl, ok := d.t.Deliveries[id]
	return dl, ok
}

func (d *Dataset) Customers() []customer.Customer {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := values(d.t.Customers)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (d *Dataset) Customer(id string) (customer.Customer, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.t.Customers[id]
	return c, ok
}

func (d *Dataset) Drivers() []delivery.Driver {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := values(d.t.Drivers)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (d *Dataset) Driver(id string) (delivery.Driver, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	dr, ok := d.t.Drivers[id]
	return dr, ok
}

func values[K comparable, V any](m map[K]V) []V {
	out := make([]V, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return out
}
