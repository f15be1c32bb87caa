package backend

import (
	"context"

	"github.com/example/grocery-sync/internal/domain/customer"
	"github.com/example/grocery-sync/internal/domain/delivery"
	"github.com/example/grocery-sync/internal/domain/inventory"
	"github.com/example/grocery-sync/internal/domain/order"
	"github.com/example/grocery-sync/internal/slice"
)

// The fetchers adapt the client to slice.Fetcher for each collection.

type OrderFetcher struct{ C *Client }

func (f OrderFetcher) List(ctx context.Context, filter order.Filter, page, pageSize int) (slice.Page[order.Order], error) {
	return f.C.ListOrders(ctx, filter, page, pageSize)
}

func (f OrderFetcher) Get(ctx context.Context, id string) (order.Order, error) {
	return f.C.GetOrder(ctx, id)
}

func (f OrderFetcher) Create(ctx context.Context, o order.Order) (order.Order, error) {
	return f.C.CreateOrder(ctx, o)
}

type ProductFetcher struct{ C *Client }

func (f ProductFetcher) List(ctx context.Context, filter inventory.Filter, page, pageSize int) (slice.Page[inventory.Product], error) {
	return f.C.ListProducts(ctx, filter, page, pageSize)
}

func (f ProductFetcher) Get(ctx context.Context, id string) (inventory.Product, error) {
	return f.C.GetProduct(ctx, id)
}

func (f ProductFetcher) Create(ctx context.Context, p inventory.Product) (inventory.Product, error) {
	return f.C.CreateProduct(ctx, p)
}

type DeliveryFetcher struct{ C *Client }

func (f DeliveryFetcher) List(ctx context.Context, filter delivery.Filter, page, pageSize int) (slice.Page[delivery.Delivery], error) {
	return f.C.ListDeliveries(ctx, filter, page, pageSize)
}

func (f DeliveryFetcher) Get(ctx context.Context, id string) (delivery.Delivery, error) {
	return f.C.GetDelivery(ctx, id)
}

// Deliveries are created by the backend when an order is assigned.
func (DeliveryFetcher) Create(context.Context, delivery.Delivery) (delivery.Delivery, error) {
	return delivery.Delivery{}, ErrUnsupported
}

type CustomerFetcher struct{ C *Client }

func (f CustomerFetcher) List(ctx context.Context, filter customer.Filter, page, pageSize int) (slice.Page[customer.Customer], error) {
	return f.C.ListCustomers(ctx, filter, page, pageSize)
}

func (f CustomerFetcher) Get(ctx context.Context, id string) (customer.Customer, error) {
	return f.C.GetCustomer(ctx, id)
}

func (CustomerFetcher) Create(context.Context, customer.Customer) (customer.Customer, error) {
	return customer.Customer{}, ErrUnsupported
}
