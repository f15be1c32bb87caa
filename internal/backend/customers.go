package backend

import (
	"context"
	"net/http"
	"net/url"

	"github.com/example/grocery-sync/internal/domain/customer"
	"github.com/example/grocery-sync/internal/domain/order"
	"github.com/example/grocery-sync/internal/slice"
)

func (c *Client) ListCustomers(ctx context.Context, f customer.Filter, page, pageSize int) (slice.Page[customer.Customer], error) {
	q := pageQuery(page, pageSize)
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	if f.Status != "" {
		q.Set("status", f.Status)
	}
	var out slice.Page[customer.Customer]
	err := c.do(ctx, http.MethodGet, "/customers", q, nil, &out)
	return out, err
}

func (c *Client) GetCustomer(ctx context.Context, id string) (customer.Customer, error) {
	var out customer.Customer
	err := c.do(ctx, http.MethodGet, "/customers/"+url.PathEscape(id), nil, nil, &out)
	return out, err
}

func (c *Client) CustomerOrders(ctx context.Context, id string, page, pageSize int) (slice.Page[order.Order], error) {
	var out slice.Page[order.Order]
	err := c.do(ctx, http.MethodGet, "/customers/"+url.PathEscape(id)+"/orders", pageQuery(page, pageSize), nil, &out)
	return out, err
}
