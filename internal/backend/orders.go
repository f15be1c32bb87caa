package backend

import (
	"context"
	"net/http"
	"net/url"

	"github.com/example/grocery-sync/internal/domain/order"
	"github.com/example/grocery-sync/internal/slice"
)

type StatusUpdate[S ~string] struct {
	Status S      `json:"status"`
	Note   string `json:"note,omitempty"`
}

type CancelRequest struct {
	Reason string `json:"reason,omitempty"`
}

type AssignRequest struct {
	DriverID string `json:"driver_id"`
}

func orderQuery(f order.Filter, page, pageSize int) url.Values {
	q := pageQuery(page, pageSize)
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	setTime(q, "date_from", f.DateFrom)
	setTime(q, "date_to", f.DateTo)
	return q
}

func (c *Client) ListOrders(ctx context.Context, f order.Filter, page, pageSize int) (slice.Page[order.Order], error) {
	var out slice.Page[order.Order]
	err := c.do(ctx, http.MethodGet, "/orders", orderQuery(f, page, pageSize), nil, &out)
	return out, err
}

func (c *Client) GetOrder(ctx context.Context, id string) (order.Order, error) {
	var out order.Order
	err := c.do(ctx, http.MethodGet, "/orders/"+url.PathEscape(id), nil, nil, &out)
	return out, err
}

func (c *Client) CreateOrder(ctx context.Context, o order.Order) (order.Order, error) {
	var out order.Order
	err := c.do(ctx, http.MethodPost, "/orders", nil, o, &out)
	return out, err
}

func (c *Client) UpdateOrderStatus(ctx context.Context, id string, status order.Status, note string) (order.Order, error) {
	var out order.Order
	err := c.do(ctx, http.MethodPatch, "/orders/"+url.PathEscape(id)+"/status", nil,
		StatusUpdate[order.Status]{Status: status, Note: note}, &out)
	return out, err
}

func (c *Client) CancelOrder(ctx context.Context, id, reason string) (order.Order, error) {
	var out order.Order
	err := c.do(ctx, http.MethodPatch, "/orders/"+url.PathEscape(id)+"/cancel", nil,
		CancelRequest{Reason: reason}, &out)
	return out, err
}

func (c *Client) AssignDelivery(ctx context.Context, id, driverID string) (order.Order, error) {
	var out order.Order
	err := c.do(ctx, http.MethodPatch, "/orders/"+url.PathEscape(id)+"/assign-delivery", nil,
		AssignRequest{DriverID: driverID}, &out)
	return out, err
}

func (c *Client) OrderStatistics(ctx context.Context) (order.Statistics, error) {
	var out order.Statistics
	err := c.do(ctx, http.MethodGet, "/orders/statistics", nil, nil, &out)
	return out, err
}
