package backend

import (
	"context"
	"net/http"
	"net/url"

	"github.com/example/grocery-sync/internal/domain/delivery"
	"github.com/example/grocery-sync/internal/slice"
)

func deliveryQuery(f delivery.Filter, page, pageSize int) url.Values {
	q := pageQuery(page, pageSize)
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	if f.DriverID != "" {
		q.Set("driver_id", f.DriverID)
	}
	if f.Date != nil {
		q.Set("date", f.Date.Format("2006-01-02"))
	}
	return q
}

func (c *Client) ListDeliveries(ctx context.Context, f delivery.Filter, page, pageSize int) (slice.Page[delivery.Delivery], error) {
	var out slice.Page[delivery.Delivery]
	err := c.do(ctx, http.MethodGet, "/deliveries", deliveryQuery(f, page, pageSize), nil, &out)
	return out, err
}

func (c *Client) GetDelivery(ctx context.Context, id string) (delivery.Delivery, error) {
	var out delivery.Delivery
	err := c.do(ctx, http.MethodGet, "/deliveries/"+url.PathEscape(id), nil, nil, &out)
	return out, err
}

func (c *Client) ListDrivers(ctx context.Context) ([]delivery.Driver, error) {
	var out []delivery.Driver
	err := c.do(ctx, http.MethodGet, "/deliveries/persons", nil, nil, &out)
	return out, err
}

func (c *Client) UpdateDeliveryStatus(ctx context.Context, id string, status delivery.Status, note string) (delivery.Delivery, error) {
	var out delivery.Delivery
	err := c.do(ctx, http.MethodPatch, "/deliveries/"+url.PathEscape(id)+"/status", nil,
		StatusUpdate[delivery.Status]{Status: status, Note: note}, &out)
	return out, err
}
