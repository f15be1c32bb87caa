package backend

import (
	"context"
	"net/http"
	"net/url"

	"github.com/example/grocery-sync/internal/domain/inventory"
	"github.com/example/grocery-sync/internal/slice"
)

func productQuery(f inventory.Filter, page, pageSize int) url.Values {
	q := pageQuery(page, pageSize)
	if f.Category != "" {
		q.Set("category", f.Category)
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	if f.LowStock {
		q.Set("low_stock", "true")
	}
	return q
}

func (c *Client) ListProducts(ctx context.Context, f inventory.Filter, page, pageSize int) (slice.Page[inventory.Product], error) {
	var out slice.Page[inventory.Product]
	err := c.do(ctx, http.MethodGet, "/products", productQuery(f, page, pageSize), nil, &out)
	return out, err
}

func (c *Client) GetProduct(ctx context.Context, id string) (inventory.Product, error) {
	var out inventory.Product
	err := c.do(ctx, http.MethodGet, "/products/"+url.PathEscape(id), nil, nil, &out)
	return out, err
}

func (c *Client) ListCategories(ctx context.Context) ([]inventory.Category, error) {
	var out []inventory.Category
	err := c.do(ctx, http.MethodGet, "/products/categories", nil, nil, &out)
	return out, err
}

func (c *Client) CreateProduct(ctx context.Context, p inventory.Product) (inventory.Product, error) {
	var out inventory.Product
	err := c.do(ctx, http.MethodPost, "/products", nil, p, &out)
	return out, err
}

func (c *Client) UpdateProduct(ctx context.Context, p inventory.Product) (inventory.Product, error) {
	var out inventory.Product
	err := c.do(ctx, http.MethodPut, "/products/"+url.PathEscape(p.ID), nil, p, &out)
	return out, err
}

func (c *Client) AdjustStock(ctx context.Context, id string, adj inventory.Adjustment) (inventory.Product, error) {
	var out inventory.Product
	err := c.do(ctx, http.MethodPatch, "/products/"+url.PathEscape(id)+"/stock", nil, adj, &out)
	return out, err
}
