package inventory

import (
	"errors"
	"time"
)

const EventLowStockAlert = "LowStockAlert"

var ErrMissingProductID = errors.New("stock event without product id")

// LowStockAlert carries a partial product snapshot. It is never merged into
// the inventory list; the list is refreshed by an explicit fetch.
type LowStockAlert struct {
	ProductID     string    `json:"product_id"`
	Name          string    `json:"name"`
	Stock         int       `json:"stock"`
	MinStockLevel int       `json:"min_stock_level"`
	RaisedAt      time.Time `json:"raised_at"`
}

func (LowStockAlert) EventName() string { return EventLowStockAlert }

func (e LowStockAlert) Validate() error {
	if e.ProductID == "" {
		return ErrMissingProductID
	}
	return nil
}

func (e LowStockAlert) StockStatus() StockStatus {
	return DeriveStockStatus(e.Stock, e.MinStockLevel)
}
