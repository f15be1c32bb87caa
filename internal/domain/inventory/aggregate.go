package inventory

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrProductNotFound     = errors.New("product not found")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrInvalidQuantity     = errors.New("quantity must not be negative")
	ErrInvalidThresholds   = errors.New("min stock level must not exceed max stock level")
	ErrUnknownAdjustment   = errors.New("unknown stock adjustment type")
	ErrInvalidSaleWindow   = errors.New("sale window ends before it starts")
	ErrMissingProductName  = errors.New("product name is required")
	ErrNegativeProductCost = errors.New("product price and cost must not be negative")
)

type StockStatus string

const (
	StockOut StockStatus = "out_of_stock"
	StockLow StockStatus = "low_stock"
	StockIn  StockStatus = "in_stock"
)

// DeriveStockStatus classifies a stock level against its minimum threshold.
func DeriveStockStatus(stock, minStockLevel int) StockStatus {
	switch {
	case stock <= 0:
		return StockOut
	case stock <= minStockLevel:
		return StockLow
	default:
		return StockIn
	}
}

type Sale struct {
	Price     decimal.Decimal `json:"price"`
	StartDate time.Time       `json:"start_date"`
	EndDate   time.Time       `json:"end_date"`
}

type Product struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	Category      string          `json:"category"`
	Price         decimal.Decimal `json:"price"`
	Cost          decimal.Decimal `json:"cost"`
	Stock         int             `json:"stock"`
	MinStockLevel int             `json:"min_stock_level"`
	MaxStockLevel int             `json:"max_stock_level"`
	Unit          string          `json:"unit,omitempty"`
	SKU           string          `json:"sku,omitempty"`
	Barcode       string          `json:"barcode,omitempty"`
	Supplier      string          `json:"supplier,omitempty"`
	Sale          *Sale           `json:"sale,omitempty"`
	ExpiryDate    *time.Time      `json:"expiry_date,omitempty"`
	Active        bool            `json:"active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (p Product) GetID() string { return p.ID }

func (p Product) StockStatus() StockStatus {
	return DeriveStockStatus(p.Stock, p.MinStockLevel)
}

// EffectivePrice is the sale price while the sale window is open.
func (p Product) EffectivePrice(at time.Time) decimal.Decimal {
	if p.Sale != nil && !at.Before(p.Sale.StartDate) && !at.After(p.Sale.EndDate) {
		return p.Sale.Price
	}
	return p.Price
}

// Validate checks the product invariants. Zero thresholds count as unset.
func (p Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrMissingProductName
	}
	if p.Price.IsNegative() || p.Cost.IsNegative() {
		return ErrNegativeProductCost
	}
	if p.Stock < 0 {
		return ErrInvalidQuantity
	}
	if p.MinStockLevel > 0 && p.MaxStockLevel > 0 && p.MinStockLevel > p.MaxStockLevel {
		return fmt.Errorf("%w: %d > %d", ErrInvalidThresholds, p.MinStockLevel, p.MaxStockLevel)
	}
	if p.Sale != nil && p.Sale.EndDate.Before(p.Sale.StartDate) {
		return ErrInvalidSaleWindow
	}
	return nil
}

type AdjustmentType string

const (
	AdjustAdd    AdjustmentType = "add"
	AdjustRemove AdjustmentType = "remove"
	AdjustSet    AdjustmentType = "set"
)

// Adjustment is a stock change request: a delta (add/remove) or an
// absolute level (set).
type Adjustment struct {
	Type     AdjustmentType `json:"type"`
	Quantity int            `json:"quantity"`
	Notes    string         `json:"notes,omitempty"`
}

// ApplyAdjustment returns the stock level after adj. Stock never goes
// negative.
func ApplyAdjustment(stock int, adj Adjustment) (int, error) {
	if adj.Quantity < 0 {
		return stock, ErrInvalidQuantity
	}
	switch adj.Type {
	case AdjustAdd:
		return stock + adj.Quantity, nil
	case AdjustRemove:
		if adj.Quantity > stock {
			return stock, fmt.Errorf("%w: have %d, remove %d", ErrInsufficientStock, stock, adj.Quantity)
		}
		return stock - adj.Quantity, nil
	case AdjustSet:
		return adj.Quantity, nil
	default:
		return stock, fmt.Errorf("%w: %q", ErrUnknownAdjustment, adj.Type)
	}
}

// Filter narrows a product list request.
// Category groups products on the inventory screen.
type Category struct {
	Name         string `json:"name"`
	ProductCount int    `json:"product_count"`
}

type Filter struct {
	Category string `json:"category,omitempty"`
	Search   string `json:"search,omitempty"`
	LowStock bool   `json:"low_stock,omitempty"`
}

func (f Filter) Matches(p Product) bool {
	if f.Category != "" && !strings.EqualFold(f.Category, p.Category) {
		return false
	}
	if f.LowStock && p.StockStatus() == StockIn {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(p.Name), q) &&
			!strings.Contains(strings.ToLower(p.Description), q) &&
			!strings.Contains(strings.ToLower(p.SKU), q) {
			return false
		}
	}
	return true
}
