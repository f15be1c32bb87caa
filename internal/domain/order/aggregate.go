package order

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending        Status = "pending"
	StatusConfirmed      Status = "confirmed"
	StatusPreparing      Status = "preparing"
	StatusReady          Status = "ready"
	StatusOutForDelivery Status = "out_for_delivery"
	StatusDelivered      Status = "delivered"
	StatusCancelled      Status = "cancelled"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrEmptyOrder        = errors.New("order must have at least one item")
	ErrInvalidStatus     = errors.New("invalid order status transition")
	ErrUnknownStatus     = errors.New("unknown order status")
	ErrOrderCancelled    = errors.New("order is already cancelled")
	ErrOrderDelivered    = errors.New("order is already delivered")
	ErrInvalidQuantity   = errors.New("item quantity must be positive")
	ErrNegativeUnitPrice = errors.New("item unit price must not be negative")
)

// sequence is the forward path every order walks; cancelled sits outside it.
var sequence = []Status{
	StatusPending,
	StatusConfirmed,
	StatusPreparing,
	StatusReady,
	StatusOutForDelivery,
	StatusDelivered,
}

// Statuses returns every known status in display order.
func Statuses() []Status {
	out := make([]Status, 0, len(sequence)+1)
	out = append(out, sequence...)
	return append(out, StatusCancelled)
}

func (s Status) Valid() bool {
	if s == StatusCancelled {
		return true
	}
	return s.index() >= 0
}

func (s Status) index() int {
	for i, st := range sequence {
		if st == s {
			return i
		}
	}
	return -1
}

// IsTerminal reports whether no further transition is allowed from s.
func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// NextStatus returns the immediate successor of s in the forward sequence.
func NextStatus(s Status) (Status, bool) {
	i := s.index()
	if i < 0 || i == len(sequence)-1 {
		return "", false
	}
	return sequence[i+1], true
}

// ValidateTransition reports whether moving from one status to another
// follows the state machine. The client only uses this to flag a request;
// the backend decides.
func ValidateTransition(from, to Status) error {
	if !to.Valid() {
		return fmt.Errorf("%w: %s", ErrUnknownStatus, to)
	}
	switch from {
	case StatusCancelled:
		return ErrOrderCancelled
	case StatusDelivered:
		return ErrOrderDelivered
	}
	if to == StatusCancelled {
		return nil
	}
	if next, ok := NextStatus(from); ok && next == to {
		return nil
	}
	return fmt.Errorf("%w: cannot transition from %s to %s", ErrInvalidStatus, from, to)
}

type Customer struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state,omitempty"`
	ZipCode string `json:"zip_code,omitempty"`
	Country string `json:"country,omitempty"`
}

func (a Address) String() string {
	parts := make([]string, 0, 5)
	for _, p := range []string{a.Street, a.City, a.State, a.ZipCode, a.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

type LineItem struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// Total is quantity times unit price.
func (li LineItem) Total() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

type HistoryEntry struct {
	Status    Status    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Note      string    `json:"note,omitempty"`
	Actor     string    `json:"actor,omitempty"`
}

type Payment struct {
	Method string `json:"method"`
	Status string `json:"status"`
}

type Order struct {
	ID                string          `json:"id"`
	Number            string          `json:"number"`
	Customer          Customer        `json:"customer"`
	Items             []LineItem      `json:"items"`
	Tax               decimal.Decimal `json:"tax"`
	Discount          decimal.Decimal `json:"discount"`
	Total             decimal.Decimal `json:"total"`
	Status            Status          `json:"status"`
	DeliveryAddress   Address         `json:"delivery_address"`
	Payment           Payment         `json:"payment"`
	DriverID          string          `json:"driver_id,omitempty"`
	Notes             string          `json:"notes,omitempty"`
	StatusHistory     []HistoryEntry  `json:"status_history"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	EstimatedDelivery *time.Time      `json:"estimated_delivery,omitempty"`
}

func (o Order) GetID() string { return o.ID }

// Subtotal sums the line totals.
func (o Order) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range o.Items {
		sum = sum.Add(item.Total())
	}
	return sum
}

// ComputeTotal is subtotal + tax - discount.
func (o Order) ComputeTotal() decimal.Decimal {
	return o.Subtotal().Add(o.Tax).Sub(o.Discount)
}

// Recalculate refreshes every line total and the order total from the
// line items, tax and discount.
func (o *Order) Recalculate() error {
	if len(o.Items) == 0 {
		return ErrEmptyOrder
	}
	for i := range o.Items {
		item := &o.Items[i]
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: %s", ErrInvalidQuantity, item.ProductID)
		}
		if item.UnitPrice.IsNegative() {
			return fmt.Errorf("%w: %s", ErrNegativeUnitPrice, item.ProductID)
		}
		item.LineTotal = item.Total()
	}
	o.Total = o.ComputeTotal()
	return nil
}

// ApplyTransition moves the order to status and appends the matching
// history entry. at is the authoritative timestamp.
func (o *Order) ApplyTransition(status Status, note, actor string, at time.Time) {
	o.Status = status
	o.UpdatedAt = at
	o.StatusHistory = append(o.StatusHistory, HistoryEntry{
		Status:    status,
		Timestamp: at,
		Note:      note,
		Actor:     actor,
	})
}

// Filter narrows an order list request.
type Filter struct {
	Status   Status     `json:"status,omitempty"`
	Search   string     `json:"search,omitempty"`
	DateFrom *time.Time `json:"date_from,omitempty"`
	DateTo   *time.Time `json:"date_to,omitempty"`
}

// Matches reports whether o passes the filter.
func (f Filter) Matches(o Order) bool {
	if f.Status != "" && o.Status != f.Status {
		return false
	}
	if f.DateFrom != nil && o.CreatedAt.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && o.CreatedAt.After(*f.DateTo) {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(o.ID), q) &&
			!strings.Contains(strings.ToLower(o.Number), q) &&
			!strings.Contains(strings.ToLower(o.Customer.Name), q) &&
			!strings.Contains(strings.ToLower(o.Customer.Email), q) {
			return false
		}
	}
	return true
}

// Statistics is the dashboard summary served by the backend.
type Statistics struct {
	TotalOrders       int             `json:"total_orders"`
	PendingOrders     int             `json:"pending_orders"`
	CompletedOrders   int             `json:"completed_orders"`
	CancelledOrders   int             `json:"cancelled_orders"`
	TodayRevenue      decimal.Decimal `json:"today_revenue"`
	TotalCustomers    int             `json:"total_customers"`
	AverageOrderValue decimal.Decimal `json:"average_order_value"`
}
