package customer

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var ErrCustomerNotFound = errors.New("customer not found")

type Address struct {
	ID        string `json:"id"`
	Label     string `json:"label,omitempty"`
	Street    string `json:"street"`
	City      string `json:"city"`
	State     string `json:"state,omitempty"`
	ZipCode   string `json:"zip_code,omitempty"`
	Country   string `json:"country,omitempty"`
	IsDefault bool   `json:"is_default"`
}

// Metrics are backend-computed summaries. The client only ever replaces
// them with a fresh copy from the backend.
type Metrics struct {
	TotalOrders   int             `json:"total_orders"`
	TotalSpent    decimal.Decimal `json:"total_spent"`
	LoyaltyPoints int             `json:"loyalty_points"`
	LastOrderAt   *time.Time      `json:"last_order_at,omitempty"`
}

type Customer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Status    string    `json:"status,omitempty"`
	Addresses []Address `json:"addresses"`
	Metrics   Metrics   `json:"metrics"`
	CreatedAt time.Time `json:"created_at"`
}

func (c Customer) GetID() string { return c.ID }

// DefaultAddress returns the address flagged as default, falling back to
// the first one.
func (c Customer) DefaultAddress() (Address, bool) {
	for _, a := range c.Addresses {
		if a.IsDefault {
			return a, true
		}
	}
	if len(c.Addresses) > 0 {
		return c.Addresses[0], true
	}
	return Address{}, false
}

type Filter struct {
	Search string `json:"search,omitempty"`
	Status string `json:"status,omitempty"`
}

func (f Filter) Matches(c Customer) bool {
	if f.Status != "" && !strings.EqualFold(f.Status, c.Status) {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(c.Name), q) &&
			!strings.Contains(strings.ToLower(c.Email), q) &&
			!strings.Contains(c.Phone, q) {
			return false
		}
	}
	return true
}
