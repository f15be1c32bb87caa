package delivery

import (
	"errors"
	"fmt"
	"time"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusAssigned  Status = "assigned"
	StatusPickedUp  Status = "picked_up"
	StatusInTransit Status = "in_transit"
	StatusDelivered Status = "delivered"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

var (
	ErrDeliveryNotFound = errors.New("delivery not found")
	ErrUnknownStatus    = errors.New("unknown delivery status")
	ErrTerminalStatus   = errors.New("delivery is in a terminal status")
	ErrInvalidStatus    = errors.New("invalid delivery status transition")
)

var sequence = []Status{
	StatusPending,
	StatusAssigned,
	StatusPickedUp,
	StatusInTransit,
	StatusDelivered,
}

var progress = map[Status]int{
	StatusPending:   0,
	StatusAssigned:  20,
	StatusPickedUp:  40,
	StatusInTransit: 70,
	StatusDelivered: 100,
	StatusFailed:    0,
	StatusCancelled: 0,
}

// Progress is the display percentage for a status. Unknown statuses are 0.
func Progress(s Status) int {
	return progress[s]
}

func (s Status) Valid() bool {
	_, ok := progress[s]
	return ok
}

func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusFailed || s == StatusCancelled
}

func (s Status) index() int {
	for i, st := range sequence {
		if st == s {
			return i
		}
	}
	return -1
}

// ValidateTransition rejects moves out of a terminal status and backwards
// moves along the forward sequence. Skipping ahead is allowed: drivers
// often report picked_up and in_transit together.
func ValidateTransition(from, to Status) error {
	if !to.Valid() {
		return fmt.Errorf("%w: %s", ErrUnknownStatus, to)
	}
	if from.IsTerminal() {
		return fmt.Errorf("%w: %s", ErrTerminalStatus, from)
	}
	if to == StatusFailed || to == StatusCancelled {
		return nil
	}
	if to.index() <= from.index() {
		return fmt.Errorf("%w: cannot transition from %s to %s", ErrInvalidStatus, from, to)
	}
	return nil
}

type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state,omitempty"`
	ZipCode string `json:"zip_code,omitempty"`
	Country string `json:"country,omitempty"`
}

type Location struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	At        time.Time `json:"at"`
}

type Delivery struct {
	ID             string     `json:"id"`
	OrderID        string     `json:"order_id"`
	CustomerID     string     `json:"customer_id"`
	CustomerName   string     `json:"customer_name,omitempty"`
	DriverID       *string    `json:"driver_id"`
	DriverName     string     `json:"driver_name,omitempty"`
	Status         Status     `json:"status"`
	Address        Address    `json:"address"`
	Instructions   string     `json:"instructions,omitempty"`
	DriverLocation *Location  `json:"driver_location,omitempty"`
	ScheduledAt    *time.Time `json:"scheduled_at,omitempty"`
	EstimatedAt    *time.Time `json:"estimated_at,omitempty"`
	DeliveredAt    *time.Time `json:"delivered_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (d Delivery) GetID() string { return d.ID }

func (d Delivery) Progress() int { return Progress(d.Status) }

// Driver is a delivery person that can be assigned to deliveries.
type Driver struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Phone     string `json:"phone,omitempty"`
	Available bool   `json:"available"`
}

type Filter struct {
	Status   Status     `json:"status,omitempty"`
	DriverID string     `json:"driver_id,omitempty"`
	Date     *time.Time `json:"date,omitempty"`
}

func (f Filter) Matches(d Delivery) bool {
	if f.Status != "" && d.Status != f.Status {
		return false
	}
	if f.DriverID != "" && (d.DriverID == nil || *d.DriverID != f.DriverID) {
		return false
	}
	if f.Date != nil {
		ref := d.CreatedAt
		if d.ScheduledAt != nil {
			ref = *d.ScheduledAt
		}
		y1, m1, d1 := ref.Date()
		y2, m2, d2 := f.Date.Date()
		if y1 != y2 || m1 != m2 || d1 != d2 {
			return false
		}
	}
	return true
}
