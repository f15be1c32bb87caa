package order

import (
	"errors"
	"time"
)

// Wire names of the real-time events carrying order payloads.
const (
	EventNewOrder           = "NewOrder"
	EventOrderStatusChanged = "OrderStatusChanged"
)

var ErrMissingOrderID = errors.New("order event without order id")

// Created announces an order placed by a customer.
type Created struct {
	OrderID      string    `json:"order_id"`
	OrderNumber  string    `json:"order_number"`
	CustomerName string    `json:"customer_name"`
	Status       Status    `json:"status"`
	Total        string    `json:"total,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func (Created) EventName() string { return EventNewOrder }

func (e Created) Validate() error {
	if e.OrderID == "" {
		return ErrMissingOrderID
	}
	return nil
}

// StatusChanged announces an accepted status transition. History, when
// present, is the full authoritative status log after the transition.
type StatusChanged struct {
	OrderID     string         `json:"order_id"`
	OrderNumber string         `json:"order_number"`
	Status      Status         `json:"status"`
	Note        string         `json:"note,omitempty"`
	ChangedBy   string         `json:"changed_by,omitempty"`
	ChangedAt   time.Time      `json:"changed_at"`
	History     []HistoryEntry `json:"status_history,omitempty"`
}

func (StatusChanged) EventName() string { return EventOrderStatusChanged }

func (e StatusChanged) Validate() error {
	if e.OrderID == "" {
		return ErrMissingOrderID
	}
	if !e.Status.Valid() {
		return ErrUnknownStatus
	}
	return nil
}

// Apply reconciles a loaded order with this event. A full history in the
// payload replaces the local one; otherwise the transition is appended so
// the last history entry always matches the status. Replays are no-ops.
func (e StatusChanged) Apply(o Order) Order {
	o.Status = e.Status
	if !e.ChangedAt.IsZero() {
		o.UpdatedAt = e.ChangedAt
	}
	if e.History != nil {
		o.StatusHistory = append([]HistoryEntry(nil), e.History...)
		return o
	}
	if n := len(o.StatusHistory); n > 0 && o.StatusHistory[n-1].Status == e.Status {
		return o
	}
	o.StatusHistory = append(append([]HistoryEntry(nil), o.StatusHistory...), HistoryEntry{
		Status:    e.Status,
		Timestamp: e.ChangedAt,
		Note:      e.Note,
		Actor:     e.ChangedBy,
	})
	return o
}
