package delivery

import (
	"errors"
	"time"
)

const (
	EventDeliveryStatusChanged = "DeliveryStatusChanged"
	EventDriverLocationUpdate  = "DeliveryPersonLocationUpdate"
)

var ErrMissingDeliveryID = errors.New("delivery event without delivery id")

type StatusChanged struct {
	DeliveryID  string     `json:"delivery_id"`
	OrderID     string     `json:"order_id,omitempty"`
	Status      Status     `json:"status"`
	DriverID    *string    `json:"driver_id,omitempty"`
	DriverName  string     `json:"driver_name,omitempty"`
	Note        string     `json:"note,omitempty"`
	ChangedAt   time.Time  `json:"changed_at"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
}

func (StatusChanged) EventName() string { return EventDeliveryStatusChanged }

func (e StatusChanged) Validate() error {
	if e.DeliveryID == "" {
		return ErrMissingDeliveryID
	}
	if !e.Status.Valid() {
		return ErrUnknownStatus
	}
	return nil
}

func (e StatusChanged) Patch() map[string]any {
	patch := map[string]any{"status": e.Status}
	if !e.ChangedAt.IsZero() {
		patch["updated_at"] = e.ChangedAt
	}
	if e.DriverID != nil {
		patch["driver_id"] = *e.DriverID
	}
	if e.DriverName != "" {
		patch["driver_name"] = e.DriverName
	}
	if e.DeliveredAt != nil {
		patch["delivered_at"] = *e.DeliveredAt
	}
	return patch
}

// LocationUpdate reports a driver's position for an active delivery.
type LocationUpdate struct {
	DeliveryID string   `json:"delivery_id"`
	DriverID   string   `json:"driver_id"`
	Location   Location `json:"location"`
}

func (LocationUpdate) EventName() string { return EventDriverLocationUpdate }

func (e LocationUpdate) Validate() error {
	if e.DeliveryID == "" {
		return ErrMissingDeliveryID
	}
	return nil
}

func (e LocationUpdate) Patch() map[string]any {
	return map[string]any{"driver_location": e.Location}
}
