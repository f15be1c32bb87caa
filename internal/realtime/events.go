package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/example/grocery-sync/internal/domain/delivery"
	"github.com/example/grocery-sync/internal/domain/inventory"
	"github.com/example/grocery-sync/internal/domain/order"
)

const (
	EventSystemAlert        = "SystemAlert"
	EventConnectionRestored = "ConnectionRestored"
)

var (
	ErrUnknownEvent     = errors.New("unknown event")
	ErrMalformedPayload = errors.New("malformed event payload")
	ErrEmptyAlert       = errors.New("system alert without message")
)

// Event is the closed set of things the bridge delivers: the domain
// payload types plus SystemAlert and ConnectionRestored.
type Event interface {
	EventName() string
}

type SystemAlert struct {
	Severity string          `json:"type,omitempty"`
	Title    string          `json:"title,omitempty"`
	Message  string          `json:"message"`
	Data     json.RawMessage `json:"data,omitempty"`
}

func (SystemAlert) EventName() string { return EventSystemAlert }

func (e SystemAlert) Validate() error {
	if e.Message == "" && e.Title == "" {
		return ErrEmptyAlert
	}
	return nil
}

// ConnectionRestored is raised locally after a successful reconnection. It
// never arrives from the wire.
type ConnectionRestored struct {
	At time.Time
}

func (ConnectionRestored) EventName() string { return EventConnectionRestored }

type validator interface {
	Validate() error
}

// Decode turns a wire event into its typed form and validates it.
func Decode(name string, payload []byte) (Event, error) {
	switch name {
	case order.EventNewOrder:
		return decodeAs[order.Created](name, payload)
	case order.EventOrderStatusChanged:
		return decodeAs[order.StatusChanged](name, payload)
	case delivery.EventDeliveryStatusChanged:
		return decodeAs[delivery.StatusChanged](name, payload)
	case delivery.EventDriverLocationUpdate:
		return decodeAs[delivery.LocationUpdate](name, payload)
	case inventory.EventLowStockAlert:
		return decodeAs[inventory.LowStockAlert](name, payload)
	case EventSystemAlert:
		return decodeAs[SystemAlert](name, payload)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, name)
	}
}

func decodeAs[E interface {
	Event
	validator
}](name string, payload []byte) (Event, error) {
	var e E
	if err := json.Unmarshal(payload, &e); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedPayload, name, err)
	}
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedPayload, name, err)
	}
	return e, nil
}
