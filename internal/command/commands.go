package command

import (
	"github.com/example/grocery-sync/internal/domain/delivery"
	"github.com/example/grocery-sync/internal/domain/inventory"
	"github.com/example/grocery-sync/internal/domain/order"
)

// Order Commands
type CreateOrder struct {
	CustomerID      string           `json:"customer_id"`
	Items           []order.LineItem `json:"items"`
	DeliveryAddress *order.Address   `json:"delivery_address,omitempty"`
	PaymentMethod   string           `json:"payment_method"`
	Notes           string           `json:"notes,omitempty"`
}

type UpdateOrderStatus struct {
	OrderID string       `json:"order_id"`
	Status  order.Status `json:"status"`
	Note    string       `json:"note"`
	Actor   string       `json:"actor"`
}

type CancelOrder struct {
	OrderID string `json:"order_id"`
	Reason  string `json:"reason"`
	Actor   string `json:"actor"`
}

type AssignDelivery struct {
	OrderID  string `json:"order_id"`
	DriverID string `json:"driver_id"`
	Actor    string `json:"actor"`
}

// Inventory Commands
type AdjustStock struct {
	ProductID  string               `json:"product_id"`
	Adjustment inventory.Adjustment `json:"adjustment"`
}

// Delivery Commands
type UpdateDeliveryStatus struct {
	DeliveryID string          `json:"delivery_id"`
	Status     delivery.Status `json:"status"`
	Note       string          `json:"note"`
	Actor      string          `json:"actor"`
}

type UpdateDriverLocation struct {
	DeliveryID string            `json:"delivery_id"`
	Location   delivery.Location `json:"location"`
}

// System Commands
type RaiseAlert struct {
	Severity string `json:"type"`
	Title    string `json:"title"`
	Message  string `json:"message"`
}
