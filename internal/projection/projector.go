// Package projection reconciles real-time events into client state.
package projection

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/example/grocery-sync/internal/domain/delivery"
	"github.com/example/grocery-sync/internal/domain/inventory"
	"github.com/example/grocery-sync/internal/domain/order"
	"github.com/example/grocery-sync/internal/notification"
	"github.com/example/grocery-sync/internal/preferences"
	"github.com/example/grocery-sync/internal/realtime"
	"github.com/example/grocery-sync/internal/slice"
)

// Patcher merges a partial update into a loaded entity. It never inserts.
type Patcher interface {
	ApplyPatch(id string, patch slice.Patch) bool
}

// OrderUpdater rewrites a loaded order in place.
type OrderUpdater interface {
	Update(id string, fn func(order.Order) order.Order) bool
}

// DeliveryTarget patches loaded deliveries and reports their current copy.
type DeliveryTarget interface {
	Patcher
	Find(id string) (delivery.Delivery, bool)
}

type Notifier interface {
	Append(n notification.Notification) notification.Notification
}

type PreferenceReader interface {
	Get() preferences.Preferences
}

type Projector struct {
	orders        OrderUpdater
	deliveries    DeliveryTarget
	notifications Notifier
	prefs         PreferenceReader
	logger        *zap.Logger
}

// NewProjector wires the reconciliation targets. A nil prefs enables every
// notification.
func NewProjector(orders OrderUpdater, deliveries DeliveryTarget, notifications Notifier, prefs PreferenceReader, logger *zap.Logger) *Projector {
	return &Projector{
		orders:        orders,
		deliveries:    deliveries,
		notifications: notifications,
		prefs:         prefs,
		logger:        logger.Named("projector"),
	}
}

func (p *Projector) HandleEvent(ctx context.Context, e realtime.Event) error {
	p.logger.Debug("received event", zap.String("event", e.EventName()))

	switch ev := e.(type) {
	case order.Created:
		p.handleNewOrder(ev)
	case order.StatusChanged:
		p.handleOrderStatusChanged(ev)
	case delivery.StatusChanged:
		p.handleDeliveryStatusChanged(ev)
	case delivery.LocationUpdate:
		p.deliveries.ApplyPatch(ev.DeliveryID, ev.Patch())
	case inventory.LowStockAlert:
		p.handleLowStock(ev)
	case realtime.SystemAlert:
		p.handleSystemAlert(ev)
	case realtime.ConnectionRestored:
		p.notify(notification.SeverityInfo, "Connection Restored", "Real-time updates resumed", nil)
	default:
		return fmt.Errorf("no reconciliation for event %q", e.EventName())
	}
	return nil
}

// New orders are announced only. The orders list picks them up on its next
// fetch so pagination and filters stay consistent.
func (p *Projector) handleNewOrder(e order.Created) {
	p.notify(notification.SeveritySuccess, "New Order Received",
		fmt.Sprintf("Order #%s from %s", orderLabel(e.OrderNumber, e.OrderID), e.CustomerName), e)
}

func (p *Projector) handleOrderStatusChanged(e order.StatusChanged) {
	if !p.orders.Update(e.OrderID, e.Apply) {
		p.logger.Debug("order not loaded, status change not merged", zap.String("order_id", e.OrderID))
	}
	if !p.enabled(func(n preferences.Notifications) bool { return n.OrderStatus }) {
		return
	}
	p.notify(notification.SeverityInfo, "Order Status Updated",
		fmt.Sprintf("Order #%s is now %s", orderLabel(e.OrderNumber, e.OrderID), humanize(string(e.Status))), e)
}

// A delivery that already finished never moves again. Late events for it
// are dropped without a notification.
func (p *Projector) handleDeliveryStatusChanged(e delivery.StatusChanged) {
	if current, ok := p.deliveries.Find(e.DeliveryID); ok && current.Status.IsTerminal() && current.Status != e.Status {
		p.logger.Info("ignoring status change for finished delivery",
			zap.String("delivery_id", e.DeliveryID),
			zap.String("status", string(current.Status)),
			zap.String("event_status", string(e.Status)))
		return
	}
	p.deliveries.ApplyPatch(e.DeliveryID, e.Patch())

	severity := notification.SeverityInfo
	if e.Status == delivery.StatusFailed {
		severity = notification.SeverityWarning
	}
	subject := "Delivery " + e.DeliveryID
	if e.OrderID != "" {
		subject = "Delivery for order #" + e.OrderID
	}
	p.notify(severity, "Delivery Status Updated",
		fmt.Sprintf("%s is now %s", subject, humanize(string(e.Status))), e)
}

// Low stock payloads are partial; they are never merged into the
// inventory list.
func (p *Projector) handleLowStock(e inventory.LowStockAlert) {
	if !p.enabled(func(n preferences.Notifications) bool { return n.LowStock }) {
		return
	}
	msg := fmt.Sprintf("%s is running low (%d remaining)", e.Name, e.Stock)
	if e.StockStatus() == inventory.StockOut {
		msg = fmt.Sprintf("%s is out of stock", e.Name)
	}
	p.notify(notification.SeverityWarning, "Low Stock Alert", msg, e)
}

func (p *Projector) handleSystemAlert(e realtime.SystemAlert) {
	title := e.Title
	if title == "" {
		title = "System Alert"
	}
	var payload any
	if len(e.Data) > 0 {
		payload = e.Data
	}
	p.notify(notification.ParseSeverity(e.Severity), title, e.Message, payload)
}

func (p *Projector) notify(severity notification.Severity, title, message string, payload any) {
	n := p.notifications.Append(notification.Notification{
		Severity: severity,
		Title:    title,
		Message:  message,
		Payload:  encodePayload(payload),
	})
	p.logger.Debug("notification added", zap.String("id", n.ID), zap.String("title", title))
}

func (p *Projector) enabled(pick func(preferences.Notifications) bool) bool {
	if p.prefs == nil {
		return true
	}
	return pick(p.prefs.Get().Notifications)
}

func orderLabel(number, id string) string {
	if number != "" {
		return number
	}
	return id
}

func humanize(status string) string {
	return strings.ReplaceAll(status, "_", " ")
}

func encodePayload(v any) json.RawMessage {
	switch p := v.(type) {
	case nil:
		return nil
	case json.RawMessage:
		return p
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return raw
}
