// Package command applies the development backend's writes to the dataset
// and announces each accepted change on the real-time channel.
package command

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/grocery-sync/internal/domain/customer"
	"github.com/example/grocery-sync/internal/domain/delivery"
	"github.com/example/grocery-sync/internal/domain/inventory"
	"github.com/example/grocery-sync/internal/domain/order"
	"github.com/example/grocery-sync/internal/readmodel"
	"github.com/example/grocery-sync/internal/realtime"
)

var (
	ErrDriverNotFound     = errors.New("driver not found")
	ErrDeliveryFinished   = errors.New("delivery already finished")
	ErrMissingDriver      = errors.New("driver id is required")
	ErrMissingCustomer    = errors.New("customer id is required")
	ErrUnknownProduct     = errors.New("order references an unknown product")
	ErrInactiveProduct    = errors.New("order references an inactive product")
	ErrOrderNotAssignable = errors.New("order cannot be assigned a driver in its current status")
)

// Publisher pushes real-time envelopes to connected consoles.
type Publisher interface {
	PublishEvent(ctx context.Context, env realtime.Envelope) error
}

// LocationGroup is the group driver positions for one delivery go to.
func LocationGroup(deliveryID string) string {
	return "delivery:" + deliveryID
}

type Handler struct {
	data      *readmodel.Dataset
	publisher Publisher
	logger    *zap.Logger
	now       func() time.Time
}

func NewHandler(data *readmodel.Dataset, publisher Publisher, logger *zap.Logger) *Handler {
	return &Handler{
		data:      data,
		publisher: publisher,
		logger:    logger.Named("command"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateOrder prices the items from the catalogue, reserves stock and
// updates the customer's metrics in one step.
func (h *Handler) CreateOrder(ctx context.Context, cmd CreateOrder) (order.Order, error) {
	if cmd.CustomerID == "" {
		return order.Order{}, ErrMissingCustomer
	}
	if len(cmd.Items) == 0 {
		return order.Order{}, order.ErrEmptyOrder
	}

	now := h.now()
	var created order.Order
	var alerts []inventory.LowStockAlert

	err := h.data.Update(func(t *readmodel.Tables) error {
		c, ok := t.Customers[cmd.CustomerID]
		if !ok {
			return customer.ErrCustomerNotFound
		}

		o := order.Order{
			ID:        "ord_" + uuid.NewString(),
			Customer:  order.Customer{ID: c.ID, Name: c.Name, Email: c.Email, Phone: c.Phone},
			Payment:   order.Payment{Method: cmd.PaymentMethod, Status: "pending"},
			Notes:     cmd.Notes,
			CreatedAt: now,
		}
		if cmd.DeliveryAddress != nil {
			o.DeliveryAddress = *cmd.DeliveryAddress
		} else if addr, ok := c.DefaultAddress(); ok {
			o.DeliveryAddress = order.Address{
				Street: addr.Street, City: addr.City, State: addr.State, ZipCode: addr.ZipCode, Country: addr.Country,
			}
		}

		reserved := make(map[string]inventory.Product, len(cmd.Items))
		for _, item := range cmd.Items {
			p, ok := reserved[item.ProductID]
			if !ok {
				if p, ok = t.Products[item.ProductID]; !ok {
					return fmt.Errorf("%w: %s", ErrUnknownProduct, item.ProductID)
				}
			}
			if !p.Active {
				return fmt.Errorf("%w: %s", ErrInactiveProduct, item.ProductID)
			}
			if item.Quantity <= 0 {
				return fmt.Errorf("%w: %s", order.ErrInvalidQuantity, item.ProductID)
			}
			stock, err := inventory.ApplyAdjustment(p.Stock,
				inventory.Adjustment{Type: inventory.AdjustRemove, Quantity: item.Quantity})
			if err != nil {
				return fmt.Errorf("%s: %w", p.Name, err)
			}
			p.Stock = stock
			reserved[p.ID] = p

			o.Items = append(o.Items, order.LineItem{
				ProductID:   p.ID,
				ProductName: p.Name,
				Quantity:    item.Quantity,
				UnitPrice:   p.EffectivePrice(now),
			})
		}
		if err := o.Recalculate(); err != nil {
			return err
		}
		o.Number = t.NextOrderNumber()
		o.ApplyTransition(order.StatusPending, "Order placed", c.Name, now)

		for id, p := range reserved {
			before := t.Products[id]
			p.UpdatedAt = now
			t.Products[id] = p
			if alert, ok := lowStockCrossing(before, p, now); ok {
				alerts = append(alerts, alert)
			}
		}

		c.Metrics.TotalOrders++
		c.Metrics.TotalSpent = c.Metrics.TotalSpent.Add(o.Total)
		c.Metrics.LoyaltyPoints += int(o.Total.IntPart())
		c.Metrics.LastOrderAt = &now
		t.Customers[c.ID] = c

		t.Orders[o.ID] = o
		created = o
		return nil
	})
	if err != nil {
		return order.Order{}, err
	}

	h.publish(ctx, "", order.Created{
		OrderID:      created.ID,
		OrderNumber:  created.Number,
		CustomerName: created.Customer.Name,
		Status:       created.Status,
		Total:        created.Total.StringFixed(2),
		CreatedAt:    created.CreatedAt,
	})
	for _, a := range alerts {
		h.publish(ctx, "", a)
	}
	return created, nil
}

// UpdateOrderStatus enforces the order state machine.
func (h *Handler) UpdateOrderStatus(ctx context.Context, cmd UpdateOrderStatus) (order.Order, error) {
	if cmd.Status == order.StatusCancelled {
		return h.CancelOrder(ctx, CancelOrder{OrderID: cmd.OrderID, Reason: cmd.Note, Actor: cmd.Actor})
	}

	now := h.now()
	var updated order.Order
	err := h.data.Update(func(t *readmodel.Tables) error {
		o, ok := t.Orders[cmd.OrderID]
		if !ok {
			return order.ErrOrderNotFound
		}
		if err := order.ValidateTransition(o.Status, cmd.Status); err != nil {
			return err
		}
		o.StatusHistory = slices.Clone(o.StatusHistory)
		o.ApplyTransition(cmd.Status, cmd.Note, cmd.Actor, now)
		if cmd.Status == order.StatusDelivered {
			o.Payment.Status = "paid"
		}
		t.Orders[o.ID] = o
		updated = o
		return nil
	})
	if err != nil {
		return order.Order{}, err
	}

	h.publishOrderStatus(ctx, updated)
	return updated, nil
}

// CancelOrder puts reserved stock back and cancels any open delivery.
func (h *Handler) CancelOrder(ctx context.Context, cmd CancelOrder) (order.Order, error) {
	now := h.now()
	var updated order.Order
	var cancelled *delivery.Delivery

	err := h.data.Update(func(t *readmodel.Tables) error {
		o, ok := t.Orders[cmd.OrderID]
		if !ok {
			return order.ErrOrderNotFound
		}
		if err := order.ValidateTransition(o.Status, order.StatusCancelled); err != nil {
			return err
		}

		for _, item := range o.Items {
			p, ok := t.Products[item.ProductID]
			if !ok {
				continue
			}
			p.Stock += item.Quantity
			p.UpdatedAt = now
			t.Products[p.ID] = p
		}

		if d, ok := t.DeliveryForOrder(o.ID); ok && !d.Status.IsTerminal() {
			d.Status = delivery.StatusCancelled
			d.UpdatedAt = now
			t.Deliveries[d.ID] = d
			cancelled = &d
		}

		note := "Cancelled"
		if cmd.Reason != "" {
			note = "Cancelled: " + cmd.Reason
		}
		o.StatusHistory = slices.Clone(o.StatusHistory)
		o.ApplyTransition(order.StatusCancelled, note, cmd.Actor, now)
		if o.Payment.Status == "paid" {
			o.Payment.Status = "refunded"
		}
		t.Orders[o.ID] = o
		updated = o
		return nil
	})
	if err != nil {
		return order.Order{}, err
	}

	h.publishOrderStatus(ctx, updated)
	if cancelled != nil {
		h.publishDeliveryStatus(ctx, *cancelled, "Order cancelled")
	}
	return updated, nil
}

// AssignDelivery attaches a driver to an order, creating its delivery on
// first assignment.
func (h *Handler) AssignDelivery(ctx context.Context, cmd AssignDelivery) (order.Order, error) {
	if cmd.DriverID == "" {
		return order.Order{}, ErrMissingDriver
	}

	now := h.now()
	var updated order.Order
	var assigned delivery.Delivery

	err := h.data.Update(func(t *readmodel.Tables) error {
		o, ok := t.Orders[cmd.OrderID]
		if !ok {
			return order.ErrOrderNotFound
		}
		if o.Status.IsTerminal() {
			return fmt.Errorf("%w: %s", ErrOrderNotAssignable, o.Status)
		}
		driver, ok := t.Drivers[cmd.DriverID]
		if !ok {
			return ErrDriverNotFound
		}

		d, ok := t.DeliveryForOrder(o.ID)
		if ok && d.Status.IsTerminal() {
			return ErrDeliveryFinished
		}
		if !ok {
			d = delivery.Delivery{
				ID:           "del_" + uuid.NewString(),
				OrderID:      o.ID,
				CustomerID:   o.Customer.ID,
				CustomerName: o.Customer.Name,
				Status:       delivery.StatusPending,
				Address:      delivery.Address(o.DeliveryAddress),
				Instructions: o.Notes,
				CreatedAt:    now,
			}
		}
		driverID := driver.ID
		d.DriverID = &driverID
		d.DriverName = driver.Name
		if d.Status == delivery.StatusPending {
			d.Status = delivery.StatusAssigned
		}
		d.UpdatedAt = now
		t.Deliveries[d.ID] = d

		o.DriverID = driver.ID
		o.UpdatedAt = now
		t.Orders[o.ID] = o

		updated, assigned = o, d
		return nil
	})
	if err != nil {
		return order.Order{}, err
	}

	h.publishDeliveryStatus(ctx, assigned, "Driver assigned")
	return updated, nil
}

func (h *Handler) CreateProduct(ctx context.Context, p inventory.Product) (inventory.Product, error) {
	if err := p.Validate(); err != nil {
		return inventory.Product{}, err
	}
	now := h.now()
	p.ID = "prd_" + uuid.NewString()
	p.Active = true
	p.CreatedAt = now
	p.UpdatedAt = now

	_ = h.data.Update(func(t *readmodel.Tables) error {
		t.Products[p.ID] = p
		return nil
	})
	if p.StockStatus() != inventory.StockIn {
		h.publish(ctx, "", lowStockAlert(p, now))
	}
	return p, nil
}

// UpdateProduct replaces the editable fields. Stock only changes through
// AdjustStock.
func (h *Handler) UpdateProduct(ctx context.Context, p inventory.Product) (inventory.Product, error) {
	if err := p.Validate(); err != nil {
		return inventory.Product{}, err
	}
	now := h.now()
	var updated inventory.Product
	var alert *inventory.LowStockAlert

	err := h.data.Update(func(t *readmodel.Tables) error {
		current, ok := t.Products[p.ID]
		if !ok {
			return inventory.ErrProductNotFound
		}
		p.Stock = current.Stock
		p.CreatedAt = current.CreatedAt
		p.UpdatedAt = now
		t.Products[p.ID] = p
		if a, ok := lowStockCrossing(current, p, now); ok {
			alert = &a
		}
		updated = p
		return nil
	})
	if err != nil {
		return inventory.Product{}, err
	}
	if alert != nil {
		h.publish(ctx, "", *alert)
	}
	return updated, nil
}

// AdjustStock applies one adjustment atomically against the stored level.
func (h *Handler) AdjustStock(ctx context.Context, cmd AdjustStock) (inventory.Product, error) {
	now := h.now()
	var updated inventory.Product
	var alert *inventory.LowStockAlert

	err := h.data.Update(func(t *readmodel.Tables) error {
		p, ok := t.Products[cmd.ProductID]
		if !ok {
			return inventory.ErrProductNotFound
		}
		before := p
		stock, err := inventory.ApplyAdjustment(p.Stock, cmd.Adjustment)
		if err != nil {
			return err
		}
		p.Stock = stock
		p.UpdatedAt = now
		t.Products[p.ID] = p
		if a, ok := lowStockCrossing(before, p, now); ok {
			alert = &a
		}
		updated = p
		return nil
	})
	if err != nil {
		return inventory.Product{}, err
	}

	h.logger.Info("stock adjusted",
		zap.String("product_id", updated.ID),
		zap.String("type", string(cmd.Adjustment.Type)),
		zap.Int("quantity", cmd.Adjustment.Quantity),
		zap.Int("stock", updated.Stock))
	if alert != nil {
		h.publish(ctx, "", *alert)
	}
	return updated, nil
}

// UpdateDeliveryStatus enforces the delivery state machine. A delivered
// delivery also completes its order.
func (h *Handler) UpdateDeliveryStatus(ctx context.Context, cmd UpdateDeliveryStatus) (delivery.Delivery, error) {
	now := h.now()
	var updated delivery.Delivery
	var completed *order.Order

	err := h.data.Update(func(t *readmodel.Tables) error {
		d, ok := t.Deliveries[cmd.DeliveryID]
		if !ok {
			return delivery.ErrDeliveryNotFound
		}
		if err := delivery.ValidateTransition(d.Status, cmd.Status); err != nil {
			return err
		}
		d.Status = cmd.Status
		d.UpdatedAt = now
		if cmd.Status == delivery.StatusDelivered {
			at := now
			d.DeliveredAt = &at
		}
		t.Deliveries[d.ID] = d
		updated = d

		if cmd.Status != delivery.StatusDelivered {
			return nil
		}
		o, ok := t.Orders[d.OrderID]
		if !ok || order.ValidateTransition(o.Status, order.StatusDelivered) != nil {
			return nil
		}
		o.StatusHistory = slices.Clone(o.StatusHistory)
		o.ApplyTransition(order.StatusDelivered, "Delivered", cmd.Actor, now)
		o.Payment.Status = "paid"
		t.Orders[o.ID] = o
		completed = &o
		return nil
	})
	if err != nil {
		return delivery.Delivery{}, err
	}

	h.publishDeliveryStatus(ctx, updated, cmd.Note)
	if completed != nil {
		h.publishOrderStatus(ctx, *completed)
	}
	return updated, nil
}

// UpdateDriverLocation records a position and sends it to the consoles
// tracking that delivery.
func (h *Handler) UpdateDriverLocation(ctx context.Context, cmd UpdateDriverLocation) error {
	loc := cmd.Location
	if loc.At.IsZero() {
		loc.At = h.now()
	}
	var driverID string
	err := h.data.Update(func(t *readmodel.Tables) error {
		d, ok := t.Deliveries[cmd.DeliveryID]
		if !ok {
			return delivery.ErrDeliveryNotFound
		}
		if d.Status.IsTerminal() {
			return ErrDeliveryFinished
		}
		d.DriverLocation = &loc
		t.Deliveries[d.ID] = d
		if d.DriverID != nil {
			driverID = *d.DriverID
		}
		return nil
	})
	if err != nil {
		return err
	}

	h.publish(ctx, LocationGroup(cmd.DeliveryID), delivery.LocationUpdate{
		DeliveryID: cmd.DeliveryID,
		DriverID:   driverID,
		Location:   loc,
	})
	return nil
}

// RaiseAlert broadcasts an operator message.
func (h *Handler) RaiseAlert(ctx context.Context, cmd RaiseAlert) error {
	alert := realtime.SystemAlert{
		Severity: strings.ToLower(cmd.Severity),
		Title:    cmd.Title,
		Message:  cmd.Message,
	}
	if err := alert.Validate(); err != nil {
		return err
	}
	h.publish(ctx, "", alert)
	return nil
}

func (h *Handler) publishOrderStatus(ctx context.Context, o order.Order) {
	last := o.StatusHistory[len(o.StatusHistory)-1]
	h.publish(ctx, "", order.StatusChanged{
		OrderID:     o.ID,
		OrderNumber: o.Number,
		Status:      o.Status,
		Note:        last.Note,
		ChangedBy:   last.Actor,
		ChangedAt:   last.Timestamp,
		History:     o.StatusHistory,
	})
}

func (h *Handler) publishDeliveryStatus(ctx context.Context, d delivery.Delivery, note string) {
	h.publish(ctx, "", delivery.StatusChanged{
		DeliveryID:  d.ID,
		OrderID:     d.OrderID,
		Status:      d.Status,
		DriverID:    d.DriverID,
		DriverName:  d.DriverName,
		Note:        note,
		ChangedAt:   d.UpdatedAt,
		DeliveredAt: d.DeliveredAt,
	})
}

// publish is best effort: the write already happened, so a channel failure
// only costs consoles a live update.
func (h *Handler) publish(ctx context.Context, group string, e realtime.Event) {
	env, err := realtime.NewEnvelope(e.EventName(), group, e)
	if err != nil {
		h.logger.Error("encoding event", zap.String("event", e.EventName()), zap.Error(err))
		return
	}
	if err := h.publisher.PublishEvent(ctx, env); err != nil {
		h.logger.Warn("publishing event failed", zap.String("event", env.Event), zap.Error(err))
		return
	}
	h.logger.Debug("published", zap.String("event", env.Event), zap.String("group", group))
}

// lowStockCrossing reports an alert when a product's stock status worsens.
func lowStockCrossing(before, after inventory.Product, at time.Time) (inventory.LowStockAlert, bool) {
	if after.StockStatus() == inventory.StockIn || after.StockStatus() == before.StockStatus() {
		return inventory.LowStockAlert{}, false
	}
	if before.StockStatus() == inventory.StockOut {
		return inventory.LowStockAlert{}, false
	}
	return lowStockAlert(after, at), true
}

func lowStockAlert(p inventory.Product, at time.Time) inventory.LowStockAlert {
	return inventory.LowStockAlert{
		ProductID:     p.ID,
		Name:          p.Name,
		Stock:         p.Stock,
		MinStockLevel: p.MinStockLevel,
		RaisedAt:      at,
	}
}
