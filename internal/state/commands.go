package state

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/example/grocery-sync/internal/domain/customer"
	"github.com/example/grocery-sync/internal/domain/delivery"
	"github.com/example/grocery-sync/internal/domain/inventory"
	"github.com/example/grocery-sync/internal/domain/order"
	"github.com/example/grocery-sync/internal/notification"
	"github.com/example/grocery-sync/internal/slice"
)

// UpdateOrderStatus asks the backend to move an order. Transitions that
// look invalid locally are logged but still sent; the backend decides.
func (s *Store) UpdateOrderStatus(ctx context.Context, id string, status order.Status, note string) (order.Order, error) {
	if current, ok := s.findOrder(id); ok {
		if err := order.ValidateTransition(current.Status, status); err != nil {
			s.logger.Warn("sending questionable order transition",
				zap.String("order_id", id),
				zap.String("from", string(current.Status)),
				zap.String("to", string(status)),
				zap.Error(err))
		}
	}

	updated, err := s.Orders.Commit(ctx, func(ctx context.Context) (order.Order, error) {
		return s.backend.UpdateOrderStatus(ctx, id, status, note)
	})
	return updated, s.toastResult(err, "Order status updated", "Failed to update order status")
}

func (s *Store) CancelOrder(ctx context.Context, id, reason string) (order.Order, error) {
	updated, err := s.Orders.Commit(ctx, func(ctx context.Context) (order.Order, error) {
		return s.backend.CancelOrder(ctx, id, reason)
	})
	return updated, s.toastResult(err, "Order cancelled", "Failed to cancel order")
}

func (s *Store) AssignDriver(ctx context.Context, orderID, driverID string) (order.Order, error) {
	updated, err := s.Orders.Commit(ctx, func(ctx context.Context) (order.Order, error) {
		return s.backend.AssignDelivery(ctx, orderID, driverID)
	})
	return updated, s.toastResult(err, "Driver assigned", "Failed to assign driver")
}

// UpdateProduct validates locally before calling the backend.
func (s *Store) UpdateProduct(ctx context.Context, p inventory.Product) (inventory.Product, error) {
	if err := p.Validate(); err != nil {
		return inventory.Product{}, err
	}
	updated, err := s.Inventory.Commit(ctx, func(ctx context.Context) (inventory.Product, error) {
		return s.backend.UpdateProduct(ctx, p)
	})
	return updated, s.toastResult(err, "Product updated", "Failed to update product")
}

// AdjustStock runs at most one adjustment per product at a time, so two
// adjustments can never both be computed from the same starting stock.
func (s *Store) AdjustStock(ctx context.Context, productID string, adj inventory.Adjustment) (inventory.Product, error) {
	unlock := s.stockLocks.Lock(productID)
	defer unlock()

	if p, ok := s.Inventory.Find(productID); ok {
		if _, err := inventory.ApplyAdjustment(p.Stock, adj); err != nil {
			return inventory.Product{}, err
		}
	}

	updated, err := s.Inventory.Commit(ctx, func(ctx context.Context) (inventory.Product, error) {
		return s.backend.AdjustStock(ctx, productID, adj)
	})
	return updated, s.toastResult(err, "Stock updated", "Failed to update stock")
}

func (s *Store) UpdateDeliveryStatus(ctx context.Context, id string, status delivery.Status, note string) (delivery.Delivery, error) {
	if current, ok := s.Deliveries.Find(id); ok {
		if err := delivery.ValidateTransition(current.Status, status); err != nil {
			s.logger.Warn("sending questionable delivery transition",
				zap.String("delivery_id", id),
				zap.String("from", string(current.Status)),
				zap.String("to", string(status)),
				zap.Error(err))
		}
	}

	updated, err := s.Deliveries.Commit(ctx, func(ctx context.Context) (delivery.Delivery, error) {
		return s.backend.UpdateDeliveryStatus(ctx, id, status, note)
	})
	return updated, s.toastResult(err, "Delivery status updated", "Failed to update delivery status")
}

// FetchCustomerOrders loads one page of a customer's order history.
func (s *Store) FetchCustomerOrders(ctx context.Context, customerID string, page, pageSize int) (slice.Page[order.Order], error) {
	result, err := s.backend.CustomerOrders(ctx, customerID, page, pageSize)
	if err != nil {
		return slice.Page[order.Order]{}, fmt.Errorf("fetch orders for customer %s: %w", customerID, err)
	}
	s.mu.Lock()
	s.customerOrders[customerID] = result
	s.mu.Unlock()
	return result, nil
}

func (s *Store) CustomerOrders(customerID string) (slice.Page[order.Order], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.customerOrders[customerID]
	return p, ok
}

// FetchDrivers loads the delivery persons available for assignment. A
// failure keeps the previous list.
func (s *Store) FetchDrivers(ctx context.Context) ([]delivery.Driver, error) {
	drivers, err := s.backend.ListDrivers(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch drivers: %w", err)
	}
	s.mu.Lock()
	s.drivers = drivers
	s.mu.Unlock()
	return drivers, nil
}

func (s *Store) Drivers() []delivery.Driver {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]delivery.Driver(nil), s.drivers...)
}

// FetchCategories loads the product categories used by the inventory
// filter.
func (s *Store) FetchCategories(ctx context.Context) ([]inventory.Category, error) {
	categories, err := s.backend.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch categories: %w", err)
	}
	s.mu.Lock()
	s.categories = categories
	s.mu.Unlock()
	return categories, nil
}

func (s *Store) Categories() []inventory.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]inventory.Category(nil), s.categories...)
}

// RefreshCustomer reloads a customer, metrics included. Metrics are never
// computed locally.
func (s *Store) RefreshCustomer(ctx context.Context, id string) (customer.Customer, error) {
	return s.Customers.Commit(ctx, func(ctx context.Context) (customer.Customer, error) {
		return s.backend.GetCustomer(ctx, id)
	})
}

func (s *Store) findOrder(id string) (order.Order, bool) {
	return s.Orders.Find(id)
}

func (s *Store) toastResult(err error, success, failure string) error {
	if err != nil {
		s.Toasts.Show(notification.SeverityError, failure, err.Error())
		return err
	}
	s.Toasts.Show(notification.SeveritySuccess, success, "")
	return nil
}
