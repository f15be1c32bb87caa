package state

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/example/grocery-sync/internal/domain/delivery"
	"github.com/example/grocery-sync/internal/domain/inventory"
	"github.com/example/grocery-sync/internal/domain/order"
)

const dashboardListSize = 5

type Dashboard struct {
	Stats            order.Statistics
	RecentOrders     []order.Order
	LowStock         []inventory.Product
	ActiveDeliveries []delivery.Delivery
	LoadedAt         time.Time
}

// FetchDashboard loads the dashboard panels concurrently. Either every
// panel loads or the previous dashboard is kept.
func (s *Store) FetchDashboard(ctx context.Context) (Dashboard, error) {
	var d Dashboard
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		stats, err := s.backend.OrderStatistics(gctx)
		if err != nil {
			return fmt.Errorf("statistics: %w", err)
		}
		d.Stats = stats
		return nil
	})
	g.Go(func() error {
		page, err := s.fetchers.Orders.List(gctx, order.Filter{}, 1, dashboardListSize)
		if err != nil {
			return fmt.Errorf("recent orders: %w", err)
		}
		d.RecentOrders = page.Items
		return nil
	})
	g.Go(func() error {
		page, err := s.fetchers.Inventory.List(gctx, inventory.Filter{LowStock: true}, 1, dashboardListSize)
		if err != nil {
			return fmt.Errorf("low stock: %w", err)
		}
		d.LowStock = page.Items
		return nil
	})
	g.Go(func() error {
		page, err := s.fetchers.Deliveries.List(gctx, delivery.Filter{Status: delivery.StatusInTransit}, 1, dashboardListSize)
		if err != nil {
			return fmt.Errorf("active deliveries: %w", err)
		}
		d.ActiveDeliveries = page.Items
		return nil
	})

	if err := g.Wait(); err != nil {
		return s.Dashboard(), fmt.Errorf("fetch dashboard: %w", err)
	}

	d.LoadedAt = time.Now()
	s.mu.Lock()
	s.dashboard = d
	s.mu.Unlock()
	return d, nil
}

func (s *Store) Dashboard() Dashboard {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dashboard
}
