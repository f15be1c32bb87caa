// Package state is the root container for client state: the domain
// slices, notifications, toasts, preferences and connectivity. It is built
// explicitly and passed to whoever needs it.
package state

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/example/grocery-sync/internal/domain/customer"
	"github.com/example/grocery-sync/internal/domain/delivery"
	"github.com/example/grocery-sync/internal/domain/inventory"
	"github.com/example/grocery-sync/internal/domain/order"
	"github.com/example/grocery-sync/internal/infrastructure/store"
	"github.com/example/grocery-sync/internal/notification"
	"github.com/example/grocery-sync/internal/observer"
	"github.com/example/grocery-sync/internal/preferences"
	"github.com/example/grocery-sync/internal/projection"
	"github.com/example/grocery-sync/internal/slice"
)

// Backend is the request/response surface used by commands.
type Backend interface {
	UpdateOrderStatus(ctx context.Context, id string, status order.Status, note string) (order.Order, error)
	CancelOrder(ctx context.Context, id, reason string) (order.Order, error)
	AssignDelivery(ctx context.Context, id, driverID string) (order.Order, error)
	OrderStatistics(ctx context.Context) (order.Statistics, error)
	UpdateProduct(ctx context.Context, p inventory.Product) (inventory.Product, error)
	AdjustStock(ctx context.Context, id string, adj inventory.Adjustment) (inventory.Product, error)
	UpdateDeliveryStatus(ctx context.Context, id string, status delivery.Status, note string) (delivery.Delivery, error)
	GetCustomer(ctx context.Context, id string) (customer.Customer, error)
	CustomerOrders(ctx context.Context, id string, page, pageSize int) (slice.Page[order.Order], error)
	ListDrivers(ctx context.Context) ([]delivery.Driver, error)
	ListCategories(ctx context.Context) ([]inventory.Category, error)
}

type Fetchers struct {
	Orders     slice.Fetcher[order.Order, order.Filter]
	Inventory  slice.Fetcher[inventory.Product, inventory.Filter]
	Deliveries slice.Fetcher[delivery.Delivery, delivery.Filter]
	Customers  slice.Fetcher[customer.Customer, customer.Filter]
}

type Config struct {
	Backend              Backend
	Fetchers             Fetchers
	Storage              store.KV
	Logger               *zap.Logger
	NotificationCapacity int
	ToastTTL             time.Duration
	ErrorToastTTL        time.Duration
}

type Store struct {
	Orders        *slice.Slice[order.Order, order.Filter]
	Inventory     *slice.Slice[inventory.Product, inventory.Filter]
	Deliveries    *slice.Slice[delivery.Delivery, delivery.Filter]
	Customers     *slice.Slice[customer.Customer, customer.Filter]
	Notifications *notification.Center
	Toasts        *notification.Toaster
	Preferences   *preferences.Store

	backend  Backend
	fetchers Fetchers
	logger   *zap.Logger

	connected    atomic.Bool
	connectivity observer.Registry
	stockLocks   keyedMutex

	mu             sync.Mutex
	dashboard      Dashboard
	customerOrders map[string]slice.Page[order.Order]
	drivers        []delivery.Driver
	categories     []inventory.Category
}

func New(cfg Config) *Store {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	kv := cfg.Storage
	if kv == nil {
		kv = store.NewMemoryStore()
	}
	return &Store{
		Orders:         slice.New[order.Order, order.Filter]("orders", cfg.Fetchers.Orders, logger),
		Inventory:      slice.New[inventory.Product, inventory.Filter]("inventory", cfg.Fetchers.Inventory, logger),
		Deliveries:     slice.New[delivery.Delivery, delivery.Filter]("deliveries", cfg.Fetchers.Deliveries, logger),
		Customers:      slice.New[customer.Customer, customer.Filter]("customers", cfg.Fetchers.Customers, logger),
		Notifications:  notification.NewCenter(cfg.NotificationCapacity),
		Toasts:         notification.NewToaster(cfg.ToastTTL, cfg.ErrorToastTTL),
		Preferences:    preferences.Open(kv, logger),
		backend:        cfg.Backend,
		fetchers:       cfg.Fetchers,
		logger:         logger.Named("store"),
		customerOrders: make(map[string]slice.Page[order.Order]),
	}
}

// Projector returns the event reconciler bound to this store.
func (s *Store) Projector() *projection.Projector {
	return projection.NewProjector(s.Orders, s.Deliveries, s.Notifications, s.Preferences, s.logger)
}

// SetConnected records real-time connectivity. Subscribers hear only
// actual changes.
func (s *Store) SetConnected(v bool) {
	if s.connected.Swap(v) == v {
		return
	}
	s.connectivity.Notify()
}

func (s *Store) Connected() bool {
	return s.connected.Load()
}

func (s *Store) SubscribeConnectivity(fn func()) *observer.Subscription {
	return s.connectivity.Subscribe(fn)
}

// Reset drops all session-scoped data. Preferences survive.
func (s *Store) Reset() {
	s.Orders.Reset()
	s.Inventory.Reset()
	s.Deliveries.Reset()
	s.Customers.Reset()
	s.Notifications.ClearAll()

	s.mu.Lock()
	s.dashboard = Dashboard{}
	s.customerOrders = make(map[string]slice.Page[order.Order])
	s.drivers = nil
	s.categories = nil
	s.mu.Unlock()
}

// Close releases timers.
func (s *Store) Close() {
	s.Toasts.Close()
}
