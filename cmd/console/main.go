package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/example/grocery-sync/internal/auth"
	"github.com/example/grocery-sync/internal/backend"
	"github.com/example/grocery-sync/internal/config"
	"github.com/example/grocery-sync/internal/infrastructure/kafka"
	"github.com/example/grocery-sync/internal/infrastructure/store"
	"github.com/example/grocery-sync/internal/logger"
	"github.com/example/grocery-sync/internal/realtime"
	"github.com/example/grocery-sync/internal/session"
	"github.com/example/grocery-sync/internal/state"
)

const dashboardInterval = time.Minute

func main() {
	_ = godotenv.Load()
	cfg := config.LoadEnv()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := config.LoadFile(path, cfg); err != nil {
			log.Fatalf("[CONSOLE] %v", err)
		}
	}

	appLogger, err := logger.New(cfg.Logger, cfg.Server.AppEnv)
	if err != nil {
		log.Fatalf("[CONSOLE] %v", err)
	}
	defer appLogger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, appLogger); err != nil && !errors.Is(err, context.Canceled) {
		appLogger.Fatal("console stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, appLogger *zap.Logger) error {
	kv, closeKV, err := openStorage(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer closeKV()

	client := backend.New(cfg.Server.BackendURL, backend.WithLogger(appLogger))

	st := state.New(state.Config{
		Backend: client,
		Fetchers: state.Fetchers{
			Orders:     backend.OrderFetcher{C: client},
			Inventory:  backend.ProductFetcher{C: client},
			Deliveries: backend.DeliveryFetcher{C: client},
			Customers:  backend.CustomerFetcher{C: client},
		},
		Storage:              kv,
		Logger:               appLogger,
		NotificationCapacity: cfg.Notifications.Capacity,
		ToastTTL:             cfg.Notifications.ToastTTL,
		ErrorToastTTL:        cfg.Notifications.ErrorToastTTL,
	})
	defer st.Close()

	transport := kafka.NewTransport(cfg.Kafka.Brokers, cfg.Kafka.EventsTopic, cfg.Kafka.CommandsTopic, appLogger,
		kafka.WithHandshakeTimeout(cfg.Realtime.HandshakeTimeout),
		kafka.WithLivenessTimeout(cfg.Realtime.LivenessTimeout),
	)
	bridge := realtime.NewBridge(transport, appLogger,
		realtime.WithReconnectDelays(cfg.Realtime.ReconnectDelays...),
		realtime.WithHandler(st.Projector().HandleEvent),
		realtime.WithConnectivityListener(st.SetConnected),
	)
	defer bridge.Disconnect()

	gate := session.NewGate(client, bridge, kv, appLogger, session.WithTokenListener(client.SetToken))

	restored, err := gate.Restore(ctx)
	if err != nil {
		appLogger.Warn("restoring session", zap.Error(err))
	}
	if !restored {
		if _, err := gate.Login(ctx, auth.Credentials{Email: cfg.Console.Email, Password: cfg.Console.Password}); err != nil {
			return err
		}
	}
	if user, ok := gate.User(); ok {
		appLogger.Info("signed in", zap.String("user", user.Email), zap.Bool("restored", restored))
	}

	notifications := st.Notifications.Subscribe(func() {
		list := st.Notifications.List()
		if len(list) > 0 {
			appLogger.Info("notification",
				zap.String("title", list[0].Title),
				zap.String("message", list[0].Message),
				zap.Int("unread", st.Notifications.UnreadCount()))
		}
	})
	defer notifications.Close()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return loadCollections(ctx, st)
	})
	g.Go(func() error {
		ticker := time.NewTicker(dashboardInterval)
		defer ticker.Stop()
		for {
			if d, err := st.FetchDashboard(ctx); err == nil {
				appLogger.Info("dashboard",
					zap.Int("orders", d.Stats.TotalOrders),
					zap.Int("pending", d.Stats.PendingOrders),
					zap.Int("low_stock", len(d.LowStock)),
					zap.Int("active_deliveries", len(d.ActiveDeliveries)))
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		}
	})
	return g.Wait()
}

func loadCollections(ctx context.Context, st *state.Store) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return st.Orders.FetchList(ctx, 1, 20) })
	g.Go(func() error { return st.Inventory.FetchList(ctx, 1, 20) })
	g.Go(func() error { return st.Deliveries.FetchList(ctx, 1, 20) })
	g.Go(func() error { return st.Customers.FetchList(ctx, 1, 20) })
	g.Go(func() error {
		_, err := st.FetchDrivers(ctx)
		return err
	})
	g.Go(func() error {
		_, err := st.FetchCategories(ctx)
		return err
	})
	return g.Wait()
}

func openStorage(ctx context.Context, cfg config.StorageConfig) (store.KV, func(), error) {
	switch cfg.Driver {
	case "memory":
		return store.NewMemoryStore(), func() {}, nil
	case "postgres":
		db, err := store.ConnectPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		return store.NewPostgresStore(db, cfg.Timeout), func() { db.Close() }, nil
	default:
		fs, err := store.NewFileStore(cfg.Dir)
		if err != nil {
			return nil, nil, err
		}
		return fs, func() {}, nil
	}
}
