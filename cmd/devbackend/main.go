package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/example/grocery-sync/internal/api"
	"github.com/example/grocery-sync/internal/auth"
	"github.com/example/grocery-sync/internal/command"
	"github.com/example/grocery-sync/internal/config"
	"github.com/example/grocery-sync/internal/infrastructure/kafka"
	"github.com/example/grocery-sync/internal/logger"
	"github.com/example/grocery-sync/internal/query"
	"github.com/example/grocery-sync/internal/readmodel"
)

func main() {
	_ = godotenv.Load()
	cfg := config.LoadEnv()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := config.LoadFile(path, cfg); err != nil {
			log.Fatalf("[DEVBACKEND] %v", err)
		}
	}
	if len(cfg.JWT.SecretKey) < 32 {
		log.Fatal("[DEVBACKEND] JWT_SECRET_KEY must be at least 32 characters long")
	}

	appLogger, err := logger.New(cfg.Logger, cfg.Server.AppEnv)
	if err != nil {
		log.Fatalf("[DEVBACKEND] %v", err)
	}
	defer appLogger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, appLogger); err != nil && !errors.Is(err, context.Canceled) {
		appLogger.Fatal("devbackend stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, appLogger *zap.Logger) error {
	authn, err := auth.NewMockAuthenticator(auth.NewTokenService(cfg.JWT.SecretKey, cfg.JWT.TTL))
	if err != nil {
		return err
	}

	producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.EventsTopic)
	defer producer.Close()

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.CommandsTopic, cfg.Kafka.GroupID, appLogger)
	defer consumer.Close()

	data := readmodel.Seed(time.Now().UTC())
	cmdHandler := command.NewHandler(data, producer, appLogger)
	queryHandler := query.NewHandler(data)

	router := api.NewRouter(
		api.NewHandlers(cmdHandler, queryHandler, appLogger),
		api.NewAuthHandlers(authn, appLogger),
		authn,
		appLogger,
	)
	srv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	appLogger.Info("starting dev backend",
		zap.String("addr", cfg.Server.HTTPAddr),
		zap.Strings("brokers", cfg.Kafka.Brokers),
		zap.String("events_topic", cfg.Kafka.EventsTopic),
		zap.String("demo_user", auth.DemoEmail))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return consumer.Consume(ctx, kafka.InvocationHandler(authn, producer, appLogger))
	})
	g.Go(func() error {
		return kafka.Heartbeat(ctx, producer, cfg.Realtime.HeartbeatInterval, appLogger)
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
