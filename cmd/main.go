package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"restaurant-pos/internal/api"
	"restaurant-pos/internal/app"
	"restaurant-pos/internal/catalog"
	"restaurant-pos/internal/config"
	"restaurant-pos/internal/database"
	"restaurant-pos/internal/events"
	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/messaging"
	"restaurant-pos/internal/models"
	"restaurant-pos/internal/services/notification"
	"restaurant-pos/internal/store"
	"restaurant-pos/internal/store/memory"
	"restaurant-pos/internal/store/postgres"
	"restaurant-pos/internal/telemetry"
)

const shutdownTimeout = 10 * time.Second

func main() {
	var (
		mode       = flag.String("mode", "pos-service", "Service mode (pos-service, notification-subscriber)")
		configFile = flag.String("config", "config.yaml", "Path to the YAML config file; empty uses defaults")
		port       = flag.Int("port", 0, "HTTP port, overrides http.port")
		prefetch   = flag.Int("prefetch", 10, "RabbitMQ prefetch count for the notification subscriber")
	)
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *port > 0 {
		cfg.HTTP.Port = *port
	}

	log := logger.NewLogger(*mode)
	requestID := logger.GenerateRequestID()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, *mode, cfg.Telemetry.OTLPEndpoint)
	if err != nil {
		log.Error("telemetry_failed", "Failed to set up tracing", requestID, err, nil)
		os.Exit(1)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Error("telemetry_failed", "Failed to flush traces", requestID, err, nil)
		}
	}()

	switch *mode {
	case "pos-service":
		err = runPOSService(ctx, cfg, log)
	case "notification-subscriber":
		err = runNotificationSubscriber(ctx, cfg, log, *prefetch)
	default:
		err = fmt.Errorf("unknown mode: %s", *mode)
	}
	if err != nil {
		log.Error("service_failed", fmt.Sprintf("%s failed", *mode), requestID, err, nil)
		os.Exit(1)
	}

	log.Info("service_stopped", "Service stopped gracefully", requestID, nil)
}

// runPOSService serves the HTTP API and delivers domain events until ctx ends
func runPOSService(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	requestID := logger.GenerateRequestID()

	var db *database.DB
	if cfg.Database.Driver == "postgres" {
		var err error
		if db, err = database.New(ctx, cfg, log); err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer db.Close()

		if err := db.RunMigrations(ctx, database.Migrations()); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	st := openStore(db)
	defer st.Close()

	gw, err := openCatalog(ctx, cfg, db, st, log)
	if err != nil {
		return err
	}

	sinks, closeSinks, err := openSinks(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeSinks()

	dispatcher := events.NewDispatcher(log, cfg.Events.Buffer, sinks...)

	station, ok := models.ParseStation(cfg.Restaurant.DefaultStation)
	if !ok {
		station = models.StationKitchen
	}
	a := app.New(app.Deps{
		Store:          st,
		Catalog:        gw,
		Publisher:      dispatcher,
		Logger:         log,
		Location:       cfg.Location(),
		DefaultStation: station,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           api.New(&api.Deps{App: a, Logger: log}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return dispatcher.Run(gctx)
	})
	g.Go(func() error {
		log.Info("service_started", fmt.Sprintf("POS service started on port %d", cfg.HTTP.Port), requestID, map[string]interface{}{
			"port":            cfg.HTTP.Port,
			"store":           cfg.Database.Driver,
			"catalog":         cfg.Catalog.Source,
			"event_sinks":     cfg.Events.Sinks,
			"default_station": string(station),
		})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("graceful_shutdown", "Shutting down POS service", requestID, nil)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := server.Shutdown(shutdownCtx)
		// In-flight requests may still publish until Shutdown returns.
		dispatcher.Close()
		if err != nil {
			return fmt.Errorf("failed to shutdown http server: %w", err)
		}
		return nil
	})

	return g.Wait()
}

func openStore(db *database.DB) store.Store {
	if db == nil {
		return memory.New()
	}
	return postgres.New(db)
}

// openCatalog returns the configured catalog gateway. A file catalog also
// seeds its floor plan and coupons into the store.
func openCatalog(ctx context.Context, cfg *config.Config, db *database.DB, st store.Store, log *logger.Logger) (catalog.Gateway, error) {
	if cfg.Catalog.Source == "postgres" {
		return catalog.NewPostgres(db), nil
	}

	static, err := catalog.LoadFile(cfg.Catalog.File)
	if err != nil {
		return nil, fmt.Errorf("failed to load menu: %w", err)
	}
	if err := app.Seed(ctx, st, static.Tables(), static.Coupons()); err != nil {
		return nil, err
	}
	log.Info("catalog_loaded", "Menu loaded from file", logger.GenerateRequestID(), map[string]interface{}{
		"file":    cfg.Catalog.File,
		"tables":  len(static.Tables()),
		"coupons": len(static.Coupons()),
	})
	return static, nil
}

// openSinks connects every configured event sink. The returned func closes them.
func openSinks(ctx context.Context, cfg *config.Config, log *logger.Logger) ([]events.Sink, func(), error) {
	var (
		sinks   []events.Sink
		closers []func() error
	)
	closeAll := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				log.Warn("sink_close_failed", "Failed to close event sink", "", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}
	}

	if cfg.HasSink("log") {
		sinks = append(sinks, events.NewLogSink(log))
	}
	if cfg.HasSink("rabbitmq") {
		conn, err := messaging.New(ctx, cfg, log)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("failed to initialize messaging: %w", err)
		}
		pub := messaging.NewPublisher(conn, log)
		sinks = append(sinks, pub)
		closers = append(closers, pub.Close, conn.Close)
	}
	if cfg.HasSink("kafka") {
		k := messaging.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		sinks = append(sinks, k)
		closers = append(closers, k.Close)
	}
	return sinks, closeAll, nil
}

// runNotificationSubscriber prints customer-facing notifications from the event bus
func runNotificationSubscriber(ctx context.Context, cfg *config.Config, log *logger.Logger, prefetch int) error {
	conn, err := messaging.New(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize messaging: %w", err)
	}
	defer conn.Close()

	hostname, _ := os.Hostname()
	consumer := messaging.NewConsumer(conn, log, conn.Queue(), "notification-subscriber-"+hostname, prefetch)
	return notification.NewSubscriber(consumer, log).Start(ctx)
}
