package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/chatcart-backend/api/routes"
	"github.com/angelmondragon/chatcart-backend/internal/admin"
	"github.com/angelmondragon/chatcart-backend/internal/catalog"
	"github.com/angelmondragon/chatcart-backend/internal/conversation"
	"github.com/angelmondragon/chatcart-backend/internal/convstore"
	"github.com/angelmondragon/chatcart-backend/internal/flow"
	"github.com/angelmondragon/chatcart-backend/internal/invoices"
	"github.com/angelmondragon/chatcart-backend/internal/messaging"
	"github.com/angelmondragon/chatcart-backend/internal/orders"
	"github.com/angelmondragon/chatcart-backend/internal/payments"
	"github.com/angelmondragon/chatcart-backend/pkg/config"
	"github.com/angelmondragon/chatcart-backend/pkg/db"
	"github.com/angelmondragon/chatcart-backend/pkg/logger"
	"github.com/angelmondragon/chatcart-backend/pkg/metrics"
	"github.com/angelmondragon/chatcart-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	chatStats := metrics.NewChatMetrics(registry)

	store, cleanup, err := buildStore(context.Background(), cfg, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap conversation store", err)
		os.Exit(1)
	}
	defer cleanup()

	var transport messaging.Transport
	if cfg.WhatsApp.UseMock {
		transport = messaging.NewMockTransport(logg)
	} else {
		transport, err = messaging.NewWhatsAppTransport(cfg.WhatsApp)
		if err != nil {
			logg.Error(context.Background(), "failed to create whatsapp transport", err)
			os.Exit(1)
		}
	}

	var links payments.LinkProvider
	if cfg.Razorpay.UseMock {
		links = payments.NewMockProvider()
	} else {
		links, err = payments.NewRazorpayProvider(cfg.Razorpay)
		if err != nil {
			logg.Error(context.Background(), "failed to create razorpay provider", err)
			os.Exit(1)
		}
	}

	renderer, err := invoices.NewPDFRenderer(cfg.Invoice)
	if err != nil {
		logg.Error(context.Background(), "failed to create invoice renderer", err)
		os.Exit(1)
	}

	issuer, err := invoices.NewIssuer(invoices.IssuerParams{
		Renderer:      renderer,
		Transport:     transport,
		PublicBaseURL: cfg.App.PublicBaseURL,
		Logger:        logg,
		Metrics:       chatStats,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create invoice issuer", err)
		os.Exit(1)
	}

	locks := conversation.NewKeyedMutex()

	engine, err := flow.NewEngine(flow.EngineParams{
		Store:     store,
		Locks:     locks,
		Catalog:   catalog.NewStaticProvider(),
		Links:     links,
		Transport: transport,
		Logger:    logg,
		Metrics:   chatStats,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create flow engine", err)
		os.Exit(1)
	}

	confirmer, err := payments.NewConfirmer(payments.ConfirmerParams{
		Store:  store,
		Locks:  locks,
		Issuer: issuer,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payment confirmer", err)
		os.Exit(1)
	}

	ordersSvc, err := orders.NewService(orders.ServiceParams{
		Store:  store,
		Locks:  locks,
		Issuer: issuer,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	var adminSvc *admin.Service
	if cfg.Admin.JWTSecret != "" {
		adminSvc, err = admin.NewService(admin.ServiceParams{Config: cfg.Admin, Logger: logg})
		if err != nil {
			logg.Error(context.Background(), "failed to create admin service", err)
			os.Exit(1)
		}
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":           cfg.App.Env,
		"addr":          addr,
		"store_backend": cfg.Store.Backend,
		"mock_channel":  cfg.WhatsApp.UseMock,
		"mock_payments": cfg.Razorpay.UseMock,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, engine, confirmer, adminSvc, ordersSvc, chatStats, registry),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func buildStore(ctx context.Context, cfg *config.Config, logg *logger.Logger) (conversation.Store, func(), error) {
	noop := func() {}

	switch cfg.Store.Backend {
	case config.StoreBackendRedis:
		client, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, noop, err
		}
		store, err := convstore.NewRedisStore(client)
		if err != nil {
			return nil, noop, err
		}
		return store, func() {
			if err := client.Close(); err != nil {
				logg.Error(ctx, "error closing redis", err)
			}
		}, nil

	case config.StoreBackendPostgres, config.StoreBackendSQLite:
		client, err := db.New(ctx, cfg.Store.Backend, cfg.DB, logg)
		if err != nil {
			return nil, noop, err
		}
		store, err := convstore.NewGormStore(client.DB())
		if err != nil {
			return nil, noop, err
		}
		return store, func() {
			if err := client.Close(); err != nil {
				logg.Error(ctx, "error closing database", err)
			}
		}, nil

	default:
		store, err := convstore.NewFileStore(cfg.Store.FilePath)
		if err != nil {
			return nil, noop, err
		}
		return store, noop, nil
	}
}
