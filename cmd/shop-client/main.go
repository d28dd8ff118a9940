package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/andreasstove999/ecommerce-system/shop-client-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/shop-client-go/internal/checkout"
	"github.com/andreasstove999/ecommerce-system/shop-client-go/internal/clients"
	"github.com/andreasstove999/ecommerce-system/shop-client-go/internal/config"
	"github.com/andreasstove999/ecommerce-system/shop-client-go/internal/events"
	httpapi "github.com/andreasstove999/ecommerce-system/shop-client-go/internal/http"
	"github.com/andreasstove999/ecommerce-system/shop-client-go/internal/metrics"
	"github.com/andreasstove999/ecommerce-system/shop-client-go/internal/session"
	"github.com/andreasstove999/ecommerce-system/shop-client-go/internal/shop"
	"github.com/andreasstove999/ecommerce-system/shop-client-go/internal/telemetry"
	"github.com/andreasstove999/ecommerce-system/shop-client-go/internal/tracking"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("service", telemetry.ServiceName)
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("load config", "err", err)
		os.Exit(1)
	}

	otelCtl, err := telemetry.Init(cfg.JaegerEndpoint)
	if err != nil {
		logger.Error("init tracing", "err", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Session token store
	var store session.Store = session.NewMemoryStore()
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		store = session.NewRedisStore(rdb)
		logger.Info("session store: redis", "addr", cfg.RedisAddr)
	}
	resolver := session.NewResolver(store, cfg.SessionKey)

	// Base HTTP client (shared)
	sharedHTTP := &http.Client{
		Timeout:   cfg.UpstreamTimeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	breaker := clients.BreakerSettings{MaxFailures: cfg.BreakerMaxFailures, OpenTimeout: cfg.BreakerOpenTimeout}

	gatewayBase := clients.NewClient("gateway", cfg.GatewayURL, sharedHTTP,
		clients.WithTokens(resolver), clients.WithMetrics(m), clients.WithBreaker(breaker))
	addressBase := gatewayBase
	if cfg.AddressURL != cfg.GatewayURL {
		addressBase = clients.NewClient("address", cfg.AddressURL, sharedHTTP,
			clients.WithTokens(resolver), clients.WithMetrics(m), clients.WithBreaker(breaker))
	}

	// Typed clients
	catalogClient := clients.NewCatalogClient(gatewayBase)
	cartClient := clients.NewCartClient(gatewayBase)
	orderClient := clients.NewOrderClient(gatewayBase)
	addressClient := clients.NewAddressClient(addressBase)

	healthProbes := []clients.HealthProbe{{Name: "gateway", Client: gatewayBase, Path: "/health"}}
	if addressBase != gatewayBase {
		healthProbes = append(healthProbes, clients.HealthProbe{Name: "address", Client: addressBase, Path: "/health"})
	}

	// Events are optional
	var publisher checkout.EventPublisher = events.Nop{}
	var (
		amqpConn *amqp.Connection
		eventPub *events.Publisher
	)
	if cfg.AMQPURL != "" {
		amqpConn, err = events.Dial(cfg.AMQPURL)
		if err != nil {
			logger.Error("connect rabbitmq", "err", err)
			os.Exit(1)
		}
		eventPub, err = events.NewPublisher(amqpConn)
		if err != nil {
			logger.Error("init event publisher", "err", err)
			os.Exit(1)
		}
		publisher = eventPub
	}

	addMode, err := cart.ParseAddMode(cfg.CartAddMode)
	if err != nil {
		logger.Error("cart add mode", "err", err)
		os.Exit(1)
	}
	agg := cart.New(cartClient,
		cart.WithAddMode(addMode),
		cart.WithLogger(logger.With("component", "cart")),
		cart.WithMetrics(m),
		cart.WithBackgroundTimeout(cfg.UpstreamTimeout),
	)

	timer := tracking.New(orderClient,
		tracking.WithDuration(cfg.TrackingDuration),
		tracking.WithTick(cfg.TrackingTick),
		tracking.WithLogger(logger.With("component", "tracking")),
		tracking.WithMetrics(m),
	)

	checkoutLogger := logger.With("component", "checkout")
	shopSession := shop.NewSession(agg, func() *checkout.Orchestrator {
		return checkout.New(resolver, agg, addressClient, orderClient, timer,
			checkout.WithLineReport(checkout.LineReport(cfg.OrderLineReport)),
			checkout.WithPublisher(publisher),
			checkout.WithLogger(checkoutLogger),
			checkout.WithMetrics(m),
		)
	}, logger)

	router := httpapi.NewRouter(httpapi.Deps{
		Logger:       logger,
		Cfg:          cfg,
		Metrics:      m,
		Sessions:     resolver,
		Shop:         shopSession,
		Catalog:      catalogClient,
		Orders:       orderClient,
		HealthProbes: healthProbes,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           otelhttp.NewHandler(router, telemetry.ServiceName),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("listening", "port", cfg.Port, "gateway", cfg.GatewayURL, "add_mode", addMode,
			"tracing", otelCtl.Enabled(), "events", cfg.AMQPURL != "")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown requested")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "err", err)
	}
	shopSession.Close()
	if eventPub != nil {
		_ = eventPub.Close()
		_ = amqpConn.Close()
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	if err := otelCtl.Shutdown(shutdownCtx); err != nil {
		logger.Error("tracing shutdown", "err", err)
	}
	logger.Info("shutdown complete")
}
