package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/httpserver"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/mykafka"
	"github.com/Skotchmaster/storefront/internal/notify"
	"github.com/Skotchmaster/storefront/internal/payment"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/search"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/telemetry"
	"github.com/Skotchmaster/storefront/migrations"
	"github.com/Skotchmaster/storefront/pkg/authclient"
	"github.com/Skotchmaster/storefront/pkg/config"
	storedb "github.com/Skotchmaster/storefront/pkg/db"
	"github.com/Skotchmaster/storefront/pkg/logging"
	authmw "github.com/Skotchmaster/storefront/pkg/middleware/auth"
	"github.com/Skotchmaster/storefront/pkg/middleware/csrf"
	loggingmw "github.com/Skotchmaster/storefront/pkg/middleware/logging"
)

func main() {
	cfg := config.Load(".env")
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName, "env", cfg.Environment)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tel, err := telemetry.Initialize(ctx, telemetry.Config{
		ServiceName:   cfg.ServiceName,
		Environment:   cfg.Environment,
		OTLPEndpoint:  cfg.OTelEndpoint,
		EnableTracing: cfg.EnableTracing,
		EnableMetrics: cfg.EnableMetrics,
	})
	if err != nil {
		log.Fatalf("telemetry init error: %v", err)
	}
	metrics, err := telemetry.NewGlobalCheckoutMetrics()
	if err != nil {
		log.Fatalf("metrics init error: %v", err)
	}

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	db, err := storedb.Open(initCtx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}
	if err := migrate(cfg, db); err != nil {
		log.Fatalf("migration error: %v", err)
	}

	r := repo.New(db)

	var (
		events   service.EventPublisher
		producer *mykafka.Producer
	)
	if len(cfg.KafkaBrokers) > 0 {
		producer = mykafka.NewProducer(cfg.KafkaBrokers)
		events = producer
	} else {
		logger.Warn("kafka disabled, domain events are not published")
	}

	var tokens payment.TokenCache = payment.NewMemoryTokenCache()
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis url: %v", err)
		}
		rdb = redis.NewClient(opt)
		tokens = payment.NewRedisTokenCache(rdb)
	}

	carts := &service.CartService{Repo: r, Events: events}
	coupons := &service.CouponService{Repo: r, Carts: carts, Events: events}
	orders := &service.OrderService{Repo: r, Events: events}
	catalog := &service.CatalogService{Repo: r, Events: events}

	if cfg.ESURL != "" {
		es, err := search.NewClient(cfg.ESURL, cfg.ESUser, cfg.ESPassword, otelhttp.NewTransport(http.DefaultTransport))
		if err != nil {
			log.Fatalf("elasticsearch init error: %v", err)
		}
		index := &search.ProductIndex{ES: es, Name: cfg.ESIndex}
		catalog.Index, catalog.Search = index, index
	}

	checkout := &service.CheckoutService{
		Repo:     r,
		Carts:    carts,
		Events:   events,
		Notifier: notify.LogNotifier{Log: logger},
		Metrics:  metrics,
	}
	if catalog.Index != nil {
		checkout.Index = catalog.Index
	}
	if cfg.SMTPHost != "" {
		checkout.Notifier = notify.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.MailFrom)
	}
	if cfg.RazorpayKeyID != "" {
		checkout.Razorpay = payment.NewRazorpayClient(cfg.RazorpayKeyID, cfg.RazorpayKeySecret, cfg.RazorpayBaseURL, cfg.PaymentTimeout)
	}
	if cfg.PaypalClientID != "" {
		checkout.Paypal = payment.NewPaypalClient(cfg.PaypalClientID, cfg.PaypalSecret, cfg.PaypalBaseURL, cfg.PaypalINRUSD, tokens, cfg.PaymentTimeout)
	}

	var consumer *mykafka.Consumer
	if len(cfg.KafkaBrokers) > 0 {
		consumer = mykafka.NewConsumer(cfg.KafkaBrokers, cfg.ServiceName+"-cart-provisioning", mykafka.TopicUserEvents,
			mykafka.UserEventsHandler(carts, logger), logger)
		go func() {
			if err := consumer.Run(ctx); err != nil {
				logger.Error("user_events_consumer_stopped", "error", err)
			}
		}()
	}

	var refresher authmw.Refresher
	if cfg.AuthHTTPURL != "" {
		refresher = authclient.NewClient(cfg.AuthHTTPURL)
	}

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = httpserver.NewErrorHandler(cfg.IsProduction())

	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second
	e.Server.IdleTimeout = 60 * time.Second

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover())
	e.Use(echo.WrapMiddleware(otelhttp.NewMiddleware(cfg.ServiceName)))
	e.Use(loggingmw.RequestLogger(logger))
	e.Use(middleware.CORS())

	httpserver.Register(e, &httpserver.Deps{
		CartHandler:     &httpserver.CartHTTP{Svc: carts},
		CouponHandler:   &httpserver.CouponHTTP{Svc: coupons},
		CheckoutHandler: &httpserver.CheckoutHTTP{Svc: checkout},
		OrderHandler:    &httpserver.OrderHTTP{Svc: orders},
		CatalogHandler:  &httpserver.CatalogHTTP{Svc: catalog},
		JWTSecret:       cfg.JWTAccessSecret,
		AuthClient:      refresher,
		Ready:           func(ctx context.Context) error { return storedb.Ping(ctx, db) },
		CSRF:            csrf.Middleware(csrf.Config{Secure: cfg.IsProduction()}),
	})

	go func() {
		addr := fmt.Sprintf(":%d", cfg.ServerPort)
		logger.Info("server_starting", "addr", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("echo start: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	if consumer != nil {
		if err := consumer.Close(); err != nil {
			logger.Error("kafka consumer close error", "error", err)
		}
	}
	if producer != nil {
		if err := producer.Close(); err != nil {
			logger.Error("kafka producer close error", "error", err)
		}
	}
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			logger.Error("redis close error", "error", err)
		}
	}
	if err := tel.Shutdown(shutdownCtx); err != nil {
		logger.Error("telemetry shutdown error", "error", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Error("db close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

func migrate(cfg config.Config, db *gorm.DB) error {
	switch cfg.AutoMigrate {
	case "sql":
		return storedb.RunMigrations(cfg.DatabaseURL, migrations.FS)
	case "gorm":
		return storedb.AutoMigrate(db, models.All()...)
	case "", "off":
		return nil
	default:
		return fmt.Errorf("unknown AUTO_MIGRATE mode %q", cfg.AutoMigrate)
	}
}
