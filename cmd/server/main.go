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
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/phenofarm/internal/cart"
	"github.com/Skotchmaster/phenofarm/internal/catalog"
	"github.com/Skotchmaster/phenofarm/internal/config"
	"github.com/Skotchmaster/phenofarm/internal/events"
	"github.com/Skotchmaster/phenofarm/internal/httpserver"
	"github.com/Skotchmaster/phenofarm/internal/kv"
	"github.com/Skotchmaster/phenofarm/internal/order"
	"github.com/Skotchmaster/phenofarm/internal/pricing"
	"github.com/Skotchmaster/phenofarm/internal/repo"
	"github.com/Skotchmaster/phenofarm/internal/search"
	"github.com/Skotchmaster/phenofarm/internal/service"
	"github.com/Skotchmaster/phenofarm/pkg/db"
	"github.com/Skotchmaster/phenofarm/pkg/logging"
	"github.com/Skotchmaster/phenofarm/pkg/middleware/csrf"
	loggingmw "github.com/Skotchmaster/phenofarm/pkg/middleware/logging"
	"github.com/Skotchmaster/phenofarm/pkg/middleware/ratelimit"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	gdb, err := db.Postgres(initCtx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}
	if err := repo.Migrate(gdb); err != nil {
		log.Fatalf("db migrate error: %v", err)
	}
	gormRepo := &repo.GormRepo{DB: gdb}

	var (
		store    kv.Store = kv.NewMemory()
		redis    *kv.Redis
		producer *events.Producer
		pub      events.Publisher = events.Nop{}
		index    search.Indexer   = search.Nop{}
	)

	if cfg.RedisAddr != "" {
		redisCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		redis, err = kv.NewRedis(redisCtx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		cancel()
		if err != nil {
			log.Fatalf("redis init error: %v", err)
		}
		store = redis
	} else {
		logger.Warn("redis_disabled", "reason", "REDIS_ADDR is empty, client state kept in memory")
	}

	if len(cfg.KafkaBrokers) > 0 {
		producer = events.NewProducer(cfg.KafkaBrokers)
		pub = producer
	} else {
		logger.Warn("kafka_disabled", "reason", "KAFKA_BROKERS is empty")
	}

	if cfg.ESURL != "" {
		client, err := search.NewClient(cfg.ESURL, cfg.ESUser, cfg.ESPassword)
		if err != nil {
			log.Fatalf("elasticsearch init error: %v", err)
		}
		index = &search.Elastic{Client: client, Index: cfg.ESIndex}
	} else {
		logger.Warn("search_disabled", "reason", "ES_URL is empty, falling back to catalog filter")
	}

	notifiers := cart.Fanout{events.CartNotifier{Pub: pub}}
	if redis != nil {
		notifiers = append(notifiers, &cart.Broadcaster{Pub: redis})
	}

	catalogRate, err := cfg.Pricing.Rates.For(pricing.EntryCatalogCheckout)
	if err != nil {
		log.Fatalf("pricing: %v", err)
	}
	carts := cart.NewStore(store, catalogRate, notifiers)

	policy := order.Relaxed
	if cfg.StrictTransitions {
		policy = order.Strict
	}

	catalogSvc := &service.CatalogService{
		Repo:   gormRepo,
		Engine: catalog.NewEngine(cfg.Pricing.THCRanges, cfg.Pricing.PriceRanges),
		Events: pub,
		Index:  index,
	}
	orderSvc := &service.OrderService{
		Repo:        gormRepo,
		Carts:       carts,
		Rates:       cfg.Pricing.Rates,
		ShippingFee: cfg.Pricing.ShippingFee,
		Policy:      policy,
		Events:      pub,
	}

	e := newEcho(cfg, logger)

	httpserver.Register(e, &httpserver.Deps{
		CatalogHandler:    &httpserver.CatalogHTTP{Svc: catalogSvc},
		CartHandler:       &httpserver.CartHTTP{Svc: &service.CartService{Store: carts, Repo: gormRepo}, Orders: orderSvc},
		OrderHandler:      &httpserver.OrderHTTP{Svc: orderSvc},
		LabHandler:        &httpserver.LabHTTP{Svc: &service.LabService{Repo: gormRepo, Events: pub}},
		PreferenceHandler: &httpserver.PreferenceHTTP{Svc: &service.PreferenceService{KV: store, Repo: gormRepo}, Catalog: catalogSvc},
		JWTSecret:         cfg.JWTAccessSecret,
		Ready:             gormRepo.Ping,
	})

	addr := fmt.Sprintf(":%d", cfg.ServerPort)
	go func() {
		logger.Info("http_server_start", "addr", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("echo start: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting_down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("echo_shutdown_error", "error", err)
	}
	if err := db.Close(gdb); err != nil {
		logger.Error("db_close_error", "error", err)
	}
	if producer != nil {
		if err := producer.Close(); err != nil {
			logger.Error("kafka_close_error", "error", err)
		}
	}
	if redis != nil {
		if err := redis.Close(); err != nil {
			logger.Error("redis_close_error", "error", err)
		}
	}

	logger.Info("shutdown_complete")
}

// newEcho builds the server with the global middleware. The request logger
// wraps Recover so a panic is logged as the 500 it turns into.
func newEcho(cfg config.ServiceConfig, logger *slog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second
	e.Server.IdleTimeout = 60 * time.Second

	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(echomw.RequestID())
	e.Use(loggingmw.RequestLogger(logger))
	e.Use(echomw.Recover())
	e.Use(echomw.CORS())

	csrfCfg := csrf.DefaultConfig()
	csrfCfg.Secure = cfg.CookieSecure
	e.Use(csrf.Middleware(csrfCfg))
	e.Use(ratelimit.New(cfg.RateLimitPerSecond, cfg.RateLimitBurst).Middleware())
	return e
}
