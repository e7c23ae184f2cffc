package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"blackhole/internal/landing"
	"blackhole/internal/landing/events"
	"blackhole/internal/landing/handler"
	landingmetrics "blackhole/internal/landing/metrics"
	"blackhole/internal/landing/service"
	"blackhole/internal/platform/config"
	"blackhole/internal/platform/httpserver"
	"blackhole/internal/platform/kafka"
	"blackhole/internal/platform/logger"
	"blackhole/internal/platform/metrics"
	redisclient "blackhole/internal/platform/redis"
	"blackhole/internal/verification"
	"blackhole/internal/visitor/store/cookie"
	"blackhole/internal/visitor/store/memory"
	redisstore "blackhole/internal/visitor/store/redis"
	"blackhole/pkg/platform/circuit"
	"blackhole/pkg/platform/middleware/device"
	"blackhole/pkg/platform/middleware/metadata"
	"blackhole/pkg/platform/middleware/requesttime"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal packages.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	reg := metrics.NewRegistry()
	var health []httpserver.HealthCheck

	cookieOpts := cookie.Options{Secure: cfg.CookieSecure, MaxAge: cfg.CookieMaxAge}
	var storage handler.StorageFactory
	switch cfg.StorageBackend {
	case config.StorageRedis:
		rc, err := redisclient.New(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer rc.Close()
		health = append(health, rc.Health)
		storage = handler.BagStorage(redisstore.New(rc.Client, cfg.Redis.BagTTL), cookieOpts)
	case config.StorageMemory:
		storage = handler.BagStorage(memory.New(), cookieOpts)
	default:
		storage = handler.CookieStorage(cookieOpts)
	}

	var publisher events.Publisher = events.NopPublisher{}
	kc, err := kafka.New(ctx, cfg.Kafka, log)
	if err != nil {
		return fmt.Errorf("connect kafka: %w", err)
	}
	if kc != nil {
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if err := kc.Flush(flushCtx); err != nil {
				log.Warn("kafka flush incomplete", "error", err)
			}
			kc.Close()
		}()
		publisher = events.NewKafkaPublisher(kc, cfg.Kafka.Topic, events.WithLogger(log))
	}

	checkOpts := []verification.Option{verification.WithTimeout(cfg.Check.Timeout)}
	if cfg.Check.BreakerEnabled() {
		checkOpts = append(checkOpts, verification.WithBreaker(circuit.New("verification-check",
			circuit.WithFailureThreshold(cfg.Check.BreakerThreshold),
			circuit.WithCooldown(cfg.Check.BreakerCooldown),
		)))
	}
	checker, err := verification.NewHTTPClient(cfg.Check.BaseURL, checkOpts...)
	if err != nil {
		return fmt.Errorf("build verification client: %w", err)
	}

	svc, err := landing.NewService(checker,
		service.WithLogger(log),
		service.WithPublisher(publisher),
		service.WithMetrics(landingmetrics.New(reg)),
		service.WithMaxAge(cfg.IdentityMaxAge),
	)
	if err != nil {
		return fmt.Errorf("build landing service: %w", err)
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(metadata.ClientMetadata)
	r.Use(device.Middleware)
	r.Use(requesttime.Middleware)

	r.Method(http.MethodGet, "/healthz", httpserver.HealthHandler(health...))
	if cfg.MetricsEnabled {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(reg))
	}
	landing.NewHandler(svc, storage, cfg.Nav.Targets(), log).Register(r)

	srv := httpserver.New(cfg.Addr, r)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting blackhole landing",
			"addr", cfg.Addr,
			"storage", cfg.StorageBackend,
			"check_base_url", cfg.Check.BaseURL,
			"events", kc != nil,
		)
		return httpserver.Run(gctx, srv, cfg.ShutdownTimeout)
	})
	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server shut down")
	return nil
}
