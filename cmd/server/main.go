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

	"agegate/internal/audit"
	"agegate/internal/cart"
	"agegate/internal/catalog"
	"agegate/internal/diagnostics"
	"agegate/internal/flow"
	"agegate/internal/gate"
	jwttoken "agegate/internal/jwt_token"
	"agegate/internal/oidc"
	"agegate/internal/platform/config"
	"agegate/internal/platform/httpserver"
	"agegate/internal/platform/logger"
	"agegate/internal/platform/metrics"
	"agegate/internal/platform/redis"
	"agegate/internal/platform/tracing"
	"agegate/internal/platform/upstream"
	httptransport "agegate/internal/transport/http"
	"agegate/internal/verification/service"
	"agegate/internal/verification/store"
)

const sessionIssuer = "agegate"

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal packages.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	shutdownTracing, err := tracing.Setup(os.Stderr, cfg.TraceSampleRatio)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Warn("failed to flush traces", "error", err)
		}
	}()

	m := metrics.New()
	health := map[string]httptransport.HealthCheck{}

	verificationStore, closeStore, err := buildStore(ctx, cfg, log, health)
	if err != nil {
		return err
	}
	defer closeStore()

	sessions := service.New(verificationStore,
		jwttoken.NewJWTService(cfg.Verification.SessionSecret, sessionIssuer),
		service.WithPendingTTL(cfg.Verification.PendingTTL),
		service.WithVerificationTTL(cfg.Verification.VerificationTTL),
		service.WithLogger(log),
	)

	publisher, ring, err := buildAudit(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Warn("failed to close audit sinks", "error", err)
		}
	}()
	log.Info("audit publisher ready", "kafka", len(cfg.Audit.KafkaBrokers) > 0)

	httpClient := upstream.NewHTTPClient(cfg.UpstreamTimeout)
	banks := oidc.New(cfg.OIDC, oidc.WithHTTPClient(httpClient), oidc.WithLogger(log))

	catalogMetrics := catalog.NewMetrics()
	restricted := catalog.New(cfg.Store,
		catalog.NewStorefrontTokens(cfg.Store, httpClient, catalogMetrics),
		catalog.WithHTTPClient(httpClient),
		catalog.WithMetrics(catalogMetrics),
		catalog.WithRefreshTimeout(3*cfg.UpstreamTimeout),
		catalog.WithLogger(log),
	)
	if err := restricted.Refresh(ctx); err != nil {
		log.Warn("initial catalog load failed, will retry on demand", "error", err)
	}
	go restricted.Run(ctx, cfg.Store.CatalogRefreshEvery)
	health["catalog"] = func(context.Context) error {
		if loaded, _ := restricted.Loaded(); !loaded {
			return errors.New("restricted catalog not loaded")
		}
		return nil
	}

	carts := cart.New(cfg.Store, cart.WithHTTPClient(httpClient), cart.WithLogger(log))
	bypass := gate.NewCodeBypass(cfg.Bypass)
	if bypass.Enabled() {
		log.Warn("bypass codes are enabled for /restricted-items", "allow_any", cfg.Bypass.AllowAny)
	}
	cartGate := gate.New(sessions, restricted, carts,
		gate.WithBypass(bypass),
		gate.WithAuditPublisher(publisher),
		gate.WithMetrics(gate.NewMetrics()),
		gate.WithLogger(log),
	)

	recorder := diagnostics.NewRecorder()
	controller := flow.New(banks, sessions,
		flow.WithTokenRecorder(recorder),
		flow.WithAuditPublisher(publisher),
		flow.WithMetrics(flow.NewMetrics()),
		flow.WithLogger(log),
	)

	router := httptransport.NewRouter(
		httptransport.RouterConfig{
			AllowedOrigin: cfg.Store.Domain,
			Timeout:       2 * cfg.UpstreamTimeout,
			Metrics:       m,
			Logger:        log,
		},
		httptransport.NewFlowHandler(controller, sessions, recorder,
			httptransport.CookieConfig{Domain: cfg.Verification.CookieDomain, MaxAge: cfg.Verification.PendingTTL},
			cfg.OIDC.EssentialClaims, cfg.OIDC.Purpose, log),
		httptransport.NewCartHandler(cartGate, restricted, cfg.AdminToken, log),
		httptransport.NewAuditHandler(ring, cfg.AdminToken, log),
		httptransport.NewHealthHandler(health),
	)

	srv := httpserver.New(cfg.Addr, router, cfg.UpstreamTimeout)
	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting agegate", "addr", cfg.Addr, "env", cfg.Environment, "auth_servers", banks.AuthServers())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// buildStore picks Redis when configured and the in-process store otherwise.
func buildStore(ctx context.Context, cfg config.Server, log *slog.Logger, health map[string]httptransport.HealthCheck) (service.Store, func(), error) {
	rc, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, err
	}

	var s service.Store
	if rc != nil {
		s = store.NewRedis(rc.Client)
		health["redis"] = rc.Health
		log.Info("verification state in redis")
	} else {
		if cfg.IsProduction() {
			log.Warn("REDIS_URL not set, verification state is per process")
		}
		s = store.NewInMemory()
	}
	if err := s.Init(ctx); err != nil {
		return nil, nil, err
	}

	closeFn := func() {
		if err := s.Teardown(context.Background()); err != nil {
			log.Warn("failed to tear down verification store", "error", err)
		}
		if rc != nil {
			_ = rc.Close()
		}
	}
	return s, closeFn, nil
}

// buildAudit always keeps recent events in memory and adds Kafka when brokers
// are configured.
func buildAudit(cfg config.Server, log *slog.Logger) (*audit.Publisher, *audit.Ring, error) {
	auditMetrics := audit.NewMetrics()
	ring := audit.NewRing(0)
	opts := []audit.Option{
		audit.WithSink(ring),
		audit.WithLogger(log),
		audit.WithMetrics(auditMetrics),
	}
	if len(cfg.Audit.KafkaBrokers) > 0 {
		sink, err := audit.NewKafkaSink(cfg.Audit.KafkaBrokers, cfg.Audit.Topic,
			audit.WithKafkaLogger(log),
			audit.WithKafkaMetrics(auditMetrics),
		)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, audit.WithSink(sink))
	}
	return audit.NewPublisher(opts...), ring, nil
}
