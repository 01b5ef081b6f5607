package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"custos/internal/aggregate"
	aggregatemetrics "custos/internal/aggregate/metrics"
	"custos/internal/consent"
	consentmetrics "custos/internal/consent/metrics"
	consentpg "custos/internal/consent/store/postgres"
	"custos/internal/enforcement"
	enforcementmetrics "custos/internal/enforcement/metrics"
	jwttoken "custos/internal/jwt_token"
	"custos/internal/ledger"
	ledgermetrics "custos/internal/ledger/metrics"
	ledgerpg "custos/internal/ledger/store/postgres"
	"custos/internal/platform/config"
	"custos/internal/platform/httpserver"
	"custos/internal/platform/logger"
	redisplatform "custos/internal/platform/redis"
	"custos/internal/retention"
	retentionmetrics "custos/internal/retention/metrics"
	retentionpg "custos/internal/retention/store/postgres"
	"custos/internal/separation"
	separationmetrics "custos/internal/separation/metrics"
	separationpg "custos/internal/separation/store/postgres"
	"custos/internal/tenantgate"
	tenantgatemetrics "custos/internal/tenantgate/metrics"
	"custos/internal/tenantgate/registry"
	httptransport "custos/internal/transport/http"
)

// main wires stores, services, and the HTTP surface, then runs the server
// lifecycle. Business logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	// Stores. With a Postgres DSN everything is durable; without one the
	// process runs entirely in memory, which is only suitable for local
	// development.
	var (
		ledgerStore    ledger.Store
		consentStore   consent.Store
		retentionStore retention.Store
		identityStore  separation.IdentityStore
		patternStore   separation.PatternStore
		domainStore    registry.Store
	)
	accountStore := tenantgate.NewInMemoryAccountStore()

	if cfg.Postgres.DSN != "" {
		db, err := sql.Open("postgres", cfg.Postgres.DSN)
		if err != nil {
			log.Error("open postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			log.Error("postgres unreachable", "error", err)
			os.Exit(1)
		}
		ledgerStore = ledgerpg.New(db)
		consentStore = consentpg.New(db)
		retentionStore = retentionpg.New(db)
		identityStore = separationpg.NewIdentityStore(db)
		patternStore = separationpg.NewPatternStore(db)
		domainStore = registry.NewPostgresStore(db)
	} else {
		log.Warn("CUSTOS_POSTGRES_DSN not set, running with in-memory stores")
		ledgerStore = ledger.NewInMemoryStore()
		consentStore = consent.NewInMemoryStore()
		retentionStore = retention.NewInMemoryStore()
		identityStore = separation.NewInMemoryIdentityStore()
		patternStore = separation.NewInMemoryPatternStore()
		// domainStore stays nil: the classifier runs seed-only.
	}

	redisClient, err := redisplatform.New(cfg.Redis)
	if err != nil {
		log.Error("connect redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	reg := prometheus.NewRegistry()

	ledgerSvc := ledger.NewService(ledgerStore,
		ledger.WithLogger(log),
		ledger.WithMetrics(ledgermetrics.New(reg)),
	)

	consentMetrics := consentmetrics.New(reg)
	consentOpts := []consent.Option{
		consent.WithLogger(log),
		consent.WithMetrics(consentMetrics),
	}
	if redisClient != nil {
		cache := consent.NewRedisStatusCache(redisClient,
			consent.WithCacheLogger(log),
			consent.WithCacheMetrics(consentMetrics),
		)
		consentOpts = append(consentOpts, consent.WithCache(cache))
	}
	consentSvc := consent.NewService(consentStore, ledgerSvc, consentOpts...)

	separationSvc := separation.NewService(identityStore, patternStore, ledgerSvc,
		separation.WithLogger(log),
		separation.WithMetrics(separationmetrics.New(reg)),
	)

	retentionSvc := retention.NewService(retentionStore, ledgerSvc,
		retention.WithLogger(log),
		retention.WithMetrics(retentionmetrics.New(reg)),
		retention.WithPurger(separationSvc),
	)

	classifier := tenantgate.NewClassifier(registry.NewLoader(domainStore, log))
	gateSvc := tenantgate.NewService(classifier, accountStore, ledgerSvc,
		tenantgate.WithLogger(log),
		tenantgate.WithMetrics(tenantgatemetrics.New(reg)),
	)

	aggregateSvc := aggregate.NewService(ledgerSvc,
		aggregate.WithLogger(log),
		aggregate.WithMetrics(aggregatemetrics.New(reg)),
	)

	enforcementSvc := enforcement.NewService(gateSvc, gateSvc, consentSvc,
		enforcement.WithLogger(log),
		enforcement.WithMetrics(enforcementmetrics.New(reg)),
	)

	jwtSvc := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Logger:      log,
		Validator:   jwtSvc,
		Consent:     httptransport.NewConsentHandler(consentSvc, log),
		Ledger:      httptransport.NewLedgerHandler(ledgerSvc, log),
		Aggregate:   httptransport.NewAggregateHandler(aggregateSvc, log),
		TenantGate:  httptransport.NewTenantGateHandler(gateSvc, log),
		Retention:   httptransport.NewRetentionHandler(retentionSvc, log),
		Separation:  httptransport.NewSeparationHandler(separationSvc, log),
		Enforcement: httptransport.NewEnforcementHandler(enforcementSvc, gateSvc, log),
	})

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.Handle("/", router)

	srv := httpserver.New(cfg.Addr, mux)

	log.Info("starting custos core", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}
