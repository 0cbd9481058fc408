// Command server runs the document issuance and verification service.
//
// main wires dependencies and owns the process lifecycle; business logic
// lives in the internal services packages.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"veridoc/internal/document"
	"veridoc/internal/document/artifact"
	"veridoc/internal/document/builder"
	"veridoc/internal/document/code"
	"veridoc/internal/document/refgen"
	"veridoc/internal/document/store"
	"veridoc/internal/jwttoken"
	"veridoc/internal/observer"
	"veridoc/internal/platform/config"
	"veridoc/internal/platform/httpserver"
	"veridoc/internal/platform/logger"
	"veridoc/internal/platform/metrics"
	platformredis "veridoc/internal/platform/redis"
	"veridoc/internal/registry"
	"veridoc/internal/registry/cache"
	"veridoc/internal/registry/circuit"
	"veridoc/internal/registry/clients"
	"veridoc/internal/registry/failover"
	httptransport "veridoc/internal/transport/http"
	"veridoc/internal/verify"
	"veridoc/pkg/platform/audit"
	auditkafka "veridoc/pkg/platform/audit/publishers/kafka"
	auditmemory "veridoc/pkg/platform/audit/store/memory"
	auditworker "veridoc/pkg/platform/audit/worker"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	// Issuance store: postgres when configured, in-memory otherwise.
	var docStore store.Store
	if cfg.PostgresURL != "" {
		db, err := sql.Open("postgres", cfg.PostgresURL)
		if err != nil {
			return err
		}
		defer db.Close()
		docStore = store.NewPostgres(db)
		log.Info("using postgres issuance store")
	} else {
		docStore = store.NewInMemory()
		log.Warn("POSTGRES_URL unset, using in-memory issuance store")
	}

	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		log.Info("registry outcome cache enabled", "ttl", cfg.ResultCacheTTL)
	}
	outcomeCache := cache.New(redisClient, cfg.ResultCacheTTL)

	// Audit pipeline: events flow through a channel into kafka when brokers
	// are configured, otherwise into the in-process store.
	var auditStore audit.Store
	if len(cfg.KafkaBrokers) > 0 {
		publisher, err := auditkafka.NewPublisher(cfg.KafkaBrokers, cfg.AuditTopic)
		if err != nil {
			return err
		}
		defer publisher.Close()
		auditStore = publisher
		log.Info("audit events publishing to kafka", "topic", cfg.AuditTopic)
	} else {
		auditStore = auditmemory.NewInMemoryStore()
		log.Warn("KAFKA_BROKERS unset, keeping audit events in memory")
	}

	auditInbox := make(chan audit.Event, 256)
	worker := auditworker.NewWorker(auditStore, auditInbox)
	go func() {
		if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("audit worker stopped", "error", err)
		}
	}()

	obs := observer.Multi{
		observer.NewLogging(log),
		observer.NewInstrumented(m),
		observer.NewAuditing(auditInbox, log),
	}

	// Registry fan-out: one breaker and an ordered endpoint list per registry.
	orchestrator := failover.New(log, failover.WithMetrics(m))
	breakers := make(map[string]*circuit.Breaker)
	registryNames := make([]string, 0, len(cfg.Registries))
	for _, rc := range cfg.Registries {
		if len(rc.Endpoints) == 0 {
			log.Warn("registry has no endpoints configured", "registry", rc.Name)
			continue
		}
		endpoints := make([]registry.Client, 0, len(rc.Endpoints))
		for _, url := range rc.Endpoints {
			endpoints = append(endpoints, clients.NewHTTP(rc.Name, url))
		}
		orchestrator.Register(rc.Name, endpoints)
		breakers[rc.Name] = circuit.New(rc.Name,
			circuit.WithFailureThreshold(cfg.Circuit.FailureThreshold),
			circuit.WithResetTimeout(cfg.Circuit.ResetTimeout),
			circuit.WithObserver(func(name string, from, to circuit.State) {
				obs.CircuitStateChanged(name, string(from), string(to))
			}),
		)
		registryNames = append(registryNames, rc.Name)
	}

	encoder, err := code.NewEncoder(cfg.VerifyBaseURL)
	if err != nil {
		return err
	}

	docService := document.NewService(document.ServiceConfig{
		Builder:    builder.New(refgen.New(), encoder),
		Assembler:  artifact.New(artifact.NewTextImaging()),
		Store:      docStore,
		Cache:      outcomeCache,
		Registries: registryNames,
		Observer:   obs,
		Logger:     log,
	})

	coordinator := verify.New(verify.Config{
		Store:        docStore,
		Decoder:      encoder,
		Orchestrator: orchestrator,
		Breakers:     breakers,
		Cache:        outcomeCache,
		Policy: failover.Policy{
			MaxRetries:        cfg.Failover.MaxRetries,
			RetryDelay:        cfg.Failover.RetryDelay,
			PerAttemptTimeout: cfg.Failover.PerAttemptTimeout,
		},
		Observer: obs,
		Logger:   log,
	})

	jwtService := jwttoken.NewService(cfg.JWTSigningKey, "veridoc", "issuing-offices")

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Logger:    log,
		Documents: httptransport.NewDocumentsHandler(docService, log),
		Verify:    httptransport.NewVerifyHandler(coordinator, log),
		Validator: jwtService,
		Store:     docStore,
		Redis:     redisClient,
		Failover:  orchestrator,
		Breakers:  breakers,
	})

	srv := httpserver.New(cfg.Addr, router)

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting veridoc server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}
