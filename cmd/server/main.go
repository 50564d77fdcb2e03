// Command server wires the credverse service: stores, ledger backend, audit
// pipeline and the HTTP router. Business logic lives in the internal
// service packages.
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

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	_ "github.com/lib/pq"

	bulkservice "credverse/internal/bulk/service"
	bulkstore "credverse/internal/bulk/store"
	credservice "credverse/internal/credential/service"
	credstore "credverse/internal/credential/store"
	issuerservice "credverse/internal/issuer/service"
	issuerstore "credverse/internal/issuer/store"
	"credverse/internal/ledger"
	"credverse/internal/ledger/eth"
	"credverse/internal/ledger/registry"
	"credverse/internal/notify"
	"credverse/internal/platform/config"
	"credverse/internal/platform/httpserver"
	"credverse/internal/platform/kafka/producer"
	"credverse/internal/platform/logger"
	"credverse/internal/platform/metrics"
	platformredis "credverse/internal/platform/redis"
	"credverse/internal/share"
	"credverse/internal/token"
	httptransport "credverse/internal/transport/http"
	verifservice "credverse/internal/verification/service"
	verifstore "credverse/internal/verification/store"
	"credverse/pkg/platform/audit"
	auditpublisher "credverse/pkg/platform/audit/publisher"
	auditmem "credverse/pkg/platform/audit/store/memory"
	auditpg "credverse/pkg/platform/audit/store/postgres"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Postgres is optional; without it every store runs in memory.
	var db *sql.DB
	if cfg.Postgres.DSN != "" {
		var err error
		db, err = sql.Open("postgres", cfg.Postgres.DSN)
		if err == nil {
			err = db.PingContext(ctx)
		}
		if err != nil {
			log.Error("postgres unavailable", "error", err)
			os.Exit(1)
		}
		defer db.Close()
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis unavailable", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	appMetrics := metrics.New()

	backend, err := buildBackend(ctx, cfg.Ledger, log)
	if err != nil {
		log.Error("ledger backend unavailable", "error", err)
		os.Exit(1)
	}
	adapter := ledger.New(backend, cfg.Ledger.CallTimeout, log, ledger.WithMetrics(appMetrics))
	log.Info("ledger backend ready", "configured", adapter.IsConfigured())

	auditPublisher, closeAudit := buildAuditPublisher(cfg.Kafka, db, log)
	defer closeAudit()

	signer := token.NewSigner(token.NewInMemoryKeyProvider(), cfg.Server.JWTIssuer)
	webhooks := notify.NewWebhookSink(cfg.Webhook.SigningSecret,
		notify.WithLogger(log),
		notify.WithTimeout(cfg.Webhook.RequestTimeout),
		notify.WithMaxAttempts(cfg.Webhook.MaxRetries),
	)

	var issuerStore issuerservice.Store = issuerstore.NewInMemoryStore()
	var credStore credservice.Store = credstore.NewInMemoryStore()
	var verifStore verifservice.RecordStore = verifstore.NewInMemoryStore()
	if db != nil {
		issuerStore = issuerstore.NewPostgresStore(db)
		credStore = credstore.NewPostgresStore(db)
		verifStore = verifstore.NewPostgresStore(db)
	}

	issuers := issuerservice.New(issuerStore, adapter,
		issuerservice.WithLogger(log),
		issuerservice.WithAuditPublisher(auditPublisher),
	)
	credentials := credservice.New(credStore, issuers, adapter, signer,
		credservice.WithLogger(log),
		credservice.WithNotifier(webhooks),
		credservice.WithAuditPublisher(auditPublisher),
		credservice.WithMetrics(appMetrics),
	)

	bulkOpts := []bulkservice.Option{
		bulkservice.WithLogger(log),
		bulkservice.WithAuditPublisher(auditPublisher),
		bulkservice.WithMetrics(appMetrics),
	}
	var bulkStore bulkservice.Store = bulkstore.NewInMemoryStore()
	if redisClient != nil {
		redisJobs := bulkstore.NewRedisStore(redisClient)
		bulkStore = redisJobs
		bulkOpts = append(bulkOpts, bulkservice.WithQueue(redisJobs))
	}
	bulk := bulkservice.New(bulkStore, credentials,
		bulkservice.Config{MaxBatch: cfg.Bulk.MaxBatchSize, Concurrency: cfg.Bulk.Concurrency},
		bulkOpts...,
	)
	if redisClient != nil {
		go func() {
			if err := bulk.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("bulk worker stopped", "error", err)
			}
		}()
	}

	verification := verifservice.New(verifStore, adapter, signer, issuers, credentials,
		verifservice.WithLogger(log),
		verifservice.WithAuditPublisher(auditPublisher),
		verifservice.WithMetrics(appMetrics),
	)

	var shareStore share.Store = share.NewMemoryStore()
	if redisClient != nil {
		shareStore = share.NewRedisStore(redisClient)
	}
	shares := share.NewService(shareStore, auditPublisher)

	handler := httptransport.NewHandler(credentials, bulk, issuers, verification, shares, log)
	router := httptransport.NewRouter(handler,
		httptransport.RouterConfig{AdminToken: cfg.Server.AdminToken}, log)

	srv := httpserver.New(cfg.Server.Addr, router)
	go func() {
		log.Info("credverse listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
	if !webhooks.Wait(shutdownCtx) {
		log.Warn("in-flight webhook deliveries abandoned at shutdown")
	}
}

// buildBackend selects live or simulated mode. An empty RPC URL means
// simulated: a fully functional in-process registry.
func buildBackend(ctx context.Context, cfg config.Ledger, log *slog.Logger) (ledger.Backend, error) {
	if cfg.RPCURL == "" {
		admin := common.BytesToAddress(ethcrypto.Keccak256([]byte("credverse-operator")))
		log.Info("no ledger RPC configured, running simulated mode")
		return ledger.NewSimulated(registry.New(admin), admin), nil
	}
	return eth.Dial(ctx, cfg.RPCURL, eth.Config{
		ContractAddress: common.HexToAddress(cfg.ContractAddress),
		PrivateKey:      cfg.PrivateKey,
		RPCTimeout:      cfg.CallTimeout,
		ReceiptTimeout:  cfg.ReceiptTimeout,
	})
}

// buildAuditPublisher persists audit events to postgres when available and
// streams them to kafka when brokers are configured.
func buildAuditPublisher(cfg config.Kafka, db *sql.DB, log *slog.Logger) (*auditpublisher.Publisher, func()) {
	var store audit.Store = auditmem.NewInMemoryStore()
	if db != nil {
		store = auditpg.New(db)
	}

	opts := []auditpublisher.Option{auditpublisher.WithLogger(log)}
	var kafkaProducer *producer.Producer
	if cfg.Brokers != "" {
		var err error
		kafkaProducer, err = producer.New(producer.Config{
			Brokers: cfg.Brokers,
			Topic:   cfg.Topic,
		}, log)
		if err != nil {
			log.Warn("kafka unavailable, audit events stay local", "error", err)
			kafkaProducer = nil
		} else {
			opts = append(opts, auditpublisher.WithSink(kafkaProducer))
		}
	}

	pub := auditpublisher.New(store, opts...)
	return pub, func() {
		pub.Close()
		if kafkaProducer != nil {
			if err := kafkaProducer.Close(); err != nil {
				log.Warn("kafka producer close failed", "error", err)
			}
		}
	}
}
