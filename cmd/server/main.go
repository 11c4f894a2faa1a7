package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go-roundflow/internal/api/handler"
	"go-roundflow/internal/config"
	"go-roundflow/internal/coordinator"
	"go-roundflow/internal/core/ports"
	"go-roundflow/internal/core/postgres/repository"
	"go-roundflow/internal/domain"
	"go-roundflow/internal/infrastructure/ethereum"
	"go-roundflow/internal/infrastructure/ipfs"
	"go-roundflow/internal/infrastructure/objectstore"
	"go-roundflow/internal/infrastructure/redis"
	"go-roundflow/internal/infrastructure/subgraph"
	"go-roundflow/internal/metrics"
	"go-roundflow/internal/service"
	"go-roundflow/internal/worker"
	"go-roundflow/internal/workflow"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML config file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	// 2. Set up database connection
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{})
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	if err := db.AutoMigrate(&domain.WorkflowRun{}); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// 3. Set up redis bus and queue
	redisClient, err := redis.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatal("Failed to connect to redis:", err)
	}
	defer redisClient.Close()
	eventBus := redis.NewRedisEventBus(redisClient)
	runQueue := redis.NewRedisQueue(redisClient)

	// 4. Set up chain, storage and indexer clients
	store, err := newContentStore(cfg)
	if err != nil {
		log.Fatal("Failed to set up content store:", err)
	}

	var writer ports.ChainWriter
	var chainID uint64
	if cfg.Chain.PrivateKey != "" {
		signer, err := ethereum.NewKeySigner(cfg.Chain.PrivateKey)
		if err != nil {
			log.Fatal("Failed to load signer:", err)
		}
		w, client, err := ethereum.Dial(ctx, cfg.Chain.RPCURL, signer)
		if err != nil {
			log.Fatal("Failed to connect to chain:", err)
		}
		defer client.Close()
		writer, chainID = w, w.ChainID()
		log.Printf("Signer %s connected to chain %d", signer.Address().Hex(), chainID)
	} else {
		log.Println("No signer configured, mutating operations will fail with", domain.ErrNoSigner)
	}

	indexerClient := subgraph.NewClient(cfg.Indexer.Endpoints, cfg.Indexer.RequestTimeout)

	// 5. Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(registry)

	// 6. Wire repository, worker pool, coordinator and service
	runRepo := repository.NewRunRepository(db)
	deps := workflow.Deps{
		Store:        store,
		Writer:       writer,
		Sync:         indexerClient,
		Finalization: indexerClient,
		Contracts: workflow.Contracts{
			ProgramFactory: common.HexToAddress(cfg.Chain.ProgramFactory),
			RoundFactory:   common.HexToAddress(cfg.Chain.RoundFactory),
		},
		PollInterval: cfg.Indexer.PollInterval,
		SyncTimeout:  cfg.Indexer.SyncTimeout,
		Metrics:      collector,
	}
	states := worker.NewStateRegistry(worker.PublishTransitions(eventBus))
	runWorker := worker.NewWorker(runQueue, runRepo, deps, states, collector)
	runCoordinator := coordinator.NewCoordinator(runRepo, eventBus)
	runSvc := service.NewRunService(runRepo, runQueue, runWorker, states, indexerClient, chainID)

	// 7. Set up routes
	router := gin.Default()
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	handler.NewRunHandler(runSvc, eventBus).Register(router.Group("/api/v1"))

	srv := &http.Server{Addr: cfg.Server.Addr, Handler: router}

	// 8. Run everything until a signal arrives
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return runCoordinator.Start(gctx)
	})
	g.Go(func() error {
		runWorker.StartPool(gctx, cfg.Worker.Concurrency)
		return nil
	})
	g.Go(func() error {
		log.Printf("Server starting on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal("Server stopped with error:", err)
	}
	log.Println("Server stopped")
}

func newContentStore(cfg *config.Config) (ports.ContentStore, error) {
	switch cfg.Storage.Backend {
	case "minio":
		m := cfg.Storage.MinIO
		return objectstore.New(objectstore.Config{
			Endpoint:  m.Endpoint,
			AccessKey: m.AccessKey,
			SecretKey: m.SecretKey,
			Bucket:    m.Bucket,
			Prefix:    m.Prefix,
			Region:    m.Region,
			UseSSL:    m.UseSSL,
		})
	default:
		p := cfg.Storage.Pinata
		return ipfs.NewPinataStore(p.Endpoint, p.JWT, p.Timeout), nil
	}
}
