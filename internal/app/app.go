// Package app wires configuration into running API and worker processes.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/dharsanguruparan/filevault/internal/api"
	"github.com/dharsanguruparan/filevault/internal/config"
	"github.com/dharsanguruparan/filevault/internal/database"
	"github.com/dharsanguruparan/filevault/internal/files"
	"github.com/dharsanguruparan/filevault/internal/metrics"
	"github.com/dharsanguruparan/filevault/internal/queue"
	"github.com/dharsanguruparan/filevault/internal/repository"
	"github.com/dharsanguruparan/filevault/internal/session"
	"github.com/dharsanguruparan/filevault/internal/storage"
	"github.com/dharsanguruparan/filevault/internal/users"
	"github.com/dharsanguruparan/filevault/internal/worker"
)

// inlineMaxRetry bounds retries of the in-process dispatcher.
const inlineMaxRetry = 3

// OpenStore connects the configured record store and makes sure its schema
// and indexes exist.
func OpenStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	switch cfg.DBDriver {
	case config.DriverMongo:
		client, err := database.ConnectMongo(ctx, cfg.MongoURI())
		if err != nil {
			return nil, err
		}
		store := repository.NewMongoStore(client, cfg.DBName)
		if err := store.EnsureIndexes(ctx); err != nil {
			_ = store.Close(ctx)
			return nil, err
		}
		return store, nil
	case config.DriverPostgres:
		pool, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		if err := database.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		return repository.NewPostgresStore(pool), nil
	case config.DriverMemory:
		return repository.NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("unknown DB_DRIVER %q", cfg.DBDriver)
}

// OpenBlobs prepares the configured blob backend.
func OpenBlobs(ctx context.Context, cfg *config.Config) (storage.Blob, error) {
	switch cfg.BlobDriver {
	case config.BlobLocal:
		return storage.NewLocal(cfg.FolderPath)
	case config.BlobMinio:
		store, err := storage.NewMinio(cfg)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return store, nil
	}
	return nil, fmt.Errorf("unknown BLOB_DRIVER %q", cfg.BlobDriver)
}

func redisOpt(cfg *config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
}

// RunAPI serves HTTP until ctx is cancelled. With QUEUE_MODE=inline the job
// handlers run in this process instead of a separate worker.
func RunAPI(ctx context.Context, cfg *config.Config, log *logrus.Logger) error {
	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close(context.WithoutCancel(ctx))

	blobs, err := OpenBlobs(ctx, cfg)
	if err != nil {
		return err
	}

	rdb := database.ConnectRedis(cfg)
	defer rdb.Close()
	return serve(ctx, cfg, log, store, blobs, rdb)
}

func serve(ctx context.Context, cfg *config.Config, log *logrus.Logger, store repository.Store, blobs storage.Blob, rdb redis.Cmdable) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := metrics.New()
	var jobs queue.Enqueuer
	switch cfg.QueueMode {
	case config.QueueInline:
		processor := worker.NewProcessor(store, blobs, log, m)
		dispatcher := queue.NewDispatcher(processor.Handler(), cfg.WorkerCount, inlineMaxRetry, log)
		dispatcher.Start(ctx)
		// Workers stop on cancel, so a failed startup does not hang here.
		defer func() {
			cancel()
			dispatcher.Wait()
		}()
		jobs = dispatcher
		log.Infof("running %d inline job workers", cfg.WorkerCount)
	default:
		client := queue.NewClient(asynq.NewClient(redisOpt(cfg)))
		defer client.Close()
		jobs = client
	}

	sessions := session.NewManager(rdb, cfg.SessionTTL)
	srv, err := api.New(api.Deps{
		Config:   cfg,
		Logger:   log,
		Store:    store,
		Sessions: sessions,
		Users:    users.NewService(store, sessions, jobs, log),
		Files:    files.NewService(store, blobs, jobs, log),
		Metrics:  m,
	})
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}

// RunWorker consumes jobs from redis until ctx is cancelled. Job counters are
// served on cfg.WorkerMetricsAddress unless it is empty.
func RunWorker(ctx context.Context, cfg *config.Config, log *logrus.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close(context.WithoutCancel(ctx))

	blobs, err := OpenBlobs(ctx, cfg)
	if err != nil {
		return err
	}

	server := asynq.NewServer(redisOpt(cfg), asynq.Config{
		Concurrency: cfg.WorkerCount,
		Logger:      log,
	})
	m := metrics.New()
	processor := worker.NewProcessor(store, blobs, log, m)

	if err := server.Start(processor.Handler()); err != nil {
		return fmt.Errorf("start worker: %w", err)
	}
	metricsErr := make(chan error, 1)
	if cfg.WorkerMetricsAddress != "" {
		go func() {
			metricsErr <- serveMetrics(ctx, cfg.WorkerMetricsAddress, m, log)
		}()
	}
	log.Infof("worker consuming with concurrency %d", cfg.WorkerCount)

	select {
	case <-ctx.Done():
	case err = <-metricsErr:
	}
	server.Shutdown()
	return err
}

// serveMetrics exposes m under /metrics on addr until ctx is cancelled.
func serveMetrics(ctx context.Context, addr string, m *metrics.Metrics, log *logrus.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	log.Infof("worker metrics listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("worker metrics: %w", err)
	}
	return nil
}

// Migrate creates the schema, the indexes and the blob bucket or directory.
func Migrate(ctx context.Context, cfg *config.Config, log *logrus.Logger) error {
	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close(context.WithoutCancel(ctx))
	log.Infof("%s schema up to date", cfg.DBDriver)

	if _, err := OpenBlobs(ctx, cfg); err != nil {
		return err
	}
	log.Infof("%s blob storage ready", cfg.BlobDriver)
	return nil
}

// Counts is the payload of GET /stats and `filevault stats`.
type Counts struct {
	Users int64 `json:"users"`
	Files int64 `json:"files"`
}

// Stats counts users and files in the configured store.
func Stats(ctx context.Context, cfg *config.Config) (Counts, error) {
	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return Counts{}, err
	}
	defer store.Close(context.WithoutCancel(ctx))
	return count(ctx, store)
}

func count(ctx context.Context, store repository.Store) (Counts, error) {
	var c Counts
	var err error
	if c.Users, err = store.CountUsers(ctx); err != nil {
		return Counts{}, err
	}
	if c.Files, err = store.CountFiles(ctx); err != nil {
		return Counts{}, err
	}
	return c, nil
}
