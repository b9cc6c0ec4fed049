// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"bestchoice-workers/internal/common/aws"
	"bestchoice-workers/internal/common/camunda"
	"bestchoice-workers/internal/common/config"
	"bestchoice-workers/internal/common/database"
	"bestchoice-workers/internal/common/logger"
	"bestchoice-workers/internal/common/observability"
	"bestchoice-workers/internal/matching"
	"bestchoice-workers/internal/store"
	"bestchoice-workers/pkg/registry"

	ir "bestchoice-workers/internal/workers/matching/index-results"
	nr "bestchoice-workers/internal/workers/matching/notify-results"
	ps "bestchoice-workers/internal/workers/matching/purge-session"
	rm "bestchoice-workers/internal/workers/matching/run-matching"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...",
		zap.String("app", cfg.App.Name),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	tracing, err := observability.NewTracing(cfg.App.Name, cfg.Observability.JaegerEndpoint)
	if err != nil {
		zapLog.Fatal("tracing setup failed", zap.Error(err))
	}
	defer tracing.Shutdown()

	// The registry is the designer-facing contract; refuse to start if it
	// drifted out of shape.
	reg, err := registry.LoadRegistry("configs/activity-registry.json")
	if err != nil {
		zapLog.Fatal("activity registry load failed", zap.Error(err))
	}
	if err := reg.Validate(); err != nil {
		zapLog.Fatal("activity registry invalid", zap.Error(err))
	}
	zapLog.Info("Activity registry loaded", zap.Int("activities", len(reg.Activities)))

	ctx := context.Background()

	// --- Init Zeebe Client with retry ---
	var zeebeClient zbc.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebeClient, err = zbc.NewClient(&zbc.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
		})
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		redis = database.NewRedis(cfg.Database.Redis)
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init Elasticsearch with retry ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return esClient.Ping()
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	zapLog.Info("Elasticsearch connected successfully")

	// --- Stores and engine ---
	cacheTTL := time.Duration(cfg.Matching.CacheTTLSeconds) * time.Second
	studentStore := store.NewStudentStore(pg.DB, redis.Client, cacheTTL, log)
	projectStore := store.NewProjectStore(pg.DB)
	resultStore := store.NewResultStore(pg.DB)

	engineOpts := matching.Options{
		DefaultThreshold: cfg.Matching.DefaultThreshold,
		DefaultWeights: matching.Weights{
			Skills:    cfg.Matching.SkillsWeight,
			Interests: cfg.Matching.InterestsWeight,
			WorkMode:  cfg.Matching.WorkModeWeight,
		},
		ScoreWorkers: cfg.Matching.ScoreWorkers,
	}

	weighted := matching.NewWeightedStrategy(studentStore, projectStore, resultStore, engineOpts, log)
	stable := matching.NewStableStrategy(studentStore, projectStore, resultStore, engineOpts, log)
	hybrid := matching.NewHybridStrategy(weighted, stable, log)
	coordinator := matching.NewCoordinator(log, weighted, stable, hybrid)

	// --- Register Workers ---
	var workers []*camunda.Worker

	if wcfg := cfg.Workers[rm.TaskType]; wcfg.Enabled {
		handler := rm.NewHandler(
			&rm.Config{
				Timeout:        time.Duration(wcfg.Timeout) * time.Millisecond,
				DefaultRetries: int32(wcfg.MaxRetries),
			},
			coordinator, log,
		)
		workers = append(workers, camunda.NewWorker(zeebeClient, rm.TaskType, wcfg.MaxJobsActive,
			time.Duration(wcfg.Timeout)*time.Millisecond, handler, zapLog))
	}

	if wcfg := cfg.Workers[nr.TaskType]; wcfg.Enabled && cfg.Notifications.Enabled {
		sesClient, err := aws.NewSESClient(ctx, cfg.Notifications.AWSRegion)
		if err != nil {
			zapLog.Fatal("failed to create SES client", zap.Error(err))
		}
		snsClient, err := aws.NewSNSClient(ctx, cfg.Notifications.AWSRegion)
		if err != nil {
			zapLog.Fatal("failed to create SNS client", zap.Error(err))
		}

		handler := nr.NewHandler(
			&nr.Config{
				Timeout:        time.Duration(wcfg.Timeout) * time.Millisecond,
				DefaultRetries: int32(wcfg.MaxRetries),
				FromAddress:    cfg.Notifications.SenderEmail,
				TopicARN:       cfg.Notifications.TopicARN,
			},
			resultStore, studentStore, sesClient, snsClient, log,
		)
		workers = append(workers, camunda.NewWorker(zeebeClient, nr.TaskType, wcfg.MaxJobsActive,
			time.Duration(wcfg.Timeout)*time.Millisecond, handler, zapLog))
	}

	if wcfg := cfg.Workers[ir.TaskType]; wcfg.Enabled {
		handler := ir.NewHandler(
			&ir.Config{
				Timeout:        time.Duration(wcfg.Timeout) * time.Millisecond,
				DefaultRetries: int32(wcfg.MaxRetries),
				IndexName:      cfg.Database.Elasticsearch.Index,
			},
			esClient.Client, resultStore, log,
		)
		workers = append(workers, camunda.NewWorker(zeebeClient, ir.TaskType, wcfg.MaxJobsActive,
			time.Duration(wcfg.Timeout)*time.Millisecond, handler, zapLog))
	}

	if wcfg := cfg.Workers[ps.TaskType]; wcfg.Enabled {
		handler := ps.NewHandler(
			&ps.Config{
				Timeout:        time.Duration(wcfg.Timeout) * time.Millisecond,
				DefaultRetries: int32(wcfg.MaxRetries),
				IndexName:      cfg.Database.Elasticsearch.Index,
			},
			resultStore, esClient.Client, log,
		)
		workers = append(workers, camunda.NewWorker(zeebeClient, ps.TaskType, wcfg.MaxJobsActive,
			time.Duration(wcfg.Timeout)*time.Millisecond, handler, zapLog))
	}

	zapLog.Info("All workers registered successfully", zap.Int("count", len(workers)))

	// --- Health & Metrics Server ---
	go func() {
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "healthy",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			if err := pg.Ping(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{"status": "not ready", "error": err.Error()})
				return
			}
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "ready",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.Handle("/metrics", promhttp.Handler())

		addr := fmt.Sprintf(":%d", cfg.Observability.MetricsPort)
		zapLog.Info("Health/Metrics server listening", zap.String("addr", addr))
		if err := http.ListenAndServe(addr, nil); err != nil {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	for _, w := range workers {
		w.Stop(shutdownCtx)
	}

	if err := zeebeClient.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}
