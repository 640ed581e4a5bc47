// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"applysync/internal/common/aws"
	"applysync/internal/common/camunda"
	"applysync/internal/common/config"
	"applysync/internal/common/database"
	"applysync/internal/common/logger"
	"applysync/internal/common/observability"
	"applysync/internal/common/taskstore"
	followup "applysync/internal/workers/communication/follow-up-email"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log logger.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName), map[string]interface{}{
				"error":       err,
				"attempt":     i + 1,
				"maxRetries":  maxRetries,
				"nextRetryIn": delay.String(),
			})
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

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog).WithFields(map[string]interface{}{"service": "worker-manager"})

	log.Info("Starting worker manager...", nil)

	obs := observability.New("worker-manager")
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	awsCfg, err := aws.LoadConfig(ctx, cfg.AWS.Region)
	if err != nil {
		zapLog.Fatal("aws config failed", zap.Error(err))
	}

	// --- Redis (queue consumer and key cache) ---
	var rdb *database.RedisClient
	if cfg.Database.Redis.Address != "" {
		rdb = database.NewRedis(cfg.Database.Redis)
		err = retryWithBackoff(func() error { return rdb.Ping(ctx) }, 5, 2*time.Second, log, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer rdb.Close()
	}

	// --- Task store ---
	dynamo := dynamodb.NewFromConfig(awsCfg)
	var resolver taskstore.KeyResolver = taskstore.NewDescribeResolver(dynamo)
	if rdb != nil && cfg.AWS.DynamoDB.KeyCacheTTL > 0 {
		resolver = taskstore.NewCachedResolver(resolver, rdb.Client, time.Duration(cfg.AWS.DynamoDB.KeyCacheTTL)*time.Second, log)
	}
	store := taskstore.New(dynamo, resolver, taskstore.Config{
		Table:      cfg.AWS.DynamoDB.Table,
		KeyAliases: cfg.AWS.DynamoDB.KeyAliases,
		DefaultKey: cfg.AWS.DynamoDB.DefaultKey,
	}, log)

	fuCfg := followup.ConfigFromAppConfig(cfg)
	if err := fuCfg.Validate(); err != nil {
		zapLog.Fatal("invalid follow-up config", zap.Error(err))
	}

	service := followup.NewService(followup.ServiceDependencies{
		Store:         store,
		Transport:     aws.NewSESTransport(ses.NewFromConfig(awsCfg), cfg.AWS.SES.FromEmail, cfg.AWS.SES.FromName),
		Observability: obs,
		Logger:        log,
	}, fuCfg)

	handler := followup.NewHandler(fuCfg, service, log)
	if !handler.IsEnabled() {
		log.Warn("follow-up worker disabled by configuration", nil)
	}

	var wg sync.WaitGroup

	// --- Zeebe job worker ---
	var (
		zeebeClient *camunda.Client
		jobWorker   *camunda.CamundaWorker
	)
	if cfg.Camunda.BrokerAddress != "" && handler.IsEnabled() {
		err = retryWithBackoff(func() error {
			var err error
			zeebeClient, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
				GatewayAddress:         cfg.Camunda.BrokerAddress,
				UsePlaintextConnection: true,
				ConnectionTimeout:      10 * time.Second,
				RequestTimeout:         config.GetDuration(cfg.Camunda.RequestTimeout),
			})
			return err
		}, 10, 2*time.Second, log, "Zeebe client initialization")
		if err != nil {
			zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
		}
		log.Info("Zeebe client connected successfully", nil)

		jobWorker = camunda.NewWorker(zeebeClient.GetClient(), handler.GetTaskType(), fuCfg.MaxJobsActive, fuCfg.Timeout, handler, log)
	}

	// --- Redis queue consumer ---
	if cfg.FollowUp.Dispatch == config.DispatchRedis && rdb != nil && handler.IsEnabled() {
		consumer := followup.NewConsumer(rdb.Client, service, fuCfg, log)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := consumer.Run(ctx); err != nil {
				log.Error("follow-up consumer exited", map[string]interface{}{"error": err})
			}
		}()
	}

	if jobWorker == nil && cfg.FollowUp.Dispatch != config.DispatchRedis {
		log.Warn("no follow-up intake configured in this process; serving health only", map[string]interface{}{
			"dispatch": cfg.FollowUp.Dispatch,
		})
	}

	// --- Health/Metrics server ---
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("GET /ready", func(w http.ResponseWriter, r *http.Request) {
		deps := map[string]database.Pinger{}
		if rdb != nil {
			deps["redis"] = rdb
		}
		status, code := "ready", http.StatusOK
		for name := range database.PingAll(r.Context(), deps) {
			status, code = name+" unavailable", http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(map[string]string{
			"status": status,
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	srv := &http.Server{Addr: cfg.Server.MetricsAddress, Handler: mux}
	go func() {
		log.Info("Health/Metrics server listening", map[string]interface{}{"address": cfg.Server.MetricsAddress})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Health/Metrics server failed", map[string]interface{}{"error": err})
		}
	}()

	// --- Graceful Shutdown ---
	<-ctx.Done()
	log.Info("Shutdown signal received, stopping workers...", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if jobWorker != nil {
		jobWorker.Stop()
	}
	if zeebeClient != nil {
		if err := zeebeClient.Close(); err != nil {
			log.Error("Error closing Zeebe client", map[string]interface{}{"error": err})
		}
	}
	wg.Wait()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Health/Metrics server shutdown failed", map[string]interface{}{"error": err})
	}

	log.Info("Worker manager stopped gracefully", nil)
}
