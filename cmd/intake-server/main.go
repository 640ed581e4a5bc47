// cmd/intake-server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"applysync/internal/common/aws"
	"applysync/internal/common/camunda"
	"applysync/internal/common/config"
	"applysync/internal/common/database"
	"applysync/internal/common/dispatch"
	apphttp "applysync/internal/common/http"
	"applysync/internal/common/logger"
	"applysync/internal/common/observability"
	"applysync/internal/common/sheets"
	"applysync/internal/common/webhook"
	pa "applysync/internal/workers/application/process-application"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"go.uber.org/zap"
)

// closers are released in reverse order on shutdown.
type closers []func() error

func (c closers) closeAll(log logger.Logger) {
	for i := len(c) - 1; i >= 0; i-- {
		if err := c[i](); err != nil {
			log.Warn("close failed", map[string]interface{}{"error": err})
		}
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog).WithFields(map[string]interface{}{"service": "intake-server"})

	obs := observability.New("intake-server")
	defer obs.Shutdown()

	ctx := context.Background()
	var cleanup closers
	defer cleanup.closeAll(log)

	awsCfg, err := aws.LoadConfig(ctx, cfg.AWS.Region)
	if err != nil {
		zapLog.Fatal("aws config failed", zap.Error(err))
	}
	lambdaClient := lambda.NewFromConfig(awsCfg)

	records, err := buildRecordSinks(ctx, cfg, log, &cleanup)
	if err != nil {
		zapLog.Fatal("record sinks failed", zap.Error(err))
	}

	var notifier pa.NotificationSink
	if cfg.Webhook.URL != "" {
		notifier = webhook.NewNotifier(
			apphttp.NewClient(config.GetDuration(cfg.Webhook.Timeout)),
			cfg.Webhook.URL, cfg.Webhook.CandidateEmail, log,
		)
	} else {
		log.Warn("webhook url not configured, notifications disabled", nil)
	}

	followUp, err := buildDispatcher(cfg, awsCfg, lambdaClient, &cleanup)
	if err != nil {
		zapLog.Fatal("follow-up dispatcher failed", zap.Error(err))
	}

	paCfg := pa.ConfigFromAppConfig(cfg)
	if err := paCfg.Validate(); err != nil {
		zapLog.Fatal("invalid intake config", zap.Error(err))
	}

	service := pa.NewService(pa.ServiceDependencies{
		Store:         aws.NewS3StoreFromConfig(awsCfg, cfg.AWS.S3.Bucket, cfg.AWS.S3.KeyPrefix),
		Parser:        aws.NewLambdaParser(lambdaClient, cfg.AWS.Lambda.ParserFunction, cfg.AWS.S3.Bucket),
		Records:       records,
		Notifier:      notifier,
		FollowUp:      followUp,
		Observability: obs,
		Logger:        log,
	}, paCfg)

	handler := pa.NewHandler(paCfg, service, log)
	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      handler.Router(),
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: paCfg.WriteTimeout,
	}

	go func() {
		log.Info("intake server listening", map[string]interface{}{
			"address":     cfg.Server.Address,
			"environment": cfg.App.Environment,
			"dispatch":    cfg.FollowUp.Dispatch,
			"sinks":       cfg.Records.Sinks,
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", map[string]interface{}{"error": err})
	}
	log.Info("intake server stopped", nil)
}

func buildRecordSinks(ctx context.Context, cfg *config.Config, log logger.Logger, cleanup *closers) (pa.RecordSink, error) {
	var sinks []pa.RecordSink
	startCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	if cfg.HasSink("sheets") {
		sink, err := sheets.NewFromConfig(ctx, sheets.Config{
			SpreadsheetID:   cfg.Sheets.SpreadsheetID,
			SheetName:       cfg.Sheets.SheetName,
			CredentialsFile: cfg.Sheets.CredentialsFile,
			CredentialsJSON: cfg.Sheets.CredentialsJSON,
		}, log)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, sink)
	}

	if cfg.HasSink("postgres") {
		pg, err := database.NewPostgres(startCtx, cfg.Database.Postgres)
		if err != nil {
			return nil, err
		}
		*cleanup = append(*cleanup, pg.Close)
		sink, err := database.NewPostgresSink(pg.DB, cfg.Database.Postgres.Table)
		if err != nil {
			return nil, err
		}
		if err := sink.EnsureSchema(startCtx); err != nil {
			log.Warn("could not ensure application table", map[string]interface{}{"error": err})
		}
		sinks = append(sinks, sink)
	}

	if cfg.HasSink("elasticsearch") {
		es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return nil, err
		}
		for name, err := range database.PingAll(startCtx, map[string]database.Pinger{"elasticsearch": es}) {
			log.Warn("record sink unreachable at startup", map[string]interface{}{"sink": name, "error": err})
		}
		sinks = append(sinks, database.NewElasticsearchSink(es.Client, cfg.Database.Elasticsearch.Index))
	}

	if len(sinks) == 1 {
		return sinks[0], nil
	}
	return pa.NewMultiSink(sinks...), nil
}

func buildDispatcher(cfg *config.Config, awsCfg awssdk.Config, lambdaClient *lambda.Client, cleanup *closers) (pa.FollowUpDispatcher, error) {
	switch cfg.FollowUp.Dispatch {
	case config.DispatchLambda:
		return aws.NewLambdaDispatcher(lambdaClient, cfg.AWS.Lambda.SchedulerFunction), nil
	case config.DispatchSNS:
		return aws.NewSNSDispatcher(sns.NewFromConfig(awsCfg), cfg.AWS.SNS.TopicARN), nil
	case config.DispatchRedis:
		rdb := database.NewRedis(cfg.Database.Redis)
		*cleanup = append(*cleanup, rdb.Close)
		return dispatch.NewRedisDispatcher(rdb.Client, cfg.FollowUp.QueueKey), nil
	case config.DispatchZeebe:
		client, err := camunda.NewClientWithConfig(&camunda.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
			ConnectionTimeout:      10 * time.Second,
			RequestTimeout:         config.GetDuration(cfg.Camunda.RequestTimeout),
		})
		if err != nil {
			return nil, err
		}
		*cleanup = append(*cleanup, client.Close)
		return dispatch.NewZeebeDispatcher(client, cfg.FollowUp.ProcessID), nil
	default:
		return nil, fmt.Errorf("unknown dispatch mode %q", cfg.FollowUp.Dispatch)
	}
}
