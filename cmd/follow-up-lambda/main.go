// cmd/follow-up-lambda/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"applysync/internal/common/aws"
	"applysync/internal/common/config"
	"applysync/internal/common/database"
	"applysync/internal/common/logger"
	"applysync/internal/common/observability"
	"applysync/internal/common/taskstore"
	followup "applysync/internal/workers/communication/follow-up-email"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"go.uber.org/zap"
)

// The scheduler function behind the lambda dispatch mode, the sns mode (as a
// topic subscriber) and external continuation triggers.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog).WithFields(map[string]interface{}{"service": "follow-up-lambda"})

	obs := observability.New("follow-up-lambda")
	defer obs.Shutdown()

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	awsCfg, err := aws.LoadConfig(initCtx, cfg.AWS.Region)
	if err != nil {
		zapLog.Fatal("aws config failed", zap.Error(err))
	}

	dynamo := dynamodb.NewFromConfig(awsCfg)
	var resolver taskstore.KeyResolver = taskstore.NewDescribeResolver(dynamo)
	if cfg.Database.Redis.Address != "" && cfg.AWS.DynamoDB.KeyCacheTTL > 0 {
		rdb := database.NewRedis(cfg.Database.Redis)
		defer rdb.Close()
		if err := rdb.Ping(initCtx); err != nil {
			log.Warn("key cache unavailable, resolving from the table", map[string]interface{}{"error": err})
		} else {
			resolver = taskstore.NewCachedResolver(resolver, rdb.Client, time.Duration(cfg.AWS.DynamoDB.KeyCacheTTL)*time.Second, log)
		}
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

	log.Info("follow-up scheduler ready", map[string]interface{}{"table": cfg.AWS.DynamoDB.Table})
	// Start never returns; buffered spans and logs are flushed on SIGTERM.
	lambda.StartWithOptions(followup.NewLambdaHandler(service, log).Invoke,
		lambda.WithEnableSIGTERM(obs.Shutdown, func() { _ = zapLog.Sync() }))
}
