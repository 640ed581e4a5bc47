// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configs/config.yaml, merges config.<APP_ENVIRONMENT>.yaml on top,
// expands ${ENV} placeholders and applies direct environment overrides.
func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // optional

	return finish(v, env)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v, os.Getenv("APP_ENVIRONMENT"))
}

func finish(v *viper.Viper, env string) (*Config, error) {
	expandEnvVars(v)
	// Midnight is a valid send hour, so an explicit 0 must survive defaulting.
	v.SetDefault("follow_up.send_hour", 10)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = env
	}

	applyDefaults(&cfg)
	overrideFromEnv(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{".env", "../.env", "../../.env"}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			if expanded := os.ExpandEnv(strVal); expanded != strVal {
				v.Set(key, expanded)
			}
		}
	}
}

// overrideFromEnv maps the deployment's historical environment variable names
// onto config fields. An override only applies when the field is still empty.
func overrideFromEnv(cfg *Config) {
	overrides := []struct {
		env    string
		target *string
	}{
		{"AWS_REGION", &cfg.AWS.Region},
		{"S3_BUCKET_NAME", &cfg.AWS.S3.Bucket},
		{"LAMBDA_CV_PARSER", &cfg.AWS.Lambda.ParserFunction},
		{"LAMBDA_EMAIL_SCHEDULER", &cfg.AWS.Lambda.SchedulerFunction},
		{"DYNAMODB_TABLE", &cfg.AWS.DynamoDB.Table},
		{"SENDER_EMAIL", &cfg.AWS.SES.FromEmail},
		{"SNS_TOPIC_ARN", &cfg.AWS.SNS.TopicARN},
		{"GOOGLE_SHEET_ID", &cfg.Sheets.SpreadsheetID},
		{"GOOGLE_SERVICE_ACCOUNT", &cfg.Sheets.CredentialsJSON},
		{"WEBHOOK_URL", &cfg.Webhook.URL},
		{"CANDIDATE_EMAIL", &cfg.Webhook.CandidateEmail},
		{"DB_USER", &cfg.Database.Postgres.User},
		{"DB_PASSWORD", &cfg.Database.Postgres.Password},
	}
	for _, o := range overrides {
		if *o.target != "" {
			continue
		}
		if val := os.Getenv(o.env); val != "" {
			*o.target = val
		}
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "applysync"
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = "development"
	}

	if cfg.Server.Address == "" {
		cfg.Server.Address = ":3000"
	}
	if cfg.Server.MetricsAddress == "" {
		cfg.Server.MetricsAddress = ":9090"
	}
	if cfg.Server.MaxUploadBytes == 0 {
		cfg.Server.MaxUploadBytes = 10 << 20
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30000
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 150000
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10000
	}

	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 30000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}

	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Postgres.Table == "" {
		cfg.Database.Postgres.Table = "applications"
	}
	if cfg.Database.Elasticsearch.Index == "" {
		cfg.Database.Elasticsearch.Index = "applications"
	}

	if cfg.AWS.S3.KeyPrefix == "" {
		cfg.AWS.S3.KeyPrefix = "cvs/"
	}
	if cfg.AWS.S3.SignedURLTTL == 0 {
		cfg.AWS.S3.SignedURLTTL = 604800
	}
	if cfg.AWS.Lambda.ParseTimeout == 0 {
		cfg.AWS.Lambda.ParseTimeout = 60000
	}
	if cfg.AWS.DynamoDB.Table == "" {
		cfg.AWS.DynamoDB.Table = "ScheduledEmails"
	}
	if len(cfg.AWS.DynamoDB.KeyAliases) == 0 {
		cfg.AWS.DynamoDB.KeyAliases = []string{"id", "taskId", "task_id", "emailId"}
	}
	if cfg.AWS.DynamoDB.DefaultKey == "" {
		cfg.AWS.DynamoDB.DefaultKey = "id"
	}
	if cfg.AWS.SES.FromEmail == "" {
		cfg.AWS.SES.FromEmail = "noreply@example.com"
	}
	if cfg.AWS.SES.FromName == "" {
		cfg.AWS.SES.FromName = "Recruiting"
	}

	if cfg.Sheets.SheetName == "" {
		cfg.Sheets.SheetName = "Sheet1"
	}
	if cfg.Webhook.Timeout == 0 {
		cfg.Webhook.Timeout = 10000
	}
	if len(cfg.Records.Sinks) == 0 {
		cfg.Records.Sinks = []string{"sheets"}
	}

	if cfg.FollowUp.Dispatch == "" {
		cfg.FollowUp.Dispatch = DispatchLambda
	}
	if cfg.FollowUp.DefaultTimezone == "" {
		cfg.FollowUp.DefaultTimezone = "UTC"
	}
	if cfg.FollowUp.MaxAttempts == 0 {
		cfg.FollowUp.MaxAttempts = 3
	}
	if cfg.FollowUp.BaseBackoff == 0 {
		cfg.FollowUp.BaseBackoff = 1000
	}
	if cfg.FollowUp.QueueKey == "" {
		cfg.FollowUp.QueueKey = "applysync:followup"
	}
	if cfg.FollowUp.ProcessID == "" {
		cfg.FollowUp.ProcessID = "follow-up-email"
	}
	if cfg.FollowUp.JobType == "" {
		cfg.FollowUp.JobType = "follow-up-email"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if cfg.AWS.S3.Bucket == "" {
		return fmt.Errorf("aws.s3.bucket is required")
	}
	if cfg.AWS.Lambda.ParserFunction == "" {
		return fmt.Errorf("aws.lambda.parser_function is required")
	}
	if cfg.FollowUp.SendHour < 0 || cfg.FollowUp.SendHour > 23 {
		return fmt.Errorf("follow_up.send_hour must be between 0 and 23")
	}

	switch cfg.FollowUp.Dispatch {
	case DispatchLambda:
		if cfg.AWS.Lambda.SchedulerFunction == "" {
			return fmt.Errorf("aws.lambda.scheduler_function is required for lambda dispatch")
		}
	case DispatchSNS:
		if cfg.AWS.SNS.TopicARN == "" {
			return fmt.Errorf("aws.sns.topic_arn is required for sns dispatch")
		}
	case DispatchRedis:
		if cfg.Database.Redis.Address == "" {
			return fmt.Errorf("database.redis.address is required for redis dispatch")
		}
	case DispatchZeebe:
		if cfg.Camunda.BrokerAddress == "" {
			return fmt.Errorf("camunda.broker_address is required for zeebe dispatch")
		}
	default:
		return fmt.Errorf("follow_up.dispatch must be one of lambda, sns, redis, zeebe")
	}

	for _, sink := range cfg.Records.Sinks {
		switch sink {
		case "sheets":
		case "postgres":
			if cfg.Database.Postgres.Host == "" || cfg.Database.Postgres.Database == "" {
				return fmt.Errorf("database.postgres.host and database are required for the postgres sink")
			}
		case "elasticsearch":
			if len(cfg.Database.Elasticsearch.Addresses) == 0 {
				return fmt.Errorf("database.elasticsearch.addresses is required for the elasticsearch sink")
			}
		default:
			return fmt.Errorf("unknown record sink %q", sink)
		}
	}

	return nil
}

// HasSink reports whether the named record sink is enabled.
func (c *Config) HasSink(name string) bool {
	for _, s := range c.Records.Sinks {
		if s == name {
			return true
		}
	}
	return false
}
