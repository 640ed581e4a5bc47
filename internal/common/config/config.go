// internal/common/config/config.go
package config

import (
	"fmt"
	"time"
)

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Camunda  CamundaConfig  `mapstructure:"camunda"`
	Database DatabaseConfig `mapstructure:"database"`
	AWS      AWSConfig      `mapstructure:"aws"`
	Sheets   SheetsConfig   `mapstructure:"sheets"`
	Webhook  WebhookConfig  `mapstructure:"webhook"`
	Records  RecordsConfig  `mapstructure:"records"`
	FollowUp FollowUpConfig `mapstructure:"follow_up"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// IsDevelopment gates diagnostic output such as error traces in responses.
func (a AppConfig) IsDevelopment() bool {
	return a.Environment == "development"
}

type ServerConfig struct {
	Address         string `mapstructure:"address"`
	MetricsAddress  string `mapstructure:"metrics_address"`
	MaxUploadBytes  int64  `mapstructure:"max_upload_bytes"`
	ReadTimeout     int    `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout    int    `mapstructure:"write_timeout"`    // milliseconds
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"` // milliseconds
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
	Table          string `mapstructure:"table"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	Index     string   `mapstructure:"index"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// --- Cloud services ---

type AWSConfig struct {
	Region   string         `mapstructure:"region"`
	S3       S3Config       `mapstructure:"s3"`
	Lambda   LambdaConfig   `mapstructure:"lambda"`
	DynamoDB DynamoDBConfig `mapstructure:"dynamodb"`
	SES      SESConfig      `mapstructure:"ses"`
	SNS      SNSConfig      `mapstructure:"sns"`
}

type S3Config struct {
	Bucket       string `mapstructure:"bucket"`
	KeyPrefix    string `mapstructure:"key_prefix"`
	SignedURLTTL int    `mapstructure:"signed_url_ttl"` // seconds
}

type LambdaConfig struct {
	ParserFunction    string `mapstructure:"parser_function"`
	SchedulerFunction string `mapstructure:"scheduler_function"`
	ParseTimeout      int    `mapstructure:"parse_timeout"` // milliseconds
}

type DynamoDBConfig struct {
	Table       string   `mapstructure:"table"`
	KeyAliases  []string `mapstructure:"key_aliases"`
	DefaultKey  string   `mapstructure:"default_key"`
	KeyCacheTTL int      `mapstructure:"key_cache_ttl"` // seconds; 0 disables the Redis cache
}

type SESConfig struct {
	FromEmail string `mapstructure:"from_email"`
	FromName  string `mapstructure:"from_name"`
}

type SNSConfig struct {
	TopicARN string `mapstructure:"topic_arn"`
}

// SheetsConfig configures the spreadsheet record sink.
type SheetsConfig struct {
	SpreadsheetID   string `mapstructure:"spreadsheet_id"`
	SheetName       string `mapstructure:"sheet_name"`
	CredentialsFile string `mapstructure:"credentials_file"`
	CredentialsJSON string `mapstructure:"credentials_json"`
}

// WebhookConfig configures the outbound notification sink.
type WebhookConfig struct {
	URL            string `mapstructure:"url"`
	CandidateEmail string `mapstructure:"candidate_email"`
	Timeout        int    `mapstructure:"timeout"` // milliseconds
}

// RecordsConfig selects which record sinks receive application records.
type RecordsConfig struct {
	Sinks []string `mapstructure:"sinks"` // sheets | postgres | elasticsearch
}

// Follow-up dispatch modes.
const (
	DispatchLambda = "lambda"
	DispatchSNS    = "sns"
	DispatchRedis  = "redis"
	DispatchZeebe  = "zeebe"
)

// FollowUpConfig configures the follow-up scheduler and how intents reach it.
type FollowUpConfig struct {
	Dispatch        string `mapstructure:"dispatch"`
	DefaultTimezone string `mapstructure:"default_timezone"`
	SendHour        int    `mapstructure:"send_hour"`
	MaxAttempts     int    `mapstructure:"max_attempts"`
	BaseBackoff     int    `mapstructure:"base_backoff"` // milliseconds
	QueueKey        string `mapstructure:"queue_key"`
	ProcessID       string `mapstructure:"process_id"`
	JobType         string `mapstructure:"job_type"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
