package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"go.yaml.in/yaml/v4"
)

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	VeinLine VeinLineConfig `yaml:"veinline"`
	SMS      SMSConfig      `yaml:"sms"`
	Email    EmailConfig    `yaml:"email"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DBName   string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

type KafkaConfig struct {
	Host               string `yaml:"host"`
	Port               int    `yaml:"port"`
	SOSEventsTopicName string `yaml:"sos_events_topic_name"`
}

type RedisConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type VeinLineConfig struct {
	HTTPAddr           string `yaml:"http_addr"`
	WorkerHTTPAddr     string `yaml:"worker_http_addr"`
	KafkaConsumerGroup string `yaml:"kafka_consumer_group"`
	LogLevel           string `yaml:"log_level"`

	// CityMatchStrict is a pointer so that an absent key keeps the strict default.
	CityMatchStrict *bool `yaml:"city_match_strict"`
	MatchLimit      int   `yaml:"match_limit"`

	NotifyConcurrency    int `yaml:"notify_concurrency"`
	SMSRateLimitPerHour  int `yaml:"sms_rate_limit_per_hour"`
	TokenCacheTTLSeconds int `yaml:"token_cache_ttl_seconds"`
	EventDedupTTLSeconds int `yaml:"event_dedup_ttl_seconds"`
}

type SMSConfig struct {
	Provider       string `yaml:"provider"` // "fast2sms" | "textlocal" | "log"
	APIKey         string `yaml:"api_key"`
	SenderID       string `yaml:"sender_id"`
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type EmailConfig struct {
	Backend  string `yaml:"backend"` // "smtp" | "log"
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

// envOverrides carries secrets that should not live in the yaml file.
type envOverrides struct {
	SMSProvider      string `env:"VEINLINE_SMS_PROVIDER"`
	SMSAPIKey        string `env:"VEINLINE_SMS_API_KEY"`
	SMSSender        string `env:"VEINLINE_SMS_SENDER"`
	SMTPPassword     string `env:"VEINLINE_SMTP_PASSWORD"`
	DatabasePassword string `env:"VEINLINE_DATABASE_PASSWORD"`
}

func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	if err := config.applyEnv(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) applyEnv() error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("failed to parse env overrides: %w", err)
	}
	if o.SMSProvider != "" {
		c.SMS.Provider = o.SMSProvider
	}
	if o.SMSAPIKey != "" {
		c.SMS.APIKey = o.SMSAPIKey
	}
	if o.SMSSender != "" {
		c.SMS.SenderID = o.SMSSender
	}
	if o.SMTPPassword != "" {
		c.Email.Password = o.SMTPPassword
	}
	if o.DatabasePassword != "" {
		c.Database.Password = o.DatabasePassword
	}
	return nil
}

// PostgresConnString builds the pgx connection string, defaulting sslmode to disable.
func (c *Config) PostgresConnString() string {
	sslMode := c.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.Username, c.Database.Password, c.Database.Host, c.Database.Port, c.Database.DBName, sslMode)
}

func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func (c *Config) KafkaBrokers() []string {
	return []string{fmt.Sprintf("%s:%d", c.Kafka.Host, c.Kafka.Port)}
}

func (c *Config) SOSEventsTopic() string {
	if c.Kafka.SOSEventsTopicName == "" {
		return "sos.events"
	}
	return c.Kafka.SOSEventsTopicName
}

func (c *Config) CityMatchStrict() bool {
	if c.VeinLine.CityMatchStrict == nil {
		return true
	}
	return *c.VeinLine.CityMatchStrict
}
