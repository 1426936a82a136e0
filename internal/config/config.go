package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/shopops/backoffice/internal/dispatch"
	"github.com/shopops/backoffice/internal/domain"
	"github.com/shopops/backoffice/internal/infrastructure/cafe24"
	"github.com/shopops/backoffice/internal/pricequeue"
	"github.com/shopops/backoffice/pkg/kafka"
	"github.com/shopops/backoffice/pkg/logging"
	"github.com/shopops/backoffice/pkg/mongodb"
	"github.com/shopops/backoffice/pkg/tracing"
)

const serviceName = "backoffice-api"

// Config is the process configuration. Every key can be set from the
// environment: nested keys join with an underscore, so cafe24.mall_id is
// read from CAFE24_MALL_ID.
type Config struct {
	Environment string           `mapstructure:"environment" validate:"required"`
	Server      ServerConfig     `mapstructure:"server"`
	Log         LogConfig        `mapstructure:"log"`
	Cafe24      Cafe24Config     `mapstructure:"cafe24"`
	Order       OrderConfig      `mapstructure:"order"`
	PriceQueue  PriceQueueConfig `mapstructure:"price_queue"`
	MongoDB     MongoDBConfig    `mapstructure:"mongodb"`
	Redis       RedisConfig      `mapstructure:"redis"`
	Kafka       KafkaConfig      `mapstructure:"kafka"`
	Tracing     TracingConfig    `mapstructure:"tracing"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr" validate:"required"`
}

type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
}

// Cafe24Config configures the marketplace adapter
type Cafe24Config struct {
	MallID                string        `mapstructure:"mall_id" validate:"required"`
	ClientID              string        `mapstructure:"client_id"`
	ClientSecret          string        `mapstructure:"client_secret"`
	RedirectURI           string        `mapstructure:"redirect_uri" validate:"omitempty,url"`
	APIVersion            string        `mapstructure:"api_version" validate:"required"`
	ShopNo                int           `mapstructure:"shop_no" validate:"gte=1"`
	Timeout               time.Duration `mapstructure:"timeout" validate:"gt=0"`
	BaseURL               string        `mapstructure:"base_url" validate:"omitempty,url"`
	DefaultCarrierCode    string        `mapstructure:"default_carrier_code" validate:"required"`
	DefaultShippingStatus string        `mapstructure:"default_shipping_status" validate:"oneof=standby shipping shipped"`
}

type OrderConfig struct {
	// StatusFilter is the comma separated list of order status codes
	// considered for matching.
	StatusFilter []string `mapstructure:"status_filter" validate:"min=1,dive,required"`
}

type PriceQueueConfig struct {
	OpsPerSecond float64       `mapstructure:"ops_per_second" validate:"gt=0"`
	MaxRetries   int           `mapstructure:"max_retries" validate:"gte=0,lte=10"`
	BackoffUnit  time.Duration `mapstructure:"backoff_unit" validate:"gt=0"`
}

type MongoDBConfig struct {
	URI      string `mapstructure:"uri" validate:"required"`
	Database string `mapstructure:"database" validate:"required"`
}

type RedisConfig struct {
	Addr            string `mapstructure:"addr"`
	Password        string `mapstructure:"password"`
	DB              int    `mapstructure:"db" validate:"gte=0"`
	ProgressChannel string `mapstructure:"progress_channel" validate:"required"`
}

type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers" validate:"required_if=Enabled true"`
}

type TracingConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

var defaults = map[string]any{
	"environment":                    "development",
	"server.addr":                    ":8080",
	"log.level":                      "info",
	"cafe24.mall_id":                 "",
	"cafe24.client_id":               "",
	"cafe24.client_secret":           "",
	"cafe24.redirect_uri":            "",
	"cafe24.api_version":             "2024-06-01",
	"cafe24.shop_no":                 1,
	"cafe24.timeout":                 "30s",
	"cafe24.base_url":                "",
	"cafe24.default_carrier_code":    "0006",
	"cafe24.default_shipping_status": "shipping",
	"order.status_filter":            "N10,N20,N21",
	"price_queue.ops_per_second":     2,
	"price_queue.max_retries":        3,
	"price_queue.backoff_unit":       "1s",
	"mongodb.uri":                    "mongodb://localhost:27017",
	"mongodb.database":               "backoffice",
	"redis.addr":                     "",
	"redis.password":                 "",
	"redis.db":                       0,
	"redis.progress_channel":         "backoffice:price-queue:progress",
	"kafka.enabled":                  false,
	"kafka.brokers":                  "localhost:9092",
	"tracing.enabled":                false,
	"tracing.endpoint":               "localhost:4317",
}

// Load reads the configuration from the environment and, when CONFIG_FILE is
// set, from that yaml file. Environment variables win over the file.
func Load() (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("tracing.endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT"); err != nil {
		return nil, fmt.Errorf("failed to bind tracing endpoint: %w", err)
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the struct tags of the whole tree
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func (c *Config) LoggerSettings() *logging.Config {
	cfg := logging.DefaultConfig(serviceName)
	cfg.Level = logging.LogLevel(c.Log.Level)
	cfg.Environment = c.Environment
	return cfg
}

func (c *Config) TracingSettings() *tracing.Config {
	cfg := tracing.DefaultConfig(serviceName)
	cfg.Enabled = c.Tracing.Enabled
	cfg.OTLPEndpoint = c.Tracing.Endpoint
	cfg.Environment = c.Environment
	return cfg
}

func (c *Config) MongoSettings() *mongodb.Config {
	cfg := mongodb.DefaultConfig()
	cfg.URI = c.MongoDB.URI
	cfg.Database = c.MongoDB.Database
	return cfg
}

func (c *Config) KafkaSettings() *kafka.Config {
	cfg := kafka.DefaultConfig()
	cfg.Brokers = c.Kafka.Brokers
	return cfg
}

func (c *Config) Cafe24Settings() cafe24.Config {
	return cafe24.Config{
		MallID:       c.Cafe24.MallID,
		APIVersion:   c.Cafe24.APIVersion,
		ShopNo:       c.Cafe24.ShopNo,
		ClientID:     c.Cafe24.ClientID,
		ClientSecret: c.Cafe24.ClientSecret,
		RedirectURI:  c.Cafe24.RedirectURI,
		Timeout:      c.Cafe24.Timeout,
		BaseURL:      c.Cafe24.BaseURL,
	}
}

func (c *Config) DispatchSettings() dispatch.Config {
	return dispatch.Config{
		ShopNo:             c.Cafe24.ShopNo,
		DefaultCarrierCode: c.Cafe24.DefaultCarrierCode,
		DefaultStatus:      c.Cafe24.DefaultShippingStatus,
	}
}

func (c *Config) PriceQueueSettings() pricequeue.Config {
	return pricequeue.Config{
		OpsPerSecond: c.PriceQueue.OpsPerSecond,
		MaxRetries:   c.PriceQueue.MaxRetries,
		BackoffUnit:  c.PriceQueue.BackoffUnit,
	}
}

// OrderStatuses returns the configured status filter as typed codes
func (c *Config) OrderStatuses() []domain.OrderStatus {
	statuses := make([]domain.OrderStatus, 0, len(c.Order.StatusFilter))
	for _, s := range c.Order.StatusFilter {
		if s = strings.TrimSpace(s); s != "" {
			statuses = append(statuses, domain.OrderStatus(s))
		}
	}
	return statuses
}
