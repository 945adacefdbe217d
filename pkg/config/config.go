package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string            `yaml:"environment" default:"development" validate:"required"`
	Server      ServerConfig      `yaml:"server"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Logging     LoggingConfig     `yaml:"logging"`
	Feed        FeedConfig        `yaml:"feed"`
	Source      SourceConfig      `yaml:"source"`
	ClickHouse  ClickHouseConfig  `yaml:"clickhouse"`
	Kafka       KafkaConfig       `yaml:"kafka"`
	Redis       RedisConfig       `yaml:"redis"`
	WindowCache WindowCacheConfig `yaml:"window_cache"`
}

type ServerConfig struct {
	Port            int           `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"15s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path" default:"/metrics"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error fatal panic"`
	Format string `yaml:"format" default:"json" validate:"oneof=json console"`
	Output string `yaml:"output" default:"stdout" validate:"required"`
	Digest struct {
		Enabled   bool          `yaml:"enabled"`
		Topic     string        `yaml:"topic" default:"synthfeed.logs"`
		Interval  time.Duration `yaml:"interval" default:"30s"`
		Threshold int           `yaml:"threshold" default:"100" validate:"gte=1"`
	} `yaml:"digest"`
}

// FeedConfig controls how the runner steps the source.
type FeedConfig struct {
	Name string `yaml:"name" default:"synthfeed" validate:"required"`
	// Rate is ticks per second; 0 steps as fast as publishing allows.
	Rate     float64 `yaml:"rate" default:"10" validate:"gte=0"`
	Burst    int     `yaml:"burst" default:"1" validate:"gte=1"`
	MaxSteps int64   `yaml:"max_steps" validate:"gte=0"`
	Loop     bool    `yaml:"loop"`
	History  int     `yaml:"history" default:"1000" validate:"gte=1"`
	Publish  struct {
		Kafka      bool          `yaml:"kafka"`
		WebSocket  bool          `yaml:"websocket"`
		BufferSize int           `yaml:"buffer_size" default:"1000" validate:"gte=1"`
		Timeout    time.Duration `yaml:"timeout" default:"5s"`
	} `yaml:"publish"`
}

type ClickHouseConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port" default:"9000"`
	Database         string        `yaml:"database" default:"synthfeed"`
	User             string        `yaml:"user" default:"default"`
	Password         string        `yaml:"password"`
	UseHTTP          bool          `yaml:"use_http"`
	Compress         bool          `yaml:"compress"`
	MaxOpenConns     int           `yaml:"max_open_conns" default:"10" validate:"gte=1"`
	AsyncInsert      bool          `yaml:"async_insert"`
	WaitForAsync     bool          `yaml:"wait_for_async_insert"`
	DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
	ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
	WriteTimeout     time.Duration `yaml:"write_timeout" default:"10s"`
	MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	Table            string        `yaml:"table" default:"synthfeed.rows"`
	GroupColumn      string        `yaml:"group_column" default:"instrument"`
	QueryTimeout     time.Duration `yaml:"query_timeout" default:"30s"`
}

type KafkaConfig struct {
	Brokers          []string `yaml:"brokers"`
	Topic            string   `yaml:"topic" default:"synthfeed.ticks"`
	RequiredAcks     int      `yaml:"required_acks" default:"-1" validate:"oneof=-1 0 1"`
	Compression      string   `yaml:"compression" default:"gzip" validate:"oneof=none gzip snappy lz4 zstd"`
	AutoCreateTopics bool     `yaml:"auto_create_topics"`
	Producer         struct {
		MaxAttempts  int           `yaml:"max_attempts" default:"3"`
		Linger       time.Duration `yaml:"linger" default:"50ms"`
		BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
		BatchSize    int           `yaml:"batch_size" default:"100"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
		Async        bool          `yaml:"async"`
	} `yaml:"producer"`
}

type RedisConfig struct {
	Host        string        `yaml:"host" default:"localhost"`
	Port        int           `yaml:"port" default:"6379"`
	Password    string        `yaml:"password"`
	DB          int           `yaml:"db"`
	PoolSize    int           `yaml:"pool_size" default:"10"`
	DialTimeout time.Duration `yaml:"dial_timeout" default:"5s"`
	Prefix      string        `yaml:"prefix" default:"synthfeed"`
}

// WindowCacheConfig selects the shared cache consulted by file readers.
// MemoryMaxBytes of 0 bounds the in-process copy by entry count only;
// MemoryTTL caps L1 lifetime for the layered backend.
type WindowCacheConfig struct {
	Backend        string        `yaml:"backend" default:"none" validate:"oneof=none memory redis layered"`
	TTL            time.Duration `yaml:"ttl" default:"1h"`
	MemoryMaxSize  int           `yaml:"memory_max_size" default:"64" validate:"gte=1"`
	MemoryMaxBytes int64         `yaml:"memory_max_bytes" default:"268435456" validate:"gte=0"`
	MemoryTTL      time.Duration `yaml:"memory_ttl" default:"5m"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	c, err := load(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML and applies defaults without validating.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := load(path)
	if err != nil {
		return nil, err
	}
	if err := c.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("FEED_SEED"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("FEED_SEED: %w", err)
		}
		c.Source.Seed = &seed
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := getenv("SOURCE_FILEPATH"); v != "" {
		c.Source.SetParam("filepath", v)
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	return nil
}

var validate = NewValidator()

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Feed.Publish.Kafka && len(c.Kafka.Brokers) == 0 {
		return errors.New("kafka.brokers is required when feed.publish.kafka is set")
	}
	if c.Logging.Digest.Enabled && len(c.Kafka.Brokers) == 0 {
		return errors.New("kafka.brokers is required when logging.digest is enabled")
	}
	if err := c.Source.Validate(); err != nil {
		return fmt.Errorf("source: %w", err)
	}
	if c.Source.Seed == nil {
		return errors.New("source.seed is required")
	}
	if c.Source.UsesClickHouse() && c.ClickHouse.Host == "" {
		return errors.New("clickhouse.host is required for a clickhouse store")
	}
	return nil
}
