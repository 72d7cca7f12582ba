package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"gridfeed/internal/shared/credentials"
)

// Cache backends the server can boot with. Memory pairs with the in-process
// stream consumer; redis pairs with the operator-triggered sync job.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

type Config struct {
	Port string `env:"PORT" envDefault:"8080"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
	LogDir    string `env:"LOG_DIR" envDefault:"logs"`

	KafkaBrokers        []string      `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaGroupID        string        `env:"KAFKA_GROUP_ID" envDefault:"gridfeed"`
	KafkaTopicCables    string        `env:"KAFKA_TOPIC_CABLES" envDefault:"cables"`
	KafkaTopicExchanges string        `env:"KAFKA_TOPIC_EXCHANGES" envDefault:"exchanges"`
	KafkaDialTimeout    time.Duration `env:"KAFKA_DIAL_TIMEOUT" envDefault:"10s"`
	KafkaReadMaxWait    time.Duration `env:"KAFKA_READ_MAX_WAIT" envDefault:"500ms"`

	KafkaCABase64   string `env:"KAFKA_CA_B64"`
	KafkaCertBase64 string `env:"KAFKA_CERT_B64"`
	KafkaKeyBase64  string `env:"KAFKA_KEY_B64"`
	KafkaCAFile     string `env:"KAFKA_CA_FILE"`
	KafkaCertFile   string `env:"KAFKA_CERT_FILE"`
	KafkaKeyFile    string `env:"KAFKA_KEY_FILE"`

	CacheBackend string `env:"CACHE_BACKEND" envDefault:"memory"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	SyncSecret string        `env:"SYNC_SECRET"`
	SyncBudget time.Duration `env:"SYNC_BUDGET" envDefault:"25s"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	cfg.CacheBackend = strings.ToLower(strings.TrimSpace(cfg.CacheBackend))
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.CacheBackend {
	case BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("CACHE_BACKEND must be %q or %q, got %q", BackendMemory, BackendRedis, c.CacheBackend)
	}
	if c.CacheBackend == BackendRedis && strings.TrimSpace(c.SyncSecret) == "" {
		return fmt.Errorf("SYNC_SECRET is required when CACHE_BACKEND=%s", BackendRedis)
	}
	return nil
}

// CredentialSource maps the environment surface onto the credential
// resolver's input.
func (c *Config) CredentialSource() credentials.Source {
	return credentials.Source{
		CABase64:   c.KafkaCABase64,
		CertBase64: c.KafkaCertBase64,
		KeyBase64:  c.KafkaKeyBase64,
		CAFile:     c.KafkaCAFile,
		CertFile:   c.KafkaCertFile,
		KeyFile:    c.KafkaKeyFile,
	}
}
