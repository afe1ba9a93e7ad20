package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration.
// Config 保存应用配置。
type Config struct {
	Debug       bool   `mapstructure:"debug"`
	DisableAuth bool   `mapstructure:"disable_auth"`
	LogPath     string `mapstructure:"log-path"`
	DataPath    string `mapstructure:"data-path"`
	PID         string `mapstructure:"pid"`

	HTTP struct {
		Port uint16 `mapstructure:"port"`
	} `mapstructure:"http"`

	Database struct {
		URL  string `mapstructure:"url"`
		Echo bool   `mapstructure:"echo"`
	} `mapstructure:"database"`

	MQTT struct {
		BrokerHost   string `mapstructure:"broker_host"`
		BrokerPort   uint16 `mapstructure:"broker_port"`
		Username     string `mapstructure:"username"`
		Password     string `mapstructure:"password"`
		TopicPrefix  string `mapstructure:"topic_prefix"`
		EmbedBroker  bool   `mapstructure:"embed_broker"`
		EmbedAddress string `mapstructure:"embed_address"`
	} `mapstructure:"mqtt"`

	Poll struct {
		IntervalSeconds int `mapstructure:"interval_seconds"`
	} `mapstructure:"poll"`

	Cache struct {
		TTLSeconds int `mapstructure:"ttl_seconds"`
	} `mapstructure:"cache"`

	CircuitBreaker struct {
		FailureThreshold  int `mapstructure:"failure_threshold"`
		RecoveryTimeoutSec int `mapstructure:"recovery_timeout_seconds"`
	} `mapstructure:"circuit_breaker"`

	Auth struct {
		JWT struct {
			Secret string `mapstructure:"secret"`
			Issuer string `mapstructure:"issuer"`
		} `mapstructure:"jwt"`
		Web struct {
			IdleMinutes int `mapstructure:"idle_minutes"`
		} `mapstructure:"web"`
	} `mapstructure:"auth"`

	Audit struct {
		RetentionDays int `mapstructure:"retention_days"`
	} `mapstructure:"audit"`
}

// Load loads config from file and environment variables.
// Load 从配置文件与环境变量加载配置。
func Load(configFile string) (*Config, error) {
	v := viper.New()

	// Environment variables: MODBUSGW_POLL_INTERVAL_SECONDS, MODBUSGW_MQTT_BROKER_HOST, ...
	// 环境变量：MODBUSGW_POLL_INTERVAL_SECONDS, MODBUSGW_MQTT_BROKER_HOST ...
	v.SetEnvPrefix("MODBUSGW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults / 默认值
	v.SetDefault("log-path", "./data/log")
	v.SetDefault("data-path", "./data")
	v.SetDefault("http.port", 8080)
	v.SetDefault("database.url", "./data/app.db")
	v.SetDefault("database.echo", false)
	v.SetDefault("mqtt.topic_prefix", "modbus/data")
	v.SetDefault("mqtt.embed_broker", true)
	v.SetDefault("mqtt.embed_address", ":1883")
	v.SetDefault("poll.interval_seconds", 5)
	v.SetDefault("cache.ttl_seconds", 300)
	v.SetDefault("circuit_breaker.failure_threshold", 5)
	v.SetDefault("circuit_breaker.recovery_timeout_seconds", 30)
	v.SetDefault("auth.jwt.secret", "change-me")
	v.SetDefault("auth.jwt.issuer", "modbusgw")
	v.SetDefault("auth.web.idle_minutes", 30)
	v.SetDefault("audit.retention_days", 120)
	v.SetDefault("pid", "./data/modbusgw.pid")

	// Search config file in common locations if not specified.
	// 如果没有显式指定，则在常见路径中查找配置文件。
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/modbusgw")
	}

	if err := v.ReadInConfig(); err != nil {
		// It's ok if config file doesn't exist; env + defaults still work.
		// 配置文件不存在也没关系：环境变量与默认值仍然生效。
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config failed: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config failed: %w", err)
	}

	return &cfg, nil
}

// EnsureDataDir ensures the data directory exists.
// EnsureDataDir 确保数据目录存在。
func EnsureDataDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir failed: %w", err)
	}
	return nil
}

// WebIdleTimeout returns web idle timeout as duration.
// WebIdleTimeout 返回 Web 空闲超时的 duration。
func (c *Config) WebIdleTimeout() time.Duration {
	return time.Duration(c.Auth.Web.IdleMinutes) * time.Minute
}

// PollInterval returns the poll cycle interval as a duration.
func (c *Config) PollInterval() time.Duration {
	if c.Poll.IntervalSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.Poll.IntervalSeconds) * time.Second
}

// CacheTTL returns the cache entry lifetime as a duration.
func (c *Config) CacheTTL() time.Duration {
	if c.Cache.TTLSeconds <= 0 {
		return 300 * time.Second
	}
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

// MQTTEnabled reports whether an external broker has been configured.
func (c *Config) MQTTEnabled() bool {
	return c.MQTT.BrokerHost != ""
}

// RecoveryTimeout returns the circuit breaker's open-state recovery
// timeout as a duration.
func (c *Config) RecoveryTimeout() time.Duration {
	if c.CircuitBreaker.RecoveryTimeoutSec <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.CircuitBreaker.RecoveryTimeoutSec) * time.Second
}
