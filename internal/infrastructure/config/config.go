package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Supported bus backends.
const (
	BackendNATS   = "nats"
	BackendMQTT   = "mqtt"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Supported payload encodings for the command line tool.
const (
	EncodingJSON  = "json"
	EncodingYAML  = "yaml"
	EncodingBytes = "bytes"

	// EncodingProtobuf carries binary protobuf payloads such as OpenFMB
	// profiles; graybus prints them as hex.
	EncodingProtobuf = "protobuf"
)

// Config is the root configuration structure for Gray Logic Bus.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Bus     BusConfig     `yaml:"bus"`
	NATS    NATSConfig    `yaml:"nats"`
	MQTT    MQTTConfig    `yaml:"mqtt"`
	Redis   RedisConfig   `yaml:"redis"`
	Metrics MetricsConfig `yaml:"metrics"`
	Logging LoggingConfig `yaml:"logging"`
}

// BusConfig selects the broker backend and the shared bus settings.
type BusConfig struct {
	// Backend is one of "nats", "mqtt", "redis" or "memory".
	Backend string `yaml:"backend"`

	// Encoding is the payload encoding used by the command line tool.
	Encoding string `yaml:"encoding"`

	// Buffer is the number of undelivered messages each subscription may
	// hold before the backend applies backpressure.
	Buffer int `yaml:"buffer"`

	// PublishTimeout bounds a publish whose context has no deadline (seconds).
	PublishTimeout int `yaml:"publish_timeout"`
}

// NATSConfig contains NATS server connection settings.
type NATSConfig struct {
	URL            string         `yaml:"url"`
	Name           string         `yaml:"name"`
	Auth           NATSAuthConfig `yaml:"auth"`
	TLS            bool           `yaml:"tls"`
	ConnectTimeout int            `yaml:"connect_timeout"`
	ReconnectWait  int            `yaml:"reconnect_wait"`
	MaxReconnects  int            `yaml:"max_reconnects"`
}

// NATSAuthConfig contains NATS credentials. Token takes precedence over
// username and password.
type NATSAuthConfig struct {
	Token    string `yaml:"token"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`

	// StatusTopic receives the retained online/offline status of the client.
	// Empty disables status publishing and the Last Will.
	StatusTopic string `yaml:"status_topic"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// RedisConfig contains Redis pub/sub connection settings.
type RedisConfig struct {
	Addr        string `yaml:"addr"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	DB          int    `yaml:"db"`
	TLS         bool   `yaml:"tls"`
	DialTimeout int    `yaml:"dial_timeout"`
}

// MetricsConfig contains the Prometheus endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	Path    string `yaml:"path"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: GRAYBUS_SECTION_KEY
// For example: GRAYBUS_BUS_BACKEND, GRAYBUS_NATS_URL
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the built-in configuration with environment overrides
// applied. Used when no configuration file is given.
func Default() (*Config, error) {
	cfg := defaultConfig()
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Bus: BusConfig{
			Backend:        BackendNATS,
			Encoding:       EncodingJSON,
			Buffer:         128,
			PublishTimeout: 5,
		},
		NATS: NATSConfig{
			URL:            "nats://localhost:4222",
			Name:           "graybus",
			ConnectTimeout: 10,
			ReconnectWait:  2,
			MaxReconnects:  60,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "graybus",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
			StatusTopic: "graybus/status",
		},
		Redis: RedisConfig{
			Addr:        "localhost:6379",
			DialTimeout: 5,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Host:    "127.0.0.1",
			Port:    9464,
			Path:    "/metrics",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stderr",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: GRAYBUS_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Bus
	if v := os.Getenv("GRAYBUS_BUS_BACKEND"); v != "" {
		cfg.Bus.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("GRAYBUS_BUS_ENCODING"); v != "" {
		cfg.Bus.Encoding = strings.ToLower(v)
	}
	if v, ok := envInt("GRAYBUS_BUS_BUFFER"); ok {
		cfg.Bus.Buffer = v
	}

	// NATS
	if v := os.Getenv("GRAYBUS_NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("GRAYBUS_NATS_TOKEN"); v != "" {
		cfg.NATS.Auth.Token = v
	}
	if v := os.Getenv("GRAYBUS_NATS_USERNAME"); v != "" {
		cfg.NATS.Auth.Username = v
	}
	if v := os.Getenv("GRAYBUS_NATS_PASSWORD"); v != "" {
		cfg.NATS.Auth.Password = v
	}

	// MQTT
	if v := os.Getenv("GRAYBUS_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v, ok := envInt("GRAYBUS_MQTT_PORT"); ok {
		cfg.MQTT.Broker.Port = v
	}
	if v := os.Getenv("GRAYBUS_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("GRAYBUS_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// Redis
	if v := os.Getenv("GRAYBUS_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("GRAYBUS_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}

	// Logging
	if v := os.Getenv("GRAYBUS_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// envInt reads an integer environment variable. Unparseable values are ignored.
func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Validate checks the configuration for errors.
//
// Only the section of the selected backend is validated in depth, so an
// unused backend may be left half-configured.
//
// Returns:
//   - error: Description of every validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Bus validation
	backends := []string{BackendNATS, BackendMQTT, BackendRedis, BackendMemory}
	if !slices.Contains(backends, c.Bus.Backend) {
		errs = append(errs, fmt.Sprintf("bus.backend must be one of %s", strings.Join(backends, ", ")))
	}
	encodings := []string{EncodingJSON, EncodingYAML, EncodingBytes, EncodingProtobuf}
	if !slices.Contains(encodings, c.Bus.Encoding) {
		errs = append(errs, fmt.Sprintf("bus.encoding must be one of %s", strings.Join(encodings, ", ")))
	}
	if c.Bus.Buffer < 1 {
		errs = append(errs, "bus.buffer must be at least 1")
	}
	if c.Bus.PublishTimeout < 1 {
		errs = append(errs, "bus.publish_timeout must be at least 1 second")
	}

	switch c.Bus.Backend {
	case BackendNATS:
		if c.NATS.URL == "" {
			errs = append(errs, "nats.url is required")
		}
		if c.NATS.ConnectTimeout < 1 {
			errs = append(errs, "nats.connect_timeout must be at least 1 second")
		}
	case BackendMQTT:
		if c.MQTT.Broker.Host == "" {
			errs = append(errs, "mqtt.broker.host is required")
		}
		if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
			errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
		}
		if c.MQTT.Broker.ClientID == "" {
			errs = append(errs, "mqtt.broker.client_id is required")
		}
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			errs = append(errs, "mqtt.qos must be 0, 1, or 2")
		}
	case BackendRedis:
		if c.Redis.Addr == "" {
			errs = append(errs, "redis.addr is required")
		}
		if c.Redis.DB < 0 {
			errs = append(errs, "redis.db must not be negative")
		}
	}

	// Metrics validation
	if c.Metrics.Enabled {
		if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
			errs = append(errs, "metrics.port must be between 1 and 65535")
		}
		if !strings.HasPrefix(c.Metrics.Path, "/") {
			errs = append(errs, "metrics.path must start with /")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetPublishTimeout returns the default publish timeout as a Duration.
func (c *Config) GetPublishTimeout() time.Duration {
	return time.Duration(c.Bus.PublishTimeout) * time.Second
}

// GetConnectTimeout returns the NATS connect timeout as a Duration.
func (c NATSConfig) GetConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeout) * time.Second
}

// GetReconnectWait returns the NATS reconnect wait as a Duration.
func (c NATSConfig) GetReconnectWait() time.Duration {
	return time.Duration(c.ReconnectWait) * time.Second
}

// GetDialTimeout returns the Redis dial timeout as a Duration.
func (c RedisConfig) GetDialTimeout() time.Duration {
	return time.Duration(c.DialTimeout) * time.Second
}

// MetricsAddr returns the listen address of the metrics endpoint.
func (c MetricsConfig) MetricsAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
