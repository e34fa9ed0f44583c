// Package config loads settings from an optional .env file, an optional
// config.yaml and FLEET_ prefixed environment variables, in rising order
// of precedence. Command line flags bound by the caller win over all of
// them.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/ukydev/fleet-live/internal/models"
)

// Backing modes.
const (
	ModeDemo   = "demo"
	ModeRemote = "remote"
)

// Realtime transports for remote mode.
const (
	TransportWebSocket = "websocket"
	TransportMQTT      = "mqtt"
	TransportNATS      = "nats"
)

// Persistence drivers for UI preferences.
const (
	PersistFile  = "file"
	PersistMongo = "mongo"
)

// EnvPrefix prefixes every environment override, e.g. FLEET_API_BASE_URL.
const EnvPrefix = "FLEET"

// Config holds all settings.
type Config struct {
	Mode     string         `mapstructure:"mode"`
	API      APIConfig      `mapstructure:"api"`
	Realtime RealtimeConfig `mapstructure:"realtime"`
	MQTT     MQTTConfig     `mapstructure:"mqtt"`
	NATS     NATSConfig     `mapstructure:"nats"`
	Access   AccessConfig   `mapstructure:"access"`
	Persist  PersistConfig  `mapstructure:"persist"`
	Mongo    MongoConfig    `mapstructure:"mongo"`
	Server   ServerConfig   `mapstructure:"server"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Demo     DemoConfig     `mapstructure:"demo"`
	Log      LogConfig      `mapstructure:"log"`
}

type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	WSURL   string        `mapstructure:"ws_url"`
	Timeout time.Duration `mapstructure:"timeout"`
	Token   string        `mapstructure:"token"`
}

type RealtimeConfig struct {
	Transport string        `mapstructure:"transport"`
	Interval  time.Duration `mapstructure:"interval"`
}

type MQTTConfig struct {
	Broker   string `mapstructure:"broker"`
	Topic    string `mapstructure:"topic"`
	ClientID string `mapstructure:"client_id"`
}

type NATSConfig struct {
	URL     string `mapstructure:"url"`
	Subject string `mapstructure:"subject"`
}

type AccessConfig struct {
	AllowAnonymous          bool `mapstructure:"allow_anonymous"`
	UngroupedManagerSeesAll bool `mapstructure:"ungrouped_manager_sees_all"`
}

type PersistConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
}

type MongoConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Expiry time.Duration `mapstructure:"expiry"`
}

type DemoConfig struct {
	Role  models.Role   `mapstructure:"role"`
	Delay time.Duration `mapstructure:"delay"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// New returns a viper instance with defaults and environment binding in
// place. Callers may bind flags to it before Load.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", ModeDemo)

	v.SetDefault("api.base_url", "http://localhost:8080")
	v.SetDefault("api.ws_url", "ws://localhost:8080")
	v.SetDefault("api.timeout", "30s")
	v.SetDefault("api.token", "")

	v.SetDefault("realtime.transport", TransportWebSocket)
	v.SetDefault("realtime.interval", "5s")

	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.topic", "fleet/positions")
	v.SetDefault("mqtt.client_id", "fleetlive")

	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.subject", "fleet.positions")

	v.SetDefault("access.allow_anonymous", true)
	v.SetDefault("access.ungrouped_manager_sees_all", true)

	v.SetDefault("persist.driver", PersistFile)
	v.SetDefault("persist.path", "fleetlive-ui.yaml")

	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "fleet")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiry", "24h")

	v.SetDefault("demo.role", string(models.RoleAdmin))
	v.SetDefault("demo.delay", "300ms")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads .env (when present), then configFile or ./config.yaml (when
// present), and decodes the result. An explicitly named configFile must
// exist.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env: %w", err)
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation error: %w", err)
	}
	return &cfg, nil
}

// Validate rejects unknown enumerations.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeDemo, ModeRemote:
	default:
		return fmt.Errorf("unknown mode %q", c.Mode)
	}
	switch c.Realtime.Transport {
	case TransportWebSocket, TransportMQTT, TransportNATS:
	default:
		return fmt.Errorf("unknown realtime transport %q", c.Realtime.Transport)
	}
	switch c.Persist.Driver {
	case PersistFile, PersistMongo:
	default:
		return fmt.Errorf("unknown persist driver %q", c.Persist.Driver)
	}
	if !models.IsValidRole(c.Demo.Role) {
		return fmt.Errorf("unknown demo role %q", c.Demo.Role)
	}
	if c.Mode == ModeRemote && c.API.BaseURL == "" {
		return errors.New("api.base_url is required in remote mode")
	}
	return nil
}

// ConfigureLogging applies log.level and log.format to the standard logger.
func (c *Config) ConfigureLogging() error {
	level, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	log.SetLevel(level)
	switch c.Log.Format {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	default:
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return nil
}
