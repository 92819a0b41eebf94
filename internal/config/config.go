package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

const (
	DriverPostgres = "postgres"
	DriverBadger   = "badger"
)

type Config struct {
	ServerPort string `envconfig:"SERVER_PORT" default:"8080"`

	// STORE_DRIVER selects the backing store: postgres or badger.
	StoreDriver string `envconfig:"STORE_DRIVER" default:"postgres"`

	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     string `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"ourchat"`
	DBPassword string `envconfig:"DB_PASSWORD" default:"ourchat_dev_password"`
	DBName     string `envconfig:"DB_NAME" default:"ourchat"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`

	BadgerPath     string `envconfig:"BADGER_PATH" default:"data/badger"`
	BadgerInMemory bool   `envconfig:"BADGER_IN_MEMORY" default:"false"`

	// Redis carries events between server instances. Disabled for a single node.
	RedisEnabled  bool   `envconfig:"REDIS_ENABLED" default:"false"`
	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
	RelayChannel  string `envconfig:"RELAY_CHANNEL" default:"ourchat:events"`

	JWTSecret string        `envconfig:"JWT_SECRET" default:"dev-secret-change-me"`
	TokenTTL  time.Duration `envconfig:"TOKEN_TTL" default:"360h"`

	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"http://localhost:5173,http://localhost:4173"`

	WSSendBuffer   int `envconfig:"WS_SEND_BUFFER" default:"256"`
	PresenceShards int `envconfig:"PRESENCE_SHARDS" default:"32"`

	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat   string `envconfig:"LOG_FORMAT" default:"text"`
	LogPath     string `envconfig:"LOG_PATH"`
	LogRotation string `envconfig:"LOG_ROTATION" default:"24h"`
	LogMaxAge   string `envconfig:"LOG_MAX_AGE" default:"168h"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "process env")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverPostgres, DriverBadger:
	default:
		return errors.New("invalid STORE_DRIVER: " + c.StoreDriver)
	}
	if c.ServerPort == "" {
		return errors.New("SERVER_PORT is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.TokenTTL <= 0 {
		return errors.New("TOKEN_TTL must be positive")
	}
	if c.PresenceShards <= 0 {
		return errors.New("PRESENCE_SHARDS must be positive")
	}
	if c.WSSendBuffer <= 0 {
		return errors.New("WS_SEND_BUFFER must be positive")
	}
	if c.RedisEnabled && c.RedisAddr == "" {
		return errors.New("REDIS_ADDR is required when redis is enabled")
	}
	if c.StoreDriver == DriverBadger && !c.BadgerInMemory && c.BadgerPath == "" {
		return errors.New("BADGER_PATH is required for the badger driver")
	}
	return nil
}

func (c *Config) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     fmt.Sprintf("%s:%s", c.DBHost, c.DBPort),
		Path:     c.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(c.DBSSLMode),
	}
	return u.String()
}
