package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func Test_Load_Defaults(t *testing.T) {
	req := require.New(t)

	// When
	cfg, err := Load()

	// Then
	req.NoError(err)
	req.Equal("8080", cfg.ServerPort)
	req.Equal(DriverPostgres, cfg.StoreDriver)
	req.Equal(360*time.Hour, cfg.TokenTTL)
	req.Equal(32, cfg.PresenceShards)
	req.Equal([]string{"http://localhost:5173", "http://localhost:4173"}, cfg.CORSOrigins)
}

func Test_Load_Overrides(t *testing.T) {
	req := require.New(t)
	// Given
	t.Setenv("STORE_DRIVER", "badger")
	t.Setenv("BADGER_IN_MEMORY", "true")
	t.Setenv("PRESENCE_SHARDS", "8")
	t.Setenv("TOKEN_TTL", "1h")

	// When
	cfg, err := Load()

	// Then
	req.NoError(err)
	req.Equal(DriverBadger, cfg.StoreDriver)
	req.True(cfg.BadgerInMemory)
	req.Equal(8, cfg.PresenceShards)
	req.Equal(time.Hour, cfg.TokenTTL)
}

func Test_Validate_Rejects_Bad_Values(t *testing.T) {
	valid := func() Config {
		return Config{
			ServerPort:     "8080",
			StoreDriver:    DriverPostgres,
			JWTSecret:      "secret",
			TokenTTL:       time.Hour,
			PresenceShards: 4,
			WSSendBuffer:   16,
		}
	}

	cases := map[string]func(c *Config){
		"unknown driver":   func(c *Config) { c.StoreDriver = "mongo" },
		"empty secret":     func(c *Config) { c.JWTSecret = "" },
		"zero shards":      func(c *Config) { c.PresenceShards = 0 },
		"zero send buffer": func(c *Config) { c.WSSendBuffer = 0 },
		"redis no addr":    func(c *Config) { c.RedisEnabled = true; c.RedisAddr = "" },
		"badger no path":   func(c *Config) { c.StoreDriver = DriverBadger; c.BadgerPath = "" },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := valid()
			mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}

	cfg := valid()
	require.NoError(t, cfg.Validate())
}

func Test_DSN(t *testing.T) {
	cfg := Config{
		DBUser: "ourchat", DBPassword: "p@ss", DBHost: "db", DBPort: "5432",
		DBName: "ourchat", DBSSLMode: "disable",
	}
	require.Equal(t, "postgres://ourchat:p%40ss@db:5432/ourchat?sslmode=disable", cfg.DSN())
}
