// Package config loads canvasboard settings from a TOML file and the
// environment. Environment variables win over the file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// DefaultFile is read when no --config flag is given, if it exists.
const DefaultFile = "canvasboard.toml"

type Config struct {
	Server    Server    `toml:"server"`
	Store     Store     `toml:"store"`
	Sync      Sync      `toml:"sync"`
	Canvas    Canvas    `toml:"canvas"`
	Discovery Discovery `toml:"discovery"`
	Log       Log       `toml:"log"`
}

type Server struct {
	Addr string `toml:"addr"`
	// PublicHost is the host put into share links; empty means the
	// machine's outgoing LAN address.
	PublicHost string `toml:"public_host"`
}

type Store struct {
	Backend       string `toml:"backend"`
	SQLitePath    string `toml:"sqlite_path"`
	RedisAddr     string `toml:"redis_addr"`
	MongoURI      string `toml:"mongo_uri"`
	MongoDatabase string `toml:"mongo_database"`
	RemoteURL     string `toml:"remote_url"`
}

type Sync struct {
	Debounce   time.Duration `toml:"debounce"`
	StaleGuard bool          `toml:"stale_guard"`
}

type Canvas struct {
	Width      float64 `toml:"width"`
	Height     float64 `toml:"height"`
	Background string  `toml:"background"`
}

type Discovery struct {
	Enabled bool          `toml:"enabled"`
	Timeout time.Duration `toml:"timeout"`
}

type Log struct {
	Level string `toml:"level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: Server{Addr: ":8080"},
		Store: Store{
			Backend:       "sqlite",
			SQLitePath:    defaultSQLitePath(),
			RedisAddr:     "localhost:6379",
			MongoURI:      "mongodb://localhost:27017",
			MongoDatabase: "canvasboard",
		},
		Sync:      Sync{Debounce: time.Second},
		Canvas:    Canvas{Width: 800, Height: 600, Background: "#ffffff"},
		Discovery: Discovery{Enabled: true, Timeout: 3 * time.Second},
		Log:       Log{Level: "info"},
	}
}

func defaultSQLitePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "canvases.db"
	}
	return filepath.Join(dir, "canvasboard", "canvases.db")
}

// Load reads path over the defaults and applies environment overrides.
// An empty path tries DefaultFile and ignores it if missing.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Server.Addr = getEnv("CANVAS_ADDR", c.Server.Addr)
	c.Store.Backend = getEnv("CANVAS_STORE", c.Store.Backend)
	c.Store.SQLitePath = getEnv("CANVAS_SQLITE_PATH", c.Store.SQLitePath)
	c.Store.RedisAddr = getEnv("CANVAS_REDIS_ADDR", c.Store.RedisAddr)
	c.Store.MongoURI = getEnv("CANVAS_MONGO_URI", c.Store.MongoURI)
	c.Store.RemoteURL = getEnv("CANVAS_REMOTE_URL", c.Store.RemoteURL)
	c.Log.Level = getEnv("CANVAS_LOG_LEVEL", c.Log.Level)

	if v := os.Getenv("CANVAS_DEBOUNCE"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("CANVAS_DEBOUNCE: %w", err)
		}
		c.Sync.Debounce = d
	}
	if v := os.Getenv("CANVAS_STALE_GUARD"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("CANVAS_STALE_GUARD: %w", err)
		}
		c.Sync.StaleGuard = b
	}
	return nil
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "memory", "sqlite", "redis", "mongo", "remote":
	default:
		return fmt.Errorf("store.backend: unknown backend %q", c.Store.Backend)
	}
	if c.Store.Backend == "remote" && c.Store.RemoteURL == "" {
		return errors.New("store.remote_url: required for the remote backend")
	}
	if c.Sync.Debounce < 0 {
		return errors.New("sync.debounce: must not be negative")
	}
	if c.Canvas.Width <= 0 || c.Canvas.Height <= 0 {
		return errors.New("canvas: width and height must be positive")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}
