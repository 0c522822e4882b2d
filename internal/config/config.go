// Package config handles the YAML configuration of the phone book server and client, with environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config holds all phonebook configuration.
type Config struct {
	Server    Server    `yaml:"server"`
	Websocket Websocket `yaml:"websocket"`
	Log       Log       `yaml:"log"`
	Client    Client    `yaml:"client"`
}

// Server holds the HTTP server settings.
type Server struct {
	Address       string        `yaml:"address"`       // host:port to listen on
	Path          string        `yaml:"path"`          // URL path of the GraphQL endpoint
	Timeout       time.Duration `yaml:"timeout"`       // limit on handling one (non-websocket) request
	Introspection bool          `yaml:"introspection"` // allow __schema and __type queries
	Concurrency   bool          `yaml:"concurrency"`   // resolve query fields concurrently
}

// Websocket holds the keep-alive settings of websocket connections.
type Websocket struct {
	InitialTimeout time.Duration `yaml:"initial_timeout"`
	PingFrequency  time.Duration `yaml:"ping_frequency"` // negative turns pings off, zero is invalid
	PongTimeout    time.Duration `yaml:"pong_timeout"`
}

// Log holds logging settings.
type Log struct {
	Level       string `yaml:"level"` // debug, info, warn or error
	Development bool   `yaml:"development"`
}

// Client holds settings of the client application.
type Client struct {
	URL string `yaml:"url"`
}

// DefaultConfig returns a Config with the standard settings (port 4000).
func DefaultConfig() Config {
	return Config{
		Server: Server{
			Address:       ":4000",
			Path:          "/",
			Timeout:       10 * time.Second,
			Introspection: true,
			Concurrency:   true,
		},
		Websocket: Websocket{
			InitialTimeout: 10 * time.Second,
			PingFrequency:  20 * time.Second,
			PongTimeout:    5 * time.Second,
		},
		Log: Log{
			Level: "info",
		},
		Client: Client{
			URL: "http://localhost:4000/",
		},
	}
}

// Load reads a YAML config file at path and returns a Config.
// If path is empty or the file does not exist, defaults are returned without error.
// If the file contains invalid YAML or unknown fields, an error is returned.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return &cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		// Empty and comment-only YAML files produce EOF with no decoded content.
		if errors.Is(err, io.EOF) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return &cfg, nil
}

// ApplyEnv applies environment variable overrides to the config.
// Supported variables: PHONEBOOK_ADDRESS, PHONEBOOK_PATH, PHONEBOOK_LOG_LEVEL, PHONEBOOK_URL.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("PHONEBOOK_ADDRESS"); v != "" {
		c.Server.Address = v
	}
	if v := os.Getenv("PHONEBOOK_PATH"); v != "" {
		c.Server.Path = v
	}
	if v := os.Getenv("PHONEBOOK_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("PHONEBOOK_URL"); v != "" {
		c.Client.URL = v
	}
}

// Validate checks that config values are usable.
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return errors.New("config: server.address cannot be empty")
	}
	if !strings.HasPrefix(c.Server.Path, "/") {
		return fmt.Errorf("config: server.path must start with \"/\", got %q", c.Server.Path)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("config: server.timeout must be positive, got %v", c.Server.Timeout)
	}
	if c.Websocket.InitialTimeout <= 0 {
		return fmt.Errorf("config: websocket.initial_timeout must be positive, got %v", c.Websocket.InitialTimeout)
	}
	if c.Websocket.PingFrequency == 0 {
		return errors.New("config: websocket.ping_frequency cannot be zero (use a negative value to turn pings off)")
	}
	if c.Websocket.PongTimeout <= 0 {
		return fmt.Errorf("config: websocket.pong_timeout must be positive, got %v", c.Websocket.PongTimeout)
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config: log.level: %w", err)
	}
	u, err := url.Parse(c.Client.URL)
	if err != nil {
		return fmt.Errorf("config: client.url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("config: client.url must be an http or https URL, got %q", c.Client.URL)
	}
	return nil
}

// Logger builds the zap logger described by the log settings
func (l Log) Logger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(l.Level)
	if err != nil {
		return nil, fmt.Errorf("config: log.level: %w", err)
	}
	zc := zap.NewProductionConfig()
	if l.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
