package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/trogers1052/stock-sniper-dashboard/internal/models"
)

// Config holds all application configuration
type Config struct {
	Server  ServerConfig    `toml:"server"`
	Service ServiceConfig   `toml:"service"`
	Poll    PollConfig      `toml:"poll"`
	Kafka   KafkaConfig     `toml:"kafka"`
	Logging LoggingConfig   `toml:"logging"`
	Sectors []models.Sector `toml:"sectors"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port        string   `toml:"port"`
	Host        string   `toml:"host"`
	CORSOrigins []string `toml:"cors_origins"`
}

// Addr returns host:port for net/http
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// ServiceConfig locates the data service. Sector quotes may be served from
// a different host than picks and positions.
type ServiceConfig struct {
	BaseURL        string   `toml:"base_url"`
	SectorsURL     string   `toml:"sectors_url"`
	RequestTimeout Duration `toml:"request_timeout"`
}

// PollConfig holds the refresh schedule
type PollConfig struct {
	Interval Duration `toml:"interval"`
}

// KafkaConfig holds Kafka configuration. No brokers disables Kafka.
type KafkaConfig struct {
	Brokers []string `toml:"brokers"`
	Topic   string   `toml:"topic"`
	GroupID string   `toml:"group_id"`
}

// Enabled reports whether any broker is configured
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

// LoggingConfig selects the slog handler
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Duration decodes TOML strings such as "30s" or "5m"
type Duration struct {
	time.Duration
}

// UnmarshalText parses a Go duration string
func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config usable against a local data service
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: "8080",
			Host: "0.0.0.0",
		},
		Service: ServiceConfig{
			BaseURL:        "http://localhost:8000",
			RequestTimeout: Duration{10 * time.Second},
		},
		Poll: PollConfig{
			Interval: Duration{30 * time.Second},
		},
		Kafka: KafkaConfig{
			Topic:   "dashboard-events",
			GroupID: "stock-sniper-dashboard",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// SectorsBaseURL returns the sector quote host, defaulting to the main
// service
func (c *Config) SectorsBaseURL() string {
	if c.Service.SectorsURL != "" {
		return c.Service.SectorsURL
	}
	return c.Service.BaseURL
}

// SectorList returns the configured sectors or the SPDR defaults
func (c *Config) SectorList() []models.Sector {
	if len(c.Sectors) > 0 {
		return c.Sectors
	}
	return models.DefaultSectors
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks for values the dashboard cannot run with and returns one
// error listing every problem found
func (c *Config) Validate() error {
	var errs []string

	if c.Service.BaseURL == "" {
		errs = append(errs, "service: base_url must not be empty")
	}
	if c.Service.RequestTimeout.Duration <= 0 {
		errs = append(errs, "service: request_timeout must be positive")
	}
	if c.Poll.Interval.Duration <= 0 {
		errs = append(errs, "poll: interval must be positive")
	}

	if port, err := strconv.Atoi(c.Server.Port); err != nil || port <= 0 || port > 65535 {
		errs = append(errs, fmt.Sprintf("server: invalid port %q", c.Server.Port))
	}

	if c.Kafka.Enabled() && c.Kafka.Topic == "" {
		errs = append(errs, "kafka: topic must be set when brokers are configured")
	}

	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("logging: unknown level %q (valid: debug, info, warn, error)", c.Logging.Level))
	}
	if f := strings.ToLower(c.Logging.Format); f != "text" && f != "json" {
		errs = append(errs, fmt.Sprintf("logging: unknown format %q (valid: text, json)", c.Logging.Format))
	}

	for i, s := range c.Sectors {
		if s.Ticker == "" {
			errs = append(errs, fmt.Sprintf("sectors[%d]: ticker must not be empty", i))
		}
	}

	if len(errs) > 0 {
		return errors.New("invalid config: " + strings.Join(errs, "; "))
	}
	return nil
}
