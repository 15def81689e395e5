package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load builds the configuration: defaults, then the TOML file at path (if
// any), then a .env file in the working directory (if any), then SNIPER_*
// environment variables. Missing files are skipped; malformed ones and
// unparsable durations are errors. The result is not validated.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	var errs []error

	setStr(&cfg.Server.Port, "SNIPER_SERVER_PORT")
	setStr(&cfg.Server.Host, "SNIPER_SERVER_HOST")
	setStringSlice(&cfg.Server.CORSOrigins, "SNIPER_SERVER_CORS_ORIGINS")

	setStr(&cfg.Service.BaseURL, "SNIPER_SERVICE_BASE_URL")
	setStr(&cfg.Service.SectorsURL, "SNIPER_SERVICE_SECTORS_URL")
	errs = append(errs, setDuration(&cfg.Service.RequestTimeout, "SNIPER_SERVICE_REQUEST_TIMEOUT"))

	errs = append(errs, setDuration(&cfg.Poll.Interval, "SNIPER_POLL_INTERVAL"))

	setStringSlice(&cfg.Kafka.Brokers, "SNIPER_KAFKA_BROKERS")
	setStr(&cfg.Kafka.Topic, "SNIPER_KAFKA_TOPIC")
	setStr(&cfg.Kafka.GroupID, "SNIPER_KAFKA_GROUP_ID")

	setStr(&cfg.Logging.Level, "SNIPER_LOG_LEVEL")
	setStr(&cfg.Logging.Format, "SNIPER_LOG_FORMAT")

	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func setStr(dst *string, key string) {
	*dst = getEnv(key, *dst)
}

func setDuration(dst *Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	dst.Duration = d
	return nil
}

func setStringSlice(dst *[]string, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	parts := strings.Split(v, ",")
	cleaned := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			cleaned = append(cleaned, p)
		}
	}
	if len(cleaned) > 0 {
		*dst = cleaned
	}
}
