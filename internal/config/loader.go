package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/maxviazov/range-feed-service/internal/paging"
)

// Load reads YAML from path and applies APP_* environment overrides,
// e.g. APP_POSTGRES_PASSWORD or APP_PAGINATION_MAX_COUNT.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()
	setDefaults(v)

	var config Config
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config file not found: %w", err)
	}
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	d := paging.DefaultSettings()

	v.SetDefault("app.name", "range-feed-service")
	v.SetDefault("app.port", 8080)
	v.SetDefault("http.read_timeout", "10s")
	v.SetDefault("http.write_timeout", "2m")
	v.SetDefault("http.shutdown_timeout", "15s")
	v.SetDefault("storage.driver", StoragePostgres)
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.key_prefix", "feed")
	v.SetDefault("pagination.unit", d.Unit)
	v.SetDefault("pagination.max_count", d.MaxCount)
	v.SetDefault("pagination.long_polling", d.LongPolling)
	v.SetDefault("pagination.max_attempts", d.MaxAttempts)
	v.SetDefault("pagination.delay", d.Delay)

	// Secrets are env-only; binding makes AutomaticEnv see keys absent from the file.
	for _, key := range []string{"postgres.user", "postgres.password", "postgres.db", "redis.password"} {
		_ = v.BindEnv(key)
	}
}

// Validate checks struct tags plus the cross-field rules tags cannot express.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("config validation error: %w", err)
	}
	if c.Storage.Driver == StoragePostgres {
		var missing []string
		if c.Postgres.User == "" {
			missing = append(missing, "APP_POSTGRES_USER")
		}
		if c.Postgres.Password == "" {
			missing = append(missing, "APP_POSTGRES_PASSWORD")
		}
		if c.Postgres.DBName == "" {
			missing = append(missing, "APP_POSTGRES_DB")
		}
		if len(missing) > 0 {
			return errors.New("missing required postgres settings: " + strings.Join(missing, ", "))
		}
	}
	if c.Pagination.LongPolling {
		worst := c.Pagination.Delay * time.Duration(c.Pagination.MaxAttempts-1)
		if c.HTTP.WriteTimeout > 0 && worst >= c.HTTP.WriteTimeout {
			return fmt.Errorf("http.write_timeout %s is shorter than the worst-case long poll %s", c.HTTP.WriteTimeout, worst)
		}
		if c.HTTP.RequestTimeout > 0 && worst >= c.HTTP.RequestTimeout {
			return fmt.Errorf("http.request_timeout %s is shorter than the worst-case long poll %s", c.HTTP.RequestTimeout, worst)
		}
	}
	return nil
}
