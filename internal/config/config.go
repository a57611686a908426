package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Server struct {
		Addr string
	}
	Log struct {
		Level  string
		Format string
	}
	Database struct {
		Driver string
		Path   string
		URL    string
	}
	Redis struct {
		Addr     string
		Password string
		DB       int
		TTL      time.Duration
	}
	Storage struct {
		Bucket    string
		KeyPrefix string
		Region    string
		Endpoint  string
	}
	AWS struct {
		Profile string
	}
	Snapshot struct {
		Interval time.Duration
	}
}

// Load reads configuration from environment variables and optional config files.
// Variables use the ACCOUNT_ prefix, e.g. ACCOUNT_SERVER_ADDR.
func Load() (Config, error) {
	// .env is optional and never overrides the real environment
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("ACCOUNT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", "0.0.0.0:8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "data/accounts.db")
	v.SetDefault("database.url", "")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 5*time.Minute)
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.keyprefix", "account-snapshots")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("aws.profile", "")
	v.SetDefault("snapshot.interval", time.Duration(0))

	v.SetConfigName("config")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Database.Driver {
	case "sqlite":
		if strings.TrimSpace(c.Database.Path) == "" {
			return fmt.Errorf("database path is required for sqlite")
		}
	case "postgres":
		if strings.TrimSpace(c.Database.URL) == "" {
			return fmt.Errorf("database url is required for postgres")
		}
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Snapshot.Interval < 0 {
		return fmt.Errorf("snapshot interval must not be negative")
	}
	return nil
}
