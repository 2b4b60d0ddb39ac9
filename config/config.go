// Package config loads the ante service configuration.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/burugo/ante"
)

// Config aggregates configuration for the application.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
	// AutoMigrate applies pending migrations when the server starts.
	AutoMigrate bool `mapstructure:"auto_migrate"`
}

// CacheConfig selects the cache store and carries the TenantCache settings.
type CacheConfig struct {
	// Driver is "redis" or "memory".
	Driver string `mapstructure:"driver"`
	// Capacity bounds the memory driver; 0 means unbounded.
	Capacity    uint64 `mapstructure:"capacity"`
	ante.Config `mapstructure:",squash"`
}

type RedisConfig struct {
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	Namespace   string        `mapstructure:"namespace"`
	PoolSize    int           `mapstructure:"pool_size"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `mapstructure:"level"`
	// Format is text or json.
	Format string `mapstructure:"format"`
	// File, when set, also receives JSON logs.
	File string `mapstructure:"file"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:      "sqlite",
			DSN:         "ante.db",
			AutoMigrate: true,
		},
		Cache: CacheConfig{
			Driver: "redis",
			Config: ante.DefaultConfig(),
		},
		Redis: RedisConfig{
			Addr:        "localhost:6379",
			Namespace:   "ante:",
			DialTimeout: 5 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration from path (optional) and environment variables.
// Environment variables use the prefix "ANTE" and the dot character in keys
// is replaced by an underscore. For example, "redis.addr" becomes
// "ANTE_REDIS_ADDR". Without path, ./ante.yaml is read when present.
func Load(path string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("ante")
		v.AddConfigPath(".")
	}
	v.SetEnvPrefix("ANTE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvs(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects unknown drivers and formats.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "sqlite3", "postgres", "postgresql":
	default:
		return fmt.Errorf("database.driver: unsupported %q", c.Database.Driver)
	}
	switch c.Cache.Driver {
	case "redis", "memory":
	default:
		return fmt.Errorf("cache.driver: unsupported %q", c.Cache.Driver)
	}
	if _, err := ante.CodecByName(c.Cache.Codec); err != nil {
		return fmt.Errorf("cache.codec: %w", err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format: unsupported %q", c.Log.Format)
	}
	return nil
}

// bindEnvs registers all keys within cfg so that viper will look up
// corresponding environment variables when unmarshalling. Squashed structs
// share their parent's prefix; maps are only read from files.
func bindEnvs(v *viper.Viper, cfg any, parts ...string) {
	val := reflect.ValueOf(cfg)
	typ := reflect.TypeOf(cfg)
	if typ.Kind() == reflect.Ptr {
		val = val.Elem()
		typ = typ.Elem()
	}
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		tag := f.Tag.Get("mapstructure")
		if strings.HasSuffix(tag, ",squash") {
			bindEnvs(v, val.Field(i).Interface(), parts...)
			continue
		}
		if tag == "" {
			tag = strings.ToLower(f.Name)
		}
		key := append(append([]string{}, parts...), tag)
		switch f.Type.Kind() {
		case reflect.Struct:
			bindEnvs(v, val.Field(i).Interface(), key...)
		case reflect.Map:
		default:
			_ = v.BindEnv(strings.Join(key, "."))
		}
	}
}
