package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/jonwraymond/itemops/observe"
	"github.com/jonwraymond/itemops/persist"
)

// EnvPrefix prefixes every environment variable.
const EnvPrefix = "ITEMOPS"

// Sentinel errors for invalid configuration.
var (
	ErrInvalidWorkers       = errors.New("config: workers must not be negative")
	ErrInvalidFluidCapacity = errors.New("config: cache.fluid_capacity must be positive")
	ErrInvalidBackend       = errors.New("config: unknown state backend")
	ErrInvalidDebounce      = errors.New("config: watch.debounce must be positive")
)

// Config holds all settings of an engine.
type Config struct {
	// Workers bounds batch fan-out. Zero means GOMAXPROCS.
	Workers int `mapstructure:"workers" default:"0"`
	// Cache sizes the bounded caches.
	Cache CacheConfig `mapstructure:"cache"`
	// Files names the definition files read on load and reload.
	Files FilesConfig `mapstructure:"files"`
	// State selects where group expand state is kept.
	State persist.Config `mapstructure:"state"`
	// Watch reloads definitions when their files change.
	Watch WatchConfig `mapstructure:"watch"`
	// Query tunes handler lookups.
	Query QueryConfig `mapstructure:"query"`
	// Observe configures logging, tracing and metrics.
	Observe observe.Config `mapstructure:"observe"`
}

// CacheConfig sizes the bounded caches.
type CacheConfig struct {
	FluidCapacity int `mapstructure:"fluid_capacity" default:"20"`
}

// FilesConfig names the definition files. Empty names are skipped.
type FilesConfig struct {
	Groups          string `mapstructure:"groups"`
	GUIDFilters     string `mapstructure:"guid_filters"`
	HandlerOrdering string `mapstructure:"handler_ordering"`
	Catalog         string `mapstructure:"catalog"`
}

// Paths returns the non-empty definition file names.
func (f FilesConfig) Paths() []string {
	var out []string
	for _, p := range []string{f.Groups, f.GUIDFilters, f.HandlerOrdering, f.Catalog} {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// WatchConfig controls definition reloads.
type WatchConfig struct {
	Enabled  bool          `mapstructure:"enabled" default:"false"`
	Debounce time.Duration `mapstructure:"debounce" default:"500ms"`
}

// QueryConfig tunes handler lookups.
type QueryConfig struct {
	// Timeout bounds one probe call. Zero disables the limit.
	Timeout time.Duration `mapstructure:"timeout" default:"0s"`
}

// Load reads dir/.env and an optional itemops.{yaml,yml,json,toml} in dir,
// then applies environment overrides.
func Load(dir string) (*Config, error) {
	envPath := filepath.Join(dir, ".env")
	// Missing .env files are normal outside development.
	_ = godotenv.Overload(envPath)

	v := newViper()
	v.SetConfigName("itemops")
	v.AddConfigPath(dir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read %s: %w", dir, err)
		}
	}
	return decode(v)
}

// LoadFile reads the named config file, then applies environment overrides.
func LoadFile(path string) (*Config, error) {
	_ = godotenv.Overload(filepath.Join(filepath.Dir(path), ".env"))

	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return decode(v)
}

// Default returns the configuration built from struct tags alone.
func Default() *Config {
	cfg, err := decode(newViperNoEnv())
	if err != nil {
		// Struct tag defaults always decode.
		panic(err)
	}
	return cfg
}

func newViper() *viper.Viper {
	v := newViperNoEnv()
	v.SetEnvPrefix(EnvPrefix)
	// Map environment variables to nested keys (e.g. ITEMOPS_FILES_GROUPS -> files.groups)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func newViperNoEnv() *viper.Viper {
	v := viper.New()
	bindValues(v, Config{}, "")
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("%w, got %d", ErrInvalidWorkers, c.Workers)
	}
	if c.Cache.FluidCapacity <= 0 {
		return fmt.Errorf("%w, got %d", ErrInvalidFluidCapacity, c.Cache.FluidCapacity)
	}
	backends := []string{persist.BackendMemory, persist.BackendFile, persist.BackendBadger}
	if !slices.Contains(backends, c.State.Backend) {
		return fmt.Errorf("%w: %q", ErrInvalidBackend, c.State.Backend)
	}
	if c.Watch.Enabled && c.Watch.Debounce <= 0 {
		return fmt.Errorf("%w, got %s", ErrInvalidDebounce, c.Watch.Debounce)
	}
	return c.Observe.Validate()
}

// bindValues walks the struct and registers every mapstructure key with its
// default tag value.
func bindValues(v *viper.Viper, iface any, prefix string) {
	t := reflect.TypeOf(iface)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")
		if tag == "" {
			continue
		}

		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		if field.Type.Kind() == reflect.Struct {
			bindValues(v, reflect.New(field.Type).Elem().Interface(), key)
			continue
		}

		// Always set a default, even empty, so AutomaticEnv sees the key.
		v.SetDefault(key, field.Tag.Get("default"))
	}
}
