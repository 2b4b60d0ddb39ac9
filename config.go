package ante

import (
	"time"
)

// Default TTLs per content class.
const (
	DefaultContentTypeTTL  = time.Hour
	DefaultContentEntryTTL = 5 * time.Minute
	DefaultQueryTTL        = 2 * time.Minute
	DefaultMediaTTL        = 30 * time.Minute
	DefaultConfigTTL       = 15 * time.Minute
	DefaultWriteTimeout    = 2 * time.Second
	DefaultLoadTimeout     = 30 * time.Second
)

// Config holds configuration for a TenantCache.
type Config struct {
	// DefaultTTL applies to prefixes without an entry in TTLs.
	DefaultTTL time.Duration `mapstructure:"default_ttl"`
	// TTLs maps a key prefix (content class) to its default TTL.
	TTLs map[string]time.Duration `mapstructure:"ttls"`
	// WriteTimeout bounds writes and invalidations, which run detached from
	// the caller's cancellation.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// LoadTimeout bounds a shared loader call. Loaders run detached from any
	// single caller, so one canceled request cannot fail the others.
	LoadTimeout time.Duration `mapstructure:"load_timeout"`
	// Codec names the serialization codec: "json" (default) or "cbor".
	Codec string `mapstructure:"codec"`
}

// DefaultConfig returns the built-in content class TTLs.
func DefaultConfig() Config {
	return Config{
		DefaultTTL: DefaultQueryTTL,
		TTLs: map[string]time.Duration{
			PrefixContentType:  DefaultContentTypeTTL,
			PrefixContentTypes: DefaultContentTypeTTL,
			PrefixContentEntry: DefaultContentEntryTTL,
			PrefixQuery:        DefaultQueryTTL,
			PrefixMedia:        DefaultMediaTTL,
			PrefixConfig:       DefaultConfigTTL,
		},
		WriteTimeout: DefaultWriteTimeout,
		LoadTimeout:  DefaultLoadTimeout,
		Codec:        CodecJSON,
	}
}

// TTLFor returns the default TTL for entries under prefix.
func (c Config) TTLFor(prefix string) time.Duration {
	if ttl, ok := c.TTLs[prefix]; ok && ttl > 0 {
		return ttl
	}
	if c.DefaultTTL > 0 {
		return c.DefaultTTL
	}
	return DefaultQueryTTL
}

// withDefaults fills zero fields from DefaultConfig. Configured TTLs win over
// the built-in ones.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.DefaultTTL <= 0 {
		c.DefaultTTL = def.DefaultTTL
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = def.WriteTimeout
	}
	if c.LoadTimeout <= 0 {
		c.LoadTimeout = def.LoadTimeout
	}
	if c.Codec == "" {
		c.Codec = def.Codec
	}
	ttls := make(map[string]time.Duration, len(def.TTLs)+len(c.TTLs))
	for k, v := range def.TTLs {
		ttls[k] = v
	}
	for k, v := range c.TTLs {
		if v > 0 {
			ttls[k] = v
		}
	}
	c.TTLs = ttls
	return c
}
