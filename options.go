package ante

import "time"

// CacheOptions controls a single cache read or write.
type CacheOptions struct {
	// TTL of the entry. Zero selects the default for the key's prefix.
	TTL time.Duration
	// Refresh forces a miss on read without touching the store.
	Refresh bool
	// Serialize encodes the value with the configured codec. When false,
	// string and []byte values are stored verbatim; anything else is still
	// encoded since it has no raw form.
	Serialize bool
}

// DefaultOptions returns options with serialization on and the prefix TTL.
func DefaultOptions() CacheOptions {
	return CacheOptions{Serialize: true}
}

// WithTTL returns a copy of o with the TTL set.
func (o CacheOptions) WithTTL(ttl time.Duration) CacheOptions {
	o.TTL = ttl
	return o
}
