package common

import "errors"

// ErrNotFound is returned when a requested item (e.g., cache key, database record) is not found.
// Store adapters return it on a cache miss; the SQL store returns it for missing rows.
var ErrNotFound = errors.New("ante: requested item not found")

// ErrStoreClosed is returned by adapters used after Close.
var ErrStoreClosed = errors.New("ante: store is closed")
