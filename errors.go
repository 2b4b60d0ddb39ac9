package ante

import (
	"errors"

	"github.com/burugo/ante/common"
)

// ErrNotFound is re-exported from common so callers only need the root package.
var ErrNotFound = common.ErrNotFound

// Package-level errors. Store failures never surface as errors from TenantCache;
// these report caller mistakes only.
var (
	ErrTenantRequired      = errors.New("ante: tenant id is required")
	ErrTenantMismatch      = errors.New("ante: key company does not match tenant")
	ErrUnscopedPattern     = errors.New("ante: invalidation pattern must contain {companyId}")
	ErrMissingPatternParam = errors.New("ante: invalidation pattern parameter not provided")
	ErrNotSerializable     = errors.New("ante: value cannot be stored without serialization")
	ErrUnknownCodec        = errors.New("ante: unknown codec")
	ErrCacheNotSet         = errors.New("ante: cache client not set")
)
