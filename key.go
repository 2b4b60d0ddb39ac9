package ante

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/burugo/ante/internal/utils"
)

// Key prefixes used by the consuming services. Each prefix is also a content
// class with its own default TTL (see Config.TTLFor).
const (
	PrefixContentType  = "content-type"
	PrefixContentTypes = "content-types"
	PrefixContentEntry = "content-entry"
	PrefixQuery        = "query"
	PrefixMedia        = "media"
	PrefixConfig       = "config"
)

const (
	keySeparator = ":"
	// absentSegment marks an interior field that was not set.
	absentSegment = "~"
)

// KeyConfig describes a cache key. Prefix is required; the other fields are
// optional and a nil pointer means "not set", which is distinct from "".
type KeyConfig struct {
	Prefix     string
	CompanyID  *string
	Type       *string
	Identifier *string
}

// NewKey starts a KeyConfig with the given prefix.
func NewKey(prefix string) KeyConfig {
	return KeyConfig{Prefix: prefix}
}

// Company returns a copy of k scoped to the given company.
func (k KeyConfig) Company(id string) KeyConfig {
	k.CompanyID = utils.ToPtr(id)
	return k
}

// OfType returns a copy of k with the sub-type set.
func (k KeyConfig) OfType(t string) KeyConfig {
	k.Type = utils.ToPtr(t)
	return k
}

// ID returns a copy of k with the identifier set.
func (k KeyConfig) ID(id string) KeyConfig {
	k.Identifier = utils.ToPtr(id)
	return k
}

// String renders the key, see BuildKey.
func (k KeyConfig) String() string {
	return BuildKey(k)
}

// BuildKey renders cfg as prefix:company:type:identifier.
//
// Values are escaped so they cannot contain the separator, the absent marker
// or glob metacharacters. Absent interior fields are written as "~" and
// trailing absent fields are dropped, so every distinct KeyConfig yields a
// distinct key.
func BuildKey(cfg KeyConfig) string {
	segments := []*string{cfg.CompanyID, cfg.Type, cfg.Identifier}

	last := -1
	for i, s := range segments {
		if s != nil {
			last = i
		}
	}

	var b strings.Builder
	b.WriteString(EscapeSegment(cfg.Prefix))
	for i := 0; i <= last; i++ {
		b.WriteString(keySeparator)
		if segments[i] == nil {
			b.WriteString(absentSegment)
			continue
		}
		b.WriteString(EscapeSegment(*segments[i]))
	}
	return b.String()
}

// EscapeSegment percent-encodes the characters that carry meaning inside a
// key or a pattern: % : ~ * ? [ ] \
func EscapeSegment(s string) string {
	if !strings.ContainsAny(s, "%:~*?[]\\") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 8)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '%', ':', '~', '*', '?', '[', ']', '\\':
			fmt.Fprintf(&b, "%%%02X", c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// QueryHash generates a short stable hash of query parameters, used as the
// identifier segment for list caches.
func QueryHash(params any) string {
	paramsJSON, err := json.Marshal(utils.NormalizeValue(params))
	if err != nil {
		slog.Error("failed to marshal query params for hash", slog.Any("error", err))
		return fmt.Sprintf("error_hash_%d", time.Now().UnixNano())
	}
	hasher := sha256.New()
	hasher.Write(paramsJSON)
	fullHash := hex.EncodeToString(hasher.Sum(nil))
	// 16 hex chars is plenty for a per-tenant, per-type list cache.
	return fullHash[:16]
}
