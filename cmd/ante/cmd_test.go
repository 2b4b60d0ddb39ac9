package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/burugo/ante"
	"github.com/burugo/ante/config"
	"github.com/burugo/ante/drivers/cache/memory"
)

func TestFlushPatterns(t *testing.T) {
	ps, err := flushPatterns(nil)
	require.NoError(t, err)
	assert.Len(t, ps, 2*len(flushPrefixes))

	resolved, err := ps[0].Resolve("16", nil)
	require.NoError(t, err)
	assert.Equal(t, "content-type:16", resolved)
	resolved, err = ps[1].Resolve("16", nil)
	require.NoError(t, err)
	assert.Equal(t, "content-type:16:*", resolved)

	_, err = flushPatterns([]string{"query:*"})
	assert.Error(t, err, "patterns without {companyId} are rejected")
}

func TestFlushPatterns_ClearsOnlyTenant(t *testing.T) {
	client := memory.NewClient(nil)
	defer client.Close()
	cache, err := ante.New(client, ante.DefaultConfig())
	require.NoError(t, err)

	ctx := context.Background()
	for _, tenant := range []ante.TenantID{"16", "17"} {
		require.NoError(t, cache.Set(ctx, tenant, ante.NewKey(ante.PrefixContentTypes), []string{"blog"}, ante.CacheOptions{}))
		require.NoError(t, cache.Set(ctx, tenant, ante.NewKey(ante.PrefixConfig).ID("timezone"), "UTC", ante.CacheOptions{}))
	}

	ps, err := flushPatterns(nil)
	require.NoError(t, err)
	n, err := cache.Invalidate(ctx, "16", nil, ps...)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	var v string
	found, err := cache.Get(ctx, "17", ante.NewKey(ante.PrefixConfig).ID("timezone"), &v, ante.CacheOptions{})
	require.NoError(t, err)
	assert.True(t, found)
}

func TestNewLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ante.log")
	logger, cleanup, err := newLogger(config.LogConfig{Level: "warn", Format: "json", File: path})
	require.NoError(t, err)

	logger.Info("dropped")
	logger.Warn("kept", slog.String("tenant", "16"))
	cleanup()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, bytes.Count(data, []byte("\n")))
	assert.Contains(t, string(data), `"tenant":"16"`)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelInfo, parseLevel(""))
}
