package ante_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/burugo/ante"
	"github.com/burugo/ante/drivers/cache/memory"
)

// --- Event recorder ---

type recordingSink struct {
	mu     sync.Mutex
	events []ante.CacheEvent
}

func (r *recordingSink) Record(_ context.Context, ev ante.CacheEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingSink) ofType(t ante.EventType) []ante.CacheEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []ante.CacheEvent
	for _, ev := range r.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

// --- Failing cache client ---

var errStoreDown = errors.New("connection refused")

// flakyClient wraps a real client and fails selected operations, simulating
// a store outage.
type flakyClient struct {
	ante.CacheClient

	mu       sync.Mutex
	failGet  bool
	failSet  bool
	failScan bool
	calls    map[string]int
}

func newFlakyClient() *flakyClient {
	return &flakyClient{CacheClient: memory.NewClient(nil), calls: make(map[string]int)}
}

func (f *flakyClient) count(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
}

func (f *flakyClient) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *flakyClient) Get(ctx context.Context, key string) ([]byte, error) {
	f.count("Get")
	if f.failGet {
		return nil, errStoreDown
	}
	return f.CacheClient.Get(ctx, key)
}

func (f *flakyClient) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	f.count("Set")
	if f.failSet {
		return errStoreDown
	}
	return f.CacheClient.Set(ctx, key, value, ttl)
}

func (f *flakyClient) DeleteByPattern(ctx context.Context, pattern string) (int, error) {
	f.count("DeleteByPattern")
	if f.failScan {
		return 0, errStoreDown
	}
	return f.CacheClient.DeleteByPattern(ctx, pattern)
}

// setupCache builds a TenantCache over a memory client.
func setupCache(tb testing.TB) (*ante.TenantCache, ante.CacheClient, *recordingSink) {
	tb.Helper()
	client := memory.NewClient(nil)
	tb.Cleanup(func() { _ = client.Close() })
	sink := &recordingSink{}
	c, err := ante.New(client, ante.DefaultConfig(), ante.WithEventSink(sink))
	require.NoError(tb, err)
	return c, client, sink
}

func setupFlakyCache(tb testing.TB) (*ante.TenantCache, *flakyClient, *recordingSink) {
	tb.Helper()
	client := newFlakyClient()
	tb.Cleanup(func() { _ = client.Close() })
	sink := &recordingSink{}
	c, err := ante.New(client, ante.DefaultConfig(), ante.WithEventSink(sink))
	require.NoError(tb, err)
	return c, client, sink
}
