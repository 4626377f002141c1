package batch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRedis 内存版 Redis，只实现断点用到的 Get / Set / Del
type fakeRedis struct {
	redis.UniversalClient

	mu   sync.Mutex
	data map[string]string
	ttl  map[string]time.Duration
	err  error // 非空时所有命令返回该错误
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, ttl: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewStatusResult("", f.err)
	}
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	case string:
		f.data[key] = v
	}
	f.ttl[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func TestRedisCheckpoint(t *testing.T) {
	ctx := context.Background()
	rdb := newFakeRedis()
	cp := NewRedisCheckpoint(rdb, "mathtutor:import-progress", time.Hour)

	p, err := cp.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, p.ProcessedKeys)

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, cp.Save(ctx, &Progress{ProcessedKeys: []string{"1:1", "2:3"}, LastUpdated: now}))
	assert.Equal(t, time.Hour, rdb.ttl["mathtutor:import-progress"])
	assert.Contains(t, rdb.data["mathtutor:import-progress"], `"processedKeys"`)

	p, err = cp.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"1:1", "2:3"}, p.ProcessedKeys)
	assert.True(t, now.Equal(p.LastUpdated))

	require.NoError(t, cp.Clear(ctx))
	require.NoError(t, cp.Clear(ctx))
	p, err = cp.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, p.ProcessedKeys)
}

func TestRedisCheckpoint_Errors(t *testing.T) {
	ctx := context.Background()
	down := errors.New("connection refused")
	rdb := newFakeRedis()
	rdb.err = down
	cp := NewRedisCheckpoint(rdb, "k", 0)

	_, err := cp.Load(ctx)
	assert.ErrorIs(t, err, down)
	assert.ErrorIs(t, cp.Save(ctx, &Progress{}), down)
	assert.ErrorIs(t, cp.Clear(ctx), down)

	rdb.err = nil
	rdb.data["k"] = "{"
	_, err = cp.Load(ctx)
	assert.Error(t, err)
}

func TestRunner_WithRedisCheckpoint(t *testing.T) {
	store := newFakeStore()
	runner, _ := newRunner(t, store, &recordingSleep{})
	rdb := newFakeRedis()
	runner.Checkpoint = NewRedisCheckpoint(rdb, "progress", 0)

	store.failures["1:2"] = []error{errors.New("bad row")}
	report, err := runner.Run(context.Background(), makeItems(3), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Contains(t, rdb.data, "progress")

	report, err = runner.Run(context.Background(), makeItems(3), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 2, report.Skipped)
	assert.NotContains(t, rdb.data, "progress")
}
