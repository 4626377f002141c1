package importer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"mathtutor/internal/batch"
	"mathtutor/internal/corpus"
	"mathtutor/internal/failure"
	"mathtutor/internal/question"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore 内存版导入存储
type memStore struct {
	mu      sync.Mutex
	rows    map[string]string
	pingErr error
	writes  int
}

func newMemStore() *memStore { return &memStore{rows: map[string]string{}} }

func (s *memStore) Ping(context.Context) error { return s.pingErr }

func (s *memStore) Count(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.rows)), nil
}

func (s *memStore) SourceKeys(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.rows))
	for k := range s.rows {
		keys = append(keys, k)
	}
	return keys, nil
}

func (s *memStore) Import(_ context.Context, key, q, a string, emb []float32) (*question.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[key]; ok {
		return nil, failure.New(failure.KindDuplicateEntry, "")
	}
	s.rows[key] = q
	s.writes++
	return &question.Question{ID: key, Question: q, Answer: a, SourceKey: &key}, nil
}

// flakyEmbedder 指定题目首次调用返回限流
type flakyEmbedder struct {
	mu        sync.Mutex
	failOnce  map[string]bool
	calls     map[string]int
	permanent map[string]error
}

func newFlakyEmbedder() *flakyEmbedder {
	return &flakyEmbedder{failOnce: map[string]bool{}, calls: map[string]int{}, permanent: map[string]error{}}
}

func (e *flakyEmbedder) GenerateCombined(_ context.Context, q, a string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls[q]++
	if err, ok := e.permanent[q]; ok {
		return nil, err
	}
	if e.failOnce[q] && e.calls[q] == 1 {
		return nil, failure.New(failure.KindRateLimited, "")
	}
	return []float32{1, 2, 3}, nil
}

func noSleep(ctx context.Context, d time.Duration) error { return ctx.Err() }

func writeCorpus(t *testing.T, dir string, n int) string {
	t.Helper()
	items := make([]corpus.Item, n)
	for i := range items {
		num := corpus.Label(string(rune('1' + i)))
		items[i] = corpus.Item{Unit: "1", Number: num, Question: "q" + string(num), Answer: "a" + string(num)}
	}
	path := filepath.Join(dir, "corpus.json")
	require.NoError(t, corpus.Write(path, items))
	return path
}

func newTestPipeline(t *testing.T, store Store, embedder Embedder, corpusPath string) (*Pipeline, *batch.FileCheckpoint) {
	cp := batch.NewFileCheckpoint(filepath.Join(t.TempDir(), ".import-progress.json"))
	cfg := Config{
		CorpusPath: corpusPath,
		BatchSize:  2,
		BatchDelay: time.Second,
		Retry:      batch.RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second},
	}
	return NewPipeline(store, embedder, cp, cfg, nil, WithSleep(noSleep)), cp
}

func TestPipeline_ImportsCorpusWithRetry(t *testing.T) {
	store := newMemStore()
	embedder := newFlakyEmbedder()
	embedder.failOnce["q3"] = true
	p, cp := newTestPipeline(t, store, embedder, writeCorpus(t, t.TempDir(), 5))

	report, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, report.Succeeded)
	assert.Equal(t, 0, report.Failed)
	assert.Equal(t, 2, embedder.calls["q3"])
	assert.Len(t, store.rows, 5)

	_, statErr := os.Stat(cp.Path())
	assert.True(t, errors.Is(statErr, os.ErrNotExist))
}

func TestPipeline_SecondRunIsNoop(t *testing.T) {
	store := newMemStore()
	embedder := newFlakyEmbedder()
	path := writeCorpus(t, t.TempDir(), 5)
	p, _ := newTestPipeline(t, store, embedder, path)

	_, err := p.Run(context.Background())
	require.NoError(t, err)

	report, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Succeeded)
	assert.Equal(t, 5, report.Skipped)
	assert.Equal(t, 5, store.writes)
	for q, n := range embedder.calls {
		assert.Equal(t, 1, n, q)
	}
}

func TestPipeline_FailedItemDoesNotAbort(t *testing.T) {
	store := newMemStore()
	embedder := newFlakyEmbedder()
	embedder.permanent["q2"] = failure.New(failure.KindQuotaExceeded, "")
	p, cp := newTestPipeline(t, store, embedder, writeCorpus(t, t.TempDir(), 4))

	report, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, report.Succeeded)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, "1:2", report.Failures[0].Key)
	assert.Equal(t, 1, embedder.calls["q2"])

	_, statErr := os.Stat(cp.Path())
	assert.NoError(t, statErr, "有失败条目时保留断点")
}

func TestPipeline_FatalPreconditions(t *testing.T) {
	t.Run("语料缺失", func(t *testing.T) {
		embedder := newFlakyEmbedder()
		p, _ := newTestPipeline(t, newMemStore(), embedder, filepath.Join(t.TempDir(), "missing.json"))
		_, err := p.Run(context.Background())
		assert.ErrorIs(t, err, corpus.ErrCorpusMissing)
		assert.Empty(t, embedder.calls)
	})

	t.Run("语料为空", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "empty.json")
		require.NoError(t, os.WriteFile(path, []byte("[]"), 0o644))
		p, _ := newTestPipeline(t, newMemStore(), newFlakyEmbedder(), path)
		_, err := p.Run(context.Background())
		assert.ErrorIs(t, err, corpus.ErrCorpusEmpty)
	})

	t.Run("数据库不可用", func(t *testing.T) {
		store := newMemStore()
		store.pingErr = failure.New(failure.KindStorageFailed, "connection refused")
		embedder := newFlakyEmbedder()
		p, _ := newTestPipeline(t, store, embedder, writeCorpus(t, t.TempDir(), 2))

		_, err := p.Run(context.Background())
		assert.ErrorIs(t, err, ErrPreflight)
		assert.True(t, failure.IsKind(err, failure.KindStorageFailed))
		assert.Empty(t, embedder.calls)
	})
}

func TestPipeline_DuplicateTreatedAsDone(t *testing.T) {
	store := newMemStore()
	p, _ := newTestPipeline(t, store, newFlakyEmbedder(), writeCorpus(t, t.TempDir(), 1))

	// 预检之后、写入之前被其他进程导入
	err := p.importItem(context.Background(), corpus.Item{Unit: "1", Number: "1", Question: "q1", Answer: "a1"})
	require.NoError(t, err)
	err = p.importItem(context.Background(), corpus.Item{Unit: "1", Number: "1", Question: "q1", Answer: "a1"})
	assert.NoError(t, err)
	assert.Equal(t, 1, store.writes)
}
