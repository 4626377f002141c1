// Package importer 将题库语料批量生成向量并导入数据库
package importer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mathtutor/internal/batch"
	"mathtutor/internal/corpus"
	"mathtutor/internal/failure"
	"mathtutor/internal/question"

	"go.uber.org/zap"
)

// ErrPreflight 数据库预检失败
var ErrPreflight = errors.New("datastore pre-flight check failed")

// Store 导入所需的持久化操作
type Store interface {
	Ping(ctx context.Context) error
	Count(ctx context.Context) (int64, error)
	SourceKeys(ctx context.Context) ([]string, error)
	Import(ctx context.Context, sourceKey, question, answer string, embedding []float32) (*question.Question, error)
}

// Embedder 题目+答案向量生成
type Embedder interface {
	GenerateCombined(ctx context.Context, question, answer string) ([]float32, error)
}

// Config 导入配置
type Config struct {
	CorpusPath string
	BatchSize  int
	BatchDelay time.Duration
	Retry      batch.RetryPolicy
}

// Pipeline 批量导入流程
type Pipeline struct {
	store      Store
	embedder   Embedder
	checkpoint batch.CheckpointStore
	cfg        Config
	logger     *zap.Logger
	sleep      batch.SleepFunc
}

// Option 可选项
type Option func(*Pipeline)

// WithSleep 替换等待函数（测试用）
func WithSleep(sleep batch.SleepFunc) Option {
	return func(p *Pipeline) { p.sleep = sleep }
}

// NewPipeline 创建导入流程
func NewPipeline(store Store, embedder Embedder, checkpoint batch.CheckpointStore, cfg Config, logger *zap.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Pipeline{
		store:      store,
		embedder:   embedder,
		checkpoint: checkpoint,
		cfg:        cfg,
		logger:     logger,
		sleep:      batch.ContextSleep,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run 执行导入
// 语料缺失/为空或数据库预检失败时，不处理任何条目直接返回错误
func (p *Pipeline) Run(ctx context.Context) (*batch.Report, error) {
	items, err := corpus.Load(p.cfg.CorpusPath)
	if err != nil {
		return nil, err
	}

	if err := p.store.Ping(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPreflight, err)
	}
	existing, err := p.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPreflight, err)
	}
	imported, err := p.store.SourceKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPreflight, err)
	}

	p.logger.Info("导入预检通过",
		zap.String("corpus", p.cfg.CorpusPath),
		zap.Int("items", len(items)),
		zap.Int64("existing_rows", existing),
		zap.Int("imported_rows", len(imported)),
	)

	runner := &batch.Runner[corpus.Item]{
		Name:       "importer",
		Key:        corpus.Item.Key,
		Process:    p.importItem,
		Checkpoint: p.checkpoint,
		BatchSize:  p.cfg.BatchSize,
		BatchDelay: p.cfg.BatchDelay,
		Retry:      p.cfg.Retry,
		Logger:     p.logger,
		Sleep:      p.sleep,
	}
	return runner.Run(ctx, items, imported)
}

func (p *Pipeline) importItem(ctx context.Context, item corpus.Item) error {
	embedding, err := p.embedder.GenerateCombined(ctx, item.Question, item.Answer)
	if err != nil {
		return err
	}

	_, err = p.store.Import(ctx, item.Key(), item.Question, item.Answer, embedding)
	if failure.IsKind(err, failure.KindDuplicateEntry) {
		// 其他进程已导入同一条目
		p.logger.Info("条目已存在，跳过写入", zap.String("key", item.Key()))
		return nil
	}
	return err
}
