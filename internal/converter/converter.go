// Package converter 将作业图片批量转写为 LaTeX 题库语料
package converter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"mathtutor/internal/ai"
	"mathtutor/internal/batch"
	"mathtutor/internal/corpus"
	"mathtutor/internal/failure"

	"go.uber.org/zap"
)

// Config 转写配置
type Config struct {
	InputDir   string
	OutputPath string
	BatchSize  int
	BatchDelay time.Duration
	Retry      batch.RetryPolicy
}

// Converter 图片转写流程
type Converter struct {
	transcriber ai.Transcriber
	checkpoint  batch.CheckpointStore
	cfg         Config
	logger      *zap.Logger
	sleep       batch.SleepFunc

	mu      sync.Mutex
	pending map[string][]corpus.Item // 本批已转写、尚未写出的结果
	output  []corpus.Item
}

// Option 可选项
type Option func(*Converter)

// WithSleep 替换等待函数（测试用）
func WithSleep(sleep batch.SleepFunc) Option {
	return func(c *Converter) { c.sleep = sleep }
}

// New 创建转写流程
func New(transcriber ai.Transcriber, checkpoint batch.CheckpointStore, cfg Config, logger *zap.Logger, opts ...Option) *Converter {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Converter{
		transcriber: transcriber,
		checkpoint:  checkpoint,
		cfg:         cfg,
		logger:      logger,
		sleep:       batch.ContextSleep,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run 执行转写；输入目录缺失或没有图片时直接返回错误
func (c *Converter) Run(ctx context.Context) (*batch.Report, error) {
	pages, err := ScanPages(c.cfg.InputDir)
	if err != nil {
		return nil, err
	}

	existing, err := corpus.Load(c.cfg.OutputPath)
	switch {
	case err == nil:
	case errors.Is(err, corpus.ErrCorpusMissing), errors.Is(err, corpus.ErrCorpusEmpty):
		existing = nil
	default:
		return nil, err
	}
	c.output = existing
	c.pending = make(map[string][]corpus.Item)

	c.logger.Info("开始转写作业图片",
		zap.String("input", c.cfg.InputDir),
		zap.String("output", c.cfg.OutputPath),
		zap.Int("pages", len(pages)),
		zap.Int("existing_items", len(existing)),
	)

	// 已写入输出文件的页面不再转写
	done := corpus.Sources(existing)

	runner := &batch.Runner[Page]{
		Name:       "converter",
		Key:        func(p Page) string { return p.Key },
		Process:    c.transcribePage,
		AfterBatch: c.flush,
		Checkpoint: c.checkpoint,
		BatchSize:  c.cfg.BatchSize,
		BatchDelay: c.cfg.BatchDelay,
		Retry:      c.cfg.Retry,
		Logger:     c.logger,
		Sleep:      c.sleep,
	}
	return runner.Run(ctx, pages, done)
}

func (c *Converter) transcribePage(ctx context.Context, page Page) error {
	image, err := os.ReadFile(page.Path)
	if err != nil {
		return failure.Wrap(failure.KindValidationFailed, err, fmt.Sprintf("cannot read %s", page.Key))
	}

	raw, err := c.transcriber.Transcribe(ctx, image, page.MimeType())
	if err != nil {
		return ai.Classify(c.logger, err)
	}

	items, err := ParseTranscription(page, raw)
	if err != nil {
		c.logger.Warn("转写结果无法解析", zap.String("page", page.Key), zap.String("raw", raw))
		return err
	}
	c.logger.Debug("图片转写完成", zap.String("page", page.Key), zap.Int("questions", len(items)))

	c.mu.Lock()
	c.pending[page.Key] = items
	c.mu.Unlock()
	return nil
}

// flush 按页顺序追加本批结果并重写输出文件
func (c *Converter) flush(ctx context.Context, succeeded []Page) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, page := range succeeded {
		c.output = append(c.output, c.pending[page.Key]...)
		delete(c.pending, page.Key)
	}
	return corpus.Write(c.cfg.OutputPath, c.output)
}
