// Package embedding 将题目文本转换为定长向量
package embedding

import (
	"context"
	"fmt"
	"strings"
	"time"

	"mathtutor/internal/ai"
	"mathtutor/internal/failure"
	"mathtutor/internal/metrics"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// DefaultDimensions 向量维度（与 questions.embedding 列一致）
const DefaultDimensions = 1536

// Options 生成器配置
type Options struct {
	Dimensions     int
	MaxInputTokens int          // <= 0 不限制
	Tokens         TokenCounter // nil 时不做 token 检查
	Logger         *zap.Logger
}

// Generator 向量生成器
// 不做重试，失败一律返回 *failure.Failure
type Generator struct {
	client     ai.EmbeddingClient
	dimensions int
	maxTokens  int
	tokens     TokenCounter
	logger     *zap.Logger
	tracer     trace.Tracer
}

// NewGenerator 创建向量生成器
func NewGenerator(client ai.EmbeddingClient, opts Options) *Generator {
	if opts.Dimensions <= 0 {
		opts.Dimensions = DefaultDimensions
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Generator{
		client:     client,
		dimensions: opts.Dimensions,
		maxTokens:  opts.MaxInputTokens,
		tokens:     opts.Tokens,
		logger:     opts.Logger,
		tracer:     otel.Tracer("mathtutor/internal/embedding"),
	}
}

// Dimensions 向量维度
func (g *Generator) Dimensions() int {
	return g.dimensions
}

// CombinedText 题目与答案拼接为单条向量化文本
func CombinedText(question, answer string) string {
	return fmt.Sprintf("Question: %s\nAnswer: %s", question, answer)
}

// GenerateCombined 题目+答案合并生成向量
func (g *Generator) GenerateCombined(ctx context.Context, question, answer string) ([]float32, error) {
	if strings.TrimSpace(question) == "" {
		return nil, failure.New(failure.KindValidationFailed, "question is required")
	}
	if strings.TrimSpace(answer) == "" {
		return nil, failure.New(failure.KindValidationFailed, "answer is required")
	}
	return g.Generate(ctx, CombinedText(question, answer))
}

// Generate 单条文本生成向量，返回值不做归一化
func (g *Generator) Generate(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, failure.New(failure.KindValidationFailed, "text is required")
	}

	model := g.client.Model()
	ctx, span := g.tracer.Start(ctx, "Embedding.Generate")
	defer span.End()
	span.SetAttributes(attribute.String("model", model), attribute.Int("text_length", len(text)))

	if g.tokens != nil && g.maxTokens > 0 {
		if n := g.tokens.Count(text); n > g.maxTokens {
			f := failure.New(failure.KindValidationFailed,
				fmt.Sprintf("input is %d tokens, limit is %d", n, g.maxTokens))
			span.SetStatus(codes.Error, "input too long")
			return nil, f
		}
	}

	start := time.Now()
	vec, err := g.client.CreateEmbedding(ctx, text)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		f := ai.Classify(g.logger, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, f.Code())
		metrics.RecordEmbedding(model, f.Code(), elapsed)
		return nil, f
	}

	if len(vec) != g.dimensions {
		f := failure.New(failure.KindValidationFailed,
			fmt.Sprintf("embedding has %d dimensions, expected %d", len(vec), g.dimensions))
		g.logger.Error("向量维度不匹配",
			zap.String("model", model),
			zap.Int("got", len(vec)),
			zap.Int("expected", g.dimensions),
		)
		span.SetStatus(codes.Error, "dimension mismatch")
		metrics.RecordEmbedding(model, f.Code(), elapsed)
		return nil, f
	}

	metrics.RecordEmbedding(model, "success", elapsed)
	return vec, nil
}
