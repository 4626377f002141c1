package bootstrap

import (
	"context"
	"fmt"

	aiopenai "mathtutor/internal/ai/openai"
	"mathtutor/internal/batch"
	"mathtutor/internal/config"
	"mathtutor/internal/embedding"
	"mathtutor/internal/infra"
	"mathtutor/internal/logger"
	"mathtutor/internal/question"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Setup 加载 .env、配置并初始化全局日志
func Setup(env, configPath string) (*config.Config, *zap.Logger, error) {
	envPath, envErr := LoadEnvFile()

	cfg, err := config.Load(env, configPath)
	if err != nil {
		return nil, nil, err
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath); err != nil {
		return nil, nil, fmt.Errorf("初始化日志失败: %w", err)
	}

	log := logger.L()
	switch {
	case envErr != nil:
		log.Warn("加载环境变量文件失败", zap.String("path", envPath), zap.Error(envErr))
	case envPath != "":
		log.Debug("已加载环境变量文件", zap.String("path", envPath))
	}
	return cfg, log, nil
}

// OpenDatabase 连接数据库，按配置执行迁移
func OpenDatabase(ctx context.Context, cfg *config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	db, err := infra.InitDatabase(cfg, log)
	if err != nil {
		return nil, err
	}
	if !cfg.AutoMigrate {
		log.Info("跳过自动迁移（配置已禁用）")
		return db, nil
	}
	if err := infra.AutoMigrate(ctx, db, log, &question.Question{}); err != nil {
		_ = infra.CloseDatabase(db)
		return nil, err
	}
	return db, nil
}

// NewOpenAIClient 按配置创建 OpenAI 客户端
func NewOpenAIClient(cfg *config.Config) (*aiopenai.Client, error) {
	return aiopenai.NewClient(aiopenai.Config{
		APIKey:              cfg.AI.OpenAI.APIKey,
		BaseURL:             cfg.AI.OpenAI.BaseURL,
		OrgID:               cfg.AI.OpenAI.OrgID,
		EmbeddingModel:      cfg.Embedding.Model,
		EmbeddingDimensions: cfg.Embedding.Dimensions,
		VisionModel:         cfg.AI.OpenAI.VisionModel,
		VisionPrompt:        cfg.AI.OpenAI.VisionPrompt,
		Timeout:             cfg.AI.OpenAI.Timeout,
	})
}

// NewGenerator 创建向量生成器；tiktoken 编码加载失败时关闭 token 检查
func NewGenerator(cfg *config.EmbeddingConfig, client *aiopenai.Client, log *zap.Logger) *embedding.Generator {
	opts := embedding.Options{
		Dimensions:     cfg.Dimensions,
		MaxInputTokens: cfg.MaxInputTokens,
		Logger:         log.Named("embedding"),
	}
	if cfg.MaxInputTokens > 0 {
		counter, err := embedding.NewTiktokenCounter(cfg.Model)
		if err != nil {
			log.Warn("token 计数器不可用，跳过输入长度检查", zap.Error(err))
		} else {
			opts.Tokens = counter
		}
	}
	return embedding.NewGenerator(client, opts)
}

// RetryPolicy 批处理重试策略，未配置的字段取默认值
func RetryPolicy(cfg config.BatchConfig) batch.RetryPolicy {
	policy := batch.DefaultRetryPolicy()
	if cfg.MaxAttempts > 0 {
		policy.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.BaseDelay > 0 {
		policy.BaseDelay = cfg.BaseDelay
	}
	return policy
}

// NewCheckpoint 按配置创建断点存储，返回的 close 用于释放连接
func NewCheckpoint(cfg config.CheckpointConfig, redisCfg *config.RedisConfig, log *zap.Logger) (batch.CheckpointStore, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Backend {
	case "", "file":
		if cfg.Path == "" {
			return nil, nil, fmt.Errorf("断点文件路径未配置")
		}
		log.Info("使用文件断点", zap.String("path", cfg.Path))
		return batch.NewFileCheckpoint(cfg.Path), noop, nil

	case "redis":
		if cfg.RedisKey == "" {
			return nil, nil, fmt.Errorf("Redis 断点键未配置")
		}
		client, err := infra.InitRedis(redisCfg, log)
		if err != nil {
			return nil, nil, err
		}
		log.Info("使用 Redis 断点", zap.String("key", cfg.RedisKey), zap.Duration("ttl", cfg.TTL))
		return batch.NewRedisCheckpoint(client, cfg.RedisKey, cfg.TTL), client.Close, nil

	default:
		return nil, nil, fmt.Errorf("不支持的断点存储: %s (可选: file, redis)", cfg.Backend)
	}
}
