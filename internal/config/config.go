package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Log       LogConfig       `mapstructure:"log"`
	AI        AIConfig        `mapstructure:"ai"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Importer  ImporterConfig  `mapstructure:"importer"`
	Converter ConverterConfig `mapstructure:"converter"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"` // debug, release, test
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	CORSOrigins  []string      `mapstructure:"cors_origins"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"` // 是否自动迁移表结构
	SlowThreshold   time.Duration `mapstructure:"slow_threshold"`
}

// RedisConfig Redis 配置（仅断点存储使用）
type RedisConfig struct {
	// 连接模式: standalone(单节点), sentinel(哨兵), cluster(集群)
	Mode string `mapstructure:"mode"`

	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	MasterName    string   `mapstructure:"master_name"`
	SentinelAddrs []string `mapstructure:"sentinel_addrs"`
	ClusterAddrs  []string `mapstructure:"cluster_addrs"`

	PoolSize int `mapstructure:"pool_size"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, /path/to/log
}

// AIConfig AI 服务配置
type AIConfig struct {
	OpenAI OpenAIConfig `mapstructure:"openai"`
}

// OpenAIConfig OpenAI 配置
type OpenAIConfig struct {
	APIKey       string        `mapstructure:"api_key"`
	BaseURL      string        `mapstructure:"base_url"`
	OrgID        string        `mapstructure:"org_id"`
	Timeout      time.Duration `mapstructure:"timeout"`
	VisionModel  string        `mapstructure:"vision_model"`
	VisionPrompt string        `mapstructure:"vision_prompt"`
}

// EmbeddingConfig 向量生成配置
type EmbeddingConfig struct {
	Model          string `mapstructure:"model"`
	Dimensions     int    `mapstructure:"dimensions"`
	MaxInputTokens int    `mapstructure:"max_input_tokens"`
}

// RateLimitConfig 写接口限流（按客户端 IP）
type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// CheckpointConfig 断点存储配置
type CheckpointConfig struct {
	Backend  string        `mapstructure:"backend"` // file, redis
	Path     string        `mapstructure:"path"`
	RedisKey string        `mapstructure:"redis_key"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// BatchConfig 批处理通用配置
type BatchConfig struct {
	BatchSize   int              `mapstructure:"batch_size"`
	BatchDelay  time.Duration    `mapstructure:"batch_delay"`
	MaxAttempts int              `mapstructure:"max_attempts"`
	BaseDelay   time.Duration    `mapstructure:"base_delay"`
	Checkpoint  CheckpointConfig `mapstructure:"checkpoint"`
}

// ImporterConfig 题库导入配置
type ImporterConfig struct {
	BatchConfig `mapstructure:",squash"`
	CorpusPath  string `mapstructure:"corpus_path"`
}

// ConverterConfig 图片转写配置
type ConverterConfig struct {
	BatchConfig `mapstructure:",squash"`
	InputDir    string `mapstructure:"input_dir"`
	OutputPath  string `mapstructure:"output_path"`
}

var globalConfig *Config

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "mathtutor")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("database.slow_threshold", "200ms")

	v.SetDefault("redis.mode", "standalone")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.master_name", "")
	v.SetDefault("redis.sentinel_addrs", []string{})
	v.SetDefault("redis.cluster_addrs", []string{})
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output_path", "stdout")

	v.SetDefault("ai.openai.api_key", "")
	v.SetDefault("ai.openai.base_url", "")
	v.SetDefault("ai.openai.org_id", "")
	v.SetDefault("ai.openai.timeout", "60s")
	v.SetDefault("ai.openai.vision_model", "gpt-4o")
	v.SetDefault("ai.openai.vision_prompt", "")

	v.SetDefault("embedding.model", "text-embedding-3-small")
	v.SetDefault("embedding.dimensions", 1536)
	v.SetDefault("embedding.max_input_tokens", 8191)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_second", 5)
	v.SetDefault("rate_limit.burst", 10)

	v.SetDefault("importer.corpus_path", "data/corpus.json")
	v.SetDefault("importer.batch_size", 5)
	v.SetDefault("importer.batch_delay", "1s")
	v.SetDefault("importer.max_attempts", 3)
	v.SetDefault("importer.base_delay", "1s")
	v.SetDefault("importer.checkpoint.backend", "file")
	v.SetDefault("importer.checkpoint.path", ".import-progress.json")
	v.SetDefault("importer.checkpoint.redis_key", "mathtutor:import-progress")
	v.SetDefault("importer.checkpoint.ttl", "0s")

	v.SetDefault("converter.input_dir", "data/worksheets")
	v.SetDefault("converter.output_path", "data/corpus.json")
	v.SetDefault("converter.batch_size", 2)
	v.SetDefault("converter.batch_delay", "2s")
	v.SetDefault("converter.max_attempts", 3)
	v.SetDefault("converter.base_delay", "1s")
	v.SetDefault("converter.checkpoint.backend", "file")
	v.SetDefault("converter.checkpoint.path", ".convert-progress.json")
	v.SetDefault("converter.checkpoint.redis_key", "mathtutor:convert-progress")
	v.SetDefault("converter.checkpoint.ttl", "0s")
}

// Load 加载配置
// env: 环境名称（dev, prod, test）
// configPath: 配置文件路径（可选）
// 配置文件不存在时使用默认值与环境变量
func Load(env string, configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// 设置配置文件名和路径
	if configPath == "" {
		v.SetConfigName(env) // dev.yaml, prod.yaml
		v.AddConfigPath("./config")
		v.AddConfigPath("../config")
		v.AddConfigPath("../../config")
	} else {
		v.SetConfigFile(configPath)
	}

	v.SetConfigType("yaml")

	// 读取环境变量（优先级高于配置文件）
	v.SetEnvPrefix("APP") // 环境变量前缀：APP_
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // 支持嵌套配置：APP_DATABASE_HOST
	if err := v.BindEnv("ai.openai.api_key", "APP_AI_OPENAI_API_KEY", "OPENAI_API_KEY"); err != nil {
		return nil, fmt.Errorf("绑定环境变量失败: %w", err)
	}

	// 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	// 解析配置
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	globalConfig = &cfg
	return &cfg, nil
}

// Get 获取全局配置
func Get() *Config {
	if globalConfig == nil {
		panic("配置未初始化，请先调用 Load()")
	}
	return globalConfig
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}
