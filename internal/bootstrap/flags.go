package bootstrap

import (
	"mathtutor/internal/config"

	"github.com/urfave/cli/v2"
)

// CommonFlags 所有批处理命令共用的参数
func CommonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "env",
			Usage:   "配置环境 dev/prod/test",
			Value:   "dev",
			EnvVars: []string{"APP_ENV"},
		},
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "配置文件路径（默认 config/<env>.yaml）",
			EnvVars: []string{"APP_CONFIG"},
		},
		&cli.IntFlag{
			Name:  "batch-size",
			Usage: "每批并发处理的条目数",
		},
		&cli.DurationFlag{
			Name:  "batch-delay",
			Usage: "批与批之间的等待时间",
		},
		&cli.IntFlag{
			Name:  "max-attempts",
			Usage: "单条目最大尝试次数（仅限流与网络错误会重试）",
		},
		&cli.DurationFlag{
			Name:  "base-delay",
			Usage: "指数退避基础延迟",
		},
		&cli.StringFlag{
			Name:  "checkpoint-backend",
			Usage: "断点存储 file/redis",
		},
		&cli.StringFlag{
			Name:  "checkpoint",
			Usage: "断点文件路径（file 后端）",
		},
		&cli.BoolFlag{
			Name:  "reset",
			Usage: "开始前清除已有断点",
		},
		&cli.BoolFlag{
			Name:  "json",
			Usage: "以 JSON 输出运行汇总",
		},
	}
}

// ApplyBatchFlags 命令行显式指定的参数覆盖配置
func ApplyBatchFlags(c *cli.Context, cfg *config.BatchConfig) {
	if c.IsSet("batch-size") {
		cfg.BatchSize = c.Int("batch-size")
	}
	if c.IsSet("batch-delay") {
		cfg.BatchDelay = c.Duration("batch-delay")
	}
	if c.IsSet("max-attempts") {
		cfg.MaxAttempts = c.Int("max-attempts")
	}
	if c.IsSet("base-delay") {
		cfg.BaseDelay = c.Duration("base-delay")
	}
	if c.IsSet("checkpoint-backend") {
		cfg.Checkpoint.Backend = c.String("checkpoint-backend")
	}
	if c.IsSet("checkpoint") {
		cfg.Checkpoint.Path = c.String("checkpoint")
	}
}
