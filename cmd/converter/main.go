package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"mathtutor/internal/bootstrap"
	"mathtutor/internal/converter"
	"mathtutor/internal/logger"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func main() {
	app := &cli.App{
		Name:  "converter",
		Usage: "将作业图片转写为 LaTeX 题库语料，可断点续跑",
		Flags: append(bootstrap.CommonFlags(),
			&cli.StringFlag{
				Name:    "input",
				Aliases: []string{"i"},
				Usage:   "图片根目录（<root>/<unit>/<page>.png）",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "输出语料文件（JSON）",
			},
		),
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	cfg, log, err := bootstrap.Setup(c.String("env"), c.String("config"))
	if err != nil {
		return err
	}
	defer logger.Sync()
	log = log.Named("converter")

	convertCfg := cfg.Converter
	bootstrap.ApplyBatchFlags(c, &convertCfg.BatchConfig)
	if c.IsSet("input") {
		convertCfg.InputDir = c.String("input")
	}
	if c.IsSet("output") {
		convertCfg.OutputPath = c.String("output")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	checkpoint, closeCheckpoint, err := bootstrap.NewCheckpoint(convertCfg.Checkpoint, &cfg.Redis, log)
	if err != nil {
		return fmt.Errorf("初始化断点存储失败: %w", err)
	}
	defer closeCheckpoint()
	if c.Bool("reset") {
		if err := checkpoint.Clear(ctx); err != nil {
			return fmt.Errorf("清除断点失败: %w", err)
		}
		log.Info("已清除断点")
	}

	client, err := bootstrap.NewOpenAIClient(cfg)
	if err != nil {
		return err
	}

	conv := converter.New(client, checkpoint, converter.Config{
		InputDir:   convertCfg.InputDir,
		OutputPath: convertCfg.OutputPath,
		BatchSize:  convertCfg.BatchSize,
		BatchDelay: convertCfg.BatchDelay,
		Retry:      bootstrap.RetryPolicy(convertCfg.BatchConfig),
	}, log)

	report, runErr := conv.Run(ctx)
	if report != nil {
		if err := bootstrap.WriteReport(c.App.Writer, "converter", report, c.Bool("json")); err != nil {
			log.Warn("输出汇总失败", zap.Error(err))
		}
	}
	if runErr != nil {
		return runErr
	}
	if report.Failed > 0 {
		return cli.Exit(fmt.Sprintf("%d 张图片转写失败，重新运行将从断点继续", report.Failed), 2)
	}
	return nil
}
