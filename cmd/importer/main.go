package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"mathtutor/internal/bootstrap"
	"mathtutor/internal/infra"
	"mathtutor/internal/importer"
	"mathtutor/internal/logger"
	"mathtutor/internal/question"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func main() {
	app := &cli.App{
		Name:  "importer",
		Usage: "为题库语料生成向量并批量导入数据库，可断点续跑",
		Flags: append(bootstrap.CommonFlags(),
			&cli.StringFlag{
				Name:  "corpus",
				Usage: "语料文件路径（.json / .yaml）",
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
	log = log.Named("importer")

	importCfg := cfg.Importer
	bootstrap.ApplyBatchFlags(c, &importCfg.BatchConfig)
	if c.IsSet("corpus") {
		importCfg.CorpusPath = c.String("corpus")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	checkpoint, closeCheckpoint, err := bootstrap.NewCheckpoint(importCfg.Checkpoint, &cfg.Redis, log)
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

	db, err := bootstrap.OpenDatabase(ctx, &cfg.Database, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := infra.CloseDatabase(db); err != nil {
			log.Warn("数据库关闭异常", zap.Error(err))
		}
	}()

	client, err := bootstrap.NewOpenAIClient(cfg)
	if err != nil {
		return err
	}
	generator := bootstrap.NewGenerator(&cfg.Embedding, client, log)
	repo := question.NewRepository(db, generator, generator.Dimensions())

	pipeline := importer.NewPipeline(repo, generator, checkpoint, importer.Config{
		CorpusPath: importCfg.CorpusPath,
		BatchSize:  importCfg.BatchSize,
		BatchDelay: importCfg.BatchDelay,
		Retry:      bootstrap.RetryPolicy(importCfg.BatchConfig),
	}, log)

	report, runErr := pipeline.Run(ctx)
	if report != nil {
		if err := bootstrap.WriteReport(c.App.Writer, "importer", report, c.Bool("json")); err != nil {
			log.Warn("输出汇总失败", zap.Error(err))
		}
	}
	if runErr != nil {
		return runErr
	}
	if report.Failed > 0 {
		return cli.Exit(fmt.Sprintf("%d 条导入失败，重新运行将从断点继续", report.Failed), 2)
	}
	return nil
}
