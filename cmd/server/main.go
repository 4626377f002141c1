package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mathtutor/api"
	"mathtutor/internal/bootstrap"
	"mathtutor/internal/infra"
	"mathtutor/internal/logger"
	"mathtutor/internal/question"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// shutdownTimeout 优雅关闭等待时间
const shutdownTimeout = 10 * time.Second

func main() {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}

	// 1. 加载配置与日志
	cfg, log, err := bootstrap.Setup(env, os.Getenv("APP_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "启动失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	log.Info("应用启动中...",
		zap.String("env", env),
		zap.String("mode", cfg.Server.Mode),
	)

	// 2. 初始化数据库
	db, err := bootstrap.OpenDatabase(context.Background(), &cfg.Database, log)
	if err != nil {
		log.Fatal("初始化数据库失败", zap.Error(err))
	}

	// 3. 初始化向量服务
	client, err := bootstrap.NewOpenAIClient(cfg)
	if err != nil {
		log.Fatal("初始化 OpenAI 客户端失败", zap.Error(err))
	}
	generator := bootstrap.NewGenerator(&cfg.Embedding, client, log)
	repo := question.NewRepository(db, generator, generator.Dimensions())

	// 4. 创建路由
	gin.SetMode(cfg.Server.Mode)
	router := api.SetupRouter(api.Dependencies{
		Config:    cfg,
		Generator: generator,
		Store:     repo,
		Readiness: repo,
		Logger:    log.Named("http"),
	})
	defer router.Close()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router.Engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 5. 启动服务器
	go func() {
		log.Info("HTTP 服务器启动", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP 服务器启动失败", zap.Error(err))
		}
	}()

	// 6. 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("正在关闭服务器...")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("服务器关闭异常", zap.Error(err))
	}
	if err := infra.CloseDatabase(db); err != nil {
		log.Error("数据库关闭异常", zap.Error(err))
	}
	log.Info("服务器已安全关闭")
}
