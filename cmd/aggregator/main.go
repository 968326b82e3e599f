// Package main 是订单簿聚合器的入口点。
// 聚合器合并多个交易所同一交易对的深度流，
// 以 WebSocket 向订阅者持续推送 Top-N 聚合摘要。
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"orderbook-aggregator/internal/config"
	"orderbook-aggregator/internal/server"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "配置文件路径")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.App.LogLevel)
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 捕获 SIGINT/SIGTERM，触发优雅退出
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("收到退出信号，开始优雅关闭")
		cancel()
	}()

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("创建服务端失败", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("聚合器启动",
		zap.String("symbol", cfg.Symbol),
		zap.Strings("exchanges", cfg.Book.Exchanges),
		zap.Int("reporting_depth", cfg.Book.ReportingDepth))

	if err := srv.Start(ctx); err != nil {
		logger.Error("服务端退出", zap.Error(err))
		os.Exit(1)
	}
}

func newLogger(level string) *zap.Logger {
	lvl := zapcore.InfoLevel
	if err := lvl.Set(level); err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
