// Package server 实现合并摘要的 WebSocket 流式服务端。
// 每个订阅独享一份订单簿和一组上游交易所连接，订阅之间无共享可变状态。
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"orderbook-aggregator/internal/config"
	"orderbook-aggregator/internal/output/jsonl"
)

// Server 流式服务端
// GET /ws/summary 升级为 WebSocket 后按订阅推送聚合摘要。
type Server struct {
	// cfg 应用配置
	cfg *config.Config
	// logger 日志记录器
	logger *zap.Logger
	// upgrader WebSocket 升级器
	upgrader websocket.Upgrader
	// httpSrv HTTP 服务
	httpSrv *http.Server
	// tape 摘要 JSONL 记录器（可选，多个订阅共用）
	tape *jsonl.Writer
}

// New 创建流式服务端
// 参数 cfg: 应用配置
// 参数 logger: 日志记录器
func New(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		logger: logger.Named("server"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// 单机工具，放开跨域检查
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	if cfg.Output.SummariesEnabled {
		w, err := jsonl.NewWriter(fmt.Sprintf("%s/summaries.jsonl", cfg.Output.Dir), cfg.Output.BufferSize)
		if err != nil {
			return nil, fmt.Errorf("创建摘要记录器失败: %w", err)
		}
		s.tape = w
	}

	return s, nil
}

// Start 启动服务端并阻塞直到 ctx 取消
// 参数 ctx: 上下文，取消时优雅关闭
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/summary", s.handleSummary(ctx))
	mux.HandleFunc("/healthz", s.handleHealth)

	s.httpSrv = &http.Server{
		Addr:    s.cfg.Server.ListenAddr,
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("服务端开始监听", zap.String("addr", s.cfg.Server.ListenAddr))
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("服务端监听失败: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("服务端关闭超时", zap.Error(err))
	}

	if s.tape != nil {
		_ = s.tape.Close()
	}

	s.logger.Info("服务端已关闭")
	return nil
}

// handleSummary 处理摘要流订阅
// 每个连接：独立订阅 ID、独立上游连接、独立订单簿
func (s *Server) handleSummary(parent context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.logger.Warn("WebSocket 升级失败", zap.Error(err))
			return
		}

		id := uuid.NewString()
		sub := newSubscription(id, s.cfg, conn, s.tape, s.logger)

		s.logger.Info("订阅已建立",
			zap.String("subscription", id),
			zap.String("remote", r.RemoteAddr),
			zap.String("symbol", s.cfg.Symbol))

		sub.run(parent)

		s.logger.Info("订阅已结束", zap.String("subscription", id))
	}
}

// handleHealth 存活探针
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
