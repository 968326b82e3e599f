// Package main 是聚合摘要查看器的入口点。
// 连接聚合器的 WebSocket 流，把收到的摘要渲染为彩色文本打印到终端。
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"orderbook-aggregator/internal/core/model"
	"orderbook-aggregator/internal/render"
	"orderbook-aggregator/internal/util/backoff"
)

func main() {
	var addr string
	flag.StringVar(&addr, "addr", "ws://127.0.0.1:5001/ws/summary", "聚合器摘要流地址")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	r := render.New()
	bo := backoff.NewDefault()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := watch(ctx, addr, r); err != nil {
			fmt.Fprintf(os.Stderr, "连接中断: %v\n", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(bo.Next()):
		}
	}
}

// watch 消费一条摘要流直到出错或 ctx 取消
func watch(ctx context.Context, addr string, r *render.Renderer) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, addr, nil)
	if err != nil {
		return fmt.Errorf("连接聚合器失败: %w", err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	for {
		var sum model.Summary
		if err := conn.ReadJSON(&sum); err != nil {
			return fmt.Errorf("读取摘要失败: %w", err)
		}
		fmt.Println(r.Render(&sum))
	}
}
