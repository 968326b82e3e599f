// Package bitstamp Bitstamp 客户端测试
package bitstamp

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"orderbook-aggregator/internal/config"
)

// diffStreamServer 持续推送增量深度消息的测试服务端
func diffStreamServer() *httptest.Server {
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		ack := `{"event":"bts:subscription_succeeded","channel":"diff_order_book_ethbtc","data":{}}`
		if err := conn.WriteMessage(websocket.TextMessage, []byte(ack)); err != nil {
			return
		}

		micro := uint64(1700000000000001)
		for {
			msg := fmt.Sprintf(
				`{"event":"data","channel":"diff_order_book_ethbtc","data":{"microtimestamp":"%d","bids":[["0.04231","1.0"]],"asks":[["0.04232","2.0"]]}}`,
				micro)
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return
			}
			micro++
		}
	}))
}

// TestClient_CloseWhileStreaming 读循环持续投递时关闭客户端
// Close 与投递互斥：任何交错下都不允许向已关闭通道发送。
func TestClient_CloseWhileStreaming(t *testing.T) {
	srv := diffStreamServer()
	defer srv.Close()

	addr := "ws" + strings.TrimPrefix(srv.URL, "http")

	for i := 0; i < 50; i++ {
		cfg := &config.ExchangeConfig{URL: addr, ReadTimeoutMs: 5000, PingIntervalMs: 25000}
		c := NewClient(cfg, "ethbtc", zap.NewNop())

		ctx, cancel := context.WithCancel(context.Background())
		if err := c.Connect(ctx); err != nil {
			cancel()
			t.Fatalf("Connect: %v", err)
		}

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Run(ctx)
		}()

		// 等首条记录到达，确保读循环已进入投递路径再关闭
		select {
		case <-c.RecordCh():
		case <-time.After(2 * time.Second):
			cancel()
			t.Fatalf("第 %d 轮未收到任何更新", i)
		}

		if err := c.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
		cancel()
		wg.Wait()

		// 重复关闭应为无操作
		if err := c.Close(); err != nil {
			t.Fatalf("重复 Close: %v", err)
		}

		// 通道已关闭，排空后循环应终止
		for range c.RecordCh() {
		}
	}
}
