// Package binance 实现 Binance 交易所的 WebSocket 客户端。
// 订阅频道: <symbol>@depth@100ms
// 心跳机制: 协议层 ping/pong
package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"orderbook-aggregator/internal/config"
	"orderbook-aggregator/internal/core/model"
	"orderbook-aggregator/internal/util/backoff"
	"orderbook-aggregator/internal/util/timeutil"
)

// Client Binance WebSocket 客户端
// 每个订阅创建独立实例，不跨订阅共享连接。
type Client struct {
	// cfg 连接配置
	cfg *config.ExchangeConfig
	// symbol 订阅的交易对（小写）
	symbol string
	// logger 日志记录器
	logger *zap.Logger
	// parser 消息解析器
	parser *Parser

	// conn WebSocket 连接
	conn *websocket.Conn
	// connMu 连接锁
	connMu sync.Mutex

	// recordCh 归一化更新记录输出通道
	recordCh chan *model.UpdateRecord
	// sendMu 投递与关闭的互斥
	// 投递持读锁、Close 持写锁后才关闭通道，
	// 保证通道关闭时不可能有投递在途。
	sendMu sync.RWMutex

	// metrics 连接指标
	metrics ConnectionMetrics
	// metricsMu 指标锁
	metricsMu sync.RWMutex

	// lastMsgTime 最后消息时间（纳秒）
	lastMsgTime int64
	// updateCount 更新计数（用于计算 QPS）
	updateCount int64
	// backoff 重连退避
	backoff *backoff.Backoff
	// closed 是否已关闭
	closed int32

	// parseErrSampleCount 解析错误计数（用于采样日志）
	parseErrSampleCount uint64
	// lastParseErrLogNs 上次解析错误日志时间（纳秒）
	lastParseErrLogNs int64
}

// NewClient 创建 Binance WebSocket 客户端
// 参数 cfg: 连接配置
// 参数 symbol: 订阅的交易对，如 ethbtc
// 参数 logger: 日志记录器
func NewClient(cfg *config.ExchangeConfig, symbol string, logger *zap.Logger) *Client {
	return &Client{
		cfg:      cfg,
		symbol:   strings.ToLower(symbol),
		logger:   logger.Named("binance"),
		parser:   NewParser(symbol),
		recordCh: make(chan *model.UpdateRecord, 1000),
		backoff:  backoff.NewDefault(),
	}
}

// Connect 建立 WebSocket 连接
// 参数 ctx: 上下文，用于取消连接
func (c *Client) Connect(ctx context.Context) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	header := http.Header{}
	header.Set("User-Agent", "orderbook-aggregator/1.0")

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, c.cfg.URL, header)
	if err != nil {
		return fmt.Errorf("连接 Binance WebSocket 失败: %w", err)
	}

	readTimeout := time.Duration(c.readTimeoutMs()) * time.Millisecond
	if readTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		conn.SetPongHandler(func(string) error {
			atomic.StoreInt64(&c.lastMsgTime, timeutil.NowNano())
			return conn.SetReadDeadline(time.Now().Add(readTimeout))
		})
	}

	c.conn = conn
	c.backoff.Reset()
	c.logger.Info("Binance WebSocket 连接成功", zap.String("url", c.cfg.URL))
	return nil
}

// Subscribe 订阅增量深度流
func (c *Client) Subscribe() error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil {
		return fmt.Errorf("WebSocket 未连接")
	}

	req := SubscribeRequest{
		Method: "SUBSCRIBE",
		Params: []string{fmt.Sprintf("%s@depth@100ms", c.symbol)},
		ID:     1,
	}

	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("序列化订阅请求失败: %w", err)
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("发送订阅请求失败: %w", err)
	}

	c.logger.Info("Binance 订阅请求已发送", zap.String("symbol", c.symbol))
	return nil
}

// Run 启动客户端主循环
// 包含读取循环、心跳和指标统计
func (c *Client) Run(ctx context.Context) {
	go c.pingLoop(ctx)
	go c.metricsLoop(ctx)
	c.readLoop(ctx)
}

func (c *Client) readLoop(ctx context.Context) {
	readTimeout := time.Duration(c.readTimeoutMs()) * time.Millisecond
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if atomic.LoadInt32(&c.closed) == 1 {
			return
		}

		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()

		if conn == nil {
			c.reconnect(ctx)
			continue
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			c.logger.Warn("读取 Binance 消息失败", zap.Error(err))
			c.incrementReconnectCount()
			c.reconnect(ctx)
			continue
		}

		if readTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		}

		atomic.StoreInt64(&c.lastMsgTime, timeutil.NowNano())

		rec, err := c.parser.Parse(data)
		if err != nil {
			c.incrementParseErrorCount()
			c.maybeLogParseError(err, data)
			continue
		}
		if rec == nil {
			if IsSubscribeAck(data) {
				c.logger.Info("Binance 订阅已确认")
			}
			continue
		}

		atomic.AddInt64(&c.updateCount, 1)
		c.deliver(rec)
	}
}

// deliver 投递归一化更新记录到输出通道
// 与 Close 互斥：持读锁期间通道不会被关闭，已关闭则直接丢弃。
func (c *Client) deliver(rec *model.UpdateRecord) {
	c.sendMu.RLock()
	defer c.sendMu.RUnlock()

	if atomic.LoadInt32(&c.closed) == 1 {
		return
	}

	select {
	case c.recordCh <- rec:
	default:
		c.logger.Warn("Binance recordCh 已满，丢弃更新")
	}
}

func (c *Client) pingLoop(ctx context.Context) {
	intervalMs := c.cfg.PingIntervalMs
	if intervalMs <= 0 {
		intervalMs = c.readTimeoutMs() / 2
		if intervalMs <= 0 {
			intervalMs = 15000
		}
	}

	ticker := time.NewTicker(time.Duration(intervalMs) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if atomic.LoadInt32(&c.closed) == 1 {
				return
			}

			c.connMu.Lock()
			conn := c.conn
			if conn == nil {
				c.connMu.Unlock()
				continue
			}

			deadline := time.Now().Add(5 * time.Second)
			if err := conn.WriteControl(websocket.PingMessage, []byte("ping"), deadline); err != nil {
				c.connMu.Unlock()
				c.logger.Warn("发送 Binance ping 失败", zap.Error(err))
				continue
			}
			c.connMu.Unlock()
		}
	}
}

func (c *Client) metricsLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	var lastCount int64

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if atomic.LoadInt32(&c.closed) == 1 {
				return
			}

			count := atomic.LoadInt64(&c.updateCount)
			qps := float64(count - lastCount)
			lastCount = count

			lastMsg := atomic.LoadInt64(&c.lastMsgTime)
			var ageMs int64
			if lastMsg > 0 {
				ageMs = timeutil.NanoToMs(timeutil.NowNano() - lastMsg)
			}

			c.metricsMu.Lock()
			c.metrics.UpdatesPerSec = qps
			c.metrics.LastMessageAgeMs = ageMs
			c.metricsMu.Unlock()
		}
	}
}

func (c *Client) reconnect(ctx context.Context) {
	if atomic.LoadInt32(&c.closed) == 1 {
		return
	}
	c.closeConn()

	delay := c.backoff.Next()
	c.logger.Info("Binance 准备重连", zap.Duration("delay", delay))

	select {
	case <-ctx.Done():
		return
	case <-time.After(delay):
	}

	if err := c.Connect(ctx); err != nil {
		c.logger.Error("Binance 重连失败", zap.Error(err))
		return
	}
	if err := c.Subscribe(); err != nil {
		c.logger.Error("Binance 重新订阅失败", zap.Error(err))
	}
}

func (c *Client) closeConn() {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

// Close 关闭客户端
// 可在读循环仍在运行时调用：写锁与 deliver 的读锁互斥，
// 拿到写锁即保证没有投递在途，此后的投递看到 closed 标志直接丢弃。
func (c *Client) Close() error {
	if !atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		return nil
	}
	c.closeConn()

	c.sendMu.Lock()
	close(c.recordCh)
	c.sendMu.Unlock()

	c.logger.Info("Binance 客户端已关闭")
	return nil
}

// RecordCh 获取归一化更新记录通道
func (c *Client) RecordCh() <-chan *model.UpdateRecord {
	return c.recordCh
}

// Metrics 获取连接指标
func (c *Client) Metrics() ConnectionMetrics {
	c.metricsMu.RLock()
	defer c.metricsMu.RUnlock()
	return c.metrics
}

func (c *Client) incrementReconnectCount() {
	c.metricsMu.Lock()
	c.metrics.ReconnectCount++
	c.metricsMu.Unlock()
}

func (c *Client) incrementParseErrorCount() {
	c.metricsMu.Lock()
	c.metrics.ParseErrorCount++
	c.metricsMu.Unlock()
}

func (c *Client) readTimeoutMs() int {
	if c.cfg.ReadTimeoutMs > 0 {
		return c.cfg.ReadTimeoutMs
	}
	// 未配置时使用 30s
	return 30000
}

// maybeLogParseError 采样记录解析错误原始消息，避免刷盘
// 采样策略：每 100 次错误记录 1 条，且同一类日志至少间隔 1 分钟。
func (c *Client) maybeLogParseError(err error, data []byte) {
	count := atomic.AddUint64(&c.parseErrSampleCount, 1)
	if count%100 != 0 {
		return
	}

	nowNs := timeutil.NowNano()
	last := atomic.LoadInt64(&c.lastParseErrLogNs)
	if last > 0 && nowNs-last < int64(time.Minute) {
		return
	}
	atomic.StoreInt64(&c.lastParseErrLogNs, nowNs)

	sample := data
	if len(sample) > 200 {
		sample = sample[:200]
	}
	c.logger.Warn("解析 Binance 消息失败（采样）", zap.Error(err), zap.ByteString("data", sample))
}
