// Package server 单个订阅的生命周期。
package server

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"orderbook-aggregator/internal/config"
	"orderbook-aggregator/internal/core/book"
	"orderbook-aggregator/internal/core/model"
	"orderbook-aggregator/internal/exchange/binance"
	"orderbook-aggregator/internal/exchange/bitstamp"
	"orderbook-aggregator/internal/output/jsonl"
)

// subscription 一个订阅：一份订单簿 + 一组独立上游连接
// 订单簿由本订阅的单个任务串行驱动（单写者），随订阅结束一并释放，
// 无持久化、无跨订阅共享。
type subscription struct {
	// id 订阅标识
	id string
	// cfg 应用配置
	cfg *config.Config
	// conn 下游 WebSocket 连接
	conn *websocket.Conn
	// tape 摘要 JSONL 记录器（可选）
	tape *jsonl.Writer
	// logger 日志记录器
	logger *zap.Logger

	// outCh 摘要输出队列
	// 消费者过慢时丢弃最旧摘要（背压策略归传输层，核心不感知）
	outCh chan *model.Summary

	// violationCount 数据契约违规计数（未知来源、无来源记录等）
	// 订阅任务写入、指标任务读取，原子访问
	violationCount int64
	// droppedCount 因消费过慢丢弃的摘要计数
	// 同上，原子访问
	droppedCount int64
}

// newSubscription 创建订阅
func newSubscription(id string, cfg *config.Config, conn *websocket.Conn, tape *jsonl.Writer, logger *zap.Logger) *subscription {
	return &subscription{
		id:     id,
		cfg:    cfg,
		conn:   conn,
		tape:   tape,
		logger: logger.Named("sub").With(zap.String("subscription", id)),
		outCh:  make(chan *model.Summary, cfg.Server.OutBufferSize),
	}
}

// run 驱动订阅直到下游断开、上游全部失效或 ctx 取消
func (s *subscription) run(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	defer s.conn.Close()

	// 先建立增量流再取快照，避免快照与流之间漏更新
	binClient := binance.NewClient(&s.cfg.WS.Binance, s.cfg.Symbol, s.logger)
	bitClient := bitstamp.NewClient(&s.cfg.WS.Bitstamp, s.cfg.Symbol, s.logger)
	defer func() {
		// 先取消再关闭：读循环尽快退出，Close 自身与在途投递互斥
		cancel()
		_ = binClient.Close()
		_ = bitClient.Close()
	}()

	startCtx, startCancel := context.WithTimeout(ctx, 10*time.Second)
	defer startCancel()

	if err := binClient.Connect(startCtx); err != nil {
		s.logger.Error("Binance 连接失败", zap.Error(err))
	} else if err := binClient.Subscribe(); err != nil {
		s.logger.Error("Binance 订阅失败", zap.Error(err))
	} else {
		go binClient.Run(ctx)
	}

	if err := bitClient.Connect(startCtx); err != nil {
		s.logger.Error("Bitstamp 连接失败", zap.Error(err))
	} else if err := bitClient.Subscribe(); err != nil {
		s.logger.Error("Bitstamp 订阅失败", zap.Error(err))
	} else {
		go bitClient.Run(ctx)
	}

	// 初始快照：允许个别来源失败，全部失败时订单簿构造会报错
	var snapshots []*model.UpdateRecord
	if snap, err := binance.FetchSnapshot(startCtx, &s.cfg.WS.Binance, s.cfg.Symbol); err != nil {
		s.logger.Warn("获取 Binance 快照失败", zap.Error(err))
	} else {
		snapshots = append(snapshots, snap)
	}
	if snap, err := bitstamp.FetchSnapshot(startCtx, &s.cfg.WS.Bitstamp, s.cfg.Symbol); err != nil {
		s.logger.Warn("获取 Bitstamp 快照失败", zap.Error(err))
	} else {
		snapshots = append(snapshots, snap)
	}

	bk, err := book.New(s.cfg.Book, snapshots...)
	if err != nil {
		s.logger.Error("构造合并订单簿失败", zap.Error(err))
		s.writeClose(websocket.CloseInternalServerErr, "无可用初始快照")
		return
	}

	go s.writeLoop(ctx, cancel)
	go s.readLoop(cancel)
	go s.metricsLoop(ctx, binClient, bitClient)

	// 初始合并状态先推一份
	s.publish(bk.Summary())

	binCh := binClient.RecordCh()
	bitCh := bitClient.RecordCh()

	for {
		select {
		case <-ctx.Done():
			return

		case rec, ok := <-binCh:
			if !ok {
				binCh = nil
				break
			}
			s.apply(bk, rec)

		case rec, ok := <-bitCh:
			if !ok {
				bitCh = nil
				break
			}
			s.apply(bk, rec)
		}

		if binCh == nil && bitCh == nil {
			s.logger.Warn("全部上游通道已关闭，结束订阅")
			return
		}
	}
}

// apply 应用一条更新并在状态变化时发布新摘要
// 单条记录的契约违规只计数和记日志，订阅继续处理后续更新。
func (s *subscription) apply(bk *book.Book, rec *model.UpdateRecord) {
	changed, err := bk.Apply(rec)
	if err != nil {
		violations := atomic.AddInt64(&s.violationCount, 1)
		s.logger.Warn("更新记录被拒绝",
			zap.Error(err),
			zap.String("exchange", rec.SourceExchange()),
			zap.Int64("violations", violations))
		return
	}
	if !changed {
		// 过期更新静默丢弃，不产出摘要
		return
	}

	sum := bk.Summary()
	s.publish(sum)

	if s.tape != nil {
		_ = s.tape.Write(sum)
	}
}

// publish 投递摘要到输出队列
// 队列满时丢弃最旧一条，为新摘要腾位（订阅任务单生产者）
func (s *subscription) publish(sum *model.Summary) {
	select {
	case s.outCh <- sum:
		return
	default:
	}

	select {
	case <-s.outCh:
		dropped := atomic.AddInt64(&s.droppedCount, 1)
		if dropped%100 == 1 {
			s.logger.Warn("消费过慢，丢弃旧摘要", zap.Int64("dropped", dropped))
		}
	default:
	}

	select {
	case s.outCh <- sum:
	default:
	}
}

// metricsLoop 周期性记录上游连接质量和订阅健康度
func (s *subscription) metricsLoop(ctx context.Context, bin *binance.Client, bit *bitstamp.Client) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			bm := bin.Metrics()
			tm := bit.Metrics()
			s.logger.Info("连接质量统计",
				zap.Float64("binance_qps", bm.UpdatesPerSec),
				zap.Int64("binance_reconnects", bm.ReconnectCount),
				zap.Int64("binance_parse_errors", bm.ParseErrorCount),
				zap.Int64("binance_last_msg_age_ms", bm.LastMessageAgeMs),
				zap.Float64("bitstamp_qps", tm.UpdatesPerSec),
				zap.Int64("bitstamp_reconnects", tm.ReconnectCount),
				zap.Int64("bitstamp_parse_errors", tm.ParseErrorCount),
				zap.Int64("bitstamp_last_msg_age_ms", tm.LastMessageAgeMs),
				zap.Int64("violations", atomic.LoadInt64(&s.violationCount)),
				zap.Int64("dropped", atomic.LoadInt64(&s.droppedCount)))
		}
	}
}

// writeLoop 把摘要写出到下游连接
func (s *subscription) writeLoop(ctx context.Context, cancel context.CancelFunc) {
	writeTimeout := time.Duration(s.cfg.Server.WriteTimeoutMs) * time.Millisecond

	for {
		select {
		case <-ctx.Done():
			return
		case sum := <-s.outCh:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := s.conn.WriteJSON(sum); err != nil {
				s.logger.Info("写出摘要失败，结束订阅", zap.Error(err))
				cancel()
				return
			}
		}
	}
}

// readLoop 监听下游连接以感知客户端断开
// 订阅者不需要发送数据，任何读错误都视为订阅结束。
func (s *subscription) readLoop(cancel context.CancelFunc) {
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			cancel()
			return
		}
	}
}

// writeClose 发送关闭帧
func (s *subscription) writeClose(code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
}
