// Package bitstamp 实现 Bitstamp 交易所消息解析。
// 增量流外层带 data 包装，REST 快照没有：两条路径分别解析。
// 序号映射: microtimestamp 字段 -> Revision
package bitstamp

import (
	"encoding/json"
	"fmt"

	"orderbook-aggregator/internal/core/model"
	"orderbook-aggregator/internal/util/fastparse"
	"orderbook-aggregator/internal/util/timeutil"
)

// Parser Bitstamp 消息解析器
type Parser struct {
	// channel 订阅的频道名，用于过滤其它频道的消息
	channel string
}

// NewParser 创建 Bitstamp 消息解析器
// 参数 symbol: 订阅的交易对，如 ethbtc
func NewParser(symbol string) *Parser {
	return &Parser{channel: ChannelName(symbol)}
}

// ChannelName 构造增量深度频道名
func ChannelName(symbol string) string {
	return fmt.Sprintf("diff_order_book_%s", symbol)
}

// Parse 解析 Bitstamp WebSocket 消息为归一化更新记录
// 参数 data: 原始消息字节
// 返回: 控制消息（订阅确认、心跳等）返回 nil，不是错误，
// 它们在这里被过滤，永远不会进入核心引擎。
func (p *Parser) Parse(data []byte) (*model.UpdateRecord, error) {
	arrivedAt := timeutil.NowNano()

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("解析 Bitstamp 消息失败: %w", err)
	}

	switch env.Event {
	case "data":
	case "bts:subscription_succeeded", "bts:heartbeat":
		// 控制消息，过滤
		return nil, nil
	case "bts:request_reconnect":
		// 客户端读循环依据 IsReconnectRequest 处理
		return nil, nil
	default:
		return nil, nil
	}

	if env.Channel != p.channel {
		return nil, nil
	}

	var depth DepthData
	if err := json.Unmarshal(env.Data, &depth); err != nil {
		return nil, fmt.Errorf("解析 Bitstamp 深度负载失败: %w", err)
	}

	return depthToRecord(&depth, arrivedAt)
}

// ParseSnapshot 解析 REST 全量快照为归一化更新记录
// 快照响应是顶层 DepthData 结构，没有 data 包装。
func ParseSnapshot(data []byte) (*model.UpdateRecord, error) {
	arrivedAt := timeutil.NowNano()

	var depth DepthData
	if err := json.Unmarshal(data, &depth); err != nil {
		return nil, fmt.Errorf("解析 Bitstamp 快照失败: %w", err)
	}

	return depthToRecord(&depth, arrivedAt)
}

// IsReconnectRequest 判断消息是否为服务端重连要求
func IsReconnectRequest(data []byte) bool {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return false
	}
	return env.Event == "bts:request_reconnect"
}

// depthToRecord 将深度负载转换为归一化更新记录
func depthToRecord(depth *DepthData, arrivedAt int64) (*model.UpdateRecord, error) {
	rev, err := fastparse.ParseUint(depth.Microtimestamp)
	if err != nil {
		return nil, fmt.Errorf("解析 Bitstamp microtimestamp 失败: %w", err)
	}

	rec := &model.UpdateRecord{
		Exchange:        model.ExchangeBitstamp,
		Revision:        rev,
		Bids:            parseLevels(depth.Bids),
		Asks:            parseLevels(depth.Asks),
		ArrivedAtUnixNs: arrivedAt,
	}
	return rec, nil
}

// parseLevels 解析档位数组 [[price, qty], ...]
// 格式不完整的档位跳过
func parseLevels(raw [][]string) []model.Quote {
	quotes := make([]model.Quote, 0, len(raw))
	for _, lv := range raw {
		if len(lv) < 2 {
			continue
		}
		px, err := fastparse.ParseFloat(lv[0])
		if err != nil {
			continue
		}
		qty, err := fastparse.ParseFloat(lv[1])
		if err != nil {
			continue
		}
		quotes = append(quotes, model.Quote{
			Price:    px,
			Amount:   qty,
			Exchange: model.ExchangeBitstamp,
		})
	}
	return quotes
}
