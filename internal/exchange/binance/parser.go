// Package binance 实现 Binance 交易所消息解析。
// 增量流与快照共用档位格式 [[price, qty], ...]，
// 序号映射: 增量 u 字段、快照 lastUpdateId 字段 -> Revision
package binance

import (
	"encoding/json"
	"fmt"
	"strings"

	"orderbook-aggregator/internal/core/model"
	"orderbook-aggregator/internal/util/fastparse"
	"orderbook-aggregator/internal/util/timeutil"
)

// Parser Binance 消息解析器
type Parser struct {
	// symbol 订阅的交易对（小写）
	symbol string
}

// NewParser 创建 Binance 消息解析器
// 参数 symbol: 订阅的交易对，如 ethbtc
func NewParser(symbol string) *Parser {
	return &Parser{symbol: strings.ToLower(symbol)}
}

// Parse 解析 Binance WebSocket 消息为归一化更新记录
// 参数 data: 原始消息字节
// 返回: 非深度消息（订阅响应等）返回 nil，不是错误
func (p *Parser) Parse(data []byte) (*model.UpdateRecord, error) {
	arrivedAt := timeutil.NowNano()

	var msg DepthUpdate
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("解析 Binance 消息失败: %w", err)
	}

	if msg.EventType != "depthUpdate" {
		return nil, nil
	}
	if !strings.EqualFold(msg.Symbol, p.symbol) {
		return nil, nil
	}

	rec := &model.UpdateRecord{
		Exchange:        model.ExchangeBinance,
		Revision:        msg.FinalUpdateID,
		Bids:            parseLevels(msg.Bids),
		Asks:            parseLevels(msg.Asks),
		ArrivedAtUnixNs: arrivedAt,
	}
	return rec, nil
}

// IsSubscribeAck 判断消息是否为订阅确认响应
// depthUpdate 消息不带 id 字段，带非零 id 的即为请求响应。
func IsSubscribeAck(data []byte) bool {
	var resp SubscribeResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return false
	}
	return resp.ID != 0 && resp.Result == nil
}

// ParseSnapshot 解析 REST 全量深度快照为归一化更新记录
// 参数 data: 快照响应字节
func ParseSnapshot(data []byte) (*model.UpdateRecord, error) {
	arrivedAt := timeutil.NowNano()

	var snap DepthSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("解析 Binance 快照失败: %w", err)
	}
	if snap.LastUpdateID == 0 {
		return nil, fmt.Errorf("Binance 快照缺少 lastUpdateId")
	}

	rec := &model.UpdateRecord{
		Exchange:        model.ExchangeBinance,
		Revision:        snap.LastUpdateID,
		Bids:            parseLevels(snap.Bids),
		Asks:            parseLevels(snap.Asks),
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
			Exchange: model.ExchangeBinance,
		})
	}
	return quotes
}
