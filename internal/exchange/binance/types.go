// Package binance 定义 Binance 交易所消息类型。
package binance

// SubscribeRequest Binance WebSocket 订阅请求
// 订阅 <symbol>@depth@100ms 增量深度流。
type SubscribeRequest struct {
	// Method 订阅方法: SUBSCRIBE
	Method string `json:"method"`
	// Params 订阅参数列表，如 "ethbtc@depth@100ms"
	Params []string `json:"params"`
	// ID 请求 ID
	ID int64 `json:"id"`
}

// SubscribeResponse Binance WebSocket 订阅响应
// 通常形如 {"result":null,"id":1}。
type SubscribeResponse struct {
	// Result 结果（成功为 null）
	Result any `json:"result"`
	// ID 请求 ID
	ID int64 `json:"id"`
}

// DepthUpdate Binance 增量深度推送消息（depthUpdate）
// 字段映射：
// - e: 事件类型（depthUpdate）
// - u: 本批最后一个 update ID -> UpdateRecord.Revision
// - b: bids [[price, qty], ...]（字符串）
// - a: asks [[price, qty], ...]（字符串）
type DepthUpdate struct {
	// EventType 事件类型: depthUpdate
	EventType string `json:"e"`
	// EventTimeMs 事件时间（毫秒）
	EventTimeMs int64 `json:"E"`
	// Symbol 交易对（大写）
	Symbol string `json:"s"`
	// FinalUpdateID 本批最后一个 update ID
	FinalUpdateID uint64 `json:"u"`
	// Bids 买盘档位（价格、数量）
	Bids [][]string `json:"b"`
	// Asks 卖盘档位（价格、数量）
	Asks [][]string `json:"a"`
}

// DepthSnapshot Binance REST 全量深度快照
// GET /api/v3/depth?symbol=..&limit=1000
type DepthSnapshot struct {
	// LastUpdateID 快照的 update ID -> UpdateRecord.Revision
	LastUpdateID uint64 `json:"lastUpdateId"`
	// Bids 买盘档位（价格、数量）
	Bids [][]string `json:"bids"`
	// Asks 卖盘档位（价格、数量）
	Asks [][]string `json:"asks"`
}

// ConnectionMetrics 连接质量指标
type ConnectionMetrics struct {
	// ReconnectCount 重连次数
	ReconnectCount int64
	// ParseErrorCount 解析错误次数
	ParseErrorCount int64
	// UpdatesPerSec 每秒更新次数
	UpdatesPerSec float64
	// LastMessageAgeMs 最后消息距今时间（毫秒）
	LastMessageAgeMs int64
}
