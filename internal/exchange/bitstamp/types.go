// Package bitstamp 定义 Bitstamp 交易所消息类型。
package bitstamp

import "encoding/json"

// SubscribeRequest Bitstamp WebSocket 订阅请求
// 订阅 diff_order_book_<symbol> 频道。
type SubscribeRequest struct {
	// Event 事件类型: bts:subscribe
	Event string `json:"event"`
	// Data 订阅参数
	Data SubscribeData `json:"data"`
}

// SubscribeData 订阅参数
type SubscribeData struct {
	// Channel 频道名称，如 diff_order_book_ethbtc
	Channel string `json:"channel"`
}

// Envelope Bitstamp WebSocket 消息外层
// 增量数据嵌套在 data 键下；订阅确认等控制消息没有深度数据。
// 事件类型：
// - data: 增量深度
// - bts:subscription_succeeded: 订阅确认（过滤，不进入核心）
// - bts:request_reconnect: 服务端要求重连
type Envelope struct {
	// Event 事件类型
	Event string `json:"event"`
	// Channel 频道名称
	Channel string `json:"channel"`
	// Data 负载（事件类型不同结构不同，延迟解析）
	Data json.RawMessage `json:"data"`
}

// DepthData Bitstamp 深度负载
// 增量流嵌套在外层 data 键下，REST 快照则是顶层结构，
// 两者共用本类型。
// 字段映射: microtimestamp -> UpdateRecord.Revision
type DepthData struct {
	// Microtimestamp 微秒时间戳（字符串）
	Microtimestamp string `json:"microtimestamp"`
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
