// Package model 定义聚合器中使用的核心数据结构。
// 包含跨组件边界传递的报价、更新记录和聚合摘要类型。
package model

// Exchange 交易所标识常量
const (
	// ExchangeBinance Binance 交易所
	ExchangeBinance = "binance"
	// ExchangeBitstamp Bitstamp 交易所
	ExchangeBitstamp = "bitstamp"
)

// Quote 单个交易所在某一价格档位的挂单
// 不可变值类型，Amount 为非负数量
type Quote struct {
	// Price 价格
	Price float64 `json:"price"`
	// Amount 数量（0 表示删除指令，见 UpdateRecord）
	Amount float64 `json:"amount"`
	// Exchange 交易所标识
	Exchange string `json:"exchange"`
}

// UpdateRecord 归一化后的订单簿更新记录
// 由各交易所的 Feed Normalizer 产出，核心引擎的唯一输入。
// Amount 为 0 的 Quote 表示删除该 (price, exchange) 档位，
// 而不是数量为 0 的挂单。
type UpdateRecord struct {
	// Exchange 来源交易所标识
	// 显式携带，避免从档位列表推断来源（两侧均为空时无法推断）
	Exchange string `json:"exchange"`
	// Revision 更新序号
	// 同一来源必须严格递增才会被接受，用于拦截乱序/重复数据
	// Binance: lastUpdateId / u 字段
	// Bitstamp: microtimestamp 字段
	Revision uint64 `json:"revision"`
	// Bids 买盘档位更新
	Bids []Quote `json:"bids"`
	// Asks 卖盘档位更新
	Asks []Quote `json:"asks"`
	// ArrivedAtUnixNs 本机收到消息的时间戳（纳秒），用于连接质量统计
	ArrivedAtUnixNs int64 `json:"-"`
}

// SourceExchange 解析记录的来源交易所
// 优先取显式的 Exchange 字段；为空时回退到首个档位的 Exchange。
// 两侧均为空且无显式来源时返回空串，由调用方按 AmbiguousRecord 处理。
func (r *UpdateRecord) SourceExchange() string {
	if r.Exchange != "" {
		return r.Exchange
	}
	if len(r.Bids) > 0 {
		return r.Bids[0].Exchange
	}
	if len(r.Asks) > 0 {
		return r.Asks[0].Exchange
	}
	return ""
}

// Summary 合并订单簿的 Top-N 聚合摘要
// 每次接受一条改变状态的更新后重新产出一份
type Summary struct {
	// Spread 买卖价差（best ask - best bid）
	// 仅在 HasSpread 为 true 时有效
	Spread float64 `json:"spread"`
	// HasSpread 价差是否有效
	// 任一侧无流动性时为 false，此时 Spread 不得当作行情数据使用
	HasSpread bool `json:"has_spread"`
	// Bids 买盘聚合档位（最优价在前，最多 reporting_depth 条）
	Bids []Quote `json:"bids"`
	// Asks 卖盘聚合档位（最优价在前，最多 reporting_depth 条）
	Asks []Quote `json:"asks"`
}
