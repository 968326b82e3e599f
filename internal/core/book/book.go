// Package book 合并引擎实现。
package book

import (
	"fmt"
	"strings"

	"orderbook-aggregator/internal/config"
	"orderbook-aggregator/internal/core/model"
)

// Book 单交易对的合并订单簿
// 持有买卖两侧价格阶梯、最优价指针和各来源的新鲜度状态。
// 注意：本结构体按单写者设计，由一个订阅任务串行驱动，
// 内部不加锁；跨 goroutine 共享请通过消息或快照传递。
type Book struct {
	// codec 价格/数量编解码器
	codec *Codec
	// bids 买盘阶梯
	bids *Ladder
	// asks 卖盘阶梯
	asks *Ladder

	// bestBidKey 当前买盘最优价格键，空侧为 NoBidKey
	bestBidKey PriceKey
	// bestAskKey 当前卖盘最优价格键，空侧为 NoAskKey
	bestAskKey PriceKey

	// reportingDepth 摘要包含的聚合档位数量（N）
	reportingDepth int

	// recognized 构造时配置的来源集合
	recognized map[string]struct{}
	// lastUpdateIDs 各来源最近一次被接受的更新序号
	// 同一来源单调不减，仅在接受记录后写入
	lastUpdateIDs map[string]uint64
	// registerUnknown 未识别来源的处理策略
	// true: 首次收到时注册为合法来源；false: 按数据契约违规拒绝
	registerUnknown bool
}

// New 从初始快照构造合并订单簿
// 参数 cfg: 订单簿配置（报告深度、比例因子、来源集合、未知来源策略）
// 参数 snapshots: 每个配置来源的初始全量快照
// 没有任何来源产出可用快照时构造失败。
func New(cfg config.BookConfig, snapshots ...*model.UpdateRecord) (*Book, error) {
	codec, err := NewCodec(cfg.ScaleExp)
	if err != nil {
		return nil, err
	}
	if err := codec.Validate(cfg.MaxPriceDecimals); err != nil {
		return nil, err
	}
	if cfg.ReportingDepth <= 0 {
		return nil, fmt.Errorf("%w: 报告深度必须为正数: %d", ErrConfig, cfg.ReportingDepth)
	}
	if len(cfg.Exchanges) == 0 {
		return nil, fmt.Errorf("%w: 至少需要配置一个来源交易所", ErrConfig)
	}

	var registerUnknown bool
	switch cfg.UnknownSourcePolicy {
	case "", config.UnknownSourceReject:
		registerUnknown = false
	case config.UnknownSourceRegister:
		registerUnknown = true
	default:
		return nil, fmt.Errorf("%w: 未知来源策略非法: %s", ErrConfig, cfg.UnknownSourcePolicy)
	}

	b := &Book{
		codec:           codec,
		bids:            NewLadder(),
		asks:            NewLadder(),
		bestBidKey:      NoBidKey,
		bestAskKey:      NoAskKey,
		reportingDepth:  cfg.ReportingDepth,
		recognized:      make(map[string]struct{}, len(cfg.Exchanges)),
		lastUpdateIDs:   make(map[string]uint64, len(cfg.Exchanges)),
		registerUnknown: registerUnknown,
	}
	for _, ex := range cfg.Exchanges {
		b.recognized[ex] = struct{}{}
	}

	usable := 0
	var failures []string
	for _, snap := range snapshots {
		changed, err := b.Apply(snap)
		if err != nil {
			failures = append(failures, err.Error())
			continue
		}
		if changed {
			usable++
		}
	}
	if usable == 0 {
		if len(failures) > 0 {
			return nil, fmt.Errorf("%w: %s", ErrNoSnapshot, strings.Join(failures, "; "))
		}
		return nil, ErrNoSnapshot
	}

	return b, nil
}

// Apply 应用一条归一化更新记录
// 返回 changed: 记录是否被接受且改变了订单簿状态
// 过期记录（序号不大于该来源最近接受值）整条丢弃，
// 作为无操作返回 (false, nil)，不是错误。
// 数据契约违规（未知来源、无来源、非法档位）返回类型化错误，
// 整条记录不应用，订阅可以继续处理后续更新。
func (b *Book) Apply(rec *model.UpdateRecord) (bool, error) {
	if rec == nil {
		return false, ErrAmbiguousRecord
	}
	if len(rec.Bids) == 0 && len(rec.Asks) == 0 {
		return false, ErrAmbiguousRecord
	}
	src := rec.SourceExchange()
	if src == "" {
		return false, ErrAmbiguousRecord
	}

	if _, ok := b.recognized[src]; !ok {
		if !b.registerUnknown {
			return false, fmt.Errorf("%w: %s", ErrUnknownExchange, src)
		}
		b.recognized[src] = struct{}{}
	}

	// 新鲜度闸门：序号必须严格大于该来源最近接受值
	if last, seen := b.lastUpdateIDs[src]; seen && rec.Revision <= last {
		return false, nil
	}

	// 准入前整体校验，保证不发生部分应用
	if err := b.validateQuotes(rec.Bids); err != nil {
		return false, err
	}
	if err := b.validateQuotes(rec.Asks); err != nil {
		return false, err
	}

	b.lastUpdateIDs[src] = rec.Revision

	changed := false
	for _, q := range rec.Bids {
		if b.applyBid(q) {
			changed = true
		}
	}
	for _, q := range rec.Asks {
		if b.applyAsk(q) {
			changed = true
		}
	}
	return changed, nil
}

// validateQuotes 校验一侧的全部档位
func (b *Book) validateQuotes(quotes []model.Quote) error {
	for _, q := range quotes {
		if _, err := b.codec.PriceToKey(q.Price); err != nil {
			return err
		}
		if err := b.codec.ValidateAmount(q.Amount); err != nil {
			return err
		}
	}
	return nil
}

// applyBid 将单个买盘档位合并进买盘阶梯
// 返回是否发生了状态变更
func (b *Book) applyBid(q model.Quote) bool {
	key, _ := b.codec.PriceToKey(q.Price) // 准入阶段已校验

	if b.codec.IsZeroAmount(q.Amount) {
		removed, emptied := b.bids.Remove(key, q.Exchange)
		if emptied && key == b.bestBidKey {
			// 最优档被清空，向低价方向回退到下一个有挂单的档位
			if next, ok := b.bids.Max(); ok {
				b.bestBidKey = next
			} else {
				b.bestBidKey = NoBidKey
			}
		}
		return removed
	}

	b.bids.Upsert(key, q)
	if b.bestBidKey == NoBidKey || key > b.bestBidKey {
		b.bestBidKey = key
	}
	return true
}

// applyAsk 将单个卖盘档位合并进卖盘阶梯
// 与 applyBid 对称
func (b *Book) applyAsk(q model.Quote) bool {
	key, _ := b.codec.PriceToKey(q.Price)

	if b.codec.IsZeroAmount(q.Amount) {
		removed, emptied := b.asks.Remove(key, q.Exchange)
		if emptied && key == b.bestAskKey {
			// 最优档被清空，向高价方向回退到下一个有挂单的档位
			if next, ok := b.asks.Min(); ok {
				b.bestAskKey = next
			} else {
				b.bestAskKey = NoAskKey
			}
		}
		return removed
	}

	b.asks.Upsert(key, q)
	if b.bestAskKey == NoAskKey || key < b.bestAskKey {
		b.bestAskKey = key
	}
	return true
}

// BestBid 获取买盘最优价
// 买盘无流动性时返回 (0, false)
func (b *Book) BestBid() (float64, bool) {
	if b.bestBidKey == NoBidKey {
		return 0, false
	}
	return b.codec.KeyToPrice(b.bestBidKey), true
}

// BestAsk 获取卖盘最优价
// 卖盘无流动性时返回 (0, false)
func (b *Book) BestAsk() (float64, bool) {
	if b.bestAskKey == NoAskKey {
		return 0, false
	}
	return b.codec.KeyToPrice(b.bestAskKey), true
}

// LastRevision 获取某来源最近一次被接受的更新序号
// 该来源尚未被接受过任何记录时返回 (0, false)
func (b *Book) LastRevision(exchange string) (uint64, bool) {
	rev, ok := b.lastUpdateIDs[exchange]
	return rev, ok
}

// ReportingDepth 获取摘要的聚合档位数量
func (b *Book) ReportingDepth() int {
	return b.reportingDepth
}
