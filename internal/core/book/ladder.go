// Package book 价格阶梯实现。
package book

import (
	"github.com/google/btree"

	"orderbook-aggregator/internal/core/model"
)

// level 单个价格档位：同一价格上各交易所的挂单集合
type level struct {
	// key 定点价格键
	key PriceKey
	// quotes 按交易所索引的挂单
	quotes map[string]model.Quote
}

// Ladder 单侧价格阶梯
// 定点价格键到各交易所挂单的有序映射。底层用 B 树保存档位，
// 最优价回退时只需从被删档位向外走相邻节点，不做全表扫描。
// 档位在最后一笔挂单删除时立即摘除，因此树中不存在空档位：
// “空档位等价于不存在”的不变量由摘除策略直接保证。
type Ladder struct {
	// levels 按价格键升序的档位树
	levels *btree.BTreeG[*level]
}

// NewLadder 创建价格阶梯
func NewLadder() *Ladder {
	return &Ladder{
		levels: btree.NewG(8, func(a, b *level) bool { return a.key < b.key }),
	}
}

// Upsert 插入或覆盖 (key, exchange) 档位挂单
// 返回该价格档位是否为新建档位
func (l *Ladder) Upsert(key PriceKey, q model.Quote) bool {
	probe := &level{key: key}
	lv, ok := l.levels.Get(probe)
	if !ok {
		lv = &level{key: key, quotes: make(map[string]model.Quote, 2)}
		l.levels.ReplaceOrInsert(lv)
	}
	lv.quotes[q.Exchange] = q
	return !ok
}

// Remove 删除 (key, exchange) 档位挂单
// 返回 removed: 是否确实删除了挂单
// 返回 emptied: 删除后该价格档位是否被清空（档位已从树中摘除）
func (l *Ladder) Remove(key PriceKey, exchange string) (removed, emptied bool) {
	probe := &level{key: key}
	lv, ok := l.levels.Get(probe)
	if !ok {
		return false, false
	}
	if _, ok := lv.quotes[exchange]; !ok {
		return false, false
	}
	delete(lv.quotes, exchange)
	if len(lv.quotes) == 0 {
		l.levels.Delete(probe)
		return true, true
	}
	return true, false
}

// Max 获取最高价格键（买盘最优价）
func (l *Ladder) Max() (PriceKey, bool) {
	lv, ok := l.levels.Max()
	if !ok {
		return 0, false
	}
	return lv.key, true
}

// Min 获取最低价格键（卖盘最优价）
func (l *Ladder) Min() (PriceKey, bool) {
	lv, ok := l.levels.Min()
	if !ok {
		return 0, false
	}
	return lv.key, true
}

// Len 获取档位数量
func (l *Ladder) Len() int {
	return l.levels.Len()
}

// QuotesAt 获取某价格档位的挂单快照
// 返回拷贝，调用方可安全持有
func (l *Ladder) QuotesAt(key PriceKey) []model.Quote {
	lv, ok := l.levels.Get(&level{key: key})
	if !ok {
		return nil
	}
	out := make([]model.Quote, 0, len(lv.quotes))
	for _, q := range lv.quotes {
		out = append(out, q)
	}
	return out
}

// Ascend 按价格升序遍历档位（卖盘自最优向外）
// fn 返回 false 时停止遍历
func (l *Ladder) Ascend(fn func(key PriceKey, quotes map[string]model.Quote) bool) {
	l.levels.Ascend(func(lv *level) bool {
		return fn(lv.key, lv.quotes)
	})
}

// Descend 按价格降序遍历档位（买盘自最优向外）
// fn 返回 false 时停止遍历
func (l *Ladder) Descend(fn func(key PriceKey, quotes map[string]model.Quote) bool) {
	l.levels.Descend(func(lv *level) bool {
		return fn(lv.key, lv.quotes)
	})
}
