// Package book 摘要投影实现。
package book

import (
	"sort"

	"orderbook-aggregator/internal/core/model"
)

// Summary 将当前合并状态投影为 Top-N 聚合摘要
// 卖盘从最优价升序向外、买盘从最优价降序向外遍历；
// 同一价格档位上多个交易所的挂单按数量降序排列（数量相同按
// 交易所名升序，保证确定性），两侧各截断到报告深度。
// 任一侧无流动性时该侧列表为空且 HasSpread 为 false，
// 绝不用默认数值伪造价差。
func (b *Book) Summary() *model.Summary {
	s := &model.Summary{
		Bids: b.collectLevels(b.bids.Descend),
		Asks: b.collectLevels(b.asks.Ascend),
	}

	if b.bestBidKey != NoBidKey && b.bestAskKey != NoAskKey {
		spread, _ := b.codec.KeyToDecimal(b.bestAskKey).
			Sub(b.codec.KeyToDecimal(b.bestBidKey)).Float64()
		s.Spread = spread
		s.HasSpread = true
	}
	return s
}

// collectLevels 沿给定遍历方向收集至多 reportingDepth 条聚合档位
// 档位数不足报告深度时返回现有档位，不是错误。
func (b *Book) collectLevels(traverse func(fn func(PriceKey, map[string]model.Quote) bool)) []model.Quote {
	selected := make([]model.Quote, 0, b.reportingDepth)

	traverse(func(_ PriceKey, quotes map[string]model.Quote) bool {
		sorted := make([]model.Quote, 0, len(quotes))
		for _, q := range quotes {
			sorted = append(sorted, q)
		}
		// 同价档位的展示平局规则：数量大者在前
		sort.Slice(sorted, func(i, j int) bool {
			if sorted[i].Amount != sorted[j].Amount {
				return sorted[i].Amount > sorted[j].Amount
			}
			return sorted[i].Exchange < sorted[j].Exchange
		})

		for _, q := range sorted {
			selected = append(selected, q)
			if len(selected) == b.reportingDepth {
				return false
			}
		}
		return true
	})

	return selected
}
