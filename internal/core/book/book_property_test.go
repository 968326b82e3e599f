// Package book 合并引擎属性测试
package book

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"orderbook-aggregator/internal/core/model"
)

// bookOp 属性测试用的随机更新动作
type bookOp struct {
	// Price 档位价格，取有限集合以制造共享价位与删除命中
	Price float64
	// Amount 数量，0 表示删除
	Amount float64
	// IsBid 买盘或卖盘
	IsBid bool
	// ExchangeIdx 来源下标（binance/bitstamp）
	ExchangeIdx int
}

var propExchanges = []string{model.ExchangeBinance, model.ExchangeBitstamp}

// genBookOp 生成随机更新动作
// 价格取 1.0~20.0 的半整数格点，保证删除操作有机会命中已有档位。
func genBookOp() gopter.Gen {
	return gopter.CombineGens(
		gen.IntRange(2, 40),
		gen.Float64Range(0, 5),
		gen.Bool(),
		gen.IntRange(0, 1),
	).Map(func(vals []interface{}) bookOp {
		amount := vals[1].(float64)
		if amount < 0.5 {
			amount = 0 // 折叠为删除指令
		}
		return bookOp{
			Price:       float64(vals[0].(int)) * 0.5,
			Amount:      amount,
			IsBid:       vals[2].(bool),
			ExchangeIdx: vals[3].(int),
		}
	})
}

// applyOps 将动作序列依次应用到新建的订单簿
// 每个动作使用递增序号，保证全部通过新鲜度闸门。
func applyOps(t testingLike, ops []bookOp) *Book {
	seed := snapshotRecord(model.ExchangeBinance, 1,
		[]model.Quote{{Price: 0.5, Amount: 1.0, Exchange: model.ExchangeBinance}},
		[]model.Quote{{Price: 1000.0, Amount: 1.0, Exchange: model.ExchangeBinance}},
	)
	b, err := New(testBookConfig(), seed)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	rev := uint64(2)
	for _, op := range ops {
		ex := propExchanges[op.ExchangeIdx]
		q := model.Quote{Price: op.Price, Amount: op.Amount, Exchange: ex}
		rec := &model.UpdateRecord{Exchange: ex, Revision: rev}
		if op.IsBid {
			rec.Bids = []model.Quote{q}
		} else {
			rec.Asks = []model.Quote{q}
		}
		if _, err := b.Apply(rec); err != nil {
			t.Fatalf("Apply: %v", err)
		}
		rev++
	}
	return b
}

type testingLike interface {
	Fatalf(format string, args ...interface{})
}

// bruteBest 全表扫描求最优价，作为增量维护的对照
func bruteBest(l *Ladder, wantMax bool) (PriceKey, bool) {
	var best PriceKey
	found := false
	l.Ascend(func(key PriceKey, _ map[string]model.Quote) bool {
		if !found {
			best = key
			found = true
		} else if wantMax && key > best {
			best = key
		} else if !wantMax && key < best {
			best = key
		}
		return true
	})
	return best, found
}

func TestBook_BestPrice_Property(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 80
	properties := gopter.NewProperties(parameters)

	properties.Property("增量维护的最优价与全表扫描一致", prop.ForAll(
		func(ops []bookOp) bool {
			b := applyOps(t, ops)

			wantBid, bidOK := bruteBest(b.bids, true)
			wantAsk, askOK := bruteBest(b.asks, false)

			if bidOK != (b.bestBidKey != NoBidKey) {
				return false
			}
			if bidOK && b.bestBidKey != wantBid {
				return false
			}
			if askOK != (b.bestAskKey != NoAskKey) {
				return false
			}
			if askOK && b.bestAskKey != wantAsk {
				return false
			}
			return true
		},
		gen.SliceOfN(60, genBookOp()),
	))

	properties.Property("阶梯中不存在空档位", prop.ForAll(
		func(ops []bookOp) bool {
			b := applyOps(t, ops)

			ok := true
			for _, l := range []*Ladder{b.bids, b.asks} {
				l.Ascend(func(_ PriceKey, quotes map[string]model.Quote) bool {
					if len(quotes) == 0 {
						ok = false
						return false
					}
					return true
				})
			}
			return ok
		},
		gen.SliceOfN(60, genBookOp()),
	))

	properties.TestingRun(t)
}

func TestBook_StaleIdempotence_Property(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 80
	properties := gopter.NewProperties(parameters)

	properties.Property("过期记录重放不改变任何可观察状态", prop.ForAll(
		func(ops []bookOp, replayPrice int, replayAmount float64) bool {
			b := applyOps(t, ops)

			beforeBid, beforeBidOK := b.BestBid()
			beforeAsk, beforeAskOK := b.BestAsk()
			beforeSummary := b.Summary()
			beforeRev, _ := b.LastRevision(model.ExchangeBinance)

			// 序号不大于已接受值，整条必须丢弃
			stale := &model.UpdateRecord{
				Exchange: model.ExchangeBinance,
				Revision: beforeRev,
				Bids: []model.Quote{{
					Price:    float64(replayPrice) * 0.5,
					Amount:   replayAmount,
					Exchange: model.ExchangeBinance,
				}},
			}
			changed, err := b.Apply(stale)
			if err != nil || changed {
				return false
			}

			afterBid, afterBidOK := b.BestBid()
			afterAsk, afterAskOK := b.BestAsk()
			afterSummary := b.Summary()

			if beforeBidOK != afterBidOK || beforeBid != afterBid {
				return false
			}
			if beforeAskOK != afterAskOK || beforeAsk != afterAsk {
				return false
			}
			if len(beforeSummary.Bids) != len(afterSummary.Bids) || len(beforeSummary.Asks) != len(afterSummary.Asks) {
				return false
			}
			return beforeSummary.Spread == afterSummary.Spread && beforeSummary.HasSpread == afterSummary.HasSpread
		},
		gen.SliceOfN(40, genBookOp()),
		gen.IntRange(2, 40),
		gen.Float64Range(0, 5),
	))

	properties.TestingRun(t)
}
