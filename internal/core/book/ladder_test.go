package book

import (
	"testing"

	"orderbook-aggregator/internal/core/model"
)

func TestLadder_UpsertRemove(t *testing.T) {
	l := NewLadder()

	if isNew := l.Upsert(100, model.Quote{Price: 1.0, Amount: 2.0, Exchange: "binance"}); !isNew {
		t.Fatalf("首次写入应创建新价位")
	}
	if isNew := l.Upsert(100, model.Quote{Price: 1.0, Amount: 3.0, Exchange: "binance"}); isNew {
		t.Fatalf("同交易所覆盖不应创建新价位")
	}
	if isNew := l.Upsert(100, model.Quote{Price: 1.0, Amount: 1.0, Exchange: "bitstamp"}); isNew {
		t.Fatalf("同价位第二个交易所不应创建新价位")
	}

	quotes := l.QuotesAt(100)
	if len(quotes) != 2 {
		t.Fatalf("价位报价数 = %d, want 2", len(quotes))
	}

	removed, emptied := l.Remove(100, "binance")
	if !removed || emptied {
		t.Fatalf("Remove(binance) = (%v, %v), want (true, false)", removed, emptied)
	}
	removed, emptied = l.Remove(100, "bitstamp")
	if !removed || !emptied {
		t.Fatalf("Remove(bitstamp) = (%v, %v), want (true, true)", removed, emptied)
	}

	// 清空后价位必须从树中摘除
	if l.Len() != 0 {
		t.Fatalf("清空后 Len = %d, want 0", l.Len())
	}
	if _, ok := l.Max(); ok {
		t.Fatalf("空梯子不应有最大键")
	}
}

func TestLadder_RemoveAbsent(t *testing.T) {
	l := NewLadder()
	l.Upsert(100, model.Quote{Price: 1.0, Amount: 2.0, Exchange: "binance"})

	if removed, _ := l.Remove(100, "bitstamp"); removed {
		t.Fatalf("删除不存在的交易所报价应返回 false")
	}
	if removed, _ := l.Remove(200, "binance"); removed {
		t.Fatalf("删除不存在的价位应返回 false")
	}
	if l.Len() != 1 {
		t.Fatalf("Len = %d, want 1", l.Len())
	}
}

func TestLadder_Order(t *testing.T) {
	l := NewLadder()
	for _, key := range []PriceKey{500, 100, 300, 200, 400} {
		l.Upsert(key, model.Quote{Price: float64(key), Amount: 1, Exchange: "binance"})
	}

	if max, _ := l.Max(); max != 500 {
		t.Fatalf("Max = %d, want 500", max)
	}
	if min, _ := l.Min(); min != 100 {
		t.Fatalf("Min = %d, want 100", min)
	}

	var asc []PriceKey
	l.Ascend(func(key PriceKey, _ map[string]model.Quote) bool {
		asc = append(asc, key)
		return true
	})
	want := []PriceKey{100, 200, 300, 400, 500}
	for i, key := range want {
		if asc[i] != key {
			t.Fatalf("升序遍历[%d] = %d, want %d", i, asc[i], key)
		}
	}

	var desc []PriceKey
	l.Descend(func(key PriceKey, _ map[string]model.Quote) bool {
		desc = append(desc, key)
		return len(desc) < 3
	})
	if len(desc) != 3 || desc[0] != 500 || desc[2] != 300 {
		t.Fatalf("降序遍历提前终止失败: %v", desc)
	}
}
