// Package model 核心数据结构测试
package model

import "testing"

func TestUpdateRecord_SourceExchange(t *testing.T) {
	tests := []struct {
		name string
		rec  UpdateRecord
		want string
	}{
		{
			name: "显式来源优先",
			rec: UpdateRecord{
				Exchange: ExchangeBinance,
				Bids:     []Quote{{Price: 1, Amount: 1, Exchange: ExchangeBitstamp}},
			},
			want: ExchangeBinance,
		},
		{
			name: "回退到首个买盘档位",
			rec: UpdateRecord{
				Bids: []Quote{{Price: 1, Amount: 1, Exchange: ExchangeBitstamp}},
			},
			want: ExchangeBitstamp,
		},
		{
			name: "回退到首个卖盘档位",
			rec: UpdateRecord{
				Asks: []Quote{{Price: 1, Amount: 1, Exchange: ExchangeBinance}},
			},
			want: ExchangeBinance,
		},
		{
			name: "无法判定来源",
			rec:  UpdateRecord{Revision: 5},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rec.SourceExchange(); got != tt.want {
				t.Errorf("SourceExchange() = %q, want %q", got, tt.want)
			}
		})
	}
}
