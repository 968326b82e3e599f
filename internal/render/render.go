// Package render 把聚合摘要渲染为彩色的人类可读文本。
// 纯展示层，不参与核心合并逻辑。
package render

import (
	"strings"

	"github.com/fatih/color"

	"orderbook-aggregator/internal/core/model"
	"orderbook-aggregator/internal/util/fastparse"
)

// Renderer 摘要渲染器
// 卖盘红色、买盘绿色；卖盘倒序打印，使最优卖价紧邻价差行。
type Renderer struct {
	// ask 卖盘着色
	ask *color.Color
	// bid 买盘着色
	bid *color.Color
}

// New 创建摘要渲染器
func New() *Renderer {
	return &Renderer{
		ask: color.New(color.FgRed),
		bid: color.New(color.FgGreen),
	}
}

// Render 渲染一份摘要
// 输出形如：
//
//	asks（最差在上、最优在下，红色）
//	spread: 0.000043
//	bids（最优在上、最差在下，绿色）
//
// 任一侧无流动性时该侧为空，价差无效时打印 n/a 而不是数字。
func (r *Renderer) Render(s *model.Summary) string {
	var b strings.Builder

	for i := len(s.Asks) - 1; i >= 0; i-- {
		q := s.Asks[i]
		b.WriteString(q.Exchange)
		b.WriteString(": ")
		b.WriteString(r.ask.Sprint(fastparse.FormatFloat(q.Price, -1)))
		b.WriteString(" - ")
		b.WriteString(r.ask.Sprint(fastparse.FormatFloat(q.Amount, -1)))
		b.WriteByte('\n')
	}

	b.WriteString("spread: ")
	if s.HasSpread {
		b.WriteString(r.bid.Sprint(fastparse.FormatFloat(s.Spread, -1)))
	} else {
		b.WriteString("n/a")
	}
	b.WriteByte('\n')

	for _, q := range s.Bids {
		b.WriteString(q.Exchange)
		b.WriteString(": ")
		b.WriteString(r.bid.Sprint(fastparse.FormatFloat(q.Price, -1)))
		b.WriteString(" - ")
		b.WriteString(r.bid.Sprint(fastparse.FormatFloat(q.Amount, -1)))
		b.WriteByte('\n')
	}

	return b.String()
}
