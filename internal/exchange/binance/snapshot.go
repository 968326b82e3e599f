// Package binance 初始全量快照获取。
package binance

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"orderbook-aggregator/internal/config"
	"orderbook-aggregator/internal/core/model"
)

// FetchSnapshot 通过 REST 获取 Binance 全量深度快照
// 参数 ctx: 上下文，用于取消请求
// 参数 cfg: 交易所连接配置（snapshot_url 含 %s 占位符）
// 参数 symbol: 交易对，如 ethbtc（Binance 要求大写）
func FetchSnapshot(ctx context.Context, cfg *config.ExchangeConfig, symbol string) (*model.UpdateRecord, error) {
	url := fmt.Sprintf(cfg.SnapshotURL, strings.ToUpper(symbol))

	client := &http.Client{
		Timeout: time.Duration(cfg.SnapshotTimeoutMs) * time.Millisecond,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("构造 Binance 快照请求失败: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("请求 Binance 快照失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Binance 快照返回状态码 %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取 Binance 快照响应失败: %w", err)
	}

	return ParseSnapshot(body)
}
