// Package config 配置模块测试
package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestConfigValidation_ScaleExp 测试比例因子指数验证
// 属性: 指数必须在 [1, 18] 且覆盖报价粒度
func TestConfigValidation_ScaleExp(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	// 属性: 指数超出 [1, 18] 应验证失败
	properties.Property("比例因子指数超出范围应验证失败", prop.ForAll(
		func(exp int) bool {
			cfg := createValidConfig()
			cfg.Book.ScaleExp = exp
			err := cfg.Validate()
			return err != nil
		},
		gen.OneGenOf(
			gen.IntRange(-100, 0),
			gen.IntRange(19, 100),
		),
	))

	// 属性: 比例因子无法覆盖报价粒度应验证失败（键碰撞在配置期拦截）
	properties.Property("比例因子不足报价粒度应验证失败", prop.ForAll(
		func(exp int, extra int) bool {
			cfg := createValidConfig()
			cfg.Book.ScaleExp = exp
			cfg.Book.MaxPriceDecimals = exp + extra
			err := cfg.Validate()
			return err != nil
		},
		gen.IntRange(1, 17),
		gen.IntRange(1, 10),
	))

	// 属性: 指数覆盖报价粒度时应通过验证
	properties.Property("比例因子覆盖报价粒度应通过验证", prop.ForAll(
		func(exp int) bool {
			cfg := createValidConfig()
			cfg.Book.ScaleExp = exp
			cfg.Book.MaxPriceDecimals = exp
			err := cfg.Validate()
			return err == nil
		},
		gen.IntRange(1, 18),
	))

	properties.TestingRun(t)
}

// TestConfigValidation_BookParams 测试订单簿参数验证
func TestConfigValidation_BookParams(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	// 属性: 报告深度非正数应验证失败
	properties.Property("报告深度非正数应验证失败", prop.ForAll(
		func(depth int) bool {
			cfg := createValidConfig()
			cfg.Book.ReportingDepth = depth
			err := cfg.Validate()
			return err != nil
		},
		gen.IntRange(-1000, 0),
	))

	// 属性: 报告深度为正数应通过验证
	properties.Property("报告深度为正数应通过验证", prop.ForAll(
		func(depth int) bool {
			cfg := createValidConfig()
			cfg.Book.ReportingDepth = depth
			err := cfg.Validate()
			return err == nil
		},
		gen.IntRange(1, 1000),
	))

	// 属性: 空交易所列表应验证失败
	properties.Property("空交易所列表应验证失败", prop.ForAll(
		func(_ int) bool {
			cfg := createValidConfig()
			cfg.Book.Exchanges = []string{}
			err := cfg.Validate()
			return err != nil
		},
		gen.Int(),
	))

	// 属性: 无效的未知来源策略应验证失败
	properties.Property("无效未知来源策略应验证失败", prop.ForAll(
		func(policy string) bool {
			if policy == UnknownSourceReject || policy == UnknownSourceRegister {
				return true // 跳过有效值
			}
			cfg := createValidConfig()
			cfg.Book.UnknownSourcePolicy = policy
			err := cfg.Validate()
			return err != nil
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}

// TestConfigValidation_Symbol 测试交易对配置验证
func TestConfigValidation_Symbol(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	// 属性: 空交易对应验证失败
	properties.Property("空交易对应验证失败", prop.ForAll(
		func(_ int) bool {
			cfg := createValidConfig()
			cfg.Symbol = ""
			err := cfg.Validate()
			return err != nil
		},
		gen.Int(),
	))

	// 属性: 有效交易对应通过验证
	properties.Property("有效交易对应通过验证", prop.ForAll(
		func(symbol string) bool {
			if symbol == "" {
				return true // 跳过空字符串
			}
			cfg := createValidConfig()
			cfg.Symbol = symbol
			err := cfg.Validate()
			return err == nil
		},
		gen.AnyString().SuchThat(func(s string) bool { return len(s) > 0 }),
	))

	properties.TestingRun(t)
}

// createValidConfig 创建一个有效的配置用于测试
func createValidConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:     "test",
			LogLevel: "info",
		},
		Symbol: "ethbtc",
		Book: BookConfig{
			ReportingDepth:      10,
			ScaleExp:            9,
			MaxPriceDecimals:    8,
			Exchanges:           []string{"binance", "bitstamp"},
			UnknownSourcePolicy: UnknownSourceReject,
		},
		WS: WSConfig{
			Binance: ExchangeConfig{
				URL:               "wss://stream.binance.com:9443/ws",
				SnapshotURL:       "https://api.binance.com/api/v3/depth?symbol=%s&limit=100",
				ReadTimeoutMs:     30000,
				SnapshotTimeoutMs: 10000,
			},
			Bitstamp: ExchangeConfig{
				URL:               "wss://ws.bitstamp.net",
				SnapshotURL:       "https://www.bitstamp.net/api/v2/order_book/%s/",
				PingIntervalMs:    25000,
				ReadTimeoutMs:     30000,
				SnapshotTimeoutMs: 10000,
			},
		},
		Server: ServerConfig{
			ListenAddr:     "127.0.0.1:5001",
			OutBufferSize:  256,
			WriteTimeoutMs: 5000,
		},
		Output: OutputConfig{
			Dir:              "./output",
			SummariesEnabled: true,
			BufferSize:       1000,
		},
	}
}

// TestLoad_ValidFile 测试从有效文件加载配置
func TestLoad_ValidFile(t *testing.T) {
	content := `
app:
  name: test-aggregator
  log_level: info

symbol: ethbtc

book:
  reporting_depth: 10
  scale_exp: 9
  max_price_decimals: 8
  exchanges:
    - binance
    - bitstamp

ws:
  binance:
    url: wss://stream.binance.com:9443/ws
    snapshot_url: https://api.binance.com/api/v3/depth?symbol=%s&limit=100
    read_timeout_ms: 30000
  bitstamp:
    url: wss://ws.bitstamp.net
    snapshot_url: https://www.bitstamp.net/api/v2/order_book/%s/
    ping_interval_ms: 25000

server:
  listen_addr: 127.0.0.1:5001
  out_buffer_size: 256

output:
  dir: ./output
  summaries_enabled: true
  buffer_size: 1000
`
	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(tmpFile, []byte(content), 0644); err != nil {
		t.Fatalf("创建临时文件失败: %v", err)
	}

	cfg, err := Load(tmpFile)
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}

	// 验证加载的值
	if cfg.App.Name != "test-aggregator" {
		t.Errorf("App.Name = %s, want test-aggregator", cfg.App.Name)
	}
	if cfg.Symbol != "ethbtc" {
		t.Errorf("Symbol = %s, want ethbtc", cfg.Symbol)
	}
	if cfg.Book.ReportingDepth != 10 {
		t.Errorf("Book.ReportingDepth = %d, want 10", cfg.Book.ReportingDepth)
	}
	// 未显式配置的项应填充默认值
	if cfg.Book.UnknownSourcePolicy != UnknownSourceReject {
		t.Errorf("Book.UnknownSourcePolicy = %s, want %s", cfg.Book.UnknownSourcePolicy, UnknownSourceReject)
	}
	if cfg.Server.WriteTimeoutMs != 5000 {
		t.Errorf("Server.WriteTimeoutMs = %d, want 5000", cfg.Server.WriteTimeoutMs)
	}
}

// TestLoad_InvalidFile 测试加载无效文件
func TestLoad_InvalidFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("加载不存在的文件应返回错误")
	}
}

// TestLoad_InvalidYAML 测试加载无效 YAML
func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "invalid.yaml")
	if err := os.WriteFile(tmpFile, []byte("invalid: yaml: content:"), 0644); err != nil {
		t.Fatalf("创建临时文件失败: %v", err)
	}

	_, err := Load(tmpFile)
	if err == nil {
		t.Error("加载无效 YAML 应返回错误")
	}
}

// TestLoad_MissingSymbol 测试缺少交易对的配置
func TestLoad_MissingSymbol(t *testing.T) {
	content := `
ws:
  binance:
    url: wss://stream.binance.com:9443/ws
    snapshot_url: https://api.binance.com/api/v3/depth?symbol=%s&limit=100
  bitstamp:
    url: wss://ws.bitstamp.net
    snapshot_url: https://www.bitstamp.net/api/v2/order_book/%s/
`
	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(tmpFile, []byte(content), 0644); err != nil {
		t.Fatalf("创建临时文件失败: %v", err)
	}

	if _, err := Load(tmpFile); err == nil {
		t.Error("缺少交易对的配置应验证失败")
	}
}
