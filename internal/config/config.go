// Package config 负责加载和验证 YAML 配置文件。
// 提供聚合器所需的所有配置项，包括订单簿参数、交易所连接、服务端设置等。
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// 未知来源策略
const (
	// UnknownSourceReject 拒绝未配置来源的记录（默认）
	UnknownSourceReject = "reject"
	// UnknownSourceRegister 首次收到时注册为合法来源
	UnknownSourceRegister = "register"
)

// Config 应用配置根结构
// 包含所有子模块的配置项
type Config struct {
	// App 应用基础配置
	App AppConfig `yaml:"app"`
	// Symbol 聚合的交易对，如 ethbtc
	// 一个核心实例只处理一个交易对
	Symbol string `yaml:"symbol"`
	// Book 合并订单簿配置
	Book BookConfig `yaml:"book"`
	// WS 各交易所连接配置
	WS WSConfig `yaml:"ws"`
	// Server 流式服务端配置
	Server ServerConfig `yaml:"server"`
	// Output 输出配置
	Output OutputConfig `yaml:"output"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	// Name 应用名称，用于日志标识
	Name string `yaml:"name"`
	// LogLevel 日志级别: debug, info, warn, error
	LogLevel string `yaml:"log_level"`
}

// BookConfig 合并订单簿配置
type BookConfig struct {
	// ReportingDepth 摘要包含的聚合档位数量（N）
	ReportingDepth int `yaml:"reporting_depth"`
	// ScaleExp 价格定点化比例因子指数（比例因子 = 10^scale_exp）
	ScaleExp int `yaml:"scale_exp"`
	// MaxPriceDecimals 上游报价的最大小数位数
	// 比例因子必须至少覆盖该粒度，构造时校验
	MaxPriceDecimals int `yaml:"max_price_decimals"`
	// Exchanges 识别的来源交易所集合
	Exchanges []string `yaml:"exchanges"`
	// UnknownSourcePolicy 未知来源策略: reject 或 register
	UnknownSourcePolicy string `yaml:"unknown_source_policy"`
}

// WSConfig 各交易所连接配置
type WSConfig struct {
	// Binance Binance 连接配置
	Binance ExchangeConfig `yaml:"binance"`
	// Bitstamp Bitstamp 连接配置
	Bitstamp ExchangeConfig `yaml:"bitstamp"`
}

// ExchangeConfig 单个交易所的连接配置
type ExchangeConfig struct {
	// URL WebSocket 连接地址
	URL string `yaml:"url"`
	// SnapshotURL 初始全量快照的 REST 地址模板（%s 为交易对）
	SnapshotURL string `yaml:"snapshot_url"`
	// PingIntervalMs 心跳间隔（毫秒）
	PingIntervalMs int `yaml:"ping_interval_ms"`
	// ReadTimeoutMs 读取超时（毫秒）
	ReadTimeoutMs int `yaml:"read_timeout_ms"`
	// SnapshotTimeoutMs 快照请求超时（毫秒）
	SnapshotTimeoutMs int `yaml:"snapshot_timeout_ms"`
}

// ServerConfig 流式服务端配置
type ServerConfig struct {
	// ListenAddr 监听地址，如 127.0.0.1:5001
	ListenAddr string `yaml:"listen_addr"`
	// OutBufferSize 每个订阅的摘要输出队列长度
	// 消费者过慢时丢弃最旧摘要（背压策略归传输层所有）
	OutBufferSize int `yaml:"out_buffer_size"`
	// WriteTimeoutMs 单条摘要写出超时（毫秒）
	WriteTimeoutMs int `yaml:"write_timeout_ms"`
}

// OutputConfig 输出配置
type OutputConfig struct {
	// Dir 输出目录
	Dir string `yaml:"dir"`
	// SummariesEnabled 是否把发布的摘要追加写入 JSONL 文件（离线复盘用）
	SummariesEnabled bool `yaml:"summaries_enabled"`
	// BufferSize 异步写入缓冲区大小
	BufferSize int `yaml:"buffer_size"`
}

// Load 从文件加载配置并验证
// 参数 path: 配置文件路径
// 返回: 解析后的配置对象，若失败则返回错误
func Load(path string) (*Config, error) {
	// 读取配置文件
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	// 解析 YAML
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	// 设置默认值
	cfg.setDefaults()

	// 验证配置
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("配置验证失败: %w", err)
	}

	return &cfg, nil
}

// setDefaults 设置配置默认值
func (c *Config) setDefaults() {
	// 应用默认值
	if c.App.Name == "" {
		c.App.Name = "orderbook-aggregator"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}

	// 订单簿默认值
	if c.Book.ReportingDepth == 0 {
		c.Book.ReportingDepth = 10
	}
	if c.Book.ScaleExp == 0 {
		c.Book.ScaleExp = 9 // 10^9，覆盖 8 位小数报价
	}
	if c.Book.MaxPriceDecimals == 0 {
		c.Book.MaxPriceDecimals = 8
	}
	if len(c.Book.Exchanges) == 0 {
		c.Book.Exchanges = []string{"binance", "bitstamp"}
	}
	if c.Book.UnknownSourcePolicy == "" {
		c.Book.UnknownSourcePolicy = UnknownSourceReject
	}

	// WebSocket 默认配置
	if c.WS.Binance.ReadTimeoutMs == 0 {
		c.WS.Binance.ReadTimeoutMs = 30000 // 30 秒
	}
	if c.WS.Binance.SnapshotTimeoutMs == 0 {
		c.WS.Binance.SnapshotTimeoutMs = 10000 // 10 秒
	}
	if c.WS.Bitstamp.PingIntervalMs == 0 {
		c.WS.Bitstamp.PingIntervalMs = 25000 // 25 秒
	}
	if c.WS.Bitstamp.ReadTimeoutMs == 0 {
		c.WS.Bitstamp.ReadTimeoutMs = 30000
	}
	if c.WS.Bitstamp.SnapshotTimeoutMs == 0 {
		c.WS.Bitstamp.SnapshotTimeoutMs = 10000
	}

	// 服务端默认值
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = "127.0.0.1:5001"
	}
	if c.Server.OutBufferSize == 0 {
		c.Server.OutBufferSize = 256
	}
	if c.Server.WriteTimeoutMs == 0 {
		c.Server.WriteTimeoutMs = 5000 // 5 秒
	}

	// 输出默认值
	if c.Output.Dir == "" {
		c.Output.Dir = "./output"
	}
	if c.Output.BufferSize == 0 {
		c.Output.BufferSize = 1000
	}
}

// Validate 验证配置合法性
// 检查所有必填项和数值范围
// 返回: 若配置无效则返回描述性错误
func (c *Config) Validate() error {
	var errs []string

	// 验证交易对配置
	if c.Symbol == "" {
		errs = append(errs, "symbol: 交易对不能为空")
	}

	// 验证订单簿配置
	if c.Book.ReportingDepth <= 0 {
		errs = append(errs, "book.reporting_depth: 报告深度必须为正数")
	}
	if c.Book.ScaleExp < 1 || c.Book.ScaleExp > 18 {
		errs = append(errs, fmt.Sprintf("book.scale_exp: 比例因子指数必须在 1-18 之间，当前值: %d", c.Book.ScaleExp))
	}
	if c.Book.MaxPriceDecimals < 0 {
		errs = append(errs, "book.max_price_decimals: 价格小数位数不能为负数")
	}
	if c.Book.ScaleExp >= 1 && c.Book.ScaleExp < c.Book.MaxPriceDecimals {
		errs = append(errs, fmt.Sprintf("book.scale_exp: 比例因子 10^%d 无法覆盖 %d 位小数的报价粒度",
			c.Book.ScaleExp, c.Book.MaxPriceDecimals))
	}
	if len(c.Book.Exchanges) == 0 {
		errs = append(errs, "book.exchanges: 至少需要配置一个来源交易所")
	}
	for i, ex := range c.Book.Exchanges {
		if ex == "" {
			errs = append(errs, fmt.Sprintf("book.exchanges[%d]: 交易所标识不能为空", i))
		}
	}
	switch c.Book.UnknownSourcePolicy {
	case UnknownSourceReject, UnknownSourceRegister:
	default:
		errs = append(errs, fmt.Sprintf("book.unknown_source_policy: 无效的策略 '%s'，有效值: reject, register",
			c.Book.UnknownSourcePolicy))
	}

	// 验证交易所连接配置
	if c.WS.Binance.URL == "" {
		errs = append(errs, "ws.binance.url: Binance WebSocket 地址不能为空")
	}
	if c.WS.Binance.SnapshotURL == "" {
		errs = append(errs, "ws.binance.snapshot_url: Binance 快照地址不能为空")
	}
	if c.WS.Bitstamp.URL == "" {
		errs = append(errs, "ws.bitstamp.url: Bitstamp WebSocket 地址不能为空")
	}
	if c.WS.Bitstamp.SnapshotURL == "" {
		errs = append(errs, "ws.bitstamp.snapshot_url: Bitstamp 快照地址不能为空")
	}

	// 验证服务端配置
	if c.Server.ListenAddr == "" {
		errs = append(errs, "server.listen_addr: 监听地址不能为空")
	}
	if c.Server.OutBufferSize < 0 {
		errs = append(errs, "server.out_buffer_size: 输出队列长度不能为负数")
	}

	// 验证日志级别
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.App.LogLevel)] {
		errs = append(errs, fmt.Sprintf("app.log_level: 无效的日志级别 '%s'，有效值: debug, info, warn, error", c.App.LogLevel))
	}

	if len(errs) > 0 {
		return fmt.Errorf("配置验证错误:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}
