// Package timeutil 提供时间相关的工具函数。
// 主要用于获取高精度到达时间戳，用于连接质量统计和事件记录。
package timeutil

import (
	"time"
)

var (
	// baseTime 基准时间点（包含单调时钟读数）
	baseTime = time.Now()
	// baseUnixNs 基准时间点对应的 Unix 纳秒时间戳
	baseUnixNs = baseTime.UnixNano()
)

// NowNano 获取当前时间的纳秒时间戳
// 使用“单调时钟 + 启动时 Unix 时间”组合实现：
// NowNano = baseUnixNs + time.Since(baseTime).Nanoseconds()
// 这样在系统时间跳变（NTP/手动调整）时也能保持时间差的单调性，
// 避免污染消息到达间隔统计。
// 返回: 当前时间的 Unix 纳秒时间戳
func NowNano() int64 {
	return baseUnixNs + time.Since(baseTime).Nanoseconds()
}

// NanoToMs 将纳秒时间戳转换为毫秒
// 用于连接指标中的消息年龄换算
// 参数 ns: 纳秒时间戳
// 返回: 毫秒时间戳
func NanoToMs(ns int64) int64 {
	return ns / 1_000_000
}
