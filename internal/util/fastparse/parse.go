// Package fastparse 提供高性能的字符串解析函数。
// 避免在热路径使用 fmt.Sprintf，使用 strconv 进行转换。
// 主要用于解析交易所消息中的价格、数量和更新序号字段。
package fastparse

import (
	"strconv"
)

// ParseFloat 快速解析浮点数字符串
// 使用 strconv.ParseFloat 实现，避免 fmt 包的额外开销
// 参数 s: 待解析的字符串，如 "12345.67"
// 返回: 解析后的浮点数和可能的错误
func ParseFloat(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}

// ParseUint 快速解析无符号整数字符串
// 用于解析更新序号等非负整数
// 参数 s: 待解析的字符串
// 返回: 解析后的无符号整数和可能的错误
func ParseUint(s string) (uint64, error) {
	return strconv.ParseUint(s, 10, 64)
}

// FormatFloat 格式化浮点数为字符串
// 使用 strconv.FormatFloat 实现，避免 fmt.Sprintf 开销
// 参数 f: 待格式化的浮点数
// 参数 prec: 小数位数，-1 表示最短表示
// 返回: 格式化后的字符串
func FormatFloat(f float64, prec int) string {
	return strconv.FormatFloat(f, 'f', prec, 64)
}
