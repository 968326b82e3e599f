// Package book 核心引擎错误分类。
// 所有上游数据引发的错误都是可恢复的类型化结果，核心永不 panic。
package book

import "errors"

var (
	// ErrUnknownExchange 记录来自未配置的交易所
	// 数据契约违规：该记录不会被应用，订阅是否继续由传输层决定。
	ErrUnknownExchange = errors.New("未识别的交易所")

	// ErrAmbiguousRecord 记录两侧档位均为空且无法确定来源
	// 数据契约违规：无来源的记录不应用也不猜测。
	ErrAmbiguousRecord = errors.New("无法确定更新记录的来源")

	// ErrInvalidQuote 记录中包含非法档位（负价格、负数量、非有限数值）
	// 整条记录拒绝，不做部分应用。
	ErrInvalidQuote = errors.New("非法档位")

	// ErrNoSnapshot 构造时没有任何来源产出可用的初始快照
	ErrNoSnapshot = errors.New("没有可用的初始快照")

	// ErrPrecision 比例因子不足以覆盖输入价格粒度
	// 配置错误，构造时即失败，不会在运行时以静默键碰撞出现。
	ErrPrecision = errors.New("价格精度配置不足")

	// ErrConfig 订单簿配置非法
	ErrConfig = errors.New("订单簿配置非法")
)
