// Package book 实现多交易所合并订单簿的核心引擎。
// 包含价格/数量编解码、价格阶梯、合并引擎和摘要投影。
package book

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// PriceKey 价格的定点整数键
// 由十进制价格乘以固定比例因子后截断得到，仅用于排序和查找，
// 不用于展示。数值相等的两个价格必须映射到同一个键。
type PriceKey uint64

const (
	// NoBidKey 买盘无流动性哨兵值
	NoBidKey PriceKey = 0
	// NoAskKey 卖盘无流动性哨兵值
	NoAskKey PriceKey = math.MaxUint64
)

// Codec 价格/数量编解码器
// 将浮点价格转换为稳定、无碰撞的整数键，隔离所有浮点精度问题。
// 纯函数集合，除输入校验外无失败路径。
type Codec struct {
	// scaleExp 比例因子指数（比例因子 = 10^scaleExp）
	scaleExp int32
	// scale 比例因子的 decimal 表示
	scale decimal.Decimal
}

// NewCodec 创建编解码器
// 参数 scaleExp: 比例因子指数，如 9 表示 10^9
// 指数须在 [1, 18] 内，否则定点键可能溢出 uint64
func NewCodec(scaleExp int) (*Codec, error) {
	if scaleExp < 1 || scaleExp > 18 {
		return nil, fmt.Errorf("%w: 比例因子指数 %d 超出范围 [1, 18]", ErrPrecision, scaleExp)
	}
	return &Codec{
		scaleExp: int32(scaleExp),
		scale:    decimal.New(1, int32(scaleExp)),
	}, nil
}

// Validate 校验比例因子能否覆盖输入价格的精度
// 参数 maxPriceDecimals: 上游交易所报价的最大小数位数
// 比例因子不足时不同价格会被静默合并为同一个键，
// 这是配置错误，必须在构造时拦截而不是运行时发现。
func (c *Codec) Validate(maxPriceDecimals int) error {
	if maxPriceDecimals < 0 {
		return fmt.Errorf("%w: 价格小数位数不能为负数: %d", ErrPrecision, maxPriceDecimals)
	}
	if int(c.scaleExp) < maxPriceDecimals {
		return fmt.Errorf("%w: 比例因子 10^%d 无法解析 %d 位小数的价格粒度",
			ErrPrecision, c.scaleExp, maxPriceDecimals)
	}
	return nil
}

// PriceToKey 将十进制价格转换为定点整数键
// 计算方式: truncate(price * 10^scaleExp)
// 使用 decimal 进行缩放，避免浮点乘法在截断边界产生偏差。
// 拒绝非正数、NaN、Inf 以及缩放后溢出 uint64 的价格。
func (c *Codec) PriceToKey(price float64) (PriceKey, error) {
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return 0, fmt.Errorf("%w: 价格不是有限数值: %v", ErrInvalidQuote, price)
	}
	if price <= 0 {
		return 0, fmt.Errorf("%w: 价格必须为正数: %v", ErrInvalidQuote, price)
	}

	scaled := decimal.NewFromFloat(price).Mul(c.scale).Truncate(0)
	if !scaled.BigInt().IsUint64() {
		return 0, fmt.Errorf("%w: 价格 %v 缩放后超出键空间", ErrInvalidQuote, price)
	}

	key := PriceKey(scaled.BigInt().Uint64())
	if key == NoBidKey || key == NoAskKey {
		// 键等于哨兵值时无法与“无流动性”区分
		// key 为 0 意味着价格低于 1/scale，属于精度不足
		return 0, fmt.Errorf("%w: 价格 %v 映射到保留键，比例因子无法解析该价格", ErrInvalidQuote, price)
	}
	return key, nil
}

// KeyToPrice 将定点整数键还原为十进制价格
// 计算方式: key / 10^scaleExp
func (c *Codec) KeyToPrice(key PriceKey) float64 {
	f, _ := c.KeyToDecimal(key).Float64()
	return f
}

// KeyToDecimal 将定点整数键还原为 decimal 价格
// 价差等需要精确减法的场合使用
func (c *Codec) KeyToDecimal(key PriceKey) decimal.Decimal {
	return decimal.NewFromUint64(uint64(key)).Shift(-c.scaleExp)
}

// IsZeroAmount 精确判断数量是否为零
// 使用 decimal 的精确零测试而不是 epsilon 比较：
// 0.00000001 永远不会被当作零，只有精确的零才触发删除语义。
func (c *Codec) IsZeroAmount(amount float64) bool {
	return decimal.NewFromFloat(amount).IsZero()
}

// ValidateAmount 校验数量合法性
// 拒绝负数、NaN、Inf；零是合法的（删除指令）。
func (c *Codec) ValidateAmount(amount float64) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return fmt.Errorf("%w: 数量不是有限数值: %v", ErrInvalidQuote, amount)
	}
	if amount < 0 {
		return fmt.Errorf("%w: 数量不能为负数: %v", ErrInvalidQuote, amount)
	}
	return nil
}

// ScaleExp 获取比例因子指数
func (c *Codec) ScaleExp() int {
	return int(c.scaleExp)
}
