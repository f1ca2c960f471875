package token

import (
	"errors"
	"math/big"
)

// safemath.go 提供带溢出检查的 big.Int 运算
// 用于余额等资产相关的安全运算

var (
	// ErrOverflow 加法溢出错误
	ErrOverflow = errors.New("arithmetic overflow")
	// ErrUnderflow 减法下溢错误（结果为负数）
	ErrUnderflow = errors.New("arithmetic underflow")
	// ErrInvalidBalance 无效的余额格式
	ErrInvalidBalance = errors.New("invalid balance format")
	// ErrBalanceTooLong 余额字符串过长
	ErrBalanceTooLong = errors.New("balance string too long")
	// ErrNegativeBalance 余额不能为负
	ErrNegativeBalance = errors.New("negative balance not allowed")
)

// MaxBalanceStringLen 余额字符串最大长度（78 字符足够表示 2^256-1）
const MaxBalanceStringLen = 78

// MaxUint256 是 256 位无符号整数的最大值，用作余额上限
var MaxUint256 = func() *big.Int {
	max := new(big.Int)
	max.Exp(big.NewInt(2), big.NewInt(256), nil)
	max.Sub(max, big.NewInt(1))
	return max
}()

// SafeAdd 安全加法：a + b
// 如果结果超过 MaxUint256，返回 ErrOverflow
func SafeAdd(a, b *big.Int) (*big.Int, error) {
	if a == nil {
		a = big.NewInt(0)
	}
	if b == nil {
		b = big.NewInt(0)
	}

	if a.Sign() < 0 || b.Sign() < 0 {
		return nil, ErrNegativeBalance
	}

	result := new(big.Int).Add(a, b)

	if result.Cmp(MaxUint256) > 0 {
		return nil, ErrOverflow
	}

	return result, nil
}

// SafeSub 安全减法：a - b
// 如果 a < b，返回 ErrUnderflow
func SafeSub(a, b *big.Int) (*big.Int, error) {
	if a == nil {
		a = big.NewInt(0)
	}
	if b == nil {
		b = big.NewInt(0)
	}

	if a.Sign() < 0 || b.Sign() < 0 {
		return nil, ErrNegativeBalance
	}

	if a.Cmp(b) < 0 {
		return nil, ErrUnderflow
	}

	return new(big.Int).Sub(a, b), nil
}

// ParseBalance 安全解析余额字符串
// 验证：长度上限、纯十进制数字、非负、不超过 MaxUint256
func ParseBalance(s string) (*big.Int, error) {
	// 空字符串视为 0
	if s == "" {
		return big.NewInt(0), nil
	}

	if len(s) > MaxBalanceStringLen {
		return nil, ErrBalanceTooLong
	}

	// 只允许数字（不允许前导负号、空格等）
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return nil, ErrInvalidBalance
		}
	}

	balance, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, ErrInvalidBalance
	}

	if balance.Cmp(MaxUint256) > 0 {
		return nil, ErrOverflow
	}

	return balance, nil
}

// ParseBalanceOrZero 解析余额，失败时返回 0
func ParseBalanceOrZero(s string) *big.Int {
	balance, err := ParseBalance(s)
	if err != nil {
		return big.NewInt(0)
	}
	return balance
}

// ValidateBalance 验证余额字符串是否合法
func ValidateBalance(s string) bool {
	_, err := ParseBalance(s)
	return err == nil
}
