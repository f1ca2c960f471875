// keys/category.go
// Key 分类模块：区分可变状态数据和不可变流水数据
package keys

import "strings"

// KeyCategory 定义 Key 的存储归属
type KeyCategory int

const (
	CategoryKV    KeyCategory = iota // 不可变流水/索引
	CategoryState                    // 可变状态
)

// ========== 可变状态数据前缀 ==========
// 这些数据会被后续交易覆盖更新
var statePrefixes = []string{
	"v1_vault_state", // 金库全局状态
	"v1_balance_",    // 账户余额记录
	"v1_token_",      // 资产元数据（总供应量会变化）
}

// ========== 需要排除的历史记录前缀（这些存流水）==========
// 虽然以上述前缀开头，但属于历史记录，不可变
var excludeFromState = []string{
	"v1_token_history_",
}

// CategorizeKey 判断 key 属于哪一类
func CategorizeKey(key string) KeyCategory {
	// 1. 先检查排除列表（历史记录等）
	for _, ex := range excludeFromState {
		if strings.HasPrefix(key, ex) {
			return CategoryKV
		}
	}

	// 2. 检查是否属于状态数据
	for _, prefix := range statePrefixes {
		if strings.HasPrefix(key, prefix) {
			return CategoryState
		}
	}

	// 3. 其他都属于流水
	return CategoryKV
}

// IsStatefulKey 判断 key 是否属于可变状态（便捷方法）
func IsStatefulKey(key string) bool {
	return CategorizeKey(key) == CategoryState
}

// IsBalanceKey 判断是否为余额数据
func IsBalanceKey(key string) bool {
	return strings.HasPrefix(key, "v1_balance_")
}

// IsHistoryKey 判断是否为历史记录
func IsHistoryKey(key string) bool {
	return strings.HasPrefix(key, "v1_deposit_history_") ||
		strings.HasPrefix(key, "v1_claim_history_") ||
		strings.HasPrefix(key, "v1_withdraw_history_")
}

// IsReceiptKey 判断是否为回执数据
func IsReceiptKey(key string) bool {
	return strings.HasPrefix(key, "v1_receipt_")
}
