// keys/keys.go
// 统一的 Key 定义包，供 VM、Token 账本和 DB 模块共同使用
package keys

import (
	"fmt"
	"strings"
)

// ===================== 版本控制 =====================
// 设置全局 Key 版本前缀（例如 "v1" → 产出 "v1_<key>"）。
// 如需兼容旧数据，暂时将 KeyVersion 设为 "" 即可不加版本前缀。
const KeyVersion = "v1"

// withVer 把版本号拼到最前面（保持下划线风格：v1_<...>）
func withVer(s string) string {
	if KeyVersion == "" {
		return s
	}
	return KeyVersion + "_" + s
}

// StripVersion 读取回退辅助：把带版本的键去掉版本前缀，便于双读回退。
func StripVersion(prefixed string) string {
	if KeyVersion == "" {
		return prefixed
	}
	p := KeyVersion + "_"
	return strings.TrimPrefix(prefixed, p)
}

// ===================== 金库相关 =====================

// KeyGlobalState 金库全局单例状态
// 例：v1_vault_state
func KeyGlobalState() string {
	return withVer("vault_state")
}

// ===================== 资产相关 =====================

// KeyToken 资产元数据
// 例：v1_token_<asset>
func KeyToken(asset string) string {
	return withVer("token_" + asset)
}

// KeyTokenPrefix 资产元数据的扫描前缀
func KeyTokenPrefix() string {
	return withVer("token_")
}

// KeyBalance 账户单个资产的余额记录
// 例：v1_balance_<address>_<asset>
func KeyBalance(addr, asset string) string {
	return withVer(fmt.Sprintf("balance_%s_%s", addr, asset))
}

// KeyBalancePrefix 某个地址所有余额记录的扫描前缀
func KeyBalancePrefix(addr string) string {
	return withVer(fmt.Sprintf("balance_%s_", addr))
}

// ===================== 交易相关 =====================

// KeyReceipt 交易回执
// 例：v1_receipt_<txID>
func KeyReceipt(txID string) string {
	return withVer("receipt_" + txID)
}

// KeyReceiptPrefix 回执扫描前缀
func KeyReceiptPrefix() string {
	return withVer("receipt_")
}

// KeyAppliedTx 已执行交易标记（幂等去重）
// 例：v1_applied_<txID>
func KeyAppliedTx(txID string) string {
	return withVer("applied_" + txID)
}

// ===================== 历史流水 =====================

// KeyDepositHistory 存入流水（不可变）
// 例：v1_deposit_history_<txID>
func KeyDepositHistory(txID string) string {
	return withVer("deposit_history_" + txID)
}

// KeyClaimHistory 发放流水（不可变）
// 例：v1_claim_history_<txID>
func KeyClaimHistory(txID string) string {
	return withVer("claim_history_" + txID)
}

// KeyWithdrawHistory 提取流水（不可变）
// 例：v1_withdraw_history_<txID>
func KeyWithdrawHistory(txID string) string {
	return withVer("withdraw_history_" + txID)
}
