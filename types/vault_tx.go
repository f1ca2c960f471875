package types

import (
	"fmt"
	"strings"
)

// ========== 交易类型常量 ==========

const (
	KindVaultInit = "vault_init" // 初始化金库
	KindDeposit   = "deposit"    // 管理员存入
	KindClaim     = "claim"      // 发放给用户
	KindWithdraw  = "withdraw"   // 管理员提取
)

// TxBase 交易公共字段
type TxBase struct {
	TxID        string `json:"tx_id"`
	FromAddress string `json:"from_address"`
	Signature   string `json:"signature,omitempty"` // 65字节可恢复签名的hex编码
	Timestamp   int64  `json:"timestamp,omitempty"`
}

// VaultInitTx 初始化金库：首个调用者成为管理员
type VaultInitTx struct {
	AssetID string `json:"asset_id"` // 托管的资产地址
}

// DepositTx 管理员向金库存入资产
type DepositTx struct {
	Amount string `json:"amount"` // 基础单位的十进制字符串
}

// ClaimTx 从金库发放资产给目标用户
type ClaimTx struct {
	Amount     string `json:"amount"`
	TargetUser string `json:"target_user"` // 接收地址
}

// WithdrawTx 管理员从金库提取资产
type WithdrawTx struct {
	Amount string `json:"amount"`
}

// VaultTx 交易封皮：Kind 标识类型，内容字段填其一
type VaultTx struct {
	Kind      string       `json:"kind"`
	Base      *TxBase      `json:"base"`
	VaultInit *VaultInitTx `json:"vault_init,omitempty"`
	Deposit   *DepositTx   `json:"deposit,omitempty"`
	Claim     *ClaimTx     `json:"claim,omitempty"`
	Withdraw  *WithdrawTx  `json:"withdraw,omitempty"`
}

// GetBase 获取公共字段
func (tx *VaultTx) GetBase() *TxBase {
	if tx == nil {
		return nil
	}
	return tx.Base
}

// GetTxID 获取交易ID
func (tx *VaultTx) GetTxID() string {
	if tx == nil || tx.Base == nil {
		return ""
	}
	return tx.Base.TxID
}

// GetKind 获取交易类型：优先看 Kind 字段，否则按内容字段推断
func (tx *VaultTx) GetKind() string {
	if tx == nil {
		return ""
	}
	if tx.Kind != "" {
		return tx.Kind
	}
	switch {
	case tx.VaultInit != nil:
		return KindVaultInit
	case tx.Deposit != nil:
		return KindDeposit
	case tx.Claim != nil:
		return KindClaim
	case tx.Withdraw != nil:
		return KindWithdraw
	}
	return ""
}

// SigningPayload 构造参与签名的规范化字符串
// 字段顺序固定：kind|tx_id|from|timestamp|业务字段...
// 签名覆盖全部业务语义，避免同一签名被挪用到别的交易内容上
func (tx *VaultTx) SigningPayload() string {
	if tx == nil || tx.Base == nil {
		return ""
	}
	parts := []string{
		tx.GetKind(),
		tx.Base.TxID,
		tx.Base.FromAddress,
		fmt.Sprintf("%d", tx.Base.Timestamp),
	}
	switch tx.GetKind() {
	case KindVaultInit:
		if tx.VaultInit != nil {
			parts = append(parts, tx.VaultInit.AssetID)
		}
	case KindDeposit:
		if tx.Deposit != nil {
			parts = append(parts, tx.Deposit.Amount)
		}
	case KindClaim:
		if tx.Claim != nil {
			parts = append(parts, tx.Claim.Amount, tx.Claim.TargetUser)
		}
	case KindWithdraw:
		if tx.Withdraw != nil {
			parts = append(parts, tx.Withdraw.Amount)
		}
	}
	return strings.Join(parts, "|")
}
