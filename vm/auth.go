// vm/auth.go
// 授权守卫：签名者校验 + 托管地址派生校验
// 所有需要管理员权限的操作都经过这里，校验失败一律拒绝
package vm

import (
	"encoding/json"
	"fmt"
	"strings"

	"vaultd/keys"
	"vaultd/token"
	"vaultd/types"
	"vaultd/utils"
)

// CustodyAddress 重新计算金库的托管地址
// 确定性派生：任何一方都能独立算出同一个地址，但没有对应私钥
func CustodyAddress() string {
	return utils.DeriveCustodyAddress(VaultSeed, ProgramID)
}

// CustodyAuthority 构造托管地址的转出权限凭证
// 只应在状态机自己的执行路径里构造，这是金库资金唯一的转出方式
func CustodyAuthority() token.Authority {
	return token.DerivedAuthority(CustodyAddress())
}

// VerifyTxSigner 校验交易签名：恢复出的签名者必须等于 Base.FromAddress
func VerifyTxSigner(tx *types.VaultTx) error {
	base := tx.GetBase()
	if base == nil {
		return ErrNilTx
	}
	if base.FromAddress == "" {
		return fmt.Errorf("%w: missing from_address", ErrUnauthorized)
	}
	if base.Signature == "" {
		return fmt.Errorf("%w: missing signature", ErrUnauthorized)
	}
	if err := utils.VerifySignature(tx.SigningPayload(), base.Signature, base.FromAddress); err != nil {
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return nil
}

// GetGlobalState 读取金库全局状态
func GetGlobalState(sv StateView) (*types.GlobalVaultState, bool, error) {
	data, exists, err := sv.Get(keys.KeyGlobalState())
	if err != nil {
		return nil, false, err
	}
	if !exists || len(data) == 0 {
		return nil, false, nil
	}
	var state types.GlobalVaultState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, false, fmt.Errorf("failed to parse global vault state: %w", err)
	}
	return &state, true, nil
}

// requireAdmin 管理员守卫：金库必须已初始化且调用者是管理员
func requireAdmin(sv StateView, caller string) (*types.GlobalVaultState, error) {
	state, exists, err := GetGlobalState(sv)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNotInitialized
	}
	if !strings.EqualFold(caller, state.Admin) {
		return nil, ErrUnauthorized
	}
	return state, nil
}

// requireCustodyAuthority 托管权限守卫：重新派生托管地址，
// 核对金库资产账户上记录的 Authority 是否一致
func requireCustodyAuthority(sv StateView, asset string) (string, error) {
	custody := CustodyAddress()
	record, err := token.GetAccount(sv, custody, asset)
	if err != nil {
		if err == token.ErrAccountNotFound {
			return "", ErrAccountNotFound
		}
		return "", err
	}
	if !strings.EqualFold(record.Authority, custody) {
		return "", ErrUnauthorized
	}
	return custody, nil
}
