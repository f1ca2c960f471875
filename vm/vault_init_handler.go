// vm/vault_init_handler.go
// 金库初始化：创建全局单例状态，首个成功调用者成为管理员
package vm

import (
	"encoding/json"
	"fmt"

	"vaultd/keys"
	"vaultd/token"
	"vaultd/types"
)

// VaultInitTxHandler 金库初始化交易处理器
type VaultInitTxHandler struct{}

func (h *VaultInitTxHandler) Kind() string {
	return types.KindVaultInit
}

func (h *VaultInitTxHandler) DryRun(tx *types.VaultTx, sv StateView) ([]WriteOp, *Receipt, error) {
	// 1. 提取VaultInitTx
	initTx := tx.VaultInit
	if initTx == nil || tx.Base == nil {
		return nil, &Receipt{
			TxID:   tx.GetTxID(),
			Kind:   types.KindVaultInit,
			Status: StatusFailed,
			Error:  "invalid vault init transaction",
		}, fmt.Errorf("invalid vault init transaction")
	}

	snap := sv.Snapshot()

	// 2. 全局状态必须尚不存在：重复初始化直接失败，无任何副作用
	_, exists, err := GetGlobalState(sv)
	if err != nil {
		return nil, &Receipt{
			TxID:   tx.Base.TxID,
			Kind:   types.KindVaultInit,
			Status: StatusFailed,
			Error:  "read global state failed",
		}, err
	}
	if exists {
		return nil, &Receipt{
			TxID:   tx.Base.TxID,
			Kind:   types.KindVaultInit,
			Status: StatusFailed,
			Error:  ErrAlreadyInitialized.Error(),
		}, ErrAlreadyInitialized
	}

	// 3. 托管的资产必须已经存在
	if _, err := token.GetTokenInfo(sv, initTx.AssetID); err != nil {
		_ = sv.Revert(snap)
		return nil, &Receipt{
			TxID:   tx.Base.TxID,
			Kind:   types.KindVaultInit,
			Status: StatusFailed,
			Error:  fmt.Sprintf("asset not found: %s", initTx.AssetID),
		}, err
	}

	// 4. 写入全局状态：调用者成为管理员
	state := &types.GlobalVaultState{
		Admin:   tx.Base.FromAddress,
		AssetID: initTx.AssetID,
	}
	stateData, err := json.Marshal(state)
	if err != nil {
		_ = sv.Revert(snap)
		return nil, &Receipt{
			TxID:   tx.Base.TxID,
			Kind:   types.KindVaultInit,
			Status: StatusFailed,
			Error:  "failed to marshal global state",
		}, err
	}
	sv.Set(keys.KeyGlobalState(), stateData)

	ws := sv.Diff()
	return ws, &Receipt{
		TxID:       tx.Base.TxID,
		Kind:       types.KindVaultInit,
		Status:     StatusSucceed,
		WriteCount: len(ws),
	}, nil
}
