// vm/withdraw_handler.go
// 管理员提取：从金库托管账户转回管理员自己的资产账户
// 与存入对称，方向相反，由托管权限授权转出
package vm

import (
	"encoding/json"
	"fmt"

	"vaultd/keys"
	"vaultd/token"
	"vaultd/types"
)

// WithdrawTxHandler 提取交易处理器
type WithdrawTxHandler struct{}

func (h *WithdrawTxHandler) Kind() string {
	return types.KindWithdraw
}

func (h *WithdrawTxHandler) DryRun(tx *types.VaultTx, sv StateView) ([]WriteOp, *Receipt, error) {
	// 1. 提取WithdrawTx
	withdraw := tx.Withdraw
	if withdraw == nil || tx.Base == nil {
		return nil, &Receipt{
			TxID:   tx.GetTxID(),
			Kind:   types.KindWithdraw,
			Status: StatusFailed,
			Error:  "invalid withdraw transaction",
		}, fmt.Errorf("invalid withdraw transaction")
	}

	// 2. 验证提取金额
	amount, err := token.ParseBalance(withdraw.Amount)
	if err != nil || amount.Sign() <= 0 {
		return nil, &Receipt{
			TxID:   tx.Base.TxID,
			Kind:   types.KindWithdraw,
			Status: StatusFailed,
			Error:  ErrInvalidAmount.Error(),
		}, fmt.Errorf("%w: %s", ErrInvalidAmount, withdraw.Amount)
	}

	snap := sv.Snapshot()

	// 3. 管理员守卫
	state, err := requireAdmin(sv, tx.Base.FromAddress)
	if err != nil {
		return nil, &Receipt{
			TxID:   tx.Base.TxID,
			Kind:   types.KindWithdraw,
			Status: StatusFailed,
			Error:  err.Error(),
		}, err
	}

	// 4. 托管权限守卫
	custody, err := requireCustodyAuthority(sv, state.AssetID)
	if err != nil {
		if err == ErrAccountNotFound {
			err = ErrInsufficientVault
		}
		return nil, &Receipt{
			TxID:   tx.Base.TxID,
			Kind:   types.KindWithdraw,
			Status: StatusFailed,
			Error:  err.Error(),
		}, err
	}

	// 5. 金库账户 -> 管理员账户，托管权限授权
	err = token.Transfer(sv, state.AssetID, custody, tx.Base.FromAddress,
		withdraw.Amount, CustodyAuthority())
	if err != nil {
		_ = sv.Revert(snap)
		if err == token.ErrInsufficientFunds {
			err = ErrInsufficientVault
		}
		return nil, &Receipt{
			TxID:   tx.Base.TxID,
			Kind:   types.KindWithdraw,
			Status: StatusFailed,
			Error:  err.Error(),
		}, err
	}

	// 6. 记录提取流水
	record := &types.TransferRecord{
		TxID:      tx.Base.TxID,
		Kind:      types.KindWithdraw,
		From:      custody,
		To:        tx.Base.FromAddress,
		Asset:     state.AssetID,
		Amount:    withdraw.Amount,
		Timestamp: tx.Base.Timestamp,
	}
	recordData, _ := json.Marshal(record)
	sv.Set(keys.KeyWithdrawHistory(tx.Base.TxID), recordData)

	ws := sv.Diff()
	return ws, &Receipt{
		TxID:       tx.Base.TxID,
		Kind:       types.KindWithdraw,
		Status:     StatusSucceed,
		WriteCount: len(ws),
	}, nil
}
