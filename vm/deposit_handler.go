// vm/deposit_handler.go
// 管理员存入：从管理员资产账户转入金库托管账户
// 普通的持有人签名转账，不走托管权限
package vm

import (
	"encoding/json"
	"fmt"

	"vaultd/keys"
	"vaultd/token"
	"vaultd/types"
)

// DepositTxHandler 存入交易处理器
type DepositTxHandler struct{}

func (h *DepositTxHandler) Kind() string {
	return types.KindDeposit
}

func (h *DepositTxHandler) DryRun(tx *types.VaultTx, sv StateView) ([]WriteOp, *Receipt, error) {
	// 1. 提取DepositTx
	deposit := tx.Deposit
	if deposit == nil || tx.Base == nil {
		return nil, &Receipt{
			TxID:   tx.GetTxID(),
			Kind:   types.KindDeposit,
			Status: StatusFailed,
			Error:  "invalid deposit transaction",
		}, fmt.Errorf("invalid deposit transaction")
	}

	// 2. 验证存入金额
	amount, err := token.ParseBalance(deposit.Amount)
	if err != nil || amount.Sign() <= 0 {
		return nil, &Receipt{
			TxID:   tx.Base.TxID,
			Kind:   types.KindDeposit,
			Status: StatusFailed,
			Error:  ErrInvalidAmount.Error(),
		}, fmt.Errorf("%w: %s", ErrInvalidAmount, deposit.Amount)
	}

	snap := sv.Snapshot()

	// 3. 管理员守卫
	state, err := requireAdmin(sv, tx.Base.FromAddress)
	if err != nil {
		return nil, &Receipt{
			TxID:   tx.Base.TxID,
			Kind:   types.KindDeposit,
			Status: StatusFailed,
			Error:  err.Error(),
		}, err
	}

	// 4. 金库托管账户首次存入时创建，Authority 绑定托管地址
	custody := CustodyAddress()
	if _, err := token.CreateAccount(sv, custody, state.AssetID, custody); err != nil {
		_ = sv.Revert(snap)
		return nil, &Receipt{
			TxID:   tx.Base.TxID,
			Kind:   types.KindDeposit,
			Status: StatusFailed,
			Error:  "failed to create vault asset account",
		}, err
	}

	// 5. 管理员账户 -> 金库账户，管理员本人签名授权
	err = token.Transfer(sv, state.AssetID, tx.Base.FromAddress, custody,
		deposit.Amount, token.SignerAuthority(tx.Base.FromAddress))
	if err != nil {
		_ = sv.Revert(snap)
		reason := "transfer failed"
		switch err {
		case token.ErrInsufficientFunds:
			reason = "insufficient funds in admin account"
		case token.ErrAccountNotFound:
			reason = ErrAccountNotFound.Error()
		}
		return nil, &Receipt{
			TxID:   tx.Base.TxID,
			Kind:   types.KindDeposit,
			Status: StatusFailed,
			Error:  reason,
		}, err
	}

	// 6. 记录存入流水
	record := &types.TransferRecord{
		TxID:      tx.Base.TxID,
		Kind:      types.KindDeposit,
		From:      tx.Base.FromAddress,
		To:        custody,
		Asset:     state.AssetID,
		Amount:    deposit.Amount,
		Timestamp: tx.Base.Timestamp,
	}
	recordData, _ := json.Marshal(record)
	sv.Set(keys.KeyDepositHistory(tx.Base.TxID), recordData)

	ws := sv.Diff()
	return ws, &Receipt{
		TxID:       tx.Base.TxID,
		Kind:       types.KindDeposit,
		Status:     StatusSucceed,
		WriteCount: len(ws),
	}, nil
}
