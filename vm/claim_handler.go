// vm/claim_handler.go
// 发放：从金库托管账户转给目标用户，由托管权限授权
//
// 注意授权模型：该操作不做管理员校验——任何签名有效的调用者都可以
// 触发一笔金库到任意用户的发放，金额上限只有金库余额本身。
// 这是对观察到的链上行为的忠实保留；若要收紧，只需在这个
// Handler 里加管理员联署或按用户的配额记录，其余状态机不用动。
package vm

import (
	"encoding/json"
	"fmt"

	"vaultd/keys"
	"vaultd/token"
	"vaultd/types"
	"vaultd/utils"
)

// ClaimTxHandler 发放交易处理器
type ClaimTxHandler struct{}

func (h *ClaimTxHandler) Kind() string {
	return types.KindClaim
}

func (h *ClaimTxHandler) DryRun(tx *types.VaultTx, sv StateView) ([]WriteOp, *Receipt, error) {
	// 1. 提取ClaimTx
	claim := tx.Claim
	if claim == nil || tx.Base == nil {
		return nil, &Receipt{
			TxID:   tx.GetTxID(),
			Kind:   types.KindClaim,
			Status: StatusFailed,
			Error:  "invalid claim transaction",
		}, fmt.Errorf("invalid claim transaction")
	}

	// 2. 验证金额和目标地址
	amount, err := token.ParseBalance(claim.Amount)
	if err != nil || amount.Sign() <= 0 {
		return nil, &Receipt{
			TxID:   tx.Base.TxID,
			Kind:   types.KindClaim,
			Status: StatusFailed,
			Error:  ErrInvalidAmount.Error(),
		}, fmt.Errorf("%w: %s", ErrInvalidAmount, claim.Amount)
	}
	if !utils.IsHexAddress(claim.TargetUser) {
		return nil, &Receipt{
			TxID:   tx.Base.TxID,
			Kind:   types.KindClaim,
			Status: StatusFailed,
			Error:  "invalid target user address",
		}, fmt.Errorf("invalid target user address: %s", claim.TargetUser)
	}

	snap := sv.Snapshot()

	// 3. 金库必须已初始化
	state, exists, err := GetGlobalState(sv)
	if err != nil {
		return nil, &Receipt{
			TxID:   tx.Base.TxID,
			Kind:   types.KindClaim,
			Status: StatusFailed,
			Error:  "read global state failed",
		}, err
	}
	if !exists {
		return nil, &Receipt{
			TxID:   tx.Base.TxID,
			Kind:   types.KindClaim,
			Status: StatusFailed,
			Error:  ErrNotInitialized.Error(),
		}, ErrNotInitialized
	}

	// 4. 托管权限守卫：金库账户必须存在且 Authority 与派生地址一致
	custody, err := requireCustodyAuthority(sv, state.AssetID)
	if err != nil {
		if err == ErrAccountNotFound {
			// 金库账户还没建立过，等价于余额不足
			err = ErrInsufficientVault
		}
		return nil, &Receipt{
			TxID:   tx.Base.TxID,
			Kind:   types.KindClaim,
			Status: StatusFailed,
			Error:  err.Error(),
		}, err
	}

	// 5. 金库账户 -> 用户账户，托管权限授权；用户账户首次发放时创建
	err = token.Transfer(sv, state.AssetID, custody, claim.TargetUser,
		claim.Amount, CustodyAuthority())
	if err != nil {
		_ = sv.Revert(snap)
		if err == token.ErrInsufficientFunds {
			err = ErrInsufficientVault
		}
		return nil, &Receipt{
			TxID:   tx.Base.TxID,
			Kind:   types.KindClaim,
			Status: StatusFailed,
			Error:  err.Error(),
		}, err
	}

	// 6. 记录发放流水
	record := &types.TransferRecord{
		TxID:      tx.Base.TxID,
		Kind:      types.KindClaim,
		From:      custody,
		To:        claim.TargetUser,
		Asset:     state.AssetID,
		Amount:    claim.Amount,
		Timestamp: tx.Base.Timestamp,
	}
	recordData, _ := json.Marshal(record)
	sv.Set(keys.KeyClaimHistory(tx.Base.TxID), recordData)

	ws := sv.Diff()
	return ws, &Receipt{
		TxID:       tx.Base.TxID,
		Kind:       types.KindClaim,
		Status:     StatusSucceed,
		WriteCount: len(ws),
	}, nil
}
