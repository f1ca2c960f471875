package handlers

import (
	"net/http"

	"vaultd/db"
	"vaultd/vm"
)

// VaultStatusResponse 金库查询响应
type VaultStatusResponse struct {
	Admin          string `json:"admin"`
	AssetID        string `json:"asset_id"`
	CustodyAddress string `json:"custody_address"`
	Balance        string `json:"balance"`    // 基础单位
	UIBalance      string `json:"ui_balance"` // 按资产精度换算
}

// HandleGetVault 处理金库状态查询
func (hm *HandlerManager) HandleGetVault(w http.ResponseWriter, r *http.Request) {
	hm.Stats.RecordAPICall("HandleGetVault")

	state, err := hm.dbManager.GetGlobalState()
	if err != nil {
		if err == db.ErrNotFound {
			hm.writeError(w, http.StatusNotFound, "vault not initialized")
			return
		}
		hm.writeError(w, http.StatusInternalServerError, "read global state failed")
		return
	}

	custody := vm.CustodyAddress()
	balance, err := hm.dbManager.GetTokenBalance(custody, state.AssetID)
	if err != nil {
		hm.writeError(w, http.StatusInternalServerError, "read vault balance failed")
		return
	}

	decimals := uint32(vm.Decimals)
	if info, err := hm.dbManager.GetTokenInfo(state.AssetID); err == nil {
		decimals = info.Decimals
	}

	hm.writeJSON(w, http.StatusOK, &VaultStatusResponse{
		Admin:          state.Admin,
		AssetID:        state.AssetID,
		CustodyAddress: custody,
		Balance:        balance.Balance,
		UIBalance:      uiAmount(balance.Balance, decimals),
	})
}
