package handlers

import (
	"net/http"

	"vaultd/utils"
	"vaultd/vm"
)

// BalanceResponse 余额查询响应
type BalanceResponse struct {
	Address   string `json:"address"`
	Asset     string `json:"asset"`
	Balance   string `json:"balance"`
	UIBalance string `json:"ui_balance"`
}

// HandleGetBalance 处理余额查询，地址不存在时返回零余额
func (hm *HandlerManager) HandleGetBalance(w http.ResponseWriter, r *http.Request) {
	hm.Stats.RecordAPICall("HandleGetBalance")

	addr := r.URL.Query().Get("address")
	if !utils.IsHexAddress(addr) {
		hm.writeError(w, http.StatusBadRequest, "invalid address")
		return
	}

	asset := r.URL.Query().Get("asset")
	if asset == "" {
		// 未指定资产时默认查托管资产
		state, err := hm.dbManager.GetGlobalState()
		if err != nil {
			hm.writeError(w, http.StatusBadRequest, "asset required before vault init")
			return
		}
		asset = state.AssetID
	}

	balance, err := hm.dbManager.GetTokenBalance(addr, asset)
	if err != nil {
		hm.writeError(w, http.StatusInternalServerError, "read balance failed")
		return
	}

	decimals := uint32(vm.Decimals)
	if info, err := hm.dbManager.GetTokenInfo(asset); err == nil {
		decimals = info.Decimals
	}

	hm.writeJSON(w, http.StatusOK, &BalanceResponse{
		Address:   addr,
		Asset:     asset,
		Balance:   balance.Balance,
		UIBalance: uiAmount(balance.Balance, decimals),
	})
}

// HandleGetBalances 列出某个地址名下所有资产的余额记录
func (hm *HandlerManager) HandleGetBalances(w http.ResponseWriter, r *http.Request) {
	hm.Stats.RecordAPICall("HandleGetBalances")

	addr := r.URL.Query().Get("address")
	if !utils.IsHexAddress(addr) {
		hm.writeError(w, http.StatusBadRequest, "invalid address")
		return
	}

	records, err := hm.dbManager.ListBalanceRecords(addr)
	if err != nil {
		hm.writeError(w, http.StatusInternalServerError, "scan balances failed")
		return
	}
	hm.writeJSON(w, http.StatusOK, records)
}
