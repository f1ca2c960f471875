package handlers

import (
	"net/http"

	"vaultd/db"
)

// HandleGetToken 处理资产元数据查询
func (hm *HandlerManager) HandleGetToken(w http.ResponseWriter, r *http.Request) {
	hm.Stats.RecordAPICall("HandleGetToken")

	asset := r.URL.Query().Get("asset")
	if asset == "" {
		state, err := hm.dbManager.GetGlobalState()
		if err != nil {
			hm.writeError(w, http.StatusBadRequest, "asset required before vault init")
			return
		}
		asset = state.AssetID
	}

	info, err := hm.dbManager.GetTokenInfo(asset)
	if err != nil {
		if err == db.ErrNotFound {
			hm.writeError(w, http.StatusNotFound, "asset not found")
			return
		}
		hm.writeError(w, http.StatusInternalServerError, "read token info failed")
		return
	}

	hm.writeJSON(w, http.StatusOK, info)
}

// HandleGetAssets 列出所有已创建的资产
func (hm *HandlerManager) HandleGetAssets(w http.ResponseWriter, r *http.Request) {
	hm.Stats.RecordAPICall("HandleGetAssets")

	infos, err := hm.dbManager.ListTokenInfos()
	if err != nil {
		hm.writeError(w, http.StatusInternalServerError, "scan assets failed")
		return
	}
	hm.writeJSON(w, http.StatusOK, infos)
}
