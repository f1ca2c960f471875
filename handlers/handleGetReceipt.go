package handlers

import (
	"net/http"
)

// HandleGetReceipt 按交易ID查询执行回执
func (hm *HandlerManager) HandleGetReceipt(w http.ResponseWriter, r *http.Request) {
	hm.Stats.RecordAPICall("HandleGetReceipt")

	txID := r.URL.Query().Get("tx_id")
	if txID == "" {
		hm.writeError(w, http.StatusBadRequest, "tx_id required")
		return
	}

	receipt, ok := hm.executor.GetReceipt(txID)
	if !ok {
		hm.writeError(w, http.StatusNotFound, "receipt not found")
		return
	}

	hm.writeJSON(w, http.StatusOK, receipt)
}
