package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"vaultd/types"
)

// HandleTx 处理交易提交请求
// 请求体是 JSON 编码的 types.VaultTx，带签名；响应是执行回执
func (hm *HandlerManager) HandleTx(w http.ResponseWriter, r *http.Request) {
	hm.Stats.RecordAPICall("HandleTx")

	if r.Method != http.MethodPost {
		hm.writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	// 读取请求体，超过配置上限直接拒绝
	bodyBytes, err := io.ReadAll(http.MaxBytesReader(w, r.Body, hm.maxBodySize))
	if err != nil {
		hm.writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}

	var tx types.VaultTx
	if err := json.Unmarshal(bodyBytes, &tx); err != nil {
		hm.writeError(w, http.StatusBadRequest, "invalid tx json")
		return
	}

	if tx.Base == nil || tx.Base.TxID == "" {
		hm.writeError(w, http.StatusBadRequest, "tx_id is required")
		return
	}

	// 执行交易：失败也返回回执，错误原因在回执里
	receipt, _ := hm.executor.ExecuteTx(&tx)
	hm.Stats.RecordTx(tx.GetKind())

	status := http.StatusOK
	if receipt != nil && receipt.Status != "SUCCEED" {
		status = http.StatusUnprocessableEntity
	}
	hm.writeJSON(w, status, receipt)
}
