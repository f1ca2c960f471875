package handlers

import (
	"net/http"
	"sort"

	"vaultd/vm"
)

// StatusResponse 节点状态响应
type StatusResponse struct {
	Port           string            `json:"port"`
	Address        string            `json:"address"`
	CustodyAddress string            `json:"custody_address"`
	Initialized    bool              `json:"initialized"`
	TxKinds        []string          `json:"tx_kinds"` // 节点支持的交易类型
	UptimeSeconds  int64             `json:"uptime_seconds"`
	APICalls       map[string]uint64 `json:"api_calls"`
	TxCounts       map[string]uint64 `json:"tx_counts"`
}

// HandleStatus 返回节点运行状态和统计信息
func (hm *HandlerManager) HandleStatus(w http.ResponseWriter, r *http.Request) {
	hm.Stats.RecordAPICall("HandleStatus")

	initialized := false
	if _, err := hm.dbManager.GetGlobalState(); err == nil {
		initialized = true
	}

	kinds := hm.executor.Reg.List()
	sort.Strings(kinds)

	hm.writeJSON(w, http.StatusOK, &StatusResponse{
		Port:           hm.port,
		Address:        hm.address,
		CustodyAddress: vm.CustodyAddress(),
		Initialized:    initialized,
		TxKinds:        kinds,
		UptimeSeconds:  int64(hm.Stats.Uptime().Seconds()),
		APICalls:       hm.Stats.GetAPICallStats(),
		TxCounts:       hm.Stats.GetTxStats(),
	})
}
