package handlers

import (
	"encoding/json"
	"net/http"

	"vaultd/config"
	"vaultd/db"
	"vaultd/stats"
	"vaultd/vm"

	"github.com/shopspring/decimal"
)

// HandlerManager 管理所有HTTP处理器及其依赖
type HandlerManager struct {
	dbManager   *db.Manager
	executor    *vm.Executor
	port        string // 当前节点端口
	address     string // 当前节点运营者地址
	maxBodySize int64  // 请求体大小上限

	// 统计相关字段
	Stats *stats.Stats
}

// NewHandlerManager 创建新的处理器管理器
func NewHandlerManager(
	dbMgr *db.Manager,
	executor *vm.Executor,
	cfg *config.Config,
	port, address string,
) *HandlerManager {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &HandlerManager{
		dbManager:   dbMgr,
		executor:    executor,
		port:        port,
		address:     address,
		maxBodySize: cfg.Server.MaxRequestBodySize,
		Stats:       stats.NewStats(),
	}
}

// RegisterRoutes 注册所有路由
func (hm *HandlerManager) RegisterRoutes(mux *http.ServeMux) {
	// 交易提交
	mux.HandleFunc("/tx", hm.HandleTx)
	// 金库和余额查询
	mux.HandleFunc("/getvault", hm.HandleGetVault)
	mux.HandleFunc("/getbalance", hm.HandleGetBalance)
	mux.HandleFunc("/getbalances", hm.HandleGetBalances)
	mux.HandleFunc("/gettoken", hm.HandleGetToken)
	mux.HandleFunc("/getassets", hm.HandleGetAssets)
	mux.HandleFunc("/getreceipt", hm.HandleGetReceipt)
	// 基本功能
	mux.HandleFunc("/status", hm.HandleStatus)
}

// ========== 响应辅助方法 ==========

func (hm *HandlerManager) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (hm *HandlerManager) writeError(w http.ResponseWriter, status int, msg string) {
	hm.writeJSON(w, status, map[string]string{"error": msg})
}

// uiAmount 把基础单位换算成带精度的展示数量
func uiAmount(baseUnits string, decimals uint32) string {
	d, err := decimal.NewFromString(baseUnits)
	if err != nil {
		return "0"
	}
	return d.Shift(-int32(decimals)).String()
}
