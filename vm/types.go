package vm

import "errors"

// ========== 错误定义 ==========

var (
	ErrNilTx           = errors.New("nil transaction")
	ErrInvalidSnapshot = errors.New("invalid snapshot index")

	// 金库状态机错误（见回执里的 Error 字段）
	ErrAlreadyInitialized = errors.New("vault already initialized")
	ErrNotInitialized     = errors.New("vault not initialized")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInsufficientVault  = errors.New("insufficient vault balance")
	ErrAccountNotFound    = errors.New("account not found")
)

// ========== 基础类型定义 ==========

// WriteOp “要怎么改状态”的清单
type WriteOp struct {
	Key      string // 完整的 key（包括命名空间前缀）
	Value    []byte // 序列化后的值
	Del      bool   // true表示删除操作
	Category string // 数据分类：vault, balance, token, receipt 等，便于追踪和调试
}

// GetKey 获取 key
func (w *WriteOp) GetKey() string {
	return w.Key
}

// GetValue 获取 value
func (w *WriteOp) GetValue() []byte {
	return w.Value
}

// IsDel 是否删除操作
func (w *WriteOp) IsDel() bool {
	return w.Del
}

// Receipt 记录执行结果
type Receipt struct {
	TxID       string   `json:"tx_id"`
	Kind       string   `json:"kind,omitempty"`
	Status     string   `json:"status"` // "SUCCEED" or "FAILED"
	Error      string   `json:"error,omitempty"`
	Timestamp  int64    `json:"timestamp,omitempty"`
	Logs       []string `json:"logs,omitempty"`
	WriteCount int      `json:"write_count,omitempty"`
}

const (
	StatusSucceed = "SUCCEED"
	StatusFailed  = "FAILED"
)
