package vm

import "vaultd/types"

// ========== 核心接口定义 ==========

// StateView 状态视图接口
type StateView interface {
	//读/写/删某个 key 的状态；写入只写进这个视图，不直接落到底层 DB。
	Get(key string) ([]byte, bool, error)
	Set(key string, val []byte)
	Del(key string)
	//做一个快照点、必要时回滚到该点，实现失败回滚。
	Snapshot() int
	Revert(snap int) error
	//把这段预执行期间累积的写入集合（写集）导出来，给后续“真正落库”用。
	Diff() []WriteOp
}

// TxHandler 交易处理器接口
type TxHandler interface {
	//标识这个 Handler 处理哪种交易类型（比如 "deposit"）。
	Kind() string
	//在给定 StateView 上预执行，返回写集 []WriteOp 与执行回执 *Receipt
	DryRun(tx *types.VaultTx, sv StateView) ([]WriteOp, *Receipt, error)
}

// DBManager 数据库管理器接口
type DBManager interface {
	EnqueueSet(key, value string)
	EnqueueDel(key string)
	ForceFlush() error
	Get(key string) ([]byte, error)
	Exists(key string) bool
	// 前缀扫描，返回所有以 prefix 开头的键值对
	Scan(prefix string) (map[string][]byte, error)
}

// ReadThroughFn 当 StateView.Get 本地 overlay 没命中时，
// 定义“如何从底层存储读真实值”的函数签名
type ReadThroughFn func(key string) ([]byte, error)

// KindFn 给 VaultTx 提取“交易种类”的小工具
type KindFn func(tx *types.VaultTx) (string, error)
