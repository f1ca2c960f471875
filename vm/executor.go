// vm/executor.go
// 执行器：逐笔串行执行交易，预执行通过后一次性落库
// 串行化 + 整体提交共同提供账本基底的全序与原子性保证
package vm

import (
	"encoding/json"
	"fmt"
	"sync"

	"vaultd/keys"
	"vaultd/logs"
	"vaultd/token"
	"vaultd/types"

	lru "github.com/hashicorp/golang-lru"
)

// Executor 交易执行器
type Executor struct {
	mu  sync.Mutex // 串行化执行：同一时刻只有一笔交易观察和修改状态
	DB  DBManager
	Reg *HandlerRegistry
	KFn KindFn
	// ReadFn 读穿函数：StateView 没命中时从底层存储读
	ReadFn ReadThroughFn
	// 已执行交易的回执缓存，配合 v1_applied_ 标记做重放去重
	applied *lru.Cache
}

// NewExecutor 创建执行器
func NewExecutor(db DBManager, reg *HandlerRegistry) *Executor {
	if reg == nil {
		reg = NewHandlerRegistry()
	}
	appliedCache, _ := lru.New(10000)

	x := &Executor{
		DB:      db,
		Reg:     reg,
		KFn:     DefaultKindFn,
		applied: appliedCache,
	}
	x.ReadFn = func(key string) ([]byte, error) {
		return db.Get(key)
	}
	return x
}

// ExecuteTx 执行单笔交易
// 同一 TxID 重复提交直接返回首次执行的回执（幂等）
func (x *Executor) ExecuteTx(tx *types.VaultTx) (*Receipt, error) {
	kind, err := x.KFn(tx)
	if err != nil {
		return &Receipt{
			TxID:   tx.GetTxID(),
			Status: StatusFailed,
			Error:  err.Error(),
		}, err
	}

	txID := tx.GetTxID()
	if txID == "" {
		return &Receipt{
			Status: StatusFailed,
			Error:  "missing tx_id",
		}, fmt.Errorf("missing tx_id")
	}

	// 重放去重快路径：先查内存缓存，再查落库标记
	if r, ok := x.lookupApplied(txID); ok {
		return r, nil
	}

	// 签名守卫：签名无效的交易不进入状态机，也不记录applied标记
	if err := VerifyTxSigner(tx); err != nil {
		return &Receipt{
			TxID:   txID,
			Kind:   kind,
			Status: StatusFailed,
			Error:  err.Error(),
		}, err
	}

	handler, ok := x.Reg.Get(kind)
	if !ok {
		return &Receipt{
			TxID:   txID,
			Kind:   kind,
			Status: StatusFailed,
			Error:  fmt.Sprintf("no handler for kind: %s", kind),
		}, fmt.Errorf("no handler for kind: %s", kind)
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	// 拿到锁后必须重查：同一TxID并发提交时，两笔都能通过锁外的
	// 快路径检查，先进临界区的那笔已经提交，后到的直接取其回执
	if r, ok := x.lookupApplied(txID); ok {
		return r, nil
	}

	sv := NewStateView(x.ReadFn)
	ws, receipt, execErr := handler.DryRun(tx, sv)
	if receipt == nil {
		receipt = &Receipt{TxID: txID, Kind: kind, Status: StatusFailed, Error: "nil receipt"}
	}
	receipt.Timestamp = tx.Base.Timestamp

	if execErr != nil {
		// 前置校验失败：不写任何状态，但回执和applied标记要落库，
		// 同一交易身份的重试拿到同样的结果
		if err := x.commitReceiptOnly(txID, receipt); err != nil {
			logs.Error("[VM] failed to persist receipt for tx %s: %v", txID, err)
		}
		x.applied.Add(txID, receipt)
		return receipt, execErr
	}

	// 预执行成功：写集 + 回执 + applied标记一次性落库
	if err := x.commitWriteOps(txID, ws, receipt); err != nil {
		logs.Error("[VM] commit failed for tx %s: %v", txID, err)
		return &Receipt{
			TxID:   txID,
			Kind:   kind,
			Status: StatusFailed,
			Error:  "commit failed",
		}, err
	}

	x.applied.Add(txID, receipt)
	logs.Info("[VM] tx %s (%s) executed, %d writes", txID, kind, len(ws))
	return receipt, nil
}

// lookupApplied 重放去重检查：内存缓存命中或回执+applied标记都已落库
func (x *Executor) lookupApplied(txID string) (*Receipt, bool) {
	if cached, ok := x.applied.Get(txID); ok {
		return cached.(*Receipt), true
	}
	if r, ok := x.loadReceipt(txID); ok && x.DB.Exists(keys.KeyAppliedTx(txID)) {
		x.applied.Add(txID, r)
		return r, true
	}
	return nil, false
}

// commitWriteOps 把写集、回执和applied标记排队落库并强制刷盘
func (x *Executor) commitWriteOps(txID string, ws []WriteOp, receipt *Receipt) error {
	for _, w := range ws {
		if w.Del {
			x.DB.EnqueueDel(w.Key)
			continue
		}
		x.DB.EnqueueSet(w.Key, string(w.Value))
	}
	return x.commitReceiptOnly(txID, receipt)
}

func (x *Executor) commitReceiptOnly(txID string, receipt *Receipt) error {
	receiptData, err := json.Marshal(receipt)
	if err != nil {
		return err
	}
	x.DB.EnqueueSet(keys.KeyReceipt(txID), string(receiptData))
	x.DB.EnqueueSet(keys.KeyAppliedTx(txID), receipt.Status)
	return x.DB.ForceFlush()
}

// loadReceipt 从底层存储读回执
func (x *Executor) loadReceipt(txID string) (*Receipt, bool) {
	data, err := x.DB.Get(keys.KeyReceipt(txID))
	if err != nil || len(data) == 0 {
		return nil, false
	}
	var r Receipt
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, false
	}
	return &r, true
}

// GetReceipt 查询交易回执
func (x *Executor) GetReceipt(txID string) (*Receipt, bool) {
	if cached, ok := x.applied.Get(txID); ok {
		return cached.(*Receipt), true
	}
	return x.loadReceipt(txID)
}

// BootstrapAsset 资产引导：创建托管资产并把初始供应量增发给运营者
// 属于启动期操作，不在四个金库交易之内；幂等（资产已存在时直接返回）
func (x *Executor) BootstrapAsset(creator, name, symbol string, decimals uint32, initialSupply string) (*types.TokenInfo, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	sv := NewStateView(x.ReadFn)
	addr := token.DeriveAssetAddress(creator, symbol, name)
	if info, err := token.GetTokenInfo(sv, addr); err == nil {
		return info, nil
	}

	info, err := token.CreateAsset(sv, creator, name, symbol, decimals, initialSupply)
	if err != nil {
		return nil, err
	}

	for _, w := range sv.Diff() {
		if w.Del {
			x.DB.EnqueueDel(w.Key)
			continue
		}
		x.DB.EnqueueSet(w.Key, string(w.Value))
	}
	if err := x.DB.ForceFlush(); err != nil {
		return nil, err
	}
	logs.Info("[VM] asset %s (%s) bootstrapped, supply=%s", info.Symbol, info.Address, info.TotalSupply)
	return info, nil
}
