package vm_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"vaultd/token"
	"vaultd/types"
	"vaultd/utils"
	"vaultd/vm"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// ========== Mock数据库实现 ==========

type MockDB struct {
	mu      sync.RWMutex
	data    map[string][]byte
	pending []func()
}

func NewMockDB() *MockDB {
	return &MockDB{
		data:    make(map[string][]byte),
		pending: make([]func(), 0),
	}
}

func (db *MockDB) Get(key string) ([]byte, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	val, exists := db.data[key]
	if !exists {
		return nil, nil
	}
	return val, nil
}

func (db *MockDB) Exists(key string) bool {
	db.mu.RLock()
	defer db.mu.RUnlock()
	_, exists := db.data[key]
	return exists
}

func (db *MockDB) EnqueueSet(key, value string) {
	db.pending = append(db.pending, func() {
		db.mu.Lock()
		defer db.mu.Unlock()
		db.data[key] = []byte(value)
	})
}

func (db *MockDB) EnqueueDel(key string) {
	db.pending = append(db.pending, func() {
		db.mu.Lock()
		defer db.mu.Unlock()
		delete(db.data, key)
	})
}

func (db *MockDB) ForceFlush() error {
	for _, op := range db.pending {
		op()
	}
	db.pending = db.pending[:0]
	return nil
}

func (db *MockDB) Scan(prefix string) (map[string][]byte, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	result := make(map[string][]byte)
	for k, v := range db.data {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			result[k] = v
		}
	}
	return result, nil
}

// ========== 测试辅助 ==========

type testAccount struct {
	priv    *secp256k1.PrivateKey
	address string
}

func newTestAccount(t *testing.T) *testAccount {
	t.Helper()
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return &testAccount{
		priv:    priv,
		address: utils.DeriveEthereumAddress(priv),
	}
}

type testEnv struct {
	db       *MockDB
	executor *vm.Executor
	admin    *testAccount
	asset    string
}

// newTestEnv 搭建已引导资产的执行环境：admin 持有全部初始供应量
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := NewMockDB()
	reg := vm.NewHandlerRegistry()
	if err := vm.RegisterDefaultHandlers(reg); err != nil {
		t.Fatalf("register handlers: %v", err)
	}
	executor := vm.NewExecutor(db, reg)

	admin := newTestAccount(t)
	info, err := executor.BootstrapAsset(admin.address, "Vault Token", "VLT", vm.Decimals, vm.FirstTotalSupply)
	if err != nil {
		t.Fatalf("bootstrap asset: %v", err)
	}
	return &testEnv{db: db, executor: executor, admin: admin, asset: info.Address}
}

var txSeq int

// signTx 填充签名后返回交易本身
func signTx(t *testing.T, acct *testAccount, tx *types.VaultTx) *types.VaultTx {
	t.Helper()
	sig, err := utils.SignPayload(acct.priv, tx.SigningPayload())
	if err != nil {
		t.Fatalf("sign payload: %v", err)
	}
	tx.Base.Signature = sig
	return tx
}

func newBase(acct *testAccount) *types.TxBase {
	txSeq++
	return &types.TxBase{
		TxID:        fmt.Sprintf("tx-%d", txSeq),
		FromAddress: acct.address,
		Timestamp:   time.Now().Unix(),
	}
}

func initTx(t *testing.T, acct *testAccount, asset string) *types.VaultTx {
	return signTx(t, acct, &types.VaultTx{
		Kind:      types.KindVaultInit,
		Base:      newBase(acct),
		VaultInit: &types.VaultInitTx{AssetID: asset},
	})
}

func depositTx(t *testing.T, acct *testAccount, amount string) *types.VaultTx {
	return signTx(t, acct, &types.VaultTx{
		Kind:    types.KindDeposit,
		Base:    newBase(acct),
		Deposit: &types.DepositTx{Amount: amount},
	})
}

func claimTx(t *testing.T, acct *testAccount, amount, target string) *types.VaultTx {
	return signTx(t, acct, &types.VaultTx{
		Kind:  types.KindClaim,
		Base:  newBase(acct),
		Claim: &types.ClaimTx{Amount: amount, TargetUser: target},
	})
}

func withdrawTx(t *testing.T, acct *testAccount, amount string) *types.VaultTx {
	return signTx(t, acct, &types.VaultTx{
		Kind:     types.KindWithdraw,
		Base:     newBase(acct),
		Withdraw: &types.WithdrawTx{Amount: amount},
	})
}

// balanceOf 直接从落库后的状态读余额
func (env *testEnv) balanceOf(t *testing.T, addr string) string {
	t.Helper()
	sv := vm.NewStateView(env.db.Get)
	return token.GetBalance(sv, addr, env.asset).Balance
}

func (env *testEnv) mustSucceed(t *testing.T, tx *types.VaultTx) *vm.Receipt {
	t.Helper()
	receipt, err := env.executor.ExecuteTx(tx)
	if err != nil {
		t.Fatalf("tx %s (%s) failed: %v", tx.GetTxID(), tx.GetKind(), err)
	}
	if receipt.Status != vm.StatusSucceed {
		t.Fatalf("tx %s (%s) status=%s error=%s", tx.GetTxID(), tx.GetKind(), receipt.Status, receipt.Error)
	}
	return receipt
}

func (env *testEnv) mustFail(t *testing.T, tx *types.VaultTx) *vm.Receipt {
	t.Helper()
	receipt, err := env.executor.ExecuteTx(tx)
	if err == nil {
		t.Fatalf("tx %s (%s) unexpectedly succeeded", tx.GetTxID(), tx.GetKind())
	}
	if receipt == nil || receipt.Status != vm.StatusFailed {
		t.Fatalf("tx %s: expected FAILED receipt, got %+v", tx.GetTxID(), receipt)
	}
	return receipt
}

// ========== 初始化 ==========

func TestVaultInitCapturesAdmin(t *testing.T) {
	env := newTestEnv(t)

	env.mustSucceed(t, initTx(t, env.admin, env.asset))

	sv := vm.NewStateView(env.db.Get)
	state, exists, err := vm.GetGlobalState(sv)
	if err != nil || !exists {
		t.Fatalf("global state missing after init: exists=%v err=%v", exists, err)
	}
	if state.Admin != env.admin.address {
		t.Errorf("admin = %s, want %s", state.Admin, env.admin.address)
	}
	if state.AssetID != env.asset {
		t.Errorf("asset = %s, want %s", state.AssetID, env.asset)
	}
}

func TestVaultInitOnlyOnce(t *testing.T) {
	env := newTestEnv(t)
	env.mustSucceed(t, initTx(t, env.admin, env.asset))

	// 第二个调用者抢注失败，管理员身份不变
	intruder := newTestAccount(t)
	receipt := env.mustFail(t, initTx(t, intruder, env.asset))
	if receipt.Error != vm.ErrAlreadyInitialized.Error() {
		t.Errorf("error = %q, want %q", receipt.Error, vm.ErrAlreadyInitialized.Error())
	}

	sv := vm.NewStateView(env.db.Get)
	state, _, _ := vm.GetGlobalState(sv)
	if state.Admin != env.admin.address {
		t.Errorf("admin changed to %s after failed re-init", state.Admin)
	}
}

func TestVaultInitUnknownAsset(t *testing.T) {
	env := newTestEnv(t)
	receipt := env.mustFail(t, initTx(t, env.admin, "0x00000000000000000000000000000000deadbeef"))
	if receipt.Status != vm.StatusFailed {
		t.Fatalf("status = %s", receipt.Status)
	}
}

// ========== 存入 / 发放 / 提取 全流程 ==========

func TestDepositClaimWithdrawFlow(t *testing.T) {
	env := newTestEnv(t)
	env.mustSucceed(t, initTx(t, env.admin, env.asset))
	custody := vm.CustodyAddress()
	user := newTestAccount(t)

	// 存入 7亿枚（精度9）
	env.mustSucceed(t, depositTx(t, env.admin, "700000000000000000"))
	if got := env.balanceOf(t, custody); got != "700000000000000000" {
		t.Fatalf("vault balance after deposit = %s", got)
	}
	if got := env.balanceOf(t, env.admin.address); got != "300000000000000000" {
		t.Fatalf("admin balance after deposit = %s", got)
	}

	// 发放 2亿枚给用户
	env.mustSucceed(t, claimTx(t, env.admin, "200000000000000000", user.address))
	if got := env.balanceOf(t, user.address); got != "200000000000000000" {
		t.Fatalf("user balance after claim = %s", got)
	}
	if got := env.balanceOf(t, custody); got != "500000000000000000" {
		t.Fatalf("vault balance after claim = %s", got)
	}

	// 提取 1亿枚回管理员
	env.mustSucceed(t, withdrawTx(t, env.admin, "100000000000000000"))
	if got := env.balanceOf(t, custody); got != "400000000000000000" {
		t.Fatalf("vault balance after withdraw = %s", got)
	}
	if got := env.balanceOf(t, env.admin.address); got != "400000000000000000" {
		t.Fatalf("admin balance after withdraw = %s", got)
	}

	// 总量守恒：admin + custody + user == 初始供应量
	sum := token.ParseBalanceOrZero(env.balanceOf(t, env.admin.address))
	sum.Add(sum, token.ParseBalanceOrZero(env.balanceOf(t, custody)))
	sum.Add(sum, token.ParseBalanceOrZero(env.balanceOf(t, user.address)))
	if sum.String() != vm.FirstTotalSupply {
		t.Errorf("total balance = %s, want %s", sum.String(), vm.FirstTotalSupply)
	}
}

func TestDepositBeforeInit(t *testing.T) {
	env := newTestEnv(t)
	receipt := env.mustFail(t, depositTx(t, env.admin, "1000"))
	if receipt.Error != vm.ErrNotInitialized.Error() {
		t.Errorf("error = %q, want %q", receipt.Error, vm.ErrNotInitialized.Error())
	}
}

func TestDepositRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	env.mustSucceed(t, initTx(t, env.admin, env.asset))

	outsider := newTestAccount(t)
	receipt := env.mustFail(t, depositTx(t, outsider, "1000"))
	if receipt.Error != vm.ErrUnauthorized.Error() {
		t.Errorf("error = %q, want %q", receipt.Error, vm.ErrUnauthorized.Error())
	}
}

func TestDepositInvalidAmount(t *testing.T) {
	env := newTestEnv(t)
	env.mustSucceed(t, initTx(t, env.admin, env.asset))

	for _, amount := range []string{"0", "-5", "abc", ""} {
		receipt := env.mustFail(t, depositTx(t, env.admin, amount))
		if receipt.Error != vm.ErrInvalidAmount.Error() {
			t.Errorf("amount %q: error = %q, want %q", amount, receipt.Error, vm.ErrInvalidAmount.Error())
		}
	}
}

// ========== 发放 ==========

// 发放对签名者开放：任何签名有效的地址都可以触发
func TestClaimAnyValidSigner(t *testing.T) {
	env := newTestEnv(t)
	env.mustSucceed(t, initTx(t, env.admin, env.asset))
	env.mustSucceed(t, depositTx(t, env.admin, "500000"))

	caller := newTestAccount(t)
	user := newTestAccount(t)
	env.mustSucceed(t, claimTx(t, caller, "200000", user.address))

	if got := env.balanceOf(t, user.address); got != "200000" {
		t.Errorf("user balance = %s, want 200000", got)
	}
}

func TestClaimInvalidTarget(t *testing.T) {
	env := newTestEnv(t)
	env.mustSucceed(t, initTx(t, env.admin, env.asset))
	env.mustSucceed(t, depositTx(t, env.admin, "500000"))

	receipt := env.mustFail(t, claimTx(t, env.admin, "100", "not-an-address"))
	if receipt.Status != vm.StatusFailed {
		t.Fatalf("status = %s", receipt.Status)
	}
}

func TestClaimInsufficientVault(t *testing.T) {
	env := newTestEnv(t)
	env.mustSucceed(t, initTx(t, env.admin, env.asset))
	env.mustSucceed(t, depositTx(t, env.admin, "1000"))

	user := newTestAccount(t)
	receipt := env.mustFail(t, claimTx(t, env.admin, "2000", user.address))
	if receipt.Error != vm.ErrInsufficientVault.Error() {
		t.Errorf("error = %q, want %q", receipt.Error, vm.ErrInsufficientVault.Error())
	}

	// 失败后余额不变
	if got := env.balanceOf(t, vm.CustodyAddress()); got != "1000" {
		t.Errorf("vault balance mutated on failed claim: %s", got)
	}
	if got := env.balanceOf(t, user.address); got != "0" {
		t.Errorf("user balance mutated on failed claim: %s", got)
	}
}

// 金库账户尚不存在时发放，同样按余额不足处理
func TestClaimBeforeAnyDeposit(t *testing.T) {
	env := newTestEnv(t)
	env.mustSucceed(t, initTx(t, env.admin, env.asset))

	user := newTestAccount(t)
	receipt := env.mustFail(t, claimTx(t, env.admin, "100", user.address))
	if receipt.Error != vm.ErrInsufficientVault.Error() {
		t.Errorf("error = %q, want %q", receipt.Error, vm.ErrInsufficientVault.Error())
	}
}

// ========== 提取 ==========

func TestWithdrawRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	env.mustSucceed(t, initTx(t, env.admin, env.asset))
	env.mustSucceed(t, depositTx(t, env.admin, "500000"))

	outsider := newTestAccount(t)
	receipt := env.mustFail(t, withdrawTx(t, outsider, "100"))
	if receipt.Error != vm.ErrUnauthorized.Error() {
		t.Errorf("error = %q, want %q", receipt.Error, vm.ErrUnauthorized.Error())
	}
	if got := env.balanceOf(t, vm.CustodyAddress()); got != "500000" {
		t.Errorf("vault balance mutated on unauthorized withdraw: %s", got)
	}
}

func TestWithdrawInsufficientVault(t *testing.T) {
	env := newTestEnv(t)
	env.mustSucceed(t, initTx(t, env.admin, env.asset))
	env.mustSucceed(t, depositTx(t, env.admin, "1000"))

	adminBefore := env.balanceOf(t, env.admin.address)
	receipt := env.mustFail(t, withdrawTx(t, env.admin, "5000"))
	if receipt.Error != vm.ErrInsufficientVault.Error() {
		t.Errorf("error = %q, want %q", receipt.Error, vm.ErrInsufficientVault.Error())
	}
	if got := env.balanceOf(t, env.admin.address); got != adminBefore {
		t.Errorf("admin balance mutated on failed withdraw: %s != %s", got, adminBefore)
	}
	if got := env.balanceOf(t, vm.CustodyAddress()); got != "1000" {
		t.Errorf("vault balance mutated on failed withdraw: %s", got)
	}
}

// ========== 签名与重放 ==========

func TestInvalidSignatureRejected(t *testing.T) {
	env := newTestEnv(t)
	env.mustSucceed(t, initTx(t, env.admin, env.asset))

	// 他人签名冒充管理员
	forger := newTestAccount(t)
	tx := &types.VaultTx{
		Kind:    types.KindDeposit,
		Base:    newBase(env.admin),
		Deposit: &types.DepositTx{Amount: "1000"},
	}
	sig, err := utils.SignPayload(forger.priv, tx.SigningPayload())
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	tx.Base.Signature = sig

	receipt, err := env.executor.ExecuteTx(tx)
	if err == nil {
		t.Fatal("forged signature accepted")
	}
	if receipt.Status != vm.StatusFailed {
		t.Fatalf("status = %s", receipt.Status)
	}

	// 签名失败不记applied标记：同一TxID换上正确签名后可以成功
	tx.Base.Signature = ""
	signTx(t, env.admin, tx)
	env.mustSucceed(t, tx)
}

func TestSignatureCoversContent(t *testing.T) {
	env := newTestEnv(t)
	env.mustSucceed(t, initTx(t, env.admin, env.asset))

	// 签名后篡改金额，签名校验必须失败
	tx := depositTx(t, env.admin, "1000")
	tx.Deposit.Amount = "999999999"
	_, err := env.executor.ExecuteTx(tx)
	if err == nil {
		t.Fatal("tampered transaction accepted")
	}
}

func TestReplaySameTxID(t *testing.T) {
	env := newTestEnv(t)
	env.mustSucceed(t, initTx(t, env.admin, env.asset))

	tx := depositTx(t, env.admin, "1000")
	first := env.mustSucceed(t, tx)

	// 同一笔交易重复提交：返回首次回执，余额不再变化
	second, err := env.executor.ExecuteTx(tx)
	if err != nil {
		t.Fatalf("replay returned error: %v", err)
	}
	if second.Status != vm.StatusSucceed || second.TxID != first.TxID {
		t.Fatalf("replay receipt mismatch: %+v", second)
	}
	if got := env.balanceOf(t, vm.CustodyAddress()); got != "1000" {
		t.Errorf("vault balance after replay = %s, want 1000", got)
	}
}

// 同一笔交易被多个协程同时提交时只能生效一次
func TestConcurrentSameTxID(t *testing.T) {
	env := newTestEnv(t)
	env.mustSucceed(t, initTx(t, env.admin, env.asset))

	tx := depositTx(t, env.admin, "1000")

	const submitters = 8
	var wg sync.WaitGroup
	receipts := make([]*vm.Receipt, submitters)
	wg.Add(submitters)
	for i := 0; i < submitters; i++ {
		go func(i int) {
			defer wg.Done()
			receipts[i], _ = env.executor.ExecuteTx(tx)
		}(i)
	}
	wg.Wait()

	// 每个提交者拿到的都是同一次执行的回执
	for i, r := range receipts {
		if r == nil || r.Status != vm.StatusSucceed || r.TxID != tx.GetTxID() {
			t.Fatalf("submitter %d receipt: %+v", i, r)
		}
	}
	if got := env.balanceOf(t, vm.CustodyAddress()); got != "1000" {
		t.Fatalf("vault balance = %s after concurrent duplicate submits, want 1000", got)
	}
	if got := env.balanceOf(t, env.admin.address); got != "999999999999999000" {
		t.Fatalf("admin balance = %s after concurrent duplicate submits", got)
	}
}

// 失败回执同样持久化并参与去重
func TestFailedReceiptPersisted(t *testing.T) {
	env := newTestEnv(t)
	env.mustSucceed(t, initTx(t, env.admin, env.asset))

	outsider := newTestAccount(t)
	tx := withdrawTx(t, outsider, "100")
	first := env.mustFail(t, tx)

	stored, ok := env.executor.GetReceipt(tx.GetTxID())
	if !ok {
		t.Fatal("failed receipt not persisted")
	}
	if stored.Error != first.Error {
		t.Errorf("stored error = %q, want %q", stored.Error, first.Error)
	}

	// 重复提交拿到同一失败回执，不再进状态机
	replay, err := env.executor.ExecuteTx(tx)
	if err != nil {
		t.Fatalf("replay of failed tx returned error: %v", err)
	}
	if replay.Status != vm.StatusFailed || replay.Error != first.Error {
		t.Fatalf("replay receipt mismatch: %+v", replay)
	}
}

func TestMissingTxID(t *testing.T) {
	env := newTestEnv(t)
	tx := &types.VaultTx{
		Kind:    types.KindDeposit,
		Base:    &types.TxBase{FromAddress: env.admin.address},
		Deposit: &types.DepositTx{Amount: "1"},
	}
	if _, err := env.executor.ExecuteTx(tx); err == nil {
		t.Fatal("tx without tx_id accepted")
	}
}

// ========== 资产引导 ==========

func TestBootstrapAssetIdempotent(t *testing.T) {
	env := newTestEnv(t)

	// 相同参数再次引导：返回已有资产，供应量不翻倍
	info, err := env.executor.BootstrapAsset(env.admin.address, "Vault Token", "VLT", vm.Decimals, vm.FirstTotalSupply)
	if err != nil {
		t.Fatalf("re-bootstrap: %v", err)
	}
	if info.Address != env.asset {
		t.Errorf("asset address changed: %s != %s", info.Address, env.asset)
	}
	if got := env.balanceOf(t, env.admin.address); got != vm.FirstTotalSupply {
		t.Errorf("admin balance = %s, want %s", got, vm.FirstTotalSupply)
	}
}

func TestCustodyAddressDeterministic(t *testing.T) {
	a := vm.CustodyAddress()
	b := vm.CustodyAddress()
	if a != b {
		t.Fatalf("custody address not deterministic: %s != %s", a, b)
	}
	if !utils.IsHexAddress(a) {
		t.Fatalf("custody address malformed: %s", a)
	}
}
