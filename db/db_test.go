package db

import (
	"encoding/json"
	"testing"

	"vaultd/config"
	"vaultd/keys"
	"vaultd/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.DB.Path = t.TempDir()
	mgr, err := NewManager(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = mgr.Close() })
	return mgr
}

func TestWriteQueueRoundtrip(t *testing.T) {
	mgr := newTestManager(t)

	mgr.EnqueueSet("k1", "v1")
	mgr.EnqueueSet("k2", "v2")
	require.NoError(t, mgr.ForceFlush())

	val, err := mgr.Get("k1")
	require.NoError(t, err)
	assert.Equal(t, "v1", string(val))
	assert.True(t, mgr.Exists("k2"))

	// 不存在的 key 返回 nil 不报错
	val, err = mgr.Get("missing")
	require.NoError(t, err)
	assert.Nil(t, val)
	assert.False(t, mgr.Exists("missing"))
}

func TestEnqueueDel(t *testing.T) {
	mgr := newTestManager(t)

	mgr.EnqueueSet("doomed", "x")
	require.NoError(t, mgr.ForceFlush())
	require.True(t, mgr.Exists("doomed"))

	mgr.EnqueueDel("doomed")
	require.NoError(t, mgr.ForceFlush())
	assert.False(t, mgr.Exists("doomed"))
}

func TestScanPrefix(t *testing.T) {
	mgr := newTestManager(t)

	mgr.EnqueueSet(keys.KeyReceipt("a"), "ra")
	mgr.EnqueueSet(keys.KeyReceipt("b"), "rb")
	mgr.EnqueueSet(keys.KeyGlobalState(), "state")
	require.NoError(t, mgr.ForceFlush())

	result, err := mgr.Scan(keys.KeyReceiptPrefix())
	require.NoError(t, err)
	assert.Len(t, result, 2)
	assert.Equal(t, "ra", string(result[keys.KeyReceipt("a")]))
}

func TestGetGlobalStateTyped(t *testing.T) {
	mgr := newTestManager(t)

	_, err := mgr.GetGlobalState()
	assert.ErrorIs(t, err, ErrNotFound)

	state := &types.GlobalVaultState{
		Admin:   "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		AssetID: "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb",
	}
	data, err := json.Marshal(state)
	require.NoError(t, err)
	mgr.EnqueueSet(keys.KeyGlobalState(), string(data))
	require.NoError(t, mgr.ForceFlush())

	loaded, err := mgr.GetGlobalState()
	require.NoError(t, err)
	assert.Equal(t, state.Admin, loaded.Admin)
	assert.Equal(t, state.AssetID, loaded.AssetID)
}

func TestListTokenInfos(t *testing.T) {
	mgr := newTestManager(t)

	infos, err := mgr.ListTokenInfos()
	require.NoError(t, err)
	assert.Empty(t, infos)

	for _, symbol := range []string{"AAA", "BBB"} {
		info := &types.TokenInfo{Address: "0x" + symbol, Symbol: symbol}
		data, err := json.Marshal(info)
		require.NoError(t, err)
		mgr.EnqueueSet(keys.KeyToken(info.Address), string(data))
	}
	require.NoError(t, mgr.ForceFlush())

	infos, err = mgr.ListTokenInfos()
	require.NoError(t, err)
	assert.Len(t, infos, 2)
}

func TestListBalanceRecords(t *testing.T) {
	mgr := newTestManager(t)
	addr := "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	other := "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"

	entries := []struct{ owner, asset string }{
		{addr, "0xc1"},
		{addr, "0xc2"},
		{other, "0xc1"},
	}
	for _, e := range entries {
		record := &types.BalanceRecord{
			Address: e.owner, Asset: e.asset, Authority: e.owner,
			Balance: &types.TokenBalance{Balance: "1"},
		}
		data, err := json.Marshal(record)
		require.NoError(t, err)
		mgr.EnqueueSet(keys.KeyBalance(e.owner, e.asset), string(data))
	}
	require.NoError(t, mgr.ForceFlush())

	// 只扫到该地址自己的记录
	records, err := mgr.ListBalanceRecords(addr)
	require.NoError(t, err)
	assert.Len(t, records, 2)
	for _, r := range records {
		assert.Equal(t, addr, r.Address)
	}
}

func TestGetTokenBalanceDefaultsToZero(t *testing.T) {
	mgr := newTestManager(t)

	balance, err := mgr.GetTokenBalance("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", "0xbb")
	require.NoError(t, err)
	assert.Equal(t, "0", balance.Balance)
}

func TestGetBalanceRecord(t *testing.T) {
	mgr := newTestManager(t)

	record := &types.BalanceRecord{
		Address:   "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		Asset:     "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb",
		Authority: "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		Balance:   &types.TokenBalance{Balance: "12345"},
	}
	data, err := json.Marshal(record)
	require.NoError(t, err)
	mgr.EnqueueSet(keys.KeyBalance(record.Address, record.Asset), string(data))
	require.NoError(t, mgr.ForceFlush())

	loaded, err := mgr.GetBalanceRecord(record.Address, record.Asset)
	require.NoError(t, err)
	assert.Equal(t, record.Authority, loaded.Authority)
	assert.Equal(t, "12345", loaded.Balance.Balance)

	balance, err := mgr.GetTokenBalance(record.Address, record.Asset)
	require.NoError(t, err)
	assert.Equal(t, "12345", balance.Balance)
}
