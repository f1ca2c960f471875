// db/manage_vault.go
// 金库相关数据的类型化读取
package db

import (
	"encoding/json"
	"errors"

	"vaultd/keys"
	"vaultd/types"
)

var ErrNotFound = errors.New("not found")

// GetGlobalState 读取金库全局状态
func (mgr *Manager) GetGlobalState() (*types.GlobalVaultState, error) {
	data, err := mgr.Get(keys.KeyGlobalState())
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, ErrNotFound
	}
	var state types.GlobalVaultState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// GetTokenInfo 读取资产元数据
func (mgr *Manager) GetTokenInfo(asset string) (*types.TokenInfo, error) {
	data, err := mgr.Get(keys.KeyToken(asset))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, ErrNotFound
	}
	var info types.TokenInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// GetTokenBalance 读取余额，记录不存在时返回零余额
func (mgr *Manager) GetTokenBalance(addr, asset string) (*types.TokenBalance, error) {
	data, err := mgr.Get(keys.KeyBalance(addr, asset))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return &types.TokenBalance{Balance: "0"}, nil
	}
	var record types.BalanceRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, err
	}
	if record.Balance == nil {
		return &types.TokenBalance{Balance: "0"}, nil
	}
	return record.Balance, nil
}

// ListTokenInfos 扫描全部资产元数据
func (mgr *Manager) ListTokenInfos() ([]*types.TokenInfo, error) {
	entries, err := mgr.Scan(keys.KeyTokenPrefix())
	if err != nil {
		return nil, err
	}
	infos := make([]*types.TokenInfo, 0, len(entries))
	for _, data := range entries {
		var info types.TokenInfo
		if err := json.Unmarshal(data, &info); err != nil {
			return nil, err
		}
		infos = append(infos, &info)
	}
	return infos, nil
}

// ListBalanceRecords 扫描某个地址名下的所有资产余额记录
func (mgr *Manager) ListBalanceRecords(addr string) ([]*types.BalanceRecord, error) {
	entries, err := mgr.Scan(keys.KeyBalancePrefix(addr))
	if err != nil {
		return nil, err
	}
	records := make([]*types.BalanceRecord, 0, len(entries))
	for _, data := range entries {
		var record types.BalanceRecord
		if err := json.Unmarshal(data, &record); err != nil {
			return nil, err
		}
		records = append(records, &record)
	}
	return records, nil
}

// GetBalanceRecord 读取完整余额记录（含 Authority）
func (mgr *Manager) GetBalanceRecord(addr, asset string) (*types.BalanceRecord, error) {
	data, err := mgr.Get(keys.KeyBalance(addr, asset))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, ErrNotFound
	}
	var record types.BalanceRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, err
	}
	return &record, nil
}
