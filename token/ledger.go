// token/ledger.go
// 单一资产类型的代币账本：账户创建、增发、转账、余额查询
// 所有修改只写进传入的 StateView，由上层决定是否落库，
// 因此每次调用要么整体生效要么整体不生效
package token

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"vaultd/keys"
	"vaultd/types"

	"golang.org/x/crypto/sha3"
)

// ========== 错误定义 ==========

var (
	ErrAssetExists       = errors.New("asset already exists")
	ErrAssetNotFound     = errors.New("asset not found")
	ErrAccountNotFound   = errors.New("account not found")
	ErrUnauthorized      = errors.New("authority mismatch")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// StateView 账本依赖的最小状态视图
// vm.StateView 天然满足该接口
type StateView interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, val []byte)
}

// ========== 资产 ==========

// DeriveAssetAddress 资产地址推导：keccak256(creator|symbol|name) 最后20字节
func DeriveAssetAddress(creator, symbol, name string) string {
	hash := sha3.NewLegacyKeccak256()
	hash.Write([]byte(creator + "|" + symbol + "|" + name))
	digest := hash.Sum(nil)
	return "0x" + hex.EncodeToString(digest[12:])
}

// GetTokenInfo 读取资产元数据
func GetTokenInfo(sv StateView, asset string) (*types.TokenInfo, error) {
	data, exists, err := sv.Get(keys.KeyToken(asset))
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrAssetNotFound
	}
	var info types.TokenInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("failed to parse token info: %w", err)
	}
	return &info, nil
}

func putTokenInfo(sv StateView, info *types.TokenInfo) error {
	data, err := json.Marshal(info)
	if err != nil {
		return err
	}
	sv.Set(keys.KeyToken(info.Address), data)
	return nil
}

// CreateAsset 创建资产并把初始供应量增发给创建者
// 创建者成为该资产的增发权限
func CreateAsset(sv StateView, creator, name, symbol string, decimals uint32, initialSupply string) (*types.TokenInfo, error) {
	addr := DeriveAssetAddress(creator, symbol, name)

	_, exists, err := sv.Get(keys.KeyToken(addr))
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrAssetExists
	}

	info := &types.TokenInfo{
		Address:       addr,
		Name:          name,
		Symbol:        symbol,
		Decimals:      decimals,
		TotalSupply:   "0",
		MintAuthority: creator,
	}
	if err := putTokenInfo(sv, info); err != nil {
		return nil, err
	}

	supply := ParseBalanceOrZero(initialSupply)
	if supply.Sign() > 0 {
		if err := Mint(sv, addr, creator, initialSupply, SignerAuthority(creator)); err != nil {
			return nil, err
		}
		info.TotalSupply = initialSupply
	}
	return info, nil
}

// ========== 账户 ==========

// getRecord 读取余额记录
func getRecord(sv StateView, owner, asset string) (*types.BalanceRecord, bool, error) {
	data, exists, err := sv.Get(keys.KeyBalance(owner, asset))
	if err != nil {
		return nil, false, err
	}
	if !exists || len(data) == 0 {
		return nil, false, nil
	}
	var record types.BalanceRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, false, fmt.Errorf("failed to parse balance record: %w", err)
	}
	if record.Balance == nil {
		record.Balance = &types.TokenBalance{Balance: "0"}
	}
	return &record, true, nil
}

func putRecord(sv StateView, record *types.BalanceRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	sv.Set(keys.KeyBalance(record.Address, record.Asset), data)
	return nil
}

// CreateAccount 创建资产账户（幂等：已存在则直接返回现有记录）
// authority 为空时默认账户持有人自己
func CreateAccount(sv StateView, owner, asset, authority string) (*types.BalanceRecord, error) {
	if _, err := GetTokenInfo(sv, asset); err != nil {
		return nil, err
	}

	record, exists, err := getRecord(sv, owner, asset)
	if err != nil {
		return nil, err
	}
	if exists {
		return record, nil
	}

	if authority == "" {
		authority = owner
	}
	record = &types.BalanceRecord{
		Address:   owner,
		Asset:     asset,
		Authority: authority,
		Balance:   &types.TokenBalance{Balance: "0"},
	}
	if err := putRecord(sv, record); err != nil {
		return nil, err
	}
	return record, nil
}

// GetAccount 读取资产账户，不存在返回 ErrAccountNotFound
func GetAccount(sv StateView, owner, asset string) (*types.BalanceRecord, error) {
	record, exists, err := getRecord(sv, owner, asset)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrAccountNotFound
	}
	return record, nil
}

// GetBalance 获取账户的余额，不存在返回零余额（不返回 error）
func GetBalance(sv StateView, owner, asset string) *types.TokenBalance {
	record, exists, err := getRecord(sv, owner, asset)
	if err != nil || !exists {
		return &types.TokenBalance{Balance: "0"}
	}
	return record.Balance
}

// ========== 增发 ==========

// Mint 给目标账户增发，仅限资产的增发权限调用
// 派生权限不允许增发
func Mint(sv StateView, asset, to, amount string, mintAuthority Authority) error {
	info, err := GetTokenInfo(sv, asset)
	if err != nil {
		return err
	}
	if mintAuthority.Derived || !strings.EqualFold(mintAuthority.Address, info.MintAuthority) {
		return ErrUnauthorized
	}

	value, err := ParseBalance(amount)
	if err != nil {
		return err
	}
	if value.Sign() <= 0 {
		return ErrInvalidAmount
	}

	record, exists, err := getRecord(sv, to, asset)
	if err != nil {
		return err
	}
	if !exists {
		record = &types.BalanceRecord{
			Address:   to,
			Asset:     asset,
			Authority: to,
			Balance:   &types.TokenBalance{Balance: "0"},
		}
	}

	newBal, err := SafeAdd(ParseBalanceOrZero(record.Balance.Balance), value)
	if err != nil {
		return err
	}
	record.Balance.Balance = newBal.String()
	if err := putRecord(sv, record); err != nil {
		return err
	}

	newSupply, err := SafeAdd(ParseBalanceOrZero(info.TotalSupply), value)
	if err != nil {
		return err
	}
	info.TotalSupply = newSupply.String()
	return putTokenInfo(sv, info)
}

// ========== 转账 ==========

// Transfer 在两个账户之间转移资产，整体生效或整体失败
// auth 必须与转出账户记录的 Authority 一致；余额不足时不产生任何写入
func Transfer(sv StateView, asset, from, to, amount string, auth Authority) error {
	value, err := ParseBalance(amount)
	if err != nil {
		return err
	}
	if value.Sign() <= 0 {
		return ErrInvalidAmount
	}

	fromRecord, exists, err := getRecord(sv, from, asset)
	if err != nil {
		return err
	}
	if !exists {
		return ErrAccountNotFound
	}

	if !strings.EqualFold(auth.Address, fromRecord.Authority) {
		return ErrUnauthorized
	}

	fromBal := ParseBalanceOrZero(fromRecord.Balance.Balance)
	newFromBal, err := SafeSub(fromBal, value)
	if err != nil {
		return ErrInsufficientFunds
	}

	// 自转账：余额校验通过即无净变化
	if strings.EqualFold(from, to) {
		return nil
	}

	toRecord, exists, err := getRecord(sv, to, asset)
	if err != nil {
		return err
	}
	if !exists {
		// 接收方账户首次使用时创建
		toRecord = &types.BalanceRecord{
			Address:   to,
			Asset:     asset,
			Authority: to,
			Balance:   &types.TokenBalance{Balance: "0"},
		}
	}
	newToBal, err := SafeAdd(ParseBalanceOrZero(toRecord.Balance.Balance), value)
	if err != nil {
		return err
	}

	// 两边都校验通过后才写入
	fromRecord.Balance.Balance = newFromBal.String()
	toRecord.Balance.Balance = newToBal.String()
	if err := putRecord(sv, fromRecord); err != nil {
		return err
	}
	return putRecord(sv, toRecord)
}
