package types

// ========== 链上状态记录 ==========

// GlobalVaultState 金库全局单例状态
// 初始化后不再变化：余额真值全部在 Token 账本里
type GlobalVaultState struct {
	Admin   string `json:"admin"`    // 唯一有权存入/提取的地址
	AssetID string `json:"asset_id"` // 托管的资产地址
}

// TokenInfo 资产元数据
type TokenInfo struct {
	Address       string `json:"address"`
	Name          string `json:"name"`
	Symbol        string `json:"symbol"`
	Decimals      uint32 `json:"decimals"`
	TotalSupply   string `json:"total_supply"`   // 基础单位
	MintAuthority string `json:"mint_authority"` // 有权增发的地址
}

// TokenBalance 单个资产的余额
type TokenBalance struct {
	Balance string `json:"balance"` // 基础单位的十进制字符串
}

// BalanceRecord 余额存储记录：v1_balance_<address>_<asset>
// Authority 是有权转出该账户资金的地址；普通账户等于 Address，
// 金库账户则是派生出的托管地址
type BalanceRecord struct {
	Address   string        `json:"address"`
	Asset     string        `json:"asset"`
	Authority string        `json:"authority"`
	Balance   *TokenBalance `json:"balance"`
}

// TransferRecord 转账流水（不可变）
type TransferRecord struct {
	TxID      string `json:"tx_id"`
	Kind      string `json:"kind"`
	From      string `json:"from"`
	To        string `json:"to"`
	Asset     string `json:"asset"`
	Amount    string `json:"amount"`
	Timestamp int64  `json:"timestamp,omitempty"`
}
