package vm

// ========== 金库程序常量 ==========

// ProgramID 程序身份标识，参与托管地址派生
const ProgramID = "vaultd/v1"

// GlobalSeed 全局状态的域分隔标签
const GlobalSeed = "GLOBAL_SEED"

// VaultSeed 托管地址派生的域分隔标签
const VaultSeed = "VAULT_SEED"

// Decimals 托管资产的精度
const Decimals = 9

// FirstTotalSupply 资产引导时的初始供应量（基础单位）
// 10^9 枚 * 10^9 基础单位
const FirstTotalSupply = "1000000000000000000"
