package token

// Authority 转账授权凭证
// 账本只认凭证里的地址和来源：Signer 凭证要求调用方已经验证过
// 对应地址的签名；Derived 凭证没有私钥，由状态机根据固定派生规则
// 在自己的执行上下文内构造，用于移动金库账户的资金
type Authority struct {
	Address string
	Derived bool
}

// SignerAuthority 普通签名者权限（调用方已完成签名校验）
func SignerAuthority(addr string) Authority {
	return Authority{Address: addr}
}

// DerivedAuthority 派生权限（托管地址，无私钥）
func DerivedAuthority(addr string) Authority {
	return Authority{Address: addr, Derived: true}
}
