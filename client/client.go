// client/client.go
// 金库节点的 HTTP/3 客户端：交易签名提交 + 状态查询
package client

import (
	"bytes"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"vaultd/config"
	"vaultd/types"
	"vaultd/utils"
	"vaultd/vm"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/quic-go/quic-go"
	"github.com/quic-go/quic-go/http3"
)

// Client 与单个金库节点通信的客户端
type Client struct {
	baseURL string
	http    *http.Client
	priv    *secp256k1.PrivateKey
	address string
}

// newHTTP3Client 创建 HTTP/3 客户端
// 节点证书是自签名的，客户端跳过校验
func newHTTP3Client(cfg *config.Config) *http.Client {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	tlsCfg := &tls.Config{
		InsecureSkipVerify: true,
		MinVersion:         tls.VersionTLS13,
		MaxVersion:         tls.VersionTLS13,
		ClientSessionCache: tls.NewLRUClientSessionCache(128),
		NextProtos:         []string{"h3", "h3-29", "h3-28", "h3-27"},
	}

	tr := &http3.Transport{
		TLSClientConfig: tlsCfg,
		QUICConfig: &quic.Config{
			KeepAlivePeriod: cfg.Server.QUICKeepAlivePeriod,
			MaxIdleTimeout:  cfg.Server.QUICMaxIdleTimeout,
			Allow0RTT:       cfg.Server.QUICAllow0RTT,
		},
	}

	return &http.Client{
		Transport: tr,
		Timeout:   cfg.Server.HTTPTimeout,
	}
}

// New 创建客户端；priv 为 nil 时只能做查询
func New(baseURL string, priv *secp256k1.PrivateKey, cfg *config.Config) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    newHTTP3Client(cfg),
		priv:    priv,
	}
	if priv != nil {
		c.address = utils.DeriveEthereumAddress(priv)
	}
	return c
}

// Address 客户端签名地址
func (c *Client) Address() string {
	return c.address
}

// signAndSubmit 填充公共字段、签名并提交
func (c *Client) signAndSubmit(tx *types.VaultTx) (*vm.Receipt, error) {
	if c.priv == nil {
		return nil, fmt.Errorf("client has no signing key")
	}
	if tx.Base == nil {
		tx.Base = &types.TxBase{}
	}
	if tx.Base.TxID == "" {
		tx.Base.TxID = fmt.Sprintf("%s-%d", tx.GetKind(), time.Now().UnixNano())
	}
	tx.Base.FromAddress = c.address
	if tx.Base.Timestamp == 0 {
		tx.Base.Timestamp = time.Now().Unix()
	}

	sig, err := utils.SignPayload(c.priv, tx.SigningPayload())
	if err != nil {
		return nil, err
	}
	tx.Base.Signature = sig
	return c.SubmitTx(tx)
}

// SubmitTx 提交已签名的交易，返回执行回执
// 节点对执行失败的交易返回 422，但回执体照常解析
func (c *Client) SubmitTx(tx *types.VaultTx) (*vm.Receipt, error) {
	body, err := json.Marshal(tx)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Post(c.baseURL+"/tx", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var receipt vm.Receipt
	if err := json.NewDecoder(resp.Body).Decode(&receipt); err != nil {
		return nil, fmt.Errorf("decode receipt: %w", err)
	}
	return &receipt, nil
}

// InitVault 初始化金库，调用者成为管理员
func (c *Client) InitVault(assetID string) (*vm.Receipt, error) {
	return c.signAndSubmit(&types.VaultTx{
		Kind:      types.KindVaultInit,
		VaultInit: &types.VaultInitTx{AssetID: assetID},
	})
}

// Deposit 管理员向金库存入
func (c *Client) Deposit(amount string) (*vm.Receipt, error) {
	return c.signAndSubmit(&types.VaultTx{
		Kind:    types.KindDeposit,
		Deposit: &types.DepositTx{Amount: amount},
	})
}

// Claim 从金库发放给目标用户
func (c *Client) Claim(amount, targetUser string) (*vm.Receipt, error) {
	return c.signAndSubmit(&types.VaultTx{
		Kind:  types.KindClaim,
		Claim: &types.ClaimTx{Amount: amount, TargetUser: targetUser},
	})
}

// Withdraw 管理员从金库提取
func (c *Client) Withdraw(amount string) (*vm.Receipt, error) {
	return c.signAndSubmit(&types.VaultTx{
		Kind:     types.KindWithdraw,
		Withdraw: &types.WithdrawTx{Amount: amount},
	})
}

// getJSON 查询辅助
func (c *Client) getJSON(path string, out interface{}) error {
	resp, err := c.http.Get(c.baseURL + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("http %d: %s", resp.StatusCode, string(data))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// VaultStatus /getvault 的响应
type VaultStatus struct {
	Admin          string `json:"admin"`
	AssetID        string `json:"asset_id"`
	CustodyAddress string `json:"custody_address"`
	Balance        string `json:"balance"`
	UIBalance      string `json:"ui_balance"`
}

// GetVault 查询金库状态
func (c *Client) GetVault() (*VaultStatus, error) {
	var status VaultStatus
	if err := c.getJSON("/getvault", &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Balance /getbalance 的响应
type Balance struct {
	Address   string `json:"address"`
	Asset     string `json:"asset"`
	Balance   string `json:"balance"`
	UIBalance string `json:"ui_balance"`
}

// GetBalance 查询某地址余额
func (c *Client) GetBalance(address, asset string) (*Balance, error) {
	path := "/getbalance?address=" + address
	if asset != "" {
		path += "&asset=" + asset
	}
	var balance Balance
	if err := c.getJSON(path, &balance); err != nil {
		return nil, err
	}
	return &balance, nil
}

// GetReceipt 查询交易回执
func (c *Client) GetReceipt(txID string) (*vm.Receipt, error) {
	var receipt vm.Receipt
	if err := c.getJSON("/getreceipt?tx_id="+txID, &receipt); err != nil {
		return nil, err
	}
	return &receipt, nil
}

// GetToken 查询资产元数据
func (c *Client) GetToken(asset string) (*types.TokenInfo, error) {
	path := "/gettoken"
	if asset != "" {
		path += "?asset=" + asset
	}
	var info types.TokenInfo
	if err := c.getJSON(path, &info); err != nil {
		return nil, err
	}
	return &info, nil
}
