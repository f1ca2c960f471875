// 金库命令行客户端：对运行中的节点做交易提交和查询
//
//	vaultcli -node https://127.0.0.1:8080 -key <hex> init -asset 0x...
//	vaultcli -node https://127.0.0.1:8080 -key <hex> deposit -amount 1000
//	vaultcli -node https://127.0.0.1:8080 -key <hex> claim -amount 500 -to 0x...
//	vaultcli -node https://127.0.0.1:8080 -key <hex> withdraw -amount 200
//	vaultcli -node https://127.0.0.1:8080 vault
//	vaultcli -node https://127.0.0.1:8080 balance -address 0x...
//	vaultcli -node https://127.0.0.1:8080 receipt -tx <id>
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"vaultd/client"
	"vaultd/config"
	"vaultd/utils"
	"vaultd/vm"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

func main() {
	var (
		node   = flag.String("node", "https://127.0.0.1:8080", "节点地址")
		keyHex = flag.String("key", "", "签名私钥(hex)，查询类命令可省略")
	)
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: vaultcli [flags] <init|deposit|claim|withdraw|vault|balance|token|receipt> [command flags]")
		os.Exit(2)
	}

	var priv *secp256k1.PrivateKey
	if *keyHex != "" {
		var err error
		priv, err = utils.ParseSecp256k1PrivateKey(*keyHex)
		if err != nil {
			fatal("invalid key: %v", err)
		}
	}
	c := client.New(*node, priv, config.DefaultConfig())

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "init":
		fs := flag.NewFlagSet("init", flag.ExitOnError)
		asset := fs.String("asset", "", "托管的资产地址")
		_ = fs.Parse(rest)
		if *asset == "" {
			fatal("init: -asset is required")
		}
		printReceipt(c.InitVault(*asset))

	case "deposit":
		fs := flag.NewFlagSet("deposit", flag.ExitOnError)
		amount := fs.String("amount", "", "基础单位金额")
		_ = fs.Parse(rest)
		printReceipt(c.Deposit(*amount))

	case "claim":
		fs := flag.NewFlagSet("claim", flag.ExitOnError)
		amount := fs.String("amount", "", "基础单位金额")
		to := fs.String("to", "", "接收地址")
		_ = fs.Parse(rest)
		printReceipt(c.Claim(*amount, *to))

	case "withdraw":
		fs := flag.NewFlagSet("withdraw", flag.ExitOnError)
		amount := fs.String("amount", "", "基础单位金额")
		_ = fs.Parse(rest)
		printReceipt(c.Withdraw(*amount))

	case "vault":
		status, err := c.GetVault()
		if err != nil {
			fatal("get vault: %v", err)
		}
		printJSON(status)

	case "balance":
		fs := flag.NewFlagSet("balance", flag.ExitOnError)
		address := fs.String("address", "", "查询地址")
		asset := fs.String("asset", "", "资产地址，默认托管资产")
		_ = fs.Parse(rest)
		if *address == "" && priv != nil {
			*address = c.Address()
		}
		balance, err := c.GetBalance(*address, *asset)
		if err != nil {
			fatal("get balance: %v", err)
		}
		printJSON(balance)

	case "token":
		fs := flag.NewFlagSet("token", flag.ExitOnError)
		asset := fs.String("asset", "", "资产地址，默认托管资产")
		_ = fs.Parse(rest)
		info, err := c.GetToken(*asset)
		if err != nil {
			fatal("get token: %v", err)
		}
		printJSON(info)

	case "receipt":
		fs := flag.NewFlagSet("receipt", flag.ExitOnError)
		txID := fs.String("tx", "", "交易ID")
		_ = fs.Parse(rest)
		receipt, err := c.GetReceipt(*txID)
		if err != nil {
			fatal("get receipt: %v", err)
		}
		printJSON(receipt)

	default:
		fatal("unknown command: %s", cmd)
	}
}

func printReceipt(receipt *vm.Receipt, err error) {
	if err != nil {
		fatal("submit: %v", err)
	}
	printJSON(receipt)
	if receipt.Status != vm.StatusSucceed {
		os.Exit(1)
	}
}

func printJSON(v interface{}) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(data))
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
