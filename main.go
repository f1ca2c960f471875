package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"vaultd/app"
	"vaultd/config"
	"vaultd/db"
	"vaultd/handlers"
	"vaultd/logs"
	"vaultd/utils"
	"vaultd/vm"
)

func main() {
	var (
		configPath = flag.String("config", "", "JSON配置文件路径，缺省字段用默认值")
		dataPath   = flag.String("data", "", "数据目录，覆盖配置文件")
		port       = flag.Int("port", 0, "服务端口，覆盖配置文件")
		priKey     = flag.String("key", "", "节点私钥(hex)，为空时自动生成")
		logLevel   = flag.Int("log-level", logs.LevelInfo, "日志级别")
		bootstrap  = flag.Bool("bootstrap", false, "启动时创建托管资产（幂等）")
	)
	flag.Parse()

	logs.SetLevel(*logLevel)

	cfg, err := config.LoadFromFile(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if *dataPath != "" {
		cfg.DataPath = *dataPath
	}
	if *port != 0 {
		cfg.Port = *port
	}
	cfg.DB.Path = cfg.DataPath
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(cfg.DataPath, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "failed to create data dir: %v\n", err)
		os.Exit(1)
	}

	// 初始化节点密钥
	km := utils.GetKeyManager()
	if *priKey != "" {
		if err := km.InitKey(*priKey); err != nil {
			fmt.Fprintf(os.Stderr, "failed to load private key: %v\n", err)
			os.Exit(1)
		}
	} else {
		if err := km.GenerateKey(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to generate private key: %v\n", err)
			os.Exit(1)
		}
		logs.Warn("No key supplied, generated ephemeral key for address %s", km.GetAddress())
	}
	logs.Info("Node address: %s", km.GetAddress())
	logs.Info("Custody address: %s", vm.CustodyAddress())

	// 数据库
	dbMgr, err := db.NewManager(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open database: %v\n", err)
		os.Exit(1)
	}

	// 执行器
	registry := vm.NewHandlerRegistry()
	if err := vm.RegisterDefaultHandlers(registry); err != nil {
		fmt.Fprintf(os.Stderr, "failed to register handlers: %v\n", err)
		os.Exit(1)
	}
	executor := vm.NewExecutor(dbMgr, registry)

	// 可选：启动时创建托管资产
	if *bootstrap {
		info, err := executor.BootstrapAsset(
			km.GetAddress(),
			cfg.Vault.AssetName,
			cfg.Vault.AssetSymbol,
			cfg.Vault.AssetDecimals,
			vm.FirstTotalSupply,
		)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to bootstrap asset: %v\n", err)
			os.Exit(1)
		}
		logs.Info("Bootstrap asset %s (%s) at %s", info.Name, info.Symbol, info.Address)
	}

	// 组装应用
	container := app.NewContainer(cfg)
	container.DB = dbMgr
	container.Executor = executor
	container.Handlers = handlers.NewHandlerManager(
		dbMgr,
		executor,
		cfg,
		fmt.Sprintf("%d", cfg.Port),
		km.GetAddress(),
	)

	node := app.NewApp(container)
	if err := node.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start: %v\n", err)
		os.Exit(1)
	}

	// 等待退出信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logs.Info("Received signal %v, shutting down", sig)
	node.Stop()
}
