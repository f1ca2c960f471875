// app/app.go
package app

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"vaultd/config"
	"vaultd/crt"
	"vaultd/db"
	"vaultd/handlers"
	"vaultd/logs"
	"vaultd/middleware"
	"vaultd/vm"

	"github.com/quic-go/quic-go"
	"github.com/quic-go/quic-go/http3"
)

// Container 依赖注入容器
type Container struct {
	Config   *config.Config
	DB       *db.Manager
	Executor *vm.Executor
	Handlers *handlers.HandlerManager

	// 其他服务
	services map[string]interface{}
	mu       sync.RWMutex
}

// NewContainer 创建新的依赖容器
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		Config:   cfg,
		services: make(map[string]interface{}),
	}
}

// Register 注册服务
func (c *Container) Register(name string, service interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.services[name] = service
}

// Get 获取服务
func (c *Container) Get(name string) interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.services[name]
}

// App 主应用结构
type App struct {
	container *Container
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup

	http3Server *http3.Server
	tcpServer   *http.Server
}

// NewApp 创建应用实例
func NewApp(container *Container) *App {
	ctx, cancel := context.WithCancel(context.Background())
	return &App{
		container: container,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start 启动所有服务并开始监听
// 先起 HTTP/3(QUIC)，再起同端口的 TCP TLS 兜底，供不支持QUIC的客户端使用
func (a *App) Start() error {
	cfg := a.container.Config
	port := strconv.Itoa(cfg.Port)

	// 创建HTTP路由
	mux := http.NewServeMux()
	a.container.Handlers.RegisterRoutes(mux)

	// 应用中间件
	handler := middleware.RateLimit(mux)
	middleware.StartIPCleanup()

	// 生成自签名证书
	certFile := filepath.Join(cfg.DataPath, "server.crt")
	keyFile := filepath.Join(cfg.DataPath, "server.key")
	if err := crt.GenerateSelfSignedCert(certFile, keyFile, "vaultd", cfg.Server.CertValidityDays); err != nil {
		return fmt.Errorf("failed to generate certificate: %w", err)
	}

	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return fmt.Errorf("failed to load certificate: %w", err)
	}

	// 创建TLS配置
	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS13,
		MaxVersion:   tls.VersionTLS13,
		// ALPN同时声明 h3 和 http/1.1，TCP 回落才能握手成功
		NextProtos: []string{"h3", "h3-29", "h3-28", "h3-27", "http/1.1"},
	}

	// 创建QUIC配置
	quicConfig := &quic.Config{
		KeepAlivePeriod: cfg.Server.QUICKeepAlivePeriod,
		MaxIdleTimeout:  cfg.Server.QUICMaxIdleTimeout,
		Allow0RTT:       cfg.Server.QUICAllow0RTT,
	}

	a.http3Server = &http3.Server{
		Addr:       ":" + port,
		Handler:    handler,
		TLSConfig:  tlsConfig,
		QUICConfig: quicConfig,
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		logs.Info("Starting HTTP/3 server on port %s", port)
		if err := a.http3Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logs.Error("HTTP/3 server error: %v", err)
		}
	}()

	// 后台 TCP TLS 服务器，同端口兜底
	a.tcpServer = &http.Server{
		Addr:         ":" + port,
		Handler:      handler,
		TLSConfig:    tlsConfig,
		ReadTimeout:  cfg.Server.HTTPTimeout,
		WriteTimeout: cfg.Server.HTTPTimeout,
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.tcpServer.ListenAndServeTLS("", ""); err != nil && err != http.ErrServerClosed {
			logs.Error("TCP TLS server error: %v", err)
		}
	}()

	return nil
}

// Stop 按依赖逆序优雅停机
func (a *App) Stop() {
	a.cancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if a.tcpServer != nil {
		if err := a.tcpServer.Shutdown(shutdownCtx); err != nil {
			logs.Error("TCP server shutdown error: %v", err)
		}
	}
	if a.http3Server != nil {
		if err := a.http3Server.Close(); err != nil {
			logs.Error("HTTP/3 server shutdown error: %v", err)
		}
	}

	a.wg.Wait()

	if a.container.DB != nil {
		if err := a.container.DB.Close(); err != nil {
			logs.Error("DB close error: %v", err)
		}
	}
	logs.Info("App stopped")
}
