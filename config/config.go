// config/config.go
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Config 主配置结构
type Config struct {
	DataPath string // 数据目录
	Port     int    // 服务端口
	Server   ServerConfig
	DB       DBConfig
	Vault    VaultConfig
}

// ServerConfig HTTP/3服务器配置
type ServerConfig struct {
	// TLS/QUIC配置
	QUICKeepAlivePeriod time.Duration // 10 * time.Second
	QUICMaxIdleTimeout  time.Duration // 5 * time.Minute
	QUICAllow0RTT       bool          // true
	CertValidityDays    int           // 365

	// HTTP配置
	HTTPTimeout        time.Duration // 30 * time.Second
	MaxRequestBodySize int64         // 1 << 20 (1MB)
}

// DBConfig 数据库配置
type DBConfig struct {
	Path string

	// BadgerDB写队列配置
	WriteQueueSize int           // 10000
	MaxBatchSize   int           // 100 条就写一次
	FlushInterval  time.Duration // 200 * time.Millisecond
}

// VaultConfig 金库/资产配置
type VaultConfig struct {
	AssetName     string // 托管资产名称
	AssetSymbol   string
	AssetDecimals uint32
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		DataPath: "./data",
		Port:     8080,
		Server: ServerConfig{
			QUICKeepAlivePeriod: 10 * time.Second,
			QUICMaxIdleTimeout:  5 * time.Minute,
			QUICAllow0RTT:       true,
			CertValidityDays:    365,
			HTTPTimeout:         30 * time.Second,
			MaxRequestBodySize:  1 << 20,
		},
		DB: DBConfig{
			Path:           "./data",
			WriteQueueSize: 10000,
			MaxBatchSize:   100,
			FlushInterval:  200 * time.Millisecond,
		},
		Vault: VaultConfig{
			AssetName:     "Vault Token",
			AssetSymbol:   "VLT",
			AssetDecimals: 9,
		},
	}
}

// LoadFromFile 从 JSON 文件加载配置，缺省字段保持默认值
// path 为空时直接返回默认配置
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

// Validate 校验配置合法性
func (c *Config) Validate() error {
	if c.DataPath == "" {
		return fmt.Errorf("data path is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.DB.WriteQueueSize <= 0 {
		return fmt.Errorf("write queue size must be positive")
	}
	if c.DB.MaxBatchSize <= 0 {
		return fmt.Errorf("max batch size must be positive")
	}
	return nil
}
