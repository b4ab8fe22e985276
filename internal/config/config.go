// Package config はサーバー全体の設定管理を担う
package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config はアプリケーション全体の設定を保持する構造体
type Config struct {
	Server ServerConfig
	Files  FilesConfig
}

// ServerConfig はHTTPサーバーの設定
type ServerConfig struct {
	Host string `envconfig:"SERVER_HOST" default:"127.0.0.1"` // リッスンするホスト
	Port int    `envconfig:"PORT" default:"8080"`             // リッスンするポート番号

	// ワーカープール設定
	PoolSize   int `envconfig:"POOL_SIZE" default:"10"`   // ワーカー数
	QueueSize  int `envconfig:"QUEUE_SIZE" default:"200"` // 受付キューの容量
	RetryAfter int `envconfig:"RETRY_AFTER" default:"5"`  // 503応答のRetry-After秒数

	// 接続ごとの制限
	ConnTimeout        time.Duration `envconfig:"CONN_TIMEOUT" default:"30s"`          // アイドル読み込みタイムアウト
	MaxRequestsPerConn int           `envconfig:"MAX_REQUESTS_PER_CONN" default:"100"` // 1接続あたりの最大リクエスト数
	MaxHeaderSize      int           `envconfig:"MAX_HEADER_SIZE" default:"8192"`      // ヘッダーブロックの最大バイト数
}

// FilesConfig はファイル配信関連の設定
type FilesConfig struct {
	ResourcesDir string `envconfig:"RESOURCES_DIR" default:"resources"` // 配信ルートディレクトリ
}

// Load は環境変数から設定を読み込む
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("環境変数の読み込みに失敗: %w", err)
	}

	// 設定の検証
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定の検証に失敗: %w", err)
	}

	return &cfg, nil
}

// Validate は設定の妥当性を検証する
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("無効なポート番号: %d", c.Server.Port)
	}
	if c.Server.PoolSize < 1 {
		return fmt.Errorf("無効なワーカー数: %d", c.Server.PoolSize)
	}
	if c.Server.QueueSize < 0 {
		return fmt.Errorf("無効なキュー容量: %d", c.Server.QueueSize)
	}
	if c.Server.MaxRequestsPerConn < 1 {
		return fmt.Errorf("無効な最大リクエスト数: %d", c.Server.MaxRequestsPerConn)
	}
	if c.Server.MaxHeaderSize < 1 {
		return fmt.Errorf("無効なヘッダーサイズ上限: %d", c.Server.MaxHeaderSize)
	}
	return nil
}

// ServerAddress はサーバーのリッスンアドレスを返す
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// ValidHosts はHostヘッダーとして許可される値の一覧を返す
// ポート0でリッスンした場合に備え、実際に確保したポートを受け取る
func (c *Config) ValidHosts(port int) []string {
	return []string{
		fmt.Sprintf("%s:%d", c.Server.Host, port),
		fmt.Sprintf("localhost:%d", port),
	}
}

// UploadsDir はアップロード保存ディレクトリのパスを返す
func (c *Config) UploadsDir() string {
	return filepath.Join(c.Files.ResourcesDir, "uploads")
}
