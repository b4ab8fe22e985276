// Package store はファイルシステムとの境界を担う
//
// 配信ルート配下のパス解決・読み取りと、アップロードの新規書き込みを提供する。
// パス解決はルート外への脱出を許さない。
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ChunkSize はバイナリ配信時の分割サイズ
const ChunkSize = 8192

// Store は配信ルートとアップロード保存先を束ねる構造体
type Store struct {
	root       string // 正規化済みの配信ルート
	uploadsDir string
}

// New はStoreを作成する
// 配信ルートとアップロードディレクトリが存在しない場合は作成する
func New(resourcesDir, uploadsDir string) (*Store, error) {
	if err := os.MkdirAll(resourcesDir, 0o755); err != nil {
		return nil, fmt.Errorf("配信ディレクトリの作成に失敗: %w", err)
	}
	if err := os.MkdirAll(uploadsDir, 0o755); err != nil {
		return nil, fmt.Errorf("アップロードディレクトリの作成に失敗: %w", err)
	}

	// シンボリックリンク経由の脱出を判定できるよう実パスへ正規化する
	root, err := filepath.Abs(resourcesDir)
	if err != nil {
		return nil, fmt.Errorf("配信ルートの解決に失敗: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}

	return &Store{root: root, uploadsDir: uploadsDir}, nil
}

// Root は正規化済みの配信ルートを返す
func (s *Store) Root() string {
	return s.root
}

// Resolve は要求パスを配信ルート配下の実パスへ解決する
// 正規化の結果がルートの外に出る場合は ok=false を返す
func (s *Store) Resolve(reqPath string) (path string, ok bool) {
	target := filepath.Join(s.root, strings.TrimLeft(reqPath, "/"))
	target = filepath.Clean(target)

	// 存在するパスはシンボリックリンクも解決して判定する
	if resolved, err := filepath.EvalSymlinks(target); err == nil {
		target = resolved
	}

	if target != s.root && !strings.HasPrefix(target, s.root+string(filepath.Separator)) {
		return "", false
	}
	return target, true
}

// Exists はパスの存在を返す
func (s *Store) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// IsDir はパスがディレクトリかを返す
func (s *Store) IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// Size はファイルサイズを返す
func (s *Store) Size(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// ReadAll はファイル全体を読み込む
func (s *Store) ReadAll(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Open はストリーミング読み取り用にファイルを開く
func (s *Store) Open(path string) (*os.File, error) {
	return os.Open(path)
}

// WriteNew はアップロードデータを一意な名前の新規ファイルへ書き込み、ファイル名を返す
// 名前はUTCタイムスタンプ（秒精度）とランダムな識別子から構成され、衝突時は作成に失敗する
func (s *Store) WriteNew(data []byte) (string, error) {
	timestamp := time.Now().UTC().Format("20060102_150405")
	suffix := uuid.NewString()[:8]
	filename := fmt.Sprintf("upload_%s_%s.json", timestamp, suffix)

	f, err := os.OpenFile(filepath.Join(s.uploadsDir, filename), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("アップロードファイルの作成に失敗: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return "", fmt.Errorf("アップロードファイルの書き込みに失敗: %w", err)
	}
	return filename, nil
}
