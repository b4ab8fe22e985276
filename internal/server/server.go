package server

import (
	"context"
	"fmt"
	"net"
	"slices"
	"time"

	"github.com/sirupsen/logrus"

	"kura/internal/config"
	"kura/internal/store"
)

// Server はHTTPサーバー全体を管理する構造体
type Server struct {
	config     *config.Config
	store      *store.Store
	pool       *workerPool
	log        *logrus.Logger
	validHosts []string // Hostヘッダーとして許可される値（実際のリッスンポートで構成）
	addr       net.Addr
	ready      chan struct{} // リッスン開始で閉じられる
}

// New は新しいServerインスタンスを作成する
func New(cfg *config.Config) (*Server, error) {
	st, err := store.New(cfg.Files.ResourcesDir, cfg.UploadsDir())
	if err != nil {
		return nil, err
	}

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	return &Server{
		config: cfg,
		store:  st,
		pool:   newWorkerPool(cfg.Server.PoolSize, cfg.Server.QueueSize, log),
		log:    log,
		ready:  make(chan struct{}),
	}, nil
}

// Addr はリッスン中のアドレスを返す
// Startがリッスンを開始する前はnil
func (s *Server) Addr() net.Addr {
	return s.addr
}

// WaitReady はリッスン開始まで待つ
func (s *Server) WaitReady() <-chan struct{} {
	return s.ready
}

// Start はサーバーを起動し、コンテキストが取り消されるまでacceptループを回す
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.config.ServerAddress())
	if err != nil {
		return fmt.Errorf("リッスンに失敗: %w", err)
	}

	// ポート0指定に備え、実際のポートで許可Host一覧を構成する
	port := listener.Addr().(*net.TCPAddr).Port
	s.validHosts = s.config.ValidHosts(port)
	s.addr = listener.Addr()
	close(s.ready)

	s.pool.start(s.handleConnection)

	s.log.Infof("HTTPサーバーを起動しました: %s", listener.Addr())
	s.log.Infof("ワーカー数: %d, キュー容量: %d", s.config.Server.PoolSize, s.config.Server.QueueSize)
	s.log.Infof("配信ディレクトリ: %s", s.store.Root())

	// コンテキストの取り消しでリスナーを閉じ、acceptループを終了させる
	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				break // シャットダウン中
			}
			s.log.Errorf("接続の受け付けに失敗: %v", err)
			continue
		}

		if !s.pool.submit(conn) {
			s.rejectOverloaded(conn)
		}
	}

	s.log.Info("サーバーを停止しています...")
	s.pool.stop()
	s.log.Info("サーバーを停止しました")
	return nil
}

// rejectOverloaded はキュー飽和時に503を返して接続を閉じる
// ワーカーへは渡さず、acceptループ上で同期的に書き込む
func (s *Server) rejectOverloaded(conn net.Conn) {
	defer conn.Close()

	// 応答を受け取らないクライアントにacceptループを止めさせない
	conn.SetWriteDeadline(time.Now().Add(time.Second))

	resp := newErrorResponse(503, "Service Unavailable", "503 Service Unavailable")
	resp.Headers.Set("Retry-After", fmt.Sprintf("%d", s.config.Server.RetryAfter))
	if _, err := conn.Write(resp.Encode()); err != nil {
		s.log.Warnf("503応答の送信に失敗: %v", err)
	}
	s.log.Warnf("キュー飽和のため接続を拒否: %s", conn.RemoteAddr())
}

// isValidHost はHostヘッダー値が許可一覧に含まれるかを返す
func (s *Server) isValidHost(host string) bool {
	return slices.Contains(s.validHosts, host)
}
