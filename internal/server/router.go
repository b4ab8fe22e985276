package server

import (
	"fmt"
	"net"
	"strings"

	"github.com/sirupsen/logrus"

	"kura/internal/httpwire"
)

// uploadPath はJSONアップロードを受け付ける唯一のパス
const uploadPath = "/upload"

// allowedExtensions は配信可能な拡張子の許可リスト
var allowedExtensions = map[string]bool{
	".html": true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".txt":  true,
}

// hasTraversal は生のリクエストパスにトラバーサルの痕跡があるかを返す
func hasTraversal(path string) bool {
	return strings.Contains(path, "..") ||
		strings.HasPrefix(path, "/../") ||
		strings.HasPrefix(path, "//")
}

// route はメソッドに応じてリクエストをアクションへ振り分ける
// 戻り値は接続を継続してよいか（エラー応答はすべて接続を終了させる）
func (s *Server) route(log *logrus.Entry, conn net.Conn, req *httpwire.Request, keepAlive bool) bool {
	switch req.Method {
	case "GET", "HEAD":
		return s.handleGetHead(log, conn, req, keepAlive)
	case "POST":
		return s.handlePost(log, conn, req, keepAlive)
	default:
		s.writeError(conn, 405, "Method Not Allowed", "405 Method Not Allowed")
		return false
	}
}

// setKeepAliveHeaders は交渉済みのkeep-alive状態に応じた接続ヘッダーを設定する
// Keep-Aliveヘッダーは接続を維持する場合にのみ付与する
func (s *Server) setKeepAliveHeaders(resp *httpwire.Response, keepAlive bool) {
	if keepAlive {
		resp.Headers.Set("Connection", "keep-alive")
		resp.Headers.Set("Keep-Alive", s.keepAliveValue())
	} else {
		resp.Headers.Set("Connection", "close")
	}
}

// keepAliveValue はKeep-Aliveヘッダーの値（タイムアウトと回数上限）を返す
func (s *Server) keepAliveValue() string {
	return fmt.Sprintf("timeout=%d, max=%d",
		int(s.config.Server.ConnTimeout.Seconds()), s.config.Server.MaxRequestsPerConn)
}
