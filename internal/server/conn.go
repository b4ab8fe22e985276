package server

import (
	"errors"
	"net"
	"time"

	"github.com/sirupsen/logrus"

	"kura/internal/httpwire"
)

// handleConnection は1接続上のリクエストループを最後まで処理する
//
// 状態遷移: 受信待ち → 解析 → ルーティング → 応答 → (keep-aliveなら受信待ちへ) | 終了
// keep-aliveが無効になるか、リクエスト数が上限に達するか、
// アイドルタイムアウトが経過した時点で接続を閉じる。
func (s *Server) handleConnection(log *logrus.Entry, conn net.Conn) {
	defer conn.Close()
	remote := conn.RemoteAddr()
	log.Infof("接続を受け付けた: %s", remote)

	handled := 0
	lastActivity := time.Now()

	for handled < s.config.Server.MaxRequestsPerConn {
		// 受信待ち: アイドル読み込みタイムアウトを毎回張り直す
		conn.SetReadDeadline(time.Now().Add(s.config.Server.ConnTimeout))
		raw, readErr := httpwire.ReadHeaderBlock(conn, s.config.Server.MaxHeaderSize)
		if len(raw) == 0 {
			if errors.Is(readErr, httpwire.ErrTimeout) {
				log.Debugf("アイドルタイムアウト: %s", remote)
			}
			break
		}
		lastActivity = time.Now()

		// 解析: リクエストラインの不正・Host欠落はどちらも400
		req, err := httpwire.ParseRequest(raw)
		if err != nil || !req.Headers.Has("Host") {
			s.writeError(conn, 400, "Bad Request", "400 Bad Request")
			break
		}

		host, _ := req.Headers.Get("Host")
		if !s.isValidHost(host) {
			s.writeError(conn, 403, "Forbidden", "403 Forbidden")
			break
		}

		keepAlive := req.KeepAlive()

		// 正規化より前の一次防御として、生パスの文字列を検査する
		if hasTraversal(req.Path) {
			s.writeError(conn, 403, "Forbidden", "403 Forbidden")
			break
		}

		// ルーティング: 成功応答以外はすべて接続を終了させる
		if !s.route(log, conn, req, keepAlive) {
			break
		}

		handled++
		if !keepAlive {
			break
		}
		if time.Since(lastActivity) > s.config.Server.ConnTimeout {
			break
		}
	}

	log.Infof("接続を閉じた: %s", remote)
}

// writeError はConnection: closeを伴う単純なエラー応答を書き込む
func (s *Server) writeError(conn net.Conn, status int, reason, body string) {
	resp := newErrorResponse(status, reason, body)
	if _, err := conn.Write(resp.Encode()); err != nil {
		s.log.Debugf("エラー応答の送信に失敗: %v", err)
	}
}

// newErrorResponse はエラー応答を組み立てる
func newErrorResponse(status int, reason, body string) *httpwire.Response {
	resp := httpwire.NewResponse(status, reason)
	resp.Headers.Set("Connection", "close")
	resp.Body = []byte(body)
	return resp
}
