package server

import (
	"errors"
	"fmt"
	"io"
	"net"
	"path/filepath"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"

	"kura/internal/httpwire"
	"kura/internal/store"
)

// json はアップロード本文の符号化・復号に使うコーデック
var json = jsoniter.ConfigCompatibleWithStandardLibrary

// uploadResult はPOST /upload成功時の応答本文
type uploadResult struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Filepath string `json:"filepath"`
}

// handleGetHead は静的ファイル配信アクション
// 検査順序は固定: パス解決（ディレクトリ拒否）→ 拡張子許可リスト → 存在確認
// 拡張子検査は必ず存在確認より先に行う
func (s *Server) handleGetHead(log *logrus.Entry, conn net.Conn, req *httpwire.Request, keepAlive bool) bool {
	path := req.Path
	if path == "/" {
		path = "/index.html"
	}

	// 二次防御: 文字列検査を通った後でも正規化結果でルート外を拒否する
	filePath, ok := s.store.Resolve(path)
	if !ok || s.store.IsDir(filePath) {
		s.writeError(conn, 403, "Forbidden", "403 Forbidden")
		return false
	}

	ext := strings.ToLower(filepath.Ext(filePath))
	if !allowedExtensions[ext] {
		s.writeError(conn, 415, "Unsupported Media Type", "415 Unsupported Media Type")
		return false
	}

	if !s.store.Exists(filePath) {
		s.writeError(conn, 404, "Not Found", "404 Not Found")
		return false
	}

	if ext == ".html" {
		return s.serveHTML(log, conn, req, filePath, keepAlive)
	}
	return s.serveBinary(log, conn, req, filePath, keepAlive)
}

// serveHTML はHTMLファイルを全量バッファして応答する
func (s *Server) serveHTML(log *logrus.Entry, conn net.Conn, req *httpwire.Request, filePath string, keepAlive bool) bool {
	body, err := s.store.ReadAll(filePath)
	if err != nil {
		log.Errorf("ファイルの読み込みに失敗: %v", err)
		return false
	}

	resp := httpwire.NewResponse(200, "OK")
	resp.Headers.Set("Content-Type", "text/html; charset=utf-8")
	resp.Headers.Set("Content-Length", strconv.Itoa(len(body)))
	s.setKeepAliveHeaders(resp, keepAlive)

	// HEADはヘッダーのみ（Content-Lengthは本来のサイズのまま）
	if req.Method == "GET" {
		resp.Body = body
	}

	if _, err := conn.Write(resp.Encode()); err != nil {
		log.Debugf("応答の送信に失敗: %v", err)
		return false
	}
	log.Infof("HTMLを配信: %s (%dバイト)", req.Path, len(body))
	return true
}

// serveBinary はバイナリ系ファイルを分割ストリーミングで応答する
// 本文の送出前にメソッドを検査し、HEADでは1バイトも本文を書かない
func (s *Server) serveBinary(log *logrus.Entry, conn net.Conn, req *httpwire.Request, filePath string, keepAlive bool) bool {
	size, err := s.store.Size(filePath)
	if err != nil {
		log.Errorf("ファイルサイズの取得に失敗: %v", err)
		return false
	}

	resp := httpwire.NewResponse(200, "OK")
	resp.Headers.Set("Content-Type", "application/octet-stream")
	resp.Headers.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(filePath)))
	resp.Headers.Set("Content-Length", strconv.FormatInt(size, 10))
	s.setKeepAliveHeaders(resp, keepAlive)

	if _, err := conn.Write(resp.Encode()); err != nil {
		log.Debugf("応答の送信に失敗: %v", err)
		return false
	}

	if req.Method != "GET" {
		return true
	}

	f, err := s.store.Open(filePath)
	if err != nil {
		log.Errorf("ファイルのオープンに失敗: %v", err)
		return false
	}
	defer f.Close()

	buf := make([]byte, store.ChunkSize)
	for {
		n, rerr := f.Read(buf)
		if n > 0 {
			if _, werr := conn.Write(buf[:n]); werr != nil {
				log.Debugf("本文の送信に失敗: %v", werr)
				return false
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			log.Errorf("ファイルの読み込みに失敗: %v", rerr)
			return false
		}
	}

	log.Infof("バイナリファイルを配信: %s (%dバイト)", req.Path, size)
	return true
}

// handlePost はJSONアップロードアクション
//
// /upload以外へのPOSTとJSON以外のContent-Typeは415。
// 本文はContent-Lengthで宣言された長さに達するまで接続から読み足す。
// 読み足しは接続の読み込みデッドラインの下で行われるため、
// 停止したクライアントがワーカーを占有し続けることはない（バイト数上限は設けない）。
func (s *Server) handlePost(log *logrus.Entry, conn net.Conn, req *httpwire.Request, keepAlive bool) bool {
	contentType := req.Headers.GetDefault("Content-Type", "")
	if req.Path != uploadPath || !strings.Contains(contentType, "application/json") {
		s.writeError(conn, 415, "Unsupported Media Type", "415 Unsupported Media Type")
		return false
	}

	// 数値でない・負のContent-Lengthは本文を読まずに弾く
	contentLength, err := strconv.Atoi(req.Headers.GetDefault("Content-Length", "0"))
	if err != nil || contentLength < 0 {
		s.writeError(conn, 400, "Bad Request", "400 Bad Request: Invalid Content-Length")
		return false
	}

	body, err := s.readBody(conn, req.Body, contentLength)
	if err != nil {
		s.writeError(conn, 400, "Bad Request", "400 Bad Request: Incomplete body")
		return false
	}

	var value any
	if err := json.Unmarshal(body, &value); err != nil {
		// 解析に失敗した場合はディスクへ何も書かない
		s.writeError(conn, 400, "Bad Request", "400 Bad Request: Invalid JSON")
		return false
	}

	pretty, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		log.Errorf("アップロードの符号化に失敗: %v", err)
		return false
	}

	filename, err := s.store.WriteNew(pretty)
	if err != nil {
		log.Errorf("%v", err)
		return false
	}

	respBody, err := json.Marshal(uploadResult{
		Status:   "success",
		Message:  "File created successfully",
		Filepath: "/uploads/" + filename,
	})
	if err != nil {
		log.Errorf("応答本文の符号化に失敗: %v", err)
		return false
	}

	resp := httpwire.NewResponse(201, "Created")
	resp.Headers.Set("Content-Type", "application/json")
	resp.Headers.Set("Content-Length", strconv.Itoa(len(respBody)))
	s.setKeepAliveHeaders(resp, keepAlive)
	resp.Body = respBody

	if _, err := conn.Write(resp.Encode()); err != nil {
		log.Debugf("応答の送信に失敗: %v", err)
		return false
	}
	log.Infof("JSONアップロードを作成: %s (%dバイト)", filename, len(pretty))
	return true
}

// readBody はヘッダーと同時に読み込まれた先頭部分に続けて、宣言長まで本文を読み足す
func (s *Server) readBody(conn net.Conn, initial []byte, contentLength int) ([]byte, error) {
	data := initial
	buf := make([]byte, 4096)
	for len(data) < contentLength {
		n, err := conn.Read(buf)
		if n > 0 {
			data = append(data, buf[:n]...)
		}
		if err != nil {
			if len(data) >= contentLength {
				break
			}
			return nil, errors.New("本文が宣言長に満たないまま読み込みが終了")
		}
	}
	if len(data) > contentLength {
		data = data[:contentLength]
	}
	return data, nil
}
