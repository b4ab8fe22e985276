package httpwire

import (
	"bytes"
	"errors"
	"fmt"
	"net"
	"strings"
)

// crlfCRLF はヘッダーブロックの終端
var crlfCRLF = []byte("\r\n\r\n")

// ErrTimeout は読み込みがタイムアウトしたことを示す
var ErrTimeout = errors.New("読み込みタイムアウト")

// ErrClosed は相手側が接続を閉じたことを示す
var ErrClosed = errors.New("接続が閉じられた")

// ParseError はリクエストの解析失敗を示す
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("リクエスト解析エラー: %s", e.Reason)
}

// Request は解析済みのHTTPリクエスト
// 解析後は変更しない
type Request struct {
	Method  string
	Path    string
	Version string
	Headers *HeaderMap
	Body    []byte // ヘッダーブロックと同時に読み込まれた本文の先頭部分
}

// KeepAlive はこのリクエストが接続維持を要求しているかを返す
// HTTP/1.1 かつ Connection: close が指定されていない場合のみ真
func (r *Request) KeepAlive() bool {
	return r.Version == "HTTP/1.1" &&
		strings.ToLower(r.Headers.GetDefault("Connection", "")) != "close"
}

// ReadHeaderBlock は終端（\r\n\r\n）が現れるまで生のバイト列を読み込む
// 終端が現れる前にmaxBytesへ達した場合は蓄積分をそのまま返す
// タイムアウト・切断時は蓄積分とErrTimeout/ErrClosedを返し、完全性の検証は呼び出し側に委ねる
func ReadHeaderBlock(conn net.Conn, maxBytes int) ([]byte, error) {
	var data []byte
	buf := make([]byte, 1024)
	for !bytes.Contains(data, crlfCRLF) && len(data) < maxBytes {
		n, err := conn.Read(buf)
		if n > 0 {
			data = append(data, buf[:n]...)
		}
		if err != nil {
			var nerr net.Error
			if errors.As(err, &nerr) && nerr.Timeout() {
				return data, ErrTimeout
			}
			return data, ErrClosed
		}
	}
	return data, nil
}

// ParseRequestLine はリクエストラインを3つのトークンに分解する
func ParseRequestLine(line string) (method, path, version string, err error) {
	parts := strings.Fields(line)
	if len(parts) != 3 {
		return "", "", "", &ParseError{Reason: fmt.Sprintf("リクエストラインのトークン数が不正: %q", line)}
	}
	return parts[0], parts[1], parts[2], nil
}

// ParseRequest は読み込んだ生バイト列をRequestへ解析する
// ヘッダー行のうち「: 」区切りを持たないものはエラーにせず読み飛ばす
func ParseRequest(raw []byte) (*Request, error) {
	head := raw
	var body []byte
	if idx := bytes.Index(raw, crlfCRLF); idx >= 0 {
		head = raw[:idx]
		body = raw[idx+len(crlfCRLF):]
	}

	lines := strings.Split(string(head), "\r\n")
	if len(lines) == 0 || lines[0] == "" {
		return nil, &ParseError{Reason: "リクエストラインが空"}
	}

	method, path, version, err := ParseRequestLine(lines[0])
	if err != nil {
		return nil, err
	}

	headers := NewHeaderMap()
	for _, line := range lines[1:] {
		name, value, ok := strings.Cut(line, ": ")
		if !ok {
			continue
		}
		headers.Set(strings.TrimSpace(name), strings.TrimSpace(value))
	}

	return &Request{
		Method:  method,
		Path:    path,
		Version: version,
		Headers: headers,
		Body:    body,
	}, nil
}
