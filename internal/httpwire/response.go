package httpwire

import (
	"bytes"
	"fmt"
	"time"
)

// httpDateFormat はRFC 1123形式（GMT固定）の日付フォーマット
const httpDateFormat = "Mon, 02 Jan 2006 15:04:05 GMT"

// HTTPDate は現在時刻をDateヘッダー用の文字列で返す
func HTTPDate() string {
	return time.Now().UTC().Format(httpDateFormat)
}

// Response は送信前のHTTPレスポンス
// ヘッダーは挿入順のまま出力される
type Response struct {
	Status  int
	Reason  string
	Headers *HeaderMap
	Body    []byte
}

// NewResponse は状態コードと理由句を持つレスポンスを作成する
// Dateヘッダーは常に先頭へ設定される
func NewResponse(status int, reason string) *Response {
	resp := &Response{
		Status:  status,
		Reason:  reason,
		Headers: NewHeaderMap(),
	}
	resp.Headers.Set("Date", HTTPDate())
	return resp
}

// Encode はレスポンスをワイヤーフォーマットのバイト列へ組み立てる
func (r *Response) Encode() []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "HTTP/1.1 %d %s\r\n", r.Status, r.Reason)
	r.Headers.Each(func(name, value string) {
		fmt.Fprintf(&buf, "%s: %s\r\n", name, value)
	})
	buf.WriteString("\r\n")
	buf.Write(r.Body)
	return buf.Bytes()
}
