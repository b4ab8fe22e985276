package server

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// postJSON はPOST /upload リクエストを組み立てて送る
func postJSON(t *testing.T, ts *testServer, conn io.Writer, path, contentType, body string) {
	t.Helper()
	req := fmt.Sprintf("POST %s HTTP/1.1\r\nHost: %s\r\nContent-Type: %s\r\nContent-Length: %d\r\n\r\n%s",
		path, ts.host, contentType, len(body), body)
	_, err := conn.Write([]byte(req))
	require.NoError(t, err)
}

// uploadedFiles はアップロードディレクトリ内のファイル名一覧を返す
func uploadedFiles(t *testing.T, ts *testServer) []string {
	t.Helper()
	entries, err := os.ReadDir(ts.cfg.UploadsDir())
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

// TestUpload は正常なJSONアップロードをテストする
func TestUpload(t *testing.T) {
	ts := startTestServer(t, nil)
	conn := ts.dial(t)
	br := bufio.NewReader(conn)

	payload := `{"name": "kura", "count": 3}`
	postJSON(t, ts, conn, "/upload", "application/json", payload)

	resp, err := readResponse(br, false)
	require.NoError(t, err)
	assert.Equal(t, 201, resp.status)
	assert.Equal(t, "application/json", resp.header("Content-Type"))

	var result struct {
		Status   string `json:"status"`
		Message  string `json:"message"`
		Filepath string `json:"filepath"`
	}
	require.NoError(t, json.Unmarshal(resp.body, &result))
	assert.Equal(t, "success", result.Status)
	assert.Equal(t, "File created successfully", result.Message)
	require.True(t, strings.HasPrefix(result.Filepath, "/uploads/"), "filepath: %s", result.Filepath)

	// 応答のfilepathが指すファイルが実在し、内容が元のJSONと一致する
	filename := strings.TrimPrefix(result.Filepath, "/uploads/")
	data, err := os.ReadFile(filepath.Join(ts.cfg.UploadsDir(), filename))
	require.NoError(t, err)

	var stored, original any
	require.NoError(t, json.Unmarshal(data, &stored))
	require.NoError(t, json.Unmarshal([]byte(payload), &original))
	assert.Equal(t, original, stored)
}

// TestUploadInvalidJSON は不正なJSONが400になり何も書かれないことをテストする
func TestUploadInvalidJSON(t *testing.T) {
	ts := startTestServer(t, nil)
	conn := ts.dial(t)
	br := bufio.NewReader(conn)

	postJSON(t, ts, conn, "/upload", "application/json", `{"broken":`)

	resp, err := readResponse(br, false)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.status)
	assert.Contains(t, string(resp.body), "Invalid JSON")

	assert.Empty(t, uploadedFiles(t, ts))
}

// TestUploadWrongTarget は/upload以外へのPOSTとJSON以外の型が415になることをテストする
func TestUploadWrongTarget(t *testing.T) {
	ts := startTestServer(t, nil)

	t.Run("別パスへのPOST", func(t *testing.T) {
		conn := ts.dial(t)
		br := bufio.NewReader(conn)

		postJSON(t, ts, conn, "/other", "application/json", `{}`)
		resp, err := readResponse(br, false)
		require.NoError(t, err)
		assert.Equal(t, 415, resp.status)
	})

	t.Run("JSON以外のContent-Type", func(t *testing.T) {
		conn := ts.dial(t)
		br := bufio.NewReader(conn)

		postJSON(t, ts, conn, "/upload", "text/plain", `{}`)
		resp, err := readResponse(br, false)
		require.NoError(t, err)
		assert.Equal(t, 415, resp.status)
	})

	assert.Empty(t, uploadedFiles(t, ts))
}

// TestUploadInvalidContentLength は数値でない・負のContent-Lengthが400になることをテストする
func TestUploadInvalidContentLength(t *testing.T) {
	ts := startTestServer(t, nil)

	testCases := []struct {
		name   string
		length string
	}{
		{"負の値", "-5"},
		{"数値でない値", "abc"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			conn := ts.dial(t)
			br := bufio.NewReader(conn)

			req := fmt.Sprintf("POST /upload HTTP/1.1\r\nHost: %s\r\nContent-Type: application/json\r\nContent-Length: %s\r\n\r\n{}",
				ts.host, tc.length)
			_, err := conn.Write([]byte(req))
			require.NoError(t, err)

			resp, err := readResponse(br, false)
			require.NoError(t, err)
			assert.Equal(t, 400, resp.status)
			assert.Contains(t, string(resp.body), "Invalid Content-Length")
		})
	}

	assert.Empty(t, uploadedFiles(t, ts))
}

// TestUploadBodyInSeparateWrite はヘッダーより後から届く本文の読み足しをテストする
func TestUploadBodyInSeparateWrite(t *testing.T) {
	ts := startTestServer(t, nil)
	conn := ts.dial(t)
	br := bufio.NewReader(conn)

	body := `{"delayed": true}`
	head := fmt.Sprintf("POST /upload HTTP/1.1\r\nHost: %s\r\nContent-Type: application/json\r\nContent-Length: %d\r\n\r\n",
		ts.host, len(body))

	// ヘッダーブロックだけを先に送り、本文は少し遅らせる
	_, err := conn.Write([]byte(head))
	require.NoError(t, err)
	time.Sleep(100 * time.Millisecond)
	_, err = conn.Write([]byte(body))
	require.NoError(t, err)

	resp, err := readResponse(br, false)
	require.NoError(t, err)
	assert.Equal(t, 201, resp.status)
	assert.Len(t, uploadedFiles(t, ts), 1)
}

// TestUploadKeepAlive はアップロード成功後も接続が継続することをテストする
func TestUploadKeepAlive(t *testing.T) {
	ts := startTestServer(t, nil)
	conn := ts.dial(t)
	br := bufio.NewReader(conn)

	postJSON(t, ts, conn, "/upload", "application/json", `{"a": 1}`)
	first, err := readResponse(br, false)
	require.NoError(t, err)
	require.Equal(t, 201, first.status)
	assert.Equal(t, "keep-alive", first.header("Connection"))

	// 同じ接続でGETが継続できる
	fmt.Fprintf(conn, "GET /hello.html HTTP/1.1\r\nHost: %s\r\n\r\n", ts.host)
	second, err := readResponse(br, false)
	require.NoError(t, err)
	assert.Equal(t, 200, second.status)
}
