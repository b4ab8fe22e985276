package httpwire

import "strings"

// HeaderMap は挿入順を保持するHTTPヘッダーの集合
// 照合は大文字小文字を区別せず、名前の表記は最初の挿入時のまま保持する
type HeaderMap struct {
	keys   []string          // 挿入順の正規化済みキー
	names  map[string]string // 正規化済みキー → 表記
	values map[string]string // 正規化済みキー → 値
}

// NewHeaderMap は空のHeaderMapを作成する
func NewHeaderMap() *HeaderMap {
	return &HeaderMap{
		names:  make(map[string]string),
		values: make(map[string]string),
	}
}

// Set はヘッダーを設定する
// 既存の名前に対しては値だけを更新し、挿入位置と表記は変えない
func (h *HeaderMap) Set(name, value string) {
	key := strings.ToLower(name)
	if _, ok := h.values[key]; !ok {
		h.keys = append(h.keys, key)
		h.names[key] = name
	}
	h.values[key] = value
}

// Get はヘッダー値を取得する
func (h *HeaderMap) Get(name string) (string, bool) {
	v, ok := h.values[strings.ToLower(name)]
	return v, ok
}

// GetDefault はヘッダー値を取得し、存在しない場合はデフォルト値を返す
func (h *HeaderMap) GetDefault(name, def string) string {
	if v, ok := h.Get(name); ok {
		return v
	}
	return def
}

// Has はヘッダーの有無を返す
func (h *HeaderMap) Has(name string) bool {
	_, ok := h.values[strings.ToLower(name)]
	return ok
}

// Len は格納されているヘッダー数を返す
func (h *HeaderMap) Len() int {
	return len(h.keys)
}

// Each は挿入順にヘッダーを巡回する
func (h *HeaderMap) Each(fn func(name, value string)) {
	for _, key := range h.keys {
		fn(h.names[key], h.values[key])
	}
}
