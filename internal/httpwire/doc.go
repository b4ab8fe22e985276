// Package httpwire は、HTTP/1.1のバイト列レベルの送受信を担います。
//
// このパッケージは、生のTCPストリームからのリクエスト読み取り・解析と、
// レスポンスのバイト列への組み立てを担当します。net/httpには依存しません。
//
// 責務:
//   - ヘッダーブロック（\r\n\r\nまで）の読み取り
//   - リクエストライン・ヘッダーの解析
//   - 挿入順を保持するヘッダーマップ
//   - レスポンスバイト列の組み立て
//
// 仕様:
//   - ヘッダー名の照合は大文字小文字を区別しない（表記は保持する）
//   - コロン区切りを持たないヘッダー行はエラーにせず無視する
//   - レスポンスヘッダーはソートせず挿入順のまま出力する
package httpwire
