// Package server は、HTTP/1.1サーバーの接続処理パイプラインを管理します。
//
// このパッケージは、接続の受け付けからレスポンス送信までの一連の流れ
// （accept → 投入 → 接続ループ → 解析 → ルーティング → 応答）を担当します。
//
// 責務:
//   - TCPリスナーの起動と接続の受け付け
//   - 固定数ワーカーと有界キューによる同時実行数の制限
//   - 飽和時の503応答による負荷制限（ロードシェディング）
//   - 接続ごとのリクエストループ（keep-alive・タイムアウト・回数上限）
//   - Hostヘッダー検証・パストラバーサル防御・拡張子許可リスト
//   - 静的ファイル配信（GET/HEAD）とJSONアップロード（POST /upload）
//
// 仕様:
//   - net/httpを使わず生のnet.Conn上でHTTP/1.1を処理する
//   - 同時に実行される接続は最大でワーカー数に制限される
//   - 受付キューが満杯の場合、acceptループが直接503を返して接続を閉じる
//   - エラー応答はすべてConnection: closeを伴い、接続を終了させる
//   - グレースフルシャットダウンに対応（コンテキスト経由）
package server
