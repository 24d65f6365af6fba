// Package gamerooms 提供雙人即時對戰的遊戲房間服務。
//
// 伺服器透過單一 WebSocket 端點支援五種回合制遊戲：
//   - 井字棋（tictactoe）
//   - 四子棋（connect4）
//   - 播棋（mancala）
//   - 找字（wordhunt）
//   - 翻牌配對（memory）
//
// 玩家送出加入事件後自動配對到最早建立的等待中房間，兩人到齊即開局。
// 所有規則都在伺服器端判定，客戶端只送出意圖（落子、播種、提交單字、翻牌）。
//
// # 房間生命週期
//
//	waiting ─(第二人加入)→ playing ─(終局)→ finished ─(雙方再戰)→ playing
//	   任何階段 ─(斷線 / 離開 / 再戰逾時)→ 刪除
//
// 井字棋、播棋終局後立即刪除房間；四子棋、找字、翻牌保留房間等待再戰，
// 超過 rematch_ttl 由背景清理移除。井字棋可設定 rejoin_grace，
// 斷線的玩家以相同 player_id 在期限內回來即可取回座位。
//
// # 併發模型
//
// 每個房間一把鎖，註冊表一把讀寫鎖，取鎖順序固定為註冊表 → 房間。
// 廣播在房間鎖內進行，連線的 Send 是非阻塞的；慢連線只會丟訊息，不會拖住房間。
// 計時器（找字倒數、翻牌蓋回、暫離期限）以房間的 session 計數判斷是否仍然有效。
//
// # 外部依賴
//
// 全部為選用，未設定時以記憶體內的預設實作代替：
//   - 字典：詞表檔或 HTTP 端點，可加上 Redis 快取
//   - 對局紀錄：PostgreSQL（golang-migrate 管理 schema）
//   - 生命週期事件：NATS（games.<game>.<started|finished|abandoned>）
//
// # HTTP 端點
//
//	GET /ws                         WebSocket 入口（?player_id= 作為跨連線身分）
//	GET /health                     健康檢查
//	GET /stats                      房間與連線統計
//	GET /api/v1/rooms?game=         房間列表
//	GET /api/v1/rooms/{room_id}     房間詳情
//	GET /api/v1/matches?game=&limit= 最近的對局紀錄
//
// # 啟動
//
//	go run ./cmd/server -config config.yaml -log-level debug
package gamerooms
