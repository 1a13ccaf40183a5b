package internal

// Event 服務器推送給客戶端的事件
//
// 所有對外廣播 / 單播都使用同一個信封格式：
//
//	{"event": "sync_state", "data": {...}}
//
// Data 統一為 map，序列化後即為前端期望的 payload。
type Event struct {
	Type string         `json:"event"`
	Data map[string]any `json:"data"`
}

// Broadcaster 事件送出介面
//
// 遊戲引擎、配對器與 DM 層不直接依賴 WebSocket：
// 它們只透過此介面送出事件，由 Hub 實作實際的連接管理與序列化。
// 測試時以記錄型假實作替代，即可在沒有真連接的情況下驗證
// 每一步狀態轉換送出了哪些事件。
type Broadcaster interface {
	// Broadcast 送給房間內所有連接
	Broadcast(room string, event Event)

	// Unicast 只送給單一連接
	Unicast(connID string, event Event)

	// BroadcastAll 送給所有活躍連接（在線名單用）
	BroadcastAll(event Event)

	// JoinRoom 將連接掛入房間的廣播群組
	JoinRoom(room, connID string)
}
