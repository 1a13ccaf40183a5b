package internal

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// 系統設計問題：
//   如何在單一進程裡服務大量長連接，並把配對、對局、私訊三條
//   事件流路由到正確的房間？
//
// 核心挑戰：
//   1. 連接管理：註冊 / 註銷 / 同使用者重複連接
//   2. 動態房間：連接的房間成員資格隨配對與聊天變動，不是連接時固定
//   3. 心跳機制：偵測死連接（54s Ping / 60s 讀超時，避開代理的 60s 閾值）
//   4. 慢消費者：單一客戶端的壅塞不能拖垮整個房間的廣播
//
// 設計方案：
//   ✅ Hub 模式：集中持有所有連接與房間成員映射
//   ✅ 每連接一條緩衝 send channel + 獨立讀寫 goroutine
//   ✅ 入站事件同步處理：一個事件的所有廣播在處理結束前送出

// Hub WebSocket 連接中心
//
// 同時是 Broadcaster 的唯一生產實作：
// 配對器、引擎與私訊層透過介面對它送事件。
type Hub struct {
	logger    *slog.Logger
	upgrader  websocket.Upgrader
	directory Directory

	// 事件處理協作者，啟動時以 Attach 注入（Hub 與引擎互相引用）
	matchmaker *Matchmaker
	registry   *Registry
	engine     *GameEngine
	presence   *Presence
	dm         *DMService

	mu    sync.RWMutex
	conns map[string]*Connection            // connID -> 連接
	rooms map[string]map[string]*Connection // room -> connID -> 連接

	stopped bool
}

// Connection 單一客戶端連接
type Connection struct {
	ID       string
	UserID   string
	Username string
	Conn     *websocket.Conn
	Send     chan []byte
	LastPing time.Time

	hub       *Hub
	mu        sync.Mutex
	closeOnce sync.Once // 確保 Send channel 只關閉一次
}

// NewHub 創建 Hub
func NewHub(directory Directory, logger *slog.Logger) *Hub {
	return &Hub{
		logger:    logger,
		directory: directory,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// 生產環境應檢查來源
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		conns: make(map[string]*Connection),
		rooms: make(map[string]map[string]*Connection),
	}
}

// Attach 注入事件處理協作者
//
// Hub 廣播事件給引擎的同時，引擎也要透過 Hub 送事件，
// 建構期互相依賴，改在啟動時一次接線。
func (hub *Hub) Attach(matchmaker *Matchmaker, registry *Registry, engine *GameEngine, presence *Presence, dm *DMService) {
	hub.matchmaker = matchmaker
	hub.registry = registry
	hub.engine = engine
	hub.presence = presence
	hub.dm = dm
}

// ServeWS 處理 WebSocket 升級
//
// 身份綁定在連接上：user_id 取自查詢參數，username 查身份服務，
// 查不到就用佔位名（匿名訪客也能旁觀聊天室的在線名單）。
func (hub *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, "缺少 user_id", http.StatusBadRequest)
		return
	}

	username := "Player"
	if user, err := hub.directory.Lookup(r.Context(), userID); err == nil && user.Username != "" {
		username = user.Username
	}

	conn, err := hub.upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.logger.Error("升級 WebSocket 失敗", "error", err)
		return
	}

	c := &Connection{
		ID:       uuid.NewString(),
		UserID:   userID,
		Username: username,
		Conn:     conn,
		Send:     make(chan []byte, 256),
		LastPing: time.Now(),
		hub:      hub,
	}

	hub.register(c)

	go c.writePump()
	go c.readPump()

	hub.logger.Info("WebSocket 連接建立",
		"conn_id", c.ID,
		"user_id", userID,
		"username", username)
}

// register 註冊連接
func (hub *Hub) register(c *Connection) {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	hub.conns[c.ID] = c
}

// unregister 註銷連接並清理其房間成員資格
//
// 斷線只更新在線狀態，絕不代表棄權：
// 房間狀態留在引擎裡，重連後靠 request_state 取回。
func (hub *Hub) unregister(c *Connection) {
	hub.mu.Lock()
	if actual, exists := hub.conns[c.ID]; !exists || actual != c {
		hub.mu.Unlock()
		return
	}
	delete(hub.conns, c.ID)

	for room, members := range hub.rooms {
		delete(members, c.ID)
		if len(members) == 0 {
			delete(hub.rooms, room)
		}
	}
	hub.mu.Unlock()

	c.closeOnce.Do(func() { close(c.Send) })

	// 等待中的配對條目隨連接失效
	hub.matchmaker.Cancel("", c.ID)

	if _, changed := hub.presence.MarkOffline(c.ID); changed {
		hub.broadcastOnlineList()
	}

	hub.logger.Info("WebSocket 連接關閉", "conn_id", c.ID, "user_id", c.UserID)
}

// JoinRoom 將連接掛入房間（Broadcaster 介面）
func (hub *Hub) JoinRoom(room, connID string) {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	c, exists := hub.conns[connID]
	if !exists {
		return
	}
	if hub.rooms[room] == nil {
		hub.rooms[room] = make(map[string]*Connection)
	}
	hub.rooms[room][connID] = c
}

// Broadcast 廣播事件到房間（Broadcaster 介面）
func (hub *Hub) Broadcast(room string, event Event) {
	message, err := json.Marshal(event)
	if err != nil {
		hub.logger.Error("序列化事件失敗", "event", event.Type, "error", err)
		return
	}

	hub.mu.RLock()
	defer hub.mu.RUnlock()

	for _, c := range hub.rooms[room] {
		c.send(message)
	}
}

// Unicast 單播事件到指定連接（Broadcaster 介面）
func (hub *Hub) Unicast(connID string, event Event) {
	message, err := json.Marshal(event)
	if err != nil {
		hub.logger.Error("序列化事件失敗", "event", event.Type, "error", err)
		return
	}

	hub.mu.RLock()
	c, exists := hub.conns[connID]
	hub.mu.RUnlock()

	if exists {
		c.send(message)
	}
}

// BroadcastAll 廣播事件給所有連接（Broadcaster 介面）
func (hub *Hub) BroadcastAll(event Event) {
	message, err := json.Marshal(event)
	if err != nil {
		hub.logger.Error("序列化事件失敗", "event", event.Type, "error", err)
		return
	}

	hub.mu.RLock()
	defer hub.mu.RUnlock()

	for _, c := range hub.conns {
		c.send(message)
	}
}

// send 非阻塞送出
//
// 緩衝滿時丟棄：慢客戶端會從下一次 sync_state 自我修正，
// 不值得為它阻塞同房的另一個玩家。
func (c *Connection) send(message []byte) {
	select {
	case c.Send <- message:
	default:
		c.hub.logger.Warn("連接緩衝區滿，丟棄訊息", "conn_id", c.ID, "user_id", c.UserID)
	}
}

// ConnectionCount 活躍連接數（統計用）
func (hub *Hub) ConnectionCount() int {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	return len(hub.conns)
}

// Stop 關閉所有連接
func (hub *Hub) Stop() {
	hub.mu.Lock()
	if hub.stopped {
		hub.mu.Unlock()
		return
	}
	hub.stopped = true
	conns := make([]*Connection, 0, len(hub.conns))
	for _, c := range hub.conns {
		conns = append(conns, c)
	}
	hub.conns = make(map[string]*Connection)
	hub.rooms = make(map[string]map[string]*Connection)
	hub.mu.Unlock()

	for _, c := range conns {
		c.closeOnce.Do(func() { close(c.Send) })
		c.Conn.Close()
	}

	hub.logger.Info("WebSocket Hub 已停止")
}

// broadcastOnlineList 廣播最新在線名單
func (hub *Hub) broadcastOnlineList() {
	hub.BroadcastAll(Event{
		Type: "online_list",
		Data: map[string]any{"online": hub.presence.Online()},
	})
}

// readPump 讀取客戶端事件
//
// 心跳：60 秒讀超時，收到 Pong 即重置（writePump 每 54 秒發 Ping，
// 留 6 秒網絡餘量）。讀循環退出即註銷連接。
func (c *Connection) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.Conn.Close()
	}()

	if err := c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second)); err != nil {
		c.hub.logger.Error("設置讀取期限失敗", "error", err)
	}

	c.Conn.SetPongHandler(func(string) error {
		if err := c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second)); err != nil {
			c.hub.logger.Error("設置讀取期限失敗", "error", err)
		}
		c.mu.Lock()
		c.LastPing = time.Now()
		c.mu.Unlock()
		return nil
	})

	for {
		messageType, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Error("WebSocket 讀取錯誤",
					"error", err,
					"conn_id", c.ID,
					"user_id", c.UserID)
			}
			break
		}

		if messageType == websocket.TextMessage {
			c.hub.handleMessage(c, message)
		}
	}
}

// writePump 寫入客戶端
func (c *Connection) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
				c.hub.logger.Error("設置寫入期限失敗", "error", err)
			}
			if !ok {
				deadline := time.Now().Add(time.Second)
				if err := c.Conn.SetWriteDeadline(deadline); err == nil {
					_ = c.Conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				}
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

			// 批量送出佇列中的剩餘訊息
			n := len(c.Send)
			for i := 0; i < n; i++ {
				if err := c.Conn.WriteMessage(websocket.TextMessage, <-c.Send); err != nil {
					return
				}
			}

		case <-ticker.C:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
				c.hub.logger.Error("設置寫入期限失敗", "error", err)
			}
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
