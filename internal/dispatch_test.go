package internal_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/koopa0/kampung-games/internal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wsEnv 一套接上真連接的完整服務端
type wsEnv struct {
	server *httptest.Server
	hub    *internal.Hub
	engine *internal.GameEngine
}

// newWSEnv 啟動 httptest 服務器，事件從線上進、從線上出
func newWSEnv(t *testing.T) *wsEnv {
	t.Helper()
	logger := testLogger()

	directory := internal.NewMemoryDirectory()
	directory.Seed(
		internal.User{ID: "u_elderly", Username: "Ah Ma", Region: "Toa Payoh"},
		internal.User{ID: "u_youth", Username: "Wei Lin", Region: "Bedok"},
	)

	registry := internal.NewRegistry()
	matchmaker := internal.NewMatchmaker(logger)
	presence := internal.NewPresence()
	hub := internal.NewHub(directory, logger)
	engine := internal.NewGameEngine(registry, directory, internal.NewMemoryNoticeFeed(10), internal.NewLogMatchStore(logger), hub, logger)
	tracker := internal.NewStreakTracker(internal.NewMemoryStreakStore(), internal.SystemClock(), logger)
	dm := internal.NewDMService(tracker, internal.NewLogMessageStore(logger), internal.SystemClock(), hub, logger)
	hub.Attach(matchmaker, registry, engine, presence, dm)

	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(func() {
		hub.Stop()
		server.Close()
	})

	return &wsEnv{server: server, hub: hub, engine: engine}
}

// dial 以指定使用者建立 WebSocket 連接
func (env *wsEnv) dial(t *testing.T, userID string) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(env.server.URL, "http") + "?user_id=" + userID
	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

// wireEvent 線上事件信封
type wireEvent struct {
	Event string         `json:"event"`
	Data  map[string]any `json:"data"`
}

// readEvent 讀下一個事件（2 秒超時）
func readEvent(t *testing.T, ws *websocket.Conn) wireEvent {
	t.Helper()

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev wireEvent
	require.NoError(t, ws.ReadJSON(&ev))
	return ev
}

// send 送出一個客戶端事件
func send(t *testing.T, ws *websocket.Conn, event string, data map[string]any) {
	t.Helper()
	require.NoError(t, ws.WriteJSON(map[string]any{"event": event, "data": data}))
}

// matchUp 兩個連接走完配對流程，返回房間鍵
func matchUp(t *testing.T, elderly, youth *websocket.Conn, game string) string {
	t.Helper()

	send(t, elderly, "join_waiting_room", map[string]any{"role": "elderly", "game_type": game})
	queued := readEvent(t, elderly)
	require.Equal(t, "queued", queued.Event)

	send(t, youth, "join_waiting_room", map[string]any{"role": "youth", "game_type": game})

	found1 := readEvent(t, elderly)
	found2 := readEvent(t, youth)
	require.Equal(t, "match_found", found1.Event)
	require.Equal(t, "match_found", found2.Event)
	require.Equal(t, found1.Data["room"], found2.Data["room"])

	room, ok := found1.Data["room"].(string)
	require.True(t, ok)
	return room
}

// TestDispatch_PingPong 測試線上心跳
func TestDispatch_PingPong(t *testing.T) {
	env := newWSEnv(t)
	ws := env.dial(t, "u_elderly")

	send(t, ws, "ping", map[string]any{})

	ev := readEvent(t, ws)
	assert.Equal(t, "pong", ev.Event)
}

// TestDispatch_JoinWaitingRoom 測試線上配對流程
func TestDispatch_JoinWaitingRoom(t *testing.T) {
	t.Run("bad role gets a queue error", func(t *testing.T) {
		env := newWSEnv(t)
		ws := env.dial(t, "u_elderly")

		send(t, ws, "join_waiting_room", map[string]any{"role": "referee", "game_type": "memory"})

		ev := readEvent(t, ws)
		assert.Equal(t, "queue_error", ev.Event)
		assert.Equal(t, "Bad role: referee", ev.Data["message"])
	})

	t.Run("bad game gets a queue error", func(t *testing.T) {
		env := newWSEnv(t)
		ws := env.dial(t, "u_elderly")

		send(t, ws, "join_waiting_room", map[string]any{"role": "elderly", "game_type": "chess"})

		ev := readEvent(t, ws)
		assert.Equal(t, "queue_error", ev.Event)
		assert.Equal(t, "Bad game: chess", ev.Data["message"])
	})

	t.Run("two opposite roles match over the wire", func(t *testing.T) {
		env := newWSEnv(t)
		elderly := env.dial(t, "u_elderly")
		youth := env.dial(t, "u_youth")

		send(t, elderly, "join_waiting_room", map[string]any{"role": "senior", "game_type": "memory"})
		require.Equal(t, "queued", readEvent(t, elderly).Event)

		send(t, youth, "join_waiting_room", map[string]any{"role": "young", "game_type": "memory"})

		found := readEvent(t, elderly)
		require.Equal(t, "match_found", found.Event)
		assert.Equal(t, "Elderly", found.Data["your_role"])
		assert.Equal(t, "Youth", found.Data["opponent_role"])
		assert.Equal(t, "Wei Lin", found.Data["opponent_username"])

		found = readEvent(t, youth)
		require.Equal(t, "match_found", found.Event)
		assert.Equal(t, "Youth", found.Data["your_role"])
		assert.Equal(t, "Ah Ma", found.Data["opponent_username"])
	})

	t.Run("cancel queue over the wire", func(t *testing.T) {
		env := newWSEnv(t)
		ws := env.dial(t, "u_elderly")

		send(t, ws, "join_waiting_room", map[string]any{"role": "elderly", "game_type": "memory"})
		require.Equal(t, "queued", readEvent(t, ws).Event)

		send(t, ws, "cancel_queue", map[string]any{})
		assert.Equal(t, "queue_cancelled", readEvent(t, ws).Event)
	})
}

// TestDispatch_FlipCard 測試翻牌事件從線上進出
func TestDispatch_FlipCard(t *testing.T) {
	env := newWSEnv(t)
	elderly := env.dial(t, "u_elderly")
	youth := env.dial(t, "u_youth")
	room := matchUp(t, elderly, youth, "memory")

	// 同房間鍵推導出同一副牌，先手由此得知
	expected := internal.NewMemoryState(room)
	current, waiter := elderly, youth
	currentRole, waiterRole := "elderly", "youth"
	if expected.CurrentTurn == internal.RoleYouth {
		current, waiter = youth, elderly
		currentRole, waiterRole = "youth", "elderly"
	}

	// 非本回合翻牌：只有越權者收到重同步
	send(t, waiter, "flip_card", map[string]any{"room": room, "role": waiterRole, "cardIndex": 0})
	resync := readEvent(t, waiter)
	assert.Equal(t, "sync_state", resync.Event)
	assert.Equal(t, "memory", resync.Data["game_type"])

	// 第一張合法翻牌：全房重繪，flipped 帶上索引
	send(t, current, "flip_card", map[string]any{"room": room, "role": currentRole, "index": float64(0)})

	for _, ws := range []*websocket.Conn{current, waiter} {
		ev := readEvent(t, ws)
		require.Equal(t, "sync_state", ev.Event)
		flipped, ok := ev.Data["flipped"].([]any)
		require.True(t, ok)
		require.Len(t, flipped, 1)
		assert.Equal(t, float64(0), flipped[0])
	}
}

// TestDispatch_ForfeitGame 測試棄權事件從線上進出
//
// 棄權必須走完整條線路：壞掉的棄權分派等於玩家永遠離不開對局。
func TestDispatch_ForfeitGame(t *testing.T) {
	env := newWSEnv(t)
	elderly := env.dial(t, "u_elderly")
	youth := env.dial(t, "u_youth")
	room := matchUp(t, elderly, youth, "hangman")

	send(t, elderly, "join_game", map[string]any{"room": room, "role": "elderly", "game_type": "hangman"})

	// join_game 的事件流：雙方 player_joined，呼叫者另有 opponent_info 與 sync_state
	require.Equal(t, "player_joined", readEvent(t, elderly).Event)
	require.Equal(t, "opponent_info", readEvent(t, elderly).Event)
	require.Equal(t, "sync_state", readEvent(t, elderly).Event)
	require.Equal(t, "player_joined", readEvent(t, youth).Event)
	require.Equal(t, 1, env.engine.SessionCount())

	send(t, elderly, "forfeit_game", map[string]any{"room": room, "role": "elderly", "game_type": "hangman"})

	for _, ws := range []*websocket.Conn{elderly, youth} {
		ev := readEvent(t, ws)
		require.Equal(t, "opponent_forfeit", ev.Event)
		assert.Equal(t, "hangman", ev.Data["game_type"])
		assert.Equal(t, "Youth", ev.Data["winner_role"])
		assert.Equal(t, "Elderly", ev.Data["leaver_role"])
	}

	// 廣播已送達雙方，隨後的清理也該完成了
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 0, env.engine.SessionCount())
}

// TestDispatch_MalformedPayloads 測試壞輸入不得影響連接
func TestDispatch_MalformedPayloads(t *testing.T) {
	env := newWSEnv(t)
	ws := env.dial(t, "u_elderly")

	// 非 JSON、缺欄位、未知事件都只能被丟棄
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("not a json")))
	require.NoError(t, ws.WriteJSON(map[string]any{"event": "flip_card"}))
	require.NoError(t, ws.WriteJSON(map[string]any{"event": "no_such_event", "data": map[string]any{}}))
	send(t, ws, "forfeit_game", map[string]any{"room": "", "role": "elderly", "game_type": "memory"})

	// 連接仍然活著
	send(t, ws, "ping", map[string]any{})
	assert.Equal(t, "pong", readEvent(t, ws).Event)
}
