package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// clientEvent 客戶端入站事件信封
//
// 與出站 Event 同構：{"event": "...", "data": {...}}
type clientEvent struct {
	Type string          `json:"event"`
	Data json.RawMessage `json:"data"`
}

// handleMessage 分派客戶端事件
//
// 同步處理：一個事件觸發的所有廣播在返回前全部入列，
// 保證單一連接的事件按到達順序生效。
func (hub *Hub) handleMessage(c *Connection, message []byte) {
	var ev clientEvent
	if err := json.Unmarshal(message, &ev); err != nil {
		hub.logger.Warn("無法解析客戶端事件", "conn_id", c.ID, "error", err)
		return
	}

	data := map[string]any{}
	if len(ev.Data) > 0 {
		if err := json.Unmarshal(ev.Data, &data); err != nil {
			hub.logger.Warn("無法解析事件負載", "conn_id", c.ID, "event", ev.Type, "error", err)
			return
		}
	}

	ctx := context.Background()

	switch ev.Type {
	case "ping":
		hub.Unicast(c.ID, Event{Type: "pong", Data: map[string]any{}})

	case "presence_join":
		hub.handlePresenceJoin(c)

	case "join_waiting_room":
		hub.handleJoinWaitingRoom(c, data)

	case "cancel_queue":
		hub.matchmaker.Cancel(c.UserID, c.ID)
		hub.Unicast(c.ID, Event{Type: "queue_cancelled", Data: map[string]any{}})

	case "join_game":
		hub.engine.JoinGame(c.ID, stringField(data, "room"), stringField(data, "role"), stringField(data, "game_type"))

	case "request_state":
		hub.engine.RequestState(c.ID, stringField(data, "room"), stringField(data, "game_type"))

	case "flip_card":
		idx, ok := indexField(data)
		if !ok {
			return
		}
		hub.engine.Flip(ctx, c.ID, stringField(data, "room"), stringField(data, "role"), idx)

	case "submit_guess":
		hub.engine.Guess(ctx, c.ID, stringField(data, "room"), stringField(data, "role"), stringField(data, "letter"))

	case "forfeit_game":
		hub.engine.Forfeit(ctx, stringField(data, "room"), stringField(data, "game_type"), stringField(data, "role"))

	case "dm_join":
		hub.dm.Join(c.ID, stringField(data, "user_id"), stringField(data, "other_user_id"))

	case "typing":
		hub.dm.Typing(stringField(data, "sender_id"), stringField(data, "recipient_id"))

	case "dm_send_message":
		hub.dm.Send(ctx, stringField(data, "sender_id"), stringField(data, "recipient_id"), stringField(data, "message"))

	default:
		hub.logger.Debug("忽略未知事件", "conn_id", c.ID, "event", ev.Type)
	}
}

// handlePresenceJoin 上線登記並廣播在線名單
func (hub *Hub) handlePresenceJoin(c *Connection) {
	hub.presence.MarkOnline(c.UserID, c.ID)
	hub.broadcastOnlineList()
}

// handleJoinWaitingRoom 進入配對等待佇列
//
// 角色與遊戲類型解析失敗回 queue_error，其餘一律先收進佇列；
// 配到對手時兩端各收一份 match_found（各自視角的角色與對手）。
func (hub *Hub) handleJoinWaitingRoom(c *Connection, data map[string]any) {
	role, err := ParseRole(stringField(data, "role"))
	if err != nil {
		hub.Unicast(c.ID, Event{
			Type: "queue_error",
			Data: map[string]any{"message": fmt.Sprintf("Bad role: %s", stringField(data, "role"))},
		})
		return
	}

	game, err := ParseGameType(stringField(data, "game_type"))
	if err != nil {
		hub.Unicast(c.ID, Event{
			Type: "queue_error",
			Data: map[string]any{"message": fmt.Sprintf("Bad game: %s", stringField(data, "game_type"))},
		})
		return
	}

	match := hub.matchmaker.Join(Participant{
		ConnID:   c.ID,
		UserID:   c.UserID,
		Username: c.Username,
		Role:     role,
		Game:     game,
		JoinedAt: time.Now(),
	})

	if match == nil {
		hub.Unicast(c.ID, Event{
			Type: "queued",
			Data: map[string]any{"role": string(role), "game_type": string(game)},
		})
		return
	}

	hub.registry.Put(match.Room, map[Role]PlayerInfo{
		match.Joiner.Role:   {UserID: match.Joiner.UserID, Username: match.Joiner.Username},
		match.Opponent.Role: {UserID: match.Opponent.UserID, Username: match.Opponent.Username},
	})

	hub.JoinRoom(match.Room, match.Joiner.ConnID)
	hub.JoinRoom(match.Room, match.Opponent.ConnID)

	hub.notifyMatched(match.Room, game, match.Joiner, match.Opponent)
	hub.notifyMatched(match.Room, game, match.Opponent, match.Joiner)
}

// notifyMatched 以 p 的視角發送 match_found
func (hub *Hub) notifyMatched(room string, game GameType, p, opponent Participant) {
	hub.Unicast(p.ConnID, Event{
		Type: "match_found",
		Data: map[string]any{
			"room":              room,
			"game_type":         string(game),
			"your_role":         string(p.Role),
			"opponent_role":     string(opponent.Role),
			"opponent_username": opponent.Username,
		},
	})
}

// stringField 從負載中取字串欄位，缺失或型別不符回空字串
func stringField(data map[string]any, key string) string {
	if v, ok := data[key].(string); ok {
		return v
	}
	return ""
}

// indexField 取卡片索引
//
// 歷代客戶端的欄位名不一致，三種都收：index、cardIndex、card_index。
// JSON 數字解出來是 float64，也容忍字串形式的整數以外一概拒絕。
func indexField(data map[string]any) (int, bool) {
	for _, key := range []string{"index", "cardIndex", "card_index"} {
		v, exists := data[key]
		if !exists {
			continue
		}
		switch n := v.(type) {
		case float64:
			return int(n), true
		case string:
			var idx int
			if _, err := fmt.Sscanf(n, "%d", &idx); err == nil {
				return idx, true
			}
		}
	}
	return 0, false
}
