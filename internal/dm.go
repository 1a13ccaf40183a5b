package internal

import (
	"context"
	"log/slog"
)

// DMService 私訊層
//
// 處理兩人聊天室的訊息廣播與連續紀錄結算。
// 訊息本體的持久化是盡力而為：存檔失敗不阻斷廣播，
// 聊天的即時性優先於完整性（與社群平台其餘部分的取捨一致）。
type DMService struct {
	streaks  *StreakTracker
	messages MessageStore
	clock    Clock
	bc       Broadcaster
	logger   *slog.Logger
}

// NewDMService 創建私訊層
func NewDMService(streaks *StreakTracker, messages MessageStore, clock Clock, bc Broadcaster, logger *slog.Logger) *DMService {
	return &DMService{
		streaks:  streaks,
		messages: messages,
		clock:    clock,
		bc:       bc,
		logger:   logger,
	}
}

// Join 將連接掛入兩人聊天室
func (s *DMService) Join(connID, me, other string) {
	if me == "" || other == "" {
		return
	}
	s.bc.JoinRoom(DMRoom(me, other), connID)
}

// Typing 轉發「對方輸入中」指示
func (s *DMService) Typing(sender, recipient string) {
	if sender == "" || recipient == "" {
		return
	}
	s.bc.Broadcast(DMRoom(sender, recipient), Event{
		Type: "typing",
		Data: map[string]any{"user": sender},
	})
}

// Send 送出一則私訊
//
// 流程：存檔（盡力）→ 廣播 new_message → 結算並廣播 streak_update。
// 兩個事件都發到兩人房間，雙方的 UI 同步點亮。
func (s *DMService) Send(ctx context.Context, sender, recipient, text string) {
	if sender == "" || recipient == "" || text == "" {
		return
	}

	now := s.clock.Now()
	room := DMRoom(sender, recipient)

	if err := s.messages.Save(ctx, DirectMessage{
		Sender:    sender,
		Recipient: recipient,
		Text:      text,
		SentAt:    now,
	}); err != nil {
		s.logger.Warn("私訊存檔失敗", "room", room, "error", err)
	}

	s.bc.Broadcast(room, Event{
		Type: "new_message",
		Data: map[string]any{
			"sender":    sender,
			"recipient": recipient,
			"message":   text,
			"timestamp": now.Format("2006-01-02 15:04:05"),
			"day_label": friendlyDayLabel(now, now),
		},
	})

	update := s.streaks.RecordMessage(ctx, room, sender, recipient)
	s.bc.Broadcast(room, Event{
		Type: "streak_update",
		Data: map[string]any{
			"streak":          update.Streak,
			"completed_today": update.CompletedToday,
			"lit_up":          update.LitUp,
		},
	})
}
