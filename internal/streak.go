package internal

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DMRoom 兩人私訊房間鍵
//
// 與順序無關：DMRoom(a, b) == DMRoom(b, a)。
func DMRoom(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return fmt.Sprintf("dm:%s:%s", a, b)
}

// StreakUpdate 一次訊息後的連續紀錄狀態（streak_update payload 素材）
type StreakUpdate struct {
	Streak         int
	CompletedToday bool
	LitUp          bool // 這一則訊息剛好點亮今天
}

// StreakTracker DM 連續紀錄追蹤器
//
// 規則：
//   - 雙方在同一天都發過至少一則訊息，且當天尚未計入 → streak+1
//   - 每個日曆日最多遞增一次
//   - 遞增後重置雙方的「今天已發」旗標
//
// 「今天已發」旗標只存內存（丟了重算無妨）；
// streak 與最後完成日每則訊息都立即持久化，重啟不失進度。
// 日曆日來自可插拔的 Clock，示範模式可直接換日。
type StreakTracker struct {
	mu        sync.Mutex
	store     StreakStore
	clock     Clock
	sentToday map[string]map[string]bool // room -> username -> 今天已發
	logger    *slog.Logger
}

// NewStreakTracker 創建連續紀錄追蹤器
func NewStreakTracker(store StreakStore, clock Clock, logger *slog.Logger) *StreakTracker {
	return &StreakTracker{
		store:     store,
		clock:     clock,
		sentToday: make(map[string]map[string]bool),
		logger:    logger,
	}
}

// RecordMessage 記下一則已送出的訊息並結算連續紀錄
//
// 每次都先載入持久化狀態再判定，讓服務重啟後的第一則訊息
// 也接得上正確的 streak。持久化失敗時仍返回結算結果，
// 只記日誌（寧可掉一次存檔也不中斷聊天）。
func (t *StreakTracker) RecordMessage(ctx context.Context, room, sender, recipient string) StreakUpdate {
	t.mu.Lock()
	defer t.mu.Unlock()

	state, err := t.store.Get(ctx, room)
	if err != nil {
		t.logger.Error("讀取連續紀錄失敗", "room", room, "error", err)
		state = StreakState{}
	}

	today := t.clock.Today()

	sent := t.sentToday[room]
	if sent == nil {
		sent = map[string]bool{sender: false, recipient: false}
		t.sentToday[room] = sent
	}
	sent[sender] = true

	litUp := false
	if sent[sender] && sent[recipient] && state.LastDay != today {
		state.Streak++
		state.LastDay = today
		litUp = true

		sent[sender] = false
		sent[recipient] = false
	}

	if err := t.store.Set(ctx, room, state); err != nil {
		t.logger.Error("持久化連續紀錄失敗", "room", room, "error", err)
	}

	return StreakUpdate{
		Streak:         state.Streak,
		CompletedToday: state.LastDay == today,
		LitUp:          litUp,
	}
}

// friendlyDayLabel 訊息時間的口語化日期標籤
func friendlyDayLabel(msgAt, now time.Time) string {
	msgDay := time.Date(msgAt.Year(), msgAt.Month(), msgAt.Day(), 0, 0, 0, 0, msgAt.Location())
	nowDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	diff := int(nowDay.Sub(msgDay).Hours() / 24)

	switch {
	case diff == 0:
		return "Today"
	case diff == 1:
		return "Yesterday"
	case diff >= 2 && diff <= 6:
		return msgAt.Format("Monday")
	default:
		return msgAt.Format("02 Jan 2006")
	}
}
