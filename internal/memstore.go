package internal

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// 開發模式後端：不連任何外部服務也能把整個流程跑起來。
// 生產環境以 PostgresStore / RedisStreakStore / NatsNoticeFeed 取代。

// MemoryDirectory 內存版身份目錄
type MemoryDirectory struct {
	mu    sync.RWMutex
	users map[string]User
}

// NewMemoryDirectory 創建內存版身份目錄
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{users: make(map[string]User)}
}

// Seed 預填使用者（開發模式啟動時）
func (d *MemoryDirectory) Seed(users ...User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, u := range users {
		d.users[u.ID] = u
	}
}

// Lookup 查詢使用者
func (d *MemoryDirectory) Lookup(_ context.Context, userID string) (User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if u, exists := d.users[userID]; exists {
		return u, nil
	}
	return User{}, fmt.Errorf("使用者不存在: %s", userID)
}

// MemoryNoticeFeed 內存版公告板
//
// 保留最近 limit 則供 /stats 或除錯查看，超過即淘汰最舊的。
type MemoryNoticeFeed struct {
	mu      sync.Mutex
	notices []Notice
	limit   int
}

// NewMemoryNoticeFeed 創建內存版公告板
func NewMemoryNoticeFeed(limit int) *MemoryNoticeFeed {
	if limit <= 0 {
		limit = 100
	}
	return &MemoryNoticeFeed{limit: limit}
}

// Add 追加公告
func (f *MemoryNoticeFeed) Add(_ context.Context, n Notice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notices = append(f.notices, n)
	if len(f.notices) > f.limit {
		f.notices = f.notices[len(f.notices)-f.limit:]
	}
	return nil
}

// Recent 最近的公告（新到舊）
func (f *MemoryNoticeFeed) Recent() []Notice {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Notice, 0, len(f.notices))
	for i := len(f.notices) - 1; i >= 0; i-- {
		out = append(out, f.notices[i])
	}
	return out
}

// LogMessageStore 只記日誌的 MessageStore
type LogMessageStore struct {
	logger *slog.Logger
}

// NewLogMessageStore 創建日誌版 MessageStore
func NewLogMessageStore(logger *slog.Logger) *LogMessageStore {
	return &LogMessageStore{logger: logger}
}

// Save 記錄私訊到日誌
func (s *LogMessageStore) Save(_ context.Context, m DirectMessage) error {
	s.logger.Debug("私訊（未持久化）",
		"sender", m.Sender,
		"recipient", m.Recipient,
		"sent_at", m.SentAt)
	return nil
}

// LogMatchStore 只記日誌的 MatchStore
type LogMatchStore struct {
	logger *slog.Logger
}

// NewLogMatchStore 創建日誌版 MatchStore
func NewLogMatchStore(logger *slog.Logger) *LogMatchStore {
	return &LogMatchStore{logger: logger}
}

// Record 記錄對局結果到日誌
func (s *LogMatchStore) Record(_ context.Context, r MatchResult) error {
	s.logger.Info("對局結束（未持久化）",
		"room", r.Room,
		"game", r.Game,
		"winner", r.Winner.UserID,
		"loser", r.Loser.UserID,
		"draw", r.Draw)
	return nil
}
