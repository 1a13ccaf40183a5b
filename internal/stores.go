package internal

import (
	"context"
	"sync"
	"time"
)

// 本檔定義遊戲核心消費的外部協作者介面。
// 社群平台的其餘部分（個人檔案、公告板、聊天記錄）都在別的服務裡，
// 核心只透過這幾個窄介面讀寫，測試時以假實作替代。

// User 身份查詢結果
type User struct {
	ID       string
	Username string
	Region   string
}

// Directory 使用者身份 / 地區查詢（唯讀）
type Directory interface {
	Lookup(ctx context.Context, userID string) (User, error)
}

// Notice 地區公告板的一則動態
type Notice struct {
	Username string `json:"username"`
	Region   string `json:"region"`
	Emoji    string `json:"emoji"`
	Message  string `json:"message"`
}

// NoticeFeed 地區公告板（只追加）
//
// 呼叫端一律 fire-and-forget：寫入失敗只記日誌，絕不影響對局流程。
type NoticeFeed interface {
	Add(ctx context.Context, n Notice) error
}

// StreakState DM 連續紀錄的持久化狀態
type StreakState struct {
	Streak  int
	LastDay string // YYYY-MM-DD，空字串表示從未完成
}

// StreakStore DM 連續紀錄存取（讀-改-寫）
//
// 不存在的房間鍵返回零值狀態而非錯誤。
type StreakStore interface {
	Get(ctx context.Context, room string) (StreakState, error)
	Set(ctx context.Context, room string, state StreakState) error
}

// DirectMessage 一則私訊（盡力持久化）
type DirectMessage struct {
	Sender    string
	Recipient string
	Text      string
	SentAt    time.Time
}

// MessageStore 私訊持久化（盡力而為）
type MessageStore interface {
	Save(ctx context.Context, m DirectMessage) error
}

// MatchResult 一場對局的結果（盡力持久化）
type MatchResult struct {
	Room       string
	Game       GameType
	Winner     PlayerInfo
	Loser      PlayerInfo
	Draw       bool
	FinishedAt time.Time
}

// MatchStore 對局結果持久化（盡力而為）
type MatchStore interface {
	Record(ctx context.Context, r MatchResult) error
}

// MemoryStreakStore 內存版 StreakStore
//
// 開發模式與測試用；不跨重啟，生產環境應使用 Postgres 或 Redis 後端。
type MemoryStreakStore struct {
	mu     sync.RWMutex
	states map[string]StreakState
}

// NewMemoryStreakStore 創建內存版 StreakStore
func NewMemoryStreakStore() *MemoryStreakStore {
	return &MemoryStreakStore{states: make(map[string]StreakState)}
}

// Get 讀取狀態，缺漏時返回零值
func (s *MemoryStreakStore) Get(_ context.Context, room string) (StreakState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.states[room], nil
}

// Set 覆寫狀態
func (s *MemoryStreakStore) Set(_ context.Context, room string, state StreakState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[room] = state
	return nil
}
