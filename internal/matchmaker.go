package internal

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// 系統設計問題：
//   如何讓兩個相反角色的玩家公平配對，且同一個等待者絕不被配走兩次？
//
// 核心挑戰：
//   1. 公平性：等最久的人先被配到（FIFO，不是 LIFO）
//   2. 並發控制：兩個玩家同時入隊時，「彈出或排隊」的決策必須互斥
//   3. 房間鍵唯一性：同一對玩家連續重賽不能撞房
//
// 設計方案：
//   ✅ 依角色分割的等待隊列（slice 保序 = 插入順序即優先序）
//   ✅ 單一 Mutex 保護整個彈出/入隊決策（臨界區極短）
//   ✅ 時間戳 + 單調遞增序號組成房間鍵（同秒重賽也不碰撞）

// Participant 等待配對的參與者
//
// 入隊時建立，配對成功或取消時消滅。Username 在入隊前就查好，
// 配對成功時直接帶給對手，不必再回頭查身份服務。
type Participant struct {
	ConnID   string
	UserID   string
	Username string
	Role     Role
	Game     GameType
	JoinedAt time.Time
}

// Match 配對結果
//
// Joiner 是觸發配對的新進者，Opponent 是從隊列彈出的等待者。
type Match struct {
	Room     string
	Joiner   Participant
	Opponent Participant
}

// Matchmaker 配對器
//
// 不變量：
//   - 一個參與者同時最多出現在一條隊列中
//   - 彈出的永遠是同遊戲類型中等最久的相反角色
type Matchmaker struct {
	mu      sync.Mutex
	waiting map[Role][]Participant
	seq     atomic.Uint64
	logger  *slog.Logger
}

// NewMatchmaker 創建配對器
func NewMatchmaker(logger *slog.Logger) *Matchmaker {
	return &Matchmaker{
		waiting: map[Role][]Participant{
			RoleElderly: nil,
			RoleYouth:   nil,
		},
		logger: logger,
	}
}

// Join 嘗試配對，失敗則入隊等待
//
// 返回 nil 表示已入隊。整個「找對手 → 彈出 → 產生房間」的決策
// 在同一個臨界區內完成，避免兩個同時入隊的玩家搶到同一個等待者。
//
// 同一連接重複入隊時，先移除舊條目再處理，
// 確保「一個參與者最多在一條隊列」的不變量。
func (m *Matchmaker) Join(p Participant) *Match {
	m.mu.Lock()
	defer m.mu.Unlock()

	// 清除同人/同連接的舊條目（頁面重整後重新入隊）
	m.removeLocked(p.UserID, p.ConnID)

	// 找同遊戲類型、等最久的相反角色（FIFO：從頭掃起）
	opponentRole := p.Role.Opponent()
	queue := m.waiting[opponentRole]
	for i, w := range queue {
		if w.Game != p.Game {
			continue
		}

		m.waiting[opponentRole] = append(queue[:i:i], queue[i+1:]...)
		room := m.roomKey(w, p)

		m.logger.Info("配對成功",
			"room", room,
			"game", p.Game,
			"joiner", p.Username,
			"opponent", w.Username)

		return &Match{Room: room, Joiner: p, Opponent: w}
	}

	// 沒有對手，入隊等待
	m.waiting[p.Role] = append(m.waiting[p.Role], p)

	m.logger.Info("進入等待隊列",
		"user_id", p.UserID,
		"role", p.Role,
		"game", p.Game,
		"queue_size", len(m.waiting[p.Role]))

	return nil
}

// Cancel 取消等待（冪等）
//
// 依使用者 ID 或連接 ID 移除，找不到就是 no-op。
func (m *Matchmaker) Cancel(userID, connID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeLocked(userID, connID)
}

// removeLocked 從所有隊列移除符合的條目（需持有鎖）
func (m *Matchmaker) removeLocked(userID, connID string) {
	for role, queue := range m.waiting {
		kept := queue[:0]
		for _, w := range queue {
			if (userID != "" && w.UserID == userID) || (connID != "" && w.ConnID == connID) {
				continue
			}
			kept = append(kept, w)
		}
		m.waiting[role] = kept
	}
}

// QueueSizes 各角色等待人數（統計用）
func (m *Matchmaker) QueueSizes() map[Role]int {
	m.mu.Lock()
	defer m.mu.Unlock()

	sizes := make(map[Role]int, len(m.waiting))
	for role, queue := range m.waiting {
		sizes[role] = len(queue)
	}
	return sizes
}

// roomKey 產生房間鍵
//
// 由雙方 ID、遊戲類型、配對時間與全程序單調序號組成。
// 序號保證同一對玩家在同一秒內重賽也拿到不同的房間
// （翻牌遊戲的牌面由房間鍵決定，撞房等於重發同一副牌）。
func (m *Matchmaker) roomKey(a, b Participant) string {
	return fmt.Sprintf("room_%s_%s_%s_%d_%d",
		a.UserID, b.UserID, a.Game, time.Now().Unix(), m.seq.Add(1))
}
