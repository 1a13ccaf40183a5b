package internal

import "sync"

// PlayerInfo 房間內單一玩家的身份
type PlayerInfo struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// Registry 房間名冊
//
// 記錄每個活躍房間兩側玩家的身份（role → 身份），
// 供重連時回答「我的對手是誰」以及終局時標註公告。
// 條目在房間清理時移除；不持久化，程序重啟即消失。
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]map[Role]PlayerInfo
}

// NewRegistry 創建房間名冊
func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]map[Role]PlayerInfo),
	}
}

// Put 登記房間雙方身份
func (r *Registry) Put(room string, players map[Role]PlayerInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := make(map[Role]PlayerInfo, len(players))
	for role, p := range players {
		copied[role] = p
	}
	r.rooms[room] = copied
}

// Opponent 查詢指定角色的對手身份
func (r *Registry) Opponent(room string, role Role) (PlayerInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	players, exists := r.rooms[room]
	if !exists {
		return PlayerInfo{}, false
	}
	p, exists := players[role.Opponent()]
	return p, exists
}

// Players 房間雙方身份快照
func (r *Registry) Players(room string) (map[Role]PlayerInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	players, exists := r.rooms[room]
	if !exists {
		return nil, false
	}
	copied := make(map[Role]PlayerInfo, len(players))
	for role, p := range players {
		copied[role] = p
	}
	return copied, true
}

// Remove 移除房間條目（冪等）
func (r *Registry) Remove(room string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rooms, room)
}

// Count 活躍房間數（統計用）
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
