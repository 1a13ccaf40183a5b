package internal

import (
	"sort"
	"sync"
)

// Presence 在線狀態追蹤
//
// 維護使用者 ⇄ 活躍連接的一對一映射。同一使用者開新連接時，
// 新連接取代舊連接；斷線只影響在線名單，絕不代表棄權
// （進行中的對局留待明確的 forfeit 信號或房間清理）。
type Presence struct {
	mu    sync.RWMutex
	users map[string]string // userID -> connID
	conns map[string]string // connID -> userID
}

// NewPresence 創建在線追蹤器
func NewPresence() *Presence {
	return &Presence{
		users: make(map[string]string),
		conns: make(map[string]string),
	}
}

// MarkOnline 標記使用者上線
//
// 返回更新後的在線名單。若該使用者已有舊連接，舊映射被取代。
func (p *Presence) MarkOnline(userID, connID string) []string {
	p.mu.Lock()
	if old, exists := p.users[userID]; exists {
		delete(p.conns, old)
	}
	p.users[userID] = connID
	p.conns[connID] = userID
	p.mu.Unlock()

	return p.Online()
}

// MarkOffline 依連接標記離線（冪等）
//
// 返回 (使用者 ID, 名單是否有變)。連接不在映射中時為 no-op。
func (p *Presence) MarkOffline(connID string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	userID, exists := p.conns[connID]
	if !exists {
		return "", false
	}
	delete(p.conns, connID)

	// 只有當這條連接仍是該使用者的現役連接才下線
	if p.users[userID] == connID {
		delete(p.users, userID)
		return userID, true
	}
	return userID, false
}

// Online 在線使用者名單（排序後，輸出穩定）
func (p *Presence) Online() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	online := make([]string, 0, len(p.users))
	for userID := range p.users {
		online = append(online, userID)
	}
	sort.Strings(online)
	return online
}

// Count 在線人數（統計用）
func (p *Presence) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.users)
}
