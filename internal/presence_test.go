package internal_test

import (
	"testing"

	"github.com/koopa0/kampung-games/internal"
	"github.com/stretchr/testify/assert"
)

// TestPresence 測試在線狀態追蹤
func TestPresence(t *testing.T) {
	t.Run("online list is sorted and deduplicated", func(t *testing.T) {
		p := internal.NewPresence()

		p.MarkOnline("bob", "conn_1")
		online := p.MarkOnline("alice", "conn_2")

		assert.Equal(t, []string{"alice", "bob"}, online)
		assert.Equal(t, 2, p.Count())
	})

	t.Run("new connection supersedes the old one", func(t *testing.T) {
		p := internal.NewPresence()

		p.MarkOnline("alice", "conn_old")
		p.MarkOnline("alice", "conn_new")

		assert.Equal(t, []string{"alice"}, p.Online())

		// 舊連接斷線不影響名單（已被新連接取代）
		userID, changed := p.MarkOffline("conn_old")
		assert.Equal(t, "", userID)
		assert.False(t, changed)
		assert.Equal(t, []string{"alice"}, p.Online())

		// 新連接斷線才真正離線
		userID, changed = p.MarkOffline("conn_new")
		assert.Equal(t, "alice", userID)
		assert.True(t, changed)
		assert.Empty(t, p.Online())
	})

	t.Run("offline for unknown connection is a no-op", func(t *testing.T) {
		p := internal.NewPresence()

		userID, changed := p.MarkOffline("conn_ghost")
		assert.Equal(t, "", userID)
		assert.False(t, changed)
	})
}

// TestRegistry 測試房間名冊
func TestRegistry(t *testing.T) {
	players := map[internal.Role]internal.PlayerInfo{
		internal.RoleElderly: {UserID: "u1", Username: "Ah Ma"},
		internal.RoleYouth:   {UserID: "u2", Username: "Wei Lin"},
	}

	t.Run("opponent lookup", func(t *testing.T) {
		r := internal.NewRegistry()
		r.Put("room_1", players)

		opponent, exists := r.Opponent("room_1", internal.RoleElderly)
		assert.True(t, exists)
		assert.Equal(t, "Wei Lin", opponent.Username)

		opponent, exists = r.Opponent("room_1", internal.RoleYouth)
		assert.True(t, exists)
		assert.Equal(t, "Ah Ma", opponent.Username)

		_, exists = r.Opponent("room_missing", internal.RoleElderly)
		assert.False(t, exists)
	})

	t.Run("snapshots are copies", func(t *testing.T) {
		r := internal.NewRegistry()
		r.Put("room_1", players)

		snapshot, exists := r.Players("room_1")
		assert.True(t, exists)

		snapshot[internal.RoleElderly] = internal.PlayerInfo{UserID: "hacked"}

		fresh, _ := r.Players("room_1")
		assert.Equal(t, "u1", fresh[internal.RoleElderly].UserID, "快照修改不得污染名冊")
	})

	t.Run("remove is idempotent", func(t *testing.T) {
		r := internal.NewRegistry()
		r.Put("room_1", players)
		assert.Equal(t, 1, r.Count())

		r.Remove("room_1")
		r.Remove("room_1")

		assert.Equal(t, 0, r.Count())
		_, exists := r.Players("room_1")
		assert.False(t, exists)
	})
}
