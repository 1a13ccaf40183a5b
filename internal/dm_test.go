package internal_test

import (
	"context"
	"testing"

	"github.com/koopa0/kampung-games/internal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testDMService 組裝接上假廣播器的私訊層
func testDMService(clock internal.Clock) (*internal.DMService, *fakeBroadcaster) {
	bc := newFakeBroadcaster()
	tracker := internal.NewStreakTracker(internal.NewMemoryStreakStore(), clock, testLogger())
	dm := internal.NewDMService(tracker, internal.NewLogMessageStore(testLogger()), clock, bc, testLogger())
	return dm, bc
}

// TestDMService_Join 測試掛入聊天室
func TestDMService_Join(t *testing.T) {
	dm, bc := testDMService(newFakeClock("2026-08-01"))

	dm.Join("conn_a", "alice", "bob")
	dm.Join("conn_b", "bob", "alice")

	// 兩個方向都落在同一個房間
	room := internal.DMRoom("alice", "bob")
	assert.ElementsMatch(t, []string{"conn_a", "conn_b"}, bc.joins[room])

	// 缺參數是 no-op
	dm.Join("conn_x", "", "bob")
	assert.Len(t, bc.joins[room], 2)
}

// TestDMService_Typing 測試輸入指示
func TestDMService_Typing(t *testing.T) {
	dm, bc := testDMService(newFakeClock("2026-08-01"))

	dm.Typing("alice", "bob")

	typing := bc.byType("typing")
	require.Len(t, typing, 1)
	assert.Equal(t, internal.DMRoom("alice", "bob"), typing[0].Room)
	assert.Equal(t, "alice", typing[0].Event.Data["user"])
}

// TestDMService_Send 測試私訊送出
func TestDMService_Send(t *testing.T) {
	ctx := context.Background()

	t.Run("message broadcast then streak update", func(t *testing.T) {
		clock := newFakeClock("2026-08-01")
		dm, bc := testDMService(clock)
		room := internal.DMRoom("alice", "bob")

		dm.Send(ctx, "alice", "bob", "How was your day?")

		messages := bc.byType("new_message")
		require.Len(t, messages, 1)
		assert.Equal(t, room, messages[0].Room)
		assert.Equal(t, "alice", messages[0].Event.Data["sender"])
		assert.Equal(t, "How was your day?", messages[0].Event.Data["message"])
		assert.Equal(t, "Today", messages[0].Event.Data["day_label"])
		assert.Contains(t, messages[0].Event.Data["timestamp"], "2026-08-01")

		updates := bc.byType("streak_update")
		require.Len(t, updates, 1)
		assert.Equal(t, room, updates[0].Room)
		assert.Equal(t, 0, updates[0].Event.Data["streak"])
		assert.Equal(t, false, updates[0].Event.Data["lit_up"])
	})

	t.Run("reply lights up the streak for both", func(t *testing.T) {
		clock := newFakeClock("2026-08-01")
		dm, bc := testDMService(clock)

		dm.Send(ctx, "alice", "bob", "hello")
		dm.Send(ctx, "bob", "alice", "hello back")

		updates := bc.byType("streak_update")
		require.Len(t, updates, 2)
		assert.Equal(t, 1, updates[1].Event.Data["streak"])
		assert.Equal(t, true, updates[1].Event.Data["lit_up"])
		assert.Equal(t, true, updates[1].Event.Data["completed_today"])
	})

	t.Run("empty text is dropped", func(t *testing.T) {
		dm, bc := testDMService(newFakeClock("2026-08-01"))

		dm.Send(ctx, "alice", "bob", "")

		assert.Empty(t, bc.byType("new_message"))
		assert.Empty(t, bc.byType("streak_update"))
	})
}
