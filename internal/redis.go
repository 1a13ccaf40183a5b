package internal

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// RedisStreakStore Redis 版 StreakStore
//
// 每個聊天室一個 Hash：
//
//	HSET streak:dm:alice:bob streak 4 last_day 2026-08-28
//
// 連續紀錄讀多寫多但資料極小，Hash 單鍵讀寫即可，
// 不需要 pipeline 或 Lua。
type RedisStreakStore struct {
	client *redis.Client
}

// NewRedisStreakStore 創建 Redis 版 StreakStore
func NewRedisStreakStore(client *redis.Client) *RedisStreakStore {
	return &RedisStreakStore{client: client}
}

func streakKey(room string) string {
	return fmt.Sprintf("streak:%s", room)
}

// Get 讀取連續紀錄狀態，鍵不存在回零值
func (s *RedisStreakStore) Get(ctx context.Context, room string) (StreakState, error) {
	fields, err := s.client.HGetAll(ctx, streakKey(room)).Result()
	if err != nil {
		return StreakState{}, fmt.Errorf("讀取連續紀錄失敗: %w", err)
	}
	if len(fields) == 0 {
		return StreakState{}, nil
	}

	streak, err := strconv.Atoi(fields["streak"])
	if err != nil {
		return StreakState{}, fmt.Errorf("連續紀錄欄位損壞: %w", err)
	}
	return StreakState{Streak: streak, LastDay: fields["last_day"]}, nil
}

// Set 覆寫連續紀錄狀態
func (s *RedisStreakStore) Set(ctx context.Context, room string, state StreakState) error {
	err := s.client.HSet(ctx, streakKey(room),
		"streak", state.Streak,
		"last_day", state.LastDay,
	).Err()
	if err != nil {
		return fmt.Errorf("寫入連續紀錄失敗: %w", err)
	}
	return nil
}

// Ping 健康檢查
func (s *RedisStreakStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
