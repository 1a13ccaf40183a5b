package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore PostgreSQL 持久層
//
// 同時實作 Directory、NoticeFeed、StreakStore、MessageStore 與
// MatchStore，對應的資料表：
//
//	CREATE TABLE users (
//	    id         VARCHAR(64) PRIMARY KEY,
//	    username   VARCHAR(255) NOT NULL
//	);
//
//	CREATE TABLE profiles (
//	    user_id    VARCHAR(64) PRIMARY KEY REFERENCES users(id),
//	    region     VARCHAR(255)
//	);
//
//	CREATE TABLE notices (
//	    id         SERIAL PRIMARY KEY,
//	    username   VARCHAR(255) NOT NULL,
//	    region     VARCHAR(255),
//	    emoji      VARCHAR(16),
//	    message    TEXT NOT NULL,
//	    created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
//	);
//
//	CREATE TABLE dm_streak_state (
//	    room       VARCHAR(255) PRIMARY KEY,
//	    streak     INT NOT NULL DEFAULT 0,
//	    last_day   VARCHAR(10) NOT NULL DEFAULT ''
//	);
//
//	CREATE TABLE dm_messages (
//	    id           SERIAL PRIMARY KEY,
//	    sender_id    VARCHAR(64) NOT NULL,
//	    recipient_id VARCHAR(64) NOT NULL,
//	    body         TEXT NOT NULL,
//	    sent_at      TIMESTAMPTZ NOT NULL
//	);
//
//	CREATE TABLE match_results (
//	    id          SERIAL PRIMARY KEY,
//	    room        VARCHAR(255) NOT NULL,
//	    game_type   VARCHAR(32) NOT NULL,
//	    winner_id   VARCHAR(64),
//	    loser_id    VARCHAR(64),
//	    draw        BOOLEAN NOT NULL DEFAULT FALSE,
//	    finished_at TIMESTAMPTZ NOT NULL
//	);
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgresStore 創建 PostgreSQL 持久層
func NewPostgresStore(pool *pgxpool.Pool, logger *slog.Logger) *PostgresStore {
	return &PostgresStore{pool: pool, logger: logger}
}

// Lookup 查詢使用者身份與地區
func (s *PostgresStore) Lookup(ctx context.Context, userID string) (User, error) {
	var user User
	err := s.pool.QueryRow(ctx, `
		SELECT u.id, u.username, COALESCE(p.region, '')
		FROM users u
		LEFT JOIN profiles p ON p.user_id = u.id
		WHERE u.id = $1`, userID,
	).Scan(&user.ID, &user.Username, &user.Region)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, fmt.Errorf("使用者不存在: %s", userID)
		}
		return User{}, fmt.Errorf("查詢使用者失敗: %w", err)
	}
	return user, nil
}

// Add 寫入一則社群公告
func (s *PostgresStore) Add(ctx context.Context, notice Notice) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO notices (username, region, emoji, message)
		VALUES ($1, $2, $3, $4)`,
		notice.Username, notice.Region, notice.Emoji, notice.Message)
	if err != nil {
		return fmt.Errorf("寫入公告失敗: %w", err)
	}
	return nil
}

// Get 讀取私訊連勝狀態
//
// 查無資料回零值：新聊天室從 streak 0 開始，不算錯誤。
func (s *PostgresStore) Get(ctx context.Context, room string) (StreakState, error) {
	var state StreakState
	err := s.pool.QueryRow(ctx, `
		SELECT streak, last_day FROM dm_streak_state WHERE room = $1`, room,
	).Scan(&state.Streak, &state.LastDay)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return StreakState{}, nil
		}
		return StreakState{}, fmt.Errorf("讀取連勝狀態失敗: %w", err)
	}
	return state, nil
}

// Set 持久化私訊連勝狀態
func (s *PostgresStore) Set(ctx context.Context, room string, state StreakState) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO dm_streak_state (room, streak, last_day)
		VALUES ($1, $2, $3)
		ON CONFLICT (room) DO UPDATE
		SET streak = EXCLUDED.streak, last_day = EXCLUDED.last_day`,
		room, state.Streak, state.LastDay)
	if err != nil {
		return fmt.Errorf("持久化連勝狀態失敗: %w", err)
	}
	return nil
}

// Save 持久化一則私訊
func (s *PostgresStore) Save(ctx context.Context, msg DirectMessage) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO dm_messages (sender_id, recipient_id, body, sent_at)
		VALUES ($1, $2, $3, $4)`,
		msg.Sender, msg.Recipient, msg.Text, msg.SentAt)
	if err != nil {
		return fmt.Errorf("持久化私訊失敗: %w", err)
	}
	return nil
}

// Record 記錄一場對局結果
func (s *PostgresStore) Record(ctx context.Context, result MatchResult) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO match_results (room, game_type, winner_id, loser_id, draw, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		result.Room, string(result.Game), result.Winner.UserID, result.Loser.UserID,
		result.Draw, result.FinishedAt)
	if err != nil {
		return fmt.Errorf("記錄對局結果失敗: %w", err)
	}
	return nil
}
