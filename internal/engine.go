package internal

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"
)

// 系統設計問題：
//   多個連接同時對同一房間送出翻牌 / 猜字 / 棄權 / 重同步，
//   如何保證狀態機永遠以序列化的順序觀察這些事件？
//
// 核心挑戰：
//   1. 每房間互斥：兩個「第二張翻牌」絕不能同時結算
//   2. 重連競態：join_game 可能比狀態建立先到，必須惰性補建而非報錯
//   3. 棄權冪等：先標記終局再廣播，競速中的 resync 不能復活已棄權的局
//   4. 錯誤隔離：一個客戶端的壞事件絕不污染同房另一個客戶端看到的狀態
//
// 設計方案：
//   ✅ sessions map + 每個 session 自帶 Mutex（鎖粒度 = 一個房間）
//   ✅ 非法移動不回報錯誤，改以 sync_state 讓客戶端自我修正
//   ✅ 終局副作用（公告、戰績）在房間鎖外執行，只拿身份快照

// GameEngine 對局引擎
//
// 擁有所有進行中對局的權威狀態。每個房間一個 session，
// 對 session 的所有讀寫都在其互斥區內完成。
type GameEngine struct {
	mu       sync.Mutex
	sessions map[string]*gameSession

	registry  *Registry
	directory Directory
	notices   NoticeFeed
	matches   MatchStore
	bc        Broadcaster
	logger    *slog.Logger

	randMu sync.Mutex
	rng    *rand.Rand
}

// gameSession 單一房間的對局狀態
//
// memory 與 hangman 恰有一個非 nil，由建立時的遊戲類型決定。
type gameSession struct {
	mu      sync.Mutex
	game    GameType
	memory  *MemoryState
	hangman *HangmanState
}

// NewGameEngine 創建對局引擎
func NewGameEngine(registry *Registry, directory Directory, notices NoticeFeed, matches MatchStore, bc Broadcaster, logger *slog.Logger) *GameEngine {
	return &GameEngine{
		sessions:  make(map[string]*gameSession),
		registry:  registry,
		directory: directory,
		notices:   notices,
		matches:   matches,
		bc:        bc,
		logger:    logger,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetRand 替換亂數來源（測試用，固定字謎單字與起始回合）
func (e *GameEngine) SetRand(rng *rand.Rand) {
	e.randMu.Lock()
	e.rng = rng
	e.randMu.Unlock()
}

// session 取得房間對局，必要時惰性建立
//
// 重連可能搶在配對方建立狀態之前送出 join_game / request_state，
// 按規格一律以預設建構子補建而非報錯。
func (e *GameEngine) session(room string, game GameType) *gameSession {
	e.mu.Lock()
	defer e.mu.Unlock()

	if s, exists := e.sessions[room]; exists {
		return s
	}

	s := &gameSession{game: game}
	switch game {
	case GameMemory:
		s.memory = NewMemoryState(room)
	case GameHangman:
		e.randMu.Lock()
		s.hangman = NewHangmanState(e.rng)
		e.randMu.Unlock()
	}
	e.sessions[room] = s

	e.logger.Info("對局已建立", "room", room, "game", game)
	return s
}

// peek 取得房間對局但不建立
func (e *GameEngine) peek(room string) (*gameSession, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, exists := e.sessions[room]
	return s, exists
}

// remove 移除房間對局與名冊條目
func (e *GameEngine) remove(room string) {
	e.mu.Lock()
	delete(e.sessions, room)
	e.mu.Unlock()
	e.registry.Remove(room)
}

// SessionCount 進行中對局數（統計用）
func (e *GameEngine) SessionCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.sessions)
}

// snapshotLocked 目前狀態快照（呼叫者需持有 session 鎖）
func (s *gameSession) snapshotLocked() map[string]any {
	switch s.game {
	case GameMemory:
		return s.memory.Snapshot()
	case GameHangman:
		return s.hangman.Snapshot()
	}
	return nil
}

// JoinGame 連接加入房間的廣播群組並取得現況
//
// 順序：掛入群組 → 惰性補建狀態 → 廣播 player_joined →
// 單播 opponent_info（若名冊還在）→ 單播完整快照。
// 快照只給呼叫者；另一方的畫面不需要因為對手重連而重繪。
func (e *GameEngine) JoinGame(connID, room, roleStr, gameStr string) {
	game, err := ParseGameType(gameStr)
	if err != nil || room == "" {
		return
	}

	e.bc.JoinRoom(room, connID)

	s := e.session(room, game)

	role, roleErr := ParseRole(roleStr)
	if roleErr == nil {
		e.bc.Broadcast(room, Event{
			Type: "player_joined",
			Data: map[string]any{"role": string(role)},
		})

		if opponent, exists := e.registry.Opponent(room, role); exists {
			e.bc.Unicast(connID, Event{
				Type: "opponent_info",
				Data: map[string]any{"opponent_username": opponent.Username},
			})
		}
	}

	s.mu.Lock()
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	e.bc.Unicast(connID, Event{Type: "sync_state", Data: snapshot})
}

// RequestState 單播目前狀態快照（無加入副作用，定期重同步用）
func (e *GameEngine) RequestState(connID, room, gameStr string) {
	game, err := ParseGameType(gameStr)
	if err != nil || room == "" {
		return
	}

	s := e.session(room, game)

	s.mu.Lock()
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	e.bc.Unicast(connID, Event{Type: "sync_state", Data: snapshot})
}

// Flip 翻牌（Memory Match）
//
// 非法移動不回傳錯誤訊息給客戶端：
//   - 終局後的翻牌 → 對全房重同步（讓雙方 UI 收斂到結束畫面）
//   - 非本回合 → 只對呼叫者重同步
//   - 壞索引 / 重複翻牌 / 結算中 → 靜默丟棄
func (e *GameEngine) Flip(ctx context.Context, connID, room, roleStr string, idx int) {
	if room == "" {
		return
	}
	role, err := ParseRole(roleStr)
	if err != nil {
		return
	}

	s := e.session(room, GameMemory)

	s.mu.Lock()
	if s.game != GameMemory {
		s.mu.Unlock()
		return
	}
	result, flipErr := s.memory.Flip(role, idx)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	switch flipErr {
	case nil:
	case ErrGameOver:
		e.bc.Broadcast(room, Event{Type: "sync_state", Data: snapshot})
		return
	case ErrNotYourTurn:
		e.bc.Unicast(connID, Event{Type: "sync_state", Data: snapshot})
		return
	default:
		return
	}

	if result == nil {
		// 第一張：揭示給全房，回合不變
		e.bc.Broadcast(room, Event{Type: "sync_state", Data: snapshot})
		return
	}

	e.bc.Broadcast(room, Event{
		Type: "pair_result",
		Data: map[string]any{
			"a":        result.A,
			"b":        result.B,
			"is_match": result.IsMatch,
			"next_turn": string(result.NextTurn),
			"scores": map[string]int{
				string(RoleElderly): result.Scores[RoleElderly],
				string(RoleYouth):   result.Scores[RoleYouth],
			},
			"game_over": result.GameOver,
		},
	})

	if result.GameOver {
		e.finishMemory(ctx, room, result)
	}
}

// Guess 猜字母（Hangman）
func (e *GameEngine) Guess(ctx context.Context, connID, room, roleStr, letter string) {
	if room == "" {
		return
	}
	role, err := ParseRole(roleStr)
	if err != nil {
		return
	}

	s := e.session(room, GameHangman)

	s.mu.Lock()
	if s.game != GameHangman {
		s.mu.Unlock()
		return
	}
	result, guessErr := s.hangman.Guess(role, letter)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	switch guessErr {
	case nil:
	case ErrGameOver:
		e.bc.Broadcast(room, Event{Type: "sync_state", Data: snapshot})
		return
	case ErrNotYourTurn:
		e.bc.Unicast(connID, Event{Type: "sync_state", Data: snapshot})
		return
	default:
		// 重複字母 / 空字母：無狀態變化，靜默丟棄
		return
	}

	e.bc.Broadcast(room, Event{
		Type: "game_update",
		Data: map[string]any{
			"letter":       result.Letter,
			"guesser_role": string(result.Guesser),
			"correct":      result.Correct,
			"current_turn": string(result.CurrentTurn),
			"guessed":      result.Guessed,
			"word_display": result.WordDisplay,
			"game_over":    result.GameOver,
		},
	})

	if result.GameOver {
		e.finishHangman(ctx, room, result.Winner)
	}
}

// Forfeit 棄權
//
// 先在房間鎖內標記終局，競速中的 request_state 不可能再看到
// 進行中的狀態；然後廣播 opponent_forfeit 並清理房間。
// 對已終局或已清理的房間重複棄權只是再廣播一次，不產生新副作用。
func (e *GameEngine) Forfeit(_ context.Context, room, gameStr, roleStr string) {
	if room == "" {
		return
	}
	leaver, err := ParseRole(roleStr)
	if err != nil {
		return
	}
	game, err := ParseGameType(gameStr)
	if err != nil {
		return
	}

	if s, exists := e.peek(room); exists {
		s.mu.Lock()
		switch s.game {
		case GameMemory:
			s.memory.GameOver = true
		case GameHangman:
			s.hangman.GameOver = true
		}
		s.mu.Unlock()
	}

	e.bc.Broadcast(room, Event{
		Type: "opponent_forfeit",
		Data: map[string]any{
			"game_type":   string(game),
			"winner_role": string(leaver.Opponent()),
			"leaver_role": string(leaver),
		},
	})

	e.logger.Info("玩家棄權", "room", room, "game", game, "leaver", leaver)
	e.remove(room)
}

// finishMemory 翻牌終局副作用
func (e *GameEngine) finishMemory(ctx context.Context, room string, result *PairResult) {
	players, _ := e.registry.Players(room)

	if result.Draw {
		p1 := players[RoleElderly]
		p2 := players[RoleYouth]
		label1, region1 := e.label(ctx, p1)
		label2, region2 := e.label(ctx, p2)

		e.addNotice(ctx, Notice{
			Username: p1.Username, Region: region1, Emoji: "🤝",
			Message: fmt.Sprintf("%s drew Memory Match with %s.", label1, label2),
		})
		e.addNotice(ctx, Notice{
			Username: p2.Username, Region: region2, Emoji: "🤝",
			Message: fmt.Sprintf("%s drew Memory Match with %s.", label2, label1),
		})
		e.recordMatch(ctx, MatchResult{Room: room, Game: GameMemory, Winner: p1, Loser: p2, Draw: true, FinishedAt: time.Now()})
	} else {
		winner := players[result.Winner]
		loser := players[result.Winner.Opponent()]
		winnerLabel, winnerRegion := e.label(ctx, winner)
		loserLabel, loserRegion := e.label(ctx, loser)

		e.addNotice(ctx, Notice{
			Username: winner.Username, Region: winnerRegion, Emoji: "🏆",
			Message: fmt.Sprintf("%s won Memory Match against %s!", winnerLabel, loserLabel),
		})
		e.addNotice(ctx, Notice{
			Username: loser.Username, Region: loserRegion, Emoji: "💔",
			Message: fmt.Sprintf("%s lost Memory Match to %s.", loserLabel, winnerLabel),
		})
		e.recordMatch(ctx, MatchResult{Room: room, Game: GameMemory, Winner: winner, Loser: loser, FinishedAt: time.Now()})
	}

	e.logger.Info("翻牌對局結束", "room", room, "draw", result.Draw, "winner", result.Winner)
	e.remove(room)
}

// finishHangman 字謎終局副作用
func (e *GameEngine) finishHangman(ctx context.Context, room string, winnerRole Role) {
	players, _ := e.registry.Players(room)

	winner := players[winnerRole]
	loser := players[winnerRole.Opponent()]
	winnerLabel, winnerRegion := e.label(ctx, winner)
	loserLabel, loserRegion := e.label(ctx, loser)

	e.addNotice(ctx, Notice{
		Username: winner.Username, Region: winnerRegion, Emoji: "🏆",
		Message: fmt.Sprintf("%s won Hangman against %s!", winnerLabel, loserLabel),
	})
	e.addNotice(ctx, Notice{
		Username: loser.Username, Region: loserRegion, Emoji: "💔",
		Message: fmt.Sprintf("%s lost Hangman to %s.", loserLabel, winnerLabel),
	})
	e.recordMatch(ctx, MatchResult{Room: room, Game: GameHangman, Winner: winner, Loser: loser, FinishedAt: time.Now()})

	e.logger.Info("字謎對局結束", "room", room, "winner", winnerRole)
	e.remove(room)
}

// label 公告用的玩家標籤與所在地區
func (e *GameEngine) label(ctx context.Context, p PlayerInfo) (string, string) {
	name := p.Username
	if name == "" {
		name = "Someone"
	}

	region := "Unknown"
	if p.UserID != "" {
		if user, err := e.directory.Lookup(ctx, p.UserID); err == nil && user.Region != "" {
			region = user.Region
		}
	}

	return fmt.Sprintf("<b>%s</b> (%s)", name, region), region
}

// addNotice 寫公告（fire-and-forget）
func (e *GameEngine) addNotice(ctx context.Context, n Notice) {
	if err := e.notices.Add(ctx, n); err != nil {
		e.logger.Warn("寫入公告失敗", "region", n.Region, "error", err)
	}
}

// recordMatch 記錄戰績（盡力而為）
func (e *GameEngine) recordMatch(ctx context.Context, r MatchResult) {
	if e.matches == nil {
		return
	}
	if err := e.matches.Record(ctx, r); err != nil {
		e.logger.Warn("記錄戰績失敗", "room", r.Room, "error", err)
	}
}
