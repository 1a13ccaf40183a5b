package internal

import (
	"errors"
	"math/rand"
	"strings"
)

// 猜單字的固定字典（全大寫）
var hangmanWords = []string{
	"APPLE", "HOUSE", "MUSIC", "RIVER", "CHAIR", "GARDEN", "KITCHEN",
	"MOUNTAIN", "BICYCLE", "THUNDER", "DINOSAUR", "EGGPLANT", "FOUNTAIN",
	"INGREDIENT", "LAUGH", "ALPHABET", "BUSINESS", "RAINDROP", "COMPUTER",
	"SUNLIGHT", "PENGUIN", "KEYBOARD", "BACKPACK", "STARFISH", "ELEPHANT",
	"VOLCANO", "BUTTERFLY", "SANDWICH", "TRAMPOLINE", "CHOCOLATE",
}

// 猜測被拒絕的原因（狀態不變）
var (
	ErrLetterRepeated = errors.New("字母已猜過")
	ErrBadLetter      = errors.New("缺少猜測字母")
)

// HangmanState 猜單字遊戲狀態
//
// 不變量：
//   - Guessed 只增不減
//   - GameOver 為真 ⟺ Word 的每個字母都在 Guessed 中
//
// 單字與起始回合都是均勻隨機：同一對玩家重賽不可預測
// （刻意與翻牌遊戲的房間鍵種子不同，字謎可預測就沒得玩了）。
type HangmanState struct {
	Word        string
	Guessed     []string
	CurrentTurn Role
	GameOver    bool
}

// GuessResult 一次猜測的結果（game_update payload 素材）
type GuessResult struct {
	Letter      string
	Guesser     Role
	Correct     bool
	CurrentTurn Role
	Guessed     []string
	WordDisplay string
	GameOver    bool
	Winner      Role
}

// NewHangmanState 建立新字謎局
//
// rng 由呼叫端注入，測試時可固定種子。
func NewHangmanState(rng *rand.Rand) *HangmanState {
	startTurn := RoleElderly
	if rng.Intn(2) == 1 {
		startTurn = RoleYouth
	}
	return &HangmanState{
		Word:        hangmanWords[rng.Intn(len(hangmanWords))],
		CurrentTurn: startTurn,
	}
}

// Guess 嘗試猜一個字母
//
// 只取輸入的第一個字元並轉大寫。驗證順序：
//  1. 遊戲已結束 → ErrGameOver
//  2. 非當前回合 → ErrNotYourTurn
//  3. 字母已猜過 → ErrLetterRepeated
//
// 猜中回合不變，猜錯換邊。當整個單字被猜齊時終局，
// 猜出最後一個字母的人獲勝。
func (s *HangmanState) Guess(role Role, letter string) (*GuessResult, error) {
	if s.GameOver {
		return nil, ErrGameOver
	}
	if role != s.CurrentTurn {
		return nil, ErrNotYourTurn
	}

	runes := []rune(strings.TrimSpace(letter))
	if len(runes) == 0 {
		return nil, ErrBadLetter
	}
	letter = strings.ToUpper(string(runes[0]))
	for _, g := range s.Guessed {
		if g == letter {
			return nil, ErrLetterRepeated
		}
	}

	s.Guessed = append(s.Guessed, letter)

	correct := strings.Contains(s.Word, letter)
	if !correct {
		s.CurrentTurn = role.Opponent()
	}

	if s.solved() {
		s.GameOver = true
	}

	result := &GuessResult{
		Letter:      letter,
		Guesser:     role,
		Correct:     correct,
		CurrentTurn: s.CurrentTurn,
		Guessed:     append([]string(nil), s.Guessed...),
		WordDisplay: s.wordDisplay(),
		GameOver:    s.GameOver,
	}
	if s.GameOver {
		result.Winner = role
	}
	return result, nil
}

// solved 整個單字是否已猜齊
func (s *HangmanState) solved() bool {
	for _, ch := range s.Word {
		if !s.guessedLetter(string(ch)) {
			return false
		}
	}
	return true
}

func (s *HangmanState) guessedLetter(letter string) bool {
	for _, g := range s.Guessed {
		if g == letter {
			return true
		}
	}
	return false
}

// wordDisplay 對客戶端顯示的遮罩字串，如 "A _ _ L E"
func (s *HangmanState) wordDisplay() string {
	parts := make([]string, 0, len(s.Word))
	for _, ch := range s.Word {
		if s.guessedLetter(string(ch)) {
			parts = append(parts, string(ch))
		} else {
			parts = append(parts, "_")
		}
	}
	return strings.Join(parts, " ")
}

// Snapshot 完整狀態快照（sync_state payload）
//
// 單字本身絕不下發，只給遮罩與長度。
func (s *HangmanState) Snapshot() map[string]any {
	return map[string]any{
		"game_type":    string(GameHangman),
		"guessed":      append([]string(nil), s.Guessed...),
		"current_turn": string(s.CurrentTurn),
		"game_over":    s.GameOver,
		"word_display": s.wordDisplay(),
		"word_length":  len(s.Word),
	}
}
