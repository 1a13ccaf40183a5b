package internal

import (
	"errors"
	"math/rand"
	"sort"
)

// 系統設計問題：
//   如何讓翻牌配對遊戲在兩個客戶端之間保持一致，且任何非法操作都不污染狀態？
//
// 核心挑戰：
//   1. 回合制不變量：非當前回合的翻牌必須被確定性拒絕，而非靠競速
//   2. 翻牌階段性：一回合最多兩張，第二張才觸發結算
//   3. 斷線重連：服務器是唯一真相，客戶端隨時可以用快照自我修正
//
// 設計方案：
//   ✅ 顯式狀態機：awaiting_first_flip → awaiting_second_flip → resolving
//   ✅ 純函數式轉換：Flip(role, idx) → (結算結果, 錯誤)，不送事件
//   ✅ 房間鍵種子洗牌：同一房間必然重現同一副牌（重連後牌面不變）

// 翻牌遊戲的 12 種符號，成對出現組成 24 張牌
var memorySymbols = []string{
	"🍎", "🐶", "🎈", "🍪", "🚗", "🌸",
	"⭐️", "🍇", "🕊️", "⏰", "⚽️", "🎂",
}

const memoryPairsTotal = 12

// 翻牌被拒絕的原因
//
// 呼叫端依種類決定回應方式：回合衝突要重新同步呼叫者，
// 其餘（壞索引、重複翻牌）直接丟棄即可。
var (
	ErrGameOver    = errors.New("遊戲已結束")
	ErrNotYourTurn = errors.New("不是你的回合")
	ErrBadIndex    = errors.New("卡牌索引超出範圍")
	ErrCardTaken   = errors.New("卡牌已配對或已翻開")
	ErrPairPending = errors.New("已有兩張牌等待結算")
)

// MemoryState 翻牌配對遊戲狀態
//
// 不變量：
//   - len(Flipped) ∈ {0, 1, 2}
//   - 一個索引不會同時在 Matched 與 Flipped 中
//   - GameOver 為真 ⟺ 雙方得分總和 == PairsTotal
type MemoryState struct {
	Deck         []string
	Matched      map[int]bool
	Scores       map[Role]int
	CurrentTurn  Role
	Flipped      []int
	LastFlipRole Role
	PairsTotal   int
	GameOver     bool
}

// PairResult 第二張翻牌的結算結果
//
// Winner 只在 GameOver 且非平手時有值。
type PairResult struct {
	A        int
	B        int
	IsMatch  bool
	NextTurn Role
	Scores   map[Role]int
	GameOver bool
	Winner   Role
	Draw     bool
}

// hashRoom 房間鍵的 32 位字串雜湊
//
// 與前端使用相同的 ((h<<5)-h)+ch 雜湊，確保同一房間鍵
// 在服務器與客戶端推導出相同的種子。
func hashRoom(s string) uint32 {
	var h uint32
	for _, ch := range s {
		h = (h << 5) - h + uint32(ch)
	}
	return h
}

// NewMemoryState 按房間鍵建立牌局
//
// 牌序由房間鍵種子決定性洗出，起始回合取種子奇偶。
// 房間鍵本身含時間戳與序號，重賽時種子必然不同。
func NewMemoryState(room string) *MemoryState {
	deck := make([]string, 0, len(memorySymbols)*2)
	deck = append(deck, memorySymbols...)
	deck = append(deck, memorySymbols...)

	seed := hashRoom(room)
	rng := rand.New(rand.NewSource(int64(seed)))
	rng.Shuffle(len(deck), func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})

	startTurn := RoleElderly
	if seed%2 != 0 {
		startTurn = RoleYouth
	}

	return &MemoryState{
		Deck:        deck,
		Matched:     make(map[int]bool),
		Scores:      map[Role]int{RoleElderly: 0, RoleYouth: 0},
		CurrentTurn: startTurn,
		PairsTotal:  memoryPairsTotal,
	}
}

// Flip 嘗試翻開一張牌
//
// 驗證順序（任一失敗即狀態不變）：
//  1. 遊戲已結束 → ErrGameOver
//  2. 非當前回合 → ErrNotYourTurn
//  3. 索引越界 → ErrBadIndex
//  4. 已配對或本回合已翻 → ErrCardTaken
//  5. 兩張牌等待結算中 → ErrPairPending
//
// 第一張翻牌返回 (nil, nil)，回合不變；
// 第二張觸發結算並返回 PairResult：
//   - 配對成功：兩張入 Matched，翻牌者得 1 分，回合不變
//   - 配對失敗：回合換邊
//
// 兩種情況 Flipped 都清空。
func (s *MemoryState) Flip(role Role, idx int) (*PairResult, error) {
	if s.GameOver {
		return nil, ErrGameOver
	}
	if role != s.CurrentTurn {
		return nil, ErrNotYourTurn
	}
	if idx < 0 || idx >= len(s.Deck) {
		return nil, ErrBadIndex
	}
	if s.Matched[idx] {
		return nil, ErrCardTaken
	}
	for _, f := range s.Flipped {
		if f == idx {
			return nil, ErrCardTaken
		}
	}
	if len(s.Flipped) >= 2 {
		return nil, ErrPairPending
	}

	s.Flipped = append(s.Flipped, idx)
	s.LastFlipRole = role

	if len(s.Flipped) == 1 {
		// 第一張：只揭示，不換回合
		return nil, nil
	}

	// 第二張：結算
	a, b := s.Flipped[0], s.Flipped[1]
	isMatch := s.Deck[a] == s.Deck[b]

	if isMatch {
		s.Matched[a] = true
		s.Matched[b] = true
		s.Scores[role]++
		// 配對成功，同一玩家續翻
	} else {
		s.CurrentTurn = role.Opponent()
	}

	s.Flipped = nil
	s.LastFlipRole = ""

	result := &PairResult{
		A:        a,
		B:        b,
		IsMatch:  isMatch,
		NextTurn: s.CurrentTurn,
		Scores:   map[Role]int{RoleElderly: s.Scores[RoleElderly], RoleYouth: s.Scores[RoleYouth]},
	}

	if s.Scores[RoleElderly]+s.Scores[RoleYouth] == s.PairsTotal {
		s.GameOver = true
		result.GameOver = true

		switch {
		case s.Scores[RoleElderly] > s.Scores[RoleYouth]:
			result.Winner = RoleElderly
		case s.Scores[RoleYouth] > s.Scores[RoleElderly]:
			result.Winner = RoleYouth
		default:
			result.Draw = true
		}
	}

	return result, nil
}

// Snapshot 完整狀態快照（sync_state payload）
func (s *MemoryState) Snapshot() map[string]any {
	matched := make([]int, 0, len(s.Matched))
	for idx := range s.Matched {
		matched = append(matched, idx)
	}
	// map 迭代順序不定，排序後客戶端才不會在重繪之間看到列表亂跳
	sort.Ints(matched)

	return map[string]any{
		"game_type":    string(GameMemory),
		"deck":         append([]string(nil), s.Deck...),
		"matched":      matched,
		"scores":       map[string]int{string(RoleElderly): s.Scores[RoleElderly], string(RoleYouth): s.Scores[RoleYouth]},
		"current_turn": string(s.CurrentTurn),
		"pairs_total":  s.PairsTotal,
		"flipped":      append([]int(nil), s.Flipped...),
		"game_over":    s.GameOver,
	}
}
