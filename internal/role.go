package internal

import (
	"fmt"
	"strings"
)

// Role 參與者角色
//
// 整個配對與遊戲系統只有兩種固定角色：長者（Elderly）與青年（Youth）。
// 角色同時承擔兩種職責：
//   - 配對條件：只有相反角色才能配成一局
//   - 玩家槽位：每個房間恰好一個 Elderly 槽與一個 Youth 槽
//
// 前端傳來的角色字串有多種寫法（senior、elder、young...），
// 一律經由 ParseRole 正規化成枚舉值，任何入口都不得直接比對原始字串。
type Role string

const (
	RoleElderly Role = "Elderly"
	RoleYouth   Role = "Youth"
)

// Opponent 返回對面的角色
func (r Role) Opponent() Role {
	if r == RoleElderly {
		return RoleYouth
	}
	return RoleElderly
}

// ParseRole 角色字串正規化
//
// 同義詞對照（不分大小寫）：
//   - senior / elder / elderly → Elderly
//   - youth / young → Youth
//
// 無法辨識的角色返回錯誤，呼叫端應拒絕該請求而非默默入隊。
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "senior", "elder", "elderly":
		return RoleElderly, nil
	case "youth", "young":
		return RoleYouth, nil
	default:
		return "", fmt.Errorf("無法辨識的角色: %q", s)
	}
}

// GameType 遊戲類型
type GameType string

const (
	GameMemory  GameType = "memory"  // 翻牌配對（Memory Match）
	GameHangman GameType = "hangman" // 猜單字（Hangman）
)

// ParseGameType 遊戲類型字串正規化
//
// 對照（不分大小寫）：
//   - memory / memory-match / memory_match → memory
//   - hangman → hangman
func ParseGameType(s string) (GameType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "memory", "memory-match", "memory_match":
		return GameMemory, nil
	case "hangman":
		return GameHangman, nil
	default:
		return "", fmt.Errorf("無法辨識的遊戲類型: %q", s)
	}
}
