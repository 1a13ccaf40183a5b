package internal

import (
	"fmt"
	"sync"
	"time"
)

const dayFormat = "2006-01-02"

// Clock 可插拔的「今天是哪一天」來源
//
// DM 連續紀錄以日曆日為單位遞增。部署可以用 DemoClock 模擬換日，
// 不必等真實時間，示範與測試都靠這個介面。
type Clock interface {
	Now() time.Time
	Today() string // YYYY-MM-DD
}

// systemClock 真實系統時間
type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }
func (systemClock) Today() string  { return time.Now().Format(dayFormat) }

// SystemClock 返回真實時鐘
func SystemClock() Clock { return systemClock{} }

// DemoClock 可覆寫日期的時鐘
//
// 只假造「日期」，時分秒保持真實，讓訊息時間戳看起來自然。
// 未設定日期時行為與真實時鐘相同。
type DemoClock struct {
	mu   sync.RWMutex
	date string
}

// NewDemoClock 創建示範時鐘
func NewDemoClock() *DemoClock { return &DemoClock{} }

// SetDate 固定日期（YYYY-MM-DD）
func (c *DemoClock) SetDate(date string) error {
	parsed, err := time.Parse(dayFormat, date)
	if err != nil {
		return fmt.Errorf("日期格式錯誤，需要 YYYY-MM-DD: %w", err)
	}

	c.mu.Lock()
	c.date = parsed.Format(dayFormat)
	c.mu.Unlock()
	return nil
}

// Clear 清除覆寫，回到真實日期
func (c *DemoClock) Clear() {
	c.mu.Lock()
	c.date = ""
	c.mu.Unlock()
}

// Now 返回當下時間；若有覆寫日期則替換年月日
func (c *DemoClock) Now() time.Time {
	c.mu.RLock()
	date := c.date
	c.mu.RUnlock()

	now := time.Now()
	if date == "" {
		return now
	}

	d, _ := time.Parse(dayFormat, date)
	return time.Date(d.Year(), d.Month(), d.Day(),
		now.Hour(), now.Minute(), now.Second(), now.Nanosecond(), now.Location())
}

// Today 當前日曆日
func (c *DemoClock) Today() string {
	return c.Now().Format(dayFormat)
}
