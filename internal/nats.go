package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
)

// NatsNoticeFeed 把公告發佈到 NATS
//
// 社群平台的公告板服務訂閱 notices.> 自行落庫與推播，
// 遊戲核心只負責發佈，不等待任何訂閱者。
type NatsNoticeFeed struct {
	conn *nats.Conn
}

// NewNatsNoticeFeed 創建 NATS 公告發佈器
func NewNatsNoticeFeed(conn *nats.Conn) *NatsNoticeFeed {
	return &NatsNoticeFeed{conn: conn}
}

// Add 發佈公告到 notices.<region>
func (f *NatsNoticeFeed) Add(_ context.Context, n Notice) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("序列化公告失敗: %w", err)
	}
	if err := f.conn.Publish(noticeSubject(n.Region), payload); err != nil {
		return fmt.Errorf("發佈公告失敗: %w", err)
	}
	return nil
}

// noticeSubject 地區轉 NATS 主題
//
// 地區名可能含空白（"Ang Mo Kio"），NATS 主題不允許，
// 統一轉小寫並以連字號取代；空地區歸到 notices.unknown。
func noticeSubject(region string) string {
	r := strings.ToLower(strings.TrimSpace(region))
	if r == "" {
		return "notices.unknown"
	}
	r = strings.ReplaceAll(r, " ", "-")
	r = strings.ReplaceAll(r, ".", "-")
	return "notices." + r
}

// MultiNoticeFeed 公告扇出
//
// 同一則公告同時落庫（Postgres）與發佈（NATS）。
// 任何一個後端失敗不阻止其餘後端，錯誤合併返回給呼叫端記日誌。
type MultiNoticeFeed struct {
	feeds []NoticeFeed
}

// NewMultiNoticeFeed 創建公告扇出
func NewMultiNoticeFeed(feeds ...NoticeFeed) *MultiNoticeFeed {
	return &MultiNoticeFeed{feeds: feeds}
}

// Add 依序寫入所有後端
func (f *MultiNoticeFeed) Add(ctx context.Context, n Notice) error {
	var errs []error
	for _, feed := range f.feeds {
		if err := feed.Add(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("公告扇出部分失敗: %w", errs[0])
	}
	return nil
}
