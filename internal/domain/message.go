package domain

import "time"

// Message 表示一条发给某个身份的匿名消息。
//
// RecipientToken 指向收件身份的 LinkToken。消息自创建起保留 48 小时，
// 到期后对所有读取路径不可见，并由清理任务删除。
type Message struct {
	ID             string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	RecipientToken string    `json:"-" gorm:"type:varchar(64);index;not null"`
	Content        string    `json:"content" gorm:"type:varchar(500);not null"`
	CreatedAt      time.Time `json:"createdAt" gorm:"index"`
	IsRead         bool      `json:"isRead" gorm:"default:false"`
}

// ExpiredAt 判断消息在指定时间点相对 retention 是否已过期。
//
// 被动过期（读取时过滤）和主动清理（定时删除）共用这一条判定规则，
// 保证两种机制对可见性的判断一致。
func (m *Message) ExpiredAt(now time.Time, retention time.Duration) bool {
	if retention <= 0 {
		return false
	}
	return now.Sub(m.CreatedAt) >= retention
}
