package domain

import (
	"strings"
	"time"
)

// Identity 表示一个已注册的匿名收信身份。
//
// Handle 是用户选择的公开昵称；LinkToken 是身份唯一的不透明访问凭证，
// 发信和查看收件箱都只依赖它（没有其他认证机制）。
type Identity struct {
	ID           string    `json:"-" gorm:"primaryKey;type:varchar(36)"`
	Handle       string    `json:"handle" gorm:"type:varchar(20);not null"`
	HandleKey    string    `json:"-" gorm:"type:varchar(20);not null;uniqueIndex:idx_identities_handle_key"` // 小写形式，用于大小写不敏感的唯一约束
	LinkToken    string    `json:"linkToken" gorm:"type:varchar(64);not null;uniqueIndex:idx_identities_link_token"`
	CreatedAt    time.Time `json:"createdAt"`
	MessageCount int       `json:"messageCount"` // 累计收到的消息总数，消息过期后不回减
}

// NormalizeHandle 返回昵称的唯一性比较键（小写）。
//
// 唯一性按大小写不敏感处理，展示时保留用户输入的原始大小写。
func NormalizeHandle(handle string) string {
	return strings.ToLower(handle)
}
