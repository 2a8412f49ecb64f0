package model

import "time"

// ゲストセッションの有効期限（7日）
const GuestSessionTTL = 7 * 24 * time.Hour

// 匿名ユーザーの記録。session_tokenはcookieに入る値。
type Guest struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionToken string    `gorm:"type:varchar(64);not null;uniqueIndex" json:"-"`
	CreatedAt    time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	ExpiresAt    time.Time `gorm:"not null;index" json:"expires_at"`
}

// 期限切れか
func (g Guest) IsExpired(now time.Time) bool {
	return !g.ExpiresAt.After(now)
}
