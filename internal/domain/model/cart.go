package model

import "time"

// カート。所有者は user か guest のどちらか片方だけ。
// user_id / guest_id それぞれのuniqueIndexで「1所有者に1カート」を保証する
// （NULLは重複可なので、もう片方がNULLでも衝突しない）。
type Cart struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    *int64    `gorm:"uniqueIndex" json:"user_id"`
	GuestID   *int64    `gorm:"uniqueIndex" json:"guest_id"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
