package model

import "time"

// チェックアウト時点のカート内容の固定コピー。
// 作成後は変更しない。session_idは決済ゲートウェイが採番したID。
type CheckoutSnapshot struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CartID     int64     `gorm:"not null;index" json:"cart_id"`
	SessionID  string    `gorm:"type:varchar(255);not null;uniqueIndex" json:"session_id"`
	TotalCents int64     `gorm:"not null" json:"total_cents"`
	CreatedAt  time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

// スナップショットの明細。positionで並びを保つ。
type CheckoutSnapshotItem struct {
	ID             int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	SnapshotID     int64  `gorm:"not null;index" json:"snapshot_id"`
	Position       int    `gorm:"not null" json:"position"`
	VariantID      int64  `gorm:"not null" json:"variant_id"`
	Name           string `gorm:"type:varchar(255);not null" json:"name"`
	UnitPriceCents int64  `gorm:"not null" json:"unit_price_cents"`
	Quantity       int64  `gorm:"not null" json:"quantity"`
	ImageURL       string `gorm:"type:varchar(511)" json:"image_url"`
}
