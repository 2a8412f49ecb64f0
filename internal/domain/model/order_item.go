package model

import "time"

// 注文明細。価格はチェックアウト時点のスナップショットからコピーする。
// 後からカタログ価格が変わっても再計算しない。
type OrderItem struct {
	ID                   int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID              int64     `gorm:"not null;index" json:"order_id"`
	VariantID            int64     `gorm:"not null;index" json:"variant_id"`
	NameSnapshot         string    `gorm:"type:varchar(255);not null" json:"name_snapshot"`
	PriceAtPurchaseCents int64     `gorm:"not null" json:"price_at_purchase_cents"`
	Quantity             int64     `gorm:"not null" json:"quantity"`
	CreatedAt            time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}
