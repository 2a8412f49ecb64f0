package model

import "time"

type PaymentStatus string

const (
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
)

// 決済記録。transaction_idのuniqueIndexが注文の重複作成を防ぐ。
// 同じwebhookが二重配送されても、2回目のINSERTはここで弾かれる。
type Payment struct {
	ID            int64         `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID       int64         `gorm:"not null;index" json:"order_id"`
	Method        string        `gorm:"type:varchar(20);not null" json:"method"`
	Status        PaymentStatus `gorm:"type:varchar(20);not null" json:"status"`
	TransactionID string        `gorm:"type:varchar(255);not null;uniqueIndex" json:"transaction_id"`
	PaidAt        time.Time     `gorm:"not null" json:"paid_at"`
	CreatedAt     time.Time     `gorm:"not null;autoCreateTime" json:"created_at"`
}
