package repository

import (
	"context"

	"app/internal/domain/model"
)

type PaymentRepository interface {
	// transaction_idが既にあればErrDuplicate。これが冪等ゲート。
	Create(ctx context.Context, p model.Payment) (int64, error)
	FindByTransactionID(ctx context.Context, transactionID string) (model.Payment, error)
	FindByOrderID(ctx context.Context, orderID int64) (model.Payment, error)
}
