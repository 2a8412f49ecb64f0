package repository

import (
	"context"

	"app/internal/domain/model"
)

type SnapshotRepository interface {
	Create(ctx context.Context, snap model.CheckoutSnapshot, items []model.CheckoutSnapshotItem) (int64, error)
	// 明細はposition順で返す
	FindBySessionID(ctx context.Context, sessionID string) (model.CheckoutSnapshot, []model.CheckoutSnapshotItem, error)
}
