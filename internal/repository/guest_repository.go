package repository

import (
	"context"
	"time"

	"app/internal/domain/model"
)

type GuestRepository interface {
	FindByToken(ctx context.Context, token string) (model.Guest, error)
	// トークンが既にあればErrDuplicate。呼び出し元のトランザクションを
	// abortさせずに返すこと（呼び出し元は同じトランザクションで読み直す）
	Create(ctx context.Context, g model.Guest) (model.Guest, error)
	DeleteByID(ctx context.Context, guestID int64) error
	// 期限切れレコードの掃除
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
