package repository

import (
	"context"

	"app/internal/domain/model"
)

type CartRepository interface {
	// 無ければ作る。同時に2つ作られないこと（unique制約＋負けた側は再読込）。
	GetOrCreateByUserID(ctx context.Context, userID int64) (model.Cart, error)
	GetOrCreateByGuestID(ctx context.Context, guestID int64) (model.Cart, error)
	FindByUserID(ctx context.Context, userID int64) (model.Cart, error)
	FindByGuestID(ctx context.Context, guestID int64) (model.Cart, error)
	FindByID(ctx context.Context, cartID int64) (model.Cart, error)
	DeleteByID(ctx context.Context, cartID int64) error
}
