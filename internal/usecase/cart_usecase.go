package usecase

import (
	"context"
	"errors"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"
)

// 送料。明細が1件でもあれば一律2.00ドル。
const deliveryFeeCents int64 = 200

// CartUsecase はカートの解決と変更の業務ロジック。
// 1操作1トランザクション。集計はキャッシュせず毎回読み直して計算する。
type CartUsecase struct {
	tx repo.TransactionManager
	// ゲストトークンの発行（IdentityContextの能力を注入）
	issueToken func() string
	now        func() time.Time
}

func NewCartUsecase(tx repo.TransactionManager, issueToken func() string, now func() time.Time) *CartUsecase {
	return &CartUsecase{tx: tx, issueToken: issueToken, now: now}
}

type CartItemResponse struct {
	ID        int64   `json:"id"`
	VariantID int64   `json:"variant_id"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unit_price"`
	Quantity  int64   `json:"quantity"`
	Image     string  `json:"image,omitempty"`
}

type CartResponse struct {
	ID          int64              `json:"id"`
	Items       []CartItemResponse `json:"items"`
	TotalItems  int64              `json:"total_items"`
	Subtotal    float64            `json:"subtotal"`
	DeliveryFee float64            `json:"delivery_fee"`
	Total       float64            `json:"total"`
}

type AddItemInput struct {
	VariantID int64
	Quantity  int64
}

// GetCart はカート取得（無ければ作って空を返す）。
// ゲストトークンを新規発行した場合はminted!=""で返すので、呼び出し側でセッションへ保存する。
func (u *CartUsecase) GetCart(ctx context.Context, ident model.Identity) (CartResponse, string, error) {
	var out CartResponse
	var minted string

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cart, tok, err := u.resolveCart(ctx, r, ident)
		if err != nil {
			return err
		}
		minted = tok

		out, err = u.buildCartResponse(ctx, r, cart.ID)
		return err
	})

	if err != nil {
		return CartResponse{}, "", err
	}
	return out, minted, nil
}

// AddItem はカートに追加（同一variantは数量加算）。
// 在庫はカート内の既存数量＋追加分で検証する。
func (u *CartUsecase) AddItem(ctx context.Context, ident model.Identity, in AddItemInput) (CartResponse, string, error) {
	if in.Quantity <= 0 {
		return CartResponse{}, "", ErrInvalidQuantity
	}

	var out CartResponse
	var minted string

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cart, tok, err := u.resolveCart(ctx, r, ident)
		if err != nil {
			return err
		}
		minted = tok

		v, err := r.Variants().FindByID(ctx, in.VariantID)
		if errors.Is(err, repo.ErrNotFound) {
			return ErrVariantNotFound
		}
		if err != nil {
			return err
		}
		if !v.IsActive {
			return ErrVariantNotFound
		}

		// カート内の既存数量を調べて累積で在庫チェック
		items, err := r.CartItems().ListByCartID(ctx, cart.ID)
		if err != nil {
			return err
		}

		var existingQty int64 = 0
		for _, it := range items {
			if it.VariantID == in.VariantID {
				existingQty = it.Quantity
				break
			}
		}

		if existingQty+in.Quantity > v.Stock {
			return ErrInsufficientStock
		}

		if err := r.CartItems().UpsertAddQuantity(ctx, cart.ID, in.VariantID, in.Quantity); err != nil {
			return err
		}

		out, err = u.buildCartResponse(ctx, r, cart.ID)
		return err
	})

	if err != nil {
		return CartResponse{}, "", err
	}
	return out, minted, nil
}

// UpdateQuantity は数量変更。qty<=0は削除と同じ扱い（エラーではない）。
func (u *CartUsecase) UpdateQuantity(ctx context.Context, ident model.Identity, cartItemID int64, qty int64) (CartResponse, string, error) {
	if cartItemID <= 0 {
		return CartResponse{}, "", ErrItemNotFound
	}
	if qty <= 0 {
		return u.RemoveItem(ctx, ident, cartItemID)
	}

	var out CartResponse
	var minted string

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cart, tok, err := u.resolveCart(ctx, r, ident)
		if err != nil {
			return err
		}
		minted = tok

		item, err := u.findOwnedItem(ctx, r, cart, cartItemID)
		if err != nil {
			return err
		}

		// 絶対数量で在庫を再検証
		v, err := r.Variants().FindByID(ctx, item.VariantID)
		if errors.Is(err, repo.ErrNotFound) {
			return ErrVariantNotFound
		}
		if err != nil {
			return err
		}
		if qty > v.Stock {
			return ErrInsufficientStock
		}

		if err := r.CartItems().UpdateQuantity(ctx, cartItemID, qty); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrItemNotFound
			}
			return err
		}

		out, err = u.buildCartResponse(ctx, r, cart.ID)
		return err
	})

	if err != nil {
		return CartResponse{}, "", err
	}
	return out, minted, nil
}

// RemoveItem は明細削除（所有チェックあり）。
func (u *CartUsecase) RemoveItem(ctx context.Context, ident model.Identity, cartItemID int64) (CartResponse, string, error) {
	if cartItemID <= 0 {
		return CartResponse{}, "", ErrItemNotFound
	}

	var out CartResponse
	var minted string

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cart, tok, err := u.resolveCart(ctx, r, ident)
		if err != nil {
			return err
		}
		minted = tok

		if _, err := u.findOwnedItem(ctx, r, cart, cartItemID); err != nil {
			return err
		}

		if err := r.CartItems().DeleteByID(ctx, cartItemID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrItemNotFound
			}
			return err
		}

		out, err = u.buildCartResponse(ctx, r, cart.ID)
		return err
	})

	if err != nil {
		return CartResponse{}, "", err
	}
	return out, minted, nil
}

// ClearCart は明細の全削除。
func (u *CartUsecase) ClearCart(ctx context.Context, ident model.Identity) (CartResponse, string, error) {
	var out CartResponse
	var minted string

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cart, tok, err := u.resolveCart(ctx, r, ident)
		if err != nil {
			return err
		}
		minted = tok

		if err := r.CartItems().DeleteByCartID(ctx, cart.ID); err != nil {
			return err
		}

		out, err = u.buildCartResponse(ctx, r, cart.ID)
		return err
	})

	if err != nil {
		return CartResponse{}, "", err
	}
	return out, minted, nil
}

// PurgeExpiredGuests は期限切れゲストの掃除。定期実行される。
func (u *CartUsecase) PurgeExpiredGuests(ctx context.Context) (int64, error) {
	var purged int64

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		n, err := r.Guests().DeleteExpired(ctx, u.now())
		purged = n
		return err
	})

	if err != nil {
		return 0, err
	}
	return purged, nil
}

// resolveCart はIdentityからカートを1つに解決する（無ければ作成）。
// ゲストでトークンが無い・期限切れの場合はここで発行し直す。
func (u *CartUsecase) resolveCart(ctx context.Context, r repo.TxRepos, ident model.Identity) (model.Cart, string, error) {
	if ident.IsAuthenticated() {
		cart, err := r.Carts().GetOrCreateByUserID(ctx, *ident.UserID)
		return cart, "", err
	}

	minted := ""
	token := ident.GuestToken
	if token == "" {
		token = u.issueToken()
		minted = token
	}

	g, err := u.resolveGuest(ctx, r, token)
	if err != nil {
		return model.Cart{}, "", err
	}

	cart, err := r.Carts().GetOrCreateByGuestID(ctx, g.ID)
	if err != nil {
		return model.Cart{}, "", err
	}
	return cart, minted, nil
}

// トークンに対応するGuest行を用意する。
// 行が無ければ作る。期限切れなら消して作り直す（トークンは使い回す）。
func (u *CartUsecase) resolveGuest(ctx context.Context, r repo.TxRepos, token string) (model.Guest, error) {
	now := u.now()

	g, err := r.Guests().FindByToken(ctx, token)
	if err == nil {
		if !g.IsExpired(now) {
			return g, nil
		}
		if err := r.Guests().DeleteByID(ctx, g.ID); err != nil && !errors.Is(err, repo.ErrNotFound) {
			return model.Guest{}, err
		}
	} else if !errors.Is(err, repo.ErrNotFound) {
		return model.Guest{}, err
	}

	created, err := r.Guests().Create(ctx, model.Guest{
		SessionToken: token,
		CreatedAt:    now,
		ExpiresAt:    now.Add(model.GuestSessionTTL),
	})
	if errors.Is(err, repo.ErrDuplicate) {
		// 同時に作られた。勝った行を読む
		return r.Guests().FindByToken(ctx, token)
	}
	if err != nil {
		return model.Guest{}, err
	}
	return created, nil
}

// 明細が呼び出し元のカートに属しているか。他人のカートの明細は「存在しない扱い」。
func (u *CartUsecase) findOwnedItem(ctx context.Context, r repo.TxRepos, cart model.Cart, cartItemID int64) (model.CartItem, error) {
	item, err := r.CartItems().FindByID(ctx, cartItemID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.CartItem{}, ErrItemNotFound
	}
	if err != nil {
		return model.CartItem{}, err
	}
	if item.CartID != cart.ID {
		return model.CartItem{}, ErrItemNotFound
	}
	return item, nil
}

// cartIDの明細を読み直してCartResponseを作る。
// 集計は保存せず、常にここで計算する（古い集計を返さないため）。
func (u *CartUsecase) buildCartResponse(ctx context.Context, r repo.TxRepos, cartID int64) (CartResponse, error) {
	items, err := r.CartItems().ListByCartID(ctx, cartID)
	if err != nil {
		return CartResponse{}, err
	}

	ids := make([]int64, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.VariantID)
	}

	variants, err := r.Variants().FindByIDs(ctx, ids)
	if err != nil {
		return CartResponse{}, err
	}

	respItems := make([]CartItemResponse, 0, len(items))
	var totalItems int64 = 0
	var subtotalCents int64 = 0

	for _, it := range items {
		v, ok := variants[it.VariantID]
		if !ok || !v.IsActive {
			continue
		}

		respItems = append(respItems, CartItemResponse{
			ID:        it.ID,
			VariantID: it.VariantID,
			Name:      v.Name,
			UnitPrice: model.CentsToDollars(v.EffectivePriceCents()),
			Quantity:  it.Quantity,
			Image:     v.ImageURL,
		})

		totalItems += it.Quantity
		subtotalCents += v.EffectivePriceCents() * it.Quantity
	}

	var feeCents int64 = 0
	if totalItems > 0 {
		feeCents = deliveryFeeCents
	}

	return CartResponse{
		ID:          cartID,
		Items:       respItems,
		TotalItems:  totalItems,
		Subtotal:    model.CentsToDollars(subtotalCents),
		DeliveryFee: model.CentsToDollars(feeCents),
		Total:       model.CentsToDollars(subtotalCents + feeCents),
	}, nil
}
