package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"app/internal/domain/model"
	"app/internal/payment"
	repo "app/internal/repository"
)

// CheckoutUsecase はカートを不変のスナップショットに固め、
// 決済ゲートウェイのセッションを作ってリダイレクトURLを返す。
type CheckoutUsecase struct {
	tx      repo.TransactionManager
	gateway payment.Gateway
	appURL  string
	now     func() time.Time
}

func NewCheckoutUsecase(tx repo.TransactionManager, gateway payment.Gateway, appURL string, now func() time.Time) *CheckoutUsecase {
	return &CheckoutUsecase{
		tx:      tx,
		gateway: gateway,
		appURL:  strings.TrimRight(appURL, "/"),
		now:     now,
	}
}

// スナップショットの固定分（gateway呼び出しとDB txをまたいで持ち回る）
type checkoutLine struct {
	variantID      int64
	name           string
	unitPriceCents int64
	quantity       int64
	imageURL       string
}

// BeginCheckout はチェックアウト開始。ゲートウェイのリダイレクトURLを返す。
// 価格と商品名はこの瞬間にカタログから読み直す（キャッシュ済みの小計は信用しない）。
func (u *CheckoutUsecase) BeginCheckout(ctx context.Context, ident model.Identity, cartID int64) (string, error) {
	if cartID <= 0 {
		return "", ErrCartNotFound
	}

	var lines []checkoutLine
	var totalCents int64

	// 1) カートの読み取り＋所有チェック＋明細の固定
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cart, err := r.Carts().FindByID(ctx, cartID)
		if errors.Is(err, repo.ErrNotFound) {
			return ErrCartNotFound
		}
		if err != nil {
			return err
		}

		// 他人のカートは「存在しない扱い」
		if !u.ownsCart(ctx, r, cart, ident) {
			return ErrCartNotFound
		}

		items, err := r.CartItems().ListByCartID(ctx, cart.ID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return ErrEmptyCart
		}

		ids := make([]int64, 0, len(items))
		for _, it := range items {
			ids = append(ids, it.VariantID)
		}
		variants, err := r.Variants().FindByIDs(ctx, ids)
		if err != nil {
			return err
		}

		lines = lines[:0]
		totalCents = 0
		for _, it := range items {
			v, ok := variants[it.VariantID]
			if !ok {
				return ErrVariantNotFound
			}
			if !v.IsActive {
				// カートの表示に出ない行は課金もしない
				continue
			}

			price := v.EffectivePriceCents()
			lines = append(lines, checkoutLine{
				variantID:      it.VariantID,
				name:           v.Name,
				unitPriceCents: price,
				quantity:       it.Quantity,
				imageURL:       u.absoluteImageURL(v.ImageURL),
			})
			totalCents += price * it.Quantity
		}

		if len(lines) == 0 {
			return ErrEmptyCart
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	// 2) ゲートウェイでセッション作成（DBトランザクションの外で呼ぶ）
	meta := map[string]string{
		"cartId":      strconv.FormatInt(cartID, 10),
		"totalAmount": strconv.FormatInt(totalCents, 10),
	}
	if ident.IsAuthenticated() {
		meta["userId"] = strconv.FormatInt(*ident.UserID, 10)
	}
	if ident.GuestToken != "" {
		meta["guestToken"] = ident.GuestToken
	}

	gwItems := make([]payment.LineItem, 0, len(lines))
	for _, l := range lines {
		gwItems = append(gwItems, payment.LineItem{
			Name:            l.name,
			UnitAmountCents: l.unitPriceCents,
			Quantity:        l.quantity,
			ImageURL:        l.imageURL,
		})
	}

	sess, err := u.gateway.CreateCheckoutSession(ctx, payment.CreateSessionInput{
		Items:      gwItems,
		SuccessURL: u.appURL + "/checkout/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  u.appURL + "/cart",
		Metadata:   meta,
	})
	if err != nil {
		return "", mapGatewayError(err)
	}

	// 3) スナップショットを保存。後のOrderMaterializerはこれを正とする
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		snapItems := make([]model.CheckoutSnapshotItem, 0, len(lines))
		for _, l := range lines {
			snapItems = append(snapItems, model.CheckoutSnapshotItem{
				VariantID:      l.variantID,
				Name:           l.name,
				UnitPriceCents: l.unitPriceCents,
				Quantity:       l.quantity,
				ImageURL:       l.imageURL,
			})
		}

		_, err := r.Snapshots().Create(ctx, model.CheckoutSnapshot{
			CartID:     cartID,
			SessionID:  sess.ID,
			TotalCents: totalCents,
			CreatedAt:  u.now(),
		}, snapItems)
		if errors.Is(err, repo.ErrDuplicate) {
			// 同じセッションで二重に呼ばれた。既存のスナップショットが正
			return nil
		}
		return err
	})
	if err != nil {
		return "", err
	}

	return sess.URL, nil
}

func (u *CheckoutUsecase) ownsCart(ctx context.Context, r repo.TxRepos, cart model.Cart, ident model.Identity) bool {
	if ident.IsAuthenticated() {
		return cart.UserID != nil && *cart.UserID == *ident.UserID
	}
	if ident.GuestToken == "" {
		return false
	}

	g, err := r.Guests().FindByToken(ctx, ident.GuestToken)
	if err != nil {
		return false
	}
	return cart.GuestID != nil && *cart.GuestID == g.ID
}

// 相対パスの画像URLを絶対URLへ。ゲートウェイは相対パスを解決できない。
func (u *CheckoutUsecase) absoluteImageURL(raw string) string {
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return raw
	}
	if strings.HasPrefix(raw, "/static/") {
		return u.appURL + "/api" + raw
	}
	if strings.HasPrefix(raw, "/") {
		return u.appURL + raw
	}
	return u.appURL + "/" + raw
}

// ゲートウェイのエラー種別をユーザーへ見せられるエラーに変換
func mapGatewayError(err error) error {
	switch {
	case errors.Is(err, payment.ErrBadPricing):
		return ErrCheckoutPricing
	case errors.Is(err, payment.ErrBadConfig):
		return ErrCheckoutConfig
	case errors.Is(err, payment.ErrBadImageURL):
		return ErrCheckoutImage
	}
	return fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
}
