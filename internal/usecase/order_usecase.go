package usecase

import (
	"context"
	"errors"
	"strconv"
	"time"

	"app/internal/domain/model"
	"app/internal/payment"
	repo "app/internal/repository"
)

// OrderUsecase は決済完了の通知から注文を確定し、照会と状態遷移を担う。
type OrderUsecase struct {
	tx               repo.TransactionManager
	gateway          payment.Gateway
	clearCartOnOrder bool
	now              func() time.Time
}

func NewOrderUsecase(tx repo.TransactionManager, gateway payment.Gateway, clearCartOnOrder bool, now func() time.Time) *OrderUsecase {
	return &OrderUsecase{
		tx:               tx,
		gateway:          gateway,
		clearCartOnOrder: clearCartOnOrder,
		now:              now,
	}
}

type OrderItemResponse struct {
	VariantID       int64  `json:"variantId"`
	Name            string `json:"name"`
	PriceAtPurchase string `json:"priceAtPurchase"`
	Quantity        int64  `json:"quantity"`
}

type PaymentResponse struct {
	Method        string `json:"method"`
	Status        string `json:"status"`
	TransactionID string `json:"transactionId"`
}

type OrderResponse struct {
	ID          int64               `json:"id"`
	Status      string              `json:"status"`
	TotalAmount string              `json:"totalAmount"`
	CreatedAt   time.Time           `json:"createdAt"`
	Items       []OrderItemResponse `json:"items"`
	Payment     *PaymentResponse    `json:"payment,omitempty"`
}

// OnPaymentConfirmed はWebhook起点の注文確定。
// 同じセッションで何度呼ばれても注文は1件だけ作られ、2回目以降は
// 既存注文のIDを返して正常終了する。ゲートは payments.transaction_id の
// unique制約で、アプリ側のロックには頼らない。
func (u *OrderUsecase) OnPaymentConfirmed(ctx context.Context, sessionID string) (int64, error) {
	if sessionID == "" {
		return 0, ErrPaymentNotCompleted
	}

	// Webhookの中身は信用せず、ゲートウェイへ取りに行く
	st, err := u.gateway.RetrieveSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, payment.ErrSessionNotFound) {
			return 0, ErrPaymentNotCompleted
		}
		return 0, mapGatewayError(err)
	}
	if !st.Paid || st.PaymentIntentID == "" {
		return 0, ErrPaymentNotCompleted
	}

	cartIDStr, ok := st.Metadata["cartId"]
	if !ok {
		return 0, ErrMissingMetadata
	}
	cartID, err := strconv.ParseInt(cartIDStr, 10, 64)
	if err != nil || cartID <= 0 {
		return 0, ErrMissingMetadata
	}
	totalStr, ok := st.Metadata["totalAmount"]
	if !ok {
		return 0, ErrMissingMetadata
	}
	totalCents, err := strconv.ParseInt(totalStr, 10, 64)
	if err != nil || totalCents < 0 {
		return 0, ErrMissingMetadata
	}

	var userID *int64
	if s, ok := st.Metadata["userId"]; ok && s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, ErrMissingMetadata
		}
		userID = &v
	}

	orderID, err := u.materialize(ctx, sessionID, st.PaymentIntentID, cartID, userID, totalCents)
	if err == nil {
		return orderID, nil
	}
	if !errors.Is(err, repo.ErrDuplicate) {
		return 0, err
	}

	// 同時配送との競争に負けた。トランザクションは巻き戻っているので、
	// 別トランザクションで勝者の注文を読み直す
	var winner model.Payment
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		p, err := r.Payments().FindByTransactionID(ctx, st.PaymentIntentID)
		if err != nil {
			return err
		}
		winner = p
		return nil
	})
	if err != nil {
		return 0, err
	}
	return winner.OrderID, nil
}

func (u *OrderUsecase) materialize(ctx context.Context, sessionID, intentID string, cartID int64, userID *int64, totalCents int64) (int64, error) {
	var orderID int64
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		// 先に既存チェック。ほとんどの再送はここで止まる
		if p, err := r.Payments().FindByTransactionID(ctx, intentID); err == nil {
			orderID = p.OrderID
			return nil
		} else if !errors.Is(err, repo.ErrNotFound) {
			return err
		}

		items, err := u.orderLines(ctx, r, sessionID, cartID)
		if err != nil {
			return err
		}

		id, err := r.Orders().Create(ctx, model.Order{
			UserID:     userID,
			Status:     model.OrderStatusPaid,
			TotalCents: totalCents,
			CreatedAt:  u.now(),
		})
		if err != nil {
			return err
		}
		if err := r.OrderItems().CreateBulk(ctx, id, items); err != nil {
			return err
		}

		// 冪等ゲート本体。競争相手が先に入れていればErrDuplicateで巻き戻る
		if _, err := r.Payments().Create(ctx, model.Payment{
			OrderID:       id,
			Method:        "stripe",
			Status:        model.PaymentStatusCompleted,
			TransactionID: intentID,
			PaidAt:        u.now(),
		}); err != nil {
			return err
		}

		if u.clearCartOnOrder {
			if err := r.CartItems().DeleteByCartID(ctx, cartID); err != nil {
				return err
			}
		}

		orderID = id
		return nil
	})
	return orderID, err
}

// 注文明細の元ネタ。チェックアウト時のスナップショットを正とし、
// 無い場合（古いセッション等）のみ現在のカートから組み立てる。
func (u *OrderUsecase) orderLines(ctx context.Context, r repo.TxRepos, sessionID string, cartID int64) ([]model.OrderItem, error) {
	_, snapItems, err := r.Snapshots().FindBySessionID(ctx, sessionID)
	if err == nil && len(snapItems) > 0 {
		items := make([]model.OrderItem, 0, len(snapItems))
		for _, si := range snapItems {
			items = append(items, model.OrderItem{
				VariantID:            si.VariantID,
				NameSnapshot:         si.Name,
				PriceAtPurchaseCents: si.UnitPriceCents,
				Quantity:             si.Quantity,
			})
		}
		return items, nil
	}
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}

	cartItems, err := r.CartItems().ListByCartID(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if len(cartItems) == 0 {
		return nil, ErrEmptyCart
	}

	ids := make([]int64, 0, len(cartItems))
	for _, it := range cartItems {
		ids = append(ids, it.VariantID)
	}
	variants, err := r.Variants().FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	items := make([]model.OrderItem, 0, len(cartItems))
	for _, it := range cartItems {
		v, ok := variants[it.VariantID]
		if !ok {
			return nil, ErrVariantNotFound
		}
		items = append(items, model.OrderItem{
			VariantID:            it.VariantID,
			NameSnapshot:         v.Name,
			PriceAtPurchaseCents: v.EffectivePriceCents(),
			Quantity:             it.Quantity,
		})
	}
	return items, nil
}

// GetOrder は注文の照会。金額はセント整数を"90.00"形式に直して返す。
func (u *OrderUsecase) GetOrder(ctx context.Context, orderID int64) (OrderResponse, error) {
	var res OrderResponse
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return ErrOrderNotFound
		}
		if err != nil {
			return err
		}

		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return err
		}

		res = OrderResponse{
			ID:          o.ID,
			Status:      string(o.Status),
			TotalAmount: model.CentsToDecimal(o.TotalCents),
			CreatedAt:   o.CreatedAt,
			Items:       make([]OrderItemResponse, 0, len(items)),
		}
		for _, it := range items {
			res.Items = append(res.Items, OrderItemResponse{
				VariantID:       it.VariantID,
				Name:            it.NameSnapshot,
				PriceAtPurchase: model.CentsToDecimal(it.PriceAtPurchaseCents),
				Quantity:        it.Quantity,
			})
		}

		p, err := r.Payments().FindByOrderID(ctx, orderID)
		if err == nil {
			res.Payment = &PaymentResponse{
				Method:        p.Method,
				Status:        string(p.Status),
				TransactionID: p.TransactionID,
			}
		} else if !errors.Is(err, repo.ErrNotFound) {
			return err
		}
		return nil
	})
	if err != nil {
		return OrderResponse{}, err
	}
	return res, nil
}

// GetOrderByCheckoutSession は成功画面用。セッションIDから注文を引く。
func (u *OrderUsecase) GetOrderByCheckoutSession(ctx context.Context, sessionID string) (OrderResponse, error) {
	if sessionID == "" {
		return OrderResponse{}, ErrOrderNotFound
	}

	st, err := u.gateway.RetrieveSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, payment.ErrSessionNotFound) {
			return OrderResponse{}, ErrOrderNotFound
		}
		return OrderResponse{}, mapGatewayError(err)
	}
	if st.PaymentIntentID == "" {
		return OrderResponse{}, ErrOrderNotFound
	}

	var orderID int64
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		p, err := r.Payments().FindByTransactionID(ctx, st.PaymentIntentID)
		if errors.Is(err, repo.ErrNotFound) {
			return ErrOrderNotFound
		}
		if err != nil {
			return err
		}
		orderID = p.OrderID
		return nil
	})
	if err != nil {
		return OrderResponse{}, err
	}
	return u.GetOrder(ctx, orderID)
}

// UpdateOrderStatus は運用向けの状態遷移。許可された遷移以外は拒否する。
func (u *OrderUsecase) UpdateOrderStatus(ctx context.Context, orderID int64, status model.OrderStatus) (OrderResponse, error) {
	if !status.Valid() {
		return OrderResponse{}, ErrInvalidStatusChange
	}

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return ErrOrderNotFound
		}
		if err != nil {
			return err
		}
		if !model.CanTransitionOrderStatus(o.Status, status) {
			return ErrInvalidStatusChange
		}
		return r.Orders().UpdateStatus(ctx, orderID, status)
	})
	if err != nil {
		return OrderResponse{}, err
	}
	return u.GetOrder(ctx, orderID)
}
