package usecase

import "errors"

// コンポーネント境界で返す型付きエラー。
// storageやgatewayの生のエラーはここより外に出さない。
var (
	//401
	ErrUnauthorized = errors.New("unauthorized")

	//400 入力系
	ErrInvalidQuantity = errors.New("quantity must be greater than 0")
	ErrEmptyCart       = errors.New("cart is empty")
	ErrMissingMetadata = errors.New("missing cart information in session metadata")

	//404
	ErrVariantNotFound = errors.New("product variant not found")
	ErrItemNotFound    = errors.New("cart item not found")
	ErrCartNotFound    = errors.New("cart not found")
	ErrOrderNotFound   = errors.New("order not found")

	//409 業務系
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrInvalidStatusChange = errors.New("invalid order status change")

	//400 webhook署名NG（再試行させない）
	ErrInvalidSignature = errors.New("webhook signature verification failed")

	//402相当 未決済
	ErrPaymentNotCompleted = errors.New("payment not completed")

	// ゲートウェイ起因。ユーザーに見せられる粒度で分ける
	ErrCheckoutPricing = errors.New("product pricing error, refresh and try again")
	ErrCheckoutConfig  = errors.New("payment system configuration error, contact support")
	ErrCheckoutImage   = errors.New("product image configuration error, contact support")
	// 一時障害。呼び出し元がリトライしてよい
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
)
