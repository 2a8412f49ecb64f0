package payment

import (
	"context"
	"errors"
)

// ゲートウェイ側の失敗を種類で区別する。
// usecase側でユーザー向けメッセージに変換できるよう別のerrorにしておく。
var (
	// 認証・設定ミス（APIキー不正など）
	ErrBadConfig = errors.New("payment gateway misconfigured")
	// 価格データ不正
	ErrBadPricing = errors.New("payment gateway rejected pricing")
	// 画像URL不正
	ErrBadImageURL = errors.New("payment gateway rejected image url")
	// 署名検証NG
	ErrInvalidSignature = errors.New("invalid webhook signature")
	// セッションが見つからない
	ErrSessionNotFound = errors.New("checkout session not found")
)

// チェックアウトセッションの明細1行。金額はセント。
type LineItem struct {
	Name            string
	UnitAmountCents int64
	Quantity        int64
	ImageURL        string
}

type CreateSessionInput struct {
	Items      []LineItem
	SuccessURL string
	CancelURL  string
	// 非同期の確認イベントをカートに結びつける唯一の経路
	Metadata map[string]string
}

type Session struct {
	ID  string
	URL string
}

// RetrieveSessionの結果。Paidは決済完了済みか。
type SessionStatus struct {
	ID              string
	Paid            bool
	PaymentIntentID string
	Metadata        map[string]string
}

// webhookイベント（署名検証済み）
type Event struct {
	Type      string
	SessionID string
}

// checkout.session.completed だけが注文を作る
const EventTypeCheckoutCompleted = "checkout.session.completed"

// 決済ゲートウェイの利用側インターフェース。実装はinfra/stripegw。
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, in CreateSessionInput) (Session, error)
	RetrieveSession(ctx context.Context, sessionID string) (SessionStatus, error)
}

// webhookペイロードの署名検証
type EventVerifier interface {
	VerifyEvent(payload []byte, signature string) (Event, error)
}
