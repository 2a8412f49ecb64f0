package handler

import (
	"errors"
	"io"
	"net/http"

	"app/internal/payment"
	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /webhooksのHTTP。決済ゲートウェイからの非同期通知を受ける。
type WebhookHandler struct {
	verifier payment.EventVerifier
	orderUC  *usecase.OrderUsecase
}

func NewWebhookHandler(verifier payment.EventVerifier, orderUC *usecase.OrderUsecase) *WebhookHandler {
	return &WebhookHandler{verifier: verifier, orderUC: orderUC}
}

type WebhookResponse struct {
	Received bool  `json:"received"`
	OrderID  int64 `json:"order_id,omitempty"`
}

// 署名検証があるのでIdentityミドルウェアは通さない
func (h *WebhookHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/webhooks/stripe", h.stripe)
}

func (h *WebhookHandler) stripe(c echo.Context) error {
	//署名は生のbodyに対して検証するので、bindせずに読む
	payload, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	sig := c.Request().Header.Get("Stripe-Signature")
	ev, err := h.verifier.VerifyEvent(payload, sig)
	if err != nil {
		if errors.Is(err, payment.ErrInvalidSignature) {
			return writeError(c, usecase.ErrInvalidSignature)
		}
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid event"})
	}

	//注文を作るのは決済完了イベントだけ。他は受領だけ返す
	if ev.Type != payment.EventTypeCheckoutCompleted {
		return c.JSON(http.StatusOK, WebhookResponse{Received: true})
	}

	orderID, err := h.orderUC.OnPaymentConfirmed(c.Request().Context(), ev.SessionID)
	if err != nil {
		// 5xxを返すとゲートウェイが再送してくる。業務的にNGな通知は200以外でも
		// 再送で直らないので、そのままエラー変換に任せる
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, WebhookResponse{Received: true, OrderID: orderID})
}
