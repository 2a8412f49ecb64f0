package handler

import (
	"net/http"

	"app/internal/config"
	"app/internal/middleware"
	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /checkoutのHTTP
type CheckoutHandler struct {
	uc  *usecase.CheckoutUsecase
	cfg config.Config
}

func NewCheckoutHandler(uc *usecase.CheckoutUsecase, cfg config.Config) *CheckoutHandler {
	return &CheckoutHandler{uc: uc, cfg: cfg}
}

type CheckoutRequest struct {
	CartID int64 `json:"cart_id"`
}

type CheckoutResponse struct {
	URL string `json:"url"`
}

func (h *CheckoutHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/checkout")
	g.Use(middleware.Identity(h.cfg))

	g.POST("", h.begin)
}

// begin はチェックアウト開始。決済画面のリダイレクトURLを返す。
func (h *CheckoutHandler) begin(c echo.Context) error {
	ident := middleware.IdentityFrom(c)

	var req CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	url, err := h.uc.BeginCheckout(c.Request().Context(), ident, req.CartID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, CheckoutResponse{URL: url})
}
