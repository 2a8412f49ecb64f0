package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"app/internal/config"
	"app/internal/domain/model"
	"app/internal/middleware"
	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// usecaseの型付きエラーをHTTPステータスへ変換する。
// ここに無いエラーは全部500（詳細はクライアントに見せない）。
func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}

	status := http.StatusInternalServerError
	msg := "internal error"

	switch {
	case errors.Is(err, usecase.ErrUnauthorized):
		status, msg = http.StatusUnauthorized, err.Error()
	case errors.Is(err, usecase.ErrInvalidQuantity),
		errors.Is(err, usecase.ErrEmptyCart),
		errors.Is(err, usecase.ErrMissingMetadata),
		errors.Is(err, usecase.ErrInvalidSignature):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, usecase.ErrVariantNotFound),
		errors.Is(err, usecase.ErrItemNotFound),
		errors.Is(err, usecase.ErrCartNotFound),
		errors.Is(err, usecase.ErrOrderNotFound):
		status, msg = http.StatusNotFound, err.Error()
	case errors.Is(err, usecase.ErrInsufficientStock),
		errors.Is(err, usecase.ErrInvalidStatusChange):
		status, msg = http.StatusConflict, err.Error()
	case errors.Is(err, usecase.ErrPaymentNotCompleted):
		status, msg = http.StatusPaymentRequired, err.Error()
	case errors.Is(err, usecase.ErrCheckoutPricing),
		errors.Is(err, usecase.ErrCheckoutConfig),
		errors.Is(err, usecase.ErrCheckoutImage):
		status, msg = http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, usecase.ErrGatewayUnavailable):
		status, msg = http.StatusBadGateway, usecase.ErrGatewayUnavailable.Error()
	}

	return c.JSON(status, ErrorResponse{Error: msg})
}

// ゲストトークンを新規発行したらcookieで返す。TTLはゲストレコードと同じ。
func setGuestCookie(c echo.Context, cfg config.Config, token string) {
	if token == "" {
		return
	}
	c.SetCookie(&http.Cookie{
		Name:     middleware.GuestCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(model.GuestSessionTTL / time.Second),
		HttpOnly: true,
		Secure:   cfg.GoEnv == "prod",
		SameSite: http.SameSiteLaxMode,
	})
}

// /cartのHTTP
type CartHandler struct {
	uc      *usecase.CartUsecase
	mergeUC *usecase.MergeUsecase
	cfg     config.Config
}

// DI
func NewCartHandler(uc *usecase.CartUsecase, mergeUC *usecase.MergeUsecase, cfg config.Config) *CartHandler {
	return &CartHandler{uc: uc, mergeUC: mergeUC, cfg: cfg}
}

type AddItemRequest struct {
	VariantID int64 `json:"variant_id"`
	Quantity  int64 `json:"quantity"`
}

type UpdateQuantityRequest struct {
	Quantity int64 `json:"quantity"`
}

// /cart 配下を登録
func (h *CartHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/cart")
	g.Use(middleware.Identity(h.cfg))

	g.GET("", h.getCart)
	g.POST("/items", h.addItem)
	g.PATCH("/items/:id", h.updateQuantity)
	g.DELETE("/items/:id", h.removeItem)
	g.DELETE("", h.clearCart)
	g.POST("/merge", h.merge)
}

func (h *CartHandler) getCart(c echo.Context) error {
	ident := middleware.IdentityFrom(c)

	out, minted, err := h.uc.GetCart(c.Request().Context(), ident)
	if err != nil {
		return writeError(c, err)
	}

	setGuestCookie(c, h.cfg, minted)
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) addItem(c echo.Context) error {
	ident := middleware.IdentityFrom(c)

	var req AddItemRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, minted, err := h.uc.AddItem(c.Request().Context(), ident, usecase.AddItemInput{
		VariantID: req.VariantID,
		Quantity:  req.Quantity,
	})
	if err != nil {
		return writeError(c, err)
	}

	setGuestCookie(c, h.cfg, minted)
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) updateQuantity(c echo.Context) error {
	ident := middleware.IdentityFrom(c)

	itemID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	var req UpdateQuantityRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, minted, err := h.uc.UpdateQuantity(c.Request().Context(), ident, itemID, req.Quantity)
	if err != nil {
		return writeError(c, err)
	}

	setGuestCookie(c, h.cfg, minted)
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) removeItem(c echo.Context) error {
	ident := middleware.IdentityFrom(c)

	itemID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	out, minted, err := h.uc.RemoveItem(c.Request().Context(), ident, itemID)
	if err != nil {
		return writeError(c, err)
	}

	setGuestCookie(c, h.cfg, minted)
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) clearCart(c echo.Context) error {
	ident := middleware.IdentityFrom(c)

	out, minted, err := h.uc.ClearCart(c.Request().Context(), ident)
	if err != nil {
		return writeError(c, err)
	}

	setGuestCookie(c, h.cfg, minted)
	return c.JSON(http.StatusOK, out)
}

// merge はログイン直後に呼ぶ。ゲストカートをユーザーカートへ合流させる。
// ゲストトークンはcookieから取る（ログイン済みなのでIdentityはユーザー側になっている）。
func (h *CartHandler) merge(c echo.Context) error {
	ident := middleware.IdentityFrom(c)
	if !ident.IsAuthenticated() {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	guestToken := ""
	if ck, err := c.Cookie(middleware.GuestCookieName); err == nil {
		guestToken = ck.Value
	}

	if err := h.mergeUC.MergeGuestIntoUser(c.Request().Context(), guestToken, *ident.UserID); err != nil {
		return writeError(c, err)
	}

	//合流済みのゲストcookieは消す
	c.SetCookie(&http.Cookie{
		Name:     middleware.GuestCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.GoEnv == "prod",
		SameSite: http.SameSiteLaxMode,
	})

	out, _, err := h.uc.GetCart(c.Request().Context(), ident)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
