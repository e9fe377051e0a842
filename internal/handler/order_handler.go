package handler

import (
	"net/http"
	"strconv"
	"strings"

	"tableorder/internal/config"
	"tableorder/internal/domain/model"
	"tableorder/internal/middleware"
	"tableorder/internal/usecase"

	"github.com/labstack/echo/v4"
)

const (
	HeaderSessionToken   = "X-Session-Token"
	HeaderIdempotencyKey = "Idempotency-Key"
)

type OrderHandler struct {
	orders  *usecase.OrderUsecase
	station *usecase.StationUsecase
	cashier *usecase.CashierUsecase
}

func NewOrderHandler(orders *usecase.OrderUsecase, station *usecase.StationUsecase, cashier *usecase.CashierUsecase) *OrderHandler {
	return &OrderHandler{orders: orders, station: station, cashier: cashier}
}

// placeMW は POST /orders だけに掛けるミドルウェア（レート制限など）
func (h *OrderHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, placeMW ...echo.MiddlewareFunc) {
	g := e.Group("/orders")

	g.POST("", h.create, placeMW...)
	g.GET("/:id", h.detail, middleware.OptionalAuthJWT(cfg))

	auth := middleware.AuthJWT(cfg)
	g.PATCH("/:id/items/:itemId/status", h.setItemStatus,
		auth, middleware.RoleGuard(model.RoleKitchen, model.RoleBar, model.RolePastry))
	g.PATCH("/:id/validate-payment", h.validatePayment, auth, middleware.RoleGuard(model.RoleCashier))
	g.PATCH("/:id/complete", h.complete, auth, middleware.RoleGuard(model.RoleCashier))
}

func (h *OrderHandler) create(c echo.Context) error {
	var req usecase.PlaceOrderInput
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.SessionToken == "" {
		req.SessionToken = c.Request().Header.Get(HeaderSessionToken)
	}

	//二重送信防止キーはヘッダーから受け取る（bodyには入れない）
	req.IdempotencyKey = strings.TrimSpace(c.Request().Header.Get(HeaderIdempotencyKey))

	out, err := h.orders.PlaceOrder(c.Request().Context(), req)
	if err != nil {
		return writeError(c, err)
	}

	if out.Replayed {
		return c.JSON(http.StatusOK, out)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *OrderHandler) detail(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return badRequest(c, "invalid id")
	}

	access := usecase.OrderAccess{SessionToken: c.Request().Header.Get(HeaderSessionToken)}
	if _, _, ok := middleware.StaffFromContext(c); ok {
		access.Staff = true
	} else if access.SessionToken == "" {
		return unauthorized(c)
	}

	out, err := h.orders.GetOrder(c.Request().Context(), id, access)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) setItemStatus(c echo.Context) error {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return badRequest(c, "invalid id")
	}
	itemID, err := strconv.ParseInt(c.Param("itemId"), 10, 64)
	if err != nil {
		return badRequest(c, "invalid item id")
	}

	var req usecase.SetItemStatusInput
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	actor, ok := actorFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	//adminは X-Station で対象ステーションを指定する
	station, ok := middleware.StationFromRole(c)
	if !ok {
		return badRequest(c, "station required")
	}

	out, err := h.station.SetItemStatus(c.Request().Context(), actor, station, orderID, itemID, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) validatePayment(c echo.Context) error {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return badRequest(c, "invalid id")
	}
	actor, ok := actorFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	out, err := h.cashier.ValidatePayment(c.Request().Context(), actor, orderID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) complete(c echo.Context) error {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return badRequest(c, "invalid id")
	}
	actor, ok := actorFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	out, err := h.cashier.Complete(c.Request().Context(), actor, orderID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
