package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"tableorder/internal/config"
	"tableorder/internal/middleware"
	"tableorder/internal/usecase"

	"github.com/labstack/echo/v4"
)

type AdminOrderHandler struct {
	orders *usecase.AdminOrderUsecase
	rates  *usecase.RateUsecase
	audit  *usecase.AuditUsecase
}

func NewAdminOrderHandler(orders *usecase.AdminOrderUsecase, rates *usecase.RateUsecase, audit *usecase.AuditUsecase) *AdminOrderHandler {
	return &AdminOrderHandler{orders: orders, rates: rates, audit: audit}
}

func (h *AdminOrderHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	admin := e.Group("/admin")
	admin.Use(middleware.AuthJWT(cfg))
	admin.Use(middleware.RoleGuard())

	admin.PATCH("/orders/:id/reopen-payment", h.reopenPayment)
	admin.POST("/orders/archive", h.archive)
	admin.PUT("/settings/rates", h.updateRates)
	admin.GET("/audit-logs", h.auditLogs)
	admin.GET("/orders/:id/history", h.orderHistory)
}

func (h *AdminOrderHandler) reopenPayment(c echo.Context) error {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return badRequest(c, "invalid id")
	}

	// ★操作した管理者（監査ログ用）
	actor, ok := actorFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	out, err := h.orders.ReopenPayment(c.Request().Context(), actor, orderID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminOrderHandler) archive(c echo.Context) error {
	v := c.QueryParam("before")
	if v == "" {
		return badRequest(c, "before is required")
	}
	before, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return badRequest(c, "invalid before")
	}

	actor, ok := actorFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	out, err := h.orders.ArchiveBefore(c.Request().Context(), actor, before)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminOrderHandler) updateRates(c echo.Context) error {
	var req usecase.UpdateRatesInput
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	actor, ok := actorFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	out, err := h.rates.Update(c.Request().Context(), actor, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminOrderHandler) auditLogs(c echo.Context) error {
	in := usecase.ListAuditLogsInput{
		ActorRole:    c.QueryParam("actor_role"),
		ActorID:      c.QueryParam("actor_id"),
		ResourceType: c.QueryParam("resource_type"),
	}
	// action=CREATE_ORDER,COMPLETE_ORDER
	if v := c.QueryParam("action"); v != "" {
		in.Actions = strings.Split(v, ",")
	}
	if v := c.QueryParam("order_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return badRequest(c, "invalid order_id")
		}
		in.OrderID = &id
	}

	if v := c.QueryParam("resource_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return badRequest(c, "invalid resource_id")
		}
		in.ResourceID = &id
	}
	if v := c.QueryParam("from"); v != "" {
		tm, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return badRequest(c, "invalid from")
		}
		in.From = &tm
	}
	if v := c.QueryParam("to"); v != "" {
		tm, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return badRequest(c, "invalid to")
		}
		in.To = &tm
	}
	if v := c.QueryParam("limit"); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil {
			return badRequest(c, "invalid limit")
		}
		in.Limit = l
	}
	if v := c.QueryParam("offset"); v != "" {
		o, err := strconv.Atoi(v)
		if err != nil {
			return badRequest(c, "invalid offset")
		}
		in.Offset = o
	}

	out, err := h.audit.List(c.Request().Context(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminOrderHandler) orderHistory(c echo.Context) error {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return badRequest(c, "invalid id")
	}
	out, err := h.audit.OrderTrail(c.Request().Context(), orderID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
