package handler

import (
	"net/http"

	"tableorder/internal/config"
	"tableorder/internal/domain/model"
	"tableorder/internal/middleware"
	"tableorder/internal/usecase"

	"github.com/labstack/echo/v4"
)

// ステーション画面とレジ画面のポーリング先
type StationHandler struct {
	station *usecase.StationUsecase
	cashier *usecase.CashierUsecase
}

func NewStationHandler(station *usecase.StationUsecase, cashier *usecase.CashierUsecase) *StationHandler {
	return &StationHandler{station: station, cashier: cashier}
}

func (h *StationHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	e.GET("/stations/:type/orders", h.stationOrders, middleware.AuthJWT(cfg), middleware.StationGuard("type"))
	e.GET("/cashier/orders", h.cashierOrders, middleware.AuthJWT(cfg), middleware.RoleGuard(model.RoleCashier))
}

func (h *StationHandler) stationOrders(c echo.Context) error {
	st, _ := c.Get(middleware.CtxStationKey).(model.Station)

	out, err := h.station.ListOrders(c.Request().Context(), st, c.QueryParam("status"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *StationHandler) cashierOrders(c echo.Context) error {
	out, err := h.cashier.List(c.Request().Context(), c.QueryParam("status"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
