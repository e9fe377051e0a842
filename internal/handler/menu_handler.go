package handler

import (
	"net/http"
	"strconv"

	"tableorder/internal/usecase"

	"github.com/labstack/echo/v4"
)

// 表示用の公開API（メニュー単品と料率）
type MenuHandler struct {
	menu  *usecase.MenuUsecase
	rates *usecase.RateUsecase
}

func NewMenuHandler(menu *usecase.MenuUsecase, rates *usecase.RateUsecase) *MenuHandler {
	return &MenuHandler{menu: menu, rates: rates}
}

func (h *MenuHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/menu/:id", h.detail)
	e.GET("/settings/rates", h.currentRates)
}

func (h *MenuHandler) detail(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return badRequest(c, "invalid id")
	}

	out, err := h.menu.GetMenuItem(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *MenuHandler) currentRates(c echo.Context) error {
	r, err := h.rates.Current(c.Request().Context())
	if err != nil {
		return writeError(c, usecase.NewHTTPError(http.StatusInternalServerError, "db error"))
	}
	return c.JSON(http.StatusOK, r)
}
