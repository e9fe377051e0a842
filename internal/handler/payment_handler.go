package handler

import (
	"io"
	"net/http"

	"tableorder/internal/infra/payment"
	"tableorder/internal/usecase"

	"github.com/labstack/echo/v4"
)

// 決済代行からのコールバック上限（署名検証前に読み切るため）
const maxCallbackBody = 64 << 10

type PaymentHandler struct {
	uc *usecase.PaymentUsecase
}

func NewPaymentHandler(uc *usecase.PaymentUsecase) *PaymentHandler {
	return &PaymentHandler{uc: uc}
}

func (h *PaymentHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/payments/callback", h.callback)
}

func (h *PaymentHandler) callback(c echo.Context) error {
	//署名は生のbodyに対して掛かっているので Bind は使わない
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxCallbackBody))
	if err != nil {
		return badRequest(c, "invalid body")
	}

	out, err := h.uc.ApplyCallback(c.Request().Context(), body, c.Request().Header.Get(payment.SignatureHeader))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
