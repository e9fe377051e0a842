package handler

import (
	"net/http"

	"tableorder/internal/usecase"

	"github.com/labstack/echo/v4"
)

// QRコードの読み取り結果からテーブルセッションを発行する
type SessionHandler struct {
	uc *usecase.SessionUsecase
}

func NewSessionHandler(uc *usecase.SessionUsecase) *SessionHandler {
	return &SessionHandler{uc: uc}
}

func (h *SessionHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/sessions", h.bind)
}

func (h *SessionHandler) bind(c echo.Context) error {
	var req usecase.BindSessionInput
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	out, err := h.uc.Bind(c.Request().Context(), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}
