package handler

import (
	"net/http"

	"tableorder/internal/middleware"
	"tableorder/internal/usecase"

	"github.com/labstack/echo/v4"
)

type ErrorResponse struct {
	Error       string               `json:"error"`
	Code        string               `json:"code"`
	StockErrors []usecase.StockError `json:"stock_errors,omitempty"`
}

func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	if he, ok := usecase.AsHTTPError(err); ok {
		return c.JSON(he.Status, ErrorResponse{Error: he.Message, Code: he.Code, StockErrors: he.StockErrors})
	}

	//500
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error", Code: usecase.CodeInternal})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg, Code: usecase.CodeValidation})
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Code: usecase.CodeUnauthorized})
}

// JWTのスタッフを監査ログ用の操作者にする
func actorFromContext(c echo.Context) (usecase.Actor, bool) {
	id, role, ok := middleware.StaffFromContext(c)
	if !ok {
		return usecase.Actor{}, false
	}
	return usecase.Actor{Role: string(role), ID: id}, true
}
