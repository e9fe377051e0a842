package middleware

import (
	"net/http"

	"tableorder/internal/domain/model"

	"github.com/labstack/echo/v4"
)

// contextに入っているroleが許可されたものかを確認します。
// admin はすべての画面を操作できる。
func RoleGuard(allowed ...model.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			_, role, ok := StaffFromContext(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized", "unauthorized"))
			}
			if role == model.RoleAdmin {
				return next(c)
			}
			for _, r := range allowed {
				if role == r {
					return next(c)
				}
			}
			return c.JSON(http.StatusForbidden, errorJSON("forbidden", "forbidden"))
		}
	}
}
