package middleware

import (
	"net/http"

	"tableorder/internal/domain/model"

	"github.com/labstack/echo/v4"
)

const CtxStationKey = "station" // model.Station

// StationGuard はパスの :type とJWTのロールのステーションが一致するか確認する。
// 一致したステーションを context に入れる（admin はパスのステーションとして扱う）。
func StationGuard(param string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			_, role, ok := StaffFromContext(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized", "unauthorized"))
			}

			st, ok := model.ParseStation(c.Param(param))
			if !ok {
				return c.JSON(http.StatusNotFound, errorJSON("unknown station", "not_found"))
			}

			if role != model.RoleAdmin {
				own, isStation := role.Station()
				if !isStation || own != st {
					return c.JSON(http.StatusForbidden, errorJSON("forbidden", "forbidden"))
				}
			}

			c.Set(CtxStationKey, st)
			return next(c)
		}
	}
}

// ステーション系ロールはロールから、admin は X-Station ヘッダから決める
func StationFromRole(c echo.Context) (model.Station, bool) {
	_, role, ok := StaffFromContext(c)
	if !ok {
		return "", false
	}
	if st, ok := role.Station(); ok {
		return st, true
	}
	if role == model.RoleAdmin {
		return model.ParseStation(c.Request().Header.Get("X-Station"))
	}
	return "", false
}
