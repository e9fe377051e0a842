package middleware

import (
	"errors"
	"net/http"
	"strings"

	"tableorder/internal/config"
	"tableorder/internal/domain/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const (
	CtxStaffIDKey   = "staff_id"   // string
	CtxStaffRoleKey = "staff_role" // model.Role
)

var errUnauthorized = errors.New("unauthorized")

// bearerAuth用のJWT検証ミドルウェア。
func AuthJWT(cfg config.Config) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			//Authorizationヘッダを取得
			authz := c.Request().Header.Get("Authorization")
			if authz == "" {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized", "unauthorized"))
			}
			if err := authenticate(c, authz, cfg.JWTSecret); err != nil {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized", "unauthorized"))
			}
			return next(c)
		}
	}
}

// ヘッダがあれば検証し、なければそのまま通す（客とスタッフの両方が使うAPI用）
func OptionalAuthJWT(cfg config.Config) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authz := c.Request().Header.Get("Authorization")
			if authz == "" {
				return next(c)
			}
			if err := authenticate(c, authz, cfg.JWTSecret); err != nil {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized", "unauthorized"))
			}
			return next(c)
		}
	}
}

func authenticate(c echo.Context, authz, secret string) error {
	//Bearer形式か確認してtokenを抜く
	parts := strings.SplitN(authz, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return errUnauthorized
	}
	rawToken := strings.TrimSpace(parts[1])
	if rawToken == "" {
		return errUnauthorized
	}

	//JWTをパースして検証する
	token, err := jwt.Parse(rawToken, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || token == nil || !token.Valid {
		return errUnauthorized
	}

	//claimsを取り出す
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return errUnauthorized
	}

	staffID, err := claims.GetSubject()
	if err != nil || strings.TrimSpace(staffID) == "" {
		return errUnauthorized
	}

	//roleを取り出す（kitchen / bar / pastry / cashier / admin）
	rawRole, _ := claims["role"].(string)
	role := model.Role(rawRole)
	if !role.Valid() {
		return errUnauthorized
	}

	//contextへ保存
	c.Set(CtxStaffIDKey, staffID)
	c.Set(CtxStaffRoleKey, role)
	return nil
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func errorJSON(msg, code string) errorResponse {
	return errorResponse{Error: msg, Code: code}
}

// AuthJWT / OptionalAuthJWT が入れた値
func StaffFromContext(c echo.Context) (string, model.Role, bool) {
	id, _ := c.Get(CtxStaffIDKey).(string)
	role, _ := c.Get(CtxStaffRoleKey).(model.Role)
	if id == "" || role == "" {
		return "", "", false
	}
	return id, role, true
}
