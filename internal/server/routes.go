package server

import (
	"tableorder/internal/config"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo, cfg config.Config, h Handlers) {
	var placeMW []echo.MiddlewareFunc
	if cfg.OrderRateLimit > 0 {
		placeMW = append(placeMW, orderRateLimiter(cfg.OrderRateLimit))
	}

	h.Session.RegisterRoutes(e)
	h.Menu.RegisterRoutes(e)
	h.Order.RegisterRoutes(e, cfg, placeMW...)
	h.Station.RegisterRoutes(e, cfg)
	h.Payment.RegisterRoutes(e)
	h.Admin.RegisterRoutes(e, cfg)
}
