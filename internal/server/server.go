package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"tableorder/internal/config"
	"tableorder/internal/handler"
	"tableorder/internal/logger"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

const shutdownTimeout = 10 * time.Second

type Handlers struct {
	Session *handler.SessionHandler
	Menu    *handler.MenuHandler
	Order   *handler.OrderHandler
	Station *handler.StationHandler
	Payment *handler.PaymentHandler
	Admin   *handler.AdminOrderHandler
}

// New は共通ミドルウェアとルートを載せた echo を返す
func New(cfg config.Config, log *logger.Logger, h Handlers) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.RequestID())
	e.Use(requestIDToContext)
	e.Use(echomw.RecoverWithConfig(echomw.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			log.Error("panic", requestID(c), "recovered from panic", err)
			return err
		},
	}))
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				log.Error("http_request", v.RequestID, "request failed", v.Error, attrs...)
				return nil
			}
			log.Info("http_request", v.RequestID, "request handled", attrs...)
			return nil
		},
	}))
	if cfg.RequestTimeout > 0 {
		e.Use(echomw.ContextTimeoutWithConfig(echomw.ContextTimeoutConfig{Timeout: cfg.RequestTimeout}))
	}

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	RegisterRoutes(e, cfg, h)
	return e
}

// Run はctxが終わるまで待ち、受付中のリクエストを捌いてから止める
func Run(ctx context.Context, e *echo.Echo, addr string, log *logger.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info("server_start", "", "listening", slog.String("addr", addr))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	log.Info("server_stop", "", "shutting down")
	return e.Shutdown(shutdownCtx)
}

// 注文確定の連打対策（IP単位）
func orderRateLimiter(perSecond float64) echo.MiddlewareFunc {
	store := echomw.NewRateLimiterMemoryStoreWithConfig(echomw.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(perSecond),
		Burst:     int(perSecond*2) + 1,
		ExpiresIn: 3 * time.Minute,
	})
	return echomw.RateLimiterWithConfig(echomw.RateLimiterConfig{
		Store: store,
		DenyHandler: func(c echo.Context, _ string, _ error) error {
			return c.JSON(http.StatusTooManyRequests, handler.ErrorResponse{Error: "too many requests", Code: "rate_limited"})
		},
		ErrorHandler: func(c echo.Context, _ error) error {
			return c.JSON(http.StatusForbidden, handler.ErrorResponse{Error: "forbidden", Code: "forbidden"})
		},
	})
}

func requestID(c echo.Context) string {
	return c.Response().Header().Get(echo.HeaderXRequestID)
}

// usecase のログにも同じリクエストIDが出るようにする
func requestIDToContext(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if id := requestID(c); id != "" {
			c.SetRequest(c.Request().WithContext(logger.WithRequestID(c.Request().Context(), id)))
		}
		return next(c)
	}
}
