// Package app はユースケースとハンドラを組み立てて HTTP サーバにする。
package app

import (
	"time"

	"tableorder/internal/config"
	"tableorder/internal/domain/pricing"
	"tableorder/internal/handler"
	"tableorder/internal/infra/memory"
	"tableorder/internal/logger"
	repo "tableorder/internal/repository"
	"tableorder/internal/server"
	"tableorder/internal/usecase"
	"tableorder/internal/validator"

	"github.com/labstack/echo/v4"
)

const defaultSessionTTL = 3 * time.Hour

// 保存先ごとに差し替える部品
type Deps struct {
	Tx       repo.TransactionManager
	Menu     repo.MenuRepository
	Rates    repo.RateRepository
	Tables   repo.TableRepository
	Audit    repo.AuditLogRepository
	Sessions repo.SessionRepository
	Gateway  usecase.PaymentGateway
	IDs      usecase.IDGenerator
	Clock    usecase.Clock
}

// メモリ保存のときの部品
func MemoryDeps(s *memory.Store, sessions repo.SessionRepository, gateway usecase.PaymentGateway, ids usecase.IDGenerator, clock usecase.Clock) Deps {
	return Deps{
		Tx:       s,
		Menu:     s.Menu(),
		Rates:    s.Rates(),
		Tables:   s.Tables(),
		Audit:    s.AuditLogs(),
		Sessions: sessions,
		Gateway:  gateway,
		IDs:      ids,
		Clock:    clock,
	}
}

func NewServer(cfg config.Config, log *logger.Logger, d Deps) *echo.Echo {
	defaults := pricing.Rates{ServiceCharge: cfg.DefaultServiceChargeRate, Tax: cfg.DefaultTaxRate}
	if defaults.ServiceCharge.IsZero() && defaults.Tax.IsZero() {
		defaults = pricing.DefaultRates()
	}

	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}

	//Usecase生成
	sessionUC := usecase.NewSessionUsecase(d.Tables, d.Sessions, d.IDs, d.Clock, ttl)
	rateUC := usecase.NewRateUsecase(d.Rates, d.Audit, defaults, d.Clock)
	orderUC := usecase.NewOrderUsecase(d.Tx, validator.NewOrderValidator(), sessionUC, rateUC, d.Gateway, d.Clock, log)
	stationUC := usecase.NewStationUsecase(d.Tx, d.Clock)
	cashierUC := usecase.NewCashierUsecase(d.Tx, d.Clock)

	//Handler生成
	return server.New(cfg, log, server.Handlers{
		Session: handler.NewSessionHandler(sessionUC),
		Menu:    handler.NewMenuHandler(usecase.NewMenuUsecase(d.Menu), rateUC),
		Order:   handler.NewOrderHandler(orderUC, stationUC, cashierUC),
		Station: handler.NewStationHandler(stationUC, cashierUC),
		Payment: handler.NewPaymentHandler(usecase.NewPaymentUsecase(d.Tx, d.Gateway, d.Clock)),
		Admin:   handler.NewAdminOrderHandler(usecase.NewAdminOrderUsecase(d.Tx, d.Clock), rateUC, usecase.NewAuditUsecase(d.Audit)),
	})
}
