package usecase

import (
	"context"
	"net/http"

	"tableorder/internal/domain/model"
	"tableorder/internal/domain/pricing"
	repo "tableorder/internal/repository"

	"github.com/shopspring/decimal"
)

// 料率の上限（100%）
var maxRate = decimal.NewFromInt(1)

type RateUsecase struct {
	rates    repo.RateRepository
	audit    repo.AuditLogRepository
	defaults pricing.Rates
	clock    Clock
}

func NewRateUsecase(rates repo.RateRepository, audit repo.AuditLogRepository, defaults pricing.Rates, clock Clock) *RateUsecase {
	return &RateUsecase{rates: rates, audit: audit, defaults: defaults, clock: clock}
}

type UpdateRatesInput struct {
	ServiceChargeRate decimal.Decimal `json:"service_charge_rate"`
	TaxRate           decimal.Decimal `json:"tax_rate"`
}

// 未設定なら既定値
func (u *RateUsecase) Current(ctx context.Context) (pricing.Rates, error) {
	s, found, err := u.rates.Get(ctx)
	if err != nil {
		return pricing.Rates{}, err
	}
	if !found {
		return u.defaults, nil
	}
	return pricing.Rates{ServiceCharge: s.ServiceChargeRate, Tax: s.TaxRate}, nil
}

// 以降の注文にだけ効く（既存注文は作成時の料率のまま）
func (u *RateUsecase) Update(ctx context.Context, actor Actor, in UpdateRatesInput) (pricing.Rates, error) {
	next := pricing.Rates{ServiceCharge: in.ServiceChargeRate, Tax: in.TaxRate}
	if err := next.Validate(); err != nil {
		return pricing.Rates{}, NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if next.ServiceCharge.GreaterThan(maxRate) || next.Tax.GreaterThan(maxRate) {
		return pricing.Rates{}, NewHTTPError(http.StatusBadRequest, "rate must be <= 1")
	}

	before, err := u.Current(ctx)
	if err != nil {
		return pricing.Rates{}, dbError()
	}

	if err := u.rates.Save(ctx, model.RateSetting{ServiceChargeRate: next.ServiceCharge, TaxRate: next.Tax}); err != nil {
		return pricing.Rates{}, dbError()
	}
	if err := writeAudit(ctx, u.audit, actor, model.AuditActionUpdateRates, settingsTarget, before, next, u.clock.Now()); err != nil {
		return pricing.Rates{}, dbError()
	}
	return next, nil
}
