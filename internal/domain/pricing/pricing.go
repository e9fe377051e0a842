// Package pricing は注文金額を最小通貨単位の整数で計算する。
//
// サービス料は小計に掛け、税は小計+サービス料に掛ける。
// 丸めはどの段階も1単位への四捨五入。
package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrNegativeRate  = errors.New("pricing: rate must be >= 0")
	ErrNegativePrice = errors.New("pricing: price must be >= 0")
	ErrQuantity      = errors.New("pricing: quantity must be >= 1")
)

// 注文の価格計算に使うサービス料率と税率
type Rates struct {
	ServiceCharge decimal.Decimal `json:"service_charge_rate"`
	Tax           decimal.Decimal `json:"tax_rate"`
}

// 設定値を読み込むまではこれを使う
func DefaultRates() Rates {
	return Rates{
		ServiceCharge: decimal.RequireFromString("0.07"),
		Tax:           decimal.RequireFromString("0.10"),
	}
}

func (r Rates) Validate() error {
	if r.ServiceCharge.IsNegative() || r.Tax.IsNegative() {
		return ErrNegativeRate
	}
	return nil
}

type AddOn struct {
	ID    int64 `json:"id"`
	Price int64 `json:"price"`
}

// 価格計算の1行。追加オプションは1個ごとに加算
type Line struct {
	UnitPrice int64   `json:"unit_price"`
	Quantity  int64   `json:"quantity"`
	AddOns    []AddOn `json:"add_ons,omitempty"`
}

// 追加オプション込みの単価
func (l Line) UnitTotal() int64 {
	total := l.UnitPrice
	for _, a := range l.AddOns {
		total += a.Price
	}
	return total
}

func (l Line) Amount() int64 {
	return l.UnitTotal() * l.Quantity
}

func ValidateLines(lines []Line) error {
	for i, l := range lines {
		if l.Quantity < 1 {
			return fmt.Errorf("line %d: %w", i, ErrQuantity)
		}
		if l.UnitPrice < 0 {
			return fmt.Errorf("line %d: %w", i, ErrNegativePrice)
		}
		for _, a := range l.AddOns {
			if a.Price < 0 {
				return fmt.Errorf("line %d add-on %d: %w", i, a.ID, ErrNegativePrice)
			}
		}
	}
	return nil
}

// レシート用の内訳（使った料率つき）
type Breakdown struct {
	Subtotal          int64           `json:"subtotal"`
	ServiceCharge     int64           `json:"service_charge"`
	TaxBase           int64           `json:"tax_base"`
	Tax               int64           `json:"tax"`
	Total             int64           `json:"total"`
	ServiceChargeRate decimal.Decimal `json:"service_charge_rate"`
	TaxRate           decimal.Decimal `json:"tax_rate"`
}

func Subtotal(lines []Line) int64 {
	var sum int64
	for _, l := range lines {
		sum += l.Amount()
	}
	return sum
}

func ServiceCharge(subtotal int64, rate decimal.Decimal) int64 {
	return applyRate(subtotal, rate)
}

func TaxBase(subtotal, serviceCharge int64) int64 {
	return subtotal + serviceCharge
}

func Tax(taxBase int64, rate decimal.Decimal) int64 {
	return applyRate(taxBase, rate)
}

func Total(taxBase, tax int64) int64 {
	return taxBase + tax
}

// Calculate は r で lines の内訳を出す
func Calculate(lines []Line, r Rates) Breakdown {
	subtotal := Subtotal(lines)
	sc := ServiceCharge(subtotal, r.ServiceCharge)
	base := TaxBase(subtotal, sc)
	tax := Tax(base, r.Tax)
	return Breakdown{
		Subtotal:          subtotal,
		ServiceCharge:     sc,
		TaxBase:           base,
		Tax:               tax,
		Total:             Total(base, tax),
		ServiceChargeRate: r.ServiceCharge,
		TaxRate:           r.Tax,
	}
}

// ここでは負にならないので Round(0) がそのまま四捨五入
func applyRate(amount int64, rate decimal.Decimal) int64 {
	return decimal.NewFromInt(amount).Mul(rate).Round(0).IntPart()
}
