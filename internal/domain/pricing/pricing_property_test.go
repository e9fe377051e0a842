package pricing

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
)

func zipLines(prices []int64, qtys []int64) []Line {
	n := len(prices)
	if len(qtys) < n {
		n = len(qtys)
	}
	lines := make([]Line, 0, n)
	for i := 0; i < n; i++ {
		lines = append(lines, Line{UnitPrice: prices[i], Quantity: qtys[i]})
	}
	return lines
}

func bpRate(bp int) decimal.Decimal {
	return decimal.New(int64(bp), -4)
}

func TestBreakdownProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("Calculate is deterministic", prop.ForAll(
		func(prices []int64, qtys []int64, scBP, taxBP int) bool {
			lines := zipLines(prices, qtys)
			r := Rates{ServiceCharge: bpRate(scBP), Tax: bpRate(taxBP)}
			a := Calculate(lines, r)
			b := Calculate(lines, r)
			return a.Subtotal == b.Subtotal &&
				a.ServiceCharge == b.ServiceCharge &&
				a.Tax == b.Tax &&
				a.Total == b.Total &&
				a.ServiceChargeRate.Equal(b.ServiceChargeRate) &&
				a.TaxRate.Equal(b.TaxRate)
		},
		gen.SliceOf(gen.Int64Range(0, 1_000_000)),
		gen.SliceOf(gen.Int64Range(1, 50)),
		gen.IntRange(0, 3000),
		gen.IntRange(0, 3000),
	))

	properties.Property("tax is computed on subtotal + service charge", prop.ForAll(
		func(prices []int64, qtys []int64, scBP, taxBP int) bool {
			lines := zipLines(prices, qtys)
			r := Rates{ServiceCharge: bpRate(scBP), Tax: bpRate(taxBP)}
			b := Calculate(lines, r)
			want := decimal.NewFromInt(b.Subtotal + b.ServiceCharge).Mul(r.Tax).Round(0).IntPart()
			return b.Tax == want && b.Total == b.Subtotal+b.ServiceCharge+b.Tax
		},
		gen.SliceOf(gen.Int64Range(0, 1_000_000)),
		gen.SliceOf(gen.Int64Range(1, 50)),
		gen.IntRange(0, 3000),
		gen.IntRange(0, 3000),
	))

	properties.Property("subtotal is the exact sum of price x quantity", prop.ForAll(
		func(prices []int64, qtys []int64) bool {
			lines := zipLines(prices, qtys)
			var want int64
			for _, l := range lines {
				want += l.UnitPrice * l.Quantity
			}
			return Subtotal(lines) == want
		},
		gen.SliceOf(gen.Int64Range(0, 1_000_000)),
		gen.SliceOf(gen.Int64Range(1, 50)),
	))

	properties.TestingRun(t)
}
