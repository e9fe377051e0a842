package usecase

import (
	"time"

	"tableorder/internal/domain/model"
	"tableorder/internal/domain/orderstate"

	"github.com/shopspring/decimal"
)

type TotalsOutput struct {
	Subtotal          int64           `json:"subtotal"`
	ServiceChargeRate decimal.Decimal `json:"service_charge_rate"`
	ServiceCharge     int64           `json:"service_charge"`
	TaxRate           decimal.Decimal `json:"tax_rate"`
	Tax               int64           `json:"tax"`
	Total             int64           `json:"total"`
}

type OrderItemOutput struct {
	ID       int64                 `json:"id"`
	MenuID   int64                 `json:"menu_id"`
	Name     string                `json:"name"`
	Category model.Category        `json:"category"`
	Quantity int64                 `json:"quantity"`
	Price    int64                 `json:"price"`
	Subtotal int64                 `json:"subtotal"`
	AddOns   []model.AddOnSnapshot `json:"add_ons"`
	Status   model.ItemStatus      `json:"status"`
	Notes    string                `json:"notes"`
}

type OrderOutput struct {
	ID            int64               `json:"id"`
	OrderNumber   string              `json:"order_number"`
	TableNumber   int                 `json:"table_number"`
	Status        model.OrderStatus   `json:"status"`
	PaymentMethod model.PaymentMethod `json:"payment_method"`
	PaymentStatus model.PaymentStatus `json:"payment_status"`
	Notes         string              `json:"notes"`
	Totals        TotalsOutput        `json:"totals"`
	Items         []OrderItemOutput   `json:"items"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
	PaidAt        *time.Time          `json:"paid_at,omitempty"`
	CompletedAt   *time.Time          `json:"completed_at,omitempty"`
}

func totalsOf(o model.Order) TotalsOutput {
	return TotalsOutput{
		Subtotal:          o.Subtotal,
		ServiceChargeRate: o.ServiceChargeRate,
		ServiceCharge:     o.ServiceChargeAmount,
		TaxRate:           o.TaxRate,
		Tax:               o.TaxAmount,
		Total:             o.TotalAmount,
	}
}

func toItemOutput(it model.OrderItem) OrderItemOutput {
	addOns := []model.AddOnSnapshot(it.AddOns)
	if addOns == nil {
		addOns = []model.AddOnSnapshot{}
	}
	return OrderItemOutput{
		ID:       it.ID,
		MenuID:   it.MenuItemID,
		Name:     it.Name,
		Category: it.Category,
		Quantity: it.Quantity,
		Price:    it.Price,
		Subtotal: it.Subtotal,
		AddOns:   addOns,
		Status:   it.Status,
		Notes:    it.Notes,
	}
}

// ステータスは保存値ではなく明細と支払いから出し直す
func toOrderOutput(o model.Order, items []model.OrderItem) OrderOutput {
	outItems := make([]OrderItemOutput, 0, len(items))
	for _, it := range items {
		outItems = append(outItems, toItemOutput(it))
	}

	return OrderOutput{
		ID:            o.ID,
		OrderNumber:   o.OrderNumber,
		TableNumber:   o.TableNumber,
		Status:        orderstate.Resolve(o, items),
		PaymentMethod: o.PaymentMethod,
		PaymentStatus: o.PaymentStatus,
		Notes:         o.Notes,
		Totals:        totalsOf(o),
		Items:         outItems,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
		PaidAt:        o.PaidAt,
		CompletedAt:   o.CompletedAt,
	}
}

// ステーション用：担当区分の明細だけを載せる（ステータスは全明細から）
func toStationOrderOutput(o model.Order, items []model.OrderItem, c model.Category) OrderOutput {
	out := toOrderOutput(o, items)
	own := make([]OrderItemOutput, 0, len(out.Items))
	for _, it := range out.Items {
		if it.Category == c {
			own = append(own, it)
		}
	}
	out.Items = own
	return out
}
