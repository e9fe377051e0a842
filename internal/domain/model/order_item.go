package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// 明細ごとの調理ステータス
type ItemStatus string

const (
	ItemStatusPending ItemStatus = "Pending"
	ItemStatusDone    ItemStatus = "Done"
)

func (s ItemStatus) Valid() bool {
	return s == ItemStatusPending || s == ItemStatusDone
}

// 注文時点のトッピングのスナップショット
type AddOnSnapshot struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Price int64  `json:"price"`
}

type AddOnSnapshots []AddOnSnapshot

func (a AddOnSnapshots) Value() (driver.Value, error) {
	if len(a) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (a *AddOnSnapshots) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*a = nil
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return errors.New("add_ons: unsupported type")
	}
	if len(raw) == 0 {
		*a = nil
		return nil
	}
	return json.Unmarshal(raw, a)
}

// 注文明細。カートの行をコピーした不変レコード（Status以外）。
// Price はトッピング込みの単価、Subtotal = Price × Quantity。
type OrderItem struct {
	ID         int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID    int64          `gorm:"not null;index" json:"order_id"`
	MenuItemID int64          `gorm:"not null;index" json:"menu_id"`
	Name       string         `gorm:"type:varchar(255);not null" json:"name"`
	Category   Category       `gorm:"type:varchar(20);not null;index" json:"category"`
	Quantity   int64          `gorm:"not null" json:"quantity"`
	Price      int64          `gorm:"not null" json:"price"`
	Subtotal   int64          `gorm:"not null" json:"subtotal"`
	AddOns     AddOnSnapshots `gorm:"type:text" json:"add_ons"`
	Status     ItemStatus     `gorm:"type:varchar(20);not null" json:"status"`
	Notes      string         `gorm:"type:varchar(200)" json:"notes"`
	CreatedAt  time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
