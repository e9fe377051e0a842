package model

import (
	"time"

	"gorm.io/gorm"
)

// メニューの区分。区分ごとに担当ステーションが決まる。
type Category string

const (
	CategoryFood   Category = "food"
	CategoryDrink  Category = "drink"
	CategoryPastry Category = "pastry"
)

type MenuItem struct {
	ID          int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string         `gorm:"type:varchar(255);not null" json:"name"`
	Category    Category       `gorm:"type:varchar(20);not null;index" json:"category"`
	Price       int64          `gorm:"not null" json:"price"`
	Stock       int64          `gorm:"not null" json:"stock"`
	IsAvailable bool           `gorm:"not null;default:false" json:"is_available"`
	CreatedAt   time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// トッピング（メニューごと）
type MenuAddOn struct {
	ID          int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	MenuItemID  int64  `gorm:"not null;index" json:"menu_id"`
	Name        string `gorm:"type:varchar(255);not null" json:"name"`
	Price       int64  `gorm:"not null" json:"price"`
	IsAvailable bool   `gorm:"not null;default:false" json:"is_available"`
}
