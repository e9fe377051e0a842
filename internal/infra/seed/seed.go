package seed

import (
	"context"
	"fmt"

	"tableorder/internal/domain/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// 開発用のメニューと客席
type Catalog struct {
	Items  []model.MenuItem
	AddOns []model.MenuAddOn
	Tables []model.DiningTable
}

func Demo() Catalog {
	return Catalog{
		Items: []model.MenuItem{
			{ID: 1, Name: "Burger", Category: model.CategoryFood, Price: 25000, Stock: 50, IsAvailable: true},
			{ID: 2, Name: "Fried Rice", Category: model.CategoryFood, Price: 30000, Stock: 50, IsAvailable: true},
			{ID: 3, Name: "Latte", Category: model.CategoryDrink, Price: 14000, Stock: 100, IsAvailable: true},
			{ID: 4, Name: "Iced Tea", Category: model.CategoryDrink, Price: 8000, Stock: 100, IsAvailable: true},
			{ID: 5, Name: "Croissant", Category: model.CategoryPastry, Price: 12000, Stock: 20, IsAvailable: true},
		},
		AddOns: []model.MenuAddOn{
			{ID: 1, MenuItemID: 3, Name: "Extra shot", Price: 5000, IsAvailable: true},
			{ID: 2, MenuItemID: 3, Name: "Oat milk", Price: 6000, IsAvailable: true},
			{ID: 3, MenuItemID: 1, Name: "Cheese", Price: 4000, IsAvailable: true},
		},
		Tables: []model.DiningTable{
			{ID: 1, Number: 1, QRCode: "table-1", IsActive: true},
			{ID: 2, Number: 2, QRCode: "table-2", IsActive: true},
			{ID: 3, Number: 3, QRCode: "table-3", IsActive: true},
		},
	}
}

// ApplyGorm は既にある行を上書きしない
func ApplyGorm(ctx context.Context, db *gorm.DB, c Catalog) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		doNothing := clause.OnConflict{DoNothing: true}
		if len(c.Items) > 0 {
			if err := tx.Clauses(doNothing).Create(&c.Items).Error; err != nil {
				return fmt.Errorf("seed menu items: %w", err)
			}
		}
		if len(c.AddOns) > 0 {
			if err := tx.Clauses(doNothing).Create(&c.AddOns).Error; err != nil {
				return fmt.Errorf("seed add-ons: %w", err)
			}
		}
		if len(c.Tables) > 0 {
			if err := tx.Clauses(doNothing).Create(&c.Tables).Error; err != nil {
				return fmt.Errorf("seed tables: %w", err)
			}
		}
		return nil
	})
}
