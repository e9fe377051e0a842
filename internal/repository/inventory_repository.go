package repository

import "context"

type InventoryRepository interface {
	// 在庫が足りるときだけ減算（足りなければfalseと現在庫）
	DecreaseStockIfEnough(ctx context.Context, menuItemID int64, qty int64) (bool, int64, error)

	// 在庫戻し（支払い失敗など）
	IncreaseStock(ctx context.Context, menuItemID int64, qty int64) error
}
