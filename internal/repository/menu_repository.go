package repository

import (
	"context"
	"errors"

	"tableorder/internal/domain/model"
)

var ErrNotFound = errors.New("not found")

// メニューの参照だけを約束（編集は管理画面側の責務）
type MenuRepository interface {
	FindByID(ctx context.Context, id int64) (model.MenuItem, error)
	// 指定IDのトッピングのうち、そのメニューに属するものだけ返す
	FindAddOns(ctx context.Context, menuItemID int64, addOnIDs []int64) ([]model.MenuAddOn, error)
	ListAddOns(ctx context.Context, menuItemID int64) ([]model.MenuAddOn, error)
}

// 一意制約違反（注文番号・冪等キーの重複）
var ErrDuplicate = errors.New("duplicate key")
