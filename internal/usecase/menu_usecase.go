package usecase

import (
	"context"
	"errors"
	"net/http"

	"tableorder/internal/domain/model"
	repo "tableorder/internal/repository"
)

// 表示用のメニュー参照（価格と在庫は注文確定時にサーバー側で再確認する）
type MenuUsecase struct {
	menu repo.MenuRepository
}

func NewMenuUsecase(menu repo.MenuRepository) *MenuUsecase {
	return &MenuUsecase{menu: menu}
}

type AddOnOutput struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Price       int64  `json:"price"`
	IsAvailable bool   `json:"is_available"`
}

type MenuItemOutput struct {
	ID            int64          `json:"id"`
	Name          string         `json:"name"`
	Category      model.Category `json:"category"`
	Price         int64          `json:"price"`
	IsAvailable   bool           `json:"is_available"`
	StockQuantity int64          `json:"stock_quantity"`
	AddOns        []AddOnOutput  `json:"add_ons"`
}

func (u *MenuUsecase) GetMenuItem(ctx context.Context, id int64) (MenuItemOutput, error) {
	if id <= 0 {
		return MenuItemOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	m, err := u.menu.FindByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return MenuItemOutput{}, NewHTTPError(http.StatusNotFound, "menu item not found")
	}
	if err != nil {
		return MenuItemOutput{}, dbError()
	}

	addOns, err := u.menu.ListAddOns(ctx, id)
	if err != nil {
		return MenuItemOutput{}, dbError()
	}

	out := MenuItemOutput{
		ID:            m.ID,
		Name:          m.Name,
		Category:      m.Category,
		Price:         m.Price,
		IsAvailable:   m.IsAvailable,
		StockQuantity: m.Stock,
		AddOns:        make([]AddOnOutput, 0, len(addOns)),
	}
	for _, a := range addOns {
		out.AddOns = append(out.AddOns, AddOnOutput{ID: a.ID, Name: a.Name, Price: a.Price, IsAvailable: a.IsAvailable})
	}
	return out, nil
}
