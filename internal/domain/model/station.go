package model

// 調理ステーション
type Station string

const (
	StationKitchen Station = "kitchen"
	StationBar     Station = "bar"
	StationPastry  Station = "pastry"
)

var stationCategories = map[Station]Category{
	StationKitchen: CategoryFood,
	StationBar:     CategoryDrink,
	StationPastry:  CategoryPastry,
}

func ParseStation(s string) (Station, bool) {
	st := Station(s)
	_, ok := stationCategories[st]
	return st, ok
}

// 担当する区分
func (s Station) Category() (Category, bool) {
	c, ok := stationCategories[s]
	return c, ok
}

func (s Station) Owns(c Category) bool {
	own, ok := stationCategories[s]
	return ok && own == c
}

// スタッフのロール（JWTのroleクレーム）
type Role string

const (
	RoleKitchen Role = "kitchen"
	RoleBar     Role = "bar"
	RolePastry  Role = "pastry"
	RoleCashier Role = "cashier"
	RoleAdmin   Role = "admin"
)

// ステーション系ロールならそのステーションを返す
func (r Role) Station() (Station, bool) {
	return ParseStation(string(r))
}

func (r Role) Valid() bool {
	switch r {
	case RoleKitchen, RoleBar, RolePastry, RoleCashier, RoleAdmin:
		return true
	}
	return false
}
