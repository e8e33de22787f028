package models

// Statistics is the admin dashboard summary. It is computed on read.
type Statistics struct {
	ProductsCount   int64   `json:"products"`
	CategoriesCount int64   `json:"categories"`
	CustomersCount  int64   `json:"customers"`
	OpenCarts       int64   `json:"open_carts"`
	CompletedOrders int64   `json:"completed_orders"`
	Revenue         float64 `json:"revenue"`
	Subscribers     int64   `json:"subscribers"`
}
