package routes

import (
	"storefront/models"
)

// ProductResponse adds the cover image to a product.
type ProductResponse struct {
	models.Product
	CoverImage string `json:"cover_image"`
}

type CategoryResponse struct {
	models.Category
	ImageURL string `json:"image_url"`
}

type ProductListResponse struct {
	Products []ProductResponse `json:"products"`
	Total    int64             `json:"total"`
	Skip     int               `json:"skip"`
	Limit    int               `json:"limit"`
	Sort     string            `json:"sort,omitempty"`
}

type CartItemResponse struct {
	ID         uint             `json:"id"`
	Quantity   int              `json:"quantity"`
	TotalPrice string           `json:"total_price"`
	Product    *ProductResponse `json:"product"`
}

// CartResponse is an order with its computed totals.
type CartResponse struct {
	ID            uint               `json:"id"`
	IsCompleted   bool               `json:"is_completed"`
	Shipping      bool               `json:"shipping"`
	Items         []CartItemResponse `json:"items"`
	TotalPrice    string             `json:"total_price"`
	TotalQuantity int                `json:"total_quantity"`
}

func productResponse(p models.Product) ProductResponse {
	return ProductResponse{Product: p, CoverImage: p.CoverImage()}
}

func productResponses(products []models.Product) []ProductResponse {
	out := make([]ProductResponse, 0, len(products))
	for _, p := range products {
		out = append(out, productResponse(p))
	}
	return out
}

func categoryResponse(c models.Category) CategoryResponse {
	return CategoryResponse{Category: c, ImageURL: c.ImageURL()}
}

func categoryResponses(categories []models.Category) []CategoryResponse {
	out := make([]CategoryResponse, 0, len(categories))
	for _, c := range categories {
		out = append(out, categoryResponse(c))
	}
	return out
}

func cartResponse(order *models.Order) CartResponse {
	resp := CartResponse{
		ID:            order.ID,
		IsCompleted:   order.IsCompleted,
		Shipping:      order.Shipping,
		Items:         make([]CartItemResponse, 0, len(order.Items)),
		TotalPrice:    order.CartTotalPrice().StringFixed(2),
		TotalQuantity: order.CartTotalQuantity(),
	}
	for _, item := range order.Items {
		line := CartItemResponse{
			ID:         item.ID,
			Quantity:   item.Quantity,
			TotalPrice: item.TotalPrice().StringFixed(2),
		}
		if item.Product != nil {
			p := productResponse(*item.Product)
			line.Product = &p
		}
		resp.Items = append(resp.Items, line)
	}
	return resp
}
