package models

import "time"

const (
	DefaultDescription = "The product description coming soon"
	DefaultSize        = 30
	DefaultColor       = "Silver"
)

type Product struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"size:255;not null" json:"title" validate:"required,max=255"`
	Price       float64   `gorm:"not null;check:price >= 0" json:"price" validate:"gte=0"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	Quantity    int       `gorm:"not null;default:0" json:"quantity" validate:"gte=0"`
	Description string    `gorm:"type:text;default:'The product description coming soon'" json:"description"`
	CategoryID  uint      `gorm:"not null;index" json:"category_id" validate:"required"`
	Category    *Category `gorm:"constraint:OnDelete:CASCADE" json:"category,omitempty"`
	Slug        *string   `gorm:"uniqueIndex" json:"slug"`
	Size        int       `gorm:"not null;default:30" json:"size"` // mm
	Color       string    `gorm:"size:30;not null;default:'Silver'" json:"color" validate:"max=30"`
	Images      []Gallery `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"images"`
}

// Gallery is one picture of a product.
type Gallery struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	Image     string `gorm:"not null" json:"image"`
	ProductID uint   `gorm:"not null;index" json:"product_id"`
}

// TableName keeps the table name singular, matching the gallery of goods.
func (Gallery) TableName() string {
	return "gallery"
}

// CoverImage returns the first gallery image, or the placeholder when the
// product has none. Images must be preloaded.
func (p *Product) CoverImage() string {
	if len(p.Images) == 0 || p.Images[0].Image == "" {
		return PlaceholderImage
	}
	return p.Images[0].Image
}
