package models

// PlaceholderImage is served for categories and products that have no picture yet.
const PlaceholderImage = "https://t4.ftcdn.net/jpg/03/08/68/19/360_F_308681935_VSuCNvhuif2A8JknPiocgGR2Ag7D1ZqN.jpg"

type Category struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	Title    string    `gorm:"size:150;not null" json:"title" validate:"required,max=150"`
	Image    string    `json:"image"`
	Slug     *string   `gorm:"uniqueIndex" json:"slug"`
	ParentID *uint     `gorm:"index" json:"parent_id"`
	Parent   *Category `gorm:"constraint:OnDelete:CASCADE" json:"-"` // subcategories go with their parent
}

// ImageURL returns the category image or the placeholder.
func (c *Category) ImageURL() string {
	if c.Image != "" {
		return c.Image
	}
	return PlaceholderImage
}
