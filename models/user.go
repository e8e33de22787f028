package models

import "time"

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"size:150;uniqueIndex;not null" json:"username"`
	PasswordHash string    `gorm:"not null" json:"-"`
	IsStaff      bool      `gorm:"not null;default:false" json:"is_staff"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// Customer holds the buyer profile of a user. The user link is cleared,
// not the customer, when the user is deleted.
type Customer struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	UserID    *uint  `gorm:"uniqueIndex" json:"user_id"`
	User      *User  `gorm:"constraint:OnDelete:SET NULL" json:"-"`
	FirstName string `gorm:"size:255;not null;default:''" json:"first_name"`
	LastName  string `gorm:"size:255;not null;default:''" json:"last_name"`
}

type Review struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	AuthorID  uint      `gorm:"not null;index" json:"author_id"`
	Author    *User     `gorm:"constraint:OnDelete:CASCADE" json:"author,omitempty"`
	ProductID uint      `gorm:"not null;index" json:"product_id"`
	Product   *Product  `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// FavoriteProduct bookmarks a product for a user. The pair is unique.
type FavoriteProduct struct {
	ID        uint     `gorm:"primaryKey" json:"id"`
	UserID    uint     `gorm:"not null;uniqueIndex:idx_favorite_user_product" json:"user_id"`
	User      *User    `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	ProductID uint     `gorm:"not null;uniqueIndex:idx_favorite_user_product" json:"product_id"`
	Product   *Product `gorm:"constraint:OnDelete:CASCADE" json:"product,omitempty"`
}
