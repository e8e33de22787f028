package models

// Mail is a newsletter subscription.
type Mail struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	Email  string `gorm:"uniqueIndex;not null" json:"email" validate:"required,email"`
	UserID *uint  `gorm:"index" json:"user_id"`
	User   *User  `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

