package forms

import (
	"strings"

	"storefront/models"
	"storefront/store"
)

type LoginForm struct {
	Username string `form:"username" json:"username" validate:"required,max=150"`
	Password string `form:"password" json:"password" validate:"required"`
}

type RegistrationForm struct {
	Username  string `form:"username" json:"username" validate:"required,max=150"`
	Password1 string `form:"password1" json:"password1" validate:"required,min=8"`
	Password2 string `form:"password2" json:"password2" validate:"required,eqfield=Password1"`
}

type ReviewForm struct {
	Text string `form:"text" json:"text" validate:"required,max=5000"`
}

type CustomerForm struct {
	FirstName string `form:"first_name" json:"first_name" validate:"required,max=255"`
	LastName  string `form:"last_name" json:"last_name" validate:"required,max=255"`
}

type ShippingForm struct {
	Address string `form:"address" json:"address" validate:"required,max=255"`
	City    uint   `form:"city" json:"city" validate:"required"`
	State   string `form:"state" json:"state" validate:"required,max=255"`
	Phone   string `form:"phone" json:"phone" validate:"required,max=255"`
}

// CheckoutInput combines the two checkout forms for the store.
func CheckoutInput(c CustomerForm, s ShippingForm) store.CheckoutInput {
	return store.CheckoutInput{
		FirstName: strings.TrimSpace(c.FirstName),
		LastName:  strings.TrimSpace(c.LastName),
		Address:   strings.TrimSpace(s.Address),
		CityID:    s.City,
		State:     strings.TrimSpace(s.State),
		Phone:     strings.TrimSpace(s.Phone),
	}
}

type MailForm struct {
	Email string `form:"email" json:"email" validate:"required,email"`
}

type BroadcastForm struct {
	Subject string `form:"subject" json:"subject" validate:"required,max=200"`
	Message string `form:"message" json:"message" validate:"required"`
}

type CategoryForm struct {
	Title    string `form:"title" json:"title" validate:"required,max=150"`
	Slug     string `form:"slug" json:"slug" validate:"omitempty,slug,max=150"`
	ParentID *uint  `form:"parent_id" json:"parent_id"`
}

func (f CategoryForm) Model() *models.Category {
	return &models.Category{Title: f.Title, Slug: optional(f.Slug), ParentID: f.ParentID}
}

// MoveCategoryForm reparents a category. A missing or null parent_id moves
// it to the top level.
type MoveCategoryForm struct {
	ParentID *uint `form:"parent_id" json:"parent_id"`
}

type ProductForm struct {
	Title       string  `form:"title" json:"title" validate:"required,max=255"`
	Price       float64 `form:"price" json:"price" validate:"gte=0"`
	Quantity    int     `form:"quantity" json:"quantity" validate:"gte=0"`
	Description string  `form:"description" json:"description"`
	CategoryID  uint    `form:"category_id" json:"category_id" validate:"required"`
	Slug        string  `form:"slug" json:"slug" validate:"omitempty,slug,max=150"`
	Size        int     `form:"size" json:"size" validate:"gte=0"`
	Color       string  `form:"color" json:"color" validate:"max=30"`
}

// Model converts the form into a product; zero size, color and description
// fall back to the column defaults.
func (f ProductForm) Model() *models.Product {
	return &models.Product{
		Title:       f.Title,
		Price:       f.Price,
		Quantity:    f.Quantity,
		Description: f.Description,
		CategoryID:  f.CategoryID,
		Slug:        optional(f.Slug),
		Size:        f.Size,
		Color:       f.Color,
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
