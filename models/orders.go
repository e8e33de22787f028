package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is a cart until IsCompleted flips to true after a confirmed payment.
// PaymentAmount is what the open payment session charges.
type Order struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	CustomerID    *uint           `gorm:"index" json:"customer_id"`
	Customer      *Customer       `gorm:"constraint:OnDelete:SET NULL" json:"customer,omitempty"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	IsCompleted   bool            `gorm:"not null;default:false;index" json:"is_completed"`
	Shipping      bool            `gorm:"not null;default:true" json:"shipping"`
	CartRef       string          `gorm:"size:64;index" json:"cart_ref,omitempty"`
	PaymentRef    string          `gorm:"size:128;index" json:"payment_ref,omitempty"`
	PaymentAmount decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"payment_amount"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
	Items         []OrderProduct  `gorm:"foreignKey:OrderID;constraint:OnDelete:SET NULL" json:"items,omitempty"`
}

// OrderProduct is a line item. Both references survive deletion of the
// referenced row as NULL.
type OrderProduct struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProductID *uint     `gorm:"uniqueIndex:idx_order_product" json:"product_id"`
	Product   *Product  `gorm:"constraint:OnDelete:SET NULL" json:"product,omitempty"`
	OrderID   *uint     `gorm:"uniqueIndex:idx_order_product" json:"order_id"`
	Quantity  int       `gorm:"not null;default:0" json:"quantity"`
	AddedAt   time.Time `gorm:"autoCreateTime" json:"added_at"`
}

// TotalPrice is product price times quantity. A line whose product was
// deleted is worth nothing.
func (op *OrderProduct) TotalPrice() decimal.Decimal {
	if op.Product == nil {
		return decimal.Zero
	}
	return decimal.NewFromFloat(op.Product.Price).Mul(decimal.NewFromInt(int64(op.Quantity)))
}

// CartTotalPrice sums the line totals. Items (with Product) must be preloaded.
// Lines without a product are excluded.
func (o *Order) CartTotalPrice() decimal.Decimal {
	total := decimal.Zero
	for i := range o.Items {
		if o.Items[i].Product == nil {
			continue
		}
		total = total.Add(o.Items[i].TotalPrice())
	}
	return total
}

// CartTotalQuantity sums the line quantities, excluding lines without a product.
func (o *Order) CartTotalQuantity() int {
	total := 0
	for _, item := range o.Items {
		if item.Product == nil {
			continue
		}
		total += item.Quantity
	}
	return total
}

type ShippingAddress struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	CustomerID *uint     `gorm:"index" json:"customer_id"`
	Customer   *Customer `gorm:"constraint:OnDelete:SET NULL" json:"-"`
	OrderID    *uint     `gorm:"index" json:"order_id"`
	Order      *Order    `gorm:"constraint:OnDelete:SET NULL" json:"-"`
	Address    string    `gorm:"size:255;not null" json:"address"`
	CityID     uint      `gorm:"not null;index" json:"city_id"`
	City       *City     `gorm:"constraint:OnDelete:CASCADE" json:"city,omitempty"`
	State      string    `gorm:"size:255;not null" json:"state"`
	Phone      string    `gorm:"size:255;not null" json:"phone"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

type City struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	CityName string `gorm:"size:255;not null" json:"city_name"`
}
