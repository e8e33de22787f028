package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"storefront/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CheckoutInput struct {
	FirstName string
	LastName  string
	Address   string
	CityID    uint
	State     string
	Phone     string
}

// SaveCheckout stores the buyer's names and a shipping address for the open
// cart in one transaction.
func (s *Store) SaveCheckout(ctx context.Context, userID uint, in CheckoutInput) (*models.ShippingAddress, error) {
	var address models.ShippingAddress
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var city models.City
		if err := tx.First(&city, in.CityID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUnknownCity
			}
			return err
		}

		customer, err := customerForUser(tx, userID)
		if err != nil {
			return err
		}
		cart, err := activeOrder(tx, customer.ID)
		if err != nil {
			return err
		}

		var lines int64
		if err := tx.Model(&models.OrderProduct{}).Where("order_id = ?", cart.ID).Count(&lines).Error; err != nil {
			return err
		}
		if lines == 0 {
			return ErrEmptyCart
		}

		err = tx.Model(customer).Updates(map[string]any{"first_name": in.FirstName, "last_name": in.LastName}).Error
		if err != nil {
			return err
		}

		address = models.ShippingAddress{
			CustomerID: &customer.ID,
			OrderID:    &cart.ID,
			Address:    in.Address,
			CityID:     city.ID,
			City:       &city,
			State:      in.State,
			Phone:      in.Phone,
		}
		return tx.Omit("City").Create(&address).Error
	})
	if err != nil {
		return nil, err
	}
	return &address, nil
}

// ShippingFor returns the latest shipping address stored for an order.
func (s *Store) ShippingFor(ctx context.Context, orderID uint) (*models.ShippingAddress, error) {
	var address models.ShippingAddress
	err := s.db.WithContext(ctx).Preload("City").
		Where("order_id = ?", orderID).Order("id DESC").First(&address).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &address, nil
}

// BeginPayment records the provider reference and the charged amount of a
// payment session on an open order.
func (s *Store) BeginPayment(ctx context.Context, orderID uint, ref string, amount decimal.Decimal) error {
	res := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND is_completed = ?", orderID, false).
		Updates(map[string]any{"payment_ref": ref, "payment_amount": amount})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return missingOrCompleted(s.db.WithContext(ctx), orderID)
	}
	return nil
}

// CompleteOrder flips an open order to completed and takes its lines out of
// stock. paid must equal the amount of the order's payment session. Only one
// caller wins; the others get ErrOrderCompleted.
func (s *Store) CompleteOrder(ctx context.Context, orderID uint, paid decimal.Decimal) (*models.Order, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&order, orderID).Error; err != nil {
			return notFound(err)
		}
		switch {
		case order.IsCompleted:
			return ErrOrderCompleted
		case order.PaymentRef == "":
			return ErrNoPayment
		case !paid.Equal(order.PaymentAmount):
			return fmt.Errorf("%w: paid %s, expected %s", ErrAmountMismatch,
				paid.StringFixed(2), order.PaymentAmount.StringFixed(2))
		}

		res := tx.Model(&models.Order{}).
			Where("id = ? AND is_completed = ?", orderID, false).
			Updates(map[string]any{"is_completed": true, "completed_at": time.Now()})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return missingOrCompleted(tx, orderID)
		}

		var lines []models.OrderProduct
		if err := tx.Where("order_id = ? AND product_id IS NOT NULL", orderID).Find(&lines).Error; err != nil {
			return err
		}
		for _, line := range lines {
			if err := takeStock(tx, orderID, *line.ProductID, line.Quantity); err != nil {
				return fmt.Errorf("update stock: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.OrderByID(ctx, orderID)
}

// takeStock lowers a product's stock by n, stopping at zero. Selling more
// than is left is logged, the order still goes through since it is paid.
func takeStock(tx *gorm.DB, orderID, productID uint, n int) error {
	var product models.Product
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Select("id", "quantity").First(&product, productID).Error
	if err != nil {
		return err
	}
	left := product.Quantity - n
	if left < 0 {
		slog.Warn("Product oversold", "order_id", orderID, "product_id", productID, "shortfall", -left)
		left = 0
	}
	return tx.Model(&models.Product{}).Where("id = ?", productID).Update("quantity", left).Error
}

func missingOrCompleted(tx *gorm.DB, orderID uint) error {
	var count int64
	if err := tx.Model(&models.Order{}).Where("id = ?", orderID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrNotFound
	}
	return ErrOrderCompleted
}

func (s *Store) Cities(ctx context.Context) ([]models.City, error) {
	var cities []models.City
	err := s.db.WithContext(ctx).Order("city_name").Order("id").Find(&cities).Error
	return cities, err
}

// CustomerOrders lists the completed orders of a user, newest first.
func (s *Store) CustomerOrders(ctx context.Context, userID uint) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.WithContext(ctx).
		Joins("JOIN customers ON customers.id = orders.customer_id").
		Where("customers.user_id = ? AND orders.is_completed = ?", userID, true).
		Preload("Items", orderByID).
		Preload("Items.Product").
		Order("orders.id DESC").
		Find(&orders).Error
	return orders, err
}

// LastPaymentOrder returns the user's newest order that has a payment
// session, completed or not.
func (s *Store) LastPaymentOrder(ctx context.Context, userID uint) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).Select("orders.id").
		Joins("JOIN customers ON customers.id = orders.customer_id").
		Where("customers.user_id = ? AND orders.payment_ref <> ?", userID, "").
		Order("orders.id DESC").
		First(&order).Error
	if err != nil {
		return nil, notFound(err)
	}
	return loadOrder(s.db.WithContext(ctx), order.ID)
}
