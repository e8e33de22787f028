package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"storefront/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CartAction string

const (
	ActionAdd    CartAction = "add"
	ActionRemove CartAction = "remove"
	ActionDelete CartAction = "delete"
)

func ParseCartAction(s string) (CartAction, error) {
	switch a := CartAction(s); a {
	case ActionAdd, ActionRemove, ActionDelete:
		return a, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidAction, s)
}

// customerForUser returns the customer profile of the user, creating an
// empty one on first use.
func customerForUser(tx *gorm.DB, userID uint) (*models.Customer, error) {
	var customer models.Customer
	err := tx.Where("user_id = ?", userID).First(&customer).Error
	if err == nil {
		return &customer, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	customer = models.Customer{UserID: &userID}
	if err := tx.Create(&customer).Error; err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}
	return &customer, nil
}

// activeOrder returns the customer's open cart, creating it when there is
// none. The order row stays locked until the transaction ends.
func activeOrder(tx *gorm.DB, customerID uint) (*models.Order, error) {
	var order models.Order
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("customer_id = ? AND is_completed = ?", customerID, false).Order("id").First(&order).Error
	if err == nil {
		return &order, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	order = models.Order{CustomerID: &customerID, Shipping: true, CartRef: uuid.NewString()}
	if err := tx.Create(&order).Error; err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	return &order, nil
}

// UpdateCart applies one cart action for productID inside a single
// transaction and returns the resulting cart.
func (s *Store) UpdateCart(ctx context.Context, userID, productID uint, action CartAction) (*models.Order, error) {
	if _, err := ParseCartAction(string(action)); err != nil {
		return nil, err
	}

	var order *models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var product models.Product
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&product, productID).Error; err != nil {
			return notFound(err)
		}

		customer, err := customerForUser(tx, userID)
		if err != nil {
			return err
		}
		cart, err := activeOrder(tx, customer.ID)
		if err != nil {
			return err
		}
		line := tx.Model(&models.OrderProduct{}).Where("order_id = ? AND product_id = ?", cart.ID, product.ID)

		switch action {
		case ActionAdd:
			var inCart int
			if err := line.Session(&gorm.Session{}).Select("quantity").Scan(&inCart).Error; err != nil {
				return err
			}
			if inCart+1 > product.Quantity {
				return ErrInsufficientStock
			}
			item := models.OrderProduct{OrderID: &cart.ID, ProductID: &product.ID, Quantity: 1}
			err = tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "product_id"}, {Name: "order_id"}},
				DoUpdates: clause.Assignments(map[string]any{"quantity": gorm.Expr("order_products.quantity + ?", 1)}),
			}).Create(&item).Error
		case ActionRemove:
			err = line.Session(&gorm.Session{}).Update("quantity", gorm.Expr("quantity - ?", 1)).Error
			if err == nil {
				err = tx.Where("order_id = ? AND product_id = ? AND quantity <= 0", cart.ID, product.ID).
					Delete(&models.OrderProduct{}).Error
			}
		case ActionDelete:
			err = tx.Where("order_id = ? AND product_id = ?", cart.ID, product.ID).Delete(&models.OrderProduct{}).Error
		}
		if err != nil {
			return fmt.Errorf("cart %s: %w", action, err)
		}
		if err := dropPayment(tx, cart); err != nil {
			return err
		}

		order, err = loadOrder(tx, cart.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// Cart returns the user's open order with line items and their products.
func (s *Store) Cart(ctx context.Context, userID uint) (*models.Order, error) {
	var order *models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		customer, err := customerForUser(tx, userID)
		if err != nil {
			return err
		}
		cart, err := activeOrder(tx, customer.ID)
		if err != nil {
			return err
		}
		order, err = loadOrder(tx, cart.ID)
		return err
	})
	return order, err
}

// ClearCart removes every line item from the user's open order.
func (s *Store) ClearCart(ctx context.Context, userID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		customer, err := customerForUser(tx, userID)
		if err != nil {
			return err
		}
		cart, err := activeOrder(tx, customer.ID)
		if err != nil {
			return err
		}
		if err := tx.Where("order_id = ?", cart.ID).Delete(&models.OrderProduct{}).Error; err != nil {
			return err
		}
		return dropPayment(tx, cart)
	})
}

// dropPayment forgets the payment session of a cart whose contents changed.
// The cart gets a fresh cart id, so a late payment or notification for the
// old session can no longer complete it.
func dropPayment(tx *gorm.DB, cart *models.Order) error {
	if cart.PaymentRef == "" {
		return nil
	}
	slog.Info("Cart changed, payment session dropped", "order_id", cart.ID, "ref", cart.PaymentRef)
	err := tx.Model(&models.Order{}).Where("id = ?", cart.ID).Updates(map[string]any{
		"payment_ref":    "",
		"payment_amount": decimal.Zero,
		"cart_ref":       uuid.NewString(),
	}).Error
	if err != nil {
		return fmt.Errorf("drop payment session: %w", err)
	}
	return nil
}

func (s *Store) OrderByID(ctx context.Context, id uint) (*models.Order, error) {
	return loadOrder(s.db.WithContext(ctx), id)
}

// OrderByCartRef finds an order by the cart id sent to the payment provider.
func (s *Store) OrderByCartRef(ctx context.Context, ref string) (*models.Order, error) {
	var order models.Order
	if err := s.db.WithContext(ctx).Select("id").Where("cart_ref = ?", ref).First(&order).Error; err != nil {
		return nil, notFound(err)
	}
	return loadOrder(s.db.WithContext(ctx), order.ID)
}

func loadOrder(tx *gorm.DB, id uint) (*models.Order, error) {
	var order models.Order
	err := tx.Preload("Items", orderByID).
		Preload("Items.Product").
		Preload("Items.Product.Images", orderByID).
		Preload("Customer").
		First(&order, id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &order, nil
}
