package store

import (
	"context"
	"fmt"

	"storefront/models"

	"gorm.io/gorm"
)

// CreateCategory inserts a category. A parent, when given, must exist.
func (s *Store) CreateCategory(ctx context.Context, c *models.Category) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if c.ParentID != nil {
			if err := requireRow(tx, &models.Category{}, *c.ParentID); err != nil {
				return fmt.Errorf("parent category: %w", err)
			}
		}
		return tx.Omit("Parent").Create(c).Error
	})
}

// MoveCategory reparents a category. A nil parent makes it top level.
func (s *Store) MoveCategory(ctx context.Context, id uint, parentID *uint) error {
	tree, err := s.loadCategoryTree(ctx)
	if err != nil {
		return err
	}
	if tree.Descendants(id) == nil {
		return ErrNotFound
	}
	if parentID != nil {
		if tree.Descendants(*parentID) == nil {
			return ErrUnknownParent
		}
		if *parentID == id || tree.IsAncestor(id, *parentID) {
			return ErrCategoryCycle
		}
	}
	return s.db.WithContext(ctx).Model(&models.Category{ID: id}).Update("parent_id", parentID).Error
}

// CreateProduct inserts a product and any gallery images set on it.
func (s *Store) CreateProduct(ctx context.Context, p *models.Product) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireRow(tx, &models.Category{}, p.CategoryID); err != nil {
			return fmt.Errorf("category: %w", err)
		}
		return tx.Omit("Category").Create(p).Error
	})
}

// AddGalleryImage appends an image URL to a product's gallery.
func (s *Store) AddGalleryImage(ctx context.Context, productID uint, url string) (*models.Gallery, error) {
	image := models.Gallery{Image: url, ProductID: productID}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireRow(tx, &models.Product{}, productID); err != nil {
			return err
		}
		return tx.Create(&image).Error
	})
	if err != nil {
		return nil, err
	}
	return &image, nil
}

func (s *Store) SetCategoryImage(ctx context.Context, categoryID uint, url string) error {
	res := s.db.WithContext(ctx).Model(&models.Category{}).Where("id = ?", categoryID).Update("image", url)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteProduct removes a product. Gallery, reviews and favorites go with it;
// order lines keep their quantity with the product cleared.
func (s *Store) DeleteProduct(ctx context.Context, id uint) error {
	return deleteByID(s.db.WithContext(ctx), &models.Product{}, id)
}

// DeleteCategory removes a category together with its subtree and their products.
func (s *Store) DeleteCategory(ctx context.Context, id uint) error {
	return deleteByID(s.db.WithContext(ctx), &models.Category{}, id)
}

// DeleteCustomer removes a customer profile. Orders and addresses are kept
// with the customer cleared.
func (s *Store) DeleteCustomer(ctx context.Context, id uint) error {
	return deleteByID(s.db.WithContext(ctx), &models.Customer{}, id)
}

func deleteByID(db *gorm.DB, model any, id uint) error {
	res := db.Delete(model, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func requireRow(tx *gorm.DB, model any, id uint) error {
	var count int64
	if err := tx.Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrNotFound
	}
	return nil
}

// Stats computes the admin dashboard summary.
func (s *Store) Stats(ctx context.Context) (models.Statistics, error) {
	var st models.Statistics
	db := s.db.WithContext(ctx)

	counts := []struct {
		model     any
		completed *bool
		dest      *int64
	}{
		{&models.Product{}, nil, &st.ProductsCount},
		{&models.Category{}, nil, &st.CategoriesCount},
		{&models.Customer{}, nil, &st.CustomersCount},
		{&models.Order{}, ptr(false), &st.OpenCarts},
		{&models.Order{}, ptr(true), &st.CompletedOrders},
		{&models.Mail{}, nil, &st.Subscribers},
	}
	for _, c := range counts {
		q := db.Model(c.model)
		if c.completed != nil {
			q = q.Where("is_completed = ?", *c.completed)
		}
		if err := q.Count(c.dest).Error; err != nil {
			return st, fmt.Errorf("stats count: %w", err)
		}
	}

	err := db.Model(&models.OrderProduct{}).
		Select("COALESCE(SUM(products.price * order_products.quantity), 0)").
		Joins("JOIN orders ON orders.id = order_products.order_id").
		Joins("JOIN products ON products.id = order_products.product_id").
		Where("orders.is_completed = ?", true).
		Scan(&st.Revenue).Error
	if err != nil {
		return st, fmt.Errorf("stats revenue: %w", err)
	}
	return st, nil
}

func ptr[T any](v T) *T { return &v }

// AllProducts returns every product with its category, for exports.
func (s *Store) AllProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := s.db.WithContext(ctx).Preload("Category").Order("id").Find(&products).Error
	return products, err
}
