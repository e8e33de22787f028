package store

import (
	"context"

	"storefront/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ToggleFavorite adds the product to the user's favorites, or removes it when
// already there. It reports whether the product is a favorite afterwards.
func (s *Store) ToggleFavorite(ctx context.Context, userID uint, productSlug string) (bool, error) {
	var added bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var product models.Product
		if err := tx.Select("id").Where("slug = ?", productSlug).First(&product).Error; err != nil {
			return notFound(err)
		}

		res := tx.Where("user_id = ? AND product_id = ?", userID, product.ID).Delete(&models.FavoriteProduct{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			added = false
			return nil
		}

		added = true
		return addFavorite(tx, userID, product.ID)
	})
	return added, err
}

// addFavorite inserts the bookmark unless a concurrent toggle already did.
func addFavorite(tx *gorm.DB, userID, productID uint) error {
	return tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.FavoriteProduct{UserID: userID, ProductID: productID}).Error
}

// Favorites lists the user's favorite products, oldest bookmark first.
func (s *Store) Favorites(ctx context.Context, userID uint) ([]models.Product, error) {
	var products []models.Product
	err := s.db.WithContext(ctx).
		Joins("JOIN favorite_products ON favorite_products.product_id = products.id").
		Where("favorite_products.user_id = ?", userID).
		Order("favorite_products.id").
		Preload("Images", orderByID).
		Find(&products).Error
	return products, err
}

func (s *Store) IsFavorite(ctx context.Context, userID, productID uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.FavoriteProduct{}).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Count(&count).Error
	return count > 0, err
}
