package store

import (
	"context"
	"errors"
	"strings"

	"storefront/models"

	"gorm.io/gorm"
)

// CreateUser inserts a user with an already hashed password.
func (s *Store) CreateUser(ctx context.Context, username, passwordHash string, staff bool) (*models.User, error) {
	user := models.User{Username: username, PasswordHash: passwordHash, IsStaff: staff}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrUsernameTaken
		}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		_, err := customerForUser(tx, user.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Store) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (s *Store) UserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// SetPassword replaces the stored hash, creating the user if missing.
func (s *Store) SetPassword(ctx context.Context, username, passwordHash string, staff bool) (*models.User, error) {
	user, err := s.UserByUsername(ctx, username)
	if errors.Is(err, ErrNotFound) {
		return s.CreateUser(ctx, username, passwordHash, staff)
	}
	if err != nil {
		return nil, err
	}
	err = s.db.WithContext(ctx).Model(user).
		Updates(map[string]any{"password_hash": passwordHash, "is_staff": staff}).Error
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Subscribe adds an email to the newsletter list. Emails compare
// case-insensitively.
func (s *Store) Subscribe(ctx context.Context, email string, userID *uint) (*models.Mail, error) {
	mail := models.Mail{Email: strings.ToLower(strings.TrimSpace(email)), UserID: userID}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Mail{}).Where("email = ?", mail.Email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrAlreadySubscribed
		}
		return tx.Create(&mail).Error
	})
	if err != nil {
		return nil, err
	}
	return &mail, nil
}

// Subscribers returns every subscribed email in subscription order.
func (s *Store) Subscribers(ctx context.Context) ([]string, error) {
	var emails []string
	err := s.db.WithContext(ctx).Model(&models.Mail{}).Order("id").Pluck("email", &emails).Error
	return emails, err
}

// EmailForUser returns the newsletter address a user subscribed with.
func (s *Store) EmailForUser(ctx context.Context, userID uint) (string, error) {
	var mail models.Mail
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("id DESC").First(&mail).Error; err != nil {
		return "", notFound(err)
	}
	return mail.Email, nil
}
