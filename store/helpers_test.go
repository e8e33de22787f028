package store

import (
	"context"
	"path/filepath"
	"testing"

	"storefront/db"
	"storefront/models"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	gdb, err := db.InitDatabase(db.Options{Path: filepath.Join(t.TempDir(), "shop.db")})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return New(gdb)
}

func strPtr(s string) *string { return &s }

func addCategory(t *testing.T, s *Store, title, slug string, parent *models.Category) models.Category {
	t.Helper()
	c := models.Category{Title: title, Slug: strPtr(slug)}
	if parent != nil {
		c.ParentID = &parent.ID
	}
	require.NoError(t, s.CreateCategory(context.Background(), &c))
	return c
}

func addProduct(t *testing.T, s *Store, p models.Product) models.Product {
	t.Helper()
	require.NoError(t, s.CreateProduct(context.Background(), &p))
	return p
}

func addUser(t *testing.T, s *Store, name string) *models.User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), name, "hash", false)
	require.NoError(t, err)
	return u
}
