// Package seed loads catalog fixtures from YAML.
package seed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"storefront/models"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

type Fixture struct {
	Cities     []string   `yaml:"cities"`
	Categories []Category `yaml:"categories"`
	Products   []Product  `yaml:"products"`
}

type Category struct {
	Title    string     `yaml:"title"`
	Slug     string     `yaml:"slug"`
	Image    string     `yaml:"image"`
	Children []Category `yaml:"children"`
}

type Product struct {
	Title       string   `yaml:"title"`
	Slug        string   `yaml:"slug"`
	Category    string   `yaml:"category"` // category slug
	Price       float64  `yaml:"price"`
	Quantity    int      `yaml:"quantity"`
	Description string   `yaml:"description"`
	Size        int      `yaml:"size"`
	Color       string   `yaml:"color"`
	Images      []string `yaml:"images"`
}

type Result struct {
	Cities     int
	Categories int
	Products   int
}

// Load reads a fixture file. Unknown keys are rejected.
func Load(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Fixture, error) {
	var f Fixture
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := f.validate(); err != nil {
		return nil, fmt.Errorf("invalid fixture: %w", err)
	}
	return &f, nil
}

func (f *Fixture) validate() error {
	var errs []error
	var walk func(cs []Category)
	walk = func(cs []Category) {
		for _, c := range cs {
			if c.Title == "" || c.Slug == "" {
				errs = append(errs, fmt.Errorf("category %q: title and slug are required", c.Slug))
			}
			walk(c.Children)
		}
	}
	walk(f.Categories)
	for _, p := range f.Products {
		if p.Title == "" || p.Slug == "" || p.Category == "" {
			errs = append(errs, fmt.Errorf("product %q: title, slug and category are required", p.Slug))
		}
		if p.Price < 0 || p.Quantity < 0 {
			errs = append(errs, fmt.Errorf("product %q: price and quantity must not be negative", p.Slug))
		}
	}
	return errors.Join(errs...)
}

// Apply writes the fixture in one transaction. Rows are matched by slug
// (cities by name), so applying the same fixture twice changes nothing.
func Apply(ctx context.Context, db *gorm.DB, f *Fixture) (Result, error) {
	var res Result
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, name := range f.Cities {
			city := models.City{}
			if err := tx.Where(models.City{CityName: name}).FirstOrCreate(&city).Error; err != nil {
				return fmt.Errorf("city %q: %w", name, err)
			}
			res.Cities++
		}

		var upsert func(cs []Category, parent *uint) error
		upsert = func(cs []Category, parent *uint) error {
			for _, c := range cs {
				slug := c.Slug
				var row models.Category
				err := tx.Where("slug = ?", slug).
					Assign(map[string]any{"title": c.Title, "image": c.Image, "parent_id": parent}).
					FirstOrCreate(&row, models.Category{Slug: &slug, Title: c.Title, Image: c.Image, ParentID: parent}).Error
				if err != nil {
					return fmt.Errorf("category %q: %w", slug, err)
				}
				res.Categories++
				if err := upsert(c.Children, &row.ID); err != nil {
					return err
				}
			}
			return nil
		}
		if err := upsert(f.Categories, nil); err != nil {
			return err
		}

		for _, p := range f.Products {
			if err := applyProduct(tx, p); err != nil {
				return fmt.Errorf("product %q: %w", p.Slug, err)
			}
			res.Products++
		}
		return nil
	})
	return res, err
}

func applyProduct(tx *gorm.DB, p Product) error {
	var category models.Category
	if err := tx.Where("slug = ?", p.Category).First(&category).Error; err != nil {
		return fmt.Errorf("category %q: %w", p.Category, err)
	}

	slug := p.Slug
	fields := map[string]any{
		"title":       p.Title,
		"price":       p.Price,
		"quantity":    p.Quantity,
		"category_id": category.ID,
	}
	if p.Description != "" {
		fields["description"] = p.Description
	}
	if p.Size != 0 {
		fields["size"] = p.Size
	}
	if p.Color != "" {
		fields["color"] = p.Color
	}

	var row models.Product
	err := tx.Where("slug = ?", slug).
		Assign(fields).
		FirstOrCreate(&row, models.Product{Slug: &slug, Title: p.Title, Price: p.Price, CategoryID: category.ID}).Error
	if err != nil {
		return err
	}

	if p.Images == nil {
		return nil
	}
	if err := tx.Where("product_id = ?", row.ID).Delete(&models.Gallery{}).Error; err != nil {
		return err
	}
	for _, image := range p.Images {
		if err := tx.Create(&models.Gallery{ProductID: row.ID, Image: image}).Error; err != nil {
			return err
		}
	}
	return nil
}
