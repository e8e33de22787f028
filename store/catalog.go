package store

import (
	"context"
	"fmt"
	"iter"

	"storefront/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TopCategories yields the categories without a parent. Every range over the
// sequence runs a fresh query.
func (s *Store) TopCategories(ctx context.Context) iter.Seq2[models.Category, error] {
	return s.categories(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Where("parent_id IS NULL")
	})
}

// Subcategories yields the direct children of parentID.
func (s *Store) Subcategories(ctx context.Context, parentID uint) iter.Seq2[models.Category, error] {
	return s.categories(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Where("parent_id = ?", parentID)
	})
}

func (s *Store) categories(ctx context.Context, scope func(*gorm.DB) *gorm.DB) iter.Seq2[models.Category, error] {
	return func(yield func(models.Category, error) bool) {
		rows, err := scope(s.db.WithContext(ctx).Model(&models.Category{})).Order("id").Rows()
		if err != nil {
			yield(models.Category{}, err)
			return
		}
		defer rows.Close()

		for rows.Next() {
			var c models.Category
			if err := s.db.ScanRows(rows, &c); err != nil {
				yield(models.Category{}, err)
				return
			}
			if !yield(c, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(models.Category{}, err)
		}
	}
}

// categoryTree is a parent-id index over all categories, built per call.
type categoryTree struct {
	byID     map[uint]models.Category
	children map[uint][]uint
}

// loadCategoryTree loads every category and indexes it by parent.
func (s *Store) loadCategoryTree(ctx context.Context) (*categoryTree, error) {
	var all []models.Category
	if err := s.db.WithContext(ctx).Order("id").Find(&all).Error; err != nil {
		return nil, err
	}
	return newCategoryTree(all), nil
}

func newCategoryTree(all []models.Category) *categoryTree {
	t := &categoryTree{
		byID:     make(map[uint]models.Category, len(all)),
		children: make(map[uint][]uint),
	}
	for _, c := range all {
		t.byID[c.ID] = c
		if c.ParentID != nil {
			t.children[*c.ParentID] = append(t.children[*c.ParentID], c.ID)
		}
	}
	return t
}

// Descendants returns id and every category below it, breadth first.
func (t *categoryTree) Descendants(id uint) []uint {
	if _, ok := t.byID[id]; !ok {
		return nil
	}
	seen := map[uint]bool{id: true}
	result := []uint{id}
	queue := []uint{id}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, child := range t.children[current] {
			if seen[child] {
				continue
			}
			seen[child] = true
			result = append(result, child)
			queue = append(queue, child)
		}
	}
	return result
}

// IsAncestor reports whether ancestor appears on the parent chain of id.
func (t *categoryTree) IsAncestor(ancestor, id uint) bool {
	seen := map[uint]bool{}
	for cur, ok := t.byID[id]; ok && cur.ParentID != nil; cur, ok = t.byID[*cur.ParentID] {
		if *cur.ParentID == ancestor {
			return true
		}
		if seen[cur.ID] {
			return false
		}
		seen[cur.ID] = true
	}
	return false
}

func (s *Store) CategoryBySlug(ctx context.Context, slug string) (*models.Category, error) {
	var c models.Category
	if err := s.db.WithContext(ctx).Where("slug = ?", slug).First(&c).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (s *Store) CategoryByID(ctx context.Context, id uint) (*models.Category, error) {
	var c models.Category
	if err := s.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

// DescendantIDs returns rootID and all of its subcategory ids.
func (s *Store) DescendantIDs(ctx context.Context, rootID uint) ([]uint, error) {
	tree, err := s.loadCategoryTree(ctx)
	if err != nil {
		return nil, err
	}
	ids := tree.Descendants(rootID)
	if ids == nil {
		return nil, ErrNotFound
	}
	return ids, nil
}

// Sort keys accepted by ListProducts.
var sortColumns = map[string]clause.OrderByColumn{
	"price":  {Column: clause.Column{Name: "price"}},
	"-price": {Column: clause.Column{Name: "price"}, Desc: true},
	"color":  {Column: clause.Column{Name: "color"}},
	"-color": {Column: clause.Column{Name: "color"}, Desc: true},
	"size":   {Column: clause.Column{Name: "size"}},
	"-size":  {Column: clause.Column{Name: "size"}, Desc: true},
}

type Sorter struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

type SorterGroup struct {
	Title   string   `json:"title"`
	Sorters []Sorter `json:"sorters"`
}

// Sorters is the sort menu shown above product lists.
func Sorters() []SorterGroup {
	return []SorterGroup{
		{Title: "By price", Sorters: []Sorter{{"price", "Ascending"}, {"-price", "Descending"}}},
		{Title: "By color", Sorters: []Sorter{{"color", "A to Z"}, {"-color", "Z to A"}}},
		{Title: "By size", Sorters: []Sorter{{"size", "Ascending"}, {"-size", "Descending"}}},
	}
}

type ProductFilter struct {
	CategoryIDs []uint
	Sort        string
	Skip        int
	Limit       int // 0 means no limit
}

// ListProducts returns one page of products and the total matching the filter.
func (s *Store) ListProducts(ctx context.Context, f ProductFilter) ([]models.Product, int64, error) {
	order, ok := sortColumns[f.Sort]
	if f.Sort != "" && !ok {
		return nil, 0, fmt.Errorf("%w: %q", ErrInvalidSort, f.Sort)
	}

	q := s.db.WithContext(ctx).Model(&models.Product{})
	if f.CategoryIDs != nil {
		q = q.Where("category_id IN ?", f.CategoryIDs)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if ok {
		q = q.Order(order)
	}
	q = q.Order("id")
	if f.Skip > 0 {
		q = q.Offset(f.Skip)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var products []models.Product
	if err := q.Preload("Images", orderByID).Find(&products).Error; err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func orderByID(db *gorm.DB) *gorm.DB {
	return db.Order("id")
}

func (s *Store) ProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	var p models.Product
	err := s.db.WithContext(ctx).Preload("Images", orderByID).Preload("Category").
		Where("slug = ?", slug).First(&p).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (s *Store) ProductByID(ctx context.Context, id uint) (*models.Product, error) {
	var p models.Product
	if err := s.db.WithContext(ctx).Preload("Images", orderByID).First(&p, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// RelatedProducts returns other products of the same category.
func (s *Store) RelatedProducts(ctx context.Context, p *models.Product, limit int) ([]models.Product, error) {
	var related []models.Product
	err := s.db.WithContext(ctx).Preload("Images", orderByID).
		Where("category_id = ? AND id <> ?", p.CategoryID, p.ID).
		Order("id").Limit(limit).Find(&related).Error
	return related, err
}

func (s *Store) Reviews(ctx context.Context, productID uint) ([]models.Review, error) {
	var reviews []models.Review
	err := s.db.WithContext(ctx).Preload("Author").
		Where("product_id = ?", productID).
		Order("created_at DESC").Order("id DESC").
		Find(&reviews).Error
	return reviews, err
}

// AddReview stores a review by userID on productID.
func (s *Store) AddReview(ctx context.Context, userID, productID uint, text string) (*models.Review, error) {
	review := models.Review{Text: text, AuthorID: userID, ProductID: productID}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Product{}).Where("id = ?", productID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrNotFound
		}
		return tx.Create(&review).Error
	})
	if err != nil {
		return nil, err
	}
	return &review, nil
}
