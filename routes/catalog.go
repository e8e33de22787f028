package routes

import (
	"storefront/auth"
	"storefront/store"

	"github.com/gofiber/fiber/v2"
)

const relatedLimit = 4

// pageParams reads skip and limit the way every list route does.
func pageParams(c *fiber.Ctx) (skip, limit int, err error) {
	skip = c.QueryInt("skip", 0)
	if skip < 0 {
		return 0, 0, fiber.NewError(fiber.StatusBadRequest, "Invalid skip parameter")
	}
	limit = c.QueryInt("limit", 0)
	if limit < 0 {
		return 0, 0, fiber.NewError(fiber.StatusBadRequest, "Invalid limit parameter")
	}
	return skip, limit, nil
}

func (h *Handler) listProducts(c *fiber.Ctx) error {
	skip, limit, err := pageParams(c)
	if err != nil {
		return err
	}
	sort := c.Query("sort")

	products, total, err := h.store.ListProducts(c.UserContext(), store.ProductFilter{
		Sort:  sort,
		Skip:  skip,
		Limit: limit,
	})
	if err != nil {
		return storeError(c, err, "Product")
	}

	return c.JSON(ProductListResponse{
		Products: productResponses(products),
		Total:    total,
		Skip:     skip,
		Limit:    limit,
		Sort:     sort,
	})
}

func (h *Handler) sorters(c *fiber.Ctx) error {
	return c.JSON(store.Sorters())
}

// categoryDetail shows a category, its direct subcategories and the products
// of the whole subtree.
func (h *Handler) categoryDetail(c *fiber.Ctx) error {
	ctx := c.UserContext()
	category, err := h.store.CategoryBySlug(ctx, c.Params("slug"))
	if err != nil {
		return storeError(c, err, "Category")
	}

	subcategories, err := store.Collect(h.store.Subcategories(ctx, category.ID))
	if err != nil {
		return storeError(c, err, "Category")
	}

	ids, err := h.store.DescendantIDs(ctx, category.ID)
	if err != nil {
		return storeError(c, err, "Category")
	}

	skip, limit, err := pageParams(c)
	if err != nil {
		return err
	}
	sort := c.Query("sort")
	products, total, err := h.store.ListProducts(ctx, store.ProductFilter{
		CategoryIDs: ids,
		Sort:        sort,
		Skip:        skip,
		Limit:       limit,
	})
	if err != nil {
		return storeError(c, err, "Product")
	}

	return c.JSON(fiber.Map{
		"category":      categoryResponse(*category),
		"subcategories": categoryResponses(subcategories),
		"products": ProductListResponse{
			Products: productResponses(products),
			Total:    total,
			Skip:     skip,
			Limit:    limit,
			Sort:     sort,
		},
	})
}

func (h *Handler) productDetail(c *fiber.Ctx) error {
	ctx := c.UserContext()
	product, err := h.store.ProductBySlug(ctx, c.Params("slug"))
	if err != nil {
		return storeError(c, err, "Product")
	}

	reviews, err := h.store.Reviews(ctx, product.ID)
	if err != nil {
		return storeError(c, err, "Product")
	}
	related, err := h.store.RelatedProducts(ctx, product, relatedLimit)
	if err != nil {
		return storeError(c, err, "Product")
	}

	favorite := false
	if claims, ok := auth.CurrentUser(c); ok {
		if favorite, err = h.store.IsFavorite(ctx, claims.UserID, product.ID); err != nil {
			return storeError(c, err, "Product")
		}
	}

	return c.JSON(fiber.Map{
		"product":     productResponse(*product),
		"reviews":     reviews,
		"related":     productResponses(related),
		"is_favorite": favorite,
	})
}

// topCategories feeds the storefront menu.
func (h *Handler) topCategories(c *fiber.Ctx) error {
	categories, err := store.Collect(h.store.TopCategories(c.UserContext()))
	if err != nil {
		return storeError(c, err, "Category")
	}
	return c.JSON(categoryResponses(categories))
}

func (h *Handler) cities(c *fiber.Ctx) error {
	cities, err := h.store.Cities(c.UserContext())
	if err != nil {
		return storeError(c, err, "City")
	}
	return c.JSON(cities)
}
