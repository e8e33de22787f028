package routes

import (
	"context"
	"errors"
	"log/slog"

	"storefront/export"
	"storefront/forms"
	"storefront/media"
	"storefront/store"

	"github.com/gofiber/fiber/v2"
)

func (h *Handler) stats(c *fiber.Ctx) error {
	stats, err := h.store.Stats(c.UserContext())
	if err != nil {
		return storeError(c, err, "Statistics")
	}
	return c.JSON(stats)
}

func (h *Handler) exportProducts(c *fiber.Ctx) error {
	products, err := h.store.AllProducts(c.UserContext())
	if err != nil {
		return storeError(c, err, "Product")
	}
	c.Set(fiber.HeaderContentType, export.ContentType)
	c.Attachment("products.xlsx")
	return export.WriteProducts(c.Response().BodyWriter(), products)
}

func (h *Handler) createCategory(c *fiber.Ctx) error {
	var form forms.CategoryForm
	if err := forms.Bind(c, &form); err != nil {
		return bindError(c, err)
	}

	category := form.Model()
	err := h.store.CreateCategory(c.UserContext(), category)
	if errors.Is(err, store.ErrNotFound) {
		return fieldErrors(c, forms.FieldErrors{"parent_id": "Select a valid choice. That choice is not one of the available choices."})
	}
	if err != nil {
		return storeError(c, err, "Category")
	}
	return c.Status(fiber.StatusCreated).JSON(categoryResponse(*category))
}

func (h *Handler) moveCategory(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var form forms.MoveCategoryForm
	if err := forms.Bind(c, &form); err != nil {
		return bindError(c, err)
	}

	ctx := c.UserContext()
	err = h.store.MoveCategory(ctx, id, form.ParentID)
	if errors.Is(err, store.ErrUnknownParent) {
		return fieldErrors(c, forms.FieldErrors{"parent_id": "Select a valid choice. That choice is not one of the available choices."})
	}
	if err != nil {
		return storeError(c, err, "Category")
	}
	category, err := h.store.CategoryByID(ctx, id)
	if err != nil {
		return storeError(c, err, "Category")
	}
	return c.JSON(categoryResponse(*category))
}

func (h *Handler) createProduct(c *fiber.Ctx) error {
	var form forms.ProductForm
	if err := forms.Bind(c, &form); err != nil {
		return bindError(c, err)
	}

	product := form.Model()
	err := h.store.CreateProduct(c.UserContext(), product)
	if errors.Is(err, store.ErrNotFound) {
		return fieldErrors(c, forms.FieldErrors{"category_id": "Select a valid choice. That choice is not one of the available choices."})
	}
	if err != nil {
		return storeError(c, err, "Product")
	}

	// reload for the column defaults
	created, err := h.store.ProductByID(c.UserContext(), product.ID)
	if err != nil {
		return storeError(c, err, "Product")
	}
	return c.Status(fiber.StatusCreated).JSON(productResponse(*created))
}

// saveUpload stores the multipart "image" file and returns its public URL.
func (h *Handler) saveUpload(c *fiber.Ctx) (string, error) {
	if h.media == nil {
		return "", fiber.NewError(fiber.StatusServiceUnavailable, "Uploads are not configured")
	}
	header, err := c.FormFile("image")
	if err != nil {
		return "", fiber.NewError(fiber.StatusBadRequest, "Failed to get uploaded file")
	}
	file, err := header.Open()
	if err != nil {
		return "", fiber.NewError(fiber.StatusBadRequest, "Failed to read uploaded file")
	}
	defer file.Close()

	url, err := h.media.Save(file, header.Filename)
	if errors.Is(err, media.ErrUnsupportedImage) {
		return "", fiber.NewError(fiber.StatusBadRequest, "Only PNG and JPEG images are supported")
	}
	if errors.Is(err, media.ErrCorruptImage) {
		return "", fiber.NewError(fiber.StatusBadRequest, "Uploaded file is not a valid image")
	}
	if err != nil {
		slog.Error("Failed to save upload", "filename", header.Filename, "error", err)
		return "", fiber.NewError(fiber.StatusInternalServerError, "Failed to save file")
	}
	return url, nil
}

func (h *Handler) uploadProductImage(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if _, err := h.store.ProductByID(c.UserContext(), id); err != nil {
		return storeError(c, err, "Product")
	}
	url, err := h.saveUpload(c)
	if err != nil {
		return err
	}

	image, err := h.store.AddGalleryImage(c.UserContext(), id, url)
	if err != nil {
		return storeError(c, err, "Product")
	}
	return c.Status(fiber.StatusCreated).JSON(image)
}

func (h *Handler) uploadCategoryImage(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if _, err := h.store.CategoryByID(c.UserContext(), id); err != nil {
		return storeError(c, err, "Category")
	}
	url, err := h.saveUpload(c)
	if err != nil {
		return err
	}

	if err := h.store.SetCategoryImage(c.UserContext(), id, url); err != nil {
		return storeError(c, err, "Category")
	}
	return c.JSON(fiber.Map{
		"image": url,
	})
}

func (h *Handler) deleteProduct(c *fiber.Ctx) error {
	return h.deleteByID(c, "Product", h.store.DeleteProduct)
}

func (h *Handler) deleteCategory(c *fiber.Ctx) error {
	return h.deleteByID(c, "Category", h.store.DeleteCategory)
}

func (h *Handler) deleteCustomer(c *fiber.Ctx) error {
	return h.deleteByID(c, "Customer", h.store.DeleteCustomer)
}

func (h *Handler) deleteByID(c *fiber.Ctx, what string, del func(ctx context.Context, id uint) error) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := del(c.UserContext(), id); err != nil {
		return storeError(c, err, what)
	}
	slog.Info(what+" deleted", "id", id)
	return c.JSON(fiber.Map{
		"success": true,
		"message": what + " deleted successfully",
	})
}
