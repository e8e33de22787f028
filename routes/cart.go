package routes

import (
	"storefront/store"

	"github.com/gofiber/fiber/v2"
)

func (h *Handler) cart(c *fiber.Ctx) error {
	order, err := h.store.Cart(c.UserContext(), currentUserID(c))
	if err != nil {
		return storeError(c, err, "Cart")
	}
	return c.JSON(cartResponse(order))
}

// toCart applies add, remove or delete to one product of the cart.
func (h *Handler) toCart(c *fiber.Ctx) error {
	productID, err := paramID(c, "product_id")
	if err != nil {
		return err
	}
	action, err := store.ParseCartAction(c.Params("action"))
	if err != nil {
		return storeError(c, err, "Product")
	}

	order, err := h.store.UpdateCart(c.UserContext(), currentUserID(c), productID, action)
	if err != nil {
		return storeError(c, err, "Product")
	}
	return c.JSON(cartResponse(order))
}

// orders lists the user's completed orders, newest first.
func (h *Handler) orders(c *fiber.Ctx) error {
	orders, err := h.store.CustomerOrders(c.UserContext(), currentUserID(c))
	if err != nil {
		return storeError(c, err, "Order")
	}
	out := make([]CartResponse, 0, len(orders))
	for i := range orders {
		out = append(out, cartResponse(&orders[i]))
	}
	return c.JSON(out)
}

func (h *Handler) clearCart(c *fiber.Ctx) error {
	if err := h.store.ClearCart(c.UserContext(), currentUserID(c)); err != nil {
		return storeError(c, err, "Cart")
	}
	return c.JSON(fiber.Map{
		"message": "Cart cleared",
	})
}
