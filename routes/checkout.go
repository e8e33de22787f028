package routes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"storefront/forms"
	"storefront/mail"
	"storefront/models"
	"storefront/notify"
	"storefront/payment"
	"storefront/store"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

const confirmationTimeout = 2 * time.Minute

func (h *Handler) checkoutPage(c *fiber.Ctx) error {
	ctx := c.UserContext()
	order, err := h.store.Cart(ctx, currentUserID(c))
	if err != nil {
		return storeError(c, err, "Cart")
	}
	cities, err := h.store.Cities(ctx)
	if err != nil {
		return storeError(c, err, "City")
	}

	var shipping *models.ShippingAddress
	shipping, err = h.store.ShippingFor(ctx, order.ID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return storeError(c, err, "Shipping address")
	}

	return c.JSON(fiber.Map{
		"cart":     cartResponse(order),
		"cities":   cities,
		"shipping": shipping,
	})
}

func (h *Handler) saveCheckout(c *fiber.Ctx) error {
	var customer forms.CustomerForm
	var shipping forms.ShippingForm
	if err := forms.Bind(c, &customer, &shipping); err != nil {
		return bindError(c, err)
	}

	address, err := h.store.SaveCheckout(c.UserContext(), currentUserID(c), forms.CheckoutInput(customer, shipping))
	if errors.Is(err, store.ErrUnknownCity) {
		return fieldErrors(c, forms.FieldErrors{
			"city": "Select a valid choice. That choice is not one of the available choices.",
		})
	}
	if err != nil {
		return storeError(c, err, "Cart")
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":  "Checkout details saved",
		"shipping": address,
	})
}

// createPayment opens a hosted payment session for the cart. The order stays
// open until the provider confirms the payment.
func (h *Handler) createPayment(c *fiber.Ctx) error {
	if h.payments == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Payment is not configured",
		})
	}
	ctx := c.UserContext()
	userID := currentUserID(c)

	order, err := h.store.Cart(ctx, userID)
	if err != nil {
		return storeError(c, err, "Cart")
	}
	if order.CartTotalQuantity() == 0 {
		return storeError(c, store.ErrEmptyCart, "Cart")
	}
	shipping, err := h.store.ShippingFor(ctx, order.ID)
	if errors.Is(err, store.ErrNotFound) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Checkout details are required",
		})
	}
	if err != nil {
		return storeError(c, err, "Shipping address")
	}

	email, err := h.store.EmailForUser(ctx, userID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return storeError(c, err, "Mail")
	}

	session, err := h.payments.CreateSession(ctx, payment.SessionRequest{
		CartID:      order.CartRef,
		Amount:      order.CartTotalPrice(),
		Currency:    h.cfg.Payment.Currency,
		Description: fmt.Sprintf("Order #%d", order.ID),
		Customer:    paymentCustomer(order, shipping, email),
	})
	if err != nil {
		slog.Error("Failed to create payment session", "order_id", order.ID, "error", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Payment provider unavailable",
		})
	}

	if err := h.store.BeginPayment(ctx, order.ID, session.Ref, order.CartTotalPrice()); err != nil {
		return storeError(c, err, "Order")
	}
	h.publish(notify.EventPaymentStart, order)

	return c.JSON(fiber.Map{
		"url": session.URL,
		"ref": session.Ref,
	})
}

func paymentCustomer(order *models.Order, shipping *models.ShippingAddress, email string) payment.Customer {
	customer := payment.Customer{
		Email:   email,
		Phone:   shipping.Phone,
		Address: shipping.Address,
		Region:  shipping.State,
	}
	if order.Customer != nil {
		customer.Name = strings.TrimSpace(order.Customer.FirstName + " " + order.Customer.LastName)
	}
	if shipping.City != nil {
		customer.City = shipping.City.CityName
	}
	return customer
}

// paymentSuccess is where the provider sends the buyer back. The payment is
// checked with the provider before the order is completed.
func (h *Handler) paymentSuccess(c *fiber.Ctx) error {
	ctx := c.UserContext()
	order, err := h.store.LastPaymentOrder(ctx, currentUserID(c))
	if errors.Is(err, store.ErrNotFound) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No payment in progress",
		})
	}
	if err != nil {
		return storeError(c, err, "Order")
	}
	if order.IsCompleted {
		return c.JSON(fiber.Map{
			"message": "Order already completed",
			"order":   cartResponse(order),
		})
	}

	if h.payments == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Payment is not configured",
		})
	}
	status, err := h.payments.Check(ctx, order.PaymentRef)
	if err != nil {
		slog.Error("Failed to check payment", "order_id", order.ID, "ref", order.PaymentRef, "error", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Could not confirm payment",
		})
	}
	if !status.Paid() {
		slog.Info("Payment not confirmed", "order_id", order.ID, "code", status.Code, "status", status.Text)
		return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
			"error":  "Payment not confirmed",
			"status": status.Text,
		})
	}

	done, err := h.completePaid(ctx, order, status.Amount, status.Currency)
	if errors.Is(err, store.ErrOrderCompleted) {
		return c.JSON(fiber.Map{
			"message": "Order already completed",
			"order":   cartResponse(order),
		})
	}
	if err != nil {
		return storeError(c, err, "Order")
	}
	h.orderPaid(done)

	return c.JSON(fiber.Map{
		"message": "Payment successful",
		"order":   cartResponse(done),
	})
}

// paymentWebhook takes server to server notifications signed with the
// shared secret.
func (h *Handler) paymentWebhook(c *fiber.Ctx) error {
	get := func(key string) string { return c.FormValue(key) }
	if !payment.VerifyWebhook(h.cfg.Payment.WebhookSecret, get) {
		slog.Warn("Rejected payment notification", "ip", c.IP(), "cart_id", get("tran_cartid"))
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Invalid signature",
		})
	}
	if !payment.Approved(get) {
		return c.JSON(fiber.Map{"status": "ignored"})
	}

	amount, currency, err := payment.Charged(get)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	ctx := c.UserContext()
	order, err := h.store.OrderByCartRef(ctx, get("tran_cartid"))
	if err != nil {
		return storeError(c, err, "Order")
	}
	done, err := h.completePaid(ctx, order, amount, currency)
	if errors.Is(err, store.ErrOrderCompleted) {
		return c.JSON(fiber.Map{"status": "already completed"})
	}
	if err != nil {
		return storeError(c, err, "Order")
	}
	h.orderPaid(done)
	return c.JSON(fiber.Map{"status": "completed"})
}

// completePaid completes the order when the provider charged the amount of
// its payment session in the shop currency.
func (h *Handler) completePaid(ctx context.Context, order *models.Order, amount decimal.Decimal, currency string) (*models.Order, error) {
	if !strings.EqualFold(currency, h.cfg.Payment.Currency) {
		slog.Error("Payment in another currency", "order_id", order.ID, "currency", currency)
		return nil, fmt.Errorf("%w: currency %q", store.ErrAmountMismatch, currency)
	}
	done, err := h.store.CompleteOrder(ctx, order.ID, amount)
	if errors.Is(err, store.ErrAmountMismatch) {
		slog.Error("Payment does not match the order", "order_id", order.ID, "error", err)
	}
	return done, err
}

// orderPaid tells admin dashboards and mails the buyer a confirmation.
func (h *Handler) orderPaid(order *models.Order) {
	slog.Info("Order completed", "order_id", order.ID, "total", order.CartTotalPrice().StringFixed(2))
	h.publish(notify.EventOrderPaid, order)

	if order.Customer == nil || order.Customer.UserID == nil {
		return
	}
	userID := *order.Customer.UserID
	name := strings.TrimSpace(order.Customer.FirstName + " " + order.Customer.LastName)
	h.background("order confirmation", confirmationTimeout, func(ctx context.Context) {
		email, err := h.store.EmailForUser(ctx, userID)
		if errors.Is(err, store.ErrNotFound) {
			slog.Info("No email for order confirmation", "order_id", order.ID)
			return
		}
		if err != nil {
			slog.Error("Failed to look up email", "order_id", order.ID, "error", err)
			return
		}
		msg := mail.OrderConfirmation(order, email, name, h.cfg.Payment.Currency)
		if err := h.mailer.Send(ctx, msg); err != nil {
			slog.Error("Failed to send order confirmation", "order_id", order.ID, "error", err)
		}
	})
}

func (h *Handler) publish(event string, order *models.Order) {
	if h.hub == nil {
		return
	}
	h.hub.Publish(notify.OrderEvent{
		Type:          event,
		OrderID:       order.ID,
		TotalPrice:    order.CartTotalPrice().StringFixed(2),
		TotalQuantity: order.CartTotalQuantity(),
	})
}
