package routes

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"storefront/auth"
	"storefront/forms"
	"storefront/mail"
	"storefront/models"
	"storefront/store"

	"github.com/gofiber/fiber/v2"
)

const broadcastTimeout = 30 * time.Minute

func (h *Handler) loginRegistration(c *fiber.Ctx) error {
	claims, ok := auth.CurrentUser(c)
	if !ok {
		return c.JSON(fiber.Map{"authenticated": false})
	}
	return c.JSON(fiber.Map{
		"authenticated": true,
		"user": fiber.Map{
			"id":       claims.UserID,
			"username": claims.Username,
			"is_staff": claims.Staff,
		},
	})
}

func (h *Handler) login(c *fiber.Ctx) error {
	var form forms.LoginForm
	if err := forms.Bind(c, &form); err != nil {
		return bindError(c, err)
	}

	user, err := h.store.UserByUsername(c.UserContext(), form.Username)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return storeError(c, err, "User")
	}
	if user == nil || auth.CheckPassword(user.PasswordHash, form.Password) != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid username or password",
		})
	}

	return h.startSession(c, fiber.StatusOK, user, "Login successful")
}

func (h *Handler) register(c *fiber.Ctx) error {
	var form forms.RegistrationForm
	if err := forms.Bind(c, &form); err != nil {
		return bindError(c, err)
	}

	hash, err := auth.HashPassword(form.Password1)
	if err != nil {
		return err
	}
	user, err := h.store.CreateUser(c.UserContext(), form.Username, hash, false)
	if errors.Is(err, store.ErrUsernameTaken) {
		return fieldErrors(c, forms.FieldErrors{"username": "A user with that username already exists."})
	}
	if err != nil {
		return storeError(c, err, "User")
	}

	slog.Info("User registered", "user_id", user.ID, "username", user.Username)
	return h.startSession(c, fiber.StatusCreated, user, "Registration successful")
}

// startSession issues the auth cookie and answers with the user.
func (h *Handler) startSession(c *fiber.Ctx, status int, user *models.User, message string) error {
	token, expires, err := h.tokens.Issue(user)
	if err != nil {
		return err
	}
	auth.SetCookie(c, token, expires, h.cfg.CookieSecure)
	return c.Status(status).JSON(fiber.Map{
		"message": message,
		"user":    user,
		"token":   token,
	})
}

func (h *Handler) logout(c *fiber.Ctx) error {
	auth.ClearCookie(c)
	return c.JSON(fiber.Map{
		"message": "Logged out",
	})
}

func (h *Handler) saveReview(c *fiber.Ctx) error {
	productID, err := paramID(c, "product_id")
	if err != nil {
		return err
	}
	var form forms.ReviewForm
	if err := forms.Bind(c, &form); err != nil {
		return bindError(c, err)
	}

	review, err := h.store.AddReview(c.UserContext(), currentUserID(c), productID, form.Text)
	if err != nil {
		return storeError(c, err, "Product")
	}
	return c.Status(fiber.StatusCreated).JSON(review)
}

func (h *Handler) toggleFavorite(c *fiber.Ctx) error {
	added, err := h.store.ToggleFavorite(c.UserContext(), currentUserID(c), c.Params("product_slug"))
	if err != nil {
		return storeError(c, err, "Product")
	}
	return c.JSON(fiber.Map{
		"favorite": added,
	})
}

func (h *Handler) favorites(c *fiber.Ctx) error {
	products, err := h.store.Favorites(c.UserContext(), currentUserID(c))
	if err != nil {
		return storeError(c, err, "Product")
	}
	return c.JSON(productResponses(products))
}

func (h *Handler) saveMail(c *fiber.Ctx) error {
	var form forms.MailForm
	if err := forms.Bind(c, &form); err != nil {
		return bindError(c, err)
	}

	var userID *uint
	if claims, ok := auth.CurrentUser(c); ok {
		userID = &claims.UserID
	}
	subscription, err := h.store.Subscribe(c.UserContext(), form.Email, userID)
	if errors.Is(err, store.ErrAlreadySubscribed) {
		return fieldErrors(c, forms.FieldErrors{"email": "Mail with this Email already exists."})
	}
	if err != nil {
		return storeError(c, err, "Mail")
	}
	return c.Status(fiber.StatusCreated).JSON(subscription)
}

// sendMail starts a newsletter broadcast and returns before it finishes.
func (h *Handler) sendMail(c *fiber.Ctx) error {
	var form forms.BroadcastForm
	if err := forms.Bind(c, &form); err != nil {
		return bindError(c, err)
	}

	recipients, err := h.store.Subscribers(c.UserContext())
	if err != nil {
		return storeError(c, err, "Mail")
	}

	msg := mail.Message{Subject: form.Subject, Text: form.Message}
	opts := mail.BroadcastOptions{BatchSize: h.cfg.Mail.BatchSize, Attempts: h.cfg.Mail.Attempts}
	h.background("broadcast", broadcastTimeout, func(ctx context.Context) {
		report := mail.Broadcast(ctx, h.mailer, recipients, msg, opts)
		slog.Info("Broadcast finished", "subject", msg.Subject, "sent", report.Sent, "failed", len(report.Failed))
	})

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"message":    "Mailing started",
		"recipients": len(recipients),
	})
}
