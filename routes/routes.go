package routes

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"

	"storefront/auth"
	"storefront/config"
	"storefront/forms"
	"storefront/mail"
	"storefront/media"
	"storefront/notify"
	"storefront/payment"
	"storefront/store"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"
)

// Handler carries the collaborators of every route.
type Handler struct {
	store    *store.Store
	tokens   *auth.Manager
	payments payment.Provider // nil when the provider is not configured
	mailer   mail.Sender
	media    *media.Storage
	hub      *notify.Hub
	cfg      *config.Config

	jobs sync.WaitGroup
}

type Deps struct {
	Store    *store.Store
	Tokens   *auth.Manager
	Payments payment.Provider
	Mailer   mail.Sender
	Media    *media.Storage
	Hub      *notify.Hub
	Config   *config.Config
}

func NewHandler(d Deps) *Handler {
	if d.Mailer == nil {
		d.Mailer = mail.LogSender{}
	}
	return &Handler{
		store:    d.Store,
		tokens:   d.Tokens,
		payments: d.Payments,
		mailer:   d.Mailer,
		media:    d.Media,
		hub:      d.Hub,
		cfg:      d.Config,
	}
}

// NewApp builds the Fiber app with middleware, static uploads and all routes.
func NewApp(h *Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: errorHandler,
		BodyLimit:    10 * 1024 * 1024,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New())

	if h.media != nil {
		app.Static(h.cfg.UploadURL, h.media.Dir())
	}

	SetupRoutes(app, h)
	return app
}

func SetupRoutes(app *fiber.App, h *Handler) {
	app.Use(auth.Load(h.tokens))
	user := auth.RequireUser()
	staff := auth.RequireStaff()

	// Catalog
	app.Get("/", h.listProducts)
	app.Get("/sorters", h.sorters)
	app.Get("/categories", h.topCategories)
	app.Get("/category/:slug", h.categoryDetail)
	app.Get("/product/:slug", h.productDetail)
	app.Get("/cities", h.cities)

	// Accounts
	app.Get("/login_registration", h.loginRegistration)
	app.Post("/login", h.login)
	app.Post("/logout", h.logout)
	app.Post("/register", h.register)
	app.Post("/save_review/:product_id", user, h.saveReview)
	app.Post("/add_favorite/:product_slug", user, h.toggleFavorite)
	app.Get("/favorite", user, h.favorites)
	app.Post("/save_mail", h.saveMail)
	app.Post("/send_mail", staff, h.sendMail)

	// Cart and checkout
	app.Get("/cart", user, h.cart)
	app.Post("/to_cart/:product_id/:action", user, h.toCart)
	app.Post("/clear_cart", user, h.clearCart)
	app.Get("/checkout", user, h.checkoutPage)
	app.Post("/checkout", user, h.saveCheckout)
	app.Post("/payment", user, h.createPayment)
	app.Get("/payment_success", user, h.paymentSuccess)
	app.Get("/orders", user, h.orders)
	app.Post("/payment/webhook", h.paymentWebhook)

	// Admin
	admin := app.Group("/admin", staff)
	admin.Get("/stats", h.stats)
	admin.Get("/products/export", h.exportProducts)
	admin.Post("/categories", h.createCategory)
	admin.Patch("/categories/:id", h.moveCategory)
	admin.Post("/categories/:id/image", h.uploadCategoryImage)
	admin.Delete("/categories/:id", h.deleteCategory)
	admin.Post("/products", h.createProduct)
	admin.Post("/products/:id/images", h.uploadProductImage)
	admin.Delete("/products/:id", h.deleteProduct)
	admin.Delete("/customers/:id", h.deleteCustomer)

	if h.hub != nil {
		app.Get("/ws/orders", staff, h.hub.Handler())
	}
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	} else {
		slog.Error("Unhandled error", "method", c.Method(), "path", c.Path(), "error", err)
	}
	return c.Status(code).JSON(fiber.Map{
		"error": message,
	})
}

// bindError answers a failed forms.Bind.
func bindError(c *fiber.Ctx, err error) error {
	var fields forms.FieldErrors
	if errors.As(err, &fields) {
		return fieldErrors(c, fields)
	}
	if errors.Is(err, forms.ErrMalformed) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Failed to parse request body",
		})
	}
	return err
}

func fieldErrors(c *fiber.Ctx, fields forms.FieldErrors) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error":  "Validation failed",
		"fields": fields,
	})
}

// storeError maps store errors to responses. what names the looked up
// thing in not found messages.
func storeError(c *fiber.Ctx, err error, what string) error {
	status := fiber.StatusInternalServerError
	message := ""
	switch {
	case errors.Is(err, store.ErrNotFound):
		status, message = fiber.StatusNotFound, what+" not found"
	case errors.Is(err, store.ErrInvalidSort), errors.Is(err, store.ErrInvalidAction):
		status, message = fiber.StatusBadRequest, err.Error()
	case errors.Is(err, store.ErrInsufficientStock):
		status, message = fiber.StatusConflict, "Not enough items in stock"
	case errors.Is(err, store.ErrEmptyCart):
		status, message = fiber.StatusBadRequest, "Your cart is empty"
	case errors.Is(err, store.ErrOrderCompleted):
		status, message = fiber.StatusConflict, "Order already completed"
	case errors.Is(err, store.ErrNoPayment):
		status, message = fiber.StatusBadRequest, "No payment in progress"
	case errors.Is(err, store.ErrAmountMismatch):
		status, message = fiber.StatusConflict, "Payment does not match the order"
	case errors.Is(err, store.ErrCategoryCycle):
		status, message = fiber.StatusBadRequest, err.Error()
	case errors.Is(err, gorm.ErrDuplicatedKey):
		status, message = fiber.StatusConflict, what+" already exists"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status, message = fiber.StatusServiceUnavailable, "Request cancelled"
	default:
		slog.Error("Store error", "path", c.Path(), "error", err)
		message = "Internal server error"
	}
	return c.Status(status).JSON(fiber.Map{
		"error": message,
	})
}

// paramID parses a positive integer route parameter.
func paramID(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Invalid "+name+" parameter")
	}
	return uint(id), nil
}

func currentUserID(c *fiber.Ctx) uint {
	claims, _ := auth.CurrentUser(c)
	return claims.UserID
}
