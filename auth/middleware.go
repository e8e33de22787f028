package auth

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

const (
	CookieName = "token"
	localsKey  = "user"
)

// Load reads the token from the cookie or the Authorization header and, when
// valid, stores the claims for CurrentUser. Requests without a valid token
// pass through anonymous.
func Load(m *Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Cookies(CookieName)
		if token == "" {
			if h := c.Get(fiber.HeaderAuthorization); strings.HasPrefix(h, "Bearer ") {
				token = strings.TrimPrefix(h, "Bearer ")
			}
		}
		if token != "" {
			if claims, err := m.Parse(token); err == nil {
				c.Locals(localsKey, claims)
			}
		}
		return c.Next()
	}
}

// CurrentUser returns the identity loaded for this request, if any.
func CurrentUser(c *fiber.Ctx) (*Claims, bool) {
	claims, ok := c.Locals(localsKey).(*Claims)
	return claims, ok && claims != nil
}

func RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := CurrentUser(c); !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authentication required",
			})
		}
		return c.Next()
	}
}

func RequireStaff() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := CurrentUser(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authentication required",
			})
		}
		if !claims.Staff {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Staff access required",
			})
		}
		return c.Next()
	}
}

func SetCookie(c *fiber.Ctx, token string, expires time.Time, secure bool) {
	c.Cookie(&fiber.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HTTPOnly: true,
		Secure:   secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func ClearCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
