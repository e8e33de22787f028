package routes

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"storefront/auth"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == auth.CookieName {
			return c
		}
	}
	return nil
}

func TestRegister(t *testing.T) {
	env := newTestEnv(t)

	resp := env.request(http.MethodPost, "/register", fiber.Map{
		"username": "ann", "password1": "password123", "password2": "password321",
	}, "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := errorOf(t, resp)
	assert.Equal(t, "Validation failed", body.Error)
	assert.Equal(t, "The two password fields didn't match.", body.Fields["password2"])

	resp = env.request(http.MethodPost, "/register", fiber.Map{
		"username": "ann", "password1": "password123", "password2": "password123",
	}, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	cookie := tokenCookie(resp)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	claims, err := env.tokens.Parse(cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, "ann", claims.Username)
	assert.False(t, claims.Staff)

	resp = env.request(http.MethodPost, "/register", fiber.Map{
		"username": "ann", "password1": "password123", "password2": "password123",
	}, "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "A user with that username already exists.", errorOf(t, resp).Fields["username"])
}

func TestLoginAndLogout(t *testing.T) {
	env := newTestEnv(t)
	env.user("ann", false)

	resp := env.request(http.MethodPost, "/login", fiber.Map{"username": "ann", "password": "wrong-password"}, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Invalid username or password", errorOf(t, resp).Error)

	resp = env.request(http.MethodPost, "/login", fiber.Map{"username": "bob", "password": "password123"}, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.request(http.MethodPost, "/login", fiber.Map{"username": "ann"}, "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "This field is required.", errorOf(t, resp).Fields["password"])

	resp = env.request(http.MethodPost, "/login", fiber.Map{"username": "ann", "password": "password123"}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cookie := tokenCookie(resp)
	require.NotNil(t, cookie)

	req := httptest.NewRequest(http.MethodGet, "/login_registration", nil)
	req.AddCookie(cookie)
	resp = env.send(req, "")
	var state struct {
		Authenticated bool `json:"authenticated"`
		User          struct {
			Username string `json:"username"`
		} `json:"user"`
	}
	decode(t, resp, &state)
	assert.True(t, state.Authenticated)
	assert.Equal(t, "ann", state.User.Username)

	resp = env.request(http.MethodPost, "/logout", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cleared := tokenCookie(resp)
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)

	resp = env.request(http.MethodGet, "/login_registration", nil, "")
	decode(t, resp, &state)
	assert.False(t, state.Authenticated)
}

func TestProtectedRoutes(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.user("ann", false)

	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/cart"},
		{http.MethodGet, "/favorite"},
		{http.MethodPost, "/to_cart/1/add"},
		{http.MethodPost, "/checkout"},
		{http.MethodPost, "/payment"},
		{http.MethodGet, "/payment_success"},
		{http.MethodGet, "/orders"},
	} {
		resp := env.request(route.method, route.path, nil, "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, route.path)
	}

	for _, path := range []string{"/admin/stats", "/admin/products/export", "/ws/orders"} {
		resp := env.request(http.MethodGet, path, nil, token)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode, path)
	}

	resp := env.request(http.MethodGet, "/cart", nil, "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestReviews(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.user("ann", false)

	path := fmt.Sprintf("/save_review/%d", env.ring.ID)
	resp := env.request(http.MethodPost, path, fiber.Map{"text": ""}, token)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "This field is required.", errorOf(t, resp).Fields["text"])

	resp = env.request(http.MethodPost, path, fiber.Map{"text": "Shiny"}, token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	reviews, err := env.store.Reviews(env.ctx, env.ring.ID)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, "Shiny", reviews[0].Text)

	resp = env.request(http.MethodPost, "/save_review/999", fiber.Map{"text": "Shiny"}, token)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.request(http.MethodPost, "/save_review/abc", fiber.Map{"text": "Shiny"}, token)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid product_id parameter", errorOf(t, resp).Error)
}

func TestToggleFavorite(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.user("ann", false)

	var state struct {
		Favorite bool `json:"favorite"`
	}
	resp := env.request(http.MethodPost, "/add_favorite/ring", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &state)
	assert.True(t, state.Favorite)

	resp = env.request(http.MethodGet, "/favorite", nil, token)
	var favorites []productBody
	decode(t, resp, &favorites)
	require.Len(t, favorites, 1)
	assert.Equal(t, "Ring", favorites[0].Title)

	resp = env.request(http.MethodPost, "/add_favorite/ring", nil, token)
	decode(t, resp, &state)
	assert.False(t, state.Favorite)

	resp = env.request(http.MethodGet, "/favorite", nil, token)
	decode(t, resp, &favorites)
	assert.Empty(t, favorites)

	resp = env.request(http.MethodPost, "/add_favorite/nope", nil, token)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSubscribeAndBroadcast(t *testing.T) {
	env := newTestEnv(t)
	_, userToken := env.user("ann", false)
	_, staffToken := env.user("boss", true)

	resp := env.request(http.MethodPost, "/save_mail", fiber.Map{"email": "not-an-email"}, "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Enter a valid email address.", errorOf(t, resp).Fields["email"])

	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		resp = env.request(http.MethodPost, "/save_mail", fiber.Map{"email": email}, "")
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}
	resp = env.request(http.MethodPost, "/save_mail", fiber.Map{"email": "A@example.com"}, "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Mail with this Email already exists.", errorOf(t, resp).Fields["email"])

	broadcast := fiber.Map{"subject": "Sale", "message": "Everything half price"}
	resp = env.request(http.MethodPost, "/send_mail", broadcast, userToken)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.request(http.MethodPost, "/send_mail", broadcast, staffToken)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	var started struct {
		Recipients int `json:"recipients"`
	}
	decode(t, resp, &started)
	assert.Equal(t, 3, started.Recipients)

	env.handler.Wait()
	sent := env.mailer.messages()
	require.Len(t, sent, 2) // batches of two
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, sent[0].Bcc)
	assert.Equal(t, []string{"c@example.com"}, sent[1].Bcc)
	assert.Equal(t, "Sale", sent[0].Subject)
}
