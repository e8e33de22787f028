package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"storefront/auth"
	"storefront/config"
	"storefront/db"
	"storefront/mail"
	"storefront/media"
	"storefront/models"
	"storefront/notify"
	"storefront/payment"
	"storefront/store"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

const webhookSecret = "hook-secret"

type fakeProvider struct {
	mu        sync.Mutex
	status    payment.Status
	createErr error
	checkErr  error
	sessions  []payment.SessionRequest
	checks    []string
}

func (f *fakeProvider) CreateSession(_ context.Context, req payment.SessionRequest) (payment.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions = append(f.sessions, req)
	if f.createErr != nil {
		return payment.Session{}, f.createErr
	}
	return payment.Session{Ref: "ref-" + req.CartID, URL: "https://pay.example/" + req.CartID}, nil
}

func (f *fakeProvider) Check(_ context.Context, ref string) (payment.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checks = append(f.checks, ref)
	status := f.status
	if status.Amount.IsZero() && status.Currency == "" {
		// charged what the latest session for the ref asked for
		for _, req := range f.sessions {
			if "ref-"+req.CartID == ref {
				status.Amount, status.Currency = req.Amount, req.Currency
			}
		}
	}
	return status, f.checkErr
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []mail.Message
}

func (f *fakeMailer) Send(_ context.Context, msg mail.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeMailer) messages() []mail.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]mail.Message(nil), f.sent...)
}

type testEnv struct {
	t        *testing.T
	app      *fiber.App
	handler  *Handler
	store    *store.Store
	tokens   *auth.Manager
	provider *fakeProvider
	mailer   *fakeMailer
	hub      *notify.Hub

	rings models.Category
	ring  models.Product
	chain models.Product
	dubai models.City
	ctx   context.Context
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	gdb, err := db.InitDatabase(db.Options{Path: filepath.Join(dir, "shop.db")})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	storage, err := media.NewStorage(filepath.Join(dir, "uploads"), "/uploads", 100)
	require.NoError(t, err)

	cfg := &config.Config{
		UploadDir: storage.Dir(),
		UploadURL: "/uploads",
		Payment:   config.PaymentConfig{Currency: "AED", WebhookSecret: webhookSecret},
		Mail:      config.MailConfig{BatchSize: 2, Attempts: 1},
	}
	env := &testEnv{
		t:        t,
		store:    store.New(gdb),
		tokens:   auth.NewManager([]byte("test-secret"), time.Hour),
		provider: &fakeProvider{},
		mailer:   &fakeMailer{},
		hub:      notify.NewHub(),
		ctx:      context.Background(),
	}
	env.handler = NewHandler(Deps{
		Store:    env.store,
		Tokens:   env.tokens,
		Payments: env.provider,
		Mailer:   env.mailer,
		Media:    storage,
		Hub:      env.hub,
		Config:   cfg,
	})
	env.app = NewApp(env.handler)
	go env.hub.Run()
	t.Cleanup(env.hub.Close)
	t.Cleanup(env.handler.Wait)

	env.seed()
	return env
}

func (e *testEnv) seed() {
	t := e.t
	slug := func(s string) *string { return &s }

	jewelry := models.Category{Title: "Jewelry", Slug: slug("jewelry")}
	require.NoError(t, e.store.CreateCategory(e.ctx, &jewelry))
	e.rings = models.Category{Title: "Rings", Slug: slug("rings"), ParentID: &jewelry.ID}
	require.NoError(t, e.store.CreateCategory(e.ctx, &e.rings))

	e.ring = models.Product{Title: "Ring", Slug: slug("ring"), Price: 10, Quantity: 5, CategoryID: e.rings.ID, Color: "Gold", Size: 18}
	require.NoError(t, e.store.CreateProduct(e.ctx, &e.ring))
	e.chain = models.Product{Title: "Chain", Slug: slug("chain"), Price: 5, Quantity: 5, CategoryID: jewelry.ID, Size: 45}
	require.NoError(t, e.store.CreateProduct(e.ctx, &e.chain))

	e.dubai = models.City{CityName: "Dubai"}
	require.NoError(t, e.store.DB().Create(&e.dubai).Error)
}

// user creates an account and returns a bearer token for it.
func (e *testEnv) user(name string, staff bool) (*models.User, string) {
	e.t.Helper()
	hash, err := auth.HashPassword("password123")
	require.NoError(e.t, err)
	u, err := e.store.CreateUser(e.ctx, name, hash, staff)
	require.NoError(e.t, err)
	token, _, err := e.tokens.Issue(u)
	require.NoError(e.t, err)
	return u, token
}

// request sends a JSON body (when body is not nil) with an optional token.
func (e *testEnv) request(method, path string, body any, token string) *http.Response {
	e.t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	return e.send(req, token)
}

func (e *testEnv) send(req *http.Request, token string) *http.Response {
	e.t.Helper()
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(e.t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields"`
}

func errorOf(t *testing.T, resp *http.Response) errorBody {
	t.Helper()
	var body errorBody
	decode(t, resp, &body)
	return body
}

type productBody struct {
	ID         uint    `json:"id"`
	Title      string  `json:"title"`
	Price      float64 `json:"price"`
	Color      string  `json:"color"`
	Size       int     `json:"size"`
	CoverImage string  `json:"cover_image"`
}

type cartBody struct {
	ID            uint   `json:"id"`
	IsCompleted   bool   `json:"is_completed"`
	TotalPrice    string `json:"total_price"`
	TotalQuantity int    `json:"total_quantity"`
	Items         []struct {
		Quantity   int          `json:"quantity"`
		TotalPrice string       `json:"total_price"`
		Product    *productBody `json:"product"`
	} `json:"items"`
}
