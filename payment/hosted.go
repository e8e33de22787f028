package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type Config struct {
	APIURL      string
	StoreID     int
	AuthKey     string
	TestMode    bool
	SuccessURL  string
	DeclinedURL string
	CancelURL   string
	Attempts    int
	Timeout     time.Duration
	Backoff     time.Duration
}

// Hosted is a client of a Telr style hosted payment page API.
type Hosted struct {
	cfg Config
}

func NewHosted(cfg Config) (*Hosted, error) {
	if cfg.APIURL == "" || cfg.StoreID == 0 || cfg.AuthKey == "" {
		return nil, ErrNotConfigured
	}
	if cfg.Attempts < 1 {
		cfg.Attempts = 3
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Backoff == 0 {
		cfg.Backoff = 200 * time.Millisecond
	}
	return &Hosted{cfg: cfg}, nil
}

type apiOrder struct {
	Ref      string `json:"ref"`
	URL      string `json:"url"`
	CartID   string `json:"cartid"`
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
	Status   struct {
		Code int    `json:"code"`
		Text string `json:"text"`
	} `json:"status"`
}

type apiResponse struct {
	Order apiOrder `json:"order"`
	Error *struct {
		Message string `json:"message"`
		Note    string `json:"note"`
	} `json:"error,omitempty"`
}

func (h *Hosted) CreateSession(ctx context.Context, req SessionRequest) (Session, error) {
	payload := fiber.Map{
		"method":  "create",
		"store":   h.cfg.StoreID,
		"authkey": h.cfg.AuthKey,
		"order": fiber.Map{
			"cartid":      req.CartID,
			"test":        testFlag(h.cfg.TestMode),
			"amount":      req.Amount.StringFixed(2),
			"currency":    req.Currency,
			"description": req.Description,
		},
		"customer": fiber.Map{
			"name":  req.Customer.Name,
			"email": req.Customer.Email,
			"phone": req.Customer.Phone,
			"address": fiber.Map{
				"line1":   req.Customer.Address,
				"city":    req.Customer.City,
				"region":  req.Customer.Region,
				"country": req.Customer.Country,
			},
		},
		"return": fiber.Map{
			"authorised": h.cfg.SuccessURL,
			"declined":   h.cfg.DeclinedURL,
			"cancelled":  h.cfg.CancelURL,
		},
	}

	resp, err := h.call(ctx, payload)
	if err != nil {
		return Session{}, err
	}
	if resp.Order.URL == "" || resp.Order.Ref == "" {
		return Session{}, fmt.Errorf("%w: empty payment url", ErrRejected)
	}
	slog.Info("Payment session created", "cart_id", req.CartID, "ref", resp.Order.Ref)
	return Session{Ref: resp.Order.Ref, URL: resp.Order.URL}, nil
}

func (h *Hosted) Check(ctx context.Context, ref string) (Status, error) {
	resp, err := h.call(ctx, fiber.Map{
		"method":  "check",
		"store":   h.cfg.StoreID,
		"authkey": h.cfg.AuthKey,
		"order":   fiber.Map{"ref": ref},
	})
	if err != nil {
		return Status{}, err
	}
	status := Status{
		Code:     resp.Order.Status.Code,
		Text:     resp.Order.Status.Text,
		CartID:   resp.Order.CartID,
		Currency: resp.Order.Currency,
	}
	if resp.Order.Amount != "" {
		if status.Amount, err = decimal.NewFromString(resp.Order.Amount); err != nil {
			return Status{}, fmt.Errorf("parse payment amount %q: %w", resp.Order.Amount, err)
		}
	}
	return status, nil
}

// call posts the payload, retrying transport failures and 5xx answers.
// Both API methods are idempotent for the same cart id or ref.
func (h *Hosted) call(ctx context.Context, payload fiber.Map) (*apiResponse, error) {
	var lastErr error
	for attempt := 0; attempt < h.cfg.Attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(h.cfg.Backoff << (attempt - 1)):
			}
		}

		resp, retry, err := h.post(payload)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !retry {
			break
		}
		slog.Warn("Payment provider call failed", "method", payload["method"], "attempt", attempt+1, "error", err)
	}
	return nil, lastErr
}

func (h *Hosted) post(payload fiber.Map) (*apiResponse, bool, error) {
	agent := fiber.Post(h.cfg.APIURL)
	agent.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)
	agent.Timeout(h.cfg.Timeout)
	agent.JSON(payload)

	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return nil, true, fmt.Errorf("reach payment provider: %w", errors.Join(errs...))
	}
	if code >= fiber.StatusInternalServerError {
		return nil, true, fmt.Errorf("payment provider status %d", code)
	}
	if code != fiber.StatusOK {
		return nil, false, fmt.Errorf("%w: status %d: %s", ErrRejected, code, body)
	}

	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, false, fmt.Errorf("parse payment response: %w", err)
	}
	if resp.Error != nil {
		return nil, false, fmt.Errorf("%w: %s", ErrRejected, resp.Error.Message)
	}
	return &resp, false, nil
}

func testFlag(on bool) int {
	if on {
		return 1
	}
	return 0
}
