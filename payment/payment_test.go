package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHosted(t *testing.T, url string) *Hosted {
	t.Helper()
	h, err := NewHosted(Config{
		APIURL:     url,
		StoreID:    42,
		AuthKey:    "key",
		TestMode:   true,
		SuccessURL: "http://shop/payment_success",
		Attempts:   3,
		Backoff:    time.Millisecond,
		Timeout:    time.Second,
	})
	require.NoError(t, err)
	return h
}

func TestNewHostedRequiresConfig(t *testing.T) {
	_, err := NewHosted(Config{APIURL: "http://x"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestCreateSession(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"order":{"ref":"R1","url":"https://pay.example/R1"}}`))
	}))
	defer srv.Close()

	session, err := newHosted(t, srv.URL).CreateSession(context.Background(), SessionRequest{
		CartID:   "cart-1",
		Amount:   decimal.RequireFromString("35.5"),
		Currency: "AED",
		Customer: Customer{Name: "Ann Lee"},
	})
	require.NoError(t, err)
	assert.Equal(t, Session{Ref: "R1", URL: "https://pay.example/R1"}, session)

	assert.Equal(t, "create", got["method"])
	assert.EqualValues(t, 42, got["store"])
	order := got["order"].(map[string]any)
	assert.Equal(t, "cart-1", order["cartid"])
	assert.Equal(t, "35.50", order["amount"])
	assert.EqualValues(t, 1, order["test"])
	ret := got["return"].(map[string]any)
	assert.Equal(t, "http://shop/payment_success", ret["authorised"])
}

func TestCreateSessionRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"order":{"ref":"R2","url":"https://pay.example/R2"}}`))
	}))
	defer srv.Close()

	session, err := newHosted(t, srv.URL).CreateSession(context.Background(), SessionRequest{CartID: "c", Amount: decimal.NewFromInt(1)})
	require.NoError(t, err)
	assert.Equal(t, "R2", session.Ref)
	assert.EqualValues(t, 3, calls.Load())
}

func TestCreateSessionDoesNotRetryRejections(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"error":{"message":"Invalid store"}}`))
	}))
	defer srv.Close()

	_, err := newHosted(t, srv.URL).CreateSession(context.Background(), SessionRequest{CartID: "c", Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, ErrRejected)
	assert.EqualValues(t, 1, calls.Load())
}

func TestCreateSessionGivesUp(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newHosted(t, srv.URL).CreateSession(context.Background(), SessionRequest{CartID: "c", Amount: decimal.NewFromInt(1)})
	assert.Error(t, err)
	assert.EqualValues(t, 3, calls.Load())
}

func TestCheck(t *testing.T) {
	tests := []struct {
		body string
		paid bool
	}{
		{`{"order":{"ref":"R","cartid":"c","status":{"code":3,"text":"Paid"}}}`, true},
		{`{"order":{"ref":"R","cartid":"c","status":{"code":2,"text":"Authorised"}}}`, true},
		{`{"order":{"ref":"R","cartid":"c","status":{"code":1,"text":"Pending"}}}`, false},
		{`{"order":{"ref":"R","cartid":"c","status":{"code":-3,"text":"Declined"}}}`, false},
	}
	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req map[string]any
			json.NewDecoder(r.Body).Decode(&req)
			assert.Equal(t, "check", req["method"])
			w.Write([]byte(tt.body))
		}))

		status, err := newHosted(t, srv.URL).Check(context.Background(), "R")
		srv.Close()
		require.NoError(t, err)
		assert.Equal(t, tt.paid, status.Paid(), status.Text)
		assert.Equal(t, "c", status.CartID)
	}
}

func TestCheckReportsAmount(t *testing.T) {
	body := `{"order":{"ref":"R","cartid":"c","amount":"15.50","currency":"AED","status":{"code":3,"text":"Paid"}}}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	defer srv.Close()

	status, err := newHosted(t, srv.URL).Check(context.Background(), "R")
	require.NoError(t, err)
	assert.True(t, status.Amount.Equal(decimal.RequireFromString("15.5")))
	assert.Equal(t, "AED", status.Currency)

	body = `{"order":{"ref":"R","cartid":"c","amount":"lots","status":{"code":3,"text":"Paid"}}}`
	_, err = newHosted(t, srv.URL).Check(context.Background(), "R")
	assert.Error(t, err)
}

func TestCheckHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newHosted(t, srv.URL).Check(ctx, "R")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestVerifyWebhook(t *testing.T) {
	form := url.Values{
		"tran_store":  {"42"},
		"tran_type":   {"sale"},
		"tran_ref":    {"R1"},
		"tran_cartid": {"cart-1"},
		"tran_status": {"A"},
		"tran_amount": {"35.50"},
	}
	form.Set("tran_check", Sign("s3cret", form.Get))

	assert.True(t, VerifyWebhook("s3cret", form.Get))
	assert.True(t, Approved(form.Get))
	assert.False(t, VerifyWebhook("other", form.Get))
	assert.False(t, VerifyWebhook("", form.Get))

	form.Set("tran_amount", "0.01")
	assert.False(t, VerifyWebhook("s3cret", form.Get))
}

func TestCharged(t *testing.T) {
	form := url.Values{"tran_amount": {" 35.50 "}, "tran_currency": {"AED"}}
	amount, currency, err := Charged(form.Get)
	require.NoError(t, err)
	assert.Equal(t, "35.50", amount.StringFixed(2))
	assert.Equal(t, "AED", currency)

	_, _, err = Charged(url.Values{}.Get)
	assert.Error(t, err)
}
