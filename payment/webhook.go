package payment

import (
	"crypto/sha1"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Fields covered by the tran_check signature, in signing order.
var webhookFields = []string{
	"tran_store", "tran_type", "tran_class", "tran_test", "tran_ref",
	"tran_prevref", "tran_firstref", "tran_order", "tran_currency",
	"tran_amount", "tran_cartid", "tran_desc", "tran_status",
	"tran_authcode", "tran_authmessage",
}

// Sign computes the tran_check value for a notification.
func Sign(secret string, get func(key string) string) string {
	parts := []string{secret}
	for _, f := range webhookFields {
		parts = append(parts, strings.TrimSpace(get(f)))
	}
	sum := sha1.Sum([]byte(strings.Join(parts, ":")))
	return hex.EncodeToString(sum[:])
}

// VerifyWebhook checks the tran_check signature of a server to server
// notification. An empty secret never verifies.
func VerifyWebhook(secret string, get func(key string) string) bool {
	provided := strings.ToLower(strings.TrimSpace(get("tran_check")))
	if secret == "" || provided == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(Sign(secret, get)), []byte(provided)) == 1
}

// Approved reports whether a notification says the transaction went through.
func Approved(get func(key string) string) bool {
	return strings.EqualFold(get("tran_status"), "A")
}

// Charged returns the amount and currency a notification reports.
func Charged(get func(key string) string) (decimal.Decimal, string, error) {
	raw := strings.TrimSpace(get("tran_amount"))
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, "", fmt.Errorf("invalid tran_amount %q: %w", raw, err)
	}
	return amount, strings.TrimSpace(get("tran_currency")), nil
}
