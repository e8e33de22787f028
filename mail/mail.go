// Package mail delivers newsletter and order emails.
package mail

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"strings"
	"time"

	"storefront/models"
)

type Message struct {
	To      []string
	Bcc     []string
	Subject string
	Text    string
	HTML    string
}

func (m Message) recipients() int {
	return len(m.To) + len(m.Bcc)
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender writes messages to the log instead of delivering them. It is
// used when no mail service is configured.
type LogSender struct{}

func (LogSender) Send(_ context.Context, msg Message) error {
	slog.Info("Mail not delivered (no mail service configured)",
		"subject", msg.Subject, "to", msg.To, "bcc", len(msg.Bcc))
	return nil
}

type BroadcastOptions struct {
	BatchSize int
	Attempts  int
	Backoff   time.Duration
}

// Report is the outcome of a broadcast.
type Report struct {
	Sent   int      `json:"sent"`
	Failed []string `json:"failed,omitempty"`
}

// Broadcast sends msg to every recipient in Bcc batches. A batch that still
// fails after its retries is resent one recipient at a time so a single bad
// address cannot sink the rest.
func Broadcast(ctx context.Context, sender Sender, recipients []string, msg Message, opts BroadcastOptions) Report {
	if opts.BatchSize < 1 {
		opts.BatchSize = 50
	}
	var report Report
	for start := 0; start < len(recipients); start += opts.BatchSize {
		batch := recipients[start:min(start+opts.BatchSize, len(recipients))]

		batchMsg := msg
		batchMsg.To, batchMsg.Bcc = nil, batch
		err := withRetry(ctx, opts, func() error { return sender.Send(ctx, batchMsg) })
		if err == nil {
			report.Sent += len(batch)
			continue
		}
		slog.Warn("Mail batch failed, sending one by one", "size", len(batch), "error", err)

		for _, rcpt := range batch {
			single := msg
			single.To, single.Bcc = []string{rcpt}, nil
			if err := withRetry(ctx, opts, func() error { return sender.Send(ctx, single) }); err != nil {
				slog.Error("Mail delivery failed", "to", rcpt, "error", err)
				report.Failed = append(report.Failed, rcpt)
				continue
			}
			report.Sent++
		}
	}
	slog.Info("Mail broadcast finished", "sent", report.Sent, "failed", len(report.Failed))
	return report
}

func withRetry(ctx context.Context, opts BroadcastOptions, fn func() error) error {
	attempts := max(opts.Attempts, 1)
	backoff := opts.Backoff
	if backoff == 0 {
		backoff = 500 * time.Millisecond
	}

	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff << (i - 1)):
			}
		}
		if err = fn(); err == nil {
			return nil
		}
	}
	return err
}

var confirmationHTML = template.Must(template.New("confirmation").Parse(`<html><body>
<p>Dear {{.Name}},</p>
<p>Thank you for your order! Order #{{.OrderID}} has been paid.</p>
<pre>{{.Lines}}</pre>
<p><strong>Total: {{.Total}} {{.Currency}}</strong></p>
</body></html>`))

type confirmationData struct {
	Name     string
	OrderID  uint
	Lines    string
	Total    string
	Currency string
}

// OrderConfirmation builds the email sent after a payment is confirmed.
func OrderConfirmation(order *models.Order, to, name, currency string) Message {
	var lines strings.Builder
	for _, item := range order.Items {
		if item.Product == nil {
			continue
		}
		fmt.Fprintf(&lines, "%s x %d = %s %s\n", item.Product.Title, item.Quantity, item.TotalPrice().StringFixed(2), currency)
	}
	data := confirmationData{
		Name:     name,
		OrderID:  order.ID,
		Lines:    lines.String(),
		Total:    order.CartTotalPrice().StringFixed(2),
		Currency: currency,
	}

	text := fmt.Sprintf("Dear %s,\n\nThank you for your order! Order #%d has been paid.\n\n%s\nTotal: %s %s\n\nBest regards,\nThe shop team",
		data.Name, data.OrderID, data.Lines, data.Total, data.Currency)

	var html strings.Builder
	if err := confirmationHTML.Execute(&html, data); err != nil {
		slog.Error("Failed to render order confirmation", "order_id", order.ID, "error", err)
	}

	return Message{
		To:      []string{to},
		Subject: fmt.Sprintf("Order #%d confirmation", order.ID),
		Text:    text,
		HTML:    html.String(),
	}
}
