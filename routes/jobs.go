package routes

import (
	"context"
	"log/slog"
	"time"
)

// Wait blocks until background mail jobs have finished.
func (h *Handler) Wait() {
	h.jobs.Wait()
}

// background runs fn detached from the request.
func (h *Handler) background(name string, timeout time.Duration, fn func(ctx context.Context)) {
	h.jobs.Add(1)
	go func() {
		defer h.jobs.Done()
		defer func() {
			if r := recover(); r != nil {
				slog.Error("Background job panicked", "job", name, "panic", r)
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		fn(ctx)
	}()
}
