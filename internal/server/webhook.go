package server

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-wallet-tracker/internal/constants"
)

const maxWebhookBody = 16 << 20

// Webhook accepts an enhanced-transaction batch (a JSON array, or a single
// object) and processes it synchronously. Item failures are reported in the
// response and never fail the request.
func (h *Handlers) Webhook(c echo.Context) error {
	if h.Processor == nil {
		return h.err(c, http.StatusServiceUnavailable, "webhook processing is not configured", nil)
	}

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody+1))
	if err != nil {
		return h.err(c, http.StatusBadRequest, "failed to read body", nil)
	}
	if len(body) > maxWebhookBody {
		return h.err(c, http.StatusRequestEntityTooLarge, "body too large", nil)
	}

	items, err := decodeBatch(body)
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", map[string]any{"err": err.Error()})
	}
	if len(items) > constants.MaxBatchSize {
		return h.err(c, http.StatusRequestEntityTooLarge, "batch too large", map[string]any{"max": constants.MaxBatchSize})
	}

	// The provider does not wait for per-item results; finish the batch even
	// if the caller hangs up so ledger writes are not cut short.
	ctx := context.WithoutCancel(c.Request().Context())
	res := h.Processor.Process(ctx, items)

	resp := WebhookResponse{
		Message:    "Logged and forwarded POST request body.",
		BatchID:    res.BatchID,
		Received:   res.Received,
		Processed:  res.Processed,
		Failed:     res.Failed,
		Duplicates: res.Duplicates,
		Degraded:   res.Degraded,
		Commands:   res.Commands,
	}
	if c.QueryParam("verbose") == "true" {
		resp.Items = res.Items
	}

	h.logger().WithFields(logrus.Fields{
		"batch_id": res.BatchID,
		"received": res.Received,
		"failed":   res.Failed,
	}).Debug("webhook handled")

	return c.JSON(http.StatusOK, resp)
}

// decodeBatch splits the payload into raw items without decoding them, so
// one malformed item cannot reject the batch.
func decodeBatch(body []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var single json.RawMessage
		if err := json.Unmarshal(trimmed, &single); err != nil {
			return nil, err
		}
		return []json.RawMessage{single}, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// WebhookAuth checks the Authorization header against token. An empty token
// disables the check.
func WebhookAuth(token string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if token == "" {
				return next(c)
			}
			got := c.Request().Header.Get(echo.HeaderAuthorization)
			if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				// Slow down token guessing
				time.Sleep(100 * time.Millisecond)
				return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Code: http.StatusUnauthorized})
			}
			return next(c)
		}
	}
}
