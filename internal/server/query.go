package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/labstack/echo/v4"

	"github.com/aman-zulfiqar/solana-wallet-tracker/internal/constants"
	"github.com/aman-zulfiqar/solana-wallet-tracker/internal/storage"
)

// validAddress reports whether s is a base58 Solana public key.
func validAddress(s string) bool {
	_, err := solana.PublicKeyFromBase58(s)
	return err == nil
}

// Wallet returns the registry entry for an address.
func (h *Handlers) Wallet(c echo.Context) error {
	if h.Registry == nil {
		return h.err(c, http.StatusServiceUnavailable, "registry is not configured", nil)
	}
	address := strings.TrimSpace(c.Param("address"))
	if !validAddress(address) {
		return h.err(c, http.StatusBadRequest, "invalid address", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	tracked, err := h.Registry.ListAddresses(ctx)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to load registry", nil)
	}
	details, err := h.Registry.Lookup(ctx, address)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to load registry", nil)
	}

	_, ok := tracked[address]
	return c.JSON(http.StatusOK, WalletResponse{
		Address:  address,
		Tracked:  ok,
		Name:     details.Name,
		Category: details.Category,
	})
}

// TokenHistory returns the trade count for a (wallet, mint) pair.
func (h *Handlers) TokenHistory(c echo.Context) error {
	if h.History == nil {
		return h.err(c, http.StatusServiceUnavailable, "history is not configured", nil)
	}
	wallet := strings.TrimSpace(c.Param("wallet"))
	mint := strings.TrimSpace(c.Param("mint"))
	if !validAddress(wallet) || !validAddress(mint) {
		return h.err(c, http.StatusBadRequest, "invalid address", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.History.Get(ctx, wallet, mint)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return h.err(c, http.StatusNotFound, "no history for pair", nil)
		}
		return h.err(c, http.StatusInternalServerError, "failed to get history", nil)
	}
	return c.JSON(http.StatusOK, out)
}

// RecentTrades returns the most recent classified trades.
// Accepts limit query parameter (default: 20, range: 1-100)
func (h *Handlers) RecentTrades(c echo.Context) error {
	if h.Recent == nil {
		return h.err(c, http.StatusServiceUnavailable, "trade feed is not configured", nil)
	}
	limit := 20
	if s := c.QueryParam("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return h.err(c, http.StatusBadRequest, "invalid limit", map[string]any{"limit": "must be an integer"})
		}
		limit = n
	}
	if limit < 1 || limit > constants.MaxRecentTrades {
		return h.err(c, http.StatusBadRequest, "invalid limit", map[string]any{"limit": "min 1 max 100"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Recent.GetRecentTrades(ctx, int64(limit))
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to get trades", nil)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}
