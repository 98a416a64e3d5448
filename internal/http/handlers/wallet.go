package handlers

import (
	"context"
	"net/http"

	"github.com/opencliniq/frontdesk/pkg/logging"
)

// WalletSource is the slice of the CRM client the wallet proxy needs.
type WalletSource interface {
	WalletBalance(ctx context.Context) (float64, error)
}

// WalletHandler proxies the clinic wallet balance. The balance is decorative
// in the admin UI, so any upstream failure degrades to a zero balance rather
// than an error response.
type WalletHandler struct {
	crm    WalletSource
	logger *logging.Logger
}

func NewWalletHandler(src WalletSource, logger *logging.Logger) *WalletHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &WalletHandler{crm: src, logger: logger}
}

// Balance returns the wallet balance, fail-open. GET /balance
func (h *WalletHandler) Balance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.crm.WalletBalance(r.Context())
	if err != nil {
		h.logger.Warn("wallet balance fetch failed", "error", err)
		balance = 0
	}
	WriteData(w, http.StatusOK, map[string]any{"balance": balance})
}
