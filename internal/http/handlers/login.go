package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/opencliniq/frontdesk/pkg/logging"
)

// Authenticator is the slice of the CRM client the login proxy needs.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (int, json.RawMessage, error)
}

// LoginHandler forwards admin credentials to the CRM gateway. The gateway's
// status code and body pass through verbatim, so a 401 from the gateway stays
// a 401 for the UI.
type LoginHandler struct {
	crm    Authenticator
	logger *logging.Logger
}

func NewLoginHandler(auth Authenticator, logger *logging.Logger) *LoginHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &LoginHandler{crm: auth, logger: logger}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates against the CRM gateway. POST /login
func (h *LoginHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Email == "" || req.Password == "" {
		WriteError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	status, body, err := h.crm.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.logger.Warn("login forward failed", "error", err)
		WriteError(w, http.StatusBadGateway, "authentication service unavailable")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
