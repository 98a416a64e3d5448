package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/mail"

	"github.com/go-chi/chi/v5"

	"github.com/opencliniq/frontdesk/internal/crm"
	"github.com/opencliniq/frontdesk/pkg/logging"
)

// TeamDirectory is the slice of the CRM client the team proxy needs.
type TeamDirectory interface {
	ListTeamMembers(ctx context.Context) ([]crm.TeamMember, error)
	GetTeamMember(ctx context.Context, id string) (crm.TeamMember, error)
	UpdateTeamMember(ctx context.Context, id string, in crm.TeamMemberInput) (crm.TeamMember, error)
	DeleteTeamMember(ctx context.Context, id string) error
}

// TeamHandler proxies team-member management to the CRM gateway.
type TeamHandler struct {
	crm    TeamDirectory
	logger *logging.Logger
}

func NewTeamHandler(dir TeamDirectory, logger *logging.Logger) *TeamHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &TeamHandler{crm: dir, logger: logger}
}

// Routes returns the team proxy routes. Auth is applied by the router.
func (h *TeamHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	return r
}

// List returns all team members. GET /
func (h *TeamHandler) List(w http.ResponseWriter, r *http.Request) {
	members, err := h.crm.ListTeamMembers(r.Context())
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	WriteData(w, http.StatusOK, map[string]any{"members": members})
}

// Get returns one team member. GET /{id}
func (h *TeamHandler) Get(w http.ResponseWriter, r *http.Request) {
	member, err := h.crm.GetTeamMember(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	WriteData(w, http.StatusOK, map[string]any{"member": member})
}

// Update edits a team member. PUT /{id}
func (h *TeamHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in crm.TeamMemberInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if in.Email != "" {
		if _, err := mail.ParseAddress(in.Email); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid email address")
			return
		}
	}
	member, err := h.crm.UpdateTeamMember(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	WriteData(w, http.StatusOK, map[string]any{"member": member})
}

// Delete removes a team member. DELETE /{id}
func (h *TeamHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.crm.DeleteTeamMember(r.Context(), id); err != nil {
		writeUpstreamError(w, err)
		return
	}
	WriteData(w, http.StatusOK, map[string]any{"deleted": id})
}
