package appointments

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/opencliniq/frontdesk/internal/crm"
	"github.com/opencliniq/frontdesk/pkg/logging"
)

// SessionHeader carries the admin UI's view-session id. Responses echo it
// back so a client without one adopts the generated id.
const SessionHeader = "X-Session-Id"

// Handler exposes the appointment view and mutation endpoints.
type Handler struct {
	svc      *Service
	sessions *Registry
	logger   *logging.Logger
	now      func() time.Time
}

// NewHandler creates the appointments HTTP handler.
func NewHandler(svc *Service, sessions *Registry, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, sessions: sessions, logger: logger, now: time.Now}
}

// Routes returns a chi router with the appointment endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/day/{date}", h.DayView)
	r.Get("/month/{month}", h.MonthView)
	r.Get("/calendar/{month}", h.Calendar)
	r.Get("/upcoming", h.Upcoming)
	r.Get("/notifications", h.Notifications)
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Cancel)
	return r
}

// DayView returns the synchronized appointment list for one day, filtered
// and sorted. GET /day/{date}?search=&status=
func (h *Handler) DayView(w http.ResponseWriter, r *http.Request) {
	date, err := time.Parse(DayKeyFormat, chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be yyyy-MM-dd")
		return
	}
	sess := h.session(w, r)
	if err := sess.LoadDay(r.Context(), date, false); err != nil {
		h.writeLoadError(w, err)
		return
	}
	list := Filter(sess.DayView(), r.URL.Query().Get("search"), r.URL.Query().Get("status"))
	writeData(w, map[string]any{"appointments": list, "loading": sess.Loading()})
}

// MonthView returns the synchronized appointment list for one month.
// GET /month/{month}
func (h *Handler) MonthView(w http.ResponseWriter, r *http.Request) {
	month, err := time.Parse(MonthKeyFormat, chi.URLParam(r, "month"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "month must be yyyy-MM")
		return
	}
	sess := h.session(w, r)
	if err := sess.LoadMonth(r.Context(), month, false); err != nil {
		h.writeLoadError(w, err)
		return
	}
	writeData(w, map[string]any{"appointments": SortByPriority(sess.MonthView())})
}

// Calendar returns the per-day status dots for one month.
// GET /calendar/{month}
func (h *Handler) Calendar(w http.ResponseWriter, r *http.Request) {
	month, err := time.Parse(MonthKeyFormat, chi.URLParam(r, "month"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "month must be yyyy-MM")
		return
	}
	sess := h.session(w, r)
	// Dot sourcing is non-critical: a failed load still projects from
	// whatever the session retains.
	if err := sess.LoadMonth(r.Context(), month, false); err != nil {
		h.logger.Warn("calendar month load failed", "month", month.Format(MonthKeyFormat), "error", err)
	}
	writeData(w, map[string]any{"dots": sess.CalendarDots(month.Format(MonthKeyFormat))})
}

// Upcoming returns today-or-later appointments that still need action.
// GET /upcoming
func (h *Handler) Upcoming(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	now := h.now()
	all := sess.AllView()
	if len(all) == 0 {
		if err := sess.LoadMonth(r.Context(), now, false); err != nil {
			h.writeLoadError(w, err)
			return
		}
		all = sess.AllView()
	}
	writeData(w, map[string]any{"appointments": Upcoming(all, now.Format(DayKeyFormat))})
}

// Notifications drains the session's queued user notifications.
// GET /notifications
func (h *Handler) Notifications(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	notes := sess.Notifications()
	if notes == nil {
		notes = []Notification{}
	}
	writeData(w, map[string]any{"notifications": notes})
}

type appointmentRequest struct {
	Date      string `json:"date"`
	Time      string `json:"time"`
	Status    string `json:"status"`
	Type      string `json:"type"`
	PatientID string `json:"patientId"`
	DoctorID  string `json:"doctorId"`
}

func (req *appointmentRequest) validate(requirePatient bool) string {
	if _, err := time.Parse(DayKeyFormat, req.Date); err != nil {
		return "date must be yyyy-MM-dd"
	}
	if req.Time == "" {
		return "time is required"
	}
	if requirePatient && req.PatientID == "" {
		return "patientId is required"
	}
	if req.Status != "" {
		if _, ok := ParseStatus(req.Status); !ok {
			return "unknown status"
		}
	}
	return ""
}

func (req *appointmentRequest) input() crm.AppointmentInput {
	return crm.AppointmentInput{
		Date:      req.Date,
		Time:      req.Time,
		Status:    req.Status,
		Type:      req.Type,
		PatientID: req.PatientID,
		DoctorID:  req.DoctorID,
	}
}

// Create books a new appointment. POST /
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req appointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if msg := req.validate(true); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	sess := h.session(w, r)
	appt, err := h.svc.Create(r.Context(), sess, req.input())
	if err != nil {
		h.writeLoadError(w, err)
		return
	}
	writeDataStatus(w, http.StatusCreated, map[string]any{"appointment": appt})
}

// Update reschedules or edits an appointment. PUT /{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req appointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if msg := req.validate(false); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	sess := h.session(w, r)
	appt, err := h.svc.Update(r.Context(), sess, id, req.input())
	if err != nil {
		h.writeLoadError(w, err)
		return
	}
	writeData(w, map[string]any{"appointment": appt})
}

// Cancel cancels an appointment. DELETE /{id}?confirm=true
// The confirm parameter is the UI's blocking yes/no decision; without it
// nothing is sent to the gateway.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	confirmed := r.URL.Query().Get("confirm") == "true"
	sess := h.session(w, r)
	err := sess.Cancel(r.Context(), id, confirmed)
	switch {
	case errors.Is(err, ErrCancelNotConfirmed):
		writeError(w, http.StatusBadRequest, "cancellation requires confirm=true")
	case errors.Is(err, crm.ErrNotFound):
		writeError(w, http.StatusNotFound, "appointment not found")
	case err != nil:
		h.writeLoadError(w, err)
	default:
		writeData(w, map[string]any{"cancelled": id})
	}
}

// session resolves the request's view session, minting an id when absent.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) *Session {
	id := r.Header.Get(SessionHeader)
	if id == "" {
		id = uuid.NewString()
	}
	w.Header().Set(SessionHeader, id)
	return h.sessions.Get(id)
}

func (h *Handler) writeLoadError(w http.ResponseWriter, err error) {
	var ue *crm.UpstreamError
	if errors.As(err, &ue) && ue.Message != "" {
		writeError(w, http.StatusInternalServerError, ue.Message)
		return
	}
	if errors.Is(err, crm.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeError(w, http.StatusInternalServerError, "upstream request failed")
}

func writeData(w http.ResponseWriter, data any) {
	writeDataStatus(w, http.StatusOK, data)
}

func writeDataStatus(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": data})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "message": message})
}
