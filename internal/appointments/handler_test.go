package appointments

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/opencliniq/frontdesk/internal/crm"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func newTestHandler(t *testing.T, fc *fakeCRM) *Handler {
	t.Helper()
	svc, _ := newTestService(t, fc)
	h := NewHandler(svc, NewRegistry(svc, time.Minute), nil)
	h.now = func() time.Time { return time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC) }
	return h
}

func doRequest(t *testing.T, h *Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, target, nil)
	} else {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	h.Routes().ServeHTTP(w, r)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("response is not an envelope: %v\n%s", err, w.Body.String())
	}
	return env
}

func TestDayEndpointFiltersAndSorts(t *testing.T) {
	day := "2026-03-02"
	fc := &fakeCRM{byDate: map[string][]crm.Appointment{
		day: {
			{ID: "a1", Date: day, Time: "09:00", Status: "pending", PatientID: "p1"},
			{ID: "a2", Date: day, Time: "09:00", Status: "confirmed", PatientID: "p1"},
		},
	}}
	h := newTestHandler(t, fc)

	w := doRequest(t, h, http.MethodGet, "/day/"+day, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	env := decodeEnvelope(t, w)
	if !env.Success {
		t.Fatalf("success = false: %s", env.Message)
	}
	var data struct {
		Appointments []Appointment `json:"appointments"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if len(data.Appointments) != 2 || data.Appointments[0].ID != "a2" {
		t.Errorf("appointments = %+v, want confirmed first", data.Appointments)
	}
	if w.Header().Get(SessionHeader) == "" {
		t.Error("response did not echo a session id")
	}
}

func TestDayEndpointSearchQuery(t *testing.T) {
	day := "2026-03-02"
	fc := &fakeCRM{byDate: map[string][]crm.Appointment{
		day: {
			{ID: "a1", Date: day, Time: "09:00", Status: "confirmed", PatientID: "p1"},
			{ID: "a2", Date: day, Time: "10:00", Status: "confirmed", PatientID: "p-unknown"},
		},
	}}
	h := newTestHandler(t, fc)

	w := doRequest(t, h, http.MethodGet, "/day/"+day+"?search=mil", "")
	env := decodeEnvelope(t, w)
	var data struct {
		Appointments []Appointment `json:"appointments"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if len(data.Appointments) != 1 || data.Appointments[0].ID != "a1" {
		t.Errorf("search=mil returned %+v, want only Sarah Miller's appointment", data.Appointments)
	}
}

func TestDayEndpointRejectsBadDate(t *testing.T) {
	h := newTestHandler(t, &fakeCRM{})
	w := doRequest(t, h, http.MethodGet, "/day/03-02-2026", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if env := decodeEnvelope(t, w); env.Success || env.Message == "" {
		t.Errorf("envelope = %+v, want failure with message", env)
	}
}

func TestSessionHeaderIsEchoedBack(t *testing.T) {
	day := "2026-03-02"
	fc := &fakeCRM{byDate: map[string][]crm.Appointment{day: {}}}
	h := newTestHandler(t, fc)

	r := httptest.NewRequest(http.MethodGet, "/day/"+day, nil)
	r.Header.Set(SessionHeader, "ui-42")
	w := httptest.NewRecorder()
	h.Routes().ServeHTTP(w, r)

	if got := w.Header().Get(SessionHeader); got != "ui-42" {
		t.Errorf("session header = %q, want ui-42", got)
	}
}

func TestCreateValidatesAndReturns201(t *testing.T) {
	h := newTestHandler(t, &fakeCRM{})

	w := doRequest(t, h, http.MethodPost, "/", `{"date":"2026-03-02","time":"11:00","status":"confirmed","patientId":"p1"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	env := decodeEnvelope(t, w)
	var data struct {
		Appointment Appointment `json:"appointment"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data.Appointment.ID == "" || data.Appointment.Status != StatusConfirmed {
		t.Errorf("appointment = %+v", data.Appointment)
	}

	// Missing patient id is rejected before anything reaches the gateway.
	w = doRequest(t, h, http.MethodPost, "/", `{"date":"2026-03-02","time":"11:00"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for missing patientId", w.Code)
	}
	w = doRequest(t, h, http.MethodPost, "/", `{"date":"bad","time":"11:00","patientId":"p1"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for bad date", w.Code)
	}
}

func TestCancelRequiresConfirmQuery(t *testing.T) {
	fc := &fakeCRM{}
	h := newTestHandler(t, fc)

	w := doRequest(t, h, http.MethodDelete, "/a1", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 without confirm", w.Code)
	}
	if len(fc.cancelled) != 0 {
		t.Error("unconfirmed cancel reached the gateway")
	}

	w = doRequest(t, h, http.MethodDelete, "/a1?confirm=true", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if len(fc.cancelled) != 1 || fc.cancelled[0] != "a1" {
		t.Errorf("cancelled = %v", fc.cancelled)
	}
}

func TestCancelUnknownAppointmentIs404(t *testing.T) {
	fc := &fakeCRM{cancelErr: crm.ErrNotFound}
	h := newTestHandler(t, fc)

	w := doRequest(t, h, http.MethodDelete, "/ghost?confirm=true", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestUpstreamMessagePassthroughOnLoadFailure(t *testing.T) {
	fc := &fakeCRM{searchErr: &crm.UpstreamError{Status: 502, Message: "gateway exploded"}}
	h := newTestHandler(t, fc)

	w := doRequest(t, h, http.MethodGet, "/day/2026-03-02", "")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if env := decodeEnvelope(t, w); env.Message != "gateway exploded" {
		t.Errorf("message = %q, want upstream message passthrough", env.Message)
	}
}

func TestCalendarEndpointProjectsDots(t *testing.T) {
	fc := &fakeCRM{all: []crm.Appointment{
		{ID: "a1", Date: "2026-03-05", Time: "09:00", Status: "pending"},
		{ID: "a2", Date: "2026-03-05", Time: "10:00", Status: "confirmed"},
		{ID: "a3", Date: "2026-03-06", Time: "10:00", Status: "completed"},
	}}
	h := newTestHandler(t, fc)

	w := doRequest(t, h, http.MethodGet, "/calendar/2026-03", "")
	env := decodeEnvelope(t, w)
	var data struct {
		Dots map[string][]Status `json:"dots"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	got := data.Dots["2026-03-05"]
	if len(got) != 2 || got[0] != StatusPending || got[1] != StatusConfirmed {
		t.Errorf("dots for 2026-03-05 = %v, want [pending confirmed]", got)
	}
	if _, ok := data.Dots["2026-03-06"]; ok {
		t.Error("completed appointment produced a dot")
	}
}

func TestUpcomingEndpointLoadsWhenEmpty(t *testing.T) {
	fc := &fakeCRM{all: []crm.Appointment{
		{ID: "past", Date: "2026-02-20", Time: "09:00", Status: "confirmed"},
		{ID: "today", Date: "2026-03-02", Time: "09:00", Status: "confirmed"},
		{ID: "done", Date: "2026-03-10", Time: "09:00", Status: "completed"},
		{ID: "soon", Date: "2026-03-04", Time: "09:00", Status: "pending"},
	}}
	h := newTestHandler(t, fc)

	w := doRequest(t, h, http.MethodGet, "/upcoming", "")
	env := decodeEnvelope(t, w)
	var data struct {
		Appointments []Appointment `json:"appointments"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if len(data.Appointments) != 2 || data.Appointments[0].ID != "today" || data.Appointments[1].ID != "soon" {
		t.Errorf("upcoming = %+v, want [today soon]", data.Appointments)
	}
	if fc.listCalls != 1 {
		t.Errorf("listCalls = %d, want 1", fc.listCalls)
	}
}

func TestNotificationsDrainOnce(t *testing.T) {
	fc := &fakeCRM{searchErr: &crm.UpstreamError{Status: 500, Message: "down"}}
	h := newTestHandler(t, fc)

	r := httptest.NewRequest(http.MethodGet, "/day/2026-03-02", nil)
	r.Header.Set(SessionHeader, "ui-1")
	w := httptest.NewRecorder()
	h.Routes().ServeHTTP(w, r)

	fetch := func() []Notification {
		r := httptest.NewRequest(http.MethodGet, "/notifications", nil)
		r.Header.Set(SessionHeader, "ui-1")
		w := httptest.NewRecorder()
		h.Routes().ServeHTTP(w, r)
		var data struct {
			Notifications []Notification `json:"notifications"`
		}
		env := decodeEnvelope(t, w)
		if err := json.Unmarshal(env.Data, &data); err != nil {
			t.Fatalf("decode data: %v", err)
		}
		return data.Notifications
	}

	if notes := fetch(); len(notes) != 1 || notes[0].Level != LevelError {
		t.Fatalf("notifications = %+v, want the load failure", notes)
	}
	if notes := fetch(); len(notes) != 0 {
		t.Errorf("second drain returned %+v, want empty", notes)
	}
}
