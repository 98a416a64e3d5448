package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type fakeAuthenticator struct {
	status int
	body   string
	err    error
	email  string
}

func (f *fakeAuthenticator) Login(ctx context.Context, email, password string) (int, json.RawMessage, error) {
	f.email = email
	if f.err != nil {
		return 0, nil, f.err
	}
	return f.status, json.RawMessage(f.body), nil
}

func postLogin(h *LoginHandler, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.Login(w, httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body)))
	return w
}

func TestLoginForwardsGatewayStatusVerbatim(t *testing.T) {
	auth := &fakeAuthenticator{status: http.StatusUnauthorized, body: `{"success":false,"message":"bad credentials"}`}
	h := NewLoginHandler(auth, nil)

	w := postLogin(h, `{"email":"admin@clinic.test","password":"wrong"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want the gateway's 401", w.Code)
	}
	if auth.email != "admin@clinic.test" {
		t.Errorf("forwarded email = %q", auth.email)
	}
	if !strings.Contains(w.Body.String(), "bad credentials") {
		t.Errorf("body = %s, want gateway body verbatim", w.Body.String())
	}
}

func TestLoginSuccessPassthrough(t *testing.T) {
	auth := &fakeAuthenticator{status: http.StatusOK, body: `{"success":true,"data":{"token":"t1"}}`}
	h := NewLoginHandler(auth, nil)

	w := postLogin(h, `{"email":"admin@clinic.test","password":"right"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "t1") {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestLoginValidatesRequest(t *testing.T) {
	h := NewLoginHandler(&fakeAuthenticator{}, nil)

	if w := postLogin(h, `{bad`); w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for malformed body", w.Code)
	}
	if w := postLogin(h, `{"email":"admin@clinic.test"}`); w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for missing password", w.Code)
	}
}

func TestLoginTransportErrorIs502(t *testing.T) {
	h := NewLoginHandler(&fakeAuthenticator{err: errors.New("connection refused")}, nil)
	w := postLogin(h, `{"email":"admin@clinic.test","password":"pw"}`)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", w.Code)
	}
	if env := decodeEnvelope(t, w); env.Success {
		t.Error("failure envelope reports success")
	}
}
