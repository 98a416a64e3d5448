package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/opencliniq/frontdesk/pkg/logging"
)

const defaultTimeout = 15 * time.Second

var tracer = otel.Tracer("frontdesk.internal.crm")

// ErrNotFound is returned when the gateway answers 404 for an entity lookup.
var ErrNotFound = errors.New("crm: not found")

// UpstreamError carries the gateway's status code and message so proxy
// routes can pass them through.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("crm: upstream status %d: %s", e.Status, e.Message)
}

// Metrics receives per-request observations. Implemented by
// observability/metrics; nil disables instrumentation.
type Metrics interface {
	ObserveCRMRequest(endpoint string, status int, seconds float64)
}

// Client is a REST client for the external CRM gateway. All clinic data
// (appointments, patients, team, wallet) persists there; this service only
// caches views of it.
type Client struct {
	baseURL    string
	loginPath  string
	apiKey     string
	httpClient *http.Client
	logger     *logging.Logger
	metrics    Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithMetrics attaches request instrumentation.
func WithMetrics(m Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithLoginPath overrides the gateway login endpoint path.
func WithLoginPath(path string) Option {
	return func(c *Client) { c.loginPath = path }
}

// NewClient creates a CRM gateway client.
func NewClient(baseURL, apiKey string, logger *logging.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	c := &Client{
		baseURL:   baseURL,
		loginPath: "/auth/login",
		apiKey:    apiKey,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SearchAppointmentsByDate returns appointments the gateway considers to be
// on the given day (yyyy-MM-dd). The gateway's date filter is not trusted:
// callers re-filter by exact day equality.
func (c *Client) SearchAppointmentsByDate(ctx context.Context, day string) ([]Appointment, error) {
	q := url.Values{"date": {day}}
	var env listEnvelope[Appointment]
	if err := c.get(ctx, "/appointments?"+q.Encode(), "appointments.search", &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

// ListAppointments returns the full unfiltered appointment collection.
func (c *Client) ListAppointments(ctx context.Context) ([]Appointment, error) {
	var env listEnvelope[Appointment]
	if err := c.get(ctx, "/appointments", "appointments.list", &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

// CreateAppointment creates an appointment and returns the stored record.
func (c *Client) CreateAppointment(ctx context.Context, in AppointmentInput) (Appointment, error) {
	raw, err := c.send(ctx, http.MethodPost, "/appointments", "appointments.create", in)
	if err != nil {
		return Appointment{}, err
	}
	appt, err := decodeEntity[Appointment](raw)
	if err != nil {
		return Appointment{}, fmt.Errorf("crm: decode created appointment: %w", err)
	}
	return appt, nil
}

// UpdateAppointment updates an appointment and returns the stored record.
func (c *Client) UpdateAppointment(ctx context.Context, id string, in AppointmentInput) (Appointment, error) {
	raw, err := c.send(ctx, http.MethodPut, "/appointments/"+url.PathEscape(id), "appointments.update", in)
	if err != nil {
		return Appointment{}, err
	}
	appt, err := decodeEntity[Appointment](raw)
	if err != nil {
		return Appointment{}, fmt.Errorf("crm: decode updated appointment: %w", err)
	}
	return appt, nil
}

// CancelAppointment cancels an appointment on the gateway.
func (c *Client) CancelAppointment(ctx context.Context, id string) error {
	_, err := c.send(ctx, http.MethodPost, "/appointments/"+url.PathEscape(id)+"/cancel", "appointments.cancel", nil)
	return err
}

// ListPatients returns one page of the patient roster.
func (c *Client) ListPatients(ctx context.Context, page, pageSize int) ([]Patient, int, error) {
	q := url.Values{
		"page":     {strconv.Itoa(page)},
		"pageSize": {strconv.Itoa(pageSize)},
	}
	var env listEnvelope[Patient]
	if err := c.get(ctx, "/patients?"+q.Encode(), "patients.list", &env); err != nil {
		return nil, 0, err
	}
	return env.Data, env.Total, nil
}

// ListTeamMembers returns all team members.
func (c *Client) ListTeamMembers(ctx context.Context) ([]TeamMember, error) {
	var env listEnvelope[TeamMember]
	if err := c.get(ctx, "/team", "team.list", &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

// GetTeamMember returns one team member, or ErrNotFound.
func (c *Client) GetTeamMember(ctx context.Context, id string) (TeamMember, error) {
	raw, err := c.send(ctx, http.MethodGet, "/team/"+url.PathEscape(id), "team.get", nil)
	if err != nil {
		return TeamMember{}, err
	}
	member, err := decodeEntity[TeamMember](raw)
	if err != nil {
		return TeamMember{}, fmt.Errorf("crm: decode team member: %w", err)
	}
	return member, nil
}

// UpdateTeamMember updates a team member and returns the stored record.
func (c *Client) UpdateTeamMember(ctx context.Context, id string, in TeamMemberInput) (TeamMember, error) {
	raw, err := c.send(ctx, http.MethodPut, "/team/"+url.PathEscape(id), "team.update", in)
	if err != nil {
		return TeamMember{}, err
	}
	member, err := decodeEntity[TeamMember](raw)
	if err != nil {
		return TeamMember{}, fmt.Errorf("crm: decode team member: %w", err)
	}
	return member, nil
}

// DeleteTeamMember removes a team member.
func (c *Client) DeleteTeamMember(ctx context.Context, id string) error {
	_, err := c.send(ctx, http.MethodDelete, "/team/"+url.PathEscape(id), "team.delete", nil)
	return err
}

// WalletBalance returns the clinic wallet balance.
func (c *Client) WalletBalance(ctx context.Context) (float64, error) {
	var out struct {
		Data struct {
			Balance float64 `json:"balance"`
		} `json:"data"`
	}
	if err := c.get(ctx, "/wallet/balance", "wallet.balance", &out); err != nil {
		return 0, err
	}
	return out.Data.Balance, nil
}

// Login forwards credentials to the gateway and returns its status code and
// raw body verbatim. An error is returned only for transport-level failures;
// a 401 from the gateway is (401, body, nil).
func (c *Client) Login(ctx context.Context, email, password string) (int, json.RawMessage, error) {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return 0, nil, fmt.Errorf("crm: marshal login request: %w", err)
	}

	ctx, span := tracer.Start(ctx, "crm.login")
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.loginPath, bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("crm: create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe("login", 0, start)
		return 0, nil, fmt.Errorf("crm: login request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("crm: read login response: %w", err)
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	c.observe("login", resp.StatusCode, start)
	return resp.StatusCode, respBody, nil
}

func (c *Client) get(ctx context.Context, path, endpoint string, out any) error {
	raw, err := c.send(ctx, http.MethodGet, path, endpoint, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("crm: unmarshal %s response: %w", endpoint, err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path, endpoint string, in any) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "crm."+endpoint)
	defer span.End()
	span.SetAttributes(
		attribute.String("http.method", method),
		attribute.String("crm.endpoint", endpoint),
	)

	var body io.Reader
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("crm: marshal %s request: %w", endpoint, err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("crm: create %s request: %w", endpoint, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(endpoint, 0, start)
		return nil, fmt.Errorf("crm: %s request: %w", endpoint, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("crm: read %s response: %w", endpoint, err)
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	c.observe(endpoint, resp.StatusCode, start)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, endpoint)
	case resp.StatusCode >= 400:
		msg := upstreamMessage(respBody)
		c.logger.Warn("crm request failed", "endpoint", endpoint, "status", resp.StatusCode, "message", msg)
		return nil, &UpstreamError{Status: resp.StatusCode, Message: msg}
	}
	return respBody, nil
}

func (c *Client) observe(endpoint string, status int, start time.Time) {
	if c.metrics == nil {
		return
	}
	c.metrics.ObserveCRMRequest(endpoint, status, time.Since(start).Seconds())
}

// upstreamMessage extracts a human-readable message from a gateway error
// body, falling back to a bounded slice of the raw payload.
func upstreamMessage(body []byte) string {
	var env struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &env); err == nil {
		if env.Message != "" {
			return env.Message
		}
		if env.Error != "" {
			return env.Error
		}
	}
	msg := string(body)
	if len(msg) > 300 {
		msg = msg[:300]
	}
	return msg
}
