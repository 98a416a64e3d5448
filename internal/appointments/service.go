package appointments

import (
	"context"
	"errors"

	"github.com/opencliniq/frontdesk/internal/crm"
	"github.com/opencliniq/frontdesk/internal/roster"
	"github.com/opencliniq/frontdesk/pkg/logging"
)

// ErrCancelNotConfirmed is returned when a cancel is attempted without the
// user's explicit confirmation.
var ErrCancelNotConfirmed = errors.New("appointments: cancel not confirmed")

// CRM is the slice of the gateway client the orchestrator needs.
type CRM interface {
	SearchAppointmentsByDate(ctx context.Context, day string) ([]crm.Appointment, error)
	ListAppointments(ctx context.Context) ([]crm.Appointment, error)
	CreateAppointment(ctx context.Context, in crm.AppointmentInput) (crm.Appointment, error)
	UpdateAppointment(ctx context.Context, id string, in crm.AppointmentInput) (crm.Appointment, error)
	CancelAppointment(ctx context.Context, id string) error
}

// Enricher joins bare patient/doctor ids against the roster. Satisfied by
// *roster.Roster.
type Enricher interface {
	Ensure(ctx context.Context)
	EnrichPatient(ref roster.PatientRef) roster.PatientRef
	EnrichMember(ref roster.MemberRef) roster.MemberRef
}

// SyncMetrics counts refresh outcomes per mode (blocking/background).
type SyncMetrics interface {
	ObserveRefresh(mode, outcome string)
}

const (
	modeBlocking   = "blocking"
	modeBackground = "background"

	outcomeOK         = "ok"
	outcomeError      = "error"
	outcomeDropped    = "dropped"
	outcomeSuperseded = "superseded"
)

// Service owns the shared pieces of the appointment view synchronization
// layer: the cache, the CRM client, and enrichment. Per-UI view state lives
// in Sessions created from it.
type Service struct {
	crm      CRM
	enricher Enricher
	cache    *Cache
	logger   *logging.Logger
	metrics  SyncMetrics
	spawn    func(func())
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithSyncMetrics attaches refresh instrumentation.
func WithSyncMetrics(m SyncMetrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// WithSpawn overrides how background refreshes are scheduled. Tests pass a
// synchronous spawn to make stale-while-revalidate deterministic.
func WithSpawn(spawn func(func())) ServiceOption {
	return func(s *Service) { s.spawn = spawn }
}

// NewService creates the shared appointment service.
func NewService(c CRM, enricher Enricher, cache *Cache, logger *logging.Logger, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if cache == nil {
		cache = NewCache(DefaultCacheTTL)
	}
	s := &Service{
		crm:      c,
		enricher: enricher,
		cache:    cache,
		logger:   logger,
		spawn:    func(f func()) { go f() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Cache exposes the shared cache, mainly for wiring and tests.
func (s *Service) Cache() *Cache {
	return s.cache
}

// Create sends a new appointment to the gateway and applies the optimistic
// mutation to the session's view.
func (s *Service) Create(ctx context.Context, sess *Session, in crm.AppointmentInput) (Appointment, error) {
	dto, err := s.crm.CreateAppointment(ctx, in)
	if err != nil {
		sess.notify(LevelError, "Could not create the appointment.")
		return Appointment{}, err
	}
	appt, err := s.normalizeOne(ctx, dto)
	if err != nil {
		return Appointment{}, err
	}
	sess.ApplyMutation(appt)
	return appt, nil
}

// Update sends an appointment update to the gateway and applies the
// optimistic mutation to the session's view.
func (s *Service) Update(ctx context.Context, sess *Session, id string, in crm.AppointmentInput) (Appointment, error) {
	dto, err := s.crm.UpdateAppointment(ctx, id, in)
	if err != nil {
		sess.notify(LevelError, "Could not update the appointment.")
		return Appointment{}, err
	}
	appt, err := s.normalizeOne(ctx, dto)
	if err != nil {
		return Appointment{}, err
	}
	sess.ApplyMutation(appt)
	return appt, nil
}

func (s *Service) normalizeOne(ctx context.Context, dto crm.Appointment) (Appointment, error) {
	appt, err := fromCRM(dto)
	if err != nil {
		return Appointment{}, err
	}
	s.enricher.Ensure(ctx)
	appt.Patient = s.enricher.EnrichPatient(appt.Patient)
	appt.Doctor = s.enricher.EnrichMember(appt.Doctor)
	return appt, nil
}

// fetchDay performs one authoritative day fetch: search the gateway,
// re-filter by exact day equality (the gateway's date filter has shown
// timezone skew), enrich, and write to the cache. A nil, nil return means
// the result was superseded by a later fetch or an invalidation.
func (s *Service) fetchDay(ctx context.Context, key string) ([]Appointment, error) {
	gen := s.cache.BeginDay(key)
	raw, err := s.crm.SearchAppointmentsByDate(ctx, key)
	if err != nil {
		return nil, err
	}
	appts := s.ingest(ctx, raw, key)
	if !s.cache.PutDay(key, appts, gen) {
		return nil, nil
	}
	return appts, nil
}

// monthResult carries both the month slice and the unfiltered list a month
// fetch produces.
type monthResult struct {
	month []Appointment
	all   []Appointment
}

// fetchMonth fetches the unfiltered appointment collection once (never one
// request per day) and derives the month slice from it. The unfiltered list
// is retained for cross-month calendar projections.
func (s *Service) fetchMonth(ctx context.Context, key string) (*monthResult, error) {
	genMonth := s.cache.BeginMonth(key)
	genAll := s.cache.BeginAll()

	raw, err := s.crm.ListAppointments(ctx)
	if err != nil {
		return nil, err
	}
	all := s.ingest(ctx, raw, "")
	month := make([]Appointment, 0, len(all))
	for _, a := range all {
		if MonthOf(a.Day) == key {
			month = append(month, a)
		}
	}

	// The two writes carry independent generations; a slice the cache
	// rejected is nilled out so the session never applies it.
	if !s.cache.PutMonth(key, month, genMonth) {
		month = nil
	}
	if !s.cache.PutAll(all, genAll) {
		all = nil
	}
	if month == nil && all == nil {
		return nil, nil
	}
	return &monthResult{month: month, all: all}, nil
}

// ingest normalizes gateway records into view appointments: parse dates,
// normalize statuses, drop records that do not fall on dayFilter (when
// set), dedupe by id, and enrich patient/doctor references.
func (s *Service) ingest(ctx context.Context, raw []crm.Appointment, dayFilter string) []Appointment {
	out := make([]Appointment, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, dto := range raw {
		appt, err := fromCRM(dto)
		if err != nil {
			s.logger.Warn("dropping malformed appointment", "id", dto.ID, "error", err)
			continue
		}
		if dayFilter != "" && appt.Day != dayFilter {
			continue
		}
		if _, dup := seen[appt.ID]; dup {
			continue
		}
		seen[appt.ID] = struct{}{}
		out = append(out, appt)
	}

	s.enricher.Ensure(ctx)
	for i := range out {
		out[i].Patient = s.enricher.EnrichPatient(out[i].Patient)
		out[i].Doctor = s.enricher.EnrichMember(out[i].Doctor)
	}
	return out
}

func (s *Service) observeRefresh(background bool, outcome string) {
	if s.metrics == nil {
		return
	}
	mode := modeBlocking
	if background {
		mode = modeBackground
	}
	s.metrics.ObserveRefresh(mode, outcome)
}

// backgroundContext detaches a refresh from the request that triggered it;
// the CRM client's own timeout bounds the call.
func (s *Service) backgroundContext() context.Context {
	return context.Background()
}
