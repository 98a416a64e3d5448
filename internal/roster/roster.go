package roster

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/opencliniq/frontdesk/internal/crm"
	"github.com/opencliniq/frontdesk/pkg/logging"
)

const (
	patientPageSize   = 100
	defaultWaitBudget = 2 * time.Second
	maxPatientPages   = 100 // hard stop against a gateway that never ends
)

// Directory is the slice of the CRM client the roster needs.
type Directory interface {
	ListPatients(ctx context.Context, page, pageSize int) ([]crm.Patient, int, error)
	ListTeamMembers(ctx context.Context) ([]crm.TeamMember, error)
}

// Roster caches the patient and team-member directories that appointment
// enrichment joins against. One roster is shared by every view session in
// the process; a preload already in flight is awaited, never duplicated.
type Roster struct {
	mu       sync.Mutex
	patients map[string]Patient
	members  map[string]Member
	loaded   bool
	inflight chan struct{} // non-nil while a preload is running

	dir        Directory
	snapshots  *Store
	logger     *logging.Logger
	waitBudget time.Duration
}

// Option configures a Roster.
type Option func(*Roster)

// WithSnapshots attaches a Redis snapshot store used for warm starts.
func WithSnapshots(s *Store) Option {
	return func(r *Roster) { r.snapshots = s }
}

// WithWaitBudget bounds how long enrichment waits on an in-flight preload.
func WithWaitBudget(d time.Duration) Option {
	return func(r *Roster) { r.waitBudget = d }
}

// New creates a roster over the given directory source.
func New(dir Directory, logger *logging.Logger, opts ...Option) *Roster {
	if logger == nil {
		logger = logging.Default()
	}
	r := &Roster{
		patients:   make(map[string]Patient),
		members:    make(map[string]Member),
		dir:        dir,
		logger:     logger,
		waitBudget: defaultWaitBudget,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// WarmStart populates the roster from the latest Redis snapshot, if any.
// Failures are logged and ignored; the next Preload repairs the state.
func (r *Roster) WarmStart(ctx context.Context) {
	if r.snapshots == nil {
		return
	}
	snap, err := r.snapshots.Load(ctx)
	if err != nil {
		r.logger.Warn("roster snapshot load failed", "error", err)
		return
	}
	if snap == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loaded {
		return
	}
	for _, p := range snap.Patients {
		r.patients[p.ID] = p
	}
	for _, m := range snap.Members {
		r.members[m.ID] = m
	}
	r.loaded = true
	r.logger.Info("roster warmed from snapshot",
		"patients", len(snap.Patients),
		"members", len(snap.Members),
		"saved_at", snap.SavedAt,
	)
}

// Preload fetches the full patient and team directories. If a preload is
// already in flight the call waits for it instead of issuing another.
func (r *Roster) Preload(ctx context.Context) error {
	r.mu.Lock()
	if ch := r.inflight; ch != nil {
		r.mu.Unlock()
		return r.wait(ctx, ch)
	}
	ch := make(chan struct{})
	r.inflight = ch
	r.mu.Unlock()

	err := r.load(ctx)

	r.mu.Lock()
	r.inflight = nil
	r.mu.Unlock()
	close(ch)
	return err
}

// Ensure makes the roster usable for enrichment: a loaded roster is a
// no-op, an in-flight preload is awaited within the wait budget, and an
// empty roster triggers a preload. Errors degrade to unresolved references,
// so Ensure never fails the caller.
func (r *Roster) Ensure(ctx context.Context) {
	r.mu.Lock()
	if r.loaded {
		r.mu.Unlock()
		return
	}
	ch := r.inflight
	r.mu.Unlock()

	if ch != nil {
		if err := r.wait(ctx, ch); err != nil {
			r.logger.Debug("roster wait expired", "error", err)
		}
		return
	}
	if err := r.Preload(ctx); err != nil {
		r.logger.Warn("roster preload failed", "error", err)
	}
}

// ResolvePatient looks up a patient by id.
func (r *Roster) ResolvePatient(id string) (Patient, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.patients[id]
	return p, ok
}

// ResolveMember looks up a team member by id.
func (r *Roster) ResolveMember(id string) (Member, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.members[id]
	return m, ok
}

// EnrichPatient resolves a patient reference against the roster. An already
// resolved reference or an unknown id passes through unchanged.
func (r *Roster) EnrichPatient(ref PatientRef) PatientRef {
	if ref.Resolved() || ref.ID == "" {
		return ref
	}
	if p, ok := r.ResolvePatient(ref.ID); ok {
		ref.Record = &p
	}
	return ref
}

// EnrichMember resolves a team-member reference against the roster.
func (r *Roster) EnrichMember(ref MemberRef) MemberRef {
	if ref.Resolved() || ref.ID == "" {
		return ref
	}
	if m, ok := r.ResolveMember(ref.ID); ok {
		ref.Record = &m
	}
	return ref
}

// Patients returns a copy of the cached patient list.
func (r *Roster) Patients() []Patient {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Patient, 0, len(r.patients))
	for _, p := range r.patients {
		out = append(out, p)
	}
	return out
}

// Members returns a copy of the cached member list.
func (r *Roster) Members() []Member {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Member, 0, len(r.members))
	for _, m := range r.members {
		out = append(out, m)
	}
	return out
}

func (r *Roster) wait(ctx context.Context, ch <-chan struct{}) error {
	timer := time.NewTimer(r.waitBudget)
	defer timer.Stop()
	select {
	case <-ch:
		return nil
	case <-timer.C:
		return fmt.Errorf("roster: preload wait exceeded %s", r.waitBudget)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Roster) load(ctx context.Context) error {
	patients := make([]Patient, 0, patientPageSize)
	for page := 1; page <= maxPatientPages; page++ {
		batch, total, err := r.dir.ListPatients(ctx, page, patientPageSize)
		if err != nil {
			return fmt.Errorf("roster: list patients page %d: %w", page, err)
		}
		for _, p := range batch {
			patients = append(patients, Patient{
				ID:     p.ID,
				Name:   p.Name,
				Phone:  p.Phone,
				Status: ParsePatientStatus(p.Status),
			})
		}
		// A short page ends the roster. The gateway's total is advisory
		// and may be absent; only trust it when it is positive.
		if len(batch) < patientPageSize {
			break
		}
		if total > 0 && len(patients) >= total {
			break
		}
	}

	rawMembers, err := r.dir.ListTeamMembers(ctx)
	if err != nil {
		return fmt.Errorf("roster: list team members: %w", err)
	}
	members := make([]Member, 0, len(rawMembers))
	for _, m := range rawMembers {
		members = append(members, Member{ID: m.ID, Name: m.Name, Email: m.Email, Role: m.Role})
	}

	r.mu.Lock()
	r.patients = make(map[string]Patient, len(patients))
	for _, p := range patients {
		r.patients[p.ID] = p
	}
	r.members = make(map[string]Member, len(members))
	for _, m := range members {
		r.members[m.ID] = m
	}
	r.loaded = true
	r.mu.Unlock()

	r.logger.Info("roster loaded", "patients", len(patients), "members", len(members))

	if r.snapshots != nil {
		if err := r.snapshots.Save(ctx, patients, members); err != nil {
			r.logger.Warn("roster snapshot save failed", "error", err)
		}
	}
	return nil
}
