package roster

import "strings"

// PatientStatus is the closed patient status enumeration. Raw gateway
// strings are normalized exactly once, at ingestion; nothing downstream
// compares raw strings.
type PatientStatus string

const (
	PatientActive   PatientStatus = "Active"
	PatientBooked   PatientStatus = "Booked"
	PatientFollowUp PatientStatus = "FollowUp"
	PatientInactive PatientStatus = "Inactive"
)

// ParsePatientStatus normalizes a raw status string case-insensitively.
// Unknown values map to Inactive.
func ParsePatientStatus(raw string) PatientStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "active":
		return PatientActive
	case "booked":
		return PatientBooked
	case "followup", "follow-up", "follow up":
		return PatientFollowUp
	default:
		return PatientInactive
	}
}

// Patient is a roster patient with display fields derived on demand.
type Patient struct {
	ID     string        `json:"id"`
	Name   string        `json:"name"`
	Phone  string        `json:"phone"`
	Status PatientStatus `json:"status"`
}

// Initials returns the patient's display initials.
func (p Patient) Initials() string {
	return Initials(p.Name)
}

// AvatarColor returns the patient's deterministic avatar color.
func (p Patient) AvatarColor() string {
	return AvatarColor(p.Name, p.ID)
}

// Member is a clinic team member (doctor or staff).
type Member struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// PatientRef is a tagged reference to a patient: always an id, plus the
// resolved record once enrichment has run. Replaces the original's
// string-or-object union so every consumer handles the unresolved case
// explicitly.
type PatientRef struct {
	ID     string   `json:"id"`
	Record *Patient `json:"record,omitempty"`
}

// UnresolvedPatient builds a reference that only carries an id.
func UnresolvedPatient(id string) PatientRef {
	return PatientRef{ID: id}
}

// Resolved reports whether the reference carries the full record.
func (r PatientRef) Resolved() bool {
	return r.Record != nil
}

// DisplayName returns the patient name, or the bare id when unresolved.
func (r PatientRef) DisplayName() string {
	if r.Record != nil {
		return r.Record.Name
	}
	return r.ID
}

// MemberRef is a tagged reference to a team member.
type MemberRef struct {
	ID     string  `json:"id"`
	Record *Member `json:"record,omitempty"`
}

// UnresolvedMember builds a reference that only carries an id.
func UnresolvedMember(id string) MemberRef {
	return MemberRef{ID: id}
}

// Resolved reports whether the reference carries the full record.
func (r MemberRef) Resolved() bool {
	return r.Record != nil
}

// DisplayName returns the member name, or the bare id when unresolved.
func (r MemberRef) DisplayName() string {
	if r.Record != nil {
		return r.Record.Name
	}
	return r.ID
}
