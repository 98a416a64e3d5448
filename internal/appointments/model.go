package appointments

import (
	"fmt"
	"strings"
	"time"

	"github.com/opencliniq/frontdesk/internal/crm"
	"github.com/opencliniq/frontdesk/internal/roster"
)

const (
	// DayKeyFormat keys day-level cache entries and view dates.
	DayKeyFormat = "2006-01-02"
	// MonthKeyFormat keys month-level cache entries.
	MonthKeyFormat = "2006-01"
)

// Status is the closed appointment status enumeration. Gateway strings are
// normalized here, once; raw strings are never compared downstream.
type Status string

const (
	StatusConfirmed Status = "Confirmed"
	StatusPending   Status = "Pending"
	StatusCompleted Status = "Completed"
	StatusCancelled Status = "Cancelled"
)

// ParseStatus normalizes a raw status string case-insensitively.
func ParseStatus(raw string) (Status, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "confirmed":
		return StatusConfirmed, true
	case "pending":
		return StatusPending, true
	case "completed":
		return StatusCompleted, true
	case "cancelled", "canceled":
		return StatusCancelled, true
	default:
		return "", false
	}
}

// sortRank orders statuses so actionable appointments surface first.
func (s Status) sortRank() int {
	switch s {
	case StatusConfirmed:
		return 0
	case StatusPending:
		return 1
	case StatusCancelled:
		return 2
	case StatusCompleted:
		return 3
	default:
		return 4
	}
}

// Appointment is the normalized view-layer appointment. Day is the calendar
// day key; Time is the gateway's time-of-day string kept verbatim for
// display and tie-breaking.
type Appointment struct {
	ID      string            `json:"id"`
	Day     string            `json:"date"`
	Time    string            `json:"time"`
	Status  Status            `json:"status"`
	Type    string            `json:"type,omitempty"`
	Patient roster.PatientRef `json:"patient"`
	Doctor  roster.MemberRef  `json:"doctor"`
}

// fromCRM normalizes a gateway appointment. Unknown statuses become Pending
// so a misbehaving gateway surfaces appointments as actionable rather than
// hiding them.
func fromCRM(dto crm.Appointment) (Appointment, error) {
	if dto.ID == "" {
		return Appointment{}, fmt.Errorf("appointments: record without id")
	}
	day, err := normalizeDay(dto.Date)
	if err != nil {
		return Appointment{}, err
	}
	status, ok := ParseStatus(dto.Status)
	if !ok {
		status = StatusPending
	}
	return Appointment{
		ID:      dto.ID,
		Day:     day,
		Time:    dto.Time,
		Status:  status,
		Type:    dto.Type,
		Patient: roster.UnresolvedPatient(dto.PatientID),
		Doctor:  roster.UnresolvedMember(dto.DoctorID),
	}, nil
}

var dayLayouts = []string{
	DayKeyFormat,
	time.RFC3339,
	"2006-01-02T15:04:05",
}

// normalizeDay reduces whatever date shape the gateway produced to a day key.
func normalizeDay(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dayLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format(DayKeyFormat), nil
		}
	}
	return "", fmt.Errorf("appointments: unparseable date %q", raw)
}

// MonthOf returns the month key a day key belongs to.
func MonthOf(dayKey string) string {
	if len(dayKey) < len(MonthKeyFormat) {
		return dayKey
	}
	return dayKey[:len(MonthKeyFormat)]
}
