package appointments

import (
	"sort"
	"strings"
)

// StatusFilterAll disables status filtering.
const StatusFilterAll = "all"

// Filter narrows a list by patient-name search and status, then sorts the
// result by status priority. Pure; the input slice is not modified.
func Filter(list []Appointment, search, statusFilter string) []Appointment {
	search = strings.ToLower(strings.TrimSpace(search))

	var wantStatus Status
	filterByStatus := false
	if f := strings.TrimSpace(statusFilter); f != "" && !strings.EqualFold(f, StatusFilterAll) {
		if parsed, ok := ParseStatus(f); ok {
			wantStatus = parsed
			filterByStatus = true
		} else {
			// An unrecognized filter matches nothing rather than everything.
			return []Appointment{}
		}
	}

	out := make([]Appointment, 0, len(list))
	for _, a := range list {
		if filterByStatus && a.Status != wantStatus {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(a.Patient.DisplayName()), search) {
			continue
		}
		out = append(out, a)
	}
	return SortByPriority(out)
}

// SortByPriority orders appointments Confirmed < Pending < Cancelled <
// Completed, tie-broken by the time-of-day string. Actionable first is a
// product decision carried over from the admin UI. Sorts in place and
// returns the slice.
func SortByPriority(list []Appointment) []Appointment {
	sort.SliceStable(list, func(i, j int) bool {
		ri, rj := list[i].Status.sortRank(), list[j].Status.sortRank()
		if ri != rj {
			return ri < rj
		}
		return list[i].Time < list[j].Time
	})
	return list
}

// Upcoming returns appointments on or after today that still need action
// (not cancelled or completed), soonest first.
func Upcoming(list []Appointment, today string) []Appointment {
	out := make([]Appointment, 0, len(list))
	for _, a := range list {
		if a.Day < today {
			continue
		}
		if a.Status == StatusCancelled || a.Status == StatusCompleted {
			continue
		}
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Day != out[j].Day {
			return out[i].Day < out[j].Day
		}
		return out[i].Time < out[j].Time
	})
	return out
}
