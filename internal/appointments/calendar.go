package appointments

// DayDots returns the status dots to render for one calendar day: only
// Pending and Confirmed appointments produce dots, Pending first. Completed
// and Cancelled stay visible in list views but never on the calendar.
func DayDots(list []Appointment, day string) []Status {
	var pending, confirmed bool
	for _, a := range list {
		if a.Day != day {
			continue
		}
		switch a.Status {
		case StatusPending:
			pending = true
		case StatusConfirmed:
			confirmed = true
		}
	}
	dots := make([]Status, 0, 2)
	if pending {
		dots = append(dots, StatusPending)
	}
	if confirmed {
		dots = append(dots, StatusConfirmed)
	}
	return dots
}

// MonthDots projects status dots for every day of a month. The fetched
// month list is authoritative for the month it was fetched for; any other
// month falls back to the cross-month all-appointments list, so navigating
// to an adjacent month shows dots before its data has been fetched.
func MonthDots(monthKey string, fetchedMonth []Appointment, fetchedMonthKey string, all []Appointment) map[string][]Status {
	source := all
	if fetchedMonthKey == monthKey && fetchedMonth != nil {
		source = fetchedMonth
	}

	byDay := make(map[string][]Appointment)
	for _, a := range source {
		if MonthOf(a.Day) != monthKey {
			continue
		}
		byDay[a.Day] = append(byDay[a.Day], a)
	}

	dots := make(map[string][]Status, len(byDay))
	for day, appts := range byDay {
		if d := DayDots(appts, day); len(d) > 0 {
			dots[day] = d
		}
	}
	return dots
}
