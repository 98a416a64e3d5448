package appointments

import (
	"context"
	"sync"
	"time"
)

// Notification levels surfaced to the admin UI (toast analog).
const (
	LevelInfo  = "info"
	LevelError = "error"
)

// Notification is a user-facing message queued on a session.
type Notification struct {
	Level   string    `json:"level"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Session holds the view state one admin UI instance sees: the current day
// and month lists, loading flags, and queued notifications. Sessions share
// the process-wide cache and roster through the Service; per-key state
// machine: Empty -> Loading -> Fresh -> Stale -> (Refreshing | Fresh),
// where Loading blocks only the first population of a key.
type Session struct {
	svc *Service

	mu              sync.Mutex
	dayKey          string
	monthKey        string
	day             []Appointment
	month           []Appointment
	all             []Appointment
	loadingDay      bool
	refreshingDay   bool
	loadingMonth    bool
	refreshingMonth bool
	notes           []Notification
	lastSeen        time.Time
}

// NewSession creates an empty view session bound to the service.
func (s *Service) NewSession() *Session {
	return &Session{svc: s, lastSeen: time.Now()}
}

// LoadDay synchronizes the session's day view with the given date.
//
// Blocking mode (background=false) implements stale-while-revalidate: a
// fresh cache entry is served as-is; a stale entry is served immediately
// while a background refresh is scheduled; an empty key fetches with the
// loading flag set. A second blocking call while one is in flight is
// dropped. Background mode refetches unconditionally under its own relaxed
// guard and fails silently, leaving the stale view visible.
func (sess *Session) LoadDay(ctx context.Context, date time.Time, background bool) error {
	key := date.Format(DayKeyFormat)
	svc := sess.svc

	sess.mu.Lock()
	if key != sess.dayKey {
		// A flag set by a previous key's in-flight call must not block a
		// different key.
		sess.dayKey = key
		sess.loadingDay = false
		sess.refreshingDay = false
	}
	if background {
		if sess.refreshingDay {
			sess.mu.Unlock()
			svc.observeRefresh(true, outcomeDropped)
			return nil
		}
		sess.refreshingDay = true
	} else {
		if sess.loadingDay {
			sess.mu.Unlock()
			svc.observeRefresh(false, outcomeDropped)
			return nil
		}
		if cached, fresh, ok := svc.cache.GetDay(key); ok {
			sess.day = cached
			sess.mu.Unlock()
			if !fresh {
				svc.spawn(func() {
					_ = sess.LoadDay(svc.backgroundContext(), date, true)
				})
			}
			return nil
		}
		sess.loadingDay = true
	}
	sess.mu.Unlock()

	appts, err := svc.fetchDay(ctx, key)

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if background {
		sess.refreshingDay = false
	} else {
		sess.loadingDay = false
	}

	if err != nil {
		svc.observeRefresh(background, outcomeError)
		if background {
			// Availability over freshness: the stale view stays visible.
			svc.logger.Warn("background day refresh failed", "day", key, "error", err)
			return nil
		}
		sess.notifyLocked(LevelError, "Could not load appointments for "+key+".")
		return err
	}
	if appts == nil {
		svc.observeRefresh(background, outcomeSuperseded)
		return nil
	}
	svc.observeRefresh(background, outcomeOK)
	if sess.dayKey == key {
		sess.day = appts
	}
	return nil
}

// LoadMonth synchronizes the session's month view, using one unfiltered
// list fetch and retaining the full list for cross-month projections. Guard
// and error policy mirror LoadDay.
func (sess *Session) LoadMonth(ctx context.Context, month time.Time, background bool) error {
	key := month.Format(MonthKeyFormat)
	svc := sess.svc

	sess.mu.Lock()
	if key != sess.monthKey {
		sess.monthKey = key
		sess.loadingMonth = false
		sess.refreshingMonth = false
	}
	if background {
		if sess.refreshingMonth {
			sess.mu.Unlock()
			svc.observeRefresh(true, outcomeDropped)
			return nil
		}
		sess.refreshingMonth = true
	} else {
		if sess.loadingMonth {
			sess.mu.Unlock()
			svc.observeRefresh(false, outcomeDropped)
			return nil
		}
		cachedMonth, freshMonth, okMonth := svc.cache.GetMonth(key)
		cachedAll, _, okAll := svc.cache.GetAll()
		if okMonth {
			sess.month = cachedMonth
			if okAll {
				sess.all = cachedAll
			}
			sess.mu.Unlock()
			if !freshMonth {
				svc.spawn(func() {
					_ = sess.LoadMonth(svc.backgroundContext(), month, true)
				})
			}
			return nil
		}
		sess.loadingMonth = true
	}
	sess.mu.Unlock()

	res, err := svc.fetchMonth(ctx, key)

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if background {
		sess.refreshingMonth = false
	} else {
		sess.loadingMonth = false
	}

	if err != nil {
		svc.observeRefresh(background, outcomeError)
		if background {
			svc.logger.Warn("background month refresh failed", "month", key, "error", err)
			return nil
		}
		sess.notifyLocked(LevelError, "Could not load appointments for "+key+".")
		return err
	}
	if res == nil {
		svc.observeRefresh(background, outcomeSuperseded)
		return nil
	}
	svc.observeRefresh(background, outcomeOK)
	if res.month != nil && sess.monthKey == key {
		sess.month = res.month
	}
	if res.all != nil {
		sess.all = res.all
	}
	return nil
}

// ApplyMutation reconciles a created or updated appointment into the view:
// the affected cache keys are invalidated, the in-memory list is patched
// optimistically (insert at head for a new id, replace for an existing
// one), and a background refresh reconciles with the source of truth. An
// appointment whose date is not the viewed date is removed from the view
// and the user is told it moved.
func (sess *Session) ApplyMutation(appt Appointment) {
	svc := sess.svc
	svc.cache.InvalidateDate(appt.Day)

	sess.mu.Lock()
	if appt.Day == sess.dayKey {
		replaced := false
		next := make([]Appointment, 0, len(sess.day)+1)
		for _, existing := range sess.day {
			if existing.ID == appt.ID {
				next = append(next, appt)
				replaced = true
			} else {
				next = append(next, existing)
			}
		}
		if !replaced {
			next = append([]Appointment{appt}, next...)
		}
		sess.day = next
	} else {
		for i, existing := range sess.day {
			if existing.ID == appt.ID {
				sess.day = append(sess.day[:i:i], sess.day[i+1:]...)
				sess.notifyLocked(LevelInfo, "Appointment moved to "+appt.Day+".")
				break
			}
		}
	}
	dayKey, monthKey := sess.dayKey, sess.monthKey
	sess.mu.Unlock()

	svc.spawn(func() {
		ctx := svc.backgroundContext()
		if day, err := time.Parse(DayKeyFormat, dayKey); err == nil {
			_ = sess.LoadDay(ctx, day, true)
		}
		if month, err := time.Parse(MonthKeyFormat, monthKey); err == nil {
			_ = sess.LoadMonth(ctx, month, true)
		}
	})
}

// Cancel cancels an appointment on the gateway. It is conservative: the
// caller must have confirmed, nothing is removed optimistically, and on
// failure the view is left unchanged. On success both views are refreshed.
func (sess *Session) Cancel(ctx context.Context, id string, confirmed bool) error {
	if !confirmed {
		return ErrCancelNotConfirmed
	}
	svc := sess.svc
	if err := svc.crm.CancelAppointment(ctx, id); err != nil {
		sess.notify(LevelError, "Could not cancel the appointment.")
		return err
	}

	sess.mu.Lock()
	dayKey, monthKey := sess.dayKey, sess.monthKey
	sess.mu.Unlock()
	if dayKey != "" {
		svc.cache.InvalidateDate(dayKey)
		if day, err := time.Parse(DayKeyFormat, dayKey); err == nil {
			_ = sess.LoadDay(ctx, day, false)
		}
	}
	if monthKey != "" {
		if month, err := time.Parse(MonthKeyFormat, monthKey); err == nil {
			_ = sess.LoadMonth(ctx, month, false)
		}
	}
	return nil
}

// DayView returns a copy of the current day list.
func (sess *Session) DayView() []Appointment {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return append([]Appointment(nil), sess.day...)
}

// MonthView returns a copy of the current month list.
func (sess *Session) MonthView() []Appointment {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return append([]Appointment(nil), sess.month...)
}

// CalendarDots projects status dots for the given month from whichever
// collection is freshest for it.
func (sess *Session) CalendarDots(monthKey string) map[string][]Status {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return MonthDots(monthKey, sess.month, sess.monthKey, sess.all)
}

// Loading reports whether a blocking day load is in flight.
func (sess *Session) Loading() bool {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.loadingDay || sess.loadingMonth
}

// Notifications drains the session's queued user notifications.
func (sess *Session) Notifications() []Notification {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	out := sess.notes
	sess.notes = nil
	return out
}

func (sess *Session) notify(level, message string) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.notifyLocked(level, message)
}

func (sess *Session) notifyLocked(level, message string) {
	sess.notes = append(sess.notes, Notification{Level: level, Message: message, At: time.Now()})
}

func (sess *Session) touch(now time.Time) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.lastSeen = now
}

func (sess *Session) idleSince(now time.Time) time.Duration {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return now.Sub(sess.lastSeen)
}

// AllView returns a copy of the retained unfiltered appointment list.
func (sess *Session) AllView() []Appointment {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return append([]Appointment(nil), sess.all...)
}
