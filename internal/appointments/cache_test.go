package appointments

import (
	"testing"
	"time"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestCache(ttl time.Duration) (*Cache, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	return NewCache(ttl, WithClock(clock.Now)), clock
}

func TestCacheRoundTrip(t *testing.T) {
	c, clock := newTestCache(2 * time.Minute)
	key := "2026-03-02"
	appts := []Appointment{{ID: "a1", Day: key, Status: StatusConfirmed}}

	gen := c.BeginDay(key)
	if !c.PutDay(key, appts, gen) {
		t.Fatal("PutDay rejected a current generation")
	}

	got, fresh, ok := c.GetDay(key)
	if !ok || !fresh {
		t.Fatalf("GetDay = ok=%v fresh=%v, want fresh hit", ok, fresh)
	}
	if len(got) != 1 || got[0].ID != "a1" {
		t.Fatalf("unexpected entries: %+v", got)
	}

	clock.Advance(2*time.Minute + time.Second)
	got, fresh, ok = c.GetDay(key)
	if !ok || fresh {
		t.Fatalf("after TTL: ok=%v fresh=%v, want stale hit", ok, fresh)
	}
	if len(got) != 1 {
		t.Fatal("stale read must still return the entries")
	}
}

func TestCacheMissOnUnknownKey(t *testing.T) {
	c, _ := newTestCache(time.Minute)
	if _, _, ok := c.GetDay("2026-01-01"); ok {
		t.Fatal("expected miss for unknown key")
	}
}

func TestGenerationSupersedesEarlierFetch(t *testing.T) {
	c, _ := newTestCache(time.Minute)
	key := "2026-03-02"

	genOld := c.BeginDay(key)
	genNew := c.BeginDay(key)

	// The newer fetch lands first.
	if !c.PutDay(key, []Appointment{{ID: "new"}}, genNew) {
		t.Fatal("current generation rejected")
	}
	// The older, superseded fetch must not clobber it.
	if c.PutDay(key, []Appointment{{ID: "old"}}, genOld) {
		t.Fatal("superseded generation applied")
	}

	got, _, _ := c.GetDay(key)
	if len(got) != 1 || got[0].ID != "new" {
		t.Fatalf("cache holds %+v, want the newer result", got)
	}
}

func TestInvalidateDateDropsDayMonthAndAll(t *testing.T) {
	c, _ := newTestCache(time.Minute)
	day := "2026-03-02"
	month := "2026-03"

	c.PutDay(day, []Appointment{{ID: "a1"}}, c.BeginDay(day))
	c.PutMonth(month, []Appointment{{ID: "a1"}}, c.BeginMonth(month))
	c.PutAll([]Appointment{{ID: "a1"}}, c.BeginAll())

	// A fetch in flight across the invalidation must be discarded.
	staleGen := c.BeginDay(day)
	c.InvalidateDate(day)

	if _, _, ok := c.GetDay(day); ok {
		t.Error("day entry survived invalidation")
	}
	if _, _, ok := c.GetMonth(month); ok {
		t.Error("month entry survived invalidation")
	}
	if _, _, ok := c.GetAll(); ok {
		t.Error("all entry survived invalidation")
	}
	if c.PutDay(day, []Appointment{{ID: "zombie"}}, staleGen) {
		t.Error("pre-invalidation fetch resurrected dropped data")
	}
}

func TestInvalidateAll(t *testing.T) {
	c, _ := newTestCache(time.Minute)
	c.PutDay("2026-03-02", []Appointment{{ID: "a"}}, c.BeginDay("2026-03-02"))
	c.PutMonth("2026-04", []Appointment{{ID: "b"}}, c.BeginMonth("2026-04"))
	c.InvalidateAll()
	if _, _, ok := c.GetDay("2026-03-02"); ok {
		t.Error("day entry survived InvalidateAll")
	}
	if _, _, ok := c.GetMonth("2026-04"); ok {
		t.Error("month entry survived InvalidateAll")
	}
}
