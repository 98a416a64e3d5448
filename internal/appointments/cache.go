package appointments

import (
	"sync"
	"time"
)

// DefaultCacheTTL mirrors the admin UI's two-minute freshness window.
const DefaultCacheTTL = 2 * time.Minute

// Index names used for metrics labels.
const (
	indexDay   = "day"
	indexMonth = "month"
	indexAll   = "all"
)

const allKey = "all"

// CacheMetrics receives read observations (fresh hit, stale hit, miss).
type CacheMetrics interface {
	ObserveCacheRead(index, result string)
}

type entry struct {
	appts []Appointment
	stamp time.Time
}

// Cache is the process-wide appointment view cache: one store with a day
// index, a month index, and the unfiltered all-appointments list, so the
// indexes cannot disagree about clocks, TTLs, or invalidation. Staleness
// never blocks a read; stale entries are served while a refresh runs.
//
// Every fetch is tagged with a per-key generation taken from Begin*; a
// completed fetch writes only if its generation is still current, so a
// superseded response can never clobber a newer one.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	days    map[string]entry
	months  map[string]entry
	all     *entry
	gens    map[string]uint64
	metrics CacheMetrics
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithClock injects a time source, used by staleness tests.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) { c.now = now }
}

// WithCacheMetrics attaches read instrumentation.
func WithCacheMetrics(m CacheMetrics) CacheOption {
	return func(c *Cache) { c.metrics = m }
}

// NewCache creates a cache with the given freshness window.
func NewCache(ttl time.Duration, opts ...CacheOption) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	c := &Cache{
		ttl:    ttl,
		now:    time.Now,
		days:   make(map[string]entry),
		months: make(map[string]entry),
		gens:   make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetDay returns the cached list for a day key. fresh reports whether the
// entry is within the TTL; a stale entry is still returned.
func (c *Cache) GetDay(key string) (appts []Appointment, fresh, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.read(indexDay, c.days[key])
}

// GetMonth returns the cached list for a month key.
func (c *Cache) GetMonth(key string) (appts []Appointment, fresh, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.read(indexMonth, c.months[key])
}

// GetAll returns the cached unfiltered appointment list.
func (c *Cache) GetAll() (appts []Appointment, fresh, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.all == nil {
		return c.read(indexAll, entry{})
	}
	return c.read(indexAll, *c.all)
}

// BeginDay registers a new fetch for a day key and returns its generation.
func (c *Cache) BeginDay(key string) uint64 {
	return c.begin(indexDay + ":" + key)
}

// BeginMonth registers a new fetch for a month key.
func (c *Cache) BeginMonth(key string) uint64 {
	return c.begin(indexMonth + ":" + key)
}

// BeginAll registers a new fetch of the unfiltered list.
func (c *Cache) BeginAll() uint64 {
	return c.begin(indexAll + ":" + allKey)
}

// PutDay overwrites the day entry if gen is still current. Returns false
// when the write was superseded by a later fetch or an invalidation.
func (c *Cache) PutDay(key string, appts []Appointment, gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[indexDay+":"+key] != gen {
		return false
	}
	c.days[key] = entry{appts: appts, stamp: c.now()}
	return true
}

// PutMonth overwrites the month entry if gen is still current.
func (c *Cache) PutMonth(key string, appts []Appointment, gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[indexMonth+":"+key] != gen {
		return false
	}
	c.months[key] = entry{appts: appts, stamp: c.now()}
	return true
}

// PutAll overwrites the unfiltered list if gen is still current.
func (c *Cache) PutAll(appts []Appointment, gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[indexAll+":"+allKey] != gen {
		return false
	}
	c.all = &entry{appts: appts, stamp: c.now()}
	return true
}

// InvalidateDate drops the entries a mutation on the given day affects: the
// day itself, its month, and the unfiltered list. Generations are bumped so
// fetches already in flight cannot resurrect the dropped data.
func (c *Cache) InvalidateDate(dayKey string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.days, dayKey)
	delete(c.months, MonthOf(dayKey))
	c.all = nil
	c.gens[indexDay+":"+dayKey]++
	c.gens[indexMonth+":"+MonthOf(dayKey)]++
	c.gens[indexAll+":"+allKey]++
}

// InvalidateAll clears every entry.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.days {
		c.gens[indexDay+":"+key]++
	}
	for key := range c.months {
		c.gens[indexMonth+":"+key]++
	}
	c.gens[indexAll+":"+allKey]++
	c.days = make(map[string]entry)
	c.months = make(map[string]entry)
	c.all = nil
}

func (c *Cache) begin(genKey string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens[genKey]++
	return c.gens[genKey]
}

func (c *Cache) read(index string, e entry) ([]Appointment, bool, bool) {
	if e.stamp.IsZero() {
		c.observe(index, "miss")
		return nil, false, false
	}
	fresh := c.now().Sub(e.stamp) < c.ttl
	if fresh {
		c.observe(index, "fresh")
	} else {
		c.observe(index, "stale")
	}
	return e.appts, fresh, true
}

func (c *Cache) observe(index, result string) {
	if c.metrics != nil {
		c.metrics.ObserveCacheRead(index, result)
	}
}
