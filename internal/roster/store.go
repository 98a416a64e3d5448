package roster

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const snapshotKey = "frontdesk:roster:snapshot"

// Snapshot is the persisted roster form. It exists so a restarted instance
// serves enriched views immediately instead of hammering the CRM gateway.
type Snapshot struct {
	Patients []Patient `json:"patients"`
	Members  []Member  `json:"members"`
	SavedAt  time.Time `json:"savedAt"`
}

// Store persists roster snapshots to Redis with a TTL.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewStore creates a snapshot store.
func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

// Save writes the current roster as a snapshot.
func (s *Store) Save(ctx context.Context, patients []Patient, members []Member) error {
	snap := Snapshot{Patients: patients, Members: members, SavedAt: time.Now().UTC()}
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("roster: marshal snapshot: %w", err)
	}
	if err := s.rdb.Set(ctx, snapshotKey, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("roster: save snapshot: %w", err)
	}
	return nil
}

// Load returns the latest snapshot, or nil when none exists.
func (s *Store) Load(ctx context.Context) (*Snapshot, error) {
	raw, err := s.rdb.Get(ctx, snapshotKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("roster: load snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("roster: unmarshal snapshot: %w", err)
	}
	return &snap, nil
}
