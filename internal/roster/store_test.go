package roster

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestSnapshotRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewStore(rdb, time.Hour)

	patients := []Patient{{ID: "p1", Name: "Sarah Miller", Status: PatientActive}}
	members := []Member{{ID: "d1", Name: "Dr. Reyes", Role: "doctor"}}
	if err := store.Save(context.Background(), patients, members); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	snap, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if snap == nil || len(snap.Patients) != 1 || snap.Patients[0].Name != "Sarah Miller" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if len(snap.Members) != 1 || snap.Members[0].ID != "d1" {
		t.Fatalf("unexpected members: %+v", snap.Members)
	}
}

func TestLoadEmptyReturnsNil(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewStore(rdb, time.Hour)

	snap, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if snap != nil {
		t.Fatalf("snapshot = %+v, want nil", snap)
	}
}

func TestWarmStartFromSnapshot(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewStore(rdb, time.Hour)

	if err := store.Save(context.Background(), []Patient{{ID: "p1", Name: "Sarah Miller"}}, nil); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	r := New(&fakeDirectory{}, nil, WithSnapshots(store))
	r.WarmStart(context.Background())

	if _, ok := r.ResolvePatient("p1"); !ok {
		t.Error("warm start did not populate the roster")
	}
}
