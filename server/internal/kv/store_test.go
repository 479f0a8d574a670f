package kv

import (
	"errors"
	"testing"
	"time"
)

type fixed Snapshot

func (f fixed) Snapshot() Snapshot { return Snapshot(f) }

func TestStore(t *testing.T) {
	s := NewStore()

	now := time.Now()
	s.Set("b", fixed{ID: "b", StartedAt: now})
	s.Set("a", fixed{ID: "a", StartedAt: now.Add(-time.Minute)})

	if s.Len() != 2 {
		t.Fatalf("Len() = %d", s.Len())
	}

	all := s.All()
	if len(all) != 2 || all[0].ID != "a" || all[1].ID != "b" {
		t.Fatalf("All() = %+v", all)
	}

	if _, err := s.Get("a"); err != nil {
		t.Fatal(err)
	}

	s.Delete("a")
	s.Delete("a")

	if _, err := s.Get("a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("Len() = %d", s.Len())
	}
}

func TestEmptyStoreListsNothing(t *testing.T) {
	if all := NewStore().All(); all == nil || len(all) != 0 {
		t.Fatalf("All() = %#v, want an empty slice", all)
	}
}
