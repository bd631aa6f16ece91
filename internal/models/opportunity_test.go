package models

import (
	"testing"
	"time"
)

func TestUrgencyForBoundaries(t *testing.T) {
	cases := []struct {
		daysUntil int
		want      Urgency
	}{
		{0, UrgencyUrgent},
		{29, UrgencyUrgent},
		{30, UrgencyNear},
		{89, UrgencyNear},
		{90, UrgencyFuture},
		{999, UrgencyFuture},
	}

	for _, tc := range cases {
		if got := UrgencyFor(tc.daysUntil); got != tc.want {
			t.Errorf("UrgencyFor(%d) = %s, want %s", tc.daysUntil, got, tc.want)
		}
	}
}

func TestFinalizeRederivesTotalCount(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	ds := &Dataset{
		Opportunities: []Opportunity{{ID: "a"}, {ID: "b"}, {ID: "c"}},
	}
	ds.Meta.TotalCount = 99 // stale value must not survive

	ds.Finalize(now)

	if ds.Meta.TotalCount != 3 {
		t.Fatalf("TotalCount = %d, want 3", ds.Meta.TotalCount)
	}
	if !ds.Meta.Updated.Equal(now.UTC()) {
		t.Fatalf("Updated = %v, want %v", ds.Meta.Updated, now.UTC())
	}
}
