package ingest

import (
	"testing"

	"github.com/david/topo-radar/internal/models"
)

func TestScoreMaximumScenario(t *testing.T) {
	s := NewScorer(testKeywords(t))

	// urgent + major value + DaaS + verified link + top keyword tier
	opp := models.Opportunity{
		Title:     "Statewide Lidar Elevation Acquisition",
		AmountUSD: 150_000_000,
		Category:  models.CategoryDaaS,
		Timeline:  models.Timeline{DaysUntil: 10, Urgency: models.UrgencyUrgent},
		Links:     []string{"https://sam.gov/opp/abc"},
	}

	got := s.Compute(&opp)
	if got != models.MaxScore {
		t.Fatalf("score = %d, want %d", got, models.MaxScore)
	}
}

func TestScoreMinimumScenario(t *testing.T) {
	s := NewScorer(testKeywords(t))

	// future + no value + R&D + no link + no keyword
	opp := models.Opportunity{
		Title:    "General research notice",
		Category: models.CategoryRnD,
		Timeline: models.Timeline{DaysUntil: 400, Urgency: models.UrgencyFuture},
	}

	// urgency floor 10 + category 5 is the lowest a valid record can go
	if got := s.Compute(&opp); got != 15 {
		t.Fatalf("score = %d, want 15", got)
	}
}

func TestScoreDeterministicAndIdempotent(t *testing.T) {
	s := NewScorer(testKeywords(t))

	opp := models.Opportunity{
		Title:     "Topographic mapping services",
		AmountUSD: 2_000_000,
		Category:  models.CategoryPlatform,
		Timeline:  models.Timeline{DaysUntil: 45, Urgency: models.UrgencyNear},
		Links:     []string{"https://example.org/notice"},
	}

	first := s.Compute(&opp)
	s.Score(&opp)
	s.Score(&opp) // scoring a scored record must not drift
	if opp.PriorityScore != first {
		t.Fatalf("re-scoring drifted: %d then %d", first, opp.PriorityScore)
	}
}

func TestScoreSubScores(t *testing.T) {
	s := NewScorer(testKeywords(t))

	cases := []struct {
		name string
		opp  models.Opportunity
		want int
	}{
		{
			name: "value tier large",
			opp: models.Opportunity{
				Title:     "untracked notice",
				AmountUSD: 1_000_000,
				Category:  models.CategoryRnD,
				Timeline:  models.Timeline{Urgency: models.UrgencyFuture},
			},
			want: 10 + 20 + 5, // future + large value + R&D
		},
		{
			name: "value tier small",
			opp: models.Opportunity{
				Title:     "untracked notice",
				AmountUSD: 50_000,
				Category:  models.CategoryRnD,
				Timeline:  models.Timeline{Urgency: models.UrgencyFuture},
			},
			want: 10 + 10 + 5,
		},
		{
			name: "keyword tiers do not stack",
			opp: models.Opportunity{
				// "lidar" (15) and "survey" (5) together still award 15
				Title:    "lidar survey notice",
				Category: models.CategoryRnD,
				Timeline: models.Timeline{Urgency: models.UrgencyFuture},
			},
			want: 10 + 5 + 15,
		},
		{
			name: "invalid link earns no verification bonus",
			opp: models.Opportunity{
				Title:    "untracked notice",
				Category: models.CategoryRnD,
				Timeline: models.Timeline{Urgency: models.UrgencyFuture},
				Links:    []string{"#", "None"},
			},
			want: 10 + 5,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := s.Compute(&tc.opp); got != tc.want {
				t.Fatalf("score = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestScoreBounds(t *testing.T) {
	s := NewScorer(testKeywords(t))
	opps := []models.Opportunity{
		{},
		{Title: "lidar elevation 3dep mapping geospatial survey terrain", AmountUSD: 1 << 60,
			Category: models.CategoryDaaS, Timeline: models.Timeline{Urgency: models.UrgencyUrgent},
			Links: []string{"https://x.gov/a"}},
	}
	for i := range opps {
		got := s.Compute(&opps[i])
		if got < 0 || got > models.MaxScore {
			t.Fatalf("record %d: score %d outside [0, %d]", i, got, models.MaxScore)
		}
	}
}

func TestScoreSetsLabel(t *testing.T) {
	s := NewScorer(testKeywords(t))
	opp := models.Opportunity{
		Title:    "lidar notice",
		Country:  "USA",
		Category: models.CategoryDaaS,
		Timeline: models.Timeline{Urgency: models.UrgencyFuture},
	}
	s.Score(&opp)
	want := "top USA: score 40"
	if opp.PriorityLabel != want {
		t.Fatalf("label = %q, want %q", opp.PriorityLabel, want)
	}
}
