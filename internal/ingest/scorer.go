package ingest

import (
	"fmt"
	"strings"

	"github.com/david/topo-radar/internal/models"
)

// Value tier thresholds, in USD.
const (
	valueTierMajor = 10_000_000
	valueTierLarge = 1_000_000
)

// Scorer computes the 0-100 priority score as a sum of weighted
// sub-scores: urgency (max 30), contract value (max 30), category fit
// (max 15), source verification (10) and domain keywords (max 15).
// Scoring reads the record and never mutates anything but PriorityScore
// and PriorityLabel, so re-scoring an already scored record yields the
// same value.
type Scorer struct {
	Keywords *KeywordConfig
}

func NewScorer(kw *KeywordConfig) *Scorer {
	return &Scorer{Keywords: kw}
}

// Score assigns PriorityScore and PriorityLabel.
func (s *Scorer) Score(opp *models.Opportunity) {
	opp.PriorityScore = s.Compute(opp)
	opp.PriorityLabel = fmt.Sprintf("top %s: score %d", opp.Country, opp.PriorityScore)
}

// Compute returns the priority score for a record without mutating it.
func (s *Scorer) Compute(opp *models.Opportunity) int {
	score := urgencyPoints(opp.Timeline.Urgency)
	score += valuePoints(opp.AmountUSD)
	score += categoryPoints(opp.Category)
	score += s.verificationPoints(opp)
	score += s.keywordPoints(opp)

	if score > models.MaxScore {
		score = models.MaxScore
	}
	if score < 0 {
		score = 0
	}
	return score
}

func urgencyPoints(u models.Urgency) int {
	switch u {
	case models.UrgencyUrgent:
		return 30
	case models.UrgencyNear:
		return 20
	default:
		return 10
	}
}

func valuePoints(amountUSD int64) int {
	switch {
	case amountUSD >= valueTierMajor:
		return 30
	case amountUSD >= valueTierLarge:
		return 20
	case amountUSD > 0:
		return 10
	default:
		return 0
	}
}

func categoryPoints(c models.Category) int {
	switch c {
	case models.CategoryDaaS:
		return 15
	case models.CategoryPlatform:
		return 10
	case models.CategoryRnD:
		return 5
	default:
		return 0
	}
}

// verificationPoints awards the flat verification bonus when the record
// carries at least one well-formed source link.
func (s *Scorer) verificationPoints(opp *models.Opportunity) int {
	for _, link := range opp.Links {
		if ValidLink(link) {
			return 10
		}
	}
	return 0
}

// keywordPoints awards the highest matching tier only; tiers do not
// stack, so a record matching both "lidar" and "survey" earns the
// 15-point tier, not 20.
func (s *Scorer) keywordPoints(opp *models.Opportunity) int {
	text := strings.ToLower(opp.Title + " " + opp.Description)
	best := 0
	for _, tier := range s.Keywords.Scoring.Tiers {
		if tier.Points > best && containsAnyFold(text, tier.Terms) {
			best = tier.Points
		}
	}
	return best
}
