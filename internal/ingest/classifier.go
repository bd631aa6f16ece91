package ingest

import (
	"strings"

	"github.com/david/topo-radar/internal/models"
)

// Classifier assigns segment, fiscal status and category from record
// text. All methods are pure functions of their inputs and the keyword
// configuration.
type Classifier struct {
	Keywords *KeywordConfig
}

func NewClassifier(kw *KeywordConfig) *Classifier {
	return &Classifier{Keywords: kw}
}

// Classify fills Segment, FiscalStatus and Category on a normalized
// record. A category already set by the source is kept.
func (c *Classifier) Classify(opp *models.Opportunity) {
	text := strings.ToLower(opp.Title + " " + opp.Description)

	opp.Segment = c.ClassifySegment(text)
	opp.FiscalStatus = c.ClassifyFiscal(text, opp.AmountUSD, opp.Timeline.Urgency)
	if opp.Category == "" {
		opp.Category = c.categoryForSegment(opp.Segment)
	}
}

// ClassifySegment returns the first segment whose trigger list matches
// the lowercased record text, in configuration order. No match falls
// through to the default segment.
func (c *Classifier) ClassifySegment(loweredText string) string {
	for _, rule := range c.Keywords.Segments {
		if containsAnyFold(loweredText, rule.Triggers) {
			return rule.Name
		}
	}
	return c.Keywords.DefaultSegment
}

// ClassifyFiscal decides Active vs Forecast. Forecast language wins
// outright even on funded, imminent records: "sources sought" notices
// routinely carry estimated values and near-term response dates but are
// not yet obligable money.
func (c *Classifier) ClassifyFiscal(loweredText string, amountUSD int64, urgency models.Urgency) models.FiscalStatus {
	if containsAnyFold(loweredText, c.Keywords.Fiscal.Forecast) {
		return models.FiscalForecast
	}
	if containsAnyFold(loweredText, c.Keywords.Fiscal.Active) {
		return models.FiscalActive
	}
	if amountUSD > 0 && (urgency == models.UrgencyUrgent || urgency == models.UrgencyNear) {
		return models.FiscalActive
	}
	return models.FiscalForecast
}

// categoryForSegment derives the revenue category from the segment when
// the source provided none.
func (c *Classifier) categoryForSegment(segment string) models.Category {
	switch segment {
	case models.SegmentSpaceSystems:
		return models.CategoryRnD
	case models.SegmentSpatialIntelligence:
		return models.CategoryPlatform
	default:
		return models.CategoryDaaS
	}
}
