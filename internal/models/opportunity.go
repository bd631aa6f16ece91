package models

import "time"

// Category is the three-way business classification of an opportunity.
type Category string

const (
	CategoryDaaS     Category = "DaaS"
	CategoryRnD      Category = "R&D"
	CategoryPlatform Category = "Platform"
)

// ValidCategories lists every accepted category value.
var ValidCategories = []Category{CategoryDaaS, CategoryRnD, CategoryPlatform}

// Urgency buckets a deadline by proximity.
type Urgency string

const (
	UrgencyUrgent Urgency = "urgent"
	UrgencyNear   Urgency = "near"
	UrgencyFuture Urgency = "future"
)

// ValidUrgencies lists every accepted urgency value.
var ValidUrgencies = []Urgency{UrgencyUrgent, UrgencyNear, UrgencyFuture}

// FiscalStatus says whether the money is available now or anticipated.
type FiscalStatus string

const (
	FiscalActive   FiscalStatus = "Active"
	FiscalForecast FiscalStatus = "Forecast"
)

// ValidFiscalStatuses lists every accepted fiscal status value.
var ValidFiscalStatuses = []FiscalStatus{FiscalActive, FiscalForecast}

// Business segments. SegmentDaaS doubles as the catch-all default.
const (
	SegmentSpaceSystems        = "Space Systems"
	SegmentSpatialIntelligence = "Spatial Intelligence"
	SegmentDaaS                = "DaaS"
)

// Segments in fixed order, used by the classifier and the flow graph.
var Segments = []string{SegmentSpaceSystems, SegmentSpatialIntelligence, SegmentDaaS}

// MaxScore is the upper bound of PriorityScore.
const MaxScore = 100

// Timeline captures deadline proximity for an opportunity.
type Timeline struct {
	DaysUntil int     `json:"daysUntil"`
	Urgency   Urgency `json:"urgency"`
}

// Provenance records where an opportunity came from. It never feeds
// scoring logic beyond the boolean "has a verifiable source link".
type Provenance struct {
	SourceName string    `json:"sourceName"`
	SourceType string    `json:"sourceType"`
	ScrapedAt  time.Time `json:"scrapedAt"`
}

// Opportunity is the canonical record: normalized, deduplicated,
// classified and scored. It is built once per run and mutated only by
// the classifier and scorer stages.
type Opportunity struct {
	ID            string       `json:"id"`
	Title         string       `json:"title"`
	Agency        string       `json:"agency"`
	Country       string       `json:"country"`
	Description   string       `json:"description"`
	AmountUSD     int64        `json:"amountUSD"`
	ForecastValue string       `json:"forecast_value"` // formatted duplicate of AmountUSD, kept for consumers
	Timeline      Timeline     `json:"timeline"`
	Category      Category     `json:"category"`
	Segment       string       `json:"segment"`
	FiscalStatus  FiscalStatus `json:"fiscalStatus"`
	PriorityScore int          `json:"priorityScore"`
	PriorityLabel string       `json:"priorityLabel"`
	Provenance    Provenance   `json:"provenance"`
	Links         []string     `json:"links"`
}

// Meta is the summary block of a canonical dataset. TotalCount must
// always equal len(Opportunities) at write time; Finalize enforces that.
type Meta struct {
	TotalCount           int       `json:"totalCount"`
	Updated              time.Time `json:"updated"`
	SuppressedDuplicates int       `json:"suppressedDuplicates"`
	FilteredOffDomain    int       `json:"filteredOffDomain"`
}

// Dataset is the canonical record file: metadata plus the record list.
type Dataset struct {
	Meta          Meta          `json:"meta"`
	Opportunities []Opportunity `json:"opportunities"`
}

// Finalize re-derives Meta.TotalCount from the live record list and
// stamps the update time. Count is never cached independently.
func (d *Dataset) Finalize(now time.Time) {
	d.Meta.TotalCount = len(d.Opportunities)
	d.Meta.Updated = now.UTC()
}

// UrgencyFor maps days-until-deadline onto an urgency tier. Boundary
// values belong to the next tier up: 30 is near, 90 is future.
func UrgencyFor(daysUntil int) Urgency {
	switch {
	case daysUntil < 30:
		return UrgencyUrgent
	case daysUntil < 90:
		return UrgencyNear
	default:
		return UrgencyFuture
	}
}
