// Package qc validates a finalized dataset before anything downstream
// is allowed to consume it. Validation never mutates the dataset and
// never stops at the first finding; a report carries everything wrong
// at once.
package qc

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/david/topo-radar/internal/models"
)

const (
	StatusPass = "PASS"
	StatusFail = "FAIL"
)

// Report is the outcome of a full validation pass. Status is FAIL iff
// at least one error was recorded; warnings alone never fail a run.
type Report struct {
	Status      string    `json:"status"`
	Errors      []string  `json:"errors"`
	Warnings    []string  `json:"warnings"`
	Checked     int       `json:"checked"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// Validator holds the keyword configuration the checks need. It is
// constructed once per run and is safe for reuse.
type Validator struct {
	// Relevance terms drive the off-domain warning: a record whose
	// text matches none of them is suspect but not invalid.
	Relevance []string
}

func NewValidator(relevance []string) *Validator {
	return &Validator{Relevance: relevance}
}

// Validate runs every check against the dataset and returns the
// combined report.
func (v *Validator) Validate(ds *models.Dataset, now time.Time) *Report {
	r := &Report{
		Status:      StatusPass,
		Errors:      []string{},
		Warnings:    []string{},
		Checked:     len(ds.Opportunities),
		GeneratedAt: now.UTC(),
	}

	// The count header is the one dataset-level integrity check: a
	// drift between the declared and actual count means some writer
	// bypassed finalization.
	if ds.Meta.TotalCount != len(ds.Opportunities) {
		r.addError("dataset: totalCount %d does not match %d records", ds.Meta.TotalCount, len(ds.Opportunities))
	}

	seen := make(map[string]string, len(ds.Opportunities))
	for i, opp := range ds.Opportunities {
		v.checkRecord(r, i, &opp)

		if opp.ID != "" {
			if prev, dup := seen[opp.ID]; dup {
				r.addError("record %s: duplicate ID (also used by %q)", opp.ID, prev)
			}
			seen[opp.ID] = opp.Title
		}
	}

	if len(r.Errors) > 0 {
		r.Status = StatusFail
	}
	return r
}

func (v *Validator) checkRecord(r *Report, idx int, opp *models.Opportunity) {
	ref := opp.ID
	if ref == "" {
		ref = fmt.Sprintf("#%d", idx)
		r.addError("record %s: missing ID", ref)
	}
	if opp.Title == "" {
		r.addError("record %s: missing title", ref)
	}
	if opp.Agency == "" {
		r.addError("record %s: missing agency", ref)
	}

	if !containsCategory(models.ValidCategories, opp.Category) {
		r.addError("record %s: invalid category %q", ref, opp.Category)
	}
	if !containsUrgency(models.ValidUrgencies, opp.Timeline.Urgency) {
		r.addError("record %s: invalid urgency %q", ref, opp.Timeline.Urgency)
	}
	if !containsFiscal(models.ValidFiscalStatuses, opp.FiscalStatus) {
		r.addError("record %s: invalid fiscalStatus %q", ref, opp.FiscalStatus)
	}
	if !containsString(models.Segments, opp.Segment) {
		r.addError("record %s: invalid segment %q", ref, opp.Segment)
	}

	if opp.AmountUSD < 0 {
		r.addError("record %s: negative amountUSD %d", ref, opp.AmountUSD)
	}
	if opp.Timeline.DaysUntil < 0 {
		r.addError("record %s: negative daysUntil %d", ref, opp.Timeline.DaysUntil)
	}
	if opp.PriorityScore < 0 || opp.PriorityScore > models.MaxScore {
		r.addError("record %s: priorityScore %d out of range 0-%d", ref, opp.PriorityScore, models.MaxScore)
	}

	// forecastValue is a formatted duplicate of amountUSD; divergence
	// means one writer updated the amount without reformatting.
	if opp.ForecastValue != "" {
		if parsed, ok := parseFormattedUSD(opp.ForecastValue); !ok {
			r.addError("record %s: malformed forecastValue %q", ref, opp.ForecastValue)
		} else if parsed != opp.AmountUSD {
			r.addError("record %s: forecastValue %q disagrees with amountUSD %d", ref, opp.ForecastValue, opp.AmountUSD)
		}
	}

	if len(v.Relevance) > 0 {
		text := strings.ToLower(opp.Title + " " + opp.Description)
		if !matchesAny(text, v.Relevance) {
			r.addWarning("record %s: no domain keyword in title or description", ref)
		}
	}
}

func (r *Report) addError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Report) addWarning(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// parseFormattedUSD reverses "$1,234,567" back to 1234567.
func parseFormattedUSD(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	if !strings.HasPrefix(s, "$") {
		return 0, false
	}
	digits := strings.ReplaceAll(strings.TrimPrefix(s, "$"), ",", "")
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, false
	}
	if neg {
		n = -n
	}
	return n, true
}

func matchesAny(loweredText string, terms []string) bool {
	for _, t := range terms {
		if t != "" && strings.Contains(loweredText, strings.ToLower(t)) {
			return true
		}
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsCategory(list []models.Category, c models.Category) bool {
	for _, v := range list {
		if v == c {
			return true
		}
	}
	return false
}

func containsUrgency(list []models.Urgency, u models.Urgency) bool {
	for _, v := range list {
		if v == u {
			return true
		}
	}
	return false
}

func containsFiscal(list []models.FiscalStatus, f models.FiscalStatus) bool {
	for _, v := range list {
		if v == f {
			return true
		}
	}
	return false
}
