// Package projection derives the downstream views of a validated
// dataset: the ranked CSV matrix, the source-verification matrix and
// the country/agency/segment flow graph. Every view is re-derived from
// the canonical set on each build; nothing here caches or patches rank.
package projection

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/david/topo-radar/internal/models"
)

// Verification tags in the source matrix.
const (
	TagSourceVerified = "SOURCE_VERIFIED"
	TagMissingSource  = "MISSING_SOURCE"
	FlagBathymetry    = "BATHYMETRY_ONLY"
)

// Builder holds the keyword sets the out-of-scope flag needs. Both
// views and the flow graph are pure functions of the dataset.
type Builder struct {
	Topographic []string
	Bathymetry  []string
	linkValid   func(string) bool
}

func NewBuilder(topographic, bathymetry []string, linkValid func(string) bool) *Builder {
	if linkValid == nil {
		linkValid = func(string) bool { return false }
	}
	return &Builder{Topographic: topographic, Bathymetry: bathymetry, linkValid: linkValid}
}

// RankedRow is one line of the priority matrix.
type RankedRow struct {
	Rank         int
	Score        int
	Title        string
	Agency       string
	Country      string
	Category     models.Category
	AmountUSD    int64
	FiscalStatus models.FiscalStatus
	Urgency      models.Urgency
	URL          string
}

// rankOrder returns dataset indices sorted by score descending. The
// sort is stable so equal scores keep their canonical order, which
// makes the rank assignment a bijection onto 1..N with deterministic
// tie placement.
func rankOrder(opps []models.Opportunity) []int {
	order := make([]int, len(opps))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return opps[order[a]].PriorityScore > opps[order[b]].PriorityScore
	})
	return order
}

// RankedMatrix builds the priority matrix rows, rank 1..N.
func (b *Builder) RankedMatrix(ds *models.Dataset) []RankedRow {
	order := rankOrder(ds.Opportunities)
	rows := make([]RankedRow, len(order))
	for rank, idx := range order {
		opp := ds.Opportunities[idx]
		rows[rank] = RankedRow{
			Rank:         rank + 1,
			Score:        opp.PriorityScore,
			Title:        opp.Title,
			Agency:       opp.Agency,
			Country:      opp.Country,
			Category:     opp.Category,
			AmountUSD:    opp.AmountUSD,
			FiscalStatus: opp.FiscalStatus,
			Urgency:      opp.Timeline.Urgency,
			URL:          firstLink(opp.Links),
		}
	}
	return rows
}

// WriteRankedCSV emits the matrix in the tabular exchange format.
func (b *Builder) WriteRankedCSV(w io.Writer, ds *models.Dataset) error {
	cw := csv.NewWriter(w)
	header := []string{"rank", "score", "title", "agency", "country", "category", "amount_usd", "fiscal_status", "urgency", "url"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing matrix header: %w", err)
	}

	for _, row := range b.RankedMatrix(ds) {
		rec := []string{
			strconv.Itoa(row.Rank),
			strconv.Itoa(row.Score),
			row.Title,
			row.Agency,
			row.Country,
			string(row.Category),
			strconv.FormatInt(row.AmountUSD, 10),
			string(row.FiscalStatus),
			string(row.Urgency),
			row.URL,
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("writing matrix row %d: %w", row.Rank, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// SourceRow is one line of the source-verification matrix. Flags mark
// but never filter: a flagged record stays in every view.
type SourceRow struct {
	Rank         int      `json:"rank"`
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	SourceName   string   `json:"sourceName"`
	SourceType   string   `json:"sourceType"`
	URL          string   `json:"url"`
	Verification string   `json:"verification"`
	Flags        []string `json:"flags,omitempty"`
}

// SourceMatrix builds the verification matrix with the same re-derived
// rank ordering as the priority matrix.
func (b *Builder) SourceMatrix(ds *models.Dataset) []SourceRow {
	order := rankOrder(ds.Opportunities)
	rows := make([]SourceRow, len(order))
	for rank, idx := range order {
		opp := ds.Opportunities[idx]
		row := SourceRow{
			Rank:         rank + 1,
			ID:           opp.ID,
			Title:        opp.Title,
			SourceName:   opp.Provenance.SourceName,
			SourceType:   opp.Provenance.SourceType,
			URL:          firstLink(opp.Links),
			Verification: TagMissingSource,
		}
		for _, link := range opp.Links {
			if b.linkValid(link) {
				row.Verification = TagSourceVerified
				break
			}
		}
		if b.bathymetryOnly(&opp) {
			row.Flags = append(row.Flags, FlagBathymetry)
		}
		rows[rank] = row
	}
	return rows
}

// WriteSourceCSV emits the verification matrix as CSV.
func (b *Builder) WriteSourceCSV(w io.Writer, ds *models.Dataset) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"rank", "id", "title", "source_name", "source_type", "url", "verification", "flags"}); err != nil {
		return fmt.Errorf("writing source matrix header: %w", err)
	}
	for _, row := range b.SourceMatrix(ds) {
		rec := []string{
			strconv.Itoa(row.Rank),
			row.ID,
			row.Title,
			row.SourceName,
			row.SourceType,
			row.URL,
			row.Verification,
			strings.Join(row.Flags, "|"),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("writing source matrix row %d: %w", row.Rank, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// bathymetryOnly reports whether the record's only depth-domain text is
// bathymetric, with no topographic term to put it on-scope.
func (b *Builder) bathymetryOnly(opp *models.Opportunity) bool {
	text := strings.ToLower(opp.Title + " " + opp.Description)
	hasBathy := false
	for _, term := range b.Bathymetry {
		if term != "" && strings.Contains(text, strings.ToLower(term)) {
			hasBathy = true
			break
		}
	}
	if !hasBathy {
		return false
	}
	for _, term := range b.Topographic {
		if term != "" && strings.Contains(text, strings.ToLower(term)) {
			return false
		}
	}
	return true
}

func firstLink(links []string) string {
	if len(links) == 0 {
		return ""
	}
	return links[0]
}
