package projection

import "github.com/david/topo-radar/internal/models"

// Statistics summarizes a dataset for the status endpoint and the run
// summary table.
type Statistics struct {
	TotalCount     int              `json:"totalCount"`
	TotalValueUSD  int64            `json:"totalValueUsd"`
	VerifiedCount  int              `json:"verifiedCount"`
	BySegment      map[string]int   `json:"bySegment"`
	ByFiscalStatus map[string]int   `json:"byFiscalStatus"`
	ByUrgency      map[string]int   `json:"byUrgency"`
	ByCountry      map[string]int64 `json:"valueByCountry"`
}

// BuildStatistics tallies the dataset. Counts are re-derived from the
// record list, never read from metadata.
func (b *Builder) BuildStatistics(ds *models.Dataset) *Statistics {
	s := &Statistics{
		TotalCount:     len(ds.Opportunities),
		BySegment:      make(map[string]int),
		ByFiscalStatus: make(map[string]int),
		ByUrgency:      make(map[string]int),
		ByCountry:      make(map[string]int64),
	}

	for _, opp := range ds.Opportunities {
		s.TotalValueUSD += opp.AmountUSD
		s.BySegment[opp.Segment]++
		s.ByFiscalStatus[string(opp.FiscalStatus)]++
		s.ByUrgency[string(opp.Timeline.Urgency)]++
		s.ByCountry[opp.Country] += opp.AmountUSD

		for _, link := range opp.Links {
			if b.linkValid(link) {
				s.VerifiedCount++
				break
			}
		}
	}
	return s
}
