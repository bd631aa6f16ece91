package projection

import (
	"sort"

	"github.com/david/topo-radar/internal/models"
)

// FlowNode is a labeled node in the three-tier monetary flow graph.
// Category identifies the tier: country, agency or segment.
type FlowNode struct {
	Label    string `json:"label"`
	Category string `json:"category"`
}

// FlowLink is a weighted edge between node indices.
type FlowLink struct {
	Source int   `json:"source"`
	Target int   `json:"target"`
	Value  int64 `json:"value"`
}

// FlowGraph aggregates dataset value country -> agency -> segment.
type FlowGraph struct {
	Nodes []FlowNode `json:"nodes"`
	Links []FlowLink `json:"links"`
}

const (
	tierCountry = "country"
	tierAgency  = "agency"
	tierSegment = "segment"
)

// BuildFlowGraph sums amountUSD along each country->agency and
// agency->segment edge. A record contributes its full value exactly
// once per tier: the country->agency edge gets the whole amount, and
// the agency->segment tier splits it across the record's segment
// shares, so segment weights under an agency always sum to that
// agency's inflow.
func (b *Builder) BuildFlowGraph(ds *models.Dataset) *FlowGraph {
	g := &FlowGraph{Nodes: []FlowNode{}, Links: []FlowLink{}}
	nodeIndex := make(map[string]int)

	// Agency nodes are keyed by parent country as well as label: two
	// countries can each have an agency with the same name, and merging
	// them would conflate their segment outflows.
	node := func(tier, key, label string) int {
		k := tier + "\x00" + key
		if idx, ok := nodeIndex[k]; ok {
			return idx
		}
		idx := len(g.Nodes)
		g.Nodes = append(g.Nodes, FlowNode{Label: label, Category: tier})
		nodeIndex[k] = idx
		return idx
	}

	type edge struct{ src, dst int }
	weights := make(map[edge]int64)
	var edgeOrder []edge

	addWeight := func(src, dst int, value int64) {
		e := edge{src, dst}
		if _, ok := weights[e]; !ok {
			edgeOrder = append(edgeOrder, e)
		}
		weights[e] += value
	}

	for _, opp := range ds.Opportunities {
		country := node(tierCountry, opp.Country, opp.Country)
		agency := node(tierAgency, opp.Country+"\x00"+opp.Agency, opp.Agency)
		addWeight(country, agency, opp.AmountUSD)

		for segment, share := range segmentShares(&opp) {
			addWeight(agency, node(tierSegment, segment, segment), share)
		}
	}

	for _, e := range edgeOrder {
		g.Links = append(g.Links, FlowLink{Source: e.src, Target: e.dst, Value: weights[e]})
	}
	sort.SliceStable(g.Links, func(i, j int) bool {
		if g.Links[i].Source != g.Links[j].Source {
			return g.Links[i].Source < g.Links[j].Source
		}
		return g.Links[i].Target < g.Links[j].Target
	})
	return g
}

// segmentShares apportions a record's value across segments. Records
// carry one segment today, so the whole amount lands there; the map
// shape keeps multi-segment apportionment from double-counting the
// country and agency tiers if it ever arrives.
func segmentShares(opp *models.Opportunity) map[string]int64 {
	return map[string]int64{opp.Segment: opp.AmountUSD}
}
