package ingest

import (
	"log"
	"strings"
)

// BuildAdapters instantiates one adapter per registry entry. Sources
// with an unknown strategy are skipped with a log line rather than
// failing the run; the registry is operator-edited and a typo should
// not take down collection.
func BuildAdapters(reg *Registry, defaults FetchConfig) []Adapter {
	adapters := make([]Adapter, 0, len(reg.Sources))
	for _, src := range reg.Sources {
		a := buildAdapter(src, defaults)
		if a == nil {
			log.Printf("[Registry] Skipping source %s: unknown strategy %q", src.ID, src.Strategy)
			continue
		}
		adapters = append(adapters, a)
	}
	return adapters
}

func buildAdapter(src SourceConfig, defaults FetchConfig) Adapter {
	switch src.Strategy {
	case "api_federal":
		if strings.Contains(src.BaseURL, "grants.gov") {
			return NewGrantsGovAdapter(src)
		}
		if strings.Contains(src.BaseURL, "sam.gov") {
			return NewSAMGovAdapter(src)
		}
		return nil
	case "html_list":
		return NewHTMLListAdapter(src, defaults)
	default:
		return nil
	}
}
