package ingest

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"
)

// stubFetcher serves a canned body for any request and records what was
// asked of it.
type stubFetcher struct {
	body    string
	lastURL string
	posted  []byte
}

func (s *stubFetcher) document() *FetchedDocument {
	return &FetchedDocument{
		StatusCode:  200,
		ContentType: "application/json",
		Body:        io.NopCloser(strings.NewReader(s.body)),
		FetchedAt:   time.Now(),
	}
}

func (s *stubFetcher) Fetch(_ context.Context, url string) (*FetchedDocument, error) {
	s.lastURL = url
	return s.document(), nil
}

func (s *stubFetcher) Post(_ context.Context, url, _ string, body []byte) (*FetchedDocument, error) {
	s.lastURL = url
	s.posted = body
	return s.document(), nil
}

func TestGrantsGovAdapterMapsRecords(t *testing.T) {
	stub := &stubFetcher{body: `{
		"data": {
			"hitCount": 2,
			"oppHits": [
				{"id": "358825", "number": "G26AS00123", "title": "3DEP Lidar Data Acquisition",
				 "agency": "USGS", "closeDate": "2026-10-15", "oppStatus": "posted", "docType": "synopsis"},
				{"id": "358900", "number": "G26AS00456", "title": "Elevation Program Forecast",
				 "agency": "USGS", "oppStatus": "forecasted", "docType": "forecast"}
			]
		},
		"errorcode": 0
	}`}

	a := NewGrantsGovAdapter(SourceConfig{
		ID: "grants_gov", Name: "Grants.gov", SourceType: "Federal",
		BaseURL: "https://api.grants.gov/v1/api/search2", Keyword: "lidar",
	})
	a.Fetcher = stub

	raws, err := a.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(raws) != 2 {
		t.Fatalf("got %d records, want 2", len(raws))
	}
	if stub.lastURL != "https://api.grants.gov/v1/api/search2" {
		t.Fatalf("posted to %q", stub.lastURL)
	}
	if !strings.Contains(string(stub.posted), `"keyword":"lidar"`) {
		t.Fatalf("request body missing keyword: %s", stub.posted)
	}

	if raws[0].RawDeadline != "2026-10-15" {
		t.Errorf("RawDeadline = %q", raws[0].RawDeadline)
	}
	if want := "https://www.grants.gov/search-results-detail/358825"; raws[0].Links[0] != want {
		t.Errorf("detail link = %q, want %q", raws[0].Links[0], want)
	}

	// forecast notices carry the signal in their description text
	if !strings.Contains(raws[1].Description, "Forecast notice") {
		t.Errorf("forecast record description = %q", raws[1].Description)
	}
	if strings.Contains(raws[0].Description, "Forecast notice") {
		t.Errorf("posted record flagged as forecast: %q", raws[0].Description)
	}
}

func TestSAMGovAdapterMapsRecords(t *testing.T) {
	stub := &stubFetcher{body: `{
		"totalRecords": 1,
		"opportunitiesData": [
			{"noticeId": "abc123", "title": "Statewide Lidar Acquisition",
			 "fullParentPathName": "INTERIOR, DEPARTMENT OF THE.GEOLOGICAL SURVEY",
			 "type": "Sources Sought", "responseDeadLine": "2026-09-30",
			 "uiLink": "https://sam.gov/opp/abc123/view",
			 "award": {"amount": "2500000"}}
		]
	}`}

	a := NewSAMGovAdapter(SourceConfig{
		ID: "sam_gov", Name: "SAM.gov", SourceType: "Federal",
		BaseURL: "https://api.sam.gov/opportunities/v2/search",
		APIKey:  "test-key", Keyword: "lidar",
	})
	a.Fetcher = stub

	raws, err := a.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(raws) != 1 {
		t.Fatalf("got %d records, want 1", len(raws))
	}
	if !strings.Contains(stub.lastURL, "api_key=test-key") {
		t.Fatalf("request URL missing api key: %s", stub.lastURL)
	}

	// agency is the parent path up to the first dot
	if raws[0].Agency != "INTERIOR, DEPARTMENT OF THE" {
		t.Errorf("Agency = %q", raws[0].Agency)
	}
	if raws[0].RawAmount != "2500000" || raws[0].RawCurrency != "USD" {
		t.Errorf("amount = %q %q", raws[0].RawAmount, raws[0].RawCurrency)
	}
	// notice type rides along for the fiscal classifier
	if !strings.Contains(raws[0].Description, "Sources Sought") {
		t.Errorf("Description = %q", raws[0].Description)
	}
}

func TestSAMGovAdapterRequiresAPIKey(t *testing.T) {
	a := NewSAMGovAdapter(SourceConfig{ID: "sam_gov", Name: "SAM.gov"})
	if _, err := a.Fetch(context.Background()); err == nil {
		t.Fatal("expected error without an API key")
	}
}
