package ingest

import (
	"strings"
	"testing"
	"time"
)

func testKeywords(t *testing.T) *KeywordConfig {
	t.Helper()
	kw, err := LoadKeywords("")
	if err != nil {
		t.Fatalf("loading keywords: %v", err)
	}
	return kw
}

var testNow = time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

func TestNormalizeSuppressesDuplicatesAcrossAdapters(t *testing.T) {
	n := NewNormalizer(testKeywords(t))

	raws := []RawOpportunity{
		{
			Title:      "Statewide Lidar Elevation Acquisition Program FY27",
			Agency:     "USGS",
			RawAmount:  "$2,000,000",
			SourceName: "SAM.gov Contract Opportunities",
		},
		{
			// same title prefix and same normalized amount, different source
			Title:      "Statewide Lidar Elevation Acquisition Program FY27 (reposted)",
			Agency:     "USGS",
			RawAmount:  "2 million USD",
			SourceName: "Grants.gov Federal Grants",
		},
	}

	res := n.Normalize(raws, testNow)
	if len(res.Opportunities) != 1 {
		t.Fatalf("got %d surviving records, want 1", len(res.Opportunities))
	}
	if res.SuppressedDuplicates != 1 {
		t.Fatalf("SuppressedDuplicates = %d, want 1", res.SuppressedDuplicates)
	}
}

func TestNormalizeDistinctKeysSurvive(t *testing.T) {
	n := NewNormalizer(testKeywords(t))

	raws := []RawOpportunity{
		{Title: "Lidar survey contract", RawAmount: "$100,000", SourceName: "a"},
		{Title: "Lidar survey contract", RawAmount: "$200,000", SourceName: "b"},
	}

	res := n.Normalize(raws, testNow)
	if len(res.Opportunities) != 2 {
		t.Fatalf("got %d records, want 2 (amounts differ, keys differ)", len(res.Opportunities))
	}
	if key0, key1 := dedupKey(res.Opportunities[0].Title, res.Opportunities[0].AmountUSD),
		dedupKey(res.Opportunities[1].Title, res.Opportunities[1].AmountUSD); key0 == key1 {
		t.Fatalf("surviving records share dedup key %q", key0)
	}
}

func TestNormalizeFiltersOffDomain(t *testing.T) {
	n := NewNormalizer(testKeywords(t))

	raws := []RawOpportunity{
		{Title: "Janitorial services for field office", SourceName: "a"},
		{Title: "Lidar elevation mapping", SourceName: "a"},
	}

	res := n.Normalize(raws, testNow)
	if len(res.Opportunities) != 1 {
		t.Fatalf("got %d records, want 1", len(res.Opportunities))
	}
	if res.FilteredOffDomain != 1 {
		t.Fatalf("FilteredOffDomain = %d, want 1", res.FilteredOffDomain)
	}
	if res.Opportunities[0].Title != "Lidar elevation mapping" {
		t.Fatalf("wrong record survived: %q", res.Opportunities[0].Title)
	}
}

func TestGenerateIDStableAndCollisionSafe(t *testing.T) {
	seen := make(map[string]int)
	id1 := generateID("SAM.gov", "Lidar acquisition", seen)

	seen2 := make(map[string]int)
	if id2 := generateID("SAM.gov", "Lidar acquisition", seen2); id2 != id1 {
		t.Fatalf("same source+title produced different IDs: %s vs %s", id1, id2)
	}

	// run-local collision gets a suffix
	dup := generateID("SAM.gov", "Lidar acquisition", seen)
	if dup == id1 {
		t.Fatal("collision not disambiguated")
	}
	if !strings.HasPrefix(dup, id1+"-") {
		t.Fatalf("collision suffix malformed: %s", dup)
	}

	if len(id1) != 12 {
		t.Fatalf("ID length = %d, want 12", len(id1))
	}
}

func TestFromRawDefaults(t *testing.T) {
	n := NewNormalizer(testKeywords(t))
	opp := n.fromRaw(RawOpportunity{SourceName: "x"}, testNow)

	if opp.Title != "Untitled" {
		t.Errorf("Title = %q, want Untitled", opp.Title)
	}
	if opp.Agency != "Unknown" {
		t.Errorf("Agency = %q, want Unknown", opp.Agency)
	}
	if opp.Country != "Global" {
		t.Errorf("Country = %q, want Global", opp.Country)
	}
	if opp.Timeline.DaysUntil != daysUntilUnknown {
		t.Errorf("DaysUntil = %d, want %d", opp.Timeline.DaysUntil, daysUntilUnknown)
	}
	if opp.AmountUSD != 0 {
		t.Errorf("AmountUSD = %d, want 0", opp.AmountUSD)
	}
	if opp.ForecastValue != "$0" {
		t.Errorf("ForecastValue = %q, want $0", opp.ForecastValue)
	}
}

func TestInferCountryFromAgency(t *testing.T) {
	cases := []struct {
		raw, agency, want string
	}{
		{"", "USGS", "USA"},
		{"", "ESA", "Europe"},
		{"Peru", "USGS", "Peru"},
		{"", "Unheard-of Office", "Global"},
	}
	for _, tc := range cases {
		if got := inferCountry(tc.raw, tc.agency); got != tc.want {
			t.Errorf("inferCountry(%q, %q) = %q, want %q", tc.raw, tc.agency, got, tc.want)
		}
	}
}

func TestValidLink(t *testing.T) {
	valid := []string{"https://sam.gov/opp/123", "http://example.org"}
	invalid := []string{"", "#", "None", "ftp://example.org", "javascript:void(0)"}

	for _, u := range valid {
		if !ValidLink(u) {
			t.Errorf("ValidLink(%q) = false, want true", u)
		}
	}
	for _, u := range invalid {
		if ValidLink(u) {
			t.Errorf("ValidLink(%q) = true, want false", u)
		}
	}
}

func TestFormatUSD(t *testing.T) {
	cases := []struct {
		amount int64
		want   string
	}{
		{0, "$0"},
		{999, "$999"},
		{1000, "$1,000"},
		{1500000, "$1,500,000"},
		{-2500, "-$2,500"},
	}
	for _, tc := range cases {
		if got := FormatUSD(tc.amount); got != tc.want {
			t.Errorf("FormatUSD(%d) = %q, want %q", tc.amount, got, tc.want)
		}
	}
}

func TestParseDeadlineDays(t *testing.T) {
	cases := []struct {
		name   string
		raw    string
		want   int
		wantOK bool
	}{
		{"bare day count", "45", 45, true},
		{"iso date", "2026-09-28", 31, true},
		{"us date", "09/28/2026", 31, true},
		{"past date clamps", "2020-01-01", 0, true},
		{"unparseable", "TBD", 0, false},
		{"empty", "", 0, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := parseDeadlineDays(tc.raw, testNow)
			if ok != tc.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tc.wantOK)
			}
			if got != tc.want {
				t.Fatalf("days = %d, want %d", got, tc.want)
			}
		})
	}
}
