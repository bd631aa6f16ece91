package ingest

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/david/topo-radar/internal/models"
)

// maxDescriptionLen bounds canonical descriptions; longer text is
// truncated, never rejected.
const maxDescriptionLen = 5000

// dedupTitlePrefixLen is the fixed-length case-normalized title prefix
// used in the dedup key.
const dedupTitlePrefixLen = 30

// daysUntilUnknown is used when a record carries no usable deadline;
// it lands in the "future" urgency tier.
const daysUntilUnknown = 999

// agencyCountry maps well-known agencies to their country when a raw
// record does not carry one.
var agencyCountry = map[string]string{
	"USGS":                "USA",
	"NASA":                "USA",
	"NOAA":                "USA",
	"NGA":                 "USA",
	"DIU":                 "USA",
	"USDA Forest Service": "USA",
	"ESA":                 "Europe",
	"EU Commission":       "Europe",
	"JAXA":                "Japan",
	"ISRO":                "India",
	"DLR":                 "Germany",
	"UKSA":                "UK",
	"CSA":                 "Canada",
	"CNSA":                "China",
}

// NormalizeResult is the outcome of a normalization pass over the
// concatenated raw record lists.
type NormalizeResult struct {
	Opportunities        []models.Opportunity
	SuppressedDuplicates int // diagnostics only; duplicates are not errors
	FilteredOffDomain    int
}

// Normalizer maps raw heterogeneous records into the canonical schema,
// assigns stable IDs and removes duplicates by a normalized key.
type Normalizer struct {
	Keywords *KeywordConfig
}

func NewNormalizer(kw *KeywordConfig) *Normalizer {
	return &Normalizer{Keywords: kw}
}

// Normalize processes the concatenation of all adapters' raw lists.
// Surviving records keep input order. The dedup key (normalized title
// prefix + amount) maps to at most one surviving record.
func (n *Normalizer) Normalize(raws []RawOpportunity, now time.Time) NormalizeResult {
	res := NormalizeResult{Opportunities: make([]models.Opportunity, 0, len(raws))}
	seenKeys := make(map[string]struct{}, len(raws))
	seenIDs := make(map[string]int, len(raws))

	for _, raw := range raws {
		if n.isOffDomain(raw) {
			res.FilteredOffDomain++
			continue
		}

		opp := n.fromRaw(raw, now)

		key := dedupKey(opp.Title, opp.AmountUSD)
		if _, dup := seenKeys[key]; dup {
			res.SuppressedDuplicates++
			log.Printf("[Normalizer] Duplicate suppressed: %q (%s)", opp.Title, opp.Provenance.SourceName)
			continue
		}
		seenKeys[key] = struct{}{}

		opp.ID = generateID(opp.Provenance.SourceName, opp.Title, seenIDs)
		res.Opportunities = append(res.Opportunities, opp)
	}

	return res
}

func (n *Normalizer) fromRaw(raw RawOpportunity, now time.Time) models.Opportunity {
	title := sanitizeText(raw.Title)
	if title == "" {
		title = "Untitled"
	}
	agency := sanitizeText(raw.Agency)
	if agency == "" {
		agency = "Unknown"
	}

	amount := ParseAmountUSD(raw.RawAmount, raw.RawCurrency)

	daysUntil := raw.DaysUntil
	if daysUntil <= 0 {
		if parsed, ok := parseDeadlineDays(raw.RawDeadline, now); ok {
			daysUntil = parsed
		} else {
			daysUntil = daysUntilUnknown
		}
	}

	// A structured category from the source survives normalization;
	// the classifier fills the gap for everything else.
	var category models.Category
	for _, valid := range models.ValidCategories {
		if models.Category(strings.TrimSpace(raw.Category)) == valid {
			category = valid
			break
		}
	}

	return models.Opportunity{
		Title:         title,
		Agency:        agency,
		Category:      category,
		Country:       inferCountry(raw.Country, agency),
		Description:   TruncateText(sanitizeText(raw.Description), maxDescriptionLen),
		AmountUSD:     amount,
		ForecastValue: FormatUSD(amount),
		Timeline: models.Timeline{
			DaysUntil: daysUntil,
			Urgency:   models.UrgencyFor(daysUntil),
		},
		Links: mergeUniqueFold(nil, raw.Links),
		Provenance: models.Provenance{
			SourceName: raw.SourceName,
			SourceType: raw.SourceType,
			ScrapedAt:  now.UTC(),
		},
	}
}

// isOffDomain drops records that match a negative-filter phrase
// (janitorial, catering, ...) with no domain keyword to redeem them.
func (n *Normalizer) isOffDomain(raw RawOpportunity) bool {
	if n.Keywords == nil || len(n.Keywords.Negative) == 0 {
		return false
	}
	text := strings.ToLower(raw.Title + " " + raw.Description)
	return containsAnyFold(text, n.Keywords.Negative) && !containsAnyFold(text, n.Keywords.Relevance)
}

// dedupKey joins a fixed-length case-normalized title prefix with the
// normalized amount.
func dedupKey(title string, amountUSD int64) string {
	t := strings.ToLower(cleanText(title))
	runes := []rune(t)
	if len(runes) > dedupTitlePrefixLen {
		t = string(runes[:dedupTitlePrefixLen])
	}
	return t + "-" + strconv.FormatInt(amountUSD, 10)
}

// generateID derives a stable record ID from source identity and title:
// the same title from the same source hashes identically across runs,
// so external references survive re-scrapes. Run-local collisions get a
// numeric suffix; records with no identity at all fall back to a
// random-per-run token.
func generateID(sourceName, title string, seen map[string]int) string {
	base := strings.ToLower(cleanText(sourceName + "|" + title))
	if base == "|" {
		return uuid.NewString()
	}

	sum := md5.Sum([]byte(base))
	id := hex.EncodeToString(sum[:])[:12]

	seen[id]++
	if c := seen[id]; c > 1 {
		return fmt.Sprintf("%s-%d", id, c)
	}
	return id
}

// inferCountry prefers the record's own country, then the agency map,
// then Global.
func inferCountry(rawCountry, agency string) string {
	if c := cleanText(rawCountry); c != "" {
		return c
	}
	if c, ok := agencyCountry[agency]; ok {
		return c
	}
	return "Global"
}

// ValidLink reports whether a URL is well-formed enough to count as a
// verifiable source: non-empty, not a placeholder, real scheme.
func ValidLink(url string) bool {
	u := strings.TrimSpace(url)
	if u == "" || u == "#" || strings.EqualFold(u, "none") {
		return false
	}
	return strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://")
}

// FormatUSD renders an integer dollar amount with thousands separators,
// e.g. 1500000 -> "$1,500,000".
func FormatUSD(amount int64) string {
	digits := strconv.FormatInt(amount, 10)
	neg := false
	if strings.HasPrefix(digits, "-") {
		neg = true
		digits = digits[1:]
	}

	var b strings.Builder
	pre := len(digits) % 3
	if pre > 0 {
		b.WriteString(digits[:pre])
	}
	for i := pre; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}

	if neg {
		return "-$" + b.String()
	}
	return "$" + b.String()
}
