package ingest

import (
	"embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed config/sources.yaml config/keywords.yaml
var configFS embed.FS

// Registry holds the configuration for all data sources. Adapters are
// resolved from this explicit list at startup; there is no runtime
// discovery.
type Registry struct {
	Sources []SourceConfig `yaml:"sources"`
}

// FetchConfig defines HTTP fetching configuration for a source.
type FetchConfig struct {
	TimeoutSeconds int     `yaml:"timeout_seconds,omitempty"` // Default: 30
	MaxRetries     int     `yaml:"max_retries,omitempty"`     // Default: 3
	RateLimitRPS   float64 `yaml:"rate_limit_rps,omitempty"`  // Requests per second, default: 1.0
	AcceptLanguage string  `yaml:"accept_language,omitempty"`
}

// SourceConfig defines a single data source for collection.
type SourceConfig struct {
	ID         string   `yaml:"id"`
	Name       string   `yaml:"name"`
	SourceType string   `yaml:"source_type"` // Federal, International, Commercial, Research
	Country    string   `yaml:"country"`
	Strategy   string   `yaml:"strategy"` // "api_federal", "html_list"
	BaseURL    string   `yaml:"base_url,omitempty"`
	APIKey     string   `yaml:"api_key,omitempty"`
	Keyword    string   `yaml:"keyword,omitempty"` // search keyword for API sources
	Seeds      []string `yaml:"seed_urls,omitempty"`

	Fetch     FetchConfig    `yaml:"fetch,omitempty"`
	Selectors SelectorConfig `yaml:"selectors,omitempty"`
	MaxPages  int            `yaml:"max_pages,omitempty"`
}

// SelectorConfig drives the generic HTML list strategy.
type SelectorConfig struct {
	Container string `yaml:"container,omitempty"` // CSS selector for the list item wrapper
	Link      string `yaml:"link,omitempty"`
	LinkAttr  string `yaml:"link_attr,omitempty"` // Attribute to extract link from (default: href)
	Title     string `yaml:"title,omitempty"`
	Amount    string `yaml:"amount,omitempty"`
	Deadline  string `yaml:"deadline,omitempty"`
	Content   string `yaml:"content,omitempty"`
}

// KeywordTier is one scoring tier: the highest matching tier wins, the
// tiers are never additive.
type KeywordTier struct {
	Points int      `yaml:"points"`
	Terms  []string `yaml:"terms"`
}

// SegmentRule maps a business segment to its trigger phrases. Rules are
// evaluated in declaration order; the first match wins.
type SegmentRule struct {
	Name     string   `yaml:"name"`
	Triggers []string `yaml:"triggers"`
}

// KeywordConfig is the full keyword/ruleset configuration consumed by
// the classifier, the scorer and the QC engine. Loaded once per run,
// immutable afterwards.
type KeywordConfig struct {
	Segments       []SegmentRule `yaml:"segments"`
	DefaultSegment string        `yaml:"default_segment"`

	Fiscal struct {
		Forecast []string `yaml:"forecast"`
		Active   []string `yaml:"active"`
	} `yaml:"fiscal"`

	Scoring struct {
		Tiers []KeywordTier `yaml:"tiers"`
	} `yaml:"scoring"`

	Relevance   []string `yaml:"relevance"`   // domain keywords; absence is a QC warning
	Topographic []string `yaml:"topographic"` // on-scope terrain terms
	Bathymetry  []string `yaml:"bathymetry"`  // out-of-scope underwater terms
	Negative    []string `yaml:"negative"`    // off-domain phrases dropped during normalization
}

// LoadRegistry reads the embedded sources.yaml and returns a Registry.
// The path parameter is a filesystem fallback for local development.
func LoadRegistry(path string) (*Registry, error) {
	data, err := loadConfigFile("config/sources.yaml", path)
	if err != nil {
		return nil, err
	}

	var reg Registry
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parsing sources config: %w", err)
	}

	return &reg, nil
}

// LoadKeywords reads the embedded keywords.yaml ruleset.
func LoadKeywords(path string) (*KeywordConfig, error) {
	data, err := loadConfigFile("config/keywords.yaml", path)
	if err != nil {
		return nil, err
	}

	var cfg KeywordConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing keywords config: %w", err)
	}
	if cfg.DefaultSegment == "" {
		cfg.DefaultSegment = "DaaS"
	}

	return &cfg, nil
}

func loadConfigFile(embedded, fallback string) ([]byte, error) {
	data, err := configFS.ReadFile(embedded)
	if err != nil && fallback != "" {
		data, err = os.ReadFile(fallback)
	}
	if err != nil {
		return nil, err
	}

	// Expand environment variables within the YAML content (e.g. ${API_KEY})
	return []byte(os.ExpandEnv(string(data))), nil
}
