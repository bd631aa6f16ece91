package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"
)

const apiPageSize = 100

// GrantsGovAdapter pulls federal grant notices from the Grants.gov
// search2 API.
type GrantsGovAdapter struct {
	Source  SourceConfig
	Fetcher Fetcher
}

func NewGrantsGovAdapter(src SourceConfig) *GrantsGovAdapter {
	return &GrantsGovAdapter{
		Source:  src,
		Fetcher: NewHTTPFetcher(src.Fetch),
	}
}

func (a *GrantsGovAdapter) Name() string       { return a.Source.Name }
func (a *GrantsGovAdapter) SourceType() string { return a.Source.SourceType }

type grantsGovSearchRequest struct {
	Keyword        string `json:"keyword"`
	OppStatuses    string `json:"oppStatuses"`
	SortBy         string `json:"sortBy"`
	Rows           int    `json:"rows"`
	StartRecordNum int    `json:"startRecordNum"`
}

type grantsGovResponse struct {
	Data struct {
		HitCount int `json:"hitCount"`
		OppHits  []struct {
			ID        string   `json:"id"`
			Number    string   `json:"number"`
			Title     string   `json:"title"`
			Agency    string   `json:"agency"`
			CloseDate string   `json:"closeDate"`
			OppStatus string   `json:"oppStatus"`
			DocType   string   `json:"docType"`
			CFDAList  []string `json:"cfdaList"`
		} `json:"oppHits"`
	} `json:"data"`
	ErrorCode int    `json:"errorcode"`
	Msg       string `json:"msg"`
}

func (a *GrantsGovAdapter) Fetch(ctx context.Context) ([]RawOpportunity, error) {
	// forecasted records matter here as much as posted ones; the
	// fiscal classifier sorts them apart downstream
	searchReq := grantsGovSearchRequest{
		Keyword:     a.Source.Keyword,
		OppStatuses: "posted|forecasted",
		SortBy:      "openDate|desc",
		Rows:        apiPageSize,
	}

	body, err := json.Marshal(searchReq)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	log.Printf("[GrantsGov] Searching keyword=%q rows=%d", a.Source.Keyword, apiPageSize)

	doc, err := a.Fetcher.Post(ctx, a.Source.BaseURL, "application/json", body)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer doc.Body.Close()

	var apiResp grantsGovResponse
	if err := json.NewDecoder(doc.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if apiResp.ErrorCode != 0 {
		return nil, fmt.Errorf("API error: %s", apiResp.Msg)
	}

	log.Printf("[GrantsGov] Got %d records (total: %d)", len(apiResp.Data.OppHits), apiResp.Data.HitCount)

	raws := make([]RawOpportunity, 0, len(apiResp.Data.OppHits))
	for _, rec := range apiResp.Data.OppHits {
		if rec.Title == "" {
			continue
		}

		desc := fmt.Sprintf("Federal grant %s from %s.", rec.Number, rec.Agency)
		if strings.EqualFold(rec.DocType, "forecast") || strings.EqualFold(rec.OppStatus, "forecasted") {
			desc += " Forecast notice, not yet open for applications."
		}
		if len(rec.CFDAList) > 0 {
			desc += " CFDA: " + strings.Join(rec.CFDAList, ", ")
		}

		raws = append(raws, RawOpportunity{
			Title:       rec.Title,
			Agency:      rec.Agency,
			Country:     a.Source.Country,
			Description: desc,
			RawDeadline: rec.CloseDate,
			Links:       []string{"https://www.grants.gov/search-results-detail/" + rec.ID},
			Tags:        rec.CFDAList,
			SourceName:  a.Source.Name,
			SourceType:  a.Source.SourceType,
		})
	}
	return raws, nil
}

// SAMGovAdapter pulls contract opportunities from the SAM.gov
// opportunities API. Requires an API key.
type SAMGovAdapter struct {
	Source  SourceConfig
	Fetcher Fetcher
}

func NewSAMGovAdapter(src SourceConfig) *SAMGovAdapter {
	return &SAMGovAdapter{
		Source:  src,
		Fetcher: NewHTTPFetcher(src.Fetch),
	}
}

func (a *SAMGovAdapter) Name() string       { return a.Source.Name }
func (a *SAMGovAdapter) SourceType() string { return a.Source.SourceType }

type samGovResponse struct {
	TotalRecords      int `json:"totalRecords"`
	OpportunitiesData []struct {
		NoticeID           string `json:"noticeId"`
		Title              string `json:"title"`
		FullParentPathName string `json:"fullParentPathName"`
		Type               string `json:"type"`
		ResponseDeadline   string `json:"responseDeadLine"`
		UILink             string `json:"uiLink"`
		Award              struct {
			Amount string `json:"amount"`
		} `json:"award"`
	} `json:"opportunitiesData"`
}

func (a *SAMGovAdapter) Fetch(ctx context.Context) ([]RawOpportunity, error) {
	if a.Source.APIKey == "" {
		return nil, fmt.Errorf("source %s: API key not configured", a.Source.ID)
	}

	now := time.Now()
	params := url.Values{}
	params.Set("api_key", a.Source.APIKey)
	params.Set("title", a.Source.Keyword)
	params.Set("limit", fmt.Sprint(apiPageSize))
	params.Set("postedFrom", now.AddDate(0, -3, 0).Format("01/02/2006"))
	params.Set("postedTo", now.Format("01/02/2006"))

	log.Printf("[SAMGov] Searching title=%q", a.Source.Keyword)

	doc, err := a.Fetcher.Fetch(ctx, a.Source.BaseURL+"?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer doc.Body.Close()

	var apiResp samGovResponse
	if err := json.NewDecoder(doc.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	log.Printf("[SAMGov] Got %d records (total: %d)", len(apiResp.OpportunitiesData), apiResp.TotalRecords)

	raws := make([]RawOpportunity, 0, len(apiResp.OpportunitiesData))
	for _, rec := range apiResp.OpportunitiesData {
		if rec.Title == "" {
			continue
		}

		agency := rec.FullParentPathName
		if i := strings.Index(agency, "."); i > 0 {
			agency = agency[:i]
		}

		raws = append(raws, RawOpportunity{
			Title: rec.Title,
			// notice type ("Solicitation", "Sources Sought", ...)
			// carries the fiscal signal, so it rides along in the text
			Description: fmt.Sprintf("%s notice from %s.", rec.Type, rec.FullParentPathName),
			Agency:      agency,
			Country:     a.Source.Country,
			RawAmount:   rec.Award.Amount,
			RawCurrency: "USD",
			RawDeadline: rec.ResponseDeadline,
			Links:       []string{rec.UILink},
			SourceName:  a.Source.Name,
			SourceType:  a.Source.SourceType,
		})
	}
	return raws, nil
}
