package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/david/topo-radar/internal/models"
)

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// RunRecord mirrors one row of pipeline_runs.
type RunRecord struct {
	ID                   string     `json:"id"`
	StartedAt            time.Time  `json:"startedAt"`
	FinishedAt           *time.Time `json:"finishedAt,omitempty"`
	Status               string     `json:"status"`
	QCStatus             string     `json:"qcStatus,omitempty"`
	TotalCount           int        `json:"totalCount"`
	SuppressedDuplicates int        `json:"suppressedDuplicates"`
	FilteredOffDomain    int        `json:"filteredOffDomain"`
	Error                string     `json:"error,omitempty"`
}

// InsertRun records the start of a pipeline run.
func (s *Store) InsertRun(ctx context.Context, runID string) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO pipeline_runs (id) VALUES ($1)`, runID)
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", runID, err)
	}
	return nil
}

// CompleteRun closes a run row with its outcome.
func (s *Store) CompleteRun(ctx context.Context, runID, status, qcStatus string, meta models.Meta, runErr string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE pipeline_runs
		SET finished_at = NOW(), status = $2, qc_status = $3,
		    total_count = $4, suppressed_duplicates = $5, filtered_off_domain = $6, error = $7
		WHERE id = $1`,
		runID, status, qcStatus, meta.TotalCount, meta.SuppressedDuplicates, meta.FilteredOffDomain, nullIfEmpty(runErr))
	if err != nil {
		return fmt.Errorf("completing run %s: %w", runID, err)
	}
	return nil
}

// LatestRun returns the most recently started run, or nil when no run
// has ever been recorded.
func (s *Store) LatestRun(ctx context.Context) (*RunRecord, error) {
	var r RunRecord
	var qcStatus, runErr *string
	err := s.pool.QueryRow(ctx, `
		SELECT id, started_at, finished_at, status, qc_status,
		       total_count, suppressed_duplicates, filtered_off_domain, error
		FROM pipeline_runs ORDER BY started_at DESC LIMIT 1`).
		Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Status, &qcStatus,
			&r.TotalCount, &r.SuppressedDuplicates, &r.FilteredOffDomain, &runErr)
	if err != nil {
		if strings.Contains(err.Error(), "no rows") {
			return nil, nil
		}
		return nil, fmt.Errorf("querying latest run: %w", err)
	}
	if qcStatus != nil {
		r.QCStatus = *qcStatus
	}
	if runErr != nil {
		r.Error = *runErr
	}
	return &r, nil
}

// ReplaceSnapshot swaps the opportunities table to the given dataset in
// one transaction. Runs are whole-batch: a snapshot is never partially
// updated.
func (s *Store) ReplaceSnapshot(ctx context.Context, runID string, ds *models.Dataset) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning snapshot tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM opportunities`); err != nil {
		return fmt.Errorf("clearing previous snapshot: %w", err)
	}

	for _, opp := range ds.Opportunities {
		_, err := tx.Exec(ctx, `
			INSERT INTO opportunities (
				id, run_id, title, agency, country, description,
				amount_usd, forecast_value, days_until, urgency,
				category, segment, fiscal_status, priority_score, priority_label,
				source_name, source_type, scraped_at, links
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)`,
			opp.ID, runID, opp.Title, opp.Agency, opp.Country, opp.Description,
			opp.AmountUSD, opp.ForecastValue, opp.Timeline.DaysUntil, string(opp.Timeline.Urgency),
			string(opp.Category), opp.Segment, string(opp.FiscalStatus), opp.PriorityScore, opp.PriorityLabel,
			opp.Provenance.SourceName, opp.Provenance.SourceType, opp.Provenance.ScrapedAt, opp.Links)
		if err != nil {
			return fmt.Errorf("inserting opportunity %s: %w", opp.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing snapshot: %w", err)
	}
	return nil
}

// ListParams filters the snapshot listing.
type ListParams struct {
	Segment      string
	Country      string
	FiscalStatus string
	MinScore     int
	Limit        int
	Offset       int
}

// buildListQuery assembles the filtered snapshot query with positional
// args. Split out so the SQL shape is testable without a database.
func buildListQuery(p ListParams) (string, []any) {
	if p.Limit <= 0 || p.Limit > 500 {
		p.Limit = 100
	}

	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if p.Segment != "" {
		conds = append(conds, "segment = "+arg(p.Segment))
	}
	if p.Country != "" {
		conds = append(conds, "country = "+arg(p.Country))
	}
	if p.FiscalStatus != "" {
		conds = append(conds, "fiscal_status = "+arg(p.FiscalStatus))
	}
	if p.MinScore > 0 {
		conds = append(conds, "priority_score >= "+arg(p.MinScore))
	}

	query := `
		SELECT id, title, agency, country, description,
		       amount_usd, forecast_value, days_until, urgency,
		       category, segment, fiscal_status, priority_score, priority_label,
		       source_name, source_type, scraped_at, links
		FROM opportunities`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY priority_score DESC, id ASC LIMIT " + arg(p.Limit) + " OFFSET " + arg(p.Offset)
	return query, args
}

// ListOpportunities reads the current snapshot ordered by score
// descending.
func (s *Store) ListOpportunities(ctx context.Context, p ListParams) ([]models.Opportunity, error) {
	query, args := buildListQuery(p)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing opportunities: %w", err)
	}
	defer rows.Close()

	var opps []models.Opportunity
	for rows.Next() {
		var o models.Opportunity
		var desc, forecastValue, label, sourceName, sourceType *string
		var urgency, category, fiscal string
		var scrapedAt *time.Time

		err := rows.Scan(&o.ID, &o.Title, &o.Agency, &o.Country, &desc,
			&o.AmountUSD, &forecastValue, &o.Timeline.DaysUntil, &urgency,
			&category, &o.Segment, &fiscal, &o.PriorityScore, &label,
			&sourceName, &sourceType, &scrapedAt, &o.Links)
		if err != nil {
			return nil, fmt.Errorf("scanning opportunity row: %w", err)
		}

		o.Timeline.Urgency = models.Urgency(urgency)
		o.Category = models.Category(category)
		o.FiscalStatus = models.FiscalStatus(fiscal)
		if desc != nil {
			o.Description = *desc
		}
		if forecastValue != nil {
			o.ForecastValue = *forecastValue
		}
		if label != nil {
			o.PriorityLabel = *label
		}
		if sourceName != nil {
			o.Provenance.SourceName = *sourceName
		}
		if sourceType != nil {
			o.Provenance.SourceType = *sourceType
		}
		if scrapedAt != nil {
			o.Provenance.ScrapedAt = *scrapedAt
		}
		opps = append(opps, o)
	}
	return opps, rows.Err()
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
