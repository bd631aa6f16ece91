package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/david/topo-radar/internal/db"
	"github.com/david/topo-radar/internal/models"
	"github.com/david/topo-radar/internal/projection"
	"github.com/david/topo-radar/internal/qc"
)

// Artifact filenames written under the data directory on every run.
const (
	FileOpportunities = "opportunities.json"
	FileAdapterStatus = "api_status.json"
	FilePriorityCSV   = "priority_matrix.csv"
	FileSourcesCSV    = "sources_matrix.csv"
	FileFlowGraph     = "funding_flow.json"
	FileQCReport      = "qc_report.json"
	FileStatistics    = "statistics.json"
)

// Pipeline wires the full batch pass: collect, normalize, classify,
// score, validate, project. Construct once per run via NewPipeline.
type Pipeline struct {
	Registry    *Registry
	Keywords    *KeywordConfig
	Store       *db.Store // nil disables persistence
	DataDir     string
	MaxParallel int
	Now         func() time.Time

	// Adapters overrides the registry-built adapter set when non-nil.
	Adapters []Adapter
}

func NewPipeline(reg *Registry, kw *KeywordConfig, store *db.Store, dataDir string) *Pipeline {
	if dataDir == "" {
		dataDir = "data"
	}
	return &Pipeline{
		Registry:    reg,
		Keywords:    kw,
		Store:       store,
		DataDir:     dataDir,
		MaxParallel: 4,
		Now:         time.Now,
	}
}

// Result is everything one run produced.
type Result struct {
	RunID     string
	Dataset   *models.Dataset
	Report    *qc.Report
	Statuses  []AdapterStatus
	Stats     *projection.Statistics
	StartedAt time.Time
	Duration  time.Duration
}

// Run executes the whole batch. Adapter failures and QC findings never
// abort it; every artifact is written even for a FAIL report, and the
// caller decides what a FAIL blocks. The returned error covers
// infrastructure problems only (artifact writes, persistence).
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	started := p.Now()
	runID := uuid.NewString()
	log.Printf("[Pipeline] Run %s starting with %d sources", runID, len(p.Registry.Sources))

	if p.Store != nil {
		if err := p.Store.InsertRun(ctx, runID); err != nil {
			log.Printf("[Pipeline] Could not record run start: %v", err)
		}
	}

	adapters := p.Adapters
	if adapters == nil {
		adapters = BuildAdapters(p.Registry, FetchConfig{})
	}
	collected := NewCollector(p.MaxParallel).Collect(ctx, adapters)

	now := p.Now()
	norm := NewNormalizer(p.Keywords).Normalize(collected.Raw, now)

	classifier := NewClassifier(p.Keywords)
	scorer := NewScorer(p.Keywords)
	for i := range norm.Opportunities {
		classifier.Classify(&norm.Opportunities[i])
		scorer.Score(&norm.Opportunities[i])
	}

	ds := &models.Dataset{Opportunities: norm.Opportunities}
	ds.Meta.SuppressedDuplicates = norm.SuppressedDuplicates
	ds.Meta.FilteredOffDomain = norm.FilteredOffDomain
	ds.Finalize(now)

	report := qc.NewValidator(p.Keywords.Relevance).Validate(ds, now)
	log.Printf("[Pipeline] QC %s: %d errors, %d warnings over %d records",
		report.Status, len(report.Errors), len(report.Warnings), report.Checked)

	builder := projection.NewBuilder(p.Keywords.Topographic, p.Keywords.Bathymetry, ValidLink)
	stats := builder.BuildStatistics(ds)

	res := &Result{
		RunID:     runID,
		Dataset:   ds,
		Report:    report,
		Statuses:  collected.Statuses,
		Stats:     stats,
		StartedAt: started,
	}

	if err := p.writeArtifacts(res, builder); err != nil {
		p.completeRun(ctx, res, err)
		return res, err
	}

	if p.Store != nil {
		if err := p.Store.ReplaceSnapshot(ctx, runID, ds); err != nil {
			p.completeRun(ctx, res, err)
			return res, fmt.Errorf("persisting snapshot: %w", err)
		}
	}

	p.completeRun(ctx, res, nil)
	res.Duration = p.Now().Sub(started)
	log.Printf("[Pipeline] Run %s done: %d records, QC %s, %s",
		runID, ds.Meta.TotalCount, report.Status, res.Duration.Round(time.Millisecond))
	return res, nil
}

func (p *Pipeline) completeRun(ctx context.Context, res *Result, runErr error) {
	if p.Store == nil {
		return
	}
	status := "completed"
	errMsg := ""
	if runErr != nil {
		status = "failed"
		errMsg = runErr.Error()
	}
	if err := p.Store.CompleteRun(ctx, res.RunID, status, res.Report.Status, res.Dataset.Meta, errMsg); err != nil {
		log.Printf("[Pipeline] Could not record run completion: %v", err)
	}
}

// writeArtifacts emits every derived view. A failing write aborts
// immediately: half-written artifacts must not look complete.
func (p *Pipeline) writeArtifacts(res *Result, builder *projection.Builder) error {
	if err := os.MkdirAll(p.DataDir, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	if err := p.writeJSON(FileOpportunities, res.Dataset); err != nil {
		return err
	}
	if err := p.writeJSON(FileAdapterStatus, res.Statuses); err != nil {
		return err
	}
	if err := p.writeJSON(FileQCReport, res.Report); err != nil {
		return err
	}
	if err := p.writeJSON(FileFlowGraph, builder.BuildFlowGraph(res.Dataset)); err != nil {
		return err
	}
	if err := p.writeJSON(FileStatistics, res.Stats); err != nil {
		return err
	}

	if err := p.writeCSV(FilePriorityCSV, res.Dataset, builder.WriteRankedCSV); err != nil {
		return err
	}
	if err := p.writeCSV(FileSourcesCSV, res.Dataset, builder.WriteSourceCSV); err != nil {
		return err
	}
	return nil
}

func (p *Pipeline) writeJSON(name string, v any) error {
	path := filepath.Join(p.DataDir, name)
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", name, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}

func (p *Pipeline) writeCSV(name string, ds *models.Dataset, write func(w io.Writer, ds *models.Dataset) error) error {
	path := filepath.Join(p.DataDir, name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", name, err)
	}
	defer f.Close()
	if err := write(f, ds); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return f.Close()
}
