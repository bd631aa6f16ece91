package main

import (
	"context"
	"log"
	"os"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/david/topo-radar/internal/db"
	"github.com/david/topo-radar/internal/ingest"
	"github.com/david/topo-radar/internal/models"
)

func main() {
	ctx := context.Background()

	reg, err := ingest.LoadRegistry(os.Getenv("SOURCES_CONFIG"))
	if err != nil {
		log.Fatalf("Failed to load source registry: %v", err)
	}
	kw, err := ingest.LoadKeywords(os.Getenv("KEYWORDS_CONFIG"))
	if err != nil {
		log.Fatalf("Failed to load keyword config: %v", err)
	}

	// Persistence is optional for the batch runner; artifacts on disk
	// are the primary output.
	var store *db.Store
	if os.Getenv("DATABASE_URL") != "" {
		pool, err := db.Connect(ctx)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer pool.Close()
		if err := db.ApplyMigrations(ctx, pool); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		store = db.NewStore(pool)
	}

	pipeline := ingest.NewPipeline(reg, kw, store, os.Getenv("DATA_DIR"))
	res, err := pipeline.Run(ctx)
	if err != nil {
		log.Fatalf("Pipeline run failed: %v", err)
	}

	printSummary(res)

	if res.Report.Status != "PASS" {
		os.Exit(1)
	}
}

func printSummary(res *ingest.Result) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("Run %s - QC %s", res.RunID[:8], res.Report.Status)
	t.AppendHeader(table.Row{"Adapter", "Status", "Records", "Duration", "Error"})
	for _, st := range res.Statuses {
		t.AppendRow(table.Row{st.Name, st.Status, st.Count, st.DurationMS, st.Error})
	}
	t.AppendFooter(table.Row{
		"canonical", "", res.Dataset.Meta.TotalCount, "", "",
	})
	t.Render()

	top := table.NewWriter()
	top.SetOutputMirror(os.Stdout)
	top.SetTitle("Top opportunities")
	top.AppendHeader(table.Row{"Score", "Title", "Agency", "Country", "Value", "Fiscal"})
	for _, opp := range topN(res.Dataset, 10) {
		top.AppendRow(table.Row{
			opp.PriorityScore, truncate(opp.Title, 50), opp.Agency,
			opp.Country, opp.ForecastValue, opp.FiscalStatus,
		})
	}
	top.Render()

	log.Printf("Suppressed duplicates: %d, filtered off-domain: %d, QC errors: %d, warnings: %d",
		res.Dataset.Meta.SuppressedDuplicates, res.Dataset.Meta.FilteredOffDomain,
		len(res.Report.Errors), len(res.Report.Warnings))
	log.Printf("Total pipeline value: %s across %d records (%d source-verified)",
		ingest.FormatUSD(res.Stats.TotalValueUSD), res.Stats.TotalCount, res.Stats.VerifiedCount)
}

func topN(ds *models.Dataset, n int) []models.Opportunity {
	sorted := make([]models.Opportunity, len(ds.Opportunities))
	copy(sorted, ds.Opportunities)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].PriorityScore > sorted[j].PriorityScore
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}
