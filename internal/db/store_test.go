package db

import (
	"strings"
	"testing"
)

func TestBuildListQuery_NoFilters(t *testing.T) {
	query, args := buildListQuery(ListParams{})

	if strings.Contains(query, "WHERE") {
		t.Fatalf("unfiltered query must not carry a WHERE clause: %s", query)
	}
	if !strings.Contains(query, "ORDER BY priority_score DESC") {
		t.Fatalf("query missing rank ordering: %s", query)
	}
	// default limit and offset only
	if len(args) != 2 {
		t.Fatalf("got %d args, want 2: %v", len(args), args)
	}
	if args[0] != 100 {
		t.Fatalf("default limit = %v, want 100", args[0])
	}
}

func TestBuildListQuery_AllFilters(t *testing.T) {
	query, args := buildListQuery(ListParams{
		Segment:      "DaaS",
		Country:      "USA",
		FiscalStatus: "Active",
		MinScore:     50,
		Limit:        25,
		Offset:       10,
	})

	for _, token := range []string{"segment = $1", "country = $2", "fiscal_status = $3", "priority_score >= $4"} {
		if !strings.Contains(query, token) {
			t.Fatalf("query missing %q: %s", token, query)
		}
	}
	if len(args) != 6 {
		t.Fatalf("got %d args, want 6: %v", len(args), args)
	}
	if args[4] != 25 || args[5] != 10 {
		t.Fatalf("limit/offset args = %v", args[4:])
	}
}

func TestBuildListQuery_ClampsRunawayLimit(t *testing.T) {
	_, args := buildListQuery(ListParams{Limit: 100000})
	if args[0] != 100 {
		t.Fatalf("limit = %v, want clamped to 100", args[0])
	}
}
