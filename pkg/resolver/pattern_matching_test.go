package resolver

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func parseFallback(t *testing.T, query string, files []string) (tool string, params map[string]any) {
	t.Helper()
	s := NewPatternMatchingStrategy(zap.NewNop())
	plan, err := s.Parse(context.Background(), query, files)
	if err != nil {
		t.Fatalf("pattern matching must never fail, got %v", err)
	}
	if !plan.IsFallback {
		t.Error("expected fallback plan")
	}
	return plan.ToolName, plan.Parameters
}

func TestPatternMatching_KeywordTable(t *testing.T) {
	files := []string{"orders.csv", "customers.csv"}

	cases := []struct {
		query string
		tool  string
	}{
		{"are there any type mismatches?", "detect_type_mismatches"},
		{"do any columns use abbreviated names?", "detect_abbreviations"},
		{"check for naming issues", "detect_naming_issues"},
		{"group columns by concept", "concept_groups"},
		{"what columns are shared between files?", "find_common_columns"},
		{"are any files near duplicates of each other?", "find_similar_schemas"},
		{"how could I join these files?", "find_common_columns"},
		{"give me an overview", "database_summary"},
		{"how many rows are there in total?", "database_summary"},
		{"what files are there?", "list_files"},
		{"completely unrelated gibberish", "database_summary"},
		{"", "database_summary"},
	}
	for _, tc := range cases {
		if tool, _ := parseFallback(t, tc.query, files); tool != tc.tool {
			t.Errorf("query %q: expected %s, got %s", tc.query, tc.tool, tool)
		}
	}
}

func TestPatternMatching_FileSchemaWithInflection(t *testing.T) {
	// "order" should find orders.csv via singular/plural matching.
	tool, params := parseFallback(t, "describe the order file", []string{"orders.csv", "customers.csv"})
	if tool != "get_file_schema" {
		t.Fatalf("expected get_file_schema, got %s", tool)
	}
	if params["file_name"] != "orders.csv" {
		t.Errorf("expected orders.csv, got %v", params["file_name"])
	}
}

func TestPatternMatching_BareFileMention(t *testing.T) {
	tool, params := parseFallback(t, "customers.csv", []string{"orders.csv", "customers.csv"})
	if tool != "get_file_schema" || params["file_name"] != "customers.csv" {
		t.Errorf("expected schema lookup for customers.csv, got %s %v", tool, params)
	}
}

func TestPatternMatching_CompareNeedsTwoFiles(t *testing.T) {
	files := []string{"orders.csv", "customers.csv"}

	tool, params := parseFallback(t, "compare orders and customers", files)
	if tool != "compare_schemas" {
		t.Fatalf("expected compare_schemas, got %s", tool)
	}
	if params["file1"] != "orders.csv" || params["file2"] != "customers.csv" {
		t.Errorf("unexpected files %v", params)
	}

	// One file named: degrade to overlap analysis instead of failing.
	tool, _ = parseFallback(t, "compare orders against the rest", files)
	if tool != "find_common_columns" {
		t.Errorf("expected degradation to find_common_columns, got %s", tool)
	}
}

func TestPatternMatching_ColumnTokenExtraction(t *testing.T) {
	tool, params := parseFallback(t, "which files have a customer_id column?", []string{"orders.csv"})
	if tool != "find_columns" {
		t.Fatalf("expected find_columns, got %s", tool)
	}
	if params["column_name"] != "customer_id" {
		t.Errorf("expected customer_id, got %v", params["column_name"])
	}
}

func TestPatternMatching_SearchTermExtraction(t *testing.T) {
	tool, params := parseFallback(t, "show columns related to money", []string{"orders.csv"})
	if tool != "semantic_search" {
		t.Fatalf("expected semantic_search, got %s", tool)
	}
	if params["search_term"] != "money" {
		t.Errorf("expected money, got %v", params["search_term"])
	}

	// No extractable term: degrade to concept grouping.
	tool, _ = parseFallback(t, "anything semantic here", []string{"orders.csv"})
	if tool != "concept_groups" {
		t.Errorf("expected concept_groups, got %s", tool)
	}
}
