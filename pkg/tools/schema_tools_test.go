package tools

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/prasann/table-talks-sub000/pkg/apperrors"
	"github.com/prasann/table-talks-sub000/pkg/llm"
	"github.com/prasann/table-talks-sub000/pkg/models"
	"github.com/prasann/table-talks-sub000/pkg/semantic"
	"github.com/prasann/table-talks-sub000/pkg/testhelpers"
)

func testRegistry(store *testhelpers.MemoryStore, withSQL bool) *Registry {
	r := NewRegistry(zap.NewNop())
	deps := &SchemaToolDeps{
		Store:  store,
		Engine: semantic.NewEngine(nil, "", zap.NewNop()),
		Logger: zap.NewNop(),
	}
	RegisterSchemaTools(r, deps)
	if withSQL {
		RegisterSQLTool(r, deps)
	}
	return r
}

func storeFixture() *testhelpers.MemoryStore {
	scanned := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	col := func(file, name string, dataType models.DataType) models.ColumnDescriptor {
		return models.ColumnDescriptor{
			FileName:    file,
			FilePath:    "/data/" + file,
			ColumnName:  name,
			DataType:    dataType,
			TotalRows:   100,
			UniqueCount: 50,
			FileSizeMB:  1.5,
			LastScanned: scanned,
		}
	}
	return testhelpers.NewMemoryStore(
		col("orders.csv", "order_id", models.DataTypeInteger),
		col("orders.csv", "customer_id", models.DataTypeInteger),
		col("orders.csv", "amount", models.DataTypeFloat),
		col("customers.csv", "customer_id", models.DataTypeString),
		col("customers.csv", "email", models.DataTypeString),
	)
}

func TestListFiles(t *testing.T) {
	r := testRegistry(storeFixture(), false)
	result, err := r.Execute(context.Background(), "list_files", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result, "2 scanned file(s)") {
		t.Errorf("expected file count in output, got %q", result)
	}
	if !strings.Contains(result, "orders.csv: 3 columns") {
		t.Errorf("expected orders column count, got %q", result)
	}
}

func TestGetFileSchema(t *testing.T) {
	r := testRegistry(storeFixture(), false)
	result, err := r.Execute(context.Background(), "get_file_schema",
		map[string]any{"file_name": "orders.csv"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result, "order_id: integer") {
		t.Errorf("expected column with type, got %q", result)
	}
}

func TestGetFileSchema_NotFound(t *testing.T) {
	r := testRegistry(storeFixture(), false)
	_, err := r.Execute(context.Background(), "get_file_schema",
		map[string]any{"file_name": "missing.csv"})
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFindColumns(t *testing.T) {
	r := testRegistry(storeFixture(), false)
	result, err := r.Execute(context.Background(), "find_columns",
		map[string]any{"column_name": "customer"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result, "orders.csv.customer_id") || !strings.Contains(result, "customers.csv.customer_id") {
		t.Errorf("expected both files, got %q", result)
	}
}

func TestDetectTypeMismatches(t *testing.T) {
	r := testRegistry(storeFixture(), false)
	result, err := r.Execute(context.Background(), "detect_type_mismatches", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// customer_id is integer in orders.csv, string in customers.csv.
	if !strings.Contains(result, "customer_id") {
		t.Errorf("expected customer_id mismatch, got %q", result)
	}
	if !strings.Contains(result, "integer in orders.csv") || !strings.Contains(result, "string in customers.csv") {
		t.Errorf("expected per-type file lists, got %q", result)
	}
}

func TestFindCommonColumns(t *testing.T) {
	r := testRegistry(storeFixture(), false)
	result, err := r.Execute(context.Background(), "find_common_columns", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result, "customer_id in 2 files") {
		t.Errorf("expected shared customer_id, got %q", result)
	}
}

func TestDatabaseSummary(t *testing.T) {
	r := testRegistry(storeFixture(), false)
	result, err := r.Execute(context.Background(), "database_summary", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result, "2 files, 5 columns") {
		t.Errorf("expected totals, got %q", result)
	}
}

func TestCompareSchemas(t *testing.T) {
	r := testRegistry(storeFixture(), false)
	result, err := r.Execute(context.Background(), "compare_schemas",
		map[string]any{"file1": "orders.csv", "file2": "customers.csv"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result, "Shared columns: customer_id") {
		t.Errorf("expected shared column, got %q", result)
	}
	if !strings.Contains(result, "Type conflict: customer_id") {
		t.Errorf("expected type conflict, got %q", result)
	}
}

func TestFindSimilarSchemas(t *testing.T) {
	scanned := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	col := func(file, name string) models.ColumnDescriptor {
		return models.ColumnDescriptor{FileName: file, ColumnName: name, DataType: models.DataTypeString, LastScanned: scanned}
	}
	store := testhelpers.NewMemoryStore(
		col("users.csv", "id"), col("users.csv", "email"),
		col("users_backup.csv", "id"), col("users_backup.csv", "email"),
		col("orders.csv", "order_id"),
	)

	r := testRegistry(store, false)
	result, err := r.Execute(context.Background(), "find_similar_schemas", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result, "users.csv and users_backup.csv (overlap 1.00)") {
		t.Errorf("expected identical pair, got %q", result)
	}
	if strings.Contains(result, "orders.csv") {
		t.Errorf("orders.csv shares nothing, got %q", result)
	}
}

func TestSemanticSearch_DegradesToSubstring(t *testing.T) {
	r := testRegistry(storeFixture(), false)
	result, err := r.Execute(context.Background(), "semantic_search",
		map[string]any{"search_term": "customer"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result, "customer_id") {
		t.Errorf("expected substring matches, got %q", result)
	}
	if !strings.Contains(result, "embeddings unavailable") {
		t.Errorf("expected degradation note, got %q", result)
	}
}

func TestSemanticSearch_UsesConfiguredThreshold(t *testing.T) {
	mock := llm.NewMockEmbedder()
	mock.CreateEmbeddingsFunc = func(ctx context.Context, inputs []string, model string) ([][]float32, error) {
		vectors := make([][]float32, len(inputs))
		for i, input := range inputs {
			switch {
			case strings.Contains(input, "customer"):
				vectors[i] = []float32{1, 0}
			case strings.Contains(input, "client"):
				// cosine of 0.8 against the customer vector
				vectors[i] = []float32{0.8, 0.6}
			default:
				vectors[i] = []float32{0, 1}
			}
		}
		return vectors, nil
	}

	store := testhelpers.NewMemoryStore(
		models.ColumnDescriptor{FileName: "crm.csv", ColumnName: "client_id", DataType: models.DataTypeInteger},
	)

	registryWith := func(threshold float64) *Registry {
		r := NewRegistry(zap.NewNop())
		RegisterSchemaTools(r, &SchemaToolDeps{
			Store:               store,
			Engine:              semantic.NewEngine(mock, "test-model", zap.NewNop()),
			Logger:              zap.NewNop(),
			SimilarityThreshold: threshold,
		})
		return r
	}

	// A strict configured threshold filters the 0.8 match out.
	result, err := registryWith(0.9).Execute(context.Background(), "semantic_search",
		map[string]any{"search_term": "customer"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(result, "client_id") {
		t.Errorf("expected 0.8 match filtered at threshold 0.9, got %q", result)
	}

	// A permissive configured threshold lets it through.
	result, err = registryWith(0.7).Execute(context.Background(), "semantic_search",
		map[string]any{"search_term": "customer"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result, "client_id") {
		t.Errorf("expected match at threshold 0.7, got %q", result)
	}
}

func TestConceptGroups_OfflineFallback(t *testing.T) {
	r := testRegistry(storeFixture(), false)
	result, err := r.Execute(context.Background(), "concept_groups", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result, "identifier") {
		t.Errorf("expected identifier concept from keyword grouping, got %q", result)
	}
}

func TestConceptTypeConsistency(t *testing.T) {
	r := testRegistry(storeFixture(), false)
	result, err := r.Execute(context.Background(), "concept_type_consistency", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result, "identifier") {
		t.Errorf("expected identifier concept flagged, got %q", result)
	}
}

func TestExecuteSQL_NotRegisteredByDefault(t *testing.T) {
	r := testRegistry(storeFixture(), false)
	if r.Has("execute_sql") {
		t.Error("execute_sql should be opt-in")
	}
}

func TestExecuteSQL_RejectsWrites(t *testing.T) {
	r := testRegistry(storeFixture(), true)
	_, err := r.Execute(context.Background(), "execute_sql",
		map[string]any{"sql": "DELETE FROM schema_columns"})
	if err == nil {
		t.Fatal("expected write statement to be rejected")
	}
}

func TestExecuteSQL_RunsValidatedQuery(t *testing.T) {
	store := storeFixture()
	store.QueryRows = []map[string]any{{"file_name": "orders.csv", "n": int64(3)}}
	r := testRegistry(store, true)

	result, err := r.Execute(context.Background(), "execute_sql",
		map[string]any{"sql": "```sql\nSELECT file_name, COUNT(*) AS n FROM schema_columns GROUP BY file_name;\n```"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result, "file_name=orders.csv") {
		t.Errorf("expected row output, got %q", result)
	}
	if len(store.ExecutedQueries) != 1 || strings.Contains(store.ExecutedQueries[0], "```") {
		t.Errorf("expected cleaned SQL to reach the store, got %v", store.ExecutedQueries)
	}
}
