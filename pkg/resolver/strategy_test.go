package resolver

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/prasann/table-talks-sub000/pkg/apperrors"
	"github.com/prasann/table-talks-sub000/pkg/llm"
	"github.com/prasann/table-talks-sub000/pkg/models"
)

func TestValidatePlan_RejectsInjectionParameters(t *testing.T) {
	registry := fixtureRegistry(fixtureStore(), false)

	plan := &models.Plan{
		ToolName:   "semantic_search",
		Parameters: map[string]any{"search_term": "1' OR '1'='1"},
	}
	err := validatePlan(plan, registry)
	if !errors.Is(err, apperrors.ErrInvalidParameters) {
		t.Errorf("expected injection-bearing parameter to be rejected, got %v", err)
	}
}

func TestValidatePlan_ExemptsValidatedSQLStatement(t *testing.T) {
	registry := fixtureRegistry(fixtureStore(), true)

	// The statement parameter is screened by ValidateReadOnly, not by the
	// parameter check; a legitimate SELECT must pass validation.
	plan := &models.Plan{
		ToolName:   "execute_sql",
		Parameters: map[string]any{"sql": "SELECT file_name FROM schema_columns WHERE data_type = 'string'"},
	}
	if err := validatePlan(plan, registry); err != nil {
		t.Errorf("unexpected error for validated statement: %v", err)
	}
}

func TestResolve_InjectionParameterFallsBack(t *testing.T) {
	chat := llm.NewMockChatClient()
	chat.GenerateWithToolsFunc = func(ctx context.Context, prompt, system string, defs []llm.ToolDefinition, temp float64) (*llm.ToolCallResult, error) {
		return &llm.ToolCallResult{ToolCalls: []llm.ToolCall{
			{Name: "find_columns", Arguments: `{"column_name": "'; DROP TABLE schema_columns--"}`},
		}}, nil
	}
	chat.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temp float64) (string, error) {
		return "not json", nil
	}

	store := fixtureStore()
	r := New(chat, fixtureRegistry(store, false), nil, true, testConfig(), zap.NewNop())

	result, err := r.ResolveAndExecute(context.Background(), "list the files", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// The poisoned plan never executes; the terminal strategy answers instead.
	if result.Plan.Strategy != models.StrategyPatternMatching {
		t.Errorf("expected pattern fallback, got %s", result.Plan.Strategy)
	}
}

func TestNormalizePlan_AppendsDefaultExtension(t *testing.T) {
	plan := &models.Plan{
		Parameters: map[string]any{
			"file_name": "orders",
			"file1":     "users.parquet",
			"file2":     "customers",
		},
	}
	normalizePlan(plan)

	if plan.Parameters["file_name"] != "orders.csv" {
		t.Errorf("expected orders.csv, got %v", plan.Parameters["file_name"])
	}
	if plan.Parameters["file1"] != "users.parquet" {
		t.Errorf("existing extension must be kept, got %v", plan.Parameters["file1"])
	}
	if plan.Parameters["file2"] != "customers.csv" {
		t.Errorf("expected customers.csv, got %v", plan.Parameters["file2"])
	}
}
