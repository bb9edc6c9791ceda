package resolver

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/prasann/table-talks-sub000/pkg/llm"
	"github.com/prasann/table-talks-sub000/pkg/models"
	"github.com/prasann/table-talks-sub000/pkg/semantic"
	"github.com/prasann/table-talks-sub000/pkg/testhelpers"
	"github.com/prasann/table-talks-sub000/pkg/tools"
)

func fixtureStore() *testhelpers.MemoryStore {
	col := func(file, name string, dataType models.DataType) models.ColumnDescriptor {
		return models.ColumnDescriptor{FileName: file, ColumnName: name, DataType: dataType, TotalRows: 10}
	}
	return testhelpers.NewMemoryStore(
		col("orders.csv", "order_id", models.DataTypeInteger),
		col("orders.csv", "customer_id", models.DataTypeInteger),
		col("legacy_users.csv", "customer_id", models.DataTypeString),
	)
}

func fixtureRegistry(store *testhelpers.MemoryStore, withSQL bool) *tools.Registry {
	registry := tools.NewRegistry(zap.NewNop())
	deps := &tools.SchemaToolDeps{
		Store:  store,
		Engine: semantic.NewEngine(nil, "", zap.NewNop()),
		Logger: zap.NewNop(),
	}
	tools.RegisterSchemaTools(registry, deps)
	if withSQL {
		tools.RegisterSQLTool(registry, deps)
	}
	return registry
}

func testConfig() Config {
	return Config{LLMTimeout: time.Second, MaxSQLRetries: 2}
}

func TestResolve_FunctionCalling(t *testing.T) {
	chat := llm.NewMockChatClient()
	chat.GenerateWithToolsFunc = func(ctx context.Context, prompt, system string, defs []llm.ToolDefinition, temp float64) (*llm.ToolCallResult, error) {
		return &llm.ToolCallResult{ToolCalls: []llm.ToolCall{
			{Name: "get_file_schema", Arguments: `{"file_name": "orders"}`},
		}}, nil
	}

	r := New(chat, fixtureRegistry(fixtureStore(), false), nil, true, testConfig(), zap.NewNop())
	result, err := r.ResolveAndExecute(context.Background(), "describe orders", []string{"orders.csv"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Plan.Strategy != models.StrategyFunctionCalling {
		t.Errorf("expected function calling, got %s", result.Plan.Strategy)
	}
	// Missing extension is normalized before execution.
	if name, _ := result.Plan.Param("file_name"); name != "orders.csv" {
		t.Errorf("expected normalized file name, got %q", name)
	}
	if !strings.Contains(result.Answer, "order_id") {
		t.Errorf("expected schema in answer, got %q", result.Answer)
	}
	if result.ResolutionID == "" {
		t.Error("expected a resolution ID")
	}
}

func TestResolve_UnknownToolFallsBack(t *testing.T) {
	chat := llm.NewMockChatClient()
	chat.GenerateWithToolsFunc = func(ctx context.Context, prompt, system string, defs []llm.ToolDefinition, temp float64) (*llm.ToolCallResult, error) {
		return &llm.ToolCallResult{ToolCalls: []llm.ToolCall{{Name: "not_a_tool", Arguments: "{}"}}}, nil
	}
	chat.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temp float64) (string, error) {
		return `{"tool": "list_files", "parameters": {}, "confidence": 0.8}`, nil
	}

	r := New(chat, fixtureRegistry(fixtureStore(), false), nil, true, testConfig(), zap.NewNop())
	result, err := r.ResolveAndExecute(context.Background(), "what files are there?", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Plan.Strategy != models.StrategyStructuredOutput {
		t.Errorf("expected structured output fallback, got %s", result.Plan.Strategy)
	}
}

func TestResolve_StructuredOutputRepairsJSON(t *testing.T) {
	chat := llm.NewMockChatClient()
	chat.GenerateWithToolsFunc = func(ctx context.Context, prompt, system string, defs []llm.ToolDefinition, temp float64) (*llm.ToolCallResult, error) {
		return nil, errors.New("tool calling unsupported")
	}
	chat.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temp float64) (string, error) {
		return "```json\n{\"tool\": \"database_summary\", // overview\n\"parameters\": {}, \"confidence\": 00.9}\n```", nil
	}

	r := New(chat, fixtureRegistry(fixtureStore(), false), nil, true, testConfig(), zap.NewNop())
	result, err := r.ResolveAndExecute(context.Background(), "overview please", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Plan.ToolName != "database_summary" {
		t.Errorf("expected database_summary, got %s", result.Plan.ToolName)
	}
	if result.Plan.Confidence != 0.9 {
		t.Errorf("expected repaired confidence 0.9, got %v", result.Plan.Confidence)
	}
}

func TestResolve_AllModelStrategiesFailStillAnswers(t *testing.T) {
	chat := llm.NewMockChatClient()
	chat.GenerateWithToolsFunc = func(ctx context.Context, prompt, system string, defs []llm.ToolDefinition, temp float64) (*llm.ToolCallResult, error) {
		return nil, errors.New("endpoint down")
	}
	chat.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temp float64) (string, error) {
		return "", errors.New("endpoint down")
	}

	r := New(chat, fixtureRegistry(fixtureStore(), false), nil, true, testConfig(), zap.NewNop())
	result, err := r.ResolveAndExecute(context.Background(), "detect type mismatches", nil)
	if err != nil {
		t.Fatalf("terminal strategy must answer, got error %v", err)
	}
	if result.Plan.Strategy != models.StrategyPatternMatching || !result.Plan.IsFallback {
		t.Errorf("expected pattern fallback, got %+v", result.Plan)
	}
	if !strings.Contains(result.Answer, "customer_id") {
		t.Errorf("expected mismatch report, got %q", result.Answer)
	}
}

func TestResolve_NoChatClientUsesPatternsOnly(t *testing.T) {
	r := New(nil, fixtureRegistry(fixtureStore(), false), nil, false, testConfig(), zap.NewNop())
	result, err := r.ResolveAndExecute(context.Background(), "what files are there?", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Plan.Strategy != models.StrategyPatternMatching {
		t.Errorf("expected pattern matching, got %s", result.Plan.Strategy)
	}
	if !strings.Contains(result.Answer, "orders.csv") {
		t.Errorf("expected file listing, got %q", result.Answer)
	}
}

func TestResolve_SQLRetriesSequentiallyWithFeedback(t *testing.T) {
	store := fixtureStore()
	store.QueryErr = errors.New(`column "nope" does not exist`)
	registry := fixtureRegistry(store, true)

	var sqlPrompts []string
	chat := llm.NewMockChatClient()
	chat.GenerateWithToolsFunc = func(ctx context.Context, prompt, system string, defs []llm.ToolDefinition, temp float64) (*llm.ToolCallResult, error) {
		return nil, errors.New("no tool support")
	}
	chat.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temp float64) (string, error) {
		if strings.Contains(prompt, "Respond with a single JSON object") {
			return "not json at all", nil
		}
		sqlPrompts = append(sqlPrompts, prompt)
		if len(sqlPrompts) == 3 {
			store.QueryErr = nil
			store.QueryRows = []map[string]any{{"n": int64(3)}}
		}
		return "SELECT COUNT(*) AS n FROM schema_columns", nil
	}

	sqlStrategy := NewSQLGenerationStrategy(chat, store, registry, zap.NewNop())
	r := New(chat, registry, sqlStrategy, false, testConfig(), zap.NewNop())

	result, err := r.ResolveAndExecute(context.Background(), "how many columns in total?", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Plan.Strategy != models.StrategySQLGeneration {
		t.Fatalf("expected SQL strategy, got %s", result.Plan.Strategy)
	}
	if len(sqlPrompts) != 3 {
		t.Fatalf("expected initial attempt plus 2 retries, got %d", len(sqlPrompts))
	}
	// Retries see the previous failure.
	if !strings.Contains(sqlPrompts[1], "does not exist") {
		t.Errorf("expected error feedback in retry prompt, got %q", sqlPrompts[1])
	}
	if !strings.Contains(result.Answer, "n=3") {
		t.Errorf("expected query result, got %q", result.Answer)
	}
}

func TestResolve_SQLNeverExecutesWrites(t *testing.T) {
	store := fixtureStore()
	registry := fixtureRegistry(store, true)

	chat := llm.NewMockChatClient()
	chat.GenerateWithToolsFunc = func(ctx context.Context, prompt, system string, defs []llm.ToolDefinition, temp float64) (*llm.ToolCallResult, error) {
		return nil, errors.New("no tool support")
	}
	chat.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temp float64) (string, error) {
		if strings.Contains(prompt, "Respond with a single JSON object") {
			return "not json", nil
		}
		return "DROP TABLE schema_columns", nil
	}

	sqlStrategy := NewSQLGenerationStrategy(chat, store, registry, zap.NewNop())
	r := New(chat, registry, sqlStrategy, false, testConfig(), zap.NewNop())

	result, err := r.ResolveAndExecute(context.Background(), "how many columns?", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// The write statement never reaches the store; the chain falls through
	// to the terminal strategy instead.
	if len(store.ExecutedQueries) != 0 {
		t.Errorf("write statement reached the store: %v", store.ExecutedQueries)
	}
	if result.Plan.Strategy != models.StrategyPatternMatching {
		t.Errorf("expected pattern fallback, got %s", result.Plan.Strategy)
	}
}

func TestResolve_SynthesisDegradesToRawText(t *testing.T) {
	chat := llm.NewMockChatClient()
	chat.GenerateWithToolsFunc = func(ctx context.Context, prompt, system string, defs []llm.ToolDefinition, temp float64) (*llm.ToolCallResult, error) {
		return &llm.ToolCallResult{ToolCalls: []llm.ToolCall{{Name: "list_files", Arguments: "{}"}}}, nil
	}
	chat.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temp float64) (string, error) {
		return "", errors.New("synthesis endpoint down")
	}

	cfg := testConfig()
	cfg.Synthesize = true
	r := New(chat, fixtureRegistry(fixtureStore(), false), nil, true, cfg, zap.NewNop())

	result, err := r.ResolveAndExecute(context.Background(), "list files", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result.Answer, "orders.csv") {
		t.Errorf("expected raw tool output, got %q", result.Answer)
	}
}

func TestResolve_TerminalExecutionFailureGivesFriendlyMessage(t *testing.T) {
	store := fixtureStore()
	registry := tools.NewRegistry(zap.NewNop())
	deps := &tools.SchemaToolDeps{
		Store:  &failingStore{MemoryStore: store},
		Engine: semantic.NewEngine(nil, "", zap.NewNop()),
		Logger: zap.NewNop(),
	}
	tools.RegisterSchemaTools(registry, deps)

	r := New(nil, registry, nil, false, testConfig(), zap.NewNop())
	result, err := r.ResolveAndExecute(context.Background(), "what files are there?", nil)
	if err == nil {
		t.Fatal("expected the store failure to surface")
	}
	if result.Answer == "" {
		t.Error("expected a user-facing failure message")
	}
}

func TestHelpAndStatus(t *testing.T) {
	r := New(nil, fixtureRegistry(fixtureStore(), false), nil, false, testConfig(), zap.NewNop())

	help := r.HelpText()
	if !strings.Contains(help, "list_files") || !strings.Contains(help, "detect type mismatches") {
		t.Errorf("help text incomplete: %q", help)
	}

	status := r.Status()
	if !strings.Contains(status, "pattern_matching") || !strings.Contains(status, "keyword matching only") {
		t.Errorf("status incomplete: %q", status)
	}
}

// failingStore wraps MemoryStore with failing reads.
type failingStore struct {
	*testhelpers.MemoryStore
}

func (f *failingStore) ListFiles(ctx context.Context) ([]models.FileSummary, error) {
	return nil, errors.New("connection refused")
}
