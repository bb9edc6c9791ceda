package semantic

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/prasann/table-talks-sub000/pkg/apperrors"
	"github.com/prasann/table-talks-sub000/pkg/llm"
)

// wordEmbedder maps inputs to fixed unit vectors by keyword, so cosine
// similarity in tests is exact.
func wordEmbedder() *llm.MockEmbedder {
	mock := llm.NewMockEmbedder()
	mock.CreateEmbeddingsFunc = func(ctx context.Context, inputs []string, model string) ([][]float32, error) {
		vectors := make([][]float32, len(inputs))
		for i, input := range inputs {
			switch {
			case strings.Contains(input, "customer") || strings.Contains(input, "client"):
				vectors[i] = []float32{1, 0, 0}
			case strings.Contains(input, "order"):
				vectors[i] = []float32{0, 1, 0}
			default:
				vectors[i] = []float32{0, 0, 1}
			}
		}
		return vectors, nil
	}
	return mock
}

func newTestEngine(t *testing.T, embedder llm.Embedder) *Engine {
	t.Helper()
	return NewEngine(embedder, "test-embedding-model", zap.NewNop())
}

func TestEngine_UnavailableWithoutEmbedder(t *testing.T) {
	engine := newTestEngine(t, nil)
	if engine.Available() {
		t.Fatal("engine without embedder must be unavailable")
	}

	_, err := engine.FindSimilar(context.Background(), "customer", []Candidate{{ColumnName: "cust_id"}}, 0.5)
	if !errors.Is(err, apperrors.ErrEmbeddingUnavailable) {
		t.Errorf("expected ErrEmbeddingUnavailable, got %v", err)
	}
}

func TestFindSimilar_ExactMatchScoresOne(t *testing.T) {
	engine := newTestEngine(t, wordEmbedder())
	candidates := []Candidate{
		{ColumnName: "customer", FileName: "customers.csv"},
		{ColumnName: "order_id", FileName: "orders.csv"},
	}

	matches, err := engine.FindSimilar(context.Background(), "Customer", candidates, 0.9)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	if matches[0].MatchType != MatchTypeExact || matches[0].Similarity != 1.0 {
		t.Errorf("expected exact match with similarity 1.0, got %+v", matches[0])
	}
}

func TestFindSimilar_SemanticMatchAndThreshold(t *testing.T) {
	engine := newTestEngine(t, wordEmbedder())
	candidates := []Candidate{
		{ColumnName: "client_ref", FileName: "a.csv"},
		{ColumnName: "order_total", FileName: "b.csv"},
	}

	matches, err := engine.FindSimilar(context.Background(), "customer", candidates, 0.9)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 match above threshold, got %d: %+v", len(matches), matches)
	}
	if matches[0].ColumnName != "client_ref" || matches[0].MatchType != MatchTypeSemantic {
		t.Errorf("unexpected match %+v", matches[0])
	}
}

func TestFindSimilar_StableOrderOnTies(t *testing.T) {
	engine := newTestEngine(t, wordEmbedder())
	candidates := []Candidate{
		{ColumnName: "client_a", FileName: "a.csv"},
		{ColumnName: "client_b", FileName: "b.csv"},
	}

	matches, err := engine.FindSimilar(context.Background(), "customer", candidates, 0.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].ColumnName != "client_a" || matches[1].ColumnName != "client_b" {
		t.Errorf("ties must keep candidate order: %+v", matches)
	}
}

func TestEngine_CachesEmbeddings(t *testing.T) {
	mock := wordEmbedder()
	engine := newTestEngine(t, mock)
	candidates := []Candidate{{ColumnName: "client_ref", FileName: "a.csv"}}

	if _, err := engine.FindSimilar(context.Background(), "customer", candidates, 0.5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := engine.FindSimilar(context.Background(), "customer", candidates, 0.5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if mock.CreateEmbeddingsCalls != 1 {
		t.Errorf("expected repeat lookup served from cache, got %d provider calls", mock.CreateEmbeddingsCalls)
	}
}

func TestEngine_ProviderFailureWrapsSentinel(t *testing.T) {
	mock := llm.NewMockEmbedder()
	mock.CreateEmbeddingsFunc = func(ctx context.Context, inputs []string, model string) ([][]float32, error) {
		return nil, errors.New("connection refused")
	}
	engine := newTestEngine(t, mock)

	_, err := engine.FindSimilar(context.Background(), "customer", []Candidate{{ColumnName: "cust_id"}}, 0.5)
	if !errors.Is(err, apperrors.ErrEmbeddingUnavailable) {
		t.Errorf("expected ErrEmbeddingUnavailable, got %v", err)
	}
}

func TestSubstringFallback(t *testing.T) {
	candidates := []Candidate{
		{ColumnName: "customer_id", FileName: "a.csv"},
		{ColumnName: "customer", FileName: "b.csv"},
		{ColumnName: "order_total", FileName: "c.csv"},
	}

	matches := SubstringFallback("customer", candidates)
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].ColumnName != "customer" || matches[0].MatchType != MatchTypeExact {
		t.Errorf("exact match must sort first: %+v", matches)
	}
	if matches[1].MatchType != MatchTypePattern {
		t.Errorf("expected pattern match, got %+v", matches[1])
	}
}

func TestConceptGroups_GroupsAndDedupes(t *testing.T) {
	mock := llm.NewMockEmbedder()
	mock.CreateEmbeddingsFunc = func(ctx context.Context, inputs []string, model string) ([][]float32, error) {
		vectors := make([][]float32, len(inputs))
		for i, input := range inputs {
			switch {
			case strings.Contains(input, "identifier") || strings.Contains(input, "record id"):
				vectors[i] = []float32{1, 0}
			default:
				vectors[i] = []float32{0, 1}
			}
		}
		return vectors, nil
	}
	engine := newTestEngine(t, mock)

	candidates := []Candidate{
		{ColumnName: "user_id", FileName: "users.csv"},
		{ColumnName: "user_id", FileName: "users.csv"}, // duplicate collapses
		{ColumnName: "notes", FileName: "users.csv"},
	}

	groups, err := engine.ConceptGroups(context.Background(), candidates, 0.9)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	identifierGroup := groups["identifier"]
	if len(identifierGroup) != 1 {
		t.Fatalf("expected 1 deduped identifier match, got %d: %+v", len(identifierGroup), identifierGroup)
	}
	if identifierGroup[0].ColumnName != "user_id" {
		t.Errorf("unexpected group member %+v", identifierGroup[0])
	}
}

func TestConceptGroups_EmptyInput(t *testing.T) {
	engine := newTestEngine(t, wordEmbedder())
	groups, err := engine.ConceptGroups(context.Background(), nil, 0.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(groups) != 0 {
		t.Errorf("expected empty result, got %v", groups)
	}
}
