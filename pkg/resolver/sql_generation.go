package resolver

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/prasann/table-talks-sub000/pkg/apperrors"
	"github.com/prasann/table-talks-sub000/pkg/llm"
	"github.com/prasann/table-talks-sub000/pkg/models"
	"github.com/prasann/table-talks-sub000/pkg/prompts"
	"github.com/prasann/table-talks-sub000/pkg/repositories"
	sqlutil "github.com/prasann/table-talks-sub000/pkg/sql"
	"github.com/prasann/table-talks-sub000/pkg/tools"
)

// SQLGenerationStrategy asks a model to express the question as one
// read-only SELECT over the metadata table. It only ever emits plans for the
// execute_sql tool, which revalidates the statement before running it.
type SQLGenerationStrategy struct {
	chat     llm.ChatClient
	store    repositories.SchemaStore
	registry *tools.Registry
	logger   *zap.Logger
}

// NewSQLGenerationStrategy creates the SQL path. The registry must have the
// execute_sql tool registered.
func NewSQLGenerationStrategy(chat llm.ChatClient, store repositories.SchemaStore, registry *tools.Registry, logger *zap.Logger) *SQLGenerationStrategy {
	return &SQLGenerationStrategy{
		chat:     chat,
		store:    store,
		registry: registry,
		logger:   logger.Named("sql_generation"),
	}
}

func (s *SQLGenerationStrategy) Name() models.StrategyKind {
	return models.StrategySQLGeneration
}

func (s *SQLGenerationStrategy) Parse(ctx context.Context, query string, availableFiles []string) (*models.Plan, error) {
	cols, err := s.store.AllColumns(ctx)
	if err != nil {
		// The prompt works without the sample; the query itself will fail
		// later if the store is really down.
		s.logger.Warn("Could not sample store for SQL prompt", zap.Error(err))
	}

	prompt := prompts.BuildSQLGenerationPrompt(query, cols)
	return s.generate(ctx, query, prompt)
}

// Reparse produces a fresh plan after a failed execution, feeding the failed
// statement and its error back to the model. The orchestrator calls this
// sequentially, bounded by the configured retry budget.
func (s *SQLGenerationStrategy) Reparse(ctx context.Context, query, failedSQL, failure string) (*models.Plan, error) {
	prompt := prompts.BuildSQLRetryPrompt(query, failedSQL, failure)
	return s.generate(ctx, query, prompt)
}

func (s *SQLGenerationStrategy) generate(ctx context.Context, query, prompt string) (*models.Plan, error) {
	response, err := s.chat.GenerateResponse(ctx, prompt, "", 0)
	if err != nil {
		return nil, fmt.Errorf("SQL generation failed: %w", err)
	}

	cleaned := sqlutil.CleanGeneratedSQL(response)
	validated, err := sqlutil.ValidateReadOnly(cleaned)
	if err != nil {
		return nil, fmt.Errorf("generated statement rejected: %w: %w", apperrors.ErrParse, err)
	}

	plan := &models.Plan{
		Intent:     query,
		ToolName:   "execute_sql",
		Parameters: map[string]any{"sql": validated},
		Confidence: 0.7,
		Strategy:   models.StrategySQLGeneration,
	}
	if err := validatePlan(plan, s.registry); err != nil {
		return nil, err
	}

	s.logger.Debug("Generated SQL plan", zap.Int("sql_length", len(validated)))
	return plan, nil
}

var _ Strategy = (*SQLGenerationStrategy)(nil)
