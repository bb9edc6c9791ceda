package resolver

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/prasann/table-talks-sub000/pkg/apperrors"
	"github.com/prasann/table-talks-sub000/pkg/llm"
	"github.com/prasann/table-talks-sub000/pkg/models"
	"github.com/prasann/table-talks-sub000/pkg/prompts"
	"github.com/prasann/table-talks-sub000/pkg/tools"
)

// StructuredOutputStrategy prompts a plain chat model for a JSON tool
// selection. It works with any chat endpoint, at the cost of having to
// repair the JSON the model emits.
type StructuredOutputStrategy struct {
	chat     llm.ChatClient
	registry *tools.Registry
	logger   *zap.Logger
}

// NewStructuredOutputStrategy creates the JSON-prompting strategy.
func NewStructuredOutputStrategy(chat llm.ChatClient, registry *tools.Registry, logger *zap.Logger) *StructuredOutputStrategy {
	return &StructuredOutputStrategy{
		chat:     chat,
		registry: registry,
		logger:   logger.Named("structured_output"),
	}
}

func (s *StructuredOutputStrategy) Name() models.StrategyKind {
	return models.StrategyStructuredOutput
}

// planPayload is the JSON shape the prompt requests.
type planPayload struct {
	Tool       string         `json:"tool"`
	Parameters map[string]any `json:"parameters"`
	Confidence float64        `json:"confidence"`
}

func (s *StructuredOutputStrategy) Parse(ctx context.Context, query string, availableFiles []string) (*models.Plan, error) {
	prompt := prompts.BuildStructuredOutputPrompt(query, s.registry.Definitions(), availableFiles)

	response, err := s.chat.GenerateResponse(ctx, prompt, "", 0)
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}

	payload, err := llm.ParseJSONResponse[planPayload](response)
	if err != nil {
		return nil, fmt.Errorf("no tool selection in response: %w", apperrors.ErrParse)
	}

	plan := &models.Plan{
		Intent:     query,
		ToolName:   payload.Tool,
		Parameters: payload.Parameters,
		Confidence: payload.Confidence,
		Strategy:   models.StrategyStructuredOutput,
	}
	if err := validatePlan(plan, s.registry); err != nil {
		return nil, err
	}
	normalizePlan(plan)

	s.logger.Debug("Parsed plan from structured output",
		zap.String("tool", plan.ToolName),
		zap.Float64("confidence", plan.Confidence))
	return plan, nil
}

var _ Strategy = (*StructuredOutputStrategy)(nil)
