package resolver

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/prasann/table-talks-sub000/pkg/apperrors"
	"github.com/prasann/table-talks-sub000/pkg/llm"
	"github.com/prasann/table-talks-sub000/pkg/models"
	"github.com/prasann/table-talks-sub000/pkg/prompts"
	"github.com/prasann/table-talks-sub000/pkg/tools"
)

// FunctionCallingStrategy offers the tool catalog to a model with native
// tool-call support and takes the first call it makes.
type FunctionCallingStrategy struct {
	chat     llm.ChatClient
	registry *tools.Registry
	logger   *zap.Logger
}

// NewFunctionCallingStrategy creates the native tool-calling strategy.
func NewFunctionCallingStrategy(chat llm.ChatClient, registry *tools.Registry, logger *zap.Logger) *FunctionCallingStrategy {
	return &FunctionCallingStrategy{
		chat:     chat,
		registry: registry,
		logger:   logger.Named("function_calling"),
	}
}

func (s *FunctionCallingStrategy) Name() models.StrategyKind {
	return models.StrategyFunctionCalling
}

func (s *FunctionCallingStrategy) Parse(ctx context.Context, query string, availableFiles []string) (*models.Plan, error) {
	result, err := s.chat.GenerateWithTools(ctx, query, prompts.FunctionCallingSystemMessage, s.registry.Definitions(), 0)
	if err != nil {
		return nil, fmt.Errorf("tool-calling completion failed: %w", err)
	}
	if len(result.ToolCalls) == 0 {
		return nil, fmt.Errorf("model made no tool call: %w", apperrors.ErrParse)
	}

	// First call wins; the catalog is designed for single-tool answers.
	call := result.ToolCalls[0]

	params := map[string]any{}
	if call.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Arguments), &params); err != nil {
			repaired, repairErr := llm.RepairJSON(call.Arguments)
			if repairErr != nil {
				return nil, fmt.Errorf("unparseable tool arguments: %w", apperrors.ErrParse)
			}
			if err := json.Unmarshal([]byte(repaired), &params); err != nil {
				return nil, fmt.Errorf("unparseable tool arguments after repair: %w", apperrors.ErrParse)
			}
		}
	}

	plan := &models.Plan{
		Intent:     query,
		ToolName:   call.Name,
		Parameters: params,
		Confidence: 0.9,
		Strategy:   models.StrategyFunctionCalling,
	}
	if err := validatePlan(plan, s.registry); err != nil {
		return nil, err
	}
	normalizePlan(plan)

	s.logger.Debug("Parsed plan from tool call",
		zap.String("tool", plan.ToolName),
		zap.Int("param_count", len(plan.Parameters)))
	return plan, nil
}

var _ Strategy = (*FunctionCallingStrategy)(nil)
