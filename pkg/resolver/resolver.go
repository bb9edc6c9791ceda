package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/prasann/table-talks-sub000/pkg/apperrors"
	"github.com/prasann/table-talks-sub000/pkg/llm"
	"github.com/prasann/table-talks-sub000/pkg/logging"
	"github.com/prasann/table-talks-sub000/pkg/models"
	"github.com/prasann/table-talks-sub000/pkg/prompts"
	"github.com/prasann/table-talks-sub000/pkg/tools"
)

// Config holds the orchestrator's tunables.
type Config struct {
	// LLMTimeout bounds every model round-trip. A timed-out strategy is a
	// parse failure, not a fault.
	LLMTimeout time.Duration

	// MaxSQLRetries bounds sequential SQL regeneration after a failed
	// execution.
	MaxSQLRetries int

	// Synthesize rewrites tool output through the model when true. Failures
	// degrade to the raw tool text.
	Synthesize bool
}

// Result is the outcome of one resolved query.
type Result struct {
	ResolutionID string
	Answer       string
	Plan         *models.Plan
}

// Resolver drives a query through the strategy chain until a plan executes.
// The chain always ends with the total pattern-matching strategy, so every
// query produces an answer or, at worst, a short failure message.
type Resolver struct {
	registry    *tools.Registry
	chat        llm.ChatClient
	strategies  []Strategy
	sqlStrategy *SQLGenerationStrategy
	cfg         Config
	logger      *zap.Logger
}

// New assembles the strategy chain. A nil chat client skips both LLM
// strategies; functionCalling selects the native tool-call path when the
// configured model supports it. A nil sqlStrategy disables the SQL path.
func New(chat llm.ChatClient, registry *tools.Registry, sqlStrategy *SQLGenerationStrategy, functionCalling bool, cfg Config, logger *zap.Logger) *Resolver {
	logger = logger.Named("resolver")

	var strategies []Strategy
	if chat != nil && functionCalling {
		strategies = append(strategies, NewFunctionCallingStrategy(chat, registry, logger))
	}
	if chat != nil {
		strategies = append(strategies, NewStructuredOutputStrategy(chat, registry, logger))
	}
	if sqlStrategy != nil {
		strategies = append(strategies, sqlStrategy)
	}
	strategies = append(strategies, NewPatternMatchingStrategy(logger))

	if cfg.LLMTimeout <= 0 {
		cfg.LLMTimeout = 30 * time.Second
	}

	return &Resolver{
		registry:    registry,
		chat:        chat,
		strategies:  strategies,
		sqlStrategy: sqlStrategy,
		cfg:         cfg,
		logger:      logger,
	}
}

// ResolveAndExecute runs the query through the chain and executes the first
// plan that both parses and executes. The returned Result always carries an
// answer; the error reports why resolution degraded when even the terminal
// strategy's plan failed to execute.
func (r *Resolver) ResolveAndExecute(ctx context.Context, query string, availableFiles []string) (*Result, error) {
	resolutionID := uuid.NewString()
	log := r.logger.With(zap.String("resolution_id", resolutionID))
	log.Info("Resolving query", zap.String("query", logging.SanitizeQuery(query)))

	var lastErr error
	for _, strategy := range r.strategies {
		plan, err := r.parseWith(ctx, strategy, query, availableFiles)
		if err != nil {
			log.Debug("Strategy could not parse, falling back",
				zap.String("strategy", string(strategy.Name())),
				zap.Error(err))
			lastErr = err
			continue
		}

		answer, err := r.execute(ctx, log, strategy, plan, query, availableFiles)
		if err != nil {
			log.Warn("Plan execution failed, falling back",
				zap.String("strategy", string(strategy.Name())),
				zap.String("tool", plan.ToolName),
				zap.Error(err))
			lastErr = err
			continue
		}

		log.Info("Query resolved",
			zap.String("strategy", string(strategy.Name())),
			zap.String("tool", plan.ToolName),
			zap.Float64("confidence", plan.Confidence),
			zap.Bool("is_fallback", plan.IsFallback))

		return &Result{
			ResolutionID: resolutionID,
			Answer:       r.synthesize(ctx, query, answer),
			Plan:         plan,
		}, nil
	}

	// Only reachable when the terminal plan's tool execution failed, e.g.
	// the schema store is unreachable.
	return &Result{
		ResolutionID: resolutionID,
		Answer:       friendlyFailure(lastErr),
	}, lastErr
}

// parseWith bounds LLM-backed parsing with the configured timeout. The
// terminal strategy is purely local and runs unbounded.
func (r *Resolver) parseWith(ctx context.Context, strategy Strategy, query string, availableFiles []string) (*models.Plan, error) {
	if strategy.Name() == models.StrategyPatternMatching {
		return strategy.Parse(ctx, query, availableFiles)
	}
	timeoutCtx, cancel := context.WithTimeout(ctx, r.cfg.LLMTimeout)
	defer cancel()
	return strategy.Parse(timeoutCtx, query, availableFiles)
}

// execute runs the plan. SQL plans get the sequential regeneration loop:
// each retry sees the previous attempt's failure.
func (r *Resolver) execute(ctx context.Context, log *zap.Logger, strategy Strategy, plan *models.Plan, query string, availableFiles []string) (string, error) {
	answer, err := r.registry.Execute(ctx, plan.ToolName, plan.Parameters)
	if err == nil {
		return answer, nil
	}

	if strategy.Name() != models.StrategySQLGeneration || r.sqlStrategy == nil {
		return "", err
	}

	for attempt := 1; attempt <= r.cfg.MaxSQLRetries; attempt++ {
		failedSQL, _ := plan.Param("sql")
		log.Debug("Regenerating SQL after failure",
			zap.Int("attempt", attempt),
			zap.Error(err))

		retryCtx, cancel := context.WithTimeout(ctx, r.cfg.LLMTimeout)
		retryPlan, retryErr := r.sqlStrategy.Reparse(retryCtx, query, failedSQL, err.Error())
		cancel()
		if retryErr != nil {
			return "", retryErr
		}

		plan = retryPlan
		answer, err = r.registry.Execute(ctx, plan.ToolName, plan.Parameters)
		if err == nil {
			return answer, nil
		}
	}
	return "", err
}

// synthesize optionally rewrites the tool output as a conversational answer,
// degrading to the raw text when the model call fails or times out.
func (r *Resolver) synthesize(ctx context.Context, query, answer string) string {
	if !r.cfg.Synthesize || r.chat == nil {
		return answer
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, r.cfg.LLMTimeout)
	defer cancel()

	rewritten, err := r.chat.GenerateResponse(timeoutCtx, prompts.BuildSynthesisPrompt(query, answer), prompts.SynthesisSystemMessage, 0.3)
	if err != nil || strings.TrimSpace(rewritten) == "" {
		r.logger.Debug("Synthesis degraded to raw tool output", zap.Error(err))
		return answer
	}
	return rewritten
}

// friendlyFailure maps an error to a short user-facing message with a
// suggestion.
func friendlyFailure(err error) string {
	switch {
	case err == nil:
		return "Something went wrong answering that. Please try rephrasing the question."
	case errors.Is(err, apperrors.ErrNotFound):
		return "I couldn't find that file. Ask \"what files are there?\" to see what has been scanned."
	case errors.Is(err, context.DeadlineExceeded):
		return "The model took too long to respond. Check that the inference endpoint is reachable."
	case errors.Is(err, apperrors.ErrToolExecution):
		return "The analysis failed to run. Check that the schema store is reachable."
	default:
		return "Something went wrong answering that. Please try rephrasing the question."
	}
}

// HelpText lists what the resolver can answer.
func (r *Resolver) HelpText() string {
	var b strings.Builder
	b.WriteString("Ask questions about your scanned files in plain language. Things I can do:\n")
	for _, def := range r.registry.Definitions() {
		fmt.Fprintf(&b, "  - %s: %s\n", def.Name, def.Description)
	}
	b.WriteString("\nExamples:\n")
	b.WriteString("  - what files are there?\n")
	b.WriteString("  - describe orders.csv\n")
	b.WriteString("  - which files have a customer_id column?\n")
	b.WriteString("  - detect type mismatches\n")
	b.WriteString("  - compare orders.csv and customers.csv\n")
	return b.String()
}

// Status reports the active configuration of the resolution chain.
func (r *Resolver) Status() string {
	var b strings.Builder
	b.WriteString("Resolution chain:\n")
	for i, strategy := range r.strategies {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, strategy.Name())
	}
	if r.chat != nil {
		fmt.Fprintf(&b, "Model: %s at %s\n", r.chat.GetModel(), r.chat.GetEndpoint())
	} else {
		b.WriteString("Model: none (keyword matching only)\n")
	}
	fmt.Fprintf(&b, "Tools registered: %d\n", len(r.registry.Names()))
	return b.String()
}
