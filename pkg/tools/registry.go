// Package tools exposes the schema store as a catalog of named operations
// that the resolver can plan against and execute.
package tools

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/prasann/table-talks-sub000/pkg/apperrors"
	"github.com/prasann/table-talks-sub000/pkg/llm"
)

// Handler executes one tool call and returns a human-readable result.
type Handler func(ctx context.Context, params map[string]any) (string, error)

// Registry maps tool names to definitions and handlers. All registration
// happens at startup; lookups after that are read-only.
type Registry struct {
	tools  map[string]registeredTool
	order  []string
	logger *zap.Logger
}

type registeredTool struct {
	definition llm.ToolDefinition
	handler    Handler
}

// NewRegistry creates an empty tool registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		tools:  make(map[string]registeredTool),
		logger: logger.Named("tools"),
	}
}

// Register adds a tool. Registration is idempotent: re-registering a name
// keeps the first definition and handler, so repeated startup wiring is
// absorbed rather than crashing.
func (r *Registry) Register(def llm.ToolDefinition, handler Handler) {
	if _, exists := r.tools[def.Name]; exists {
		r.logger.Debug("Tool already registered, keeping first", zap.String("tool", def.Name))
		return
	}
	r.tools[def.Name] = registeredTool{definition: def, handler: handler}
	r.order = append(r.order, def.Name)
}

// Has reports whether a tool with the given name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.tools[name]
	return ok
}

// Definitions returns all tool definitions in registration order.
func (r *Registry) Definitions() []llm.ToolDefinition {
	defs := make([]llm.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].definition)
	}
	return defs
}

// Names returns all registered tool names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Execute validates required parameters and runs the named tool.
func (r *Registry) Execute(ctx context.Context, name string, params map[string]any) (string, error) {
	tool, ok := r.tools[name]
	if !ok {
		return "", fmt.Errorf("tool %q: %w", name, apperrors.ErrUnknownTool)
	}

	if err := checkRequired(tool.definition, params); err != nil {
		return "", err
	}

	r.logger.Debug("Executing tool",
		zap.String("tool", name),
		zap.Int("param_count", len(params)))

	result, err := tool.handler(ctx, params)
	if err != nil {
		return "", fmt.Errorf("tool %q: %w: %w", name, apperrors.ErrToolExecution, err)
	}
	return result, nil
}

// checkRequired verifies every required parameter is present and non-empty.
func checkRequired(def llm.ToolDefinition, params map[string]any) error {
	required, ok := def.Parameters["required"].([]string)
	if !ok {
		return nil
	}
	for _, name := range required {
		value, present := params[name]
		if !present {
			return fmt.Errorf("missing parameter %q: %w", name, apperrors.ErrInvalidParameters)
		}
		if s, isString := value.(string); isString && s == "" {
			return fmt.Errorf("empty parameter %q: %w", name, apperrors.ErrInvalidParameters)
		}
	}
	return nil
}
