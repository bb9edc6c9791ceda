package models

// StrategyKind identifies which parsing strategy produced a plan.
type StrategyKind string

const (
	StrategyFunctionCalling  StrategyKind = "function_calling"
	StrategyStructuredOutput StrategyKind = "structured_output"
	StrategySQLGeneration    StrategyKind = "sql_generation"
	StrategyPatternMatching  StrategyKind = "pattern_matching"
)

// Plan is the normalized outcome of parsing a natural-language query: which
// tool to run and with what parameters. A plan must name a registered tool
// before it is executed.
type Plan struct {
	// Intent is the interpreted user intent, for logging and synthesis.
	Intent string `json:"intent"`

	// ToolName is the registered tool to execute.
	ToolName string `json:"tool_name"`

	// Parameters are the tool arguments keyed by parameter name.
	Parameters map[string]any `json:"parameters"`

	// Confidence is advisory only. It is logged and reported but never used
	// to gate execution.
	Confidence float64 `json:"confidence"`

	// Strategy records which parser produced this plan.
	Strategy StrategyKind `json:"strategy"`

	// IsFallback is true when the plan came from the terminal keyword table
	// rather than a model.
	IsFallback bool `json:"is_fallback"`
}

// Param returns a string parameter, with ok=false when absent or not a string.
func (p *Plan) Param(name string) (string, bool) {
	v, ok := p.Parameters[name]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// FloatParam returns a numeric parameter, accepting both float64 (JSON
// numbers) and int values.
func (p *Plan) FloatParam(name string) (float64, bool) {
	v, ok := p.Parameters[name]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
