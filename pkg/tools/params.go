package tools

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/prasann/table-talks-sub000/pkg/apperrors"
)

// stringParam extracts a required string parameter.
func stringParam(params map[string]any, name string) (string, error) {
	value, ok := params[name]
	if !ok {
		return "", fmt.Errorf("missing parameter %q: %w", name, apperrors.ErrInvalidParameters)
	}
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("parameter %q must be a string: %w", name, apperrors.ErrInvalidParameters)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("empty parameter %q: %w", name, apperrors.ErrInvalidParameters)
	}
	return s, nil
}

// floatParam extracts an optional numeric parameter, tolerating the string
// and integer encodings language models produce.
func floatParam(params map[string]any, name string, fallback float64) float64 {
	value, ok := params[name]
	if !ok {
		return fallback
	}
	switch v := value.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case string:
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return parsed
		}
	}
	return fallback
}

// intParam extracts an optional integer parameter with the same tolerance.
func intParam(params map[string]any, name string, fallback int) int {
	value, ok := params[name]
	if !ok {
		return fallback
	}
	switch v := value.(type) {
	case float64:
		return int(v)
	case int:
		return v
	case string:
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return parsed
		}
	}
	return fallback
}
