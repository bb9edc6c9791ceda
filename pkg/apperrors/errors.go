package apperrors

import "errors"

var (
	ErrNotFound             = errors.New("not found")
	ErrParse                = errors.New("query parse failed")
	ErrUnknownTool          = errors.New("unknown tool")
	ErrInvalidParameters    = errors.New("invalid tool parameters")
	ErrToolExecution        = errors.New("tool execution failed")
	ErrEmbeddingUnavailable = errors.New("embedding provider unavailable")
)
