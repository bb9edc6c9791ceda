// Package resolver turns natural-language questions into validated tool
// executions through a chain of parsing strategies. The chain ends in a
// deterministic keyword strategy, so resolution never fails outright.
package resolver

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/prasann/table-talks-sub000/pkg/apperrors"
	"github.com/prasann/table-talks-sub000/pkg/models"
	sqlutil "github.com/prasann/table-talks-sub000/pkg/sql"
	"github.com/prasann/table-talks-sub000/pkg/tools"
)

// Strategy parses a query into an executable plan. Parse failures are
// ordinary: the orchestrator moves on to the next strategy in the chain.
type Strategy interface {
	Name() models.StrategyKind
	Parse(ctx context.Context, query string, availableFiles []string) (*models.Plan, error)
}

// fileParamNames are the plan parameters that hold file names and get the
// default extension applied.
var fileParamNames = []string{"file_name", "file1", "file2"}

// defaultFileExtension is appended to extensionless file arguments. Models
// routinely drop the extension ("orders" for orders.csv); the store only
// knows full names.
const defaultFileExtension = ".csv"

// normalizePlan applies deterministic parameter fixes to a model-produced
// plan. This is the only place file-name normalization happens.
func normalizePlan(plan *models.Plan) {
	for _, name := range fileParamNames {
		value, ok := plan.Param(name)
		if !ok || value == "" {
			continue
		}
		if filepath.Ext(value) == "" {
			plan.Parameters[name] = value + defaultFileExtension
		}
	}
}

// validatePlan checks the plan against the registry. An unknown tool is a
// parse failure, not a terminal error. Model-supplied string parameters are
// screened for SQL injection patterns; the execute_sql statement is exempt
// here because it goes through its own read-only gate instead.
func validatePlan(plan *models.Plan, registry *tools.Registry) error {
	if plan.ToolName == "" {
		return fmt.Errorf("plan names no tool: %w", apperrors.ErrParse)
	}
	if !registry.Has(plan.ToolName) {
		return fmt.Errorf("plan names unregistered tool %q: %w", plan.ToolName, apperrors.ErrUnknownTool)
	}
	if plan.Parameters == nil {
		plan.Parameters = map[string]any{}
	}
	for _, flagged := range sqlutil.CheckAllParameters(plan.Parameters) {
		if plan.ToolName == "execute_sql" && flagged.ParamName == "sql" {
			continue
		}
		return fmt.Errorf("parameter %q carries an injection pattern (%s): %w",
			flagged.ParamName, flagged.Fingerprint, apperrors.ErrInvalidParameters)
	}
	return nil
}

// mentionedFiles returns the available files whose base name appears in the
// query, tolerating singular/plural mismatches ("order" finds orders.csv).
// Order follows availableFiles for determinism.
func mentionedFiles(query string, availableFiles []string) []string {
	lowered := strings.ToLower(query)

	var mentioned []string
	for _, file := range availableFiles {
		if fileMentioned(lowered, file) {
			mentioned = append(mentioned, file)
		}
	}
	return mentioned
}

func fileMentioned(loweredQuery, file string) bool {
	lowered := strings.ToLower(file)
	if strings.Contains(loweredQuery, lowered) {
		return true
	}
	stem := strings.TrimSuffix(lowered, filepath.Ext(lowered))
	for _, variant := range stemVariants(stem) {
		if strings.Contains(loweredQuery, variant) {
			return true
		}
	}
	return false
}
