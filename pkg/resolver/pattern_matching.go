package resolver

import (
	"context"
	"regexp"
	"strings"

	"github.com/jinzhu/inflection"
	"go.uber.org/zap"

	"github.com/prasann/table-talks-sub000/pkg/models"
)

// PatternMatchingStrategy is the deterministic terminal fallback. It always
// produces a plan for a registered tool, so the resolution chain can never
// come up empty-handed.
type PatternMatchingStrategy struct {
	logger *zap.Logger
}

// NewPatternMatchingStrategy creates the keyword fallback strategy.
func NewPatternMatchingStrategy(logger *zap.Logger) *PatternMatchingStrategy {
	return &PatternMatchingStrategy{logger: logger.Named("pattern_matching")}
}

func (s *PatternMatchingStrategy) Name() models.StrategyKind {
	return models.StrategyPatternMatching
}

// keywordRule maps query keywords to a tool. Rules are checked in order and
// the first hit wins, so more specific rules come first.
type keywordRule struct {
	keywords []string
	tool     string
}

// keywordTable is the canonical keyword-to-tool mapping. Any rewording of a
// keyword belongs here, not in a second table elsewhere.
var keywordTable = []keywordRule{
	{[]string{"type mismatch", "type conflict", "inconsistent type", "different type", "wrong type"}, "detect_type_mismatches"},
	{[]string{"abbreviat", "shortened", "short name"}, "detect_abbreviations"},
	{[]string{"naming", "name issue", "name inconsisten", "badly named", "inconsistent name"}, "detect_naming_issues"},
	{[]string{"concept type", "type per concept"}, "concept_type_consistency"},
	{[]string{"concept", "group the column", "group columns", "categorize"}, "concept_groups"},
	{[]string{"common column", "shared", "join", "relationship", "link between", "connect"}, "find_common_columns"},
	{[]string{"compare", "diff", " versus ", " vs "}, "compare_schemas"},
	{[]string{"similar schema", "similar file", "similar structure", "duplicate", "overlap"}, "find_similar_schemas"},
	{[]string{"related to", "similar to", "columns like", "semantic", "meaning"}, "semantic_search"},
	{[]string{"which files have", "which file has", "files with", "contain the column", "has a column", "have a column", "find column"}, "find_columns"},
	{[]string{"schema", "describe", "structure", "columns in", "columns of", "what columns"}, "get_file_schema"},
	{[]string{"summary", "overview", "how many", "how much", "total", "statistics"}, "database_summary"},
	{[]string{"list", "what files", "which files", "show me the files", "available"}, "list_files"},
}

// searchTermPattern pulls the object out of "columns related to X" phrasings.
var searchTermPattern = regexp.MustCompile(`(?:related to|similar to|columns like|about)\s+["']?([a-zA-Z_][a-zA-Z0-9_ ]*?)["']?(?:\?|$| in | across )`)

// columnTokenPattern finds an explicit column-ish token such as customer_id.
var columnTokenPattern = regexp.MustCompile(`\b([a-z][a-z0-9]*_[a-z0-9_]+)\b`)

// Parse is total: every query maps to some plan. The default is the store
// overview, which is a sensible answer to a question nothing else matched.
func (s *PatternMatchingStrategy) Parse(ctx context.Context, query string, availableFiles []string) (*models.Plan, error) {
	lowered := strings.ToLower(strings.TrimSpace(query))
	mentioned := mentionedFiles(lowered, availableFiles)

	tool := "database_summary"
	for _, rule := range keywordTable {
		if matchesAny(lowered, rule.keywords) {
			tool = rule.tool
			break
		}
	}

	// A query that only names files is a schema question about them.
	if tool == "database_summary" && len(mentioned) > 0 {
		tool = "get_file_schema"
	}

	plan := &models.Plan{
		Intent:     query,
		ToolName:   tool,
		Parameters: map[string]any{},
		Confidence: 0.3,
		Strategy:   models.StrategyPatternMatching,
		IsFallback: true,
	}
	s.fillParameters(plan, lowered, mentioned)

	s.logger.Debug("Matched query by keyword",
		zap.String("tool", plan.ToolName),
		zap.Int("files_mentioned", len(mentioned)))
	return plan, nil
}

// fillParameters derives required parameters from the query, degrading the
// tool choice when they cannot be derived rather than failing.
func (s *PatternMatchingStrategy) fillParameters(plan *models.Plan, lowered string, mentioned []string) {
	switch plan.ToolName {
	case "compare_schemas":
		if len(mentioned) >= 2 {
			plan.Parameters["file1"] = mentioned[0]
			plan.Parameters["file2"] = mentioned[1]
			return
		}
		// Not enough files named to compare; overlap analysis still helps.
		plan.ToolName = "find_common_columns"

	case "get_file_schema":
		if len(mentioned) > 0 {
			plan.Parameters["file_name"] = mentioned[0]
			return
		}
		plan.ToolName = "list_files"

	case "semantic_search":
		if term := extractSearchTerm(lowered); term != "" {
			plan.Parameters["search_term"] = term
			return
		}
		plan.ToolName = "concept_groups"

	case "find_columns":
		if token := columnTokenPattern.FindString(lowered); token != "" {
			plan.Parameters["column_name"] = token
			return
		}
		if term := extractSearchTerm(lowered); term != "" {
			plan.Parameters["column_name"] = term
			return
		}
		plan.ToolName = "find_common_columns"
	}
}

func extractSearchTerm(lowered string) string {
	if m := searchTermPattern.FindStringSubmatch(lowered); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

func matchesAny(lowered string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}

// stemVariants returns the name forms a user might use for a file stem:
// the stem itself plus its singular and plural inflections, so "order"
// matches orders.csv.
func stemVariants(stem string) []string {
	variants := []string{stem}
	if singular := inflection.Singular(stem); singular != stem {
		variants = append(variants, singular)
	}
	if plural := inflection.Plural(stem); plural != stem {
		variants = append(variants, plural)
	}
	return variants
}

var _ Strategy = (*PatternMatchingStrategy)(nil)
