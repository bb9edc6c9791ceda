package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/prasann/table-talks-sub000/pkg/analysis"
	"github.com/prasann/table-talks-sub000/pkg/llm"
	"github.com/prasann/table-talks-sub000/pkg/models"
	"github.com/prasann/table-talks-sub000/pkg/repositories"
	"github.com/prasann/table-talks-sub000/pkg/semantic"
	sqlutil "github.com/prasann/table-talks-sub000/pkg/sql"
)

// SchemaToolDeps contains dependencies for the schema store tools.
type SchemaToolDeps struct {
	Store  repositories.SchemaStore
	Engine *semantic.Engine
	Logger *zap.Logger

	// SimilarityThreshold applies when a tool call omits its threshold.
	// Zero falls back to DefaultSimilarityThreshold.
	SimilarityThreshold float64
}

// DefaultSimilarityThreshold applies when no threshold is configured.
const DefaultSimilarityThreshold = 0.6

func (d *SchemaToolDeps) threshold() float64 {
	if d.SimilarityThreshold > 0 {
		return d.SimilarityThreshold
	}
	return DefaultSimilarityThreshold
}

// RegisterSchemaTools registers the schema exploration and analysis tools.
func RegisterSchemaTools(r *Registry, deps *SchemaToolDeps) {
	registerListFiles(r, deps)
	registerGetFileSchema(r, deps)
	registerFindColumns(r, deps)
	registerDetectTypeMismatches(r, deps)
	registerFindCommonColumns(r, deps)
	registerDatabaseSummary(r, deps)
	registerCompareSchemas(r, deps)
	registerFindSimilarSchemas(r, deps)
	registerSemanticSearch(r, deps)
	registerConceptGroups(r, deps)
	registerDetectNamingIssues(r, deps)
	registerDetectAbbreviations(r, deps)
	registerConceptTypeConsistency(r, deps)
}

func registerListFiles(r *Registry, deps *SchemaToolDeps) {
	def := llm.NewToolDefinition(
		"list_files",
		"List all scanned files with their column counts, row counts and sizes. Use this for questions like 'what files are there' or 'show me the data'.",
		nil, nil)

	r.Register(def, func(ctx context.Context, params map[string]any) (string, error) {
		files, err := deps.Store.ListFiles(ctx)
		if err != nil {
			return "", err
		}
		if len(files) == 0 {
			return "No files have been scanned yet.", nil
		}

		var b strings.Builder
		fmt.Fprintf(&b, "Found %d scanned file(s):\n", len(files))
		for _, f := range files {
			fmt.Fprintf(&b, "  - %s: %d columns, %d rows, %.2f MB\n",
				f.FileName, f.ColumnCount, f.TotalRows, f.FileSizeMB)
		}
		return b.String(), nil
	})
}

func registerGetFileSchema(r *Registry, deps *SchemaToolDeps) {
	def := llm.NewToolDefinition(
		"get_file_schema",
		"Show the full schema of one file: every column with its data type, null percentage and distinct count. Use for 'describe orders.csv' style questions.",
		map[string]llm.ParameterProperty{
			"file_name": {Type: "string", Description: "Name of the file, e.g. orders.csv"},
		},
		[]string{"file_name"})

	r.Register(def, func(ctx context.Context, params map[string]any) (string, error) {
		fileName, err := stringParam(params, "file_name")
		if err != nil {
			return "", err
		}

		cols, err := deps.Store.GetFileSchema(ctx, fileName)
		if err != nil {
			return "", err
		}

		var b strings.Builder
		fmt.Fprintf(&b, "Schema of %s (%d columns, %d rows):\n", fileName, len(cols), cols[0].TotalRows)
		for _, c := range cols {
			fmt.Fprintf(&b, "  - %s: %s (%.1f%% null, %d distinct)\n",
				c.ColumnName, c.DataType, c.NullPercentage(), c.UniqueCount)
		}
		return b.String(), nil
	})
}

func registerFindColumns(r *Registry, deps *SchemaToolDeps) {
	def := llm.NewToolDefinition(
		"find_columns",
		"Find every file containing a column whose name matches the given name or fragment. Use for 'which files have a customer_id column'.",
		map[string]llm.ParameterProperty{
			"column_name": {Type: "string", Description: "Column name or fragment to look for"},
		},
		[]string{"column_name"})

	r.Register(def, func(ctx context.Context, params map[string]any) (string, error) {
		columnName, err := stringParam(params, "column_name")
		if err != nil {
			return "", err
		}

		cols, err := deps.Store.FindColumns(ctx, columnName)
		if err != nil {
			return "", err
		}
		if len(cols) == 0 {
			return fmt.Sprintf("No columns matching %q found.", columnName), nil
		}

		var b strings.Builder
		fmt.Fprintf(&b, "Columns matching %q:\n", columnName)
		for _, c := range cols {
			fmt.Fprintf(&b, "  - %s.%s (%s)\n", c.FileName, c.ColumnName, c.DataType)
		}
		return b.String(), nil
	})
}

func registerDetectTypeMismatches(r *Registry, deps *SchemaToolDeps) {
	def := llm.NewToolDefinition(
		"detect_type_mismatches",
		"Find columns that appear with different data types in different files, e.g. user_id stored as integer in one file and string in another.",
		nil, nil)

	r.Register(def, func(ctx context.Context, params map[string]any) (string, error) {
		cols, err := deps.Store.AllColumns(ctx)
		if err != nil {
			return "", err
		}

		mismatches := analysis.DetectTypeMismatches(cols)
		if len(mismatches) == 0 {
			return "No type mismatches found. Every shared column uses a consistent type.", nil
		}

		names := make([]string, 0, len(mismatches))
		for name := range mismatches {
			names = append(names, name)
		}
		sort.Strings(names)

		var b strings.Builder
		fmt.Fprintf(&b, "Found %d column(s) with inconsistent types:\n", len(names))
		for _, name := range names {
			fmt.Fprintf(&b, "  %s:\n", name)
			for _, dataType := range sortedTypes(mismatches[name]) {
				fmt.Fprintf(&b, "    %s in %s\n", dataType, strings.Join(mismatches[name][dataType], ", "))
			}
		}
		return b.String(), nil
	})
}

func registerFindCommonColumns(r *Registry, deps *SchemaToolDeps) {
	def := llm.NewToolDefinition(
		"find_common_columns",
		"Find columns shared by multiple files. These are candidate join keys and relationships between files.",
		map[string]llm.ParameterProperty{
			"threshold": {Type: "number", Description: "Minimum number of files sharing the column (default 2)"},
		},
		nil)

	r.Register(def, func(ctx context.Context, params map[string]any) (string, error) {
		minFiles := intParam(params, "threshold", 2)

		cols, err := deps.Store.AllColumns(ctx)
		if err != nil {
			return "", err
		}

		common := analysis.FindCommonColumns(cols, minFiles)
		if len(common) == 0 {
			return "No columns are shared across files.", nil
		}

		var b strings.Builder
		fmt.Fprintf(&b, "Found %d shared column(s):\n", len(common))
		for _, c := range common {
			fmt.Fprintf(&b, "  - %s in %d files: %s\n", c.ColumnName, c.FileCount, strings.Join(c.Files, ", "))
		}
		return b.String(), nil
	})
}

func registerDatabaseSummary(r *Registry, deps *SchemaToolDeps) {
	def := llm.NewToolDefinition(
		"database_summary",
		"Summarize the whole store: how many files and columns were scanned, total rows and size, and the data type distribution.",
		nil, nil)

	r.Register(def, func(ctx context.Context, params map[string]any) (string, error) {
		cols, err := deps.Store.AllColumns(ctx)
		if err != nil {
			return "", err
		}

		summary := analysis.Summarize(cols)
		if summary.FileCount == 0 {
			return "The store is empty. No files have been scanned yet.", nil
		}

		var b strings.Builder
		fmt.Fprintf(&b, "Store summary: %d files, %d columns, %d total rows, %.2f MB.\n",
			summary.FileCount, summary.ColumnCount, summary.TotalRows, summary.TotalSizeMB)
		b.WriteString("Data types:\n")
		for _, dataType := range sortedTypes(summary.TypeCounts) {
			fmt.Fprintf(&b, "  - %s: %d columns\n", dataType, summary.TypeCounts[dataType])
		}
		if !summary.LastScanned.IsZero() {
			fmt.Fprintf(&b, "Last scanned: %s\n", summary.LastScanned.Format("2006-01-02 15:04:05"))
		}
		return b.String(), nil
	})
}

func registerCompareSchemas(r *Registry, deps *SchemaToolDeps) {
	def := llm.NewToolDefinition(
		"compare_schemas",
		"Compare the schemas of two files: shared columns, columns unique to each, type conflicts, and columns that differ in name but mean the same thing.",
		map[string]llm.ParameterProperty{
			"file1": {Type: "string", Description: "First file name"},
			"file2": {Type: "string", Description: "Second file name"},
		},
		[]string{"file1", "file2"})

	r.Register(def, func(ctx context.Context, params map[string]any) (string, error) {
		file1, err := stringParam(params, "file1")
		if err != nil {
			return "", err
		}
		file2, err := stringParam(params, "file2")
		if err != nil {
			return "", err
		}

		cols1, err := deps.Store.GetFileSchema(ctx, file1)
		if err != nil {
			return "", err
		}
		cols2, err := deps.Store.GetFileSchema(ctx, file2)
		if err != nil {
			return "", err
		}

		diff, err := analysis.DiffSchemas(ctx, deps.Engine, cols1, cols2, deps.threshold())
		if err != nil {
			return "", err
		}
		return formatDiff(diff), nil
	})
}

func registerFindSimilarSchemas(r *Registry, deps *SchemaToolDeps) {
	def := llm.NewToolDefinition(
		"find_similar_schemas",
		"Find pairs of files whose column sets overlap strongly. These are likely duplicates, exports of the same source, or versions of one dataset.",
		map[string]llm.ParameterProperty{
			"threshold": {Type: "number", Description: "Minimum column-set overlap from 0 to 1 (default 0.5)"},
		},
		nil)

	r.Register(def, func(ctx context.Context, params map[string]any) (string, error) {
		threshold := floatParam(params, "threshold", 0.5)

		cols, err := deps.Store.AllColumns(ctx)
		if err != nil {
			return "", err
		}

		pairs := analysis.FindSimilarSchemas(cols, threshold)
		if len(pairs) == 0 {
			return "No file pairs with strongly overlapping schemas found.", nil
		}

		var b strings.Builder
		fmt.Fprintf(&b, "Found %d similar file pair(s):\n", len(pairs))
		for _, p := range pairs {
			fmt.Fprintf(&b, "  - %s and %s (overlap %.2f): %s\n",
				p.File1, p.File2, p.Similarity, strings.Join(p.SharedColumns, ", "))
		}
		return b.String(), nil
	})
}

func registerSemanticSearch(r *Registry, deps *SchemaToolDeps) {
	def := llm.NewToolDefinition(
		"semantic_search",
		"Find columns related to a concept by meaning, not just name: searching 'customer' also finds client_id and buyer_name. Use for vague or conceptual column questions.",
		map[string]llm.ParameterProperty{
			"search_term": {Type: "string", Description: "Concept to search for, e.g. 'customer' or 'price'"},
			"threshold":   {Type: "number", Description: "Minimum similarity from 0 to 1 (default 0.6)"},
		},
		[]string{"search_term"})

	r.Register(def, func(ctx context.Context, params map[string]any) (string, error) {
		term, err := stringParam(params, "search_term")
		if err != nil {
			return "", err
		}
		threshold := floatParam(params, "threshold", deps.threshold())

		cols, err := deps.Store.AllColumns(ctx)
		if err != nil {
			return "", err
		}
		candidates := toCandidates(cols)

		var matches []semantic.Match
		degraded := false
		if deps.Engine.Available() {
			matches, err = deps.Engine.FindSimilar(ctx, term, candidates, threshold)
			if err != nil {
				deps.Logger.Warn("Semantic search degraded to substring matching", zap.Error(err))
				matches = semantic.SubstringFallback(term, candidates)
				degraded = true
			}
		} else {
			matches = semantic.SubstringFallback(term, candidates)
			degraded = true
		}

		if len(matches) == 0 {
			return fmt.Sprintf("No columns related to %q found.", term), nil
		}

		var b strings.Builder
		fmt.Fprintf(&b, "Columns related to %q:\n", term)
		for _, m := range matches {
			fmt.Fprintf(&b, "  - %s.%s (similarity %.2f, %s match)\n", m.FileName, m.ColumnName, m.Similarity, m.MatchType)
		}
		if degraded {
			b.WriteString("Note: embeddings unavailable, results are from substring matching only.\n")
		}
		return b.String(), nil
	})
}

func registerConceptGroups(r *Registry, deps *SchemaToolDeps) {
	def := llm.NewToolDefinition(
		"concept_groups",
		"Group all columns by the business concept they represent (identifier, money, timestamp, person, location and so on).",
		map[string]llm.ParameterProperty{
			"threshold": {Type: "number", Description: "Minimum similarity from 0 to 1 (default 0.6)"},
		},
		nil)

	r.Register(def, func(ctx context.Context, params map[string]any) (string, error) {
		threshold := floatParam(params, "threshold", deps.threshold())

		cols, err := deps.Store.AllColumns(ctx)
		if err != nil {
			return "", err
		}
		candidates := toCandidates(cols)

		groups := make(map[string][]semantic.Match)
		if deps.Engine.Available() {
			groups, err = deps.Engine.ConceptGroups(ctx, candidates, threshold)
			if err != nil {
				return "", err
			}
		} else {
			for _, c := range candidates {
				if concept := semantic.ConceptFor(c.ColumnName); concept != "" {
					groups[concept] = append(groups[concept], semantic.Match{
						ColumnName: c.ColumnName,
						FileName:   c.FileName,
						MatchType:  semantic.MatchTypePattern,
					})
				}
			}
		}

		if len(groups) == 0 {
			return "No concept groups found.", nil
		}

		concepts := make([]string, 0, len(groups))
		for concept := range groups {
			concepts = append(concepts, concept)
		}
		sort.Strings(concepts)

		var b strings.Builder
		fmt.Fprintf(&b, "Columns grouped into %d concept(s):\n", len(concepts))
		for _, concept := range concepts {
			fmt.Fprintf(&b, "  %s:\n", concept)
			for _, m := range groups[concept] {
				fmt.Fprintf(&b, "    - %s.%s\n", m.FileName, m.ColumnName)
			}
		}
		return b.String(), nil
	})
}

func registerDetectNamingIssues(r *Registry, deps *SchemaToolDeps) {
	def := llm.NewToolDefinition(
		"detect_naming_issues",
		"Find groups of columns that mean the same thing but are spelled differently across files, e.g. customer_id vs cust_id vs client_id, and suggest a canonical name.",
		map[string]llm.ParameterProperty{
			"threshold": {Type: "number", Description: "Minimum similarity from 0 to 1 (default 0.6)"},
		},
		nil)

	r.Register(def, func(ctx context.Context, params map[string]any) (string, error) {
		threshold := floatParam(params, "threshold", deps.threshold())

		cols, err := deps.Store.AllColumns(ctx)
		if err != nil {
			return "", err
		}

		issues, err := analysis.FindNamingInconsistencies(ctx, deps.Engine, cols, threshold)
		if err != nil {
			return "", err
		}
		if len(issues) == 0 {
			return "No naming inconsistencies found.", nil
		}

		var b strings.Builder
		fmt.Fprintf(&b, "Found %d naming inconsistencies:\n", len(issues))
		for _, issue := range issues {
			fmt.Fprintf(&b, "  - %s (in %s); suggest standardizing on %q\n",
				strings.Join(issue.Variants, " / "), strings.Join(issue.Files, ", "), issue.Suggestion)
		}
		return b.String(), nil
	})
}

func registerDetectAbbreviations(r *Registry, deps *SchemaToolDeps) {
	def := llm.NewToolDefinition(
		"detect_abbreviations",
		"Find column name pairs where one is an abbreviation of the other, e.g. qty vs quantity, and suggest using the long form.",
		map[string]llm.ParameterProperty{
			"threshold": {Type: "number", Description: "Minimum similarity from 0 to 1 (default 0.6)"},
		},
		nil)

	r.Register(def, func(ctx context.Context, params map[string]any) (string, error) {
		threshold := floatParam(params, "threshold", deps.threshold())

		cols, err := deps.Store.AllColumns(ctx)
		if err != nil {
			return "", err
		}

		issues, err := analysis.FindAbbreviations(ctx, deps.Engine, cols, threshold)
		if err != nil {
			return "", err
		}
		if len(issues) == 0 {
			return "No abbreviated column names found.", nil
		}

		var b strings.Builder
		fmt.Fprintf(&b, "Found %d abbreviation(s):\n", len(issues))
		for _, issue := range issues {
			fmt.Fprintf(&b, "  - %s abbreviates %s (in %s); prefer %q\n",
				issue.Short, issue.Long, strings.Join(issue.Files, ", "), issue.Long)
		}
		return b.String(), nil
	})
}

func registerConceptTypeConsistency(r *Registry, deps *SchemaToolDeps) {
	def := llm.NewToolDefinition(
		"concept_type_consistency",
		"Check whether columns representing the same concept agree on a data type, e.g. all identifier columns being integers.",
		nil, nil)

	r.Register(def, func(ctx context.Context, params map[string]any) (string, error) {
		cols, err := deps.Store.AllColumns(ctx)
		if err != nil {
			return "", err
		}

		issues := analysis.ConceptTypeIssues(cols)
		if len(issues) == 0 {
			return "All concepts use consistent data types.", nil
		}

		var b strings.Builder
		fmt.Fprintf(&b, "Found %d concept(s) with inconsistent types:\n", len(issues))
		for _, issue := range issues {
			fmt.Fprintf(&b, "  %s (suggest %s):\n", issue.Concept, issue.SuggestedType)
			for _, dataType := range sortedTypes(issue.Types) {
				fmt.Fprintf(&b, "    %s: %s\n", dataType, strings.Join(issue.Types[dataType], ", "))
			}
		}
		return b.String(), nil
	})
}

// RegisterSQLTool registers the raw query tool. It is registered only when
// SQL generation is enabled in configuration.
func RegisterSQLTool(r *Registry, deps *SchemaToolDeps) {
	def := llm.NewToolDefinition(
		"execute_sql",
		"Run a read-only SELECT query against the schema_columns metadata table. Only use when no other tool answers the question.",
		map[string]llm.ParameterProperty{
			"sql": {Type: "string", Description: "A single SELECT statement over schema_columns"},
		},
		[]string{"sql"})

	r.Register(def, func(ctx context.Context, params map[string]any) (string, error) {
		rawSQL, err := stringParam(params, "sql")
		if err != nil {
			return "", err
		}

		validated, err := sqlutil.ValidateReadOnly(sqlutil.CleanGeneratedSQL(rawSQL))
		if err != nil {
			return "", err
		}

		rows, err := deps.Store.RunReadOnlyQuery(ctx, validated)
		if err != nil {
			return "", err
		}
		return formatRows(rows), nil
	})
}

func toCandidates(cols []models.ColumnDescriptor) []semantic.Candidate {
	candidates := make([]semantic.Candidate, len(cols))
	for i, c := range cols {
		candidates[i] = semantic.Candidate{ColumnName: c.ColumnName, FileName: c.FileName}
	}
	return candidates
}

func sortedTypes[V any](m map[models.DataType]V) []models.DataType {
	types := make([]models.DataType, 0, len(m))
	for t := range m {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

func formatDiff(diff *analysis.SchemaDiff) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Comparison of %s and %s (similarity %.2f):\n", diff.File1, diff.File2, diff.Similarity)

	if len(diff.CommonColumns) > 0 {
		fmt.Fprintf(&b, "  Shared columns: %s\n", strings.Join(diff.CommonColumns, ", "))
	}
	if len(diff.OnlyInFile1) > 0 {
		fmt.Fprintf(&b, "  Only in %s: %s\n", diff.File1, strings.Join(diff.OnlyInFile1, ", "))
	}
	if len(diff.OnlyInFile2) > 0 {
		fmt.Fprintf(&b, "  Only in %s: %s\n", diff.File2, strings.Join(diff.OnlyInFile2, ", "))
	}
	for _, conflict := range diff.TypeConflicts {
		fmt.Fprintf(&b, "  Type conflict: %s is %s in %s but %s in %s\n",
			conflict.ColumnName, conflict.Type1, diff.File1, conflict.Type2, diff.File2)
	}
	for _, eq := range diff.SemanticEquivalents {
		fmt.Fprintf(&b, "  Equivalent: %s.%s matches %s.%s (similarity %.2f)\n",
			diff.File1, eq.Column1, diff.File2, eq.Column2, eq.Similarity)
	}
	return b.String()
}

func formatRows(rows []map[string]any) string {
	if len(rows) == 0 {
		return "Query returned no rows."
	}

	columns := make([]string, 0, len(rows[0]))
	for name := range rows[0] {
		columns = append(columns, name)
	}
	sort.Strings(columns)

	var b strings.Builder
	fmt.Fprintf(&b, "Query returned %d row(s):\n", len(rows))
	for _, row := range rows {
		parts := make([]string, 0, len(columns))
		for _, name := range columns {
			parts = append(parts, fmt.Sprintf("%s=%v", name, row[name]))
		}
		fmt.Fprintf(&b, "  %s\n", strings.Join(parts, ", "))
	}
	return b.String()
}
