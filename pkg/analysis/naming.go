package analysis

import (
	"context"
	"sort"
	"strings"

	"github.com/prasann/table-talks-sub000/pkg/models"
	"github.com/prasann/table-talks-sub000/pkg/semantic"
)

// NamingIssue is a cluster of differently spelled names for the same thing.
type NamingIssue struct {
	Variants   []string `json:"variants"`
	Files      []string `json:"files"`
	Suggestion string   `json:"suggestion"`
}

// FindNamingInconsistencies clusters distinct column names by semantic
// similarity and reports clusters containing more than one spelling. The
// suggestion prefers the shortest variant ending in "_id" for identifier
// clusters, otherwise the shortest variant. Without embeddings, names are
// clustered by their normalized form (case and separators stripped).
func FindNamingInconsistencies(ctx context.Context, engine *semantic.Engine, cols []models.ColumnDescriptor, threshold float64) ([]NamingIssue, error) {
	filesByName := make(map[string]map[string]bool)
	for _, c := range cols {
		if filesByName[c.ColumnName] == nil {
			filesByName[c.ColumnName] = make(map[string]bool)
		}
		filesByName[c.ColumnName][c.FileName] = true
	}

	names := make([]string, 0, len(filesByName))
	for name := range filesByName {
		names = append(names, name)
	}
	sort.Strings(names)
	if len(names) < 2 {
		return nil, nil
	}

	parent := make([]int, len(names))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[rb] = ra
		}
	}

	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			alike, err := namesAlike(ctx, engine, names[i], names[j], threshold)
			if err != nil {
				return nil, err
			}
			if alike {
				union(i, j)
			}
		}
	}

	clusters := make(map[int][]string)
	for i, name := range names {
		root := find(i)
		clusters[root] = append(clusters[root], name)
	}

	var issues []NamingIssue
	for _, variants := range clusters {
		if len(variants) < 2 {
			continue
		}
		sort.Strings(variants)

		fileSet := make(map[string]bool)
		for _, v := range variants {
			for f := range filesByName[v] {
				fileSet[f] = true
			}
		}
		files := make([]string, 0, len(fileSet))
		for f := range fileSet {
			files = append(files, f)
		}
		sort.Strings(files)

		issues = append(issues, NamingIssue{
			Variants:   variants,
			Files:      files,
			Suggestion: suggestCanonical(variants),
		})
	}

	sort.Slice(issues, func(i, j int) bool {
		return issues[i].Variants[0] < issues[j].Variants[0]
	})
	return issues, nil
}

// namesAlike decides whether two column names belong to the same cluster.
func namesAlike(ctx context.Context, engine *semantic.Engine, a, b string, threshold float64) (bool, error) {
	if normalizeName(a) == normalizeName(b) {
		return true, nil
	}
	if !engine.Available() {
		return false, nil
	}
	sim, err := engine.Similarity(ctx, a, b)
	if err != nil {
		return false, err
	}
	return sim >= threshold, nil
}

// suggestCanonical picks the canonical spelling for a cluster of variants.
func suggestCanonical(variants []string) string {
	var idVariants []string
	for _, v := range variants {
		if strings.HasSuffix(strings.ToLower(v), "_id") {
			idVariants = append(idVariants, v)
		}
	}
	pool := variants
	if len(idVariants) > 0 && semantic.ConceptFor(variants[0]) == "identifier" {
		pool = idVariants
	}

	shortest := pool[0]
	for _, v := range pool[1:] {
		if len(v) < len(shortest) {
			shortest = v
		}
	}
	return shortest
}

func normalizeName(name string) string {
	lower := strings.ToLower(name)
	lower = strings.ReplaceAll(lower, "_", "")
	return strings.ReplaceAll(lower, "-", "")
}

// AbbreviationIssue flags a pair where one name abbreviates the other.
type AbbreviationIssue struct {
	Short      string   `json:"short"`
	Long       string   `json:"long"`
	Files      []string `json:"files"`
	Similarity float64  `json:"similarity"`
}

// minAbbreviationGap is the length difference that separates an
// abbreviation pair from mere spelling variants.
const minAbbreviationGap = 3

// FindAbbreviations reports name pairs that mean the same thing but differ
// in length by at least minAbbreviationGap, suggesting the long form.
// Without embeddings, prefix containment is used instead.
func FindAbbreviations(ctx context.Context, engine *semantic.Engine, cols []models.ColumnDescriptor, threshold float64) ([]AbbreviationIssue, error) {
	filesByName := make(map[string]map[string]bool)
	for _, c := range cols {
		if filesByName[c.ColumnName] == nil {
			filesByName[c.ColumnName] = make(map[string]bool)
		}
		filesByName[c.ColumnName][c.FileName] = true
	}

	names := make([]string, 0, len(filesByName))
	for name := range filesByName {
		names = append(names, name)
	}
	sort.Strings(names)

	var issues []AbbreviationIssue
	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			short, long := names[i], names[j]
			if len(short) > len(long) {
				short, long = long, short
			}
			if len(long)-len(short) < minAbbreviationGap {
				continue
			}

			var sim float64
			if engine.Available() {
				s, err := engine.Similarity(ctx, short, long)
				if err != nil {
					return nil, err
				}
				if s < threshold {
					continue
				}
				sim = s
			} else {
				if !abbreviates(short, long) {
					continue
				}
				sim = 0.5
			}

			fileSet := make(map[string]bool)
			for f := range filesByName[short] {
				fileSet[f] = true
			}
			for f := range filesByName[long] {
				fileSet[f] = true
			}
			files := make([]string, 0, len(fileSet))
			for f := range fileSet {
				files = append(files, f)
			}
			sort.Strings(files)

			issues = append(issues, AbbreviationIssue{
				Short:      short,
				Long:       long,
				Files:      files,
				Similarity: sim,
			})
		}
	}

	sort.SliceStable(issues, func(i, j int) bool {
		return issues[i].Similarity > issues[j].Similarity
	})
	return issues, nil
}

// abbreviates checks token by token whether the short name contracts the
// long one: "cust_id" abbreviates "customer_id", "qty" abbreviates
// "quantity". Each short token must start the long token and appear in it
// as an in-order subsequence.
func abbreviates(short, long string) bool {
	shortTokens := strings.Split(strings.ToLower(short), "_")
	longTokens := strings.Split(strings.ToLower(long), "_")
	if len(shortTokens) != len(longTokens) {
		return false
	}
	for i := range shortTokens {
		if !isSubsequence(shortTokens[i], longTokens[i]) {
			return false
		}
	}
	return true
}

// isSubsequence reports whether all of short's characters appear in long in
// order, anchored at the first character.
func isSubsequence(short, long string) bool {
	if short == "" || long == "" || short[0] != long[0] {
		return false
	}
	j := 0
	for i := 0; i < len(long) && j < len(short); i++ {
		if long[i] == short[j] {
			j++
		}
	}
	return j == len(short)
}

// ConceptTypeIssue flags a concept whose columns disagree on data type.
type ConceptTypeIssue struct {
	Concept       string                       `json:"concept"`
	Types         map[models.DataType][]string `json:"types"` // type -> "file.column"
	SuggestedType models.DataType              `json:"suggested_type"`
}

// ConceptTypeIssues groups columns by keyword-inferred concept and flags
// concepts spanning more than one data type. The majority type is suggested;
// ties break toward the lexicographically smaller type for determinism.
func ConceptTypeIssues(cols []models.ColumnDescriptor) []ConceptTypeIssue {
	byConcept := make(map[string]map[models.DataType][]string)
	for _, c := range cols {
		concept := semantic.ConceptFor(c.ColumnName)
		if concept == "" {
			continue
		}
		if byConcept[concept] == nil {
			byConcept[concept] = make(map[models.DataType][]string)
		}
		byConcept[concept][c.DataType] = append(byConcept[concept][c.DataType], c.FileName+"."+c.ColumnName)
	}

	var issues []ConceptTypeIssue
	for concept, types := range byConcept {
		if len(types) < 2 {
			continue
		}

		var suggested models.DataType
		best := -1
		for dataType, members := range types {
			sort.Strings(members)
			types[dataType] = members
			if len(members) > best || (len(members) == best && dataType < suggested) {
				best = len(members)
				suggested = dataType
			}
		}

		issues = append(issues, ConceptTypeIssue{
			Concept:       concept,
			Types:         types,
			SuggestedType: suggested,
		})
	}

	sort.Slice(issues, func(i, j int) bool {
		return issues[i].Concept < issues[j].Concept
	})
	return issues
}
