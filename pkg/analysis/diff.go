package analysis

import (
	"context"
	"sort"

	"github.com/prasann/table-talks-sub000/pkg/models"
	"github.com/prasann/table-talks-sub000/pkg/semantic"
)

// TypeConflict is a shared column whose type differs between two files.
type TypeConflict struct {
	ColumnName string          `json:"column_name"`
	Type1      models.DataType `json:"type1"`
	Type2      models.DataType `json:"type2"`
}

// SemanticEquivalent pairs two differently named columns that mean the same
// thing.
type SemanticEquivalent struct {
	Column1    string  `json:"column1"`
	Column2    string  `json:"column2"`
	Similarity float64 `json:"similarity"`
}

// SchemaDiff is the full comparison of two file schemas.
type SchemaDiff struct {
	File1               string               `json:"file1"`
	File2               string               `json:"file2"`
	CommonColumns       []string             `json:"common_columns"`
	OnlyInFile1         []string             `json:"only_in_file1"`
	OnlyInFile2         []string             `json:"only_in_file2"`
	TypeConflicts       []TypeConflict       `json:"type_conflicts"`
	SemanticEquivalents []SemanticEquivalent `json:"semantic_equivalents"`
	Similarity          float64              `json:"similarity"`
}

// DiffSchemas partitions two schemas into common and unique columns, flags
// type conflicts among the common ones, and pairs up unique columns that are
// semantic equivalents so they are not reported as missing. Similarity is
// (common + equivalents) / union. An unavailable engine skips equivalence
// matching; the literal diff still succeeds.
func DiffSchemas(ctx context.Context, engine *semantic.Engine, cols1, cols2 []models.ColumnDescriptor, threshold float64) (*SchemaDiff, error) {
	diff := &SchemaDiff{}
	if len(cols1) > 0 {
		diff.File1 = cols1[0].FileName
	}
	if len(cols2) > 0 {
		diff.File2 = cols2[0].FileName
	}

	types1 := make(map[string]models.DataType, len(cols1))
	for _, c := range cols1 {
		types1[c.ColumnName] = c.DataType
	}
	types2 := make(map[string]models.DataType, len(cols2))
	for _, c := range cols2 {
		types2[c.ColumnName] = c.DataType
	}

	for name, t1 := range types1 {
		if t2, ok := types2[name]; ok {
			diff.CommonColumns = append(diff.CommonColumns, name)
			if t1 != t2 {
				diff.TypeConflicts = append(diff.TypeConflicts, TypeConflict{
					ColumnName: name,
					Type1:      t1,
					Type2:      t2,
				})
			}
		} else {
			diff.OnlyInFile1 = append(diff.OnlyInFile1, name)
		}
	}
	for name := range types2 {
		if _, ok := types1[name]; !ok {
			diff.OnlyInFile2 = append(diff.OnlyInFile2, name)
		}
	}

	sort.Strings(diff.CommonColumns)
	sort.Strings(diff.OnlyInFile1)
	sort.Strings(diff.OnlyInFile2)
	sort.Slice(diff.TypeConflicts, func(i, j int) bool {
		return diff.TypeConflicts[i].ColumnName < diff.TypeConflicts[j].ColumnName
	})

	if engine.Available() && len(diff.OnlyInFile1) > 0 && len(diff.OnlyInFile2) > 0 {
		if err := matchEquivalents(ctx, engine, diff, threshold); err != nil {
			return nil, err
		}
	}

	// Each equivalent pair contributes two names to the union but counts as
	// one match, mirroring how a common column counts.
	union := len(diff.CommonColumns) + len(diff.OnlyInFile1) + len(diff.OnlyInFile2) + len(diff.SemanticEquivalents)*2
	if union > 0 {
		matched := len(diff.CommonColumns) + len(diff.SemanticEquivalents)
		diff.Similarity = float64(matched) / float64(union)
	}

	return diff, nil
}

// matchEquivalents greedily pairs unique columns of file1 with their best
// match among file2's unique columns, removing matched names from both
// missing lists.
func matchEquivalents(ctx context.Context, engine *semantic.Engine, diff *SchemaDiff, threshold float64) error {
	candidates := make([]semantic.Candidate, len(diff.OnlyInFile2))
	for i, name := range diff.OnlyInFile2 {
		candidates[i] = semantic.Candidate{ColumnName: name, FileName: diff.File2}
	}

	taken := make(map[string]bool)
	var stillOnly1 []string

	for _, name := range diff.OnlyInFile1 {
		matches, err := engine.FindSimilar(ctx, name, candidates, threshold)
		if err != nil {
			return err
		}

		paired := false
		for _, m := range matches {
			if taken[m.ColumnName] {
				continue
			}
			taken[m.ColumnName] = true
			diff.SemanticEquivalents = append(diff.SemanticEquivalents, SemanticEquivalent{
				Column1:    name,
				Column2:    m.ColumnName,
				Similarity: m.Similarity,
			})
			paired = true
			break
		}
		if !paired {
			stillOnly1 = append(stillOnly1, name)
		}
	}

	diff.OnlyInFile1 = stillOnly1

	var stillOnly2 []string
	for _, name := range diff.OnlyInFile2 {
		if !taken[name] {
			stillOnly2 = append(stillOnly2, name)
		}
	}
	diff.OnlyInFile2 = stillOnly2

	return nil
}
