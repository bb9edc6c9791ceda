// Package analysis computes schema consistency and relationship findings
// over scanned column metadata. All functions are pure: empty input yields
// empty output, never an error.
package analysis

import (
	"sort"
	"time"

	"github.com/prasann/table-talks-sub000/pkg/models"
)

// DetectTypeMismatches finds column names that appear with more than one
// data type across files. The result maps column name to data type to the
// sorted list of files using that type.
func DetectTypeMismatches(cols []models.ColumnDescriptor) map[string]map[models.DataType][]string {
	byColumn := make(map[string]map[models.DataType]map[string]bool)
	for _, c := range cols {
		if byColumn[c.ColumnName] == nil {
			byColumn[c.ColumnName] = make(map[models.DataType]map[string]bool)
		}
		if byColumn[c.ColumnName][c.DataType] == nil {
			byColumn[c.ColumnName][c.DataType] = make(map[string]bool)
		}
		byColumn[c.ColumnName][c.DataType][c.FileName] = true
	}

	mismatches := make(map[string]map[models.DataType][]string)
	for column, types := range byColumn {
		if len(types) < 2 {
			continue
		}
		mismatches[column] = make(map[models.DataType][]string)
		for dataType, files := range types {
			sorted := make([]string, 0, len(files))
			for f := range files {
				sorted = append(sorted, f)
			}
			sort.Strings(sorted)
			mismatches[column][dataType] = sorted
		}
	}
	return mismatches
}

// CommonColumn is a column name shared by several files.
type CommonColumn struct {
	ColumnName string   `json:"column_name"`
	FileCount  int      `json:"file_count"`
	Files      []string `json:"files"`
}

// FindCommonColumns returns columns present in at least minFiles distinct
// files, ordered by file count descending then name ascending. minFiles
// values below 2 are raised to 2.
func FindCommonColumns(cols []models.ColumnDescriptor, minFiles int) []CommonColumn {
	if minFiles < 2 {
		minFiles = 2
	}

	filesByColumn := make(map[string]map[string]bool)
	for _, c := range cols {
		if filesByColumn[c.ColumnName] == nil {
			filesByColumn[c.ColumnName] = make(map[string]bool)
		}
		filesByColumn[c.ColumnName][c.FileName] = true
	}

	var common []CommonColumn
	for column, files := range filesByColumn {
		if len(files) < minFiles {
			continue
		}
		sorted := make([]string, 0, len(files))
		for f := range files {
			sorted = append(sorted, f)
		}
		sort.Strings(sorted)
		common = append(common, CommonColumn{
			ColumnName: column,
			FileCount:  len(files),
			Files:      sorted,
		})
	}

	sort.Slice(common, func(i, j int) bool {
		if common[i].FileCount != common[j].FileCount {
			return common[i].FileCount > common[j].FileCount
		}
		return common[i].ColumnName < common[j].ColumnName
	})
	return common
}

// SchemaPair reports two files whose column sets overlap strongly.
type SchemaPair struct {
	File1         string   `json:"file1"`
	File2         string   `json:"file2"`
	Similarity    float64  `json:"similarity"`
	SharedColumns []string `json:"shared_columns"`
}

// FindSimilarSchemas compares every file pair by Jaccard similarity of their
// column-name sets and reports pairs at or above threshold, strongest first.
func FindSimilarSchemas(cols []models.ColumnDescriptor, threshold float64) []SchemaPair {
	columnsByFile := make(map[string]map[string]bool)
	for _, c := range cols {
		if columnsByFile[c.FileName] == nil {
			columnsByFile[c.FileName] = make(map[string]bool)
		}
		columnsByFile[c.FileName][c.ColumnName] = true
	}

	files := make([]string, 0, len(columnsByFile))
	for f := range columnsByFile {
		files = append(files, f)
	}
	sort.Strings(files)

	var pairs []SchemaPair
	for i := 0; i < len(files); i++ {
		for j := i + 1; j < len(files); j++ {
			set1, set2 := columnsByFile[files[i]], columnsByFile[files[j]]

			var shared []string
			for col := range set1 {
				if set2[col] {
					shared = append(shared, col)
				}
			}
			union := len(set1) + len(set2) - len(shared)
			if union == 0 {
				continue
			}
			similarity := float64(len(shared)) / float64(union)
			if similarity < threshold {
				continue
			}
			sort.Strings(shared)
			pairs = append(pairs, SchemaPair{
				File1:         files[i],
				File2:         files[j],
				Similarity:    similarity,
				SharedColumns: shared,
			})
		}
	}

	sort.SliceStable(pairs, func(i, j int) bool {
		return pairs[i].Similarity > pairs[j].Similarity
	})
	return pairs
}

// Summary aggregates the whole store for overview answers.
type Summary struct {
	FileCount   int                     `json:"file_count"`
	ColumnCount int                     `json:"column_count"`
	TotalRows   int64                   `json:"total_rows"`
	TotalSizeMB float64                 `json:"total_size_mb"`
	TypeCounts  map[models.DataType]int `json:"type_counts"`
	LastScanned time.Time               `json:"last_scanned"`
}

// Summarize computes store-wide statistics. Row and size totals count each
// file once even though the store holds one row per column.
func Summarize(cols []models.ColumnDescriptor) Summary {
	summary := Summary{TypeCounts: make(map[models.DataType]int)}
	seenFiles := make(map[string]bool)

	for _, c := range cols {
		summary.ColumnCount++
		summary.TypeCounts[c.DataType]++
		if !seenFiles[c.FileName] {
			seenFiles[c.FileName] = true
			summary.FileCount++
			summary.TotalRows += c.TotalRows
			summary.TotalSizeMB += c.FileSizeMB
		}
		if c.LastScanned.After(summary.LastScanned) {
			summary.LastScanned = c.LastScanned
		}
	}
	return summary
}
