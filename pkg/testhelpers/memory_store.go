// Package testhelpers provides in-memory fakes for tests.
package testhelpers

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/prasann/table-talks-sub000/pkg/apperrors"
	"github.com/prasann/table-talks-sub000/pkg/models"
	"github.com/prasann/table-talks-sub000/pkg/repositories"
)

// MemoryStore is an in-memory SchemaStore for tests. Columns are kept in
// insertion order; query methods sort like the real store does.
type MemoryStore struct {
	Columns []models.ColumnDescriptor

	// QueryRows is returned by RunReadOnlyQuery; QueryErr overrides it.
	QueryRows []map[string]any
	QueryErr  error

	ExecutedQueries []string
}

var _ repositories.SchemaStore = (*MemoryStore)(nil)

// NewMemoryStore creates a store pre-loaded with the given columns.
func NewMemoryStore(cols ...models.ColumnDescriptor) *MemoryStore {
	return &MemoryStore{Columns: cols}
}

func (m *MemoryStore) ListFiles(ctx context.Context) ([]models.FileSummary, error) {
	byFile := make(map[string]*models.FileSummary)
	for _, c := range m.Columns {
		summary, ok := byFile[c.FileName]
		if !ok {
			summary = &models.FileSummary{
				FileName:    c.FileName,
				FilePath:    c.FilePath,
				TotalRows:   c.TotalRows,
				FileSizeMB:  c.FileSizeMB,
				LastScanned: c.LastScanned,
			}
			byFile[c.FileName] = summary
		}
		summary.ColumnCount++
	}

	files := make([]models.FileSummary, 0, len(byFile))
	for _, summary := range byFile {
		files = append(files, *summary)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].FileName < files[j].FileName })
	return files, nil
}

func (m *MemoryStore) GetFileSchema(ctx context.Context, fileName string) ([]models.ColumnDescriptor, error) {
	var cols []models.ColumnDescriptor
	for _, c := range m.Columns {
		if c.FileName == fileName {
			cols = append(cols, c)
		}
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("file %q: %w", fileName, apperrors.ErrNotFound)
	}
	sort.Slice(cols, func(i, j int) bool { return cols[i].ColumnName < cols[j].ColumnName })
	return cols, nil
}

func (m *MemoryStore) AllColumns(ctx context.Context) ([]models.ColumnDescriptor, error) {
	cols := make([]models.ColumnDescriptor, len(m.Columns))
	copy(cols, m.Columns)
	sort.Slice(cols, func(i, j int) bool {
		if cols[i].FileName != cols[j].FileName {
			return cols[i].FileName < cols[j].FileName
		}
		return cols[i].ColumnName < cols[j].ColumnName
	})
	return cols, nil
}

func (m *MemoryStore) FindColumns(ctx context.Context, namePattern string) ([]models.ColumnDescriptor, error) {
	pattern := strings.ToLower(namePattern)
	var cols []models.ColumnDescriptor
	for _, c := range m.Columns {
		if strings.Contains(strings.ToLower(c.ColumnName), pattern) {
			cols = append(cols, c)
		}
	}
	sort.Slice(cols, func(i, j int) bool {
		if cols[i].FileName != cols[j].FileName {
			return cols[i].FileName < cols[j].FileName
		}
		return cols[i].ColumnName < cols[j].ColumnName
	})
	return cols, nil
}

func (m *MemoryStore) RunReadOnlyQuery(ctx context.Context, query string) ([]map[string]any, error) {
	m.ExecutedQueries = append(m.ExecutedQueries, query)
	if m.QueryErr != nil {
		return nil, m.QueryErr
	}
	return m.QueryRows, nil
}
