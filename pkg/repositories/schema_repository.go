// Package repositories provides data access for the schema store.
package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/prasann/table-talks-sub000/pkg/apperrors"
	"github.com/prasann/table-talks-sub000/pkg/database"
	"github.com/prasann/table-talks-sub000/pkg/models"
)

// SchemaStore provides read access to scanned column metadata. The scanner
// that fills the store is a separate process; everything here is read-only.
type SchemaStore interface {
	// ListFiles returns a summary of every scanned file, name-ordered.
	ListFiles(ctx context.Context) ([]models.FileSummary, error)

	// GetFileSchema returns the columns of one file, name-ordered.
	// Returns apperrors.ErrNotFound when the file was never scanned.
	GetFileSchema(ctx context.Context, fileName string) ([]models.ColumnDescriptor, error)

	// AllColumns returns the full store snapshot for analysis.
	AllColumns(ctx context.Context) ([]models.ColumnDescriptor, error)

	// FindColumns returns columns whose name contains the pattern,
	// case-insensitively.
	FindColumns(ctx context.Context, namePattern string) ([]models.ColumnDescriptor, error)

	// RunReadOnlyQuery executes an already validated SELECT statement and
	// returns the rows as column-name keyed maps.
	RunReadOnlyQuery(ctx context.Context, query string) ([]map[string]any, error)
}

type schemaStore struct {
	db *database.DB
}

// NewSchemaStore creates a SchemaStore backed by the schema_columns table.
func NewSchemaStore(db *database.DB) SchemaStore {
	return &schemaStore{db: db}
}

var _ SchemaStore = (*schemaStore)(nil)

const columnFields = `file_name, file_path, column_name, data_type, null_count, unique_count, total_rows, file_size_mb, last_scanned`

func (s *schemaStore) ListFiles(ctx context.Context) ([]models.FileSummary, error) {
	query := `
		SELECT file_name, file_path, COUNT(*) AS column_count,
		       MAX(total_rows) AS total_rows, MAX(file_size_mb) AS file_size_mb,
		       MAX(last_scanned) AS last_scanned
		FROM schema_columns
		GROUP BY file_name, file_path
		ORDER BY file_name`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	var files []models.FileSummary
	for rows.Next() {
		var f models.FileSummary
		if err := rows.Scan(&f.FileName, &f.FilePath, &f.ColumnCount, &f.TotalRows, &f.FileSizeMB, &f.LastScanned); err != nil {
			return nil, fmt.Errorf("scan file summary: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

func (s *schemaStore) GetFileSchema(ctx context.Context, fileName string) ([]models.ColumnDescriptor, error) {
	query := `
		SELECT ` + columnFields + `
		FROM schema_columns
		WHERE file_name = $1
		ORDER BY column_name`

	cols, err := s.queryColumns(ctx, query, fileName)
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("file %q: %w", fileName, apperrors.ErrNotFound)
	}
	return cols, nil
}

func (s *schemaStore) AllColumns(ctx context.Context) ([]models.ColumnDescriptor, error) {
	query := `
		SELECT ` + columnFields + `
		FROM schema_columns
		ORDER BY file_name, column_name`

	return s.queryColumns(ctx, query)
}

func (s *schemaStore) FindColumns(ctx context.Context, namePattern string) ([]models.ColumnDescriptor, error) {
	query := `
		SELECT ` + columnFields + `
		FROM schema_columns
		WHERE column_name ILIKE '%' || $1 || '%'
		ORDER BY file_name, column_name`

	return s.queryColumns(ctx, query, namePattern)
}

func (s *schemaStore) queryColumns(ctx context.Context, query string, args ...any) ([]models.ColumnDescriptor, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	defer rows.Close()

	var cols []models.ColumnDescriptor
	for rows.Next() {
		var c models.ColumnDescriptor
		if err := rows.Scan(&c.FileName, &c.FilePath, &c.ColumnName, &c.DataType,
			&c.NullCount, &c.UniqueCount, &c.TotalRows, &c.FileSizeMB, &c.LastScanned); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

func (s *schemaStore) RunReadOnlyQuery(ctx context.Context, query string) ([]map[string]any, error) {
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("run query: %w", err)
	}
	defer rows.Close()

	return collectRows(rows)
}

// collectRows converts pgx rows into column-name keyed maps.
func collectRows(rows pgx.Rows) ([]map[string]any, error) {
	fields := rows.FieldDescriptions()

	var results []map[string]any
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read row values: %w", err)
		}
		row := make(map[string]any, len(fields))
		for i, field := range fields {
			row[field.Name] = values[i]
		}
		results = append(results, row)
	}
	return results, rows.Err()
}
