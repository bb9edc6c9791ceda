package models

import "time"

// DataType is the normalized type assigned to a column during scanning.
type DataType string

const (
	DataTypeInteger  DataType = "integer"
	DataTypeFloat    DataType = "float"
	DataTypeBoolean  DataType = "boolean"
	DataTypeDatetime DataType = "datetime"
	DataTypeString   DataType = "string"
)

// ColumnDescriptor is one column of one scanned file. The schema store holds
// one row per (FileName, ColumnName) pair; a rescan replaces the file's rows.
type ColumnDescriptor struct {
	FileName    string    `json:"file_name"`
	FilePath    string    `json:"file_path"`
	ColumnName  string    `json:"column_name"`
	DataType    DataType  `json:"data_type"`
	NullCount   int64     `json:"null_count"`
	UniqueCount int64     `json:"unique_count"`
	TotalRows   int64     `json:"total_rows"`
	FileSizeMB  float64   `json:"file_size_mb"`
	LastScanned time.Time `json:"last_scanned"`
}

// NullPercentage returns the share of null values in the column, 0 when the
// file is empty.
func (c *ColumnDescriptor) NullPercentage() float64 {
	if c.TotalRows == 0 {
		return 0
	}
	return float64(c.NullCount) / float64(c.TotalRows) * 100
}

// FileSummary is the per-file aggregate view used by file listings.
type FileSummary struct {
	FileName    string    `json:"file_name"`
	FilePath    string    `json:"file_path"`
	ColumnCount int       `json:"column_count"`
	TotalRows   int64     `json:"total_rows"`
	FileSizeMB  float64   `json:"file_size_mb"`
	LastScanned time.Time `json:"last_scanned"`
}
