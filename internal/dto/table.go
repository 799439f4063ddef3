package dto

import "github.com/noah-isme/clubconnect-api/pkg/export"

// TableConfig describes a list view's columns so clients do not hard-code them.
type TableConfig struct {
	Entity  string              `json:"entity"`
	Title   string              `json:"title"`
	Columns []export.ColumnInfo `json:"columns"`
	Formats []string            `json:"formats"`
}
