package export

import (
	"fmt"
	"strings"
)

// ColumnKind describes how a column's values should be filtered and displayed.
type ColumnKind string

const (
	KindText   ColumnKind = "text"
	KindEnum   ColumnKind = "enum"
	KindDate   ColumnKind = "date"
	KindTime   ColumnKind = "time"
	KindNumber ColumnKind = "number"
	KindBool   ColumnKind = "bool"
)

// Column is a typed column descriptor for rows of type T.
type Column[T any] struct {
	Key     string
	Header  string
	Kind    ColumnKind
	SortKey string
	Options []string
	Value   func(T) string
}

// Sortable reports whether the column can be used in an ORDER BY.
func (c Column[T]) Sortable() bool {
	return c.SortKey != ""
}

// ColumnInfo is the serialisable view of a column, sent to table widgets.
type ColumnInfo struct {
	Key      string     `json:"key"`
	Header   string     `json:"header"`
	Kind     ColumnKind `json:"kind"`
	Sortable bool       `json:"sortable"`
	Options  []string   `json:"options,omitempty"`
}

// Table groups the column descriptors of one entity.
type Table[T any] struct {
	Name    string
	Title   string
	Columns []Column[T]
}

// NewTable builds a table and panics on malformed descriptors, which are
// programming errors caught at start-up.
func NewTable[T any](name, title string, columns ...Column[T]) Table[T] {
	seen := make(map[string]struct{}, len(columns))
	for _, col := range columns {
		if col.Key == "" || col.Value == nil {
			panic(fmt.Sprintf("export: table %s has a column without key or value", name))
		}
		if _, dup := seen[col.Key]; dup {
			panic(fmt.Sprintf("export: table %s has duplicate column %s", name, col.Key))
		}
		if col.Kind == KindEnum && len(col.Options) == 0 {
			panic(fmt.Sprintf("export: enum column %s.%s has no options", name, col.Key))
		}
		seen[col.Key] = struct{}{}
	}
	return Table[T]{Name: name, Title: title, Columns: columns}
}

// Headers returns the column headers in display order.
func (t Table[T]) Headers() []string {
	headers := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		headers[i] = col.Header
	}
	return headers
}

// Dataset renders rows into an export dataset.
func (t Table[T]) Dataset(rows []T) Dataset {
	data := Dataset{Title: t.Title, Headers: t.Headers(), Rows: make([][]string, 0, len(rows))}
	for _, row := range rows {
		record := make([]string, len(t.Columns))
		for i, col := range t.Columns {
			record[i] = col.Value(row)
		}
		data.Rows = append(data.Rows, record)
	}
	return data
}

// SortColumn maps a public column key to its database sort expression.
func (t Table[T]) SortColumn(key string) (string, bool) {
	for _, col := range t.Columns {
		if col.Key == key && col.Sortable() {
			return col.SortKey, true
		}
	}
	return "", false
}

// Select narrows the table to the requested keys, preserving request order.
// An empty selection returns the table unchanged.
func (t Table[T]) Select(keys []string) (Table[T], error) {
	if len(keys) == 0 {
		return t, nil
	}
	index := make(map[string]Column[T], len(t.Columns))
	for _, col := range t.Columns {
		index[col.Key] = col
	}
	selected := make([]Column[T], 0, len(keys))
	for _, key := range keys {
		col, ok := index[strings.TrimSpace(key)]
		if !ok {
			return t, fmt.Errorf("unknown column %q for %s", key, t.Name)
		}
		selected = append(selected, col)
	}
	return Table[T]{Name: t.Name, Title: t.Title, Columns: selected}, nil
}

// Describe returns the serialisable column configuration.
func (t Table[T]) Describe() []ColumnInfo {
	infos := make([]ColumnInfo, len(t.Columns))
	for i, col := range t.Columns {
		infos[i] = ColumnInfo{Key: col.Key, Header: col.Header, Kind: col.Kind, Sortable: col.Sortable(), Options: col.Options}
	}
	return infos
}
