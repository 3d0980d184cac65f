package datarecording

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// QueryParams narrows a query. The zero value selects every row.
type QueryParams struct {
	// Where is a condition without the WHERE keyword, such as
	// "RunID = ? AND Kind = ?".
	Where string

	// Args fill the placeholders of Where.
	Args []any

	// OrderBy lists sort keys without the ORDER BY keywords, such as
	// "Seq DESC".
	OrderBy string

	// Limit caps the number of rows. Zero means no cap.
	Limit int

	// Offset skips rows. It is ignored without a Limit.
	Offset int
}

func (p QueryParams) filter() string {
	if p.Where == "" {
		return ""
	}

	return " WHERE " + p.Where
}

func (p QueryParams) page() string {
	clause := ""
	if p.OrderBy != "" {
		clause += " ORDER BY " + p.OrderBy
	}

	if p.Limit > 0 {
		clause += fmt.Sprintf(" LIMIT %d", p.Limit)
		if p.Offset > 0 {
			clause += fmt.Sprintf(" OFFSET %d", p.Offset)
		}
	}

	return clause
}

// DataReader reads tables written by a DataRecorder back into structs.
type DataReader interface {
	// MapTable binds a table to the struct type of sampleEntry. A table must
	// be mapped before it is queried.
	MapTable(tableName string, sampleEntry any) error

	// ListTables returns the names of the mapped tables, sorted.
	ListTables() []string

	// Query returns the matching rows as pointers to the mapped struct type,
	// together with the number of rows that match regardless of Limit and
	// Offset.
	Query(ctx context.Context, tableName string, params QueryParams) (
		results []any,
		totalCount int,
		err error,
	)

	// Close closes the database.
	Close() error
}

type mapping struct {
	structType reflect.Type
	columns    []reflect.StructField
}

type sqlReader struct {
	db       *sql.DB
	mappings map[string]mapping
}

// NewReader opens a SQLite file for reading.
func NewReader(path string) (DataReader, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("datarecording: open %s: %w", path, err)
	}

	return NewReaderWithDB(db), nil
}

// NewReaderWithDB creates a DataReader over an open database. The database
// can be SQLite or ClickHouse.
func NewReaderWithDB(db *sql.DB) DataReader {
	return &sqlReader{
		db:       db,
		mappings: make(map[string]mapping),
	}
}

func (r *sqlReader) MapTable(tableName string, sampleEntry any) error {
	columns, err := columnsOf(sampleEntry)
	if err != nil {
		return err
	}

	r.mappings[tableName] = mapping{
		structType: reflect.TypeOf(sampleEntry),
		columns:    columns,
	}

	return nil
}

func (r *sqlReader) ListTables() []string {
	tables := make([]string, 0, len(r.mappings))
	for table := range r.mappings {
		tables = append(tables, table)
	}

	sort.Strings(tables)

	return tables
}

func (r *sqlReader) Query(
	ctx context.Context,
	tableName string,
	params QueryParams,
) ([]any, int, error) {
	m, ok := r.mappings[tableName]
	if !ok {
		return nil, 0, fmt.Errorf(
			"datarecording: table %s is not mapped", tableName)
	}

	var total int

	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM "+tableName+params.filter(),
		params.Args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("datarecording: count %s: %w", tableName, err)
	}

	names := make([]string, len(m.columns))
	for i, c := range m.columns {
		names[i] = c.Name
	}

	query := "SELECT " + strings.Join(names, ", ") + " FROM " + tableName +
		params.filter() + params.page()

	rows, err := r.db.QueryContext(ctx, query, params.Args...)
	if err != nil {
		return nil, 0, fmt.Errorf("datarecording: query %s: %w", tableName, err)
	}
	defer rows.Close()

	results, err := scanRows(rows, m)
	if err != nil {
		return nil, 0, fmt.Errorf("datarecording: scan %s: %w", tableName, err)
	}

	return results, total, nil
}

// scanRows scans each row into a new struct whose fields are listed in the
// same order as the selected columns.
func scanRows(rows *sql.Rows, m mapping) ([]any, error) {
	var results []any

	for rows.Next() {
		ptr := reflect.New(m.structType)
		targets := make([]any, len(m.columns))

		for i, c := range m.columns {
			targets[i] = ptr.Elem().FieldByIndex(c.Index).Addr().Interface()
		}

		if err := rows.Scan(targets...); err != nil {
			return nil, err
		}

		results = append(results, ptr.Interface())
	}

	return results, rows.Err()
}

func (r *sqlReader) Close() error {
	return r.db.Close()
}
