// Package datarecording stores simulation output in SQLite or ClickHouse
// databases.
package datarecording

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"reflect"
	"sort"
	"sync"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	log "github.com/sirupsen/logrus"
	"github.com/tebeka/atexit"
)

// ErrInvalidEntry is returned for entries that cannot be stored as a table
// row, such as structs with nested struct fields.
var ErrInvalidEntry = errors.New("entry is invalid")

// ErrClosed is returned when a closed recorder is used.
var ErrClosed = errors.New("recorder is closed")

// DataRecorder is a backend that can record and store data. It is safe for
// concurrent use.
type DataRecorder interface {
	// CreateTable creates a table whose columns are the fields of
	// sampleEntry. Creating a table that already exists with the same entry
	// type does nothing.
	CreateTable(tableName string, sampleEntry any) error

	// InsertData buffers an entry for a table that already exists.
	InsertData(tableName string, entry any) error

	// ListTables returns the names of all tables, sorted.
	ListTables() []string

	// Flush writes all the buffered entries into the database.
	Flush() error

	// Close flushes and closes the database.
	Close() error

	// DB returns the underlying database.
	DB() *sql.DB
}

const defaultBatchSize = 100000

// New creates a DataRecorder that writes into a new SQLite file at path. An
// empty path picks a unique file name in the working directory. The file must
// not exist yet.
func New(path string) (DataRecorder, error) {
	if path == "" {
		path = "desim_recording_" + xid.New().String() + ".sqlite3"
	}

	_, err := os.Stat(path)
	if err == nil {
		return nil, fmt.Errorf("datarecording: file %s already exists", path)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("datarecording: open %s: %w", path, err)
	}

	log.WithField("path", path).Info("Database created for recording")

	return NewWithDB(db), nil
}

// NewWithDB creates a DataRecorder over an open SQLite database.
func NewWithDB(db *sql.DB) DataRecorder {
	return newSQLWriter(db, sqliteDialect{}, defaultBatchSize)
}

func newSQLWriter(db *sql.DB, d dialect, batchSize int) *sqlWriter {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	w := &sqlWriter{
		db:        db,
		dialect:   d,
		batchSize: batchSize,
		tables:    make(map[string]*table),
	}

	w.exitHandler = atexit.Register(func() {
		if err := w.Flush(); err != nil && !errors.Is(err, ErrClosed) {
			log.WithError(err).Error("Failed to flush recording at exit")
		}
	})

	return w
}

type table struct {
	structType reflect.Type
	columns    []reflect.StructField
	entries    []any
}

// sqlWriter buffers entries and writes them in batches through a dialect.
type sqlWriter struct {
	lock sync.Mutex

	db         *sql.DB
	dialect    dialect
	tables     map[string]*table
	batchSize  int
	entryCount int
	closed     bool

	exitHandler atexit.HandlerID
}

func (t *sqlWriter) DB() *sql.DB {
	return t.db
}

func isAllowedKind(kind reflect.Kind) bool {
	switch kind {
	case
		reflect.Bool,
		reflect.Int,
		reflect.Int8,
		reflect.Int16,
		reflect.Int32,
		reflect.Int64,
		reflect.Uint,
		reflect.Uint8,
		reflect.Uint16,
		reflect.Uint32,
		reflect.Uint64,
		reflect.Float32,
		reflect.Float64,
		reflect.String:
		return true
	default:
		return false
	}
}

func columnsOf(entry any) ([]reflect.StructField, error) {
	structType := reflect.TypeOf(entry)
	if structType == nil || structType.Kind() != reflect.Struct {
		return nil, fmt.Errorf("datarecording: %T is not a struct: %w",
			entry, ErrInvalidEntry)
	}

	columns := make([]reflect.StructField, 0, structType.NumField())
	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)

		if !field.IsExported() || !isAllowedKind(field.Type.Kind()) {
			return nil, fmt.Errorf(
				"datarecording: field %s of %v cannot be stored: %w",
				field.Name, structType, ErrInvalidEntry)
		}

		columns = append(columns, field)
	}

	return columns, nil
}

func (t *sqlWriter) CreateTable(tableName string, sampleEntry any) error {
	columns, err := columnsOf(sampleEntry)
	if err != nil {
		return err
	}

	t.lock.Lock()
	defer t.lock.Unlock()

	if t.closed {
		return ErrClosed
	}

	structType := reflect.TypeOf(sampleEntry)
	if existing, ok := t.tables[tableName]; ok {
		if existing.structType != structType {
			return fmt.Errorf(
				"datarecording: table %s holds %v, not %v: %w",
				tableName, existing.structType, structType, ErrInvalidEntry)
		}

		return nil
	}

	createTableSQL := t.dialect.createTable(tableName, columns)
	if _, err := t.db.Exec(createTableSQL); err != nil {
		return fmt.Errorf("datarecording: create table %s: %w", tableName, err)
	}

	t.tables[tableName] = &table{
		structType: structType,
		columns:    columns,
	}

	return nil
}

func (t *sqlWriter) InsertData(tableName string, entry any) error {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.closed {
		return ErrClosed
	}

	table, exists := t.tables[tableName]
	if !exists {
		return fmt.Errorf("datarecording: table %s does not exist", tableName)
	}

	if reflect.TypeOf(entry) != table.structType {
		return fmt.Errorf("datarecording: table %s holds %v, not %T: %w",
			tableName, table.structType, entry, ErrInvalidEntry)
	}

	table.entries = append(table.entries, entry)

	t.entryCount++
	if t.entryCount >= t.batchSize {
		return t.flush()
	}

	return nil
}

func (t *sqlWriter) ListTables() []string {
	t.lock.Lock()
	defer t.lock.Unlock()

	tables := make([]string, 0, len(t.tables))
	for table := range t.tables {
		tables = append(tables, table)
	}

	sort.Strings(tables)

	return tables
}

func (t *sqlWriter) Flush() error {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.closed {
		return ErrClosed
	}

	return t.flush()
}

func (t *sqlWriter) flush() error {
	if t.entryCount == 0 {
		return nil
	}

	names := make([]string, 0, len(t.tables))
	for name, table := range t.tables {
		if len(table.entries) > 0 {
			names = append(names, name)
		}
	}

	sort.Strings(names)

	if !t.dialect.singleBatchPerTx() {
		return t.commit(names)
	}

	for _, name := range names {
		if err := t.commit([]string{name}); err != nil {
			return err
		}
	}

	return nil
}

// commit writes the buffered entries of the named tables in one transaction.
func (t *sqlWriter) commit(names []string) error {
	tx, err := t.db.Begin()
	if err != nil {
		return fmt.Errorf("datarecording: begin transaction: %w", err)
	}

	for _, name := range names {
		err = t.insertAll(tx, name, t.tables[name])
		if err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("datarecording: commit: %w", err)
	}

	for _, name := range names {
		table := t.tables[name]
		t.entryCount -= len(table.entries)
		table.entries = nil
	}

	return nil
}

func (t *sqlWriter) insertAll(
	tx *sql.Tx,
	tableName string,
	table *table,
) error {
	sqlStr := t.dialect.insert(tableName, len(table.columns))

	stmt, err := tx.Prepare(sqlStr)
	if err != nil {
		return fmt.Errorf("datarecording: prepare insert into %s: %w",
			tableName, err)
	}
	defer stmt.Close()

	for _, entry := range table.entries {
		values := reflect.ValueOf(entry)

		v := make([]any, 0, values.NumField())
		for i := 0; i < values.NumField(); i++ {
			v = append(v, t.dialect.value(values.Field(i)))
		}

		if _, err := stmt.Exec(v...); err != nil {
			return fmt.Errorf("datarecording: insert into %s: %w",
				tableName, err)
		}
	}

	return nil
}

func (t *sqlWriter) Close() error {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.closed {
		return nil
	}

	flushErr := t.flush()
	t.closed = true

	if err := t.exitHandler.Cancel(); err != nil {
		log.WithError(err).Warn("Failed to cancel exit flush")
	}

	return errors.Join(flushErr, t.db.Close())
}
