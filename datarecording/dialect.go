package datarecording

import (
	"fmt"
	"reflect"
	"strings"
)

// A dialect turns table layouts into the SQL a backend understands.
type dialect interface {
	createTable(tableName string, columns []reflect.StructField) string
	insert(tableName string, numColumns int) string
	value(field reflect.Value) any

	// singleBatchPerTx is true when a transaction can only carry the inserts
	// of one statement.
	singleBatchPerTx() bool
}

type sqliteDialect struct{}

func (sqliteDialect) createTable(
	tableName string,
	columns []reflect.StructField,
) string {
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.Name
	}

	return `CREATE TABLE IF NOT EXISTS ` + tableName +
		` (` + "\n\t" + strings.Join(names, ", \n\t") + "\n" + `);`
}

func (sqliteDialect) insert(tableName string, numColumns int) string {
	placeholders := make([]string, numColumns)
	for i := range placeholders {
		placeholders[i] = "?"
	}

	return "INSERT INTO " + tableName +
		" VALUES (" + strings.Join(placeholders, ", ") + ")"
}

func (sqliteDialect) value(field reflect.Value) any {
	return field.Interface()
}

func (sqliteDialect) singleBatchPerTx() bool {
	return false
}

// clickHouseDialect writes typed MergeTree tables. The ClickHouse driver sends
// one batch per transaction, so every table is committed on its own.
type clickHouseDialect struct{}

func clickHouseType(kind reflect.Kind) string {
	switch kind {
	case reflect.Bool:
		return "Bool"
	case reflect.Int8:
		return "Int8"
	case reflect.Int16:
		return "Int16"
	case reflect.Int32:
		return "Int32"
	case reflect.Int, reflect.Int64:
		return "Int64"
	case reflect.Uint8:
		return "UInt8"
	case reflect.Uint16:
		return "UInt16"
	case reflect.Uint32:
		return "UInt32"
	case reflect.Uint, reflect.Uint64:
		return "UInt64"
	case reflect.Float32:
		return "Float32"
	case reflect.Float64:
		return "Float64"
	case reflect.String:
		return "String"
	default:
		panic(fmt.Sprintf("datarecording: kind %v cannot be stored", kind))
	}
}

func (clickHouseDialect) createTable(
	tableName string,
	columns []reflect.StructField,
) string {
	defs := make([]string, len(columns))
	for i, c := range columns {
		defs[i] = c.Name + " " + clickHouseType(c.Type.Kind())
	}

	return `CREATE TABLE IF NOT EXISTS ` + tableName +
		` (` + "\n\t" + strings.Join(defs, ", \n\t") + "\n" +
		`) ENGINE = MergeTree() ORDER BY tuple()`
}

func (clickHouseDialect) insert(tableName string, _ int) string {
	return "INSERT INTO " + tableName
}

// value widens int and uint, which have no fixed size, to the 64-bit columns
// created for them.
func (clickHouseDialect) value(field reflect.Value) any {
	switch field.Kind() {
	case reflect.Int:
		return field.Int()
	case reflect.Uint:
		return field.Uint()
	default:
		return field.Interface()
	}
}

func (clickHouseDialect) singleBatchPerTx() bool {
	return true
}
