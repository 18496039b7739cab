/*
	Copyright (c) 2015-2016 Christopher Young
	Distributable under the terms of The "BSD New"" License
	that can be found in the LICENSE file, herein included
	as part of this header.

	datalog.go: Append IMU samples to a sqlite database as they are taken.
*/

// Package datalog persists timestamped IMU samples into a sqlite table.
package datalog

import (
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

const Table = "samples"

var (
	ErrSchema   = errors.New("datalog: row type can't be mapped to a table")
	ErrReadOnly = errors.New("datalog: opened read-only")
)

// Sample is one row of the samples table. TS is monotonic seconds, accelerations are in g
// and angular rates in degrees per second.
type Sample struct {
	TS float64 `db:"ts"`
	AX float64 `db:"ax"`
	AY float64 `db:"ay"`
	AZ float64 `db:"az"`
	GX float64 `db:"gx"`
	GY float64 `db:"gy"`
	GZ float64 `db:"gz"`
}

var sqlTypeMap = map[reflect.Kind]string{
	reflect.Bool:    "INTEGER",
	reflect.Int:     "INTEGER",
	reflect.Int8:    "INTEGER",
	reflect.Int16:   "INTEGER",
	reflect.Int32:   "INTEGER",
	reflect.Int64:   "INTEGER",
	reflect.Uint:    "INTEGER",
	reflect.Uint8:   "INTEGER",
	reflect.Uint16:  "INTEGER",
	reflect.Uint32:  "INTEGER",
	reflect.Float32: "FLOAT",
	reflect.Float64: "FLOAT",
	reflect.String:  "TEXT",
}

type column struct {
	name    string
	sqlType string
	index   int
}

// columns maps the tagged fields of a struct type to table columns, in field order.
func columns(t reflect.Type) ([]column, error) {
	if t.Kind() != reflect.Struct {
		return nil, ErrSchema
	}
	cols := make([]column, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := f.Tag.Get("db")
		if name == "" || name == "-" {
			continue
		}
		sqlType, ok := sqlTypeMap[f.Type.Kind()]
		if !ok {
			return nil, fmt.Errorf("%w: field %s has unsupported kind %s", ErrSchema, f.Name, f.Type.Kind())
		}
		cols = append(cols, column{name: name, sqlType: sqlType, index: i})
	}
	if len(cols) == 0 {
		return nil, ErrSchema
	}
	return cols, nil
}

func createStatement(tbl string, cols []column) string {
	fields := make([]string, len(cols))
	for i, c := range cols {
		fields[i] = c.name + " " + c.sqlType + " NOT NULL"
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", tbl, strings.Join(fields, ", "))
}

func insertStatement(tbl string, cols []column) string {
	keys := make([]string, len(cols))
	for i, c := range cols {
		keys[i] = c.name
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", tbl, strings.Join(keys, ", "),
		strings.Join(strings.Split(strings.Repeat("?", len(keys)), ""), ", "))
}

func selectStatement(tbl string, cols []column) string {
	keys := make([]string, len(cols))
	for i, c := range cols {
		keys[i] = c.name
	}
	return fmt.Sprintf("SELECT %s FROM %s WHERE ts >= ? AND ts <= ? ORDER BY rowid", strings.Join(keys, ", "), tbl)
}

// DataLog is an append-only sqlite sink for Samples. It is not safe for concurrent use.
type DataLog struct {
	db     *sql.DB
	cols   []column
	insert *sql.Stmt
}

// Open opens (or creates) the sqlite database at path and makes sure the samples table exists.
func Open(path string) (*DataLog, error) {
	cols, err := columns(reflect.TypeOf(Sample{}))
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("datalog: sql.Open(%s): %w", path, err)
	}
	// Single connection: a ":memory:" database only exists on the connection that created it.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(createStatement(Table, cols)); err != nil {
		db.Close()
		return nil, fmt.Errorf("datalog: creating table %s: %w", Table, err)
	}
	insert, err := db.Prepare(insertStatement(Table, cols))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("datalog: preparing insert: %w", err)
	}
	return &DataLog{db: db, cols: cols, insert: insert}, nil
}

// OpenReadOnly opens an existing database at path for Count and Each. It fails if path does
// not exist and never creates the file or the table.
func OpenReadOnly(path string) (*DataLog, error) {
	cols, err := columns(reflect.TypeOf(Sample{}))
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("datalog: sql.Open(%s): %w", path, err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("datalog: opening %s: %w", path, err)
	}
	return &DataLog{db: db, cols: cols}, nil
}

// Write appends one sample.
func (d *DataLog) Write(s Sample) error {
	if d.insert == nil {
		return ErrReadOnly
	}
	val := reflect.ValueOf(s)
	args := make([]interface{}, len(d.cols))
	for i, c := range d.cols {
		args[i] = val.Field(c.index).Interface()
	}
	if _, err := d.insert.Exec(args...); err != nil {
		return fmt.Errorf("datalog: insert: %w", err)
	}
	return nil
}

// Count returns the number of samples stored.
func (d *DataLog) Count() (n int64, err error) {
	err = d.db.QueryRow("SELECT COUNT(*) FROM " + Table).Scan(&n)
	return
}

// Each calls fn for every sample with from <= TS <= to, in insertion order, and stops at the
// first error fn returns.
func (d *DataLog) Each(from, to float64, fn func(Sample) error) error {
	rows, err := d.db.Query(selectStatement(Table, d.cols), from, to)
	if err != nil {
		return fmt.Errorf("datalog: query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s Sample
		val := reflect.ValueOf(&s).Elem()
		dest := make([]interface{}, len(d.cols))
		for i, c := range d.cols {
			dest[i] = val.Field(c.index).Addr().Interface()
		}
		if err := rows.Scan(dest...); err != nil {
			return fmt.Errorf("datalog: scan: %w", err)
		}
		if err := fn(s); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Close finalizes the insert statement, if any, and closes the database.
func (d *DataLog) Close() error {
	if d.insert != nil {
		d.insert.Close()
	}
	return d.db.Close()
}
