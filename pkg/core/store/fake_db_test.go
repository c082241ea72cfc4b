package store

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type execCall struct {
	sql  string
	args []any
}

// fakeDB answers queries with rows registered against a SQL fragment.
type fakeDB struct {
	mu      sync.Mutex
	execs   []execCall
	queries []execCall
	results map[string][][]any
	execErr error
}

var _ Querier = (*fakeDB)(nil)

func newFakeDB() *fakeDB {
	return &fakeDB{results: map[string][][]any{}}
}

func (f *fakeDB) on(fragment string, rows ...[]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[fragment] = rows
}

func (f *fakeDB) match(sql string) [][]any {
	for fragment, rows := range f.results {
		if strings.Contains(sql, fragment) {
			return rows
		}
	}
	return nil
}

func (f *fakeDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.execs = append(f.execs, execCall{sql: sql, args: args})
	if f.execErr != nil {
		return pgconn.CommandTag{}, f.execErr
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (f *fakeDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, execCall{sql: sql, args: args})
	return &fakeRows{data: f.match(sql), pos: -1}, nil
}

func (f *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, execCall{sql: sql, args: args})
	rows := f.match(sql)
	if len(rows) == 0 {
		return fakeRow{err: pgx.ErrNoRows}
	}
	return fakeRow{values: rows[0]}
}

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return scanInto(r.values, dest)
}

type fakeRows struct {
	data [][]any
	pos  int
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.NewCommandTag("SELECT") }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	r.pos++
	return r.pos < len(r.data)
}

func (r *fakeRows) Scan(dest ...any) error {
	return scanInto(r.data[r.pos], dest)
}

func (r *fakeRows) Values() ([]any, error) {
	return r.data[r.pos], nil
}

func scanInto(values []any, dest []any) error {
	if len(values) != len(dest) {
		return fmt.Errorf("fake row has %d values, scan wants %d", len(values), len(dest))
	}
	for i, v := range values {
		dv := reflect.ValueOf(dest[i]).Elem()
		if v == nil {
			dv.Set(reflect.Zero(dv.Type()))
			continue
		}
		vv := reflect.ValueOf(v)
		switch {
		case vv.Type().AssignableTo(dv.Type()):
			dv.Set(vv)
		case dv.Kind() == reflect.Pointer && vv.Type().AssignableTo(dv.Type().Elem()):
			p := reflect.New(dv.Type().Elem())
			p.Elem().Set(vv)
			dv.Set(p)
		case vv.Type().ConvertibleTo(dv.Type()):
			dv.Set(vv.Convert(dv.Type()))
		default:
			return fmt.Errorf("cannot scan %T into %s", v, dv.Type())
		}
	}
	return nil
}
