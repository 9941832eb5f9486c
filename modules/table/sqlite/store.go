package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// ErrNoSuchTable reports an operation against a table that does not exist.
type ErrNoSuchTable struct {
	Name string
}

func (e *ErrNoSuchTable) Error() string {
	return fmt.Sprintf("table: no such table %q", e.Name)
}

// identRe constrains table and column names to plain identifiers. Names are
// interpolated into DDL, so anything else is rejected up front.
var identRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]{0,63}$`)

// reserved names collide with the module's own bookkeeping.
var reserved = map[string]bool{
	"sqlite_master":  true,
	"user_tables":    true,
	"schema_version": true,
}

func checkIdent(kind, name string) error {
	if !identRe.MatchString(name) {
		return fmt.Errorf("table: invalid %s name %q", kind, name)
	}
	if reserved[strings.ToLower(name)] {
		return fmt.Errorf("table: %s name %q is reserved", kind, name)
	}
	return nil
}

// Store manages named tables of TEXT columns in a single SQLite database.
// Column sets are recorded in a bookkeeping table so lookups never parse DDL.
type Store struct {
	db *sql.DB
}

// NewStore wraps an open database. The caller owns the connection.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreateTable creates a table with the given TEXT columns. Creating a table
// that already exists is an error.
func (s *Store) CreateTable(ctx context.Context, name string, columns []string) error {
	if err := checkIdent("table", name); err != nil {
		return err
	}
	if len(columns) == 0 {
		return fmt.Errorf("table: create %q: at least one column required", name)
	}
	seen := make(map[string]bool, len(columns))
	for _, col := range columns {
		if err := checkIdent("column", col); err != nil {
			return err
		}
		if seen[col] {
			return fmt.Errorf("table: create %q: duplicate column %q", name, col)
		}
		seen[col] = true
	}

	exists, err := s.exists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("table: create %q: already exists", name)
	}

	defs := make([]string, len(columns))
	for i, col := range columns {
		defs[i] = col + " TEXT NOT NULL DEFAULT ''"
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("table: begin: %w", err)
	}
	defer tx.Rollback()

	ddl := fmt.Sprintf("CREATE TABLE %s (%s)", name, strings.Join(defs, ", "))
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("table: create %q: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO user_tables (name, columns) VALUES (?, ?)",
		name, strings.Join(columns, ","),
	); err != nil {
		return fmt.Errorf("table: record %q: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("table: commit: %w", err)
	}
	return nil
}

// Drop removes a table and its rows.
func (s *Store) Drop(ctx context.Context, name string) error {
	if err := checkIdent("table", name); err != nil {
		return err
	}
	exists, err := s.exists(ctx, name)
	if err != nil {
		return err
	}
	if !exists {
		return &ErrNoSuchTable{Name: name}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("table: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DROP TABLE "+name); err != nil {
		return fmt.Errorf("table: drop %q: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM user_tables WHERE name = ?", name); err != nil {
		return fmt.Errorf("table: unrecord %q: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("table: commit: %w", err)
	}
	return nil
}

// Tables lists table names in creation order, with their columns.
func (s *Store) Tables(ctx context.Context) ([]TableInfo, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name, columns FROM user_tables ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("table: list: %w", err)
	}
	defer rows.Close()

	var infos []TableInfo
	for rows.Next() {
		var name, cols string
		if err := rows.Scan(&name, &cols); err != nil {
			return nil, fmt.Errorf("table: scan: %w", err)
		}
		infos = append(infos, TableInfo{Name: name, Columns: strings.Split(cols, ",")})
	}
	return infos, rows.Err()
}

// TableInfo describes one named table.
type TableInfo struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
}

// Insert adds a row. Missing columns default to the empty string; unknown
// columns are an error.
func (s *Store) Insert(ctx context.Context, name string, row map[string]string) error {
	cols, err := s.columns(ctx, name)
	if err != nil {
		return err
	}
	known := make(map[string]bool, len(cols))
	for _, c := range cols {
		known[c] = true
	}
	for k := range row {
		if !known[k] {
			return fmt.Errorf("table: insert into %q: unknown column %q", name, k)
		}
	}

	placeholders := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, c := range cols {
		placeholders[i] = "?"
		args[i] = row[c]
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		name, strings.Join(cols, ", "), strings.Join(placeholders, ", "))
	if _, err := s.db.ExecContext(ctx, stmt, args...); err != nil {
		return fmt.Errorf("table: insert into %q: %w", name, err)
	}
	return nil
}

// Select returns rows matching every filter column exactly, in insertion
// order. An empty filter returns all rows.
func (s *Store) Select(ctx context.Context, name string, filter map[string]string) ([]map[string]string, error) {
	cols, err := s.columns(ctx, name)
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(cols))
	for _, c := range cols {
		known[c] = true
	}

	var (
		where []string
		args  []any
	)
	// Deterministic clause order for stable query plans and tests.
	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !known[k] {
			return nil, fmt.Errorf("table: select from %q: unknown column %q", name, k)
		}
		where = append(where, k+" = ?")
		args = append(args, filter[k])
	}

	stmt := fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), name)
	if len(where) > 0 {
		stmt += " WHERE " + strings.Join(where, " AND ")
	}
	stmt += " ORDER BY rowid"

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("table: select from %q: %w", name, err)
	}
	defer rows.Close()

	var out []map[string]string
	vals := make([]any, len(cols))
	strs := make([]string, len(cols))
	for i := range vals {
		vals[i] = &strs[i]
	}
	for rows.Next() {
		if err := rows.Scan(vals...); err != nil {
			return nil, fmt.Errorf("table: scan: %w", err)
		}
		m := make(map[string]string, len(cols))
		for i, c := range cols {
			m[c] = strs[i]
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) exists(ctx context.Context, name string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT count(*) FROM user_tables WHERE name = ?", name).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("table: lookup %q: %w", name, err)
	}
	return n > 0, nil
}

func (s *Store) columns(ctx context.Context, name string) ([]string, error) {
	if err := checkIdent("table", name); err != nil {
		return nil, err
	}
	var cols string
	err := s.db.QueryRowContext(ctx,
		"SELECT columns FROM user_tables WHERE name = ?", name).Scan(&cols)
	if err == sql.ErrNoRows {
		return nil, &ErrNoSuchTable{Name: name}
	}
	if err != nil {
		return nil, fmt.Errorf("table: lookup %q: %w", name, err)
	}
	return strings.Split(cols, ","), nil
}
