package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"
)

const (
	defaultMigrationsTable = "schema_migrations"
	defaultSeedsTable      = "schema_seeds"
)

// Manager applies SQL migration and seed files in lexical order and
// records applied names in bookkeeping tables so reruns are no-ops.
type Manager struct {
	db              *sql.DB
	migrations      fs.FS
	seeds           fs.FS
	migrationsTable string
	seedsTable      string
}

// Option configures Manager.
type Option func(*Manager)

// WithMigrationsTable overrides the default migrations bookkeeping table.
func WithMigrationsTable(name string) Option {
	return func(m *Manager) {
		if name != "" {
			m.migrationsTable = name
		}
	}
}

// WithSeedsTable overrides the default seeds bookkeeping table.
func WithSeedsTable(name string) Option {
	return func(m *Manager) {
		if name != "" {
			m.seedsTable = name
		}
	}
}

// NewManager constructs a Manager over two file trees of *.sql files.
// Either tree may be nil when only one kind is used.
func NewManager(db *sql.DB, migrations, seeds fs.FS, opts ...Option) *Manager {
	m := &Manager{
		db:              db,
		migrations:      migrations,
		seeds:           seeds,
		migrationsTable: defaultMigrationsTable,
		seedsTable:      defaultSeedsTable,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Up applies all pending migrations.
func (m *Manager) Up(ctx context.Context) error {
	return m.apply(ctx, m.migrations, m.migrationsTable, "migration")
}

// Seed applies seed files idempotently.
func (m *Manager) Seed(ctx context.Context) error {
	return m.apply(ctx, m.seeds, m.seedsTable, "seed")
}

// Status returns applied migrations in apply order.
func (m *Manager) Status(ctx context.Context) ([]string, error) {
	if err := m.ensureTable(ctx, m.migrationsTable); err != nil {
		return nil, err
	}
	rows, err := m.db.QueryContext(ctx,
		fmt.Sprintf(`select name from %s order by applied_at asc, name asc`, m.migrationsTable))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (m *Manager) apply(ctx context.Context, tree fs.FS, table, kind string) error {
	if tree == nil {
		return nil
	}
	if err := m.ensureTable(ctx, table); err != nil {
		return err
	}
	applied, err := m.appliedSet(ctx, table)
	if err != nil {
		return err
	}
	names, err := fs.Glob(tree, "*.sql")
	if err != nil {
		return err
	}
	sort.Strings(names)
	for _, name := range names {
		if applied[name] {
			continue
		}
		if err := m.execFile(ctx, tree, name); err != nil {
			return fmt.Errorf("apply %s %s: %w", kind, name, err)
		}
		if _, err := m.db.ExecContext(ctx,
			fmt.Sprintf(`insert into %s(name, applied_at) values ($1, $2)`, table),
			name, time.Now().UTC()); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) execFile(ctx context.Context, tree fs.FS, name string) error {
	raw, err := fs.ReadFile(tree, name)
	if err != nil {
		return err
	}
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	for _, stmt := range strings.Split(string(raw), ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (m *Manager) ensureTable(ctx context.Context, table string) error {
	_, err := m.db.ExecContext(ctx, fmt.Sprintf(`
		create table if not exists %s (
			name text primary key,
			applied_at timestamptz not null default now()
		)`, table))
	return err
}

func (m *Manager) appliedSet(ctx context.Context, table string) (map[string]bool, error) {
	rows, err := m.db.QueryContext(ctx, fmt.Sprintf(`select name from %s`, table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	applied := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		applied[name] = true
	}
	return applied, rows.Err()
}
