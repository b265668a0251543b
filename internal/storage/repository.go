package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"homeledger/internal/core"
	"homeledger/internal/ledger"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Dialect selects the SQL flavour and driver.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

func (d Dialect) driverName() string {
	if d == DialectPostgres {
		return "pgx"
	}
	return "sqlite"
}

// Repository is the SQL ledger store. The same queries serve SQLite and
// Postgres; placeholders are written as ? and rebound per dialect.
type Repository struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

// SQLiteDSN adds the pragmas the repository relies on to a file path.
func SQLiteDSN(dbPath string) string {
	return dbPath + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
}

func NewSQLiteRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := SQLiteDSN(dbPath)
	if err := RunMigrations(DialectSQLite, dsn); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time; transactions then serialize instead of failing
	// with SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return newRepository(db, DialectSQLite), nil
}

func NewPostgresRepository(ctx context.Context, dsn string) (*Repository, error) {
	if err := RunMigrations(DialectPostgres, dsn); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return newRepository(db, DialectPostgres), nil
}

func newRepository(db *sql.DB, dialect Dialect) *Repository {
	return &Repository{
		db:      db,
		dialect: dialect,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// q rebinds ? placeholders to $n for Postgres.
func (r *Repository) q(query string) string {
	if r.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

// forUpdate locks the selected row in Postgres. SQLite already runs one
// transaction at a time.
func (r *Repository) forUpdate() string {
	if r.dialect == DialectPostgres {
		return " FOR UPDATE"
	}
	return ""
}

func (r *Repository) dateArg(d core.Date) any {
	if r.dialect == DialectPostgres {
		return d.Time
	}
	return d.String()
}

func (r *Repository) timeArg(t time.Time) any {
	if r.dialect == DialectPostgres {
		return t
	}
	return t.Format(time.RFC3339Nano)
}

func (r *Repository) boolArg(v bool) any {
	if r.dialect == DialectPostgres {
		return v
	}
	if v {
		return 1
	}
	return 0
}

func (r *Repository) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// CreateProperty registers a property for an owner.
func (r *Repository) CreateProperty(ctx context.Context, p core.Property) (core.Property, error) {
	if p.OwnerID <= 0 {
		return core.Property{}, core.Invalid("owner_id", "is required")
	}
	if strings.TrimSpace(p.Address) == "" {
		return core.Property{}, core.Invalid("address", "is required")
	}
	err := r.db.QueryRowContext(ctx, r.q(`INSERT INTO properties (owner_id, address, city, state, created_at)
		VALUES (?, ?, ?, ?, ?) RETURNING id`),
		p.OwnerID, p.Address, p.City, p.State, r.timeArg(r.now())).Scan(&p.ID)
	if err != nil {
		return core.Property{}, fmt.Errorf("insert property: %w", err)
	}
	return p, nil
}

// DeleteProperty removes a property; its expenses and budgets go with it.
func (r *Repository) DeleteProperty(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, r.q(`DELETE FROM properties WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete property: %w", err)
	}
	return expectOneRow(res)
}

const selectProperty = `SELECT id, owner_id, address, city, state FROM properties`

// ResolveAuthorizedProperty implements ledger.PropertyResolver.
func (r *Repository) ResolveAuthorizedProperty(ctx context.Context, owner, propertyID int64) (core.Property, error) {
	return r.scanProperty(r.db.QueryRowContext(ctx, r.q(selectProperty+` WHERE id = ? AND owner_id = ?`), propertyID, owner))
}

// PrimaryProperty implements ledger.PropertyResolver.
func (r *Repository) PrimaryProperty(ctx context.Context, owner int64) (core.Property, error) {
	return r.scanProperty(r.db.QueryRowContext(ctx, r.q(selectProperty+` WHERE owner_id = ? ORDER BY id LIMIT 1`), owner))
}

func (r *Repository) scanProperty(row *sql.Row) (core.Property, error) {
	var p core.Property
	err := row.Scan(&p.ID, &p.OwnerID, &p.Address, &p.City, &p.State)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Property{}, core.ErrNotFound
	}
	if err != nil {
		return core.Property{}, fmt.Errorf("query property: %w", err)
	}
	return p, nil
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// scanner covers *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// mapWriteError turns driver constraint violations into ledger errors.
func mapWriteError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case isUniqueViolation(err):
		return fmt.Errorf("%s: %w", op, core.ErrConflict)
	case isForeignKeyViolation(err):
		return fmt.Errorf("%s: property: %w", op, core.ErrNotFound)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

var _ ledger.Store = (*Repository)(nil)
var _ ledger.PropertyResolver = (*Repository)(nil)
