package dbexec

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	defaultQueryTimeout = 30 * time.Second
	defaultMaxRows      = 200
	pingTimeout         = 5 * time.Second
)

type Config struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
	QueryTimeout    time.Duration
	MaxRows         int
}

// SQLEngine executes read-only statements against a database/sql pool and
// keeps results within the configured row budget.
type SQLEngine struct {
	db           *sql.DB
	dialect      Dialect
	queryTimeout time.Duration
	maxRows      int
}

func Open(ctx context.Context, cfg Config) (*SQLEngine, error) {
	dialect, err := DialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("database dsn is required")
	}

	db, err := sql.Open(dialect.DriverName(), cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", dialect.Name(), err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s database: %w", dialect.Name(), dialect.ClassifyError(err))
	}

	return NewEngine(db, dialect, cfg.QueryTimeout, cfg.MaxRows), nil
}

func NewEngine(db *sql.DB, dialect Dialect, queryTimeout time.Duration, maxRows int) *SQLEngine {
	if queryTimeout <= 0 {
		queryTimeout = defaultQueryTimeout
	}
	if maxRows <= 0 {
		maxRows = defaultMaxRows
	}
	return &SQLEngine{db: db, dialect: dialect, queryTimeout: queryTimeout, maxRows: maxRows}
}

func (e *SQLEngine) Execute(ctx context.Context, request Request) (Result, error) {
	sqlText := StripTrailingSemicolons(request.SQL)
	if sqlText == "" {
		return Result{}, fmt.Errorf("sql is required")
	}
	if !IsReadOnly(sqlText) {
		return Result{}, fmt.Errorf("%w: only read-only statements are executed", ErrNotAllowed)
	}

	limit := e.maxRows
	if request.MaxRows > 0 && request.MaxRows < limit {
		limit = request.MaxRows
	}

	// SELECT and WITH statements get a wrapping LIMIT of one row past the
	// budget so the scan loop can observe truncation without pulling the
	// full result set. SHOW and friends cannot be wrapped; the scan cap
	// alone bounds those.
	execSQL := sqlText
	if isWrappable(sqlText) {
		execSQL = fmt.Sprintf("SELECT * FROM (%s) AS q LIMIT %d", sqlText, limit+1)
	}

	queryCtx, cancel := context.WithTimeout(ctx, e.queryTimeout)
	defer cancel()

	start := time.Now()
	if e.dialect.SupportsReadOnlyTx() {
		tx, err := e.db.BeginTx(queryCtx, &sql.TxOptions{ReadOnly: true})
		if err != nil {
			return Result{}, fmt.Errorf("begin read-only transaction: %w", e.dialect.ClassifyError(err))
		}
		result, err := e.collect(queryCtx, tx, execSQL, limit, start)
		if err != nil {
			_ = tx.Rollback()
			return Result{}, err
		}
		if err := tx.Commit(); err != nil {
			return Result{}, fmt.Errorf("commit read-only transaction: %w", e.dialect.ClassifyError(err))
		}
		return result, nil
	}
	return e.collect(queryCtx, e.db, execSQL, limit, start)
}

func (e *SQLEngine) collect(ctx context.Context, q Querier, execSQL string, limit int, start time.Time) (Result, error) {
	rows, err := q.QueryContext(ctx, execSQL)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			// Drivers surface an expired deadline in driver-specific ways;
			// the context carries the authoritative signal.
			return Result{}, fmt.Errorf("execute query: %w: %v", ErrTimeout, err)
		}
		return Result{}, fmt.Errorf("execute query: %w", e.dialect.ClassifyError(err))
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return Result{}, fmt.Errorf("query columns: %w", err)
	}

	resultRows := make([][]any, 0)
	truncated := false
	for rows.Next() {
		if len(resultRows) >= limit {
			truncated = true
			break
		}
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return Result{}, fmt.Errorf("scan row: %w", err)
		}
		resultRows = append(resultRows, normalizeValues(values))
	}
	if err := rows.Err(); err != nil {
		return Result{}, fmt.Errorf("iterate rows: %w", e.dialect.ClassifyError(err))
	}

	return Result{
		Columns:   columns,
		Rows:      resultRows,
		RowCount:  len(resultRows),
		Truncated: truncated,
		Duration:  time.Since(start),
	}, nil
}

func (e *SQLEngine) Tables(ctx context.Context) ([]string, error) {
	queryCtx, cancel := context.WithTimeout(ctx, e.queryTimeout)
	defer cancel()

	rows, err := e.db.QueryContext(queryCtx, e.dialect.ListTablesSQL())
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", e.dialect.ClassifyError(err))
	}
	defer func() { _ = rows.Close() }()

	tables := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tables: %w", e.dialect.ClassifyError(err))
	}
	return tables, nil
}

func (e *SQLEngine) Schema(ctx context.Context, tables []string) ([]TableDDL, error) {
	known, err := e.Tables(ctx)
	if err != nil {
		return nil, err
	}
	knownSet := make(map[string]struct{}, len(known))
	for _, name := range known {
		knownSet[name] = struct{}{}
	}

	targets := make([]string, 0, len(tables))
	for _, table := range tables {
		trimmed := strings.TrimSpace(table)
		if trimmed == "" {
			continue
		}
		// Only names the database reported are interpolated into
		// introspection statements.
		if _, ok := knownSet[trimmed]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownTable, trimmed)
		}
		targets = append(targets, trimmed)
	}
	if len(targets) == 0 {
		targets = known
	}

	queryCtx, cancel := context.WithTimeout(ctx, e.queryTimeout)
	defer cancel()

	ddls := make([]TableDDL, 0, len(targets))
	for _, table := range targets {
		ddl, err := e.dialect.TableDDL(queryCtx, e.db, table)
		if err != nil {
			return nil, e.dialect.ClassifyError(err)
		}
		ddls = append(ddls, TableDDL{Name: table, DDL: ddl})
	}
	return ddls, nil
}

func (e *SQLEngine) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := e.db.PingContext(pingCtx); err != nil {
		return fmt.Errorf("ping database: %w", e.dialect.ClassifyError(err))
	}
	return nil
}

func (e *SQLEngine) Close() error {
	return e.db.Close()
}

func isWrappable(sqlText string) bool {
	lower := strings.ToLower(strings.TrimSpace(sqlText))
	for _, prefix := range []string{"select", "with"} {
		if !strings.HasPrefix(lower, prefix) {
			continue
		}
		if len(lower) == len(prefix) {
			return false
		}
		switch lower[len(prefix)] {
		case ' ', '\t', '\n', '(', '*':
			return true
		}
	}
	return false
}

func normalizeValues(values []any) []any {
	normalized := make([]any, len(values))
	for i, value := range values {
		switch typed := value.(type) {
		case []byte:
			normalized[i] = string(typed)
		default:
			normalized[i] = typed
		}
	}
	return normalized
}
