package dbexec

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Querier is the subset of *sql.DB and *sql.Tx the dialects introspect
// through.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Dialect abstracts the per-engine pieces: driver registration name, table
// listing, DDL retrieval, transaction capabilities, and error
// classification.
type Dialect interface {
	Name() string
	DriverName() string
	ListTablesSQL() string
	TableDDL(ctx context.Context, q Querier, table string) (string, error)
	SupportsReadOnlyTx() bool
	ClassifyError(err error) error
}

func DialectFor(driver string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "mysql":
		return mysqlDialect{}, nil
	case "postgres":
		return postgresDialect{}, nil
	case "sqlite":
		return sqliteDialect{}, nil
	case "duckdb":
		return duckdbDialect{}, nil
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
}

type mysqlDialect struct{}

func (mysqlDialect) Name() string       { return "mysql" }
func (mysqlDialect) DriverName() string { return "mysql" }
func (mysqlDialect) ListTablesSQL() string {
	return "SHOW TABLES"
}

func (mysqlDialect) TableDDL(ctx context.Context, q Querier, table string) (string, error) {
	var name, ddl string
	row := q.QueryRowContext(ctx, "SHOW CREATE TABLE "+quoteBacktick(table))
	if err := row.Scan(&name, &ddl); err != nil {
		return "", fmt.Errorf("describe table %q: %w", table, err)
	}
	return ddl, nil
}

func (mysqlDialect) SupportsReadOnlyTx() bool { return true }

func (mysqlDialect) ClassifyError(err error) error {
	if err == nil {
		return nil
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		switch mysqlErr.Number {
		case 1064, 1149, 1054, 1146, 1305:
			return fmt.Errorf("%w: %s", ErrSyntax, mysqlErr.Message)
		case 1044, 1045, 1142, 1143, 1227, 1370:
			return fmt.Errorf("%w: %s", ErrPermission, mysqlErr.Message)
		case 1040, 1053:
			return fmt.Errorf("%w: %s", ErrUnavailable, mysqlErr.Message)
		}
	}
	return classifyCommon(err)
}

type postgresDialect struct{}

func (postgresDialect) Name() string       { return "postgres" }
func (postgresDialect) DriverName() string { return "pgx" }
func (postgresDialect) ListTablesSQL() string {
	return "SELECT table_name FROM information_schema.tables WHERE table_schema = 'public' ORDER BY table_name"
}

func (postgresDialect) TableDDL(ctx context.Context, q Querier, table string) (string, error) {
	return columnsDDL(ctx, q, table,
		"SELECT column_name, data_type, is_nullable FROM information_schema.columns WHERE table_schema = 'public' AND table_name = $1 ORDER BY ordinal_position")
}

func (postgresDialect) SupportsReadOnlyTx() bool { return true }

func (postgresDialect) ClassifyError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "42601" || pgErr.Code == "42P01" || pgErr.Code == "42703" || pgErr.Code == "42883":
			return fmt.Errorf("%w: %s", ErrSyntax, pgErr.Message)
		case pgErr.Code == "42501" || strings.HasPrefix(pgErr.Code, "28"):
			return fmt.Errorf("%w: %s", ErrPermission, pgErr.Message)
		case strings.HasPrefix(pgErr.Code, "08"):
			return fmt.Errorf("%w: %s", ErrUnavailable, pgErr.Message)
		case pgErr.Code == "57014":
			return fmt.Errorf("%w: %s", ErrTimeout, pgErr.Message)
		}
	}
	return classifyCommon(err)
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string       { return "sqlite" }
func (sqliteDialect) DriverName() string { return "sqlite" }
func (sqliteDialect) ListTablesSQL() string {
	return "SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name"
}

func (sqliteDialect) TableDDL(ctx context.Context, q Querier, table string) (string, error) {
	var ddl sql.NullString
	row := q.QueryRowContext(ctx, "SELECT sql FROM sqlite_master WHERE type IN ('table', 'view') AND name = ?", table)
	if err := row.Scan(&ddl); err != nil {
		return "", fmt.Errorf("describe table %q: %w", table, err)
	}
	if !ddl.Valid || strings.TrimSpace(ddl.String) == "" {
		return "", fmt.Errorf("table %q has no stored definition", table)
	}
	return ddl.String, nil
}

func (sqliteDialect) SupportsReadOnlyTx() bool { return false }

func (sqliteDialect) ClassifyError(err error) error {
	if err == nil {
		return nil
	}
	message := err.Error()
	switch {
	case strings.Contains(message, "syntax error"),
		strings.Contains(message, "no such table"),
		strings.Contains(message, "no such column"),
		strings.Contains(message, "no such function"):
		return fmt.Errorf("%w: %s", ErrSyntax, message)
	case strings.Contains(message, "unable to open database"):
		return fmt.Errorf("%w: %s", ErrUnavailable, message)
	}
	return classifyCommon(err)
}

type duckdbDialect struct{}

func (duckdbDialect) Name() string       { return "duckdb" }
func (duckdbDialect) DriverName() string { return "duckdb" }
func (duckdbDialect) ListTablesSQL() string {
	return "SELECT table_name FROM information_schema.tables WHERE table_schema = 'main' ORDER BY table_name"
}

func (duckdbDialect) TableDDL(ctx context.Context, q Querier, table string) (string, error) {
	return columnsDDL(ctx, q, table,
		"SELECT column_name, data_type, is_nullable FROM information_schema.columns WHERE table_schema = 'main' AND table_name = ? ORDER BY ordinal_position")
}

func (duckdbDialect) SupportsReadOnlyTx() bool { return false }

func (duckdbDialect) ClassifyError(err error) error {
	if err == nil {
		return nil
	}
	message := err.Error()
	switch {
	case strings.Contains(message, "Parser Error"),
		strings.Contains(message, "Syntax Error"),
		strings.Contains(message, "Binder Error"),
		strings.Contains(message, "Catalog Error"):
		return fmt.Errorf("%w: %s", ErrSyntax, message)
	}
	return classifyCommon(err)
}

// columnsDDL synthesizes a CREATE TABLE shaped definition from
// information_schema for engines without a native SHOW CREATE TABLE.
func columnsDDL(ctx context.Context, q Querier, table, columnQuery string) (string, error) {
	rows, err := q.QueryContext(ctx, columnQuery, table)
	if err != nil {
		return "", fmt.Errorf("describe table %q: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	var columns []string
	for rows.Next() {
		var name, dataType, nullable string
		if err := rows.Scan(&name, &dataType, &nullable); err != nil {
			return "", fmt.Errorf("scan column of %q: %w", table, err)
		}
		column := fmt.Sprintf("  %s %s", name, dataType)
		if strings.EqualFold(nullable, "NO") {
			column += " NOT NULL"
		}
		columns = append(columns, column)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("iterate columns of %q: %w", table, err)
	}
	if len(columns) == 0 {
		return "", fmt.Errorf("table %q not found", table)
	}
	return fmt.Sprintf("CREATE TABLE %s (\n%s\n)", table, strings.Join(columns, ",\n")), nil
}

func quoteBacktick(value string) string {
	return "`" + strings.ReplaceAll(value, "`", "``") + "`"
}

// classifyCommon handles failure modes shared by every driver: cancelled
// contexts, dropped connections, and unreachable servers.
func classifyCommon(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	case errors.Is(err, driver.ErrBadConn), errors.Is(err, sql.ErrConnDone):
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	message := err.Error()
	if strings.Contains(message, "connection refused") || strings.Contains(message, "invalid connection") {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}
