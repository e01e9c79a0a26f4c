package dbexec

import (
	"context"
	"errors"
	"time"
)

type Request struct {
	SQL     string
	MaxRows int
}

type Result struct {
	Columns   []string
	Rows      [][]any
	RowCount  int
	Truncated bool
	Duration  time.Duration
}

// TableDDL pairs a table name with its (possibly synthesized) definition.
type TableDDL struct {
	Name string `json:"name"`
	DDL  string `json:"ddl"`
}

var (
	// ErrNotAllowed rejects statements outside the read-only set before they
	// reach the database.
	ErrNotAllowed = errors.New("statement is not allowed")

	// ErrSyntax marks statements the database could not parse or resolve.
	ErrSyntax = errors.New("sql syntax error")

	// ErrPermission marks statements the database account may not run.
	ErrPermission = errors.New("permission denied")

	// ErrUnavailable marks connectivity failures to the database.
	ErrUnavailable = errors.New("database unavailable")

	// ErrTimeout marks statements cancelled by the query deadline.
	ErrTimeout = errors.New("query timed out")

	// ErrUnknownTable marks schema requests naming tables the database does
	// not have.
	ErrUnknownTable = errors.New("unknown table")
)

type Engine interface {
	Execute(ctx context.Context, request Request) (Result, error)
	Tables(ctx context.Context) ([]string, error)
	Schema(ctx context.Context, tables []string) ([]TableDDL, error)
	Ping(ctx context.Context) error
	Close() error
}
