package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/askdb/askdb/internal/history"
	"github.com/askdb/askdb/internal/pipeline"
	"github.com/askdb/askdb/internal/render"
)

// Asker is the slice of the pipeline the terminal drives.
type Asker interface {
	Ask(ctx context.Context, question string) (pipeline.Answer, error)
	RunSQL(ctx context.Context, sqlText string) (pipeline.Answer, error)
	Reset()
}

type Options struct {
	Asker   Asker
	Gateway pipeline.QueryGateway
	History *history.Store
	Stdout  io.Writer
	Stderr  io.Writer
}

// Terminal dispatches one line of user input at a time. The readline loop
// in Run feeds it; tests feed it directly.
type Terminal struct {
	asker   Asker
	gateway pipeline.QueryGateway
	history *history.Store
	stdout  io.Writer
	stderr  io.Writer
}

func NewTerminal(opts Options) (*Terminal, error) {
	if opts.Asker == nil {
		return nil, fmt.Errorf("asker is required")
	}
	if opts.Gateway == nil {
		return nil, fmt.Errorf("gateway is required")
	}
	stdout := opts.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	stderr := opts.Stderr
	if stderr == nil {
		stderr = io.Discard
	}
	return &Terminal{
		asker:   opts.Asker,
		gateway: opts.Gateway,
		history: opts.History,
		stdout:  stdout,
		stderr:  stderr,
	}, nil
}

// Dispatch handles one input line and reports whether the session should
// end. Anything that is not a command is treated as a question.
func (t *Terminal) Dispatch(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}

	command, rest, _ := strings.Cut(line, " ")
	switch strings.ToLower(command) {
	case "quit", "exit":
		return true
	case "help":
		t.printHelp()
	case "new":
		t.asker.Reset()
		_, _ = fmt.Fprintln(t.stdout, "Started a new conversation.")
	case "tables":
		t.printTables(ctx)
	case "schema":
		t.printSchema(ctx, strings.TrimSpace(rest))
	case "sql":
		statement := strings.TrimSpace(rest)
		if statement == "" {
			_, _ = fmt.Fprintln(t.stderr, "usage: sql <statement>")
			return false
		}
		answer, err := t.asker.RunSQL(ctx, statement)
		if err != nil {
			t.printError(err)
			return false
		}
		t.printAnswer(answer)
	case "log":
		t.printLog(strings.TrimSpace(rest))
	default:
		answer, err := t.asker.Ask(ctx, line)
		if err != nil {
			t.printError(err)
			return false
		}
		t.printAnswer(answer)
	}
	return false
}

func (t *Terminal) printHelp() {
	help := `Ask a question in plain language, or use a command:
  help            Show this message
  new             Start a new conversation (clears model context)
  tables          List tables
  schema [table]  Show table definitions
  sql <stmt>      Run a read-only SQL statement directly
  log [n]         Show the last n answered questions (default 10)
  quit / exit     Leave askdb`
	_, _ = fmt.Fprintln(t.stdout, help)
}

func (t *Terminal) printTables(ctx context.Context) {
	tables, err := t.gateway.Tables(ctx)
	if err != nil {
		t.printError(err)
		return
	}
	if len(tables) == 0 {
		_, _ = fmt.Fprintln(t.stdout, "(no tables)")
		return
	}
	for _, name := range tables {
		_, _ = fmt.Fprintln(t.stdout, name)
	}
}

func (t *Terminal) printSchema(ctx context.Context, table string) {
	var requested []string
	if table != "" {
		requested = []string{table}
	}
	ddls, err := t.gateway.Schema(ctx, requested)
	if err != nil {
		t.printError(err)
		return
	}
	if len(ddls) == 0 {
		_, _ = fmt.Fprintln(t.stdout, "(no tables)")
		return
	}
	for _, ddl := range ddls {
		_, _ = fmt.Fprintln(t.stdout, ddl.DDL)
		_, _ = fmt.Fprintln(t.stdout)
	}
}

func (t *Terminal) printLog(rest string) {
	if t.history == nil {
		_, _ = fmt.Fprintln(t.stderr, "history is not configured")
		return
	}
	limit := history.DefaultTailLimit
	if rest != "" {
		parsed, err := strconv.Atoi(rest)
		if err != nil || parsed <= 0 {
			_, _ = fmt.Fprintln(t.stderr, "usage: log [count]")
			return
		}
		limit = parsed
	}
	records, err := t.history.Tail(limit)
	if err != nil {
		t.printError(err)
		return
	}
	if len(records) == 0 {
		_, _ = fmt.Fprintln(t.stdout, "(history is empty)")
		return
	}
	for _, record := range records {
		stamp := record.CreatedAt.UTC().Format(time.RFC3339)
		switch {
		case record.Question != "":
			_, _ = fmt.Fprintf(t.stdout, "[%s] %s\n", stamp, record.Question)
		default:
			_, _ = fmt.Fprintf(t.stdout, "[%s] (direct sql)\n", stamp)
		}
		if record.SQL != "" {
			_, _ = fmt.Fprintf(t.stdout, "  sql: %s\n", record.SQL)
			_, _ = fmt.Fprintf(t.stdout, "  rows: %d\n", record.RowCount)
		}
		if record.DirectResponse != "" {
			_, _ = fmt.Fprintf(t.stdout, "  answer: %s\n", record.DirectResponse)
		}
	}
}

func (t *Terminal) printAnswer(answer pipeline.Answer) {
	if answer.IsDirect() {
		_, _ = fmt.Fprintln(t.stdout, answer.DirectResponse)
		return
	}
	if answer.SQL != "" {
		_, _ = fmt.Fprintf(t.stdout, "sql> %s\n", answer.SQL)
	}
	render.Table(t.stdout, answer.Columns, answer.Rows)
	if answer.Truncated {
		_, _ = fmt.Fprintln(t.stdout, "(result truncated by the row budget)")
	}
}

func (t *Terminal) printError(err error) {
	var execErr *pipeline.ExecutionError
	if errors.As(err, &execErr) {
		_, _ = fmt.Fprintf(t.stderr, "Error: %v\n", execErr.Err)
		_, _ = fmt.Fprintf(t.stderr, "  sql: %s\n", execErr.SQL)
		return
	}
	_, _ = fmt.Fprintf(t.stderr, "Error: %v\n", err)
}
