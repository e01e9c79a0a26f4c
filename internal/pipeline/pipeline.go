package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/askdb/askdb/internal/gatewayclient"
	"github.com/askdb/askdb/internal/history"
	"github.com/askdb/askdb/internal/nl2sql"
	"github.com/askdb/askdb/internal/observability"
	"github.com/askdb/askdb/internal/redact"
)

const defaultWindowSize = 5

// QueryGateway is the slice of the gateway client the pipeline depends on.
type QueryGateway interface {
	Query(ctx context.Context, sqlText string, maxRows int) (gatewayclient.QueryResult, error)
	Tables(ctx context.Context) ([]string, error)
	Schema(ctx context.Context, tables []string) ([]gatewayclient.TableDDL, error)
}

// Answer is the outcome of one question or raw statement: either a direct
// model response or an executed, redacted result set.
type Answer struct {
	Question       string
	SQL            string
	DirectResponse string
	DisplayType    string
	Columns        []string
	Rows           [][]any
	RowCount       int
	Truncated      bool
	Redacted       int
	Duration       time.Duration
}

func (a Answer) IsDirect() bool {
	return a.SQL == "" && a.DirectResponse != ""
}

// ExecutionError keeps the generated statement attached to the failure so
// callers can show what was attempted.
type ExecutionError struct {
	SQL string
	Err error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execute generated sql: %v", e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

type Options struct {
	Translator     nl2sql.Translator
	Gateway        QueryGateway
	Redactor       *redact.Redactor
	History        *history.Store
	Logger         *slog.Logger
	MaxRows        int
	WindowSize     int
	SchemaInPrompt bool
}

// Asker runs the full round trip: schema, translation, execution,
// redaction, persistence. It carries the rolling conversation window, so
// one Asker is one conversation.
type Asker struct {
	translator     nl2sql.Translator
	gateway        QueryGateway
	redactor       *redact.Redactor
	history        *history.Store
	logger         *slog.Logger
	maxRows        int
	windowSize     int
	schemaInPrompt bool

	mu    sync.Mutex
	turns []nl2sql.Turn
}

func New(opts Options) (*Asker, error) {
	if opts.Translator == nil {
		return nil, fmt.Errorf("translator is required")
	}
	if opts.Gateway == nil {
		return nil, fmt.Errorf("gateway is required")
	}
	windowSize := opts.WindowSize
	if windowSize <= 0 {
		windowSize = defaultWindowSize
	}
	return &Asker{
		translator:     opts.Translator,
		gateway:        opts.Gateway,
		redactor:       opts.Redactor,
		history:        opts.History,
		logger:         opts.Logger,
		maxRows:        opts.MaxRows,
		windowSize:     windowSize,
		schemaInPrompt: opts.SchemaInPrompt,
	}, nil
}

// Ask answers one natural language question.
func (a *Asker) Ask(ctx context.Context, question string) (Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Answer{}, nl2sql.ErrEmptyQuestion
	}

	start := time.Now()

	var schema []nl2sql.TableSchema
	if a.schemaInPrompt {
		ddls, err := a.gateway.Schema(ctx, nil)
		if err != nil {
			observability.ObserveQuestion("schema_error", time.Since(start))
			return Answer{}, fmt.Errorf("fetch schema: %w", err)
		}
		schema = make([]nl2sql.TableSchema, 0, len(ddls))
		for _, ddl := range ddls {
			schema = append(schema, nl2sql.TableSchema{Name: ddl.Name, DDL: ddl.DDL})
		}
	}

	translateStart := time.Now()
	translated, err := a.translator.Translate(ctx, nl2sql.Request{
		Question: question,
		Schema:   schema,
		History:  a.window(),
	})
	observability.ObserveLLMRequest(translationStatus(err), time.Since(translateStart))
	if err != nil {
		observability.ObserveQuestion("translation_error", time.Since(start))
		return Answer{}, fmt.Errorf("translate question: %w", err)
	}

	if translated.IsDirect() {
		answer := Answer{
			Question:       question,
			DirectResponse: translated.DirectResponse,
			DisplayType:    translated.DisplayType,
			Duration:       time.Since(start),
		}
		a.remember(nl2sql.Turn{Question: question, Answer: translated.DirectResponse})
		a.persist(history.Record{
			Question:       question,
			DirectResponse: translated.DirectResponse,
			DurationMS:     answer.Duration.Milliseconds(),
		})
		observability.ObserveQuestion("direct", answer.Duration)
		a.logAnswer(answer)
		return answer, nil
	}

	result, err := a.gateway.Query(ctx, translated.SQL, a.maxRows)
	if err != nil {
		if errors.Is(err, gatewayclient.ErrNotAllowed) {
			observability.IncrementStatementRefused()
		}
		observability.ObserveQuestion("execution_error", time.Since(start))
		return Answer{}, &ExecutionError{SQL: translated.SQL, Err: err}
	}

	rows, redactedCount := a.redactRows(result.Columns, result.Rows)

	answer := Answer{
		Question:    question,
		SQL:         translated.SQL,
		DisplayType: translated.DisplayType,
		Columns:     result.Columns,
		Rows:        rows,
		RowCount:    result.RowCount,
		Truncated:   result.Truncated,
		Redacted:    redactedCount,
		Duration:    time.Since(start),
	}
	a.remember(nl2sql.Turn{Question: question, SQL: translated.SQL})
	a.persist(history.Record{
		Question:   question,
		SQL:        translated.SQL,
		Columns:    result.Columns,
		Rows:       rows,
		RowCount:   result.RowCount,
		Truncated:  result.Truncated,
		DurationMS: answer.Duration.Milliseconds(),
	})
	observability.ObserveQuestion("answered", answer.Duration)
	a.logAnswer(answer)
	return answer, nil
}

// RunSQL executes a statement the user typed verbatim. It shares the
// redaction and history path with Ask but never touches the model or the
// conversation window.
func (a *Asker) RunSQL(ctx context.Context, sqlText string) (Answer, error) {
	sqlText = strings.TrimSpace(sqlText)
	if sqlText == "" {
		return Answer{}, fmt.Errorf("sql is required")
	}

	start := time.Now()
	result, err := a.gateway.Query(ctx, sqlText, a.maxRows)
	if err != nil {
		return Answer{}, &ExecutionError{SQL: sqlText, Err: err}
	}

	rows, redactedCount := a.redactRows(result.Columns, result.Rows)

	answer := Answer{
		SQL:         sqlText,
		DisplayType: nl2sql.DisplayTable,
		Columns:     result.Columns,
		Rows:        rows,
		RowCount:    result.RowCount,
		Truncated:   result.Truncated,
		Redacted:    redactedCount,
		Duration:    time.Since(start),
	}
	a.persist(history.Record{
		SQL:        sqlText,
		Columns:    result.Columns,
		Rows:       rows,
		RowCount:   result.RowCount,
		Truncated:  result.Truncated,
		DurationMS: answer.Duration.Milliseconds(),
	})
	return answer, nil
}

// Reset drops the conversation window, starting a fresh conversation.
func (a *Asker) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.turns = nil
}

func (a *Asker) window() []nl2sql.Turn {
	a.mu.Lock()
	defer a.mu.Unlock()
	turns := make([]nl2sql.Turn, len(a.turns))
	copy(turns, a.turns)
	return turns
}

func (a *Asker) remember(turn nl2sql.Turn) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.turns = append(a.turns, turn)
	if overflow := len(a.turns) - a.windowSize; overflow > 0 {
		a.turns = a.turns[overflow:]
	}
}

func (a *Asker) redactRows(columns []string, rows [][]any) ([][]any, int) {
	if a.redactor == nil {
		return rows, 0
	}
	redacted, count := a.redactor.Rows(columns, rows)
	if count > 0 {
		observability.AddRedactedValues(count)
	}
	return redacted, count
}

func (a *Asker) logAnswer(answer Answer) {
	if a.logger == nil {
		return
	}
	a.logger.Info("question answered",
		"question_chars", len(answer.Question),
		"has_sql", answer.SQL != "",
		"rows", answer.RowCount,
		"duration_ms", answer.Duration.Milliseconds(),
	)
}

func (a *Asker) persist(record history.Record) {
	if a.history == nil {
		return
	}
	if err := a.history.Append(record); err != nil {
		observability.IncrementHistoryWriteFailure()
		if a.logger != nil {
			var writeErr *history.WriteError
			if errors.As(err, &writeErr) {
				a.logger.Warn("history write failed", "path", writeErr.Path, "error", writeErr.Err)
			} else {
				a.logger.Warn("history write failed", "error", err)
			}
		}
	}
}

func translationStatus(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, nl2sql.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, nl2sql.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, nl2sql.ErrNoSQL):
		return "no_sql"
	default:
		return "error"
	}
}
