package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/chzyer/readline"
)

// Run drives the terminal with a readline loop until quit, EOF, or context
// cancellation.
func Run(ctx context.Context, terminal *Terminal, inputHistoryFile string) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "askdb> ",
		HistoryFile:     inputHistoryFile,
		AutoComplete:    newCompleter(ctx, terminal),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("initialize terminal: %w", err)
	}
	defer func() { _ = rl.Close() }()

	_, _ = fmt.Fprintln(terminal.stdout, "askdb: ask your database in plain language.")
	_, _ = fmt.Fprintln(terminal.stdout, "Type help for commands, quit to exit.")
	_, _ = fmt.Fprintln(terminal.stdout)

	for {
		if ctx.Err() != nil {
			return nil
		}
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}
		if terminal.Dispatch(ctx, line) {
			return nil
		}
	}
}

// newCompleter offers command names plus table names when the gateway is
// reachable. Completion is best effort; a dead gateway just means fewer
// suggestions.
func newCompleter(ctx context.Context, terminal *Terminal) *readline.PrefixCompleter {
	items := []readline.PrefixCompleterInterface{
		readline.PcItem("help"),
		readline.PcItem("new"),
		readline.PcItem("tables"),
		readline.PcItem("sql"),
		readline.PcItem("log"),
		readline.PcItem("quit"),
		readline.PcItem("exit"),
	}

	tablesCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	tables, err := terminal.gateway.Tables(tablesCtx)
	if err == nil {
		schemaItems := make([]readline.PrefixCompleterInterface, 0, len(tables))
		for _, name := range tables {
			schemaItems = append(schemaItems, readline.PcItem(name))
		}
		items = append(items, readline.PcItem("schema", schemaItems...))
	} else {
		items = append(items, readline.PcItem("schema"))
	}

	return readline.NewPrefixCompleter(items...)
}
