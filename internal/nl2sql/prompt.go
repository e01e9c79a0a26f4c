package nl2sql

import (
	"strings"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	DisplayTable       = "response_table"
	DisplayLineChart   = "response_line_chart"
	DisplayBarChart    = "response_bar_chart"
	DisplayPieChart    = "response_pie_chart"
	DisplayScatterPlot = "response_scatter_plot"
	DisplayAreaChart   = "response_area_chart"
)

var displayTypes = map[string]struct{}{
	DisplayTable:       {},
	DisplayLineChart:   {},
	DisplayBarChart:    {},
	DisplayPieChart:    {},
	DisplayScatterPlot: {},
	DisplayAreaChart:   {},
}

const systemPrompt = `You translate natural language questions about a relational database into SQL.
Reply with a single JSON object and nothing else, in exactly this shape:
{"thoughts": "<brief reasoning>", "direct_response": "<answer used only when no query is needed>", "sql": "<one SQL statement or empty>", "display_type": "<rendering hint>"}
Rules:
- Generate exactly one read-only statement (SELECT or WITH). Never write statements that modify data or schema.
- Use only tables and columns from the provided definitions.
- Add LIMIT 50 unless the question asks for a specific number of rows.
- If the question needs no query, leave "sql" empty and answer in "direct_response".
- "display_type" is one of: response_table, response_line_chart, response_bar_chart, response_pie_chart, response_scatter_plot, response_area_chart.
- Answer in the language of the question.`

// BuildMessages assembles the chat payload for one question. The question
// must be non-empty after trimming; nothing is sent over the network before
// this check.
func BuildMessages(req Request, fewShot bool) ([]Message, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	messages := make([]Message, 0, 2+2*len(fewShotExamples)+2*len(req.History))
	messages = append(messages, Message{Role: "system", Content: systemPrompt})
	if fewShot {
		for _, example := range fewShotExamples {
			messages = append(messages,
				Message{Role: "user", Content: example.Question},
				Message{Role: "assistant", Content: example.Reply},
			)
		}
	}
	for _, turn := range req.History {
		previous := strings.TrimSpace(turn.Question)
		if previous == "" {
			continue
		}
		reply := turn.SQL
		if reply == "" {
			reply = turn.Answer
		}
		messages = append(messages,
			Message{Role: "user", Content: previous},
			Message{Role: "assistant", Content: reply},
		)
	}
	messages = append(messages, Message{Role: "user", Content: userPrompt(question, req.Schema)})
	return messages, nil
}

func userPrompt(question string, schema []TableSchema) string {
	var b strings.Builder
	if len(schema) > 0 {
		b.WriteString("Table definitions:\n")
		for _, table := range schema {
			ddl := strings.TrimSpace(table.DDL)
			if ddl == "" {
				ddl = table.Name
			}
			b.WriteString(ddl)
			b.WriteString("\n\n")
		}
	}
	b.WriteString("Question:\n")
	b.WriteString(question)
	return b.String()
}
