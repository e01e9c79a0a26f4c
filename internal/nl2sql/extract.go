package nl2sql

import (
	"encoding/json"
	"strings"
)

var statementPrefixes = []string{"select", "with", "show", "describe", "desc", "explain"}

type modelReply struct {
	Thoughts       string `json:"thoughts"`
	DirectResponse string `json:"direct_response"`
	SQL            string `json:"sql"`
	DisplayType    string `json:"display_type"`
}

// ExtractResult interprets a raw completion. Preference order: the JSON
// reply shape the prompt asks for, then a fenced SQL block, then text that
// itself starts like a statement. Anything else is ErrNoSQL.
func ExtractResult(completion string) (Result, error) {
	text := strings.TrimSpace(completion)
	if text == "" {
		return Result{}, ErrNoSQL
	}

	if reply, ok := parseJSONReply(text); ok {
		if sql := strings.TrimSpace(stripMarkdownSQL(reply.SQL)); sql != "" {
			return Result{
				SQL:         sql,
				DisplayType: normalizeDisplayType(reply.DisplayType),
				Thoughts:    strings.TrimSpace(reply.Thoughts),
			}, nil
		}
		if direct := strings.TrimSpace(reply.DirectResponse); direct != "" {
			return Result{
				DirectResponse: direct,
				Thoughts:       strings.TrimSpace(reply.Thoughts),
			}, nil
		}
		return Result{}, ErrNoSQL
	}

	if sql, ok := fencedSQL(text); ok {
		return Result{SQL: sql, DisplayType: DisplayTable}, nil
	}
	if sql, ok := bareStatement(text); ok {
		return Result{SQL: sql, DisplayType: DisplayTable}, nil
	}
	return Result{}, ErrNoSQL
}

func parseJSONReply(text string) (modelReply, bool) {
	candidate := stripMarkdownSQL(text)
	if !strings.HasPrefix(candidate, "{") {
		start := strings.Index(candidate, "{")
		end := strings.LastIndex(candidate, "}")
		if start < 0 || end <= start {
			return modelReply{}, false
		}
		candidate = candidate[start : end+1]
	}
	var reply modelReply
	if err := json.Unmarshal([]byte(candidate), &reply); err != nil {
		return modelReply{}, false
	}
	if reply.SQL == "" && reply.DirectResponse == "" && reply.Thoughts == "" && reply.DisplayType == "" {
		return modelReply{}, false
	}
	return reply, true
}

func fencedSQL(text string) (string, bool) {
	lower := strings.ToLower(text)
	start := strings.Index(lower, "```sql")
	offset := len("```sql")
	if start < 0 {
		start = strings.Index(lower, "```")
		offset = len("```")
	}
	if start < 0 {
		return "", false
	}
	rest := text[start+offset:]
	if end := strings.Index(rest, "```"); end >= 0 {
		rest = rest[:end]
	}
	statement := strings.TrimSpace(rest)
	if statement == "" || !startsLikeStatement(statement) {
		return "", false
	}
	return statement, true
}

func bareStatement(text string) (string, bool) {
	if startsLikeStatement(text) {
		return strings.TrimSpace(text), true
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if !startsLikeStatement(strings.TrimSpace(line)) {
			continue
		}
		// Take lines until one terminates the statement with a semicolon or
		// a blank line separates it from trailing prose.
		end := len(lines)
		for j := i; j < len(lines); j++ {
			candidate := strings.TrimSpace(lines[j])
			if candidate == "" {
				end = j
				break
			}
			if strings.HasSuffix(candidate, ";") {
				end = j + 1
				break
			}
		}
		statement := strings.Join(lines[i:end], "\n")
		statement = strings.TrimSuffix(strings.TrimSpace(statement), "```")
		return strings.TrimSpace(statement), true
	}
	return "", false
}

func startsLikeStatement(text string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	for _, prefix := range statementPrefixes {
		if !strings.HasPrefix(lower, prefix) {
			continue
		}
		if len(lower) == len(prefix) {
			return true
		}
		switch lower[len(prefix)] {
		case ' ', '\t', '\n', '(', '*':
			return true
		}
	}
	return false
}

func normalizeDisplayType(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if _, ok := displayTypes[value]; ok {
		return value
	}
	return DisplayTable
}

func stripMarkdownSQL(value string) string {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```sql")
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(trimmed, "```")
		return strings.TrimSpace(trimmed)
	}
	return trimmed
}
