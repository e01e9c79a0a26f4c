package nl2sql

import "context"

// TableSchema carries one table's definition into the prompt context.
type TableSchema struct {
	Name string `json:"name"`
	DDL  string `json:"ddl"`
}

// Turn is one completed exchange kept in the rolling conversation window.
type Turn struct {
	Question string `json:"question"`
	SQL      string `json:"sql,omitempty"`
	Answer   string `json:"answer,omitempty"`
}

type Request struct {
	Question string
	Schema   []TableSchema
	History  []Turn
}

// Result is the interpreted model reply: a SQL statement, or a direct
// textual answer when the model decides no query is needed.
type Result struct {
	SQL            string `json:"sql"`
	DirectResponse string `json:"direct_response,omitempty"`
	DisplayType    string `json:"display_type,omitempty"`
	Thoughts       string `json:"thoughts,omitempty"`
	Provider       string `json:"provider,omitempty"`
	Model          string `json:"model,omitempty"`
}

func (r Result) IsDirect() bool {
	return r.SQL == "" && r.DirectResponse != ""
}

type Translator interface {
	Translate(ctx context.Context, req Request) (Result, error)
}
