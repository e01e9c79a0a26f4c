package nl2sql

import "errors"

var (
	// ErrEmptyQuestion rejects blank input before any network call is made.
	ErrEmptyQuestion = errors.New("question is empty")

	// ErrUnauthorized maps 401/403 from the completion API.
	ErrUnauthorized = errors.New("completion API rejected the API key")

	// ErrRateLimited maps 429 from the completion API.
	ErrRateLimited = errors.New("completion API rate limit exceeded")

	// ErrNoSQL means the completion carried neither a recognizable SQL
	// statement nor a direct answer.
	ErrNoSQL = errors.New("no SQL statement found in completion")
)
