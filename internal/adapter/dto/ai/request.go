// Package ai holds the wire types for summary and transcript search.
package ai

// SummaryRequest asks for a summary of a meeting in the history list.
type SummaryRequest struct {
	Index int `json:"index" validate:"min=0"`
}

// SearchRequest asks a question against a meeting's transcript.
type SearchRequest struct {
	Index int    `json:"index" validate:"min=0"`
	Query string `json:"query" validate:"required"`
}
