package ai

// SummaryResponse carries the generated meeting summary.
type SummaryResponse struct {
	Summary string `json:"summary"`
}

// SearchResult is one answered question.
type SearchResult struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// SearchResponse carries transcript Q&A results.
type SearchResponse struct {
	Results []SearchResult `json:"results"`
}
