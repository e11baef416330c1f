// Package ai talks to the Gemini generateContent API for meeting summaries
// and transcript Q&A, and prepares raw transcripts for prompting.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/Anvita004/transcriptpro/errors"
	"github.com/Anvita004/transcriptpro/pkg/config"
)

// GeminiClient is a minimal client for the Gemini generateContent endpoint.
type GeminiClient struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewGeminiClient creates a Gemini client from configuration.
func NewGeminiClient(cfg *config.AIConfig) *GeminiClient {
	return &GeminiClient{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		client:   &http.Client{Timeout: cfg.RequestTimeout},
	}
}

// Configured reports whether an API key is present. Unconfigured clients
// refuse requests instead of sending unauthenticated ones.
func (g *GeminiClient) Configured() bool {
	return g.apiKey != ""
}

// generateRequest is the generateContent request shape.
type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

// generateResponse is the subset of the response the collector reads. Only
// the first candidate's first part is used.
type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// GenerateSummary asks for a concise summary of the transcript.
func (g *GeminiClient) GenerateSummary(ctx context.Context, transcript string) (string, error) {
	prompt := fmt.Sprintf(
		"Summarize the following meeting transcript in a few concise paragraphs, covering the main topics discussed and any decisions made:\n\n%s",
		transcript)
	return g.generate(ctx, prompt)
}

// AnswerQuestion asks a question against the transcript.
func (g *GeminiClient) AnswerQuestion(ctx context.Context, transcript, question string) (string, error) {
	prompt := fmt.Sprintf(
		"Answer the question using only the following meeting transcript. If the transcript does not contain the answer, say so.\n\nTranscript:\n%s\n\nQuestion: %s",
		transcript, question)
	return g.generate(ctx, prompt)
}

func (g *GeminiClient) generate(ctx context.Context, prompt string) (string, error) {
	if !g.Configured() {
		return "", apperrors.ErrAIGatewayFailed(fmt.Errorf("no API key configured"))
	}

	reqBody := generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	}
	b, err := json.Marshal(reqBody)
	if err != nil {
		return "", apperrors.ErrAIGatewayFailed(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(b))
	if err != nil {
		return "", apperrors.ErrAIGatewayFailed(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", apperrors.ErrAIGatewayFailed(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperrors.ErrAIGatewayFailed(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", apperrors.ErrAIGatewayFailed(fmt.Errorf("gemini returned status %d: %s", resp.StatusCode, truncate(string(body), 200)))
	}

	var out generateResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", apperrors.ErrInvalidResponseFormat()
	}
	if len(out.Candidates) == 0 ||
		len(out.Candidates[0].Content.Parts) == 0 ||
		out.Candidates[0].Content.Parts[0].Text == "" {
		return "", apperrors.ErrInvalidResponseFormat()
	}
	return out.Candidates[0].Content.Parts[0].Text, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
