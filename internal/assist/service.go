// Package assist answers questions about finished meetings: summaries and
// transcript Q&A backed by the Gemini gateway.
package assist

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	apperrors "github.com/Anvita004/transcriptpro/errors"
	"github.com/Anvita004/transcriptpro/internal/bus"
	"github.com/Anvita004/transcriptpro/internal/delivery"
	"github.com/Anvita004/transcriptpro/internal/domain/entities"
	"github.com/Anvita004/transcriptpro/internal/normalize"
	"github.com/Anvita004/transcriptpro/pkg/ai"
)

// SearchResult is one answered transcript question.
type SearchResult struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Service generates summaries and answers transcript questions for meetings
// in the history list.
type Service struct {
	coordinator *delivery.Coordinator
	client      *ai.GeminiClient
	logger      *zap.Logger
}

func NewService(coordinator *delivery.Coordinator, client *ai.GeminiClient, logger *zap.Logger) *Service {
	return &Service{coordinator: coordinator, client: client, logger: logger}
}

// Summary renders and cleans the transcript of the meeting at index, then
// asks the model for a summary.
func (s *Service) Summary(ctx context.Context, index int) (string, error) {
	rec, err := s.coordinator.RecordAtIndex(ctx, index)
	if err != nil {
		return "", err
	}

	cleaned := ai.CleanTranscript(normalize.RenderTranscript(rec.Transcript))
	if cleaned == "" {
		return "", apperrors.ErrEmptyCapture()
	}
	return s.client.GenerateSummary(ctx, cleaned)
}

// Search answers a question against the transcript of the meeting at index.
// The prompt carries each distinct utterance once, in capture order.
func (s *Service) Search(ctx context.Context, index int, query string) ([]SearchResult, error) {
	rec, err := s.coordinator.RecordAtIndex(ctx, index)
	if err != nil {
		return nil, err
	}

	full := distinctUtterances(rec.Transcript)
	if full == "" {
		return nil, apperrors.ErrEmptyCapture()
	}

	answer, err := s.client.AnswerQuestion(ctx, full, query)
	if err != nil {
		return nil, err
	}
	return []SearchResult{{Question: query, Answer: answer}}, nil
}

// distinctUtterances joins each unique transcript text once, keeping the
// order texts were first captured in. Growing caption fragments repeat the
// same text across entries; this collapses them without re-rendering.
func distinctUtterances(entries []entities.TranscriptEntry) string {
	seen := make(map[string]struct{}, len(entries))
	var texts []string
	for _, entry := range entries {
		text := strings.TrimSpace(entry.Text)
		if text == "" {
			continue
		}
		if _, ok := seen[text]; ok {
			continue
		}
		seen[text] = struct{}{}
		texts = append(texts, text)
	}
	return strings.Join(texts, "\n\n")
}

type summaryPayload struct {
	Index int `json:"index"`
}

type searchPayload struct {
	Index int    `json:"index"`
	Query string `json:"query"`
}

// SummaryResult is the reply payload of a summary message.
type SummaryResult struct {
	Summary string `json:"summary"`
}

// SearchResults is the reply payload of a search message.
type SearchResults struct {
	Results []SearchResult `json:"results"`
}

// RegisterBusHandlers installs the AI message handlers. Both hold their reply
// until the gateway call resolves.
func (s *Service) RegisterBusHandlers(d *bus.Dispatcher) {
	d.Register(bus.TypeGenerateSummary, func(ctx context.Context, req bus.Request, reply bus.ReplyFunc) {
		var payload summaryPayload
		if err := json.Unmarshal(req.Payload, &payload); err != nil {
			reply(bus.Fail(apperrors.ErrInvalidArgument("invalid summary payload")))
			return
		}
		go func() {
			summary, err := s.Summary(ctx, payload.Index)
			if err != nil {
				reply(bus.Fail(err))
				return
			}
			reply(bus.OK(SummaryResult{Summary: summary}))
		}()
	})

	d.Register(bus.TypeSearchTranscript, func(ctx context.Context, req bus.Request, reply bus.ReplyFunc) {
		var payload searchPayload
		if err := json.Unmarshal(req.Payload, &payload); err != nil {
			reply(bus.Fail(apperrors.ErrInvalidArgument("invalid search payload")))
			return
		}
		if strings.TrimSpace(payload.Query) == "" {
			reply(bus.Fail(apperrors.ErrInvalidArgument("query is required")))
			return
		}
		go func() {
			results, err := s.Search(ctx, payload.Index, payload.Query)
			if err != nil {
				reply(bus.Fail(err))
				return
			}
			reply(bus.OK(SearchResults{Results: results}))
		}()
	})
}
