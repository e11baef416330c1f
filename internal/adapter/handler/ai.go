package handler

import (
	"encoding/json"
	"fmt"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	apperrors "github.com/Anvita004/transcriptpro/errors"
	aidto "github.com/Anvita004/transcriptpro/internal/adapter/dto/ai"
	"github.com/Anvita004/transcriptpro/internal/assist"
	"github.com/Anvita004/transcriptpro/internal/bus"
)

// AI exposes meeting summaries and transcript Q&A.
type AI struct {
	dispatcher *bus.Dispatcher
	logger     *zap.Logger
}

// NewAI creates the AI handler.
func NewAI(dispatcher *bus.Dispatcher, logger *zap.Logger) *AI {
	return &AI{dispatcher: dispatcher, logger: logger}
}

// Summary generates a summary for a meeting in the history list.
func (h *AI) Summary(c echo.Context) error {
	var req aidto.SummaryRequest
	if err := c.Bind(&req); err != nil {
		return HandleError(h.logger, c, apperrors.ErrInvalidArgument("invalid request body"))
	}
	if err := c.Validate(&req); err != nil {
		return HandleError(h.logger, c, apperrors.ErrInvalidArgument(err.Error()))
	}

	resp, err := h.dispatcher.Send(c.Request().Context(), bus.TypeGenerateSummary, req)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	if !resp.Success {
		return HandleError(h.logger, c, fmt.Errorf("%s", resp.Error))
	}

	var result assist.SummaryResult
	if err := json.Unmarshal(resp.Payload, &result); err != nil {
		return HandleError(h.logger, c, apperrors.ErrInternal(err))
	}
	return HandleSuccess(h.logger, c, aidto.SummaryResponse{Summary: result.Summary})
}

// Search answers a question against a meeting's transcript.
func (h *AI) Search(c echo.Context) error {
	var req aidto.SearchRequest
	if err := c.Bind(&req); err != nil {
		return HandleError(h.logger, c, apperrors.ErrInvalidArgument("invalid request body"))
	}
	if err := c.Validate(&req); err != nil {
		return HandleError(h.logger, c, apperrors.ErrInvalidArgument(err.Error()))
	}

	resp, err := h.dispatcher.Send(c.Request().Context(), bus.TypeSearchTranscript, req)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	if !resp.Success {
		return HandleError(h.logger, c, fmt.Errorf("%s", resp.Error))
	}

	var result assist.SearchResults
	if err := json.Unmarshal(resp.Payload, &result); err != nil {
		return HandleError(h.logger, c, apperrors.ErrInternal(err))
	}

	out := aidto.SearchResponse{Results: make([]aidto.SearchResult, 0, len(result.Results))}
	for _, r := range result.Results {
		out.Results = append(out.Results, aidto.SearchResult{Question: r.Question, Answer: r.Answer})
	}
	return HandleSuccess(h.logger, c, out)
}
