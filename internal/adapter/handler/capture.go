package handler

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	apperrors "github.com/Anvita004/transcriptpro/errors"
	"github.com/Anvita004/transcriptpro/internal/adapter/dto/agent"
	"github.com/Anvita004/transcriptpro/internal/hostpage"
	"github.com/Anvita004/transcriptpro/internal/session"
	"github.com/Anvita004/transcriptpro/pkg/token"
)

// Capture is the agent-facing ingest surface. The agent posts raw host-page
// observations here; interpretation happens downstream of the feed.
type Capture struct {
	feed       *hostpage.Feed
	controller *session.Controller
	tokens     *token.Manager
	logger     *zap.Logger
}

// NewCapture creates the ingest handler.
func NewCapture(feed *hostpage.Feed, controller *session.Controller, tokens *token.Manager, logger *zap.Logger) *Capture {
	return &Capture{feed: feed, controller: controller, tokens: tokens, logger: logger}
}

// Register announces an agent instance. When token auth is configured, the
// response carries the bearer token for subsequent ingest calls.
func (h *Capture) Register(c echo.Context) error {
	var req agent.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return HandleError(h.logger, c, apperrors.ErrInvalidArgument("invalid request body"))
	}
	if err := c.Validate(&req); err != nil {
		return HandleError(h.logger, c, apperrors.ErrInvalidArgument(err.Error()))
	}

	h.feed.SetAgentTab(req.TabID)
	h.logger.Info("agent registered", zap.String("agent_id", req.AgentID), zap.Int("tab_id", req.TabID))

	resp := agent.RegisterResponse{}
	if h.tokens.Enabled() {
		tok, err := h.tokens.Issue(req.AgentID)
		if err != nil {
			return HandleError(h.logger, c, apperrors.ErrInternal(err))
		}
		resp.Token = tok
	}
	return HandleSuccess(h.logger, c, resp)
}

// RegionSnapshot ingests the full current content of a capture region. The
// response carries any pending click directives for the agent.
func (h *Capture) RegionSnapshot(c echo.Context) error {
	var req agent.RegionSnapshotRequest
	if err := c.Bind(&req); err != nil {
		return HandleError(h.logger, c, apperrors.ErrInvalidArgument("invalid request body"))
	}
	if err := c.Validate(&req); err != nil {
		return HandleError(h.logger, c, apperrors.ErrInvalidArgument(err.Error()))
	}

	snap := hostpage.RegionSnapshot{
		Target:       hostpage.Target(req.Target),
		Missing:      req.Missing,
		ObservedAtMs: req.ObservedAtMs,
	}
	for _, item := range req.Items {
		snap.Items = append(snap.Items, hostpage.Item{Fields: item.Fields})
	}
	h.feed.PublishRegion(snap)

	return HandleSuccess(h.logger, c, agent.SnapshotResponse{
		Directives: toControlPayloads(h.controller.DrainDirectives()),
	})
}

// Controls ingests the set of control elements currently on the page.
func (h *Capture) Controls(c echo.Context) error {
	var req agent.ControlSnapshotRequest
	if err := c.Bind(&req); err != nil {
		return HandleError(h.logger, c, apperrors.ErrInvalidArgument("invalid request body"))
	}
	if err := c.Validate(&req); err != nil {
		return HandleError(h.logger, c, apperrors.ErrInvalidArgument(err.Error()))
	}

	snap := hostpage.ControlSnapshot{ObservedAtMs: req.ObservedAtMs}
	for _, ctrl := range req.Controls {
		snap.Controls = append(snap.Controls, hostpage.Control{Selector: ctrl.Selector, Label: ctrl.Label})
	}
	h.feed.PublishControls(snap)

	return HandleSuccess(h.logger, c, agent.SnapshotResponse{
		Directives: toControlPayloads(h.controller.DrainDirectives()),
	})
}

// Click ingests a user click on a control element.
func (h *Capture) Click(c echo.Context) error {
	var req agent.ClickRequest
	if err := c.Bind(&req); err != nil {
		return HandleError(h.logger, c, apperrors.ErrInvalidArgument("invalid request body"))
	}
	if err := c.Validate(&req); err != nil {
		return HandleError(h.logger, c, apperrors.ErrInvalidArgument(err.Error()))
	}

	h.feed.PublishClick(hostpage.ClickEvent{
		Control:      hostpage.Control{Selector: req.Control.Selector, Label: req.Control.Label},
		ObservedAtMs: req.ObservedAtMs,
	})
	return HandleSuccess(h.logger, c, nil)
}

// Title ingests the current host-page title.
func (h *Capture) Title(c echo.Context) error {
	var req agent.TitleRequest
	if err := c.Bind(&req); err != nil {
		return HandleError(h.logger, c, apperrors.ErrInvalidArgument("invalid request body"))
	}
	if err := c.Validate(&req); err != nil {
		return HandleError(h.logger, c, apperrors.ErrInvalidArgument(err.Error()))
	}

	h.feed.PublishTitle(req.Title)
	return HandleSuccess(h.logger, c, nil)
}

// TabClosed ingests a tab removal notification.
func (h *Capture) TabClosed(c echo.Context) error {
	var req agent.TabClosedRequest
	if err := c.Bind(&req); err != nil {
		return HandleError(h.logger, c, apperrors.ErrInvalidArgument("invalid request body"))
	}
	if err := c.Validate(&req); err != nil {
		return HandleError(h.logger, c, apperrors.ErrInvalidArgument(err.Error()))
	}

	h.feed.PublishTabClosed(req.TabID)
	return HandleSuccess(h.logger, c, nil)
}

func toControlPayloads(controls []hostpage.Control) []agent.ControlPayload {
	if len(controls) == 0 {
		return nil
	}
	out := make([]agent.ControlPayload, 0, len(controls))
	for _, ctrl := range controls {
		out = append(out, agent.ControlPayload{Selector: ctrl.Selector, Label: ctrl.Label})
	}
	return out
}
