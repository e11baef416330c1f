package handler

import (
	"context"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	apperrors "github.com/Anvita004/transcriptpro/errors"
	"github.com/Anvita004/transcriptpro/internal/settings"
)

// SessionAborter tears down a live capture session and discards what it
// captured. Implemented by the session controller.
type SessionAborter interface {
	AbortLiveSession(ctx context.Context) error
}

// SettingsHandler exposes the stored settings, the capture toggle, and the
// status record.
type SettingsHandler struct {
	service *settings.Service
	aborter SessionAborter
	logger  *zap.Logger
}

// NewSettings creates the settings handler. aborter may be nil.
func NewSettings(service *settings.Service, aborter SessionAborter, logger *zap.Logger) *SettingsHandler {
	return &SettingsHandler{service: service, aborter: aborter, logger: logger}
}

// Get returns the stored settings.
func (h *SettingsHandler) Get(c echo.Context) error {
	cfg, err := h.service.Get(c.Request().Context())
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, cfg)
}

// Update replaces the stored settings.
func (h *SettingsHandler) Update(c echo.Context) error {
	var req settings.Settings
	if err := c.Bind(&req); err != nil {
		return HandleError(h.logger, c, apperrors.ErrInvalidArgument("invalid request body"))
	}
	if err := c.Validate(&req); err != nil {
		return HandleError(h.logger, c, apperrors.ErrInvalidArgument(err.Error()))
	}

	if err := h.service.Update(c.Request().Context(), req); err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, req)
}

type activeBody struct {
	Active bool `json:"active"`
}

// GetActive returns whether capture is enabled.
func (h *SettingsHandler) GetActive(c echo.Context) error {
	return HandleSuccess(h.logger, c, activeBody{Active: h.service.IsActive(c.Request().Context())})
}

// SetActive toggles capture on or off. Turning it off tears down a live
// session and discards everything it captured.
func (h *SettingsHandler) SetActive(c echo.Context) error {
	var req activeBody
	if err := c.Bind(&req); err != nil {
		return HandleError(h.logger, c, apperrors.ErrInvalidArgument("invalid request body"))
	}

	if err := h.service.SetActive(c.Request().Context(), req.Active); err != nil {
		return HandleError(h.logger, c, err)
	}
	if !req.Active && h.aborter != nil {
		if err := h.aborter.AbortLiveSession(c.Request().Context()); err != nil {
			return HandleError(h.logger, c, err)
		}
	}
	return HandleSuccess(h.logger, c, req)
}

// Status returns the current capture status record.
func (h *SettingsHandler) Status(c echo.Context) error {
	status, err := h.service.GetStatus(c.Request().Context())
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, status)
}
