// Package settings manages the stored configuration shared with the popup
// and viewer surfaces: operation mode, webhook delivery options, the
// collector-wide active toggle, and the status record shown to the user.
package settings

import (
	"context"

	"go.uber.org/zap"

	"github.com/Anvita004/transcriptpro/internal/infrastructure/cache"
	"github.com/Anvita004/transcriptpro/pkg/config"
)

// Operation modes.
const (
	ModeAuto   = "auto"
	ModeManual = "manual"
)

// Webhook body types.
const (
	BodyTypeSimple   = "simple"
	BodyTypeAdvanced = "advanced"
)

// Settings are the synced (cross-device) configuration keys.
type Settings struct {
	OperationMode   string `json:"operationMode" validate:"omitempty,oneof=auto manual"`
	WebhookURL      string `json:"webhookUrl" validate:"omitempty,url"`
	WebhookEnabled  bool   `json:"webhookEnabled"`
	WebhookBodyType string `json:"webhookBodyType" validate:"omitempty,oneof=simple advanced"`
}

// Status is the stored capture status record. Status 200 means capture is
// allowed; anything else suppresses capture and carries a user-facing
// message.
type Status struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// StatusOK is the default status record.
func StatusOK() Status {
	return Status{
		Status:  200,
		Message: "Transcript capture started. The transcript will be automatically downloaded when the meeting ends.",
	}
}

// Service reads and writes stored settings, seeding missing keys from the
// environment configuration.
type Service struct {
	kv       cache.Store
	defaults Settings
	logger   *zap.Logger
}

// NewService creates a settings service.
func NewService(kv cache.Store, cfg *config.Config, logger *zap.Logger) *Service {
	return &Service{
		kv: kv,
		defaults: Settings{
			OperationMode:   cfg.Capture.OperationMode,
			WebhookURL:      cfg.Webhook.URL,
			WebhookEnabled:  cfg.Webhook.Enabled,
			WebhookBodyType: cfg.Webhook.BodyType,
		},
		logger: logger,
	}
}

// Get returns the stored settings, falling back to environment defaults for
// keys never written.
func (s *Service) Get(ctx context.Context) (Settings, error) {
	out := s.defaults

	if _, err := cache.GetJSON(ctx, s.kv, cache.KeyOperationMode, &out.OperationMode); err != nil {
		return out, err
	}
	if _, err := cache.GetJSON(ctx, s.kv, cache.KeyWebhookURL, &out.WebhookURL); err != nil {
		return out, err
	}
	if _, err := cache.GetJSON(ctx, s.kv, cache.KeyWebhookEnabled, &out.WebhookEnabled); err != nil {
		return out, err
	}
	if _, err := cache.GetJSON(ctx, s.kv, cache.KeyWebhookBodyType, &out.WebhookBodyType); err != nil {
		return out, err
	}
	return out, nil
}

// Update stores the given settings.
func (s *Service) Update(ctx context.Context, in Settings) error {
	if err := cache.SetJSON(ctx, s.kv, cache.KeyOperationMode, in.OperationMode); err != nil {
		return err
	}
	if err := cache.SetJSON(ctx, s.kv, cache.KeyWebhookURL, in.WebhookURL); err != nil {
		return err
	}
	if err := cache.SetJSON(ctx, s.kv, cache.KeyWebhookEnabled, in.WebhookEnabled); err != nil {
		return err
	}
	return cache.SetJSON(ctx, s.kv, cache.KeyWebhookBodyType, in.WebhookBodyType)
}

// IsActive reports the collector-wide toggle; defaults to true when unset.
func (s *Service) IsActive(ctx context.Context) bool {
	active := true
	if _, err := cache.GetJSON(ctx, s.kv, cache.KeyIsActive, &active); err != nil {
		s.logger.Error("failed to read active flag", zap.Error(err))
		return true
	}
	return active
}

// SetActive stores the collector-wide toggle.
func (s *Service) SetActive(ctx context.Context, active bool) error {
	return cache.SetJSON(ctx, s.kv, cache.KeyIsActive, active)
}

// GetStatus returns the stored capture status, writing the default on
// first read.
func (s *Service) GetStatus(ctx context.Context) (Status, error) {
	var status Status
	ok, err := cache.GetJSON(ctx, s.kv, cache.KeyExtensionStatus, &status)
	if err != nil {
		return StatusOK(), err
	}
	if !ok {
		status = StatusOK()
		if err := cache.SetJSON(ctx, s.kv, cache.KeyExtensionStatus, status); err != nil {
			return status, err
		}
	}
	return status, nil
}

// SetStatus stores the capture status record.
func (s *Service) SetStatus(ctx context.Context, status Status) error {
	return cache.SetJSON(ctx, s.kv, cache.KeyExtensionStatus, status)
}
