package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/triage-service/internal/store"
	apperrors "github.com/spec-kit/triage-service/pkg/util"
)

// SettingsHandler reads and updates the runtime triage settings.
type SettingsHandler struct {
	settings *store.SettingsStore
}

// NewSettingsHandler constructs handler.
func NewSettingsHandler(settings *store.SettingsStore) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

// Get GET /settings.
func (h *SettingsHandler) Get(c *fiber.Ctx) error {
	settings, err := h.settings.Load(c.Context())
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": settings})
}

// Update PUT /settings. The full record is replaced; poll interval changes
// take effect on the next monitoring start.
func (h *SettingsHandler) Update(c *fiber.Ctx) error {
	var settings store.Settings
	if err := c.BodyParser(&settings); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if settings.PollIntervalSec < 0 {
		return apperrors.NewValidationError("poll_interval_sec must not be negative", nil)
	}
	for _, phrase := range append(settings.Phrases.AwaitCustomer, settings.Phrases.Resolution...) {
		if phrase.Text == "" {
			return apperrors.NewValidationError("trigger phrases must not be empty", nil)
		}
	}
	if err := h.settings.Save(c.Context(), settings); err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": settings})
}
