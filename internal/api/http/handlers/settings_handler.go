package handlers

import (
	"net/url"

	"github.com/gofiber/fiber/v2"

	"github.com/stanachoad2-cyber/MaintenanceApp/internal/api/dto"
	"github.com/stanachoad2-cyber/MaintenanceApp/internal/auth"
	"github.com/stanachoad2-cyber/MaintenanceApp/internal/domain"
	"github.com/stanachoad2-cyber/MaintenanceApp/internal/service"
	apperrors "github.com/stanachoad2-cyber/MaintenanceApp/pkg/util"
)

// SettingsHandler serves the dropdown lists.
type SettingsHandler struct {
	settings *service.SettingsService
}

// NewSettingsHandler constructs handler.
func NewSettingsHandler(settingsService *service.SettingsService) *SettingsHandler {
	return &SettingsHandler{settings: settingsService}
}

// Get handles GET /settings/:name.
func (h *SettingsHandler) Get(c *fiber.Ctx) error {
	list, err := h.settings.List(c.UserContext(), domain.SettingsName(c.Params("name")))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": settingsResponse(list)})
}

// AddItem handles POST /settings/:name/items.
func (h *SettingsHandler) AddItem(c *fiber.Ctx) error {
	actor, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}
	var req dto.SettingItemRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	list, err := h.settings.Add(c.UserContext(), actor, domain.SettingsName(c.Params("name")), domain.SettingItem{Name: req.Name, Code: req.Code})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": settingsResponse(list)})
}

// UpdateItem handles PUT /settings/:name/items/:item.
func (h *SettingsHandler) UpdateItem(c *fiber.Ctx) error {
	actor, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}
	item, err := itemParam(c)
	if err != nil {
		return err
	}
	var req dto.SettingItemRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	list, err := h.settings.Update(c.UserContext(), actor, domain.SettingsName(c.Params("name")), item, domain.SettingItem{Name: req.Name, Code: req.Code})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": settingsResponse(list)})
}

// RemoveItem handles DELETE /settings/:name/items/:item.
func (h *SettingsHandler) RemoveItem(c *fiber.Ctx) error {
	actor, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}
	item, err := itemParam(c)
	if err != nil {
		return err
	}
	list, err := h.settings.Remove(c.UserContext(), actor, domain.SettingsName(c.Params("name")), item)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": settingsResponse(list)})
}

// itemParam decodes :item; Thai item names arrive percent-encoded.
func itemParam(c *fiber.Ctx) (string, error) {
	item, err := url.PathUnescape(c.Params("item"))
	if err != nil {
		return "", apperrors.NewValidationError("invalid item name", nil)
	}
	return item, nil
}

func settingsResponse(list *domain.SettingsList) dto.SettingsResponse {
	resp := dto.SettingsResponse{Name: list.Name, Items: list.Items}
	if resp.Items == nil {
		resp.Items = []domain.SettingItem{}
	}
	if !list.UpdatedAt.IsZero() {
		updated := list.UpdatedAt
		resp.UpdatedAt = &updated
	}
	return resp
}
