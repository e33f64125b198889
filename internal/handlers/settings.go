package handlers

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/assemblydb/internal/middleware"
	"github.com/localnerve/assemblydb/internal/services"
	"github.com/localnerve/assemblydb/internal/types"
	"github.com/localnerve/assemblydb/internal/utils"
)

// SettingsHandler serves the runtime assembly settings and the numbering
// categories
type SettingsHandler struct {
	Settings  *services.Settings
	Lifecycle *services.Lifecycle
}

// SettingRequest is the body of POST /settings
type SettingRequest struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value" swaggertype:"object"`
}

// CategoryRequest is the body of POST /categories
type CategoryRequest struct {
	Name   string `json:"name"`
	Prefix string `json:"prefix"`
}

// GetSettings handles GET /api/settings
// @Summary Current settings
// @Tags Settings
// @Produce json
// @Success 200 {object} config.Assembly
// @Security CookieAuth
// @Router /settings [get]
func (h *SettingsHandler) GetSettings(c *fiber.Ctx) error {
	return c.JSON(h.Settings.Snapshot())
}

// UpdateSetting handles POST /api/settings
// @Summary Update one setting
// @Description Validate, persist and publish one setting; readers see the old or the new snapshot, never a mix
// @Tags Settings
// @Accept json
// @Produce json
// @Param body body SettingRequest true "Setting"
// @Success 200 {object} config.Assembly
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /settings [post]
func (h *SettingsHandler) UpdateSetting(c *fiber.Ctx) error {
	var body SettingRequest
	if err := parseBody(c, &body); err != nil {
		return utils.CoreErrorResponse(c, err, "updateSetting")
	}
	if body.Key == "" {
		return utils.CoreErrorResponse(c, types.NewError(types.KindInvalidInput, nil, "key is required"), "updateSetting")
	}

	snapshot, err := h.Settings.UpdateConfig(c.UserContext(), body.Key, body.Value, middleware.ActorFrom(c))
	if err != nil {
		return utils.CoreErrorResponse(c, err, "updateSetting")
	}
	return c.JSON(snapshot)
}

// ListCategories handles GET /api/categories
// @Summary List categories
// @Tags Settings
// @Produce json
// @Success 200 {array} models.Category
// @Security CookieAuth
// @Router /categories [get]
func (h *SettingsHandler) ListCategories(c *fiber.Ctx) error {
	cats, err := h.Lifecycle.ListCategories(c.UserContext())
	if err != nil {
		return utils.CoreErrorResponse(c, err, "listCategories")
	}
	return c.JSON(cats)
}

// CreateCategory handles POST /api/categories
// @Summary Create a category
// @Tags Settings
// @Accept json
// @Produce json
// @Param body body CategoryRequest true "Category"
// @Success 201 {object} models.Category
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /categories [post]
func (h *SettingsHandler) CreateCategory(c *fiber.Ctx) error {
	var body CategoryRequest
	if err := parseBody(c, &body); err != nil {
		return utils.CoreErrorResponse(c, err, "createCategory")
	}
	cat, err := h.Lifecycle.CreateCategory(c.UserContext(), body.Name, body.Prefix, middleware.ActorFrom(c))
	if err != nil {
		return utils.CoreErrorResponse(c, err, "createCategory")
	}
	return c.Status(fiber.StatusCreated).JSON(cat)
}
