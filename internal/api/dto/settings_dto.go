package dto

import (
	"time"

	"github.com/stanachoad2-cyber/MaintenanceApp/internal/domain"
)

// SettingItemRequest payload for adding or replacing a dropdown entry.
type SettingItemRequest struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

// SettingsResponse is one dropdown list.
type SettingsResponse struct {
	Name      domain.SettingsName  `json:"name"`
	Items     []domain.SettingItem `json:"items"`
	UpdatedAt *time.Time           `json:"updated_at,omitempty"`
}
