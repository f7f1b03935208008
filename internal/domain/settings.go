package domain

import "time"

// SettingsName identifies one of the dropdown lists.
type SettingsName string

const (
	SettingsDepartments        SettingsName = "departments"
	SettingsJobTypes           SettingsName = "job_types"
	SettingsSAL01Areas         SettingsName = "sal01_areas"
	SettingsSAL02Areas         SettingsName = "sal02_areas"
	SettingsCauseCategories    SettingsName = "cause_categories"
	SettingsMaintenanceResults SettingsName = "maintenance_results"
)

// AllSettings lists every known settings list.
var AllSettings = []SettingsName{
	SettingsDepartments,
	SettingsJobTypes,
	SettingsSAL01Areas,
	SettingsSAL02Areas,
	SettingsCauseCategories,
	SettingsMaintenanceResults,
}

// Valid reports whether n is a known list.
func (n SettingsName) Valid() bool {
	for _, known := range AllSettings {
		if n == known {
			return true
		}
	}
	return false
}

// HasCodes reports whether items of this list carry a code.
func (n SettingsName) HasCodes() bool {
	return n == SettingsDepartments
}

// SettingItem is one dropdown entry. Code is only used by departments.
type SettingItem struct {
	Name string `json:"name" yaml:"name"`
	Code string `json:"code,omitempty" yaml:"code,omitempty"`
}

// SettingsList is a named dropdown list.
type SettingsList struct {
	Name      SettingsName
	Items     []SettingItem
	UpdatedAt time.Time
}

// Find returns the item with the given name.
func (l *SettingsList) Find(name string) (SettingItem, bool) {
	for _, item := range l.Items {
		if item.Name == name {
			return item, true
		}
	}
	return SettingItem{}, false
}

// DepartmentCode resolves a department's ticket prefix.
func (l *SettingsList) DepartmentCode(department string) string {
	if l == nil {
		return DefaultDepartmentCode
	}
	if item, ok := l.Find(department); ok && item.Code != "" {
		return item.Code
	}
	return DefaultDepartmentCode
}
