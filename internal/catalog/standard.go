package catalog

import "github.com/eliteGoblin/focusd/app_perm/internal/domain"

// StandardFamily holds the runtime permissions requested on every device.
type StandardFamily struct{}

// NewStandardFamily creates the standard runtime permission family.
func NewStandardFamily() *StandardFamily {
	return &StandardFamily{}
}

func (f *StandardFamily) Family() domain.Family {
	return domain.FamilyStandard
}

func (f *StandardFamily) Name() string {
	return "Runtime permissions"
}

func (f *StandardFamily) MinLevel() domain.CapabilityLevel {
	return domain.LevelBase
}

// Permissions returns the standard identifiers in request order.
// Background location only exists from level 29 onward.
func (f *StandardFamily) Permissions() []domain.Permission {
	perms := permissions(
		"CAMERA",
		"RECORD_AUDIO",
		"ACCESS_FINE_LOCATION",
		"ACCESS_COARSE_LOCATION",
		"READ_EXTERNAL_STORAGE",
		"WRITE_EXTERNAL_STORAGE",
		"READ_CONTACTS",
		"WRITE_CONTACTS",
		"READ_PHONE_STATE",
		"CALL_PHONE",
		"READ_SMS",
		"SEND_SMS",
		"READ_CALENDAR",
		"WRITE_CALENDAR",
		"READ_CALL_LOG",
		"WRITE_CALL_LOG",
		"BODY_SENSORS",
	)
	return append(perms, domain.Permission{
		ID:    PermissionPrefix + "ACCESS_BACKGROUND_LOCATION",
		Since: domain.LevelBackgroundLocation,
	})
}

// Ensure StandardFamily implements FamilyPolicy.
var _ FamilyPolicy = (*StandardFamily)(nil)
