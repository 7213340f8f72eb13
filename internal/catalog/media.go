package catalog

import "github.com/eliteGoblin/focusd/app_perm/internal/domain"

// ExtendedMediaFamily holds the granular media and notification permissions.
type ExtendedMediaFamily struct{}

// NewExtendedMediaFamily creates the extended media permission family.
func NewExtendedMediaFamily() *ExtendedMediaFamily {
	return &ExtendedMediaFamily{}
}

func (f *ExtendedMediaFamily) Family() domain.Family {
	return domain.FamilyExtendedMedia
}

func (f *ExtendedMediaFamily) Name() string {
	return "Media and notifications"
}

func (f *ExtendedMediaFamily) MinLevel() domain.CapabilityLevel {
	return domain.LevelExtendedMedia
}

func (f *ExtendedMediaFamily) Permissions() []domain.Permission {
	return permissions(
		"READ_MEDIA_IMAGES",
		"READ_MEDIA_VIDEO",
		"READ_MEDIA_AUDIO",
		"POST_NOTIFICATIONS",
	)
}

// BluetoothFamily holds the nearby-device permissions.
type BluetoothFamily struct{}

// NewBluetoothFamily creates the bluetooth permission family.
func NewBluetoothFamily() *BluetoothFamily {
	return &BluetoothFamily{}
}

func (f *BluetoothFamily) Family() domain.Family {
	return domain.FamilyBluetooth
}

func (f *BluetoothFamily) Name() string {
	return "Bluetooth"
}

func (f *BluetoothFamily) MinLevel() domain.CapabilityLevel {
	return domain.LevelBluetooth
}

func (f *BluetoothFamily) Permissions() []domain.Permission {
	return permissions(
		"BLUETOOTH_SCAN",
		"BLUETOOTH_CONNECT",
		"BLUETOOTH_ADVERTISE",
	)
}

var (
	_ FamilyPolicy = (*ExtendedMediaFamily)(nil)
	_ FamilyPolicy = (*BluetoothFamily)(nil)
)
