// Package domain contains core permission entities and interfaces.
// This is the innermost layer in Clean Architecture - no external dependencies.
package domain

import "time"

// Family groups permissions that share a request protocol and a minimum
// platform capability level.
type Family string

const (
	FamilyStandard       Family = "standard"
	FamilyExtendedMedia  Family = "extended_media"
	FamilyBluetooth      Family = "bluetooth"
	FamilyAllFilesAccess Family = "all_files_access"
	FamilyDrawOverlay    Family = "draw_overlay"
)

// IsSpecial reports whether the family is a single settings-screen grant
// rather than a list of runtime permission identifiers.
func (f Family) IsSpecial() bool {
	return f == FamilyAllFilesAccess || f == FamilyDrawOverlay
}

// SpecialID is the key under which a special grant is stored and prompted.
// Example: "special:all_files_access"
func (f Family) SpecialID() string {
	return "special:" + string(f)
}

// CapabilityLevel is the platform API level of the running device.
type CapabilityLevel int

// Capability thresholds used by the catalog and the dispatcher.
const (
	LevelBase               CapabilityLevel = 0
	LevelOverlay            CapabilityLevel = 23 // overlay permission concept
	LevelBackgroundLocation CapabilityLevel = 29
	LevelAllFiles           CapabilityLevel = 30 // manage-all-files grant
	LevelBluetooth          CapabilityLevel = 31
	LevelExtendedMedia      CapabilityLevel = 33
)

// GrantStatus is the platform's answer for a single permission identifier.
type GrantStatus string

const (
	Granted    GrantStatus = "granted"
	NotGranted GrantStatus = "not_granted"
)

// Permission is one runtime permission identifier.
type Permission struct {
	ID string
	// Since is the level at which the identifier becomes meaningful.
	// Zero means it applies wherever its family applies.
	Since CapabilityLevel
}

// Definition describes one family as applicable to a given level.
type Definition struct {
	Family      Family
	Name        string
	MinLevel    CapabilityLevel
	Permissions []Permission // empty for special families
}

// IDs returns the permission identifiers in catalog order.
func (d Definition) IDs() []string {
	ids := make([]string, len(d.Permissions))
	for i, p := range d.Permissions {
		ids[i] = p.ID
	}
	return ids
}

// Token correlates a dispatched request with its asynchronous callback.
type Token int

// NoToken marks a protocol that has nothing in flight.
const NoToken Token = 0

// Protocol names one of the three independent request protocols.
type Protocol string

const (
	ProtocolBatch    Protocol = "batch"
	ProtocolAllFiles Protocol = "all_files"
	ProtocolOverlay  Protocol = "overlay"
)

// Protocols lists the protocols in dispatch order.
var Protocols = []Protocol{ProtocolBatch, ProtocolAllFiles, ProtocolOverlay}

// ProtocolState is the position of a protocol in its state machine.
type ProtocolState string

const (
	StateIdle      ProtocolState = "idle"
	StateChecked   ProtocolState = "checked"
	StateRequested ProtocolState = "requested"
	StateResolved  ProtocolState = "resolved"
)

// PendingRequest is the batch of identifiers sent in one runtime prompt.
type PendingRequest struct {
	Token Token
	IDs   []string
}

// PermissionOutcome is one entry of a batched request callback.
type PermissionOutcome struct {
	ID     string
	Status GrantStatus
}

// Summary is the tally of the most recent batched request.
type Summary struct {
	Token      Token
	Granted    int
	Denied     int
	GrantedIDs []string
	DeniedIDs  []string
}

// SpecialResult is the re-queried state after a settings flow returns.
type SpecialResult struct {
	Family  Family
	Token   Token
	Granted bool
}

// ActivationReport captures what happened during a single activation pass.
type ActivationReport struct {
	Level      CapabilityLevel
	Evaluated  int
	Pending    PendingRequest
	Dispatched map[Protocol]Token
	States     map[Protocol]ProtocolState
	StartedAt  time.Time
	DurationMs int64
}

// EventKind distinguishes platform callbacks.
type EventKind string

const (
	EventBatchResult    EventKind = "batch_result"
	EventSettingsReturn EventKind = "settings_return"
)

// PlatformEvent is an asynchronous callback delivered by the platform.
// SettingsReturn events carry no outcomes.
type PlatformEvent struct {
	Kind     EventKind
	Token    Token
	Outcomes []PermissionOutcome
}

// Session records the hosting shell instance that last activated.
type Session struct {
	PID            int       `json:"pid"`
	PackageID      string    `json:"package_id"`
	Level          int       `json:"level"`
	StartedAt      time.Time `json:"started_at"`
	LastActivation time.Time `json:"last_activation"`
}
