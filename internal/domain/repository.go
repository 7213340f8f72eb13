package domain

import "context"

// Catalog provides the static permission definitions.
// Implementation: catalog.Registry.
type Catalog interface {
	// DefinitionsFor returns the families applicable at level, in dispatch order.
	DefinitionsFor(level CapabilityLevel) []Definition

	// Get returns the unfiltered definition of one family.
	Get(family Family) (Definition, bool)

	// Lookup returns the family defining a runtime permission identifier.
	// Returns ErrUnknownPermission for identifiers outside the catalog.
	Lookup(id string) (Family, Permission, error)
}

// Platform is the device permission subsystem.
// Request and navigation calls return immediately; outcomes arrive later as
// PlatformEvents that the hosting shell forwards to the Orchestrator.
type Platform interface {
	// QueryGrantStatus returns the current status of one identifier.
	QueryGrantStatus(ctx context.Context, id string) (GrantStatus, error)

	// RequestBatch shows one runtime prompt for all ids.
	// Fires exactly one EventBatchResult carrying token.
	RequestBatch(ctx context.Context, ids []string, token Token) error

	// NavigateToAllFilesSettings opens the app-specific all-files screen.
	// Returns ErrUnsupportedTarget when the screen cannot be resolved.
	NavigateToAllFilesSettings(ctx context.Context, packageID string, token Token) error

	// NavigateToAllFilesSettingsFallback opens the general all-files screen.
	NavigateToAllFilesSettingsFallback(ctx context.Context, token Token) error

	// NavigateToOverlaySettings opens the overlay permission screen.
	NavigateToOverlaySettings(ctx context.Context, packageID string, token Token) error

	// AllFilesGranted reports whether the manage-all-files grant is held.
	AllFilesGranted(ctx context.Context) (bool, error)

	// OverlayGranted reports whether the draw-on-top grant is held.
	OverlayGranted(ctx context.Context) (bool, error)
}

// EventSource delivers platform callbacks to the hosting shell.
type EventSource interface {
	Events() <-chan PlatformEvent
}

// Presenter renders results to the user (toast, console, log).
type Presenter interface {
	ShowSummary(summary Summary)
	ShowSpecialResult(result SpecialResult)
}

// Orchestrator drives one permission-acquisition pass per activation.
type Orchestrator interface {
	// Activate evaluates the catalog for level and dispatches requests.
	Activate(ctx context.Context, level CapabilityLevel) (*ActivationReport, error)

	// HandleBatchResult consumes a batched callback. Returns false if ignored.
	HandleBatchResult(ctx context.Context, token Token, outcomes []PermissionOutcome) bool

	// HandleSettingsReturn consumes a settings-flow return. Returns false if ignored.
	HandleSettingsReturn(ctx context.Context, token Token) bool

	// AllStandardGranted reports whether every standard identifier is granted.
	AllStandardGranted(ctx context.Context, level CapabilityLevel) bool

	// RequestPermission requests a single identifier applicable at level if it
	// is not granted. Returns ErrNotApplicable for identifiers above level.
	RequestPermission(ctx context.Context, level CapabilityLevel, id string) (bool, error)

	// Quiescent reports whether no request is awaiting a callback.
	Quiescent() bool
}

// GrantStore persists the device's grant state.
// Implementations: EncryptedGrantStore (SQLCipher), FileGrantStore (JSON).
type GrantStore interface {
	// Get returns the stored status; unknown identifiers are NotGranted.
	Get(id string) (GrantStatus, error)

	// Set stores the status of one identifier.
	Set(id string, status GrantStatus) error

	// All returns every stored identifier and status.
	All() (map[string]GrantStatus, error)

	// Clear removes all stored grants.
	Clear() error

	// Close releases resources (e.g., database connection).
	Close() error

	// Path returns the backing file path (for status output).
	Path() string
}

// SessionRegistry records which hosting shell instance last activated.
type SessionRegistry interface {
	// RegisterSession saves the session, replacing any previous one.
	RegisterSession(session Session) error

	// LastSession returns the most recent session or ErrNotRegistered.
	LastSession() (*Session, error)
}

// Prompter decides how the simulated user answers a permission prompt.
type Prompter interface {
	// Answer returns the user's decision for an identifier or a special grant ID.
	Answer(ctx context.Context, id string) (GrantStatus, error)
}

// ProcessManager answers questions about OS processes.
// Implementation: uses gopsutil for cross-platform support.
type ProcessManager interface {
	// IsRunning checks if a PID exists and is running.
	IsRunning(pid int) bool

	// GetCurrentPID returns the current process PID.
	GetCurrentPID() int
}

// KeyProvider supplies the key of the encrypted grant database.
type KeyProvider interface {
	// GetKey returns the key, provisioning one for a database that does not
	// exist yet. Returns ErrGrantKeyMissing when the database exists but its
	// key is gone.
	GetKey() ([]byte, error)
}
