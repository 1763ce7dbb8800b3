// Package event defines the lock lifecycle events and the pub-sub bus that
// decouples the lock store from observers (logging, the TUI monitor) without
// direct dependencies.
package event

import "time"

// Event is the interface that all events must implement.
type Event interface {
	// EventType returns a string identifier for this event type.
	// Convention: "category.action" (e.g., "lock.acquired", "head.advanced")
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// baseEvent provides common fields for all events.
// Embed this in concrete event types to satisfy the Event interface.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// -----------------------------------------------------------------------------
// Lock Lifecycle Events
// -----------------------------------------------------------------------------

// LockAcquiredEvent is emitted when a holder establishes a new lock record.
type LockAcquiredEvent struct {
	baseEvent
	ScopeKey string // Storage key of the (remote, branch) scope
	FilePath string // Locked file
	HolderID string // Identity that now holds the lock
	Mode     string // READING or WRITING
}

// NewLockAcquiredEvent creates a LockAcquiredEvent.
func NewLockAcquiredEvent(scopeKey, filePath, holderID, mode string) LockAcquiredEvent {
	return LockAcquiredEvent{
		baseEvent: newBaseEvent("lock.acquired"),
		ScopeKey:  scopeKey,
		FilePath:  filePath,
		HolderID:  holderID,
		Mode:      mode,
	}
}

// LockRefreshedEvent is emitted when an existing holder re-posts status on a
// file it already holds, bumping the expiry (and possibly upgrading the mode).
type LockRefreshedEvent struct {
	baseEvent
	ScopeKey string
	FilePath string
	HolderID string
	Mode     string
}

// NewLockRefreshedEvent creates a LockRefreshedEvent.
func NewLockRefreshedEvent(scopeKey, filePath, holderID, mode string) LockRefreshedEvent {
	return LockRefreshedEvent{
		baseEvent: newBaseEvent("lock.refreshed"),
		ScopeKey:  scopeKey,
		FilePath:  filePath,
		HolderID:  holderID,
		Mode:      mode,
	}
}

// LockReleasedEvent is emitted when a holder explicitly releases a lock.
type LockReleasedEvent struct {
	baseEvent
	ScopeKey string
	FilePath string
	HolderID string
}

// NewLockReleasedEvent creates a LockReleasedEvent.
func NewLockReleasedEvent(scopeKey, filePath, holderID string) LockReleasedEvent {
	return LockReleasedEvent{
		baseEvent: newBaseEvent("lock.released"),
		ScopeKey:  scopeKey,
		FilePath:  filePath,
		HolderID:  holderID,
	}
}

// LockExpiredEvent is emitted when a record is removed because its expiry
// passed with no refresh, either by the sweep or lazily on read.
type LockExpiredEvent struct {
	baseEvent
	ScopeKey string
	FilePath string
	HolderID string
}

// NewLockExpiredEvent creates a LockExpiredEvent.
func NewLockExpiredEvent(scopeKey, filePath, holderID string) LockExpiredEvent {
	return LockExpiredEvent{
		baseEvent: newBaseEvent("lock.expired"),
		ScopeKey:  scopeKey,
		FilePath:  filePath,
		HolderID:  holderID,
	}
}

// HeadAdvancedEvent is emitted when a release with a new revision moves the
// scope's repo head.
type HeadAdvancedEvent struct {
	baseEvent
	ScopeKey string
	OldHead  string
	NewHead  string
}

// NewHeadAdvancedEvent creates a HeadAdvancedEvent.
func NewHeadAdvancedEvent(scopeKey, oldHead, newHead string) HeadAdvancedEvent {
	return HeadAdvancedEvent{
		baseEvent: newBaseEvent("head.advanced"),
		ScopeKey:  scopeKey,
		OldHead:   oldHead,
		NewHead:   newHead,
	}
}
