// Package event provides a pub-sub event bus for decoupled observation of
// lock state changes.
//
// The lock store publishes an event for every record transition; observers
// such as the structured logger and the lock monitor subscribe without the
// store knowing about them.
//
// # Main Types
//
//   - [Event]: Interface that all events must implement, providing EventType() and Timestamp()
//   - [Bus]: Synchronous pub-sub event dispatcher with thread-safe operations
//   - [Handler]: Function type for event handlers (func(Event))
//
// # Event Categories
//
// Lock lifecycle:
//   - [LockAcquiredEvent]: a holder established a new record
//   - [LockRefreshedEvent]: an existing holder bumped its record's expiry
//   - [LockReleasedEvent]: a holder explicitly released a record
//   - [LockExpiredEvent]: a record was removed by passive expiry
//
// Revision tracking:
//   - [HeadAdvancedEvent]: a release moved the scope's repo head
//
// # Thread Safety
//
// The [Bus] type is safe for concurrent use. Handlers are called
// synchronously and protected against panics - a panicking handler will not
// prevent other handlers from being called.
//
// # Basic Usage
//
//	bus := event.NewBus()
//
//	bus.Subscribe("lock.acquired", func(e event.Event) {
//	    acq := e.(event.LockAcquiredEvent)
//	    log.Printf("%s locked %s (%s)", acq.HolderID, acq.FilePath, acq.Mode)
//	})
//
//	bus.Publish(event.NewLockAcquiredEvent(key, "src/auth.ts", "alice", "WRITING"))
package event
