package store

// DefaultCapacity is the number of entries a log keeps when no capacity is given.
const DefaultCapacity = 100

// Log defines the interface for a bounded, most-recent-first entry log.
//
// Log implementations must be safe for concurrent access. The pub/sub
// mechanism allows new entries to be pushed to connected clients
// (e.g., via Server-Sent Events).
type Log[T any] interface {
	// Push inserts an entry at the front of the log and notifies all
	// subscribers. The oldest entries are dropped once capacity is exceeded.
	Push(entry T)

	// All returns the entries, most recent first.
	// The returned slice is a snapshot; modifications do not affect the log.
	All() []T

	// Latest returns the most recently pushed entry.
	Latest() (T, bool)

	// Len returns the number of entries currently held.
	Len() int

	// Subscribe returns a channel that receives newly pushed entries.
	// The returned channel has a buffer; slow consumers may miss updates.
	// Caller must call Unsubscribe when done to prevent resource leaks.
	Subscribe() <-chan T

	// Unsubscribe removes a subscription and closes the channel.
	// Safe to call with a channel that was already unsubscribed.
	Unsubscribe(ch <-chan T)
}
