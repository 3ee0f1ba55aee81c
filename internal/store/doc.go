// Package store provides the bounded signal log and its pub/sub feed.
//
// This package is internal to qapplet and keeps the most recent signal
// transmissions of an applet in memory. Entries are kept most-recent-first
// and the oldest entries are evicted once the configured capacity is
// exceeded. It implements a publish-subscribe pattern so the inspector can
// stream new entries to connected clients.
//
// The main components are:
//
//   - [Log]: Interface defining storage and subscription operations
//   - [MemoryLog]: In-memory implementation of Log with pub/sub
//
// The log is designed for concurrent access with proper synchronization.
// Subscribers receive updates via channels with non-blocking sends (slow
// subscribers will miss updates rather than block the system).
//
// Users of the applet library should not need to interact with this
// package directly. The log is managed internally by the applet lifecycle.
package store
