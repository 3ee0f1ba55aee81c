// Package poller provides the repeating poll timer for qapplet.
//
// This package is internal to qapplet and owns the timer that triggers an
// applet's periodic polls. A [Scheduler] runs a single goroutine with a
// single timer; replacing a schedule means stopping the old scheduler and
// starting a new one, so there is never more than one active timer per
// applet.
//
// Time is read through a clockz.Clock so tests can drive ticks with a fake
// clock.
//
// Users of the applet library should not need to interact with this
// package directly. Polling is configured through the main applet package.
package poller
