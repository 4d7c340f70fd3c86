// Package poller implements the check worker.
//
// The main components are:
//
//   - [Client]: probes one check target and yields a single [Outcome]
//   - [Scheduler]: runs a polling cycle on a fixed period, one goroutine per check
//   - [Pipeline]: derives up/down from an outcome, persists it and alerts on transitions
//
// An alert is sent only when a check that has been probed before changes
// state. The first probe of a check never alerts.
package poller
