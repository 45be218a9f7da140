/*
Package session implements the run-view controller.

A View is the explicit context object for one run being watched: its raw event
log, its snapshot and replay store, and its run identity. Each View is owned by
exactly one ingestion stream and is never shared between runs, so concurrent
viewers stay independent. The Manager keys Views by a local view ID and discards
them with no persistence obligation.
*/
package session
