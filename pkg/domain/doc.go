/*
Package domain contains the core data model and pure derivations of the run telemetry engine.

It defines the stream Event, the state Snapshot, and the functions that turn an
ordered event log into something displayable. This package is kept pure and free
of I/O, timers, and locking; the ingest, replay and session packages own all
mutable state.

# Key Entities

  - Event: One message from the agent execution stream (lifecycle, token, tool).
  - Snapshot: Full graph state captured when a node ends.
  - Diff: Leaf-level structural changes between two state mappings.
  - DeriveStatus: Active/next/done classification of graph nodes, recomputed from scratch.
  - FilterEvents: The subsequence of events visible at a replay cursor.
  - GraphSchema: Node and edge set used to seed status derivation.
*/
package domain
