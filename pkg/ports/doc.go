/*
Package ports defines the driven ports (interfaces) for the runlens engine.

These interfaces decouple the telemetry core from the transport and the
collaborator services, so the engine can be fed from a websocket, a stored
recording, or a test fixture.

# Key Interfaces

  - EventSource: Delivers raw stream messages for one run to a StreamHandler.
  - SchemaProvider: Returns the node and edge set that seeds status derivation.
  - DriftScorer: Scores the quality of a shown state.
  - TraceProvider: Returns sub-run records for a run.
  - Archive: Persists the raw event log of finished runs for offline replay.
*/
package ports
