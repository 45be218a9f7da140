/*
Package ingest implements the ingestion and buffering layer of the telemetry engine.

An Ingestor receives raw stream events in arrival order and classifies them:

  - Critical events (chain/node start or end, or anything carrying a state
    snapshot) flush the pending batch first and are then applied immediately.
  - All other events, mostly streamed model tokens, are collected into a batch
    that is flushed as one atomic append after a fixed delay.

At most one flush timer is pending at a time. Closing the ingestor cancels the
timer and flushes synchronously, so no delivered event is ever dropped.
*/
package ingest
