/*
Package replay provides the snapshot log and the live/replay cursor of a run view.

The Store is append-only. In live mode the cursor follows the newest snapshot;
in replay mode it stays where the operator left it. The cursor is clamped on
every access, so it is always a valid index whenever the log is non-empty and
reports 0 when the log is empty.

The Store is not safe for concurrent use; the session.View that owns it
serializes access.
*/
package replay
