// Package writer persists ProgSnap2 events together with the CodeStates they
// reference.
//
// BatchWriter is the transactional core. AddEventsWithCodeStates runs a
// fixed pipeline over a batch:
//
//  1. validate every event against the schema (findings become warnings)
//  2. infer grouping and project placement for CodeStates from the events
//     that reference them
//  3. store the CodeStates and replace caller temp ids with durable ids
//  4. insert every event in one MainTable transaction
//
// Event rows are all-or-nothing. CodeStates written in step 3 are not rolled
// back when step 4 fails; they are idempotent, so a retried batch does not
// duplicate them.
//
// EventWriter builds single events from per-session state and delegates to
// a BatchWriter. Factory hands out BatchWriters that each hold the database
// connection for the duration of one write.
package writer
