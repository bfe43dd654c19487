// Package tasks implements the new-release synchronization core.
//
// # Components
//
//  1. [Resolver] : turns a user's saved artists into playable track URIs
//     - Fetches each artist's recent releases with bounded concurrency
//     - Filters by release date (today in UTC, or an explicit lower bound)
//     - Expands album candidates into their constituent track URIs
//
//  2. [Synchronizer] : per-user sync
//     - Lazily creates the user's managed playlist on first run
//     - Resolves new tracks and appends them, treating the upstream
//       snapshot identifier as the only success signal
//
//  3. [Scheduler] : the fleet control loop
//     - A guard flag keeps at most one fleet run in flight per process
//     - Automatic runs are suppressed while the latest logged run is
//       recent; manual runs bypass recency but not the guard
//     - Per-user syncs fan out concurrently and settle independently;
//       exactly one execution log entry is written per executed run
//
// Failures are isolated at the smallest scope: a failed artist fetch
// contributes an empty result, a failed user sync is counted and never
// cancels siblings, and only fleet-level errors mark a run FAILED.
package tasks
