// Package repositories provides persistence layer implementations for all model types.
//
// UserRepository, ArtistRepository, and PlaylistRepository implement
// models.Repository-style CRUD over SQLite; ExecutionLogRepository is
// deliberately narrower: the execution log is append-only, so it exposes only
// Insert, Latest, and EnsureIndex.
package repositories
