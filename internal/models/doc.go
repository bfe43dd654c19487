// Package models defines domain entities and persistence interfaces for the release radar service.
//
// The package contains two categories of types:
//
// 1. Transient values produced during one synchronization run:
//   - [Release] : An album, single, or appearance fetched from the upstream catalog
//   - [ReleaseArtist] : Credited artist on a release
//
// 2. Persistent Entities: Database-backed models with full lifecycle management
//   - [User] : Registered accounts with Spotify credentials
//   - [Artist] : A user's followed artist (keyed per user)
//   - [Playlist] : The managed destination playlist, created lazily per user
//   - [ExecutionLog] : Append-only record of scheduler run outcomes
//
// All persistent entities implement the Model interface providing ID generation, timestamps, and validation.
// The Repository[T] interface defines standard CRUD operations for database access.
package models
