// Package models defines domain entities and persistence interfaces for the betterblend service.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): immutable records parsed from the streaming provider
//   - [Track] : A ranked top track with artist/album references and popularity
//   - [Artist] : A ranked top artist with genres and popularity
//   - [AudioFeatures] : Per-track audio feature vector
//   - [CatalogSnapshot] : One listener's tracks, artists and features for a [Window]
//   - [BlendResult] / [BlendPlaylist] : Derived compatibility data and blended track sequences
//
// 2. Persistent Entities: Database-backed models with full lifecycle management
//   - [Listener] : A linked streaming account taking part in blends
//   - [Session] : A two-party blend session with its configuration, result and publication
//
// All persistent entities implement the Model interface providing ID generation, timestamps, and validation.
// The Repository[T] interface defines standard CRUD operations for database access.
package models
