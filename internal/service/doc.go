// Package service ties the engine together: it owns the derivation pipeline
// (decode, pyramid, tile, encode, compress, persist) and exposes the CRUD
// operations the API surface calls.
//
// # Derivation
//
// Derivation is synchronous with upload and update: when Create or Update
// returns successfully, every level and tile has been persisted and the image
// is ready for tile reads. Levels are derived sequentially (each depends on
// the previous), while the tiles of one level are encoded, compressed, and
// stored concurrently.
//
// Tiles are stored PNG-encoded, then framed by the compress package. The
// image's manifest document records status, source format, per-level
// dimensions, and the blob id of every tile.
//
// # Consistency
//
// Operations on one image id are serialized by a per-image lock. An update
// writes all replacement artifacts first and swaps the manifest in a single
// document update; the old version's blobs are deleted only after the swap.
// A reader therefore sees either the old pyramid or the new one, never a
// mixture, and a tile read after an update returns regenerated bytes or
// reports the coordinate gone.
//
// If derivation fails partway, already-written tile blobs are deleted and
// the manifest is left in status "failed", which reads report distinctly
// from both "done" and an unknown id.
package service
