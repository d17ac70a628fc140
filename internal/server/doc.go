// Package server exposes the image and matrix services over HTTP.
//
// The surface is deliberately thin: routing, request decoding, and error
// mapping only. All pipeline behavior lives in the service package.
//
// # Routes
//
// Images:
//   - POST   /images — upload (body = image bytes, Content-Type used as the
//     format hint), returns {"id": ...}
//   - GET    /images/{id} — original bytes; ?format= transcodes
//   - PUT    /images/{id} — replace content, rederive the pyramid
//   - DELETE /images/{id} — delete image, pyramid, and tiles
//   - GET    /images/{id}/pyramid/{level}/tiles/{row}/{col} — one stored
//     tile (PNG unless ?format= asks otherwise)
//
// Matrices:
//   - POST   /matrices — {"name": ..., "grid": [[...]]}
//   - GET    /matrices/{id} — {"grid": [[...]]}
//   - PUT    /matrices/{id} — {"grid": [[...]]}
//   - DELETE /matrices/{id}
//   - GET    /matrices/{a}/add/{b}, /matrices/{a}/subtract/{b},
//     /matrices/{a}/multiply/{b} — {"grid": result}
//
// # Error Mapping
//
// Service errors map to status codes by kind: unknown ids and out-of-grid
// tile coordinates are 404, an image whose derivation is unfinished or
// failed is 409, format problems are 415 (unsupported) or 400 (corrupt),
// dimension mismatches are 400, and storage-engine failures are 502.
// Everything else is a 500. Error bodies are {"error": "..."}.
package server
