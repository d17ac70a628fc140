// Package pyramid implements the multi-resolution pyramid engine: 2-D
// convolution with selectable border handling, Gaussian blur + stride-2
// subsampling into a strictly shrinking sequence of levels, and
// decomposition of a level into a fixed-size tile grid.
//
// # Level Derivation
//
// Level 0 is the source raster. Each following level is produced by
// convolving the previous one with a normalized Gaussian kernel and keeping
// every second row and column, so level n+1 has dimensions
// (ceil(w/2), ceil(h/2)). Reduction continues while both dimensions of the
// current level exceed the configured minimum, and a candidate level whose
// smaller dimension would land below the minimum is discarded: the last level
// satisfying the minimum is the coarsest one retained. A source already at or
// below the minimum yields a single-level pyramid. The same input always
// yields the same level count and per-level dimensions.
//
// # Border Policy
//
// The default border mode is BorderReplicate: samples outside the raster
// take the value of the nearest edge pixel. This avoids the edge darkening a
// zero-padded blur would introduce. Reflect and zero-pad modes exist for
// callers that need them, but one mode is fixed per Config and used for the
// whole pyramid.
//
// # Tiling
//
// Tile splits a raster into a ceil(w/ts) x ceil(h/ts) grid. Edge tiles keep
// their true partial dimensions instead of being padded, so placing every
// tile at (col*ts, row*ts) reconstructs the raster exactly; Assemble does
// precisely that.
package pyramid
