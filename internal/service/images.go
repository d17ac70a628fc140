package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/image-pyramid-service/internal/compress"
	"github.com/ironsheep/image-pyramid-service/internal/pyramid"
	"github.com/ironsheep/image-pyramid-service/internal/raster"
	"github.com/ironsheep/image-pyramid-service/internal/storage"
)

var (
	// ErrNotReady is returned for tile reads against an image whose
	// derivation has not finished (possible only after a crash mid-derive,
	// since derivation is synchronous).
	ErrNotReady = errors.New("image derivation not finished")

	// ErrDerivationFailed is returned for reads against an image whose last
	// derivation failed.
	ErrDerivationFailed = errors.New("image derivation failed")
)

// Manifest status values, persisted in the image document.
const (
	statusProcessing = "processing"
	statusDone       = "done"
	statusFailed     = "failed"
)

// tileFormat is the canonical storage format for tile payloads.
const tileFormat = raster.FormatPNG

// levelManifest describes one derived pyramid level and its tile grid.
type levelManifest struct {
	Width  int        `json:"width"`
	Height int        `json:"height"`
	Rows   int        `json:"rows"`
	Cols   int        `json:"cols"`
	Tiles  [][]string `json:"tiles"` // [row][col] -> blob id
}

// imageManifest is the metadata document stored per image.
type imageManifest struct {
	Status       string          `json:"status"`
	Format       string          `json:"format"`
	Width        int             `json:"width"`
	Height       int             `json:"height"`
	OriginalBlob string          `json:"original_blob"`
	Levels       []levelManifest `json:"levels"`
}

// Images implements the image half of the core API: CRUD plus tile reads,
// with synchronous pyramid derivation on every content change.
type Images struct {
	store    storage.Store
	builder  *pyramid.Builder
	codec    compress.Codec
	checksum compress.Checksum

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewImages wires an image service over the given store and pyramid
// configuration.
func NewImages(store storage.Store, builder *pyramid.Builder, codec compress.Codec) *Images {
	return &Images{
		store:    store,
		builder:  builder,
		codec:    codec,
		checksum: compress.CRC32,
		locks:    make(map[string]*sync.Mutex),
	}
}

// lock returns the mutex serializing operations on one image id.
func (s *Images) lock(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.locks[id]
	if !ok {
		m = &sync.Mutex{}
		s.locks[id] = m
	}
	return m
}

func (s *Images) dropLock(id string) {
	s.mu.Lock()
	delete(s.locks, id)
	s.mu.Unlock()
}

// Create decodes the uploaded bytes, derives the full pyramid, persists every
// tile, and returns the new image id. The hint, when non-empty, names the
// upload's format ("png", "image/jpeg", ...); otherwise the content is
// sniffed.
//
// On derivation failure the image exists in status "failed": readable as a
// distinct condition, with no partial tile set left behind. The id is
// returned alongside the error in that case so the caller can still address
// the failed record.
func (s *Images) Create(ctx context.Context, data []byte, hint string) (string, error) {
	src, format, err := s.decode(data, hint)
	if err != nil {
		return "", err
	}

	originalID, err := s.store.PutBlob(ctx, data)
	if err != nil {
		return "", err
	}

	man := imageManifest{
		Status:       statusProcessing,
		Format:       string(format),
		Width:        src.Width,
		Height:       src.Height,
		OriginalBlob: originalID,
	}
	fields, err := toFields(man)
	if err != nil {
		return "", err
	}
	id, err := s.store.PutDocument(ctx, storage.KindImage, fields)
	if err != nil {
		return "", err
	}

	mu := s.lock(id)
	mu.Lock()
	defer mu.Unlock()

	levels, written, err := s.derive(ctx, src)
	if err != nil {
		s.deleteBlobs(ctx, written)
		man.Status = statusFailed
		if ferr := s.updateManifest(ctx, id, man); ferr != nil {
			log.Printf("marking image %s failed: %v", id, ferr)
		}
		return id, fmt.Errorf("deriving image %s: %w", id, err)
	}

	man.Status = statusDone
	man.Levels = levels
	if err := s.updateManifest(ctx, id, man); err != nil {
		// The tiles are rolled back, so the surviving document must read as
		// an explicit failure rather than an in-progress derivation.
		s.deleteBlobs(ctx, written)
		man.Status = statusFailed
		man.Levels = nil
		if ferr := s.updateManifest(ctx, id, man); ferr != nil {
			log.Printf("marking image %s failed: %v", id, ferr)
		}
		return id, err
	}
	return id, nil
}

// Read returns the image's original bytes, transcoded when the requested
// format differs from the stored one. An empty format returns the stored
// bytes untouched.
func (s *Images) Read(ctx context.Context, id, format string) ([]byte, string, error) {
	man, err := s.manifest(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if err := readableStatus(man); err != nil {
		return nil, "", err
	}

	data, err := s.store.GetBlob(ctx, man.OriginalBlob)
	if err != nil {
		return nil, "", err
	}
	if format == "" {
		return data, man.Format, nil
	}
	target, err := raster.ParseFormat(format)
	if err != nil {
		return nil, "", err
	}
	if string(target) == man.Format {
		return data, man.Format, nil
	}
	r, _, err := raster.Decode(data, raster.Format(man.Format))
	if err != nil {
		return nil, "", err
	}
	out, err := raster.Encode(r, target)
	if err != nil {
		return nil, "", err
	}
	return out, string(target), nil
}

// ReadTile returns one stored tile, decompressed, as encoded image bytes.
// Coordinates outside the image's current grid report storage.ErrNotFound.
// The tile is transcoded when the requested format is not PNG.
func (s *Images) ReadTile(ctx context.Context, id string, level, row, col int, format string) ([]byte, string, error) {
	man, err := s.manifest(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if err := readableStatus(man); err != nil {
		return nil, "", err
	}

	if level < 0 || level >= len(man.Levels) {
		return nil, "", fmt.Errorf("level %d of image %s: %w", level, id, storage.ErrNotFound)
	}
	lv := man.Levels[level]
	if row < 0 || row >= lv.Rows || col < 0 || col >= lv.Cols {
		return nil, "", fmt.Errorf("tile (%d,%d) of image %s level %d: %w", row, col, id, level, storage.ErrNotFound)
	}

	framed, err := s.store.GetBlob(ctx, lv.Tiles[row][col])
	if err != nil {
		return nil, "", err
	}
	data, err := compress.Decompress(framed)
	if err != nil {
		return nil, "", err
	}

	if format == "" {
		return data, string(tileFormat), nil
	}
	target, err := raster.ParseFormat(format)
	if err != nil {
		return nil, "", err
	}
	if target == tileFormat {
		return data, string(tileFormat), nil
	}
	r, _, err := raster.Decode(data, tileFormat)
	if err != nil {
		return nil, "", err
	}
	out, err := raster.Encode(r, target)
	if err != nil {
		return nil, "", err
	}
	return out, string(target), nil
}

// Update replaces the image's content and regenerates every derived
// artifact. The new pyramid is fully persisted before the manifest is
// swapped, so concurrent readers observe either the old version or the new
// one in its entirety. Old blobs are released after the swap.
func (s *Images) Update(ctx context.Context, id string, data []byte) error {
	mu := s.lock(id)
	mu.Lock()
	defer mu.Unlock()

	old, err := s.manifest(ctx, id)
	if err != nil {
		return err
	}

	src, format, err := s.decode(data, "")
	if err != nil {
		return err
	}

	originalID, err := s.store.PutBlob(ctx, data)
	if err != nil {
		return err
	}

	levels, written, err := s.derive(ctx, src)
	if err != nil {
		// Roll back the new artifacts; the old version stays intact and
		// readable.
		s.deleteBlobs(ctx, append(written, originalID))
		return fmt.Errorf("rederiving image %s: %w", id, err)
	}

	next := imageManifest{
		Status:       statusDone,
		Format:       string(format),
		Width:        src.Width,
		Height:       src.Height,
		OriginalBlob: originalID,
		Levels:       levels,
	}
	if err := s.updateManifest(ctx, id, next); err != nil {
		s.deleteBlobs(ctx, append(written, originalID))
		return err
	}

	// Commit point passed: release the previous version's blobs.
	s.deleteBlobs(ctx, append(tileBlobIDs(old.Levels), old.OriginalBlob))
	return nil
}

// Delete removes the image and cascades to its pyramid and tiles. The
// manifest goes first so readers stop finding the image before its blobs
// disappear.
func (s *Images) Delete(ctx context.Context, id string) error {
	mu := s.lock(id)
	mu.Lock()
	defer mu.Unlock()

	man, err := s.manifest(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteDocument(ctx, storage.KindImage, id); err != nil {
		return err
	}
	s.deleteBlobs(ctx, append(tileBlobIDs(man.Levels), man.OriginalBlob))
	s.dropLock(id)
	return nil
}

// derive builds the pyramid for src and persists one compressed blob per
// tile. Levels run sequentially; the tiles of one level are processed
// concurrently. It returns the level manifests and every blob id written,
// so the caller can roll back on a later failure.
func (s *Images) derive(ctx context.Context, src *raster.Raster) ([]levelManifest, []string, error) {
	cfg := s.builder.Config()

	rasters, err := s.builder.Build(src)
	if err != nil {
		return nil, nil, err
	}

	var written []string
	levels := make([]levelManifest, len(rasters))
	for i, level := range rasters {
		grid, err := pyramid.Tile(level, cfg.TileSize)
		if err != nil {
			return nil, written, err
		}

		ids := make([][]string, grid.Rows)
		for row := range ids {
			ids[row] = make([]string, grid.Cols)
		}

		g, gctx := errgroup.WithContext(ctx)
		for row := 0; row < grid.Rows; row++ {
			for col := 0; col < grid.Cols; col++ {
				row, col := row, col
				tile := grid.Tiles[row][col]
				g.Go(func() error {
					encoded, err := raster.Encode(tile, tileFormat)
					if err != nil {
						return err
					}
					framed, err := compress.Compress(encoded, s.codec, s.checksum)
					if err != nil {
						return err
					}
					id, err := s.store.PutBlob(gctx, framed)
					if err != nil {
						return err
					}
					ids[row][col] = id
					return nil
				})
			}
		}
		err = g.Wait()
		// Collect what was written even on failure, for rollback.
		for row := range ids {
			for _, id := range ids[row] {
				if id != "" {
					written = append(written, id)
				}
			}
		}
		if err != nil {
			return nil, written, err
		}

		levels[i] = levelManifest{
			Width:  level.Width,
			Height: level.Height,
			Rows:   grid.Rows,
			Cols:   grid.Cols,
			Tiles:  ids,
		}
	}
	return levels, written, nil
}

func (s *Images) decode(data []byte, hint string) (*raster.Raster, raster.Format, error) {
	var f raster.Format
	if hint != "" {
		parsed, err := raster.ParseFormat(hint)
		if err != nil {
			return nil, "", err
		}
		f = parsed
	}
	return raster.Decode(data, f)
}

func (s *Images) manifest(ctx context.Context, id string) (imageManifest, error) {
	fields, err := s.store.GetDocument(ctx, storage.KindImage, id)
	if err != nil {
		return imageManifest{}, err
	}
	var man imageManifest
	if err := fromFields(fields, &man); err != nil {
		return imageManifest{}, err
	}
	return man, nil
}

func (s *Images) updateManifest(ctx context.Context, id string, man imageManifest) error {
	fields, err := toFields(man)
	if err != nil {
		return err
	}
	return s.store.UpdateDocument(ctx, storage.KindImage, id, fields)
}

// deleteBlobs best-effort releases a set of blob references. Failures are
// logged, not propagated: they leave garbage, never inconsistency.
func (s *Images) deleteBlobs(ctx context.Context, ids []string) {
	for _, id := range ids {
		if err := s.store.DeleteBlob(ctx, id); err != nil && !errors.Is(err, storage.ErrNotFound) {
			log.Printf("releasing blob %s: %v", id, err)
		}
	}
}

func readableStatus(man imageManifest) error {
	switch man.Status {
	case statusDone:
		return nil
	case statusFailed:
		return ErrDerivationFailed
	default:
		return ErrNotReady
	}
}

func tileBlobIDs(levels []levelManifest) []string {
	var ids []string
	for _, lv := range levels {
		for _, row := range lv.Tiles {
			ids = append(ids, row...)
		}
	}
	return ids
}

// toFields and fromFields convert between typed manifests and the document
// store's JSON-compatible field maps.
func toFields(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

func fromFields(fields map[string]any, v any) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}
