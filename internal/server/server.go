package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/rs/cors"

	"github.com/ironsheep/image-pyramid-service/internal/matrix"
	"github.com/ironsheep/image-pyramid-service/internal/raster"
	"github.com/ironsheep/image-pyramid-service/internal/service"
	"github.com/ironsheep/image-pyramid-service/internal/storage"
)

// maxUploadBytes caps image upload bodies.
const maxUploadBytes = 64 << 20

// Server routes HTTP requests to the image and matrix services.
type Server struct {
	images   *service.Images
	matrices *service.Matrices
	handler  http.Handler
}

// New wires the route table and middleware around the given services.
func New(images *service.Images, matrices *service.Matrices) *Server {
	s := &Server{images: images, matrices: matrices}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /images", s.handleImageCreate)
	mux.HandleFunc("GET /images/{id}", s.handleImageRead)
	mux.HandleFunc("PUT /images/{id}", s.handleImageUpdate)
	mux.HandleFunc("DELETE /images/{id}", s.handleImageDelete)
	mux.HandleFunc("GET /images/{id}/pyramid/{level}/tiles/{row}/{col}", s.handleTileRead)

	mux.HandleFunc("POST /matrices", s.handleMatrixCreate)
	mux.HandleFunc("GET /matrices/{id}", s.handleMatrixRead)
	mux.HandleFunc("PUT /matrices/{id}", s.handleMatrixUpdate)
	mux.HandleFunc("DELETE /matrices/{id}", s.handleMatrixDelete)
	mux.HandleFunc("GET /matrices/{a}/add/{b}", s.matrixOp(s.matrices.Add))
	mux.HandleFunc("GET /matrices/{a}/subtract/{b}", s.matrixOp(s.matrices.Subtract))
	mux.HandleFunc("GET /matrices/{a}/multiply/{b}", s.matrixOp(s.matrices.Multiply))

	s.handler = cors.Default().Handler(mux)
	return s
}

// Handler returns the server's root handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.handler }

// ListenAndServe serves until the listener fails.
func (s *Server) ListenAndServe(addr string) error {
	log.Printf("listening on %s", addr)
	return http.ListenAndServe(addr, s.handler)
}

// writeJSON encodes v as the response body.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encoding response: %v", err)
	}
}

// writeError maps a service error to a status code and JSON body.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrNotReady), errors.Is(err, service.ErrDerivationFailed):
		return http.StatusConflict
	case errors.Is(err, raster.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, raster.ErrCorruptData), errors.Is(err, matrix.ErrDimensionMismatch):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrStorage):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
