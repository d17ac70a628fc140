package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/ironsheep/image-pyramid-service/internal/matrix"
)

func (s *Server) handleImageCreate(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadBytes))
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": err.Error()})
		return
	}

	hint := r.Header.Get("Content-Type")
	if hint == "application/octet-stream" {
		hint = "" // generic upload: sniff the content
	}
	id, err := s.images.Create(r.Context(), data, hint)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleImageRead(w http.ResponseWriter, r *http.Request) {
	data, format, err := s.images.Read(r.Context(), r.PathValue("id"), r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/"+format)
	w.Write(data)
}

func (s *Server) handleImageUpdate(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadBytes))
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": err.Error()})
		return
	}
	if err := s.images.Update(r.Context(), r.PathValue("id"), data); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleImageDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.images.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTileRead(w http.ResponseWriter, r *http.Request) {
	level, err := pathInt(r, "level")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	row, err := pathInt(r, "row")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	col, err := pathInt(r, "col")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	data, format, err := s.images.ReadTile(r.Context(), r.PathValue("id"),
		level, row, col, r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/"+format)
	w.Write(data)
}

// matrixRequest is the body of matrix create and update calls.
type matrixRequest struct {
	Name string      `json:"name"`
	Grid matrix.Grid `json:"grid"`
}

func (s *Server) handleMatrixCreate(w http.ResponseWriter, r *http.Request) {
	var req matrixRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	id, err := s.matrices.Create(r.Context(), req.Name, req.Grid)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleMatrixRead(w http.ResponseWriter, r *http.Request) {
	grid, err := s.matrices.Read(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"grid": grid})
}

func (s *Server) handleMatrixUpdate(w http.ResponseWriter, r *http.Request) {
	var req matrixRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err := s.matrices.Update(r.Context(), r.PathValue("id"), req.Grid); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMatrixDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.matrices.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// matrixOp builds a handler for the two-operand arithmetic routes.
func (s *Server) matrixOp(op func(ctx context.Context, a, b string) (matrix.Grid, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		grid, err := op(r.Context(), r.PathValue("a"), r.PathValue("b"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"grid": grid})
	}
}

func pathInt(r *http.Request, name string) (int, error) {
	v, err := strconv.Atoi(r.PathValue(name))
	if err != nil {
		return 0, fmt.Errorf("path segment %q must be an integer", name)
	}
	return v, nil
}
