package service

import (
	"context"

	"github.com/ironsheep/image-pyramid-service/internal/matrix"
	"github.com/ironsheep/image-pyramid-service/internal/storage"
)

// matrixDoc is the metadata document stored per matrix.
type matrixDoc struct {
	Name string      `json:"name"`
	Grid matrix.Grid `json:"grid"`
}

// Matrices implements matrix CRUD and the arithmetic operations over stored
// matrices. Mutation is full replacement; operations are pure and return
// fresh grids.
type Matrices struct {
	docs storage.DocumentStore
}

// NewMatrices wires a matrix service over the given document store.
func NewMatrices(docs storage.DocumentStore) *Matrices {
	return &Matrices{docs: docs}
}

// Create stores a new matrix and returns its id.
func (s *Matrices) Create(ctx context.Context, name string, grid matrix.Grid) (string, error) {
	if err := grid.Validate(); err != nil {
		return "", err
	}
	fields, err := toFields(matrixDoc{Name: name, Grid: grid})
	if err != nil {
		return "", err
	}
	return s.docs.PutDocument(ctx, storage.KindMatrix, fields)
}

// Read returns the stored grid for id.
func (s *Matrices) Read(ctx context.Context, id string) (matrix.Grid, error) {
	doc, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return doc.Grid, nil
}

// Update replaces the stored grid, keeping the matrix's name.
func (s *Matrices) Update(ctx context.Context, id string, grid matrix.Grid) error {
	if err := grid.Validate(); err != nil {
		return err
	}
	doc, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	doc.Grid = grid
	fields, err := toFields(doc)
	if err != nil {
		return err
	}
	return s.docs.UpdateDocument(ctx, storage.KindMatrix, id, fields)
}

// Delete removes the matrix.
func (s *Matrices) Delete(ctx context.Context, id string) error {
	return s.docs.DeleteDocument(ctx, storage.KindMatrix, id)
}

// Add returns a + b for two stored matrices.
func (s *Matrices) Add(ctx context.Context, aID, bID string) (matrix.Grid, error) {
	return s.combine(ctx, aID, bID, matrix.Add)
}

// Subtract returns a - b for two stored matrices.
func (s *Matrices) Subtract(ctx context.Context, aID, bID string) (matrix.Grid, error) {
	return s.combine(ctx, aID, bID, matrix.Subtract)
}

// Multiply returns the matrix product a x b for two stored matrices.
func (s *Matrices) Multiply(ctx context.Context, aID, bID string) (matrix.Grid, error) {
	return s.combine(ctx, aID, bID, matrix.Multiply)
}

func (s *Matrices) combine(ctx context.Context, aID, bID string, op func(a, b matrix.Grid) (matrix.Grid, error)) (matrix.Grid, error) {
	a, err := s.Read(ctx, aID)
	if err != nil {
		return nil, err
	}
	b, err := s.Read(ctx, bID)
	if err != nil {
		return nil, err
	}
	return op(a, b)
}

func (s *Matrices) get(ctx context.Context, id string) (matrixDoc, error) {
	fields, err := s.docs.GetDocument(ctx, storage.KindMatrix, id)
	if err != nil {
		return matrixDoc{}, err
	}
	var doc matrixDoc
	if err := fromFields(fields, &doc); err != nil {
		return matrixDoc{}, err
	}
	return doc, nil
}
