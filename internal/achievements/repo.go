package achievements

import (
	"context"
	"errors"
)

var (
	ErrNotFound   = errors.New("achievement not found")
	ErrValidation = errors.New("invalid achievement input")
)

type Repo interface {
	ListByResume(ctx context.Context, resumeID int64) ([]Achievement, error)
	GetByID(ctx context.Context, id int64) (Achievement, error)
	Create(ctx context.Context, in CreateInput) (Achievement, error)
	Update(ctx context.Context, id int64, in UpdateInput) (Achievement, error)
	Delete(ctx context.Context, id int64) (Achievement, error)
	// DetachResume clears resume_id on every achievement that points at resumeID.
	DetachResume(ctx context.Context, resumeID int64) (int64, error)
}
