package resumes

import (
	"context"
	"errors"
)

var (
	ErrNotFound   = errors.New("resume not found")
	ErrValidation = errors.New("invalid resume input")
)

type Repo interface {
	List(ctx context.Context) ([]Resume, error)
	ListByUser(ctx context.Context, userID int64) ([]Resume, error)
	GetByID(ctx context.Context, id int64) (Resume, error)
	Create(ctx context.Context, in CreateInput) (Resume, error)
	Update(ctx context.Context, id int64, in UpdateInput) (Resume, error)
	Delete(ctx context.Context, id int64) (Resume, error)
}
