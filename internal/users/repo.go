package users

import (
	"context"
	"errors"
)

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("email already in use")
	ErrValidation = errors.New("invalid user input")
)

type Repo interface {
	List(ctx context.Context) ([]User, error)
	GetByID(ctx context.Context, id int64) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	Create(ctx context.Context, in CreateInput) (User, error)
	Update(ctx context.Context, id int64, in UpdateInput) (User, error)
	Delete(ctx context.Context, id int64) (User, error)
	// UpsertByEmail creates or refreshes the user owning identity.Email.
	UpsertByEmail(ctx context.Context, identity Identity) (User, error)
}
