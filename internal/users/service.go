package users

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"resume-editor/internal/shared/telemetry"
)

const maxNameLength = 200

// DeleteHook runs after a user row is removed. Hooks remove records that
// reference the user when the store does not cascade on its own.
type DeleteHook func(ctx context.Context, userID int64) error

type Service struct {
	Repo        Repo
	AfterDelete []DeleteHook
}

func NewService(repo Repo) *Service {
	return &Service{Repo: repo}
}

// OnDelete registers a hook run by Delete.
func (s *Service) OnDelete(hook DeleteHook) {
	s.AfterDelete = append(s.AfterDelete, hook)
}

func (s *Service) List(ctx context.Context) ([]User, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.Repo.List(ctx)
}

func (s *Service) GetByID(ctx context.Context, id int64) (User, error) {
	if err := s.ready(); err != nil {
		return User{}, err
	}
	return s.Repo.GetByID(ctx, id)
}

func (s *Service) Create(ctx context.Context, in CreateInput) (User, error) {
	if err := s.ready(); err != nil {
		return User{}, err
	}
	in.Email = strings.TrimSpace(in.Email)
	if err := validation.ValidateStruct(&in,
		validation.Field(&in.Email, validation.Required, is.EmailFormat),
		validation.Field(&in.Name, validation.NilOrNotEmpty, validation.Length(1, maxNameLength)),
	); err != nil {
		return User{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	user, err := s.Repo.Create(ctx, in)
	if err != nil {
		return User{}, err
	}
	telemetry.Info("user.created", map[string]any{"user_id": user.ID})
	return user, nil
}

func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (User, error) {
	if err := s.ready(); err != nil {
		return User{}, err
	}
	if in.Email != nil {
		trimmed := strings.TrimSpace(*in.Email)
		in.Email = &trimmed
	}
	if err := validation.ValidateStruct(&in,
		validation.Field(&in.Email, validation.NilOrNotEmpty, is.EmailFormat),
		validation.Field(&in.Name, validation.Length(0, maxNameLength)),
	); err != nil {
		return User{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return s.Repo.Update(ctx, id, in)
}

// Delete removes the user and returns the deleted record.
func (s *Service) Delete(ctx context.Context, id int64) (User, error) {
	if err := s.ready(); err != nil {
		return User{}, err
	}
	user, err := s.Repo.Delete(ctx, id)
	if err != nil {
		return User{}, err
	}
	for _, hook := range s.AfterDelete {
		if err := hook(ctx, id); err != nil {
			telemetry.Error("user.delete.cascade_failed", map[string]any{"user_id": id, "error": err.Error()})
			return user, fmt.Errorf("cascade delete for user %d: %w", id, err)
		}
	}
	telemetry.Info("user.deleted", map[string]any{"user_id": id})
	return user, nil
}

// UpsertFromAuth persists the identity returned by an OAuth login.
func (s *Service) UpsertFromAuth(ctx context.Context, identity Identity) (User, error) {
	if err := s.ready(); err != nil {
		return User{}, err
	}
	identity.Email = strings.TrimSpace(identity.Email)
	if strings.TrimSpace(identity.Sub) == "" || identity.Email == "" {
		return User{}, errors.New("user sub and email are required")
	}
	return s.Repo.UpsertByEmail(ctx, identity)
}

func (s *Service) ready() error {
	if s == nil || s.Repo == nil {
		return errors.New("users service not configured")
	}
	return nil
}

// Subject renders a user ID as a token subject.
func Subject(id int64) string {
	return strconv.FormatInt(id, 10)
}

// ParseSubject returns the user ID encoded in a token subject. Guest
// principals and foreign subjects report false.
func ParseSubject(sub string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(sub), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
