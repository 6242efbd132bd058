package resumes

import (
	"context"
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"resume-editor/internal/shared/telemetry"
	"resume-editor/internal/users"
)

const maxTitleLength = 300

// ValidateTitle checks a title against the rules Create applies.
func ValidateTitle(title string) error {
	if err := validation.Validate(strings.TrimSpace(title), validation.Required, validation.Length(1, maxTitleLength)); err != nil {
		return fmt.Errorf("%w: title: %v", ErrValidation, err)
	}
	return nil
}

// UserLookup checks that an owning user exists.
type UserLookup interface {
	GetByID(ctx context.Context, id int64) (users.User, error)
}

// DeleteHook runs after a resume row is removed.
type DeleteHook func(ctx context.Context, resumeID int64) error

type Service struct {
	Repo        Repo
	Users       UserLookup
	AfterDelete []DeleteHook
}

func NewService(repo Repo, userLookup UserLookup) *Service {
	return &Service{Repo: repo, Users: userLookup}
}

// OnDelete registers a hook run by Delete.
func (s *Service) OnDelete(hook DeleteHook) {
	s.AfterDelete = append(s.AfterDelete, hook)
}

func (s *Service) List(ctx context.Context) ([]Resume, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.Repo.List(ctx)
}

func (s *Service) ListByUser(ctx context.Context, userID int64) ([]Resume, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.Repo.ListByUser(ctx, userID)
}

func (s *Service) GetByID(ctx context.Context, id int64) (Resume, error) {
	if err := s.ready(); err != nil {
		return Resume{}, err
	}
	return s.Repo.GetByID(ctx, id)
}

func (s *Service) Create(ctx context.Context, in CreateInput) (Resume, error) {
	if err := s.ready(); err != nil {
		return Resume{}, err
	}
	in.Title = strings.TrimSpace(in.Title)
	if err := validation.ValidateStruct(&in,
		validation.Field(&in.Title, validation.Required, validation.Length(1, maxTitleLength)),
		validation.Field(&in.UserID, validation.Required, validation.Min(int64(1))),
	); err != nil {
		return Resume{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := s.checkUser(ctx, in.UserID); err != nil {
		return Resume{}, err
	}
	res, err := s.Repo.Create(ctx, in)
	if err != nil {
		return Resume{}, err
	}
	telemetry.Info("resume.created", map[string]any{"resume_id": res.ID, "user_id": res.UserID})
	return res, nil
}

func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (Resume, error) {
	if err := s.ready(); err != nil {
		return Resume{}, err
	}
	if in.Title != nil {
		trimmed := strings.TrimSpace(*in.Title)
		in.Title = &trimmed
	}
	if err := validation.ValidateStruct(&in,
		validation.Field(&in.Title, validation.NilOrNotEmpty, validation.Length(1, maxTitleLength)),
		validation.Field(&in.UserID, validation.NilOrNotEmpty, validation.Min(int64(1))),
	); err != nil {
		return Resume{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if in.UserID != nil {
		if err := s.checkUser(ctx, *in.UserID); err != nil {
			return Resume{}, err
		}
	}
	return s.Repo.Update(ctx, id, in)
}

// Delete removes the resume and returns the deleted record.
func (s *Service) Delete(ctx context.Context, id int64) (Resume, error) {
	if err := s.ready(); err != nil {
		return Resume{}, err
	}
	res, err := s.Repo.Delete(ctx, id)
	if err != nil {
		return Resume{}, err
	}
	for _, hook := range s.AfterDelete {
		if err := hook(ctx, id); err != nil {
			return res, fmt.Errorf("cascade delete for resume %d: %w", id, err)
		}
	}
	telemetry.Info("resume.deleted", map[string]any{"resume_id": id})
	return res, nil
}

// DeleteByUser removes every resume owned by userID. It is registered as a
// users delete hook for stores without foreign key cascades.
func (s *Service) DeleteByUser(ctx context.Context, userID int64) error {
	list, err := s.ListByUser(ctx, userID)
	if err != nil {
		return err
	}
	for _, res := range list {
		if _, err := s.Delete(ctx, res.ID); err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
	}
	return nil
}

func (s *Service) checkUser(ctx context.Context, userID int64) error {
	if s.Users == nil {
		return nil
	}
	if _, err := s.Users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return fmt.Errorf("%w: userId: user does not exist", ErrValidation)
		}
		return err
	}
	return nil
}

func (s *Service) ready() error {
	if s == nil || s.Repo == nil {
		return errors.New("resumes service not configured")
	}
	return nil
}
