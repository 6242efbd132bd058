package achievements

import (
	"context"
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"resume-editor/internal/resumes"
	"resume-editor/internal/shared/telemetry"
)

const maxBodyLength = 2000

// ResumeLookup checks that a referenced resume exists.
type ResumeLookup interface {
	GetByID(ctx context.Context, id int64) (resumes.Resume, error)
}

type Service struct {
	Repo    Repo
	Resumes ResumeLookup
}

func NewService(repo Repo, resumeLookup ResumeLookup) *Service {
	return &Service{Repo: repo, Resumes: resumeLookup}
}

func (s *Service) ListByResume(ctx context.Context, resumeID int64) ([]Achievement, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.Repo.ListByResume(ctx, resumeID)
}

func (s *Service) GetByID(ctx context.Context, id int64) (Achievement, error) {
	if err := s.ready(); err != nil {
		return Achievement{}, err
	}
	return s.Repo.GetByID(ctx, id)
}

func (s *Service) Create(ctx context.Context, in CreateInput) (Achievement, error) {
	if err := s.ready(); err != nil {
		return Achievement{}, err
	}
	in.Body = strings.TrimSpace(in.Body)
	if err := validation.ValidateStruct(&in,
		validation.Field(&in.Body, validation.Required, validation.Length(1, maxBodyLength)),
		validation.Field(&in.ResumeID, validation.NilOrNotEmpty, validation.Min(int64(1))),
	); err != nil {
		return Achievement{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := s.checkResume(ctx, in.ResumeID); err != nil {
		return Achievement{}, err
	}
	a, err := s.Repo.Create(ctx, in)
	if err != nil {
		return Achievement{}, err
	}
	telemetry.Debug("achievement.created", map[string]any{"achievement_id": a.ID})
	return a, nil
}

func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (Achievement, error) {
	if err := s.ready(); err != nil {
		return Achievement{}, err
	}
	if in.Body != nil {
		trimmed := strings.TrimSpace(*in.Body)
		in.Body = &trimmed
	}
	if err := validation.ValidateStruct(&in,
		validation.Field(&in.Body, validation.NilOrNotEmpty, validation.Length(1, maxBodyLength)),
		validation.Field(&in.ResumeID, validation.NilOrNotEmpty, validation.Min(int64(1))),
	); err != nil {
		return Achievement{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := s.checkResume(ctx, in.ResumeID); err != nil {
		return Achievement{}, err
	}
	return s.Repo.Update(ctx, id, in)
}

// Delete removes the achievement and returns the deleted record.
func (s *Service) Delete(ctx context.Context, id int64) (Achievement, error) {
	if err := s.ready(); err != nil {
		return Achievement{}, err
	}
	return s.Repo.Delete(ctx, id)
}

// DetachResume clears the resume reference of every achievement pointing at
// resumeID. It is registered as a resumes delete hook.
func (s *Service) DetachResume(ctx context.Context, resumeID int64) error {
	if err := s.ready(); err != nil {
		return err
	}
	n, err := s.Repo.DetachResume(ctx, resumeID)
	if err != nil {
		return err
	}
	if n > 0 {
		telemetry.Info("achievements.detached", map[string]any{"resume_id": resumeID, "count": n})
	}
	return nil
}

func (s *Service) checkResume(ctx context.Context, resumeID *int64) error {
	if resumeID == nil || s.Resumes == nil {
		return nil
	}
	if _, err := s.Resumes.GetByID(ctx, *resumeID); err != nil {
		if errors.Is(err, resumes.ErrNotFound) {
			return fmt.Errorf("%w: resumeId: resume does not exist", ErrValidation)
		}
		return err
	}
	return nil
}

// ValidateBody checks a body against the rules Create applies.
func ValidateBody(body string) error {
	if err := validation.Validate(strings.TrimSpace(body), validation.Required, validation.Length(1, maxBodyLength)); err != nil {
		return fmt.Errorf("%w: body: %v", ErrValidation, err)
	}
	return nil
}

func (s *Service) ready() error {
	if s == nil || s.Repo == nil {
		return errors.New("achievements service not configured")
	}
	return nil
}
