package sessions

import (
	"context"
	"database/sql"
	"fmt"

	"resume-editor/internal/achievements"
	"resume-editor/internal/resumes"
	"resume-editor/internal/shared/telemetry"
)

// CommitPlan is every write one commit makes to a resume.
type CommitPlan struct {
	ResumeID int64
	// Title is nil when the resume title is unchanged.
	Title   *string
	Updates []AchievementBody
	Deletes []int64
	Creates []string
}

// AchievementBody is the new body of an existing achievement.
type AchievementBody struct {
	ID   int64
	Body string
}

func (p CommitPlan) empty() bool {
	return p.Title == nil && len(p.Updates) == 0 && len(p.Deletes) == 0 && len(p.Creates) == 0
}

// CommitStore applies a plan as one unit. It returns the ids of the created
// achievements in Creates order. When it fails nothing is left written.
type CommitStore interface {
	ApplyCommit(ctx context.Context, plan CommitPlan) ([]int64, error)
}

// PGCommitStore applies a plan inside a single transaction.
type PGCommitStore struct {
	DB *sql.DB
}

func (s *PGCommitStore) ApplyCommit(ctx context.Context, plan CommitPlan) ([]int64, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if plan.Title != nil {
		res, err := tx.ExecContext(ctx, `UPDATE resumes SET title = $1 WHERE id = $2`, *plan.Title, plan.ResumeID)
		if err != nil {
			return nil, fmt.Errorf("update resume title: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil, resumes.ErrNotFound
		}
	}
	for _, u := range plan.Updates {
		res, err := tx.ExecContext(ctx, `UPDATE achievements SET body = $1 WHERE id = $2 AND resume_id = $3`, u.Body, u.ID, plan.ResumeID)
		if err != nil {
			return nil, fmt.Errorf("update achievement %d: %w", u.ID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil, fmt.Errorf("achievement %d: %w", u.ID, achievements.ErrNotFound)
		}
	}
	for _, id := range plan.Deletes {
		if _, err := tx.ExecContext(ctx, `DELETE FROM achievements WHERE id = $1 AND resume_id = $2`, id, plan.ResumeID); err != nil {
			return nil, fmt.Errorf("delete achievement %d: %w", id, err)
		}
	}
	created := make([]int64, 0, len(plan.Creates))
	for _, body := range plan.Creates {
		var id int64
		err := tx.QueryRowContext(ctx,
			`INSERT INTO achievements (body, resume_id, created_at) VALUES ($1, $2, now()) RETURNING id`,
			body, plan.ResumeID,
		).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("create achievement: %w", err)
		}
		created = append(created, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return created, nil
}

// serviceCommitStore applies a plan through the resume and achievement
// services, for the in-memory repos. A failed write undoes the earlier ones.
type serviceCommitStore struct {
	resumes      ResumeStore
	achievements AchievementStore
}

func (s serviceCommitStore) ApplyCommit(ctx context.Context, plan CommitPlan) ([]int64, error) {
	var undo []func(context.Context) error
	fail := func(cause error) ([]int64, error) {
		undoCtx := context.WithoutCancel(ctx)
		for i := len(undo) - 1; i >= 0; i-- {
			if err := undo[i](undoCtx); err != nil {
				telemetry.Error("editor.commit.undo_failed", map[string]any{
					"resume_id": plan.ResumeID,
					"error":     err.Error(),
				})
			}
		}
		return nil, cause
	}

	prevBody := map[int64]string{}
	if len(plan.Updates) > 0 || len(plan.Deletes) > 0 {
		existing, err := s.achievements.ListByResume(ctx, plan.ResumeID)
		if err != nil {
			return nil, err
		}
		for _, a := range existing {
			prevBody[a.ID] = a.Body
		}
	}
	resumeID := plan.ResumeID

	if plan.Title != nil {
		prev, err := s.resumes.GetByID(ctx, plan.ResumeID)
		if err != nil {
			return nil, err
		}
		if _, err := s.resumes.Update(ctx, plan.ResumeID, resumes.UpdateInput{Title: plan.Title}); err != nil {
			return nil, err
		}
		old := prev.Title
		undo = append(undo, func(ctx context.Context) error {
			_, err := s.resumes.Update(ctx, resumeID, resumes.UpdateInput{Title: &old})
			return err
		})
	}
	for _, u := range plan.Updates {
		prev, ok := prevBody[u.ID]
		if !ok {
			return fail(fmt.Errorf("achievement %d: %w", u.ID, achievements.ErrNotFound))
		}
		body := u.Body
		if _, err := s.achievements.Update(ctx, u.ID, achievements.UpdateInput{Body: &body}); err != nil {
			return fail(err)
		}
		id := u.ID
		undo = append(undo, func(ctx context.Context) error {
			_, err := s.achievements.Update(ctx, id, achievements.UpdateInput{Body: &prev})
			return err
		})
	}
	for _, id := range plan.Deletes {
		prev, ok := prevBody[id]
		if !ok {
			continue
		}
		if _, err := s.achievements.Delete(ctx, id); err != nil {
			return fail(err)
		}
		undo = append(undo, func(ctx context.Context) error {
			_, err := s.achievements.Create(ctx, achievements.CreateInput{Body: prev, ResumeID: &resumeID})
			return err
		})
	}
	created := make([]int64, 0, len(plan.Creates))
	for _, body := range plan.Creates {
		a, err := s.achievements.Create(ctx, achievements.CreateInput{Body: body, ResumeID: &resumeID})
		if err != nil {
			return fail(err)
		}
		created = append(created, a.ID)
		id := a.ID
		undo = append(undo, func(ctx context.Context) error {
			_, err := s.achievements.Delete(ctx, id)
			return err
		})
	}
	return created, nil
}

var (
	_ CommitStore = (*PGCommitStore)(nil)
	_ CommitStore = serviceCommitStore{}
)
