package resumes

import (
	"context"
	"errors"
	"testing"

	"resume-editor/internal/users"
)

func setup(t *testing.T) (*Service, users.User) {
	t.Helper()
	userSvc := users.NewService(users.NewMemoryRepo())
	owner, err := userSvc.Create(context.Background(), users.CreateInput{Email: "ada@example.com"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return NewService(NewMemoryRepo(), userSvc), owner
}

func TestCreateValidates(t *testing.T) {
	svc, owner := setup(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, CreateInput{Title: "  ", UserID: owner.ID}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for blank title, got %v", err)
	}
	if _, err := svc.Create(ctx, CreateInput{Title: "Backend"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for missing user, got %v", err)
	}
	if _, err := svc.Create(ctx, CreateInput{Title: "Backend", UserID: owner.ID + 100}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for unknown user, got %v", err)
	}
}

func TestCRUD(t *testing.T) {
	svc, owner := setup(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, CreateInput{Title: " Staff Engineer ", UserID: owner.ID})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if first.Title != "Staff Engineer" || first.CreatedAt.IsZero() {
		t.Fatalf("unexpected resume %+v", first)
	}
	second, err := svc.Create(ctx, CreateInput{Title: "Manager", UserID: owner.ID})
	if err != nil {
		t.Fatalf("Create second: %v", err)
	}

	title := "Principal Engineer"
	updated, err := svc.Update(ctx, first.ID, UpdateInput{Title: &title})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Title != title || updated.UserID != owner.ID {
		t.Fatalf("unexpected update %+v", updated)
	}
	empty := ""
	if _, err := svc.Update(ctx, first.ID, UpdateInput{Title: &empty}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for empty title, got %v", err)
	}

	list, err := svc.ListByUser(ctx, owner.ID)
	if err != nil || len(list) != 2 || list[0].ID != first.ID || list[1].ID != second.ID {
		t.Fatalf("ListByUser = %+v, %v", list, err)
	}

	deleted, err := svc.Delete(ctx, second.ID)
	if err != nil || deleted.Title != "Manager" {
		t.Fatalf("Delete = %+v, %v", deleted, err)
	}
	if _, err := svc.GetByID(ctx, second.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteByUserRunsResumeHooks(t *testing.T) {
	svc, owner := setup(t)
	ctx := context.Background()

	for _, title := range []string{"A", "B"} {
		if _, err := svc.Create(ctx, CreateInput{Title: title, UserID: owner.ID}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	var detached []int64
	svc.OnDelete(func(ctx context.Context, resumeID int64) error {
		detached = append(detached, resumeID)
		return nil
	})

	if err := svc.DeleteByUser(ctx, owner.ID); err != nil {
		t.Fatalf("DeleteByUser: %v", err)
	}
	if len(detached) != 2 {
		t.Fatalf("expected hooks for 2 resumes, got %v", detached)
	}
	list, _ := svc.List(ctx)
	if len(list) != 0 {
		t.Fatalf("expected no resumes, got %d", len(list))
	}
}
