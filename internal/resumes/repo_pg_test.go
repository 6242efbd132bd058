package resumes

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
)

var resumeCols = []string{"id", "title", "user_id", "created_at"}

func newMockRepo(t *testing.T) (*PGRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return &PGRepo{DB: db}, mock
}

func TestPGRepoCreate(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()

	mock.ExpectQuery("INSERT INTO resumes").
		WithArgs("Backend", int64(3)).
		WillReturnRows(sqlmock.NewRows(resumeCols).AddRow(int64(10), "Backend", int64(3), now))

	res, err := repo.Create(context.Background(), CreateInput{Title: "Backend", UserID: 3})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if res.ID != 10 {
		t.Fatalf("unexpected resume %+v", res)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoCreateForeignKeyViolation(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("INSERT INTO resumes").
		WithArgs("Backend", int64(99)).
		WillReturnError(&pgconn.PgError{Code: "23503"})

	if _, err := repo.Create(context.Background(), CreateInput{Title: "Backend", UserID: 99}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestPGRepoListByUser(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()

	mock.ExpectQuery("FROM resumes WHERE user_id").
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(resumeCols).
			AddRow(int64(1), "A", int64(3), now).
			AddRow(int64(2), "B", int64(3), now))

	list, err := repo.ListByUser(context.Background(), 3)
	if err != nil || len(list) != 2 {
		t.Fatalf("ListByUser = %+v, %v", list, err)
	}
}

func TestPGRepoUpdateWithoutFieldsReads(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT .* FROM resumes WHERE id").
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows(resumeCols).AddRow(int64(5), "A", int64(1), now))

	if _, err := repo.Update(context.Background(), 5, UpdateInput{}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoUpdateTitle(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()
	title := "B"

	mock.ExpectQuery(`UPDATE resumes SET title = \$1 WHERE id = \$2`).
		WithArgs("B", int64(5)).
		WillReturnRows(sqlmock.NewRows(resumeCols).AddRow(int64(5), "B", int64(1), now))

	res, err := repo.Update(context.Background(), 5, UpdateInput{Title: &title})
	if err != nil || res.Title != "B" {
		t.Fatalf("Update = %+v, %v", res, err)
	}
}

func TestPGRepoDeleteNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("DELETE FROM resumes").
		WithArgs(int64(8)).
		WillReturnError(sql.ErrNoRows)

	if _, err := repo.Delete(context.Background(), 8); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
