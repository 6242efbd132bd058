package sessions

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"resume-editor/internal/achievements"
	"resume-editor/internal/editor"
	"resume-editor/internal/resumes"
	"resume-editor/internal/users"
)

func TestPGCommitStoreAppliesPlanInOneTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	store := &PGCommitStore{DB: db}

	title := "Staff Engineer"
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE resumes SET title").
		WithArgs(title, int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE achievements SET body").
		WithArgs("Edited twice", int64(11), int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM achievements").
		WithArgs(int64(12), int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("INSERT INTO achievements").
		WithArgs("Brand new", int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(40)))
	mock.ExpectCommit()

	created, err := store.ApplyCommit(context.Background(), CommitPlan{
		ResumeID: 5,
		Title:    &title,
		Updates:  []AchievementBody{{ID: 11, Body: "Edited twice"}},
		Deletes:  []int64{12},
		Creates:  []string{"Brand new"},
	})
	if err != nil {
		t.Fatalf("ApplyCommit: %v", err)
	}
	if len(created) != 1 || created[0] != 40 {
		t.Fatalf("unexpected created ids %v", created)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGCommitStoreRollsBackWhenAWriteFails(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	store := &PGCommitStore{DB: db}

	title := "Staff Engineer"
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE resumes SET title").
		WithArgs(title, int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("INSERT INTO achievements").
		WithArgs("First", int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(41)))
	mock.ExpectQuery("INSERT INTO achievements").
		WithArgs("Second", int64(5)).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err = store.ApplyCommit(context.Background(), CommitPlan{
		ResumeID: 5,
		Title:    &title,
		Creates:  []string{"First", "Second"},
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGCommitStoreRejectsForeignAchievement(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	store := &PGCommitStore{DB: db}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE achievements SET body").
		WithArgs("Body", int64(99), int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err = store.ApplyCommit(context.Background(), CommitPlan{
		ResumeID: 5,
		Updates:  []AchievementBody{{ID: 99, Body: "Body"}},
	})
	if !errors.Is(err, achievements.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

// flakyAchievements fails the nth Create call.
type flakyAchievements struct {
	*achievements.Service
	failOn  int
	creates int
}

func (f *flakyAchievements) Create(ctx context.Context, in achievements.CreateInput) (achievements.Achievement, error) {
	f.creates++
	if f.creates == f.failOn {
		return achievements.Achievement{}, errors.New("achievement store unavailable")
	}
	return f.Service.Create(ctx, in)
}

type seededResume struct {
	resume resumes.Resume
	sess   *Session
}

func seedCommitFixture(t *testing.T, f *fixture) seededResume {
	t.Helper()
	ctx := context.Background()
	u, err := f.users.Create(ctx, users.CreateInput{Email: "ada@example.com"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	res, err := f.resumes.Create(ctx, resumes.CreateInput{Title: "Engineer", UserID: u.ID})
	if err != nil {
		t.Fatalf("create resume: %v", err)
	}
	rid := res.ID
	for _, body := range []string{"Kept", "Edited", "Dropped"} {
		if _, err := f.ach.Create(ctx, achievements.CreateInput{Body: body, ResumeID: &rid}); err != nil {
			t.Fatalf("create achievement: %v", err)
		}
	}
	owner := users.Subject(u.ID)
	sess, err := f.svc.SeedFromResume(ctx, owner, res.ID)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return seededResume{resume: res, sess: sess}
}

func achievementBodies(t *testing.T, f *fixture, resumeID int64) []string {
	t.Helper()
	items, err := f.ach.ListByResume(context.Background(), resumeID)
	if err != nil {
		t.Fatalf("list achievements: %v", err)
	}
	out := make([]string, len(items))
	for i, a := range items {
		out[i] = a.Body
	}
	sort.Strings(out)
	return out
}

func TestCommitUndoesEarlierWritesWhenAchievementStoreFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seed := seedCommitFixture(t, f)
	f.svc.Achievements = &flakyAchievements{Service: f.ach, failOn: 2}

	ed := seed.sess.Editor()
	if err := ed.InsertText(editor.Point{Block: 0, Offset: 8}, " II"); err != nil {
		t.Fatalf("edit title: %v", err)
	}
	if err := ed.InsertText(editor.Point{Block: 2, Offset: 6}, " twice"); err != nil {
		t.Fatalf("edit item: %v", err)
	}
	if err := ed.DeleteBlock(3); err != nil {
		t.Fatalf("delete block: %v", err)
	}
	if err := ed.InsertBlock(3, editor.KindListItem, "First new"); err != nil {
		t.Fatalf("insert block: %v", err)
	}
	if err := ed.InsertBlock(4, editor.KindListItem, "Second new"); err != nil {
		t.Fatalf("insert block: %v", err)
	}

	if _, err := f.svc.Commit(ctx, seed.sess); err == nil {
		t.Fatal("expected commit to fail")
	}

	res, err := f.resumes.GetByID(ctx, seed.resume.ID)
	if err != nil {
		t.Fatalf("get resume: %v", err)
	}
	if res.Title != "Engineer" {
		t.Fatalf("title change was not undone: %q", res.Title)
	}
	got := achievementBodies(t, f, seed.resume.ID)
	want := []string{"Dropped", "Edited", "Kept"}
	if len(got) != len(want) {
		t.Fatalf("achievements = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("achievements = %v, want %v", got, want)
		}
	}
	for _, b := range ed.Snapshot().Blocks[3:] {
		if b.Ref != 0 {
			t.Fatalf("block %q linked after a failed commit", b.Text())
		}
	}
}

// shiftingCommits inserts a block at the top of the list while the plan is
// being written.
type shiftingCommits struct {
	inner CommitStore
	ed    *editor.Editor
}

func (s shiftingCommits) ApplyCommit(ctx context.Context, plan CommitPlan) ([]int64, error) {
	if err := s.ed.InsertBlock(1, editor.KindListItem, "Typed meanwhile"); err != nil {
		return nil, err
	}
	return s.inner.ApplyCommit(ctx, plan)
}

func TestCommitLinksNewAchievementToItsBlockAfterShift(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seed := seedCommitFixture(t, f)
	ed := seed.sess.Editor()

	if err := ed.InsertBlock(4, editor.KindListItem, "Brand new"); err != nil {
		t.Fatalf("insert block: %v", err)
	}
	f.svc.Commits = shiftingCommits{
		inner: serviceCommitStore{resumes: f.resumes, achievements: f.ach},
		ed:    ed,
	}

	out, err := f.svc.Commit(ctx, seed.sess)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if out.Created != 1 {
		t.Fatalf("unexpected result %+v", out)
	}

	items, _ := f.ach.ListByResume(ctx, seed.resume.ID)
	var created achievements.Achievement
	for _, a := range items {
		if a.Body == "Brand new" {
			created = a
		}
	}
	if created.ID == 0 {
		t.Fatal("new achievement not stored")
	}
	for _, b := range ed.Snapshot().Blocks {
		switch b.Text() {
		case "Brand new":
			if b.Ref != created.ID {
				t.Fatalf("new block ref = %d, want %d", b.Ref, created.ID)
			}
		case "Typed meanwhile":
			if b.Ref != 0 {
				t.Fatalf("unrelated block picked up ref %d", b.Ref)
			}
		}
	}
}

func TestCommitRejectsOversizedBodyBeforeWriting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seed := seedCommitFixture(t, f)
	ed := seed.sess.Editor()

	if err := ed.InsertText(editor.Point{Block: 0, Offset: 8}, " II"); err != nil {
		t.Fatalf("edit title: %v", err)
	}
	long := make([]byte, 2001)
	for i := range long {
		long[i] = 'a'
	}
	if err := ed.InsertBlock(4, editor.KindListItem, string(long)); err != nil {
		t.Fatalf("insert block: %v", err)
	}

	if _, err := f.svc.Commit(ctx, seed.sess); !errors.Is(err, achievements.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	res, _ := f.resumes.GetByID(ctx, seed.resume.ID)
	if res.Title != "Engineer" {
		t.Fatalf("title written before validation: %q", res.Title)
	}
}
