package achievements

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

type PGRepo struct {
	DB *sql.DB
}

const achievementColumns = `id, body, resume_id, created_at`

func (r *PGRepo) ListByResume(ctx context.Context, resumeID int64) ([]Achievement, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+achievementColumns+` FROM achievements WHERE resume_id = $1 ORDER BY id`, resumeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Achievement{}
	for rows.Next() {
		a, err := scanAchievement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *PGRepo) GetByID(ctx context.Context, id int64) (Achievement, error) {
	return scanOne(r.DB.QueryRowContext(ctx, `SELECT `+achievementColumns+` FROM achievements WHERE id = $1`, id))
}

func (r *PGRepo) Create(ctx context.Context, in CreateInput) (Achievement, error) {
	const query = `
INSERT INTO achievements (body, resume_id, created_at)
VALUES ($1, $2, now())
RETURNING ` + achievementColumns
	a, err := scanOne(r.DB.QueryRowContext(ctx, query, in.Body, nullableID(in.ResumeID)))
	return a, mapWriteErr(err)
}

func (r *PGRepo) Update(ctx context.Context, id int64, in UpdateInput) (Achievement, error) {
	sets := []string{}
	args := []any{}
	if in.Body != nil {
		args = append(args, *in.Body)
		sets = append(sets, fmt.Sprintf("body = $%d", len(args)))
	}
	if in.ResumeID != nil {
		args = append(args, *in.ResumeID)
		sets = append(sets, fmt.Sprintf("resume_id = $%d", len(args)))
	}
	if len(sets) == 0 {
		return r.GetByID(ctx, id)
	}
	args = append(args, id)
	query := fmt.Sprintf(`UPDATE achievements SET %s WHERE id = $%d RETURNING %s`, strings.Join(sets, ", "), len(args), achievementColumns)
	a, err := scanOne(r.DB.QueryRowContext(ctx, query, args...))
	return a, mapWriteErr(err)
}

func (r *PGRepo) Delete(ctx context.Context, id int64) (Achievement, error) {
	return scanOne(r.DB.QueryRowContext(ctx, `DELETE FROM achievements WHERE id = $1 RETURNING `+achievementColumns, id))
}

func (r *PGRepo) DetachResume(ctx context.Context, resumeID int64) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `UPDATE achievements SET resume_id = NULL WHERE resume_id = $1`, resumeID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOne(row scanner) (Achievement, error) {
	a, err := scanAchievement(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Achievement{}, ErrNotFound
		}
		return Achievement{}, err
	}
	return a, nil
}

func scanAchievement(row scanner) (Achievement, error) {
	var a Achievement
	var resumeID sql.NullInt64
	if err := row.Scan(&a.ID, &a.Body, &resumeID, &a.CreatedAt); err != nil {
		return Achievement{}, err
	}
	if resumeID.Valid {
		v := resumeID.Int64
		a.ResumeID = &v
	}
	return a, nil
}

func mapWriteErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return fmt.Errorf("%w: resumeId: resume does not exist", ErrValidation)
	}
	return err
}

func nullableID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}
