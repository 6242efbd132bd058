package resumes

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

const resumeColumns = `id, title, user_id, created_at`

func (r *PGRepo) List(ctx context.Context) ([]Resume, error) {
	return r.query(ctx, `SELECT `+resumeColumns+` FROM resumes ORDER BY id`)
}

func (r *PGRepo) ListByUser(ctx context.Context, userID int64) ([]Resume, error) {
	return r.query(ctx, `SELECT `+resumeColumns+` FROM resumes WHERE user_id = $1 ORDER BY id`, userID)
}

func (r *PGRepo) query(ctx context.Context, query string, args ...any) ([]Resume, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Resume{}
	for rows.Next() {
		var res Resume
		if err := rows.Scan(&res.ID, &res.Title, &res.UserID, &res.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func (r *PGRepo) GetByID(ctx context.Context, id int64) (Resume, error) {
	return scanOne(r.DB.QueryRowContext(ctx, `SELECT `+resumeColumns+` FROM resumes WHERE id = $1`, id))
}

func (r *PGRepo) Create(ctx context.Context, in CreateInput) (Resume, error) {
	const query = `
INSERT INTO resumes (title, user_id, created_at)
VALUES ($1, $2, now())
RETURNING ` + resumeColumns
	res, err := scanOne(r.DB.QueryRowContext(ctx, query, in.Title, in.UserID))
	return res, mapWriteErr(err)
}

func (r *PGRepo) Update(ctx context.Context, id int64, in UpdateInput) (Resume, error) {
	sets := []string{}
	args := []any{}
	if in.Title != nil {
		args = append(args, *in.Title)
		sets = append(sets, fmt.Sprintf("title = $%d", len(args)))
	}
	if in.UserID != nil {
		args = append(args, *in.UserID)
		sets = append(sets, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if len(sets) == 0 {
		return r.GetByID(ctx, id)
	}
	args = append(args, id)
	query := fmt.Sprintf(`UPDATE resumes SET %s WHERE id = $%d RETURNING %s`, strings.Join(sets, ", "), len(args), resumeColumns)
	res, err := scanOne(r.DB.QueryRowContext(ctx, query, args...))
	return res, mapWriteErr(err)
}

func (r *PGRepo) Delete(ctx context.Context, id int64) (Resume, error) {
	return scanOne(r.DB.QueryRowContext(ctx, `DELETE FROM resumes WHERE id = $1 RETURNING `+resumeColumns, id))
}

func scanOne(row *sql.Row) (Resume, error) {
	var res Resume
	if err := row.Scan(&res.ID, &res.Title, &res.UserID, &res.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Resume{}, ErrNotFound
		}
		return Resume{}, err
	}
	return res, nil
}

// mapWriteErr turns a foreign key violation on user_id into a validation error.
func mapWriteErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return fmt.Errorf("%w: userId: user does not exist", ErrValidation)
	}
	return err
}
