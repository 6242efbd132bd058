package users

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

const userColumns = `id, name, email, google_sub, picture_url, created_at, updated_at`

func (r *PGRepo) List(ctx context.Context) ([]User, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, user)
	}
	return out, rows.Err()
}

func (r *PGRepo) GetByID(ctx context.Context, id int64) (User, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanOne(row)
}

func (r *PGRepo) GetByEmail(ctx context.Context, email string) (User, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
	return scanOne(row)
}

func (r *PGRepo) Create(ctx context.Context, in CreateInput) (User, error) {
	const query = `
INSERT INTO users (name, email, created_at, updated_at)
VALUES ($1, $2, now(), now())
RETURNING ` + userColumns
	row := r.DB.QueryRowContext(ctx, query, nullableString(in.Name), in.Email)
	user, err := scanOne(row)
	return user, mapWriteErr(err)
}

func (r *PGRepo) Update(ctx context.Context, id int64, in UpdateInput) (User, error) {
	sets := []string{}
	args := []any{}
	if in.Name != nil {
		args = append(args, nullableString(in.Name))
		sets = append(sets, fmt.Sprintf("name = $%d", len(args)))
	}
	if in.Email != nil {
		args = append(args, *in.Email)
		sets = append(sets, fmt.Sprintf("email = $%d", len(args)))
	}
	sets = append(sets, "updated_at = now()")
	args = append(args, id)
	query := fmt.Sprintf(`UPDATE users SET %s WHERE id = $%d RETURNING %s`, strings.Join(sets, ", "), len(args), userColumns)
	user, err := scanOne(r.DB.QueryRowContext(ctx, query, args...))
	return user, mapWriteErr(err)
}

func (r *PGRepo) Delete(ctx context.Context, id int64) (User, error) {
	row := r.DB.QueryRowContext(ctx, `DELETE FROM users WHERE id = $1 RETURNING `+userColumns, id)
	return scanOne(row)
}

func (r *PGRepo) UpsertByEmail(ctx context.Context, identity Identity) (User, error) {
	const query = `
INSERT INTO users (name, email, google_sub, picture_url, created_at, updated_at)
VALUES ($1, $2, $3, $4, now(), now())
ON CONFLICT (email) DO UPDATE SET
  name = COALESCE(EXCLUDED.name, users.name),
  google_sub = EXCLUDED.google_sub,
  picture_url = EXCLUDED.picture_url,
  updated_at = now()
RETURNING ` + userColumns
	var name *string
	if identity.Name != "" {
		name = &identity.Name
	}
	row := r.DB.QueryRowContext(ctx, query,
		nullableString(name),
		identity.Email,
		emptyToNull(identity.Sub),
		emptyToNull(identity.PictureURL),
	)
	return scanOne(row)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOne(row scanner) (User, error) {
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return user, nil
}

func scanUser(row scanner) (User, error) {
	var user User
	var name sql.NullString
	var googleSub sql.NullString
	var pictureURL sql.NullString
	if err := row.Scan(
		&user.ID,
		&name,
		&user.Email,
		&googleSub,
		&pictureURL,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return User{}, err
	}
	if name.Valid {
		v := name.String
		user.Name = &v
	}
	user.GoogleSub = googleSub.String
	user.PictureURL = pictureURL.String
	return user, nil
}

func mapWriteErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrEmailTaken
	}
	return err
}

func nullableString(value *string) any {
	if value == nil {
		return nil
	}
	return *value
}

func emptyToNull(value string) any {
	if value == "" {
		return nil
	}
	return value
}
