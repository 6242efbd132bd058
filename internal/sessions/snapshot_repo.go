package sessions

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
)

// SnapshotRepo stores snapshot metadata. The snapshot body lives in the
// object store under ObjectKey.
type SnapshotRepo interface {
	Create(ctx context.Context, meta SnapshotMeta) error
	Get(ctx context.Context, id string) (SnapshotMeta, error)
	ListBySession(ctx context.Context, sessionID string) ([]SnapshotMeta, error)
	Reassign(ctx context.Context, from, to string) (int64, error)
}

var ErrSnapshotNotFound = errors.New("snapshot not found")

type MemorySnapshotRepo struct {
	mu    sync.RWMutex
	items map[string]SnapshotMeta
}

func NewMemorySnapshotRepo() *MemorySnapshotRepo {
	return &MemorySnapshotRepo{items: make(map[string]SnapshotMeta)}
}

func (r *MemorySnapshotRepo) Create(ctx context.Context, meta SnapshotMeta) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[meta.ID] = meta
	return nil
}

func (r *MemorySnapshotRepo) Get(ctx context.Context, id string) (SnapshotMeta, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	meta, ok := r.items[id]
	if !ok {
		return SnapshotMeta{}, ErrSnapshotNotFound
	}
	return meta, nil
}

func (r *MemorySnapshotRepo) ListBySession(ctx context.Context, sessionID string) ([]SnapshotMeta, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []SnapshotMeta{}
	for _, meta := range r.items {
		if meta.SessionID == sessionID {
			out = append(out, meta)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemorySnapshotRepo) Reassign(ctx context.Context, from, to string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, meta := range r.items {
		if meta.UserID == from {
			meta.UserID = to
			r.items[id] = meta
			n++
		}
	}
	return n, nil
}

type PGSnapshotRepo struct {
	DB *sql.DB
}

const snapshotColumns = `id, session_id, user_id, resume_id, object_key, block_count, created_at`

func (r *PGSnapshotRepo) Create(ctx context.Context, meta SnapshotMeta) error {
	const query = `
INSERT INTO editor_snapshots (id, session_id, user_id, resume_id, object_key, block_count, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	var resumeID sql.NullInt64
	if meta.ResumeID != nil {
		resumeID = sql.NullInt64{Int64: *meta.ResumeID, Valid: true}
	}
	_, err := r.DB.ExecContext(ctx, query, meta.ID, meta.SessionID, meta.UserID, resumeID, meta.ObjectKey, meta.BlockCount, meta.CreatedAt)
	return err
}

func (r *PGSnapshotRepo) Get(ctx context.Context, id string) (SnapshotMeta, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+snapshotColumns+` FROM editor_snapshots WHERE id = $1`, id)
	meta, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return SnapshotMeta{}, ErrSnapshotNotFound
	}
	return meta, err
}

func (r *PGSnapshotRepo) ListBySession(ctx context.Context, sessionID string) ([]SnapshotMeta, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+snapshotColumns+` FROM editor_snapshots WHERE session_id = $1 ORDER BY created_at DESC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []SnapshotMeta{}
	for rows.Next() {
		meta, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, meta)
	}
	return out, rows.Err()
}

func (r *PGSnapshotRepo) Reassign(ctx context.Context, from, to string) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `UPDATE editor_snapshots SET user_id = $2 WHERE user_id = $1`, from, to)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner) (SnapshotMeta, error) {
	var (
		meta     SnapshotMeta
		resumeID sql.NullInt64
	)
	if err := row.Scan(&meta.ID, &meta.SessionID, &meta.UserID, &resumeID, &meta.ObjectKey, &meta.BlockCount, &meta.CreatedAt); err != nil {
		return SnapshotMeta{}, err
	}
	if resumeID.Valid {
		id := resumeID.Int64
		meta.ResumeID = &id
	}
	return meta, nil
}
