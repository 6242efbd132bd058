package sessions

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"resume-editor/internal/achievements"
	"resume-editor/internal/editor"
	"resume-editor/internal/exporter"
	"resume-editor/internal/importer"
	"resume-editor/internal/resumes"
	"resume-editor/internal/shared/storage/object"
	"resume-editor/internal/shared/telemetry"
	"resume-editor/internal/users"
)

const snapshotVersion = 1

// ResumeStore is the part of the resume service used to seed and commit.
type ResumeStore interface {
	GetByID(ctx context.Context, id int64) (resumes.Resume, error)
	Update(ctx context.Context, id int64, in resumes.UpdateInput) (resumes.Resume, error)
}

// AchievementStore is the part of the achievement service used to seed and commit.
type AchievementStore interface {
	ListByResume(ctx context.Context, resumeID int64) ([]achievements.Achievement, error)
	Create(ctx context.Context, in achievements.CreateInput) (achievements.Achievement, error)
	Update(ctx context.Context, id int64, in achievements.UpdateInput) (achievements.Achievement, error)
	Delete(ctx context.Context, id int64) (achievements.Achievement, error)
}

// Service ties editor sessions to imports, exports, snapshots and resumes.
type Service struct {
	Manager      *Manager
	Store        object.ObjectStore
	Snapshots    SnapshotRepo
	Resumes      ResumeStore
	Achievements AchievementStore
	// Commits applies commit plans. Nil applies them through Resumes and
	// Achievements.
	Commits CommitStore
	Now     func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// CreateEmpty opens a session holding a title and an empty list item.
func (s *Service) CreateEmpty(owner, title string) (*Session, error) {
	var blocks []*editor.Block
	if title = strings.TrimSpace(title); title != "" {
		blocks = append(blocks,
			editor.NewBlock(editor.KindTitle, title),
			editor.NewBlock(editor.KindListItem, ""),
		)
	}
	return s.Manager.Create(owner, blocks, nil)
}

// CreateFromUpload stores the upload and opens a session with its content.
func (s *Service) CreateFromUpload(ctx context.Context, owner, fileName, mimeType string, r io.Reader) (*Session, error) {
	if s.Store == nil {
		return nil, errors.New("object store not configured")
	}
	key, size, sniffed, err := s.Store.Save(ctx, owner, fileName, r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if strings.TrimSpace(mimeType) == "" || mimeType == "application/octet-stream" {
		mimeType = sniffed
	}

	blocks, err := importer.ImportObject(ctx, s.Store, key, mimeType, fileName)
	if err != nil {
		_ = s.Store.Delete(ctx, key)
		return nil, err
	}
	sess, err := s.Manager.Create(owner, blocks, nil)
	if err != nil {
		return nil, err
	}
	telemetry.Info("editor.session.imported", map[string]any{
		"session_id": sess.ID,
		"file_key":   key,
		"size_bytes": size,
		"mime_type":  mimeType,
		"blocks":     len(blocks),
	})
	return sess, nil
}

// SeedFromResume opens a session holding a resume title and its achievements.
func (s *Service) SeedFromResume(ctx context.Context, owner string, resumeID int64) (*Session, error) {
	res, err := s.ownedResume(ctx, owner, resumeID)
	if err != nil {
		return nil, err
	}
	items, err := s.Achievements.ListByResume(ctx, res.ID)
	if err != nil {
		return nil, err
	}

	title := editor.NewBlock(editor.KindTitle, res.Title)
	title.Ref = res.ID
	blocks := []*editor.Block{title}
	for _, a := range items {
		b := editor.NewBlock(editor.KindListItem, a.Body)
		b.Ref = a.ID
		blocks = append(blocks, b)
	}
	id := res.ID
	return s.Manager.Create(owner, blocks, &id)
}

func (s *Service) ownedResume(ctx context.Context, owner string, resumeID int64) (resumes.Resume, error) {
	if s.Resumes == nil || s.Achievements == nil {
		return resumes.Resume{}, errors.New("resume services not configured")
	}
	userID, ok := users.ParseSubject(owner)
	if !ok {
		return resumes.Resume{}, ErrForbidden
	}
	res, err := s.Resumes.GetByID(ctx, resumeID)
	if err != nil {
		return resumes.Resume{}, err
	}
	if res.UserID != userID {
		return resumes.Resume{}, ErrForbidden
	}
	return res, nil
}

// Commit writes the session back to its resume. The title block updates the
// resume title; every other block maps to an achievement through its Ref.
// Achievements without a matching block are deleted. All writes are planned
// first and applied as one unit.
func (s *Service) Commit(ctx context.Context, sess *Session) (CommitResult, error) {
	if sess.ResumeID == nil {
		return CommitResult{}, ErrNoResume
	}
	res, err := s.ownedResume(ctx, sess.Owner(), *sess.ResumeID)
	if err != nil {
		return CommitResult{}, err
	}
	existing, err := s.Achievements.ListByResume(ctx, res.ID)
	if err != nil {
		return CommitResult{}, err
	}
	byID := make(map[int64]achievements.Achievement, len(existing))
	for _, a := range existing {
		byID[a.ID] = a
	}

	ed := sess.Editor()
	blocks := committedBlocks(ed.Snapshot())
	plan := CommitPlan{ResumeID: res.ID}
	if title := strings.TrimSpace(blocks[0].Text()); title != "" && title != res.Title {
		if err := resumes.ValidateTitle(title); err != nil {
			return CommitResult{}, err
		}
		plan.Title = &title
	}

	keep := make(map[int64]bool, len(blocks))
	var createdFrom []editor.RunID
	for _, b := range blocks[1:] {
		body := strings.TrimSpace(b.Text())
		if body == "" {
			continue
		}
		if err := achievements.ValidateBody(body); err != nil {
			return CommitResult{}, err
		}
		if prev, ok := byID[b.Ref]; ok && !keep[b.Ref] {
			keep[b.Ref] = true
			if prev.Body != body {
				plan.Updates = append(plan.Updates, AchievementBody{ID: prev.ID, Body: body})
			}
			continue
		}
		plan.Creates = append(plan.Creates, body)
		// New achievements are linked through the block's first run, which
		// survives edits that shift block indexes.
		createdFrom = append(createdFrom, b.Runs[0].ID)
	}
	for _, a := range existing {
		if !keep[a.ID] {
			plan.Deletes = append(plan.Deletes, a.ID)
		}
	}

	out := CommitResult{
		ResumeID: res.ID,
		Title:    plan.Title != nil,
		Created:  len(plan.Creates),
		Updated:  len(plan.Updates),
		Deleted:  len(plan.Deletes),
	}
	if plan.empty() {
		return out, nil
	}
	created, err := s.commits().ApplyCommit(ctx, plan)
	if err != nil {
		telemetry.Warn("editor.session.commit_failed", map[string]any{
			"session_id": sess.ID,
			"resume_id":  res.ID,
			"error":      err.Error(),
		})
		return CommitResult{ResumeID: res.ID}, err
	}
	for i, id := range created {
		if err := ed.SetRefByRun(createdFrom[i], id); err != nil {
			// The block was removed meanwhile; the next commit deletes the record.
			telemetry.Warn("editor.session.ref_unlinked", map[string]any{
				"session_id":     sess.ID,
				"achievement_id": id,
				"error":          err.Error(),
			})
		}
	}

	telemetry.Info("editor.session.committed", map[string]any{
		"session_id":    sess.ID,
		"resume_id":     res.ID,
		"title_updated": out.Title,
		"created":       out.Created,
		"updated":       out.Updated,
		"deleted":       out.Deleted,
	})
	return out, nil
}

func (s *Service) commits() CommitStore {
	if s.Commits != nil {
		return s.Commits
	}
	return serviceCommitStore{resumes: s.Resumes, achievements: s.Achievements}
}

// Export renders the committed content of the session.
func (s *Service) Export(sess *Session, format string, w io.Writer) error {
	return exporter.Write(w, format, committedBlocks(sess.Editor().Snapshot()))
}

type snapshotBody struct {
	Version   int              `json:"version"`
	SessionID string           `json:"sessionId"`
	Blocks    []*editor.Block  `json:"blocks"`
	Selection editor.Selection `json:"selection"`
	CreatedAt time.Time        `json:"createdAt"`
}

// SaveSnapshot writes the committed content of the session to the object
// store and records its metadata.
func (s *Service) SaveSnapshot(ctx context.Context, sess *Session) (SnapshotMeta, error) {
	if s.Store == nil || s.Snapshots == nil {
		return SnapshotMeta{}, errors.New("snapshot storage not configured")
	}
	snap := sess.Editor().Snapshot()
	body := snapshotBody{
		Version:   snapshotVersion,
		SessionID: sess.ID,
		Blocks:    committedBlocks(snap),
		Selection: snap.Selection,
		CreatedAt: s.now(),
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return SnapshotMeta{}, fmt.Errorf("encode snapshot: %w", err)
	}

	meta := SnapshotMeta{
		ID:         uuid.NewString(),
		SessionID:  sess.ID,
		UserID:     sess.Owner(),
		ResumeID:   sess.ResumeID,
		BlockCount: len(body.Blocks),
		CreatedAt:  body.CreatedAt,
	}
	meta.ObjectKey = object.SnapshotKey(sess.ID, meta.ID)
	if _, err := s.Store.SaveWithKey(ctx, meta.ObjectKey, "application/json", bytes.NewReader(raw)); err != nil {
		return SnapshotMeta{}, fmt.Errorf("store snapshot: %w", err)
	}
	if err := s.Snapshots.Create(ctx, meta); err != nil {
		_ = s.Store.Delete(ctx, meta.ObjectKey)
		return SnapshotMeta{}, fmt.Errorf("record snapshot: %w", err)
	}
	telemetry.Info("editor.snapshot.saved", map[string]any{
		"session_id":  sess.ID,
		"snapshot_id": meta.ID,
		"blocks":      meta.BlockCount,
		"size_bytes":  len(raw),
	})
	return meta, nil
}

// ClaimGuest moves a guest's open sessions and saved snapshots to owner.
// guestOwner is the "guest:" principal the drafts were created under.
func (s *Service) ClaimGuest(ctx context.Context, guestOwner, owner string) (int, error) {
	if !strings.HasPrefix(guestOwner, "guest:") || owner == "" {
		return 0, nil
	}
	moved := s.Manager.Transfer(guestOwner, owner)
	if s.Snapshots != nil {
		if _, err := s.Snapshots.Reassign(ctx, guestOwner, owner); err != nil {
			return moved, fmt.Errorf("reassign snapshots: %w", err)
		}
	}
	return moved, nil
}

// ListSnapshots returns the snapshots taken of sess, newest first.
func (s *Service) ListSnapshots(ctx context.Context, sess *Session) ([]SnapshotMeta, error) {
	if s.Snapshots == nil {
		return []SnapshotMeta{}, nil
	}
	return s.Snapshots.ListBySession(ctx, sess.ID)
}

// RestoreSnapshot replaces the session content with a snapshot owned by the
// same principal. In-flight completions of the replaced editor are cancelled.
func (s *Service) RestoreSnapshot(ctx context.Context, sess *Session, snapshotID string) error {
	if s.Store == nil || s.Snapshots == nil {
		return errors.New("snapshot storage not configured")
	}
	meta, err := s.Snapshots.Get(ctx, snapshotID)
	if err != nil {
		return err
	}
	if meta.UserID != sess.Owner() {
		return ErrSnapshotNotFound
	}

	rc, err := s.Store.Open(ctx, meta.ObjectKey)
	if err != nil {
		if errors.Is(err, object.ErrNotFound) {
			return ErrSnapshotNotFound
		}
		return err
	}
	defer rc.Close()

	var body snapshotBody
	if err := json.NewDecoder(rc).Decode(&body); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	if body.Version != snapshotVersion {
		return fmt.Errorf("unsupported snapshot version %d", body.Version)
	}
	s.Manager.Restore(sess, body.Blocks, body.Selection)
	telemetry.Info("editor.snapshot.restored", map[string]any{
		"session_id":  sess.ID,
		"snapshot_id": meta.ID,
	})
	return nil
}

// View renders the session for API responses.
func (s *Service) View(sess *Session) View {
	snap := sess.Editor().Snapshot()
	return View{
		ID:        sess.ID,
		ResumeID:  sess.ResumeID,
		Blocks:    snap.Blocks,
		Selection: snap.Selection,
		Runs:      snap.Runs,
		CreatedAt: sess.CreatedAt,
		ExpiresAt: s.Manager.ExpiresAt(sess),
	}
}

// committedBlocks drops rewrite previews: runs with an open completion cycle
// get their original text back and lose the underline.
func committedBlocks(snap editor.Snapshot) []*editor.Block {
	open := make(map[editor.RunID]editor.RunStatus, len(snap.Runs))
	for _, st := range snap.Runs {
		if st.State != editor.StateIdle {
			open[st.Run] = st
		}
	}
	for _, b := range snap.Blocks {
		for _, r := range b.Runs {
			st, ok := open[r.ID]
			if !ok {
				continue
			}
			if st.State == editor.StateSettled {
				r.Text = st.Original
			}
			r.Marks.Underlined = false
		}
	}
	return snap.Blocks
}
