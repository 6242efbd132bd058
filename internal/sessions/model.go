package sessions

import (
	"errors"
	"sync"
	"time"

	"resume-editor/internal/editor"
)

var (
	ErrNotFound        = errors.New("editor session not found")
	ErrTooManySessions = errors.New("too many open editor sessions")
	ErrForbidden       = errors.New("resume belongs to another user")
	ErrNoResume        = errors.New("session is not linked to a resume")
	ErrInvalidInput    = errors.New("invalid input")
)

// Session is one open editor owned by a single principal.
type Session struct {
	ID        string
	ResumeID  *int64
	CreatedAt time.Time

	mu       sync.Mutex
	owner    string
	ed       *editor.Editor
	lastSeen time.Time
}

// Owner is the principal the session belongs to: a user subject or a
// "guest:" id. It changes when a guest signs in and claims the session.
func (s *Session) Owner() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.owner
}

func (s *Session) ownedBy(owner string) bool {
	return s.Owner() == owner
}

func (s *Session) setOwner(owner string) {
	s.mu.Lock()
	s.owner = owner
	s.mu.Unlock()
}

// Editor returns the current editor. Restoring a snapshot swaps it.
func (s *Session) Editor() *editor.Editor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ed
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *Session) swap(ed *editor.Editor) *editor.Editor {
	s.mu.Lock()
	defer s.mu.Unlock()
	old := s.ed
	s.ed = ed
	return old
}

// View is the JSON shape of a session.
type View struct {
	ID        string             `json:"id"`
	ResumeID  *int64             `json:"resumeId,omitempty"`
	Blocks    []*editor.Block    `json:"blocks"`
	Selection editor.Selection   `json:"selection"`
	Runs      []editor.RunStatus `json:"runs,omitempty"`
	CreatedAt time.Time          `json:"createdAt"`
	ExpiresAt time.Time          `json:"expiresAt"`
}

// SnapshotMeta describes a stored session snapshot.
type SnapshotMeta struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"sessionId"`
	UserID     string    `json:"-"`
	ResumeID   *int64    `json:"resumeId,omitempty"`
	ObjectKey  string    `json:"-"`
	BlockCount int       `json:"blockCount"`
	CreatedAt  time.Time `json:"createdAt"`
}

// CommitResult counts the writes made by a commit.
type CommitResult struct {
	ResumeID int64 `json:"resumeId"`
	Title    bool  `json:"titleUpdated"`
	Created  int   `json:"created"`
	Updated  int   `json:"updated"`
	Deleted  int   `json:"deleted"`
}
