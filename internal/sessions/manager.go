package sessions

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"resume-editor/internal/editor"
	"resume-editor/internal/shared/metrics"
	"resume-editor/internal/shared/telemetry"
)

const (
	defaultTTL         = 2 * time.Hour
	defaultMaxPerOwner = 20
	minSweepInterval   = time.Second
	maxSweepInterval   = time.Minute
)

// Options configures a Manager. Zero values select defaults.
type Options struct {
	TTL           time.Duration
	SweepInterval time.Duration
	MaxPerOwner   int
	Document      editor.Config
	Trigger       editor.TriggerConfig
	Now           func() time.Time
}

// Manager keeps the open editor sessions in memory and evicts idle ones.
type Manager struct {
	opts Options

	mu       sync.Mutex
	sessions map[string]*Session
	running  bool

	stop      chan struct{}
	done      chan struct{}
	startOnce sync.Once
	closeOnce sync.Once
}

func NewManager(opts Options) *Manager {
	if opts.TTL <= 0 {
		opts.TTL = defaultTTL
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = opts.TTL / 4
		if opts.SweepInterval < minSweepInterval {
			opts.SweepInterval = minSweepInterval
		}
		if opts.SweepInterval > maxSweepInterval {
			opts.SweepInterval = maxSweepInterval
		}
	}
	if opts.MaxPerOwner <= 0 {
		opts.MaxPerOwner = defaultMaxPerOwner
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{
		opts:     opts,
		sessions: make(map[string]*Session),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs the idle sweeper until Close.
func (m *Manager) Start() {
	m.startOnce.Do(func() {
		m.mu.Lock()
		m.running = true
		m.mu.Unlock()
		go m.sweepLoop()
	})
}

func (m *Manager) sweepLoop() {
	defer close(m.done)
	ticker := time.NewTicker(m.opts.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.Sweep()
		case <-m.stop:
			return
		}
	}
}

// TTL is the idle lifetime of a session.
func (m *Manager) TTL() time.Duration { return m.opts.TTL }

// Create opens a session for owner seeded with blocks.
func (m *Manager) Create(owner string, blocks []*editor.Block, resumeID *int64) (*Session, error) {
	now := m.opts.Now()
	id := uuid.NewString()
	sess := &Session{
		ID:        id,
		owner:     owner,
		ResumeID:  resumeID,
		CreatedAt: now,
		lastSeen:  now,
	}

	m.mu.Lock()
	open := 0
	for _, s := range m.sessions {
		if s.ownedBy(owner) {
			open++
		}
	}
	if open >= m.opts.MaxPerOwner {
		m.mu.Unlock()
		return nil, ErrTooManySessions
	}
	sess.ed = m.newEditor(id, blocks)
	m.sessions[id] = sess
	active := len(m.sessions)
	m.mu.Unlock()

	metrics.SetSessionsActive(active)
	telemetry.Info("editor.session.created", map[string]any{
		"session_id": id,
		"user_id":    owner,
		"blocks":     len(blocks),
	})
	return sess, nil
}

func (m *Manager) newEditor(sessionID string, blocks []*editor.Block) *editor.Editor {
	cfg := m.opts.Trigger
	cfg.OnEvent = m.observe(sessionID, m.opts.Trigger.OnEvent)
	return editor.NewEditor(editor.New(m.opts.Document, blocks...), cfg)
}

// observe turns trigger events into metrics and log lines.
func (m *Manager) observe(sessionID string, next func(editor.Event)) func(editor.Event) {
	return func(ev editor.Event) {
		fields := map[string]any{
			"session_id": sessionID,
			"run_id":     string(ev.Run),
			"event":      ev.Kind.String(),
		}
		if ev.Duration > 0 {
			fields["duration_ms"] = ev.Duration.Milliseconds()
		}
		if ev.Err != nil {
			fields["error"] = ev.Err.Error()
		}

		switch ev.Kind {
		case editor.EventRequested:
			metrics.IncCompletionStarted()
			telemetry.Debug("editor.completion", fields)
		case editor.EventSettled:
			metrics.IncCompletionCompleted()
			metrics.ObserveCompletionDurationMs(float64(ev.Duration.Milliseconds()))
			telemetry.Info("editor.completion", fields)
		case editor.EventFailed:
			metrics.IncCompletionFailed()
			metrics.ObserveCompletionDurationMs(float64(ev.Duration.Milliseconds()))
			telemetry.Warn("editor.completion", fields)
		case editor.EventCancelled:
			metrics.IncCompletionCancelled()
			telemetry.Debug("editor.completion", fields)
		case editor.EventDiscarded:
			metrics.IncCompletionDiscarded()
			telemetry.Debug("editor.completion", fields)
		}
		if next != nil {
			next(ev)
		}
	}
}

// Get returns the session when owner matches. Sessions owned by someone else
// are reported as missing.
func (m *Manager) Get(id, owner string) (*Session, error) {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok || !sess.ownedBy(owner) {
		return nil, ErrNotFound
	}
	sess.touch(m.opts.Now())
	return sess, nil
}

// Delete closes and forgets a session.
func (m *Manager) Delete(id, owner string) error {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	if !ok || !sess.ownedBy(owner) {
		m.mu.Unlock()
		return ErrNotFound
	}
	delete(m.sessions, id)
	active := len(m.sessions)
	m.mu.Unlock()

	sess.Editor().Close()
	metrics.SetSessionsActive(active)
	telemetry.Info("editor.session.closed", map[string]any{"session_id": id, "reason": "deleted"})
	return nil
}

// Transfer hands every session owned by from over to to, up to the per-owner
// limit, and returns how many moved. Guests claim their drafts this way
// after signing in.
func (m *Manager) Transfer(from, to string) int {
	if from == "" || to == "" || from == to {
		return 0
	}
	m.mu.Lock()
	open := 0
	var moving []*Session
	for _, sess := range m.sessions {
		switch sess.Owner() {
		case to:
			open++
		case from:
			moving = append(moving, sess)
		}
	}
	moved := 0
	for _, sess := range moving {
		if open >= m.opts.MaxPerOwner {
			break
		}
		sess.setOwner(to)
		sess.touch(m.opts.Now())
		open++
		moved++
	}
	m.mu.Unlock()

	if moved > 0 {
		telemetry.Info("editor.session.transferred", map[string]any{
			"from":  from,
			"to":    to,
			"count": moved,
		})
	}
	return moved
}

// Restore replaces the session's editor with one built from blocks. The old
// editor is closed, cancelling its in-flight completions.
func (m *Manager) Restore(sess *Session, blocks []*editor.Block, sel editor.Selection) {
	ed := m.newEditor(sess.ID, blocks)
	_ = ed.Select(sel)
	if old := sess.swap(ed); old != nil {
		old.Close()
	}
}

// Sweep evicts sessions idle for longer than the TTL and returns how many
// were closed.
func (m *Manager) Sweep() int {
	cutoff := m.opts.Now().Add(-m.opts.TTL)
	var expired []*Session

	m.mu.Lock()
	for id, sess := range m.sessions {
		if sess.idleSince().Before(cutoff) {
			expired = append(expired, sess)
			delete(m.sessions, id)
		}
	}
	active := len(m.sessions)
	m.mu.Unlock()

	for _, sess := range expired {
		sess.Editor().Close()
		telemetry.Info("editor.session.closed", map[string]any{"session_id": sess.ID, "reason": "idle"})
	}
	if len(expired) > 0 {
		metrics.SetSessionsActive(active)
	}
	return len(expired)
}

// Len reports the number of open sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// ExpiresAt is when sess will be evicted if left idle.
func (m *Manager) ExpiresAt(sess *Session) time.Time {
	return sess.idleSince().Add(m.opts.TTL)
}

// Close stops the sweeper and closes every session.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		close(m.stop)
		// A manager closed before Start never starts.
		m.startOnce.Do(func() {})

		m.mu.Lock()
		running := m.running
		all := make([]*Session, 0, len(m.sessions))
		for id, sess := range m.sessions {
			all = append(all, sess)
			delete(m.sessions, id)
		}
		m.mu.Unlock()

		if running {
			<-m.done
		}
		for _, sess := range all {
			sess.Editor().Close()
		}
		metrics.SetSessionsActive(0)
	})
}
