package editor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

const (
	defaultCompletionTimeout = 30 * time.Second
	defaultMaxInFlight       = 4
)

var (
	ErrEmptyCompletion = errors.New("completion returned no text")
	ErrNotSettled      = errors.New("run has no settled rewrite")
	ErrNoCompleter     = errors.New("completion service not configured")
)

// CompletionRequest is the payload sent to the completion service.
type CompletionRequest struct {
	SourceText string
	Kind       Kind
}

// CompletionResult is the rewrite returned by the completion service.
type CompletionResult struct {
	Text string
}

// Completer rewrites the text of one run.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResult, error)
}

// State is the completion state of a single run.
type State uint8

const (
	StateIdle State = iota
	StatePending
	StateSettled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePending:
		return "pending"
	case StateSettled:
		return "settled"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// EventKind classifies trigger events reported through TriggerConfig.OnEvent.
type EventKind uint8

const (
	EventRequested EventKind = iota + 1
	EventSettled
	EventFailed
	EventCancelled
	EventDiscarded
)

func (k EventKind) String() string {
	switch k {
	case EventRequested:
		return "requested"
	case EventSettled:
		return "settled"
	case EventFailed:
		return "failed"
	case EventCancelled:
		return "cancelled"
	case EventDiscarded:
		return "discarded"
	default:
		return fmt.Sprintf("event(%d)", uint8(k))
	}
}

// Event describes one step of a run's completion cycle.
type Event struct {
	Run      RunID
	Kind     EventKind
	Err      error
	Duration time.Duration
}

// TriggerConfig controls how underlined runs are sent for completion.
type TriggerConfig struct {
	Completer Completer
	// Timeout bounds a single outbound request.
	Timeout time.Duration
	// MaxInFlight caps concurrent requests for one document.
	MaxInFlight int64
	// Debounce delays the outbound call; turning the mark off inside the
	// window cancels it without a request.
	Debounce time.Duration
	Sanitize func(string) string
	// OnEvent is called from the request goroutine, never under the editor lock.
	OnEvent func(Event)
}

// RunStatus is the observable completion state of a run.
type RunStatus struct {
	Run      RunID  `json:"run"`
	State    State  `json:"state"`
	Original string `json:"original,omitempty"`
	Result   string `json:"result,omitempty"`
	Notice   string `json:"notice,omitempty"`
}

type task struct {
	gen      uint64
	state    State
	original string
	result   string
	cancel   context.CancelFunc
}

type trigger struct {
	cfg     TriggerConfig
	root    context.Context
	stop    context.CancelFunc
	sem     *semaphore.Weighted
	wg      sync.WaitGroup
	gen     uint64
	tasks   map[RunID]*task
	notices map[RunID]string
}

func newTrigger(cfg TriggerConfig) *trigger {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultCompletionTimeout
	}
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = defaultMaxInFlight
	}
	if cfg.Sanitize == nil {
		cfg.Sanitize = strings.TrimSpace
	}
	root, stop := context.WithCancel(context.Background())
	return &trigger{
		cfg:     cfg,
		root:    root,
		stop:    stop,
		sem:     semaphore.NewWeighted(cfg.MaxInFlight),
		tasks:   make(map[RunID]*task),
		notices: make(map[RunID]string),
	}
}

func (t *trigger) emit(ev Event) {
	if t.cfg.OnEvent != nil {
		t.cfg.OnEvent(ev)
	}
}

// start moves a run from idle to pending. Caller holds the editor lock.
func (e *Editor) startCompletion(c MarkChange) {
	t := e.trig
	if cur, ok := t.tasks[c.Run]; ok && cur.state != StateIdle {
		return
	}
	delete(t.notices, c.Run)
	if t.cfg.Completer == nil {
		t.notices[c.Run] = ErrNoCompleter.Error()
		_ = e.doc.SetRunMark(c.Run, MarkUnderlined, false)
		return
	}

	t.gen++
	ctx, cancel := context.WithCancel(t.root)
	tk := &task{gen: t.gen, state: StatePending, original: c.Text, cancel: cancel}
	t.tasks[c.Run] = tk

	req := CompletionRequest{SourceText: c.Text, Kind: c.Kind}
	t.wg.Add(1)
	go e.runCompletion(ctx, c.Run, tk.gen, req)
}

// stop returns a run to idle and restores its original text if a rewrite had
// been applied. Caller holds the editor lock.
func (e *Editor) stopCompletion(id RunID) {
	tk, ok := e.trig.tasks[id]
	if !ok {
		return
	}
	tk.cancel()
	delete(e.trig.tasks, id)
	if tk.state == StateSettled {
		_ = e.doc.ReplaceRunText(id, tk.original)
	}
}

func (e *Editor) runCompletion(ctx context.Context, id RunID, gen uint64, req CompletionRequest) {
	t := e.trig
	defer t.wg.Done()

	if t.cfg.Debounce > 0 {
		timer := time.NewTimer(t.cfg.Debounce)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			t.emit(Event{Run: id, Kind: EventCancelled, Err: ctx.Err()})
			return
		}
	}
	if err := t.sem.Acquire(ctx, 1); err != nil {
		t.emit(Event{Run: id, Kind: EventCancelled, Err: err})
		return
	}

	t.emit(Event{Run: id, Kind: EventRequested})
	started := time.Now()
	callCtx, cancel := context.WithTimeout(ctx, t.cfg.Timeout)
	res, err := t.cfg.Completer.Complete(callCtx, req)
	cancel()
	t.sem.Release(1)

	if err == nil {
		res.Text = t.cfg.Sanitize(res.Text)
		if res.Text == "" {
			err = ErrEmptyCompletion
		}
	}
	if err != nil && ctx.Err() != nil {
		t.emit(Event{Run: id, Kind: EventCancelled, Err: err, Duration: time.Since(started)})
		return
	}

	kind := e.resolve(id, gen, res, err)
	t.emit(Event{Run: id, Kind: kind, Err: err, Duration: time.Since(started)})
}

// resolve applies the outcome of one pending cycle. Stale generations, closed
// editors and runs whose mark was turned off are ignored.
func (e *Editor) resolve(id RunID, gen uint64, res CompletionResult, err error) EventKind {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return EventDiscarded
	}
	t := e.trig
	tk, ok := t.tasks[id]
	if !ok || tk.gen != gen || tk.state != StatePending {
		return EventDiscarded
	}
	run, _, found := e.doc.Run(id)
	if !found || !run.Marks.Underlined {
		tk.cancel()
		delete(t.tasks, id)
		return EventDiscarded
	}
	tk.cancel()
	if err != nil {
		delete(t.tasks, id)
		t.notices[id] = "rewrite failed: " + err.Error()
		_ = e.doc.SetRunMark(id, MarkUnderlined, false)
		return EventFailed
	}
	tk.state = StateSettled
	tk.result = res.Text
	_ = e.doc.ReplaceRunText(id, res.Text)
	return EventSettled
}

// pruneTasks cancels cycles whose run no longer exists. Caller holds the lock.
func (e *Editor) pruneTasks() {
	for id, tk := range e.trig.tasks {
		if bi, _ := e.doc.locate(id); bi < 0 {
			tk.cancel()
			delete(e.trig.tasks, id)
		}
	}
	for id := range e.trig.notices {
		if bi, _ := e.doc.locate(id); bi < 0 {
			delete(e.trig.notices, id)
		}
	}
}

func (e *Editor) statusLocked(id RunID) RunStatus {
	st := RunStatus{Run: id, State: StateIdle, Notice: e.trig.notices[id]}
	if tk, ok := e.trig.tasks[id]; ok {
		st.State = tk.state
		st.Original = tk.original
		st.Result = tk.result
	}
	return st
}
