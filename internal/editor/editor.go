package editor

import "sync"

// Editor is one editing session: a Document plus the completion trigger that
// watches its underlined runs. All methods are safe for concurrent use.
type Editor struct {
	mu     sync.Mutex
	doc    *Document
	trig   *trigger
	closed bool
}

// Snapshot is a point-in-time copy of an editor.
type Snapshot struct {
	Blocks    []*Block    `json:"blocks"`
	Selection Selection   `json:"selection"`
	Runs      []RunStatus `json:"runs,omitempty"`
}

// NewEditor wraps doc. The editor takes ownership of doc.
func NewEditor(doc *Document, cfg TriggerConfig) *Editor {
	e := &Editor{doc: doc, trig: newTrigger(cfg)}
	// Called by the document with e.mu held.
	doc.pinned = func(id RunID) bool {
		_, ok := e.trig.tasks[id]
		return ok
	}
	return e
}

func (e *Editor) mutate(fn func(d *Document) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrEditorClosed
	}
	if err := fn(e.doc); err != nil {
		return err
	}
	e.pruneTasks()
	return nil
}

// Select sets the selection.
func (e *Editor) Select(sel Selection) error {
	return e.mutate(func(d *Document) error { return d.Select(sel) })
}

// InsertText inserts text at p. Typing inside a run with an open completion
// cycle ends that cycle first.
func (e *Editor) InsertText(p Point, text string) error {
	return e.mutate(func(d *Document) error {
		if text != "" {
			e.releaseCut(Caret(p))
		}
		return d.InsertText(p, text)
	})
}

// DeleteText removes the text under sel. Runs with an open completion cycle
// that are cut by the range end their cycle first.
func (e *Editor) DeleteText(sel Selection) error {
	return e.mutate(func(d *Document) error {
		if !sel.Collapsed() {
			e.releaseCut(sel)
		}
		return d.DeleteText(sel)
	})
}

// SplitBlock breaks a block at p, ending the completion cycle of a run cut in
// two.
func (e *Editor) SplitBlock(p Point) error {
	return e.mutate(func(d *Document) error {
		e.releaseCut(Caret(p))
		return d.SplitBlock(p)
	})
}

// releaseCut ends the completion cycle of every pinned run an edit at sel
// would cut. The visible text stays: a pending run keeps its original and a
// settled run keeps its rewrite. Caller holds the lock.
func (e *Editor) releaseCut(sel Selection) {
	for _, id := range e.doc.pinnedCuts(sel) {
		tk := e.trig.tasks[id]
		tk.cancel()
		delete(e.trig.tasks, id)
		_ = e.doc.SetRunMark(id, MarkUnderlined, false)
	}
}

// InsertBlock inserts a block before index.
func (e *Editor) InsertBlock(index int, kind Kind, text string) error {
	return e.mutate(func(d *Document) error { return d.InsertBlock(index, kind, text) })
}

// DeleteBlock removes the block at index.
func (e *Editor) DeleteBlock(index int) error {
	return e.mutate(func(d *Document) error { return d.DeleteBlock(index) })
}

// SetKind retypes the block at index.
func (e *Editor) SetKind(index int, kind Kind) error {
	return e.mutate(func(d *Document) error { return d.SetKind(index, kind) })
}

// SetRefByRun links the block holding run id to an external record.
func (e *Editor) SetRefByRun(id RunID, ref int64) error {
	return e.mutate(func(d *Document) error { return d.SetRefByRun(id, ref) })
}

// ToggleMark toggles mark across sel. Underline transitions start or stop the
// completion cycle of each affected run.
func (e *Editor) ToggleMark(sel Selection, mark Mark) ([]MarkChange, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrEditorClosed
	}
	changes, err := e.doc.ToggleMark(sel, mark)
	if err != nil {
		return nil, err
	}
	for _, c := range changes {
		if c.Mark != MarkUnderlined {
			continue
		}
		if c.On {
			e.startCompletion(c)
		} else {
			e.stopCompletion(c.Run)
		}
	}
	e.pruneTasks()
	return changes, nil
}

// Accept keeps a settled rewrite: the original text is dropped and the
// underline removed without restoring it.
func (e *Editor) Accept(id RunID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrEditorClosed
	}
	tk, ok := e.trig.tasks[id]
	if !ok || tk.state != StateSettled {
		return ErrNotSettled
	}
	tk.cancel()
	delete(e.trig.tasks, id)
	return e.doc.SetRunMark(id, MarkUnderlined, false)
}

// Status returns the completion state of one run.
func (e *Editor) Status(id RunID) (RunStatus, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if bi, _ := e.doc.locate(id); bi < 0 {
		return RunStatus{}, ErrRunNotFound
	}
	return e.statusLocked(id), nil
}

// Run returns a copy of one run.
func (e *Editor) Run(id RunID) (TextRun, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	run, _, ok := e.doc.Run(id)
	return run, ok
}

// Text returns the plain text under sel.
func (e *Editor) Text(sel Selection) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.doc.Text(sel)
}

// Snapshot copies the document, selection and every non-idle run status.
func (e *Editor) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	snap := Snapshot{Blocks: e.doc.Blocks(), Selection: e.doc.Selection()}
	for _, b := range e.doc.blocks {
		for _, r := range b.Runs {
			st := e.statusLocked(r.ID)
			if st.State != StateIdle || st.Notice != "" {
				snap.Runs = append(snap.Runs, st)
			}
		}
	}
	return snap
}

// Close cancels every in-flight request and waits for their goroutines.
func (e *Editor) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	for id, tk := range e.trig.tasks {
		tk.cancel()
		delete(e.trig.tasks, id)
	}
	e.trig.stop()
	e.mu.Unlock()
	e.trig.wg.Wait()
}
