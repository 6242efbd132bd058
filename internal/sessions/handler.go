package sessions

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"resume-editor/internal/achievements"
	"resume-editor/internal/editor"
	"resume-editor/internal/exporter"
	"resume-editor/internal/importer"
	"resume-editor/internal/resumes"
	"resume-editor/internal/shared/server/middleware"
	"resume-editor/internal/shared/server/respond"
)

const maxUploadSize = importer.MaxSize + 1<<20

// Handler exposes editor sessions over HTTP.
type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes mounts the session routes on the /api/v1 group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	s := rg.Group("/editor/sessions")
	s.POST("", h.create)
	s.GET("/:sessionId", h.get)
	s.DELETE("/:sessionId", h.delete)
	s.PUT("/:sessionId/selection", h.selectRange)
	s.POST("/:sessionId/text", h.insertText)
	s.POST("/:sessionId/text/delete", h.deleteText)
	s.POST("/:sessionId/split", h.splitBlock)
	s.POST("/:sessionId/blocks", h.insertBlock)
	s.DELETE("/:sessionId/blocks/:index", h.deleteBlock)
	s.PUT("/:sessionId/blocks/:index/kind", h.setKind)
	s.POST("/:sessionId/marks", h.toggleMark)
	s.GET("/:sessionId/runs/:runId", h.runStatus)
	s.POST("/:sessionId/runs/:runId/accept", h.accept)
	s.GET("/:sessionId/export", h.export)
	s.POST("/:sessionId/snapshots", h.saveSnapshot)
	s.GET("/:sessionId/snapshots", h.listSnapshots)
	s.POST("/:sessionId/snapshots/:snapshotId/restore", h.restoreSnapshot)
	s.POST("/:sessionId/commit", middleware.RequireUser(), h.commit)

	rg.POST("/resumes/:id/editor", middleware.RequireUser(), h.seedFromResume)
}

// RateLimitGroup classifies session routes for the rate limiter. Mark
// toggles get their own bucket since each underline may cost a completion.
func RateLimitGroup(c *gin.Context) string {
	switch c.FullPath() {
	case "/api/v1/editor/sessions/:sessionId/marks":
		return "TOGGLE"
	case "/api/v1/editor/sessions":
		if c.Request.Method == http.MethodPost {
			return "CREATE"
		}
	}
	if strings.HasPrefix(c.FullPath(), "/api/v1/editor/sessions/") && c.Request.Method == http.MethodGet {
		return "READ"
	}
	return ""
}

type createRequest struct {
	Title string `json:"title"`
}

func (h *Handler) create(c *gin.Context) {
	c.Set("operation", "editor.create")
	owner := middleware.UserIDFromContext(c)

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)
		fileHeader, err := c.FormFile("file")
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
			return
		}
		file, err := fileHeader.Open()
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
			return
		}
		defer file.Close()

		sess, err := h.Svc.CreateFromUpload(c.Request.Context(), owner, fileHeader.Filename, fileHeader.Header.Get("Content-Type"), file)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.Set("sessionId", sess.ID)
		respond.JSON(c, http.StatusCreated, h.Svc.View(sess))
		return
	}

	var req createRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
			return
		}
	}
	sess, err := h.Svc.CreateEmpty(owner, req.Title)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Set("sessionId", sess.ID)
	respond.JSON(c, http.StatusCreated, h.Svc.View(sess))
}

func (h *Handler) seedFromResume(c *gin.Context) {
	c.Set("operation", "editor.seed")
	resumeID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || resumeID <= 0 {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid resume id", nil)
		return
	}
	c.Set("resumeId", resumeID)
	sess, err := h.Svc.SeedFromResume(c.Request.Context(), middleware.UserIDFromContext(c), resumeID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Set("sessionId", sess.ID)
	respond.JSON(c, http.StatusCreated, h.Svc.View(sess))
}

// session loads the path session for the caller or writes a 404.
func (h *Handler) session(c *gin.Context) (*Session, bool) {
	id := c.Param("sessionId")
	c.Set("sessionId", id)
	sess, err := h.Svc.Manager.Get(id, middleware.UserIDFromContext(c))
	if err != nil {
		h.fail(c, err)
		return nil, false
	}
	if sess.ResumeID != nil {
		c.Set("resumeId", *sess.ResumeID)
	}
	return sess, true
}

func (h *Handler) get(c *gin.Context) {
	c.Set("operation", "editor.get")
	sess, ok := h.session(c)
	if !ok {
		return
	}
	respond.OK(c, h.Svc.View(sess))
}

func (h *Handler) delete(c *gin.Context) {
	c.Set("operation", "editor.delete")
	id := c.Param("sessionId")
	c.Set("sessionId", id)
	if err := h.Svc.Manager.Delete(id, middleware.UserIDFromContext(c)); err != nil {
		h.fail(c, err)
		return
	}
	respond.NoContent(c)
}

type selectionRequest struct {
	Anchor *editor.Point `json:"anchor"`
	Focus  *editor.Point `json:"focus"`
}

func (r selectionRequest) selection() (editor.Selection, error) {
	if r.Anchor == nil {
		return editor.Selection{}, fmt.Errorf("%w: anchor is required", ErrInvalidInput)
	}
	sel := editor.Caret(*r.Anchor)
	if r.Focus != nil {
		sel.Focus = *r.Focus
	}
	return sel, nil
}

func (h *Handler) selectRange(c *gin.Context) {
	c.Set("operation", "editor.select")
	var req selectionRequest
	if !bind(c, &req) {
		return
	}
	h.apply(c, func(ed *editor.Editor) error {
		sel, err := req.selection()
		if err != nil {
			return err
		}
		return ed.Select(sel)
	})
}

type insertTextRequest struct {
	At   *editor.Point `json:"at"`
	Text string        `json:"text"`
}

func (h *Handler) insertText(c *gin.Context) {
	c.Set("operation", "editor.insert_text")
	var req insertTextRequest
	if !bind(c, &req) {
		return
	}
	h.apply(c, func(ed *editor.Editor) error {
		if req.At == nil {
			return fmt.Errorf("%w: at is required", ErrInvalidInput)
		}
		return ed.InsertText(*req.At, req.Text)
	})
}

func (h *Handler) deleteText(c *gin.Context) {
	c.Set("operation", "editor.delete_text")
	var req selectionRequest
	if !bind(c, &req) {
		return
	}
	h.apply(c, func(ed *editor.Editor) error {
		sel, err := req.selection()
		if err != nil {
			return err
		}
		return ed.DeleteText(sel)
	})
}

type pointRequest struct {
	At *editor.Point `json:"at"`
}

func (h *Handler) splitBlock(c *gin.Context) {
	c.Set("operation", "editor.split_block")
	var req pointRequest
	if !bind(c, &req) {
		return
	}
	h.apply(c, func(ed *editor.Editor) error {
		if req.At == nil {
			return fmt.Errorf("%w: at is required", ErrInvalidInput)
		}
		return ed.SplitBlock(*req.At)
	})
}

type insertBlockRequest struct {
	Index *int   `json:"index"`
	Kind  string `json:"kind"`
	Text  string `json:"text"`
}

func (h *Handler) insertBlock(c *gin.Context) {
	c.Set("operation", "editor.insert_block")
	var req insertBlockRequest
	if !bind(c, &req) {
		return
	}
	h.apply(c, func(ed *editor.Editor) error {
		kind, err := editor.ParseKind(req.Kind)
		if err != nil {
			return err
		}
		index := -1
		if req.Index != nil {
			index = *req.Index
		}
		if index < 0 {
			index = len(ed.Snapshot().Blocks)
		}
		return ed.InsertBlock(index, kind, req.Text)
	})
}

func (h *Handler) deleteBlock(c *gin.Context) {
	c.Set("operation", "editor.delete_block")
	index, ok := indexParam(c)
	if !ok {
		return
	}
	h.apply(c, func(ed *editor.Editor) error { return ed.DeleteBlock(index) })
}

type setKindRequest struct {
	Kind string `json:"kind"`
}

func (h *Handler) setKind(c *gin.Context) {
	c.Set("operation", "editor.set_kind")
	index, ok := indexParam(c)
	if !ok {
		return
	}
	var req setKindRequest
	if !bind(c, &req) {
		return
	}
	h.apply(c, func(ed *editor.Editor) error {
		kind, err := editor.ParseKind(req.Kind)
		if err != nil {
			return err
		}
		return ed.SetKind(index, kind)
	})
}

type toggleMarkRequest struct {
	Mark   string        `json:"mark"`
	Anchor *editor.Point `json:"anchor"`
	Focus  *editor.Point `json:"focus"`
}

type markChangeResponse struct {
	Run  editor.RunID `json:"run"`
	Kind editor.Kind  `json:"kind"`
	Mark editor.Mark  `json:"mark"`
	On   bool         `json:"on"`
}

func (h *Handler) toggleMark(c *gin.Context) {
	c.Set("operation", "editor.toggle_mark")
	var req toggleMarkRequest
	if !bind(c, &req) {
		return
	}
	mark, err := editor.ParseMark(req.Mark)
	if err != nil {
		h.fail(c, err)
		return
	}
	sess, ok := h.session(c)
	if !ok {
		return
	}
	ed := sess.Editor()
	sel := ed.Snapshot().Selection
	if req.Anchor != nil {
		sel, _ = selectionRequest{Anchor: req.Anchor, Focus: req.Focus}.selection()
	}
	changes, err := ed.ToggleMark(sel, mark)
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]markChangeResponse, 0, len(changes))
	for _, ch := range changes {
		out = append(out, markChangeResponse{Run: ch.Run, Kind: ch.Kind, Mark: ch.Mark, On: ch.On})
	}
	respond.OK(c, gin.H{"changes": out, "session": h.Svc.View(sess)})
}

func (h *Handler) runStatus(c *gin.Context) {
	c.Set("operation", "editor.run_status")
	sess, ok := h.session(c)
	if !ok {
		return
	}
	st, err := sess.Editor().Status(editor.RunID(c.Param("runId")))
	if err != nil {
		h.fail(c, err)
		return
	}
	respond.OK(c, st)
}

func (h *Handler) accept(c *gin.Context) {
	c.Set("operation", "editor.accept")
	runID := editor.RunID(c.Param("runId"))
	h.apply(c, func(ed *editor.Editor) error { return ed.Accept(runID) })
}

func (h *Handler) export(c *gin.Context) {
	c.Set("operation", "editor.export")
	format, err := exporter.ParseFormat(c.Query("format"))
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		return
	}
	sess, ok := h.session(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := h.Svc.Export(sess, format, &buf); err != nil {
		h.fail(c, err)
		return
	}
	contentType, ext := exporter.ContentType(format)
	respond.Attachment(c, contentType, "resume-"+sess.ID+ext, buf.Bytes())
}

func (h *Handler) saveSnapshot(c *gin.Context) {
	c.Set("operation", "editor.snapshot")
	sess, ok := h.session(c)
	if !ok {
		return
	}
	meta, err := h.Svc.SaveSnapshot(c.Request.Context(), sess)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond.JSON(c, http.StatusCreated, meta)
}

func (h *Handler) listSnapshots(c *gin.Context) {
	c.Set("operation", "editor.list_snapshots")
	sess, ok := h.session(c)
	if !ok {
		return
	}
	list, err := h.Svc.ListSnapshots(c.Request.Context(), sess)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond.OK(c, list)
}

func (h *Handler) restoreSnapshot(c *gin.Context) {
	c.Set("operation", "editor.restore")
	sess, ok := h.session(c)
	if !ok {
		return
	}
	if err := h.Svc.RestoreSnapshot(c.Request.Context(), sess, c.Param("snapshotId")); err != nil {
		h.fail(c, err)
		return
	}
	respond.OK(c, h.Svc.View(sess))
}

func (h *Handler) commit(c *gin.Context) {
	c.Set("operation", "editor.commit")
	sess, ok := h.session(c)
	if !ok {
		return
	}
	res, err := h.Svc.Commit(c.Request.Context(), sess)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond.OK(c, gin.H{"result": res, "session": h.Svc.View(sess)})
}

// apply runs fn against the path session and responds with the new view.
func (h *Handler) apply(c *gin.Context, fn func(*editor.Editor) error) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	if err := fn(sess.Editor()); err != nil {
		h.fail(c, err)
		return
	}
	respond.OK(c, h.Svc.View(sess))
}

func bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return false
	}
	return true
}

func indexParam(c *gin.Context) (int, bool) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid block index", nil)
		return 0, false
	}
	return index, true
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "editor session not found", nil)
	case errors.Is(err, ErrSnapshotNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "snapshot not found", nil)
	case errors.Is(err, resumes.ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "resume not found", nil)
	case errors.Is(err, editor.ErrRunNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", err.Error(), nil)
	case errors.Is(err, ErrForbidden):
		respond.Error(c, http.StatusForbidden, "forbidden", err.Error(), nil)
	case errors.Is(err, ErrTooManySessions):
		respond.Error(c, http.StatusTooManyRequests, "too_many_sessions", err.Error(), nil)
	case errors.Is(err, ErrNoResume), errors.Is(err, editor.ErrNotSettled):
		respond.Error(c, http.StatusConflict, "conflict", err.Error(), nil)
	case errors.Is(err, editor.ErrEditorClosed):
		respond.Error(c, http.StatusGone, "gone", err.Error(), nil)
	case errors.Is(err, importer.ErrUnsupported):
		respond.Error(c, http.StatusUnsupportedMediaType, "unsupported_media_type", err.Error(), nil)
	case errors.Is(err, importer.ErrTooLarge):
		respond.Error(c, http.StatusRequestEntityTooLarge, "too_large", err.Error(), nil)
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, importer.ErrEmpty),
		errors.Is(err, editor.ErrOutOfRange),
		errors.Is(err, editor.ErrUnknownKind),
		errors.Is(err, editor.ErrUnknownMark),
		errors.Is(err, editor.ErrVoidBlock),
		errors.Is(err, exporter.ErrUnknownFormat),
		errors.Is(err, resumes.ErrValidation),
		errors.Is(err, achievements.ErrValidation):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "editor operation failed", err.Error())
	}
}
