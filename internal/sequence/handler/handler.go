// Package handler exposes the operator endpoints that trigger and inspect
// dispatch runs.
package handler

import (
	"context"
	"errors"
	"time"

	"leadflow_backend/internal/sequence/dispatch"
	"leadflow_backend/internal/sequence/sendlog"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgRunInProgress = "Ya hay un envío de seguimiento en curso."
	msgInvalidNow    = "El parámetro now debe tener formato RFC3339."
	msgInvalidLeadID = "El identificador del lead no es válido."
	msgDispatchError = "No pudimos ejecutar el envío de seguimiento."
	msgSendLogError  = "No pudimos consultar el historial de envíos."
)

// Dispatcher runs and previews dispatch passes.
type Dispatcher interface {
	Run(ctx context.Context, now time.Time) (dispatch.Report, error)
	Preview(ctx context.Context, now time.Time) (dispatch.PreviewReport, error)
	Now() time.Time
}

// SendLogReader lists a lead's send attempts.
type SendLogReader interface {
	ListByLead(ctx context.Context, leadID uuid.UUID) ([]sendlog.Entry, error)
}

// Handler serves the dispatch trigger endpoints.
type Handler struct {
	dispatcher Dispatcher
	sendLog    SendLogReader
	timeout    time.Duration
}

// New creates a Handler. Each run is bounded by timeout when positive.
func New(dispatcher Dispatcher, sendLog SendLogReader, timeout time.Duration) *Handler {
	return &Handler{dispatcher: dispatcher, sendLog: sendLog, timeout: timeout}
}

// RegisterRoutes mounts the operator routes on rg.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/sequences/dispatch", h.Dispatch)
	rg.GET("/sequences/dispatch/preview", h.Preview)
	rg.GET("/leads/:id/sends", h.ListSends)
}

func (h *Handler) referenceTime(c *gin.Context) (time.Time, bool) {
	raw := c.Query("now")
	if raw == "" {
		return h.dispatcher.Now(), true
	}
	now, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		httpkit.HandleError(c, apperr.Validation(msgInvalidNow).WithDetails(map[string]string{"now": msgInvalidNow}))
		return time.Time{}, false
	}
	return now, true
}

func (h *Handler) runContext(c *gin.Context) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return context.WithCancel(c.Request.Context())
	}
	return context.WithTimeout(c.Request.Context(), h.timeout)
}

// Dispatch executes one run.
func (h *Handler) Dispatch(c *gin.Context) {
	now, ok := h.referenceTime(c)
	if !ok {
		return
	}

	ctx, cancel := h.runContext(c)
	defer cancel()

	report, err := h.dispatcher.Run(ctx, now)
	if errors.Is(err, dispatch.ErrRunInProgress) {
		httpkit.HandleError(c, apperr.Conflict(apperr.CodeDispatchInProgress, msgRunInProgress))
		return
	}
	if err != nil {
		httpkit.HandleError(c, apperr.Wrap(apperr.KindInternal, msgDispatchError, err).WithCode(apperr.CodeInternal))
		return
	}

	httpkit.OK(c, report)
}

// Preview computes a dry run.
func (h *Handler) Preview(c *gin.Context) {
	now, ok := h.referenceTime(c)
	if !ok {
		return
	}

	ctx, cancel := h.runContext(c)
	defer cancel()

	preview, err := h.dispatcher.Preview(ctx, now)
	if err != nil {
		httpkit.HandleError(c, apperr.Database(msgDispatchError, err))
		return
	}

	httpkit.OK(c, preview)
}

// ListSends returns the send log of one lead.
func (h *Handler) ListSends(c *gin.Context) {
	leadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.HandleError(c, apperr.Validation(msgInvalidLeadID).WithDetails(map[string]string{"id": msgInvalidLeadID}))
		return
	}

	entries, err := h.sendLog.ListByLead(c.Request.Context(), leadID)
	if err != nil {
		httpkit.HandleError(c, apperr.Database(msgSendLogError, err))
		return
	}

	httpkit.OK(c, entries)
}
