package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"leadflow_backend/internal/leads/intake"
	"leadflow_backend/internal/leads/transport"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

const maxBodyBytes = 64 << 10

const (
	msgBodyTooLarge   = "La solicitud es demasiado grande."
	msgBodyUnreadable = "No pudimos leer la solicitud."
)

// Submitter runs the intake pipeline.
type Submitter interface {
	Submit(ctx context.Context, sub intake.Submission) intake.Result
}

// Handler serves the public lead form endpoint.
type Handler struct {
	intake Submitter
}

// New creates a Handler.
func New(svc Submitter) *Handler {
	return &Handler{intake: svc}
}

// RegisterRoutes mounts POST / on rg.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Submit)
}

// Submit handles a form post.
func (h *Handler) Submit(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpkit.HandleError(c, apperr.Validation(msgBodyTooLarge).WithDetails(map[string]string{"body": msgBodyTooLarge}))
			return
		}
		httpkit.HandleError(c, apperr.Validation(msgBodyUnreadable).WithDetails(map[string]string{"body": msgBodyUnreadable}))
		return
	}

	res := h.intake.Submit(c.Request.Context(), intake.Submission{
		ClientKey: httpkit.ClientKey(c.Request),
		Body:      body,
		Query:     c.Request.URL.Query(),
	})
	writeResult(c, res)
}

func writeResult(c *gin.Context, res intake.Result) {
	switch {
	case res.Accepted != nil:
		httpkit.Created(c, res.Accepted.Message, transport.SubmitLeadResponse{
			ID:        res.Accepted.Lead.ID.String(),
			LeadScore: res.Accepted.Lead.LeadScore,
			NextSteps: res.Accepted.NextSteps,
		})
	case res.Rejected != nil && res.Rejected.Kind == apperr.KindRateLimited:
		httpkit.RateLimited(c, res.Rejected.Message, res.RetryAfterSeconds)
	case res.Rejected != nil:
		httpkit.HandleError(c, res.Rejected)
	default:
		httpkit.HandleError(c, apperr.Internal("Ocurrió un error inesperado."))
	}
}
