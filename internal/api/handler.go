package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gsarma/mailgate/internal/email"
	"github.com/gsarma/mailgate/internal/pipeline"
)

// Pipeline is the send flow exposed as tools. *pipeline.Service implements it.
type Pipeline interface {
	Preview(ctx context.Context, req pipeline.Request) pipeline.Preview
	Prepare(ctx context.Context, req pipeline.Request) (*pipeline.Prepared, error)
	Confirm(ctx context.Context, id string) pipeline.Outcome
	Cancel(ctx context.Context, id string) pipeline.Outcome
	AuthStatus(ctx context.Context) pipeline.AuthStatus
}

type Handler struct {
	pipeline Pipeline
	logger   *slog.Logger
}

type messageRequest struct {
	To          []string `json:"to"`
	CC          []string `json:"cc"`
	BCC         []string `json:"bcc"`
	Subject     string   `json:"subject"`
	Body        string   `json:"body"`
	ContentType string   `json:"content_type"`
}

func (r messageRequest) toPipeline() (pipeline.Request, error) {
	ct, err := email.ParseContentType(r.ContentType)
	if err != nil {
		return pipeline.Request{}, err
	}
	return pipeline.Request{
		To:          r.To,
		CC:          r.CC,
		BCC:         r.BCC,
		Subject:     r.Subject,
		Body:        r.Body,
		ContentType: ct,
	}, nil
}

type draftRequest struct {
	DraftID string `json:"draft_id" binding:"required"`
}

func bindMessage(c *gin.Context) (pipeline.Request, bool) {
	var body messageRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return pipeline.Request{}, false
	}
	req, err := body.toPipeline()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return pipeline.Request{}, false
	}
	return req, true
}

// PreviewEmail validates a message without staging it.
func (h *Handler) PreviewEmail(c *gin.Context) {
	req, ok := bindMessage(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.pipeline.Preview(c.Request.Context(), req))
}

// PrepareEmail validates and stages a draft. Nothing is sent.
func (h *Handler) PrepareEmail(c *gin.Context) {
	req, ok := bindMessage(c)
	if !ok {
		return
	}

	res, err := h.pipeline.Prepare(c.Request.Context(), req)
	if err != nil {
		var rej *pipeline.RejectedError
		if errors.As(err, &rej) {
			c.JSON(http.StatusBadRequest, gin.H{"error": rej.Error(), "issue": rej.Issue})
			return
		}
		h.logger.ErrorContext(c.Request.Context(), "prepare failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to stage draft"})
		return
	}
	c.JSON(http.StatusCreated, res)
}

// ConfirmSend transmits a staged draft.
func (h *Handler) ConfirmSend(c *gin.Context) {
	var body draftRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	out := h.pipeline.Confirm(c.Request.Context(), body.DraftID)
	c.JSON(outcomeStatus(out.Status), out)
}

// CancelDraft discards a staged draft. Unknown ids succeed; a draft being
// sent is left alone (409).
func (h *Handler) CancelDraft(c *gin.Context) {
	var body draftRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	out := h.pipeline.Cancel(c.Request.Context(), body.DraftID)
	c.JSON(outcomeStatus(out.Status), out)
}

// CheckAuthStatus reports whether a mail credential is available.
func (h *Handler) CheckAuthStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.pipeline.AuthStatus(c.Request.Context()))
}

func outcomeStatus(s pipeline.Status) int {
	switch s {
	case pipeline.StatusSent, pipeline.StatusCancelled:
		return http.StatusOK
	case pipeline.StatusNotFound:
		return http.StatusNotFound
	case pipeline.StatusInFlight:
		return http.StatusConflict
	case pipeline.StatusAuthRequired:
		return http.StatusUnauthorized
	case pipeline.StatusFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
