package api

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gsarma/mailgate/internal/apikey"
	"github.com/gsarma/mailgate/internal/health"
)

// Deps are the collaborators the HTTP surface needs.
type Deps struct {
	Pipeline        Pipeline
	Keys            *apikey.Set
	Checks          health.Checks
	EnableTestTools bool
	Logger          *slog.Logger
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	h := &Handler{pipeline: d.Pipeline, logger: d.Logger}

	r.Use(requestID(), accessLog(d.Logger))

	r.GET("/healthz", health.Liveness())
	r.GET("/readyz", health.Readiness(d.Checks, 3*time.Second))

	tools := r.Group("/tools", d.Keys.Middleware())
	{
		tools.POST("/preview_email", h.PreviewEmail)
		tools.POST("/prepare_email", h.PrepareEmail)
		tools.POST("/confirm_send", h.ConfirmSend)
		tools.POST("/cancel_draft", h.CancelDraft)
		tools.GET("/check_auth_status", h.CheckAuthStatus)

		if d.EnableTestTools {
			tools.POST("/greet", h.Greet)
			tools.POST("/add", h.Add)
			tools.POST("/echo", h.Echo)
		}
	}
}
