package main

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"rafts/backend"
	"rafts/config"
	"rafts/errs"
	"rafts/models"
	"rafts/registry"
	"rafts/services"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const actorHeader = "X-Remote-User"

// tokenAuthMiddleware übernimmt das SSO-Token aus Cookie oder Bearer-Header in den Request-Context.
func tokenAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie(registry.CookieName)
		if token == "" {
			if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
				token = strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			}
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Not authenticated"})
			return
		}
		c.Request = c.Request.WithContext(backend.WithAccessToken(c.Request.Context(), token))
		c.Next()
	}
}

func actor(c *gin.Context) string {
	if user := strings.TrimSpace(c.GetHeader(actorHeader)); user != "" {
		return user
	}
	return "anonymous"
}

func respond(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

// httpStatus bildet Fehler der Services auf HTTP-Status und Meldung ab.
func httpStatus(err error) (int, string) {
	var notFound *errs.NotFoundError
	var invalid *errs.ValidationError
	var upstream *errs.UpstreamError
	switch {
	case errors.Is(err, errs.ErrNotAuthenticated):
		return http.StatusUnauthorized, "Not authenticated"
	case errors.As(err, &notFound):
		return http.StatusNotFound, notFound.Error()
	case errors.As(err, &invalid):
		return http.StatusBadRequest, invalid.Error()
	case errors.Is(err, errs.ErrNotEditable), errors.Is(err, errs.ErrCannotSubmit), errors.Is(err, errs.ErrNotCitable):
		return http.StatusConflict, err.Error()
	case errors.Is(err, errs.ErrSidecarNotFound):
		return http.StatusBadGateway, err.Error()
	case errors.As(err, &upstream):
		switch upstream.StatusCode {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			return upstream.StatusCode, upstream.Error()
		}
		return http.StatusBadGateway, upstream.Error()
	}
	return http.StatusInternalServerError, "Internal server error"
}

func fail(c *gin.Context, log *zap.Logger, err error) {
	status, message := httpStatus(err)
	if status >= http.StatusInternalServerError {
		log.Error("Request failed", zap.String("path", c.FullPath()), zap.String("id", c.Param("id")), zap.Error(err))
	} else {
		log.Warn("Request rejected", zap.String("path", c.FullPath()), zap.Int("status", status), zap.Error(err))
	}
	c.JSON(status, gin.H{"success": false, "message": message})
}

func newRouter(cfg *config.Config, wf *services.Workflow, log *zap.Logger) *gin.Engine {
	router := gin.Default()
	router.Use(gin.Recovery())
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	setupRaftRoutes(router, cfg, wf, log)
	setupReviewRoutes(router, wf.Reconciler, log)
	setupStatusRoutes(router)
	return router
}

func setupRaftRoutes(router *gin.Engine, cfg *config.Config, wf *services.Workflow, log *zap.Logger) {
	rg := router.Group("/rafts")
	rg.Use(tokenAuthMiddleware())

	rg.GET("", func(c *gin.Context) {
		records, err := wf.Reconciler.ListRecords(c.Request.Context())
		if err != nil {
			fail(c, log, err)
			return
		}
		respond(c, http.StatusOK, records)
	})

	rg.POST("", func(c *gin.Context) {
		var req struct {
			Title   string `json:"title"`
			Creator string `json:"creator"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request body"})
			return
		}
		suffix, err := wf.CreateDraft(c.Request.Context(), req.Title, req.Creator)
		if err != nil {
			fail(c, log, err)
			return
		}
		respond(c, http.StatusCreated, gin.H{"id": suffix})
	})

	rg.GET("/:id", func(c *gin.Context) {
		view, err := wf.Reconciler.ResolveRaft(c.Request.Context(), c.Param("id"))
		if err != nil {
			fail(c, log, err)
			return
		}
		respond(c, http.StatusOK, view)
	})

	rg.PUT("/:id", func(c *gin.Context) {
		var sub models.Submission
		if err := c.ShouldBindJSON(&sub); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request body"})
			return
		}
		if err := wf.SaveSubmission(c.Request.Context(), c.Param("id"), &sub); err != nil {
			fail(c, log, err)
			return
		}
		respond(c, http.StatusOK, gin.H{"id": c.Param("id")})
	})

	rg.DELETE("/:id", func(c *gin.Context) {
		if err := wf.DeleteRaft(c.Request.Context(), c.Param("id")); err != nil {
			fail(c, log, err)
			return
		}
		respond(c, http.StatusOK, gin.H{"id": c.Param("id")})
	})

	transition := func(action func(ctx context.Context, id, actor string) error) gin.HandlerFunc {
		return func(c *gin.Context) {
			if err := action(c.Request.Context(), c.Param("id"), actor(c)); err != nil {
				fail(c, log, err)
				return
			}
			respond(c, http.StatusOK, gin.H{"id": c.Param("id")})
		}
	}
	rg.POST("/:id/submit", transition(wf.SubmitForReview))
	rg.POST("/:id/claim", transition(wf.Claim))
	rg.POST("/:id/release", transition(wf.Release))
	rg.POST("/:id/approve", transition(wf.Approve))

	rg.POST("/:id/reject", func(c *gin.Context) {
		var req struct {
			Comment string `json:"comment"`
		}
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request body"})
				return
			}
		}
		if err := wf.Reject(c.Request.Context(), c.Param("id"), actor(c), req.Comment); err != nil {
			fail(c, log, err)
			return
		}
		respond(c, http.StatusOK, gin.H{"id": c.Param("id")})
	})

	rg.POST("/:id/edit", func(c *gin.Context) {
		changed, err := wf.BeginEdit(c.Request.Context(), c.Param("id"), actor(c))
		if err != nil {
			fail(c, log, err)
			return
		}
		respond(c, http.StatusOK, gin.H{"id": c.Param("id"), "statusChanged": changed})
	})

	rg.POST("/:id/reviewer", func(c *gin.Context) {
		var req struct {
			Reviewer string `json:"reviewer" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request body: reviewer required"})
			return
		}
		if err := wf.AssignReviewer(c.Request.Context(), c.Param("id"), req.Reviewer); err != nil {
			fail(c, log, err)
			return
		}
		respond(c, http.StatusOK, gin.H{"id": c.Param("id"), "reviewer": req.Reviewer})
	})

	rg.DELETE("/:id/reviewer", func(c *gin.Context) {
		if err := wf.UnassignReviewer(c.Request.Context(), c.Param("id")); err != nil {
			fail(c, log, err)
			return
		}
		respond(c, http.StatusOK, gin.H{"id": c.Param("id")})
	})

	rg.GET("/:id/history", func(c *gin.Context) {
		changes, err := wf.StatusHistory(c.Request.Context(), c.Param("id"))
		if err != nil {
			fail(c, log, err)
			return
		}
		respond(c, http.StatusOK, changes)
	})

	rg.GET("/:id/citation", func(c *gin.Context) {
		view, err := wf.Reconciler.ResolveRaft(c.Request.Context(), c.Param("id"))
		if err != nil {
			fail(c, log, err)
			return
		}
		citation, err := services.FormatCitation(view, time.Now().Year(), cfg.CitationBaseURL)
		if err != nil {
			fail(c, log, err)
			return
		}
		respond(c, http.StatusOK, citation)
	})
}

func setupReviewRoutes(router *gin.Engine, rec *services.Reconciler, log *zap.Logger) {
	rg := router.Group("/review")
	rg.Use(tokenAuthMiddleware())

	// ?status=review|under_review|approved|rejected, leer = review
	rg.GET("/rafts", func(c *gin.Context) {
		list, err := rec.ListForReview(c.Request.Context(), c.Query("status"))
		if err != nil {
			fail(c, log, err)
			return
		}
		respond(c, http.StatusOK, list)
	})
}

func setupStatusRoutes(router *gin.Engine) {
	// ?from=&to= prüft einen einzelnen Übergang, sonst die ganze Tabelle
	router.GET("/status/transitions", func(c *gin.Context) {
		from, to := c.Query("from"), c.Query("to")
		if from == "" && to == "" {
			respond(c, http.StatusOK, services.Transitions())
			return
		}
		if from == "" || to == "" {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "from and to are both required"})
			return
		}
		respond(c, http.StatusOK, gin.H{"from": from, "to": to, "allowed": services.CanTransition(from, to)})
	})
}
