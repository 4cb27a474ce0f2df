package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type app struct {
	cfg         *Config
	advisor     *Advisor
	sessions    SessionStore
	redisClient *redis.Client
	logger      *zap.Logger
}

// healthCheck handles the health check endpoint
func (a *app) healthCheck(c *gin.Context) {
	if a.redisClient != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := a.redisClient.Ping(ctx).Err(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"status": "unhealthy",
				"error":  err.Error(),
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "savings-advisor",
	})
}

// showUpload renders the upload form
func (a *app) showUpload(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", gin.H{
		"NeedAPIKey": a.cfg.APIKey == "",
	})
}

// upload ingests a CSV export and asks for the first round of suggestions
func (a *app) upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}
	if !IsCSVFilename(file.Filename) {
		a.showUpload(c)
		return
	}

	f, err := file.Open()
	if err != nil {
		a.fail(c, err)
		return
	}
	defer f.Close()

	txns, err := ParseTransactions(f)
	if err != nil {
		a.fail(c, err)
		return
	}
	a.logger.Info("csv ingested", zap.String("file", file.Filename), zap.Int("rows", len(txns)))

	sess, err := a.advisor.Start(c.Request.Context(), c.PostForm("apiKey"), txns)
	if err != nil {
		a.fail(c, err)
		return
	}
	if err := a.sessions.Save(c.Request.Context(), sess); err != nil {
		a.fail(c, err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	secure := c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https"
	c.SetCookie(sessionCookie, sess.ID, int(a.cfg.SessionTTL.Seconds()), "/", "", secure, true)
	a.renderResults(c, sess)
}

// showResults renders the current session
func (a *app) showResults(c *gin.Context) {
	sess, ok := a.currentSession(c)
	if !ok {
		return
	}
	a.renderResults(c, sess)
}

// askQuestion sends an optional follow-up question and renders the session
func (a *app) askQuestion(c *gin.Context) {
	sess, ok := a.currentSession(c)
	if !ok {
		return
	}

	if question := c.PostForm("question"); question != "" {
		if err := a.advisor.Ask(c.Request.Context(), sess, question); err != nil {
			a.fail(c, err)
			return
		}
		if err := a.sessions.Save(c.Request.Context(), sess); err != nil {
			a.fail(c, err)
			return
		}
	}
	a.renderResults(c, sess)
}

// currentSession loads the caller's session, redirecting to the upload form
// when there is none.
func (a *app) currentSession(c *gin.Context) (*Session, bool) {
	id, err := c.Cookie(sessionCookie)
	if err != nil || id == "" {
		c.Redirect(http.StatusSeeOther, "/")
		return nil, false
	}

	sess, err := a.sessions.Get(c.Request.Context(), id)
	if errors.Is(err, ErrSessionNotFound) {
		c.Redirect(http.StatusSeeOther, "/")
		return nil, false
	}
	if err != nil {
		a.fail(c, err)
		return nil, false
	}
	return sess, true
}

func (a *app) renderResults(c *gin.Context, sess *Session) {
	c.HTML(http.StatusOK, "results.html", gin.H{
		"Suggestions": sess.Suggestions,
		"Commentary":  sess.Commentary,
	})
}

// fail records err and shows the generic error page
func (a *app) fail(c *gin.Context, err error) {
	_ = c.Error(err)
	a.logger.Error("request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	c.HTML(http.StatusInternalServerError, "error.html", nil)
}
