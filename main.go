package main

import (
	"context"
	"embed"
	"html/template"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templatesFS embed.FS

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// setupRouter wires middleware, templates and routes
func setupRouter(a *app) *gin.Engine {
	r := gin.New()
	r.Use(requestLogger(a.logger), gin.Recovery())
	r.MaxMultipartMemory = a.cfg.MaxUploadMB << 20

	r.SetHTMLTemplate(template.Must(template.ParseFS(templatesFS, "templates/*.html")))

	// CORS middleware. Cross-origin callers never get the session cookie.
	r.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}))

	// Routes
	r.GET("/health", a.healthCheck)
	r.GET("/", a.showUpload)
	r.POST("/", a.upload)
	r.GET("/results", a.showResults)
	r.POST("/results", a.askQuestion)

	return r
}

// runServer connects the session store and serves until the listener fails
func runServer(cfg *Config, logger *zap.Logger) error {
	counter, err := newTokenCounter(cfg.Model)
	if err != nil {
		return err
	}

	a := &app{
		cfg:     cfg,
		advisor: NewAdvisor(NewChatClient(cfg.BaseURL, cfg.Model, counter, logger), counter, cfg.TokenBudget, cfg.APIKey, logger),
		logger:  logger,
	}

	if cfg.RedisURL != "" {
		client, err := newRedisClient(context.Background(), cfg.RedisURL)
		if err != nil {
			logger.Warn("failed to initialize redis, keeping sessions in memory", zap.Error(err))
		} else {
			defer client.Close()
			a.redisClient = client
			a.sessions = newRedisSessionStore(client, cfg.SessionTTL)
		}
	}
	if a.sessions == nil {
		store := newMemorySessionStore(cfg.SessionTTL)
		defer store.Close()
		a.sessions = store
	}

	r := setupRouter(a)

	logger.Info("server starting", zap.String("port", cfg.Port), zap.String("model", cfg.Model))
	return r.Run(":" + cfg.Port)
}
