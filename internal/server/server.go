// Package server exposes the gallery, sticker editor, chat composer and
// language helpers as a JSON HTTP API for the web front end.
package server

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/liminalpurple/sayangku/internal/chat"
	"github.com/liminalpurple/sayangku/internal/gallery"
)

// Assistant answers language requests
type Assistant interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
	Define(ctx context.Context, word, lang string) (string, error)
	Examples(ctx context.Context, word, sourceLang, targetLang string) (string, error)
}

// Server holds the services behind the API
type Server struct {
	gallery   *gallery.Service
	chat      *chat.Service
	composer  *chat.Composer
	assistant Assistant
}

// New creates the API server. assistant may be nil, which disables the
// language endpoints.
func New(gallerySvc *gallery.Service, chatSvc *chat.Service, composer *chat.Composer, assistant Assistant) *Server {
	if composer == nil {
		composer = chat.NewComposer()
	}
	return &Server{
		gallery:   gallerySvc,
		chat:      chatSvc,
		composer:  composer,
		assistant: assistant,
	}
}

// Router builds the gin engine with all routes registered
func (s *Server) Router(allowedOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestIDMiddleware())

	if len(allowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:  allowedOrigins,
			AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders:  []string{"Origin", "Content-Type", "X-Request-Id"},
			ExposeHeaders: []string{"X-Request-Id"},
			MaxAge:        12 * time.Hour,
		}))
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "service": "sayangku"})
	})

	api := r.Group("/api")
	s.registerGallery(api.Group("/gallery"))
	s.registerStickers(api.Group("/stickers"))
	s.registerChat(api.Group("/chat"))
	api.POST("/render", s.render)
	api.POST("/translate", s.translate)
	api.POST("/define", s.define)
	api.POST("/examples", s.examples)

	return r
}

// RequestIDMiddleware ensures every request has a request ID.
// An incoming X-Request-Id is kept, otherwise a new one is generated. The ID
// is echoed back and logged with the method, path, status and latency.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader("X-Request-Id")
		if strings.TrimSpace(rid) == "" {
			rid = uuid.NewString()
		}
		c.Set("request_id", rid)
		c.Writer.Header().Set("X-Request-Id", rid)

		start := time.Now()
		c.Next()

		log.Printf("[req] id=%s method=%s path=%s status=%d latency=%s",
			rid, c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

func fail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"ok": false, "error": msg})
}

// idParam parses a numeric path parameter, writing a 400 when it is invalid
func idParam(c *gin.Context, name string) (int64, bool) {
	v, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return v, true
}
