package server

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/liminalpurple/sayangku/internal/llm"
	"github.com/liminalpurple/sayangku/internal/storage"
)

type languageReq struct {
	Text   string `json:"text"`
	Word   string `json:"word"`
	Source string `json:"source"`
	Target string `json:"target"`
	Lang   string `json:"lang"`
}

// languageNames parses language codes or names into prompt names
func languageNames(codes ...string) ([]string, error) {
	names := make([]string, len(codes))
	for i, code := range codes {
		lang, err := storage.ParseLanguage(code)
		if err != nil {
			return nil, err
		}
		names[i] = storage.LanguageName(lang)
	}
	return names, nil
}

func (s *Server) translate(c *gin.Context) {
	s.language(c, func(req languageReq) (string, error) {
		names, err := languageNames(req.Source, req.Target)
		if err != nil {
			return "", badRequest{err}
		}
		return s.assistant.Translate(c.Request.Context(), req.Text, names[0], names[1])
	})
}

func (s *Server) define(c *gin.Context) {
	s.language(c, func(req languageReq) (string, error) {
		names, err := languageNames(req.Lang)
		if err != nil {
			return "", badRequest{err}
		}
		return s.assistant.Define(c.Request.Context(), strings.TrimSpace(req.Word), names[0])
	})
}

func (s *Server) examples(c *gin.Context) {
	s.language(c, func(req languageReq) (string, error) {
		names, err := languageNames(req.Source, req.Target)
		if err != nil {
			return "", badRequest{err}
		}
		return s.assistant.Examples(c.Request.Context(), strings.TrimSpace(req.Word), names[0], names[1])
	})
}

type badRequest struct{ error }

// language binds the request, runs fn and maps its errors. Service failures
// carry a generic message and answer 502.
func (s *Server) language(c *gin.Context, fn func(languageReq) (string, error)) {
	if s.assistant == nil {
		fail(c, http.StatusServiceUnavailable, "no Anthropic API key configured")
		return
	}

	var req languageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid body")
		return
	}

	out, err := fn(req)
	var bad badRequest
	var svc *llm.ServiceError
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"ok": true, "result": out})
	case errors.As(err, &bad):
		fail(c, http.StatusBadRequest, bad.Error())
	case errors.As(err, &svc):
		log.Printf("Language request failed: %v", svc.Err)
		fail(c, http.StatusBadGateway, svc.Error())
	default:
		log.Printf("Language request failed: %v", err)
		fail(c, http.StatusBadGateway, "Something went wrong, please try again")
	}
}
