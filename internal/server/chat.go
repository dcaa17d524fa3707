package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/liminalpurple/sayangku/internal/chat"
	"github.com/liminalpurple/sayangku/internal/richtext"
)

func (s *Server) registerChat(rg *gin.RouterGroup) {
	d := rg.Group("/draft")
	d.GET("", s.getDraft)
	d.POST("/select", s.draftSelect)
	d.POST("/insert", s.draftInsert)
	d.POST("/format", s.draftFormat)
	d.POST("/delete", s.draftDelete)
	d.POST("/load", s.draftLoad)
	d.POST("/reply", s.draftReply)

	rg.POST("/send", s.send)
	rg.GET("/messages", s.messages)
	rg.POST("/messages/:id/translate", s.translateMessage)
}

func (s *Server) draftResponse(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "draft": s.composer.Snapshot()})
}

func (s *Server) getDraft(c *gin.Context) {
	s.draftResponse(c)
}

type selectReq struct {
	Anchor int `json:"anchor"`
	Focus  int `json:"focus"`
}

func (s *Server) draftSelect(c *gin.Context) {
	var req selectReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid body")
		return
	}
	s.composer.Edit(func(e *richtext.Editor) { e.Select(req.Anchor, req.Focus) })
	s.draftResponse(c)
}

type insertReq struct {
	Text string `json:"text"`
}

func (s *Server) draftInsert(c *gin.Context) {
	var req insertReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid body")
		return
	}
	s.composer.Edit(func(e *richtext.Editor) { e.InsertText(req.Text) })
	s.draftResponse(c)
}

type formatReq struct {
	Format string `json:"format"`
	Value  string `json:"value"`
}

func (s *Server) draftFormat(c *gin.Context) {
	var req formatReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid body")
		return
	}
	f, ok := richtext.ParseFormat(req.Format)
	if !ok {
		fail(c, http.StatusBadRequest, "unknown format: "+req.Format)
		return
	}
	s.composer.Edit(func(e *richtext.Editor) { e.ApplyFormat(f, req.Value) })
	s.draftResponse(c)
}

func (s *Server) draftDelete(c *gin.Context) {
	s.composer.Edit(func(e *richtext.Editor) { e.DeleteBackward() })
	s.draftResponse(c)
}

type loadReq struct {
	Markup string `json:"markup"`
}

// draftLoad replaces the draft with editor markup, as after a paste
func (s *Server) draftLoad(c *gin.Context) {
	var req loadReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid body")
		return
	}
	s.composer.Edit(func(e *richtext.Editor) { e.Load(req.Markup) })
	s.draftResponse(c)
}

type replyReq struct {
	ImageID int64 `json:"imageId"`
}

func (s *Server) draftReply(c *gin.Context) {
	var req replyReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid body")
		return
	}
	s.composer.ReplyTo(req.ImageID)
	s.draftResponse(c)
}

func (s *Server) send(c *gin.Context) {
	msg, err := s.chat.Send(c.Request.Context(), s.composer)
	if errors.Is(err, chat.ErrEmptyMessage) {
		fail(c, http.StatusBadRequest, err.Error())
		return
	} else if err != nil {
		fail(c, http.StatusBadGateway, err.Error())
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "message": s.chat.RenderBubble(msg)})
}

func (s *Server) messages(c *gin.Context) {
	msgs, err := s.chat.Messages()
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	bubbles := make([]chat.Bubble, 0, len(msgs))
	for _, m := range msgs {
		bubbles = append(bubbles, s.chat.RenderBubble(m))
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "messages": bubbles, "spoilerCss": richtext.SpoilerCSS})
}

func (s *Server) translateMessage(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	msg, err := s.chat.Translate(c.Request.Context(), id)
	if errors.Is(err, chat.ErrNotFound) {
		fail(c, http.StatusNotFound, err.Error())
		return
	} else if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "message": s.chat.RenderBubble(msg)})
}

type renderReq struct {
	Text       string `json:"text"`
	Background string `json:"background"`
}

func (s *Server) render(c *gin.Context) {
	var req renderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid body")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":           true,
		"html":         richtext.Render(richtext.FormattedMessageText(req.Text), req.Background),
		"spoilerColor": richtext.SpoilerColor(req.Background),
	})
}
