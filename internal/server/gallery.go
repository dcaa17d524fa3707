package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/liminalpurple/sayangku/internal/gallery"
	"github.com/liminalpurple/sayangku/internal/overlay"
)

// maxUploadBytes caps sticker uploads
const maxUploadBytes = 10 << 20

func (s *Server) registerGallery(rg *gin.RouterGroup) {
	rg.GET("", s.listImages)
	rg.POST("", s.addImage)
	rg.POST("/:id/favorite", s.toggleFavorite)
	rg.DELETE("/:id", s.deleteImage)

	ed := rg.Group("/:id/editor")
	ed.POST("", s.openEditor)
	ed.GET("", s.getEditor)
	ed.POST("/stickers", s.placeSticker)
	ed.DELETE("/stickers/:sid", s.removeSticker)
	ed.POST("/pointer/down", s.pointerDown)
	ed.POST("/pointer/move", s.pointerMove)
	ed.POST("/pointer/up", s.pointerUp)
	ed.POST("/view", s.toggleView)
	ed.POST("/close", s.closeEditor)
}

func (s *Server) registerStickers(rg *gin.RouterGroup) {
	rg.GET("", s.listStickers)
	rg.POST("", s.importSticker)
}

func galleryStatus(err error) int {
	switch {
	case errors.Is(err, gallery.ErrNotFound), errors.Is(err, gallery.ErrNoSuchSticker):
		return http.StatusNotFound
	case errors.Is(err, gallery.ErrAlreadyOpen), errors.Is(err, gallery.ErrNotOpen):
		return http.StatusConflict
	case errors.Is(err, gallery.ErrInvalidImage):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) listImages(c *gin.Context) {
	favorites := c.Query("favorites") == "1" || c.Query("favorites") == "true"
	c.JSON(http.StatusOK, gin.H{"ok": true, "images": s.gallery.List(favorites)})
}

type addImageReq struct {
	Src  string `json:"src"`
	User string `json:"user"`
}

func (s *Server) addImage(c *gin.Context) {
	var req addImageReq
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Src) == "" || strings.TrimSpace(req.User) == "" {
		fail(c, http.StatusBadRequest, "invalid body")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "image": s.gallery.Add(req.Src, strings.TrimSpace(req.User))})
}

func (s *Server) toggleFavorite(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	img, err := s.gallery.ToggleFavorite(id)
	if err != nil {
		fail(c, galleryStatus(err), err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "image": img})
}

func (s *Server) deleteImage(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := s.gallery.Delete(id); err != nil {
		fail(c, galleryStatus(err), err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// editorState is the open editor as seen by the client
type editorState struct {
	ImageID   int64                   `json:"imageId"`
	Stickers  []overlay.PlacedSticker `json:"stickers"`
	Active    *overlay.Interaction    `json:"active,omitempty"`
	Container overlay.Viewport        `json:"container"`
	View      overlay.View            `json:"view"`
}

// viewportOf returns the session's container when it is a server-managed viewport
func viewportOf(sess *overlay.Session) *overlay.Viewport {
	vp, _ := sess.Container().(*overlay.Viewport)
	return vp
}

func snapshot(sess *overlay.Session) editorState {
	st := editorState{ImageID: sess.ImageID(), Stickers: sess.Stickers(), View: sess.View()}
	if in, ok := sess.Active(); ok {
		st.Active = &in
	}
	if vp := viewportOf(sess); vp != nil {
		st.Container = *vp
	}
	return st
}

type containerReq struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (s *Server) openEditor(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req containerReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Width < 0 || req.Height < 0 {
		fail(c, http.StatusBadRequest, "invalid body")
		return
	}

	vp := &overlay.Viewport{Width: req.Width, Height: req.Height}
	if err := s.gallery.Open(id, vp); err != nil {
		fail(c, galleryStatus(err), err.Error())
		return
	}
	s.withEditor(c, id, http.StatusCreated, nil)
}

func (s *Server) getEditor(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	s.withEditor(c, id, http.StatusOK, nil)
}

type placeReq struct {
	Index *int `json:"index"`
}

func (s *Server) placeSticker(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req placeReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Index == nil {
		fail(c, http.StatusBadRequest, "invalid body")
		return
	}

	placed, err := s.gallery.PlaceFromLibrary(c.Request.Context(), id, *req.Index)
	if err != nil {
		fail(c, galleryStatus(err), err.Error())
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "sticker": placed})
}

func (s *Server) removeSticker(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	sid, ok := idParam(c, "sid")
	if !ok {
		return
	}
	s.withEditor(c, id, http.StatusOK, func(sess *overlay.Session, _ *overlay.Viewport) {
		sess.Remove(sid)
	})
}

type pointerDownReq struct {
	StickerID int64                   `json:"stickerId"`
	Type      overlay.InteractionType `json:"type"`
	X         float64                 `json:"x"`
	Y         float64                 `json:"y"`
}

func (s *Server) pointerDown(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req pointerDownReq
	if err := c.ShouldBindJSON(&req); err != nil || !req.Type.Valid() {
		fail(c, http.StatusBadRequest, "invalid body")
		return
	}
	s.withEditor(c, id, http.StatusOK, func(sess *overlay.Session, _ *overlay.Viewport) {
		sess.BeginInteraction(req.StickerID, req.Type, req.X, req.Y)
	})
}

type pointerMoveReq struct {
	X      float64  `json:"x"`
	Y      float64  `json:"y"`
	Width  *float64 `json:"width"`
	Height *float64 `json:"height"`
}

func (s *Server) pointerMove(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req pointerMoveReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid body")
		return
	}
	s.withEditor(c, id, http.StatusOK, func(sess *overlay.Session, vp *overlay.Viewport) {
		if vp != nil && req.Width != nil && req.Height != nil {
			vp.Resize(*req.Width, *req.Height)
		}
		sess.UpdateInteraction(req.X, req.Y)
	})
}

func (s *Server) pointerUp(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	s.withEditor(c, id, http.StatusOK, func(sess *overlay.Session, _ *overlay.Viewport) {
		sess.EndInteraction()
	})
}

type viewReq struct {
	Flag string `json:"flag"`
}

// toggleView flips one of the editor's display flags: "invert" or "mirror"
func (s *Server) toggleView(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req viewReq
	if err := c.ShouldBindJSON(&req); err != nil || (req.Flag != "invert" && req.Flag != "mirror") {
		fail(c, http.StatusBadRequest, "invalid body")
		return
	}
	s.withEditor(c, id, http.StatusOK, func(sess *overlay.Session, _ *overlay.Viewport) {
		if req.Flag == "invert" {
			sess.ToggleInverted()
		} else {
			sess.ToggleMirrored()
		}
	})
}

func (s *Server) closeEditor(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	img, err := s.gallery.Commit(id)
	if err != nil {
		fail(c, galleryStatus(err), err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "image": img})
}

// withEditor runs fn on the image's open editor and responds with its state
func (s *Server) withEditor(c *gin.Context, imageID int64, status int, fn func(*overlay.Session, *overlay.Viewport)) {
	var st editorState
	err := s.gallery.Do(imageID, func(sess *overlay.Session) error {
		if fn != nil {
			fn(sess, viewportOf(sess))
		}
		st = snapshot(sess)
		return nil
	})
	if err != nil {
		fail(c, galleryStatus(err), err.Error())
		return
	}
	c.JSON(status, gin.H{"ok": true, "editor": st})
}

func (s *Server) listStickers(c *gin.Context) {
	stickers, err := s.gallery.Library(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "stickers": stickers})
}

// importSticker accepts a multipart "file" field or a raw image body. With
// ?imageId= the new sticker is also placed on that image's open editor.
func (s *Server) importSticker(c *gin.Context) {
	var imageID int64
	raw := c.Query("imageId")
	if raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			fail(c, http.StatusBadRequest, "invalid imageId")
			return
		}
		imageID = id
	}

	data, err := readUpload(c)
	if err != nil || len(data) == 0 {
		fail(c, http.StatusBadRequest, "missing image")
		return
	}

	ctx := c.Request.Context()
	if raw == "" {
		sticker, err := s.gallery.ImportSticker(ctx, data)
		if err != nil {
			fail(c, galleryStatus(err), err.Error())
			return
		}
		c.JSON(http.StatusCreated, gin.H{"ok": true, "sticker": sticker})
		return
	}

	sticker, placed, err := s.gallery.ImportAndPlace(ctx, data, imageID)
	if err != nil {
		fail(c, galleryStatus(err), err.Error())
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "sticker": sticker, "placed": placed})
}

func readUpload(c *gin.Context) ([]byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fh, err := c.FormFile("file")
		if err != nil {
			return nil, err
		}
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		defer func() { _ = f.Close() }()
		return io.ReadAll(f)
	}
	return io.ReadAll(c.Request.Body)
}
