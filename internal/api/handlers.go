package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dharsanguruparan/filevault/internal/files"
	"github.com/dharsanguruparan/filevault/internal/model"
)

type credentialsReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenRes struct {
	Token string `json:"token"`
}

type statusRes struct {
	Redis bool `json:"redis"`
	DB    bool `json:"db"`
}

type statsRes struct {
	Users int64 `json:"users"`
	Files int64 `json:"files"`
}

// bindJSON decodes the body into obj. An empty body leaves obj untouched so
// the field checks report what is missing.
func bindJSON(c *gin.Context, obj any) error {
	err := c.ShouldBindJSON(obj)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return err
	}
	return errMalformedBody
}

func (s *Server) getStatus(c *gin.Context) {
	ctx := c.Request.Context()
	c.JSON(http.StatusOK, statusRes{
		Redis: s.sessions.Ping(ctx) == nil,
		DB:    s.store.Ping(ctx) == nil,
	})
}

func (s *Server) getStats(c *gin.Context) {
	ctx := c.Request.Context()
	nUsers, err := s.store.CountUsers(ctx)
	if err != nil {
		fail(c, err)
		return
	}
	nFiles, err := s.store.CountFiles(ctx)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, statsRes{Users: nUsers, Files: nFiles})
}

func (s *Server) postUser(c *gin.Context) {
	var req credentialsReq
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	user, err := s.users.Register(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

// getConnect exchanges Basic credentials for a session token.
func (s *Server) getConnect(c *gin.Context) {
	email, password, ok := c.Request.BasicAuth()
	if !ok {
		fail(c, errUnauthorizedHeader)
		return
	}
	token, err := s.users.Connect(c.Request.Context(), email, password)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, tokenRes{Token: token})
}

func (s *Server) getDisconnect(c *gin.Context) {
	if err := s.users.Disconnect(c.Request.Context(), c.GetHeader(tokenHeader)); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) getMe(c *gin.Context) {
	c.JSON(http.StatusOK, currentUser(c))
}

func (s *Server) postFile(c *gin.Context) {
	var req files.CreateInput
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	file, err := s.files.Create(c.Request.Context(), currentUser(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, file)
}

func (s *Server) getShow(c *gin.Context) {
	file, err := s.files.Show(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, file)
}

func (s *Server) getIndex(c *gin.Context) {
	parent := model.Folder(c.Query("parentId"))
	page := model.ParsePage(c.Query("page"))
	items, err := s.files.List(c.Request.Context(), currentUser(c), parent, page)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (s *Server) putPublish(c *gin.Context) {
	file, err := s.files.Publish(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, file)
}

func (s *Server) putUnpublish(c *gin.Context) {
	file, err := s.files.Unpublish(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, file)
}

func (s *Server) getData(c *gin.Context) {
	content, err := s.files.Content(c.Request.Context(), currentUser(c), c.Param("id"), c.Query("size"))
	if err != nil {
		fail(c, err)
		return
	}
	c.Data(http.StatusOK, content.ContentType, content.Data)
}
