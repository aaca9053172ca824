package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	catalogdomain "github.com/smallbiznis/streamhub/internal/catalog/domain"
)

type channelListResponse struct {
	Channels []catalogdomain.Channel `json:"channels"`
}

type contentListResponse struct {
	Content []catalogdomain.ContentItem `json:"content"`
}

func (s *Server) ListChannels(c *gin.Context) {
	channels, err := s.catalogSvc.ListChannels(c.Request.Context(), catalogdomain.ChannelFilter{
		Search:   strings.TrimSpace(c.Query("q")),
		Category: strings.TrimSpace(c.Query("category")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, channelListResponse{Channels: channels})
}

func (s *Server) ListContent(c *gin.Context) {
	items, err := s.catalogSvc.ListContent(c.Request.Context(), catalogdomain.ContentFilter{
		Type:     catalogdomain.ContentType(strings.TrimSpace(c.Query("type"))),
		Search:   strings.TrimSpace(c.Query("q")),
		Category: strings.TrimSpace(c.Query("category")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, contentListResponse{Content: items})
}

func (s *Server) AdminListChannels(c *gin.Context) {
	profile, ok := callerProfile(c)
	if !ok {
		AbortWithError(c, ErrForbidden)
		return
	}
	channels, err := s.catalogSvc.ListChannels(c.Request.Context(), catalogdomain.ChannelFilter{
		OrganizationID:  profile.OrganizationID,
		Search:          strings.TrimSpace(c.Query("q")),
		Category:        strings.TrimSpace(c.Query("category")),
		IncludeInactive: true,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, channelListResponse{Channels: channels})
}

func (s *Server) CreateChannel(c *gin.Context) {
	profile, ok := callerProfile(c)
	if !ok {
		AbortWithError(c, ErrForbidden)
		return
	}
	var req catalogdomain.CreateChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	channel, err := s.catalogSvc.CreateChannel(c.Request.Context(), profile.OrganizationID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, channel)
}

func (s *Server) UpdateChannel(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var req catalogdomain.UpdateChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	channel, err := s.catalogSvc.UpdateChannel(c.Request.Context(), id, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, channel)
}

func (s *Server) DeleteChannel(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.catalogSvc.DeleteChannel(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) AdminListContent(c *gin.Context) {
	profile, ok := callerProfile(c)
	if !ok {
		AbortWithError(c, ErrForbidden)
		return
	}
	items, err := s.catalogSvc.ListContent(c.Request.Context(), catalogdomain.ContentFilter{
		OrganizationID:  profile.OrganizationID,
		Type:            catalogdomain.ContentType(strings.TrimSpace(c.Query("type"))),
		Search:          strings.TrimSpace(c.Query("q")),
		Category:        strings.TrimSpace(c.Query("category")),
		IncludeInactive: true,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, contentListResponse{Content: items})
}

func (s *Server) CreateContent(c *gin.Context) {
	profile, ok := callerProfile(c)
	if !ok {
		AbortWithError(c, ErrForbidden)
		return
	}
	var req catalogdomain.CreateContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	item, err := s.catalogSvc.CreateContent(c.Request.Context(), profile.OrganizationID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (s *Server) UpdateContent(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var req catalogdomain.UpdateContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	item, err := s.catalogSvc.UpdateContent(c.Request.Context(), id, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (s *Server) DeleteContent(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.catalogSvc.DeleteContent(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
