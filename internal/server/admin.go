package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	plandomain "github.com/smallbiznis/streamhub/internal/plan/domain"
	userdomain "github.com/smallbiznis/streamhub/internal/user/domain"
	"github.com/smallbiznis/streamhub/pkg/db/pagination"
)

func (s *Server) ListUsers(c *gin.Context) {
	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	resp, err := s.userSvc.List(c.Request.Context(), page)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) UpdateUser(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var req userdomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	user, err := s.userSvc.Update(c.Request.Context(), id, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// DeleteUser refuses to remove the caller's own profile.
func (s *Server) DeleteUser(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if self, ok := callerID(c); ok && self == id {
		AbortWithError(c, ErrForbidden)
		return
	}
	if err := s.userSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type planListResponse struct {
	Plans []plandomain.SubscriptionPlan `json:"plans"`
}

func (s *Server) ListPlans(c *gin.Context) {
	profile, ok := callerProfile(c)
	if !ok {
		AbortWithError(c, ErrForbidden)
		return
	}
	plans, err := s.planSvc.ListByOrganization(c.Request.Context(), profile.OrganizationID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, planListResponse{Plans: plans})
}
