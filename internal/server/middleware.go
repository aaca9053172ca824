package server

import (
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/streamhub/internal/observability/context"
	"github.com/smallbiznis/streamhub/internal/observability/logger"
	userdomain "github.com/smallbiznis/streamhub/internal/user/domain"
	"go.uber.org/zap"
)

const (
	contextUserIDKey  = "user_id"
	contextAccountKey = "account_id"
	contextProfileKey = "profile"
)

// AuthRequired resolves the session token from the bearer header or the
// session cookie and stores the caller's id on the context.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := s.sessions.ReadToken(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		sess, err := s.authsvc.Authenticate(c.Request.Context(), token)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		userID := sess.AccountID.String()
		c.Set(contextUserIDKey, userID)
		c.Set(contextAccountKey, sess.AccountID)

		c.Request = c.Request.WithContext(obscontext.WithUserID(c.Request.Context(), userID))
		c.Next()
	}
}

// AdminRequired must run after AuthRequired.
func (s *Server) AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := callerID(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		profile, err := s.userSvc.Get(c.Request.Context(), userID)
		if err != nil || profile == nil || !profile.IsAdmin {
			if err != nil {
				logger.FromContext(c.Request.Context()).Debug("admin lookup failed", zap.Error(err))
			}
			AbortWithError(c, ErrForbidden)
			return
		}

		c.Set(contextProfileKey, profile)
		c.Next()
	}
}

func callerID(c *gin.Context) (snowflake.ID, bool) {
	raw, ok := c.Get(contextAccountKey)
	if !ok {
		return 0, false
	}
	id, ok := raw.(snowflake.ID)
	return id, ok && id != 0
}

func callerProfile(c *gin.Context) (*userdomain.User, bool) {
	raw, ok := c.Get(contextProfileKey)
	if !ok {
		return nil, false
	}
	profile, ok := raw.(*userdomain.User)
	return profile, ok && profile != nil
}

func parseIDParam(c *gin.Context, name string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(c.Param(name))
	if err != nil || id == 0 {
		return 0, ErrNotFound
	}
	return id, nil
}
