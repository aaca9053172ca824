package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/streamhub/internal/auth/domain"
	signupdomain "github.com/smallbiznis/streamhub/internal/signup/domain"
	subscriptiondomain "github.com/smallbiznis/streamhub/internal/subscription/domain"
	userdomain "github.com/smallbiznis/streamhub/internal/user/domain"
)

type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Plan     string `json:"plan"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Account      *authdomain.Account                  `json:"account"`
	User         *userdomain.User                     `json:"user,omitempty"`
	Subscription *subscriptiondomain.UserSubscription `json:"subscription,omitempty"`
	Token        string                               `json:"token"`
	ExpiresAt    time.Time                            `json:"expires_at"`
}

func (s *Server) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.signupsvc.Signup(c.Request.Context(), signupdomain.Request{
		Email:     req.Email,
		Password:  req.Password,
		FullName:  req.FullName,
		Plan:      req.Plan,
		UserAgent: c.Request.UserAgent(),
		IPAddress: c.ClientIP(),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if result.RawToken != "" {
		s.sessions.Set(c, result.RawToken, result.ExpiresAt)
	}

	c.JSON(http.StatusCreated, sessionResponse{
		Account:      result.Account,
		User:         result.User,
		Subscription: result.Subscription,
		Token:        result.RawToken,
		ExpiresAt:    result.ExpiresAt,
	})
}

func (s *Server) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.authsvc.SignIn(c.Request.Context(), authdomain.SignInRequest{
		Email:     strings.TrimSpace(req.Email),
		Password:  req.Password,
		UserAgent: c.Request.UserAgent(),
		IPAddress: c.ClientIP(),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.sessions.Set(c, result.RawToken, result.ExpiresAt)
	c.JSON(http.StatusOK, sessionResponse{
		Account:   result.Account,
		Token:     result.RawToken,
		ExpiresAt: result.ExpiresAt,
	})
}

// Logout always clears the cookie. An unknown token is not an error.
func (s *Server) Logout(c *gin.Context) {
	if token, ok := s.sessions.ReadToken(c); ok {
		if err := s.authsvc.SignOut(c.Request.Context(), token); err != nil && !authdomain.IsAuthError(err) {
			AbortWithError(c, err)
			return
		}
	}
	s.sessions.Clear(c)
	c.Status(http.StatusNoContent)
}

type meResponse struct {
	Account *authdomain.Account `json:"account"`
	User    *userdomain.User    `json:"user"`
}

// Me returns the caller's account and profile. The profile is null while
// provisioning is incomplete.
func (s *Server) Me(c *gin.Context) {
	id, ok := callerID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	ctx := c.Request.Context()
	account, err := s.authsvc.GetAccount(ctx, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	profile, err := s.userSvc.Get(ctx, id)
	if err != nil && !errors.Is(err, userdomain.ErrUserNotFound) {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, meResponse{Account: account, User: profile})
}
