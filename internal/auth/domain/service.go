package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/streamhub/internal/auth/events"
)

type Service interface {
	SignUp(ctx context.Context, req SignUpRequest) (*Account, error)
	SignIn(ctx context.Context, req SignInRequest) (*LoginResult, error)
	SignOut(ctx context.Context, rawToken string) error
	Authenticate(ctx context.Context, rawToken string) (*Session, error)
	// VerifyPassword checks credentials without opening a session.
	VerifyPassword(ctx context.Context, email, password string) (*Account, error)
	GetAccount(ctx context.Context, id snowflake.ID) (*Account, error)
	Subscribe() *events.Subscription
}

type SignUpRequest struct {
	Email       string
	Password    string
	DisplayName string
}

type SignInRequest struct {
	Email     string
	Password  string
	UserAgent string
	IPAddress string
}

type LoginResult struct {
	Account   *Account
	RawToken  string
	ExpiresAt time.Time
	SessionID snowflake.ID
}
