package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/smallbiznis/streamhub/internal/auth/domain"
	"github.com/smallbiznis/streamhub/internal/auth/events"
	"github.com/smallbiznis/streamhub/internal/auth/repository"
	"github.com/smallbiznis/streamhub/internal/clock"
	"github.com/smallbiznis/streamhub/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	svc    authdomain.Service
	clock  *clock.FakeClock
	broker *events.Broker
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	dbConn, err := db.NewTest()
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := dbConn.AutoMigrate(&authdomain.Account{}, &authdomain.Session{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	repo, sessionRepo := repository.New(dbConn)
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("failed to create snowflake node: %v", err)
	}

	clk := clock.NewFakeClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	broker := events.NewBroker()
	svc := New(ServiceParam{
		Log:         zap.NewNop(),
		Repo:        repo,
		SessionRepo: sessionRepo,
		GenID:       node,
		Clock:       clk,
		Broker:      broker,
	})
	return fixture{svc: svc, clock: clk, broker: broker}
}

func TestSignInWrongPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.SignUp(ctx, authdomain.SignUpRequest{
		Email:    "alice@example.com",
		Password: "correct-password",
	})
	require.NoError(t, err)

	_, err = f.svc.SignIn(ctx, authdomain.SignInRequest{
		Email:    "alice@example.com",
		Password: "wrong-password",
	})
	assert.ErrorIs(t, err, authdomain.ErrInvalidCredentials)
}

func TestSignUpNormalizesAndRejectsDuplicates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	account, err := f.svc.SignUp(ctx, authdomain.SignUpRequest{
		Email:    "  Bob@Example.com ",
		Password: "strong-password",
	})
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", account.Email)
	assert.Equal(t, "bob", account.DisplayName)

	_, err = f.svc.SignUp(ctx, authdomain.SignUpRequest{
		Email:    "bob@example.com",
		Password: "another-password",
	})
	assert.ErrorIs(t, err, authdomain.ErrAccountExists)
}

func TestSignUpRejectsShortPassword(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.SignUp(context.Background(), authdomain.SignUpRequest{
		Email:    "carol@example.com",
		Password: "short",
	})
	assert.ErrorIs(t, err, authdomain.ErrWeakPassword)
}

func TestSessionLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sub := f.svc.Subscribe()
	defer sub.Close()

	account, err := f.svc.SignUp(ctx, authdomain.SignUpRequest{Email: "dan@example.com", Password: "password-123"})
	require.NoError(t, err)

	login, err := f.svc.SignIn(ctx, authdomain.SignInRequest{Email: "dan@example.com", Password: "password-123"})
	require.NoError(t, err)
	assert.NotEmpty(t, login.RawToken)
	assert.Equal(t, account.ID, login.Account.ID)

	session, err := f.svc.Authenticate(ctx, login.RawToken)
	require.NoError(t, err)
	assert.Equal(t, account.ID, session.AccountID)

	require.NoError(t, f.svc.SignOut(ctx, login.RawToken))

	_, err = f.svc.Authenticate(ctx, login.RawToken)
	assert.ErrorIs(t, err, authdomain.ErrSessionRevoked)

	var got []events.Type
	for i := 0; i < 3; i++ {
		evt := <-sub.Events()
		assert.Equal(t, account.ID, evt.AccountID)
		got = append(got, evt.Type)
	}
	assert.Equal(t, []events.Type{events.SignedUp, events.SignedIn, events.SignedOut}, got)
}

func TestAuthenticateExpiredSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.SignUp(ctx, authdomain.SignUpRequest{Email: "erin@example.com", Password: "password-123"})
	require.NoError(t, err)
	login, err := f.svc.SignIn(ctx, authdomain.SignInRequest{Email: "erin@example.com", Password: "password-123"})
	require.NoError(t, err)

	f.clock.Advance(sessionTTL + time.Minute)

	_, err = f.svc.Authenticate(ctx, login.RawToken)
	assert.ErrorIs(t, err, authdomain.ErrSessionExpired)
}

func TestAuthenticateUnknownToken(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Authenticate(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, authdomain.ErrInvalidSession)
	_, err = f.svc.Authenticate(context.Background(), " ")
	assert.ErrorIs(t, err, authdomain.ErrInvalidSession)
}
