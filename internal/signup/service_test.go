package signup

import (
	"context"
	"testing"

	authdomain "github.com/smallbiznis/streamhub/internal/auth/domain"
	authrepo "github.com/smallbiznis/streamhub/internal/auth/repository"
	authservice "github.com/smallbiznis/streamhub/internal/auth/service"
	"github.com/smallbiznis/streamhub/internal/config"
	"github.com/smallbiznis/streamhub/internal/signup/domain"
	subscriptiondomain "github.com/smallbiznis/streamhub/internal/subscription/domain"
	userdomain "github.com/smallbiznis/streamhub/internal/user/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newSignupService(t *testing.T) (domain.Service, *provisionFixture) {
	t.Helper()
	f := newProvisionFixture(t)
	require.NoError(t, f.db.AutoMigrate(&authdomain.Account{}, &authdomain.Session{}))

	repo, sessions := authrepo.New(f.db)
	auth := authservice.New(authservice.ServiceParam{
		Log:         zap.NewNop(),
		Repo:        repo,
		SessionRepo: sessions,
		GenID:       f.node,
		Clock:       f.clock,
	})
	plans := config.NewStaticPlanCatalogHolder(config.DefaultPlanCatalog())
	return NewService(zap.NewNop(), auth, plans, f.prov), f
}

func TestSignupBasicPlan(t *testing.T) {
	svc, _ := newSignupService(t)

	res, err := svc.Signup(context.Background(), domain.Request{
		Email:    "new@example.com",
		Password: "correct-horse",
		FullName: "New Viewer",
		Plan:     "basic",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.RawToken)
	assert.Equal(t, res.Account.ID, res.User.ID)
	assert.Equal(t, "New Viewer", res.User.FullName)
	assert.Equal(t, int64(50), res.Subscription.CurrentCredits)
	assert.Equal(t, int64(50), res.Subscription.MonthlyCreditsLimit)
}

func TestSignupRetryCompletesProvisioning(t *testing.T) {
	svc, f := newSignupService(t)
	ctx := context.Background()
	req := domain.Request{Email: "retry@example.com", Password: "correct-horse", Plan: "premium"}

	f.subs.failures = 1
	_, err := svc.Signup(ctx, req)
	require.ErrorIs(t, err, domain.ErrProvisioningFailed)

	res, err := svc.Signup(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, int64(200), res.Subscription.CurrentCredits)
	assert.Equal(t, int64(1), f.count(t, &userdomain.User{}))
	assert.Equal(t, int64(1), f.count(t, &subscriptiondomain.UserSubscription{}))
}

func TestSignupExistingAccountWrongPassword(t *testing.T) {
	svc, _ := newSignupService(t)
	ctx := context.Background()

	_, err := svc.Signup(ctx, domain.Request{Email: "taken@example.com", Password: "correct-horse"})
	require.NoError(t, err)

	_, err = svc.Signup(ctx, domain.Request{Email: "taken@example.com", Password: "another-pass"})
	assert.ErrorIs(t, err, authdomain.ErrAccountExists)
}

func TestSignupUnknownPlanCreatesNoAccount(t *testing.T) {
	svc, f := newSignupService(t)

	_, err := svc.Signup(context.Background(), domain.Request{Email: "p@example.com", Password: "correct-horse", Plan: "gold"})
	require.ErrorIs(t, err, domain.ErrInvalidPlan)
	assert.Zero(t, f.count(t, &authdomain.Account{}))
}
