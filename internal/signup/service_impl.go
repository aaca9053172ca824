package signup

import (
	"context"
	"errors"
	"strings"

	authdomain "github.com/smallbiznis/streamhub/internal/auth/domain"
	"github.com/smallbiznis/streamhub/internal/config"
	"github.com/smallbiznis/streamhub/internal/signup/domain"
	"go.uber.org/zap"
)

type service struct {
	log         *zap.Logger
	authsvc     authdomain.Service
	plans       *config.PlanCatalogHolder
	provisioner domain.Provisioner
}

func NewService(log *zap.Logger, authsvc authdomain.Service, plans *config.PlanCatalogHolder, provisioner domain.Provisioner) domain.Service {
	return &service{
		log:         log.Named("signup.service"),
		authsvc:     authsvc,
		plans:       plans,
		provisioner: provisioner,
	}
}

// Signup creates the account, provisions its profile and subscription, and
// opens a session. An existing account whose password matches is
// re-provisioned instead, which completes a sign-up that failed midway.
func (s *service) Signup(ctx context.Context, req domain.Request) (*domain.Result, error) {
	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		return nil, domain.ErrInvalidRequest
	}
	if _, ok := s.plans.Get().Lookup(req.Plan); !ok {
		return nil, domain.ErrInvalidPlan
	}

	account, err := s.authsvc.SignUp(ctx, authdomain.SignUpRequest{
		Email:       email,
		Password:    req.Password,
		DisplayName: req.FullName,
	})
	if errors.Is(err, authdomain.ErrAccountExists) {
		existing, verifyErr := s.authsvc.VerifyPassword(ctx, email, req.Password)
		if verifyErr != nil {
			return nil, err
		}
		s.log.Info("resuming sign-up for existing account", zap.String("account_id", existing.ID.String()))
		account = existing
	} else if err != nil {
		return nil, err
	}

	fullName := strings.TrimSpace(req.FullName)
	if fullName == "" {
		fullName = account.DisplayName
	}
	provisioned, err := s.provisioner.ProvisionNewUser(ctx, domain.ProvisionRequest{
		Identity: domain.Identity{
			ID:       account.ID,
			Email:    account.Email,
			FullName: fullName,
		},
		PlanChoice: req.Plan,
	})
	if err != nil {
		return nil, err
	}

	login, err := s.authsvc.SignIn(ctx, authdomain.SignInRequest{
		Email:     email,
		Password:  req.Password,
		UserAgent: req.UserAgent,
		IPAddress: req.IPAddress,
	})
	if err != nil {
		return nil, err
	}

	return &domain.Result{
		Account:      login.Account,
		User:         provisioned.User,
		Subscription: provisioned.Subscription,
		RawToken:     login.RawToken,
		ExpiresAt:    login.ExpiresAt,
	}, nil
}
