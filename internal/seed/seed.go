// Package seed bootstraps the default organization, its plan tiers and an
// optional back-office account on startup.
package seed

import (
	"context"
	"errors"
	"strings"

	authdomain "github.com/smallbiznis/streamhub/internal/auth/domain"
	"github.com/smallbiznis/streamhub/internal/clock"
	"github.com/smallbiznis/streamhub/internal/config"
	signupdomain "github.com/smallbiznis/streamhub/internal/signup/domain"
	userdomain "github.com/smallbiznis/streamhub/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const defaultAdminName = "StreamHub Admin"

type Params struct {
	fx.In

	Config      config.Config
	Log         *zap.Logger
	Clock       clock.Clock
	Auth        authdomain.Service
	Provisioner signupdomain.Provisioner
	Users       userdomain.Repository
}

type Seeder struct {
	cfg         config.Config
	log         *zap.Logger
	clock       clock.Clock
	auth        authdomain.Service
	provisioner signupdomain.Provisioner
	users       userdomain.Repository
}

func New(p Params) *Seeder {
	return &Seeder{
		cfg:         p.Config,
		log:         p.Log.Named("seed"),
		clock:       p.Clock,
		auth:        p.Auth,
		provisioner: p.Provisioner,
		users:       p.Users,
	}
}

// Run is idempotent.
func (s *Seeder) Run(ctx context.Context) error {
	bootstrap := s.cfg.Bootstrap
	org, err := s.provisioner.EnsureCatalog(ctx, bootstrap.OrgSlug, bootstrap.OrgName)
	if err != nil {
		return err
	}
	s.log.Info("default organization ready", zap.String("slug", org.Slug))

	email := strings.TrimSpace(bootstrap.AdminEmail)
	if email == "" || bootstrap.AdminPassword == "" {
		return nil
	}
	return s.ensureAdmin(ctx, email, bootstrap.AdminPassword, org.Slug)
}

func (s *Seeder) ensureAdmin(ctx context.Context, email, password, orgSlug string) error {
	account, err := s.auth.SignUp(ctx, authdomain.SignUpRequest{
		Email:       email,
		Password:    password,
		DisplayName: defaultAdminName,
	})
	if errors.Is(err, authdomain.ErrAccountExists) {
		account, err = s.auth.VerifyPassword(ctx, email, password)
		if err != nil {
			s.log.Warn("admin account exists with a different password; leaving it unchanged", zap.String("email", email))
			return nil
		}
	}
	if err != nil {
		return err
	}

	provisioned, err := s.provisioner.ProvisionNewUser(ctx, signupdomain.ProvisionRequest{
		Identity: signupdomain.Identity{
			ID:       account.ID,
			Email:    account.Email,
			FullName: account.DisplayName,
		},
		OrganizationSlug: orgSlug,
	})
	if err != nil {
		return err
	}
	if provisioned.User.IsAdmin {
		return nil
	}

	if err := s.users.UpdateFields(ctx, account.ID, map[string]any{
		"is_admin":   true,
		"updated_at": s.clock.Now(),
	}); err != nil {
		return err
	}
	s.log.Info("admin account ready", zap.String("email", account.Email))
	return nil
}
