package signup

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/streamhub/internal/clock"
	"github.com/smallbiznis/streamhub/internal/config"
	obsmetrics "github.com/smallbiznis/streamhub/internal/observability/metrics"
	organizationdomain "github.com/smallbiznis/streamhub/internal/organization/domain"
	organizationservice "github.com/smallbiznis/streamhub/internal/organization/service"
	plandomain "github.com/smallbiznis/streamhub/internal/plan/domain"
	"github.com/smallbiznis/streamhub/internal/signup/domain"
	subscriptiondomain "github.com/smallbiznis/streamhub/internal/subscription/domain"
	userdomain "github.com/smallbiznis/streamhub/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ProvisionerParam struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Config   config.Config
	Plans    *config.PlanCatalogHolder
	GenID    *snowflake.Node
	Clock    clock.Clock
	OrgRepo  organizationdomain.Repository
	PlanRepo plandomain.Repository
	UserRepo userdomain.Repository
	SubRepo  subscriptiondomain.Repository
	Metrics  *obsmetrics.Metrics `optional:"true"`
}

type Provisioner struct {
	db       *gorm.DB
	log      *zap.Logger
	cfg      config.Config
	plans    *config.PlanCatalogHolder
	genID    *snowflake.Node
	clock    clock.Clock
	orgRepo  organizationdomain.Repository
	planRepo plandomain.Repository
	userRepo userdomain.Repository
	subRepo  subscriptiondomain.Repository
	metrics  *obsmetrics.Metrics
}

func NewProvisioner(p ProvisionerParam) domain.Provisioner {
	return &Provisioner{
		db:       p.DB,
		log:      p.Log.Named("signup.provisioner"),
		cfg:      p.Config,
		plans:    p.Plans,
		genID:    p.GenID,
		clock:    p.Clock,
		orgRepo:  p.OrgRepo,
		planRepo: p.PlanRepo,
		userRepo: p.UserRepo,
		subRepo:  p.SubRepo,
		metrics:  p.Metrics,
	}
}

// ProvisionNewUser ensures the organization, its plan tiers, the user row and
// the user's subscription exist. Every insert is keyed by a natural key, so a
// retry fills in whatever an earlier attempt left missing.
func (p *Provisioner) ProvisionNewUser(ctx context.Context, req domain.ProvisionRequest) (*domain.ProvisionResult, error) {
	if req.Identity.ID == 0 || strings.TrimSpace(req.Identity.Email) == "" {
		return nil, domain.ErrInvalidRequest
	}

	catalog := p.plans.Get()
	tier, ok := catalog.Lookup(req.PlanChoice)
	if !ok {
		p.metrics.RecordProvisioning(ctx, strings.ToLower(strings.TrimSpace(req.PlanChoice)), "invalid_plan")
		return nil, domain.ErrInvalidPlan
	}

	orgSlug := strings.TrimSpace(req.OrganizationSlug)
	orgName := ""
	if orgSlug == "" {
		orgSlug = p.cfg.Bootstrap.OrgSlug
		orgName = p.cfg.Bootstrap.OrgName
	}
	org, err := organizationservice.BuildOrganization(p.genID, p.clock, orgSlug, orgName)
	if err != nil {
		return nil, err
	}

	result := &domain.ProvisionResult{}
	err = p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		storedOrg, plans, err := p.ensureCatalogTx(ctx, tx, org, catalog)
		if err != nil {
			return err
		}
		result.Organization = storedOrg
		result.Plan = plans[tier.Key]

		now := p.clock.Now()
		user, err := p.userRepo.WithTx(tx).InsertIfAbsent(ctx, &userdomain.User{
			ID:             req.Identity.ID,
			Email:          strings.ToLower(strings.TrimSpace(req.Identity.Email)),
			FullName:       strings.TrimSpace(req.Identity.FullName),
			OrganizationID: storedOrg.ID,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
		if err != nil {
			return fmt.Errorf("ensure user: %w", err)
		}
		result.User = user

		// A stored plan may carry a different allotment than the current
		// catalog; the stored row is what the subscription is priced from.
		sub, err := p.subRepo.InsertIfAbsent(ctx, tx, &subscriptiondomain.UserSubscription{
			ID:                  p.genID.Generate(),
			UserID:              user.ID,
			PlanID:              result.Plan.ID,
			OrganizationID:      storedOrg.ID,
			Status:              subscriptiondomain.SubscriptionStatusActive,
			CurrentCredits:      result.Plan.MaxCredits,
			MonthlyCreditsLimit: result.Plan.MaxCredits,
			CreatedAt:           now,
			UpdatedAt:           now,
		})
		if err != nil {
			return fmt.Errorf("ensure subscription: %w", err)
		}
		result.Subscription = sub
		return nil
	})
	if err != nil {
		p.metrics.RecordProvisioning(ctx, tier.Key, "failed")
		p.log.Error("provisioning failed",
			zap.String("identity_id", req.Identity.ID.String()),
			zap.String("plan", tier.Key),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %w", domain.ErrProvisioningFailed, err)
	}

	p.metrics.RecordProvisioning(ctx, tier.Key, "succeeded")
	p.log.Info("user provisioned",
		zap.String("user_id", result.User.ID.String()),
		zap.String("organization", result.Organization.Slug),
		zap.String("plan", result.Plan.Name),
	)
	return result, nil
}

// EnsureCatalog creates the organization for slug and its configured plan
// tiers when they do not exist yet.
func (p *Provisioner) EnsureCatalog(ctx context.Context, slug, name string) (*organizationdomain.Organization, error) {
	org, err := organizationservice.BuildOrganization(p.genID, p.clock, slug, name)
	if err != nil {
		return nil, err
	}
	var stored *organizationdomain.Organization
	err = p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stored, _, err = p.ensureCatalogTx(ctx, tx, org, p.plans.Get())
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrProvisioningFailed, err)
	}
	return stored, nil
}

// ensureCatalogTx upserts org and every tier of catalog, returning the stored
// plans keyed by tier key.
func (p *Provisioner) ensureCatalogTx(ctx context.Context, tx *gorm.DB, org organizationdomain.Organization, catalog config.PlanCatalog) (*organizationdomain.Organization, map[string]*plandomain.SubscriptionPlan, error) {
	storedOrg, err := p.orgRepo.WithTx(tx).InsertIfAbsent(ctx, org)
	if err != nil {
		return nil, nil, fmt.Errorf("ensure organization: %w", err)
	}

	now := p.clock.Now()
	plans := make(map[string]*plandomain.SubscriptionPlan, len(catalog.Tiers))
	for _, t := range catalog.Tiers {
		plan, err := p.planRepo.InsertIfAbsent(ctx, tx, &plandomain.SubscriptionPlan{
			ID:                p.genID.Generate(),
			OrganizationID:    storedOrg.ID,
			Name:              t.Name,
			MaxCredits:        t.Credits,
			PriceMonthlyCents: t.PriceMonthlyCents,
			CreatedAt:         now,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("ensure plan %s: %w", t.Key, err)
		}
		plans[t.Key] = plan
	}
	return storedOrg, plans, nil
}
