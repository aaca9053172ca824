package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/smallbiznis/streamhub/internal/auth/domain"
	organizationdomain "github.com/smallbiznis/streamhub/internal/organization/domain"
	plandomain "github.com/smallbiznis/streamhub/internal/plan/domain"
	subscriptiondomain "github.com/smallbiznis/streamhub/internal/subscription/domain"
	userdomain "github.com/smallbiznis/streamhub/internal/user/domain"
)

var (
	ErrInvalidRequest     = errors.New("invalid_signup_request")
	ErrInvalidPlan        = errors.New("invalid_plan")
	ErrProvisioningFailed = errors.New("provisioning_failed")
)

type Service interface {
	Signup(ctx context.Context, req Request) (*Result, error)
}

type Request struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FullName  string `json:"full_name"`
	Plan      string `json:"plan"`
	UserAgent string `json:"-"`
	IPAddress string `json:"-"`
}

type Result struct {
	Account      *authdomain.Account
	User         *userdomain.User
	Subscription *subscriptiondomain.UserSubscription
	RawToken     string
	ExpiresAt    time.Time
}

// Identity is the authenticated account a profile is provisioned for.
type Identity struct {
	ID       snowflake.ID
	Email    string
	FullName string
}

type ProvisionRequest struct {
	Identity         Identity
	OrganizationSlug string
	PlanChoice       string
}

type ProvisionResult struct {
	Organization *organizationdomain.Organization
	Plan         *plandomain.SubscriptionPlan
	User         *userdomain.User
	Subscription *subscriptiondomain.UserSubscription
}

// Provisioner creates the catalog rows a new identity needs. It is safe to
// call repeatedly for the same identity.
type Provisioner interface {
	ProvisionNewUser(ctx context.Context, req ProvisionRequest) (*ProvisionResult, error)
	EnsureCatalog(ctx context.Context, slug, name string) (*organizationdomain.Organization, error)
}
