package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// PlanTier is one purchasable subscription tier.
type PlanTier struct {
	Key               string `mapstructure:"key"`
	Name              string `mapstructure:"name"`
	Credits           int64  `mapstructure:"credits"`
	PriceMonthlyCents int64  `mapstructure:"price_monthly_cents"`
}

type PlanCatalog struct {
	DefaultTier string     `mapstructure:"default_tier"`
	Tiers       []PlanTier `mapstructure:"tiers"`
}

// Lookup resolves a plan choice. An empty choice resolves to the default tier.
func (c PlanCatalog) Lookup(choice string) (PlanTier, bool) {
	key := strings.ToLower(strings.TrimSpace(choice))
	if key == "" {
		key = c.DefaultTier
	}
	for _, tier := range c.Tiers {
		if tier.Key == key {
			return tier, true
		}
	}
	return PlanTier{}, false
}

func DefaultPlanCatalog() PlanCatalog {
	return PlanCatalog{
		DefaultTier: "free",
		Tiers: []PlanTier{
			{Key: "free", Name: "Free", Credits: 10, PriceMonthlyCents: 0},
			{Key: "basic", Name: "Basic", Credits: 50, PriceMonthlyCents: 990},
			{Key: "premium", Name: "Premium", Credits: 200, PriceMonthlyCents: 2990},
		},
	}
}

type PlanCatalogHolder struct {
	current atomic.Value // holds PlanCatalog
}

// NewStaticPlanCatalogHolder returns a holder that never reloads.
func NewStaticPlanCatalogHolder(catalog PlanCatalog) *PlanCatalogHolder {
	holder := &PlanCatalogHolder{}
	holder.current.Store(normalizePlanCatalog(catalog))
	return holder
}

func NewPlanCatalogHolder() (*PlanCatalogHolder, error) {
	v := viper.New()

	v.SetConfigName("plans")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/streamhub")
	v.AddConfigPath(".")

	v.SetEnvPrefix("STREAMHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	fromFile := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		fromFile = false
	}

	cfg := DefaultPlanCatalog()
	if fromFile {
		if err := v.UnmarshalKey("plans", &cfg); err != nil {
			return nil, err
		}
	}
	cfg = normalizePlanCatalog(cfg)
	if err := validatePlanCatalog(cfg); err != nil {
		return nil, err
	}

	holder := &PlanCatalogHolder{}
	holder.current.Store(cfg)

	if fromFile {
		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			var updated PlanCatalog
			if err := v.UnmarshalKey("plans", &updated); err != nil {
				zap.L().Warn("plan catalog reload failed", zap.Error(err))
				return
			}
			updated = normalizePlanCatalog(updated)
			if err := validatePlanCatalog(updated); err != nil {
				zap.L().Warn("invalid plan catalog ignored", zap.Error(err))
				return
			}
			holder.current.Store(updated)
			zap.L().Info("plan catalog reloaded", zap.String("file", e.Name))
		})
	}

	return holder, nil
}

func (h *PlanCatalogHolder) Get() PlanCatalog {
	return h.current.Load().(PlanCatalog)
}

func normalizePlanCatalog(cfg PlanCatalog) PlanCatalog {
	out := PlanCatalog{
		DefaultTier: strings.ToLower(strings.TrimSpace(cfg.DefaultTier)),
		Tiers:       make([]PlanTier, 0, len(cfg.Tiers)),
	}
	for _, tier := range cfg.Tiers {
		tier.Key = strings.ToLower(strings.TrimSpace(tier.Key))
		tier.Name = strings.TrimSpace(tier.Name)
		if tier.Name == "" && tier.Key != "" {
			tier.Name = strings.ToUpper(tier.Key[:1]) + tier.Key[1:]
		}
		out.Tiers = append(out.Tiers, tier)
	}
	if out.DefaultTier == "" && len(out.Tiers) > 0 {
		out.DefaultTier = out.Tiers[0].Key
	}
	return out
}

func validatePlanCatalog(cfg PlanCatalog) error {
	if len(cfg.Tiers) == 0 {
		return errors.New("plans.tiers cannot be empty")
	}
	seen := make(map[string]struct{}, len(cfg.Tiers))
	for _, tier := range cfg.Tiers {
		if tier.Key == "" {
			return errors.New("plans.tiers key cannot be empty")
		}
		if _, ok := seen[tier.Key]; ok {
			return fmt.Errorf("plans.tiers duplicate key %q", tier.Key)
		}
		seen[tier.Key] = struct{}{}
		if tier.Credits < 0 {
			return fmt.Errorf("plans.tiers %q credits cannot be negative", tier.Key)
		}
		if tier.PriceMonthlyCents < 0 {
			return fmt.Errorf("plans.tiers %q price cannot be negative", tier.Key)
		}
	}
	if _, ok := seen[cfg.DefaultTier]; !ok {
		return fmt.Errorf("plans.default_tier %q is not a configured tier", cfg.DefaultTier)
	}
	return nil
}
