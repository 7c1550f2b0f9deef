package period

import (
	"context"
	"errors"
	"fmt"

	"github.com/batasku/periodgate/internal/audit"
	"github.com/batasku/periodgate/internal/authz"
	"github.com/batasku/periodgate/internal/balance"
	"github.com/batasku/periodgate/internal/erpnext"
	"github.com/batasku/periodgate/internal/platform/cache"
	"github.com/batasku/periodgate/internal/platform/httpx"
)

// configCacheKey holds the cached config singleton.
const configCacheKey = "period:config"

type configClient interface {
	Get(ctx context.Context, doctype, name string, out any) error
	GetList(ctx context.Context, doctype string, q erpnext.Query, out any) error
	Update(ctx context.Context, doctype, name string, doc any, out any) error
}

// ConfigStore reads and writes the Period Closing Config singleton, with a
// short-TTL cache in front of the upstream read.
type ConfigStore struct {
	client configClient
	cache  *cache.Store
	audit  *audit.Writer
}

// NewConfigStore constructs a ConfigStore. The cache may be nil.
func NewConfigStore(client configClient, store *cache.Store, auditor *audit.Writer) *ConfigStore {
	return &ConfigStore{client: client, cache: store, audit: auditor}
}

// Load returns the current configuration. A singleton that has never been
// saved upstream yields defaults rather than an error.
func (s *ConfigStore) Load(ctx context.Context) (Config, error) {
	var cfg Config
	if err := s.cache.Get(ctx, configCacheKey, &cfg); err == nil {
		return cfg, nil
	}
	err := s.client.Get(ctx, erpnext.DoctypePeriodClosingConfig, erpnext.DoctypePeriodClosingConfig, &cfg)
	if err != nil {
		var appErr *httpx.Error
		if errors.As(err, &appErr) && appErr.Code == httpx.CodeNotFound {
			return DefaultConfig(), nil
		}
		return Config{}, err
	}
	if cfg.ClosingRole == "" {
		cfg.ClosingRole = authz.RoleAccountsManager
	}
	if cfg.ReopenRole == "" {
		cfg.ReopenRole = authz.RoleAccountsManager
	}
	_ = s.cache.Set(ctx, configCacheKey, cfg)
	return cfg, nil
}

// Update validates and saves the configuration, invalidates the cache, and
// records the change in the audit trail.
func (s *ConfigStore) Update(ctx context.Context, actor authz.Actor, cfg Config) (Config, error) {
	before, err := s.Load(ctx)
	if err != nil {
		return Config{}, err
	}
	if err := s.validate(ctx, cfg); err != nil {
		return Config{}, err
	}
	var saved Config
	err = s.client.Update(ctx, erpnext.DoctypePeriodClosingConfig, erpnext.DoctypePeriodClosingConfig, cfg, &saved)
	if err != nil {
		return Config{}, err
	}
	_ = s.cache.Delete(ctx, configCacheKey)
	s.audit.Write(ctx, audit.Record{
		Action:   audit.ActionConfigChanged,
		ActionBy: actor.Email,
		Before:   before,
		After:    saved,
	})
	return saved, nil
}

// validate enforces the referential rules: the retained earnings account
// must be an Equity leaf that is not stock-typed, and both roles must exist
// upstream.
func (s *ConfigStore) validate(ctx context.Context, cfg Config) error {
	if cfg.RetainedEarningsAccount != "" {
		var acc balance.Account
		err := s.client.Get(ctx, erpnext.DoctypeAccount, cfg.RetainedEarningsAccount, &acc)
		if err != nil {
			var appErr *httpx.Error
			if errors.As(err, &appErr) && appErr.Code == httpx.CodeNotFound {
				return httpx.Misconfigured(fmt.Sprintf("retained earnings account %q does not exist", cfg.RetainedEarningsAccount))
			}
			return err
		}
		if acc.RootType != balance.RootTypeEquity {
			return httpx.Misconfigured(fmt.Sprintf("retained earnings account %q must have root type Equity, got %s", cfg.RetainedEarningsAccount, acc.RootType))
		}
		if acc.AccountType == "Stock" {
			return httpx.Misconfigured(fmt.Sprintf("retained earnings account %q cannot be a stock account", cfg.RetainedEarningsAccount))
		}
	}
	for _, role := range []string{cfg.ClosingRole, cfg.ReopenRole} {
		if role == "" {
			continue
		}
		if err := s.roleExists(ctx, role); err != nil {
			return err
		}
	}
	if cfg.ReminderDaysBeforeEnd < 0 || cfg.EscalationDaysAfterEnd < 0 {
		return httpx.Misconfigured("reminder and escalation day offsets cannot be negative")
	}
	return nil
}

func (s *ConfigStore) roleExists(ctx context.Context, role string) error {
	var roles []struct {
		Name string `json:"name"`
	}
	err := s.client.GetList(ctx, erpnext.DoctypeRole, erpnext.Query{
		Filters:         erpnext.Filters{}.Eq("name", role),
		Fields:          []string{"name"},
		LimitPageLength: 1,
	}, &roles)
	if err != nil {
		return err
	}
	if len(roles) == 0 {
		return httpx.Misconfigured(fmt.Sprintf("role %q does not exist", role))
	}
	return nil
}
