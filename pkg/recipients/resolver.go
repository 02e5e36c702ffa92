// Package recipients decides which staff members hear about an alert.
package recipients

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/samber/lo"

	"github.com/ogulcanaydogan/campus-guardian/pkg/model"
)

const activeUsersKey = "active_users"

// UserSource lists users eligible for notifications.
type UserSource interface {
	ListActiveUsers(ctx context.Context) ([]model.User, error)
}

// AlertContext is what a rule sees about the alert being routed.
type AlertContext struct {
	Kind     model.AlertKind
	Category string // item category or budget department
	Severity model.Severity
}

// Rule selects users for an alert. When may be nil, meaning the rule always applies.
type Rule struct {
	Name  string
	When  func(AlertContext) bool
	Match func(model.User, AlertContext) bool
}

func (r Rule) applies(ac AlertContext) bool {
	return r.When == nil || r.When(ac)
}

// Policy maps each alert kind to its ordered rule list.
type Policy map[model.AlertKind][]Rule

func hasRoles(roles ...model.Role) func(model.User, AlertContext) bool {
	return func(u model.User, _ AlertContext) bool { return u.HasRole(roles...) }
}

func departmentHead(u model.User, ac AlertContext) bool {
	return u.Role == model.RoleDepartmentHead && u.InDepartment(ac.Category)
}

func severityIn(levels ...model.Severity) func(AlertContext) bool {
	return func(ac AlertContext) bool { return lo.Contains(levels, ac.Severity) }
}

// DefaultPolicy returns the stock and budget routing rules.
func DefaultPolicy() Policy {
	return Policy{
		model.KindLowStock: {
			{Name: "stock managers", Match: hasRoles(model.RoleAdmin, model.RoleInventoryManager)},
			{Name: "category head", Match: departmentHead},
			{
				Name:  "principal escalation",
				When:  severityIn(model.SeverityCritical, model.SeverityExhausted),
				Match: hasRoles(model.RolePrincipal),
			},
		},
		model.KindBudgetVariance: {
			{Name: "finance", Match: hasRoles(model.RoleAdmin, model.RoleFinanceManager)},
			{Name: "department head", Match: departmentHead},
			{
				Name:  "principal escalation",
				When:  severityIn(model.SeverityExceeded),
				Match: hasRoles(model.RolePrincipal),
			},
		},
	}
}

// AmountTier is one rung of the monetary escalation ladder.
type AmountTier struct {
	Min       float64      `mapstructure:"min" json:"min"`
	Inclusive bool         `mapstructure:"inclusive" json:"inclusive"`
	Roles     []model.Role `mapstructure:"roles" json:"roles"`
}

func (t AmountTier) matches(amount float64) bool {
	if t.Inclusive {
		return amount >= t.Min
	}
	return amount > t.Min
}

// DefaultAmountTiers narrows the approver set as the amount grows.
func DefaultAmountTiers() []AmountTier {
	return []AmountTier{
		{Min: 100000, Roles: []model.Role{model.RoleAdmin, model.RolePrincipal}},
		{Min: 50000, Roles: []model.Role{model.RoleAdmin, model.RolePrincipal, model.RoleFinanceManager}},
		{Min: 0, Inclusive: true, Roles: []model.Role{model.RoleAdmin, model.RolePrincipal, model.RoleFinanceManager, model.RoleInventoryManager}},
	}
}

// Resolver maps alert contexts and amounts to active users.
type Resolver struct {
	users  UserSource
	policy Policy
	tiers  []AmountTier
	memo   *gocache.Cache
	ttl    time.Duration
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithPolicy replaces the alert routing rules.
func WithPolicy(p Policy) Option {
	return func(r *Resolver) { r.policy = p }
}

// WithAmountTiers replaces the monetary escalation ladder.
func WithAmountTiers(tiers []AmountTier) Option {
	return func(r *Resolver) {
		if len(tiers) > 0 {
			r.tiers = tiers
		}
	}
}

// WithUserCacheTTL sets how long the active user list is memoised. Zero disables memoisation.
func WithUserCacheTTL(ttl time.Duration) Option {
	return func(r *Resolver) { r.ttl = ttl }
}

// NewResolver creates a resolver with the default policy and a one minute user memo.
func NewResolver(users UserSource, opts ...Option) *Resolver {
	r := &Resolver{
		users:  users,
		policy: DefaultPolicy(),
		tiers:  DefaultAmountTiers(),
		ttl:    time.Minute,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.ttl > 0 {
		r.memo = gocache.New(r.ttl, 2*r.ttl)
	}
	return r
}

// Invalidate drops the memoised user list.
func (r *Resolver) Invalidate() {
	if r.memo != nil {
		r.memo.Delete(activeUsersKey)
	}
}

func (r *Resolver) activeUsers(ctx context.Context) ([]model.User, error) {
	if r.memo != nil {
		if v, ok := r.memo.Get(activeUsersKey); ok {
			return v.([]model.User), nil
		}
	}
	users, err := r.users.ListActiveUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active users: %w", err)
	}
	users = lo.Filter(users, func(u model.User, _ int) bool { return u.Active })
	if r.memo != nil {
		r.memo.SetDefault(activeUsersKey, users)
	}
	return users, nil
}

// ResolveForAlert returns every active user matched by an applicable rule for
// the alert's kind, in stable order and without duplicates.
func (r *Resolver) ResolveForAlert(ctx context.Context, ac AlertContext) ([]model.User, error) {
	rules := lo.Filter(r.policy[ac.Kind], func(rule Rule, _ int) bool { return rule.applies(ac) })
	if len(rules) == 0 {
		return []model.User{}, nil
	}
	users, err := r.activeUsers(ctx)
	if err != nil {
		return nil, err
	}
	return lo.Filter(users, func(u model.User, _ int) bool {
		return lo.SomeBy(rules, func(rule Rule) bool { return rule.Match(u, ac) })
	}), nil
}

// RolesForAmount returns the roles of the first tier matching amount.
func (r *Resolver) RolesForAmount(amount float64) []model.Role {
	for _, t := range r.tiers {
		if t.matches(amount) {
			return t.Roles
		}
	}
	return nil
}

// ResolveForAmount returns active users holding a role of the amount's tier.
func (r *Resolver) ResolveForAmount(ctx context.Context, amount float64) ([]model.User, error) {
	return r.ResolveRoles(ctx, r.RolesForAmount(amount)...)
}

// ResolveRoles returns active users holding any of the roles.
func (r *Resolver) ResolveRoles(ctx context.Context, roles ...model.Role) ([]model.User, error) {
	if len(roles) == 0 {
		return []model.User{}, nil
	}
	users, err := r.activeUsers(ctx)
	if err != nil {
		return nil, err
	}
	return lo.Filter(users, func(u model.User, _ int) bool { return u.HasRole(roles...) }), nil
}
