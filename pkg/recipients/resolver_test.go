package recipients_test

import (
	"context"
	"errors"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ogulcanaydogan/campus-guardian/pkg/model"
	"github.com/ogulcanaydogan/campus-guardian/pkg/recipients"
)

type fakeUsers struct {
	users []model.User
	calls int
	err   error
}

func (f *fakeUsers) ListActiveUsers(context.Context) ([]model.User, error) {
	f.calls++
	return f.users, f.err
}

func staff() []model.User {
	return []model.User{
		{ID: "admin", Role: model.RoleAdmin, Active: true},
		{ID: "fin", Role: model.RoleFinanceManager, Active: true},
		{ID: "inv", Role: model.RoleInventoryManager, Active: true},
		{ID: "head-sci", Role: model.RoleDepartmentHead, Department: "Science", Active: true},
		{ID: "head-art", Role: model.RoleDepartmentHead, Department: "Art", Active: true},
		{ID: "prin", Role: model.RolePrincipal, Active: true},
		{ID: "teach", Role: model.RoleTeacher, Department: "Science", Active: true},
		{ID: "gone", Role: model.RoleAdmin, Active: false},
	}
}

func ids(users []model.User) []string {
	return lo.Map(users, func(u model.User, _ int) string { return u.ID })
}

func TestResolveForAlert_Stock(t *testing.T) {
	r := recipients.NewResolver(&fakeUsers{users: staff()})
	ctx := context.Background()

	low, err := r.ResolveForAlert(ctx, recipients.AlertContext{Kind: model.KindLowStock, Category: "science", Severity: model.SeverityLow})
	require.NoError(t, err)
	assert.Equal(t, []string{"admin", "inv", "head-sci"}, ids(low))

	exhausted, err := r.ResolveForAlert(ctx, recipients.AlertContext{Kind: model.KindLowStock, Category: "Science", Severity: model.SeverityExhausted})
	require.NoError(t, err)
	assert.Equal(t, []string{"admin", "inv", "head-sci", "prin"}, ids(exhausted))
}

func TestResolveForAlert_Budget(t *testing.T) {
	r := recipients.NewResolver(&fakeUsers{users: staff()})
	ctx := context.Background()

	warn, err := r.ResolveForAlert(ctx, recipients.AlertContext{Kind: model.KindBudgetVariance, Category: "Art", Severity: model.SeverityWarning})
	require.NoError(t, err)
	assert.Equal(t, []string{"admin", "fin", "head-art"}, ids(warn))

	over, err := r.ResolveForAlert(ctx, recipients.AlertContext{Kind: model.KindBudgetVariance, Category: "Art", Severity: model.SeverityExceeded})
	require.NoError(t, err)
	assert.Contains(t, ids(over), "prin")
}

func TestResolveForAlert_EmptyIsNotAnError(t *testing.T) {
	r := recipients.NewResolver(&fakeUsers{})
	got, err := r.ResolveForAlert(context.Background(), recipients.AlertContext{Kind: model.KindLowStock, Severity: model.SeverityLow})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)

	unknown, err := r.ResolveForAlert(context.Background(), recipients.AlertContext{Kind: "attendance"})
	require.NoError(t, err)
	assert.Empty(t, unknown)
}

func TestResolveForAmount_HighAmountIsStrictSubset(t *testing.T) {
	r := recipients.NewResolver(&fakeUsers{users: staff()})

	high := r.RolesForAmount(150000)
	mid := r.RolesForAmount(60000)
	low := r.RolesForAmount(500)

	assert.Subset(t, low, high)
	assert.Subset(t, mid, high)
	assert.Subset(t, low, mid)
	assert.Less(t, len(high), len(mid))
	assert.Less(t, len(mid), len(low))

	// Tier edges: exactly 100000 falls into the middle tier, exactly 0 into the widest
	assert.ElementsMatch(t, mid, r.RolesForAmount(100000))
	assert.ElementsMatch(t, low, r.RolesForAmount(0))
	assert.Empty(t, r.RolesForAmount(-1))

	users, err := r.ResolveForAmount(context.Background(), 150000)
	require.NoError(t, err)
	assert.Equal(t, []string{"admin", "prin"}, ids(users))
}

func TestResolver_MemoisesUsers(t *testing.T) {
	src := &fakeUsers{users: staff()}
	r := recipients.NewResolver(src)
	ctx := context.Background()

	_, err := r.ResolveRoles(ctx, model.RoleAdmin)
	require.NoError(t, err)
	_, err = r.ResolveRoles(ctx, model.RolePrincipal)
	require.NoError(t, err)
	assert.Equal(t, 1, src.calls)

	r.Invalidate()
	_, err = r.ResolveRoles(ctx, model.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls)
}

func TestResolver_NoMemo(t *testing.T) {
	src := &fakeUsers{users: staff()}
	r := recipients.NewResolver(src, recipients.WithUserCacheTTL(0))

	for i := 0; i < 3; i++ {
		admins, err := r.ResolveRoles(context.Background(), model.RoleAdmin)
		require.NoError(t, err)
		assert.Equal(t, []string{"admin"}, ids(admins), "inactive admins are excluded")
	}
	assert.Equal(t, 3, src.calls)
}

func TestResolver_SourceError(t *testing.T) {
	r := recipients.NewResolver(&fakeUsers{err: errors.New("db down")})
	_, err := r.ResolveRoles(context.Background(), model.RoleAdmin)
	assert.Error(t, err)
}

func TestResolver_CustomPolicy(t *testing.T) {
	policy := recipients.Policy{
		model.KindLowStock: {{
			Name:  "teachers",
			Match: func(u model.User, _ recipients.AlertContext) bool { return u.Role == model.RoleTeacher },
		}},
	}
	r := recipients.NewResolver(&fakeUsers{users: staff()}, recipients.WithPolicy(policy))
	got, err := r.ResolveForAlert(context.Background(), recipients.AlertContext{Kind: model.KindLowStock})
	require.NoError(t, err)
	assert.Equal(t, []string{"teach"}, ids(got))
}
