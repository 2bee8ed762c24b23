package authorization_test

import (
	"context"
	"testing"

	"github.com/smallbiznis/menuya/internal/authorization"
	"github.com/smallbiznis/menuya/internal/testsupport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newService(t *testing.T) authorization.Service {
	t.Helper()
	enforcer, err := authorization.NewEnforcer(testsupport.OpenDB(t))
	require.NoError(t, err)
	return authorization.NewService(authorization.Params{Log: zaptest.NewLogger(t), Enforcer: enforcer})
}

func TestAuthorizeStationMarks(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	assert.NoError(t, svc.Authorize(ctx, authorization.RoleCocinero, authorization.ObjectOrder, authorization.ActionOrderMarkKitchenReady))
	assert.ErrorIs(t, svc.Authorize(ctx, authorization.RoleCocinero, authorization.ObjectOrder, authorization.ActionOrderMarkBarReady), authorization.ErrForbidden)
	assert.NoError(t, svc.Authorize(ctx, authorization.RoleBartender, authorization.ObjectOrder, authorization.ActionOrderMarkBarReady))
	assert.ErrorIs(t, svc.Authorize(ctx, authorization.RoleMozo, authorization.ObjectOrder, authorization.ActionOrderMarkKitchenReady), authorization.ErrForbidden)
}

func TestAuthorizePaymentConfirmation(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	assert.NoError(t, svc.Authorize(ctx, authorization.RoleMozo, authorization.ObjectAccount, authorization.ActionAccountConfirmPayment))
	assert.ErrorIs(t, svc.Authorize(ctx, authorization.RoleCliente, authorization.ObjectAccount, authorization.ActionAccountConfirmPayment), authorization.ErrForbidden)
	assert.NoError(t, svc.Authorize(ctx, authorization.RoleCliente, authorization.ObjectAccount, authorization.ActionAccountPay))
}

func TestSupervisorInheritsOwner(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	assert.NoError(t, svc.Authorize(ctx, authorization.RoleSupervisor, authorization.ObjectTable, authorization.ActionTableManage))
	assert.NoError(t, svc.Authorize(ctx, authorization.RoleSupervisor, authorization.ObjectStream, authorization.ActionStreamPending))
	assert.ErrorIs(t, svc.Authorize(ctx, authorization.RoleSupervisor, authorization.ObjectDiscount, authorization.ActionDiscountPlay), authorization.ErrForbidden)
}

func TestAuthorizeRejectsMalformedInput(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Authorize(ctx, "chef", authorization.ObjectOrder, authorization.ActionOrderView), authorization.ErrInvalidActor)
	assert.ErrorIs(t, svc.Authorize(ctx, authorization.RoleMozo, " ", authorization.ActionOrderView), authorization.ErrInvalidObject)
	assert.ErrorIs(t, svc.Authorize(ctx, authorization.RoleMozo, authorization.ObjectOrder, ""), authorization.ErrInvalidAction)
}

func TestSeedingIsIdempotent(t *testing.T) {
	db := testsupport.OpenDB(t)
	_, err := authorization.NewEnforcer(db)
	require.NoError(t, err)
	enforcer, err := authorization.NewEnforcer(db)
	require.NoError(t, err)

	svc := authorization.NewService(authorization.Params{Log: zaptest.NewLogger(t), Enforcer: enforcer})
	assert.NoError(t, svc.Authorize(context.Background(), authorization.RoleDelivery, authorization.ObjectStream, authorization.ActionStreamDelivery))
}

func TestParseRole(t *testing.T) {
	cases := map[string]authorization.Role{
		"dueño":     authorization.RoleDueno,
		" Mozo ":    authorization.RoleMozo,
		"BARTENDER": authorization.RoleBartender,
	}
	for raw, want := range cases {
		got, ok := authorization.ParseRole(raw)
		assert.True(t, ok, raw)
		assert.Equal(t, want, got)
	}

	_, ok := authorization.ParseRole("chef")
	assert.False(t, ok)
}
