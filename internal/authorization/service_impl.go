package authorization

import (
	"context"
	_ "embed"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	if err := enforcer.BuildRoleLinks(); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, role Role, object string, action string) error {
	parsed, ok := ParseRole(string(role))
	if !ok {
		return ErrInvalidActor
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	allowed, err := s.enforcer.Enforce(parsed.subject(), object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Debug("authorization denied",
			zap.String("role", string(parsed)),
			zap.String("object", object),
			zap.String("action", action),
		)
		return ErrForbidden
	}
	return nil
}

type grant struct {
	object  string
	action  string
	holders []Role
}

var staff = []Role{RoleMozo, RoleCocinero, RoleBartender, RoleDueno}

var grants = []grant{
	{ObjectOrder, ActionOrderCreate, []Role{RoleCliente, RoleMozo, RoleDueno}},
	{ObjectOrder, ActionOrderView, []Role{RoleCliente, RoleMozo, RoleCocinero, RoleBartender, RoleDelivery, RoleDueno}},
	{ObjectOrder, ActionOrderUpdate, []Role{RoleMozo, RoleDueno}},
	{ObjectOrder, ActionOrderConfirm, staff},
	{ObjectOrder, ActionOrderCancel, staff},
	{ObjectOrder, ActionOrderMarkKitchenReady, []Role{RoleCocinero}},
	{ObjectOrder, ActionOrderMarkBarReady, []Role{RoleBartender}},
	{ObjectOrder, ActionOrderDeliver, []Role{RoleMozo, RoleDelivery}},
	{ObjectOrder, ActionOrderReceive, []Role{RoleCliente}},

	{ObjectAccount, ActionAccountRequest, []Role{RoleCliente, RoleMozo, RoleDelivery, RoleDueno}},
	{ObjectAccount, ActionAccountView, []Role{RoleCliente, RoleMozo, RoleDelivery, RoleDueno}},
	{ObjectAccount, ActionAccountTip, []Role{RoleCliente, RoleMozo}},
	{ObjectAccount, ActionAccountPay, []Role{RoleCliente, RoleMozo}},
	{ObjectAccount, ActionAccountConfirmPayment, []Role{RoleMozo, RoleDueno}},

	{ObjectDiscount, ActionDiscountPlay, []Role{RoleCliente}},
	{ObjectDiscount, ActionDiscountView, []Role{RoleCliente, RoleDueno}},

	{ObjectTable, ActionTableView, []Role{RoleMozo, RoleDueno}},
	{ObjectTable, ActionTableManage, []Role{RoleMozo, RoleDueno}},

	{ObjectStream, ActionStreamPending, []Role{RoleCocinero, RoleBartender, RoleDueno}},
	{ObjectStream, ActionStreamTables, []Role{RoleMozo, RoleDueno}},
	{ObjectStream, ActionStreamDelivery, []Role{RoleDelivery, RoleDueno}},
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := make([][]string, 0, 64)
	for _, g := range grants {
		for _, role := range g.holders {
			policies = append(policies, []string{role.subject(), g.object, g.action})
		}
	}

	for _, policy := range policies {
		params := make([]interface{}, 0, len(policy))
		for _, value := range policy {
			params = append(params, value)
		}
		has, err := enforcer.HasPolicy(params...)
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := enforcer.AddPolicy(params...); err != nil {
			return err
		}
	}

	// The supervisor inherits every owner permission.
	groupings := [][]string{{RoleSupervisor.subject(), RoleDueno.subject()}}
	for _, grouping := range groupings {
		has, err := enforcer.HasGroupingPolicy(grouping[0], grouping[1])
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := enforcer.AddGroupingPolicy(grouping[0], grouping[1]); err != nil {
			return err
		}
	}
	return nil
}
