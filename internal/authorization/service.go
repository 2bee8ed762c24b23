package authorization

import (
	"context"
	"errors"
)

const (
	ObjectOrder    = "order"
	ObjectAccount  = "account"
	ObjectDiscount = "discount"
	ObjectTable    = "table"
	ObjectStream   = "stream"
)

const (
	ActionOrderCreate           = "order.create"
	ActionOrderView             = "order.view"
	ActionOrderUpdate           = "order.update"
	ActionOrderConfirm          = "order.confirm"
	ActionOrderMarkKitchenReady = "order.mark_kitchen_ready"
	ActionOrderMarkBarReady     = "order.mark_bar_ready"
	ActionOrderDeliver          = "order.deliver"
	ActionOrderReceive          = "order.receive"
	ActionOrderCancel           = "order.cancel"

	ActionAccountRequest        = "account.request"
	ActionAccountView           = "account.view"
	ActionAccountTip            = "account.tip"
	ActionAccountPay            = "account.pay"
	ActionAccountConfirmPayment = "account.confirm_payment"

	ActionDiscountPlay = "discount.play"
	ActionDiscountView = "discount.view"

	ActionTableView   = "table.view"
	ActionTableManage = "table.manage"

	ActionStreamPending  = "stream.pending"
	ActionStreamTables   = "stream.tables"
	ActionStreamDelivery = "stream.delivery"
)

type Service interface {
	Authorize(ctx context.Context, role Role, object string, action string) error
}

var (
	ErrInvalidActor  = errors.New("invalid_actor")
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
	ErrForbidden     = errors.New("forbidden")
)
