package domain

import (
	"context"
	"errors"

	discountdomain "github.com/smallbiznis/menuya/internal/discount/domain"
)

type GetOrCreateRequest struct {
	TableNumber int
	Customer    discountdomain.CustomerIdentity
}

type DeliveryAccountRequest struct {
	OrderID  string
	Customer discountdomain.CustomerIdentity
}

type ListAccountRequest struct {
	TableNumber *int
	States      []string
	Limit       int
}

type EnableTipRequest struct {
	ID    string
	Token string
}

type SetTipRequest struct {
	ID      string
	Percent int
}

type SetTipByTokenRequest struct {
	Token   string
	Percent int
}

// ConfirmResult carries the confirmed bill plus non-fatal side effect failures.
type ConfirmResult struct {
	Account     Account  `json:"account"`
	ReceiptPath string   `json:"receipt_path,omitempty"`
	Warnings    []string `json:"warnings,omitempty"`
}

type Service interface {
	GetOrCreateActive(context.Context, GetOrCreateRequest) (Account, error)
	GetOrCreateForDeliveryOrder(context.Context, DeliveryAccountRequest) (Account, error)
	Get(context.Context, string) (Account, error)
	List(context.Context, ListAccountRequest) ([]Account, error)
	EnableTip(context.Context, EnableTipRequest) (Account, error)
	SetTipPercent(context.Context, SetTipRequest) (Account, error)
	SetTipPercentByToken(context.Context, SetTipByTokenRequest) (Account, error)
	Pay(context.Context, string) (Account, error)
	ConfirmPayment(context.Context, string) (ConfirmResult, error)
}

var (
	ErrInvalidID         = errors.New("invalid_id")
	ErrNotFound          = errors.New("not_found")
	ErrInvalidTransition = errors.New("invalid_transition")
	ErrInvalidTip        = errors.New("invalid_tip")
	ErrNothingToBill     = errors.New("nothing_to_bill")
	ErrAlreadyBilled     = errors.New("already_billed")
)
