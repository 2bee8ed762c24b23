package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type CreateOrderRequest struct {
	TableNumber     int
	Kind            Kind
	Items           []Item
	TotalAmount     *float64
	PrepMinutes     *int
	State           State
	CustomerKey     string
	DeliveryAddress string
	DeliveryLat     *float64
	DeliveryLng     *float64
}

// OrderPatch carries the fields present in an update; nil means absent.
type OrderPatch struct {
	TableNumber     *int     `json:"table_number,omitempty"`
	Items           *[]Item  `json:"items,omitempty"`
	TotalAmount     *float64 `json:"total_amount,omitempty"`
	PrepMinutes     *int     `json:"prep_minutes,omitempty"`
	State           *State   `json:"state,omitempty"`
	DeliveryAddress *string  `json:"delivery_address,omitempty"`
	CancelReason    *string  `json:"cancel_reason,omitempty"`
}

func (p OrderPatch) Empty() bool {
	return p.TableNumber == nil && p.Items == nil && p.TotalAmount == nil &&
		p.PrepMinutes == nil && p.State == nil && p.DeliveryAddress == nil
}

type UpdateOrderRequest struct {
	ID    string
	Patch OrderPatch
}

type ListOrderRequest struct {
	TableNumber *int
	Kind        string
	States      []string
	CustomerKey string
	Limit       int
}

type ConfirmOrderRequest struct {
	ID          string
	PrepMinutes *int
}

type MarkReadyRequest struct {
	ID      string
	Station Station
}

type CancelOrderRequest struct {
	ID     string
	Reason string
}

type Service interface {
	Create(context.Context, CreateOrderRequest) (Order, error)
	Update(context.Context, UpdateOrderRequest) (Order, error)
	Get(context.Context, string) (Order, error)
	List(context.Context, ListOrderRequest) ([]Order, error)
	Confirm(context.Context, ConfirmOrderRequest) (Order, error)
	MarkReady(context.Context, MarkReadyRequest) (Order, error)
	MarkDelivered(context.Context, string) (Order, error)
	ConfirmReceipt(context.Context, string) (Order, error)
	Cancel(context.Context, CancelOrderRequest) (Order, error)
	ListBillable(context.Context, int) ([]Order, error)
	// FinalizeSettled moves the recibido orders among ids to finalizado.
	FinalizeSettled(context.Context, []snowflake.ID) (int, error)
}

var (
	ErrInvalidID         = errors.New("invalid_id")
	ErrNotFound          = errors.New("not_found")
	ErrInvalidTransition = errors.New("invalid_transition")
	ErrInvalidStation    = errors.New("invalid_station")
	ErrImmutableTotal    = errors.New("immutable_total")
	ErrItemsLocked       = errors.New("items_locked")
)
