package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type State string

const (
	StateSolicitada        State = "solicitada"
	StatePropinaHabilitada State = "propina_habilitada"
	StatePagoPendiente     State = "pago_pendiente"
	StateConfirmado        State = "confirmado"
)

// DeliveryTableNumber mirrors the order sentinel for delivery bills.
const DeliveryTableNumber = 9999

// LineItem is a snapshot of an order item taken when the bill is composed.
type LineItem struct {
	OrderID   snowflake.ID    `json:"order_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Amount    decimal.Decimal `json:"amount"`
}

type Account struct {
	ID              snowflake.ID                  `gorm:"primaryKey" json:"id"`
	TableNumber     int                           `gorm:"not null;index" json:"table_number"`
	CustomerKey     *string                       `gorm:"type:varchar(320);index" json:"customer_key,omitempty"`
	CustomerName    string                        `gorm:"not null;default:''" json:"customer_name,omitempty"`
	CustomerEmail   string                        `gorm:"not null;default:''" json:"customer_email,omitempty"`
	CustomerDNI     string                        `gorm:"column:customer_dni;not null;default:''" json:"customer_dni,omitempty"`
	LineItems       datatypes.JSONSlice[LineItem] `gorm:"not null" json:"line_items"`
	Subtotal        decimal.Decimal               `gorm:"type:numeric(12,2);not null" json:"subtotal"`
	DiscountPercent int                           `gorm:"not null;default:0" json:"discount_percent"`
	DiscountAmount  decimal.Decimal               `gorm:"type:numeric(12,2);not null" json:"discount_amount"`
	TipPercent      int                           `gorm:"not null;default:0" json:"tip_percent"`
	TipAmount       decimal.Decimal               `gorm:"type:numeric(12,2);not null" json:"tip_amount"`
	Total           decimal.Decimal               `gorm:"type:numeric(12,2);not null" json:"total"`
	State           State                         `gorm:"type:varchar(32);not null;index" json:"state"`
	TipToken        *string                       `gorm:"type:varchar(64);uniqueIndex" json:"tip_token,omitempty"`
	OrderRef        *snowflake.ID                 `gorm:"uniqueIndex" json:"order_ref,omitempty"`
	CreatedAt       time.Time                     `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time                     `gorm:"not null" json:"updated_at"`
	PaidAt          *time.Time                    `json:"paid_at,omitempty"`
	ConfirmedAt     *time.Time                    `json:"confirmed_at,omitempty"`
}

func (Account) TableName() string { return "accounts" }

func (a Account) IsDelivery() bool {
	return a.TableNumber == DeliveryTableNumber
}

// AccountOrder links an order to the one bill it was composed into.
type AccountOrder struct {
	OrderID   snowflake.ID `gorm:"primaryKey;autoIncrement:false" json:"order_id"`
	AccountID snowflake.ID `gorm:"not null;index" json:"account_id"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
}

func (AccountOrder) TableName() string { return "account_orders" }

func (s State) Valid() bool {
	switch s {
	case StateSolicitada, StatePropinaHabilitada, StatePagoPendiente, StateConfirmado:
		return true
	default:
		return false
	}
}

func (s State) Terminal() bool {
	return s == StateConfirmado
}

// ActiveStates are the non-terminal bill states.
func ActiveStates() []State {
	return []State{StateSolicitada, StatePropinaHabilitada, StatePagoPendiente}
}

// TipStates are the states in which the tip percent may change.
func TipStates() []State {
	return []State{StateSolicitada, StatePropinaHabilitada}
}

// PayableStates are the states from which a bill may be paid.
func PayableStates() []State {
	return []State{StateSolicitada, StatePropinaHabilitada}
}
