package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type State string

const (
	StatePendiente     State = "pendiente"
	StateEnPreparacion State = "en_preparacion"
	StateListo         State = "listo"
	StateEntregado     State = "entregado"
	StateRecibido      State = "recibido"
	StateFinalizado    State = "finalizado"
	StateCancelado     State = "cancelado"
)

type Kind string

const (
	KindSalon    Kind = "salon"
	KindDelivery Kind = "delivery"
)

// DeliveryTableNumber is the sentinel table every delivery order is filed under.
const DeliveryTableNumber = 9999

const (
	CategoryFood  = "Comida"
	CategoryDrink = "Bebida"
)

type Item struct {
	ProductID   string          `json:"product_id,omitempty"`
	Name        string          `json:"name"`
	Category    string          `json:"category"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	PrepMinutes *int            `json:"prep_minutes,omitempty"`
}

// Amount is quantity times unit price rounded to cents.
func (i Item) Amount() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity))).Round(2)
}

type Order struct {
	ID              snowflake.ID              `gorm:"primaryKey" json:"id"`
	TableNumber     int                       `gorm:"not null;index" json:"table_number"`
	Kind            Kind                      `gorm:"type:varchar(16);not null" json:"kind"`
	Items           datatypes.JSONSlice[Item] `gorm:"not null" json:"items"`
	TotalAmount     decimal.Decimal           `gorm:"type:numeric(12,2);not null" json:"total_amount"`
	PrepMinutes     *int                      `json:"prep_minutes,omitempty"`
	State           State                     `gorm:"type:varchar(32);not null;index" json:"state"`
	KitchenReady    bool                      `gorm:"not null;default:false" json:"kitchen_ready"`
	BarReady        bool                      `gorm:"not null;default:false" json:"bar_ready"`
	CustomerKey     *string                   `gorm:"index" json:"customer_key,omitempty"`
	DeliveryAddress *string                   `json:"delivery_address,omitempty"`
	DeliveryLat     *float64                  `json:"delivery_lat,omitempty"`
	DeliveryLng     *float64                  `json:"delivery_lng,omitempty"`
	CancelReason    *string                   `json:"cancel_reason,omitempty"`
	CreatedAt       time.Time                 `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time                 `gorm:"not null" json:"updated_at"`
	ConfirmedAt     *time.Time                `json:"confirmed_at,omitempty"`
	ReadyAt         *time.Time                `json:"ready_at,omitempty"`
	DeliveredAt     *time.Time                `json:"delivered_at,omitempty"`
	ReceivedAt      *time.Time                `json:"received_at,omitempty"`
	FinalizedAt     *time.Time                `json:"finalized_at,omitempty"`
	CancelledAt     *time.Time                `json:"cancelled_at,omitempty"`
}

func (Order) TableName() string { return "orders" }

func (o Order) IsDelivery() bool {
	return o.Kind == KindDelivery
}
