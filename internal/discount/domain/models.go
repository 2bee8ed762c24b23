package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Eligibility is the per-customer discount state unlocked by mini-games.
type Eligibility struct {
	CustomerKey string        `gorm:"primaryKey;type:varchar(320)" json:"customer_key"`
	HasDiscount bool          `gorm:"not null;default:false" json:"has_discount"`
	Percent     int           `gorm:"not null;default:0" json:"percent"`
	HasAnyLoss  bool          `gorm:"not null;default:false" json:"has_any_loss"`
	GrantedGame *string       `gorm:"type:varchar(64)" json:"granted_game,omitempty"`
	ConsumedBy  *snowflake.ID `json:"consumed_by,omitempty"`
	CreatedAt   time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time     `gorm:"not null" json:"updated_at"`
}

func (Eligibility) TableName() string { return "discount_eligibility" }

type GameResult struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	CustomerKey string       `gorm:"type:varchar(320);not null;index" json:"customer_key"`
	Game        string       `gorm:"type:varchar(64);not null" json:"game"`
	Score       int          `gorm:"not null" json:"score"`
	WonFirstTry bool         `gorm:"not null" json:"won_first_try"`
	CreatedAt   time.Time    `gorm:"not null" json:"created_at"`
}

func (GameResult) TableName() string { return "game_results" }

// CustomerIdentity is resolved by the caller and passed explicitly. A
// registered email wins over the anonymous device key.
type CustomerIdentity struct {
	Email        string `json:"email,omitempty"`
	AnonymousKey string `json:"anonymous_key,omitempty"`
	Name         string `json:"name,omitempty"`
	DNI          string `json:"dni,omitempty"`
}

const anonymousPrefix = "anon:"

// Key is the storage key for the identity, empty when it cannot be resolved.
func (c CustomerIdentity) Key() string {
	if email := strings.ToLower(strings.TrimSpace(c.Email)); email != "" {
		return email
	}
	if key := strings.TrimSpace(c.AnonymousKey); key != "" {
		return anonymousPrefix + key
	}
	return ""
}

// IdentityFromKey rebuilds the identity a stored key was derived from.
func IdentityFromKey(key string) CustomerIdentity {
	if strings.HasPrefix(key, anonymousPrefix) {
		return CustomerIdentity{AnonymousKey: strings.TrimPrefix(key, anonymousPrefix)}
	}
	return CustomerIdentity{Email: key}
}

func (c CustomerIdentity) Known() bool {
	return c.Key() != ""
}

// Current is the discount a bill created now would carry.
type Current struct {
	HasDiscount bool `json:"has_discount"`
	Percent     int  `json:"percent"`
}

// PercentTable maps a game to the percent its first-try win grants.
type PercentTable interface {
	PercentFor(game string) int
}
