package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type RecordGameResultRequest struct {
	Identity    CustomerIdentity
	Game        string
	Score       int
	WonFirstTry bool
}

type Service interface {
	RecordGameResult(context.Context, RecordGameResultRequest) (Eligibility, error)
	RecordLoss(context.Context, CustomerIdentity) (Eligibility, error)
	Current(context.Context, CustomerIdentity) (Current, error)
	// Consume is idempotent per bill: it reports true when accountID holds
	// the consumption, including on repeated calls.
	Consume(context.Context, CustomerIdentity, snowflake.ID) (bool, error)
	// ResetLoss is the operator-side reset of the loss flag.
	ResetLoss(context.Context, CustomerIdentity) (Eligibility, error)
	ListResults(context.Context, CustomerIdentity, int) ([]GameResult, error)
}

var (
	ErrInvalidGame     = errors.New("invalid_game")
	ErrUnknownCustomer = errors.New("unknown_customer")
)
