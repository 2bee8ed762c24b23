package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/menuya/internal/apperror"
	"github.com/smallbiznis/menuya/internal/changefeed"
	"github.com/smallbiznis/menuya/internal/clock"
	"github.com/smallbiznis/menuya/internal/config"
	"github.com/smallbiznis/menuya/internal/discount/domain"
	"github.com/smallbiznis/menuya/internal/discount/repository"
	"github.com/smallbiznis/menuya/internal/discount/service"
	"github.com/smallbiznis/menuya/internal/testsupport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newService(t *testing.T) (domain.Service, *testsupport.Publisher) {
	t.Helper()
	events := &testsupport.Publisher{}
	svc := service.New(service.Params{
		DB:        testsupport.OpenDB(t),
		Log:       zaptest.NewLogger(t),
		GenID:     testsupport.Node(t),
		Clock:     clock.NewFakeClock(time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC)),
		Repo:      repository.Provide(),
		Percents:  config.DefaultDiscountConfig(),
		Publisher: events,
	})
	return svc, events
}

var ana = domain.CustomerIdentity{Email: "Ana@Example.com"}

func win(game string) domain.RecordGameResultRequest {
	return domain.RecordGameResultRequest{Identity: ana, Game: game, Score: 100, WonFirstTry: true}
}

// A second first-try win does not replace the discount already held.
func TestFirstWinGrantsAndLaterWinsDoNotStack(t *testing.T) {
	svc, events := newService(t)
	ctx := context.Background()

	got, err := svc.RecordGameResult(ctx, win("entrega_ya"))
	require.NoError(t, err)
	assert.True(t, got.HasDiscount)
	assert.Equal(t, 25, got.Percent)
	assert.Equal(t, "ana@example.com", got.CustomerKey)

	got, err = svc.RecordGameResult(ctx, win("ahorcado"))
	require.NoError(t, err)
	assert.Equal(t, 25, got.Percent)

	current, err := svc.Current(ctx, ana)
	require.NoError(t, err)
	assert.Equal(t, domain.Current{HasDiscount: true, Percent: 25}, current)

	results, err := svc.ListResults(ctx, ana, 0)
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Len(t, events.Events(changefeed.TableDiscounts), 1)
}

func TestNonFirstTryWinGrantsNothing(t *testing.T) {
	svc, _ := newService(t)

	got, err := svc.RecordGameResult(context.Background(), domain.RecordGameResultRequest{
		Identity: ana, Game: "preguntados", Score: 40,
	})
	require.NoError(t, err)
	assert.False(t, got.HasDiscount)
	assert.Zero(t, got.Percent)
}

func TestLossBlocksGrantUntilReset(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.RecordLoss(ctx, ana)
	require.NoError(t, err)

	got, err := svc.RecordGameResult(ctx, win("preguntados"))
	require.NoError(t, err)
	assert.False(t, got.HasDiscount)
	assert.True(t, got.HasAnyLoss)

	got, err = svc.ResetLoss(ctx, ana)
	require.NoError(t, err)
	assert.False(t, got.HasAnyLoss)

	got, err = svc.RecordGameResult(ctx, win("preguntados"))
	require.NoError(t, err)
	assert.True(t, got.HasDiscount)
	assert.Equal(t, 20, got.Percent)
}

func TestConsumeIsIdempotentPerBill(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	_, err := svc.RecordGameResult(ctx, win("entrega_ya"))
	require.NoError(t, err)

	bill := snowflake.ID(1001)
	other := snowflake.ID(1002)

	applied, err := svc.Consume(ctx, ana, bill)
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = svc.Consume(ctx, ana, bill)
	require.NoError(t, err)
	assert.True(t, applied, "the same bill keeps its consumption")

	applied, err = svc.Consume(ctx, ana, other)
	require.NoError(t, err)
	assert.False(t, applied, "another bill cannot consume it twice")

	current, err := svc.Current(ctx, ana)
	require.NoError(t, err)
	assert.False(t, current.HasDiscount)
}

func TestUnknownIdentityHasNoDiscount(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	current, err := svc.Current(ctx, domain.CustomerIdentity{})
	require.NoError(t, err)
	assert.False(t, current.HasDiscount)

	got, err := svc.RecordGameResult(ctx, domain.RecordGameResultRequest{Game: "ahorcado", WonFirstTry: true})
	require.NoError(t, err)
	assert.Empty(t, got.CustomerKey)

	applied, err := svc.Consume(ctx, domain.CustomerIdentity{}, 7)
	require.NoError(t, err)
	assert.False(t, applied)

	_, err = svc.ResetLoss(ctx, domain.CustomerIdentity{})
	assert.True(t, apperror.IsValidation(err))
}

func TestAnonymousIdentityIsKeyedByDevice(t *testing.T) {
	svc, _ := newService(t)
	anon := domain.CustomerIdentity{AnonymousKey: "device-42"}

	got, err := svc.RecordGameResult(context.Background(), domain.RecordGameResultRequest{
		Identity: anon, Game: "mayor_menor", WonFirstTry: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "anon:device-42", got.CustomerKey)
	assert.Equal(t, anon, domain.IdentityFromKey(got.CustomerKey))
}

func TestRecordGameResultRequiresGame(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.RecordGameResult(context.Background(), domain.RecordGameResultRequest{Identity: ana, WonFirstTry: true})
	assert.ErrorIs(t, err, domain.ErrInvalidGame)
}
