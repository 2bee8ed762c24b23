package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/smallbiznis/menuya/internal/apperror"
	"github.com/smallbiznis/menuya/internal/cli"
	"github.com/smallbiznis/menuya/internal/clock"
	"github.com/smallbiznis/menuya/internal/config"
	discountdomain "github.com/smallbiznis/menuya/internal/discount/domain"
	discountrepo "github.com/smallbiznis/menuya/internal/discount/repository"
	discountservice "github.com/smallbiznis/menuya/internal/discount/service"
	"github.com/smallbiznis/menuya/internal/realtime"
	tablerepo "github.com/smallbiznis/menuya/internal/table/repository"
	tableservice "github.com/smallbiznis/menuya/internal/table/service"
	"github.com/smallbiznis/menuya/internal/testsupport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

func run(t *testing.T, conn *gorm.DB, args ...string) (string, error) {
	t.Helper()
	cmd := cli.NewRootCmdForTest(func() (*gorm.DB, error) { return conn, nil })
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func discounts(t *testing.T, conn *gorm.DB) discountdomain.Service {
	t.Helper()
	return discountservice.New(discountservice.Params{
		DB:       conn,
		Log:      zaptest.NewLogger(t),
		GenID:    testsupport.Node(t),
		Clock:    clock.NewFakeClock(time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC)),
		Repo:     discountrepo.Provide(),
		Percents: config.DefaultDiscountConfig(),
	})
}

func TestTablesCommandShowsBuckets(t *testing.T) {
	conn := testsupport.OpenDB(t)
	tables := tableservice.New(tableservice.Params{DB: conn, Log: zaptest.NewLogger(t), Clock: clock.SystemClock{}, Repo: tablerepo.Provide()})
	ctx := context.Background()
	_, err := tables.Release(ctx, 1)
	require.NoError(t, err)
	_, err = tables.Occupy(ctx, 3)
	require.NoError(t, err)

	out, err := run(t, conn, "tables")
	require.NoError(t, err)
	assert.Contains(t, out, "free 1")
	assert.Contains(t, out, "occupied 1")

	out, err = run(t, conn, "tables", "--json")
	require.NoError(t, err)
	var view realtime.TablesView
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	require.Len(t, view.Tables, 2)
	assert.Equal(t, realtime.BucketOccupied, view.Tables[1].Bucket)
}

func TestDiscountShow(t *testing.T) {
	conn := testsupport.OpenDB(t)
	_, err := discounts(t, conn).RecordGameResult(context.Background(), discountdomain.RecordGameResultRequest{
		Identity:    discountdomain.CustomerIdentity{Email: "ana@example.com"},
		Game:        "entrega_ya",
		Score:       80,
		WonFirstTry: true,
	})
	require.NoError(t, err)

	out, err := run(t, conn, "discount", "show", "--email", "ana@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "25% off the next bill")
	assert.Contains(t, out, "entrega_ya")
}

func TestDiscountResetLoss(t *testing.T) {
	conn := testsupport.OpenDB(t)
	svc := discounts(t, conn)
	anon := discountdomain.CustomerIdentity{AnonymousKey: "device-7"}
	_, err := svc.RecordLoss(context.Background(), anon)
	require.NoError(t, err)

	_, err = run(t, conn, "discount", "reset-loss")
	assert.EqualError(t, err, "specify the customer with --email or --key")

	out, err := run(t, conn, "discount", "reset-loss", "--key", "device-7")
	require.NoError(t, err)
	assert.Contains(t, out, "loss cleared for anon:device-7")

	got, err := svc.RecordGameResult(context.Background(), discountdomain.RecordGameResultRequest{
		Identity: anon, Game: "ahorcado", WonFirstTry: true,
	})
	require.NoError(t, err)
	assert.True(t, got.HasDiscount)

	_, err = run(t, conn, "discount", "reset-loss", "--email", "nobody@example.com")
	assert.True(t, apperror.IsNotFound(err))
}

func TestMigrateIsRepeatable(t *testing.T) {
	conn := testsupport.OpenDB(t)

	out, err := run(t, conn, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "schema up to date")
}
