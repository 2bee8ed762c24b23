package domain

import (
	"fmt"
	"testing"

	"github.com/cucumber/godog"
	"github.com/shopspring/decimal"
)

type totalsFeature struct {
	account Account
}

func (f *totalsFeature) aBillWithSubtotalAndDiscount(subtotal, discount string) error {
	s, err := decimal.NewFromString(subtotal)
	if err != nil {
		return err
	}
	d, err := decimal.NewFromString(discount)
	if err != nil {
		return err
	}
	f.account = Account{Subtotal: s, DiscountAmount: d}
	return nil
}

func (f *totalsFeature) theTipPercentIsSetTo(percent int) error {
	f.account.TipPercent = percent
	f.account.Recompute()
	return nil
}

func (f *totalsFeature) theBillIsRecomputedTimes(n int) error {
	for i := 0; i < n; i++ {
		f.account.Recompute()
	}
	return nil
}

func expectAmount(name string, got decimal.Decimal, want string) error {
	if got.StringFixed(2) != want {
		return fmt.Errorf("%s: got %s, want %s", name, got.StringFixed(2), want)
	}
	return nil
}

func (f *totalsFeature) theTipAmountIs(want string) error {
	return expectAmount("tip", f.account.TipAmount, want)
}

func (f *totalsFeature) theDiscountAmountIs(want string) error {
	return expectAmount("discount", f.account.DiscountAmount, want)
}

func (f *totalsFeature) theTotalIs(want string) error {
	return expectAmount("total", f.account.Total, want)
}

func initializeTotalsScenario(ctx *godog.ScenarioContext) {
	f := &totalsFeature{}

	ctx.Step(`^a bill with subtotal "([^"]*)" and discount "([^"]*)"$`, f.aBillWithSubtotalAndDiscount)
	ctx.Step(`^the tip percent is set to (\d+)$`, f.theTipPercentIsSetTo)
	ctx.Step(`^the bill is recomputed (\d+) times$`, f.theBillIsRecomputedTimes)
	ctx.Step(`^the tip amount is "([^"]*)"$`, f.theTipAmountIs)
	ctx.Step(`^the discount amount is "([^"]*)"$`, f.theDiscountAmountIs)
	ctx.Step(`^the total is "([^"]*)"$`, f.theTotalIs)
}

func TestTotalsFeature(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: initializeTotalsScenario,
		Options: &godog.Options{
			Format:   "progress",
			Paths:    []string{"testdata/totals.feature"},
			TestingT: t,
			Strict:   true,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
