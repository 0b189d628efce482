package promo_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/cucumber/godog"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/forkline-eats/service-promo/internal/domain/promo"
)

type discountTestContext struct {
	now        time.Time
	rules      promo.Rules
	usedCount  int
	categories map[string]uuid.UUID
	lines      []promo.Line
	discount   promo.Discount
	err        error
}

func (c *discountTestContext) reset() {
	c.now = time.Date(2026, 7, 15, 12, 0, 0, 0, time.UTC)
	c.rules = promo.Rules{}
	c.usedCount = 0
	c.categories = make(map[string]uuid.UUID)
	c.lines = nil
	c.discount = promo.Discount{}
	c.err = nil
}

func (c *discountTestContext) category(name string) uuid.UUID {
	id, ok := c.categories[name]
	if !ok {
		id = uuid.New()
		c.categories[name] = id
	}
	return id
}

func (c *discountTestContext) code(code string, discountType promo.DiscountType, value string) error {
	v, err := decimal.NewFromString(value)
	if err != nil {
		return err
	}
	c.rules = promo.Rules{
		Code:          code,
		DiscountType:  discountType,
		DiscountValue: v,
		IsActive:      true,
		ValidFrom:     c.now.Add(-24 * time.Hour),
		ValidUntil:    c.now.Add(24 * time.Hour),
	}
	return nil
}

func (c *discountTestContext) aPercentageCodeWorth(code, value string) error {
	return c.code(code, promo.DiscountTypePercentage, value)
}

func (c *discountTestContext) aPercentageCodeWorthCappedAt(code, value, limit string) error {
	if err := c.code(code, promo.DiscountTypePercentage, value); err != nil {
		return err
	}
	capped, err := decimal.NewFromString(limit)
	if err != nil {
		return err
	}
	c.rules.MaximumDiscountAmount = decimal.NewNullDecimal(capped)
	return nil
}

func (c *discountTestContext) aFixedAmountCodeWorth(code, value string) error {
	return c.code(code, promo.DiscountTypeFixedAmount, value)
}

func (c *discountTestContext) theCodeOnlyAppliesTo(category string) error {
	c.rules.ApplicableCategories = append(c.rules.ApplicableCategories, c.category(category))
	return nil
}

func (c *discountTestContext) aMinimumOrderAmountOf(amount string) error {
	v, err := decimal.NewFromString(amount)
	if err != nil {
		return err
	}
	c.rules.MinimumOrderAmount = v
	return nil
}

func (c *discountTestContext) theCodeIsInactive() error {
	c.rules.IsActive = false
	return nil
}

func (c *discountTestContext) theCodeHasBeenUsedOfTimes(used, limit int) error {
	c.usedCount = used
	c.rules.TotalUsageLimit = &limit
	return nil
}

func (c *discountTestContext) theCodeExpiredYesterday() error {
	c.rules.ValidFrom = c.now.Add(-7 * 24 * time.Hour)
	c.rules.ValidUntil = c.now.Add(-24 * time.Hour)
	return nil
}

func (c *discountTestContext) build() (*promo.PromoCode, error) {
	if err := c.rules.Validate(); err != nil {
		return nil, err
	}
	return promo.Reconstruct(uuid.New(), uuid.New(), c.rules, c.usedCount, uuid.New(), c.now, c.now), nil
}

func (c *discountTestContext) addLine(quantity int, price, category string) error {
	p, err := decimal.NewFromString(price)
	if err != nil {
		return err
	}
	c.lines = append(c.lines, promo.Line{
		MenuItemID: uuid.New(),
		CategoryID: c.category(category),
		UnitPrice:  p,
		Quantity:   quantity,
	})
	return nil
}

func (c *discountTestContext) priceCart() error {
	p, err := c.build()
	if err != nil {
		return err
	}
	if c.err = p.CheckUsable(c.now); c.err != nil {
		return nil
	}
	c.discount, c.err = p.ComputeDiscount(c.lines)
	return nil
}

func (c *discountTestContext) aCartIsPriced(quantity int, price, category string) error {
	if err := c.addLine(quantity, price, category); err != nil {
		return err
	}
	return c.priceCart()
}

func (c *discountTestContext) aTwoLineCartIsPriced(q1 int, p1, cat1 string, q2 int, p2, cat2 string) error {
	if err := c.addLine(q1, p1, cat1); err != nil {
		return err
	}
	if err := c.addLine(q2, p2, cat2); err != nil {
		return err
	}
	return c.priceCart()
}

func (c *discountTestContext) theCodeIsChecked() error {
	p, err := c.build()
	if err != nil {
		return err
	}
	c.err = p.CheckUsable(c.now)
	return nil
}

func expectAmount(name string, got decimal.Decimal, want string) error {
	w, err := decimal.NewFromString(want)
	if err != nil {
		return err
	}
	if !got.Equal(w) {
		return fmt.Errorf("expected %s %s, got %s", name, want, got.StringFixed(2))
	}
	return nil
}

func (c *discountTestContext) noError() error {
	if c.err != nil {
		return fmt.Errorf("expected a discount but got error: %v", c.err)
	}
	return nil
}

func (c *discountTestContext) theDiscountIs(amount string) error {
	if err := c.noError(); err != nil {
		return err
	}
	return expectAmount("discount", c.discount.Amount, amount)
}

func (c *discountTestContext) theApplicableAmountIs(amount string) error {
	if err := c.noError(); err != nil {
		return err
	}
	return expectAmount("applicable amount", c.discount.ApplicableAmount, amount)
}

func (c *discountTestContext) theFinalAmountIs(amount string) error {
	if err := c.noError(); err != nil {
		return err
	}
	return expectAmount("final amount", c.discount.FinalAmount(), amount)
}

func (c *discountTestContext) theCodeIsRejectedWith(reason string) error {
	var ruleErr *promo.RuleError
	if !errors.As(c.err, &ruleErr) {
		return fmt.Errorf("expected rejection %q, got %v", reason, c.err)
	}
	if string(ruleErr.Reason) != reason {
		return fmt.Errorf("expected rejection %q, got %q", reason, ruleErr.Reason)
	}
	return nil
}

func (c *discountTestContext) theRejectionMessageIs(message string) error {
	if c.err == nil || c.err.Error() != message {
		return fmt.Errorf("expected message %q, got %v", message, c.err)
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &discountTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})

	// Given steps
	ctx.Step(`^a percentage code "([^"]*)" worth ([\d.]+) capped at ([\d.]+)$`, tc.aPercentageCodeWorthCappedAt)
	ctx.Step(`^a percentage code "([^"]*)" worth ([\d.]+)$`, tc.aPercentageCodeWorth)
	ctx.Step(`^a fixed amount code "([^"]*)" worth ([\d.]+)$`, tc.aFixedAmountCodeWorth)
	ctx.Step(`^the code only applies to "([^"]*)"$`, tc.theCodeOnlyAppliesTo)
	ctx.Step(`^a minimum order amount of ([\d.]+)$`, tc.aMinimumOrderAmountOf)
	ctx.Step(`^the code is inactive$`, tc.theCodeIsInactive)
	ctx.Step(`^the code has been used (\d+) of (\d+) times$`, tc.theCodeHasBeenUsedOfTimes)
	ctx.Step(`^the code expired yesterday$`, tc.theCodeExpiredYesterday)

	// When steps
	ctx.Step(`^a cart with (\d+) x ([\d.]+) in "([^"]*)" is priced$`, tc.aCartIsPriced)
	ctx.Step(`^a cart with (\d+) x ([\d.]+) in "([^"]*)" and (\d+) x ([\d.]+) in "([^"]*)" is priced$`, tc.aTwoLineCartIsPriced)
	ctx.Step(`^the code is checked$`, tc.theCodeIsChecked)

	// Then steps
	ctx.Step(`^the discount is ([\d.]+)$`, tc.theDiscountIs)
	ctx.Step(`^the applicable amount is ([\d.]+)$`, tc.theApplicableAmountIs)
	ctx.Step(`^the final amount is ([\d.]+)$`, tc.theFinalAmountIs)
	ctx.Step(`^the code is rejected with "([^"]*)"$`, tc.theCodeIsRejectedWith)
	ctx.Step(`^the rejection message is "([^"]*)"$`, tc.theRejectionMessageIs)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features/discount.feature"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
