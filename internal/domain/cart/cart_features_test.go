package cart

import (
	"context"
	"fmt"
	"strconv"
	"testing"

	"github.com/cucumber/godog"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/MONA100421/ShopFlow-sub000/internal/domain/product"
)

type cartFeature struct {
	products *fakeProducts
	svc      *Service
	owner    Owner
	view     *View
	err      error
}

func (f *cartFeature) reset() {
	f.products = newFakeProducts()
	f.svc = newTestService(newFakeCarts(), f.products)
	f.owner = Owner{}
	f.view = nil
	f.err = nil
}

func (f *cartFeature) theCatalog(table *godog.Table) error {
	for _, row := range table.Rows[1:] {
		price, err := decimal.NewFromString(row.Cells[1].Value)
		if err != nil {
			return err
		}
		stock, err := strconv.Atoi(row.Cells[2].Value)
		if err != nil {
			return err
		}
		f.products.put(product.Product{
			ID:     row.Cells[0].Value,
			Name:   row.Cells[0].Value,
			Price:  price,
			Stock:  stock,
			Active: true,
		})
	}
	return nil
}

func (f *cartFeature) browsingAsGuest(id string) error {
	f.owner = GuestOwner(id)
	return nil
}

func (f *cartFeature) record(v *View, err error) error {
	f.err = err
	if err == nil {
		f.view = v
	}
	return nil
}

func (f *cartFeature) iAdd(qty int, productID string) error {
	return f.record(f.svc.Add(context.Background(), f.owner, productID, qty))
}

func (f *cartFeature) iChangeQuantityBy(productID string, delta int) error {
	return f.record(f.svc.UpdateQuantity(context.Background(), f.owner, productID, delta))
}

func (f *cartFeature) iApplyDiscount(code string) error {
	return f.record(f.svc.SetDiscountCode(context.Background(), f.owner, code))
}

func (f *cartFeature) iClearTheCart() error {
	return f.record(f.svc.Clear(context.Background(), f.owner))
}

func (f *cartFeature) ownerHas(owner Owner, qty int, productID string) error {
	_, err := f.svc.Add(context.Background(), owner, productID, qty)
	return err
}

func (f *cartFeature) guestHas(id string, qty int, productID string) error {
	return f.ownerHas(GuestOwner(id), qty, productID)
}

func (f *cartFeature) userHas(id string, qty int, productID string) error {
	return f.ownerHas(UserOwner(id), qty, productID)
}

func (f *cartFeature) guestLogsIn(guestID, userID string) error {
	g := GuestOwner(guestID)
	return f.record(f.svc.Merge(context.Background(), MergeRequest{User: UserOwner(userID), Guest: &g}))
}

func (f *cartFeature) quantityIn(owner Owner, productID string) (int, error) {
	v, err := f.svc.View(context.Background(), owner)
	if err != nil {
		return 0, err
	}
	for _, it := range v.Items {
		if it.ProductID == productID {
			return it.Quantity, nil
		}
	}
	return 0, nil
}

func (f *cartFeature) theCartHas(qty int, productID string) error {
	got, err := f.quantityIn(f.owner, productID)
	if err != nil {
		return err
	}
	if got != qty {
		return fmt.Errorf("expected %d of %s, got %d", qty, productID, got)
	}
	return nil
}

func (f *cartFeature) userHasInCart(id string, qty int, productID string) error {
	got, err := f.quantityIn(UserOwner(id), productID)
	if err != nil {
		return err
	}
	if got != qty {
		return fmt.Errorf("expected user %s to have %d of %s, got %d", id, qty, productID, got)
	}
	return nil
}

func (f *cartFeature) emptyCart(owner Owner) error {
	v, err := f.svc.View(context.Background(), owner)
	if err != nil {
		return err
	}
	if !v.IsEmpty() {
		return fmt.Errorf("expected empty cart, got %d items", len(v.Items))
	}
	return nil
}

func (f *cartFeature) theCartIsEmpty() error {
	return f.emptyCart(f.owner)
}

func (f *cartFeature) guestHasEmptyCart(id string) error {
	return f.emptyCart(GuestOwner(id))
}

func (f *cartFeature) theTotalsAre(subtotal, tax, discount, total string) error {
	if f.view == nil {
		return errors.New("no cart view recorded")
	}
	t := f.view.Totals
	got := [4]string{t.Subtotal.StringFixed(2), t.Tax.StringFixed(2), t.Discount.StringFixed(2), t.Total.StringFixed(2)}
	want := [4]string{subtotal, tax, discount, total}
	if got != want {
		return fmt.Errorf("expected totals %v, got %v", want, got)
	}
	return nil
}

func (f *cartFeature) theDiscountStatusIs(status string) error {
	if f.view == nil {
		return errors.New("no cart view recorded")
	}
	if got := string(f.view.Totals.DiscountStatus); got != status {
		return fmt.Errorf("expected discount status %q, got %q", status, got)
	}
	return nil
}

var featureErrors = map[string]error{
	"product unavailable": ErrProductUnavailable,
	"invalid quantity":    ErrInvalidQuantity,
	"line not found":      ErrLineNotFound,
}

func (f *cartFeature) theOperationFailsWith(kind string) error {
	want, ok := featureErrors[kind]
	if !ok {
		return fmt.Errorf("unknown error kind %q", kind)
	}
	if !errors.Is(f.err, want) {
		return fmt.Errorf("expected %s, got %v", kind, f.err)
	}
	return nil
}

func initializeCartScenario(ctx *godog.ScenarioContext) {
	f := &cartFeature{}

	ctx.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		f.reset()
		return ctx, nil
	})

	ctx.Step(`^the catalog:$`, f.theCatalog)
	ctx.Step(`^I am browsing as guest "([^"]*)"$`, f.browsingAsGuest)
	ctx.Step(`^I add (\d+) of "([^"]*)"$`, f.iAdd)
	ctx.Step(`^I change the quantity of "([^"]*)" by (-?\d+)$`, f.iChangeQuantityBy)
	ctx.Step(`^I apply the discount code "([^"]*)"$`, f.iApplyDiscount)
	ctx.Step(`^I clear the cart$`, f.iClearTheCart)
	ctx.Step(`^guest "([^"]*)" has (\d+) of "([^"]*)"$`, f.guestHas)
	ctx.Step(`^user "([^"]*)" has (\d+) of "([^"]*)"$`, f.userHas)
	ctx.Step(`^guest "([^"]*)" logs in as "([^"]*)"$`, f.guestLogsIn)

	ctx.Step(`^the cart has (\d+) of "([^"]*)"$`, f.theCartHas)
	ctx.Step(`^user "([^"]*)" has (\d+) of "([^"]*)" in the cart$`, f.userHasInCart)
	ctx.Step(`^the cart is empty$`, f.theCartIsEmpty)
	ctx.Step(`^guest "([^"]*)" has an empty cart$`, f.guestHasEmptyCart)
	ctx.Step(`^the totals are subtotal "([^"]*)", tax "([^"]*)", discount "([^"]*)", total "([^"]*)"$`, f.theTotalsAre)
	ctx.Step(`^the discount status is "([^"]*)"$`, f.theDiscountStatusIs)
	ctx.Step(`^the operation fails with "([^"]*)"$`, f.theOperationFailsWith)
}

func TestCartFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: initializeCartScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			Strict:   true,
			TestingT: t,
		},
	}
	if suite.Run() != 0 {
		t.Fatal("cart feature scenarios failed")
	}
}
