package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/florelink/florelink-backend/pkg/enums"
	pkgerrors "github.com/florelink/florelink-backend/pkg/errors"
	"github.com/florelink/florelink-backend/pkg/types"
)

// ErrPricingUnavailable is returned when no pricing variant yields a usable unit price.
var ErrPricingUnavailable = pkgerrors.New(pkgerrors.CodeValidation, "no usable pricing variant for item")

// Resolve maps a buyer role and an item's pricing variants to a single unit price.
// Wholesalers buy by the box and pay the per-stem equivalent of the box price;
// everyone else pays the florist per-stem price. Each side falls back to the
// other variant when its own is unusable.
func Resolve(role enums.UserRole, pricing types.ItemPricing) (decimal.Decimal, error) {
	if role == enums.UserRoleWholesaler {
		if price, ok := wholesaleUnitPrice(pricing.Wholesaler); ok {
			return price, nil
		}
		if price, ok := floristUnitPrice(pricing.Florist); ok {
			return price, nil
		}
		return decimal.Zero, ErrPricingUnavailable
	}

	if price, ok := floristUnitPrice(pricing.Florist); ok {
		return price, nil
	}
	if price, ok := wholesaleUnitPrice(pricing.Wholesaler); ok {
		return price, nil
	}
	return decimal.Zero, ErrPricingUnavailable
}

func wholesaleUnitPrice(variant *types.WholesalerPricing) (decimal.Decimal, bool) {
	if variant == nil || variant.BoxSize <= 0 || !variant.PricePerBox.IsPositive() {
		return decimal.Zero, false
	}
	return variant.PricePerBox.Div(decimal.NewFromInt(int64(variant.BoxSize))), true
}

func floristUnitPrice(variant *types.FloristPricing) (decimal.Decimal, bool) {
	if variant == nil || !variant.PricePerStem.IsPositive() {
		return decimal.Zero, false
	}
	return variant.PricePerStem, true
}
