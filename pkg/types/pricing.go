package types

import "github.com/shopspring/decimal"

// WholesalerPricing prices a catalog item by the box.
type WholesalerPricing struct {
	PricePerBox decimal.Decimal `json:"price_per_box"`
	BoxSize     int             `json:"box_size"`
}

// FloristPricing prices a catalog item by the stem.
type FloristPricing struct {
	PricePerStem decimal.Decimal `json:"price_per_stem"`
	MinQty       int             `json:"min_qty,omitempty"`
}

// ItemPricing carries the pricing variants a catalog item may offer. At least
// one variant must resolve to a usable per-unit price.
type ItemPricing struct {
	Wholesaler *WholesalerPricing `json:"wholesaler,omitempty"`
	Florist    *FloristPricing    `json:"florist,omitempty"`
}
