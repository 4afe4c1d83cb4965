package service

import (
	"github.com/google/uuid"
	"github.com/momentos-dulces/api/internal/enum"
	"github.com/shopspring/decimal"
)

// PricedVariant is a product variant as seen by the pricing engine.
type PricedVariant struct {
	ID    uuid.UUID
	Name  string
	Price decimal.Decimal
}

// PricedOption is a customization option together with its group, as seen by
// the pricing engine.
type PricedOption struct {
	ID            uuid.UUID
	GroupID       uuid.UUID
	GroupType     string
	Name          string
	PriceModifier decimal.Decimal
}

// PricedProduct is the catalog data needed to price a single unit.
type PricedProduct struct {
	BasePrice decimal.Decimal
	Variants  []PricedVariant
	Options   []PricedOption
}

// Selection is the shopper's choice for one line item. VariantID may be
// uuid.Nil for "no variant".
type Selection struct {
	VariantID uuid.UUID
	OptionIDs []uuid.UUID
}

// UnitPrice computes the per-unit price of a product for the given selection.
//
// A selected variant REPLACES the base price; an unknown variant id falls
// back to the base price. Single-select customization groups contribute at
// most one option's modifier, `topping` groups contribute every selected
// option's modifier. Unknown option ids contribute nothing. The result is
// clamped at zero.
//
// Quantity is deliberately not a parameter: line totals are the caller's
// concern.
func UnitPrice(p PricedProduct, sel Selection) decimal.Decimal {
	price := p.BasePrice

	if sel.VariantID != uuid.Nil {
		for _, v := range p.Variants {
			if v.ID == sel.VariantID {
				price = v.Price
				break
			}
		}
	}

	selected := make(map[uuid.UUID]bool, len(sel.OptionIDs))
	for _, id := range sel.OptionIDs {
		selected[id] = true
	}

	// Walk options in catalog order so single-select groups resolve
	// deterministically when the caller sends more than one id.
	applied := make(map[uuid.UUID]bool)
	for _, o := range p.Options {
		if !selected[o.ID] {
			continue
		}
		if o.GroupType != enum.CustomizationTypeTopping && applied[o.GroupID] {
			continue
		}
		price = price.Add(o.PriceModifier)
		applied[o.GroupID] = true
	}

	if price.IsNegative() {
		return decimal.Zero
	}
	return price
}
