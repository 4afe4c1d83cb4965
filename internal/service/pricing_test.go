package service

import (
	"testing"

	"github.com/google/uuid"
	"github.com/momentos-dulces/api/internal/enum"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestUnitPriceBaseOnly(t *testing.T) {
	p := PricedProduct{BasePrice: dec("12.50")}

	got := UnitPrice(p, Selection{})
	if !got.Equal(dec("12.50")) {
		t.Errorf("UnitPrice = %s, want 12.50", got)
	}
}

func TestUnitPriceVariantReplacesBase(t *testing.T) {
	variantID := uuid.New()
	p := PricedProduct{
		BasePrice: dec("12.50"),
		Variants: []PricedVariant{
			{ID: variantID, Name: "1 kg", Price: dec("22.00")},
		},
	}

	got := UnitPrice(p, Selection{VariantID: variantID})
	if !got.Equal(dec("22.00")) {
		t.Errorf("UnitPrice = %s, want 22.00 (variant price, not base+variant)", got)
	}
}

func TestUnitPriceUnknownVariantFallsBackToBase(t *testing.T) {
	p := PricedProduct{
		BasePrice: dec("12.50"),
		Variants: []PricedVariant{
			{ID: uuid.New(), Name: "1 kg", Price: dec("22.00")},
		},
	}

	got := UnitPrice(p, Selection{VariantID: uuid.New()})
	if !got.Equal(dec("12.50")) {
		t.Errorf("UnitPrice = %s, want 12.50 for unknown variant", got)
	}
}

func TestUnitPriceSingleSelectGroupAppliesOneOption(t *testing.T) {
	groupID := uuid.New()
	first := uuid.New()
	second := uuid.New()
	p := PricedProduct{
		BasePrice: dec("10.00"),
		Options: []PricedOption{
			{ID: first, GroupID: groupID, GroupType: enum.CustomizationTypeGlaze, Name: "Chocolate", PriceModifier: dec("1.00")},
			{ID: second, GroupID: groupID, GroupType: enum.CustomizationTypeGlaze, Name: "Arequipe", PriceModifier: dec("2.00")},
		},
	}

	// Both ids sent for a single-select group: only the first in catalog
	// order applies.
	got := UnitPrice(p, Selection{OptionIDs: []uuid.UUID{second, first}})
	if !got.Equal(dec("11.00")) {
		t.Errorf("UnitPrice = %s, want 11.00 (only first option in catalog order)", got)
	}
}

func TestUnitPriceToppingGroupAppliesAllSelected(t *testing.T) {
	groupID := uuid.New()
	sprinkles := uuid.New()
	nuts := uuid.New()
	cherries := uuid.New()
	p := PricedProduct{
		BasePrice: dec("10.00"),
		Options: []PricedOption{
			{ID: sprinkles, GroupID: groupID, GroupType: enum.CustomizationTypeTopping, PriceModifier: dec("0.50")},
			{ID: nuts, GroupID: groupID, GroupType: enum.CustomizationTypeTopping, PriceModifier: dec("1.25")},
			{ID: cherries, GroupID: groupID, GroupType: enum.CustomizationTypeTopping, PriceModifier: dec("0.75")},
		},
	}

	got := UnitPrice(p, Selection{OptionIDs: []uuid.UUID{sprinkles, nuts}})
	if !got.Equal(dec("11.75")) {
		t.Errorf("UnitPrice = %s, want 11.75 (both toppings stack)", got)
	}
}

func TestUnitPriceVariantPlusMixedGroups(t *testing.T) {
	variantID := uuid.New()
	sizeGroup := uuid.New()
	toppingGroup := uuid.New()
	large := uuid.New()
	nuts := uuid.New()
	cherries := uuid.New()
	p := PricedProduct{
		BasePrice: dec("8.00"),
		Variants: []PricedVariant{
			{ID: variantID, Name: "Caja de 12", Price: dec("18.00")},
		},
		Options: []PricedOption{
			{ID: large, GroupID: sizeGroup, GroupType: enum.CustomizationTypeSize, PriceModifier: dec("3.00")},
			{ID: nuts, GroupID: toppingGroup, GroupType: enum.CustomizationTypeTopping, PriceModifier: dec("1.00")},
			{ID: cherries, GroupID: toppingGroup, GroupType: enum.CustomizationTypeTopping, PriceModifier: dec("0.50")},
		},
	}

	got := UnitPrice(p, Selection{
		VariantID: variantID,
		OptionIDs: []uuid.UUID{large, nuts, cherries},
	})
	// 18.00 (variant) + 3.00 + 1.00 + 0.50
	if !got.Equal(dec("22.50")) {
		t.Errorf("UnitPrice = %s, want 22.50", got)
	}
}

func TestUnitPriceUnknownOptionIgnored(t *testing.T) {
	p := PricedProduct{BasePrice: dec("10.00")}

	got := UnitPrice(p, Selection{OptionIDs: []uuid.UUID{uuid.New(), uuid.New()}})
	if !got.Equal(dec("10.00")) {
		t.Errorf("UnitPrice = %s, want 10.00 with unknown options ignored", got)
	}
}

func TestUnitPriceClampedAtZero(t *testing.T) {
	groupID := uuid.New()
	discount := uuid.New()
	p := PricedProduct{
		BasePrice: dec("2.00"),
		Options: []PricedOption{
			{ID: discount, GroupID: groupID, GroupType: enum.CustomizationTypeSize, PriceModifier: dec("-5.00")},
		},
	}

	got := UnitPrice(p, Selection{OptionIDs: []uuid.UUID{discount}})
	if !got.Equal(decimal.Zero) {
		t.Errorf("UnitPrice = %s, want 0 (never negative)", got)
	}
}
