package synth

import (
	"math"
	"testing"
)

func TestComputeLandedCost_FullBreakdown(t *testing.T) {
	pricing := PricingContext{
		WholesaleFloorUSD:    fp(4.50),
		LocalRetailMedianUSD: fp(12),
		ExchangeRate:         900,
		LocalCurrencyCode:    "CLP",
	}

	b := ComputeLandedCost(pricing, fp(0.90), fp(6), fp(19), nil)

	// CIF 5.40, duty 0.324, VAT (5.724)*19% = 1.08756, total 6.81156
	if b.CIFValueUSD == nil || math.Abs(*b.CIFValueUSD-5.40) > 1e-9 {
		t.Fatalf("cif = %v, want 5.40", b.CIFValueUSD)
	}
	if b.DutyAmountUSD == nil || math.Abs(*b.DutyAmountUSD-0.324) > 1e-9 {
		t.Fatalf("duty = %v, want 0.324", b.DutyAmountUSD)
	}
	if b.VATAmountUSD == nil || math.Abs(*b.VATAmountUSD-1.08756) > 1e-9 {
		t.Fatalf("vat = %v, want 1.08756", b.VATAmountUSD)
	}
	if b.TotalLandedCostUSD == nil || math.Abs(*b.TotalLandedCostUSD-6.8116) > 0.01 {
		t.Fatalf("total = %v, want ~6.8116", b.TotalLandedCostUSD)
	}
	if b.TotalLandedCostLocal == nil || math.Abs(*b.TotalLandedCostLocal-*b.TotalLandedCostUSD*900) > 1e-6 {
		t.Fatalf("local total = %v", b.TotalLandedCostLocal)
	}
	// effective tax rate = (total - wholesale) / wholesale
	wantEffective := (*b.TotalLandedCostUSD - 4.50) / 4.50 * 100
	if b.EffectiveTaxRatePct == nil || math.Abs(*b.EffectiveTaxRatePct-wantEffective) > 1e-9 {
		t.Fatalf("effective rate = %v, want %v", b.EffectiveTaxRatePct, wantEffective)
	}
	// net margin = (median - total) / median
	wantMargin := (12 - *b.TotalLandedCostUSD) / 12 * 100
	if b.NetMarginPct == nil || math.Abs(*b.NetMarginPct-wantMargin) > 1e-9 {
		t.Fatalf("net margin = %v, want %v", b.NetMarginPct, wantMargin)
	}
}

func TestComputeLandedCost_VATCompoundsOnDuty(t *testing.T) {
	pricing := PricingContext{WholesaleFloorUSD: fp(100)}

	b := ComputeLandedCost(pricing, fp(0), fp(10), fp(20), nil)

	// duty 10, VAT on 110 = 22, never on CIF alone (20)
	if b.VATAmountUSD == nil || math.Abs(*b.VATAmountUSD-22) > 1e-9 {
		t.Fatalf("vat = %v, want 22", b.VATAmountUSD)
	}
	if b.TotalLandedCostUSD == nil || math.Abs(*b.TotalLandedCostUSD-132) > 1e-9 {
		t.Fatalf("total = %v, want 132", b.TotalLandedCostUSD)
	}
}

func TestComputeLandedCost_DefaultShipping(t *testing.T) {
	pricing := PricingContext{WholesaleFloorUSD: fp(10)}

	b := ComputeLandedCost(pricing, nil, nil, nil, nil)

	// no extracted estimate: 15% of product cost
	if b.EstimatedShippingPerUnitUSD == nil || math.Abs(*b.EstimatedShippingPerUnitUSD-1.5) > 1e-9 {
		t.Fatalf("shipping = %v, want 1.5", b.EstimatedShippingPerUnitUSD)
	}
	if b.TotalLandedCostUSD == nil || math.Abs(*b.TotalLandedCostUSD-11.5) > 1e-9 {
		t.Fatalf("total = %v, want 11.5", b.TotalLandedCostUSD)
	}
}

func TestComputeLandedCost_UnknownWholesale(t *testing.T) {
	pricing := PricingContext{LocalRetailMedianUSD: fp(20), ExchangeRate: 2}

	b := ComputeLandedCost(pricing, fp(1), fp(6), fp(19), fp(0.5))

	if b.WholesaleUnitPriceUSD != nil {
		t.Fatalf("expected nil wholesale, got %v", *b.WholesaleUnitPriceUSD)
	}
	if b.CIFValueUSD != nil || b.DutyAmountUSD != nil || b.VATAmountUSD != nil ||
		b.TotalLandedCostUSD != nil || b.TotalLandedCostLocal != nil ||
		b.EffectiveTaxRatePct != nil || b.NetMarginPct != nil {
		t.Fatalf("expected every landed-cost figure nil, got %+v", b)
	}
	if b.LocalRetailPriceUSD == nil || *b.LocalRetailPriceUSD != 20 {
		t.Fatalf("local retail price = %v, want 20", b.LocalRetailPriceUSD)
	}
}

func TestBuildImpositiveQueries_SpecificTaxesCapped(t *testing.T) {
	queries := BuildImpositiveQueries("8544.42", "usb cable", "CL", []string{"IVA", "arancel", "tasa", "extra"})

	if len(queries) != 5 {
		t.Fatalf("got %d queries, want 5", len(queries))
	}
	last := queries[len(queries)-1]
	if last.Purpose != "specific_impositive" {
		t.Fatalf("last purpose = %q", last.Purpose)
	}
	for _, q := range queries {
		if q.Query == "" {
			t.Fatalf("empty query for purpose %q", q.Purpose)
		}
	}
}
