package synth

import (
	"math"
	"testing"

	"importscout/internal/research"
)

func fp(v float64) *float64 { return &v }

func listing(platform research.Platform, price float64) research.PlatformProduct {
	return research.PlatformProduct{
		Platform: platform,
		Title:    "item",
		PriceRaw: fp(price),
		Currency: "USD",
	}
}

func TestComputePriceAnalysis_MarginFormulas(t *testing.T) {
	platforms := research.PlatformResults{
		AliExpress: []research.PlatformProduct{listing(research.PlatformAliExpress, 5)},
		Wholesale:  []research.PlatformProduct{listing(research.PlatformWholesale, 4)},
		Amazon:     []research.PlatformProduct{listing(research.PlatformAmazon, 9)},
		Ebay:       []research.PlatformProduct{listing(research.PlatformEbay, 10)},
		LocalRetail: []research.PlatformProduct{
			listing(research.PlatformLocalRetail, 7),
			listing(research.PlatformLocalRetail, 8),
			listing(research.PlatformLocalRetail, 9),
		},
	}

	a := ComputePriceAnalysis(platforms, "CLP", 900)

	if a.WholesaleFloor == nil || *a.WholesaleFloor != 4 {
		t.Fatalf("wholesale floor = %v, want 4", a.WholesaleFloor)
	}
	if a.BestSourcePlatform == nil || *a.BestSourcePlatform != research.PlatformWholesale {
		t.Fatalf("best source platform = %v, want wholesale", a.BestSourcePlatform)
	}
	if a.RetailCeiling == nil || *a.RetailCeiling != 10 {
		t.Fatalf("retail ceiling = %v, want 10", a.RetailCeiling)
	}
	if a.LocalRetailMedian == nil || *a.LocalRetailMedian != 8 {
		t.Fatalf("local median = %v, want 8", a.LocalRetailMedian)
	}

	// (8-4)/8 = 50%, (10-4)/10 = 60%
	if a.GrossMarginPctMin == nil || math.Abs(*a.GrossMarginPctMin-50) > 1e-9 {
		t.Fatalf("margin min = %v, want 50", a.GrossMarginPctMin)
	}
	if a.GrossMarginPctMax == nil || math.Abs(*a.GrossMarginPctMax-60) > 1e-9 {
		t.Fatalf("margin max = %v, want 60", a.GrossMarginPctMax)
	}

	if a.WholesaleFloorLocal == nil || *a.WholesaleFloorLocal != 4*900 {
		t.Fatalf("wholesale floor local = %v, want 3600", a.WholesaleFloorLocal)
	}
	if a.LocalRetailMedianLocal == nil || *a.LocalRetailMedianLocal != 8*900 {
		t.Fatalf("local median local = %v, want 7200", a.LocalRetailMedianLocal)
	}
	if a.Currency != "USD" || a.LocalCurrencyCode != "CLP" {
		t.Fatalf("currency fields = %q/%q", a.Currency, a.LocalCurrencyCode)
	}
}

func TestComputePriceAnalysis_NoListings(t *testing.T) {
	a := ComputePriceAnalysis(research.PlatformResults{}, "EUR", 0.9)

	if a.WholesaleFloor != nil || a.RetailCeiling != nil || a.LocalRetailMedian != nil {
		t.Fatalf("expected nil prices, got %+v", a)
	}
	if a.GrossMarginPctMin != nil || a.GrossMarginPctMax != nil {
		t.Fatalf("expected nil margins, got %+v", a)
	}
	if a.BestSourcePlatform != nil {
		t.Fatalf("expected nil best source, got %v", *a.BestSourcePlatform)
	}
}

func TestComputePriceAnalysis_ZeroPricesIgnored(t *testing.T) {
	platforms := research.PlatformResults{
		AliExpress: []research.PlatformProduct{
			listing(research.PlatformAliExpress, 0),
			{Platform: research.PlatformAliExpress, Title: "no price"},
			listing(research.PlatformAliExpress, 3.5),
		},
	}

	a := ComputePriceAnalysis(platforms, "USD", 1)
	if a.WholesaleFloor == nil || *a.WholesaleFloor != 3.5 {
		t.Fatalf("wholesale floor = %v, want 3.5", a.WholesaleFloor)
	}
}

func TestLocalMedian_ConvertsLocalOnlyPrices(t *testing.T) {
	products := []research.PlatformProduct{
		{Platform: research.PlatformLocalRetail, PriceLocal: fp(900)},  // 1 USD at rate 900
		{Platform: research.PlatformLocalRetail, PriceRaw: fp(3)},
	}

	m := localMedian(products, 900)
	if m == nil || math.Abs(*m-2) > 1e-9 {
		t.Fatalf("median = %v, want 2", m)
	}
}

func TestLocalMedian_EvenCountAverages(t *testing.T) {
	products := []research.PlatformProduct{
		{Platform: research.PlatformLocalRetail, PriceRaw: fp(10)},
		{Platform: research.PlatformLocalRetail, PriceRaw: fp(2)},
		{Platform: research.PlatformLocalRetail, PriceRaw: fp(6)},
		{Platform: research.PlatformLocalRetail, PriceRaw: fp(4)},
	}

	m := localMedian(products, 1)
	if m == nil || *m != 5 {
		t.Fatalf("median = %v, want 5", m)
	}
}
