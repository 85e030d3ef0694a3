package synth

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"importscout/internal/ai"
	"importscout/internal/research"
)

// ComputePriceAnalysis derives the numeric price analysis from the platform
// listings. Pure function; the model only contributes prose on top of it.
//
// Rules:
//   - wholesale floor = minimum price across aliexpress and wholesale
//   - retail ceiling = maximum price across the four retail platforms
//   - local retail median over local_retail listings, converting
//     local-currency-only entries at the exchange rate
//   - gross_margin_pct_min = (median - floor) / median * 100
//   - gross_margin_pct_max = (ceiling - floor) / ceiling * 100
//   - every "_local" mirror = USD value * exchange rate
func ComputePriceAnalysis(platforms research.PlatformResults, localCurrency string, exchangeRate float64) research.PriceAnalysis {
	floor, floorPlatform := minPrice(
		research.PlatformAliExpress, platforms.AliExpress,
		research.PlatformWholesale, platforms.Wholesale,
	)
	ceiling := maxPrice(platforms.Amazon, platforms.Ebay, platforms.Walmart, platforms.GoogleShopping)
	median := localMedian(platforms.LocalRetail, exchangeRate)

	analysis := research.PriceAnalysis{
		WholesaleFloor:     floor,
		RetailCeiling:      ceiling,
		LocalRetailMedian:  median,
		Currency:           "USD",
		LocalCurrencyCode:  localCurrency,
		ExchangeRate:       exchangeRate,
		BestSourcePlatform: floorPlatform,
	}

	if floor != nil && median != nil && *median > 0 {
		m := (*median - *floor) / *median * 100
		analysis.GrossMarginPctMin = &m
	}
	if floor != nil && ceiling != nil && *ceiling > 0 {
		m := (*ceiling - *floor) / *ceiling * 100
		analysis.GrossMarginPctMax = &m
	}

	if exchangeRate > 0 {
		analysis.WholesaleFloorLocal = mulPtr(floor, exchangeRate)
		analysis.RetailCeilingLocal = mulPtr(ceiling, exchangeRate)
		analysis.LocalRetailMedianLocal = mulPtr(median, exchangeRate)
	}
	return analysis
}

func minPrice(pa research.Platform, a []research.PlatformProduct, pb research.Platform, b []research.PlatformProduct) (*float64, *research.Platform) {
	var best *float64
	var platform *research.Platform
	scan := func(p research.Platform, products []research.PlatformProduct) {
		for _, item := range products {
			if item.PriceRaw == nil || *item.PriceRaw <= 0 {
				continue
			}
			if best == nil || *item.PriceRaw < *best {
				v, pl := *item.PriceRaw, p
				best, platform = &v, &pl
			}
		}
	}
	scan(pa, a)
	scan(pb, b)
	return best, platform
}

func maxPrice(lists ...[]research.PlatformProduct) *float64 {
	var best *float64
	for _, products := range lists {
		for _, item := range products {
			if item.PriceRaw == nil || *item.PriceRaw <= 0 {
				continue
			}
			if best == nil || *item.PriceRaw > *best {
				v := *item.PriceRaw
				best = &v
			}
		}
	}
	return best
}

// localMedian computes the median USD price of local listings. Entries with
// only a local-currency price are converted at the exchange rate.
func localMedian(products []research.PlatformProduct, exchangeRate float64) *float64 {
	var prices []float64
	for _, item := range products {
		switch {
		case item.PriceRaw != nil && *item.PriceRaw > 0:
			prices = append(prices, *item.PriceRaw)
		case item.PriceLocal != nil && *item.PriceLocal > 0 && exchangeRate > 0:
			prices = append(prices, *item.PriceLocal/exchangeRate)
		}
	}
	if len(prices) == 0 {
		return nil
	}
	sort.Float64s(prices)
	mid := len(prices) / 2
	var m float64
	if len(prices)%2 == 1 {
		m = prices[mid]
	} else {
		m = (prices[mid-1] + prices[mid]) / 2
	}
	return &m
}

func mulPtr(v *float64, rate float64) *float64 {
	if v == nil {
		return nil
	}
	out := *v * rate
	return &out
}

const priceSummarySystem = `You are a wholesale sourcing analyst. You will receive product listings from up to 7 data sources and a pre-computed price analysis:

WHOLESALE sources:
- "aliexpress" (structured API data, supplier/wholesale pricing)
- "wholesale" (Alibaba, DHgate, Made-in-China, Global Sources, extracted via web search)

RETAIL sources:
- "amazon", "ebay", "walmart", "google_shopping" (US retail platforms)

LOCAL RETAIL:
- "local_retail" (retail prices in the user's target market/country)

Guidelines:
- summary: 2-4 sentence synthesis covering wholesale supply, retail pricing, local market, and importable margin.
- arbitrage_signal: one sentence naming the strongest price gap worth exploiting, or null if none stands out.
- If a source has no results, note it in the summary but still assess what is there.`

var priceSummarySchema = obj(map[string]any{
	"summary":          str(),
	"arbitrage_signal": nullable(str()),
}, "summary", "arbitrage_signal")

// SynthesizePrices computes the price analysis and asks the model for the
// summary prose. When extraction fails the numbers stand and the summary
// degrades to a deterministic description.
func (e *Engine) SynthesizePrices(ctx context.Context, platforms research.PlatformResults, localCurrency string, exchangeRate float64) research.PriceAnalysis {
	analysis := ComputePriceAnalysis(platforms, localCurrency, exchangeRate)

	user := fmt.Sprintf("EXCHANGE RATE: 1 USD = %g %s\n\nPre-computed analysis:\n%s\n\nListings by source:\n\n%s",
		exchangeRate, localCurrency, describeAnalysis(analysis), describePlatforms(platforms, localCurrency))

	var out struct {
		Summary         string  `json:"summary"`
		ArbitrageSignal *string `json:"arbitrage_signal"`
	}
	err := e.complete(ctx, ai.Request{
		System:     priceSummarySystem,
		User:       user,
		SchemaName: "price_summary",
		Schema:     priceSummarySchema,
		MaxTokens:  1500,
	}, &out)
	if err != nil {
		e.log.Warn("price summary synthesis failed", "error", err.Error())
		analysis.Summary = degradedPriceSummary(analysis)
		return analysis
	}

	analysis.Summary = out.Summary
	analysis.ArbitrageSignal = out.ArbitrageSignal
	if analysis.Summary == "" {
		analysis.Summary = degradedPriceSummary(analysis)
	}
	return analysis
}

func degradedPriceSummary(a research.PriceAnalysis) string {
	var parts []string
	if a.WholesaleFloor != nil {
		parts = append(parts, fmt.Sprintf("wholesale floor $%.2f", *a.WholesaleFloor))
	}
	if a.RetailCeiling != nil {
		parts = append(parts, fmt.Sprintf("retail ceiling $%.2f", *a.RetailCeiling))
	}
	if a.LocalRetailMedian != nil {
		parts = append(parts, fmt.Sprintf("local retail median $%.2f", *a.LocalRetailMedian))
	}
	if len(parts) == 0 {
		return "No priced listings were found across the sourcing platforms; pricing could not be analyzed."
	}
	return "Automated price narrative is unavailable. Computed figures: " + strings.Join(parts, ", ") + "."
}

func describeAnalysis(a research.PriceAnalysis) string {
	fmtPtr := func(v *float64) string {
		if v == nil {
			return "N/A"
		}
		return fmt.Sprintf("$%.2f", *v)
	}
	best := "unknown"
	if a.BestSourcePlatform != nil {
		best = string(*a.BestSourcePlatform)
	}
	return fmt.Sprintf("wholesale floor: %s, retail ceiling: %s, local retail median: %s, best source: %s",
		fmtPtr(a.WholesaleFloor), fmtPtr(a.RetailCeiling), fmtPtr(a.LocalRetailMedian), best)
}

func describePlatforms(platforms research.PlatformResults, localCurrency string) string {
	sections := []struct {
		name     string
		products []research.PlatformProduct
	}{
		{"ALIEXPRESS", platforms.AliExpress},
		{"WHOLESALE", platforms.Wholesale},
		{"AMAZON", platforms.Amazon},
		{"EBAY", platforms.Ebay},
		{"WALMART", platforms.Walmart},
		{"GOOGLE_SHOPPING", platforms.GoogleShopping},
		{"LOCAL_RETAIL", platforms.LocalRetail},
	}

	var sb strings.Builder
	for i, sec := range sections {
		if i > 0 {
			sb.WriteString("\n\n---\n\n")
		}
		if len(sec.products) == 0 {
			fmt.Fprintf(&sb, "## %s\nNo results found.", sec.name)
			continue
		}
		fmt.Fprintf(&sb, "## %s (%d results)\n", sec.name, len(sec.products))
		for j, p := range sec.products {
			fmt.Fprintf(&sb, "%d. %q\n   Price USD: %s", j+1, p.Title, p.PriceFormatted)
			if p.PriceLocal != nil {
				currency := p.LocalCurrencyCode
				if currency == "" {
					currency = localCurrency
				}
				fmt.Fprintf(&sb, "\n   Price local: %g %s", *p.PriceLocal, currency)
			}
			if p.MOQ != nil {
				unit := p.Unit
				if unit == "" {
					unit = "units"
				}
				fmt.Fprintf(&sb, "\n   MOQ: %g %s", *p.MOQ, unit)
			}
			if p.Rating != nil {
				fmt.Fprintf(&sb, "\n   Rating: %g/5", *p.Rating)
			}
			if p.SellerName != "" {
				fmt.Fprintf(&sb, "\n   Seller: %s", p.SellerName)
			}
			if p.SourceDomain != "" {
				fmt.Fprintf(&sb, "\n   Source: %s", p.SourceDomain)
			}
			if p.Condition != "" {
				fmt.Fprintf(&sb, "\n   Condition: %s", p.Condition)
			}
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
