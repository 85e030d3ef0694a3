package synth

import (
	"context"
	"fmt"
	"strings"

	"importscout/internal/ai"
	"importscout/internal/countries"
	"importscout/internal/providers"
	"importscout/internal/research"
)

// PricingContext carries the live sourcing figures the landed-cost
// computation runs against.
type PricingContext struct {
	WholesaleFloorUSD    *float64
	LocalRetailMedianUSD *float64
	ExchangeRate         float64
	LocalCurrencyCode    string
	BestSourcePlatform   *research.Platform
}

// BuildImpositiveQueries produces the 4-5 tax and landed-cost research
// queries. Separate from the compliance queries: these answer "how much
// will it cost?".
func BuildImpositiveQueries(hsCode, productName, countryCode string, impositiveRegulations []string) []ResearchQuery {
	countryName := countries.Name(countryCode)
	domains := countries.TaxDomains(countryCode)

	queries := []ResearchQuery{
		{
			Query:          fmt.Sprintf("HS code %s import tariff duty rate percentage %s 2025 2026", hsCode, countryName),
			Purpose:        "duty_rate",
			IncludeDomains: domains,
		},
		{
			Query:          fmt.Sprintf("%s import VAT sales tax rate %s consumer goods", countryName, productName),
			Purpose:        "vat_rate",
			IncludeDomains: domains,
		},
		{
			Query:          fmt.Sprintf("%s import additional fees customs processing surcharge anti-dumping %s", countryName, hsCode),
			Purpose:        "additional_fees",
			IncludeDomains: domains,
		},
		{
			Query:   fmt.Sprintf("how to calculate total landed cost importing %s to %s shipping duty tax", productName, countryName),
			Purpose: "landed_cost_guide",
		},
	}

	if len(impositiveRegulations) > 0 {
		taxes := impositiveRegulations
		if len(taxes) > 3 {
			taxes = taxes[:3]
		}
		queries = append(queries, ResearchQuery{
			Query:          fmt.Sprintf("%s import %s rate %s %s", countryName, strings.Join(taxes, " "), hsCode, productName),
			Purpose:        "specific_impositive",
			IncludeDomains: domains,
		})
	}

	return queries
}

// ComputeLandedCost derives the per-unit cost breakdown from the extracted
// rates and the live wholesale price. Pure function.
//
// CIF = wholesale + shipping; duty = CIF x duty rate; VAT compounds on
// CIF + duty, never CIF alone; total = CIF + duty + VAT + fees. An unknown
// wholesale price nils every landed-cost figure while rate fields stay with
// the caller.
func ComputeLandedCost(pricing PricingContext, shippingUSD, dutyRatePct, vatRatePct, otherFeesUSD *float64) research.LandedCostBreakdown {
	breakdown := research.LandedCostBreakdown{
		WholesaleUnitPriceUSD: pricing.WholesaleFloorUSD,
		LocalRetailPriceUSD:   pricing.LocalRetailMedianUSD,
	}
	if pricing.WholesaleFloorUSD == nil {
		return breakdown
	}
	wholesale := *pricing.WholesaleFloorUSD

	// Without an extracted shipping estimate, assume air freight for small
	// goods at 15% of product cost.
	shipping := wholesale * 0.15
	if shippingUSD != nil {
		shipping = *shippingUSD
	}
	breakdown.EstimatedShippingPerUnitUSD = &shipping

	cif := wholesale + shipping
	breakdown.CIFValueUSD = &cif

	duty := cif * pctOrZero(dutyRatePct) / 100
	breakdown.DutyAmountUSD = &duty

	vat := (cif + duty) * pctOrZero(vatRatePct) / 100
	breakdown.VATAmountUSD = &vat

	fees := 0.0
	if otherFeesUSD != nil {
		fees = *otherFeesUSD
	}
	breakdown.OtherFeesUSD = &fees

	total := cif + duty + vat + fees
	breakdown.TotalLandedCostUSD = &total

	if pricing.ExchangeRate > 0 {
		local := total * pricing.ExchangeRate
		breakdown.TotalLandedCostLocal = &local
	}

	if wholesale > 0 {
		effective := (total - wholesale) / wholesale * 100
		breakdown.EffectiveTaxRatePct = &effective
	}

	if pricing.LocalRetailMedianUSD != nil && *pricing.LocalRetailMedianUSD > 0 {
		margin := (*pricing.LocalRetailMedianUSD - total) / *pricing.LocalRetailMedianUSD * 100
		breakdown.NetMarginPct = &margin
	}
	return breakdown
}

func pctOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func impositiveSystem(pricing PricingContext) string {
	wholesale := "Not available"
	if pricing.WholesaleFloorUSD != nil {
		wholesale = fmt.Sprintf("$%.2f USD", *pricing.WholesaleFloorUSD)
	}
	median := "Not available"
	if pricing.LocalRetailMedianUSD != nil {
		median = fmt.Sprintf("$%.2f USD", *pricing.LocalRetailMedianUSD)
	}
	best := "Unknown"
	if pricing.BestSourcePlatform != nil {
		best = string(*pricing.BestSourcePlatform)
	}

	return fmt.Sprintf(`You are an international trade cost analyst specializing in import taxation.

Your task: analyze web search results about import taxes/duties for a product and extract the applicable rates and per-unit cost estimates. The landed-cost arithmetic is computed downstream from your extracted rates.

## REAL PRICING DATA (from live marketplace search)
- Wholesale floor price (best sourcing price found): %s
- Local retail median (what it sells for in target market): %s
- Best sourcing platform: %s
- Exchange rate: 1 USD = %g %s

## INSTRUCTIONS
1. import_duty_pct: the customs duty rate for this HS code from official sources. If multiple rates exist (MFN, preferential), use MFN.
2. vat_rate_pct: the standard VAT/sales tax/IVA rate applied to imports (e.g. 19%% Chile, 21%% Argentina, 20%% UK).
3. additional_taxes: any other taxes. Anti-dumping duties, luxury tax, environmental levies, customs processing fees, port handling. Include name, rate, description, and the base it applies to (CIF value, FOB value, etc.).
4. total_tax_burden_pct: effective total tax rate on the import (duty + VAT + additional, compounded if applicable).
5. estimated_shipping_per_unit_usd: a realistic per-unit shipping estimate (typically 10-20%% of product cost for small goods via air, 3-8%% for sea freight).
6. other_fees_usd: estimated per-unit sum of the additional fees above, or null.
7. tax_summary: 2-3 sentences explaining the total tax burden in plain language.
8. importer_tips: 3-5 practical tips about managing import costs (free trade agreements, bulk shipping, VAT recovery, customs valuation, timing).
9. sources: cite relevant sources with title, URL, domain, and snippet.

Use ONLY rates from the provided search results. If a specific rate is not found, use null. Do NOT guess rates.`,
		wholesale, median, best, pricing.ExchangeRate, pricing.LocalCurrencyCode)
}

var impositiveSchema = obj(map[string]any{
	"import_duty_pct": nullable(num()),
	"vat_rate_pct":    nullable(num()),
	"additional_taxes": arr(obj(map[string]any{
		"name":        str(),
		"rate_pct":    nullable(num()),
		"description": str(),
		"applies_to":  str(),
	}, "name", "rate_pct", "description", "applies_to")),
	"total_tax_burden_pct":            nullable(num()),
	"estimated_shipping_per_unit_usd": nullable(num()),
	"other_fees_usd":                  nullable(num()),
	"tax_summary":                     str(),
	"importer_tips":                   strArr(),
	"sources":                         arr(sourceSchema),
}, "import_duty_pct", "vat_rate_pct", "additional_taxes", "total_tax_burden_pct",
	"estimated_shipping_per_unit_usd", "other_fees_usd", "tax_summary",
	"importer_tips", "sources")

// SynthesizeImpositive produces the tax/landed-cost report: the model
// extracts rates from search results, the breakdown is computed here. The
// degraded report nils every number but keeps the live pricing inputs.
func (e *Engine) SynthesizeImpositive(ctx context.Context, hsCode, countryCode, productName string, pricing PricingContext, results []providers.TavilyResult, answers []string) research.ImpositiveReport {
	report := research.ImpositiveReport{
		CountryCode:     countryCode,
		HSCode:          hsCode,
		AdditionalTaxes: []research.TaxLineItem{},
		LandedCost: research.LandedCostBreakdown{
			WholesaleUnitPriceUSD: pricing.WholesaleFloorUSD,
			LocalRetailPriceUSD:   pricing.LocalRetailMedianUSD,
		},
		TaxSummary:   "Unable to compute landed cost at this time. Please consult a customs broker for accurate tax calculations.",
		ImporterTips: []string{},
		Sources:      fallbackSources(results),
	}

	answerBlock := strings.Join(answers, "\n\n")
	if answerBlock == "" {
		answerBlock = "No AI summaries available."
	}

	user := fmt.Sprintf(`Analyze import taxes for:
- Product: %s
- HS Code: %s
- Target Country: %s

## Search AI Summaries
%s

## Web Search Results
%s

Extract all tax rates and shipping estimates, and provide practical importer tips.`,
		productName, hsCode, countryCode, answerBlock, formatSearchResults(results))

	var out struct {
		ImportDutyPct               *float64               `json:"import_duty_pct"`
		VATRatePct                  *float64               `json:"vat_rate_pct"`
		AdditionalTaxes             []research.TaxLineItem `json:"additional_taxes"`
		TotalTaxBurdenPct           *float64               `json:"total_tax_burden_pct"`
		EstimatedShippingPerUnitUSD *float64               `json:"estimated_shipping_per_unit_usd"`
		OtherFeesUSD                *float64               `json:"other_fees_usd"`
		TaxSummary                  string                 `json:"tax_summary"`
		ImporterTips                []string               `json:"importer_tips"`
		Sources                     []research.Source      `json:"sources"`
	}
	err := e.complete(ctx, ai.Request{
		System:     impositiveSystem(pricing),
		User:       user,
		SchemaName: "impositive_report",
		Schema:     impositiveSchema,
		MaxTokens:  4096,
	}, &out)
	if err != nil {
		e.log.Warn("impositive synthesis failed", "hs_code", hsCode, "country", countryCode, "error", err.Error())
		return report
	}

	report.ImportDutyPct = out.ImportDutyPct
	report.VATRatePct = out.VATRatePct
	report.TotalTaxBurden = out.TotalTaxBurdenPct
	report.TaxSummary = out.TaxSummary
	if out.AdditionalTaxes != nil {
		report.AdditionalTaxes = out.AdditionalTaxes
	}
	if out.ImporterTips != nil {
		report.ImporterTips = out.ImporterTips
	}
	if out.Sources != nil {
		report.Sources = out.Sources
	}
	report.LandedCost = ComputeLandedCost(pricing, out.EstimatedShippingPerUnitUSD, out.ImportDutyPct, out.VATRatePct, out.OtherFeesUSD)
	return report
}
