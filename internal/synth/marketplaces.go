package synth

import (
	"context"
	"fmt"
	"time"

	"importscout/internal/ai"
)

const marketplaceSuggestTTL = 24 * time.Hour

const marketplaceSystem = `Given a country, return the top 5-8 e-commerce and retail marketplace domains where consumers in that country typically buy products online. Include both local marketplaces and international ones popular in that country.

Examples:
- Argentina: mercadolibre.com.ar, fravega.com, garbarino.com, musimundo.com, amazon.com
- Brazil: mercadolivre.com.br, magazineluiza.com.br, americanas.com.br, amazon.com.br
- Chile: mercadolibre.cl, falabella.com, ripley.cl, paris.cl, lider.cl
- Mexico: mercadolibre.com.mx, amazon.com.mx, liverpool.com.mx, walmart.com.mx
- USA: amazon.com, walmart.com, target.com, bestbuy.com, costco.com

Use country-specific domain variants when they exist. Also provide the primary language code for Google searches.`

var marketplaceSchema = obj(map[string]any{
	"domains":       arr(str("Country-specific marketplace domain, e.g. mercadolibre.cl")),
	"language_code": str("ISO 639-1 language code for this country's primary language"),
}, "domains", "language_code")

// MarketplaceSuggestion is the per-country marketplace domain list used to
// scope local-retail searches.
type MarketplaceSuggestion struct {
	Domains      []string `json:"domains"`
	LanguageCode string   `json:"language_code"`
}

// SuggestMarketplaces resolves the local marketplace domains for a country.
// Cross-session lookup, cached in redis. Degrades to an open search (no
// domains, English) on failure.
func (e *Engine) SuggestMarketplaces(ctx context.Context, countryCode, countryName string) MarketplaceSuggestion {
	cacheKey := "marketplaces:" + countryCode
	if e.cache != nil {
		var cached MarketplaceSuggestion
		if err := e.cache.GetJSON(ctx, cacheKey, &cached); err == nil && len(cached.Domains) > 0 {
			return cached
		}
	}

	var out MarketplaceSuggestion
	err := e.complete(ctx, ai.Request{
		System:     marketplaceSystem,
		User:       fmt.Sprintf("Country: %s (%s)", countryName, countryCode),
		SchemaName: "marketplace_suggestion",
		Schema:     marketplaceSchema,
		MaxTokens:  512,
	}, &out)
	if err != nil {
		e.log.Warn("marketplace suggestion failed", "country", countryCode, "error", err.Error())
		return MarketplaceSuggestion{Domains: nil, LanguageCode: "en"}
	}
	if out.LanguageCode == "" {
		out.LanguageCode = "en"
	}

	if e.cache != nil {
		if err := e.cache.SetJSON(ctx, cacheKey, out, marketplaceSuggestTTL); err != nil {
			e.log.Warn("marketplace cache write failed", "error", err.Error())
		}
	}
	return out
}
