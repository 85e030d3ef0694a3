package synth

import (
	"context"
	"fmt"
	"strings"

	"importscout/internal/ai"
	"importscout/internal/providers"
	"importscout/internal/research"
)

const localRetailSystem = `You extract structured product pricing data from local retail search results for a specific country.
You will receive search results about product prices in a target country/market. Extract as many distinct products/prices as possible (up to 10).

Rules:
- Try to determine both the local price and approximate USD equivalent.
- If you only know the local price, set price_usd to null.
- Extract source_domain from the URL.`

var localRetailSchema = obj(map[string]any{
	"products": arr(obj(map[string]any{
		"title":               str("Product or listing description"),
		"price_usd":           nullable(num("Price in USD, null if unknown")),
		"price_local":         nullable(num("Price in local currency, null if unknown")),
		"local_currency_code": str("3-letter currency code (e.g. CLP, BRL, MXN)"),
		"seller_name":         nullable(str("Store or retailer name")),
		"url":                 str("Source URL"),
		"source_domain":       str("Domain of the source website"),
	}, "title", "price_usd", "price_local", "local_currency_code", "url", "source_domain")),
}, "products")

// ExtractLocalRetail turns raw marketplace search hits into local_retail
// listings via extraction. Failures yield an empty slice; the
// google-shopping local variant still contributes its own listings.
func (e *Engine) ExtractLocalRetail(ctx context.Context, results []providers.TavilyResult, countryCode, countryName, localCurrency string) []research.PlatformProduct {
	if len(results) == 0 {
		return nil
	}

	blocks := make([]string, 0, len(results))
	for i, r := range results {
		content := truncateAtRune(r.Content, 500)
		blocks = append(blocks, fmt.Sprintf("[%d] %s\nURL: %s\n%s", i+1, r.Title, r.URL, content))
	}

	user := fmt.Sprintf("Target country: %s (%s)\nLocal currency: %s\n\nExtract local retail prices:\n\n%s",
		countryName, countryCode, localCurrency, strings.Join(blocks, "\n\n---\n\n"))

	var out struct {
		Products []struct {
			Title             string   `json:"title"`
			PriceUSD          *float64 `json:"price_usd"`
			PriceLocal        *float64 `json:"price_local"`
			LocalCurrencyCode string   `json:"local_currency_code"`
			SellerName        *string  `json:"seller_name"`
			URL               string   `json:"url"`
			SourceDomain      string   `json:"source_domain"`
		} `json:"products"`
	}
	err := e.complete(ctx, ai.Request{
		System:     localRetailSystem,
		User:       user,
		SchemaName: "local_retail_products",
		Schema:     localRetailSchema,
		MaxTokens:  2048,
	}, &out)
	if err != nil {
		e.log.Warn("local retail extraction failed", "country", countryCode, "error", err.Error())
		return nil
	}

	products := out.Products
	if len(products) > 10 {
		products = products[:10]
	}
	mapped := make([]research.PlatformProduct, 0, len(products))
	for _, item := range products {
		title := item.Title
		if title == "" {
			title = "Untitled"
		}
		formatted := "N/A"
		if item.PriceUSD != nil {
			formatted = fmt.Sprintf("$%.2f", *item.PriceUSD)
		}
		currency := item.LocalCurrencyCode
		if currency == "" {
			currency = localCurrency
		}
		seller := ""
		if item.SellerName != nil {
			seller = *item.SellerName
		}
		mapped = append(mapped, research.PlatformProduct{
			Platform:          research.PlatformLocalRetail,
			Title:             title,
			PriceRaw:          item.PriceUSD,
			PriceFormatted:    formatted,
			Currency:          "USD",
			PriceLocal:        item.PriceLocal,
			LocalCurrencyCode: currency,
			SellerName:        seller,
			ProductURL:        item.URL,
			SourceDomain:      item.SourceDomain,
		})
	}
	return mapped
}
