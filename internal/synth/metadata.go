package synth

import (
	"context"
	"fmt"

	"importscout/internal/ai"
	"importscout/internal/research"
)

const metadataSystem = `You are a wholesale product research assistant. Given a raw search query and optionally a destination country, extract structured product metadata for downstream sourcing, trends, regulation, and market research.

Guidelines:
- hs_code should be the most likely 6-digit HS code. Use "000000" if truly unknown.
- regulatory_flags: product certifications and standards (FCC, CE, RoHS, FDA, etc.).
- import_regulations: rules for bringing goods into a country, such as customs procedures, import permits, licensing, prohibited/restricted items, country-of-origin requirements.
- impositive_regulations: tax and duty rules, such as HS tariff rates, duty classifications, VAT/GST applicability, excise duties, preferential agreements (e.g. USMCA, EU GSP).
- trend_keywords should be 1-5 terms ordered from most specific to broadest. Include the product name and relevant variations.
- normalized_query should be a clean, lowercase search string optimized for product search APIs (no special characters, no country references).
- extraction_confidence reflects how certain you are about the extraction (0.5 for vague queries, 0.9+ for specific products).`

var metadataSchema = obj(map[string]any{
	"product_name":           str(),
	"product_category":       str(),
	"hs_code":                str("Most likely 6-digit HS code, or 000000"),
	"regulatory_flags":       strArr(),
	"import_regulations":     strArr(),
	"impositive_regulations": strArr(),
	"market_search_terms":    strArr(),
	"trend_keywords":         strArr(),
	"normalized_query":       str(),
	"extraction_confidence":  num(),
}, "product_name", "product_category", "hs_code", "regulatory_flags",
	"import_regulations", "impositive_regulations", "market_search_terms",
	"trend_keywords", "normalized_query", "extraction_confidence")

// ExtractMetadata turns a raw query into structured product metadata. This is
// the one synthesizer allowed to fail hard: without metadata no downstream
// stage can run meaningfully.
func (e *Engine) ExtractMetadata(ctx context.Context, rawQuery, countryCode string) (*research.ProductMetadata, error) {
	countryContext := ""
	if countryCode != "" {
		countryContext = fmt.Sprintf("The user is located in %s. Consider local regulations and market context for this country.", countryCode)
	}

	user := fmt.Sprintf("Raw search query: %q\n%s\n\nExtract the structured product metadata.", rawQuery, countryContext)

	var meta research.ProductMetadata
	err := e.complete(ctx, ai.Request{
		System:     metadataSystem,
		User:       user,
		SchemaName: "product_metadata",
		Schema:     metadataSchema,
	}, &meta)
	if err != nil {
		return nil, err
	}

	if len(meta.TrendKeywords) > 5 {
		meta.TrendKeywords = meta.TrendKeywords[:5]
	}
	if len(meta.TrendKeywords) == 0 {
		meta.TrendKeywords = []string{meta.NormalizedQuery}
	}
	return &meta, nil
}
