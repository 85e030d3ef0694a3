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

// BuildMarketQueries produces the 5 competitive-landscape research queries.
func BuildMarketQueries(marketTerms []string, countryCode string) []ResearchQuery {
	countryName := countries.Name(countryCode)
	terms := strings.Join(marketTerms, " ")

	return []ResearchQuery{
		{Query: fmt.Sprintf("top competitors %s market %s 2025 2026", terms, countryName), Purpose: "competitors"},
		{Query: fmt.Sprintf("best e-commerce channels to sell %s %s", terms, countryName), Purpose: "channels"},
		{Query: fmt.Sprintf("consumer demand %s market size growth %s", terms, countryName), Purpose: "demand"},
		{Query: fmt.Sprintf("%s product positioning strategy %s market", terms, countryName), Purpose: "positioning"},
		{Query: fmt.Sprintf("%s market trends competitive landscape %s", terms, countryName), Purpose: "landscape"},
	}
}

const marketSystem = `You are a market research analyst helping importers understand the competitive landscape for a product category in a specific country.

Your task: analyze web search results about the market for a product category in a target country. Produce a practical market intelligence report.

Guidelines:
1. Competition Level: assess as "low", "medium", "high", or "very_high" based on the number and strength of existing players, saturation signals, barriers to entry, and brand dominance.
2. Top Competitors: the 3-8 most relevant competitors or brands actually selling in the target country, local and international.
3. Top Channels: the 3-6 best sales/distribution channels for this product in this country, prioritized by volume and accessibility for a new entrant.
4. Positioning Tip: one actionable paragraph (2-4 sentences) on how a new entrant should position: price point, differentiation angle, target segment. Be specific.
5. Summary: 2-3 sentence executive summary of the market opportunity, naming notable gaps.
6. Sources: cite all sources used, with relevance_score 0-1.

Only include information supported by the search results, and be honest about competition level.`

var marketSchema = obj(map[string]any{
	"competition_level": enum(research.CompetitionLow, research.CompetitionMedium, research.CompetitionHigh, research.CompetitionVeryHigh),
	"top_competitors":   strArr(),
	"top_channels":      strArr(),
	"positioning_tip":   str(),
	"summary":           str(),
	"sources":           arr(sourceSchema),
}, "competition_level", "top_competitors", "top_channels", "positioning_tip", "summary", "sources")

// SynthesizeMarket produces the competitive-intelligence report. The
// degraded report assumes medium competition with mechanically-derived
// sources.
func (e *Engine) SynthesizeMarket(ctx context.Context, countryCode string, results []providers.TavilyResult, answers []string) research.MarketReport {
	report := research.MarketReport{
		CountryCode:      countryCode,
		CompetitionLevel: research.CompetitionMedium,
		TopCompetitors:   []string{},
		TopChannels:      []string{},
		PositioningTip:   "Unable to generate positioning advice. Please research the local market manually.",
		Summary:          "Unable to synthesize market data. Please consult local market research reports.",
		Sources:          fallbackSources(results),
	}

	answerBlock := strings.Join(answers, "\n\n")
	if answerBlock == "" {
		answerBlock = "No AI summaries available."
	}

	user := fmt.Sprintf(`Analyze the market landscape for importing into country %q:

## Search AI Summaries
%s

## Web Search Results
%s

Synthesize into a practical market intelligence report for a product importer.`,
		countryCode, answerBlock, formatSearchResults(results))

	var out struct {
		CompetitionLevel string            `json:"competition_level"`
		TopCompetitors   []string          `json:"top_competitors"`
		TopChannels      []string          `json:"top_channels"`
		PositioningTip   string            `json:"positioning_tip"`
		Summary          string            `json:"summary"`
		Sources          []research.Source `json:"sources"`
	}
	err := e.complete(ctx, ai.Request{
		System:     marketSystem,
		User:       user,
		SchemaName: "market_report",
		Schema:     marketSchema,
		MaxTokens:  3072,
	}, &out)
	if err != nil {
		e.log.Warn("market synthesis failed", "country", countryCode, "error", err.Error())
		return report
	}

	report.CompetitionLevel = out.CompetitionLevel
	report.PositioningTip = out.PositioningTip
	report.Summary = out.Summary
	if len(out.TopCompetitors) > 10 {
		out.TopCompetitors = out.TopCompetitors[:10]
	}
	if len(out.TopChannels) > 10 {
		out.TopChannels = out.TopChannels[:10]
	}
	if out.TopCompetitors != nil {
		report.TopCompetitors = out.TopCompetitors
	}
	if out.TopChannels != nil {
		report.TopChannels = out.TopChannels
	}
	if out.Sources != nil {
		report.Sources = out.Sources
	}
	return report
}
