package synth

import (
	"context"
	"encoding/json"
	"fmt"

	"importscout/internal/ai"
	"importscout/internal/research"
)

const opportunitySystem = `You are a wholesale import opportunity analyst. You will receive a complete research context as JSON containing:

1. Product Metadata: product name, category, HS code, regulatory flags, market terms, trend keywords
2. Platform Products: raw listings from AliExpress, wholesale, Amazon, eBay, Walmart, Google Shopping, local retail
3. Price Analysis: synthesized wholesale floor, retail ceiling, local median, margins, best source
4. Trend Report: Google Trends direction, score, seasonality, rising queries, regional hotspots
5. Regulation Report: duty rates, certifications, prohibited variants, labeling, licensing
6. Impositive Report: taxes, duties, landed cost breakdown, net margin after taxes
7. Market Report: competition level, competitors, channels, positioning advice

Your task: analyze ALL the data and produce a single opportunity assessment. Use the raw platform products to validate pricing and spot arbitrage; use the synthesized reports for summary metrics.

Scoring Guidelines (opportunity_score 0-100):
- 80-100: Strong opportunity. High margins, growing trend, manageable regulations, low-medium competition.
- 60-79: Good opportunity with caveats. Decent margins but some risk factors.
- 40-59: Marginal opportunity. Thin margins, flat/declining trend, or regulatory barriers.
- 20-39: Weak opportunity. Multiple red flags.
- 0-19: Avoid. Negative margins, severe blockers, or crashing demand.

Fields:
- opportunity_score: overall score 0-100.
- estimated_margin_pct: net margin after landed cost. Use the impositive net_margin_pct if available.
- best_source_platform: best platform to source from.
- best_launch_month: when to launch based on seasonality. Null if not seasonal.
- keyword_gaps: 3-5 search keywords or variants with rising demand and low competition.
- variant_suggestions: 2-4 specific product variants, bundles, or configurations.
- risk_flags: all identified risks. Be thorough.
- overall_verdict: 3-5 sentence executive summary. Should they import? Why or why not? Recommended strategy?

Be direct and honest. Don't inflate scores.`

var opportunitySchema = obj(map[string]any{
	"opportunity_score":    num("0-100"),
	"estimated_margin_pct": nullable(num()),
	"best_source_platform": nullable(enum(
		string(research.PlatformAliExpress), string(research.PlatformWholesale),
		string(research.PlatformAmazon), string(research.PlatformEbay),
		string(research.PlatformWalmart), string(research.PlatformGoogleShopping),
		string(research.PlatformLocalRetail),
	)),
	"best_launch_month":   nullable(str()),
	"keyword_gaps":        strArr(),
	"variant_suggestions": strArr(),
	"risk_flags":          strArr(),
	"overall_verdict":     str(),
}, "opportunity_score", "estimated_margin_pct", "best_source_platform",
	"best_launch_month", "keyword_gaps", "variant_suggestions", "risk_flags",
	"overall_verdict")

// ScoreOpportunity is the terminal synthesis over the full research context.
// On failure it falls back to heuristics pulled from the price analysis and
// trend report with a neutral score.
func (e *Engine) ScoreOpportunity(ctx context.Context, rctx research.OpportunityContext) research.OpportunityReport {
	contextJSON, err := json.MarshalIndent(rctx, "", "  ")
	if err != nil {
		e.log.Error("context encode failed", "session_id", rctx.SessionID, "error", err.Error())
		return heuristicOpportunity(rctx)
	}

	user := fmt.Sprintf(`Analyze this complete research context and produce an opportunity assessment:

%s

Produce a comprehensive opportunity assessment with score, risks, and actionable recommendations.`, contextJSON)

	var out struct {
		OpportunityScore   float64            `json:"opportunity_score"`
		EstimatedMarginPct *float64           `json:"estimated_margin_pct"`
		BestSourcePlatform *research.Platform `json:"best_source_platform"`
		BestLaunchMonth    *string            `json:"best_launch_month"`
		KeywordGaps        []string           `json:"keyword_gaps"`
		VariantSuggestions []string           `json:"variant_suggestions"`
		RiskFlags          []string           `json:"risk_flags"`
		OverallVerdict     string             `json:"overall_verdict"`
	}
	err = e.complete(ctx, ai.Request{
		System:     opportunitySystem,
		User:       user,
		SchemaName: "opportunity_report",
		Schema:     opportunitySchema,
		MaxTokens:  3072,
	}, &out)
	if err != nil {
		e.log.Warn("opportunity scoring failed", "session_id", rctx.SessionID, "error", err.Error())
		return heuristicOpportunity(rctx)
	}

	report := research.OpportunityReport{
		OpportunityScore:   clampScore(out.OpportunityScore),
		EstimatedMarginPct: out.EstimatedMarginPct,
		BestSourcePlatform: out.BestSourcePlatform,
		BestLaunchMonth:    out.BestLaunchMonth,
		KeywordGaps:        []string{},
		VariantSuggestions: []string{},
		RiskFlags:          []string{},
		OverallVerdict:     out.OverallVerdict,
	}
	if out.KeywordGaps != nil {
		report.KeywordGaps = out.KeywordGaps
	}
	if out.VariantSuggestions != nil {
		report.VariantSuggestions = out.VariantSuggestions
	}
	if out.RiskFlags != nil {
		report.RiskFlags = out.RiskFlags
	}
	return report
}

// heuristicOpportunity is the deterministic fallback: neutral score, margin
// and launch month pulled straight from the sub-reports.
func heuristicOpportunity(rctx research.OpportunityContext) research.OpportunityReport {
	report := research.OpportunityReport{
		OpportunityScore:   50,
		EstimatedMarginPct: rctx.PriceAnalysis.GrossMarginPctMin,
		BestSourcePlatform: rctx.PriceAnalysis.BestSourcePlatform,
		KeywordGaps:        []string{},
		VariantSuggestions: []string{},
		RiskFlags: []string{
			"Opportunity analysis could not be fully synthesized. Review sub-reports manually.",
		},
		OverallVerdict: "The opportunity scoring engine encountered an error. Please review the individual reports to form your own assessment.",
	}
	if rctx.TrendReport != nil {
		report.BestLaunchMonth = rctx.TrendReport.PeakMonth
	}
	return report
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
