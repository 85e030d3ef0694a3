package synth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"importscout/internal/ai"
	"importscout/internal/logger"
	"importscout/internal/providers"
	"importscout/internal/research"
)

// failingCompleter rejects every extraction call.
type failingCompleter struct {
	calls int
}

func (f *failingCompleter) Complete(ctx context.Context, req ai.Request) (json.RawMessage, error) {
	_ = ctx
	_ = req
	f.calls++
	return nil, errors.New("provider unavailable")
}

func failingEngine() *Engine {
	return NewEngine(&failingCompleter{}, nil, logger.NewNop())
}

func tavilyFixture(n int) []providers.TavilyResult {
	out := make([]providers.TavilyResult, n)
	for i := range out {
		out[i] = providers.TavilyResult{
			Title:   fmt.Sprintf("Result %d", i+1),
			URL:     fmt.Sprintf("https://www.aduana.gob.cl/page-%d", i+1),
			Content: strings.Repeat("x", 300),
			Score:   0.9,
		}
	}
	return out
}

func TestSynthesizeRegulation_Degrades(t *testing.T) {
	e := failingEngine()

	report := e.SynthesizeRegulation(context.Background(), "8544.42", "CL", tavilyFixture(7), nil)

	if report.DutyRatePercent != nil || report.QuotaInfo != nil || report.LicensingInfo != nil {
		t.Fatalf("expected nil extracted fields, got %+v", report)
	}
	if report.RequiredCertifications == nil || len(report.RequiredCertifications) != 0 {
		t.Fatalf("expected empty certifications, got %v", report.RequiredCertifications)
	}
	if !strings.Contains(report.Summary, "consult official customs authorities") {
		t.Fatalf("unexpected summary: %q", report.Summary)
	}

	// fallback sources are derived mechanically from the first 5 raw results
	if len(report.Sources) != 5 {
		t.Fatalf("got %d sources, want 5", len(report.Sources))
	}
	first := report.Sources[0]
	if first.Title != "Result 1" || first.Domain != "www.aduana.gob.cl" {
		t.Fatalf("unexpected source: %+v", first)
	}
	if len(first.Snippet) > 200 {
		t.Fatalf("snippet not truncated: %d chars", len(first.Snippet))
	}
}

func TestSynthesizeTrends_Degrades(t *testing.T) {
	e := failingEngine()

	report := e.SynthesizeTrends(context.Background(), "usb cable", "CL", providers.TrendsRaw{}, "today 12-m")

	if report.TrendScore != 50 || report.TrendDirection != research.TrendFlat {
		t.Fatalf("expected neutral trend, got score=%v direction=%q", report.TrendScore, report.TrendDirection)
	}
	if report.Timeseries == nil || report.Regions == nil || report.RisingQueries == nil || report.RisingTopics == nil {
		t.Fatalf("expected empty slices, got %+v", report)
	}
	if report.Keyword != "usb cable" || report.Geo != "CL" || report.DateRange != "today 12-m" {
		t.Fatalf("identity fields lost: %+v", report)
	}
}

func TestSynthesizeImpositive_DegradesKeepingPricing(t *testing.T) {
	e := failingEngine()
	pricing := PricingContext{
		WholesaleFloorUSD:    fp(4.5),
		LocalRetailMedianUSD: fp(12),
		ExchangeRate:         900,
		LocalCurrencyCode:    "CLP",
	}

	report := e.SynthesizeImpositive(context.Background(), "8544.42", "CL", "usb cable", pricing, tavilyFixture(2), nil)

	if report.ImportDutyPct != nil || report.VATRatePct != nil || report.TotalTaxBurden != nil {
		t.Fatalf("expected nil rates, got %+v", report)
	}
	if report.LandedCost.WholesaleUnitPriceUSD == nil || *report.LandedCost.WholesaleUnitPriceUSD != 4.5 {
		t.Fatalf("live wholesale price lost: %+v", report.LandedCost)
	}
	if report.LandedCost.TotalLandedCostUSD != nil {
		t.Fatalf("expected nil landed total, got %v", *report.LandedCost.TotalLandedCostUSD)
	}
	if !strings.Contains(report.TaxSummary, "customs broker") {
		t.Fatalf("unexpected summary: %q", report.TaxSummary)
	}
	if len(report.Sources) != 2 {
		t.Fatalf("got %d sources, want 2", len(report.Sources))
	}
}

func TestSynthesizeMarket_Degrades(t *testing.T) {
	e := failingEngine()

	report := e.SynthesizeMarket(context.Background(), "CL", tavilyFixture(1), nil)

	if report.CompetitionLevel != research.CompetitionMedium {
		t.Fatalf("competition = %q, want medium", report.CompetitionLevel)
	}
	if len(report.TopCompetitors) != 0 || len(report.TopChannels) != 0 {
		t.Fatalf("expected empty lists, got %+v", report)
	}
	if len(report.Sources) != 1 {
		t.Fatalf("got %d sources, want 1", len(report.Sources))
	}
}

func TestScoreOpportunity_HeuristicFallback(t *testing.T) {
	e := failingEngine()

	best := research.PlatformWholesale
	peak := "November"
	rctx := research.OpportunityContext{
		SessionID: "sess-1",
		PriceAnalysis: research.PriceAnalysis{
			GrossMarginPctMin:  fp(42),
			BestSourcePlatform: &best,
		},
		TrendReport: &research.TrendReport{PeakMonth: &peak},
	}

	report := e.ScoreOpportunity(context.Background(), rctx)

	if report.OpportunityScore != 50 {
		t.Fatalf("score = %v, want 50", report.OpportunityScore)
	}
	if report.EstimatedMarginPct == nil || *report.EstimatedMarginPct != 42 {
		t.Fatalf("margin = %v, want 42", report.EstimatedMarginPct)
	}
	if report.BestSourcePlatform == nil || *report.BestSourcePlatform != research.PlatformWholesale {
		t.Fatalf("best source = %v", report.BestSourcePlatform)
	}
	if report.BestLaunchMonth == nil || *report.BestLaunchMonth != "November" {
		t.Fatalf("launch month = %v", report.BestLaunchMonth)
	}
	if len(report.RiskFlags) != 1 {
		t.Fatalf("risk flags = %v", report.RiskFlags)
	}
}

// scriptedCompleter returns a canned payload per schema name.
type scriptedCompleter struct {
	responses map[string]string
	calls     []string
}

func (s *scriptedCompleter) Complete(ctx context.Context, req ai.Request) (json.RawMessage, error) {
	_ = ctx
	s.calls = append(s.calls, req.SchemaName)
	payload, ok := s.responses[req.SchemaName]
	if !ok {
		return nil, errors.New("no scripted response")
	}
	return json.RawMessage(payload), nil
}

func TestSynthesizePrices_ModelContributesProseOnly(t *testing.T) {
	fake := &scriptedCompleter{responses: map[string]string{
		"price_summary": `{"summary":"Strong arbitrage from wholesale to local retail.","arbitrage_signal":"Buy wholesale at $4, sell locally at $8."}`,
	}}
	e := NewEngine(fake, nil, logger.NewNop())

	platforms := research.PlatformResults{
		Wholesale:   []research.PlatformProduct{listing(research.PlatformWholesale, 4)},
		LocalRetail: []research.PlatformProduct{listing(research.PlatformLocalRetail, 8)},
	}

	a := e.SynthesizePrices(context.Background(), platforms, "CLP", 900)

	if a.WholesaleFloor == nil || *a.WholesaleFloor != 4 {
		t.Fatalf("floor = %v, want 4", a.WholesaleFloor)
	}
	if a.Summary != "Strong arbitrage from wholesale to local retail." {
		t.Fatalf("summary = %q", a.Summary)
	}
	if a.ArbitrageSignal == nil {
		t.Fatalf("expected arbitrage signal")
	}
}
