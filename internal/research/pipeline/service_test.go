package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"importscout/internal/ai"
	"importscout/internal/logger"
	"importscout/internal/providers"
	"importscout/internal/research"
	"importscout/internal/synth"
)

// scriptedCompleter answers by schema name and counts calls per schema.
type scriptedCompleter struct {
	responses map[string]string
	calls     map[string]int
}

func (s *scriptedCompleter) Complete(ctx context.Context, req ai.Request) (json.RawMessage, error) {
	_ = ctx
	if s.calls == nil {
		s.calls = make(map[string]int)
	}
	s.calls[req.SchemaName]++
	payload, ok := s.responses[req.SchemaName]
	if !ok {
		return nil, errors.New("no scripted response for " + req.SchemaName)
	}
	return json.RawMessage(payload), nil
}

type fakeSerp struct {
	retail    map[research.Platform][]research.PlatformProduct
	wholesale []research.PlatformProduct
	local     []research.PlatformProduct
}

func (f *fakeSerp) SearchRetail(ctx context.Context, platform research.Platform, query string) []research.PlatformProduct {
	return f.retail[platform]
}
func (f *fakeSerp) SearchWholesale(ctx context.Context, query string) []research.PlatformProduct {
	return f.wholesale
}
func (f *fakeSerp) SearchLocal(ctx context.Context, query, countryCode, langCode string) []research.PlatformProduct {
	return f.local
}
func (f *fakeSerp) GetTrends(ctx context.Context, keyword, geo, languageCode string) providers.TrendsRaw {
	return providers.TrendsRaw{
		Timeseries:     json.RawMessage("{}"),
		GeoMap:         json.RawMessage("{}"),
		RelatedQueries: json.RawMessage("{}"),
		RelatedTopics:  json.RawMessage("{}"),
	}
}

type fakeSuppliers struct {
	products []research.PlatformProduct
}

func (f *fakeSuppliers) Search(ctx context.Context, query string) []research.PlatformProduct {
	return f.products
}

type fakeWeb struct{}

func (fakeWeb) Search(ctx context.Context, query string, opts providers.TavilyOptions) (*providers.TavilyResponse, error) {
	return &providers.TavilyResponse{}, nil
}
func (fakeWeb) SearchBatch(ctx context.Context, queries []providers.BatchQuery) ([]providers.TavilyResult, []string) {
	return nil, nil
}

type fakeGeo struct {
	loc   *research.Geolocation
	calls int
}

func (f *fakeGeo) Locate(ctx context.Context, ip string) *research.Geolocation {
	f.calls++
	return f.loc
}

type fakeRates struct {
	rate providers.ExchangeRate
}

func (f *fakeRates) Rate(ctx context.Context, countryCode string) providers.ExchangeRate {
	return f.rate
}

func openTestStore(t *testing.T) *research.Store {
	t.Helper()
	db, err := gorm.Open(gormsqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	s := research.NewStore(db)
	if err := s.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return s
}

const metadataPayload = `{
	"product_name": "USB-C Cable",
	"product_category": "electronics",
	"hs_code": "8544.42",
	"regulatory_flags": ["FCC"],
	"import_regulations": [],
	"impositive_regulations": ["IVA"],
	"market_search_terms": ["usb c cable"],
	"trend_keywords": ["usb c cable"],
	"normalized_query": "usb c cable",
	"extraction_confidence": 0.93
}`

const opportunityPayload = `{
	"opportunity_score": 72,
	"estimated_margin_pct": 45.5,
	"best_source_platform": "wholesale",
	"best_launch_month": "November",
	"keyword_gaps": ["usb c cable 100w"],
	"variant_suggestions": ["braided 2m"],
	"risk_flags": ["FCC certification required"],
	"overall_verdict": "Healthy margins with manageable compliance. Import it."
}`

func newTestService(t *testing.T, completer synth.Completer, serp *fakeSerp, geo *fakeGeo, rate providers.ExchangeRate) (*Service, *research.Store) {
	t.Helper()
	store := openTestStore(t)
	engine := synth.NewEngine(completer, nil, logger.NewNop())
	svc := NewService(store, engine, serp, &fakeSuppliers{}, fakeWeb{}, geo, &fakeRates{rate: rate}, logger.NewNop())
	return svc, store
}

func TestInitiateSession_ExplicitCountrySkipsGeolocation(t *testing.T) {
	fake := &scriptedCompleter{responses: map[string]string{"product_metadata": metadataPayload}}
	geo := &fakeGeo{loc: &research.Geolocation{CountryCode: "BR", CountryName: "Brazil"}}
	svc, store := newTestService(t, fake, &fakeSerp{}, geo, providers.ExchangeRate{CurrencyCode: "USD", Rate: 1})

	init, err := svc.InitiateSession(context.Background(), "usb c cable", "CL", "203.0.113.9")
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if geo.calls != 0 {
		t.Fatalf("geolocation called %d times with explicit country", geo.calls)
	}
	if init.Geolocation.CountryCode != "CL" || init.Geolocation.CountryName != "Chile" {
		t.Fatalf("geolocation = %+v", init.Geolocation)
	}
	if init.ProductMetadata.HSCode != "8544.42" {
		t.Fatalf("metadata = %+v", init.ProductMetadata)
	}
	if init.SessionID == "" {
		t.Fatalf("missing session id")
	}

	var meta research.ProductMetadata
	found, err := store.GetStage(context.Background(), init.SessionID, research.StageProductMetadata, &meta)
	if err != nil || !found {
		t.Fatalf("metadata stage not persisted: found=%v err=%v", found, err)
	}
	if meta.SessionID != init.SessionID {
		t.Fatalf("persisted metadata session = %q", meta.SessionID)
	}
}

func TestInitiateSession_GeolocationFallback(t *testing.T) {
	fake := &scriptedCompleter{responses: map[string]string{"product_metadata": metadataPayload}}
	geo := &fakeGeo{loc: &research.Geolocation{CountryCode: "BR", CountryName: "Brazil", City: "Sao Paulo"}}
	svc, _ := newTestService(t, fake, &fakeSerp{}, geo, providers.ExchangeRate{CurrencyCode: "USD", Rate: 1})

	init, err := svc.InitiateSession(context.Background(), "usb c cable", "", "203.0.113.9")
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if geo.calls != 1 {
		t.Fatalf("geolocation calls = %d, want 1", geo.calls)
	}
	if init.Geolocation.CountryCode != "BR" || init.Geolocation.City != "Sao Paulo" {
		t.Fatalf("geolocation = %+v", init.Geolocation)
	}
}

func TestInitiateSession_DefaultsToUS(t *testing.T) {
	fake := &scriptedCompleter{responses: map[string]string{"product_metadata": metadataPayload}}
	geo := &fakeGeo{} // unknown location
	svc, _ := newTestService(t, fake, &fakeSerp{}, geo, providers.ExchangeRate{CurrencyCode: "USD", Rate: 1})

	init, err := svc.InitiateSession(context.Background(), "usb c cable", "", "127.0.0.1")
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if init.Geolocation.CountryCode != "US" {
		t.Fatalf("country = %q, want US", init.Geolocation.CountryCode)
	}
}

func TestRunSourcing_StampsLocalPricesAndPersists(t *testing.T) {
	fake := &scriptedCompleter{responses: map[string]string{
		"marketplace_suggestion": `{"domains":[],"language_code":"es"}`,
		"price_summary":          `{"summary":"Wholesale at $4 undercuts local retail.","arbitrage_signal":null}`,
	}}
	serp := &fakeSerp{
		wholesale: []research.PlatformProduct{{
			Platform: research.PlatformWholesale,
			Title:    "bulk usb c cable",
			PriceRaw: fp(4),
			Currency: "USD",
		}},
	}
	svc, store := newTestService(t, fake, serp, &fakeGeo{}, providers.ExchangeRate{CurrencyCode: "CLP", Rate: 900})

	result, err := svc.RunSourcing(context.Background(), SourcingInput{
		NormalizedQuery: "usb c cable",
		CountryCode:     "CL",
		SessionID:       "sess-1",
	})
	if err != nil {
		t.Fatalf("sourcing: %v", err)
	}

	if len(result.Platforms.Wholesale) != 1 {
		t.Fatalf("wholesale results = %d", len(result.Platforms.Wholesale))
	}
	item := result.Platforms.Wholesale[0]
	if item.PriceLocal == nil || *item.PriceLocal != 3600 {
		t.Fatalf("price local = %v, want 3600", item.PriceLocal)
	}
	if item.LocalCurrencyCode != "CLP" {
		t.Fatalf("local currency = %q", item.LocalCurrencyCode)
	}
	if result.ExchangeRate != 900 || result.LocalCurrencyCode != "CLP" {
		t.Fatalf("result rate fields = %v %q", result.ExchangeRate, result.LocalCurrencyCode)
	}
	if result.PriceAnalysis.WholesaleFloor == nil || *result.PriceAnalysis.WholesaleFloor != 4 {
		t.Fatalf("wholesale floor = %v", result.PriceAnalysis.WholesaleFloor)
	}

	// persisted even though product metadata never existed for the session
	var stored research.SourcingResult
	found, err := store.GetStage(context.Background(), "sess-1", research.StageSourcing, &stored)
	if err != nil || !found {
		t.Fatalf("sourcing stage not persisted: found=%v err=%v", found, err)
	}
}

func TestRunSourcing_NoResultsYieldsEmptyAnalysis(t *testing.T) {
	fake := &scriptedCompleter{responses: map[string]string{
		"marketplace_suggestion": `{"domains":[],"language_code":"en"}`,
	}}
	svc, _ := newTestService(t, fake, &fakeSerp{}, &fakeGeo{}, providers.ExchangeRate{CurrencyCode: "USD", Rate: 1})

	result, err := svc.RunSourcing(context.Background(), SourcingInput{
		NormalizedQuery: "unobtainium widget",
		CountryCode:     "US",
	})
	if err != nil {
		t.Fatalf("sourcing: %v", err)
	}
	if result.PriceAnalysis.Summary != "No product results found on any platform for this query." {
		t.Fatalf("summary = %q", result.PriceAnalysis.Summary)
	}
	if result.PriceAnalysis.WholesaleFloor != nil || result.PriceAnalysis.BestSourcePlatform != nil {
		t.Fatalf("expected empty analysis, got %+v", result.PriceAnalysis)
	}
	// no price_summary extraction for an empty result set
	if fake.calls["price_summary"] != 0 {
		t.Fatalf("price summary called %d times", fake.calls["price_summary"])
	}
}

func TestSynthesizeOpportunity_RequiresMetadataAndSourcing(t *testing.T) {
	fake := &scriptedCompleter{responses: map[string]string{"opportunity_report": opportunityPayload}}
	svc, store := newTestService(t, fake, &fakeSerp{}, &fakeGeo{}, providers.ExchangeRate{CurrencyCode: "USD", Rate: 1})
	ctx := context.Background()

	_, err := svc.SynthesizeOpportunity(ctx, "sess-1")
	if !errors.Is(err, research.ErrIncompleteSession) {
		t.Fatalf("err = %v, want ErrIncompleteSession", err)
	}

	// sourcing alone is still incomplete
	if err := store.SaveStage(ctx, "sess-1", research.StageSourcing, research.SourcingResult{ExchangeRate: 1, LocalCurrencyCode: "USD"}); err != nil {
		t.Fatalf("save sourcing: %v", err)
	}
	_, err = svc.SynthesizeOpportunity(ctx, "sess-1")
	if !errors.Is(err, research.ErrIncompleteSession) {
		t.Fatalf("err = %v, want ErrIncompleteSession", err)
	}
	if fake.calls["opportunity_report"] != 0 {
		t.Fatalf("model called before preconditions met")
	}
}

func TestSynthesizeOpportunity_IdempotentViaAssessmentCache(t *testing.T) {
	fake := &scriptedCompleter{responses: map[string]string{"opportunity_report": opportunityPayload}}
	svc, store := newTestService(t, fake, &fakeSerp{}, &fakeGeo{}, providers.ExchangeRate{CurrencyCode: "USD", Rate: 1})
	ctx := context.Background()

	meta := research.ProductMetadata{SessionID: "sess-1", ProductName: "USB-C Cable", HSCode: "8544.42", NormalizedQuery: "usb c cable"}
	if err := store.SaveStage(ctx, "sess-1", research.StageProductMetadata, meta); err != nil {
		t.Fatalf("save metadata: %v", err)
	}
	sourcing := research.SourcingResult{
		PriceAnalysis:     research.PriceAnalysis{Currency: "USD", Summary: "ok"},
		LocalCurrencyCode: "USD",
		ExchangeRate:      1,
	}
	if err := store.SaveStage(ctx, "sess-1", research.StageSourcing, sourcing); err != nil {
		t.Fatalf("save sourcing: %v", err)
	}

	first, err := svc.SynthesizeOpportunity(ctx, "sess-1")
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if first.OpportunityScore != 72 || first.SessionID != "sess-1" {
		t.Fatalf("report = %+v", first)
	}

	second, err := svc.SynthesizeOpportunity(ctx, "sess-1")
	if err != nil {
		t.Fatalf("resynthesize: %v", err)
	}
	if second.OpportunityScore != first.OpportunityScore || second.OverallVerdict != first.OverallVerdict {
		t.Fatalf("second report differs: %+v", second)
	}
	if fake.calls["opportunity_report"] != 1 {
		t.Fatalf("model calls = %d, want 1", fake.calls["opportunity_report"])
	}

	got, err := svc.GetOpportunity(ctx, "sess-1")
	if err != nil || got == nil {
		t.Fatalf("get opportunity: %v %v", got, err)
	}
	if got.OpportunityScore != 72 {
		t.Fatalf("cached score = %v", got.OpportunityScore)
	}
}

func TestGetOpportunity_NilWhenNeverSynthesized(t *testing.T) {
	svc, _ := newTestService(t, &scriptedCompleter{}, &fakeSerp{}, &fakeGeo{}, providers.ExchangeRate{CurrencyCode: "USD", Rate: 1})

	got, err := svc.GetOpportunity(context.Background(), "nope")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil report, got %+v", got)
	}
}

func TestRunStage_UnknownStage(t *testing.T) {
	svc, _ := newTestService(t, &scriptedCompleter{}, &fakeSerp{}, &fakeGeo{}, providers.ExchangeRate{CurrencyCode: "USD", Rate: 1})

	err := svc.RunStage(context.Background(), &research.Job{ID: "j1", SessionID: "sess-1", Stage: "bogus"})
	if err == nil {
		t.Fatalf("expected error for unknown stage")
	}
}

func fp(v float64) *float64 { return &v }
