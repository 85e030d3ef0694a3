// Package pipeline wires the research session flow end to end: session
// initiation, the per-facet data stages, and the terminal opportunity
// synthesis. It sits above the session store, the synthesizer engine, and
// the external search providers; the providers are injected behind narrow
// interfaces so stage logic is testable without the network.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"

	"importscout/internal/common"
	"importscout/internal/countries"
	"importscout/internal/logger"
	"importscout/internal/providers"
	"importscout/internal/research"
	"importscout/internal/synth"

	"github.com/google/uuid"
)

// MarketplaceSearcher is the SerpAPI surface the pipeline uses.
type MarketplaceSearcher interface {
	SearchRetail(ctx context.Context, platform research.Platform, query string) []research.PlatformProduct
	SearchWholesale(ctx context.Context, query string) []research.PlatformProduct
	SearchLocal(ctx context.Context, query, countryCode, langCode string) []research.PlatformProduct
	GetTrends(ctx context.Context, keyword, geo, languageCode string) providers.TrendsRaw
}

// SupplierSearcher is the AliExpress surface. Missing credentials and
// failures both yield empty slices.
type SupplierSearcher interface {
	Search(ctx context.Context, query string) []research.PlatformProduct
}

// WebSearcher is the Tavily surface used for compliance, tax, market, and
// local-marketplace research.
type WebSearcher interface {
	Search(ctx context.Context, query string, opts providers.TavilyOptions) (*providers.TavilyResponse, error)
	SearchBatch(ctx context.Context, queries []providers.BatchQuery) ([]providers.TavilyResult, []string)
}

// Geolocator resolves a client IP to a country. Nil means unknown.
type Geolocator interface {
	Locate(ctx context.Context, ip string) *research.Geolocation
}

// RateSource resolves the USD exchange rate for a country.
type RateSource interface {
	Rate(ctx context.Context, countryCode string) providers.ExchangeRate
}

type Service struct {
	// TrendsDateRange labels trend reports with the window the trends
	// provider was configured for.
	TrendsDateRange string

	store     *research.Store
	engine    *synth.Engine
	serp      MarketplaceSearcher
	suppliers SupplierSearcher
	web       WebSearcher
	geo       Geolocator
	rates     RateSource
	log       *logger.Logger
}

func NewService(
	store *research.Store,
	engine *synth.Engine,
	serp MarketplaceSearcher,
	suppliers SupplierSearcher,
	web WebSearcher,
	geo Geolocator,
	rates RateSource,
	log *logger.Logger,
) *Service {
	return &Service{
		TrendsDateRange: "today 12-m",
		store:           store,
		engine:          engine,
		serp:            serp,
		suppliers:       suppliers,
		web:             web,
		geo:             geo,
		rates:           rates,
		log:             log.With("service", "Pipeline"),
	}
}

// InitiateSession geolocates the caller (unless a country is given),
// extracts product metadata from the raw query, and creates the session.
// Metadata extraction is the one stage allowed to hard-fail: without it no
// downstream stage has inputs.
func (s *Service) InitiateSession(ctx context.Context, rawQuery, countryCode, clientIP string) (*research.SessionInit, error) {
	var geo *research.Geolocation
	if countryCode == "" {
		geo = s.geo.Locate(ctx, clientIP)
	}

	resolved := countryCode
	if resolved == "" && geo != nil {
		resolved = geo.CountryCode
	}
	if resolved == "" {
		resolved = "US"
	}

	meta, err := s.engine.ExtractMetadata(ctx, rawQuery, resolved)
	if err != nil {
		return nil, fmt.Errorf("extract product metadata: %w", err)
	}

	sessionID, err := common.NewULID()
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateSession(ctx, &research.Session{
		SessionID:   sessionID,
		RawQuery:    rawQuery,
		CountryCode: resolved,
	}); err != nil {
		return nil, err
	}

	meta.SessionID = sessionID
	if err := s.store.SaveStage(ctx, sessionID, research.StageProductMetadata, meta); err != nil {
		return nil, err
	}

	geolocation := research.Geolocation{
		CountryCode: resolved,
		CountryName: countries.Name(resolved),
	}
	if countryCode == "" && geo != nil {
		geolocation = *geo
	}

	s.log.Info("session initiated", "session_id", sessionID, "country", resolved)
	return &research.SessionInit{
		SessionID:       sessionID,
		Geolocation:     geolocation,
		ProductMetadata: *meta,
	}, nil
}

// SourcingInput drives the sourcing stage. SessionID is optional: without it
// the result is returned but not persisted.
type SourcingInput struct {
	NormalizedQuery string `json:"normalized_query"`
	CountryCode     string `json:"country_code"`
	SessionID       string `json:"session_id,omitempty"`
}

// RunSourcing fans out to every sourcing channel concurrently, stamps local
// prices, and synthesizes the price analysis. Zero results across all
// platforms produce a deterministic empty analysis instead of an extraction
// call. Does not require product metadata.
func (s *Service) RunSourcing(ctx context.Context, in SourcingInput) (*research.SourcingResult, error) {
	countryName := countries.Name(in.CountryCode)
	localCurrency := countries.Currency(in.CountryCode)

	var (
		rate        providers.ExchangeRate
		aliexpress  []research.PlatformProduct
		wholesale   []research.PlatformProduct
		retail      map[research.Platform][]research.PlatformProduct
		localRetail []research.PlatformProduct
	)

	var wg sync.WaitGroup
	wg.Add(5)
	go func() {
		defer wg.Done()
		rate = s.rates.Rate(ctx, in.CountryCode)
	}()
	go func() {
		defer wg.Done()
		aliexpress = s.suppliers.Search(ctx, in.NormalizedQuery)
	}()
	go func() {
		defer wg.Done()
		wholesale = s.serp.SearchWholesale(ctx, in.NormalizedQuery)
	}()
	go func() {
		defer wg.Done()
		retail = s.searchRetailPlatforms(ctx, in.NormalizedQuery)
	}()
	go func() {
		defer wg.Done()
		localRetail = s.searchLocalRetail(ctx, in.NormalizedQuery, in.CountryCode, countryName, localCurrency)
	}()
	wg.Wait()

	platforms := research.PlatformResults{
		AliExpress:     stampLocal(aliexpress, rate.Rate, rate.CurrencyCode),
		Wholesale:      stampLocal(wholesale, rate.Rate, rate.CurrencyCode),
		Amazon:         stampLocal(retail[research.PlatformAmazon], rate.Rate, rate.CurrencyCode),
		Ebay:           stampLocal(retail[research.PlatformEbay], rate.Rate, rate.CurrencyCode),
		Walmart:        stampLocal(retail[research.PlatformWalmart], rate.Rate, rate.CurrencyCode),
		GoogleShopping: stampLocal(retail[research.PlatformGoogleShopping], rate.Rate, rate.CurrencyCode),
		LocalRetail:    stampLocalRetail(localRetail, rate.Rate, rate.CurrencyCode),
	}

	total := len(platforms.AliExpress) + len(platforms.Wholesale) + len(platforms.Amazon) +
		len(platforms.Ebay) + len(platforms.Walmart) + len(platforms.GoogleShopping) +
		len(platforms.LocalRetail)

	var analysis research.PriceAnalysis
	if total > 0 {
		analysis = s.engine.SynthesizePrices(ctx, platforms, rate.CurrencyCode, rate.Rate)
	} else {
		analysis = research.PriceAnalysis{
			Currency:          "USD",
			LocalCurrencyCode: rate.CurrencyCode,
			ExchangeRate:      rate.Rate,
			Summary:           "No product results found on any platform for this query.",
		}
	}

	result := &research.SourcingResult{
		Platforms:         platforms,
		PriceAnalysis:     analysis,
		LocalCurrencyCode: rate.CurrencyCode,
		ExchangeRate:      rate.Rate,
	}

	if in.SessionID != "" {
		if err := s.store.SaveStage(ctx, in.SessionID, research.StageSourcing, result); err != nil {
			return nil, err
		}
	}
	s.log.Info("sourcing complete", "session_id", in.SessionID, "total_results", total)
	return result, nil
}

// searchRetailPlatforms fans out the four retail engines concurrently.
func (s *Service) searchRetailPlatforms(ctx context.Context, query string) map[research.Platform][]research.PlatformProduct {
	engines := []research.Platform{
		research.PlatformAmazon,
		research.PlatformEbay,
		research.PlatformWalmart,
		research.PlatformGoogleShopping,
	}
	results := make([][]research.PlatformProduct, len(engines))

	var wg sync.WaitGroup
	wg.Add(len(engines))
	for i := range engines {
		go func(i int) {
			defer wg.Done()
			results[i] = s.serp.SearchRetail(ctx, engines[i], query)
		}(i)
	}
	wg.Wait()

	out := make(map[research.Platform][]research.PlatformProduct, len(engines))
	for i, platform := range engines {
		out[platform] = results[i]
	}
	return out
}

// searchLocalRetail combines country-scoped google shopping with listings
// extracted from the suggested local marketplace domains.
func (s *Service) searchLocalRetail(ctx context.Context, query, countryCode, countryName, localCurrency string) []research.PlatformProduct {
	suggestion := s.engine.SuggestMarketplaces(ctx, countryCode, countryName)

	var shopping, extracted []research.PlatformProduct
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		shopping = s.serp.SearchLocal(ctx, query, countryCode, suggestion.LanguageCode)
	}()
	go func() {
		defer wg.Done()
		extracted = s.searchMarketplaceListings(ctx, query, suggestion.Domains, countryCode, countryName, localCurrency)
	}()
	wg.Wait()

	return append(shopping, extracted...)
}

func (s *Service) searchMarketplaceListings(ctx context.Context, query string, domains []string, countryCode, countryName, localCurrency string) []research.PlatformProduct {
	if len(domains) == 0 {
		return nil
	}
	resp, err := s.web.Search(ctx, fmt.Sprintf("%s price %s", query, countryName), providers.TavilyOptions{
		IncludeDomains: domains,
		SearchDepth:    "basic",
		MaxResults:     8,
	})
	if err != nil {
		s.log.Warn("local marketplace search failed", "country", countryCode, "error", err.Error())
		return nil
	}
	if len(resp.Results) == 0 {
		return nil
	}
	return s.engine.ExtractLocalRetail(ctx, resp.Results, countryCode, countryName, localCurrency)
}

// stampLocal mirrors each USD price into the local currency, rounded to
// cents.
func stampLocal(products []research.PlatformProduct, rate float64, currency string) []research.PlatformProduct {
	for i := range products {
		if products[i].PriceRaw != nil {
			local := math.Round(*products[i].PriceRaw*rate*100) / 100
			products[i].PriceLocal = &local
		}
		products[i].LocalCurrencyCode = currency
	}
	return products
}

// stampLocalRetail keeps prices the extractor already localized and only
// fills the gaps.
func stampLocalRetail(products []research.PlatformProduct, rate float64, currency string) []research.PlatformProduct {
	for i := range products {
		if products[i].PriceLocal == nil && products[i].PriceRaw != nil {
			local := math.Round(*products[i].PriceRaw*rate*100) / 100
			products[i].PriceLocal = &local
		}
		if products[i].LocalCurrencyCode == "" {
			products[i].LocalCurrencyCode = currency
		}
	}
	return products
}

// TrendsInput drives the trends stage. The first keyword is the primary
// search term.
type TrendsInput struct {
	TrendKeywords       []string `json:"trend_keywords"`
	Geo                 string   `json:"geo"`
	UseRegionalLanguage bool     `json:"use_regional_language,omitempty"`
	SessionID           string   `json:"session_id,omitempty"`
}

// RunTrends optionally localizes the primary keyword, fans out the four
// trends payloads, and synthesizes the report.
func (s *Service) RunTrends(ctx context.Context, in TrendsInput) (*research.TrendReport, error) {
	if len(in.TrendKeywords) == 0 {
		return nil, fmt.Errorf("pipeline: at least one trend keyword is required")
	}
	primary := in.TrendKeywords[0]

	searchKeyword := primary
	languageCode := "en"
	languageName := "English"
	var originalKeyword, translatedKeyword string
	if in.UseRegionalLanguage {
		tr := s.engine.TranslateKeyword(ctx, primary, in.Geo)
		searchKeyword = tr.Keyword
		originalKeyword = primary
		translatedKeyword = tr.Keyword
		languageCode = tr.LanguageCode
		languageName = tr.LanguageName
	}

	langParam := ""
	if in.UseRegionalLanguage {
		langParam = languageCode
	}
	raw := s.serp.GetTrends(ctx, searchKeyword, in.Geo, langParam)

	report := s.engine.SynthesizeTrends(ctx, searchKeyword, in.Geo, raw, s.TrendsDateRange)
	report.OriginalKeyword = originalKeyword
	report.TranslatedKeyword = translatedKeyword
	report.LanguageCode = languageCode
	report.LanguageName = languageName

	if in.SessionID != "" {
		if err := s.store.SaveStage(ctx, in.SessionID, research.StageTrends, report); err != nil {
			return nil, err
		}
	}
	return &report, nil
}

// runResearch fans out the built queries through the web searcher with the
// compliance-research options.
func (s *Service) runResearch(ctx context.Context, queries []synth.ResearchQuery) ([]providers.TavilyResult, []string) {
	batch := make([]providers.BatchQuery, len(queries))
	for i, q := range queries {
		batch[i] = providers.BatchQuery{
			Query: q.Query,
			Opts: providers.TavilyOptions{
				IncludeDomains: q.IncludeDomains,
				SearchDepth:    "advanced",
				MaxResults:     5,
				IncludeAnswer:  true,
			},
		}
	}
	return s.web.SearchBatch(ctx, batch)
}

// RegulationInput drives the compliance stage.
type RegulationInput struct {
	HSCode                string   `json:"hs_code"`
	CountryCode           string   `json:"country_code"`
	RegulatoryFlags       []string `json:"regulatory_flags,omitempty"`
	ImportRegulations     []string `json:"import_regulations,omitempty"`
	ImpositiveRegulations []string `json:"impositive_regulations,omitempty"`
	SessionID             string   `json:"session_id,omitempty"`
}

func (s *Service) RunRegulation(ctx context.Context, in RegulationInput) (*research.RegulationReport, error) {
	queries := synth.BuildRegulationQueries(in.HSCode, in.CountryCode, in.RegulatoryFlags, in.ImportRegulations, in.ImpositiveRegulations)
	results, answers := s.runResearch(ctx, queries)

	report := s.engine.SynthesizeRegulation(ctx, in.HSCode, in.CountryCode, results, answers)

	if in.SessionID != "" {
		if err := s.store.SaveStage(ctx, in.SessionID, research.StageRegulation, report); err != nil {
			return nil, err
		}
	}
	return &report, nil
}

// ImpositiveInput drives the tax/landed-cost stage.
type ImpositiveInput struct {
	HSCode                string   `json:"hs_code"`
	CountryCode           string   `json:"country_code"`
	ProductName           string   `json:"product_name"`
	ImpositiveRegulations []string `json:"impositive_regulations,omitempty"`
	SessionID             string   `json:"session_id,omitempty"`
}

// RunImpositive researches taxes and computes the landed cost against the
// session's live sourcing figures when they exist; otherwise only the
// exchange rate anchors the pricing context.
func (s *Service) RunImpositive(ctx context.Context, in ImpositiveInput) (*research.ImpositiveReport, error) {
	var pricing synth.PricingContext
	if in.SessionID != "" {
		var sourcing research.SourcingResult
		found, err := s.store.GetStage(ctx, in.SessionID, research.StageSourcing, &sourcing)
		if err != nil {
			return nil, err
		}
		if found {
			pricing = synth.PricingContext{
				WholesaleFloorUSD:    sourcing.PriceAnalysis.WholesaleFloor,
				LocalRetailMedianUSD: sourcing.PriceAnalysis.LocalRetailMedian,
				ExchangeRate:         sourcing.ExchangeRate,
				LocalCurrencyCode:    sourcing.LocalCurrencyCode,
				BestSourcePlatform:   sourcing.PriceAnalysis.BestSourcePlatform,
			}
		}
	}
	if pricing.LocalCurrencyCode == "" {
		rate := s.rates.Rate(ctx, in.CountryCode)
		pricing.ExchangeRate = rate.Rate
		pricing.LocalCurrencyCode = rate.CurrencyCode
	}

	queries := synth.BuildImpositiveQueries(in.HSCode, in.ProductName, in.CountryCode, in.ImpositiveRegulations)
	results, answers := s.runResearch(ctx, queries)

	report := s.engine.SynthesizeImpositive(ctx, in.HSCode, in.CountryCode, in.ProductName, pricing, results, answers)

	if in.SessionID != "" {
		if err := s.store.SaveStage(ctx, in.SessionID, research.StageImpositive, report); err != nil {
			return nil, err
		}
	}
	return &report, nil
}

// MarketInput drives the market-intelligence stage.
type MarketInput struct {
	MarketSearchTerms []string `json:"market_search_terms"`
	CountryCode       string   `json:"country_code"`
	SessionID         string   `json:"session_id,omitempty"`
}

func (s *Service) RunMarket(ctx context.Context, in MarketInput) (*research.MarketReport, error) {
	queries := synth.BuildMarketQueries(in.MarketSearchTerms, in.CountryCode)
	results, answers := s.runResearch(ctx, queries)

	report := s.engine.SynthesizeMarket(ctx, in.CountryCode, results, answers)

	if in.SessionID != "" {
		if err := s.store.SaveStage(ctx, in.SessionID, research.StageMarket, report); err != nil {
			return nil, err
		}
	}
	return &report, nil
}

// SynthesizeOpportunity runs the terminal synthesis at most once per
// session. A cached assessment short-circuits before any model call.
// Product metadata and sourcing are mandatory; the other facets are passed
// as nil when their stage never ran.
func (s *Service) SynthesizeOpportunity(ctx context.Context, sessionID string) (*research.OpportunityReport, error) {
	cached, err := s.store.GetAssessment(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if cached != nil {
		var report research.OpportunityReport
		if err := json.Unmarshal([]byte(cached.ReportJSON), &report); err != nil {
			return nil, err
		}
		return &report, nil
	}

	stages, err := s.store.GetAllStages(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	metaRaw, okMeta := stages[research.StageProductMetadata]
	sourcingRaw, okSourcing := stages[research.StageSourcing]
	if !okMeta || !okSourcing {
		return nil, research.ErrIncompleteSession
	}

	var meta research.ProductMetadata
	if err := json.Unmarshal(metaRaw, &meta); err != nil {
		return nil, fmt.Errorf("decode product metadata: %w", err)
	}
	var sourcing research.SourcingResult
	if err := json.Unmarshal(sourcingRaw, &sourcing); err != nil {
		return nil, fmt.Errorf("decode sourcing result: %w", err)
	}

	rctx := research.OpportunityContext{
		SessionID:         sessionID,
		ProductMetadata:   meta,
		Platforms:         sourcing.Platforms,
		PriceAnalysis:     sourcing.PriceAnalysis,
		TrendReport:       decodeStage[research.TrendReport](stages, research.StageTrends),
		RegulationReport:  decodeStage[research.RegulationReport](stages, research.StageRegulation),
		ImpositiveReport:  decodeStage[research.ImpositiveReport](stages, research.StageImpositive),
		MarketReport:      decodeStage[research.MarketReport](stages, research.StageMarket),
		LocalCurrencyCode: sourcing.LocalCurrencyCode,
		ExchangeRate:      sourcing.ExchangeRate,
	}

	s.log.Info("synthesizing opportunity", "session_id", sessionID, "stages", len(stages))
	report := s.engine.ScoreOpportunity(ctx, rctx)
	report.SessionID = sessionID

	contextJSON, err := json.Marshal(rctx)
	if err != nil {
		return nil, err
	}
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return nil, err
	}
	if err := s.store.SaveAssessment(ctx, &research.Assessment{
		ID:          uuid.NewString(),
		SessionID:   sessionID,
		ContextJSON: string(contextJSON),
		ReportJSON:  string(reportJSON),
	}); err != nil {
		return nil, err
	}
	return &report, nil
}

// GetOpportunity returns the cached terminal report, or nil when the
// session was never synthesized.
func (s *Service) GetOpportunity(ctx context.Context, sessionID string) (*research.OpportunityReport, error) {
	cached, err := s.store.GetAssessment(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if cached == nil {
		return nil, nil
	}
	var report research.OpportunityReport
	if err := json.Unmarshal([]byte(cached.ReportJSON), &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// decodeStage decodes an optional stage row, returning nil when the row is
// absent or unreadable.
func decodeStage[T any](stages map[string]json.RawMessage, key string) *T {
	raw, ok := stages[key]
	if !ok {
		return nil
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return &out
}
