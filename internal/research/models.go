// Package research holds the domain model and orchestration for
// import-opportunity sessions: a session ties together product metadata,
// marketplace sourcing results, and the per-facet reports synthesized from
// external search data.
package research

import (
	"time"
)

// Platform identifies one of the seven sourcing channels.
type Platform string

const (
	PlatformAliExpress     Platform = "aliexpress"
	PlatformWholesale      Platform = "wholesale"
	PlatformAmazon         Platform = "amazon"
	PlatformEbay           Platform = "ebay"
	PlatformWalmart        Platform = "walmart"
	PlatformGoogleShopping Platform = "google_shopping"
	PlatformLocalRetail    Platform = "local_retail"
)

// Stage tags key per-session data rows. One row per (session, stage).
const (
	StageProductMetadata = "product_metadata"
	StageSourcing        = "sourcing"
	StageTrends          = "trends"
	StageRegulation      = "regulation"
	StageImpositive      = "impositive"
	StageMarket          = "market"
)

// ProductMetadata is extracted once per session from the raw query and read
// by every downstream stage.
type ProductMetadata struct {
	SessionID              string   `json:"session_id,omitempty"`
	ProductName            string   `json:"product_name"`
	ProductCategory        string   `json:"product_category"`
	HSCode                 string   `json:"hs_code"`
	RegulatoryFlags        []string `json:"regulatory_flags"`
	ImportRegulations      []string `json:"import_regulations"`
	ImpositiveRegulations  []string `json:"impositive_regulations"`
	MarketSearchTerms      []string `json:"market_search_terms"`
	TrendKeywords          []string `json:"trend_keywords"`
	NormalizedQuery        string   `json:"normalized_query"`
	ExtractionConfidence   float64  `json:"extraction_confidence"`
}

// PlatformProduct is one listing fetched from one platform. Immutable once
// fetched. Missing prices are nil, never zero.
type PlatformProduct struct {
	Platform          Platform `json:"platform"`
	ExternalID        string   `json:"external_id,omitempty"`
	Title             string   `json:"title"`
	PriceRaw          *float64 `json:"price_raw"`
	PriceFormatted    string   `json:"price_formatted"`
	Currency          string   `json:"currency"`
	PriceType         string   `json:"price_type,omitempty"`
	PriceLocal        *float64 `json:"price_local,omitempty"`
	LocalCurrencyCode string   `json:"local_currency_code,omitempty"`
	SourceDomain      string   `json:"source_domain,omitempty"`
	MOQ               *float64 `json:"moq,omitempty"`
	Unit              string   `json:"unit,omitempty"`
	Rating            *float64 `json:"rating,omitempty"`
	ReviewCount       *float64 `json:"review_count,omitempty"`
	SellerName        string   `json:"seller_name,omitempty"`
	IsVerified        bool     `json:"is_verified,omitempty"`
	ProductURL        string   `json:"product_url,omitempty"`
	ImageURL          string   `json:"image_url,omitempty"`
	Condition         string   `json:"condition,omitempty"`
	SalesVolume       string   `json:"sales_volume,omitempty"`
}

// PlatformResults holds the per-platform listing arrays for one session.
type PlatformResults struct {
	AliExpress     []PlatformProduct `json:"aliexpress"`
	Wholesale      []PlatformProduct `json:"wholesale"`
	Amazon         []PlatformProduct `json:"amazon"`
	Ebay           []PlatformProduct `json:"ebay"`
	Walmart        []PlatformProduct `json:"walmart"`
	GoogleShopping []PlatformProduct `json:"google_shopping"`
	LocalRetail    []PlatformProduct `json:"local_retail"`
}

// PriceAnalysis is derived from all platform listings. Recomputed whenever
// sourcing is re-run.
type PriceAnalysis struct {
	WholesaleFloor         *float64  `json:"wholesale_floor"`
	WholesaleFloorLocal    *float64  `json:"wholesale_floor_local,omitempty"`
	RetailCeiling          *float64  `json:"retail_ceiling"`
	RetailCeilingLocal     *float64  `json:"retail_ceiling_local,omitempty"`
	LocalRetailMedian      *float64  `json:"local_retail_median,omitempty"`
	LocalRetailMedianLocal *float64  `json:"local_retail_median_local,omitempty"`
	Currency               string    `json:"currency"`
	LocalCurrencyCode      string    `json:"local_currency_code,omitempty"`
	ExchangeRate           float64   `json:"exchange_rate,omitempty"`
	GrossMarginPctMin      *float64  `json:"gross_margin_pct_min"`
	GrossMarginPctMax      *float64  `json:"gross_margin_pct_max"`
	BestSourcePlatform     *Platform `json:"best_source_platform"`
	ArbitrageSignal        *string   `json:"arbitrage_signal"`
	Summary                string    `json:"summary"`
}

// SourcingResult is the full output of the sourcing stage, stored under the
// "sourcing" stage tag.
type SourcingResult struct {
	Platforms         PlatformResults `json:"platforms"`
	PriceAnalysis     PriceAnalysis   `json:"price_analysis"`
	LocalCurrencyCode string          `json:"local_currency_code"`
	ExchangeRate      float64         `json:"exchange_rate"`
}

// Trend direction buckets, ordered strongest-up to strongest-down.
const (
	TrendUp        = "up"
	TrendUpRight   = "up_right"
	TrendFlat      = "flat"
	TrendDownRight = "down_right"
	TrendDown      = "down"
)

type TrendTimeseriesPoint struct {
	WeekStart     string  `json:"week_start"`
	InterestValue float64 `json:"interest_value"`
}

type TrendRegion struct {
	RegionName    string  `json:"region_name"`
	RegionCode    string  `json:"region_code,omitempty"`
	InterestValue float64 `json:"interest_value"`
}

type TrendQuery struct {
	QueryText string `json:"query_text"`
	Type      string `json:"type"`
	Value     string `json:"value"`
}

type TrendTopic struct {
	TopicTitle string `json:"topic_title"`
	TopicType  string `json:"topic_type"`
	Type       string `json:"type"`
	Value      string `json:"value"`
}

type TrendReport struct {
	Keyword           string                 `json:"keyword"`
	Geo               string                 `json:"geo"`
	DateRange         string                 `json:"date_range"`
	TrendScore        float64                `json:"trend_score"`
	TrendDirection    string                 `json:"trend_direction"`
	PeakMonth         *string                `json:"peak_month"`
	IsSeasonal        bool                   `json:"is_seasonal"`
	Timeseries        []TrendTimeseriesPoint `json:"timeseries"`
	Regions           []TrendRegion          `json:"regions"`
	RisingQueries     []TrendQuery           `json:"rising_queries"`
	RisingTopics      []TrendTopic           `json:"rising_topics"`
	OriginalKeyword   string                 `json:"original_keyword,omitempty"`
	TranslatedKeyword string                 `json:"translated_keyword,omitempty"`
	LanguageCode      string                 `json:"language_code,omitempty"`
	LanguageName      string                 `json:"language_name,omitempty"`
}

// Source is one cited web page attached to a facet report.
type Source struct {
	Title          string   `json:"title"`
	URL            string   `json:"url"`
	Domain         string   `json:"domain"`
	Snippet        string   `json:"snippet"`
	RelevanceScore *float64 `json:"relevance_score,omitempty"`
}

type ImportStep struct {
	StepNumber    int     `json:"step_number"`
	Title         string  `json:"title"`
	Description   string  `json:"description"`
	EstimatedTime *string `json:"estimated_time"`
	EstimatedCost *string `json:"estimated_cost"`
	IsCritical    bool    `json:"is_critical"`
}

type RegulationReport struct {
	CountryCode            string       `json:"country_code"`
	HSCode                 string       `json:"hs_code"`
	DutyRatePercent        *float64     `json:"duty_rate_percent"`
	RequiredCertifications []string     `json:"required_certifications"`
	ProhibitedVariants     []string     `json:"prohibited_variants"`
	LabelingRequirements   []string     `json:"labeling_requirements"`
	QuotaInfo              *string      `json:"quota_info"`
	LicensingInfo          *string      `json:"licensing_info"`
	ImportSteps            []ImportStep `json:"import_steps,omitempty"`
	Summary                string       `json:"summary"`
	Sources                []Source     `json:"sources"`
}

type TaxLineItem struct {
	Name        string   `json:"name"`
	RatePct     *float64 `json:"rate_pct"`
	Description string   `json:"description"`
	AppliesTo   string   `json:"applies_to"`
}

type LandedCostBreakdown struct {
	WholesaleUnitPriceUSD       *float64 `json:"wholesale_unit_price_usd"`
	EstimatedShippingPerUnitUSD *float64 `json:"estimated_shipping_per_unit_usd"`
	CIFValueUSD                 *float64 `json:"cif_value_usd"`
	DutyAmountUSD               *float64 `json:"duty_amount_usd"`
	VATAmountUSD                *float64 `json:"vat_amount_usd"`
	OtherFeesUSD                *float64 `json:"other_fees_usd"`
	TotalLandedCostUSD          *float64 `json:"total_landed_cost_usd"`
	TotalLandedCostLocal        *float64 `json:"total_landed_cost_local"`
	EffectiveTaxRatePct         *float64 `json:"effective_tax_rate_pct"`
	NetMarginPct                *float64 `json:"net_margin_pct"`
	LocalRetailPriceUSD         *float64 `json:"local_retail_price_usd"`
}

type ImpositiveReport struct {
	CountryCode     string              `json:"country_code"`
	HSCode          string              `json:"hs_code"`
	ImportDutyPct   *float64            `json:"import_duty_pct"`
	VATRatePct      *float64            `json:"vat_rate_pct"`
	AdditionalTaxes []TaxLineItem       `json:"additional_taxes"`
	TotalTaxBurden  *float64            `json:"total_tax_burden_pct"`
	LandedCost      LandedCostBreakdown `json:"landed_cost"`
	TaxSummary      string              `json:"tax_summary"`
	ImporterTips    []string            `json:"importer_tips"`
	Sources         []Source            `json:"sources"`
}

// Competition buckets, ordered.
const (
	CompetitionLow      = "low"
	CompetitionMedium   = "medium"
	CompetitionHigh     = "high"
	CompetitionVeryHigh = "very_high"
)

type MarketReport struct {
	CountryCode      string   `json:"country_code"`
	CompetitionLevel string   `json:"competition_level"`
	TopCompetitors   []string `json:"top_competitors"`
	TopChannels      []string `json:"top_channels"`
	PositioningTip   string   `json:"positioning_tip"`
	Summary          string   `json:"summary"`
	Sources          []Source `json:"sources"`
}

// OpportunityContext is the ephemeral aggregate handed to the terminal
// synthesizer. It is never stored on its own; the assessment row keeps a
// snapshot alongside the report.
type OpportunityContext struct {
	SessionID         string            `json:"session_id"`
	ProductMetadata   ProductMetadata   `json:"product_metadata"`
	Platforms         PlatformResults   `json:"platforms"`
	PriceAnalysis     PriceAnalysis     `json:"price_analysis"`
	TrendReport       *TrendReport      `json:"trend_report"`
	RegulationReport  *RegulationReport `json:"regulation_report"`
	ImpositiveReport  *ImpositiveReport `json:"impositive_report"`
	MarketReport      *MarketReport     `json:"market_report"`
	LocalCurrencyCode string            `json:"local_currency_code"`
	ExchangeRate      float64           `json:"exchange_rate"`
}

// OpportunityReport is the terminal artifact, computed at most once per
// session and served from the assessment cache thereafter.
type OpportunityReport struct {
	SessionID          string    `json:"session_id,omitempty"`
	OpportunityScore   float64   `json:"opportunity_score"`
	EstimatedMarginPct *float64  `json:"estimated_margin_pct"`
	BestSourcePlatform *Platform `json:"best_source_platform"`
	BestLaunchMonth    *string   `json:"best_launch_month"`
	KeywordGaps        []string  `json:"keyword_gaps"`
	VariantSuggestions []string  `json:"variant_suggestions"`
	RiskFlags          []string  `json:"risk_flags"`
	OverallVerdict     string    `json:"overall_verdict"`
}

type Geolocation struct {
	CountryCode string `json:"country_code"`
	CountryName string `json:"country_name"`
	City        string `json:"city,omitempty"`
	Timezone    string `json:"timezone,omitempty"`
}

// SessionInit is the response of session initiation.
type SessionInit struct {
	SessionID       string          `json:"session_id"`
	Geolocation     Geolocation     `json:"geolocation"`
	ProductMetadata ProductMetadata `json:"product_metadata"`
}

// Session is the durable session record. Per-stage rows are owned by it.
type Session struct {
	ID          uint      `gorm:"primaryKey" json:"-"`
	SessionID   string    `gorm:"size:64;uniqueIndex" json:"session_id"`
	RawQuery    string    `gorm:"size:500" json:"raw_query"`
	CountryCode string    `gorm:"size:2" json:"country_code"`
	CreatedAt   time.Time `json:"created_at"`
}

// SessionData is one stage row. Composite primary key gives (session, stage)
// upsert-overwrite semantics with no duplication.
type SessionData struct {
	SessionID string    `gorm:"size:64;primaryKey" json:"session_id"`
	DataType  string    `gorm:"size:32;primaryKey" json:"data_type"`
	DataJSON  string    `gorm:"type:longtext" json:"data_json"`
	CreatedAt time.Time `json:"created_at"`
}

// Assessment is the terminal record: at most one per session, upserted on
// session_id. Stores the input context snapshot next to the report.
type Assessment struct {
	ID          string    `gorm:"size:36;primaryKey" json:"id"`
	SessionID   string    `gorm:"size:64;uniqueIndex" json:"session_id"`
	ContextJSON string    `gorm:"type:longtext" json:"context_json"`
	ReportJSON  string    `gorm:"type:longtext" json:"report_json"`
	CreatedAt   time.Time `json:"created_at"`
}
