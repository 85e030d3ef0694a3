// Package providers wraps the external data sources the research pipeline
// fans out to. Search-style adapters never let a transport or parse failure
// escape: they log and return an empty result set so sibling calls survive.
package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"importscout/internal/logger"
	"importscout/internal/research"
)

const serpTimeout = 15 * time.Second

// SerpAPI queries the SerpApi aggregation service: four retail shopping
// engines, the google-shopping wholesale and local variants, and google
// trends.
type SerpAPI struct {
	BaseURL    string
	APIKey     string
	PageSize   int
	TrendsDate string

	log    *logger.Logger
	client *http.Client
}

func NewSerpAPI(baseURL, apiKey string, pageSize int, trendsDate string, log *logger.Logger) *SerpAPI {
	if pageSize <= 0 {
		pageSize = 10
	}
	if trendsDate == "" {
		trendsDate = "today 12-m"
	}
	return &SerpAPI{
		BaseURL:    baseURL,
		APIKey:     apiKey,
		PageSize:   pageSize,
		TrendsDate: trendsDate,
		log:        log.With("service", "SerpAPI"),
		client:     &http.Client{Timeout: serpTimeout},
	}
}

// call issues one GET against the SerpApi endpoint. Unlike the mappers this
// does return errors; the public search methods absorb them.
func (s *SerpAPI) call(ctx context.Context, params map[string]string) (map[string]json.RawMessage, error) {
	q := url.Values{}
	q.Set("api_key", s.APIKey)
	q.Set("output", "json")
	for k, v := range params {
		if v != "" {
			q.Set(k, v)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 300))
		return nil, fmt.Errorf("serpapi %s error %d: %s", params["engine"], resp.StatusCode, string(body))
	}

	var out map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

var priceRe = regexp.MustCompile(`[\d,.]+`)

// ParsePrice extracts a numeric value from a formatted price string.
// Non-numeric input degrades to a nil value, never an error.
func ParsePrice(raw string) (*float64, string) {
	if raw == "" {
		return nil, "N/A"
	}
	m := priceRe.FindString(raw)
	if m == "" {
		return nil, raw
	}
	n, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", ""), 64)
	if err != nil {
		return nil, raw
	}
	return &n, raw
}

func formatUSD(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}

// serpItem is the superset of per-engine result fields we read. Each engine
// populates a different subset; missing fields stay zero.
type serpItem struct {
	Position  int    `json:"position"`
	Title     string `json:"title"`
	Link      string `json:"link"`
	Thumbnail string `json:"thumbnail"`

	// amazon / ebay
	ASIN    string      `json:"asin"`
	EPID    string      `json:"epid"`
	Price   serpPrice   `json:"price"`
	Rating  json.Number `json:"rating"`
	Reviews json.Number `json:"reviews"`
	IsPrime bool        `json:"is_prime"`
	Seller  struct {
		Name string `json:"name"`
	} `json:"seller"`
	SellerInfo struct {
		Name string `json:"name"`
	} `json:"seller_info"`
	Condition string `json:"condition"`

	// walmart
	USItemID     string `json:"us_item_id"`
	SellerName   string `json:"seller_name"`
	ProductPage  string `json:"product_page_url"`
	PrimaryOffer struct {
		OfferPrice *float64 `json:"offer_price"`
	} `json:"primary_offer"`

	// google shopping
	ProductID      string   `json:"product_id"`
	ExtractedPrice *float64 `json:"extracted_price"`
	Source         string   `json:"source"`
}

// serpPrice tolerates the three shapes SerpApi uses for "price": an object
// with raw/value/extracted, a bare number, or a formatted string.
type serpPrice struct {
	Raw       string   `json:"raw"`
	Value     *float64 `json:"value"`
	Extracted *float64 `json:"extracted"`
	Currency  string   `json:"currency"`
}

func (p *serpPrice) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" || trimmed == "" {
		return nil
	}
	switch trimmed[0] {
	case '{':
		type alias serpPrice
		var a alias
		if err := json.Unmarshal(data, &a); err != nil {
			return nil // tolerate malformed price objects
		}
		*p = serpPrice(a)
	case '"':
		var s string
		if json.Unmarshal(data, &s) == nil {
			p.Raw = s
		}
	default:
		var v float64
		if json.Unmarshal(data, &v) == nil {
			p.Value = &v
		}
	}
	return nil
}

// itemPrice resolves the best available price for an item, preferring the
// structured numeric fields over the formatted string.
func itemPrice(it serpItem) (*float64, string) {
	if it.Price.Value != nil {
		return it.Price.Value, nonEmpty(it.Price.Raw, formatUSD(*it.Price.Value))
	}
	if it.Price.Extracted != nil {
		return it.Price.Extracted, nonEmpty(it.Price.Raw, formatUSD(*it.Price.Extracted))
	}
	if it.ExtractedPrice != nil {
		return it.ExtractedPrice, nonEmpty(it.Price.Raw, formatUSD(*it.ExtractedPrice))
	}
	if it.PrimaryOffer.OfferPrice != nil {
		return it.PrimaryOffer.OfferPrice, formatUSD(*it.PrimaryOffer.OfferPrice)
	}
	return ParsePrice(it.Price.Raw)
}

func nonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func numPtr(n json.Number) *float64 {
	if n == "" {
		return nil
	}
	v, err := n.Float64()
	if err != nil {
		return nil
	}
	return &v
}

// decodeItems pulls the result array under the first present key, tolerating
// items that fail to decode individually.
func decodeItems(data map[string]json.RawMessage, keys ...string) []serpItem {
	for _, key := range keys {
		raw, ok := data[key]
		if !ok {
			continue
		}
		var items []serpItem
		if err := json.Unmarshal(raw, &items); err != nil {
			// Fall back to element-wise decoding so one malformed item
			// does not void the batch.
			var rawItems []json.RawMessage
			if err := json.Unmarshal(raw, &rawItems); err != nil {
				return nil
			}
			for _, ri := range rawItems {
				var it serpItem
				if json.Unmarshal(ri, &it) == nil {
					items = append(items, it)
				}
			}
		}
		return items
	}
	return nil
}

func (s *SerpAPI) mapItems(items []serpItem, platform research.Platform) []research.PlatformProduct {
	if len(items) > s.PageSize {
		items = items[:s.PageSize]
	}
	out := make([]research.PlatformProduct, 0, len(items))
	for _, it := range items {
		title := it.Title
		if title == "" {
			title = "Untitled"
		}
		price, formatted := itemPrice(it)

		p := research.PlatformProduct{
			Platform:       platform,
			Title:          title,
			PriceRaw:       price,
			PriceFormatted: formatted,
			Currency:       nonEmpty(it.Price.Currency, "USD"),
			Rating:         numPtr(it.Rating),
			ReviewCount:    numPtr(it.Reviews),
			ProductURL:     nonEmpty(it.ProductPage, it.Link),
			ImageURL:       it.Thumbnail,
			Condition:      it.Condition,
		}

		switch platform {
		case research.PlatformAmazon:
			p.ExternalID = nonEmpty(it.ASIN, strconv.Itoa(it.Position))
			p.SellerName = it.Seller.Name
			p.IsVerified = it.IsPrime
		case research.PlatformEbay:
			p.ExternalID = nonEmpty(it.EPID, strconv.Itoa(it.Position))
			p.SellerName = it.SellerInfo.Name
		case research.PlatformWalmart:
			p.ExternalID = nonEmpty(it.USItemID, nonEmpty(it.ProductID, strconv.Itoa(it.Position)))
			p.SellerName = it.SellerName
		default: // google_shopping, wholesale, local_retail
			p.ExternalID = nonEmpty(it.ProductID, strconv.Itoa(it.Position))
			p.SellerName = it.Source
			p.SourceDomain = it.Source
		}
		out = append(out, p)
	}
	return out
}

type retailEngine struct {
	platform research.Platform
	params   func(query string) map[string]string
	keys     []string
}

var retailEngines = []retailEngine{
	{
		platform: research.PlatformAmazon,
		params: func(q string) map[string]string {
			return map[string]string{"engine": "amazon", "k": q, "amazon_domain": "amazon.com"}
		},
		keys: []string{"organic_results"},
	},
	{
		platform: research.PlatformEbay,
		params: func(q string) map[string]string {
			return map[string]string{"engine": "ebay", "_nkw": q, "ebay_domain": "ebay.com"}
		},
		keys: []string{"organic_results"},
	},
	{
		platform: research.PlatformWalmart,
		params: func(q string) map[string]string {
			return map[string]string{"engine": "walmart", "query": q}
		},
		keys: []string{"organic_results"},
	},
	{
		platform: research.PlatformGoogleShopping,
		params: func(q string) map[string]string {
			return map[string]string{"engine": "google_shopping", "q": q, "gl": "us", "hl": "en"}
		},
		keys: []string{"shopping_results", "organic_results"},
	},
}

// SearchRetail queries one retail engine. Failures yield an empty slice.
func (s *SerpAPI) SearchRetail(ctx context.Context, platform research.Platform, query string) []research.PlatformProduct {
	for _, eng := range retailEngines {
		if eng.platform != platform {
			continue
		}
		data, err := s.call(ctx, eng.params(query))
		if err != nil {
			s.log.Error("retail search failed", "platform", string(platform), "error", err.Error())
			return nil
		}
		return s.mapItems(decodeItems(data, eng.keys...), platform)
	}
	return nil
}

// SearchWholesale runs the two google-shopping wholesale queries and merges
// the batches, deduplicating on title+price.
func (s *SerpAPI) SearchWholesale(ctx context.Context, query string) []research.PlatformProduct {
	queries := []string{
		query + " wholesale supplier bulk",
		query + " import wholesale china factory",
	}

	batches := make([][]research.PlatformProduct, len(queries))
	for i, q := range queries {
		data, err := s.call(ctx, map[string]string{
			"engine": "google_shopping", "q": q, "gl": "us", "hl": "en",
		})
		if err != nil {
			s.log.Error("wholesale search failed", "query", q, "error", err.Error())
			continue
		}
		batches[i] = s.mapItems(decodeItems(data, "shopping_results", "organic_results"), research.PlatformWholesale)
	}

	seen := make(map[string]bool)
	var merged []research.PlatformProduct
	for _, batch := range batches {
		for _, p := range batch {
			key := p.Title + "|"
			if p.PriceRaw != nil {
				key += strconv.FormatFloat(*p.PriceRaw, 'f', -1, 64)
			}
			if !seen[key] {
				seen[key] = true
				merged = append(merged, p)
			}
		}
	}
	return merged
}

// SearchLocal queries google shopping scoped to the target country and
// language, tagging results as local retail.
func (s *SerpAPI) SearchLocal(ctx context.Context, query, countryCode, langCode string) []research.PlatformProduct {
	data, err := s.call(ctx, map[string]string{
		"engine": "google_shopping",
		"q":      query,
		"gl":     strings.ToLower(countryCode),
		"hl":     langCode,
	})
	if err != nil {
		s.log.Error("local search failed", "country", countryCode, "error", err.Error())
		return nil
	}
	return s.mapItems(decodeItems(data, "shopping_results", "organic_results"), research.PlatformLocalRetail)
}

// TrendsRaw holds the four google-trends payloads for one keyword/region
// pair. Facet synthesis requires all four together; any that failed is an
// empty document.
type TrendsRaw struct {
	Timeseries     json.RawMessage `json:"timeseries"`
	GeoMap         json.RawMessage `json:"geo_map"`
	RelatedQueries json.RawMessage `json:"related_queries"`
	RelatedTopics  json.RawMessage `json:"related_topics"`
}

// GetTrends fans out the four google-trends data types concurrently.
// GEO_MAP_0 is the single-query "interest by region" variant.
func (s *SerpAPI) GetTrends(ctx context.Context, keyword, geo, languageCode string) TrendsRaw {
	dataTypes := []string{"TIMESERIES", "GEO_MAP_0", "RELATED_QUERIES", "RELATED_TOPICS"}
	results := make([]json.RawMessage, len(dataTypes))

	fanOut(len(dataTypes), func(i int) {
		params := map[string]string{
			"engine":    "google_trends",
			"q":         keyword,
			"data_type": dataTypes[i],
			"geo":       strings.ToUpper(geo),
			"date":      s.TrendsDate,
		}
		if languageCode != "" && languageCode != "en" {
			params["hl"] = languageCode
		}
		data, err := s.call(ctx, params)
		if err != nil {
			s.log.Error("trends search failed", "data_type", dataTypes[i], "error", err.Error())
			results[i] = json.RawMessage("{}")
			return
		}
		raw, err := json.Marshal(data)
		if err != nil {
			results[i] = json.RawMessage("{}")
			return
		}
		results[i] = raw
	})

	return TrendsRaw{
		Timeseries:     results[0],
		GeoMap:         results[1],
		RelatedQueries: results[2],
		RelatedTopics:  results[3],
	}
}
