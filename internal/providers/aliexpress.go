package providers

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"importscout/internal/logger"
	"importscout/internal/research"
)

const aliexpressTimeout = 15 * time.Second

// AliExpress calls the affiliate smartmatch API. The adapter is optional:
// without credentials every search returns an empty slice.
type AliExpress struct {
	AppKey    string
	AppSecret string

	log    *logger.Logger
	client *http.Client
	now    func() time.Time
}

func NewAliExpress(appKey, appSecret string, log *logger.Logger) *AliExpress {
	return &AliExpress{
		AppKey:    appKey,
		AppSecret: appSecret,
		log:       log.With("service", "AliExpress"),
		client:    &http.Client{Timeout: aliexpressTimeout},
		now:       time.Now,
	}
}

func (a *AliExpress) Configured() bool {
	return a.AppKey != "" && a.AppSecret != ""
}

// signParams computes the MD5 signature: secret + sorted key/value pairs
// concatenated + secret, hex-encoded uppercase.
func signParams(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(secret)
	for _, k := range keys {
		sb.WriteString(k)
		sb.WriteString(params[k])
	}
	sb.WriteString(secret)

	sum := md5.Sum([]byte(sb.String()))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

type aliexpressProduct struct {
	ProductID           json.Number `json:"product_id"`
	ProductTitle        string      `json:"product_title"`
	TargetAppSalePrice  string      `json:"target_app_sale_price"`
	TargetOriginalPrice string      `json:"target_original_price"`
	EvaluateRate        string      `json:"evaluate_rate"`
	ShopName            string      `json:"shop_name"`
	ProductDetailURL    string      `json:"product_detail_url"`
	PromotionLink       string      `json:"promotion_link"`
	ProductMainImageURL string      `json:"product_main_image_url"`
	LatestVolume        json.Number `json:"lastest_volume"`
}

type aliexpressResponse struct {
	SmartmatchResponse struct {
		RespResult struct {
			Result struct {
				Products struct {
					Product []aliexpressProduct `json:"product"`
				} `json:"products"`
			} `json:"result"`
		} `json:"resp_result"`
	} `json:"aliexpress_affiliate_product_smartmatch_response"`
}

// Search runs one smartmatch query. Failures and missing credentials yield
// an empty slice.
func (a *AliExpress) Search(ctx context.Context, query string) []research.PlatformProduct {
	if !a.Configured() {
		return nil
	}

	params := map[string]string{
		"app_key":         a.AppKey,
		"method":          "aliexpress.affiliate.product.smartmatch",
		"sign_method":     "md5",
		"timestamp":       a.now().UTC().Format("2006-01-02 15:04:05"),
		"v":               "2.0",
		"format":          "json",
		"keywords":        query,
		"target_currency": "USD",
		"target_language": "EN",
		"page_no":         "1",
		"page_size":       "10",
	}
	params["sign"] = signParams(params, a.AppSecret)

	q := url.Values{}
	for k, v := range params {
		q.Set(k, v)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://api-sg.aliexpress.com/sync?"+q.Encode(), nil)
	if err != nil {
		return nil
	}

	resp, err := a.client.Do(req)
	if err != nil {
		a.log.Error("smartmatch request failed", "error", err.Error())
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		a.log.Error("smartmatch request failed", "status", resp.StatusCode)
		return nil
	}

	var decoded aliexpressResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		a.log.Error("smartmatch decode failed", "error", err.Error())
		return nil
	}

	products := decoded.SmartmatchResponse.RespResult.Result.Products.Product
	if len(products) > 10 {
		products = products[:10]
	}

	out := make([]research.PlatformProduct, 0, len(products))
	for _, item := range products {
		title := item.ProductTitle
		if title == "" {
			title = "Untitled"
		}

		price := parseAliPrice(item.TargetAppSalePrice)
		if price == nil {
			price = parseAliPrice(item.TargetOriginalPrice)
		}
		formatted := "N/A"
		if price != nil {
			formatted = fmt.Sprintf("$%.2f", *price)
		}

		out = append(out, research.PlatformProduct{
			Platform:       research.PlatformAliExpress,
			ExternalID:     item.ProductID.String(),
			Title:          title,
			PriceRaw:       price,
			PriceFormatted: formatted,
			Currency:       "USD",
			Rating:         parseAliPrice(item.EvaluateRate),
			SellerName:     item.ShopName,
			ProductURL:     nonEmpty(item.ProductDetailURL, item.PromotionLink),
			ImageURL:       item.ProductMainImageURL,
			SalesVolume:    item.LatestVolume.String(),
			SourceDomain:   "aliexpress.com",
		})
	}
	return out
}

func parseAliPrice(s string) *float64 {
	s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}
