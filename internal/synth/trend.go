package synth

import (
	"context"
	"fmt"

	"importscout/internal/ai"
	"importscout/internal/providers"
	"importscout/internal/research"
)

const trendSystem = `You are a market research analyst specializing in Google Trends data interpretation.

Your task is to analyze 4 Google Trends data payloads (TIMESERIES, GEO_MAP, RELATED_QUERIES, RELATED_TOPICS) and synthesize them into a structured trend report.

Guidelines:
1. Trend Direction: analyze the timeseries to classify the trend as
   "up" (strong upward growth), "up_right" (moderate upward growth),
   "flat" (stable), "down_right" (moderate decline), or "down" (strong decline).
2. Trend Score: 0-100 based on current interest level, growth trajectory,
   consistency of interest, and regional breadth.
3. Seasonality: look for recurring peaks/valleys; identify the peak month if
   seasonal (e.g. "November") and set is_seasonal accordingly.
4. Rising Queries & Topics: focus on "rising" items over "top"; include the
   growth value; keep non-English queries in their original language.
5. Regional Hotspots: region names, codes, and interest values sorted by
   interest level.
6. Timeseries: weekly interest values with week_start as YYYY-MM-DD.

Return a complete report. If data is missing for a section, return empty
arrays but maintain the structure.`

var trendSchema = obj(map[string]any{
	"trend_score":     num("0-100"),
	"trend_direction": enum(research.TrendUp, research.TrendUpRight, research.TrendFlat, research.TrendDownRight, research.TrendDown),
	"peak_month":      nullable(str()),
	"is_seasonal":     boolean(),
	"timeseries": arr(obj(map[string]any{
		"week_start":     str("YYYY-MM-DD"),
		"interest_value": num(),
	}, "week_start", "interest_value")),
	"regions": arr(obj(map[string]any{
		"region_name":    str(),
		"region_code":    str(),
		"interest_value": num(),
	}, "region_name", "interest_value")),
	"rising_queries": arr(obj(map[string]any{
		"query_text": str(),
		"type":       enum("rising", "top"),
		"value":      str(),
	}, "query_text", "type", "value")),
	"rising_topics": arr(obj(map[string]any{
		"topic_title": str(),
		"topic_type":  str(),
		"type":        enum("rising", "top"),
		"value":       str(),
	}, "topic_title", "topic_type", "type", "value")),
}, "trend_score", "trend_direction", "peak_month", "is_seasonal",
	"timeseries", "regions", "rising_queries", "rising_topics")

// SynthesizeTrends interprets the four raw trends payloads for one
// keyword/region pair. Interpretation is delegated entirely to the model;
// the degraded report is a neutral flat trend.
func (e *Engine) SynthesizeTrends(ctx context.Context, keyword, geo string, raw providers.TrendsRaw, dateRange string) research.TrendReport {
	report := research.TrendReport{
		Keyword:        keyword,
		Geo:            geo,
		DateRange:      dateRange,
		TrendScore:     50,
		TrendDirection: research.TrendFlat,
		Timeseries:     []research.TrendTimeseriesPoint{},
		Regions:        []research.TrendRegion{},
		RisingQueries:  []research.TrendQuery{},
		RisingTopics:   []research.TrendTopic{},
	}

	user := fmt.Sprintf(`Analyze the following Google Trends data for keyword %q in region %q:

## TIMESERIES DATA
%s

## GEO MAP DATA (Regional Interest)
%s

## RELATED QUERIES
%s

## RELATED TOPICS
%s

Synthesize this data into a comprehensive trend report. Focus on actionable insights for product sourcing decisions.`,
		keyword, geo, raw.Timeseries, raw.GeoMap, raw.RelatedQueries, raw.RelatedTopics)

	var out struct {
		TrendScore     float64                         `json:"trend_score"`
		TrendDirection string                          `json:"trend_direction"`
		PeakMonth      *string                         `json:"peak_month"`
		IsSeasonal     bool                            `json:"is_seasonal"`
		Timeseries     []research.TrendTimeseriesPoint `json:"timeseries"`
		Regions        []research.TrendRegion          `json:"regions"`
		RisingQueries  []research.TrendQuery           `json:"rising_queries"`
		RisingTopics   []research.TrendTopic           `json:"rising_topics"`
	}
	err := e.complete(ctx, ai.Request{
		System:     trendSystem,
		User:       user,
		SchemaName: "trend_report",
		Schema:     trendSchema,
		MaxTokens:  4096,
	}, &out)
	if err != nil {
		e.log.Warn("trend synthesis failed", "keyword", keyword, "error", err.Error())
		return report
	}

	report.TrendScore = out.TrendScore
	report.TrendDirection = out.TrendDirection
	report.PeakMonth = out.PeakMonth
	report.IsSeasonal = out.IsSeasonal
	if out.Timeseries != nil {
		report.Timeseries = out.Timeseries
	}
	if out.Regions != nil {
		report.Regions = out.Regions
	}
	if out.RisingQueries != nil {
		report.RisingQueries = out.RisingQueries
	}
	if out.RisingTopics != nil {
		report.RisingTopics = out.RisingTopics
	}
	return report
}
