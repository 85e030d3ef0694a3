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

// ResearchQuery is one targeted web search with an optional domain
// allow-list biasing results toward official sources.
type ResearchQuery struct {
	Query          string
	Purpose        string
	IncludeDomains []string
}

// BuildRegulationQueries produces the 5-6 compliance research queries for an
// HS code and country, biased toward customs authority domains.
func BuildRegulationQueries(hsCode, countryCode string, regulatoryFlags, importRegulations, impositiveRegulations []string) []ResearchQuery {
	countryName := countries.Name(countryCode)
	domains := countries.CustomsDomains(countryCode)

	queries := []ResearchQuery{{
		Query:          fmt.Sprintf("HS code %s import duty tariff rate %s", hsCode, countryName),
		Purpose:        "duty_rate",
		IncludeDomains: domains,
	}}

	if len(regulatoryFlags) > 0 {
		queries = append(queries, ResearchQuery{
			Query:          fmt.Sprintf("HS %s import certification requirements %s %s", hsCode, strings.Join(regulatoryFlags, " "), countryName),
			Purpose:        "certifications",
			IncludeDomains: domains,
		})
	} else {
		queries = append(queries, ResearchQuery{
			Query:          fmt.Sprintf("HS %s import certification standards requirements %s", hsCode, countryName),
			Purpose:        "certifications",
			IncludeDomains: domains,
		})
	}

	if len(importRegulations) > 0 {
		queries = append(queries, ResearchQuery{
			Query:          fmt.Sprintf("HS %s prohibited restricted import %s %s", hsCode, strings.Join(importRegulations, " "), countryName),
			Purpose:        "prohibitions",
			IncludeDomains: domains,
		})
	} else {
		queries = append(queries, ResearchQuery{
			Query:          fmt.Sprintf("HS %s prohibited restricted banned import %s", hsCode, countryName),
			Purpose:        "prohibitions",
			IncludeDomains: domains,
		})
	}

	queries = append(queries,
		ResearchQuery{
			Query:          fmt.Sprintf("HS %s labeling marking packaging requirements import %s", hsCode, countryName),
			Purpose:        "labeling",
			IncludeDomains: domains,
		},
		ResearchQuery{
			Query:          fmt.Sprintf("HS %s import license permit quota %s", hsCode, countryName),
			Purpose:        "licensing",
			IncludeDomains: domains,
		},
	)

	if len(impositiveRegulations) > 0 {
		queries = append(queries, ResearchQuery{
			Query:          fmt.Sprintf("HS %s import %s customs duties %s", hsCode, strings.Join(impositiveRegulations, " "), countryName),
			Purpose:        "impositive",
			IncludeDomains: domains,
		})
	}

	return queries
}

const regulationSystem = `You are an international trade compliance specialist helping importers understand EXACTLY what they need to do to legally import a product.

Your task: analyze web search results about import regulations for a product (by HS code) into a target country. Produce a practical, actionable compliance report.

Guidelines:
1. Duty Rate: extract the import duty/tariff rate as a percentage from official sources. Null if not found.
2. Required Certifications: all certifications, standards, or approvals needed BEFORE the product can enter the country. Be specific ("FCC Part 15 certification", not just "FCC").
3. Prohibited Variants: product variants or configurations banned from import, with the reason.
4. Labeling Requirements: mandatory labeling, packaging, and marking rules. Language requirements, warning labels, origin marking.
5. Quota/Licensing Info: quotas, quantity limits, or special permits required.
6. Import Steps: a practical step-by-step checklist answering "what do I need to do, in what order, to legally import this product?" Include certifications/testing, customs registration, required documentation, inspections, clearance, and post-entry requirements. Mark steps that could block the entire import as critical, and order them chronologically. General import-process knowledge for the country is allowed here even if not in the sources.
7. Summary: 2-3 sentences on the key compliance hurdles. Tell the importer what will be hardest or most expensive.
8. Sources: cite all sources, prioritizing .gov domains, with relevance_score 0-1.

Only include regulatory facts explicitly present in the search results. Be practical: this is for someone who wants to actually import.`

var regulationSchema = obj(map[string]any{
	"duty_rate_percent":       nullable(num()),
	"required_certifications": strArr(),
	"prohibited_variants":     strArr(),
	"labeling_requirements":   strArr(),
	"quota_info":              nullable(str()),
	"licensing_info":          nullable(str()),
	"import_steps": arr(obj(map[string]any{
		"step_number":    num(),
		"title":          str(),
		"description":    str(),
		"estimated_time": nullable(str()),
		"estimated_cost": nullable(str()),
		"is_critical":    boolean(),
	}, "step_number", "title", "description", "estimated_time", "estimated_cost", "is_critical")),
	"summary": str(),
	"sources": arr(sourceSchema),
}, "duty_rate_percent", "required_certifications", "prohibited_variants",
	"labeling_requirements", "quota_info", "licensing_info", "import_steps",
	"summary", "sources")

// SynthesizeRegulation produces the import-compliance report from joined
// search results. Degrades to nulls plus mechanically-derived sources.
func (e *Engine) SynthesizeRegulation(ctx context.Context, hsCode, countryCode string, results []providers.TavilyResult, answers []string) research.RegulationReport {
	report := research.RegulationReport{
		CountryCode:            countryCode,
		HSCode:                 hsCode,
		RequiredCertifications: []string{},
		ProhibitedVariants:     []string{},
		LabelingRequirements:   []string{},
		ImportSteps:            []research.ImportStep{},
		Summary:                "Unable to synthesize regulation data. Please consult official customs authorities.",
		Sources:                fallbackSources(results),
	}

	answerBlock := strings.Join(answers, "\n\n")
	if answerBlock == "" {
		answerBlock = "No AI summaries available."
	}

	user := fmt.Sprintf(`Analyze import compliance requirements for HS Code %q into country %q:

## Search AI Summaries
%s

## Web Search Results
%s

Synthesize into a practical compliance report with step-by-step import checklist. Focus on what an importer needs to DO.`,
		hsCode, countryCode, answerBlock, formatSearchResults(results))

	var out struct {
		DutyRatePercent        *float64              `json:"duty_rate_percent"`
		RequiredCertifications []string              `json:"required_certifications"`
		ProhibitedVariants     []string              `json:"prohibited_variants"`
		LabelingRequirements   []string              `json:"labeling_requirements"`
		QuotaInfo              *string               `json:"quota_info"`
		LicensingInfo          *string               `json:"licensing_info"`
		ImportSteps            []research.ImportStep `json:"import_steps"`
		Summary                string                `json:"summary"`
		Sources                []research.Source     `json:"sources"`
	}
	err := e.complete(ctx, ai.Request{
		System:     regulationSystem,
		User:       user,
		SchemaName: "regulation_report",
		Schema:     regulationSchema,
		MaxTokens:  4096,
	}, &out)
	if err != nil {
		e.log.Warn("regulation synthesis failed", "hs_code", hsCode, "country", countryCode, "error", err.Error())
		return report
	}

	report.DutyRatePercent = out.DutyRatePercent
	report.QuotaInfo = out.QuotaInfo
	report.LicensingInfo = out.LicensingInfo
	report.Summary = out.Summary
	if out.RequiredCertifications != nil {
		report.RequiredCertifications = out.RequiredCertifications
	}
	if out.ProhibitedVariants != nil {
		report.ProhibitedVariants = out.ProhibitedVariants
	}
	if out.LabelingRequirements != nil {
		report.LabelingRequirements = out.LabelingRequirements
	}
	if out.ImportSteps != nil {
		report.ImportSteps = out.ImportSteps
	}
	if out.Sources != nil {
		report.Sources = out.Sources
	}
	return report
}
