package synth

import (
	"context"
	"fmt"

	"importscout/internal/ai"
	"importscout/internal/countries"
)

const translateSystem = `You are a professional translator specializing in e-commerce and product terminology.

Your task is to translate product search keywords from English to the target language while maintaining:
1. Natural phrasing that locals would use when searching
2. Common e-commerce terminology
3. SEO-friendly search terms
4. Cultural relevance

Guidelines:
- Use the most common/popular term for the product in the target market
- Consider regional variations (e.g., "mobile phone" vs "cell phone")
- Keep brand names and technical terms in their original form if commonly used
- Use lowercase unless the term is typically capitalized in that language
- Return only the translated keyword, no explanations

If the target language is English or the keyword is already appropriate, return the original keyword.`

var translateSchema = obj(map[string]any{
	"translated_keyword": str(),
	"language_code":      str(),
	"language_name":      str(),
}, "translated_keyword", "language_code", "language_name")

// Translation is a keyword localized into the target country's language.
type Translation struct {
	Keyword      string
	LanguageCode string
	LanguageName string
}

// TranslateKeyword localizes a trend keyword for regional searches. English
// countries and extraction failures both fall back to the original keyword.
func (e *Engine) TranslateKeyword(ctx context.Context, keyword, countryCode string) Translation {
	lang := countries.LanguageFor(countryCode)
	if lang.Code == "en" {
		return Translation{Keyword: keyword, LanguageCode: "en", LanguageName: "English"}
	}

	user := fmt.Sprintf(`Translate this product search keyword to %s (%s):

Keyword: %q

Target Language: %s
Target Country: %s

Provide the most natural and commonly used search term for this product in the target market.`,
		lang.Name, lang.Code, keyword, lang.Name, countryCode)

	var out struct {
		TranslatedKeyword string `json:"translated_keyword"`
		LanguageCode      string `json:"language_code"`
		LanguageName      string `json:"language_name"`
	}
	err := e.complete(ctx, ai.Request{
		System:     translateSystem,
		User:       user,
		SchemaName: "keyword_translation",
		Schema:     translateSchema,
		MaxTokens:  256,
	}, &out)
	if err != nil || out.TranslatedKeyword == "" {
		if err != nil {
			e.log.Warn("keyword translation failed", "keyword", keyword, "error", err.Error())
		}
		return Translation{Keyword: keyword, LanguageCode: lang.Code, LanguageName: lang.Name}
	}

	return Translation{
		Keyword:      out.TranslatedKeyword,
		LanguageCode: out.LanguageCode,
		LanguageName: out.LanguageName,
	}
}
