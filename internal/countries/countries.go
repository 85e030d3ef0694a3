// Package countries holds the static reference tables used to localize
// research: display names, currencies, primary languages, and the customs /
// tax authority domains that bias compliance searches toward official sources.
package countries

import "strings"

var countryNames = map[string]string{
	"US": "United States", "CA": "Canada", "GB": "United Kingdom", "AU": "Australia", "NZ": "New Zealand",
	"DE": "Germany", "FR": "France", "IT": "Italy", "ES": "Spain", "NL": "Netherlands", "PT": "Portugal",
	"IE": "Ireland", "AT": "Austria", "BE": "Belgium", "FI": "Finland", "GR": "Greece",
	"JP": "Japan", "CN": "China", "KR": "South Korea", "IN": "India", "BR": "Brazil",
	"MX": "Mexico", "AR": "Argentina", "CL": "Chile", "CO": "Colombia", "PE": "Peru",
	"ZA": "South Africa", "NG": "Nigeria", "EG": "Egypt", "KE": "Kenya",
	"TH": "Thailand", "VN": "Vietnam", "PH": "Philippines", "MY": "Malaysia", "SG": "Singapore", "ID": "Indonesia",
	"TR": "Turkey", "PL": "Poland", "CZ": "Czech Republic", "HU": "Hungary", "RO": "Romania",
	"SE": "Sweden", "NO": "Norway", "DK": "Denmark", "CH": "Switzerland",
	"SA": "Saudi Arabia", "AE": "United Arab Emirates", "IL": "Israel",
	"TW": "Taiwan", "HK": "Hong Kong", "PK": "Pakistan", "BD": "Bangladesh",
	"UY": "Uruguay", "PY": "Paraguay", "BO": "Bolivia", "EC": "Ecuador", "VE": "Venezuela",
	"CR": "Costa Rica", "PA": "Panama", "DO": "Dominican Republic", "GT": "Guatemala",
}

// Name returns the display name for an ISO 3166-1 alpha-2 code, falling back
// to the code itself for countries outside the table.
func Name(code string) string {
	if n, ok := countryNames[strings.ToUpper(code)]; ok {
		return n
	}
	return strings.ToUpper(code)
}

var countryCurrencies = map[string]string{
	"US": "USD", "CA": "CAD", "GB": "GBP", "AU": "AUD", "NZ": "NZD",
	"DE": "EUR", "FR": "EUR", "IT": "EUR", "ES": "EUR", "NL": "EUR", "PT": "EUR",
	"IE": "EUR", "AT": "EUR", "BE": "EUR", "FI": "EUR", "GR": "EUR",
	"JP": "JPY", "CN": "CNY", "KR": "KRW", "IN": "INR", "BR": "BRL",
	"MX": "MXN", "AR": "ARS", "CL": "CLP", "CO": "COP", "PE": "PEN",
	"ZA": "ZAR", "NG": "NGN", "EG": "EGP", "KE": "KES",
	"TH": "THB", "VN": "VND", "PH": "PHP", "MY": "MYR", "SG": "SGD", "ID": "IDR",
	"TR": "TRY", "PL": "PLN", "CZ": "CZK", "HU": "HUF", "RO": "RON",
	"SE": "SEK", "NO": "NOK", "DK": "DKK", "CH": "CHF",
	"SA": "SAR", "AE": "AED", "IL": "ILS",
	"TW": "TWD", "HK": "HKD", "PK": "PKR", "BD": "BDT",
	"UY": "UYU", "PY": "PYG", "BO": "BOB", "EC": "USD", "VE": "VES",
	"CR": "CRC", "PA": "PAB", "DO": "DOP", "GT": "GTQ",
}

// Currency returns the ISO 4217 currency code for a country, defaulting to USD.
func Currency(code string) string {
	if c, ok := countryCurrencies[strings.ToUpper(code)]; ok {
		return c
	}
	return "USD"
}

type Language struct {
	Code string
	Name string
}

var countryLanguages = map[string]Language{
	"US": {"en", "English"}, "CA": {"en", "English"}, "GB": {"en", "English"},
	"AU": {"en", "English"}, "NZ": {"en", "English"}, "IE": {"en", "English"},
	"DE": {"de", "German"}, "AT": {"de", "German"}, "CH": {"de", "German"},
	"FR": {"fr", "French"}, "BE": {"fr", "French"},
	"IT": {"it", "Italian"}, "PT": {"pt", "Portuguese"}, "BR": {"pt", "Portuguese"},
	"ES": {"es", "Spanish"}, "MX": {"es", "Spanish"}, "AR": {"es", "Spanish"},
	"CL": {"es", "Spanish"}, "CO": {"es", "Spanish"}, "PE": {"es", "Spanish"},
	"UY": {"es", "Spanish"}, "PY": {"es", "Spanish"}, "BO": {"es", "Spanish"},
	"EC": {"es", "Spanish"}, "VE": {"es", "Spanish"}, "CR": {"es", "Spanish"},
	"PA": {"es", "Spanish"}, "DO": {"es", "Spanish"}, "GT": {"es", "Spanish"},
	"NL": {"nl", "Dutch"}, "JP": {"ja", "Japanese"}, "CN": {"zh", "Chinese"},
	"TW": {"zh", "Chinese"}, "HK": {"zh", "Chinese"}, "KR": {"ko", "Korean"},
	"IN": {"en", "English"}, "TH": {"th", "Thai"}, "VN": {"vi", "Vietnamese"},
	"PH": {"en", "English"}, "MY": {"ms", "Malay"}, "SG": {"en", "English"},
	"ID": {"id", "Indonesian"}, "TR": {"tr", "Turkish"}, "PL": {"pl", "Polish"},
	"CZ": {"cs", "Czech"}, "HU": {"hu", "Hungarian"}, "RO": {"ro", "Romanian"},
	"SE": {"sv", "Swedish"}, "NO": {"no", "Norwegian"}, "DK": {"da", "Danish"},
	"FI": {"fi", "Finnish"}, "GR": {"el", "Greek"}, "SA": {"ar", "Arabic"},
	"AE": {"ar", "Arabic"}, "EG": {"ar", "Arabic"}, "IL": {"he", "Hebrew"},
	"RU": {"ru", "Russian"},
}

// LanguageFor returns the primary language for a country, defaulting to English.
func LanguageFor(code string) Language {
	if l, ok := countryLanguages[strings.ToUpper(code)]; ok {
		return l
	}
	return Language{Code: "en", Name: "English"}
}

var customsDomains = map[string][]string{
	"US": {"cbp.gov", "trade.gov", "census.gov", "usitc.gov"},
	"GB": {"gov.uk", "hmrc.gov.uk"},
	"DE": {"zoll.de", "bmwk.de"},
	"FR": {"douane.gouv.fr", "entreprises.gouv.fr"},
	"ES": {"agenciatributaria.es", "aeat.es"},
	"IT": {"agenziadogane.it"},
	"CA": {"cbsa-asfc.gc.ca"},
	"AU": {"abf.gov.au", "austrade.gov.au"},
	"NZ": {"customs.govt.nz"},
	"JP": {"customs.go.jp"},
	"CN": {"customs.gov.cn"},
	"IN": {"cbic.gov.in"},
	"BR": {"gov.br"},
	"MX": {"gob.mx"},
	"AR": {"argentina.gob.ar"},
	"CL": {"aduana.cl"},
	"SG": {"customs.gov.sg"},
	"HK": {"customs.gov.hk"},
	"KR": {"customs.go.kr"},
	"TW": {"customs.gov.tw"},
	"TH": {"customs.go.th"},
	"MY": {"customs.gov.my"},
	"ID": {"beacukai.go.id"},
	"PH": {"customs.gov.ph"},
	"VN": {"customs.gov.vn"},
	"AE": {"government.ae"},
	"SA": {"customs.gov.sa"},
	"TR": {"ticaret.gov.tr"},
	"ZA": {"sars.gov.za"},
	"PL": {"gov.pl"},
	"NL": {"government.nl"},
	"BE": {"belgium.be"},
	"SE": {"tullverket.se"},
	"NO": {"toll.no"},
	"DK": {"skat.dk"},
	"FI": {"tulli.fi"},
	"AT": {"bmf.gv.at"},
	"CH": {"bazg.admin.ch"},
	"IE": {"revenue.ie"},
	"PT": {"portaldasfinancas.gov.pt"},
	"GR": {"gsis.gr"},
	"CZ": {"celnisprava.cz"},
	"HU": {"nav.gov.hu"},
	"RO": {"anaf.ro"},
}

// CustomsDomains returns the official customs authority domains used to bias
// regulation searches toward authoritative sources.
func CustomsDomains(code string) []string {
	if d, ok := customsDomains[strings.ToUpper(code)]; ok {
		return d
	}
	return []string{strings.ToLower(code) + ".gov"}
}

var taxDomains = map[string][]string{
	"US": {"cbp.gov", "trade.gov", "usitc.gov", "irs.gov"},
	"GB": {"gov.uk", "hmrc.gov.uk"},
	"DE": {"zoll.de", "bmf.de"},
	"FR": {"douane.gouv.fr", "impots.gouv.fr"},
	"ES": {"agenciatributaria.es", "aeat.es"},
	"IT": {"agenziadogane.it", "agenziaentrate.gov.it"},
	"CA": {"cbsa-asfc.gc.ca", "canada.ca"},
	"AU": {"abf.gov.au", "ato.gov.au"},
	"JP": {"customs.go.jp", "nta.go.jp"},
	"CN": {"customs.gov.cn", "chinatax.gov.cn"},
	"IN": {"cbic.gov.in", "incometaxindia.gov.in"},
	"BR": {"gov.br", "receita.fazenda.gov.br"},
	"MX": {"gob.mx", "sat.gob.mx"},
	"AR": {"argentina.gob.ar", "afip.gob.ar"},
	"CL": {"aduana.cl", "sii.cl"},
	"KR": {"customs.go.kr", "nts.go.kr"},
	"SG": {"customs.gov.sg", "iras.gov.sg"},
	"NZ": {"customs.govt.nz", "ird.govt.nz"},
	"TH": {"customs.go.th", "rd.go.th"},
	"MY": {"customs.gov.my", "hasil.gov.my"},
	"ID": {"beacukai.go.id", "pajak.go.id"},
	"VN": {"customs.gov.vn"},
	"AE": {"government.ae", "tax.gov.ae"},
	"SA": {"customs.gov.sa", "gazt.gov.sa"},
	"TR": {"ticaret.gov.tr", "gib.gov.tr"},
	"ZA": {"sars.gov.za"},
	"PL": {"gov.pl", "podatki.gov.pl"},
	"NL": {"government.nl", "belastingdienst.nl"},
	"SE": {"tullverket.se", "skatteverket.se"},
	"NO": {"toll.no", "skatteetaten.no"},
	"DK": {"skat.dk"},
	"FI": {"tulli.fi", "vero.fi"},
	"AT": {"bmf.gv.at"},
	"CH": {"bazg.admin.ch", "estv.admin.ch"},
	"IE": {"revenue.ie"},
	"PT": {"portaldasfinancas.gov.pt"},
	"CZ": {"celnisprava.cz"},
	"HU": {"nav.gov.hu"},
	"RO": {"anaf.ro"},
	"CO": {"dian.gov.co"},
	"PE": {"sunat.gob.pe"},
	"PH": {"customs.gov.ph", "bir.gov.ph"},
}

// TaxDomains returns tax authority domains for landed-cost research. Unlike
// CustomsDomains there is no fallback: an empty list means an open search.
func TaxDomains(code string) []string {
	return taxDomains[strings.ToUpper(code)]
}
