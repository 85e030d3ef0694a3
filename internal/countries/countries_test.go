package countries

import "testing"

func TestName(t *testing.T) {
	if got := Name("cl"); got != "Chile" {
		t.Fatalf("Name(cl) = %q", got)
	}
	if got := Name("XX"); got != "XX" {
		t.Fatalf("unknown code should fall back to itself, got %q", got)
	}
}

func TestCurrency(t *testing.T) {
	if got := Currency("CL"); got != "CLP" {
		t.Fatalf("Currency(CL) = %q", got)
	}
	if got := Currency("XX"); got != "USD" {
		t.Fatalf("unknown code should default to USD, got %q", got)
	}
}

func TestLanguageFor(t *testing.T) {
	if lang := LanguageFor("BR"); lang.Code != "pt" {
		t.Fatalf("LanguageFor(BR) = %+v", lang)
	}
	if lang := LanguageFor("XX"); lang.Code != "en" {
		t.Fatalf("unknown code should default to English, got %+v", lang)
	}
}

func TestCustomsDomains(t *testing.T) {
	if domains := CustomsDomains("US"); len(domains) == 0 {
		t.Fatalf("expected customs domains for US")
	}
	// unknown countries fall back to the conventional .gov domain
	if domains := CustomsDomains("XX"); len(domains) != 1 || domains[0] != "xx.gov" {
		t.Fatalf("fallback domains = %v", domains)
	}
}
