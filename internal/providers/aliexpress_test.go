package providers

import "testing"

func TestSignParams(t *testing.T) {
	params := map[string]string{
		"method":   "aliexpress.affiliate.product.smartmatch",
		"app_key":  "12345",
		"keywords": "usb cable",
	}

	// MD5("secret" + "app_key12345" + "keywordsusb cable" +
	//     "methodaliexpress.affiliate.product.smartmatch" + "secret")
	got := signParams(params, "secret")
	want := "DC7B56114CF602AC272AD959588E58BB"
	if got != want {
		t.Fatalf("signature = %s, want %s", got, want)
	}
}

func TestSignParams_KeyOrderIndependent(t *testing.T) {
	a := signParams(map[string]string{"b": "2", "a": "1", "c": "3"}, "s")
	b := signParams(map[string]string{"c": "3", "a": "1", "b": "2"}, "s")
	if a != b {
		t.Fatalf("signature depends on map iteration order: %s vs %s", a, b)
	}
	if len(a) != 32 {
		t.Fatalf("signature length = %d, want 32 hex chars", len(a))
	}
}

func TestParseAliPrice(t *testing.T) {
	if v := parseAliPrice("4.99"); v == nil || *v != 4.99 {
		t.Fatalf("got %v, want 4.99", v)
	}
	if v := parseAliPrice("  12.50 "); v == nil || *v != 12.50 {
		t.Fatalf("got %v, want 12.50", v)
	}
	if v := parseAliPrice(""); v != nil {
		t.Fatalf("empty string should be nil, got %v", *v)
	}
	if v := parseAliPrice("n/a"); v != nil {
		t.Fatalf("non-numeric should be nil, got %v", *v)
	}
}

func TestAliExpressConfigured(t *testing.T) {
	if (&AliExpress{}).Configured() {
		t.Fatalf("empty credentials must not report configured")
	}
	if !(&AliExpress{AppKey: "k", AppSecret: "s"}).Configured() {
		t.Fatalf("full credentials must report configured")
	}
}
