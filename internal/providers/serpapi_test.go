package providers

import (
	"encoding/json"
	"testing"
)

func TestParsePrice(t *testing.T) {
	cases := []struct {
		in   string
		want *float64
	}{
		{"$19.99", fp(19.99)},
		{"US $1,234.50", fp(1234.50)},
		{"from $5", fp(5)},
		{"", nil},
		{"Call for price", nil},
	}
	for _, tc := range cases {
		got, _ := ParsePrice(tc.in)
		switch {
		case tc.want == nil && got != nil:
			t.Errorf("ParsePrice(%q) = %v, want nil", tc.in, *got)
		case tc.want != nil && (got == nil || *got != *tc.want):
			t.Errorf("ParsePrice(%q) = %v, want %v", tc.in, got, *tc.want)
		}
	}
}

func TestSerpPrice_DecodesAllShapes(t *testing.T) {
	var obj serpPrice
	if err := json.Unmarshal([]byte(`{"raw":"$12.99","extracted":12.99,"currency":"USD"}`), &obj); err != nil {
		t.Fatalf("object: %v", err)
	}
	if obj.Extracted == nil || *obj.Extracted != 12.99 || obj.Raw != "$12.99" {
		t.Fatalf("object decoded as %+v", obj)
	}

	var str serpPrice
	if err := json.Unmarshal([]byte(`"$7.50"`), &str); err != nil {
		t.Fatalf("string: %v", err)
	}
	if str.Raw != "$7.50" {
		t.Fatalf("string decoded as %+v", str)
	}

	var num serpPrice
	if err := json.Unmarshal([]byte(`42.5`), &num); err != nil {
		t.Fatalf("number: %v", err)
	}
	if num.Value == nil || *num.Value != 42.5 {
		t.Fatalf("number decoded as %+v", num)
	}
}

func TestDecodeItems_MixedPriceShapes(t *testing.T) {
	// google shopping uses string prices while amazon nests objects; one
	// payload must not void the other
	data := map[string]json.RawMessage{
		"shopping_results": json.RawMessage(`[
			{"title":"A","price":"$9.99","extracted_price":9.99},
			{"title":"B","price":{"raw":"$4.00","value":4.0}}
		]`),
	}

	items := decodeItems(data, "shopping_results", "organic_results")
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}

	pa, _ := itemPrice(items[0])
	if pa == nil || *pa != 9.99 {
		t.Fatalf("item A price = %v, want 9.99", pa)
	}
	pb, _ := itemPrice(items[1])
	if pb == nil || *pb != 4.0 {
		t.Fatalf("item B price = %v, want 4.0", pb)
	}
}

func TestDecodeItems_SkipsMalformedElements(t *testing.T) {
	data := map[string]json.RawMessage{
		"organic_results": json.RawMessage(`[
			{"title":"good","price":"$1.00"},
			{"title":"bad","rating":{"nested":"object"}},
			{"title":"also good","price":"$2.00"}
		]`),
	}

	items := decodeItems(data, "organic_results")
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2 (malformed element skipped)", len(items))
	}
	if items[0].Title != "good" || items[1].Title != "also good" {
		t.Fatalf("items = %+v", items)
	}
}

func TestItemPrice_PreferenceOrder(t *testing.T) {
	// structured value wins over the formatted string
	it := serpItem{Price: serpPrice{Raw: "$99.00", Value: fp(98.5)}}
	got, formatted := itemPrice(it)
	if got == nil || *got != 98.5 {
		t.Fatalf("price = %v, want 98.5", got)
	}
	if formatted != "$99.00" {
		t.Fatalf("formatted = %q, want raw string", formatted)
	}

	// walmart primary offer
	it = serpItem{}
	it.PrimaryOffer.OfferPrice = fp(15)
	got, formatted = itemPrice(it)
	if got == nil || *got != 15 || formatted != "$15.00" {
		t.Fatalf("price = %v formatted = %q", got, formatted)
	}
}

func fp(v float64) *float64 { return &v }
