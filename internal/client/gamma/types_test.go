package gamma

import (
	"encoding/json"
	"testing"
)

func TestStringListNestedForm(t *testing.T) {
	var l StringList
	if err := json.Unmarshal([]byte(`"[\"0.42\", \"0.58\"]"`), &l); err != nil {
		t.Fatalf("unmarshal nested form: %v", err)
	}
	if len(l) != 2 || l[0] != "0.42" || l[1] != "0.58" {
		t.Fatalf("list = %v, want [0.42 0.58]", l)
	}
}

func TestStringListDirectForm(t *testing.T) {
	var l StringList
	if err := json.Unmarshal([]byte(`["a", "b"]`), &l); err != nil {
		t.Fatalf("unmarshal direct form: %v", err)
	}
	if len(l) != 2 || l[0] != "a" {
		t.Fatalf("list = %v, want [a b]", l)
	}
}

func TestStringListMalformedIsEmpty(t *testing.T) {
	cases := []string{`"not json"`, `null`, `""`, `42`}
	for _, c := range cases {
		var l StringList
		if err := json.Unmarshal([]byte(c), &l); err != nil {
			t.Fatalf("unmarshal %s: %v", c, err)
		}
		if len(l) != 0 {
			t.Fatalf("%s: list = %v, want empty", c, l)
		}
	}
}

func TestMarketAccessors(t *testing.T) {
	body := []byte(`{
		"id": "m1",
		"question": "Will NVDA be above $150 in January 2026?",
		"outcomePrices": "[\"0.62\", \"0.38\"]",
		"clobTokenIds": "[\"tok-yes\", \"tok-no\"]",
		"active": true
	}`)
	var m Market
	if err := json.Unmarshal(body, &m); err != nil {
		t.Fatalf("unmarshal market: %v", err)
	}
	if got := m.YesTokenID(); got != "tok-yes" {
		t.Fatalf("YesTokenID = %q, want tok-yes", got)
	}
	yes, ok := m.YesProbability()
	if !ok || yes != 0.62 {
		t.Fatalf("YesProbability = %v, %v; want 0.62, true", yes, ok)
	}
	no, ok := m.NoProbability()
	if !ok || no != 0.38 {
		t.Fatalf("NoProbability = %v, %v; want 0.38, true", no, ok)
	}
	if len(m.Raw()) == 0 {
		t.Fatal("Raw() should retain the original payload")
	}
}

func TestMarketMissingPrices(t *testing.T) {
	var m Market
	if err := json.Unmarshal([]byte(`{"id":"m2","question":"q"}`), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := m.YesProbability(); ok {
		t.Fatal("YesProbability should be absent")
	}
	if got := m.YesTokenID(); got != "" {
		t.Fatalf("YesTokenID = %q, want empty", got)
	}
}

func TestParseEventsEnvelope(t *testing.T) {
	direct := []byte(`[{"id":"e1","slug":"s","markets":[]}]`)
	events, err := parseEvents(direct)
	if err != nil || len(events) != 1 {
		t.Fatalf("direct: events = %v, err = %v", events, err)
	}
	wrapped := []byte(`{"data":[{"id":"e2","slug":"s2"}]}`)
	events, err = parseEvents(wrapped)
	if err != nil || len(events) != 1 || events[0].ID != "e2" {
		t.Fatalf("wrapped: events = %v, err = %v", events, err)
	}
}
