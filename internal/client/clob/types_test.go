package clob

import (
	"encoding/json"
	"testing"
)

func TestLevelUnmarshalArrayForm(t *testing.T) {
	var l Level
	if err := json.Unmarshal([]byte(`["0.45", "120.5"]`), &l); err != nil {
		t.Fatalf("unmarshal array form: %v", err)
	}
	if got := l.Price.InexactFloat64(); got != 0.45 {
		t.Fatalf("price = %v, want 0.45", got)
	}
	if got := l.Size.InexactFloat64(); got != 120.5 {
		t.Fatalf("size = %v, want 120.5", got)
	}
}

func TestLevelUnmarshalObjectForm(t *testing.T) {
	cases := []string{
		`{"price": "0.3", "size": "50"}`,
		`{"price": 0.3, "size": 50}`,
		`{"price": "0.3", "qty": "50"}`,
	}
	for _, c := range cases {
		var l Level
		if err := json.Unmarshal([]byte(c), &l); err != nil {
			t.Fatalf("unmarshal %s: %v", c, err)
		}
		if got := l.Price.InexactFloat64(); got != 0.3 {
			t.Fatalf("%s: price = %v, want 0.3", c, got)
		}
		if got := l.Size.InexactFloat64(); got != 50.0 {
			t.Fatalf("%s: size = %v, want 50", c, got)
		}
	}
}

func TestLevelUnmarshalRejectsGarbage(t *testing.T) {
	var l Level
	if err := json.Unmarshal([]byte(`"not a level"`), &l); err == nil {
		t.Fatal("expected error for non-level payload")
	}
}

func TestParseOrderBook(t *testing.T) {
	body := []byte(`{"bids":[["0.25","10"],["0.24","4"]],"asks":[{"price":"0.30","size":"7"}]}`)
	book, err := parseOrderBook(body)
	if err != nil {
		t.Fatalf("parseOrderBook: %v", err)
	}
	if len(book.Bids) != 2 || len(book.Asks) != 1 {
		t.Fatalf("got %d bids / %d asks, want 2 / 1", len(book.Bids), len(book.Asks))
	}
	if got := book.Asks[0].Price.InexactFloat64(); got != 0.30 {
		t.Fatalf("ask price = %v, want 0.30", got)
	}
}

func TestLevelsConversion(t *testing.T) {
	body := []byte(`{"bids":[["0.25","10"]],"asks":[]}`)
	book, err := parseOrderBook(body)
	if err != nil {
		t.Fatalf("parseOrderBook: %v", err)
	}
	levels := Levels(book.Bids)
	if len(levels) != 1 {
		t.Fatalf("got %d levels, want 1", len(levels))
	}
	if levels[0].Price != 0.25 || levels[0].Size != 10 {
		t.Fatalf("level = %+v, want {0.25 10}", levels[0])
	}
}

func TestDecimalNull(t *testing.T) {
	var d Decimal
	if err := json.Unmarshal([]byte(`null`), &d); err != nil {
		t.Fatalf("unmarshal null: %v", err)
	}
	if !d.IsZero() {
		t.Fatalf("null decimal should be zero, got %s", d.String())
	}
}
