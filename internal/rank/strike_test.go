package rank

import "testing"

func TestExtractStrike(t *testing.T) {
	cases := []struct {
		question string
		want     float64
		ok       bool
	}{
		{"NVDA above $150 in January 2026", 150, true},
		{"Will price exceed 1,234.5?", 1234.5, true},
		{"No numbers here", 0, false},
		{"", 0, false},
		{"Above $1,000,000?", 1000000, true},
		{"TSLA above $420.69 on Jan 30", 420.69, true},
		{"reach 5 by friday", 5, true},
	}
	for _, tc := range cases {
		got, ok := ExtractStrike(tc.question)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("ExtractStrike(%q)=(%v,%v) want (%v,%v)", tc.question, got, ok, tc.want, tc.ok)
		}
	}
}
