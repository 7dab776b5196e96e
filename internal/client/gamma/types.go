package gamma

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Event is one Gamma event with its child markets.
type Event struct {
	ID      string   `json:"id"`
	Slug    string   `json:"slug"`
	Title   string   `json:"title"`
	Markets []Market `json:"markets"`
}

// Market is one above/below market. Gamma serializes outcomePrices and
// clobTokenIds as JSON-encoded strings inside the JSON document, so both are
// normalized through StringList.
type Market struct {
	ID            string     `json:"id"`
	Question      string     `json:"question"`
	OutcomePrices StringList `json:"outcomePrices"`
	ClobTokenIDs  StringList `json:"clobTokenIds"`
	Active        bool       `json:"active"`
	Closed        bool       `json:"closed"`

	raw json.RawMessage
}

// Raw returns the market exactly as Gamma sent it.
func (m *Market) Raw() json.RawMessage {
	return m.raw
}

func (m *Market) UnmarshalJSON(b []byte) error {
	type plain Market
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*m = Market(p)
	m.raw = append(json.RawMessage(nil), b...)
	return nil
}

// YesTokenID returns the first CLOB token id, which Gamma orders as the YES
// outcome.
func (m *Market) YesTokenID() string {
	if len(m.ClobTokenIDs) == 0 {
		return ""
	}
	return m.ClobTokenIDs[0]
}

// YesProbability returns outcomePrices[0] as a float when present and
// parseable.
func (m *Market) YesProbability() (float64, bool) {
	return m.OutcomePrices.Float(0)
}

// NoProbability returns outcomePrices[1] as a float when present and
// parseable.
func (m *Market) NoProbability() (float64, bool) {
	return m.OutcomePrices.Float(1)
}

// StringList accepts either a JSON array of strings or a string containing a
// JSON array, the two shapes Gamma has shipped for these fields. Malformed
// input decodes to an empty list rather than failing the whole event.
type StringList []string

func (l *StringList) UnmarshalJSON(b []byte) error {
	*l = nil
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	var direct []string
	if err := json.Unmarshal(b, &direct); err == nil {
		*l = direct
		return nil
	}
	var nested string
	if err := json.Unmarshal(b, &nested); err != nil {
		return nil
	}
	nested = strings.TrimSpace(nested)
	if nested == "" {
		return nil
	}
	var inner []string
	if err := json.Unmarshal([]byte(nested), &inner); err != nil {
		return nil
	}
	*l = inner
	return nil
}

// Float parses the i-th element as a number.
func (l StringList) Float(i int) (float64, bool) {
	if i < 0 || i >= len(l) {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(l[i]), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func parseEvents(body []byte) ([]Event, error) {
	var events []Event
	if err := json.Unmarshal(body, &events); err == nil {
		return events, nil
	}
	// Some deployments wrap the list in a data envelope.
	var wrapped struct {
		Data []Event `json:"data"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, err
	}
	return wrapped.Data, nil
}
