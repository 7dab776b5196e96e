package clob

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"polyedge/internal/orderbook"
)

// Decimal accepts the CLOB's stringly numbers as well as plain JSON numbers.
type Decimal struct {
	decimal.Decimal
}

func (d *Decimal) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		d.Decimal = decimal.Zero
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		val, err := decimal.NewFromString(s)
		if err != nil {
			return err
		}
		d.Decimal = val
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		d.Decimal = decimal.NewFromFloat(f)
		return nil
	}
	return fmt.Errorf("invalid decimal: %s", string(b))
}

// Level is one price level. The API has shipped both [price, size] pairs and
// {"price": ..., "size": ...} objects, so both are accepted.
type Level struct {
	Price decimal.Decimal
	Size  decimal.Decimal
}

func (l *Level) UnmarshalJSON(b []byte) error {
	var arr []json.RawMessage
	if err := json.Unmarshal(b, &arr); err == nil && len(arr) >= 2 {
		price, err := parseDecimalRaw(arr[0])
		if err != nil {
			return err
		}
		size, err := parseDecimalRaw(arr[1])
		if err != nil {
			return err
		}
		l.Price = price
		l.Size = size
		return nil
	}
	var obj struct {
		Price json.RawMessage `json:"price"`
		Size  json.RawMessage `json:"size"`
		Qty   json.RawMessage `json:"qty"`
	}
	if err := json.Unmarshal(b, &obj); err == nil {
		price, err := parseDecimalRaw(obj.Price)
		if err != nil {
			return err
		}
		sizeRaw := obj.Size
		if len(sizeRaw) == 0 {
			sizeRaw = obj.Qty
		}
		size, err := parseDecimalRaw(sizeRaw)
		if err != nil {
			return err
		}
		l.Price = price
		l.Size = size
		return nil
	}
	return fmt.Errorf("invalid order level: %s", string(b))
}

type OrderBook struct {
	Bids []Level `json:"bids"`
	Asks []Level `json:"asks"`
}

// Levels converts one side of the book to the analyzer's representation.
func Levels(side []Level) []orderbook.Level {
	out := make([]orderbook.Level, 0, len(side))
	for _, l := range side {
		out = append(out, orderbook.Level{
			Price: l.Price.InexactFloat64(),
			Size:  l.Size.InexactFloat64(),
		})
	}
	return out
}

func parseOrderBook(body []byte) (*OrderBook, error) {
	var book OrderBook
	if err := json.Unmarshal(body, &book); err == nil {
		return &book, nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}
	if bidsRaw, ok := raw["bids"]; ok {
		_ = json.Unmarshal(bidsRaw, &book.Bids)
	}
	if asksRaw, ok := raw["asks"]; ok {
		_ = json.Unmarshal(asksRaw, &book.Asks)
	}
	return &book, nil
}

func parseMidpoint(body []byte) (Decimal, error) {
	var resp struct {
		Mid Decimal `json:"mid"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return Decimal{}, err
	}
	return resp.Mid, nil
}

func parseDecimalRaw(b json.RawMessage) (decimal.Decimal, error) {
	if len(b) == 0 {
		return decimal.Zero, fmt.Errorf("missing decimal value")
	}
	var d Decimal
	if err := json.Unmarshal(b, &d); err != nil {
		return decimal.Zero, err
	}
	return d.Decimal, nil
}
