package clob

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

const DefaultMarketWSSURL = "wss://ws-subscriptions-clob.polymarket.com/ws/market"

type marketSubscribe struct {
	Type      string   `json:"type"`
	AssetsIDs []string `json:"assets_ids,omitempty"`
}

type subscriptionUpdate struct {
	AssetsIDs []string `json:"assets_ids"`
	Operation string   `json:"operation"`
}

// BookEnvelope carries the common header of market-channel messages. The raw
// payload is handed to the consumer alongside it for event-specific decoding.
type BookEnvelope struct {
	EventType string `json:"event_type"`
	AssetID   string `json:"asset_id"`
	Market    string `json:"market"`
	Timestamp string `json:"timestamp"`
}

// BookEvent is a full "book" message from the market channel.
type BookEvent struct {
	AssetID string  `json:"asset_id"`
	Bids    []Level `json:"bids"`
	Asks    []Level `json:"asks"`
}

// AssetIDProvider supplies the current subscription set, typically the YES
// token ids of the contracts seen in the last refresh cycle.
type AssetIDProvider func(context.Context) ([]string, error)

type wsConn struct {
	url  string
	conn *websocket.Conn
}

func dialWS(ctx context.Context, url string) (*wsConn, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	// Full book snapshots can exceed the default 32KB read limit.
	conn.SetReadLimit(2 << 20)
	return &wsConn{url: url, conn: conn}, nil
}

func (c *wsConn) close(status websocket.StatusCode, reason string) {
	if c == nil || c.conn == nil {
		return
	}
	_ = c.conn.Close(status, reason)
}

func (c *wsConn) writeJSON(ctx context.Context, v any) error {
	if c == nil || c.conn == nil {
		return fmt.Errorf("ws not connected")
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.conn.Write(ctx, websocket.MessageText, payload)
}

func (c *wsConn) read(ctx context.Context) (BookEnvelope, []byte, error) {
	if c == nil || c.conn == nil {
		return BookEnvelope{}, nil, fmt.Errorf("ws not connected")
	}
	_, data, err := c.conn.Read(ctx)
	if err != nil {
		return BookEnvelope{}, nil, err
	}
	var env BookEnvelope
	_ = json.Unmarshal(data, &env)
	return env, data, nil
}

type MarketStreamOptions struct {
	URL               string
	AssetIDProvider   AssetIDProvider
	RefreshInterval   time.Duration
	HeartbeatInterval time.Duration
	PingTimeout       time.Duration
	BackoffMin        time.Duration
	BackoffMax        time.Duration
	Logger            *zap.Logger
}

// MarketStream maintains a market-channel subscription with reconnects,
// heartbeats and periodic re-sync of the asset set.
type MarketStream struct {
	opts      MarketStreamOptions
	seenFirst bool
}

func NewMarketStream(opts MarketStreamOptions) *MarketStream {
	if strings.TrimSpace(opts.URL) == "" {
		opts.URL = DefaultMarketWSSURL
	}
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = 20 * time.Second
	}
	if opts.PingTimeout <= 0 {
		opts.PingTimeout = 5 * time.Second
	}
	if opts.BackoffMin <= 0 {
		opts.BackoffMin = time.Second
	}
	if opts.BackoffMax <= 0 {
		opts.BackoffMax = 30 * time.Second
	}
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = 30 * time.Second
	}
	return &MarketStream{opts: opts}
}

// Run blocks until ctx is cancelled, reconnecting with jittered backoff on
// every failure. onMessage is called for every non-ping market message.
func (s *MarketStream) Run(ctx context.Context, onMessage func(BookEnvelope, []byte)) error {
	if s == nil {
		return fmt.Errorf("stream is nil")
	}
	if s.opts.AssetIDProvider == nil {
		return fmt.Errorf("asset id provider is required")
	}
	backoff := s.opts.BackoffMin
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err := s.runOnce(ctx, onMessage)
		if err == nil || errors.Is(err, context.Canceled) {
			return err
		}
		if s.opts.Logger != nil {
			s.opts.Logger.Warn("clob ws session ended", zap.Error(err))
		}
		if err := sleepWithJitter(ctx, backoff); err != nil {
			return err
		}
		backoff = nextBackoff(backoff, s.opts.BackoffMax)
	}
}

func (s *MarketStream) runOnce(ctx context.Context, onMessage func(BookEnvelope, []byte)) error {
	conn, err := dialWS(ctx, s.opts.URL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.close(websocket.StatusNormalClosure, "reconnect")

	assetIDs, err := s.opts.AssetIDProvider(ctx)
	if err != nil {
		return fmt.Errorf("asset ids: %w", err)
	}
	if len(assetIDs) == 0 {
		return fmt.Errorf("no assets to subscribe")
	}
	if err := conn.writeJSON(ctx, marketSubscribe{Type: "market", AssetsIDs: assetIDs}); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	if s.opts.Logger != nil {
		s.opts.Logger.Info("clob ws subscribed", zap.Int("assets", len(assetIDs)))
	}

	current := setFromSlice(assetIDs)
	bgErr := make(chan error, 2)
	bgCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		ticker := time.NewTicker(s.opts.HeartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-bgCtx.Done():
				return
			case <-ticker.C:
				pingCtx, cancelPing := context.WithTimeout(bgCtx, s.opts.PingTimeout)
				err := conn.conn.Ping(pingCtx)
				cancelPing()
				if err != nil {
					bgErr <- fmt.Errorf("ping: %w", err)
					return
				}
			}
		}
	}()

	go func() {
		ticker := time.NewTicker(s.opts.RefreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-bgCtx.Done():
				return
			case <-ticker.C:
				ids, err := s.opts.AssetIDProvider(bgCtx)
				if err != nil {
					continue
				}
				next := setFromSlice(ids)
				added, removed := diffSets(current, next)
				if len(added) > 0 {
					_ = conn.writeJSON(bgCtx, subscriptionUpdate{AssetsIDs: added, Operation: "subscribe"})
				}
				if len(removed) > 0 {
					_ = conn.writeJSON(bgCtx, subscriptionUpdate{AssetsIDs: removed, Operation: "unsubscribe"})
				}
				current = next
			}
		}
	}()

	for {
		select {
		case err := <-bgErr:
			return err
		default:
		}
		env, raw, err := conn.read(ctx)
		if err != nil {
			return err
		}
		if isPingPayload(env, raw) {
			_ = conn.writeJSON(ctx, map[string]string{"event_type": "pong"})
			continue
		}
		if s.opts.Logger != nil && !s.seenFirst {
			s.seenFirst = true
			s.opts.Logger.Info("clob ws first message", zap.String("event_type", env.EventType))
		}
		if onMessage != nil {
			onMessage(env, raw)
		}
	}
}

func isPingPayload(env BookEnvelope, raw []byte) bool {
	if strings.EqualFold(env.EventType, "ping") {
		return true
	}
	if strings.TrimSpace(string(raw)) == "ping" {
		return true
	}
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &probe); err == nil {
		return strings.EqualFold(probe.Type, "ping")
	}
	return false
}

func nextBackoff(current, max time.Duration) time.Duration {
	next := current * 2
	if next > max {
		return max
	}
	return next
}

func sleepWithJitter(ctx context.Context, base time.Duration) error {
	if base <= 0 {
		return nil
	}
	jitter := time.Duration(rand.Int63n(int64(base/2) + 1))
	timer := time.NewTimer(base + jitter)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func setFromSlice(items []string) map[string]struct{} {
	out := make(map[string]struct{}, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out[item] = struct{}{}
	}
	return out
}

func diffSets(current, next map[string]struct{}) (added, removed []string) {
	for key := range next {
		if _, ok := current[key]; !ok {
			added = append(added, key)
		}
	}
	for key := range current {
		if _, ok := next[key]; !ok {
			removed = append(removed, key)
		}
	}
	return added, removed
}
