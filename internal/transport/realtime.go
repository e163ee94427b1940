package transport

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	realtimeBufferSize   = 64
	realtimeWriteTimeout = 10 * time.Second
	realtimeMaxBackoff   = 30 * time.Second
)

// realtimeFrame is the raw websocket frame. The backend tags every frame with
// an event discriminator.
type realtimeFrame struct {
	Event    string          `json:"event"`
	Message  json.RawMessage `json:"message,omitempty"`
	Activity json.RawMessage `json:"activity,omitempty"`
}

// WebsocketChannel implements RealtimeChannel over a gorilla/websocket
// connection. All inbound frames are decoded and forwarded on a single
// goroutine so receipt order is preserved end to end.
type WebsocketChannel struct {
	url          string
	header       map[string][]string
	pingInterval time.Duration
	logger       zerolog.Logger

	events    chan Envelope
	cancel    context.CancelFunc
	closeOnce sync.Once
	done      chan struct{}
}

// DialRealtime connects the realtime feed and starts the read loop. The
// channel reconnects with capped backoff until Close is called.
func DialRealtime(ctx context.Context, wsURL string, cfg Config, pingInterval time.Duration, logger zerolog.Logger) *WebsocketChannel {
	if pingInterval <= 0 {
		pingInterval = 25 * time.Second
	}

	runCtx, cancel := context.WithCancel(ctx)
	ch := &WebsocketChannel{
		url: wsURL,
		header: map[string][]string{
			"Authorization":     {"Bearer " + cfg.SessionToken},
			"x-converse-appid":  {cfg.AppID},
			"x-converse-userid": {cfg.UserID},
		},
		pingInterval: pingInterval,
		logger:       logger.With().Str("component", "realtime_channel").Logger(),
		events:       make(chan Envelope, realtimeBufferSize),
		cancel:       cancel,
		done:         make(chan struct{}),
	}

	go ch.run(runCtx)
	return ch
}

func (c *WebsocketChannel) Events() <-chan Envelope {
	return c.events
}

func (c *WebsocketChannel) Close() error {
	c.closeOnce.Do(func() {
		c.cancel()
	})
	<-c.done
	return nil
}

func (c *WebsocketChannel) run(ctx context.Context) {
	defer close(c.done)
	defer close(c.events)

	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, c.header)
		if err != nil {
			c.logger.Warn().Err(err).Dur("backoff", backoff).Msg("realtime dial failed")
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > realtimeMaxBackoff {
				backoff = realtimeMaxBackoff
			}
			continue
		}

		backoff = time.Second
		c.logger.Debug().Msg("realtime connected")
		c.readLoop(ctx, conn)
		_ = conn.Close()
	}
}

func (c *WebsocketChannel) readLoop(ctx context.Context, conn *websocket.Conn) {
	pingDone := make(chan struct{})
	defer close(pingDone)

	go func() {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				deadline := time.Now().Add(realtimeWriteTimeout)
				if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
					c.logger.Debug().Err(err).Msg("realtime ping failed")
					_ = conn.Close()
					return
				}
			case <-pingDone:
				return
			case <-ctx.Done():
				_ = conn.Close()
				return
			}
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				c.logger.Debug().Err(err).Msg("realtime read loop ended")
			}
			return
		}

		envelope, ok := c.decode(data)
		if !ok {
			continue
		}

		select {
		case c.events <- envelope:
		case <-ctx.Done():
			return
		}
	}
}

func (c *WebsocketChannel) decode(data []byte) (Envelope, bool) {
	var frame realtimeFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		c.logger.Warn().Err(err).Msg("dropping malformed realtime frame")
		return Envelope{}, false
	}

	switch frame.Event {
	case "message":
		var envelope Envelope
		envelope.Type = EnvelopeMessage
		if err := json.Unmarshal(frame.Message, &envelope.Message); err != nil {
			c.logger.Warn().Err(err).Msg("dropping malformed realtime message")
			return Envelope{}, false
		}
		return envelope, true
	case "activity":
		var envelope Envelope
		envelope.Type = EnvelopeActivity
		if err := json.Unmarshal(frame.Activity, &envelope.Activity); err != nil {
			c.logger.Warn().Err(err).Msg("dropping malformed realtime activity")
			return Envelope{}, false
		}
		return envelope, true
	default:
		c.logger.Debug().Str("event", frame.Event).Msg("ignoring unknown realtime event")
		return Envelope{}, false
	}
}
