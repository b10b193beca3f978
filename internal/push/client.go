package push

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

var (
	// ErrClosed is returned by Emit after Close.
	ErrClosed = errors.New("push channel closed")
	// ErrNotConnected is returned by Emit while the transport is down.
	ErrNotConnected = errors.New("push channel not connected")
)

const (
	defaultBaseBackoff = time.Second
	defaultMaxBackoff  = 30 * time.Second
	defaultBuffer      = 64
	handshakeTimeout   = 10 * time.Second
	writeTimeout       = 5 * time.Second
)

// Options tune a Client. Zero values select defaults.
type Options struct {
	Dialer      *websocket.Dialer
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	Buffer      int
	Logger      *zerolog.Logger
}

// Connector opens push channels to a fixed endpoint.
type Connector struct {
	URL     *url.URL
	Options Options
}

// Dial starts a Client for the connector's endpoint.
func (c Connector) Dial(ctx context.Context) (*Client, error) {
	if c.URL == nil {
		return nil, fmt.Errorf("push url is nil")
	}
	return Dial(ctx, c.URL.String(), c.Options)
}

// Client is a self-healing Socket.IO connection. Create one with Dial.
type Client struct {
	endpoint string
	opts     Options
	log      zerolog.Logger

	events chan Event
	cancel context.CancelFunc
	done   chan struct{}

	closeOnce sync.Once

	mu   sync.Mutex // guards conn and serializes writes
	conn *websocket.Conn
}

// Dial starts connecting to endpoint in the background and returns
// immediately. Progress is reported on Events(). Cancelling ctx has the same
// effect as Close.
func Dial(ctx context.Context, endpoint string, opts Options) (*Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse push url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("parse push url %q: unsupported scheme %q", endpoint, u.Scheme)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if opts.Dialer == nil {
		opts.Dialer = &websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	}
	if opts.BaseBackoff <= 0 {
		opts.BaseBackoff = defaultBaseBackoff
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = defaultMaxBackoff
	}
	if opts.Buffer <= 0 {
		opts.Buffer = defaultBuffer
	}
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}

	runCtx, cancel := context.WithCancel(ctx)
	c := &Client{
		endpoint: u.String(),
		opts:     opts,
		log:      log.With().Str("endpoint", u.Host).Logger(),
		events:   make(chan Event, opts.Buffer),
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go c.run(runCtx)
	return c, nil
}

// Events returns the inbound stream. It is closed after Close.
func (c *Client) Events() <-chan Event {
	return c.events
}

// Connected reports whether a handshaked transport is currently up.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Emit sends a client event. payload may be nil.
func (c *Client) Emit(name string, payload any) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	frame, err := encodeEvent(name, payload)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return ErrNotConnected
	}
	return c.writeLocked(c.conn, frame)
}

// Close stops the client and waits for the event stream to close. Calling it
// again is a no-op.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.cancel()
		c.mu.Lock()
		if c.conn != nil {
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeTimeout))
			_ = c.conn.Close()
		}
		c.mu.Unlock()
	})
	<-c.done
	return nil
}

func (c *Client) run(ctx context.Context) {
	defer close(c.done)
	defer close(c.events)

	failures := 0
	for {
		conn, open, err := c.connect(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.log.Warn().Err(err).Int("failures", failures).Msg("push connect failed")
			c.deliver(ctx, Event{Kind: KindError, Err: err})
		} else {
			failures = 0
			c.log.Info().Str("sid", open.SID).Msg("push connected")
			c.deliver(ctx, Event{Kind: KindConnect})

			stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
			err = c.readLoop(ctx, conn, open)
			stop()

			c.mu.Lock()
			c.conn = nil
			c.mu.Unlock()
			_ = conn.Close()

			if ctx.Err() != nil {
				return
			}
			c.log.Warn().Err(err).Msg("push disconnected")
			c.deliver(ctx, Event{Kind: KindDisconnect, Err: err})
		}

		failures++
		delay := backoff(failures, c.opts.BaseBackoff, c.opts.MaxBackoff)
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// connect dials and completes the Engine.IO and Socket.IO handshakes. On
// success the connection is published for Emit.
func (c *Client) connect(ctx context.Context) (*websocket.Conn, openPayload, error) {
	conn, resp, err := c.opts.Dialer.DialContext(ctx, c.endpoint, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, openPayload{}, fmt.Errorf("dial: %w", err)
	}

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	fail := func(err error) (*websocket.Conn, openPayload, error) {
		_ = conn.Close()
		return nil, openPayload{}, err
	}

	_ = conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	frame, err := readText(conn)
	if err != nil {
		return fail(fmt.Errorf("read open: %w", err))
	}
	open, err := parseOpen(frame)
	if err != nil {
		return fail(err)
	}

	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, []byte{eioMessage, sioConnect}); err != nil {
		return fail(fmt.Errorf("join namespace: %w", err))
	}

	for {
		frame, err := readText(conn)
		if err != nil {
			return fail(fmt.Errorf("read connect ack: %w", err))
		}
		switch {
		case frame == "":
			continue
		case frame[0] == eioPing:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, []byte{eioPong}); err != nil {
				return fail(fmt.Errorf("pong: %w", err))
			}
			continue
		case frame[0] != eioMessage:
			continue
		}
		pkt, ok, err := parseSocketPacket(frame[1:])
		if err != nil {
			return fail(err)
		}
		if !ok {
			continue
		}
		switch pkt.Type {
		case sioConnect:
			c.mu.Lock()
			c.conn = conn
			c.mu.Unlock()
			return conn, open, nil
		case sioConnectError:
			return fail(fmt.Errorf("namespace rejected: %s", connectErrorMessage(pkt.Payload)))
		}
	}
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn, open openPayload) error {
	deadline := open.readDeadline()
	for {
		_ = conn.SetReadDeadline(time.Now().Add(deadline))
		frame, err := readText(conn)
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return fmt.Errorf("server closed connection: %w", err)
			}
			return fmt.Errorf("read: %w", err)
		}
		if frame == "" {
			continue
		}

		switch frame[0] {
		case eioPing:
			c.mu.Lock()
			err := c.writeLocked(conn, []byte{eioPong})
			c.mu.Unlock()
			if err != nil {
				return fmt.Errorf("pong: %w", err)
			}
		case eioClose:
			return fmt.Errorf("server closed session")
		case eioNoop, eioPong:
		case eioMessage:
			pkt, ok, err := parseSocketPacket(frame[1:])
			if err != nil {
				c.log.Warn().Err(err).Str("frame", truncate(frame)).Msg("dropping malformed push packet")
				continue
			}
			if !ok {
				continue
			}
			switch pkt.Type {
			case sioEvent:
				c.deliver(ctx, Event{Kind: kindOf(pkt.Name), Name: pkt.Name, Payload: pkt.Payload})
			case sioDisconnect:
				return fmt.Errorf("server disconnected namespace")
			case sioConnectError:
				return fmt.Errorf("namespace error: %s", connectErrorMessage(pkt.Payload))
			}
		default:
			c.log.Debug().Str("frame", truncate(frame)).Msg("ignoring engine.io packet")
		}
	}
}

func (c *Client) writeLocked(conn *websocket.Conn, frame []byte) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, frame)
}

// deliver hands ev to the consumer, giving up once ctx ends so a stalled
// reader cannot wedge Close.
func (c *Client) deliver(ctx context.Context, ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	select {
	case c.events <- ev:
	case <-ctx.Done():
	}
}

func readText(conn *websocket.Conn) (string, error) {
	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			return "", err
		}
		if mt == websocket.TextMessage {
			return string(data), nil
		}
	}
}

// backoff doubles base per consecutive failure, capped at ceiling.
func backoff(failures int, base, ceiling time.Duration) time.Duration {
	if failures <= 1 {
		return base
	}
	d := base
	for i := 1; i < failures; i++ {
		d *= 2
		if d >= ceiling {
			return ceiling
		}
	}
	return d
}
