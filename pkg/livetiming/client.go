package livetiming

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/f1grid/livetiming-ingest-go/log"
)

// ConnectionError reports a socket level failure. The client does not
// reconnect itself; the supervising layer restarts the whole pipeline
// (fresh negotiate, fresh connect) when it sees one.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("feed connection: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

type (
	// Client owns one persistent streaming socket. Decoded frames are
	// delivered on Frames; socket level failures terminate Run and are
	// reported on Done.
	Client struct {
		wsURL    string
		topics   []Topic
		dialer   *websocket.Dialer
		conn     *websocket.Conn
		frames   chan Frame
		done     chan error
		writeMu  sync.Mutex
		invocSeq int
		l        *log.Logger
	}
	ClientOption func(*Client)
)

func WithTopics(topics ...Topic) ClientOption {
	return func(c *Client) { c.topics = topics }
}

func WithDialer(d *websocket.Dialer) ClientOption {
	return func(c *Client) { c.dialer = d }
}

func WithClientLogger(l *log.Logger) ClientOption {
	return func(c *Client) { c.l = l }
}

func NewClient(wsURL string, opts ...ClientOption) *Client {
	ret := &Client{
		wsURL:  wsURL,
		topics: DefaultTopics(),
		dialer: websocket.DefaultDialer,
		frames: make(chan Frame),
		done:   make(chan error, 1),
		l:      log.Default().Named("livetiming.client"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Frames exposes the stream of decoded records. The channel is closed
// when the connection terminates.
func (c *Client) Frames() <-chan Frame { return c.frames }

// Done yields the terminal error of Run (nil on clean shutdown).
func (c *Client) Done() <-chan error { return c.done }

// Run dials the streaming endpoint and pumps frames until the context
// is canceled or the socket fails. It blocks; callers run it on its own
// goroutine and watch Done.
//
//nolint:funlen // connection lifecycle reads best in one piece
func (c *Client) Run(ctx context.Context, res *NegotiationResult) {
	defer close(c.frames)
	defer func() { close(c.done) }()

	header := http.Header{}
	header.Set("Origin", originHeader)
	header.Set("User-Agent", userAgent)
	if res.Cookie != "" {
		header.Set("Cookie", fmt.Sprintf("%s=%s", sessionCookie, res.Cookie))
	}
	connectURL := fmt.Sprintf("%s?id=%s", c.wsURL, url.QueryEscape(res.ConnectionToken))

	//nolint:bodyclose // gorilla returns the handshake response for inspection only
	conn, _, err := c.dialer.DialContext(ctx, connectURL, header)
	if err != nil {
		c.done <- &ConnectionError{Err: err}
		return
	}
	c.conn = conn
	defer conn.Close()

	// cancellation closes the socket which in turn unblocks ReadMessage
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	if err := c.sendRecord(handshakeRequest{Protocol: "json", Version: protocolMajor}); err != nil {
		c.done <- &ConnectionError{Err: err}
		return
	}
	c.l.Debug("handshake sent", log.String("url", c.wsURL))

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.done <- &ConnectionError{Err: err}
			return
		}
		for _, record := range splitRecords(msg) {
			frame, err := decodeRecord(record)
			if err != nil {
				// a single malformed record never stops the stream
				c.l.Warn("skipping malformed record", log.ErrorField(err))
				continue
			}
			if frame == nil {
				continue
			}
			if err := c.react(frame); err != nil {
				c.done <- &ConnectionError{Err: err}
				return
			}
			select {
			case c.frames <- frame:
			case <-ctx.Done():
				return
			}
		}
	}
}

// react performs the protocol duties the connection owes the provider
// before a frame is handed downstream.
func (c *Client) react(frame Frame) error {
	switch frame.(type) {
	case HandshakeAck:
		c.l.Debug("handshake complete, subscribing",
			log.Any("topics", c.topics))
		return c.subscribe()
	case Ping:
		// the provider closes the socket when pings go unanswered
		return c.sendRecord(pingRecord{Type: msgTypePing})
	default:
		return nil
	}
}

func (c *Client) subscribe() error {
	c.invocSeq++
	return c.sendRecord(subscribeRequest{
		Type:         msgTypeInvocation,
		InvocationID: strconv.Itoa(c.invocSeq),
		Target:       "Subscribe",
		Arguments:    [][]Topic{c.topics},
	})
}

// sendRecord writes one JSON record followed by the record separator.
// The write path is serialized: handshake, subscription and keepalive
// answers must not interleave on the socket.
func (c *Client) sendRecord(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage,
		append(data, recordSeparator))
}

// Close tears the socket down; a running Run returns afterwards.
func (c *Client) Close() {
	if c.conn != nil {
		c.conn.Close()
	}
}
