package livetiming

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// feedStub drives one scripted provider conversation.
type feedStub struct {
	t        *testing.T
	received chan []byte
}

func newFeedStub(t *testing.T) *feedStub {
	return &feedStub{t: t, received: make(chan []byte, 16)}
}

//nolint:funlen // scripted conversation reads best in one piece
func (s *feedStub) handler(w http.ResponseWriter, r *http.Request) {
	assert.NotEmpty(s.t, r.URL.Query().Get("id"))
	conn, err := testUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.t.Errorf("upgrade: %v", err)
		return
	}
	defer conn.Close()

	// handshake request from the client
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return
	}
	s.received <- msg

	// ack and ping in a single transport message
	err = conn.WriteMessage(websocket.TextMessage, []byte("{}\x1e{\"type\":6}\x1e"))
	if err != nil {
		return
	}

	// subscription, then the ping reply
	for range 2 {
		if _, msg, err = conn.ReadMessage(); err != nil {
			return
		}
		s.received <- msg
	}

	update := `{"type":1,"target":"feed",` +
		`"arguments":["TimingData",{"Lines":{}},"2024-05-26T14:03:31.23Z"]}` + "\x1e"
	if err = conn.WriteMessage(websocket.TextMessage, []byte(update)); err != nil {
		return
	}

	// wait for the client side teardown
	//nolint:errcheck // read until the peer closes
	conn.ReadMessage()
}

func (s *feedStub) next(t *testing.T) []byte {
	t.Helper()
	select {
	case msg := <-s.received:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for client message")
		return nil
	}
}

func TestClientConversation(t *testing.T) {
	stub := newFeedStub(t)
	srv := httptest.NewServer(http.HandlerFunc(stub.handler))
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := NewClient(wsURL)
	go client.Run(ctx, &NegotiationResult{ConnectionToken: "tok", Cookie: "c1"})

	// handshake opens the framed protocol
	var handshake handshakeRequest
	record := stub.next(t)
	require.NoError(t, json.Unmarshal(trimSeparator(record), &handshake))
	assert.Equal(t, "json", handshake.Protocol)
	assert.Equal(t, protocolMajor, handshake.Version)

	// the combined ack+ping message yields two frames in order
	frame := <-client.Frames()
	assert.IsType(t, HandshakeAck{}, frame)
	frame = <-client.Frames()
	assert.IsType(t, Ping{}, frame)

	// ack triggers the subscription, ping an immediate reply
	var sub subscribeRequest
	require.NoError(t, json.Unmarshal(trimSeparator(stub.next(t)), &sub))
	assert.Equal(t, msgTypeInvocation, sub.Type)
	require.Len(t, sub.Arguments, 1)
	assert.Contains(t, sub.Arguments[0], TopicTimingData)

	var pong pingRecord
	require.NoError(t, json.Unmarshal(trimSeparator(stub.next(t)), &pong))
	assert.Equal(t, msgTypePing, pong.Type)

	// the feed update is delivered as a typed frame
	frame = <-client.Frames()
	upd, ok := frame.(Update)
	require.True(t, ok)
	assert.Equal(t, TopicTimingData, upd.Topic)
	assert.JSONEq(t, `{"Lines":{}}`, string(upd.Payload))

	cancel()
	for range client.Frames() {
		// drain until Run closes the channel
	}
}

func TestClientReportsDialFailure(t *testing.T) {
	client := NewClient("ws://127.0.0.1:1/feed",
		WithDialer(&websocket.Dialer{HandshakeTimeout: 200 * time.Millisecond}))
	go client.Run(context.Background(), &NegotiationResult{ConnectionToken: "tok"})

	select {
	case err := <-client.Done():
		require.Error(t, err)
		var connErr *ConnectionError
		assert.ErrorAs(t, err, &connErr)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for connection error")
	}
}

func trimSeparator(record []byte) []byte {
	if len(record) > 0 && record[len(record)-1] == recordSeparator {
		return record[:len(record)-1]
	}
	return record
}
