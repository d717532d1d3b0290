package livetiming

import (
	"bytes"
	"encoding/json"
)

// Topic is a named channel within the multiplexed feed. The set is
// provider controlled; unknown topics may show up at any time and are
// ignored by the dispatcher.
type Topic string

const (
	TopicTimingData          Topic = "TimingData"
	TopicSessionInfo         Topic = "SessionInfo"
	TopicDriverList          Topic = "DriverList"
	TopicHeartbeat           Topic = "Heartbeat"
	TopicLapCount            Topic = "LapCount"
	TopicTrackStatus         Topic = "TrackStatus"
	TopicWeatherData         Topic = "WeatherData"
	TopicRaceControlMessages Topic = "RaceControlMessages"
)

// DefaultTopics is the subscription set sent after the handshake.
func DefaultTopics() []Topic {
	return []Topic{
		TopicHeartbeat,
		TopicSessionInfo,
		TopicDriverList,
		TopicTimingData,
		TopicLapCount,
		TopicTrackStatus,
	}
}

// recordSeparator terminates every record on the wire. A transport
// message holds zero or more JSON records joined by this byte.
const recordSeparator = 0x1e

// message type codes of the framed protocol
const (
	msgTypeInvocation = 1
	msgTypeCompletion = 3
	msgTypePing       = 6
)

// feedTarget is the invocation target carrying incremental updates.
const feedTarget = "feed"

// Frame is the closed union of decoded inbound records. Consumers
// dispatch via type switch; adding a provider record shape is a
// compile-time visible change.
type Frame interface {
	frame()
}

// HandshakeAck signals that the application level handshake completed.
type HandshakeAck struct{}

// Ping is the provider's keepalive probe; the connection answers it
// itself, the frame is forwarded for diagnostics only.
type Ping struct{}

// Snapshot carries the full current state of every subscribed topic,
// sent once as the result of the subscription. Key order of the wire
// object is preserved in Order.
type Snapshot struct {
	Result map[Topic]json.RawMessage
	Order  []Topic
}

// Update carries one topic's delta for this tick.
type Update struct {
	Topic     Topic
	Payload   json.RawMessage
	Timestamp string
}

func (HandshakeAck) frame() {}
func (Ping) frame()         {}
func (Snapshot) frame()     {}
func (Update) frame()       {}

// envelope is the wire shape shared by all typed records.
type envelope struct {
	Type         int               `json:"type"`
	Target       string            `json:"target,omitempty"`
	Arguments    []json.RawMessage `json:"arguments,omitempty"`
	InvocationID string            `json:"invocationId,omitempty"`
	Result       json.RawMessage   `json:"result,omitempty"`
}

// handshakeRequest opens the framed protocol on a fresh socket.
type handshakeRequest struct {
	Protocol string `json:"protocol"`
	Version  int    `json:"version"`
}

// subscribeRequest is the single invocation naming every topic of
// interest.
type subscribeRequest struct {
	Type         int       `json:"type"`
	InvocationID string    `json:"invocationId"`
	Target       string    `json:"target"`
	Arguments    [][]Topic `json:"arguments"`
}

// pingRecord is both the inbound keepalive and our immediate answer.
type pingRecord struct {
	Type int `json:"type"`
}

// decodeRecord classifies one 0x1e-delimited chunk. A nil Frame with
// nil error means the record matched no known shape and is ignored.
//
//nolint:nestif // classification is a flat shape check
func decodeRecord(raw []byte) (Frame, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, err
	}
	if len(probe) == 0 {
		return HandshakeAck{}, nil
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}

	switch env.Type {
	case msgTypePing:
		return Ping{}, nil
	case msgTypeCompletion:
		if len(env.Result) == 0 {
			return nil, nil
		}
		var keyed map[Topic]json.RawMessage
		if err := json.Unmarshal(env.Result, &keyed); err != nil {
			return nil, err
		}
		return Snapshot{Result: keyed, Order: snapshotKeyOrder(env.Result)}, nil
	case msgTypeInvocation:
		if env.Target != feedTarget || len(env.Arguments) < 2 {
			return nil, nil
		}
		var topic Topic
		if err := json.Unmarshal(env.Arguments[0], &topic); err != nil {
			return nil, err
		}
		upd := Update{Topic: topic, Payload: env.Arguments[1]}
		if len(env.Arguments) > 2 {
			// best effort, the timestamp is informational
			_ = json.Unmarshal(env.Arguments[2], &upd.Timestamp)
		}
		return upd, nil
	default:
		return nil, nil
	}
}

// snapshotKeyOrder extracts the topic keys of the result object in wire
// order; handlers are invoked in exactly this order.
func snapshotKeyOrder(raw []byte) []Topic {
	dec := json.NewDecoder(bytes.NewReader(raw))
	order := make([]Topic, 0, 8)
	depth := 0
	for {
		tok, err := dec.Token()
		if err != nil {
			return order
		}
		switch t := tok.(type) {
		case json.Delim:
			if t == '{' || t == '[' {
				depth++
			} else {
				depth--
			}
			if depth == 0 {
				return order
			}
		case string:
			// a string token at depth 1 with even position is a key; the
			// decoder alternates key/value, so skip the value explicitly
			if depth == 1 {
				order = append(order, Topic(t))
				skipValue(dec)
			}
		}
	}
}

func skipValue(dec *json.Decoder) {
	tok, err := dec.Token()
	if err != nil {
		return
	}
	if d, ok := tok.(json.Delim); ok && (d == '{' || d == '[') {
		depth := 1
		for depth > 0 {
			tok, err = dec.Token()
			if err != nil {
				return
			}
			if d, ok := tok.(json.Delim); ok {
				if d == '{' || d == '[' {
					depth++
				} else {
					depth--
				}
			}
		}
	}
}

// splitRecords splits one transport message into its records, dropping
// empty chunks (a trailing separator is the norm).
func splitRecords(msg []byte) [][]byte {
	parts := bytes.Split(msg, []byte{recordSeparator})
	records := make([][]byte, 0, len(parts))
	for _, p := range parts {
		if len(bytes.TrimSpace(p)) > 0 {
			records = append(records, p)
		}
	}
	return records
}
