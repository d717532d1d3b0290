package nats

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/f1grid/livetiming-ingest-go/log"
	"github.com/f1grid/livetiming-ingest-go/pkg/model"
)

const subjectPrefix = "livetiming"

// Publisher relays every published record to a NATS subject so other
// services can consume the stream without attaching to this process.
type Publisher struct {
	conn *nats.Conn
	l    *log.Logger
}

func NewPublisher(url string) (*Publisher, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Publisher{
		conn: conn,
		l:    log.Default().Named("publish.nats"),
	}, nil
}

// Publish sends [topic, data] to livetiming.<topic>. Failures are
// logged only; the relay is best effort.
func (p *Publisher) Publish(topic model.PublishTopic, data any) {
	payload, err := json.Marshal([2]any{topic, data})
	if err != nil {
		p.l.Warn("could not marshal publish record", log.ErrorField(err))
		return
	}
	subject := fmt.Sprintf("%s.%s", subjectPrefix, topic)
	if err := p.conn.Publish(subject, payload); err != nil {
		p.l.Warn("could not publish record",
			log.String("subject", subject), log.ErrorField(err))
	}
}

func (p *Publisher) Close() {
	p.conn.Close()
}
