package publish

import "github.com/f1grid/livetiming-ingest-go/pkg/model"

// Publisher delivers reconstructed records to downstream consumers.
// Implementations must not block the caller; a slow or absent consumer
// never stalls ingestion.
type Publisher interface {
	Publish(topic model.PublishTopic, data any)
	Close()
}

// Multi fans one record out to several publishers.
type Multi struct {
	targets []Publisher
}

func NewMulti(targets ...Publisher) *Multi {
	return &Multi{targets: targets}
}

func (m *Multi) Publish(topic model.PublishTopic, data any) {
	for _, t := range m.targets {
		t.Publish(topic, data)
	}
}

func (m *Multi) Close() {
	for _, t := range m.targets {
		t.Close()
	}
}

// Noop discards everything. Used when no downstream is configured.
type Noop struct{}

func (Noop) Publish(model.PublishTopic, any) {}
func (Noop) Close()                          {}
