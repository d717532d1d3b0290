package processing

import (
	"context"
	"fmt"
	"sync"

	"github.com/f1grid/livetiming-ingest-go/pkg/model"
	"github.com/f1grid/livetiming-ingest-go/pkg/repository/api"
)

// memStore is an in-memory stand-in for the persistence layer. The
// optional error fields inject storage failures.
type memStore struct {
	mu       sync.Mutex
	sessions []*model.Session
	drivers  []*model.Driver
	laps     []*model.Lap
	raw      []rawEntry

	lapFindErr error
	lapSaves   int
}

type rawEntry struct {
	topic   string
	payload string
}

func (s *memStore) Session() api.SessionRepository { return &memSessions{s} }
func (s *memStore) Driver() api.DriverRepository   { return &memDrivers{s} }
func (s *memStore) Lap() api.LapRepository         { return &memLaps{s} }
func (s *memStore) Rawlog() api.RawlogRepository   { return &memRawlog{s} }

type memSessions struct{ s *memStore }

//nolint:whitespace // can't make both editor and linter happy
func (r *memSessions) FindByNameAndType(_ context.Context, name string, sType model.SessionType) (
	*model.Session, error,
) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, sess := range r.s.sessions {
		if sess.Name == name && sess.Type == sType {
			return sess, nil
		}
	}
	return nil, api.ErrNoRows
}

func (r *memSessions) Create(_ context.Context, session *model.Session) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.sessions = append(r.s.sessions, session)
	return nil
}

type memDrivers struct{ s *memStore }

func (r *memDrivers) FindByNumber(_ context.Context, number string) (*model.Driver, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, d := range r.s.drivers {
		if d.Number == number {
			return d, nil
		}
	}
	return nil, api.ErrNoRows
}

func (r *memDrivers) Create(_ context.Context, driver *model.Driver) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.drivers = append(r.s.drivers, driver)
	return nil
}

type memLaps struct{ s *memStore }

//nolint:whitespace // can't make both editor and linter happy
func (r *memLaps) FindLastByDriverAndSession(_ context.Context, driverNumber, sessionID string) (
	*model.Lap, error,
) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.lapFindErr != nil {
		return nil, r.s.lapFindErr
	}
	var last *model.Lap
	for _, lap := range r.s.laps {
		if lap.DriverNumber != driverNumber || lap.SessionID != sessionID {
			continue
		}
		if last == nil || lap.LapNumber >= last.LapNumber {
			last = lap
		}
	}
	if last == nil {
		return nil, api.ErrNoRows
	}
	clone := *last
	return &clone, nil
}

func (r *memLaps) Create(_ context.Context, lap *model.Lap) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	clone := *lap
	r.s.laps = append(r.s.laps, &clone)
	r.s.lapSaves++
	return nil
}

func (r *memLaps) Update(_ context.Context, lap *model.Lap) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, stored := range r.s.laps {
		if stored.ID == lap.ID {
			clone := *lap
			r.s.laps[i] = &clone
			r.s.lapSaves++
			return nil
		}
	}
	return fmt.Errorf("lap %s not stored", lap.ID)
}

type memRawlog struct{ s *memStore }

func (r *memRawlog) Create(_ context.Context, topic string, payload []byte) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.raw = append(r.s.raw, rawEntry{topic: topic, payload: string(payload)})
	return nil
}

// recordingPublisher captures published records for assertions.
type recordingPublisher struct {
	mu      sync.Mutex
	records []publishedRecord
}

type publishedRecord struct {
	topic model.PublishTopic
	data  any
}

func (p *recordingPublisher) Publish(topic model.PublishTopic, data any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records = append(p.records, publishedRecord{topic: topic, data: data})
}

func (p *recordingPublisher) Close() {}

func (p *recordingPublisher) byTopic(topic model.PublishTopic) []publishedRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	ret := []publishedRecord{}
	for _, rec := range p.records {
		if rec.topic == topic {
			ret = append(ret, rec)
		}
	}
	return ret
}

// sequentialIDs yields deterministic ids for tests.
func sequentialIDs() model.IDGenerator {
	n := 0
	return func(prefix string) string {
		n++
		return fmt.Sprintf("%s_%04d", prefix, n)
	}
}
