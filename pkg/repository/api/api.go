package api

import (
	"context"
	"errors"

	"github.com/f1grid/livetiming-ingest-go/pkg/model"
)

var ErrNoRows = errors.New("no rows in result set")

// Repositories bundles the persistence contract the ingestion pipeline
// consumes. All errors other than ErrNoRows are storage failures the
// caller logs and skips; nothing here is allowed to crash ingestion.
type Repositories interface {
	Session() SessionRepository
	Driver() DriverRepository
	Lap() LapRepository
	Rawlog() RawlogRepository
}

type SessionRepository interface {
	FindByNameAndType(ctx context.Context, name string, sType model.SessionType) (
		*model.Session, error,
	)
	Create(ctx context.Context, session *model.Session) error
}

type DriverRepository interface {
	FindByNumber(ctx context.Context, number string) (*model.Driver, error)
	Create(ctx context.Context, driver *model.Driver) error
}

type LapRepository interface {
	FindLastByDriverAndSession(ctx context.Context, driverNumber, sessionID string) (
		*model.Lap, error,
	)
	Create(ctx context.Context, lap *model.Lap) error
	Update(ctx context.Context, lap *model.Lap) error
}

// RawlogRepository appends every inbound live event for later replay
// and debugging.
type RawlogRepository interface {
	Create(ctx context.Context, topic string, payload []byte) error
}
