package repository

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/f1grid/livetiming-ingest-go/pkg/repository/api"
	"github.com/f1grid/livetiming-ingest-go/pkg/repository/driver"
	"github.com/f1grid/livetiming-ingest-go/pkg/repository/lap"
	"github.com/f1grid/livetiming-ingest-go/pkg/repository/rawlog"
	"github.com/f1grid/livetiming-ingest-go/pkg/repository/session"
)

type repos struct {
	session api.SessionRepository
	driver  api.DriverRepository
	lap     api.LapRepository
	rawlog  api.RawlogRepository
}

// NewRepositories wires the pgx backed implementations over one pool.
func NewRepositories(pool *pgxpool.Pool) api.Repositories {
	return &repos{
		session: session.NewSessionRepository(pool),
		driver:  driver.NewDriverRepository(pool),
		lap:     lap.NewLapRepository(pool),
		rawlog:  rawlog.NewRawlogRepository(pool),
	}
}

func (r *repos) Session() api.SessionRepository { return r.session }
func (r *repos) Driver() api.DriverRepository   { return r.driver }
func (r *repos) Lap() api.LapRepository         { return r.lap }
func (r *repos) Rawlog() api.RawlogRepository   { return r.rawlog }
