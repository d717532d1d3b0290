package lap

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/f1grid/livetiming-ingest-go/pkg/model"
	"github.com/f1grid/livetiming-ingest-go/pkg/repository/api"
)

var selector = `select id, driver_number, lap_number,
	sector1_time, sector2_time, sector3_time, lap_time, session_id from lap`

type lapRepository struct {
	conn api.Querier
}

func NewLapRepository(conn api.Querier) api.LapRepository {
	return &lapRepository{conn: conn}
}

func (r *lapRepository) Create(ctx context.Context, l *model.Lap) error {
	_, err := r.conn.Exec(ctx, `
	insert into lap (id, driver_number, lap_number,
		sector1_time, sector2_time, sector3_time, lap_time, session_id)
	values ($1,$2,$3,$4,$5,$6,$7,$8)`,
		l.ID, l.DriverNumber, l.LapNumber,
		l.Sector1Time, l.Sector2Time, l.Sector3Time, l.Time, l.SessionID)
	return err
}

// Update rewrites the mutable timing fields of an existing lap row.
func (r *lapRepository) Update(ctx context.Context, l *model.Lap) error {
	_, err := r.conn.Exec(ctx, `
	update lap set lap_number=$2,
		sector1_time=$3, sector2_time=$4, sector3_time=$5, lap_time=$6
	where id=$1`,
		l.ID, l.LapNumber,
		l.Sector1Time, l.Sector2Time, l.Sector3Time, l.Time)
	return err
}

//nolint:whitespace // can't make both editor and linter happy
func (r *lapRepository) FindLastByDriverAndSession(
	ctx context.Context, driverNumber, sessionID string,
) (*model.Lap, error) {
	row := r.conn.QueryRow(ctx,
		fmt.Sprintf(`%s where driver_number=$1 and session_id=$2
	order by lap_number desc, id desc limit 1`, selector),
		driverNumber, sessionID)
	return readData(row)
}

func readData(row pgx.Row) (*model.Lap, error) {
	var item model.Lap
	if err := row.Scan(
		&item.ID, &item.DriverNumber, &item.LapNumber,
		&item.Sector1Time, &item.Sector2Time, &item.Sector3Time,
		&item.Time, &item.SessionID,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, api.ErrNoRows
		}
		return nil, err
	}
	return &item, nil
}
