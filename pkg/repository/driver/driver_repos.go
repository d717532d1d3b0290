package driver

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/f1grid/livetiming-ingest-go/pkg/model"
	"github.com/f1grid/livetiming-ingest-go/pkg/repository/api"
)

var selector = `select id, name, number, team, short_name, avatar_url from driver`

type driverRepository struct {
	conn api.Querier
}

func NewDriverRepository(conn api.Querier) api.DriverRepository {
	return &driverRepository{conn: conn}
}

func (r *driverRepository) Create(ctx context.Context, d *model.Driver) error {
	_, err := r.conn.Exec(ctx, `
	insert into driver (id, name, number, team, short_name, avatar_url)
	values ($1,$2,$3,$4,$5,$6)`,
		d.ID, d.Name, d.Number, d.Team, d.ShortName, d.AvatarURL)
	return err
}

//nolint:whitespace // can't make both editor and linter happy
func (r *driverRepository) FindByNumber(ctx context.Context, number string) (
	*model.Driver, error,
) {
	row := r.conn.QueryRow(ctx,
		fmt.Sprintf("%s where number=$1", selector), number)
	return readData(row)
}

func readData(row pgx.Row) (*model.Driver, error) {
	var item model.Driver
	if err := row.Scan(
		&item.ID, &item.Name, &item.Number, &item.Team,
		&item.ShortName, &item.AvatarURL,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, api.ErrNoRows
		}
		return nil, err
	}
	return &item, nil
}
