package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/f1grid/livetiming-ingest-go/pkg/model"
	"github.com/f1grid/livetiming-ingest-go/pkg/repository/api"
)

var selector = `select id, name, country, type, date from session`

type sessionRepository struct {
	conn api.Querier
}

func NewSessionRepository(conn api.Querier) api.SessionRepository {
	return &sessionRepository{conn: conn}
}

func (r *sessionRepository) Create(ctx context.Context, s *model.Session) error {
	_, err := r.conn.Exec(ctx, `
	insert into session (id, name, country, type, date)
	values ($1,$2,$3,$4,$5)`,
		s.ID, s.Name, s.Country, string(s.Type), s.Date)
	return err
}

//nolint:whitespace // can't make both editor and linter happy
func (r *sessionRepository) FindByNameAndType(
	ctx context.Context, name string, sType model.SessionType,
) (*model.Session, error) {
	row := r.conn.QueryRow(ctx,
		fmt.Sprintf("%s where name=$1 and type=$2", selector),
		name, string(sType))
	return readData(row)
}

func readData(row pgx.Row) (*model.Session, error) {
	var item model.Session
	var sType string
	if err := row.Scan(
		&item.ID, &item.Name, &item.Country, &sType, &item.Date,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, api.ErrNoRows
		}
		return nil, err
	}
	item.Type = model.SessionType(sType)
	return &item, nil
}
