package rawlog

import (
	"context"

	"github.com/f1grid/livetiming-ingest-go/pkg/repository/api"
)

type rawlogRepository struct {
	conn api.Querier
}

func NewRawlogRepository(conn api.Querier) api.RawlogRepository {
	return &rawlogRepository{conn: conn}
}

func (r *rawlogRepository) Create(ctx context.Context, topic string, payload []byte) error {
	_, err := r.conn.Exec(ctx,
		"insert into rawlog (topic, data) values ($1,$2)",
		topic, payload)
	return err
}
