package repository

import (
	"github.com/f1grid/livetiming-ingest-go/pkg/repository/api"
)

type Querier = api.Querier
