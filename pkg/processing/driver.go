package processing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/samber/lo"

	"github.com/f1grid/livetiming-ingest-go/log"
	"github.com/f1grid/livetiming-ingest-go/pkg/livetiming"
	"github.com/f1grid/livetiming-ingest-go/pkg/model"
	"github.com/f1grid/livetiming-ingest-go/pkg/publish"
	"github.com/f1grid/livetiming-ingest-go/pkg/repository/api"
)

// DriverRoster stores every driver on first sighting. Existing drivers
// are never updated.
type DriverRoster struct {
	repos api.Repositories
	gen   model.IDGenerator
	pub   publish.Publisher
	l     *log.Logger
}

func NewDriverRoster(repos api.Repositories, gen model.IDGenerator, pub publish.Publisher) *DriverRoster {
	return &DriverRoster{
		repos: repos,
		gen:   gen,
		pub:   pub,
		l:     log.Default().Named("processing.driver"),
	}
}

// Handle is the dispatcher entry point for the roster topic. The
// payload carries non-driver keys alongside the roster entries; those
// are skipped. Storage failures skip the entry, never the tick.
func (r *DriverRoster) Handle(ctx context.Context, payload json.RawMessage) error {
	var evt livetiming.DriverListEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		r.l.Warn("skipping malformed driver list", log.ErrorField(err))
		return nil
	}

	numbers := lo.Keys(evt)
	sort.Strings(numbers)
	for _, number := range numbers {
		var entry livetiming.DriverEntry
		if err := json.Unmarshal(evt[number], &entry); err != nil ||
			entry.RacingNumber == "" {
			// position metadata and flag keys are not drivers
			continue
		}
		if err := r.ensure(ctx, number, &entry); err != nil {
			r.l.Error("could not store driver",
				log.String("number", number), log.ErrorField(err))
		}
	}
	return nil
}

func (r *DriverRoster) ensure(ctx context.Context, number string, entry *livetiming.DriverEntry) error {
	if _, err := r.repos.Driver().FindByNumber(ctx, number); err == nil {
		return nil
	} else if !errors.Is(err, api.ErrNoRows) {
		return err
	}

	name := fmt.Sprintf("%s %s", entry.FirstName, entry.LastName)
	driver := model.NewDriver(r.gen,
		name, number, entry.TeamName, entry.Tla, entry.HeadshotURL)
	if err := r.repos.Driver().Create(ctx, driver); err != nil {
		return err
	}
	r.l.Info("driver created",
		log.String("id", driver.ID),
		log.String("number", number),
		log.String("name", name))
	r.pub.Publish(model.PublishTopicDriverInfo, driver)
	return nil
}
