package processing

import (
	"context"
	"encoding/json"
	"errors"
	"sort"

	"github.com/samber/lo"

	"github.com/f1grid/livetiming-ingest-go/log"
	"github.com/f1grid/livetiming-ingest-go/pkg/convert"
	"github.com/f1grid/livetiming-ingest-go/pkg/livetiming"
	"github.com/f1grid/livetiming-ingest-go/pkg/model"
	"github.com/f1grid/livetiming-ingest-go/pkg/publish"
	"github.com/f1grid/livetiming-ingest-go/pkg/repository/api"
)

// LapReconstructor folds per-driver timing deltas into lap records.
// State lives entirely in storage: each tick loads the driver's last
// lap for the active session, merges the delta and persists.
type LapReconstructor struct {
	repos  api.Repositories
	gen    model.IDGenerator
	active *ActiveSession
	pub    publish.Publisher
	l      *log.Logger
}

//nolint:whitespace // can't make both editor and linter happy
func NewLapReconstructor(
	repos api.Repositories,
	gen model.IDGenerator,
	active *ActiveSession,
	pub publish.Publisher,
) *LapReconstructor {
	return &LapReconstructor{
		repos:  repos,
		gen:    gen,
		active: active,
		pub:    pub,
		l:      log.Default().Named("processing.lap"),
	}
}

// Handle is the dispatcher entry point for the timing topic. Without
// an active session there is nothing to correlate laps to; the tick is
// dropped. Storage failures drop the affected driver's delta only.
func (r *LapReconstructor) Handle(ctx context.Context, payload json.RawMessage) error {
	var evt livetiming.TimingDataEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		r.l.Warn("skipping malformed timing data", log.ErrorField(err))
		return nil
	}
	sessionID := r.active.Get()
	if sessionID == "" {
		r.l.Debug("no active session, dropping timing tick")
		return nil
	}

	numbers := lo.Keys(evt.Lines)
	sort.Strings(numbers)
	for _, number := range numbers {
		if err := r.processLine(ctx, sessionID, number, evt.Lines[number]); err != nil {
			r.l.Error("lap update failed",
				log.String("driver", number), log.ErrorField(err))
		}
	}
	return nil
}

//nolint:whitespace // can't make both editor and linter happy
func (r *LapReconstructor) processLine(
	ctx context.Context, sessionID, number string, line livetiming.TimingLine,
) error {
	last, err := r.repos.Lap().FindLastByDriverAndSession(ctx, number, sessionID)
	if err != nil && !errors.Is(err, api.ErrNoRows) {
		return err
	}
	if last != nil && !last.Completed() {
		return r.continueLap(ctx, last, line)
	}
	return r.startLap(ctx, sessionID, number, last, line)
}

// startLap opens a fresh lap when the driver has none yet or the prior
// one is completed. The lap is persisted only once its first sector has
// a value; the provider references drivers on intermediate ticks before
// any sector completes.
//
//nolint:whitespace // can't make both editor and linter happy
func (r *LapReconstructor) startLap(
	ctx context.Context, sessionID, number string, prior *model.Lap, line livetiming.TimingLine,
) error {
	lapNumber := 1
	if prior != nil {
		reported := 0
		if line.NumberOfLaps != nil {
			reported = *line.NumberOfLaps
		}
		lapNumber = max(reported, prior.LapNumber) + 1
	}

	lap := model.NewLap(r.gen, number, lapNumber, sessionID)
	r.mergeSectors(lap, line.Sectors)
	r.mergeTotal(lap, line.LastLapTime)
	if lap.Sector1Time == nil {
		return nil
	}

	if err := r.repos.Lap().Create(ctx, lap); err != nil {
		return err
	}
	r.pub.Publish(model.PublishTopicLapInfo, lap)
	return nil
}

// continueLap merges the delta into the in-progress lap. Only fields
// present in this tick change; a tick that changes nothing is not
// written back.
func (r *LapReconstructor) continueLap(ctx context.Context, lap *model.Lap, line livetiming.TimingLine) error {
	before := *lap
	r.mergeSectors(lap, line.Sectors)
	r.mergeTotal(lap, line.LastLapTime)
	if line.NumberOfLaps != nil && *line.NumberOfLaps > lap.LapNumber {
		lap.LapNumber = *line.NumberOfLaps
	}
	if before == *lap {
		return nil
	}

	if err := r.repos.Lap().Update(ctx, lap); err != nil {
		return err
	}
	r.pub.Publish(model.PublishTopicLapInfo, lap)
	return nil
}

// mergeSectors applies sector fragments carrying a usable Value field.
// Segment-status and previous-value fragments are no updates, never a
// numeric zero.
func (r *LapReconstructor) mergeSectors(lap *model.Lap, sectors map[string]livetiming.SectorData) {
	for idx, sector := range sectors {
		if !sector.HasValue() {
			continue
		}
		ms, err := convert.ParseLaptime(*sector.Value)
		if err != nil {
			r.l.Warn("skipping unparsable sector time",
				log.String("sector", idx),
				log.String("value", *sector.Value))
			continue
		}
		switch idx {
		case "0":
			lap.Sector1Time = &ms
		case "1":
			lap.Sector2Time = &ms
		case "2":
			lap.Sector3Time = &ms
		}
	}
}

// mergeTotal sets the lap's total duration from the last-lap-time
// fragment, the provider's signal that the lap just completed.
func (r *LapReconstructor) mergeTotal(lap *model.Lap, lastLap *livetiming.LapTimeValue) {
	if lastLap == nil || lastLap.Value == "" {
		return
	}
	ms, err := convert.ParseLaptime(lastLap.Value)
	if err != nil {
		r.l.Warn("skipping unparsable lap time",
			log.String("value", lastLap.Value))
		return
	}
	lap.Time = &ms
}
