package processing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/f1grid/livetiming-ingest-go/log"
	"github.com/f1grid/livetiming-ingest-go/pkg/livetiming"
	"github.com/f1grid/livetiming-ingest-go/pkg/model"
	"github.com/f1grid/livetiming-ingest-go/pkg/publish"
	"github.com/f1grid/livetiming-ingest-go/pkg/repository/api"
)

// sessionTypeLabels is the closed mapping from provider labels to the
// session type enum. Both spellings of the sprint qualifying label have
// been observed on the wire.
var sessionTypeLabels = map[string]model.SessionType{
	"Race":              model.SessionTypeRace,
	"Qualifying":        model.SessionTypeQualifying,
	"Sprint":            model.SessionTypeSprint,
	"Sprint Qualifying": model.SessionTypeSprintQualifying,
	"SprintQualifying":  model.SessionTypeSprintQualifying,
	"Practice":          model.SessionTypePractice,
	"Practice 2":        model.SessionTypePractice2,
	"Practice 3":        model.SessionTypePractice3,
}

// sessionTypeFromEvent resolves the enum from the event. The provider
// carries the label in Name ("Practice 2") and a condensed variant in
// Type ("SprintQualifying"); either may match.
func sessionTypeFromEvent(evt *livetiming.SessionInfoEvent) (model.SessionType, error) {
	if sType, ok := sessionTypeLabels[evt.Name]; ok {
		return sType, nil
	}
	if sType, ok := sessionTypeLabels[evt.Type]; ok {
		return sType, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSessionType, evt.Name)
}

// SessionResolver turns session metadata ticks into exactly one stored
// session per (name, type) pair and keeps the active session pointed at
// it.
type SessionResolver struct {
	repos  api.Repositories
	gen    model.IDGenerator
	active *ActiveSession
	pub    publish.Publisher
	l      *log.Logger
}

//nolint:whitespace // can't make both editor and linter happy
func NewSessionResolver(
	repos api.Repositories,
	gen model.IDGenerator,
	active *ActiveSession,
	pub publish.Publisher,
) *SessionResolver {
	return &SessionResolver{
		repos:  repos,
		gen:    gen,
		active: active,
		pub:    pub,
		l:      log.Default().Named("processing.session"),
	}
}

// Handle is the dispatcher entry point for the session metadata topic.
// Unknown session types are fatal; storage failures drop the tick.
func (r *SessionResolver) Handle(ctx context.Context, payload json.RawMessage) error {
	var evt livetiming.SessionInfoEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		r.l.Warn("skipping malformed session info", log.ErrorField(err))
		return nil
	}
	sess, err := r.Resolve(ctx, &evt)
	if err != nil {
		if errors.Is(err, ErrUnknownSessionType) {
			return err
		}
		r.l.Error("could not resolve session", log.ErrorField(err))
		return nil
	}
	r.pub.Publish(model.PublishTopicSessionInfo, sess)
	return nil
}

// Resolve looks the session up by (name, type), creates it on first
// sighting and sets the active session in both paths. Country is never
// updated on re-sighting.
func (r *SessionResolver) Resolve(ctx context.Context, evt *livetiming.SessionInfoEvent) (
	*model.Session, error,
) {
	sType, err := sessionTypeFromEvent(evt)
	if err != nil {
		return nil, err
	}

	sess, err := r.repos.Session().FindByNameAndType(ctx, evt.Meeting.Name, sType)
	switch {
	case err == nil:
	case errors.Is(err, api.ErrNoRows):
		sess = model.NewSession(r.gen, evt.Meeting.Name, evt.Meeting.Country.Code, sType)
		if err := r.repos.Session().Create(ctx, sess); err != nil {
			return nil, err
		}
		r.l.Info("session created",
			log.String("id", sess.ID),
			log.String("name", sess.Name),
			log.String("type", string(sess.Type)))
	default:
		return nil, err
	}

	r.active.Set(sess.ID)
	return sess, nil
}
