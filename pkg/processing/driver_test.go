package processing

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/f1grid/livetiming-ingest-go/pkg/model"
)

func TestDriverRosterCreatesOnFirstSighting(t *testing.T) {
	store := &memStore{}
	pub := &recordingPublisher{}
	roster := NewDriverRoster(store, sequentialIDs(), pub)

	payload := json.RawMessage(`{
		"1": {
			"RacingNumber": "1",
			"FirstName": "Max",
			"LastName": "Verstappen",
			"Tla": "VER",
			"TeamName": "Red Bull Racing",
			"HeadshotUrl": "https://example.com/ver.png"
		},
		"_kf": true
	}`)
	require.NoError(t, roster.Handle(context.Background(), payload))

	require.Len(t, store.drivers, 1)
	driver := store.drivers[0]
	assert.Equal(t, "Max Verstappen", driver.Name)
	assert.Equal(t, "1", driver.Number)
	assert.Equal(t, "VER", driver.ShortName)
	assert.Equal(t, "Red Bull Racing", driver.Team)
	assert.Len(t, pub.byTopic(model.PublishTopicDriverInfo), 1)
}

func TestDriverRosterNeverUpdates(t *testing.T) {
	store := &memStore{}
	roster := NewDriverRoster(store, sequentialIDs(), &recordingPublisher{})

	first := json.RawMessage(`{"44": {"RacingNumber": "44", "FirstName": "Lewis",
		"LastName": "Hamilton", "Tla": "HAM", "TeamName": "Mercedes"}}`)
	require.NoError(t, roster.Handle(context.Background(), first))
	// mid-season team change, entity stays as first seen
	second := json.RawMessage(`{"44": {"RacingNumber": "44", "FirstName": "Lewis",
		"LastName": "Hamilton", "Tla": "HAM", "TeamName": "Ferrari"}}`)
	require.NoError(t, roster.Handle(context.Background(), second))

	require.Len(t, store.drivers, 1)
	assert.Equal(t, "Mercedes", store.drivers[0].Team)
}

func TestDriverRosterSkipsNonDriverEntries(t *testing.T) {
	store := &memStore{}
	roster := NewDriverRoster(store, sequentialIDs(), &recordingPublisher{})

	payload := json.RawMessage(`{"_kf": true, "positions": [1, 2, 3]}`)
	require.NoError(t, roster.Handle(context.Background(), payload))
	assert.Empty(t, store.drivers)
}
