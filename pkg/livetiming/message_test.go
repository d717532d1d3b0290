package livetiming

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitRecordsHandlesTrailingSeparator(t *testing.T) {
	records := splitRecords([]byte("{}\x1e{\"type\":6}\x1e"))
	require.Len(t, records, 2)
	assert.Equal(t, "{}", string(records[0]))
	assert.Equal(t, `{"type":6}`, string(records[1]))
}

func TestSplitRecordsSingleRecord(t *testing.T) {
	records := splitRecords([]byte(`{"type":6}` + "\x1e"))
	require.Len(t, records, 1)
}

func TestDecodeHandshakeAck(t *testing.T) {
	frame, err := decodeRecord([]byte("{}"))
	require.NoError(t, err)
	assert.IsType(t, HandshakeAck{}, frame)
}

func TestDecodePing(t *testing.T) {
	frame, err := decodeRecord([]byte(`{"type":6}`))
	require.NoError(t, err)
	assert.IsType(t, Ping{}, frame)
}

func TestDecodeFeedUpdate(t *testing.T) {
	raw := []byte(`{"type":1,"target":"feed",` +
		`"arguments":["TimingData",{"Lines":{}},"2024-05-26T14:03:31.23Z"]}`)
	frame, err := decodeRecord(raw)
	require.NoError(t, err)

	upd, ok := frame.(Update)
	require.True(t, ok)
	assert.Equal(t, TopicTimingData, upd.Topic)
	assert.JSONEq(t, `{"Lines":{}}`, string(upd.Payload))
	assert.Equal(t, "2024-05-26T14:03:31.23Z", upd.Timestamp)
}

func TestDecodeIgnoresForeignInvocation(t *testing.T) {
	frame, err := decodeRecord([]byte(`{"type":1,"target":"other","arguments":[1]}`))
	require.NoError(t, err)
	assert.Nil(t, frame)
}

func TestDecodeSnapshotPreservesKeyOrder(t *testing.T) {
	raw := []byte(`{"type":3,"invocationId":"1","result":` +
		`{"SessionInfo":{"Name":"Race"},"DriverList":{},"TimingData":{"Lines":{}}}}`)
	frame, err := decodeRecord(raw)
	require.NoError(t, err)

	snap, ok := frame.(Snapshot)
	require.True(t, ok)
	assert.Equal(t,
		[]Topic{TopicSessionInfo, TopicDriverList, TopicTimingData},
		snap.Order)
	assert.JSONEq(t, `{"Name":"Race"}`, string(snap.Result[TopicSessionInfo]))
	assert.JSONEq(t, `{"Lines":{}}`, string(snap.Result[TopicTimingData]))
}

func TestDecodeCompletionWithoutResultIgnored(t *testing.T) {
	frame, err := decodeRecord([]byte(`{"type":3,"invocationId":"1"}`))
	require.NoError(t, err)
	assert.Nil(t, frame)
}

func TestDecodeMalformedRecord(t *testing.T) {
	_, err := decodeRecord([]byte(`{"type":`))
	require.Error(t, err)
}
