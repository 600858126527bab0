package services

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skyhub/models"
	"skyhub/testutil"
)

const sampleCounterpart = `TITLE:            GCN/LVC COUNTERPART NOTICE
NOTICE_DATE:      Fri 26 Apr 19 23:13:39 UT
CNTRPART_RA:      26.7500d {+19h 59m 32.4s} (J2000),
                  300.0523d {+20h 00m 12.5s} (current)
CNTRPART_DEC:     76.4300d {+40d 43' 51.6"} (J2000),
                  +40.7847d {+40d 47' 04.9"} (current)
EVENT_TRIG_NUM:   S123456
OBS_DATE:         18599 TJD;   116 DOY;   19/04/26
OBS_TIME:         73448.0 SOD {20:24:08.00} UT
SOURCE_SERNUM:    2
SUBMITTER:        Phil_Evans
COMMENTS:         LVC Counterpart.`

func newIngest(t *testing.T) *IngestService {
	t.Helper()
	return NewIngestService(testutil.NewTestDB(t), testutil.NewTestLogger(t))
}

func TestIngestDeduplicatesIdenticalContent(t *testing.T) {
	s := newIngest(t)
	alert := Alert{Topic: "gcn.classic.text.LVC_COUNTERPART", MessageText: sampleCounterpart}

	first, created, err := s.Ingest(alert)
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := s.Ingest(alert)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.UUID, second.UUID)

	var msgCount, eventCount, targetCount, seqCount int64
	s.DB.Model(&models.Message{}).Count(&msgCount)
	s.DB.Model(&models.NonLocalizedEvent{}).Count(&eventCount)
	s.DB.Model(&models.Target{}).Count(&targetCount)
	s.DB.Model(&models.EventSequence{}).Count(&seqCount)
	assert.EqualValues(t, 1, msgCount)
	assert.EqualValues(t, 1, eventCount)
	assert.EqualValues(t, 1, targetCount)
	assert.EqualValues(t, 0, seqCount)
}

func TestIngestRoutesCounterpartThroughProbeChain(t *testing.T) {
	s := newIngest(t)

	msg, _, err := s.Ingest(Alert{Topic: "gcn.classic.text.LVC_COUNTERPART", MessageText: sampleCounterpart})
	require.NoError(t, err)
	assert.Equal(t, "GCN/LVC Counterpart Notice Parser v1", msg.MessageParser)

	var target models.Target
	assert.NoError(t, s.DB.First(&target, "name = ?", "S123456_X2").Error)
}

func TestIngestDispatchesCircularByTopic(t *testing.T) {
	s := newIngest(t)
	data, _ := json.Marshal(map[string]any{
		"circularId": 37354,
		"subject":    "LIGO/Virgo/KAGRA S190426: identification of a candidate",
		"eventId":    "LIGO/Virgo/KAGRA S190426",
	})

	msg, _, err := s.Ingest(Alert{Topic: "gcn.circulars", Data: data})
	require.NoError(t, err)
	assert.Equal(t, "GCN Circular Parser v2", msg.MessageParser)

	var event models.NonLocalizedEvent
	assert.NoError(t, s.DB.First(&event, "event_id = ?", "S190426").Error)
}

func TestIngestRetainsUnparseableChatter(t *testing.T) {
	s := newIngest(t)

	msg, created, err := s.Ingest(Alert{Topic: "community.chatter", MessageText: "hello everyone"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Empty(t, msg.MessageParser)
}

func TestIngestRejectsIgnoredTopics(t *testing.T) {
	s := newIngest(t)

	_, _, err := s.Ingest(Alert{Topic: "gcn.notice.binary", MessageText: "payload"})
	assert.ErrorIs(t, err, ErrTopicIgnored)

	_, _, err = s.Ingest(Alert{Topic: "sys.heartbeat", MessageText: "ping"})
	assert.ErrorIs(t, err, ErrTopicIgnored)

	var count int64
	s.DB.Model(&models.Message{}).Count(&count)
	assert.EqualValues(t, 0, count)
}

func TestIngestRejectsEmptyAlert(t *testing.T) {
	s := newIngest(t)
	_, _, err := s.Ingest(Alert{Topic: "gcn.classic.text.TEST"})
	assert.Error(t, err)
}
