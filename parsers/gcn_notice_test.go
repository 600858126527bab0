package parsers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"skyhub/linking"
	"skyhub/models"
	"skyhub/testutil"
)

const sampleSwiftNotice = `TITLE:            GCN/SWIFT COUNTERPART NOTICE
NOTICE_DATE:      Fri 26 Apr 19 23:13:39 UT
NOTICE_TYPE:      Swift Counterpart
EVENT_TRIG_NUM:   123456
OBS_DATE:         18599 TJD;   116 DOY;   19/04/26
OBS_TIME:         73448.0 SOD {20:24:08.00} UT
TELESCOPE:        Swift-XRT
SUBMITTER:        Phil_Evans
COMMENTS:         Swift-XRT counterpart.`

func newGCNNoticeParser(t *testing.T, db *gorm.DB) *GCNNoticeParser {
	t.Helper()
	log := testutil.NewTestLogger(t)
	return &GCNNoticeParser{DB: db, Links: linking.NewEngine(db, log), Log: log}
}

func TestGCNNoticeParserCreatesGravitationalWaveEvent(t *testing.T) {
	db := testutil.NewTestDB(t)
	p := newGCNNoticeParser(t, db)
	msg := newTestMessage(t, db, "gcn.classic.text.SWIFT_COUNTERPART", sampleSwiftNotice)

	require.True(t, p.Parse(msg))
	assert.Equal(t, p.Name(), msg.MessageParser)
	assert.Equal(t, "Phil_Evans", msg.Submitter)

	// An id-only creation defaults to the gravitational-wave type;
	// only type-specific parsers set anything else.
	var event models.NonLocalizedEvent
	require.NoError(t, db.Preload("References").First(&event, "event_id = ?", "123456").Error)
	assert.Equal(t, models.EventTypeGravitationalWave, event.EventType)
	require.Len(t, event.References, 1)
	assert.Equal(t, msg.ID, event.References[0].ID)
}

func TestGCNNoticeParserSkipsEmptyTriggerNumber(t *testing.T) {
	db := testutil.NewTestDB(t)
	p := newGCNNoticeParser(t, db)
	msg := newTestMessage(t, db, "gcn.classic.text.SWIFT_COUNTERPART",
		"TITLE: GCN/SWIFT NOTICE\nEVENT_TRIG_NUM:\nSUBMITTER: Phil_Evans")

	require.True(t, p.Parse(msg))

	var count int64
	db.Model(&models.NonLocalizedEvent{}).Count(&count)
	assert.EqualValues(t, 0, count)
}
