package parsers

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"skyhub/linking"
	"skyhub/models"
	"skyhub/testutil"
)

const sampleLVCNotice = `TITLE:            GCN/LVC NOTICE
NOTICE_DATE:      Mon 16 Mar 20 22:01:09 UT
NOTICE_TYPE:      LVC Preliminary
TRIGGER_NUM:      S200316bj
SEQUENCE_NUM:     1
GROUP_TYPE:       1 = CBC
FAR:              7.099e-11 [Hz]  (one per 163037.0 days)
SKYMAP_FITS_URL:  https://gracedb.ligo.org/api/superevents/S200316bj/files/bayestar.fits.gz,0
EVENTPAGE_URL:    https://gracedb.ligo.org/superevents/S200316bj/view/
COMMENTS:         LVC Preliminary Trigger Alert.
COMMENTS:         This event is an OpenAlert.`

func newTestMessage(t *testing.T, db *gorm.DB, topic, text string) *models.Message {
	t.Helper()
	msg := &models.Message{
		UUID:        uuid.New(),
		Topic:       topic,
		ContentHash: uuid.New().String()[:8],
		MessageText: text,
		Published:   time.Now().UTC(),
	}
	require.NoError(t, db.Create(msg).Error)
	return msg
}

func newLVCNoticeParser(t *testing.T, db *gorm.DB) *LVCNoticeParser {
	t.Helper()
	log := testutil.NewTestLogger(t)
	return &LVCNoticeParser{DB: db, Links: linking.NewEngine(db, log), Log: log}
}

func TestLVCNoticeParserCreatesEventAndSequence(t *testing.T) {
	db := testutil.NewTestDB(t)
	p := newLVCNoticeParser(t, db)
	msg := newTestMessage(t, db, "gcn.classic.text.LVC_PRELIMINARY", sampleLVCNotice)

	require.True(t, p.Parse(msg))
	assert.Equal(t, "GCN/LVC NOTICE", msg.Title)
	assert.Equal(t, p.Name(), msg.MessageParser)
	assert.Equal(t, time.Date(2020, 3, 16, 22, 1, 9, 0, time.UTC), msg.Published)

	var event models.NonLocalizedEvent
	require.NoError(t, db.First(&event, "event_id = ?", "S200316bj").Error)
	assert.Equal(t, models.EventTypeGravitationalWave, event.EventType)

	var seq models.EventSequence
	require.NoError(t, db.First(&seq, "event_id = ?", "S200316bj").Error)
	assert.Equal(t, 1, seq.SequenceNumber)
	assert.Equal(t, models.SequenceTypePreliminary, seq.SequenceType)
	assert.Equal(t, msg.ID, seq.MessageID)
}

func TestLVCNoticeParserRewritesSkymapURL(t *testing.T) {
	db := testutil.NewTestDB(t)
	p := newLVCNoticeParser(t, db)
	msg := newTestMessage(t, db, "gcn.classic.text.LVC_PRELIMINARY", sampleLVCNotice)

	require.True(t, p.Parse(msg))
	assert.Contains(t, string(msg.Data), "bayestar.multiorder.fits,0")
}

func TestLVCNoticeParserIdempotent(t *testing.T) {
	db := testutil.NewTestDB(t)
	p := newLVCNoticeParser(t, db)
	msg := newTestMessage(t, db, "gcn.classic.text.LVC_PRELIMINARY", sampleLVCNotice)

	require.True(t, p.Parse(msg))
	require.True(t, p.Parse(msg))

	var eventCount, seqCount int64
	db.Model(&models.NonLocalizedEvent{}).Count(&eventCount)
	db.Model(&models.EventSequence{}).Count(&seqCount)
	assert.EqualValues(t, 1, eventCount)
	assert.EqualValues(t, 1, seqCount)
}

func TestLVCNoticeParserRejectsForeignTitle(t *testing.T) {
	db := testutil.NewTestDB(t)
	p := newLVCNoticeParser(t, db)
	msg := newTestMessage(t, db, "some.topic", "TITLE: SOMETHING ELSE\nBODY: hello")

	assert.False(t, p.Parse(msg))
	assert.Empty(t, msg.MessageParser)
}
