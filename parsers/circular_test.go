package parsers

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"skyhub/linking"
	"skyhub/models"
	"skyhub/testutil"
)

func newCircularParser(t *testing.T, db *gorm.DB) *CircularParser {
	t.Helper()
	log := testutil.NewTestLogger(t)
	return &CircularParser{DB: db, Links: linking.NewEngine(db, log), Log: log}
}

func newDataMessage(t *testing.T, db *gorm.DB, topic, data string) *models.Message {
	t.Helper()
	msg := &models.Message{
		UUID:        uuid.New(),
		Topic:       topic,
		ContentHash: uuid.New().String()[:8],
		Data:        []byte(data),
	}
	require.NoError(t, db.Create(msg).Error)
	return msg
}

func TestCircularParserLinksMultipleEvents(t *testing.T) {
	db := testutil.NewTestDB(t)
	p := newCircularParser(t, db)
	msg := newDataMessage(t, db, "gcn.circulars", `{
		"circularId": 37354,
		"subject": "LIGO/Virgo/KAGRA S190426: follow-up of S654321 observations",
		"eventId": "LIGO/Virgo/KAGRA S190426",
		"submitter": "Person at Institution <email@domain>",
		"body": "The collaborations report on S190426 and S654321."
	}`)

	require.True(t, p.Parse(msg))
	assert.Equal(t, p.Name(), msg.MessageParser)
	assert.Contains(t, string(msg.Data), "https://gcn.nasa.gov/circulars/37354")

	for _, eventID := range []string{"S190426", "S654321"} {
		var event models.NonLocalizedEvent
		require.NoError(t, db.Preload("References").First(&event, "event_id = ?", eventID).Error)
		require.Len(t, event.References, 1, eventID)
		assert.Equal(t, msg.ID, event.References[0].ID)
	}
}

func TestCircularParserRejectsNonCircularData(t *testing.T) {
	db := testutil.NewTestDB(t)
	p := newCircularParser(t, db)
	msg := newDataMessage(t, db, "gcn.circulars", `{"subject": "no circular id here"}`)

	assert.False(t, p.Parse(msg))
}

func TestCircularParserWithoutEventsStillParses(t *testing.T) {
	db := testutil.NewTestDB(t)
	p := newCircularParser(t, db)
	msg := newDataMessage(t, db, "gcn.circulars", `{
		"circularId": 99,
		"subject": "GRB 230101A: optical observations",
		"eventId": "GRB 230101A"
	}`)

	require.True(t, p.Parse(msg))
	var count int64
	db.Model(&models.NonLocalizedEvent{}).Count(&count)
	assert.EqualValues(t, 0, count)
}
