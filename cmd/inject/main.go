// Command inject pushes a synthetic test message through the full
// ingest pipeline, mimicking the different wire formats. Useful for
// exercising the parsers and the linking graph against a live
// database.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"skyhub/config"
	"skyhub/models"
	"skyhub/services"
)

const counterpartTemplate = `TITLE:            GCN/LVC COUNTERPART NOTICE
NOTICE_DATE:      %s
NOTICE_TYPE:      Injected Counterpart
CNTRPART_RA:      %.4fd {+19h 59m 32.4s} (J2000),
                  300.0523d {+20h 00m 12.5s} (current),
                  299.4524d {+19h 57m 48.5s} (1950)
CNTRPART_DEC:     %.4fd {+40d 43' 51.6"} (J2000),
                  +40.7847d {+40d 47' 04.9"} (current),
                  +40.5932d {+40d 35' 35.4"} (1950)
CNTRPART_ERROR:   7.6 [arcsec, radius]
EVENT_TRIG_NUM:   %s
EVENT_DATE:       18599 TJD;   116 DOY;   2019/04/26 (yy/mm/dd)
EVENT_TIME:       55315.00 SOD {15:21:55.00} UT
OBS_DATE:         18599 TJD;   116 DOY;   19/04/26
OBS_TIME:         73448.0 SOD {20:24:08.00} UT
TELESCOPE:        Swift-XRT
SOURCE_SERNUM:    %d
RANK:             2
SUBMITTER:        %s
COMMENTS:         Injected counterpart notice.
COMMENTS:         Not a real astrophysical source.`

func main() {
	messageType := flag.String("type", "LVC_COUNTERPART",
		"one of LVC_COUNTERPART, LVC_PRELIMINARY, LVC_INITIAL, LVC_UPDATE, LVC_RETRACTION, GCN_CIRCULAR")
	eventID := flag.String("event-id", "MS123456", "event id the message refers to")
	author := flag.String("author", "Admin", "author of the injected message")
	sequenceNumber := flag.Int("sequence-number", 1, "sequence number for LVC alerts")
	sourceSernum := flag.Int("source-sernum", 1, "source serial number for counterpart notices")
	targetRA := flag.Float64("target-ra", 22.2, "counterpart right ascension in degrees")
	targetDec := flag.Float64("target-dec", 33.3, "counterpart declination in degrees")
	flag.Parse()

	logging, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Config load error", zap.Error(err))
	}
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		logging.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := models.Migrate(db); err != nil {
		logging.Fatal("Auto-migration failed", zap.Error(err))
	}
	ingest := services.NewIngestService(db, logging)

	alert, err := buildAlert(*messageType, *eventID, *author, *sequenceNumber, *sourceSernum, *targetRA, *targetDec)
	if err != nil {
		logging.Fatal("Could not build injected message", zap.Error(err))
	}

	message, created, err := ingest.Ingest(alert)
	if err != nil {
		logging.Fatal("Ingest failed", zap.Error(err))
	}
	logging.Info("Injected message",
		zap.String("uuid", message.UUID.String()),
		zap.Bool("created", created),
		zap.String("parser", message.MessageParser))
}

func buildAlert(messageType, eventID, author string, sequenceNumber, sourceSernum int, targetRA, targetDec float64) (services.Alert, error) {
	now := time.Now().UTC()
	switch {
	case messageType == "LVC_COUNTERPART":
		text := fmt.Sprintf(counterpartTemplate,
			now.Format("Mon 02 Jan 06 15:04:05 UT"),
			targetRA, targetDec, eventID, sourceSernum, author)
		return services.Alert{
			Topic:       messageType,
			MessageText: text,
			Submitter:   "inject command",
			Authors:     author,
		}, nil

	case strings.HasPrefix(messageType, "LVC_"):
		alertType := strings.TrimPrefix(messageType, "LVC_")
		payload := map[string]any{
			"alert_type":    alertType,
			"superevent_id": eventID,
			"time_created":  now.Format(time.RFC3339),
			"sequence_num":  sequenceNumber,
			"event": map[string]any{
				"group":    "CBC",
				"pipeline": "gstlal",
				"classification": map[string]any{
					"BBH": 0.03, "BNS": 0.95, "NSBH": 0.01, "Terrestrial": 0.01,
				},
			},
			"urls": map[string]any{
				"gracedb": "https://gracedb.ligo.org/superevents/" + eventID + "/view/",
			},
		}
		data, err := json.Marshal(payload)
		if err != nil {
			return services.Alert{}, err
		}
		return services.Alert{
			Topic:     "igwn.test." + strings.ToLower(alertType),
			Title:     eventID + " - " + alertType,
			Data:      data,
			Submitter: "inject command",
			Authors:   author,
			Published: now,
		}, nil

	case messageType == "GCN_CIRCULAR":
		payload := map[string]any{
			"circularId": 28609,
			"subject":    eventID + ": No candidate counterparts from the Zwicky Transient Facility",
			"eventId":    eventID,
			"submitter":  author,
			"body":       "This is an injected test gcn circular message.",
		}
		data, err := json.Marshal(payload)
		if err != nil {
			return services.Alert{}, err
		}
		return services.Alert{
			Topic:     "gcn.circulars.test",
			Data:      data,
			Submitter: "inject command",
			Authors:   author,
			Published: now,
		}, nil
	}
	return services.Alert{}, fmt.Errorf("unknown message type %q", messageType)
}
