// Package services holds the application services that sit between the
// transports (HTTP, stream consumers, CLI) and the persistence layer.
package services

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"skyhub/linking"
	"skyhub/models"
	"skyhub/parsers"
)

// ErrTopicIgnored marks alerts on topics the pipeline deliberately
// drops before any database work.
var ErrTopicIgnored = errors.New("topic is on the ignore list")

// Binary notice topics and broker heartbeats are dropped up front.
var ignoredTopicFragments = []string{
	"gcn.notice",
	"heartbeat",
}

// Alert is one incoming message before ingestion. Either MessageText
// or Data must be set; everything else is optional and defaulted.
type Alert struct {
	Topic       string
	MessageText string
	Data        json.RawMessage
	Title       string
	Submitter   string
	Authors     string
	UUID        uuid.UUID
	Published   time.Time
}

// IngestService deduplicates incoming alerts, stores them as messages
// and routes each new message through the parser set.
type IngestService struct {
	DB  *gorm.DB
	Log *zap.Logger

	// topicParsers routes structured feeds whose topic names their
	// format. probeChain is tried in order for everything else.
	topicParsers []topicParser
	probeChain   []parsers.Parser
}

type topicParser struct {
	fragment string
	parser   parsers.Parser
}

// NewIngestService wires the full parser set against the given
// database.
func NewIngestService(db *gorm.DB, log *zap.Logger) *IngestService {
	links := linking.NewEngine(db, log)
	return &IngestService{
		DB:  db,
		Log: log,
		topicParsers: []topicParser{
			{"circular", &parsers.CircularParser{DB: db, Links: links, Log: log}},
			{"igwn", &parsers.IGWNAlertParser{DB: db, Links: links, Log: log}},
			{"skyhub", &parsers.CanonicalMessageParser{DB: db, Links: links, Log: log}},
		},
		probeChain: []parsers.Parser{
			&parsers.LVCCounterpartParser{DB: db, Links: links, Log: log},
			&parsers.LVCNoticeParser{DB: db, Links: links, Log: log},
			&parsers.IceCubeNoticeParser{DB: db, Links: links, Log: log},
			&parsers.GCNNoticeParser{DB: db, Links: links, Log: log},
			&parsers.IGWNAlertParser{DB: db, Links: links, Log: log},
			&parsers.CircularParser{DB: db, Links: links, Log: log},
		},
	}
}

// Ingest stores one alert and parses it. An alert whose (topic,
// content) pair was seen before maps onto the already stored message,
// so replays and cross-broker duplicates collapse into one record. It
// returns the stored message and whether it was newly created.
func (s *IngestService) Ingest(alert Alert) (*models.Message, bool, error) {
	if topicIgnored(alert.Topic) {
		return nil, false, fmt.Errorf("topic %q: %w", alert.Topic, ErrTopicIgnored)
	}
	if alert.MessageText == "" && len(alert.Data) == 0 {
		return nil, false, errors.New("alert carries neither text nor data")
	}

	hash := contentHash(alert.MessageText, alert.Data)
	msg := models.Message{
		UUID:        alert.UUID,
		Topic:       alert.Topic,
		ContentHash: hash,
		Title:       alert.Title,
		Submitter:   alert.Submitter,
		Authors:     alert.Authors,
		MessageText: alert.MessageText,
		Published:   alert.Published,
	}
	if len(alert.Data) > 0 {
		msg.Data = []byte(alert.Data)
	}
	if msg.UUID == uuid.Nil {
		msg.UUID = uuid.New()
	}
	if msg.Published.IsZero() {
		msg.Published = time.Now().UTC()
	}

	result := s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "topic"}, {Name: "content_hash"}},
		DoNothing: true,
	}).Create(&msg)
	if result.Error != nil {
		return nil, false, fmt.Errorf("store message on topic %s: %w", alert.Topic, result.Error)
	}
	created := result.RowsAffected > 0

	var stored models.Message
	err := s.DB.First(&stored, "topic = ? AND content_hash = ?", alert.Topic, hash).Error
	if err != nil {
		return nil, false, fmt.Errorf("load message on topic %s: %w", alert.Topic, err)
	}

	messagesIngestedCounter.WithLabelValues(alert.Topic).Inc()
	if created {
		s.Log.Info("ingested new message",
			zap.Uint("message_id", stored.ID),
			zap.String("topic", stored.Topic))
	} else {
		s.Log.Info("ignoring duplicate message",
			zap.Uint("message_id", stored.ID),
			zap.String("topic", stored.Topic))
	}

	// Duplicates that already went through a parser stay untouched;
	// a replay of a message that never parsed gets another chance.
	if stored.MessageParser == "" {
		s.parse(&stored)
	}
	return &stored, created, nil
}

// parse routes the message to its parser. Topic-bound formats are
// dispatched directly, everything else probes the chain in order.
func (s *IngestService) parse(msg *models.Message) {
	topic := strings.ToLower(msg.Topic)
	for _, tp := range s.topicParsers {
		if strings.Contains(topic, tp.fragment) {
			if tp.parser.Parse(msg) {
				messagesParsedCounter.WithLabelValues(tp.parser.Name()).Inc()
			} else {
				parseFailuresCounter.WithLabelValues(msg.Topic).Inc()
				s.Log.Warn("topic parser did not claim message",
					zap.Uint("message_id", msg.ID),
					zap.String("topic", msg.Topic),
					zap.String("parser", tp.parser.Name()))
			}
			return
		}
	}

	for _, p := range s.probeChain {
		if p.Parse(msg) {
			messagesParsedCounter.WithLabelValues(p.Name()).Inc()
			return
		}
	}
	parseFailuresCounter.WithLabelValues(msg.Topic).Inc()
	s.Log.Warn("no parser claimed message",
		zap.Uint("message_id", msg.ID),
		zap.String("topic", msg.Topic))
}

func topicIgnored(topic string) bool {
	lower := strings.ToLower(topic)
	for _, fragment := range ignoredTopicFragments {
		if strings.Contains(lower, fragment) {
			return true
		}
	}
	return false
}

// contentHash fingerprints a message for deduplication. Text and data
// are domain separated so a text body can never collide with an
// identical JSON payload.
func contentHash(text string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(text))
	h.Write([]byte{0})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
