// Package linking maintains the relationship graph between messages,
// nonlocalized events, event sequences and targets. All writes go
// through atomic upserts on unique indexes so that concurrent workers
// and replayed messages converge on the same graph.
package linking

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"skyhub/models"
)

// Engine bundles the database handle and logger for link operations.
type Engine struct {
	DB  *gorm.DB
	Log *zap.Logger
}

// NewEngine creates a linking engine.
func NewEngine(db *gorm.DB, log *zap.Logger) *Engine {
	return &Engine{DB: db, Log: log}
}

// EnsureEvent creates the event with the given external id if it does
// not exist yet and returns the stored row. The event type of an
// existing row is never overwritten.
func (e *Engine) EnsureEvent(eventID string, eventType models.EventType) (*models.NonLocalizedEvent, error) {
	ev := models.NonLocalizedEvent{EventID: eventID, EventType: eventType}
	if err := e.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}},
		DoNothing: true,
	}).Create(&ev).Error; err != nil {
		return nil, fmt.Errorf("ensure event %s: %w", eventID, err)
	}
	var stored models.NonLocalizedEvent
	if err := e.DB.First(&stored, "event_id = ?", eventID).Error; err != nil {
		return nil, fmt.Errorf("load event %s: %w", eventID, err)
	}
	return &stored, nil
}

// EnsureSequence records one numbered revision of an event. The first
// message that writes a given (event, sequence_number) pair wins;
// later writers are silently absorbed and the stored row is returned.
func (e *Engine) EnsureSequence(eventID string, number int, seqType models.SequenceType, messageID uint, data datatypes.JSON) (*models.EventSequence, error) {
	seq := models.EventSequence{
		EventID:        eventID,
		SequenceNumber: number,
		SequenceType:   seqType,
		MessageID:      messageID,
		Data:           data,
	}
	if err := e.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}, {Name: "sequence_number"}},
		DoNothing: true,
	}).Create(&seq).Error; err != nil {
		return nil, fmt.Errorf("ensure sequence %s/%d: %w", eventID, number, err)
	}
	var stored models.EventSequence
	err := e.DB.First(&stored, "event_id = ? AND sequence_number = ?", eventID, number).Error
	if err != nil {
		return nil, fmt.Errorf("load sequence %s/%d: %w", eventID, number, err)
	}
	if stored.MessageID != messageID {
		e.Log.Debug("sequence already claimed",
			zap.String("event_id", eventID),
			zap.Int("sequence_number", number),
			zap.Uint("message_id", messageID),
			zap.Uint("stored_message_id", stored.MessageID))
	}
	return &stored, nil
}

// EnsureTarget creates a target identified by (name, ra, dec) if it
// does not exist yet. Two observations of the same name at different
// coordinates yield two distinct targets.
func (e *Engine) EnsureTarget(name string, ra, dec float64) (*models.Target, error) {
	t := models.Target{Name: name, RA: ra, Dec: dec}
	if err := e.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}, {Name: "ra"}, {Name: "dec"}},
		DoNothing: true,
	}).Create(&t).Error; err != nil {
		return nil, fmt.Errorf("ensure target %s: %w", name, err)
	}
	var stored models.Target
	err := e.DB.First(&stored, "name = ? AND ra = ? AND dec = ?", name, ra, dec).Error
	if err != nil {
		return nil, fmt.Errorf("load target %s: %w", name, err)
	}
	return &stored, nil
}

// LinkReference attaches a message to an event's reference set.
// Relinking the same pair is a no-op.
func (e *Engine) LinkReference(eventID string, messageID uint) error {
	ref := models.EventReference{EventID: eventID, MessageID: messageID}
	err := e.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&ref).Error
	if err != nil {
		return fmt.Errorf("link message %d to event %s: %w", messageID, eventID, err)
	}
	return nil
}

// LinkTarget attaches a message to a target. Relinking the same pair
// is a no-op.
func (e *Engine) LinkTarget(targetID, messageID uint) error {
	tm := models.TargetMessage{TargetID: targetID, MessageID: messageID}
	err := e.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&tm).Error
	if err != nil {
		return fmt.Errorf("link message %d to target %d: %w", messageID, targetID, err)
	}
	return nil
}
