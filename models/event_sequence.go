package models

import (
	"time"

	"gorm.io/datatypes"
)

// SequenceType is the alert type of one revision of an event.
type SequenceType string

const (
	SequenceTypeEarlyWarning SequenceType = "EARLY_WARNING"
	SequenceTypePreliminary  SequenceType = "PRELIMINARY"
	SequenceTypeInitial      SequenceType = "INITIAL"
	SequenceTypeUpdate       SequenceType = "UPDATE"
	SequenceTypeRetraction   SequenceType = "RETRACTION"
)

// EventSequence is one numbered revision of an event's evolving
// classification/localization, attributed to the message that produced
// it. (event, sequence_number) is unique; the first writer for a given
// number wins and replayed duplicates are silently absorbed.
type EventSequence struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	EventID string             `json:"event_id" gorm:"size:64;index:idx_event_sequences_event_number,unique"`
	Event   *NonLocalizedEvent `json:"-" gorm:"foreignKey:EventID;references:EventID"`

	// Sequence numbers are non-negative but not guaranteed contiguous.
	SequenceNumber int          `json:"sequence_number" gorm:"index:idx_event_sequences_event_number,unique"`
	SequenceType   SequenceType `json:"sequence_type" gorm:"size:64;default:''"`

	MessageID uint     `json:"message_id"`
	Message   *Message `json:"-" gorm:"foreignKey:MessageID"`

	Data datatypes.JSON `json:"data,omitempty"`
}

// TableName gives the explicit table name.
func (EventSequence) TableName() string {
	return "event_sequences"
}
