package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Message is the canonical, deduplicated record of one ingested alert.
// It is created once by the ingestion dispatcher and afterwards only
// mutated by the single parser that claims it.
type Message struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Stable identifier used for external citation of this message.
	UUID uuid.UUID `json:"uuid" gorm:"type:uuid;uniqueIndex;not null"`

	// A (topic, content_hash) pair identifies a unique message. The hash
	// covers the structured payload if present, otherwise the raw text,
	// so re-delivery of identical content is a no-op at the database level.
	Topic       string `json:"topic" gorm:"index:idx_messages_topic_content,unique"`
	ContentHash string `json:"-" gorm:"index:idx_messages_topic_content,unique;size:64"`

	Title     string `json:"title"`
	Submitter string `json:"submitter"`
	Authors   string `json:"authors,omitempty"`

	// Structured payload and/or raw wire text; at least one is present.
	Data        datatypes.JSON `json:"data,omitempty"`
	MessageText string         `json:"message_text,omitempty" gorm:"type:text"`

	// Name of the parser that successfully processed this message.
	// Empty means the message is retained unparsed.
	MessageParser string `json:"message_parser" gorm:"index"`

	// Defaults to ingestion time; overwritten when a parser recovers an
	// authoritative timestamp from the message content.
	Published time.Time `json:"published" gorm:"index"`

	Targets []*Target `json:"targets,omitempty" gorm:"many2many:target_messages;joinForeignKey:MessageID;joinReferences:TargetID"`
}

// TableName gives the explicit table name.
func (Message) TableName() string {
	return "messages"
}
