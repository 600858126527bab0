package models

import (
	"time"
)

// EventType classifies the physical phenomenon behind a nonlocalized event.
type EventType string

const (
	EventTypeGravitationalWave EventType = "GRAVITATIONAL_WAVE"
	EventTypeGammaRayBurst     EventType = "GAMMA_RAY_BURST"
	EventTypeNeutrino          EventType = "NEUTRINO"
	EventTypeUnknown           EventType = "UNKNOWN"
)

// NonLocalizedEvent is a physical transient phenomenon identified by an
// external catalog id, e.g. a GraceDB superevent id (TRIGGER_NUM in LVC
// notices) or a composite run/event id for a neutrino detection.
type NonLocalizedEvent struct {
	// The external catalog id is the primary identity; it is globally
	// unique and events are only ever created via get-or-create on it.
	EventID   string    `json:"event_id" gorm:"primaryKey;size:64"`
	EventType EventType `json:"event_type" gorm:"size:32;default:'GRAVITATIONAL_WAVE'"`
	CreatedAt time.Time `json:"created_at"`

	// Any message that mentions or relates to this event.
	References []*Message `json:"references,omitempty" gorm:"many2many:event_references;foreignKey:EventID;joinForeignKey:EventID;references:ID;joinReferences:MessageID"`

	Sequences []*EventSequence `json:"sequences,omitempty" gorm:"foreignKey:EventID;references:EventID"`
}

// TableName gives the explicit table name.
func (NonLocalizedEvent) TableName() string {
	return "nonlocalized_events"
}

// EventReference is the join row linking an event to a referencing
// message. The composite primary key guards against duplicate rows.
type EventReference struct {
	EventID   string    `gorm:"primaryKey;size:64"`
	MessageID uint      `gorm:"primaryKey;autoIncrement:false"`
	CreatedAt time.Time
}

func (EventReference) TableName() string { return "event_references" }
