package models

import (
	"time"
)

// Target is a named sky position associated with one or more messages.
// The same logical target may legitimately appear more than once under
// the same name with revised coordinates, so identity is the full
// (name, ra, dec) triple.
type Target struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name string  `json:"name" gorm:"index:idx_targets_identity,unique;size:128"`
	RA   float64 `json:"ra" gorm:"index:idx_targets_identity,unique"`
	Dec  float64 `json:"dec" gorm:"index:idx_targets_identity,unique"`

	Messages []*Message `json:"messages,omitempty" gorm:"many2many:target_messages;joinForeignKey:TargetID;joinReferences:MessageID"`
}

// TableName gives the explicit table name.
func (Target) TableName() string {
	return "targets"
}

// TargetMessage is the join row linking a target to a message. The
// composite primary key guards against duplicate association rows.
type TargetMessage struct {
	TargetID  uint      `gorm:"primaryKey;autoIncrement:false"`
	MessageID uint      `gorm:"primaryKey;autoIncrement:false"`
	CreatedAt time.Time
}

func (TargetMessage) TableName() string { return "target_messages" }
