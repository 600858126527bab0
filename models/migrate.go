package models

import "gorm.io/gorm"

// Migrate registers the explicit join tables and runs the schema
// auto-migration. The join tables carry composite primary keys so the
// database enforces single-link semantics.
func Migrate(db *gorm.DB) error {
	if err := db.SetupJoinTable(&Message{}, "Targets", &TargetMessage{}); err != nil {
		return err
	}
	if err := db.SetupJoinTable(&Target{}, "Messages", &TargetMessage{}); err != nil {
		return err
	}
	if err := db.SetupJoinTable(&NonLocalizedEvent{}, "References", &EventReference{}); err != nil {
		return err
	}
	return db.AutoMigrate(
		&Message{},
		&Target{},
		&NonLocalizedEvent{},
		&EventSequence{},
	)
}
