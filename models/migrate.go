package models

import "gorm.io/gorm"

// Migrate runs the schema migration for every chat entity.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Conversation{},
		&Membership{},
		&Message{},
		&Attachment{},
		&Reaction{},
		&DeliveryStatus{},
	)
}
