package entity

import "time"

// Activity events written to the audit log.
const (
	EventMissionCompleted = "mission completed"
	EventCodeIssued       = "discount code issued"
	EventCodeFailed       = "discount code failed"
)

// Activity is a best-effort audit record of a lifecycle event. Stored in
// Mongo; losing one never blocks the reward path.
type Activity struct {
	TelegramId  int64     `bson:"telegram_id"`
	MissionId   int64     `bson:"mission_id,omitempty"`
	Event       string    `bson:"event"`
	Description string    `bson:"description"`
	CreatedAt   time.Time `bson:"created_at"`
}
